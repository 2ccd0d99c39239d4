package catalog

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/unfoldingword/door43client/internal/models"
)

// Slugs of the global catalogs.
const (
	CatalogLangNames             = "langnames"
	CatalogNewLanguageQuestions  = "new-language-questions"
	CatalogTempLangNames         = "temp-langnames"
	CatalogApprovedTempLangNames = "approved-temp-langnames"
)

// DefaultGlobalCatalogHost serves the global catalogs.
const DefaultGlobalCatalogHost = "https://td.unfoldingword.org"

// GlobalCatalogSlugs lists the global catalogs in required processing order.
// The approval feed links temp rows to target rows, so it must be indexed
// strictly after both langnames and temp-langnames; indexing it earlier
// silently leaves the links unset.
var GlobalCatalogSlugs = []string{
	CatalogLangNames,
	CatalogNewLanguageQuestions,
	CatalogTempLangNames,
	CatalogApprovedTempLangNames,
}

// InjectGlobalCatalogs registers the global catalog feeds in the index so
// they can be updated by slug later. An empty host selects the default.
func (s *Syncer) InjectGlobalCatalogs(ctx context.Context, host string) error {
	if host == "" {
		host = DefaultGlobalCatalogHost
	}

	// The trailing slash is required on the api urls.
	catalogs := []models.Catalog{
		{Slug: CatalogLangNames, URL: host + "/exports/langnames.json"},
		{Slug: CatalogNewLanguageQuestions, URL: host + "/api/questionnaire/"},
		{Slug: CatalogTempLangNames, URL: host + "/api/templanguages/"},
		{Slug: CatalogApprovedTempLangNames, URL: host + "/api/templanguages/assignment/changed/"},
	}
	for _, c := range catalogs {
		if _, err := s.lib.AddCatalog(ctx, c); err != nil {
			return err
		}
	}
	return nil
}

// UpdateCatalog fetches and indexes one global catalog by slug. Callers are
// responsible for honoring the order in GlobalCatalogSlugs when updating more
// than one.
func (s *Syncer) UpdateCatalog(ctx context.Context, slug string, progress ProgressFunc) error {
	cat, err := s.lib.GetCatalog(ctx, slug)
	if err != nil {
		return err
	}

	body, err := s.fetch(ctx, cat.URL)
	if err != nil {
		return err
	}

	switch slug {
	case CatalogLangNames:
		err = s.processLanguageNames(ctx, slug, body, false, progress)
	case CatalogTempLangNames:
		err = s.processLanguageNames(ctx, slug, body, true, progress)
	case CatalogNewLanguageQuestions:
		err = s.processQuestionnaires(ctx, body, progress)
	case CatalogApprovedTempLangNames:
		err = s.processApprovedTempLanguages(ctx, body)
	default:
		err = fmt.Errorf("no handler for catalog %q", slug)
	}
	if err != nil {
		return err
	}

	cat.ModifiedAt = int(time.Now().Unix())
	_, err = s.lib.AddCatalog(ctx, cat.Catalog)
	return err
}

// UpdateAllCatalogs indexes every global catalog in dependency order.
func (s *Syncer) UpdateAllCatalogs(ctx context.Context, progress ProgressFunc) error {
	for _, slug := range GlobalCatalogSlugs {
		if err := s.UpdateCatalog(ctx, slug, progress); err != nil {
			return err
		}
	}
	return nil
}

// processLanguageNames indexes a langnames-style feed into the target (or
// temp target) language table. A bad row is warned about and skipped; one
// malformed language must not block the rest of the batch.
func (s *Syncer) processLanguageNames(ctx context.Context, slug string, body []byte, temp bool, progress ProgressFunc) error {
	var entries []languageNameEntry
	if err := json.Unmarshal(body, &entries); err != nil {
		return fmt.Errorf("parsing %s: %w", slug, err)
	}

	for i, entry := range entries {
		if progress != nil {
			progress(slug, len(entries), i+1)
		}
		lang := models.TargetLanguage{
			Slug:              entry.LC,
			Name:              entry.LN,
			AnglicizedName:    entry.ANG,
			Direction:         entry.LD,
			Region:            entry.LR,
			IsGatewayLanguage: entry.GW,
		}

		var err error
		if temp {
			err = s.lib.AddTempTargetLanguage(ctx, lang)
		} else {
			err = s.lib.AddTargetLanguage(ctx, lang)
		}
		if err != nil {
			s.log.Warn(ctx, "skipping language entry", "catalog", slug, "slug", entry.LC, "error", err)
		}
	}
	return nil
}

// processQuestionnaires indexes the new-language-questions feed.
func (s *Syncer) processQuestionnaires(ctx context.Context, body []byte, progress ProgressFunc) error {
	var feed questionnaireFeed
	if err := json.Unmarshal(body, &feed); err != nil {
		return fmt.Errorf("parsing questionnaires: %w", err)
	}

	for i, lang := range feed.Languages {
		if progress != nil {
			progress(CatalogNewLanguageQuestions, len(feed.Languages), i+1)
		}
		questionnaireID, err := s.lib.AddQuestionnaire(ctx, models.Questionnaire{
			LanguageSlug:      lang.Slug,
			LanguageName:      lang.Name,
			LanguageDirection: lang.Dir,
			TDID:              lang.QuestionnaireID,
		})
		if err != nil {
			return err
		}

		for _, q := range lang.Questions {
			var dependsOn int64
			if q.DependsOn != nil {
				dependsOn = *q.DependsOn
			}
			_, err := s.lib.AddQuestion(ctx, models.Question{
				Text:       q.Text,
				Help:       q.Help,
				IsRequired: q.Required,
				InputType:  q.InputType,
				Sort:       q.Sort,
				DependsOn:  dependsOn,
				TDID:       q.ID,
			}, questionnaireID)
			if err != nil {
				return err
			}
		}
	}
	return nil
}

// processApprovedTempLanguages links temp target languages to the official
// languages they were replaced by. A link that lands on no row is warned
// about, not fatal: it usually means the feeds were processed out of order.
func (s *Syncer) processApprovedTempLanguages(ctx context.Context, body []byte) error {
	var assignments map[string]string
	if err := json.Unmarshal(body, &assignments); err != nil {
		return fmt.Errorf("parsing approved temp languages: %w", err)
	}

	for tempSlug, targetSlug := range assignments {
		ok, err := s.lib.SetApprovedTargetLanguage(ctx, tempSlug, targetSlug)
		if err != nil {
			s.log.Warn(ctx, "skipping approval entry", "temp", tempSlug, "target", targetSlug, "error", err)
			continue
		}
		if !ok {
			s.log.Warn(ctx, "approval link not applied", "temp", tempSlug, "target", targetSlug)
		}
	}
	return nil
}
