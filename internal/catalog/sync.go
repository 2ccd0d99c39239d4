// Package catalog drives the ordered multi-feed synchronization of the
// remote resource api into the local index.
//
// A Syncer performs no transaction management of its own: callers bind it to
// a Library running on a transaction (see dbx.WithTx) so that a failure at
// any point in a sync leaves the index unchanged.
package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/unfoldingword/door43client/internal/common"
	"github.com/unfoldingword/door43client/internal/httpx"
	"github.com/unfoldingword/door43client/internal/index"
	"github.com/unfoldingword/door43client/internal/logging"
	"github.com/unfoldingword/door43client/internal/models"
	"github.com/unfoldingword/door43client/internal/rc"
)

// ProgressFunc receives coarse sync progress: a tag naming the item being
// processed, the total item count, and how many are complete. Invoked
// synchronously on the sync goroutine.
type ProgressFunc func(tag string, total, complete int)

const (
	// chunksURLTemplate locates the chunk marker feed for a bible project.
	chunksURLTemplate = "https://api.unfoldingword.org/bible/txt/1/%s/chunks.json"

	defaultVersificationSlug = "en-US"
	defaultVersificationName = "American English"
)

// Syncer indexes remote catalog feeds through a Library.
type Syncer struct {
	lib  *index.Library
	http httpx.Getter
	log  logging.Logger
}

func NewSyncer(lib *index.Library, getter httpx.Getter, log logging.Logger) *Syncer {
	return &Syncer{lib: lib, http: getter, log: log}
}

// fetch retrieves url and enforces the all-or-nothing contract: a transport
// error or non-success status is fatal to the enclosing sync.
func (s *Syncer) fetch(ctx context.Context, url string) ([]byte, error) {
	status, body, err := s.http.Get(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrRemoteFetch, err)
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("%w: %s returned status %d", common.ErrRemoteFetch, url, status)
	}
	return body, nil
}

// UpdateSources indexes the primary catalog at url: every project, its source
// languages, their resources, and the project chunk markers.
func (s *Syncer) UpdateSources(ctx context.Context, url string, progress ProgressFunc) error {
	body, err := s.fetch(ctx, url)
	if err != nil {
		return err
	}

	var projects []projectEntry
	if err := json.Unmarshal(body, &projects); err != nil {
		return fmt.Errorf("parsing primary catalog: %w", err)
	}

	for i, project := range projects {
		if progress != nil {
			progress(project.Slug, len(projects), i+1)
		}
		if err := s.processProject(ctx, project); err != nil {
			return err
		}
	}
	return nil
}

func (s *Syncer) processProject(ctx context.Context, project projectEntry) error {
	body, err := s.fetch(ctx, project.LangCatalog)
	if err != nil {
		return err
	}

	// OBS has no chunk feed; everything else is segmented by the bible api.
	chunksURL := ""
	if !strings.EqualFold(project.Slug, "obs") {
		chunksURL = fmt.Sprintf(chunksURLTemplate, project.Slug)
	}

	var languages []languageEntry
	if err := json.Unmarshal(body, &languages); err != nil {
		return fmt.Errorf("parsing language catalog for %s: %w", project.Slug, err)
	}

	for _, lang := range languages {
		languageID, err := s.lib.AddSourceLanguage(ctx, models.SourceLanguage{
			Slug:      lang.Language.Slug,
			Name:      lang.Language.Name,
			Direction: lang.Language.Direction,
		})
		if err != nil {
			return err
		}

		// The legacy api carries no versification info, so every language is
		// registered against the single default scheme.
		if _, err := s.lib.AddVersification(ctx, models.Versification{
			Slug: defaultVersificationSlug,
			Name: defaultVersificationName,
		}, languageID); err != nil {
			return err
		}

		projectID, err := s.lib.AddProject(ctx, models.Project{
			Slug:        project.Slug,
			Name:        lang.Project.Name,
			Description: lang.Project.Desc,
			Sort:        project.Sort,
			ChunksURL:   chunksURL,
		}, categoryPath(project.Meta, lang.Project.Meta), languageID)
		if err != nil {
			return err
		}

		if err := s.processResources(ctx, project, lang, projectID, languageID); err != nil {
			return err
		}
	}

	if chunksURL != "" {
		if err := s.updateChunks(ctx, chunksURL, project.Slug); err != nil {
			return err
		}
	}
	return nil
}

// categoryPath zips the project's category slugs with their localized names
// from the language entry. A missing name falls back to the slug.
func categoryPath(slugs, names []string) []models.Category {
	path := make([]models.Category, 0, len(slugs))
	for i, slug := range slugs {
		name := slug
		if i < len(names) && names[i] != "" {
			name = names[i]
		}
		path = append(path, models.Category{Slug: slug, Name: name})
	}
	return path
}

// translateMode derives the translate policy from the resource slug: the
// foundational texts are open to all languages, everything else is reserved
// for gateway languages.
func translateMode(resourceSlug string) string {
	switch strings.ToLower(resourceSlug) {
	case "obs", "ulb":
		return "all"
	default:
		return "gl"
	}
}

// processResources indexes a language's resource catalog. Inline notes,
// checking questions and terms payloads are split into their own synthetic
// resources; terms land in a shared words project.
func (s *Syncer) processResources(ctx context.Context, project projectEntry, lang languageEntry, projectID, languageID int64) error {
	body, err := s.fetch(ctx, lang.ResCatalog)
	if err != nil {
		return err
	}

	var resources []resourceEntry
	if err := json.Unmarshal(body, &resources); err != nil {
		return fmt.Errorf("parsing resource catalog for %s/%s: %w", lang.Language.Slug, project.Slug, err)
	}

	for _, entry := range resources {
		status := models.Status{
			TranslateMode: translateMode(entry.Slug),
			CheckingLevel: entry.Status.CheckingLevel,
			Comments:      entry.Status.Comments,
			License:       entry.Status.License,
			Version:       entry.Status.Version,
			PubDate:       entry.Status.PublishDate,
		}

		resource := models.Resource{
			Slug:                entry.Slug,
			Name:                entry.Name,
			Type:                "book",
			Status:              status,
			WordsAssignmentsURL: entry.TWCat,
			Formats: []models.Format{{
				PackageVersion: rc.ContainerVersion,
				MimeType:       rc.MimeForType("book"),
				ModifiedAt:     entry.DateModified,
				URL:            entry.Source,
			}},
		}
		if _, err := s.lib.AddResource(ctx, resource, projectID); err != nil {
			return err
		}

		if entry.Notes != "" {
			tn := syntheticResource("tn", "translationNotes", "help", lang.Language.Slug, status, entry, entry.Notes)
			if _, err := s.lib.AddResource(ctx, tn, projectID); err != nil {
				return err
			}
		}

		if entry.CheckingQuestions != "" {
			tq := syntheticResource("tq", "translationQuestions", "help", lang.Language.Slug, status, entry, entry.CheckingQuestions)
			if _, err := s.lib.AddResource(ctx, tq, projectID); err != nil {
				return err
			}
		}

		if entry.Terms != "" {
			if err := s.addWordsResource(ctx, project, lang, status, entry, languageID); err != nil {
				return err
			}
		}
	}
	return nil
}

// syntheticResource builds a split-off resource (notes, questions, words)
// that shares the parent's status and version but records where it came from.
func syntheticResource(slug, name, resourceType, languageSlug string, status models.Status, entry resourceEntry, url string) models.Resource {
	status.TranslateMode = "gl"
	status.SourceTranslations = []models.SourceTranslation{{
		LanguageSlug: languageSlug,
		ResourceSlug: slug,
		Version:      status.Version,
	}}
	return models.Resource{
		Slug:   slug,
		Name:   name,
		Type:   resourceType,
		Status: status,
		Formats: []models.Format{{
			PackageVersion: rc.ContainerVersion,
			MimeType:       rc.MimeForType(resourceType),
			ModifiedAt:     entry.DateModified,
			URL:            url,
		}},
	}
}

// WordsProjectSlug returns the project a terms payload belongs to. OBS words
// have not been unified with bible words upstream, so they live in their own
// project.
func WordsProjectSlug(projectSlug string) string {
	if strings.EqualFold(projectSlug, "obs") {
		return "bible-obs"
	}
	return "bible"
}

// addWordsResource models translationWords as its own project rather than
// nesting a copy under every book.
func (s *Syncer) addWordsResource(ctx context.Context, project projectEntry, lang languageEntry, status models.Status, entry resourceEntry, languageID int64) error {
	slug := WordsProjectSlug(project.Slug)
	name := "translationWords"
	if slug == "bible-obs" {
		name += " OBS"
	}

	wordsProjectID, err := s.lib.AddProject(ctx, models.Project{
		Slug: slug,
		Name: name,
		Sort: 100,
	}, nil, languageID)
	if err != nil {
		return err
	}

	tw := syntheticResource("tw", "translationWords", "dict", lang.Language.Slug, status, entry, entry.Terms)
	_, err = s.lib.AddResource(ctx, tw, wordsProjectID)
	return err
}

// updateChunks indexes a project's chunk markers against the default
// versification. An unknown versification is logged and skipped; it only
// means no language of this project has been indexed yet.
func (s *Syncer) updateChunks(ctx context.Context, chunksURL, projectSlug string) error {
	v, err := s.lib.GetVersification(ctx, "en", defaultVersificationSlug)
	if errors.Is(err, common.ErrNotFound) {
		s.log.Warn(ctx, "unknown versification while indexing chunks",
			"versification", defaultVersificationSlug, "project", projectSlug)
		return nil
	}
	if err != nil {
		return err
	}

	body, err := s.fetch(ctx, chunksURL)
	if err != nil {
		return err
	}

	var chunks []chunkEntry
	if err := json.Unmarshal(body, &chunks); err != nil {
		return fmt.Errorf("parsing chunks for %s: %w", projectSlug, err)
	}

	for _, chunk := range chunks {
		marker := models.ChunkMarker{Chapter: chunk.Chapter, Verse: chunk.FirstVerse}
		if _, err := s.lib.AddChunkMarker(ctx, marker, projectSlug, v.ID); err != nil {
			return err
		}
	}
	return nil
}

// FlattenWordsAssignments converts a legacy words-assignment payload into a
// chapter -> frame -> cross-reference mapping. References take the form
// "//{wordsProjectSlug}/tw/{itemID}".
func FlattenWordsAssignments(data []byte, wordsProjectSlug string) (map[string]map[string][]string, error) {
	var feed wordsAssignmentsFeed
	if err := json.Unmarshal(data, &feed); err != nil {
		return nil, fmt.Errorf("parsing words assignments: %w", err)
	}

	assignments := make(map[string]map[string][]string, len(feed.Chapters))
	for _, chapter := range feed.Chapters {
		frames := make(map[string][]string, len(chapter.Frames))
		for _, frame := range chapter.Frames {
			refs := make([]string, 0, len(frame.Items))
			for _, item := range frame.Items {
				refs = append(refs, fmt.Sprintf("//%s/tw/%s", wordsProjectSlug, item.ID))
			}
			frames[frame.ID] = refs
		}
		assignments[chapter.ID] = frames
	}
	return assignments, nil
}
