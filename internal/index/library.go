// Package index owns the local relational index: the schema, the upsert
// primitive, and typed add/get operations for every indexed entity.
//
// All add operations are idempotent: re-adding the same natural key returns
// the same row id and leaves the row reflecting the latest call's values.
// Writes performed during a catalog sync must run inside a single transaction
// (see dbx.WithTx) so a mid-sync failure leaves the index unchanged.
package index

import (
	"context"
	"fmt"
	"strings"

	"github.com/unfoldingword/door43client/internal/common"
	"github.com/unfoldingword/door43client/internal/dbx"
	"github.com/unfoldingword/door43client/internal/models"
)

// Library exposes typed add/get operations over the relational index.
// It is bound to a dbx.DBTX so the same code runs on *sql.DB for reads and
// on *sql.Tx inside a sync transaction.
type Library struct {
	db dbx.DBTX
}

// NewLibrary returns a Library bound to the given DBTX.
func NewLibrary(db dbx.DBTX) *Library {
	return &Library{db: db}
}

func notEmpty(name, value string) error {
	if strings.TrimSpace(value) == "" {
		return fmt.Errorf("%s must not be empty: %w", name, common.ErrInvalidArgument)
	}
	return nil
}

// AddSourceLanguage inserts or updates a source language and returns its row id.
func (l *Library) AddSourceLanguage(ctx context.Context, lang models.SourceLanguage) (int64, error) {
	if err := notEmpty("slug", lang.Slug); err != nil {
		return 0, err
	}
	if err := notEmpty("name", lang.Name); err != nil {
		return 0, err
	}
	if err := notEmpty("direction", lang.Direction); err != nil {
		return 0, err
	}

	return insertOrUpdate(ctx, l.db, "source_language", []field{
		{"slug", lang.Slug},
		{"name", lang.Name},
		{"direction", lang.Direction},
	}, []string{"slug"})
}

func targetLanguageFields(lang models.TargetLanguage) []field {
	gateway := 0
	if lang.IsGatewayLanguage {
		gateway = 1
	}
	return []field{
		{"slug", lang.Slug},
		{"name", lang.Name},
		{"direction", lang.Direction},
		{"anglicized_name", lang.AnglicizedName},
		{"region", lang.Region},
		{"is_gateway_language", gateway},
	}
}

func validateTargetLanguage(lang models.TargetLanguage) error {
	if err := notEmpty("slug", lang.Slug); err != nil {
		return err
	}
	if err := notEmpty("name", lang.Name); err != nil {
		return err
	}
	return notEmpty("direction", lang.Direction)
}

// AddTargetLanguage inserts or updates an official target language.
// Callers never need the row id, so none is returned.
func (l *Library) AddTargetLanguage(ctx context.Context, lang models.TargetLanguage) error {
	if err := validateTargetLanguage(lang); err != nil {
		return err
	}
	_, err := insertOrUpdate(ctx, l.db, "target_language", targetLanguageFields(lang), []string{"slug"})
	return err
}

// AddTempTargetLanguage inserts or updates a temporary target language.
func (l *Library) AddTempTargetLanguage(ctx context.Context, lang models.TargetLanguage) error {
	if err := validateTargetLanguage(lang); err != nil {
		return err
	}
	_, err := insertOrUpdate(ctx, l.db, "temp_target_language", targetLanguageFields(lang), []string{"slug"})
	return err
}

// SetApprovedTargetLanguage links a temporary target language to the official
// target language it was superseded by. It reports whether exactly one row was
// updated; updating zero rows is not an error here, because the caller is
// responsible for feeding rows in an order where the temp row already exists.
func (l *Library) SetApprovedTargetLanguage(ctx context.Context, tempSlug, targetSlug string) (bool, error) {
	if err := notEmpty("temp slug", tempSlug); err != nil {
		return false, err
	}
	if err := notEmpty("target slug", targetSlug); err != nil {
		return false, err
	}

	res, err := l.db.ExecContext(ctx,
		"UPDATE temp_target_language SET approved_target_language_slug=? WHERE slug=?",
		targetSlug, tempSlug)
	if err != nil {
		return false, fmt.Errorf("approving target language: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("rows affected: %w", err)
	}
	return n == 1, nil
}

// AddProject inserts or updates a project, walking categoryPath top-down and
// creating one category node (plus its localized name) per level. The project
// attaches to the final category, or to the root when categoryPath is empty.
func (l *Library) AddProject(ctx context.Context, p models.Project, categoryPath []models.Category, sourceLanguageID int64) (int64, error) {
	if err := notEmpty("slug", p.Slug); err != nil {
		return 0, err
	}
	if err := notEmpty("name", p.Name); err != nil {
		return 0, err
	}

	var parentCategoryID int64
	for _, category := range categoryPath {
		if err := notEmpty("category slug", category.Slug); err != nil {
			return 0, err
		}
		if err := notEmpty("category name", category.Name); err != nil {
			return 0, err
		}

		id, err := insertOrIgnore(ctx, l.db, "category", []field{
			{"slug", category.Slug},
			{"parent_id", parentCategoryID},
		}, []string{"slug", "parent_id"})
		if err != nil {
			return 0, err
		}
		parentCategoryID = id

		_, err = insertOrUpdate(ctx, l.db, "category_name", []field{
			{"source_language_id", sourceLanguageID},
			{"category_id", parentCategoryID},
			{"name", category.Name},
		}, []string{"source_language_id", "category_id"})
		if err != nil {
			return 0, err
		}
	}

	return insertOrUpdate(ctx, l.db, "project", []field{
		{"slug", p.Slug},
		{"name", p.Name},
		{"description", p.Description},
		{"icon", p.Icon},
		{"sort", p.Sort},
		{"chunks_url", p.ChunksURL},
		{"source_language_id", sourceLanguageID},
		{"category_id", parentCategoryID},
	}, []string{"slug", "source_language_id"})
}

// AddVersification inserts or updates a versification and its localized name
// for the given source language, returning the versification row id.
func (l *Library) AddVersification(ctx context.Context, v models.Versification, sourceLanguageID int64) (int64, error) {
	if err := notEmpty("slug", v.Slug); err != nil {
		return 0, err
	}
	if err := notEmpty("name", v.Name); err != nil {
		return 0, err
	}

	versificationID, err := insertOrIgnore(ctx, l.db, "versification", []field{
		{"slug", v.Slug},
	}, []string{"slug"})
	if err != nil {
		return 0, err
	}

	_, err = insertOrUpdate(ctx, l.db, "versification_name", []field{
		{"source_language_id", sourceLanguageID},
		{"versification_id", versificationID},
		{"name", v.Name},
	}, []string{"source_language_id", "versification_id"})
	if err != nil {
		return 0, err
	}
	return versificationID, nil
}

// AddChunkMarker inserts a chunk marker scoped to a project and versification.
func (l *Library) AddChunkMarker(ctx context.Context, marker models.ChunkMarker, projectSlug string, versificationID int64) (int64, error) {
	if err := notEmpty("chapter", marker.Chapter); err != nil {
		return 0, err
	}
	if err := notEmpty("verse", marker.Verse); err != nil {
		return 0, err
	}
	if err := notEmpty("project slug", projectSlug); err != nil {
		return 0, err
	}

	return insertOrIgnore(ctx, l.db, "chunk_marker", []field{
		{"chapter", marker.Chapter},
		{"verse", marker.Verse},
		{"project_slug", projectSlug},
		{"versification_id", versificationID},
	}, []string{"project_slug", "versification_id", "chapter", "verse"})
}

// AddCatalog inserts or updates a catalog feed descriptor.
func (l *Library) AddCatalog(ctx context.Context, c models.Catalog) (int64, error) {
	if err := notEmpty("slug", c.Slug); err != nil {
		return 0, err
	}
	if err := notEmpty("url", c.URL); err != nil {
		return 0, err
	}

	return insertOrUpdate(ctx, l.db, "catalog", []field{
		{"slug", c.Slug},
		{"url", c.URL},
		{"modified_at", c.ModifiedAt},
	}, []string{"slug"})
}

// AddResource inserts or updates a resource with its formats. A resource with
// no formats or missing mandatory status fields is rejected before any write.
func (l *Library) AddResource(ctx context.Context, r models.Resource, projectID int64) (int64, error) {
	if err := notEmpty("slug", r.Slug); err != nil {
		return 0, err
	}
	if err := notEmpty("name", r.Name); err != nil {
		return 0, err
	}
	if err := notEmpty("type", r.Type); err != nil {
		return 0, err
	}
	if err := notEmpty("translate mode", r.Status.TranslateMode); err != nil {
		return 0, err
	}
	if err := notEmpty("checking level", r.Status.CheckingLevel); err != nil {
		return 0, err
	}
	if err := notEmpty("version", r.Status.Version); err != nil {
		return 0, err
	}
	if len(r.Formats) == 0 {
		return 0, fmt.Errorf("resource %q has no formats: %w", r.Slug, common.ErrInvalidArgument)
	}
	for _, format := range r.Formats {
		if err := notEmpty("format mime type", format.MimeType); err != nil {
			return 0, err
		}
	}

	resourceID, err := insertOrUpdate(ctx, l.db, "resource", []field{
		{"slug", r.Slug},
		{"name", r.Name},
		{"type", r.Type},
		{"translate_mode", r.Status.TranslateMode},
		{"checking_level", r.Status.CheckingLevel},
		{"comments", r.Status.Comments},
		{"pub_date", r.Status.PubDate},
		{"license", r.Status.License},
		{"version", r.Status.Version},
		{"project_id", projectID},
	}, []string{"slug", "project_id"})
	if err != nil {
		return 0, err
	}

	for _, format := range r.Formats {
		_, err := insertOrUpdate(ctx, l.db, "resource_format", []field{
			{"package_version", format.PackageVersion},
			{"mime_type", format.MimeType},
			{"modified_at", format.ModifiedAt},
			{"url", format.URL},
			{"resource_id", resourceID},
		}, []string{"mime_type", "resource_id"})
		if err != nil {
			return 0, err
		}
	}

	if r.WordsAssignmentsURL != "" {
		_, err := insertOrUpdate(ctx, l.db, "legacy_resource_info", []field{
			{"translation_words_assignments_url", r.WordsAssignmentsURL},
			{"resource_id", resourceID},
		}, []string{"resource_id"})
		if err != nil {
			return 0, err
		}
	}

	return resourceID, nil
}

// AddQuestionnaire inserts or updates a new-language questionnaire.
func (l *Library) AddQuestionnaire(ctx context.Context, q models.Questionnaire) (int64, error) {
	if err := notEmpty("language slug", q.LanguageSlug); err != nil {
		return 0, err
	}
	if err := notEmpty("language name", q.LanguageName); err != nil {
		return 0, err
	}
	if err := notEmpty("language direction", q.LanguageDirection); err != nil {
		return 0, err
	}

	return insertOrUpdate(ctx, l.db, "questionnaire", []field{
		{"language_slug", q.LanguageSlug},
		{"language_name", q.LanguageName},
		{"language_direction", q.LanguageDirection},
		{"td_id", q.TDID},
	}, []string{"td_id", "language_slug"})
}

// AddQuestion inserts or updates a question belonging to a questionnaire.
func (l *Library) AddQuestion(ctx context.Context, q models.Question, questionnaireID int64) (int64, error) {
	if err := notEmpty("text", q.Text); err != nil {
		return 0, err
	}
	if err := notEmpty("input type", q.InputType); err != nil {
		return 0, err
	}

	required := 0
	if q.IsRequired {
		required = 1
	}
	return insertOrUpdate(ctx, l.db, "question", []field{
		{"text", q.Text},
		{"help", q.Help},
		{"is_required", required},
		{"input_type", q.InputType},
		{"sort", q.Sort},
		{"depends_on", q.DependsOn},
		{"td_id", q.TDID},
		{"questionnaire_id", questionnaireID},
	}, []string{"td_id", "questionnaire_id"})
}
