package index

import (
	"database/sql"

	"github.com/unfoldingword/door43client/internal/models"
)

// Row wrappers attach store identifiers (and convenience slugs) alongside the
// value records without leaking ids into the models themselves.

type SourceLanguageRow struct {
	ID int64
	models.SourceLanguage
}

type ProjectRow struct {
	ID int64
	// SourceLanguageSlug is filled when the query spans languages.
	SourceLanguageSlug string
	models.Project
}

type ResourceRow struct {
	ID int64
	models.Resource
}

type VersificationRow struct {
	ID int64
	models.Versification
}

type CatalogRow struct {
	ID int64
	models.Catalog
}

type QuestionnaireRow struct {
	ID int64
	models.Questionnaire
}

// tempTargetLanguage pairs a temp target language value with its approval
// link. A non-null approved slug means the row has been superseded.
type tempTargetLanguage struct {
	models.TargetLanguage
	approvedSlug sql.NullString
}

func (t tempTargetLanguage) superseded() bool {
	return t.approvedSlug.Valid
}
