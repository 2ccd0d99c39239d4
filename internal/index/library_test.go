package index

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfoldingword/door43client/internal/common"
	"github.com/unfoldingword/door43client/internal/models"
	"github.com/unfoldingword/door43client/internal/rc"
)

func newTestLibrary(t *testing.T) (*Library, context.Context) {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, Migrate(ctx, db))
	return NewLibrary(db), ctx
}

func addEnglish(t *testing.T, lib *Library, ctx context.Context) int64 {
	t.Helper()
	id, err := lib.AddSourceLanguage(ctx, models.SourceLanguage{
		Slug: "en", Name: "English", Direction: "ltr",
	})
	require.NoError(t, err)
	return id
}

func bookResource(slug string, modifiedAt int) models.Resource {
	return models.Resource{
		Slug: slug,
		Name: slug,
		Type: "book",
		Status: models.Status{
			TranslateMode: "all",
			CheckingLevel: "3",
			Version:       "4",
			License:       "CC BY-SA 4.0",
		},
		Formats: []models.Format{{
			PackageVersion: rc.ContainerVersion,
			MimeType:       rc.MimeForType("book"),
			ModifiedAt:     modifiedAt,
			URL:            "https://example.com/" + slug,
		}},
	}
}

func TestAddSourceLanguage_Idempotent(t *testing.T) {
	lib, ctx := newTestLibrary(t)

	first, err := lib.AddSourceLanguage(ctx, models.SourceLanguage{Slug: "en", Name: "English", Direction: "ltr"})
	require.NoError(t, err)

	second, err := lib.AddSourceLanguage(ctx, models.SourceLanguage{Slug: "en", Name: "American English", Direction: "ltr"})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := lib.GetSourceLanguage(ctx, "en")
	require.NoError(t, err)
	assert.Equal(t, "American English", got.Name)
}

func TestAddSourceLanguage_Validation(t *testing.T) {
	lib, ctx := newTestLibrary(t)

	_, err := lib.AddSourceLanguage(ctx, models.SourceLanguage{Slug: "", Name: "English", Direction: "ltr"})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	_, err = lib.AddSourceLanguage(ctx, models.SourceLanguage{Slug: "en", Name: " ", Direction: "ltr"})
	assert.ErrorIs(t, err, common.ErrInvalidArgument)
}

func TestGetSourceLanguage_NotFound(t *testing.T) {
	lib, ctx := newTestLibrary(t)

	_, err := lib.GetSourceLanguage(ctx, "xx")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestTargetLanguages_MergeAndApproval(t *testing.T) {
	lib, ctx := newTestLibrary(t)

	require.NoError(t, lib.AddTargetLanguage(ctx, models.TargetLanguage{
		Slug: "de", Name: "Deutsch", Direction: "ltr", IsGatewayLanguage: true,
	}))
	require.NoError(t, lib.AddTempTargetLanguage(ctx, models.TargetLanguage{
		Slug: "qaa-x-demo", Name: "Demo", Direction: "ltr",
	}))

	langs, err := lib.GetTargetLanguages(ctx)
	require.NoError(t, err)
	require.Len(t, langs, 2)
	assert.Equal(t, "de", langs[0].Slug)
	assert.Equal(t, "qaa-x-demo", langs[1].Slug)

	temp, err := lib.GetTargetLanguage(ctx, "qaa-x-demo")
	require.NoError(t, err)
	assert.Equal(t, "Demo", temp.Name)

	ok, err := lib.SetApprovedTargetLanguage(ctx, "qaa-x-demo", "de")
	require.NoError(t, err)
	assert.True(t, ok)

	// A superseded temp language disappears from the merged set.
	langs, err = lib.GetTargetLanguages(ctx)
	require.NoError(t, err)
	require.Len(t, langs, 1)
	assert.Equal(t, "de", langs[0].Slug)

	_, err = lib.GetTargetLanguage(ctx, "qaa-x-demo")
	assert.ErrorIs(t, err, common.ErrNotFound)

	approved, err := lib.GetApprovedTargetLanguage(ctx, "qaa-x-demo")
	require.NoError(t, err)
	assert.Equal(t, "de", approved.Slug)
	assert.True(t, approved.IsGatewayLanguage)
}

func TestSetApprovedTargetLanguage_MissingTempRow(t *testing.T) {
	lib, ctx := newTestLibrary(t)

	ok, err := lib.SetApprovedTargetLanguage(ctx, "qaa-x-none", "de")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestAddProject_CategoryWalk(t *testing.T) {
	lib, ctx := newTestLibrary(t)
	languageID := addEnglish(t, lib, ctx)

	path := []models.Category{{Slug: "bible-ot", Name: "Old Testament"}}
	first, err := lib.AddProject(ctx, models.Project{
		Slug: "gen", Name: "Genesis", Sort: 1,
	}, path, languageID)
	require.NoError(t, err)

	// Re-adding the same project with a re-localized category name keeps ids.
	path[0].Name = "Ancien Testament"
	second, err := lib.AddProject(ctx, models.Project{
		Slug: "gen", Name: "Genèse", Sort: 1,
	}, path, languageID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := lib.GetProject(ctx, "en", "gen")
	require.NoError(t, err)
	assert.Equal(t, "Genèse", got.Name)

	// The same slug under another source language is a distinct row.
	frID, err := lib.AddSourceLanguage(ctx, models.SourceLanguage{Slug: "fr", Name: "Français", Direction: "ltr"})
	require.NoError(t, err)
	third, err := lib.AddProject(ctx, models.Project{Slug: "gen", Name: "Genèse", Sort: 1}, nil, frID)
	require.NoError(t, err)
	assert.NotEqual(t, first, third)

	exists, err := lib.ProjectExists(ctx, "gen")
	require.NoError(t, err)
	assert.True(t, exists)

	exists, err = lib.ProjectExists(ctx, "zzz")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestGetProjects_SortOrder(t *testing.T) {
	lib, ctx := newTestLibrary(t)
	languageID := addEnglish(t, lib, ctx)

	_, err := lib.AddProject(ctx, models.Project{Slug: "exo", Name: "Exodus", Sort: 2}, nil, languageID)
	require.NoError(t, err)
	_, err = lib.AddProject(ctx, models.Project{Slug: "gen", Name: "Genesis", Sort: 1}, nil, languageID)
	require.NoError(t, err)

	projects, err := lib.GetProjects(ctx, "en")
	require.NoError(t, err)
	require.Len(t, projects, 2)
	assert.Equal(t, "gen", projects[0].Slug)
	assert.Equal(t, "exo", projects[1].Slug)
}

func TestVersificationAndChunkMarkers(t *testing.T) {
	lib, ctx := newTestLibrary(t)
	languageID := addEnglish(t, lib, ctx)

	first, err := lib.AddVersification(ctx, models.Versification{Slug: "en-US", Name: "American English"}, languageID)
	require.NoError(t, err)
	second, err := lib.AddVersification(ctx, models.Versification{Slug: "en-US", Name: "American English"}, languageID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	v, err := lib.GetVersification(ctx, "en", "en-US")
	require.NoError(t, err)
	assert.Equal(t, first, v.ID)

	marker := models.ChunkMarker{Chapter: "01", Verse: "1"}
	_, err = lib.AddChunkMarker(ctx, marker, "gen", v.ID)
	require.NoError(t, err)
	_, err = lib.AddChunkMarker(ctx, marker, "gen", v.ID)
	require.NoError(t, err)

	markers, err := lib.GetChunkMarkers(ctx, "gen", "en-US")
	require.NoError(t, err)
	require.Len(t, markers, 1)
	assert.Equal(t, "01", markers[0].Chapter)
	assert.Equal(t, "1", markers[0].Verse)
}

func TestAddResource_RejectsIncompleteResources(t *testing.T) {
	lib, ctx := newTestLibrary(t)
	languageID := addEnglish(t, lib, ctx)
	projectID, err := lib.AddProject(ctx, models.Project{Slug: "gen", Name: "Genesis", Sort: 1}, nil, languageID)
	require.NoError(t, err)

	noFormats := bookResource("ulb", 10)
	noFormats.Formats = nil
	_, err = lib.AddResource(ctx, noFormats, projectID)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	noCheckingLevel := bookResource("ulb", 10)
	noCheckingLevel.Status.CheckingLevel = ""
	_, err = lib.AddResource(ctx, noCheckingLevel, projectID)
	assert.ErrorIs(t, err, common.ErrInvalidArgument)

	// Nothing was persisted by the rejected calls.
	resources, err := lib.GetResources(ctx, "en", "gen")
	require.NoError(t, err)
	assert.Empty(t, resources)
}

func TestAddResource_RoundTrip(t *testing.T) {
	lib, ctx := newTestLibrary(t)
	languageID := addEnglish(t, lib, ctx)
	projectID, err := lib.AddProject(ctx, models.Project{Slug: "gen", Name: "Genesis", Sort: 1}, nil, languageID)
	require.NoError(t, err)

	res := bookResource("ulb", 10)
	res.WordsAssignmentsURL = "https://example.com/tw_cat.json"
	first, err := lib.AddResource(ctx, res, projectID)
	require.NoError(t, err)

	got, err := lib.GetResource(ctx, "en", "gen", "ulb")
	require.NoError(t, err)
	assert.Equal(t, "all", got.Status.TranslateMode)
	assert.Equal(t, "3", got.Status.CheckingLevel)
	assert.Equal(t, "https://example.com/tw_cat.json", got.WordsAssignmentsURL)
	require.Len(t, got.Formats, 1)
	assert.Equal(t, 10, got.Formats[0].ModifiedAt)

	// A re-sync with a newer format keeps the row id and bumps the format.
	res.Formats[0].ModifiedAt = 20
	second, err := lib.AddResource(ctx, res, projectID)
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err = lib.GetResource(ctx, "en", "gen", "ulb")
	require.NoError(t, err)
	require.Len(t, got.Formats, 1)
	assert.Equal(t, 20, got.Formats[0].ModifiedAt)
}

func TestGetResource_NotFound(t *testing.T) {
	lib, ctx := newTestLibrary(t)

	_, err := lib.GetResource(ctx, "en", "gen", "ulb")
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestListLastModified(t *testing.T) {
	lib, ctx := newTestLibrary(t)
	languageID := addEnglish(t, lib, ctx)
	projectID, err := lib.AddProject(ctx, models.Project{Slug: "gen", Name: "Genesis", Sort: 1}, nil, languageID)
	require.NoError(t, err)

	_, err = lib.AddResource(ctx, bookResource("ulb", 10), projectID)
	require.NoError(t, err)
	_, err = lib.AddResource(ctx, bookResource("udb", 30), projectID)
	require.NoError(t, err)

	// A non-container format must not contribute to the aggregation.
	pdf := bookResource("pdf", 99)
	pdf.Formats[0].MimeType = "application/pdf"
	_, err = lib.AddResource(ctx, pdf, projectID)
	require.NoError(t, err)

	byLanguage, err := lib.ListSourceLanguagesLastModified(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"en": 30}, byLanguage)

	byProject, err := lib.ListProjectsLastModified(ctx, "en")
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"gen": 30}, byProject)
}

func TestCatalogs(t *testing.T) {
	lib, ctx := newTestLibrary(t)

	first, err := lib.AddCatalog(ctx, models.Catalog{Slug: "langnames", URL: "https://example.com/langnames.json"})
	require.NoError(t, err)

	second, err := lib.AddCatalog(ctx, models.Catalog{Slug: "langnames", URL: "https://example.com/langnames.json", ModifiedAt: 42})
	require.NoError(t, err)
	assert.Equal(t, first, second)

	got, err := lib.GetCatalog(ctx, "langnames")
	require.NoError(t, err)
	assert.Equal(t, 42, got.ModifiedAt)

	all, err := lib.GetCatalogs(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestQuestionnaires(t *testing.T) {
	lib, ctx := newTestLibrary(t)

	questionnaireID, err := lib.AddQuestionnaire(ctx, models.Questionnaire{
		LanguageSlug: "en", LanguageName: "English", LanguageDirection: "ltr", TDID: 7,
	})
	require.NoError(t, err)

	_, err = lib.AddQuestion(ctx, models.Question{
		Text: "Second", InputType: "string", Sort: 2, TDID: 21,
	}, questionnaireID)
	require.NoError(t, err)
	_, err = lib.AddQuestion(ctx, models.Question{
		Text: "First", InputType: "string", Sort: 1, IsRequired: true, TDID: 20,
	}, questionnaireID)
	require.NoError(t, err)

	questionnaires, err := lib.GetQuestionnaires(ctx)
	require.NoError(t, err)
	require.Len(t, questionnaires, 1)
	assert.Equal(t, int64(7), questionnaires[0].TDID)

	questions, err := lib.GetQuestions(ctx, 7)
	require.NoError(t, err)
	require.Len(t, questions, 2)
	assert.Equal(t, "First", questions[0].Text)
	assert.True(t, questions[0].IsRequired)
	assert.Equal(t, "Second", questions[1].Text)
}
