package catalog

import (
	"context"
	"database/sql"
	"net/http"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfoldingword/door43client/internal/common"
	"github.com/unfoldingword/door43client/internal/httpx"
	"github.com/unfoldingword/door43client/internal/index"
	"github.com/unfoldingword/door43client/internal/logging"
)

// fakeGetter serves canned responses by url. Unknown urls yield 404.
type fakeGetter struct {
	responses map[string]string
	errs      map[string]error
}

func (f *fakeGetter) Get(_ context.Context, url string) (int, []byte, error) {
	if err := f.errs[url]; err != nil {
		return 0, nil, err
	}
	body, ok := f.responses[url]
	if !ok {
		return http.StatusNotFound, nil, nil
	}
	return http.StatusOK, []byte(body), nil
}

func (f *fakeGetter) Download(ctx context.Context, url, dest string, _ httpx.ProgressFunc) (int, error) {
	status, body, err := f.Get(ctx, url)
	if err != nil || status != http.StatusOK {
		return status, err
	}
	return status, os.WriteFile(dest, body, 0o660)
}

// warnLogger counts warnings and discards everything else.
type warnLogger struct {
	warns int
}

func (l *warnLogger) Debug(context.Context, string, ...any) {}
func (l *warnLogger) Info(context.Context, string, ...any)  {}
func (l *warnLogger) Warn(context.Context, string, ...any)  { l.warns++ }
func (l *warnLogger) Error(context.Context, string, ...any) {}
func (l *warnLogger) With(...any) logging.Logger            { return l }

func newTestSyncer(t *testing.T, getter *fakeGetter) (*Syncer, *index.Library, *warnLogger, context.Context) {
	t.Helper()
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	require.NoError(t, index.Migrate(ctx, db))

	lib := index.NewLibrary(db)
	log := &warnLogger{}
	return NewSyncer(lib, getter, log), lib, log, ctx
}

func sourceFeeds() map[string]string {
	return map[string]string{
		"https://cat.example/catalog.json": `[
			{"slug":"gen","sort":1,"meta":["bible-ot"],"lang_catalog":"https://cat.example/gen/languages.json"}
		]`,
		"https://cat.example/gen/languages.json": `[
			{"language":{"slug":"en","name":"English","direction":"ltr"},
			 "project":{"name":"Genesis","desc":"The first book","meta":["Old Testament"]},
			 "res_catalog":"https://cat.example/gen/en/resources.json"}
		]`,
		"https://cat.example/gen/en/resources.json": `[
			{"slug":"ulb","name":"Unlocked Literal Bible",
			 "status":{"checking_level":"3","comments":"","license":"CC BY-SA 4.0","version":"4","publish_date":"2016"},
			 "source":"https://cat.example/gen/en/ulb/source.json","date_modified":10,
			 "tw_cat":"https://cat.example/gen/en/tw_cat.json",
			 "notes":"https://cat.example/gen/en/notes.json",
			 "checking_questions":"",
			 "terms":"https://cat.example/en/terms.json"}
		]`,
		"https://api.unfoldingword.org/bible/txt/1/gen/chunks.json": `[
			{"chp":"01","firstvs":"1"},{"chp":"01","firstvs":"3"}
		]`,
	}
}

func TestUpdateSources_IndexesCatalogTree(t *testing.T) {
	getter := &fakeGetter{responses: sourceFeeds()}
	syncer, lib, _, ctx := newTestSyncer(t, getter)

	var seen []string
	progress := func(tag string, total, complete int) { seen = append(seen, tag) }
	require.NoError(t, syncer.UpdateSources(ctx, "https://cat.example/catalog.json", progress))
	assert.Equal(t, []string{"gen"}, seen)

	lang, err := lib.GetSourceLanguage(ctx, "en")
	require.NoError(t, err)
	assert.Equal(t, "English", lang.Name)

	project, err := lib.GetProject(ctx, "en", "gen")
	require.NoError(t, err)
	assert.Equal(t, "Genesis", project.Name)
	assert.Equal(t, "https://api.unfoldingword.org/bible/txt/1/gen/chunks.json", project.ChunksURL)

	ulb, err := lib.GetResource(ctx, "en", "gen", "ulb")
	require.NoError(t, err)
	assert.Equal(t, "all", ulb.Status.TranslateMode)
	assert.Equal(t, "https://cat.example/gen/en/tw_cat.json", ulb.WordsAssignmentsURL)
	require.Len(t, ulb.Formats, 1)
	assert.Equal(t, 10, ulb.Formats[0].ModifiedAt)

	// The inline notes payload became its own resource.
	tn, err := lib.GetResource(ctx, "en", "gen", "tn")
	require.NoError(t, err)
	assert.Equal(t, "help", tn.Type)
	assert.Equal(t, "gl", tn.Status.TranslateMode)
	require.Len(t, tn.Formats, 1)
	assert.Equal(t, "https://cat.example/gen/en/notes.json", tn.Formats[0].URL)

	// The terms payload landed in the shared words project.
	words, err := lib.GetProject(ctx, "en", "bible")
	require.NoError(t, err)
	assert.Equal(t, 100, words.Sort)
	tw, err := lib.GetResource(ctx, "en", "bible", "tw")
	require.NoError(t, err)
	assert.Equal(t, "dict", tw.Type)

	markers, err := lib.GetChunkMarkers(ctx, "gen", defaultVersificationSlug)
	require.NoError(t, err)
	assert.Len(t, markers, 2)
}

func TestUpdateSources_FeedFailureIsFatal(t *testing.T) {
	feeds := sourceFeeds()
	delete(feeds, "https://cat.example/gen/en/resources.json")
	getter := &fakeGetter{responses: feeds}
	syncer, _, _, ctx := newTestSyncer(t, getter)

	err := syncer.UpdateSources(ctx, "https://cat.example/catalog.json", nil)
	assert.ErrorIs(t, err, common.ErrRemoteFetch)
}

func TestWordsProjectSlug(t *testing.T) {
	assert.Equal(t, "bible-obs", WordsProjectSlug("obs"))
	assert.Equal(t, "bible-obs", WordsProjectSlug("OBS"))
	assert.Equal(t, "bible", WordsProjectSlug("gen"))
}

func TestTranslateMode(t *testing.T) {
	assert.Equal(t, "all", translateMode("ulb"))
	assert.Equal(t, "all", translateMode("obs"))
	assert.Equal(t, "gl", translateMode("udb"))
}

func TestCategoryPath(t *testing.T) {
	path := categoryPath([]string{"bible-ot", "bible-law"}, []string{"Old Testament"})
	require.Len(t, path, 2)
	assert.Equal(t, "Old Testament", path[0].Name)
	// A missing localized name falls back to the slug.
	assert.Equal(t, "bible-law", path[1].Name)
}

func TestFlattenWordsAssignments(t *testing.T) {
	payload := `{"chapters":[
		{"id":"01","frames":[
			{"id":"01","items":[{"id":"god"},{"id":"create"}]},
			{"id":"03","items":[]}
		]}
	]}`

	assignments, err := FlattenWordsAssignments([]byte(payload), "bible")
	require.NoError(t, err)
	require.Contains(t, assignments, "01")
	assert.Equal(t, []string{"//bible/tw/god", "//bible/tw/create"}, assignments["01"]["01"])
	assert.Empty(t, assignments["01"]["03"])
}
