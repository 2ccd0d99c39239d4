package index

import (
	"context"
	"regexp"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/unfoldingword/door43client/internal/common"
)

func TestInsertOrUpdate_InsertsNewRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT OR IGNORE INTO source_language (slug, name, direction) VALUES (?, ?, ?)")).
		WithArgs("en", "English", "ltr").
		WillReturnResult(sqlmock.NewResult(5, 1))

	id, err := insertOrUpdate(context.Background(), db, "source_language", []field{
		{"slug", "en"}, {"name", "English"}, {"direction", "ltr"},
	}, []string{"slug"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOrUpdate_UpdatesExistingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT OR IGNORE INTO source_language (slug, name, direction) VALUES (?, ?, ?)")).
		WithArgs("en", "English", "ltr").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE source_language SET name=?, direction=? WHERE slug=?")).
		WithArgs("English", "ltr", "en").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id FROM source_language WHERE slug=?")).
		WithArgs("en").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(5))

	id, err := insertOrUpdate(context.Background(), db, "source_language", []field{
		{"slug", "en"}, {"name", "English"}, {"direction", "ltr"},
	}, []string{"slug"})
	require.NoError(t, err)
	assert.Equal(t, int64(5), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOrUpdate_ZeroRowUpdateIsInvariantViolation(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	// The insert reports a conflict but the follow-up update matches nothing:
	// the declared unique columns disagree with the schema.
	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT OR IGNORE INTO source_language (slug, name, direction) VALUES (?, ?, ?)")).
		WithArgs("en", "English", "ltr").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(regexp.QuoteMeta(
		"UPDATE source_language SET name=?, direction=? WHERE slug=?")).
		WithArgs("English", "ltr", "en").
		WillReturnResult(sqlmock.NewResult(0, 0))

	_, err = insertOrUpdate(context.Background(), db, "source_language", []field{
		{"slug", "en"}, {"name", "English"}, {"direction", "ltr"},
	}, []string{"slug"})
	assert.ErrorIs(t, err, common.ErrStoreInvariant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOrIgnore_ResolvesExistingRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT OR IGNORE INTO category (slug, parent_id) VALUES (?, ?)")).
		WithArgs("bible-ot", int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id FROM category WHERE slug=? AND parent_id=?")).
		WithArgs("bible-ot", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(3))

	id, err := insertOrIgnore(context.Background(), db, "category", []field{
		{"slug", "bible-ot"}, {"parent_id", int64(0)},
	}, []string{"slug", "parent_id"})
	require.NoError(t, err)
	assert.Equal(t, int64(3), id)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestInsertOrIgnore_MissingRowAfterConflict(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(regexp.QuoteMeta(
		"INSERT OR IGNORE INTO category (slug, parent_id) VALUES (?, ?)")).
		WithArgs("bible-ot", int64(0)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectQuery(regexp.QuoteMeta(
		"SELECT id FROM category WHERE slug=? AND parent_id=?")).
		WithArgs("bible-ot", int64(0)).
		WillReturnRows(sqlmock.NewRows([]string{"id"}))

	_, err = insertOrIgnore(context.Background(), db, "category", []field{
		{"slug", "bible-ot"}, {"parent_id", int64(0)},
	}, []string{"slug", "parent_id"})
	assert.ErrorIs(t, err, common.ErrStoreInvariant)
	assert.NoError(t, mock.ExpectationsWereMet())
}
