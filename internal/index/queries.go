package index

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"github.com/unfoldingword/door43client/internal/common"
	"github.com/unfoldingword/door43client/internal/models"
	"github.com/unfoldingword/door43client/internal/rc"
)

// GetSourceLanguage returns a source language by slug.
func (l *Library) GetSourceLanguage(ctx context.Context, slug string) (*SourceLanguageRow, error) {
	row := l.db.QueryRowContext(ctx,
		"SELECT id, slug, name, direction FROM source_language WHERE slug=? LIMIT 1", slug)

	var r SourceLanguageRow
	if err := row.Scan(&r.ID, &r.Slug, &r.Name, &r.Direction); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("source language %q: %w", slug, common.ErrNotFound)
		}
		return nil, fmt.Errorf("selecting source language: %w", err)
	}
	return &r, nil
}

// GetSourceLanguages returns every indexed source language ordered by slug.
func (l *Library) GetSourceLanguages(ctx context.Context) ([]SourceLanguageRow, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, slug, name, direction FROM source_language ORDER BY slug ASC")
	if err != nil {
		return nil, fmt.Errorf("selecting source languages: %w", err)
	}
	defer rows.Close()

	var result []SourceLanguageRow
	for rows.Next() {
		var r SourceLanguageRow
		if err := rows.Scan(&r.ID, &r.Slug, &r.Name, &r.Direction); err != nil {
			return nil, err
		}
		result = append(result, r)
	}
	return result, rows.Err()
}

func (l *Library) officialTargetLanguages(ctx context.Context) ([]models.TargetLanguage, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT slug, name, anglicized_name, direction, region, is_gateway_language FROM target_language")
	if err != nil {
		return nil, fmt.Errorf("selecting target languages: %w", err)
	}
	defer rows.Close()

	var result []models.TargetLanguage
	for rows.Next() {
		var lang models.TargetLanguage
		if err := rows.Scan(&lang.Slug, &lang.Name, &lang.AnglicizedName, &lang.Direction, &lang.Region, &lang.IsGatewayLanguage); err != nil {
			return nil, err
		}
		result = append(result, lang)
	}
	return result, rows.Err()
}

func (l *Library) tempTargetLanguages(ctx context.Context) ([]tempTargetLanguage, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT slug, name, anglicized_name, direction, region, is_gateway_language, approved_target_language_slug FROM temp_target_language")
	if err != nil {
		return nil, fmt.Errorf("selecting temp target languages: %w", err)
	}
	defer rows.Close()

	var result []tempTargetLanguage
	for rows.Next() {
		var lang tempTargetLanguage
		if err := rows.Scan(&lang.Slug, &lang.Name, &lang.AnglicizedName, &lang.Direction, &lang.Region, &lang.IsGatewayLanguage, &lang.approvedSlug); err != nil {
			return nil, err
		}
		result = append(result, lang)
	}
	return result, rows.Err()
}

// mergeTargetLanguages resolves the effective target language set: every
// official language plus every temp language that has not been superseded by
// an approval link. Sorted by slug.
func mergeTargetLanguages(official []models.TargetLanguage, temp []tempTargetLanguage) []models.TargetLanguage {
	merged := make([]models.TargetLanguage, 0, len(official)+len(temp))
	merged = append(merged, official...)
	for _, t := range temp {
		if !t.superseded() {
			merged = append(merged, t.TargetLanguage)
		}
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Slug < merged[j].Slug })
	return merged
}

// GetTargetLanguages returns the merged set of official and non-superseded
// temporary target languages.
func (l *Library) GetTargetLanguages(ctx context.Context) ([]models.TargetLanguage, error) {
	official, err := l.officialTargetLanguages(ctx)
	if err != nil {
		return nil, err
	}
	temp, err := l.tempTargetLanguages(ctx)
	if err != nil {
		return nil, err
	}
	return mergeTargetLanguages(official, temp), nil
}

// GetTargetLanguage returns one language from the merged target language set.
// A temp language that has been approved is no longer visible here.
func (l *Library) GetTargetLanguage(ctx context.Context, slug string) (*models.TargetLanguage, error) {
	langs, err := l.GetTargetLanguages(ctx)
	if err != nil {
		return nil, err
	}
	for i := range langs {
		if langs[i].Slug == slug {
			return &langs[i], nil
		}
	}
	return nil, fmt.Errorf("target language %q: %w", slug, common.ErrNotFound)
}

// GetApprovedTargetLanguage returns the official target language a temporary
// target language was linked to.
func (l *Library) GetApprovedTargetLanguage(ctx context.Context, tempSlug string) (*models.TargetLanguage, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT tl.slug, tl.name, tl.anglicized_name, tl.direction, tl.region, tl.is_gateway_language
		 FROM target_language AS tl
		 JOIN temp_target_language AS ttl ON ttl.approved_target_language_slug=tl.slug
		 WHERE ttl.slug=?`, tempSlug)

	var lang models.TargetLanguage
	if err := row.Scan(&lang.Slug, &lang.Name, &lang.AnglicizedName, &lang.Direction, &lang.Region, &lang.IsGatewayLanguage); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("approved target language for %q: %w", tempSlug, common.ErrNotFound)
		}
		return nil, fmt.Errorf("selecting approved target language: %w", err)
	}
	return &lang, nil
}

// GetProject returns a project in the given source language.
func (l *Library) GetProject(ctx context.Context, sourceLanguageSlug, projectSlug string) (*ProjectRow, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT id, slug, name, description, icon, sort, chunks_url FROM project
		 WHERE slug=? AND source_language_id IN (
		   SELECT id FROM source_language WHERE slug=?)
		 LIMIT 1`, projectSlug, sourceLanguageSlug)

	var p ProjectRow
	if err := row.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Icon, &p.Sort, &p.ChunksURL); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("project %q in %q: %w", projectSlug, sourceLanguageSlug, common.ErrNotFound)
		}
		return nil, fmt.Errorf("selecting project: %w", err)
	}
	p.SourceLanguageSlug = sourceLanguageSlug
	return &p, nil
}

// GetProjects returns the projects available in a source language, in sort order.
func (l *Library) GetProjects(ctx context.Context, sourceLanguageSlug string) ([]ProjectRow, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, slug, name, description, icon, sort, chunks_url FROM project
		 WHERE source_language_id IN (SELECT id FROM source_language WHERE slug=?)
		 ORDER BY sort ASC`, sourceLanguageSlug)
	if err != nil {
		return nil, fmt.Errorf("selecting projects: %w", err)
	}
	defer rows.Close()

	var result []ProjectRow
	for rows.Next() {
		var p ProjectRow
		if err := rows.Scan(&p.ID, &p.Slug, &p.Name, &p.Description, &p.Icon, &p.Sort, &p.ChunksURL); err != nil {
			return nil, err
		}
		p.SourceLanguageSlug = sourceLanguageSlug
		result = append(result, p)
	}
	return result, rows.Err()
}

// ProjectExists reports whether any source language carries a project with
// the given slug. Used to gate resource container imports.
func (l *Library) ProjectExists(ctx context.Context, projectSlug string) (bool, error) {
	var n int
	err := l.db.QueryRowContext(ctx,
		"SELECT count(id) FROM project WHERE slug=?", projectSlug).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("counting projects: %w", err)
	}
	return n > 0, nil
}

func (l *Library) resourceFormats(ctx context.Context, resourceID int64) ([]models.Format, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT package_version, mime_type, modified_at, url FROM resource_format WHERE resource_id=?", resourceID)
	if err != nil {
		return nil, fmt.Errorf("selecting resource formats: %w", err)
	}
	defer rows.Close()

	var formats []models.Format
	for rows.Next() {
		var f models.Format
		if err := rows.Scan(&f.PackageVersion, &f.MimeType, &f.ModifiedAt, &f.URL); err != nil {
			return nil, err
		}
		formats = append(formats, f)
	}
	return formats, rows.Err()
}

func scanResource(row *sql.Row) (*ResourceRow, error) {
	var r ResourceRow
	var words sql.NullString
	err := row.Scan(&r.ID, &r.Slug, &r.Name, &r.Type,
		&r.Status.TranslateMode, &r.Status.CheckingLevel, &r.Status.Comments,
		&r.Status.PubDate, &r.Status.License, &r.Status.Version, &words)
	if err != nil {
		return nil, err
	}
	r.WordsAssignmentsURL = words.String
	return &r, nil
}

// GetResource returns a resource with its formats and legacy words url.
func (l *Library) GetResource(ctx context.Context, sourceLanguageSlug, projectSlug, resourceSlug string) (*ResourceRow, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT r.id, r.slug, r.name, r.type, r.translate_mode, r.checking_level,
		        r.comments, r.pub_date, r.license, r.version,
		        lri.translation_words_assignments_url
		 FROM resource AS r
		 LEFT JOIN legacy_resource_info AS lri ON lri.resource_id=r.id
		 WHERE r.slug=? AND r.project_id IN (
		   SELECT id FROM project WHERE slug=? AND source_language_id IN (
		     SELECT id FROM source_language WHERE slug=?))
		 LIMIT 1`, resourceSlug, projectSlug, sourceLanguageSlug)

	r, err := scanResource(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("resource %s/%s/%s: %w", sourceLanguageSlug, projectSlug, resourceSlug, common.ErrNotFound)
		}
		return nil, fmt.Errorf("selecting resource: %w", err)
	}

	r.Formats, err = l.resourceFormats(ctx, r.ID)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// GetResources returns the resources of a project. When sourceLanguageSlug is
// empty the results span every language the project is available in.
func (l *Library) GetResources(ctx context.Context, sourceLanguageSlug, projectSlug string) ([]ResourceRow, error) {
	var rows *sql.Rows
	var err error
	if sourceLanguageSlug != "" {
		rows, err = l.db.QueryContext(ctx,
			`SELECT r.id, r.slug, r.name, r.type, r.translate_mode, r.checking_level,
			        r.comments, r.pub_date, r.license, r.version,
			        lri.translation_words_assignments_url
			 FROM resource AS r
			 LEFT JOIN legacy_resource_info AS lri ON lri.resource_id=r.id
			 WHERE r.project_id IN (
			   SELECT id FROM project WHERE slug=? AND source_language_id IN (
			     SELECT id FROM source_language WHERE slug=?))
			 ORDER BY r.slug ASC`, projectSlug, sourceLanguageSlug)
	} else {
		rows, err = l.db.QueryContext(ctx,
			`SELECT r.id, r.slug, r.name, r.type, r.translate_mode, r.checking_level,
			        r.comments, r.pub_date, r.license, r.version,
			        lri.translation_words_assignments_url
			 FROM resource AS r
			 LEFT JOIN legacy_resource_info AS lri ON lri.resource_id=r.id
			 LEFT JOIN project AS p ON p.id=r.project_id
			 WHERE p.slug=? ORDER BY r.slug ASC`, projectSlug)
	}
	if err != nil {
		return nil, fmt.Errorf("selecting resources: %w", err)
	}
	defer rows.Close()

	var result []ResourceRow
	for rows.Next() {
		var r ResourceRow
		var words sql.NullString
		if err := rows.Scan(&r.ID, &r.Slug, &r.Name, &r.Type,
			&r.Status.TranslateMode, &r.Status.CheckingLevel, &r.Status.Comments,
			&r.Status.PubDate, &r.Status.License, &r.Status.Version, &words); err != nil {
			return nil, err
		}
		r.WordsAssignmentsURL = words.String
		result = append(result, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i := range result {
		result[i].Formats, err = l.resourceFormats(ctx, result[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

// GetCatalog returns a catalog feed descriptor by slug.
func (l *Library) GetCatalog(ctx context.Context, slug string) (*CatalogRow, error) {
	row := l.db.QueryRowContext(ctx,
		"SELECT id, slug, url, modified_at FROM catalog WHERE slug=? LIMIT 1", slug)

	var c CatalogRow
	if err := row.Scan(&c.ID, &c.Slug, &c.URL, &c.ModifiedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("catalog %q: %w", slug, common.ErrNotFound)
		}
		return nil, fmt.Errorf("selecting catalog: %w", err)
	}
	return &c, nil
}

// GetCatalogs returns every registered catalog.
func (l *Library) GetCatalogs(ctx context.Context) ([]CatalogRow, error) {
	rows, err := l.db.QueryContext(ctx, "SELECT id, slug, url, modified_at FROM catalog")
	if err != nil {
		return nil, fmt.Errorf("selecting catalogs: %w", err)
	}
	defer rows.Close()

	var result []CatalogRow
	for rows.Next() {
		var c CatalogRow
		if err := rows.Scan(&c.ID, &c.Slug, &c.URL, &c.ModifiedAt); err != nil {
			return nil, err
		}
		result = append(result, c)
	}
	return result, rows.Err()
}

// GetVersification returns a versification with its name localized for the
// given source language.
func (l *Library) GetVersification(ctx context.Context, sourceLanguageSlug, versificationSlug string) (*VersificationRow, error) {
	row := l.db.QueryRowContext(ctx,
		`SELECT v.id, v.slug, vn.name FROM versification_name AS vn
		 JOIN versification AS v ON v.id=vn.versification_id
		 JOIN source_language AS sl ON sl.id=vn.source_language_id
		 WHERE sl.slug=? AND v.slug=?`, sourceLanguageSlug, versificationSlug)

	var v VersificationRow
	if err := row.Scan(&v.ID, &v.Slug, &v.Name); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("versification %q in %q: %w", versificationSlug, sourceLanguageSlug, common.ErrNotFound)
		}
		return nil, fmt.Errorf("selecting versification: %w", err)
	}
	return &v, nil
}

// GetVersifications returns the versifications localized for a source language.
func (l *Library) GetVersifications(ctx context.Context, sourceLanguageSlug string) ([]VersificationRow, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT v.id, v.slug, vn.name FROM versification_name AS vn
		 JOIN versification AS v ON v.id=vn.versification_id
		 JOIN source_language AS sl ON sl.id=vn.source_language_id
		 WHERE sl.slug=?`, sourceLanguageSlug)
	if err != nil {
		return nil, fmt.Errorf("selecting versifications: %w", err)
	}
	defer rows.Close()

	var result []VersificationRow
	for rows.Next() {
		var v VersificationRow
		if err := rows.Scan(&v.ID, &v.Slug, &v.Name); err != nil {
			return nil, err
		}
		result = append(result, v)
	}
	return result, rows.Err()
}

// GetChunkMarkers returns the chunk markers recorded for a project under a
// versification scheme.
func (l *Library) GetChunkMarkers(ctx context.Context, projectSlug, versificationSlug string) ([]models.ChunkMarker, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT cm.chapter, cm.verse FROM chunk_marker AS cm
		 JOIN versification AS v ON v.id=cm.versification_id
		 WHERE v.slug=? AND cm.project_slug=?`, versificationSlug, projectSlug)
	if err != nil {
		return nil, fmt.Errorf("selecting chunk markers: %w", err)
	}
	defer rows.Close()

	var result []models.ChunkMarker
	for rows.Next() {
		var m models.ChunkMarker
		if err := rows.Scan(&m.Chapter, &m.Verse); err != nil {
			return nil, err
		}
		result = append(result, m)
	}
	return result, rows.Err()
}

// GetQuestionnaires returns every indexed questionnaire.
func (l *Library) GetQuestionnaires(ctx context.Context) ([]QuestionnaireRow, error) {
	rows, err := l.db.QueryContext(ctx,
		"SELECT id, language_slug, language_name, language_direction, td_id FROM questionnaire")
	if err != nil {
		return nil, fmt.Errorf("selecting questionnaires: %w", err)
	}
	defer rows.Close()

	var result []QuestionnaireRow
	for rows.Next() {
		var q QuestionnaireRow
		if err := rows.Scan(&q.ID, &q.LanguageSlug, &q.LanguageName, &q.LanguageDirection, &q.TDID); err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	return result, rows.Err()
}

// GetQuestions returns the questions belonging to the questionnaire with the
// given translation-database id.
func (l *Library) GetQuestions(ctx context.Context, questionnaireTDID int64) ([]models.Question, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT q.text, q.help, q.is_required, q.input_type, q.sort, q.depends_on, q.td_id
		 FROM question AS q
		 JOIN questionnaire AS qn ON qn.id=q.questionnaire_id
		 WHERE qn.td_id=?
		 ORDER BY q.sort ASC`, questionnaireTDID)
	if err != nil {
		return nil, fmt.Errorf("selecting questions: %w", err)
	}
	defer rows.Close()

	var result []models.Question
	for rows.Next() {
		var q models.Question
		if err := rows.Scan(&q.Text, &q.Help, &q.IsRequired, &q.InputType, &q.Sort, &q.DependsOn, &q.TDID); err != nil {
			return nil, err
		}
		result = append(result, q)
	}
	return result, rows.Err()
}

// ListSourceLanguagesLastModified aggregates, per source language, the newest
// container-format modification time across the language's resources. Callers
// use this to decide whether a re-sync is worthwhile.
func (l *Library) ListSourceLanguagesLastModified(ctx context.Context) (map[string]int, error) {
	rows, err := l.db.QueryContext(ctx,
		`SELECT sl.slug, max(rf.modified_at) AS modified_at FROM resource_format AS rf
		 LEFT JOIN resource AS r ON r.id=rf.resource_id
		 LEFT JOIN project AS p ON p.id=r.project_id
		 LEFT JOIN source_language AS sl ON sl.id=p.source_language_id
		 WHERE rf.mime_type LIKE ?
		 GROUP BY sl.slug`, rc.BaseMimeType+"+%")
	if err != nil {
		return nil, fmt.Errorf("selecting language modification times: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var slug string
		var modifiedAt int
		if err := rows.Scan(&slug, &modifiedAt); err != nil {
			return nil, err
		}
		result[slug] = modifiedAt
	}
	return result, rows.Err()
}

// ListProjectsLastModified aggregates, per project, the newest container-format
// modification time. When languageSlug is empty the aggregation spans all
// languages.
func (l *Library) ListProjectsLastModified(ctx context.Context, languageSlug string) (map[string]int, error) {
	query := `SELECT p.slug, max(rf.modified_at) AS modified_at FROM resource_format AS rf
		 LEFT JOIN resource AS r ON r.id=rf.resource_id
		 LEFT JOIN project AS p ON p.id=r.project_id
		 LEFT JOIN source_language AS sl ON sl.id=p.source_language_id
		 WHERE rf.mime_type LIKE ?`
	args := []any{rc.BaseMimeType + "+%"}
	if languageSlug != "" {
		query += " AND sl.slug=?"
		args = append(args, languageSlug)
	}
	query += " GROUP BY p.slug"

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("selecting project modification times: %w", err)
	}
	defer rows.Close()

	result := make(map[string]int)
	for rows.Next() {
		var slug string
		var modifiedAt int
		if err := rows.Scan(&slug, &modifiedAt); err != nil {
			return nil, err
		}
		result[slug] = modifiedAt
	}
	return result, rows.Err()
}
