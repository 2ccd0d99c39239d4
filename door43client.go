// Package door43client is an offline-first client for translation content:
// it maintains a local relational index of remote catalog feeds and bridges
// indexed resources into resource container packages on disk.
//
// All catalog updates run inside a single database transaction, so an
// interrupted sync leaves the index exactly as it was.
package door43client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"

	"github.com/google/uuid"

	"github.com/unfoldingword/door43client/internal/catalog"
	"github.com/unfoldingword/door43client/internal/common"
	"github.com/unfoldingword/door43client/internal/dbx"
	"github.com/unfoldingword/door43client/internal/filex"
	"github.com/unfoldingword/door43client/internal/httpx"
	"github.com/unfoldingword/door43client/internal/index"
	"github.com/unfoldingword/door43client/internal/logging"
	"github.com/unfoldingword/door43client/internal/models"
	"github.com/unfoldingword/door43client/internal/rc"
)

// Package is an open resource container package.
type Package = rc.Package

// ProgressFunc receives coarse sync progress: a tag naming the item being
// processed, the total item count, and how many are complete.
type ProgressFunc func(tag string, total, complete int)

// DownloadProgressFunc receives byte-level download progress. total is -1
// when the server does not announce a content length.
type DownloadProgressFunc func(total, done int64)

// Client is the top-level handle over the local index and the resource
// container directory. It is safe for concurrent reads; writes (catalog
// updates, imports) serialize on the underlying database.
type Client struct {
	db          *sql.DB
	lib         *index.Library
	http        httpx.Getter
	store       rc.Store
	log         logging.Logger
	resourceDir string
}

// Option customizes a Client during New.
type Option func(*Client)

// WithGetter replaces the HTTP collaborator used for feeds and downloads.
func WithGetter(g httpx.Getter) Option {
	return func(c *Client) { c.http = g }
}

// WithStore replaces the package store used by the container bridge.
func WithStore(s rc.Store) Option {
	return func(c *Client) { c.store = s }
}

// WithLogger replaces the logger.
func WithLogger(l logging.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New opens (creating and migrating if needed) the index database at
// databasePath and prepares resourceDir for materialized containers.
func New(ctx context.Context, databasePath, resourceDir string, opts ...Option) (*Client, error) {
	dir, err := filex.EnsureDir(resourceDir)
	if err != nil {
		return nil, err
	}

	db, err := index.NewDB(ctx, databasePath)
	if err != nil {
		return nil, err
	}

	c := &Client{
		db:          db,
		lib:         index.NewLibrary(db),
		http:        httpx.NewClient(),
		store:       rc.NewDirStore(),
		log:         logging.NewSlogLogger(slog.Default()),
		resourceDir: dir,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Index returns the read interface over the local index.
func (c *Client) Index() *index.Library {
	return c.lib
}

// Close releases the underlying database.
func (c *Client) Close() error {
	return c.db.Close()
}

func (c *Client) syncer(tx dbx.DBTX) *catalog.Syncer {
	return catalog.NewSyncer(index.NewLibrary(tx), c.http, c.log)
}

// UpdateSources indexes the primary catalog at url and everything reachable
// from it. The whole update is atomic.
func (c *Client) UpdateSources(ctx context.Context, url string, progress ProgressFunc) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return c.syncer(tx).UpdateSources(ctx, url, catalog.ProgressFunc(progress))
	})
}

// InjectGlobalCatalogs registers the global catalog feeds in the index.
// An empty host selects the default public host.
func (c *Client) InjectGlobalCatalogs(ctx context.Context, host string) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return c.syncer(tx).InjectGlobalCatalogs(ctx, host)
	})
}

// UpdateCatalog indexes one global catalog by slug, atomically. Callers
// updating several catalogs must honor the order of GlobalCatalogSlugs;
// UpdateAllCatalogs does so.
func (c *Client) UpdateCatalog(ctx context.Context, slug string, progress ProgressFunc) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return c.syncer(tx).UpdateCatalog(ctx, slug, catalog.ProgressFunc(progress))
	})
}

// UpdateAllCatalogs indexes every global catalog in dependency order inside
// one transaction: either all catalogs land or none do.
func (c *Client) UpdateAllCatalogs(ctx context.Context, progress ProgressFunc) error {
	return dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		return c.syncer(tx).UpdateAllCatalogs(ctx, catalog.ProgressFunc(progress))
	})
}

// GlobalCatalogSlugs lists the global catalogs in required processing order.
func GlobalCatalogSlugs() []string {
	slugs := make([]string, len(catalog.GlobalCatalogSlugs))
	copy(slugs, catalog.GlobalCatalogSlugs)
	return slugs
}

// containerPath is the directory a materialized container lives in.
func (c *Client) containerPath(languageSlug, projectSlug, resourceSlug string) string {
	return filepath.Join(c.resourceDir, rc.MakeSlug(languageSlug, projectSlug, resourceSlug))
}

// containerFormat picks the first structured container format of a resource.
func containerFormat(formats []models.Format) *models.Format {
	for i := range formats {
		if rc.IsContainerMime(formats[i].MimeType) {
			return &formats[i]
		}
	}
	return nil
}

// resolveResource loads the identity records backing a container and the
// container format to use. An identity missing from the index surfaces as
// ErrUnknownResource.
func (c *Client) resolveResource(ctx context.Context, languageSlug, projectSlug, resourceSlug string) (*index.SourceLanguageRow, *index.ProjectRow, *index.ResourceRow, *models.Format, error) {
	lang, err := c.lib.GetSourceLanguage(ctx, languageSlug)
	if err != nil {
		return nil, nil, nil, nil, unknownIfMissing(err, languageSlug, projectSlug, resourceSlug)
	}
	proj, err := c.lib.GetProject(ctx, languageSlug, projectSlug)
	if err != nil {
		return nil, nil, nil, nil, unknownIfMissing(err, languageSlug, projectSlug, resourceSlug)
	}
	res, err := c.lib.GetResource(ctx, languageSlug, projectSlug, resourceSlug)
	if err != nil {
		return nil, nil, nil, nil, unknownIfMissing(err, languageSlug, projectSlug, resourceSlug)
	}

	format := containerFormat(res.Formats)
	if format == nil {
		return nil, nil, nil, nil, fmt.Errorf("resource %s/%s/%s: %w",
			languageSlug, projectSlug, resourceSlug, common.ErrMissingContainerFormat)
	}
	return lang, proj, res, format, nil
}

func unknownIfMissing(err error, languageSlug, projectSlug, resourceSlug string) error {
	if errors.Is(err, common.ErrNotFound) {
		return fmt.Errorf("resource %s/%s/%s: %w", languageSlug, projectSlug, resourceSlug, common.ErrUnknownResource)
	}
	return err
}

// Materialize writes (or refreshes) the container package for an indexed
// resource, producing its properties document from index records. When the
// resource carries a legacy words-assignment feed the assignments are fetched
// and embedded; a failure there degrades the package instead of failing it.
func (c *Client) Materialize(ctx context.Context, languageSlug, projectSlug, resourceSlug string) (*Package, error) {
	lang, proj, res, format, err := c.resolveResource(ctx, languageSlug, projectSlug, resourceSlug)
	if err != nil {
		return nil, err
	}

	props := &rc.Properties{
		PackageVersion: rc.ContainerVersion,
		ModifiedAt:     format.ModifiedAt,
		ContentMime:    format.MimeType,
		Language: rc.Language{
			Slug:      lang.Slug,
			Name:      lang.Name,
			Direction: lang.Direction,
		},
		Project: rc.Project{
			Slug:        proj.Slug,
			Name:        proj.Name,
			Description: proj.Description,
			Sort:        proj.Sort,
		},
		Resource: rc.Resource{
			Slug:   res.Slug,
			Name:   res.Name,
			Type:   res.Type,
			Status: containerStatus(res.Status),
		},
	}

	if res.WordsAssignmentsURL != "" {
		props.TWAssignments = c.fetchWordsAssignments(ctx, res.WordsAssignmentsURL, proj.Slug)
	}

	pkg, err := c.store.Open(c.containerPath(languageSlug, projectSlug, resourceSlug))
	if err != nil {
		return nil, err
	}
	if err := c.store.WriteProperties(pkg, props); err != nil {
		return nil, err
	}
	return pkg, nil
}

// fetchWordsAssignments retrieves and flattens a legacy words-assignment
// feed. Any failure is logged and yields nil: the container is still usable
// without word cross-references.
func (c *Client) fetchWordsAssignments(ctx context.Context, url, projectSlug string) map[string]map[string][]string {
	status, body, err := c.http.Get(ctx, url)
	if err != nil {
		c.log.Warn(ctx, "skipping words assignments", "url", url, "error", err)
		return nil
	}
	if status != http.StatusOK {
		c.log.Warn(ctx, "skipping words assignments", "url", url, "status", status)
		return nil
	}

	assignments, err := catalog.FlattenWordsAssignments(body, catalog.WordsProjectSlug(projectSlug))
	if err != nil {
		c.log.Warn(ctx, "skipping words assignments", "url", url, "error", err)
		return nil
	}
	return assignments
}

func containerStatus(s models.Status) rc.Status {
	status := rc.Status{
		TranslateMode: s.TranslateMode,
		CheckingLevel: s.CheckingLevel,
		Comments:      s.Comments,
		PubDate:       s.PubDate,
		License:       s.License,
		Version:       s.Version,
	}
	for _, st := range s.SourceTranslations {
		status.SourceTranslations = append(status.SourceTranslations, rc.SourceTranslation{
			LanguageSlug: st.LanguageSlug,
			ResourceSlug: st.ResourceSlug,
			Version:      st.Version,
		})
	}
	return status
}

// DownloadContainer fetches the closed container archive for an indexed
// resource into the resource directory and returns its path. The archive is
// staged under a hidden name and renamed into place only on success, so a
// failed download never leaves a partial archive behind.
func (c *Client) DownloadContainer(ctx context.Context, languageSlug, projectSlug, resourceSlug string, progress DownloadProgressFunc) (string, error) {
	_, _, _, format, err := c.resolveResource(ctx, languageSlug, projectSlug, resourceSlug)
	if err != nil {
		return "", err
	}

	dest := c.containerPath(languageSlug, projectSlug, resourceSlug) + "." + rc.FileExtension
	if err := filex.RemoveIfExists(dest); err != nil {
		return "", err
	}

	staging := filex.SiblingStaging(dest, uuid.NewString())
	status, err := c.http.Download(ctx, format.URL, staging, httpx.ProgressFunc(progress))
	if err != nil {
		_ = filex.RemoveIfExists(staging)
		return "", fmt.Errorf("%w: %v", common.ErrRemoteFetch, err)
	}
	if status != http.StatusOK {
		_ = filex.RemoveIfExists(staging)
		return "", fmt.Errorf("%w: %s returned status %d", common.ErrRemoteFetch, format.URL, status)
	}

	if err := os.Rename(staging, dest); err != nil {
		_ = filex.RemoveIfExists(staging)
		return "", fmt.Errorf("placing archive %s: %w", dest, err)
	}
	return dest, nil
}

// ImportContainer registers an existing container package (for example one
// received over a side channel) in the index. Packages for projects the index
// has never seen are rejected; everything the client knows about a project
// comes from catalog syncs, and an orphan row would never be updated.
func (c *Client) ImportContainer(ctx context.Context, dir string) (*Package, error) {
	pkg, err := c.store.Open(dir)
	if err != nil {
		return nil, err
	}

	props := pkg.Props
	if props.Language.Slug == "" || props.Project.Slug == "" || props.Resource.Slug == "" {
		return nil, fmt.Errorf("package at %s carries no identity: %w", dir, common.ErrInvalidArgument)
	}

	ok, err := c.lib.ProjectExists(ctx, props.Project.Slug)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, fmt.Errorf("unsupported project %q: %w", props.Project.Slug, common.ErrUnsupportedProject)
	}

	err = dbx.WithTx(ctx, c.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		lib := index.NewLibrary(tx)

		languageID, err := lib.AddSourceLanguage(ctx, models.SourceLanguage{
			Slug:      props.Language.Slug,
			Name:      props.Language.Name,
			Direction: props.Language.Direction,
		})
		if err != nil {
			return err
		}

		projectID, err := lib.AddProject(ctx, models.Project{
			Slug:        props.Project.Slug,
			Name:        props.Project.Name,
			Description: props.Project.Description,
			Sort:        props.Project.Sort,
		}, nil, languageID)
		if err != nil {
			return err
		}

		_, err = lib.AddResource(ctx, models.Resource{
			Slug:   props.Resource.Slug,
			Name:   props.Resource.Name,
			Type:   props.Resource.Type,
			Status: indexStatus(props.Resource.Status),
			Formats: []models.Format{{
				PackageVersion: props.PackageVersion,
				MimeType:       props.ContentMime,
				ModifiedAt:     props.ModifiedAt,
			}},
		}, projectID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return pkg, nil
}

func indexStatus(s rc.Status) models.Status {
	status := models.Status{
		TranslateMode: s.TranslateMode,
		CheckingLevel: s.CheckingLevel,
		Comments:      s.Comments,
		PubDate:       s.PubDate,
		License:       s.License,
		Version:       s.Version,
	}
	for _, st := range s.SourceTranslations {
		status.SourceTranslations = append(status.SourceTranslations, models.SourceTranslation{
			LanguageSlug: st.LanguageSlug,
			ResourceSlug: st.ResourceSlug,
			Version:      st.Version,
		})
	}
	return status
}

// ContainerExists reports whether a materialized container package is present
// on disk for the given identity.
func (c *Client) ContainerExists(languageSlug, projectSlug, resourceSlug string) bool {
	return filex.Exists(c.containerPath(languageSlug, projectSlug, resourceSlug))
}

// OpenContainer opens an already materialized container package.
func (c *Client) OpenContainer(languageSlug, projectSlug, resourceSlug string) (*Package, error) {
	path := c.containerPath(languageSlug, projectSlug, resourceSlug)
	if !filex.Exists(path) {
		return nil, fmt.Errorf("container %s: %w", rc.MakeSlug(languageSlug, projectSlug, resourceSlug), common.ErrNotFound)
	}
	return c.store.Open(path)
}

// CloseContainer releases an open container package.
func (c *Client) CloseContainer(pkg *Package) error {
	return c.store.Close(pkg)
}

// ContainerLastModified returns the modification time recorded on the
// container format of an indexed resource.
func (c *Client) ContainerLastModified(ctx context.Context, languageSlug, projectSlug, resourceSlug string) (int, error) {
	_, _, _, format, err := c.resolveResource(ctx, languageSlug, projectSlug, resourceSlug)
	if err != nil {
		return 0, err
	}
	return format.ModifiedAt, nil
}
