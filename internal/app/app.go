// Package app wires the content client into a small command-line front end.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/unfoldingword/door43client"
	"github.com/unfoldingword/door43client/internal/config"
	"github.com/unfoldingword/door43client/internal/logging"
)

// App runs one client command per invocation.
type App struct {
	cfg *config.Config
	log logging.Logger
}

func NewApp(cfg *config.Config) (*App, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}
	log := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	return &App{cfg: cfg, log: log}, nil
}

// positionalArgs strips flags (and their values) from args, leaving the
// command words.
func positionalArgs(args []string) []string {
	positional := make([]string, 0, len(args))
	for i := 0; i < len(args); i++ {
		arg := args[i]
		if strings.HasPrefix(arg, "-") {
			if !strings.Contains(arg, "=") && i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
				i++
			}
			continue
		}
		positional = append(positional, arg)
	}
	return positional
}

const usage = `usage: door43 [flags] <command>

commands:
  sync                               index the primary catalog and global catalogs
  update-catalogs                    re-index the global catalogs only
  materialize <lang> <proj> <res>    write the container package for a resource
  download <lang> <proj> <res>       download the closed container archive
  import <dir>                       register an existing container package`

// Run executes the command named by the positional arguments.
func (a *App) Run(ctx context.Context) error {
	args := positionalArgs(os.Args[1:])
	if len(args) == 0 {
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("no command given")
	}

	client, err := door43client.New(ctx, a.cfg.DatabasePath, a.cfg.ResourceDir,
		door43client.WithLogger(a.log))
	if err != nil {
		return err
	}
	defer client.Close()

	progress := func(tag string, total, complete int) {
		a.log.Info(ctx, "progress", "item", tag, "total", total, "complete", complete)
	}

	switch cmd := args[0]; cmd {
	case "sync":
		if err := client.InjectGlobalCatalogs(ctx, a.cfg.GlobalCatalogHost); err != nil {
			return err
		}
		if err := client.UpdateSources(ctx, a.cfg.RootCatalogURL, progress); err != nil {
			return err
		}
		return client.UpdateAllCatalogs(ctx, progress)

	case "update-catalogs":
		if err := client.InjectGlobalCatalogs(ctx, a.cfg.GlobalCatalogHost); err != nil {
			return err
		}
		return client.UpdateAllCatalogs(ctx, progress)

	case "materialize":
		if len(args) != 4 {
			return fmt.Errorf("materialize needs <lang> <proj> <res>")
		}
		pkg, err := client.Materialize(ctx, args[1], args[2], args[3])
		if err != nil {
			return err
		}
		a.log.Info(ctx, "container materialized", "path", pkg.Path)
		return nil

	case "download":
		if len(args) != 4 {
			return fmt.Errorf("download needs <lang> <proj> <res>")
		}
		path, err := client.DownloadContainer(ctx, args[1], args[2], args[3], nil)
		if err != nil {
			return err
		}
		a.log.Info(ctx, "archive downloaded", "path", path)
		return nil

	case "import":
		if len(args) != 2 {
			return fmt.Errorf("import needs <dir>")
		}
		pkg, err := client.ImportContainer(ctx, args[1])
		if err != nil {
			return err
		}
		a.log.Info(ctx, "container imported", "slug", pkg.Props.Slug())
		return nil

	default:
		fmt.Fprintln(os.Stderr, usage)
		return fmt.Errorf("unknown command %q", cmd)
	}
}
