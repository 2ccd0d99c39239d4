package config

import (
	"flag"
	"os"

	"github.com/unfoldingword/door43client/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags:
//
//	-d string   path of the sqlite index database
//	-r string   directory for materialized resource containers
//	-u string   url of the primary catalog feed
//	-g string   host serving the global catalogs
//
// os.Args is filtered through flagx.FilterArgs so flags defined by other
// components pass through untouched.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-d", "-r", "-u", "-g"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "path of the sqlite index database")
	fs.StringVar(&cfg.ResourceDir, "r", cfg.ResourceDir, "directory for materialized resource containers")
	fs.StringVar(&cfg.RootCatalogURL, "u", cfg.RootCatalogURL, "url of the primary catalog feed")
	fs.StringVar(&cfg.GlobalCatalogHost, "g", cfg.GlobalCatalogHost, "host serving the global catalogs")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
