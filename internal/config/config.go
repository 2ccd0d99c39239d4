// Package config resolves runtime settings for the content client from
// defaults, an optional JSON file, and command-line flags, in that order.
package config

// Config holds runtime settings for the content client.
//
// Fields:
//   - DatabasePath: filesystem path of the sqlite index.
//   - ResourceDir: directory holding materialized resource containers.
//   - RootCatalogURL: url of the primary catalog feed.
//   - GlobalCatalogHost: host serving the global catalogs (langnames etc).
type Config struct {
	DatabasePath      string
	ResourceDir       string
	RootCatalogURL    string
	GlobalCatalogHost string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.DatabasePath = "index.sqlite"
	c.ResourceDir = "resource_containers"
	c.RootCatalogURL = "https://api.unfoldingword.org/ts/txt/2/catalog.json"
	c.GlobalCatalogHost = "https://td.unfoldingword.org"
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
