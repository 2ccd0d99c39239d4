package config

import (
	"encoding/json"
	"os"

	"github.com/unfoldingword/door43client/internal/flagx"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Values are
// copied into the runtime Config after parsing.
type JsonConfig struct {
	DatabasePath      string `json:"database_path"`
	ResourceDir       string `json:"resource_dir"`
	RootCatalogURL    string `json:"root_catalog_url"`
	GlobalCatalogHost string `json:"global_catalog_host"`
}

// parseJson overlays cfg with values loaded from the JSON file named by the
// -c/-config flags. When no file is named the function is a no-op; a file
// that cannot be read or parsed is a startup failure and panics.
//
// Fields absent from the JSON keep their current values.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	var jc JsonConfig

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.DatabasePath != "" {
		cfg.DatabasePath = jc.DatabasePath
	}
	if jc.ResourceDir != "" {
		cfg.ResourceDir = jc.ResourceDir
	}
	if jc.RootCatalogURL != "" {
		cfg.RootCatalogURL = jc.RootCatalogURL
	}
	if jc.GlobalCatalogHost != "" {
		cfg.GlobalCatalogHost = jc.GlobalCatalogHost
	}
}
