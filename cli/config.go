package cli

import (
	"atlasgraph.dev/atlas/atlasconfig"
	"github.com/spf13/viper"
)

// loadConfig resolves cfgFile (set via --config) and viper's bound
// flags/environment into an atlasconfig.Config. Flags bound in init()
// take precedence over ATLAS_-prefixed environment variables, which in
// turn take precedence over file and built-in defaults.
func loadConfig() (atlasconfig.Config, error) {
	cfg, err := atlasconfig.Load(cfgFile)
	if err != nil {
		return atlasconfig.Config{}, err
	}

	if port := viper.GetInt("server.port"); port != 0 {
		cfg.Server.Port = port
	}
	if apiKey := viper.GetString("auth.api_key"); apiKey != "" {
		cfg.Auth.APIKey = apiKey
	}
	if level := viper.GetString("log.level"); level != "" {
		cfg.Log.Level = level
	}
	return cfg, nil
}
