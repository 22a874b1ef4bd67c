// Package atlasconfig loads and validates Atlas's runtime configuration
// from environment variables and an optional config file via viper,
// and provides the fluent Validator the teacher's config package used
// for startup checks.
package atlasconfig

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// ServerConfig configures the HTTP transport.
type ServerConfig struct {
	Port            int
	BodyLimit       string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	AllowedOrigins  []string
	RateLimit       float64
}

// AuthConfig configures the optional API-key authenticator and HMAC
// signer.
type AuthConfig struct {
	APIKey        string
	AuthHeader    string
	HMACSecret    string
	HMACAlgorithm string
}

// StoreConfig configures the graph store's capacity limits.
type StoreConfig struct {
	MaxContexts              int
	MaxStatesPerContext      int
	MaxTransitionsPerContext int
}

// LogConfig configures atlaslog.
type LogConfig struct {
	Level string
	JSON  bool
}

// Config is Atlas's complete runtime configuration.
type Config struct {
	Server ServerConfig
	Auth   AuthConfig
	Store  StoreConfig
	Log    LogConfig
}

// Load reads configuration from environment variables (prefixed
// ATLAS_) and an optional config file named by configFile (empty to
// skip), applying defaults for anything unset, then validates the
// result.
func Load(configFile string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ATLAS")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("server.port", 8080)
	v.SetDefault("server.body_limit", "10M")
	v.SetDefault("server.read_timeout", 30*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.allowed_origins", []string{"*"})
	v.SetDefault("server.rate_limit", 0.0)

	v.SetDefault("auth.header", "X-API-Key")
	v.SetDefault("auth.hmac_algorithm", "sha256")

	v.SetDefault("store.max_contexts", 0)
	v.SetDefault("store.max_states_per_context", 0)
	v.SetDefault("store.max_transitions_per_context", 0)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.json", false)

	if configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("atlasconfig: reading config file: %w", err)
		}
	}

	cfg := Config{
		Server: ServerConfig{
			Port:            v.GetInt("server.port"),
			BodyLimit:       v.GetString("server.body_limit"),
			ReadTimeout:     v.GetDuration("server.read_timeout"),
			WriteTimeout:    v.GetDuration("server.write_timeout"),
			ShutdownTimeout: v.GetDuration("server.shutdown_timeout"),
			AllowedOrigins:  v.GetStringSlice("server.allowed_origins"),
			RateLimit:       v.GetFloat64("server.rate_limit"),
		},
		Auth: AuthConfig{
			APIKey:        v.GetString("auth.api_key"),
			AuthHeader:    v.GetString("auth.header"),
			HMACSecret:    v.GetString("auth.hmac_secret"),
			HMACAlgorithm: v.GetString("auth.hmac_algorithm"),
		},
		Store: StoreConfig{
			MaxContexts:              v.GetInt("store.max_contexts"),
			MaxStatesPerContext:      v.GetInt("store.max_states_per_context"),
			MaxTransitionsPerContext: v.GetInt("store.max_transitions_per_context"),
		},
		Log: LogConfig{
			Level: v.GetString("log.level"),
			JSON:  v.GetBool("log.json"),
		},
	}

	if err := validate(cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func validate(cfg Config) error {
	validator := NewValidator()
	validator.RequirePositiveInt("Server.Port", cfg.Server.Port)
	if cfg.Auth.APIKey != "" {
		validator.RequireString("Auth.AuthHeader", cfg.Auth.AuthHeader)
	}
	if cfg.Store.MaxContexts != 0 {
		validator.RequirePositiveInt("Store.MaxContexts", cfg.Store.MaxContexts)
	}
	if cfg.Store.MaxStatesPerContext != 0 {
		validator.RequirePositiveInt("Store.MaxStatesPerContext", cfg.Store.MaxStatesPerContext)
	}
	if cfg.Store.MaxTransitionsPerContext != 0 {
		validator.RequirePositiveInt("Store.MaxTransitionsPerContext", cfg.Store.MaxTransitionsPerContext)
	}
	return validator.Validate()
}

// Validator accumulates configuration validation failures so Load can
// report every problem at once instead of failing on the first.
type Validator struct {
	errors []string
}

// NewValidator returns an empty Validator.
func NewValidator() *Validator {
	return &Validator{}
}

// RequireString records an error if value is empty.
func (v *Validator) RequireString(field, value string) {
	if value == "" {
		v.errors = append(v.errors, fmt.Sprintf("%s is required", field))
	}
}

// RequirePositiveInt records an error if value is not positive.
func (v *Validator) RequirePositiveInt(field string, value int) {
	if value <= 0 {
		v.errors = append(v.errors, fmt.Sprintf("%s must be positive", field))
	}
}

// RequireOneOf records an error if value is not among allowed.
func (v *Validator) RequireOneOf(field, value string, allowed []string) {
	for _, option := range allowed {
		if value == option {
			return
		}
	}
	v.errors = append(v.errors, fmt.Sprintf("%s must be one of: %s", field, strings.Join(allowed, ", ")))
}

// IsValid reports whether no validation errors have been recorded.
func (v *Validator) IsValid() bool { return len(v.errors) == 0 }

// Errors returns every recorded validation error.
func (v *Validator) Errors() []string { return v.errors }

// Validate returns a single aggregate error if any validation failed.
func (v *Validator) Validate() error {
	if v.IsValid() {
		return nil
	}
	return fmt.Errorf("atlasconfig: invalid configuration: %s", strings.Join(v.errors, "; "))
}
