// Package cli wires Atlas's command-line entry point: configuration
// loading, store construction, HTTP server startup, and graceful
// shutdown on SIGINT/SIGTERM.
package cli

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"atlasgraph.dev/atlas/apiserver"
	"atlasgraph.dev/atlas/atlaslog"
	"atlasgraph.dev/atlas/graphstore"
	"atlasgraph.dev/atlas/ingest"
	"atlasgraph.dev/atlas/ontology"
	"atlasgraph.dev/atlas/query"
	"atlasgraph.dev/atlas/workflowstore"
)

// cfgFile holds the path to the configuration file specified via
// --config. Empty means rely on defaults and ATLAS_-prefixed
// environment variables alone.
var cfgFile string

// RootCmd is Atlas's top-level CLI command. It starts the HTTP server
// and blocks until an interrupt or termination signal arrives.
var RootCmd = &cobra.Command{
	Use:   "atlasd",
	Short: "serves the Atlas UI interaction graph API",
	Long: `atlasd stores and serves UI interaction graphs: states, the
transitions between them, and the workflows composed from those
transitions, partitioned by application context.`,
	RunE: runServer,
}

func init() {
	RootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file path (YAML/JSON/TOML)")
	RootCmd.PersistentFlags().Int("port", 0, "HTTP server port (overrides ATLAS_SERVER_PORT)")
	RootCmd.PersistentFlags().String("api-key", "", "required API key for write/read access (overrides ATLAS_AUTH_API_KEY)")
	RootCmd.PersistentFlags().String("log-level", "", "log level: debug|info|warn|error (overrides ATLAS_LOG_LEVEL)")

	viper.BindPFlag("server.port", RootCmd.PersistentFlags().Lookup("port"))
	viper.BindPFlag("auth.api_key", RootCmd.PersistentFlags().Lookup("api-key"))
	viper.BindPFlag("log.level", RootCmd.PersistentFlags().Lookup("log-level"))
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	logger := atlaslog.New(atlaslog.Config{Level: cfg.Log.Level, JSON: cfg.Log.JSON})
	log := atlaslog.WithService(logger, "atlasd")

	// Built-in terms/intents are a fixed vocabulary seeded once, at
	// process startup, mirroring atlas.schema.ontology's module-level
	// registration in the original implementation.
	terms := ontology.NewTermRegistry()
	terms.MustRegisterBuiltins()
	intents := ontology.NewIntentRegistry()
	intents.MustRegisterBuiltins()
	log.WithField("terms", len(terms.List())).WithField("intents", len(intents.List())).Info("ontology built-ins registered")

	store := graphstore.New(graphstore.Limits{
		MaxContexts:              cfg.Store.MaxContexts,
		MaxStatesPerContext:      cfg.Store.MaxStatesPerContext,
		MaxTransitionsPerContext: cfg.Store.MaxTransitionsPerContext,
	})
	ingestor := ingest.New(store, log)
	querier := query.New(store)
	workflows := workflowstore.New(store)

	srvCfg := apiserver.Config{
		Port:            cfg.Server.Port,
		BodyLimit:       cfg.Server.BodyLimit,
		ReadTimeout:     cfg.Server.ReadTimeout,
		WriteTimeout:    cfg.Server.WriteTimeout,
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
		AllowedOrigins:  cfg.Server.AllowedOrigins,
		RateLimit:       cfg.Server.RateLimit,
		APIKey:          cfg.Auth.APIKey,
		AuthHeader:      cfg.Auth.AuthHeader,
	}
	server := apiserver.New(srvCfg, ingestor, querier, workflows, log)

	errCh := make(chan error, 1)
	go func() {
		log.WithField("port", cfg.Server.Port).Info("starting server")
		if startErr := server.Start(); startErr != nil {
			errCh <- startErr
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-quit:
	}

	log.Info("shutting down")
	if err := server.Shutdown(); err != nil {
		return err
	}
	return nil
}
