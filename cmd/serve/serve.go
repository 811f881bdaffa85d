// Package serve implements the HTTP server command.
package serve

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	api "github.com/tablevox/prefsel/internal/api/v2"
	"github.com/tablevox/prefsel/internal/classifier"
	"github.com/tablevox/prefsel/internal/conf"
	"github.com/tablevox/prefsel/internal/datastore"
	"github.com/tablevox/prefsel/internal/logging"
	"github.com/tablevox/prefsel/internal/observability"
	"github.com/tablevox/prefsel/internal/selection"
	"github.com/tablevox/prefsel/internal/vocabulary"
)

const shutdownTimeout = 10 * time.Second

// Command creates the serve command, which runs the selection engine as an
// HTTP service until interrupted.
func Command(settings *conf.Settings) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the selection engine HTTP server",
		Long:  "Open the datastore, seed the configured vocabularies and serve the selection API until interrupted.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return Run(settings)
		},
	}

	if err := setupFlags(cmd, settings); err != nil {
		fmt.Printf("error setting up flags: %v\n", err)
		os.Exit(1)
	}

	return cmd
}

func setupFlags(cmd *cobra.Command, settings *conf.Settings) error {
	cmd.Flags().StringVar(&settings.WebServer.Port, "port", viper.GetString("webserver.port"), "Port to listen on")
	cmd.Flags().StringVar(&settings.Classifier.Endpoint, "classifier-endpoint", viper.GetString("classifier.endpoint"), "Chat-completions endpoint for voice detection")
	cmd.Flags().StringVar(&settings.Classifier.Model, "classifier-model", viper.GetString("classifier.model"), "Model identifier for voice detection")

	if err := viper.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("error binding flags: %w", err)
	}

	return nil
}

// Run starts the engine and blocks until SIGINT or SIGTERM.
func Run(settings *conf.Settings) error {
	logger := logging.ForService("serve")

	if settings.Main.Log.Enabled {
		level := slog.LevelInfo
		if settings.Debug {
			level = slog.LevelDebug
		}
		fileLogger, closeLog, err := logging.NewFileLogger(
			settings.Main.Log.Path, settings.Main.Name, level,
			logging.FileConfig{
				MaxSizeMB:  settings.Main.Log.MaxSize,
				MaxBackups: settings.Main.Log.MaxBackups,
				MaxAgeDays: settings.Main.Log.MaxAge,
			})
		if err != nil {
			return fmt.Errorf("opening log file: %w", err)
		}
		defer closeLog() //nolint:errcheck // closing on the way out
		logger = fileLogger
	}

	store := datastore.New(settings)
	if err := store.Open(); err != nil {
		return fmt.Errorf("opening datastore: %w", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("closing datastore", "error", err)
		}
	}()

	registry := vocabulary.NewRegistry(store)
	ctx := context.Background()
	for domain, domainCfg := range settings.Domains {
		if err := registry.Seed(ctx, domain, domainCfg.Seed); err != nil {
			return fmt.Errorf("seeding vocabulary: %w", err)
		}
	}

	promRegistry := prometheus.NewRegistry()
	metrics, err := observability.NewMetrics(promRegistry)
	if err != nil {
		return fmt.Errorf("registering metrics: %w", err)
	}

	capability := classifier.NewOpenAIClassifier(settings.Classifier, nil)
	orchestrator := selection.NewOrchestrator(registry, capability, store, settings, metrics)

	controller := api.New(settings, orchestrator, promRegistry)

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server starting", "port", settings.WebServer.Port)
		errCh <- controller.Start()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return fmt.Errorf("server stopped: %w", err)
	case sig := <-quit:
		logger.Info("shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return controller.Shutdown(shutdownCtx)
}
