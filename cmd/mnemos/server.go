package mnemos

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	mnemosclient "github.com/mnemos-ai/mnemos"
	"github.com/mnemos-ai/mnemos/pkg/config"
	"github.com/mnemos-ai/mnemos/pkg/logger"
	"github.com/mnemos-ai/mnemos/pkg/server"
	"github.com/mnemos-ai/mnemos/pkg/telemetry"
)

var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the Mnemos HTTP server",
	Long: `Start the Mnemos HTTP server to provide REST API access to the
knowledge store.

The server provides endpoints for:
- Recording and updating knowledge nodes
- Linking nodes with typed edges
- Hybrid semantic queries and subgraph retrieval
- Conflict and orphan review
- Health checks`,
	RunE: runServer,
}

func init() {
	rootCmd.AddCommand(serverCmd)

	serverCmd.Flags().String("host", "localhost", "Server host")
	serverCmd.Flags().Int("port", 8080, "Server port")
	serverCmd.Flags().String("mode", "release", "Server mode (debug, release, test)")

	serverCmd.Flags().String("store-driver", "badger", "Graph store driver (badger, neo4j)")
	serverCmd.Flags().String("store-path", "", "Badger data directory")
	serverCmd.Flags().String("store-uri", "", "Neo4j bolt URI")

	serverCmd.Flags().String("vector-driver", "memory", "Vector index driver (memory, weaviate)")
	serverCmd.Flags().String("vector-host", "", "Weaviate host")

	serverCmd.Flags().String("embedding-provider", "openai", "Embedding provider (openai, hash)")
	serverCmd.Flags().String("embedding-model", "text-embedding-3-small", "Embedding model")
	serverCmd.Flags().String("embedding-api-key", "", "Embedding API key")
	serverCmd.Flags().String("embedding-base-url", "", "Embedding base URL")

	serverCmd.Flags().String("telemetry-parquet-path", "", "Directory for error telemetry parquet files")
}

func runServer(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	overrideConfigWithFlags(cmd, cfg)

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("invalid port: %d", cfg.Server.Port)
	}

	log := buildLogger(cfg)

	client, err := mnemosclient.Open(cmd.Context(), cfg, log)
	if err != nil {
		return fmt.Errorf("failed to initialize mnemos: %w", err)
	}
	defer client.Close()

	srv := server.New(cfg, client, log)
	srv.Setup()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	serverErrChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil {
			serverErrChan <- err
		}
	}()

	select {
	case err := <-serverErrChan:
		return fmt.Errorf("server error: %w", err)
	case sig := <-sigChan:
		log.Info("received signal, shutting down", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Stop(shutdownCtx); err != nil {
			return fmt.Errorf("server shutdown error: %w", err)
		}
		log.Info("server stopped gracefully")
		return nil
	}
}

// buildLogger assembles the configured logger, wrapping it with the
// Parquet error-telemetry handler when a path is configured.
func buildLogger(cfg *config.Config) *slog.Logger {
	log := logger.New(cfg.Log.Level, cfg.Log.Format)
	if cfg.Telemetry.ParquetPath == "" {
		return log
	}
	handler, err := telemetry.NewParquetHandler(log.Handler(), cfg.Telemetry.ParquetPath)
	if err != nil {
		log.Warn("failed to initialize error telemetry", "error", err)
		return log
	}
	return slog.New(handler)
}

func overrideConfigWithFlags(cmd *cobra.Command, cfg *config.Config) {
	if cmd.Flags().Changed("host") {
		cfg.Server.Host, _ = cmd.Flags().GetString("host")
	}
	if cmd.Flags().Changed("port") {
		cfg.Server.Port, _ = cmd.Flags().GetInt("port")
	}
	if cmd.Flags().Changed("mode") {
		cfg.Server.Mode, _ = cmd.Flags().GetString("mode")
	}

	if cmd.Flags().Changed("store-driver") {
		cfg.Store.Driver, _ = cmd.Flags().GetString("store-driver")
	}
	if cmd.Flags().Changed("store-path") {
		cfg.Store.Path, _ = cmd.Flags().GetString("store-path")
	}
	if cmd.Flags().Changed("store-uri") {
		cfg.Store.URI, _ = cmd.Flags().GetString("store-uri")
	}

	if cmd.Flags().Changed("vector-driver") {
		cfg.Vector.Driver, _ = cmd.Flags().GetString("vector-driver")
	}
	if cmd.Flags().Changed("vector-host") {
		cfg.Vector.Host, _ = cmd.Flags().GetString("vector-host")
	}

	if cmd.Flags().Changed("embedding-provider") {
		cfg.Embedding.Provider, _ = cmd.Flags().GetString("embedding-provider")
	}
	if cmd.Flags().Changed("embedding-model") {
		cfg.Embedding.Model, _ = cmd.Flags().GetString("embedding-model")
	}
	if cmd.Flags().Changed("embedding-api-key") {
		cfg.Embedding.APIKey, _ = cmd.Flags().GetString("embedding-api-key")
	}
	if cmd.Flags().Changed("embedding-base-url") {
		cfg.Embedding.BaseURL, _ = cmd.Flags().GetString("embedding-base-url")
	}

	if cmd.Flags().Changed("telemetry-parquet-path") {
		cfg.Telemetry.ParquetPath, _ = cmd.Flags().GetString("telemetry-parquet-path")
	}
}
