package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/vodforge/vodforge/internal/config"
	"github.com/vodforge/vodforge/internal/database"
	internalhttp "github.com/vodforge/vodforge/internal/http"
	"github.com/vodforge/vodforge/internal/http/handlers"
	"github.com/vodforge/vodforge/internal/observability"
	"github.com/vodforge/vodforge/internal/pipeline"
	"github.com/vodforge/vodforge/internal/queue"
	"github.com/vodforge/vodforge/internal/repository"
	"github.com/vodforge/vodforge/internal/version"
	"github.com/vodforge/vodforge/internal/watchdog"
	"github.com/vodforge/vodforge/pkg/httpclient"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the vodforge server",
	Long: `Start the vodforge HTTP server and job queue.

The server provides:
- REST API for submitting and inspecting conversion jobs
- Health check endpoint at /healthz
- OpenAPI documentation at /docs`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("host", "0.0.0.0", "Host to bind to")
	serveCmd.Flags().Int("port", 8080, "Port to listen on")
	serveCmd.Flags().String("database", "vodforge.db", "Database file path")
	serveCmd.Flags().String("temp-dir", "", "Temp root for per-job working directories (empty = OS temp)")
	serveCmd.Flags().Int("concurrency", 0, "Number of jobs processed simultaneously (0 = config value)")
	serveCmd.Flags().String("isolation", "", "Job execution model: process or none (empty = config value)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	applyServeFlags(cmd.Flags(), cfg)
	if err := cfg.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}

	initLogging(cfg)
	logger := slog.Default()

	db, err := database.New(cfg.Database, logger)
	if err != nil {
		return fmt.Errorf("initializing database: %w", err)
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		return fmt.Errorf("migrating database: %w", err)
	}

	repo := repository.NewJobRepository(db.DB)

	var exec queue.Executor
	switch cfg.Queue.Isolation {
	case "none":
		runner := pipeline.NewRunner(cfg, logger)
		exec = queue.NewInlineExecutor(cfg, runner, logger)
		logger.Info("job isolation disabled, conversions run in-process")
	default:
		exec = queue.NewProcessExecutor(cfg, logger)
	}

	callbackConfig := httpclient.DefaultConfig()
	callbackConfig.Timeout = cfg.Transfer.HTTPTimeout
	callbackConfig.Logger = logger
	notifier := queue.NewNotifier(httpclient.New(callbackConfig), logger)

	reporter := observability.NewReporter(cfg.Telemetry, logger)

	q := queue.New(cfg, repo, exec, notifier, reporter, logger)

	// Graceful shutdown on SIGINT/SIGTERM.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	// Fail jobs interrupted by the previous run, sweep leftover work
	// directories, and replay any configured seed requests.
	if err := q.Recover(ctx); err != nil {
		return fmt.Errorf("recovering queue state: %w", err)
	}

	q.Start(ctx)
	defer q.Stop()

	dog := watchdog.New(cfg, q.HasActive, logger)
	if err := dog.Start(); err != nil {
		return fmt.Errorf("starting watchdog: %w", err)
	}
	defer dog.Stop()

	server := internalhttp.NewServer(cfg.Server, logger, version.Version)

	healthHandler := handlers.NewHealthHandler(version.Version, db)
	healthHandler.Register(server.API())

	convertHandler := handlers.NewConvertHandler(q, logger)
	convertHandler.Register(server.API())

	logger.Info("starting vodforge server",
		slog.String("host", cfg.Server.Host),
		slog.Int("port", cfg.Server.Port),
		slog.Int("concurrency", cfg.Queue.Concurrency),
		slog.String("isolation", cfg.Queue.Isolation),
		slog.String("version", version.Version),
	)

	return server.ListenAndServe(ctx)
}

// applyServeFlags overrides config values with explicitly set serve flags.
func applyServeFlags(flags *pflag.FlagSet, cfg *config.Config) {
	if flags.Changed("host") {
		cfg.Server.Host, _ = flags.GetString("host")
	}
	if flags.Changed("port") {
		cfg.Server.Port, _ = flags.GetInt("port")
	}
	if flags.Changed("database") {
		cfg.Database.DSN, _ = flags.GetString("database")
	}
	if flags.Changed("temp-dir") {
		cfg.Storage.TempDir, _ = flags.GetString("temp-dir")
	}
	if flags.Changed("concurrency") {
		cfg.Queue.Concurrency, _ = flags.GetInt("concurrency")
	}
	if flags.Changed("isolation") {
		isolation, _ := flags.GetString("isolation")
		cfg.Queue.Isolation = strings.ToLower(isolation)
	}
}
