package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vodforge/vodforge/internal/config"
	"github.com/vodforge/vodforge/internal/models"
	"github.com/vodforge/vodforge/internal/pipeline"
	"github.com/vodforge/vodforge/internal/queue"
)

var (
	convertRequestFile string
	convertResultFile  string
)

// convertCmd runs exactly one conversion and exits. It exists for the
// process-per-job execution model: the server re-executes its own binary
// with this subcommand so a crash in the media tooling takes down only the
// child process. The request and result travel through a file pair.
var convertCmd = &cobra.Command{
	Use:    "convert",
	Short:  "Run one conversion from a request file",
	Hidden: true,
	RunE:   runConvert,
}

func init() {
	rootCmd.AddCommand(convertCmd)

	convertCmd.Flags().StringVar(&convertRequestFile, "request-file", "", "path to the JSON conversion request")
	convertCmd.Flags().StringVar(&convertResultFile, "result-file", "", "path to write the JSON conversion result")
	convertCmd.MarkFlagRequired("request-file")
	convertCmd.MarkFlagRequired("result-file")

	convertCmd.SilenceUsage = true
}

func runConvert(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	initLogging(cfg)
	logger := slog.Default().With(slog.String("component", "convert"))

	req, err := queue.ReadRequestFile(convertRequestFile)
	if err != nil {
		writeResult(logger, &queue.Result{Error: err.Error()})
		return err
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-sigChan
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
		cancel()
	}()

	meta, err := runPipeline(ctx, cfg, req, logger)
	if err != nil {
		writeResult(logger, &queue.Result{Error: err.Error()})
		return err
	}

	writeResult(logger, &queue.Result{Metadata: meta})
	return nil
}

// runPipeline executes the conversion with a recover boundary so a panic in
// the media tooling still produces a result file for the parent.
func runPipeline(ctx context.Context, cfg *config.Config, req *models.ConversionRequest, logger *slog.Logger) (meta *models.OutputMetadata, err error) {
	defer func() {
		if r := recover(); r != nil {
			meta = nil
			err = fmt.Errorf("conversion panicked: %v", r)
		}
	}()

	runner := pipeline.NewRunner(cfg, logger)
	return runner.Run(ctx, req)
}

func writeResult(logger *slog.Logger, result *queue.Result) {
	if err := queue.WriteResultFile(convertResultFile, result); err != nil {
		logger.Error("writing result file failed",
			slog.String("path", convertResultFile),
			slog.String("error", err.Error()),
		)
	}
}
