package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/axoncare-ai/hemolens"
	"github.com/axoncare-ai/hemolens/ai/openai"
	"github.com/axoncare-ai/hemolens/config"
	"github.com/axoncare-ai/hemolens/ingest"
	"github.com/axoncare-ai/hemolens/server"
	"github.com/axoncare-ai/hemolens/trace"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP analysis service",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgFile)
		if err != nil {
			return err
		}

		logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: cfg.SlogLevel()}))
		slog.SetDefault(logger)

		model := openai.NewModel(cfg.Model, cfg.APIKey, cfg.BaseURL).
			WithTemperature(0.3)

		var pipelineOpts []hemolens.PipelineOption
		pipelineOpts = append(pipelineOpts, hemolens.WithLogger(logger))
		if cfg.TraceDir != "" {
			pipelineOpts = append(pipelineOpts, hemolens.WithTracer(trace.NewTracer(trace.Config{
				Directory: cfg.TraceDir,
			})))
		}

		pipeline := hemolens.New(hemolens.Options{
			MaxUploadBytes:  cfg.MaxUploadBytes,
			VerifyThreshold: cfg.VerifyThreshold,
			StageTimeout:    cfg.StageTimeout,
			RetryCount:      cfg.RetryCount,
			RetryBaseDelay:  cfg.RetryBaseDelay,
		}, model, ingest.NewPDFExtractor(""), pipelineOpts...)

		srv := server.New(pipeline, cfg.MaxUploadBytes, logger)

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		errCh := make(chan error, 1)
		go func() {
			if err := srv.Start(cfg.Addr); err != nil && err != http.ErrServerClosed {
				errCh <- err
			}
		}()

		select {
		case err := <-errCh:
			return fmt.Errorf("server error: %w", err)
		case <-ctx.Done():
		}

		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	},
}
