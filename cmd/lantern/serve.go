package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/aretw0/lantern"
	"github.com/aretw0/lantern/internal/cli"
	lanternhttp "github.com/aretw0/lantern/pkg/adapters/http"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 5 * time.Second

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the debug HTTP API",
	Long: `Starts the engine behind a JSON API to inspect render contexts, start experiences,
move between steps and scrape Prometheus metrics.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if cmd.Flags().Changed("addr") {
			cfg.MetricsAddr, _ = cmd.Flags().GetString("addr")
		}

		rt, err := cli.NewRuntime(cfg, os.Stdout, logger)
		if err != nil {
			return err
		}
		defer rt.Close()

		handler := lanternhttp.NewHandler(rt.Engine,
			lanternhttp.WithGatherer(rt.Registry),
			lanternhttp.WithLogger(logger),
			lanternhttp.WithVersion(strings.TrimSpace(lantern.Version)),
		)
		srv := &http.Server{
			Addr:              cfg.MetricsAddr,
			Handler:           handler,
			ReadHeaderTimeout: 10 * time.Second,
		}

		// Channel to listen for errors coming from the listener.
		serverErrors := make(chan error, 1)
		go func() {
			logger.Info("starting lantern server", "addr", srv.Addr, "experiences_dir", cfg.ExperiencesDir)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			return fmt.Errorf("server error: %w", err)

		case <-cmd.Context().Done():
			logger.Info("shutting down")

			// Give outstanding requests a deadline for completion.
			ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				logger.Warn("graceful shutdown did not complete", "timeout", shutdownTimeout, "err", err)
				if err := srv.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					return fmt.Errorf("error killing server: %w", err)
				}
			}
			logger.Info("lantern server stopped gracefully")
			return nil
		}
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "Listen address (default from metrics_addr, :8080)")
}
