package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/getsentry/sentry-go"
	"github.com/spf13/cobra"

	"github.com/cbegin/gen-go/internal/scores"
	"github.com/cbegin/gen-go/internal/server"
)

var (
	serveAddr      string
	serveScoresDir string
	serveSentryDSN string
	serveOrigins   []string
)

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", envOr("GEN_ADDR", ":8080"), "listen address ($GEN_ADDR)")
	serveCmd.Flags().StringVar(&serveScoresDir, "scores", os.Getenv("GEN_SCORES_DIR"), "directory of .gen scores to serve instead of the built-in examples ($GEN_SCORES_DIR)")
	serveCmd.Flags().StringVar(&serveSentryDSN, "sentry-dsn", os.Getenv("GEN_SENTRY_DSN"), "report internal errors to Sentry ($GEN_SENTRY_DSN)")
	serveCmd.Flags().StringSliceVar(&serveOrigins, "origin", nil, "allowed CORS origin, repeatable (default any)")
	rootCmd.AddCommand(serveCmd)
}

func envOr(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the compiler over HTTP",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if serveSentryDSN != "" {
			if err := sentry.Init(sentry.ClientOptions{Dsn: serveSentryDSN}); err != nil {
				return fmt.Errorf("sentry init: %w", err)
			}
			defer sentry.Flush(2 * time.Second)
		}

		lib := scores.Examples()
		if serveScoresDir != "" {
			var err error
			if lib, err = scores.Load(serveScoresDir); err != nil {
				return err
			}
		}
		logger.Info("scores loaded", "count", lib.Len(), "dir", serveScoresDir)

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()
		srv := server.New(server.Config{Scores: lib, AllowedOrigins: serveOrigins, Logger: logger})
		return srv.ListenAndServe(ctx, serveAddr)
	},
}
