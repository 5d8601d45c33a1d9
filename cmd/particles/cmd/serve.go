package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/particles/internal/config"
	"github.com/MeKo-Tech/particles/internal/server"
)

func newServeCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start HTTP server for the analysis API",
		Long: `Start an HTTP server that provides REST and WebSocket endpoints for
particle analysis.

The server provides the following endpoints:
  POST /analyze        - Analyze one uploaded image (field "image")
  POST /analyze/batch  - Analyze several uploaded images (field "images")
  GET  /ws/analyze     - WebSocket streaming analysis
  GET  /presets        - List structuring elements and operations
  GET  /health         - Health check endpoint
  GET  /metrics        - Prometheus metrics

Examples:
  particles serve
  particles serve --port 8080
  particles serve --host 0.0.0.0 --port 3000 --requests-per-minute 60`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := a.configCopy()
			if err := applyAnalysisFlags(cmd, &cfg); err != nil {
				return err
			}
			serverConfig, err := configToServerConfig(cmd, &cfg)
			if err != nil {
				return err
			}
			return runServer(cmd.Context(), serverConfig)
		},
	}
	addAnalysisFlags(cmd)

	f := cmd.Flags()
	f.StringP("host", "H", "localhost", "server host")
	f.IntP("port", "p", 8080, "server port")
	f.String("cors-origin", "*", "CORS allowed origins")
	f.Int("max-upload-size", 50, "maximum upload size in MB")
	f.Int("timeout", 30, "request timeout in seconds")
	f.Int("shutdown-timeout", 10, "shutdown timeout in seconds")
	f.Bool("overlay-enable", true, "enable overlay image responses")
	// Rate limiting flags, zero disables a limit
	f.Int("requests-per-minute", 0, "maximum requests per minute per client")
	f.Int("requests-per-hour", 0, "maximum requests per hour per client")
	f.Int("max-requests-per-day", 0, "maximum requests per day per client")
	f.Int("max-data-per-day", 0, "maximum uploaded data per day per client in MB")
	return cmd
}

// configToServerConfig maps the resolved configuration and set flags to server.Config.
func configToServerConfig(cmd *cobra.Command, cfg *config.Config) (server.Config, error) {
	f := cmd.Flags()
	s := &cfg.Server
	strs := []struct {
		flag string
		dst  *string
	}{
		{"host", &s.Host},
		{"cors-origin", &s.CORSOrigin},
	}
	for _, o := range strs {
		if f.Changed(o.flag) {
			*o.dst, _ = f.GetString(o.flag)
		}
	}
	ints := []struct {
		flag string
		dst  *int
	}{
		{"port", &s.Port},
		{"max-upload-size", &s.MaxUploadMB},
		{"timeout", &s.TimeoutSec},
		{"shutdown-timeout", &s.ShutdownTimeout},
		{"requests-per-minute", &s.RateLimitPerMinute},
		{"requests-per-hour", &s.RateLimitPerHour},
		{"max-requests-per-day", &s.MaxRequestsPerDay},
		{"max-data-per-day", &s.MaxDataPerDayMB},
	}
	for _, o := range ints {
		if f.Changed(o.flag) {
			*o.dst, _ = f.GetInt(o.flag)
		}
	}
	if f.Changed("overlay-enable") {
		s.OverlayEnabled, _ = f.GetBool("overlay-enable")
	}

	if err := cfg.Validate(); err != nil {
		return server.Config{}, err
	}
	pc, err := cfg.ToPipelineConfig()
	if err != nil {
		return server.Config{}, err
	}

	return server.Config{
		Host:            s.Host,
		Port:            s.Port,
		CORSOrigin:      s.CORSOrigin,
		MaxUploadMB:     int64(s.MaxUploadMB),
		TimeoutSec:      s.TimeoutSec,
		ShutdownTimeout: s.ShutdownTimeout,
		PipelineConfig:  pc,
		OverlayEnabled:  s.OverlayEnabled,
		RateLimit: server.RateLimitConfig{
			RequestsPerMinute: s.RateLimitPerMinute,
			RequestsPerHour:   s.RateLimitPerHour,
			RequestsPerDay:    s.MaxRequestsPerDay,
			MaxDataPerDayMB:   s.MaxDataPerDayMB,
		},
	}, nil
}

// runServer serves until ctx is cancelled, then shuts down gracefully.
func runServer(ctx context.Context, cfg server.Config) error {
	srv, err := server.NewServer(cfg)
	if err != nil {
		return fmt.Errorf("failed to initialize server: %w", err)
	}

	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       timeout,
		WriteTimeout:      timeout,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("Starting analysis server", "addr", cfg.Addr(), "rate_limit", cfg.RateLimit.Enabled())
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("server error: %w", err)
		}
		return nil
	case <-ctx.Done():
		slog.Info("Received shutdown signal")
	}

	slog.Info("Starting graceful shutdown", "timeout", fmt.Sprintf("%ds", cfg.ShutdownTimeout))
	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.ShutdownTimeout)*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	slog.Info("Graceful shutdown completed")
	return nil
}
