package cmd

import (
	"context"
	"net/http"
	"time"

	"github.com/fulmenhq/gofulmen/signals"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	apperrors "github.com/gymgate/gymgate/internal/errors"
	"github.com/gymgate/gymgate/internal/observability"
	"github.com/gymgate/gymgate/internal/server"
	"github.com/gymgate/gymgate/internal/server/handlers"
	"github.com/gymgate/gymgate/internal/store"
)

var (
	serverPort int
	serverHost string
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the diagnostics HTTP server",
	Long: `Start the diagnostics HTTP server with graceful shutdown support.

The server exposes health probes, version info, the client counters and
cache administration endpoints in front of a long-lived API client.

Signal Handling:
  • Ctrl+C (SIGINT) or SIGTERM: Graceful shutdown
  • Ctrl+C twice within 2s: Force quit`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&serverHost, "host", "", "server host (overrides config)")
	serveCmd.Flags().IntVarP(&serverPort, "port", "p", 0, "server port (overrides config)")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := requireConfig()
	if err != nil {
		return err
	}

	serverCfg := cfg.Server
	if serverHost != "" {
		serverCfg.Host = serverHost
	}
	if serverPort != 0 {
		serverCfg.Port = serverPort
	}

	logger, err := observability.NewServerLogger(cfg.Logging.Level, cfg.Logging.Format, "gymgate")
	if err != nil {
		return err
	}
	apperrors.SetLogger(logger)

	client, st, cleanup, err := buildClient(cmd)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("initializing server",
		zap.String("version", versionInfo.Version),
		zap.String("host", serverCfg.Host),
		zap.Int("port", serverCfg.Port),
		zap.String("backend", cfg.API.BaseURL))

	health := handlers.NewHealthManager(versionInfo.Version)
	health.RegisterChecker("backend", backendChecker{baseURL: cfg.API.BaseURL})
	if st != nil {
		health.RegisterChecker("store", storeChecker{store: st})
	}

	srv := server.New(serverCfg, client, health, logger)

	shutdownTimeout := serverCfg.ShutdownTimeout
	if shutdownTimeout == 0 {
		shutdownTimeout = 10 * time.Second
	}

	// Shutdown handlers run LIFO: server drains first, logs flush last.
	signals.OnShutdown(func(ctx context.Context) error {
		logger.Info("flushing logger")
		_ = logger.Sync()
		return nil
	})
	signals.OnShutdown(func(ctx context.Context) error {
		shutdownCtx, cancel := context.WithTimeout(ctx, shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	if err := signals.EnableDoubleTap(signals.DoubleTapConfig{
		Window:  2 * time.Second,
		Message: "Press Ctrl+C again within 2 seconds to force quit",
	}); err != nil {
		logger.Warn("failed to enable double-tap force quit", zap.Error(err))
	}

	errChan := make(chan error, 1)
	go func() {
		if err := srv.Start(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	go func() {
		if err := signals.Listen(cmd.Context()); err != nil {
			logger.Error("signal handler error", zap.Error(err))
			errChan <- err
		}
	}()

	if err := <-errChan; err != nil {
		return err
	}
	return nil
}

// backendChecker probes the upstream base URL without going through the
// client, so readiness does not consume cache or rate-limit state.
type backendChecker struct {
	baseURL string
}

func (b backendChecker) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, b.baseURL, nil)
	if err != nil {
		return err
	}

	probe := &http.Client{Timeout: 3 * time.Second}
	resp, err := probe.Do(req)
	if err != nil {
		return err
	}
	_ = resp.Body.Close()
	return nil
}

type storeChecker struct {
	store *store.Store
}

func (s storeChecker) CheckHealth(ctx context.Context) error {
	return s.store.DB.PingContext(ctx)
}
