package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/copenhagensales/sms-inbox-notifier/internal/app"
	"github.com/copenhagensales/sms-inbox-notifier/internal/config"
	"github.com/copenhagensales/sms-inbox-notifier/internal/dispatcher"
	httpSrv "github.com/copenhagensales/sms-inbox-notifier/internal/http"
	"github.com/copenhagensales/sms-inbox-notifier/internal/logger"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run HTTP server (SSE toasts) with the inbound SMS notifier",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := logger.Init(cfg.LogLevel)
		defer func() { _ = log.Sync() }()

		deps, err := app.Open(cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		broker := httpSrv.NewBroker()
		var extra []dispatcher.Provider
		if cfg.Sinks.SSE {
			extra = append(extra, broker)
		}
		sink := app.NewDispatcher(cfg, deps, log, extra...)

		n, err := app.NewNotifier(cfg, deps, sink, log)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		sub, err := n.Activate(ctx)
		if err != nil {
			return err
		}

		server := httpSrv.NewServer(cfg, broker, deps.NotificationsRepo(), deps.Redis, log)

		errCh := make(chan error, 1)
		go func() {
			errCh <- server.Start(cfg.HTTP.Addr)
		}()

		log.Info("serving",
			zap.String("source", cfg.Source.Kind),
			zap.Strings("sinks", sink.Providers()),
		)

		var runErr error
		select {
		case <-ctx.Done():
			log.Info("signal received, shutting down")
		case err := <-errCh:
			if runErr = serverExitErr(err); runErr != nil {
				log.Error("http server exited", zap.Error(runErr))
			}
		}

		timeout := cfg.HTTP.ShutdownTimeout
		if timeout <= 0 {
			timeout = 5 * time.Second
		}
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()

		app.Drain(shutdownCtx, sub)
		_ = server.Shutdown(shutdownCtx)

		return runErr
	},
}

// serverExitErr drops the error echo returns after a clean Shutdown.
func serverExitErr(err error) error {
	if err == nil || errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return fmt.Errorf("http server: %w", err)
}
