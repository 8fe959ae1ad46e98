package worker

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/copenhagensales/sms-inbox-notifier/internal/app"
	"github.com/copenhagensales/sms-inbox-notifier/internal/config"
	"github.com/copenhagensales/sms-inbox-notifier/internal/logger"
	"github.com/copenhagensales/sms-inbox-notifier/internal/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var notifierCmd = &cobra.Command{
	Use:   "notifier",
	Short: "Run the inbound SMS notifier without the HTTP surface",
	RunE:  runNotifier,
}

func runNotifier(cmd *cobra.Command, args []string) error {
	// 1) load config
	cfgPath, _ := cmd.Root().PersistentFlags().GetString("config")
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	log := logger.Init(cfg.LogLevel)
	defer func() { _ = log.Sync() }()

	metrics.MustRegister(prometheus.DefaultRegisterer)

	// 2) connections
	deps, err := app.Open(cfg)
	if err != nil {
		return err
	}
	defer deps.Close()

	// 3) sinks → notifier
	sink := app.NewDispatcher(cfg, deps, log)
	if len(sink.Providers()) == 0 {
		return errors.New("no sinks configured for headless notifier")
	}
	n, err := app.NewNotifier(cfg, deps, sink, log)
	if err != nil {
		return err
	}

	// 4) graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	sub, err := n.Activate(ctx)
	if err != nil {
		return err
	}
	log.Info("notifier started",
		zap.String("source", cfg.Source.Kind),
		zap.Strings("sinks", sink.Providers()),
	)

	<-ctx.Done()

	timeout := cfg.HTTP.ShutdownTimeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	drainCtx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()
	app.Drain(drainCtx, sub)

	log.Info("notifier stopped")
	return nil
}
