package cmd

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/copenhagensales/sms-inbox-notifier/internal/app"
	"github.com/copenhagensales/sms-inbox-notifier/internal/config"
	"github.com/copenhagensales/sms-inbox-notifier/internal/logger"
	"github.com/copenhagensales/sms-inbox-notifier/internal/model"
	"github.com/copenhagensales/sms-inbox-notifier/internal/repository"
	"github.com/copenhagensales/sms-inbox-notifier/internal/util"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	simApplicationID string
	simContent       string
	simDirection     string
)

var simulateCmd = &cobra.Command{
	Use:   "simulate",
	Short: "Insert an SMS into communication_logs (and publish it for the redis source)",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		log := logger.Init(cfg.LogLevel)

		deps, err := app.Open(cfg)
		if err != nil {
			return err
		}
		defer deps.Close()

		row := model.CommunicationLog{
			ID:            model.RefID(util.NewID(time.Now())),
			Type:          model.ChannelSMS,
			Direction:     strings.ToLower(strings.TrimSpace(simDirection)),
			ApplicationID: model.RefID(strings.TrimSpace(simApplicationID)),
		}
		if cmd.Flags().Changed("content") {
			row.Content = &simContent
		}

		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		if err := repository.NewCommunicationLogsRepository(deps.MySQL).Insert(ctx, row); err != nil {
			return fmt.Errorf("insert communication log: %w", err)
		}

		// kafka picks the row up through CDC; redis has no connector
		if strings.EqualFold(cfg.Source.Kind, "redis") {
			payload, err := model.EncodeInsertEvent(cfg.Source.Table, row)
			if err != nil {
				return fmt.Errorf("encode change event: %w", err)
			}
			if err := deps.Redis.Publish(ctx, cfg.Source.RedisChannel, payload).Err(); err != nil {
				return fmt.Errorf("publish change event: %w", err)
			}
		}

		log.Info("simulated sms",
			zap.String("id", row.ID.String()),
			zap.String("application_id", row.ApplicationID.String()),
			zap.String("direction", row.Direction),
		)
		return nil
	},
}

func init() {
	simulateCmd.Flags().StringVar(&simApplicationID, "application-id", "101", "application the SMS belongs to")
	simulateCmd.Flags().StringVar(&simContent, "content", "Hej, jeg kan til samtalen kl 10", "SMS text")
	simulateCmd.Flags().StringVar(&simDirection, "direction", model.DirectionInbound, "inbound | outbound")
}
