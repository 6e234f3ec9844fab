package cli

import (
	"errors"
	"fmt"
	"os/signal"
	"syscall"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"tonstation/internal/adapters/botingest"
	"tonstation/internal/infra/metrics"
)

func (a *app) collectCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "collect",
		Short: "Run the long-polling collector service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireBotToken(); err != nil {
				return err
			}
			if a.cfg.Telegram.SourceChatID == "" {
				return errors.New("SOURCE_CHAT_ID must be set to run the collector")
			}

			bot, err := tgbotapi.NewBotAPI(a.cfg.Telegram.BotToken)
			if err != nil {
				return fmt.Errorf("init bot: %w", err)
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			metrics.MustRegister(prometheus.DefaultRegisterer)
			metrics.StartServer(ctx, a.log, a.cfg.MetricsAddr)

			svc := botingest.NewService(bot, a.store, a.log, a.cfg.Telegram.SourceChatID, a.cfg.Polling.Timeout)
			svc.Run(ctx)
			return nil
		},
	}
}
