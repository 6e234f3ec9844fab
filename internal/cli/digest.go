package cli

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tonstation/internal/adapters/telegram"
	"tonstation/internal/infra/llm"
	"tonstation/internal/usecase/digest"
)

func (a *app) digestCmd() *cobra.Command {
	var printOnly bool
	var target string

	cmd := &cobra.Command{
		Use:   "digest",
		Short: "Build the weekly highlight digest and deliver it",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireDeepSeekKey(); err != nil {
				return err
			}
			if target == "" {
				target = a.cfg.TargetChatID
			}

			log := a.log.With().Str("run_id", uuid.NewString()).Logger()
			summarizer := llm.NewClient(a.cfg.DeepSeek.APIKey, a.cfg.DeepSeek.BaseURL, a.cfg.DeepSeek.Model, a.cfg.DeepSeek.Timeout)

			if printOnly || target == "" {
				if target == "" && !printOnly {
					log.Warn().Msg("digest: no target chat configured, printing instead")
				}
				builder := digest.NewBuilder(a.store, summarizer, nil, log, a.cfg.WindowDays, a.cfg.TopNMessages, a.cfg.DeepSeek.Timeout)
				text, err := builder.Build(cmd.Context())
				if err != nil {
					return err
				}
				cmd.Println(text)
				return nil
			}

			if err := a.cfg.RequireBotToken(); err != nil {
				return err
			}
			bot, err := tgbotapi.NewBotAPI(a.cfg.Telegram.BotToken)
			if err != nil {
				return fmt.Errorf("init bot: %w", err)
			}
			builder := digest.NewBuilder(a.store, summarizer, telegram.NewBotSink(bot), log, a.cfg.WindowDays, a.cfg.TopNMessages, a.cfg.DeepSeek.Timeout)
			if _, err := builder.BuildAndSend(cmd.Context(), target); err != nil {
				return err
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&printOnly, "print-only", false, "print the digest instead of sending it")
	cmd.Flags().StringVar(&target, "target", "", "target chat id or @username for delivery")
	return cmd
}
