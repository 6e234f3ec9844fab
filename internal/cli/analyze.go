package cli

import (
	"errors"
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"tonstation/internal/adapters/telegram"
	"tonstation/internal/domain"
	"tonstation/internal/usecase/analytics"
	"tonstation/internal/usecase/digest"
)

func (a *app) analyzeCmd() *cobra.Command {
	var window rangeFlags
	var send bool
	var target string

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Match stored messages against tags and build a report",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("days") && a.cfg.WindowDays > 0 {
				window.days = a.cfg.WindowDays
			}
			start, end, err := window.resolve()
			if err != nil {
				return err
			}

			channels, err := a.store.ListChannels(true)
			if err != nil {
				return err
			}
			if len(channels) == 0 {
				return errors.New("No channels configured. Add channels first via `channels add`.")
			}
			tags, err := a.store.ListTags()
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				return errors.New("No tags configured. Add tags first via `tags add`.")
			}

			chatIDs := make([]string, 0, len(channels))
			channelsByID := make(map[string]domain.ChannelRecord, len(channels))
			for _, ch := range channels {
				chatIDs = append(chatIDs, ch.ChatID)
				channelsByID[ch.ChatID] = ch
			}

			log := a.log.With().Str("run_id", uuid.NewString()).Logger()

			records, err := a.store.FetchBetween(start, end, chatIDs)
			if err != nil {
				return err
			}
			hits, perChannel, perTag := analytics.DetectHits(records, tags, channelsByID)
			log.Info().
				Int("messages", len(records)).
				Int("hits", len(hits)).
				Msg("analyze: window scanned")

			report := analytics.FormatReport(start, end, hits, perChannel, perTag, channelsByID)

			if !send {
				cmd.Println(report)
				return nil
			}

			if err := a.cfg.RequireBotToken(); err != nil {
				return err
			}
			if target == "" {
				target = a.cfg.TargetChatID
			}
			if target == "" {
				return errors.New("Target chat id is not set. Use --target or HIGHLIGHT_TARGET_CHAT_ID.")
			}
			bot, err := tgbotapi.NewBotAPI(a.cfg.Telegram.BotToken)
			if err != nil {
				return fmt.Errorf("init bot: %w", err)
			}
			if err := digest.SendChunked(telegram.NewBotSink(bot), target, report); err != nil {
				return err
			}
			log.Info().Str("target", target).Msg("analyze: report delivered")
			return nil
		},
	}

	window.register(cmd, 7)
	cmd.Flags().BoolVar(&send, "send", false, "deliver the report to a chat instead of printing it")
	cmd.Flags().StringVar(&target, "target", "", "target chat id or @username for delivery")
	return cmd
}
