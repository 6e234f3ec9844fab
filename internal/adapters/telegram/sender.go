package telegram

import (
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tonstation/internal/domain"
	"tonstation/internal/infra/metrics"
)

// BotSink delivers messages through the Bot API. Numeric chat ids and
// @channel usernames are both accepted.
type BotSink struct {
	bot *tgbotapi.BotAPI
}

var _ domain.Sink = (*BotSink)(nil)

// NewBotSink wraps an authorized bot client.
func NewBotSink(bot *tgbotapi.BotAPI) *BotSink {
	return &BotSink{bot: bot}
}

// SendMessage sends plain text with link previews disabled.
func (s *BotSink) SendMessage(chatID, text string) error {
	msg := tgbotapi.NewMessage(0, text)
	if id, err := strconv.ParseInt(chatID, 10, 64); err == nil {
		msg.ChatID = id
	} else {
		msg.ChannelUsername = "@" + strings.TrimPrefix(chatID, "@")
	}
	msg.DisableWebPagePreview = true

	if _, err := s.bot.Send(msg); err != nil {
		metrics.BotSendErrors.Inc()
		return fmt.Errorf("send to %s: %w", chatID, err)
	}
	return nil
}
