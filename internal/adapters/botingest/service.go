package botingest

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"tonstation/internal/domain"
	"tonstation/internal/infra/metrics"
)

const (
	errorRetryDelay = 5 * time.Second
	cleanRetryDelay = 2 * time.Second
)

// Service long-polls the Bot API and funnels posts from the configured
// source chat into the store.
type Service struct {
	bot          *tgbotapi.BotAPI
	store        domain.Store
	log          zerolog.Logger
	sourceChatID string
	pollTimeout  int

	offset int
}

// NewService wires the push-ingestion service.
func NewService(bot *tgbotapi.BotAPI, store domain.Store, log zerolog.Logger, sourceChatID string, pollTimeout int) *Service {
	if pollTimeout <= 0 {
		pollTimeout = 30
	}
	return &Service{bot: bot, store: store, log: log, sourceChatID: sourceChatID, pollTimeout: pollTimeout}
}

// Run supervises the polling loop until the context is cancelled.
// Poll errors are retried after 5s; an unexpected clean stop is
// treated as transient and retried after 2s.
func (s *Service) Run(ctx context.Context) {
	s.log.Info().Str("source_chat", s.sourceChatID).Msg("collector: started")
	for {
		if ctx.Err() != nil {
			s.log.Info().Msg("collector: stopped")
			return
		}
		err := s.poll(ctx)
		if ctx.Err() != nil {
			s.log.Info().Msg("collector: stopped")
			return
		}
		metrics.PollRestarts.Inc()
		if err != nil {
			s.log.Error().Err(err).Msgf("collector: polling failed, retrying in %s", errorRetryDelay)
			sleepCtx(ctx, errorRetryDelay)
		} else {
			s.log.Warn().Msgf("collector: polling stopped unexpectedly, restarting in %s", cleanRetryDelay)
			sleepCtx(ctx, cleanRetryDelay)
		}
	}
}

func (s *Service) poll(ctx context.Context) error {
	cfg := tgbotapi.NewUpdate(s.offset)
	cfg.Timeout = s.pollTimeout
	cfg.AllowedUpdates = []string{"message", "channel_post"}

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}

		updates, err := s.bot.GetUpdates(cfg)
		if err != nil {
			return fmt.Errorf("get updates: %w", err)
		}
		for _, upd := range updates {
			if upd.UpdateID >= s.offset {
				s.offset = upd.UpdateID + 1
				cfg.Offset = s.offset
			}
			s.handle(&upd)
		}
	}
}

func (s *Service) handle(upd *tgbotapi.Update) {
	msg := upd.Message
	if msg == nil {
		msg = upd.ChannelPost
	}
	if msg == nil || msg.Chat == nil {
		return
	}

	chatID := fmt.Sprintf("%d", msg.Chat.ID)
	if isChatIDProbe(msg) {
		reply := tgbotapi.NewMessage(msg.Chat.ID, "Chat chat_id: "+chatID)
		if _, err := s.bot.Send(reply); err != nil {
			s.log.Warn().Err(err).Msg("collector: chatid reply failed")
		}
		return
	}
	if chatID != s.sourceChatID {
		return
	}

	rec, ok := ToRecord(FromBotMessage(msg), s.sourceChatID)
	if !ok {
		return
	}
	if err := s.store.UpsertMessage(rec); err != nil {
		s.log.Error().Err(err).Int64("message_id", rec.MessageID).Msg("collector: store write failed")
		return
	}
	metrics.MessagesStored.Inc()
	s.log.Info().Int64("message_id", rec.MessageID).Msg("collector: stored message")
}

// isChatIDProbe reports whether the message is the /chatid discovery
// command.
func isChatIDProbe(msg *tgbotapi.Message) bool {
	text := msg.Text
	if text == "" {
		text = msg.Caption
	}
	return strings.HasPrefix(strings.ToLower(strings.TrimSpace(text)), "/chatid")
}

func sleepCtx(ctx context.Context, d time.Duration) {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
