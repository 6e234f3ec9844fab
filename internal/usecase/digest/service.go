package digest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tonstation/internal/domain"
	"tonstation/internal/infra/metrics"
)

// ErrSummaryTimeout is returned when the summarization round trip
// exceeds the configured budget. It is never downgraded to an empty
// or partial digest.
var ErrSummaryTimeout = errors.New("digest summarization timed out")

// ErrNoTarget is returned when delivery is requested without a target
// chat configured.
var ErrNoTarget = errors.New("target chat id is not set")

// Builder runs the one-shot digest pipeline: windowed store read,
// prompt assembly, summarization round trip, optional delivery.
type Builder struct {
	store      domain.Store
	summarizer domain.Summarizer
	sink       domain.Sink
	log        zerolog.Logger

	windowDays int
	topN       int
	timeout    time.Duration
}

// NewBuilder wires the digest pipeline.
func NewBuilder(store domain.Store, summarizer domain.Summarizer, sink domain.Sink, log zerolog.Logger, windowDays, topN int, timeout time.Duration) *Builder {
	if windowDays <= 0 {
		windowDays = 7
	}
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &Builder{
		store:      store,
		summarizer: summarizer,
		sink:       sink,
		log:        log,
		windowDays: windowDays,
		topN:       topN,
		timeout:    timeout,
	}
}

// Build produces the digest text for the trailing window without
// delivering it.
func (b *Builder) Build(ctx context.Context) (string, error) {
	started := time.Now()
	records, err := b.store.FetchSinceDays(b.windowDays, nil)
	if err != nil {
		return "", fmt.Errorf("load window: %w", err)
	}
	b.log.Info().Int("messages", len(records)).Int("window_days", b.windowDays).Msg("digest: window loaded")

	prompt := BuildPrompt(records, b.windowDays, b.topN)

	callCtx, cancel := context.WithTimeout(ctx, b.timeout)
	defer cancel()
	text, err := b.summarizer.BuildDigest(callCtx, SystemPrompt, prompt)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return "", fmt.Errorf("%w after %s", ErrSummaryTimeout, b.timeout)
		}
		return "", fmt.Errorf("summarize: %w", err)
	}

	metrics.DigestBuildSeconds.Observe(time.Since(started).Seconds())
	return text, nil
}

// BuildAndSend builds the digest and delivers it to the target chat.
func (b *Builder) BuildAndSend(ctx context.Context, targetChatID string) (string, error) {
	if targetChatID == "" {
		return "", ErrNoTarget
	}
	text, err := b.Build(ctx)
	if err != nil {
		return "", err
	}
	if err := SendChunked(b.sink, targetChatID, text); err != nil {
		return "", fmt.Errorf("deliver digest: %w", err)
	}
	b.log.Info().Str("target", targetChatID).Msg("digest: delivered")
	return text, nil
}
