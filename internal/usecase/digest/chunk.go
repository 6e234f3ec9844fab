package digest

import (
	"fmt"

	"tonstation/internal/domain"
)

// chunkSize stays safely under Telegram's 4096-character hard cap.
const chunkSize = 3900

// SendChunked delivers text through the sink, splitting into
// sequential fixed-size chunks when it exceeds the per-message limit.
// Chunks are sliced naively, with no attempt to avoid splitting
// mid-word; each carries a "Part N:" marker.
func SendChunked(sink domain.Sink, chatID, text string) error {
	runes := []rune(text)
	if len(runes) <= chunkSize {
		return sink.SendMessage(chatID, text)
	}
	part := 1
	for start := 0; start < len(runes); start += chunkSize {
		end := start + chunkSize
		if end > len(runes) {
			end = len(runes)
		}
		msg := fmt.Sprintf("Part %d:\n%s", part, string(runes[start:end]))
		if err := sink.SendMessage(chatID, msg); err != nil {
			return fmt.Errorf("send part %d: %w", part, err)
		}
		part++
	}
	return nil
}
