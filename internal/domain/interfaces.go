package domain

import (
	"context"
	"time"
)

// Store is the durable persistence layer for messages, channels and
// tags. Implementations own all persisted state; returned records are
// snapshots, mutating them never affects storage.
type Store interface {
	UpsertMessage(rec MessageRecord) error
	FetchBetween(start, end time.Time, chatIDs []string) ([]MessageRecord, error)
	FetchSinceDays(days int, chatIDs []string) ([]MessageRecord, error)

	UpsertChannel(rec ChannelRecord) error
	RemoveChannel(chatID string) error
	GetChannel(chatID string) (*ChannelRecord, error)
	ListChannels(activeOnly bool) ([]ChannelRecord, error)

	AddTag(tag string) (TagRecord, error)
	RemoveTag(tag string) error
	ListTags() ([]TagRecord, error)

	// Close releases underlying resources. It never fails: cleanup
	// must not mask a primary error during shutdown.
	Close()
}

// ChannelResolver turns an operator-supplied identifier (@username,
// t.me link or numeric id) into a canonical ChannelRecord.
type ChannelResolver interface {
	Resolve(ctx context.Context, identifier string) (ChannelRecord, error)
}

// Summarizer produces digest text from an assembled prompt.
type Summarizer interface {
	BuildDigest(ctx context.Context, systemPrompt, userPrompt string) (string, error)
}

// Sink delivers a single message to a chat.
type Sink interface {
	SendMessage(chatID, text string) error
}
