package domain

import (
	"strings"
	"time"
)

// MessageRecord is a single stored post. MessageID is unique only within
// a chat; the storage key is (ChatID, MessageID).
type MessageRecord struct {
	MessageID int64
	ChatID    string
	Author    string
	FullName  string
	DateTS    int64
	Text      string
	Views     *int64
	Forwards  *int64
	Replies   *int64
}

// Date returns the post timestamp in UTC.
func (m MessageRecord) Date() time.Time {
	return time.Unix(m.DateTS, 0).UTC()
}

// MatchesTag reports whether the post text contains the tag,
// case-insensitively. An empty tag never matches.
func (m MessageRecord) MatchesTag(tag string) bool {
	if tag == "" {
		return false
	}
	return strings.Contains(strings.ToLower(m.Text), strings.ToLower(tag))
}

// ChannelRecord is a tracked source channel. ChatID is the canonical
// string id ("-100…" form for channels).
type ChannelRecord struct {
	ChatID     string
	Title      string
	Username   string
	Link       string
	AccessHash *int64
	AddedAt    int64
	IsActive   bool
}

// DisplayName picks the human-facing channel name: title, else
// username, else the raw chat id.
func (c ChannelRecord) DisplayName() string {
	if c.Title != "" {
		return c.Title
	}
	if c.Username != "" {
		return c.Username
	}
	return c.ChatID
}

// TagRecord is a tracked keyword, stored normalized (lowercase, trimmed).
type TagRecord struct {
	ID  int64
	Tag string
}

// NormalizeTag brings a tag to its stored form.
func NormalizeTag(tag string) string {
	return strings.ToLower(strings.TrimSpace(tag))
}
