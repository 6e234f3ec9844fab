package mtproto

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/gotd/td/tg"

	"tonstation/internal/domain"
)

type scriptedHistoryAPI struct {
	batches  [][]tg.MessageClass
	requests []*tg.MessagesGetHistoryRequest
}

func (s *scriptedHistoryAPI) MessagesGetHistory(ctx context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	s.requests = append(s.requests, req)
	if len(s.requests) > len(s.batches) {
		return &tg.MessagesChannelMessages{}, nil
	}
	return &tg.MessagesChannelMessages{Messages: s.batches[len(s.requests)-1]}, nil
}

type failingHistoryAPI struct{}

func (failingHistoryAPI) MessagesGetHistory(ctx context.Context, req *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error) {
	return nil, errors.New("FLOOD_WAIT_30")
}

func newTestHistory(t *testing.T, api HistoryAPI, start, end time.Time, max int) *History {
	t.Helper()
	hash := int64(77)
	hist, err := NewHistory(api, domain.ChannelRecord{ChatID: "-10012345", AccessHash: &hash}, start, end, max)
	if err != nil {
		t.Fatalf("new history: %v", err)
	}
	return hist
}

func collectHistory(t *testing.T, hist *History) []string {
	t.Helper()
	var texts []string
	for hist.Next(context.Background()) {
		texts = append(texts, hist.Record().Text)
	}
	return texts
}

func TestParseIdentifier(t *testing.T) {
	cases := map[string]string{
		"@Ton_News":                 "ton_news",
		"ton_news":                  "ton_news",
		"https://t.me/ton_news":     "ton_news",
		"t.me/ton_news/":            "ton_news",
		"  https://t.me/Ton_News  ": "ton_news",
	}
	for input, want := range cases {
		got, err := ParseIdentifier(input)
		if err != nil {
			t.Fatalf("parse %q: %v", input, err)
		}
		if got != want {
			t.Fatalf("parse %q: got %q, want %q", input, got, want)
		}
	}

	if _, err := ParseIdentifier("not a channel!"); err == nil {
		t.Fatalf("expected error for unparseable identifier")
	}
}

func TestCanonicalChatID(t *testing.T) {
	if got := CanonicalChatID(12345); got != "-10012345" {
		t.Fatalf("unexpected canonical id: %s", got)
	}
}

func TestInputPeerRequiresAccessHash(t *testing.T) {
	if _, err := InputPeer(domain.ChannelRecord{ChatID: "-10012345"}); err == nil {
		t.Fatalf("expected error without access hash")
	}

	hash := int64(77)
	peer, err := InputPeer(domain.ChannelRecord{ChatID: "-10012345", AccessHash: &hash})
	if err != nil {
		t.Fatalf("input peer: %v", err)
	}
	channel, ok := peer.(*tg.InputPeerChannel)
	if !ok || channel.ChannelID != 12345 || channel.AccessHash != 77 {
		t.Fatalf("unexpected peer: %#v", peer)
	}
}

func TestClassifyTimestamp(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	if classifyTimestamp(end.Add(time.Second), start, end) != skipTooNew {
		t.Fatalf("newer than end must be skipped")
	}
	if classifyTimestamp(start.Add(-time.Second), start, end) != stopTooOld {
		t.Fatalf("older than start must stop the iteration")
	}
	// Both boundaries are inclusive.
	if classifyTimestamp(start, start, end) != takeMessage {
		t.Fatalf("start boundary must be taken")
	}
	if classifyTimestamp(end, start, end) != takeMessage {
		t.Fatalf("end boundary must be taken")
	}
}

func TestResolveAuthorPrefersUsername(t *testing.T) {
	users := map[int64]*tg.User{
		1: {ID: 1, Username: "alice", FirstName: "Alice", LastName: "A"},
		2: {ID: 2, FirstName: "Bob"},
	}

	msg := &tg.Message{FromID: &tg.PeerUser{UserID: 1}}
	author, fullName := resolveAuthor(users, msg)
	if author != "alice" || fullName != "Alice A" {
		t.Fatalf("unexpected author: %q / %q", author, fullName)
	}

	// No username: first+last with empty parts dropped.
	msg = &tg.Message{FromID: &tg.PeerUser{UserID: 2}}
	msg.SetPostAuthor("editor")
	author, fullName = resolveAuthor(users, msg)
	if author != "editor" || fullName != "Bob" {
		t.Fatalf("expected post_author fallback, got %q / %q", author, fullName)
	}

	// Unknown sender id normalizes to absent, then post author wins.
	msg = &tg.Message{FromID: &tg.PeerUser{UserID: 99}}
	msg.SetPostAuthor("channel ed")
	author, fullName = resolveAuthor(users, msg)
	if author != "channel ed" || fullName != "" {
		t.Fatalf("lookup failure must mean no sender, got %q / %q", author, fullName)
	}
}

func TestHistoryStopsRequestingAfterTooOld(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	api := &scriptedHistoryAPI{batches: [][]tg.MessageClass{
		{
			&tg.Message{ID: 10, Date: int(start.Add(time.Hour).Unix()), Message: "in window"},
			&tg.Message{ID: 9, Date: int(start.Add(-time.Hour).Unix()), Message: "already archived"},
		},
		// Present but must never be requested.
		{
			&tg.Message{ID: 8, Date: int(start.Add(2 * time.Hour).Unix()), Message: "unreachable"},
		},
	}}

	hist := newTestHistory(t, api, start, end, 0)
	texts := collectHistory(t, hist)
	if err := hist.Err(); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	if len(texts) != 1 || texts[0] != "in window" {
		t.Fatalf("unexpected records: %v", texts)
	}
	if len(api.requests) != 1 {
		t.Fatalf("a too-old message must stop further requests, got %d", len(api.requests))
	}
}

func TestHistoryPaginatesWithOffsetID(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	api := &scriptedHistoryAPI{batches: [][]tg.MessageClass{
		{
			&tg.Message{ID: 10, Date: int(start.Add(3 * time.Hour).Unix()), Message: "newest"},
			&tg.MessageService{ID: 9, Date: int(start.Add(2 * time.Hour).Unix())},
			&tg.Message{ID: 8, Date: int(start.Add(time.Hour).Unix()), Message: "  "},
			&tg.Message{ID: 7, Date: int(start.Add(time.Hour).Unix()), Message: "oldest"},
		},
	}}

	hist := newTestHistory(t, api, start, end, 0)
	texts := collectHistory(t, hist)
	if err := hist.Err(); err != nil {
		t.Fatalf("iterate: %v", err)
	}
	// Service and blank messages are skipped but still advance the offset.
	if len(texts) != 2 || texts[0] != "newest" || texts[1] != "oldest" {
		t.Fatalf("unexpected records: %v", texts)
	}
	if len(api.requests) != 2 {
		t.Fatalf("expected one follow-up request after a non-empty batch, got %d", len(api.requests))
	}
	if api.requests[1].OffsetID != 7 {
		t.Fatalf("follow-up request must continue from the oldest seen id, got %d", api.requests[1].OffsetID)
	}
}

func TestHistoryCapsEmittedRecords(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)
	api := &scriptedHistoryAPI{batches: [][]tg.MessageClass{
		{
			&tg.Message{ID: 10, Date: int(start.Add(3 * time.Hour).Unix()), Message: "one"},
			&tg.Message{ID: 9, Date: int(start.Add(2 * time.Hour).Unix()), Message: "two"},
			&tg.Message{ID: 8, Date: int(start.Add(time.Hour).Unix()), Message: "three"},
		},
	}}

	hist := newTestHistory(t, api, start, end, 2)
	texts := collectHistory(t, hist)
	if len(texts) != 2 {
		t.Fatalf("cap of 2 must emit 2 records, got %v", texts)
	}
	if len(api.requests) != 1 {
		t.Fatalf("reaching the cap must stop further requests, got %d", len(api.requests))
	}
}

func TestHistorySurfacesAPIError(t *testing.T) {
	start := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC)
	hist := newTestHistory(t, failingHistoryAPI{}, start, start.Add(24*time.Hour), 0)
	if hist.Next(context.Background()) {
		t.Fatal("a failed request must not yield records")
	}
	if hist.Err() == nil {
		t.Fatal("expected the request error to surface via Err")
	}
}

func TestJoinName(t *testing.T) {
	if got := joinName("Alice", ""); got != "Alice" {
		t.Fatalf("empty parts must be dropped, got %q", got)
	}
	if got := joinName("", ""); got != "" {
		t.Fatalf("all-empty parts must produce an empty name, got %q", got)
	}
}
