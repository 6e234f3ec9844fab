package analytics

import (
	"strings"
	"testing"
	"time"

	"tonstation/internal/domain"
)

func int64Ptr(v int64) *int64 { return &v }

func TestDetectHitsExcludesNonMatching(t *testing.T) {
	records := []domain.MessageRecord{
		{MessageID: 1, ChatID: "-1001", Text: "big ton airdrop coming", Views: int64Ptr(100)},
		{MessageID: 2, ChatID: "-1001", Text: "nothing relevant", Views: int64Ptr(9999)},
	}
	tags := []domain.TagRecord{{ID: 1, Tag: "airdrop"}}

	hits, perChannel, perTag := DetectHits(records, tags, nil)
	if len(hits) != 1 {
		t.Fatalf("expected 1 hit, got %d", len(hits))
	}
	if hits[0].Record.MessageID != 1 {
		t.Fatalf("wrong record matched: %d", hits[0].Record.MessageID)
	}
	if perChannel.Len() != 1 || perTag.Len() != 1 {
		t.Fatalf("aggregations must only cover matching records")
	}
}

func TestDetectHitsEndToEnd(t *testing.T) {
	records := []domain.MessageRecord{
		{MessageID: 1, ChatID: "-1001", Text: "ton airdrop for everyone", Views: int64Ptr(5)},
		{MessageID: 2, ChatID: "-1001", Text: "nothing here", Views: int64Ptr(2)},
	}
	tags := []domain.TagRecord{{ID: 1, Tag: "ton"}, {ID: 2, Tag: "airdrop"}}
	channels := map[string]domain.ChannelRecord{
		"-1001": {ChatID: "-1001", Title: "Main"},
	}

	hits, perChannel, perTag := DetectHits(records, tags, channels)
	if len(hits) != 1 {
		t.Fatalf("expected exactly one hit, got %d", len(hits))
	}
	if len(hits[0].Tags) != 2 || hits[0].Tags[0] != "ton" || hits[0].Tags[1] != "airdrop" {
		t.Fatalf("unexpected matched tags: %v", hits[0].Tags)
	}
	if hits[0].Channel == nil || hits[0].Channel.Title != "Main" {
		t.Fatalf("hit must carry the channel record")
	}

	tally, ok := perChannel.Get("-1001")
	if !ok || tally.Count != 1 || tally.Views != 5 {
		t.Fatalf("unexpected per-channel tally: %+v", tally)
	}
	for _, tag := range []string{"ton", "airdrop"} {
		tally, ok := perTag.Get(tag)
		if !ok || tally.Count != 1 || tally.Views != 5 {
			t.Fatalf("unexpected tally for %s: %+v", tag, tally)
		}
	}
}

func TestDetectHitsUnknownViewsCountZero(t *testing.T) {
	records := []domain.MessageRecord{
		{MessageID: 1, ChatID: "c", Text: "ton one", Views: nil},
		{MessageID: 2, ChatID: "c", Text: "ton two", Views: int64Ptr(7)},
	}
	_, perChannel, _ := DetectHits(records, []domain.TagRecord{{Tag: "ton"}}, nil)
	tally, _ := perChannel.Get("c")
	if tally.Count != 2 || tally.Views != 7 {
		t.Fatalf("unknown views must add zero, got %+v", tally)
	}
}

func TestFormatReportNoHits(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(24 * time.Hour)

	report := FormatReport(start, end, nil, NewTallyMap(), NewTallyMap(), nil)
	if !strings.Contains(report, "No posts matched the current tag list in this window.") {
		t.Fatalf("missing empty-state line:\n%s", report)
	}
	if strings.Contains(report, "Per channel:") || strings.Contains(report, "Matched posts:") {
		t.Fatalf("sections must be omitted when there are no hits:\n%s", report)
	}
	if !strings.Contains(report, "Total hits: 0") {
		t.Fatalf("missing totals line:\n%s", report)
	}
}

func TestFormatReportSections(t *testing.T) {
	start := time.Date(2025, 3, 1, 10, 30, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	ts := start.Add(time.Hour).Unix()

	records := []domain.MessageRecord{
		{MessageID: 7, ChatID: "-1001", Text: "ton news:\nvalidators update", DateTS: ts, Views: int64Ptr(42)},
		{MessageID: 8, ChatID: "-1002", Text: "another ton post", DateTS: ts},
	}
	channels := map[string]domain.ChannelRecord{
		"-1001": {ChatID: "-1001", Title: "Main", Username: "main_chan"},
	}
	hits, perChannel, perTag := DetectHits(records, []domain.TagRecord{{Tag: "ton"}}, channels)

	report := FormatReport(start, end, hits, perChannel, perTag, channels)

	if !strings.Contains(report, "Analytics window: 2025-03-01 10:30 UTC -> 2025-03-03 10:30 UTC") {
		t.Fatalf("bad window header:\n%s", report)
	}
	if !strings.Contains(report, "- Main: 1 posts, reach=42") {
		t.Fatalf("missing per-channel line:\n%s", report)
	}
	if !strings.Contains(report, "- ton: 2 posts, reach=42") {
		t.Fatalf("missing per-tag line:\n%s", report)
	}
	if !strings.Contains(report, "https://t.me/main_chan/7") {
		t.Fatalf("missing permalink:\n%s", report)
	}
	// Unknown channel falls back to the raw chat id and the internal link form.
	if !strings.Contains(report, "- -1002 [") || !strings.Contains(report, "(views=n/a)") {
		t.Fatalf("missing fallback hit line:\n%s", report)
	}
	if !strings.Contains(report, "ton news: validators update") {
		t.Fatalf("newlines must be flattened in snippets:\n%s", report)
	}
}

func TestFormatReportSnippetTruncation(t *testing.T) {
	long := strings.Repeat("ton ", 100) // 400 chars
	records := []domain.MessageRecord{{MessageID: 1, ChatID: "c", Text: long}}
	hits, perChannel, perTag := DetectHits(records, []domain.TagRecord{{Tag: "ton"}}, nil)

	report := FormatReport(time.Unix(0, 0), time.Unix(1, 0), hits, perChannel, perTag, nil)
	if !strings.Contains(report, "...") {
		t.Fatalf("long snippet must carry an ellipsis marker")
	}
	for _, line := range strings.Split(report, "\n") {
		if strings.HasPrefix(line, "  ") && len([]rune(line)) > snippetLimit+5 {
			t.Fatalf("snippet line too long (%d runes)", len([]rune(line)))
		}
	}
}

func TestFormatReportOrdersByCountDesc(t *testing.T) {
	records := []domain.MessageRecord{
		{MessageID: 1, ChatID: "low", Text: "ton"},
		{MessageID: 2, ChatID: "high", Text: "ton"},
		{MessageID: 3, ChatID: "high", Text: "ton"},
	}
	hits, perChannel, perTag := DetectHits(records, []domain.TagRecord{{Tag: "ton"}}, nil)

	report := FormatReport(time.Unix(0, 0), time.Unix(1, 0), hits, perChannel, perTag, nil)
	high := strings.Index(report, "- high: 2 posts")
	low := strings.Index(report, "- low: 1 posts")
	if high == -1 || low == -1 || high > low {
		t.Fatalf("channels must be sorted by count descending:\n%s", report)
	}
}
