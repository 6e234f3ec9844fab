package digest

import (
	"fmt"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"

	"tonstation/internal/domain"
)

// SystemPrompt is the summarizer persona for digest generation.
const SystemPrompt = "You are Ton Station's Weekly Highlight Builder. " +
	"Given raw Telegram messages, produce a crisp Markdown digest with sections: " +
	"1) Quick stats (counts, activity window, top authors). " +
	"2) Top threads (2-5 bullets with titles + why they matter). " +
	"3) Emerging topics (2-3 bullets). " +
	"4) Recommended pins/actions (next steps for moderators). " +
	"Keep it concise, avoid speculation, keep URLs/authors if present, and stay within 400-600 words."

// emptyWindowPrompt keeps the summarizer from inventing content when
// the window has no messages.
const emptyWindowPrompt = "No messages were captured in the selected window. Produce a short empty-state note."

const recordTextLimit = 320

// Score weights engagement with a length bonus capped at 5 so very
// long posts cannot dominate on length alone.
func Score(rec domain.MessageRecord) int64 {
	var views int64
	if rec.Views != nil {
		views = *rec.Views
	}
	bonus := int64(utf8.RuneCountInString(rec.Text) / 120)
	if bonus > 5 {
		bonus = 5
	}
	return views*2 + bonus
}

// PickTop returns the limit highest-scoring records. The sort is
// stable: ties keep their relative input order.
func PickTop(records []domain.MessageRecord, limit int) []domain.MessageRecord {
	scored := make([]domain.MessageRecord, len(records))
	copy(scored, records)
	sort.SliceStable(scored, func(i, j int) bool { return Score(scored[i]) > Score(scored[j]) })
	if limit >= 0 && len(scored) > limit {
		scored = scored[:limit]
	}
	return scored
}

// FormatRecord renders one record as a single prompt line.
func FormatRecord(rec domain.MessageRecord, idx int) string {
	text := strings.ReplaceAll(rec.Text, "\n", " ")
	if runes := []rune(text); len(runes) > recordTextLimit {
		text = strings.TrimRightFunc(string(runes[:recordTextLimit]), unicode.IsSpace) + "..."
	}
	stats := "stats=n/a"
	if rec.Views != nil {
		stats = fmt.Sprintf("views=%d", *rec.Views)
	}
	return fmt.Sprintf("%d. [%s] @%s: %s (%s)", idx, rec.Date().Format("2006-01-02"), authorOf(rec), text, stats)
}

// BuildPrompt assembles the summarization prompt from the window's
// records. Records are expected in ascending timestamp order (as the
// store returns them); the top-N sample is drawn by score.
func BuildPrompt(records []domain.MessageRecord, windowDays, topN int) string {
	if len(records) == 0 {
		return emptyWindowPrompt
	}

	top := PickTop(records, topN)
	authors := make(map[string]struct{}, len(records))
	for _, rec := range records {
		authors[authorOf(rec)] = struct{}{}
	}
	start := records[0].Date().Format("2006-01-02")
	end := records[len(records)-1].Date().Format("2006-01-02")

	var b strings.Builder
	fmt.Fprintf(&b, "Window: %s to %s UTC (%d days)\n", start, end, windowDays)
	fmt.Fprintf(&b, "Messages: %d | Unique authors: %d | Top sample size: %d\n", len(records), len(authors), len(top))
	b.WriteString("\nTop messages:\n")
	for idx, rec := range top {
		if idx > 0 {
			b.WriteString("\n")
		}
		b.WriteString(FormatRecord(rec, idx+1))
	}
	b.WriteString("\n\nUse ONLY the provided messages. Do not invent data. " +
		"If metrics are missing, skip them. Keep Markdown concise.")
	return b.String()
}

func authorOf(rec domain.MessageRecord) string {
	if rec.Author != "" {
		return rec.Author
	}
	if rec.FullName != "" {
		return rec.FullName
	}
	return "anon"
}
