package analytics

import (
	"fmt"
	"sort"
	"strings"
	"time"
	"unicode"

	"tonstation/internal/domain"
)

const snippetLimit = 240

// FormatReport renders the analytics window as a deterministic
// plain-text report.
func FormatReport(start, end time.Time, hits []Hit, perChannel, perTag *TallyMap, channelsByID map[string]domain.ChannelRecord) string {
	var lines []string
	lines = append(lines, fmt.Sprintf("Analytics window: %s UTC -> %s UTC",
		start.UTC().Format("2006-01-02 15:04"), end.UTC().Format("2006-01-02 15:04")))
	lines = append(lines, fmt.Sprintf("Total hits: %d | Channels with hits: %d | Tags matched: %d",
		len(hits), perChannel.Len(), perTag.Len()))

	if perChannel.Len() > 0 {
		lines = append(lines, "", "Per channel:")
		for _, item := range sortByCountDesc(perChannel.Items()) {
			name := item.Key
			if ch, ok := channelsByID[item.Key]; ok {
				name = ch.DisplayName()
			}
			lines = append(lines, fmt.Sprintf("- %s: %d posts, reach=%d", name, item.Count, item.Views))
		}
	}

	if perTag.Len() > 0 {
		lines = append(lines, "", "Per tag:")
		for _, item := range sortByCountDesc(perTag.Items()) {
			lines = append(lines, fmt.Sprintf("- %s: %d posts, reach=%d", item.Key, item.Count, item.Views))
		}
	}

	if len(hits) > 0 {
		lines = append(lines, "", "Matched posts:")
		for _, hit := range hits {
			name := hit.Record.ChatID
			var username, link string
			if hit.Channel != nil {
				name = hit.Channel.DisplayName()
				username = hit.Channel.Username
				link = hit.Channel.Link
			}
			permalink := domain.BuildMessageLink(hit.Record.ChatID, hit.Record.MessageID, username, link)
			viewText := "views=n/a"
			if hit.Record.Views != nil {
				viewText = fmt.Sprintf("views=%d", *hit.Record.Views)
			}
			lines = append(lines, fmt.Sprintf("- %s [%s] tags=%s (%s) -> %s\n  %s",
				name,
				hit.Record.Date().Format("2006-01-02"),
				strings.Join(hit.Tags, ", "),
				viewText,
				permalink,
				snippet(hit.Record.Text),
			))
		}
	} else {
		lines = append(lines, "", "No posts matched the current tag list in this window.")
	}

	return strings.Join(lines, "\n")
}

// sortByCountDesc orders buckets by count descending; ties keep
// insertion order.
func sortByCountDesc(items []TallyItem) []TallyItem {
	sort.SliceStable(items, func(i, j int) bool { return items[i].Count > items[j].Count })
	return items
}

func snippet(text string) string {
	flat := strings.ReplaceAll(text, "\n", " ")
	runes := []rune(flat)
	if len(runes) <= snippetLimit {
		return flat
	}
	return strings.TrimRightFunc(string(runes[:snippetLimit]), unicode.IsSpace) + "..."
}
