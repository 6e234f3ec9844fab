package domain

import (
	"fmt"
	"strings"
)

// BuildMessageLink constructs a permalink to a message. An explicit
// channel link wins over the username form; without either, the
// internal t.me/c/ form is derived from the numeric chat id.
func BuildMessageLink(chatID string, messageID int64, username, link string) string {
	if link != "" {
		return fmt.Sprintf("%s/%d", strings.TrimRight(link, "/"), messageID)
	}
	if username != "" {
		return fmt.Sprintf("https://t.me/%s/%d", username, messageID)
	}
	internal := strings.TrimPrefix(chatID, "-100")
	return fmt.Sprintf("https://t.me/c/%s/%d", internal, messageID)
}
