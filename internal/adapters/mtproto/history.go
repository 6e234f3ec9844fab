package mtproto

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gotd/td/tg"

	"tonstation/internal/domain"
)

const historyBatchSize = 100

// HistoryAPI is the slice of the Telegram API the iterator needs.
// *tg.Client satisfies it.
type HistoryAPI interface {
	MessagesGetHistory(ctx context.Context, request *tg.MessagesGetHistoryRequest) (tg.MessagesMessagesClass, error)
}

var _ HistoryAPI = (*tg.Client)(nil)

// History lazily iterates a channel's message history newest-first,
// constrained to a closed [start, end] UTC window. Reaching a message
// older than start terminates the iteration and stops further API
// requests; the feed is assumed reverse-chronological.
type History struct {
	api    HistoryAPI
	peer   tg.InputPeerClass
	chatID string
	start  time.Time
	end    time.Time
	max    int

	queue    []domain.MessageRecord
	current  domain.MessageRecord
	offsetID int
	emitted  int
	done     bool
	err      error
}

// NewHistory prepares an iterator over the stored channel's history.
// maxMessages, when positive, caps emitted records (not raw messages
// scanned).
func NewHistory(api HistoryAPI, channel domain.ChannelRecord, start, end time.Time, maxMessages int) (*History, error) {
	peer, err := InputPeer(channel)
	if err != nil {
		return nil, err
	}
	return &History{
		api:    api,
		peer:   peer,
		chatID: channel.ChatID,
		start:  start.UTC(),
		end:    end.UTC(),
		max:    maxMessages,
	}, nil
}

// Next advances to the next record, fetching batches on demand.
func (h *History) Next(ctx context.Context) bool {
	for {
		if h.err != nil || h.done {
			return false
		}
		if len(h.queue) > 0 {
			h.current = h.queue[0]
			h.queue = h.queue[1:]
			h.emitted++
			if h.max > 0 && h.emitted >= h.max {
				h.done = true
			}
			return true
		}
		h.fetch(ctx)
	}
}

// Record returns the record produced by the last successful Next.
func (h *History) Record() domain.MessageRecord {
	return h.current
}

// Err reports a terminal iteration error, if any.
func (h *History) Err() error {
	return h.err
}

func (h *History) fetch(ctx context.Context) {
	res, err := h.api.MessagesGetHistory(ctx, &tg.MessagesGetHistoryRequest{
		Peer:     h.peer,
		OffsetID: h.offsetID,
		Limit:    historyBatchSize,
	})
	if err != nil {
		h.err = fmt.Errorf("get history for %s: %w", h.chatID, err)
		return
	}

	messages, users := splitHistoryResult(res)
	if len(messages) == 0 {
		h.done = true
		return
	}

	for _, raw := range messages {
		h.offsetID = raw.GetID()
		msg, ok := raw.(*tg.Message)
		if !ok {
			// Service messages carry no text.
			continue
		}
		switch classifyTimestamp(time.Unix(int64(msg.Date), 0).UTC(), h.start, h.end) {
		case skipTooNew:
			continue
		case stopTooOld:
			h.done = true
			return
		}
		text := strings.TrimSpace(msg.Message)
		if text == "" {
			continue
		}

		author, fullName := resolveAuthor(users, msg)
		rec := domain.MessageRecord{
			MessageID: int64(msg.ID),
			ChatID:    h.chatID,
			Author:    author,
			FullName:  fullName,
			DateTS:    int64(msg.Date),
			Text:      text,
		}
		if v, ok := msg.GetViews(); ok {
			views := int64(v)
			rec.Views = &views
		}
		if f, ok := msg.GetForwards(); ok {
			forwards := int64(f)
			rec.Forwards = &forwards
		}
		if r, ok := msg.GetReplies(); ok {
			replies := int64(r.Replies)
			rec.Replies = &replies
		}
		h.queue = append(h.queue, rec)
	}
}

type windowDecision int

const (
	takeMessage windowDecision = iota
	// skipTooNew: newer than the window end, expected near the head of
	// a reverse-chronological feed; keep scanning.
	skipTooNew
	// stopTooOld: older than the window start; nothing relevant
	// remains, terminate without further requests.
	stopTooOld
)

func classifyTimestamp(ts, start, end time.Time) windowDecision {
	if ts.After(end) {
		return skipTooNew
	}
	if ts.Before(start) {
		return stopTooOld
	}
	return takeMessage
}

// resolveAuthor prefers the sender's username, then first+last name,
// then the channel post author. A sender that cannot be looked up is
// treated as absent.
func resolveAuthor(users map[int64]*tg.User, msg *tg.Message) (author, fullName string) {
	if peer, ok := msg.FromID.(*tg.PeerUser); ok {
		if user, found := users[peer.UserID]; found {
			author = user.Username
			fullName = joinName(user.FirstName, user.LastName)
		}
	}
	if author == "" {
		if postAuthor, ok := msg.GetPostAuthor(); ok {
			author = postAuthor
		}
	}
	return author, fullName
}

// joinName joins name parts with a space, dropping empty ones.
func joinName(parts ...string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, " ")
}

func splitHistoryResult(res tg.MessagesMessagesClass) ([]tg.MessageClass, map[int64]*tg.User) {
	var (
		messages []tg.MessageClass
		rawUsers []tg.UserClass
	)
	switch typed := res.(type) {
	case *tg.MessagesMessages:
		messages, rawUsers = typed.Messages, typed.Users
	case *tg.MessagesMessagesSlice:
		messages, rawUsers = typed.Messages, typed.Users
	case *tg.MessagesChannelMessages:
		messages, rawUsers = typed.Messages, typed.Users
	}
	users := make(map[int64]*tg.User, len(rawUsers))
	for _, raw := range rawUsers {
		if user, ok := raw.(*tg.User); ok {
			users[user.ID] = user
		}
	}
	return messages, users
}
