package botingest

import (
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"tonstation/internal/domain"
)

// Sender is the resolved author of an incoming message.
type Sender struct {
	Username string
	FullName string
}

// Incoming is the optional-field view of a raw Bot API message.
// Field extraction happens here, once; downstream code consumes only
// the fully-typed MessageRecord.
type Incoming struct {
	MessageID   int64
	Text        string
	Caption     string
	Date        int64
	From        *Sender
	Views       *int64
	ForwardDate *int64
}

// FromBotMessage extracts the fields this pipeline cares about from a
// Bot API message.
func FromBotMessage(msg *tgbotapi.Message) Incoming {
	in := Incoming{
		MessageID: int64(msg.MessageID),
		Text:      msg.Text,
		Caption:   msg.Caption,
		Date:      int64(msg.Date),
	}
	if msg.From != nil {
		fullName := strings.TrimSpace(msg.From.FirstName + " " + msg.From.LastName)
		in.From = &Sender{Username: msg.From.UserName, FullName: fullName}
	}
	if msg.ForwardDate != 0 {
		fd := int64(msg.ForwardDate)
		in.ForwardDate = &fd
	}
	return in
}

// ToRecord converts an incoming message into a MessageRecord. The
// second return is false when the message carries neither text nor
// caption and must not be ingested.
func ToRecord(in Incoming, chatID string) (domain.MessageRecord, bool) {
	text := in.Text
	if text == "" {
		text = in.Caption
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return domain.MessageRecord{}, false
	}

	rec := domain.MessageRecord{
		MessageID: in.MessageID,
		ChatID:    chatID,
		DateTS:    in.Date,
		Text:      text,
		Views:     in.Views,
		Forwards:  in.ForwardDate,
	}
	if in.From != nil {
		rec.Author = in.From.Username
		rec.FullName = in.From.FullName
	}
	// The Bot API does not expose a reply counter for posts.
	zero := int64(0)
	rec.Replies = &zero
	return rec, true
}
