package botingest

import (
	"testing"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

func TestToRecordExtractsFields(t *testing.T) {
	views := int64(7)
	in := Incoming{
		MessageID: 5,
		Text:      " hi there ",
		Date:      1700000000,
		From:      &Sender{Username: "user1", FullName: "User One"},
		Views:     &views,
	}

	rec, ok := ToRecord(in, "-1001")
	if !ok {
		t.Fatalf("expected an ingestable record")
	}
	if rec.MessageID != 5 || rec.ChatID != "-1001" || rec.DateTS != 1700000000 {
		t.Fatalf("unexpected identity fields: %+v", rec)
	}
	if rec.Text != "hi there" {
		t.Fatalf("text must be trimmed, got %q", rec.Text)
	}
	if rec.Author != "user1" || rec.FullName != "User One" {
		t.Fatalf("unexpected author fields: %+v", rec)
	}
	if rec.Views == nil || *rec.Views != 7 {
		t.Fatalf("views must be copied, got %v", rec.Views)
	}
	if rec.Replies == nil || *rec.Replies != 0 {
		t.Fatalf("replies must default to 0 on the push path, got %v", rec.Replies)
	}
}

func TestToRecordCaptionFallback(t *testing.T) {
	rec, ok := ToRecord(Incoming{MessageID: 1, Caption: "photo caption"}, "c")
	if !ok || rec.Text != "photo caption" {
		t.Fatalf("caption must back up a missing text, got ok=%v rec=%+v", ok, rec)
	}
}

func TestToRecordRejectsEmptyPayload(t *testing.T) {
	if _, ok := ToRecord(Incoming{MessageID: 1}, "c"); ok {
		t.Fatalf("message without text or caption is not ingestable")
	}
	if _, ok := ToRecord(Incoming{MessageID: 1, Text: "   "}, "c"); ok {
		t.Fatalf("whitespace-only text is not ingestable")
	}
}

func TestFromBotMessage(t *testing.T) {
	msg := &tgbotapi.Message{
		MessageID:   9,
		Date:        1700000001,
		Text:        "hello",
		From:        &tgbotapi.User{UserName: "alice", FirstName: "Alice", LastName: "A"},
		ForwardDate: 1699999999,
	}

	in := FromBotMessage(msg)
	if in.MessageID != 9 || in.Date != 1700000001 || in.Text != "hello" {
		t.Fatalf("unexpected extraction: %+v", in)
	}
	if in.From == nil || in.From.Username != "alice" || in.From.FullName != "Alice A" {
		t.Fatalf("unexpected sender: %+v", in.From)
	}
	if in.ForwardDate == nil || *in.ForwardDate != 1699999999 {
		t.Fatalf("forward date must be extracted when set")
	}
}

func TestFromBotMessageNoSender(t *testing.T) {
	in := FromBotMessage(&tgbotapi.Message{MessageID: 1, Text: "channel post"})
	if in.From != nil {
		t.Fatalf("channel posts carry no sender")
	}
	if in.ForwardDate != nil {
		t.Fatalf("zero forward date means absent")
	}
}

func TestIsChatIDProbe(t *testing.T) {
	if !isChatIDProbe(&tgbotapi.Message{Text: "  /ChatID  "}) {
		t.Fatalf("probe detection must be case-insensitive and trimmed")
	}
	if isChatIDProbe(&tgbotapi.Message{Text: "regular message"}) {
		t.Fatalf("regular message is not a probe")
	}
	if !isChatIDProbe(&tgbotapi.Message{Caption: "/chatid"}) {
		t.Fatalf("probe may arrive as a caption")
	}
}
