package mtproto

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/gotd/td/tg"

	"tonstation/internal/domain"
)

var _ domain.ChannelResolver = (*Client)(nil)

// Resolve implements domain.ChannelResolver over a one-shot
// connection.
func (c *Client) Resolve(ctx context.Context, identifier string) (domain.ChannelRecord, error) {
	var rec domain.ChannelRecord
	err := c.Run(ctx, func(ctx context.Context, api *tg.Client) error {
		var err error
		rec, err = Resolve(ctx, api, identifier)
		return err
	})
	return rec, err
}

// ResolveStored implements the id-based refresh over a one-shot
// connection.
func (c *Client) ResolveStored(ctx context.Context, stored domain.ChannelRecord) (domain.ChannelRecord, error) {
	var rec domain.ChannelRecord
	err := c.Run(ctx, func(ctx context.Context, api *tg.Client) error {
		var err error
		rec, err = ResolveStored(ctx, api, stored)
		return err
	})
	return rec, err
}

var usernameRe = regexp.MustCompile(`(?i)^(?:@|https?://t\.me/|t\.me/)?([a-z0-9_]{4,})/?$`)

// ParseIdentifier extracts a channel username from operator input:
// @name, bare name, or a t.me link.
func ParseIdentifier(input string) (string, error) {
	trimmed := strings.TrimSpace(input)
	matches := usernameRe.FindStringSubmatch(trimmed)
	if len(matches) < 2 {
		return "", fmt.Errorf("cannot parse channel identifier %q", input)
	}
	return strings.ToLower(matches[1]), nil
}

// Resolve turns an identifier into a canonical ChannelRecord. The
// chat id gets the bot-style -100 prefix so both ingestion paths key
// messages the same way.
func Resolve(ctx context.Context, api *tg.Client, identifier string) (domain.ChannelRecord, error) {
	username, err := ParseIdentifier(identifier)
	if err != nil {
		return domain.ChannelRecord{}, err
	}

	resolved, err := api.ContactsResolveUsername(ctx, &tg.ContactsResolveUsernameRequest{Username: username})
	if err != nil {
		return domain.ChannelRecord{}, fmt.Errorf("resolve %q: %w", username, err)
	}

	peer, ok := resolved.Peer.(*tg.PeerChannel)
	if !ok {
		return domain.ChannelRecord{}, fmt.Errorf("%q is not a channel", username)
	}
	var channel *tg.Channel
	for _, chat := range resolved.Chats {
		if ch, ok := chat.(*tg.Channel); ok && ch.ID == peer.ChannelID {
			channel = ch
			break
		}
	}
	if channel == nil {
		return domain.ChannelRecord{}, fmt.Errorf("channel %q missing from resolve response", username)
	}

	return channelRecord(channel), nil
}

// ResolveStored refreshes a channel already known by chat id, using
// its stored access hash. Numeric ids cannot go through username
// resolution, so this is the only id-based path MTProto offers.
func ResolveStored(ctx context.Context, api ChannelAPI, stored domain.ChannelRecord) (domain.ChannelRecord, error) {
	peer, err := InputPeer(stored)
	if err != nil {
		return domain.ChannelRecord{}, err
	}
	input := peer.(*tg.InputPeerChannel)

	res, err := api.ChannelsGetChannels(ctx, []tg.InputChannelClass{
		&tg.InputChannel{ChannelID: input.ChannelID, AccessHash: input.AccessHash},
	})
	if err != nil {
		return domain.ChannelRecord{}, fmt.Errorf("get channel %s: %w", stored.ChatID, err)
	}
	for _, chat := range res.GetChats() {
		if ch, ok := chat.(*tg.Channel); ok && ch.ID == input.ChannelID {
			return channelRecord(ch), nil
		}
	}
	return domain.ChannelRecord{}, fmt.Errorf("channel %s missing from response", stored.ChatID)
}

// ChannelAPI is the slice of the Telegram API id-based resolution
// needs. *tg.Client satisfies it.
type ChannelAPI interface {
	ChannelsGetChannels(ctx context.Context, id []tg.InputChannelClass) (tg.MessagesChatsClass, error)
}

var _ ChannelAPI = (*tg.Client)(nil)

func channelRecord(channel *tg.Channel) domain.ChannelRecord {
	rec := domain.ChannelRecord{
		ChatID:   CanonicalChatID(channel.ID),
		Title:    channel.Title,
		Username: channel.Username,
		IsActive: true,
	}
	if channel.Username != "" {
		rec.Link = "https://t.me/" + channel.Username
	}
	hash := channel.AccessHash
	rec.AccessHash = &hash
	return rec
}

// CanonicalChatID normalizes a bare MTProto channel id to the
// bot-style string form.
func CanonicalChatID(id int64) string {
	s := fmt.Sprintf("%d", id)
	if strings.HasPrefix(s, "-100") {
		return s
	}
	return "-100" + s
}

// InputPeer rebuilds the InputPeerChannel for a stored channel.
func InputPeer(channel domain.ChannelRecord) (tg.InputPeerClass, error) {
	raw := strings.TrimPrefix(channel.ChatID, "-100")
	var id int64
	if _, err := fmt.Sscanf(raw, "%d", &id); err != nil {
		return nil, fmt.Errorf("malformed chat id %q: %w", channel.ChatID, err)
	}
	if channel.AccessHash == nil {
		return nil, fmt.Errorf("channel %s has no access hash; re-add it", channel.ChatID)
	}
	return &tg.InputPeerChannel{ChannelID: id, AccessHash: *channel.AccessHash}, nil
}
