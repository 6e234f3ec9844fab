package mtproto

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/gotd/td/session"
	"github.com/gotd/td/telegram"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
)

// Client wraps a gotd MTProto client with a file-backed session.
// The session must be pre-authorized; this tool never drives an
// interactive login.
type Client struct {
	tg  *telegram.Client
	log zerolog.Logger
}

// NewClient builds an MTProto client storing its session at
// sessionPath (parent directories are created).
func NewClient(apiID int, apiHash, sessionPath string, log zerolog.Logger) (*Client, error) {
	if dir := filepath.Dir(sessionPath); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create session directory: %w", err)
		}
	}
	client := telegram.NewClient(apiID, apiHash, telegram.Options{
		SessionStorage: &session.FileStorage{Path: sessionPath},
	})
	return &Client{tg: client, log: log}, nil
}

// Run connects, verifies authorization and invokes fn with the raw
// API handle. The connection is held for the duration of fn.
func (c *Client) Run(ctx context.Context, fn func(ctx context.Context, api *tg.Client) error) error {
	return c.tg.Run(ctx, func(ctx context.Context) error {
		status, err := c.tg.Auth().Status(ctx)
		if err != nil {
			return fmt.Errorf("auth status: %w", err)
		}
		if !status.Authorized {
			return fmt.Errorf("telegram session is not authorized; log in with an external tool first")
		}
		return fn(ctx, c.tg.API())
	})
}
