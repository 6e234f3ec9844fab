package cli

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"tonstation/internal/adapters/mtproto"
	"tonstation/internal/domain"
)

func (a *app) channelsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "channels",
		Short: "Manage channels to analyze",
	}

	add := &cobra.Command{
		Use:   "add <identifier>",
		Short: "Add a channel by @username, link, or id",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireAPICredentials(); err != nil {
				return err
			}
			client, err := mtproto.NewClient(a.cfg.Telegram.APIID, a.cfg.Telegram.APIHash, a.cfg.Telegram.SessionPath, a.log)
			if err != nil {
				return err
			}

			identifier := strings.TrimSpace(args[0])
			var rec domain.ChannelRecord
			if id, perr := strconv.ParseInt(identifier, 10, 64); perr == nil {
				// Numeric ids cannot be resolved by username; they can
				// only refresh a channel whose access hash is already
				// stored.
				chatID := mtproto.CanonicalChatID(id)
				stored, err := a.store.GetChannel(chatID)
				if err != nil {
					return err
				}
				if stored == nil {
					return fmt.Errorf("channel id %s is not stored yet; add it by @username or t.me link first", chatID)
				}
				rec, err = client.ResolveStored(cmd.Context(), *stored)
				if err != nil {
					return err
				}
			} else {
				rec, err = client.Resolve(cmd.Context(), identifier)
				if err != nil {
					return err
				}
			}
			if err := a.store.UpsertChannel(rec); err != nil {
				return err
			}
			a.log.Info().Str("chat_id", rec.ChatID).Str("title", rec.DisplayName()).Msg("added channel")
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <identifier>",
		Short: "Remove a stored channel",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			identifier := args[0]
			channels, err := a.store.ListChannels(false)
			if err != nil {
				return err
			}
			normalized := strings.TrimPrefix(identifier, "@")
			for _, ch := range channels {
				if ch.ChatID == identifier || ch.Username == normalized || ch.Link == identifier {
					if err := a.store.RemoveChannel(ch.ChatID); err != nil {
						return err
					}
					a.log.Info().Str("chat_id", ch.ChatID).Msg("removed channel")
					return nil
				}
			}
			return fmt.Errorf("channel %q not found in local list", identifier)
		},
	}

	var activeOnly bool
	list := &cobra.Command{
		Use:   "list",
		Short: "List stored channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			channels, err := a.store.ListChannels(activeOnly)
			if err != nil {
				return err
			}
			if len(channels) == 0 {
				cmd.Println("No channels stored.")
				return nil
			}
			for _, ch := range channels {
				status := "active"
				if !ch.IsActive {
					status = "inactive"
				}
				link := ch.Link
				if link == "" {
					link = "n/a"
				}
				cmd.Printf("%s (%s) [%s] link=%s\n", ch.DisplayName(), ch.ChatID, status, link)
			}
			return nil
		},
	}
	list.Flags().BoolVar(&activeOnly, "active-only", false, "show only active channels")

	cmd.AddCommand(add, remove, list)
	return cmd
}
