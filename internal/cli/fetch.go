package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/gotd/td/tg"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tonstation/internal/adapters/mtproto"
	"tonstation/internal/domain"
	"tonstation/internal/infra/metrics"
)

func (a *app) fetchCmd() *cobra.Command {
	var window rangeFlags
	var maxPerChannel int

	cmd := &cobra.Command{
		Use:   "fetch",
		Short: "Pull channel history for a window into the store",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.cfg.RequireAPICredentials(); err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") && a.cfg.WindowDays > 0 {
				window.days = a.cfg.WindowDays
			}
			start, end, err := window.resolve()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("max-per-channel") {
				maxPerChannel = a.cfg.MaxPerChannel
			}

			channels, err := a.store.ListChannels(true)
			if err != nil {
				return err
			}
			if len(channels) == 0 {
				return errors.New("No channels configured. Add channels first via `channels add`.")
			}

			log := a.log.With().Str("run_id", uuid.NewString()).Logger()
			log.Info().
				Time("from", start).Time("to", end).
				Int("channels", len(channels)).
				Msg("fetch: started")

			client, err := mtproto.NewClient(a.cfg.Telegram.APIID, a.cfg.Telegram.APIHash, a.cfg.Telegram.SessionPath, log)
			if err != nil {
				return err
			}
			return client.Run(cmd.Context(), func(ctx context.Context, api *tg.Client) error {
				total, err := fetchWindow(ctx, api, a.store, log, channels, start, end, maxPerChannel)
				log.Info().Int("stored", total).Msg("fetch: finished")
				return err
			})
		},
	}

	window.register(cmd, 7)
	cmd.Flags().IntVar(&maxPerChannel, "max-per-channel", 0, "cap stored messages per channel (0 = unlimited)")
	return cmd
}

// fetchWindow pulls every channel's history into the store. A failing
// channel does not block the remaining ones, but every per-channel
// error is kept and returned joined, so a run with failures never
// reports success.
func fetchWindow(ctx context.Context, api mtproto.HistoryAPI, st domain.Store, log zerolog.Logger, channels []domain.ChannelRecord, start, end time.Time, maxPerChannel int) (int, error) {
	total := 0
	var errs []error
	for _, ch := range channels {
		hist, err := mtproto.NewHistory(api, ch, start, end, maxPerChannel)
		if err != nil {
			metrics.FetchErrors.Inc()
			log.Error().Err(err).Str("chat_id", ch.ChatID).Msg("fetch: channel skipped")
			errs = append(errs, fmt.Errorf("channel %s: %w", ch.ChatID, err))
			continue
		}
		stored := 0
		for hist.Next(ctx) {
			if err := st.UpsertMessage(hist.Record()); err != nil {
				errs = append(errs, fmt.Errorf("store message from %s: %w", ch.ChatID, err))
				return total, errors.Join(errs...)
			}
			stored++
		}
		if err := hist.Err(); err != nil {
			metrics.FetchErrors.Inc()
			log.Error().Err(err).Str("chat_id", ch.ChatID).Msg("fetch: channel failed")
			errs = append(errs, fmt.Errorf("channel %s: %w", ch.ChatID, err))
			continue
		}
		total += stored
		log.Info().Str("chat_id", ch.ChatID).Str("title", ch.DisplayName()).Int("stored", stored).Msg("fetch: channel done")
	}
	return total, errors.Join(errs...)
}
