package cli

import (
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"tonstation/internal/adapters/store"
	"tonstation/internal/infra/config"
	applog "tonstation/internal/infra/log"
)

// app holds the state shared by all commands: config, logger and the
// opened store.
type app struct {
	cfg   config.AppConfig
	log   zerolog.Logger
	store *store.Store
}

// Execute runs the CLI. Handler errors propagate as a non-zero
// process exit; only this layer prints them.
func Execute() error {
	a := &app{}
	root := a.rootCmd()
	err := root.Execute()
	if a.store != nil {
		a.store.Close()
	}
	return err
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "tonstation",
		Short:         "Ton Station analytics and channel manager",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			a.cfg = cfg
			a.log = applog.NewLogger(cfg.AppEnv)

			st, err := store.New(cfg.DBPath, a.log)
			if err != nil {
				return err
			}
			a.store = st
			return nil
		},
	}

	root.AddCommand(
		a.channelsCmd(),
		a.tagsCmd(),
		a.fetchCmd(),
		a.analyzeCmd(),
		a.digestCmd(),
		a.collectCmd(),
	)
	return root
}
