package cli

import (
	"github.com/spf13/cobra"
)

func (a *app) tagsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tags",
		Short: "Manage tags/keywords",
	}

	add := &cobra.Command{
		Use:   "add <tag>",
		Short: "Add a tag/keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.store.AddTag(args[0])
			if err != nil {
				return err
			}
			a.log.Info().Str("tag", rec.Tag).Msg("added tag")
			return nil
		},
	}

	remove := &cobra.Command{
		Use:   "remove <tag>",
		Short: "Remove a tag/keyword",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.RemoveTag(args[0]); err != nil {
				return err
			}
			a.log.Info().Str("tag", args[0]).Msg("removed tag")
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List stored tags",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			tags, err := a.store.ListTags()
			if err != nil {
				return err
			}
			if len(tags) == 0 {
				cmd.Println("No tags stored.")
				return nil
			}
			for _, tag := range tags {
				cmd.Printf("- %s\n", tag.Tag)
			}
			return nil
		},
	}

	cmd.AddCommand(add, remove, list)
	return cmd
}
