package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

func NewCmdMe(f *Factory, streams IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "me",
		Short: "Show the current profile",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := f.Client().Me(cmd.Context())
			if err != nil {
				return err
			}

			today := "no"
			if p.CheckedInToday {
				today = "yes"
			}
			table := newTable(streams.Out, "Field", "Value")
			table.AppendBulk([][]string{
				{"Username", p.Username},
				{"Email", p.Email},
				{"Level", fmt.Sprintf("%d/%d", p.Progress.Level, p.Progress.MaxLevel)},
				{"XP", itoa(p.XP)},
				{"Coins", itoa(p.Coins)},
				{"Streak", fmt.Sprintf("%d days", p.Streak)},
				{"Checked in today", today},
			})
			table.Render()
			return nil
		},
	}
}

func NewCmdProgress(f *Factory, streams IOStreams) *cobra.Command {
	return &cobra.Command{
		Use:   "progress",
		Short: "Show level progress",
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := f.Client().Progress(cmd.Context())
			if err != nil {
				return err
			}
			if p.IsMaxLevel {
				fmt.Fprintf(streams.Out, "level %d (max) with %d xp\n", p.Level, p.TotalXP)
				return nil
			}
			fmt.Fprintf(streams.Out, "level %d, %.0f%% to level %d (%d xp to go)\n",
				p.Level, p.Progress*100, p.Level+1, p.XPToNextLevel)
			return nil
		},
	}
}
