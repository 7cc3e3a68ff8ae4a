package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

func NewCmdLeaderboard(f *Factory, streams IOStreams) *cobra.Command {
	var (
		season string
		limit  int
		me     bool
	)
	cmd := &cobra.Command{
		Use:     "leaderboard",
		Aliases: []string{"lb"},
		Short:   "Show the season leaderboard",
		RunE: func(cmd *cobra.Command, args []string) error {
			client := f.Client()
			if me {
				entry, err := client.LeaderboardMe(cmd.Context(), season)
				if err != nil {
					return err
				}
				if entry == nil || entry.Rank == 0 {
					fmt.Fprintln(streams.Out, "not ranked this season")
					return nil
				}
				fmt.Fprintf(streams.Out, "#%d %s %d xp\n", entry.Rank, entry.Username, entry.Score)
				return nil
			}

			lb, err := client.Leaderboard(cmd.Context(), season, limit)
			if err != nil {
				return err
			}
			fmt.Fprintf(streams.Out, "season %s (%s)\n", lb.Season, lb.Source)
			table := newTable(streams.Out, "Rank", "User", "XP")
			for _, e := range lb.Entries {
				table.Append([]string{strconv.Itoa(e.Rank), e.Username, itoa(e.Score)})
			}
			table.Render()
			return nil
		},
	}
	cmd.Flags().StringVarP(&season, "season", "s", "", "season YYYY-MM, defaults to the current one")
	cmd.Flags().IntVarP(&limit, "limit", "n", 0, "number of entries")
	cmd.Flags().BoolVar(&me, "me", false, "show only your own rank")
	return cmd
}
