package cli

import (
	"errors"
	"fmt"

	"readsy_backend/pkg/authclient"

	"github.com/spf13/cobra"
)

func NewCmdCheckin(f *Factory, streams IOStreams) *cobra.Command {
	var req authclient.CheckinRequest
	cmd := &cobra.Command{
		Use:   "checkin",
		Short: "Record reading progress for a book",
		RunE: func(cmd *cobra.Command, args []string) error {
			if req.BookID == 0 {
				return errors.New("--book is required")
			}
			if req.PagesRead <= 0 && req.MinutesSpent <= 0 {
				return errors.New("--pages or --minutes is required")
			}

			res, err := f.Client().Checkin(cmd.Context(), req)
			if err != nil {
				return err
			}

			fmt.Fprintf(streams.Out, "checked in: +%d xp, streak %d days\n", res.Checkin.XPAwarded, res.Checkin.StreakDays)
			if res.StreakFreezeUsed {
				fmt.Fprintln(streams.Out, "a Streak Freeze kept your streak alive")
			}
			if res.XP != nil && res.XP.LeveledUp {
				fmt.Fprintf(streams.Out, "level up! now level %d\n", res.XP.Progress.Level)
			}
			return nil
		},
	}
	cmd.Flags().UintVarP(&req.BookID, "book", "b", 0, "book id")
	cmd.Flags().IntVarP(&req.PagesRead, "pages", "p", 0, "pages read")
	cmd.Flags().IntVar(&req.CurrentPage, "current-page", 0, "page you stopped at")
	cmd.Flags().IntVarP(&req.MinutesSpent, "minutes", "m", 0, "minutes spent reading")
	cmd.Flags().StringVar(&req.AudioNoteURL, "audio-url", "", "uploaded audio note url")
	return cmd
}
