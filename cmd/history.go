package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnfast/internal/store"
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show a learner's progress events",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		limit, _ := cmd.Flags().GetInt("limit")
		after, _ := cmd.Flags().GetInt64("after")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		events, err := a.Store.Events().History(cmd.Context(), user, store.QueryOpts{Limit: limit, After: after})
		if err != nil {
			return err
		}
		for _, e := range events {
			fmt.Printf("%6d  %s  %-24s  %-11s -> %-11s  %s\n",
				e.Sequence, e.Timestamp.Local().Format(time.DateTime), e.ConceptID, e.From, e.To, e.Reason)
		}
		if len(events) == 0 {
			fmt.Println("No events.")
		}
		return nil
	},
}

func init() {
	addUserFlag(historyCmd)
	historyCmd.Flags().Int("limit", 50, "Maximum number of events (0 for all)")
	historyCmd.Flags().Int64("after", 0, "Only events with a sequence greater than this")
}
