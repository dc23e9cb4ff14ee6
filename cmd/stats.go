package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnfast/internal/progress"
	"github.com/abhisek/learnfast/internal/ui/components"
)

var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Show learning statistics",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		statuses, err := a.Engine.Availability(ctx, user)
		if err != nil {
			return err
		}
		sum, err := a.Store.Summary(ctx)
		if err != nil {
			return err
		}
		events, err := a.Store.Events().Count(ctx, user)
		if err != nil {
			return err
		}

		counts := make(map[progress.Status]int)
		for _, st := range statuses {
			counts[st]++
		}

		lines := []string{
			components.KeyValue("Concepts", fmt.Sprint(len(statuses)), 14),
		}
		for _, st := range []progress.Status{progress.StatusCompleted, progress.StatusInProgress, progress.StatusAvailable, progress.StatusLocked} {
			lines = append(lines, components.KeyValue(st.Label(), fmt.Sprintf("%d  %s", counts[st], components.StatusBadge(st)), 14))
		}
		lines = append(lines,
			components.KeyValue("Events", fmt.Sprint(events), 14),
			components.KeyValue("Chunks", fmt.Sprint(sum.Chunks), 14),
			"",
			components.NewBudgetBar("Done", counts[progress.StatusCompleted], len(statuses), 50).View(),
		)
		fmt.Println(components.Card("Progress for "+user, lines, components.ContentWidth(80)))
		return nil
	},
}

func init() {
	addUserFlag(statsCmd)
}
