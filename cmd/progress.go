package cmd

import (
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnfast/internal/apperr"
	"github.com/abhisek/learnfast/internal/progress"
	"github.com/abhisek/learnfast/internal/ui/components"
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Inspect and change a learner's concept statuses",
}

var progressStatusCmd = &cobra.Command{
	Use:   "status [concept]",
	Short: "Show the status of one concept or of every concept",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		if len(args) == 1 {
			st, err := a.Engine.StatusOf(ctx, user, args[0])
			if err != nil {
				return err
			}
			met, err := a.Engine.PrerequisitesMet(ctx, user, args[0])
			if err != nil {
				return err
			}
			fmt.Printf("%s  %s\n", args[0], components.StatusBadge(st))
			fmt.Printf("Prerequisites met: %s\n", yesNo(met))
			return nil
		}

		statuses, err := a.Engine.Availability(ctx, user)
		if err != nil {
			return err
		}
		ids := make([]string, 0, len(statuses))
		for id := range statuses {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			fmt.Printf("%-28s  %s\n", id, components.StatusBadge(statuses[id]))
		}
		return nil
	},
}

var progressStartCmd = &cobra.Command{
	Use:   "start <concept>",
	Short: "Mark an available concept as in progress",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Engine.Start(cmd.Context(), user, args[0]); err != nil {
			return explainTransition(err)
		}
		fmt.Printf("%s  %s\n", args[0], components.StatusBadge(progress.StatusInProgress))
		return nil
	},
}

var progressCompleteCmd = &cobra.Command{
	Use:   "complete <concept>",
	Short: "Complete a concept and report what it unlocked",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		unlocked, err := a.Engine.Complete(cmd.Context(), user, args[0])
		if err != nil {
			return explainTransition(err)
		}
		fmt.Printf("%s  %s\n", args[0], components.StatusBadge(progress.StatusCompleted))
		for _, id := range unlocked {
			fmt.Printf("  unlocked %s\n", id)
		}
		return nil
	},
}

var progressRestoreCmd = &cobra.Command{
	Use:   "restore",
	Short: "Restore progress from the latest snapshot taken by reset",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		n, err := a.Restore(cmd.Context(), user)
		if err != nil {
			return err
		}
		fmt.Printf("Restored %d concept records for %s\n", n, user)
		return nil
	},
}

func init() {
	for _, c := range []*cobra.Command{progressStatusCmd, progressStartCmd, progressCompleteCmd, progressRestoreCmd} {
		addUserFlag(c)
		progressCmd.AddCommand(c)
	}
}

// explainTransition adds a hint for the common rejection.
func explainTransition(err error) error {
	if errors.Is(err, apperr.ErrPrerequisiteNotMet) {
		return fmt.Errorf("%w (complete its prerequisites first)", err)
	}
	return err
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
