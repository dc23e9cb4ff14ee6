package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Reset a learner's progress (a snapshot is kept for restore)",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		id, err := a.Reset(cmd.Context(), user)
		if err != nil {
			return err
		}
		if id == 0 {
			fmt.Printf("Nothing stored for %s.\n", user)
			return nil
		}
		fmt.Printf("Progress for %s reset. Snapshot %d saved; run `learnfast progress restore --user %s` to undo.\n", user, id, user)
		return nil
	},
}

func init() {
	addUserFlag(resetCmd)
}
