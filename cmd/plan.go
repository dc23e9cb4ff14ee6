package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnfast/internal/pathing"
	"github.com/abhisek/learnfast/internal/ui/components"
)

var planCmd = &cobra.Command{
	Use:   "plan",
	Short: "Plan a path toward a target concept within a time budget",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		target, _ := cmd.Flags().GetString("target")
		budget, _ := cmd.Flags().GetInt("budget")
		strategyVal, _ := cmd.Flags().GetString("strategy")
		if prefix, _ := cmd.Flags().GetBool("prefix"); prefix {
			strategyVal = string(pathing.StrategyPrefix)
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if strategyVal != "" {
			s, err := pathing.ParseStrategy(strategyVal)
			if err != nil {
				return err
			}
			a.Resolver.Strategy = s
		}

		plan, err := a.Resolver.Resolve(cmd.Context(), user, target, budget)
		if err != nil {
			return err
		}
		printPlan(plan)
		return nil
	},
}

func init() {
	addUserFlag(planCmd)
	addTargetFlags(planCmd)
	planCmd.Flags().String("strategy", "", "Selection strategy: greedy, exact, auto or prefix (default from config)")
	planCmd.Flags().Bool("prefix", false, "Keep the longest prefix of the full path that fits (same as --strategy prefix)")
}

func addTargetFlags(cmd *cobra.Command) {
	cmd.Flags().StringP("target", "t", "", "Target concept id (required)")
	cmd.Flags().IntP("budget", "b", 60, "Time budget in minutes")
	_ = cmd.MarkFlagRequired("target")
}

func printPlan(plan *pathing.Plan) {
	if len(plan.Entries) == 0 && plan.Skipped == nil {
		fmt.Printf("%s is already completed.\n", plan.Target)
		return
	}
	fmt.Printf("%-4s  %-28s  %-32s  %5s  %5s\n", "#", "ID", "Name", "Min", "Total")
	for i, e := range plan.Entries {
		fmt.Printf("%-4d  %-28s  %-32s  %5d  %5d\n", i+1, e.ConceptID, e.Name, e.AllottedMinutes, e.CumulativeMinutes)
	}
	fmt.Println()
	fmt.Println(components.NewBudgetBar("Budget", plan.TotalMinutes, plan.Budget, 60).View())
	fmt.Printf("Remaining path: %d min for %d concepts (budget %d min)\n",
		plan.RemainingMinutes, len(plan.Entries)+len(plan.Skipped), plan.Budget)
	if !plan.IncludesTarget() {
		fmt.Printf("Target %s does not fit the budget yet.\n", plan.Target)
	}
	if plan.Pruned {
		fmt.Printf("Left for later: %s\n", joinOrDash(plan.Skipped))
	}
}
