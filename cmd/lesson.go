package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnfast/internal/lessons"
	"github.com/abhisek/learnfast/internal/ui/components"
)

var lessonCmd = &cobra.Command{
	Use:   "lesson",
	Short: "Assemble lesson content for a budgeted path toward a target",
	RunE: func(cmd *cobra.Command, args []string) error {
		user, _ := cmd.Flags().GetString("user")
		target, _ := cmd.Flags().GetString("target")
		budget, _ := cmd.Flags().GetInt("budget")
		query, _ := cmd.Flags().GetString("query")
		modeVal, _ := cmd.Flags().GetString("mode")
		markdown, _ := cmd.Flags().GetBool("markdown")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if modeVal != "" {
			mode, err := lessons.ParseMode(modeVal)
			if err != nil {
				return err
			}
			cfg := a.Config.Assembler
			cfg.Mode = mode
			a.Assembler = lessons.NewAssembler(a.Chunks, a.Graph, cfg, a.Log)
		}

		_, bundle, err := a.Lesson(cmd.Context(), user, target, budget, query)
		if err != nil {
			return err
		}

		if markdown {
			fmt.Print(lessons.RenderMarkdown(bundle))
			return nil
		}
		for i, s := range bundle.Sections {
			mark := ""
			if s.Truncated {
				mark = " (partial)"
			}
			fmt.Printf("%2d. %-32s  %2d/%-2d chunks  %4d min%s\n", i+1, s.Name, len(s.Chunks), s.Available, s.Minutes, mark)
		}
		fmt.Println()
		fmt.Println(components.NewBudgetBar("Content", bundle.TotalMinutes, bundle.Budget, 60).View())
		return nil
	},
}

func init() {
	addUserFlag(lessonCmd)
	addTargetFlags(lessonCmd)
	lessonCmd.Flags().StringP("query", "q", "", "Focus query used to rank chunks")
	lessonCmd.Flags().String("mode", "", "Packing mode: sequential or coverage (default from config)")
	lessonCmd.Flags().Bool("markdown", false, "Print the assembled lesson as Markdown")
}
