package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnfast/internal/catalog"
	"github.com/abhisek/learnfast/internal/conceptgraph"
)

var conceptCmd = &cobra.Command{
	Use:   "concept",
	Short: "Browse and edit the concept graph",
}

var conceptListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all concepts in topological order",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		all, err := a.Graph.Concepts(cmd.Context())
		if err != nil {
			return err
		}
		ordered, err := conceptgraph.TopoSort(all, func(x, y conceptgraph.Concept) bool { return x.ID < y.ID })
		if err != nil {
			return err
		}
		printConcepts(ordered)
		return nil
	},
}

var conceptRootsCmd = &cobra.Command{
	Use:   "roots",
	Short: "List concepts without prerequisites",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		roots, err := a.Engine.Roots(cmd.Context())
		if err != nil {
			return err
		}
		printConcepts(roots)
		return nil
	},
}

var conceptShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show a concept with its prerequisites and dependents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ctx := cmd.Context()
		c, err := a.Graph.Concept(ctx, args[0])
		if err != nil {
			return err
		}
		deps, err := a.Graph.Dependents(ctx, c.ID)
		if err != nil {
			return err
		}
		chunks, err := a.Chunks.Chunks(ctx, c.ID, "")
		if err != nil {
			return err
		}

		fmt.Printf("%s (%s)\n", c.DisplayName(), c.ID)
		if c.Description != "" {
			fmt.Println(c.Description)
		}
		fmt.Printf("Estimated:     %d min\n", c.EstimatedMinutes)
		fmt.Printf("Prerequisites: %s\n", joinOrDash(c.Prerequisites))
		fmt.Printf("Dependents:    %s\n", joinOrDash(deps))
		fmt.Printf("Chunks:        %d\n", len(chunks))
		return nil
	},
}

var conceptPreviewCmd = &cobra.Command{
	Use:   "preview <id>",
	Short: "Show the concepts a root leads to, breadth first",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		depth, _ := cmd.Flags().GetInt("depth")

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		ids, err := a.Engine.Preview(cmd.Context(), args[0], depth)
		if err != nil {
			return err
		}
		for i, id := range ids {
			fmt.Printf("%2d. %s\n", i+1, id)
		}
		return nil
	},
}

var conceptLinkCmd = &cobra.Command{
	Use:   "link <prerequisite> <concept>",
	Short: "Record that <prerequisite> must be completed before <concept>",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Graph.UpsertPrerequisite(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s -> %s\n", args[0], args[1])
		return nil
	},
}

var conceptUnlinkCmd = &cobra.Command{
	Use:   "unlink <prerequisite> <concept>",
	Short: "Remove the prerequisite link from <prerequisite> to <concept>",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		if err := a.Graph.RemovePrerequisite(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s -/-> %s\n", args[0], args[1])
		return nil
	},
}

var conceptImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Import a YAML or JSON concept catalog",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		doc, err := catalog.Load(args[0])
		if err != nil {
			return err
		}

		a, err := openApp(cmd)
		if err != nil {
			return err
		}
		defer a.Close()

		res, err := a.Import(cmd.Context(), doc)
		if err != nil {
			return err
		}
		fmt.Printf("Imported %d concepts, %d prerequisite links, %d chunks (catalog %s)\n",
			res.Concepts, res.Edges, res.Chunks, doc.Version)

		if purge, _ := cmd.Flags().GetBool("purge-cache"); purge {
			purged, err := a.PurgeCache()
			if err != nil {
				return err
			}
			if purged {
				fmt.Println("Chunk cache purged")
			} else {
				fmt.Println("No chunk cache configured")
			}
		}
		return nil
	},
}

func init() {
	conceptPreviewCmd.Flags().Int("depth", 3, "Maximum number of prerequisite links to follow")
	conceptImportCmd.Flags().Bool("purge-cache", false, "Drop the whole chunk cache after importing")

	conceptCmd.AddCommand(conceptListCmd)
	conceptCmd.AddCommand(conceptRootsCmd)
	conceptCmd.AddCommand(conceptShowCmd)
	conceptCmd.AddCommand(conceptPreviewCmd)
	conceptCmd.AddCommand(conceptLinkCmd)
	conceptCmd.AddCommand(conceptUnlinkCmd)
	conceptCmd.AddCommand(conceptImportCmd)
}

func printConcepts(concepts []conceptgraph.Concept) {
	fmt.Printf("%-28s  %-36s  %5s  %s\n", "ID", "Name", "Min", "Prerequisites")
	fmt.Println(strings.Repeat("─", 96))
	for _, c := range concepts {
		name := c.DisplayName()
		if len(name) > 36 {
			name = name[:33] + "..."
		}
		fmt.Printf("%-28s  %-36s  %5d  %s\n", c.ID, name, c.EstimatedMinutes, joinOrDash(c.Prerequisites))
	}
	fmt.Printf("\n%d concepts\n", len(concepts))
}

func joinOrDash(ids []string) string {
	if len(ids) == 0 {
		return "-"
	}
	return strings.Join(ids, ", ")
}
