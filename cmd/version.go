package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/abhisek/learnfast/internal/catalog"
)

// version is set via -ldflags at build time.
var version = "(devel)"

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the current version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("learnfast", version)
		fmt.Println("catalog format", catalog.SupportedMajor)
	},
}
