// Package cli holds the cobra commands behind the schoold binary.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand builds the schoold command tree:
//
//	schoold serve
//	schoold migrate up|down|version
func NewRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "schoold",
		Short: "School management backend",
		Long: `schoold serves the school management HTTP API: student and teacher
registration, bearer-token login, the course catalog and student records.

Configuration comes from environment variables (see internal/config).`,
		SilenceUsage: true,
	}

	root.AddCommand(newServeCommand())
	root.AddCommand(newMigrateCommand())
	return root
}
