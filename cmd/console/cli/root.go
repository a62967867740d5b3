// Package cli holds the console command tree.
package cli

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the console root command.
func NewRootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:          "console",
		Short:        "Kompello Console",
		Long:         "Server-rendered admin console for the Kompello API.",
		SilenceUsage: true,
	}
	cmd.AddCommand(NewServeCommand())
	cmd.AddCommand(NewWhoamiCommand())
	return cmd
}
