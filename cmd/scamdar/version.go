package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/hyperifyio/scamdar/internal/app"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), app.VersionString())
		},
	}
}
