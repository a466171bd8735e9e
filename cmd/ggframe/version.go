package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/ggframe"
)

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version number of ggframe",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "ggframe version %s\n", ggframe.Version)
		},
	}
}
