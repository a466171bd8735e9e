package main

import (
	"github.com/spf13/cobra"
)

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "ggframe",
		Short:         "ggframe runs a staged, double-buffered frame pipeline",
		Long:          `ggframe drives the Setup, Extract, Prepare, Render and Cleanup stages over a demo scene of text labels and vector images.`,
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.PersistentFlags().String("config", "", "YAML configuration file")
	root.AddCommand(newRunCmd(), newBackendsCmd(), newVersionCmd())
	return root
}
