package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gogpu/ggframe/backend"
	_ "github.com/gogpu/ggframe/backend/soft"
	_ "github.com/gogpu/ggframe/backend/wgpu"
)

func newBackendsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "backends",
		Short: "List the registered backends",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, args []string) {
			for _, name := range backend.Available() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
		},
	}
}
