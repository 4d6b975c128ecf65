package cmd

import (
	"fmt"

	"github.com/fastly/js-compute-runtime-sub002/core"
	"github.com/spf13/cobra"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintln(cmd.OutOrStdout(), "js-compute-runtime "+core.Version)
	},
}
