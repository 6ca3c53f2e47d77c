package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"loom/internal/errctx"
)

var tagsCmd = &cobra.Command{
	Use:   "tags",
	Short: "List every call site a panic report can name",
	Long:  `List every call site, in the form accepted by "loom run --panic-on"`,
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		out := cmd.OutOrStdout()
		for _, ct := range errctx.All() {
			fmt.Fprintln(out, ct)
		}
		return nil
	},
}
