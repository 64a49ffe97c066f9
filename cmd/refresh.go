// Package cmd implements the command-line interface for streamdex.
package cmd

import (
	"fmt"

	"github.com/muesli/reflow/wordwrap"
	"github.com/spf13/cobra"
	"github.com/streamdex-cli/streamdex/color"
	"github.com/streamdex-cli/streamdex/icon"
	"github.com/streamdex-cli/streamdex/style"
	"github.com/streamdex-cli/streamdex/util"
)

func init() {
	rootCmd.AddCommand(refreshCmd)
}

// refreshCmd forces a full aggregation cycle, bypassing the cached directory.
var refreshCmd = &cobra.Command{
	Use:   "refresh",
	Short: "Refetch every enabled source and rebuild the directory",
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		erase := util.PrintErasable(fmt.Sprintf("%s Aggregating sources...", icon.Get(icon.Progress)))
		dir, err := c.Directory(cmd.Context(), true)
		erase()
		handleErr(err)

		fmt.Printf("%s directory rebuilt: %s across %s\n",
			icon.Get(icon.Success),
			style.Bold(util.Quantify(len(dir.Entries), "unique site", "unique sites")),
			util.Quantify(len(dir.Categories), "category", "categories"),
		)

		for _, failure := range dir.Failures {
			reason := wordwrap.String(failure.Reason, util.TerminalWidth())
			fmt.Printf("%s %s %s\n",
				icon.Get(icon.Fail),
				style.Fg(color.Yellow)(failure.SourceID),
				style.Faint(reason),
			)
		}
	},
}
