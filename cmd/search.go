// Package cmd implements the command-line interface for streamdex.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/streamdex-cli/streamdex/color"
	"github.com/streamdex-cli/streamdex/icon"
	"github.com/streamdex-cli/streamdex/style"
	"github.com/streamdex-cli/streamdex/util"
)

func init() {
	rootCmd.AddCommand(searchCmd)

	searchCmd.Flags().BoolP("json", "j", false, "Emit matches as a JSON array")
	searchCmd.SetOut(os.Stdout)
}

// searchCmd fuzzy-searches the aggregated directory.
var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Search the aggregated site directory",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		query := strings.Join(args, " ")
		entries, err := c.Search(cmd.Context(), query)
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(os.Stdout).Encode(entries))
			return
		}

		if len(entries) == 0 {
			fmt.Printf("%s no sites match %s\n", icon.Get(icon.Search), style.Bold(query))
			return
		}

		for _, entry := range entries {
			cmd.Printf("%s %s %s score=%.2f %s\n",
				icon.Get(icon.Mark),
				style.Bold(entry.Key),
				style.Fg(color.Cyan)(entry.Kind),
				entry.QualityScore,
				style.Faint(util.Quantify(len(entry.OriginURLs), "origin", "origins")),
			)
		}
	},
}
