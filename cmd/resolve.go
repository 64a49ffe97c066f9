// Package cmd implements the command-line interface for streamdex.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/streamdex-cli/streamdex/color"
	"github.com/streamdex-cli/streamdex/icon"
	"github.com/streamdex-cli/streamdex/resolver"
	"github.com/streamdex-cli/streamdex/style"
	"github.com/streamdex-cli/streamdex/util"
)

func init() {
	rootCmd.AddCommand(resolveCmd)

	resolveCmd.Flags().StringSliceP("resolver", "r", []string{}, "Pin the resolution to the named plugins, in order")
	resolveCmd.Flags().BoolP("json", "j", false, "Emit the resolution result as JSON")
	resolveCmd.Flags().BoolP("verbose", "V", false, "Show every attempt in the fallback chain")
	resolveCmd.SetOut(os.Stdout)
}

// resolveCmd resolves a directory entry into a playable stream descriptor.
var resolveCmd = &cobra.Command{
	Use:   "resolve <entry-key>",
	Short: "Resolve a directory entry into a playable stream descriptor",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		hint := lo.Must(cmd.Flags().GetStringSlice("resolver"))

		erase := util.PrintErasable(fmt.Sprintf("%s Resolving %s...", icon.Get(icon.Progress), args[0]))
		result, err := c.Resolve(cmd.Context(), args[0], hint)
		erase()
		handleErr(err)

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(os.Stdout).Encode(result))
			return
		}

		if lo.Must(cmd.Flags().GetBool("verbose")) {
			for _, attempt := range result.Attempts {
				cmd.Printf("%s %s %s\n",
					attemptIcon(attempt.Outcome),
					style.Bold(attempt.PluginID),
					style.Faint(string(attempt.Outcome)),
				)
			}
		}

		if !result.Success {
			fmt.Fprintf(os.Stderr, "%s no plugin produced a stream for %s\n", icon.Get(icon.Fail), style.Bold(args[0]))
			os.Exit(1)
		}

		cmd.Printf("%s %s\n", icon.Get(icon.Link), style.Fg(color.Green)(result.Stream.URL))
		if result.Stream.Quality != "" {
			cmd.Printf("  %s %s\n", style.Faint("quality"), result.Stream.Quality)
		}
		for k, v := range result.Stream.Headers {
			cmd.Printf("  %s %s: %s\n", style.Faint("header"), k, v)
		}
		if drm := result.Stream.DRM; drm != nil {
			cmd.Printf("  %s %s %s\n", style.Faint("drm"), drm.Scheme, style.Faint(drm.LicenseURL))
		}
	},
}

func attemptIcon(outcome resolver.Outcome) string {
	if outcome == resolver.OutcomeSuccess {
		return icon.Get(icon.Success)
	}
	return icon.Get(icon.Fail)
}
