// Package cmd implements the command-line interface for streamdex.
package cmd

import (
	"fmt"
	"os"

	"github.com/AlecAivazis/survey/v2"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/streamdex-cli/streamdex/color"
	"github.com/streamdex-cli/streamdex/icon"
	"github.com/streamdex-cli/streamdex/registry"
	"github.com/streamdex-cli/streamdex/style"
)

func init() {
	rootCmd.AddCommand(sourcesCmd)
}

// sourcesCmd provides a parent command for managing subscribed config sources.
var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage subscribed config sources",
}

// sourceIDCompletion offers registered source ids as shell completions.
func sourceIDCompletion(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
	c := openCore()
	defer c.Close()

	return lo.Map(c.Sources().Snapshot(), func(src *registry.ConfigSource, _ int) string {
		return src.ID
	}), cobra.ShellCompDirectiveNoFileComp
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)

	sourcesListCmd.Flags().BoolP("raw", "r", false, "Suppress header and metadata descriptions in the output")
	sourcesListCmd.Flags().BoolP("enabled", "e", false, "Display only enabled sources")
	sourcesListCmd.SetOut(os.Stdout)
}

// sourcesListCmd displays a summary of all subscribed config sources.
var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "Display all subscribed config sources and their health",
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		raw := lo.Must(cmd.Flags().GetBool("raw"))
		enabledOnly := lo.Must(cmd.Flags().GetBool("enabled"))

		sources := c.Sources().Snapshot()
		if enabledOnly {
			sources = lo.Filter(sources, func(src *registry.ConfigSource, _ int) bool {
				return src.Enabled
			})
		}

		for _, src := range sources {
			if raw {
				cmd.Println(src.ID)
				continue
			}

			marker := " "
			if src.Primary {
				marker = style.Fg(color.Yellow)("*")
			}

			state := style.Fg(color.Red)("disabled")
			if src.Enabled {
				state = style.Fg(color.Green)("enabled")
			}

			cmd.Printf("%s %s %s priority=%d health=%s\n%s\n",
				marker,
				style.Bold(src.ID),
				state,
				src.Priority,
				healthStyle(src.Health),
				style.Faint("  "+src.URL),
			)
		}
	},
}

func healthStyle(h registry.Health) string {
	switch h {
	case registry.HealthHealthy:
		return style.Fg(color.Green)(string(h))
	case registry.HealthWarning:
		return style.Fg(color.Yellow)(string(h))
	case registry.HealthError:
		return style.Fg(color.Red)(string(h))
	default:
		return style.Faint(string(h))
	}
}

func init() {
	sourcesCmd.AddCommand(sourcesAddCmd)

	sourcesAddCmd.Flags().StringP("id", "i", "", "Unique identifier for the new source")
	sourcesAddCmd.Flags().StringP("url", "u", "", "URL of the remote config document")
	sourcesAddCmd.Flags().StringP("name", "n", "", "Human-readable display name")
	sourcesAddCmd.Flags().IntP("priority", "p", 0, "Merge conflict priority, higher wins")
	sourcesAddCmd.Flags().Bool("primary", false, "Mark the source as primary")
	sourcesAddCmd.Flags().Bool("disabled", false, "Register without enabling")

	lo.Must0(sourcesAddCmd.MarkFlagRequired("id"))
	lo.Must0(sourcesAddCmd.MarkFlagRequired("url"))
}

// sourcesAddCmd subscribes a new config source.
var sourcesAddCmd = &cobra.Command{
	Use:   "add",
	Short: "Subscribe a new config source",
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		src := registry.ConfigSource{
			ID:       lo.Must(cmd.Flags().GetString("id")),
			URL:      lo.Must(cmd.Flags().GetString("url")),
			Name:     lo.Must(cmd.Flags().GetString("name")),
			Priority: lo.Must(cmd.Flags().GetInt("priority")),
			Primary:  lo.Must(cmd.Flags().GetBool("primary")),
			Enabled:  !lo.Must(cmd.Flags().GetBool("disabled")),
		}

		handleErr(c.RegisterSource(src))
		fmt.Printf("%s subscribed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(src.ID))
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesRemoveCmd)

	sourcesRemoveCmd.Flags().BoolP("force", "f", false, "Skip the confirmation prompt")
	lo.Must0(sourcesRemoveCmd.RegisterFlagCompletionFunc("force", cobra.NoFileCompletions))
	sourcesRemoveCmd.ValidArgsFunction = sourceIDCompletion
}

// sourcesRemoveCmd unsubscribes config sources.
var sourcesRemoveCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Unsubscribe config sources",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		force := lo.Must(cmd.Flags().GetBool("force"))

		for _, id := range args {
			if !force {
				confirm := survey.Confirm{
					Message: fmt.Sprintf("Remove source %s?", id),
					Default: false,
				}
				var response bool
				handleErr(survey.AskOne(&confirm, &response))

				if !response {
					continue
				}
			}

			handleErr(c.RemoveSource(id))
			fmt.Printf("%s removed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(id))
		}
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesEnableCmd)
	sourcesEnableCmd.ValidArgsFunction = sourceIDCompletion

	sourcesCmd.AddCommand(sourcesDisableCmd)
	sourcesDisableCmd.ValidArgsFunction = sourceIDCompletion

	sourcesCmd.AddCommand(sourcesPrimaryCmd)
	sourcesPrimaryCmd.ValidArgsFunction = sourceIDCompletion
}

// sourcesEnableCmd re-enables sources for aggregation.
var sourcesEnableCmd = &cobra.Command{
	Use:   "enable <id>...",
	Short: "Enable sources for aggregation",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		for _, id := range args {
			handleErr(c.SetSourceEnabled(id, true))
			fmt.Printf("%s enabled %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(id))
		}
	},
}

// sourcesDisableCmd excludes sources from aggregation without unsubscribing.
var sourcesDisableCmd = &cobra.Command{
	Use:   "disable <id>...",
	Short: "Exclude sources from aggregation without unsubscribing",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		for _, id := range args {
			handleErr(c.SetSourceEnabled(id, false))
			fmt.Printf("%s disabled %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(id))
		}
	},
}

// sourcesPrimaryCmd marks one source as primary.
var sourcesPrimaryCmd = &cobra.Command{
	Use:   "primary <id>",
	Short: "Mark one source as the preferred tie-break source",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		handleErr(c.SetPrimarySource(args[0]))
		fmt.Printf("%s %s is now the primary source\n", icon.Get(icon.Success), style.Fg(color.Yellow)(args[0]))
	},
}
