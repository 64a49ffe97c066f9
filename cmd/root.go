// Package cmd implements the command-line interface for streamdex.
package cmd

import (
	"fmt"
	"os"
	"strings"

	cc "github.com/ivanpirog/coloredcobra"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"github.com/streamdex-cli/streamdex/color"
	"github.com/streamdex-cli/streamdex/constant"
	"github.com/streamdex-cli/streamdex/core"
	"github.com/streamdex-cli/streamdex/icon"
	"github.com/streamdex-cli/streamdex/key"
	"github.com/streamdex-cli/streamdex/log"
	"github.com/streamdex-cli/streamdex/resolver"
	"github.com/streamdex-cli/streamdex/style"
	"github.com/streamdex-cli/streamdex/util"
	"github.com/streamdex-cli/streamdex/version"
	"github.com/streamdex-cli/streamdex/where"
)

func init() {
	rootCmd.Flags().BoolP("version", "v", false, "Print the application version")

	rootCmd.PersistentFlags().StringP("icons", "I", "", "Set the visual icon variant (e.g., nerd, emoji, plain)")
	lo.Must0(rootCmd.RegisterFlagCompletionFunc("icons", func(cmd *cobra.Command, args []string, toComplete string) ([]string, cobra.ShellCompDirective) {
		return icon.AvailableVariants(), cobra.ShellCompDirectiveDefault
	}))
	lo.Must0(viper.BindPFlag(key.IconsVariant, rootCmd.PersistentFlags().Lookup("icons")))

	helpFunc := rootCmd.HelpFunc()
	rootCmd.SetHelpFunc(func(cmd *cobra.Command, args []string) {
		helpFunc(cmd, args)
		version.Notify()
	})

	// Initialize cleanup of localized temporary files on application startup.
	go func() {
		_ = util.Delete(where.Temp())
	}()
}

// rootCmd defines the entry point for the streamdex application.
var rootCmd = &cobra.Command{
	Use:   constant.Streamdex,
	Short: "A command-line media catalog aggregator with pluggable stream resolution",
	Long: constant.Streamdex + "\n" +
		style.New().Italic(true).Foreground(color.HiRed).Render("    - Aggregate remote config sources into one deduplicated, quality-ranked site directory"),
	Run: func(cmd *cobra.Command, args []string) {
		if cmd.Flags().Changed("version") {
			versionCmd.Run(versionCmd, args)
			return
		}

		handleErr(cmd.Help())
	},
}

// Execute initializes child command routing and processes the CLI entry point.
func Execute() {
	if viper.GetBool(key.CliColored) {
		cc.Init(&cc.Config{
			RootCmd:       rootCmd,
			Headings:      cc.HiCyan + cc.Bold + cc.Underline,
			Commands:      cc.HiYellow + cc.Bold,
			Example:       cc.Italic,
			ExecName:      cc.Bold,
			Flags:         cc.Bold,
			FlagsDataType: cc.Italic + cc.HiBlue,
		})
	}

	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}

// openCore constructs the aggregation service and loads installed resolver
// plugins. Commands share this single construction path.
func openCore() *core.Core {
	c, err := core.Open(core.Options{})
	handleErr(err)
	handleErr(pluginStore().LoadAll(c.Plugins()))
	return c
}

func pluginStore() *resolver.Store {
	return resolver.NewStore(where.Plugins())
}

func handleErr(err error) {
	if err != nil {
		log.Error(err)
		_, _ = fmt.Fprintf(os.Stderr, "%s %s\n", icon.Get(icon.Fail), strings.Trim(err.Error(), " \n"))
		os.Exit(1)
	}
}
