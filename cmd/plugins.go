// Package cmd implements the command-line interface for streamdex.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"
	"github.com/streamdex-cli/streamdex/catalog"
	"github.com/streamdex-cli/streamdex/color"
	"github.com/streamdex-cli/streamdex/filesystem"
	"github.com/streamdex-cli/streamdex/icon"
	"github.com/streamdex-cli/streamdex/resolver"
	"github.com/streamdex-cli/streamdex/style"
	"github.com/streamdex-cli/streamdex/util"
)

func init() {
	rootCmd.AddCommand(pluginsCmd)
}

// pluginsCmd provides a parent command for managing resolver plugins.
var pluginsCmd = &cobra.Command{
	Use:   "plugins",
	Short: "Manage resolver plugins",
}

func init() {
	pluginsCmd.AddCommand(pluginsListCmd)

	pluginsListCmd.Flags().BoolP("raw", "r", false, "Suppress metadata in the output")
	pluginsListCmd.SetOut(os.Stdout)
}

// pluginsListCmd displays installed resolver plugins and their load state.
var pluginsListCmd = &cobra.Command{
	Use:   "list",
	Short: "Display installed resolver plugins and their load state",
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		installed, err := pluginStore().Installed()
		handleErr(err)

		raw := lo.Must(cmd.Flags().GetBool("raw"))

		for _, p := range installed {
			if raw {
				cmd.Println(p.Descriptor.ID)
				continue
			}

			state := "unverified"
			if loaded, ok := c.Plugins().Get(p.Descriptor.ID); ok {
				state = string(loaded.State)
			}

			formats := strings.Join(p.Descriptor.SupportedFormats, ",")
			if formats == "" {
				formats = "any"
			}

			cmd.Printf("%s %s %s priority=%d formats=%s\n",
				icon.Get(icon.Lua),
				style.Bold(p.Descriptor.ID),
				pluginStateStyle(state),
				p.Descriptor.Priority,
				formats,
			)
		}
	},
}

func pluginStateStyle(state string) string {
	switch state {
	case string(resolver.StateLoaded):
		return style.Fg(color.Green)(state)
	case string(resolver.StateRejected):
		return style.Fg(color.Red)(state)
	default:
		return style.Faint(state)
	}
}

func init() {
	pluginsCmd.AddCommand(pluginsInstallCmd)

	pluginsInstallCmd.Flags().StringP("file", "f", "", "Path to the plugin script")
	pluginsInstallCmd.Flags().StringP("id", "i", "", "Unique plugin identifier")
	pluginsInstallCmd.Flags().StringP("name", "n", "", "Human-readable display name")
	pluginsInstallCmd.Flags().StringP("checksum", "c", "", "Expected SHA-256 checksum, computed from the file when omitted")
	pluginsInstallCmd.Flags().IntP("priority", "p", 0, "Fallback chain priority, higher runs first")
	pluginsInstallCmd.Flags().StringSlice("formats", []string{}, "Supported site kinds, empty matches everything")

	lo.Must0(pluginsInstallCmd.MarkFlagRequired("file"))
	lo.Must0(pluginsInstallCmd.MarkFlagRequired("id"))
}

// pluginsInstallCmd validates and installs a resolver plugin script.
var pluginsInstallCmd = &cobra.Command{
	Use:   "install",
	Short: "Validate and install a resolver plugin script",
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		path := lo.Must(cmd.Flags().GetString("file"))
		data, err := afero.ReadFile(filesystem.API(), path)
		handleErr(err)

		checksum := lo.Must(cmd.Flags().GetString("checksum"))
		if checksum == "" {
			checksum = resolver.Checksum(data)
		}

		name := lo.Must(cmd.Flags().GetString("name"))
		if name == "" {
			name = util.FileStem(path)
		}

		desc := catalog.ResolverDescriptor{
			ID:               lo.Must(cmd.Flags().GetString("id")),
			Name:             name,
			Checksum:         checksum,
			Priority:         lo.Must(cmd.Flags().GetInt("priority")),
			SupportedFormats: lo.Must(cmd.Flags().GetStringSlice("formats")),
		}

		// Loading first proves the script compiles and defines the entry
		// point before anything touches the plugin directory.
		_, err = c.LoadPlugin(desc, data)
		handleErr(err)

		handleErr(pluginStore().Install(desc, data))
		fmt.Printf("%s installed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(desc.ID))
	},
}

func init() {
	pluginsCmd.AddCommand(pluginsRemoveCmd)
}

// pluginsRemoveCmd uninstalls resolver plugins.
var pluginsRemoveCmd = &cobra.Command{
	Use:   "remove <id>...",
	Short: "Uninstall resolver plugins",
	Args:  cobra.MinimumNArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		for _, id := range args {
			c.UnloadPlugin(id)
			handleErr(pluginStore().Remove(id))
			fmt.Printf("%s removed %s\n", icon.Get(icon.Success), style.Fg(color.Yellow)(id))
		}
	},
}
