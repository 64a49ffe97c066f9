// Package cmd implements the command-line interface for streamdex.
package cmd

import (
	"encoding/json"
	"os"

	"github.com/invopop/jsonschema"
	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/streamdex-cli/streamdex/catalog"
)

func init() {
	rootCmd.AddCommand(schemaCmd)

	schemaCmd.Flags().BoolP("directory", "d", false, "Generate the JSON Schema for the aggregated directory")
	schemaCmd.Flags().BoolP("stream", "s", false, "Generate the JSON Schema for resolved stream descriptors")
	schemaCmd.MarkFlagsMutuallyExclusive("directory", "stream")
	schemaCmd.SetOut(os.Stdout)
}

// schemaCmd generates JSON schemas for the wire formats the application
// consumes and produces. The default output is the config fragment schema
// source maintainers publish against.
var schemaCmd = &cobra.Command{
	Use:   "schema",
	Short: "Generate JSON schemas for config fragments and structured outputs",
	Run: func(cmd *cobra.Command, args []string) {
		reflector := new(jsonschema.Reflector)
		reflector.Anonymous = true

		var schema *jsonschema.Schema

		switch {
		case lo.Must(cmd.Flags().GetBool("directory")):
			schema = reflector.Reflect(&catalog.Directory{})
		case lo.Must(cmd.Flags().GetBool("stream")):
			schema = reflector.Reflect(&catalog.StreamDescriptor{})
		default:
			schema = reflector.Reflect(&catalog.Fragment{})
		}

		handleErr(json.NewEncoder(os.Stdout).Encode(schema))
	},
}
