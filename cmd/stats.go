// Package cmd implements the command-line interface for streamdex.
package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"text/template"

	"github.com/samber/lo"
	"github.com/spf13/cobra"
	"github.com/streamdex-cli/streamdex/color"
	"github.com/streamdex-cli/streamdex/style"
)

func init() {
	rootCmd.AddCommand(statsCmd)

	statsCmd.Flags().BoolP("json", "j", false, "Emit statistics as JSON")
	statsCmd.SetOut(os.Stdout)
}

// statsCmd displays aggregation service statistics.
var statsCmd = &cobra.Command{
	Use:   "stats",
	Short: "Display source, directory and cache statistics",
	Run: func(cmd *cobra.Command, args []string) {
		c := openCore()
		defer c.Close()

		stats := c.Statistics()

		if lo.Must(cmd.Flags().GetBool("json")) {
			handleErr(json.NewEncoder(os.Stdout).Encode(stats))
			return
		}

		t, err := template.New("stats").Funcs(map[string]any{
			"faint":   style.Faint,
			"bold":    style.Bold,
			"magenta": style.Fg(color.Purple),
			"percent": func(v float64) string {
				return fmt.Sprintf("%.0f%%", v*100)
			},
		}).Parse(`{{ magenta "▇▇▇" }} {{ magenta "directory statistics" }}

  {{ faint "Sources" }}          {{ bold (printf "%d" .ActiveSources) }}/{{ printf "%d" .TotalSources }} enabled
  {{ faint "Unique Sites" }}     {{ bold (printf "%d" .UniqueSites) }} {{ faint (printf "(%d origins)" .TotalSites) }}
  {{ faint "Last Aggregated" }}  {{ if .LastAggregatedAt.IsZero }}{{ faint "never" }}{{ else }}{{ bold (.LastAggregatedAt.Format "2006-01-02 15:04:05") }}{{ end }}
  {{ faint "Avg Fetch" }}        {{ bold (printf "%v" .AverageFetchLatency) }}
  {{ faint "Fetch Success" }}    {{ bold (percent .FetchSuccessRate) }}
  {{ faint "Cache Hits" }}       {{ bold (percent .CacheHitRate) }}
`)
		handleErr(err)
		handleErr(t.Execute(cmd.OutOrStdout(), stats))
	},
}
