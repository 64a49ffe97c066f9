package core

import (
	"time"

	"github.com/streamdex-cli/streamdex/constant"
)

// Statistics summarizes the current state of the aggregation service.
type Statistics struct {
	TotalSources  int `json:"total_sources"`
	ActiveSources int `json:"active_sources"`

	// TotalSites counts every origin occurrence; UniqueSites counts
	// deduplicated directory entries.
	TotalSites  int `json:"total_sites"`
	UniqueSites int `json:"unique_sites"`

	LastAggregatedAt time.Time `json:"last_aggregated_at"`

	AverageFetchLatency time.Duration `json:"average_fetch_latency"`
	FetchSuccessRate    float64       `json:"fetch_success_rate"`
	CacheHitRate        float64       `json:"cache_hit_rate"`
}

// Statistics computes service statistics from the registry fetch histories
// and the cached directory. It never triggers an aggregation.
func (c *Core) Statistics() Statistics {
	var stats Statistics

	var (
		attempts  int
		successes int
		latency   time.Duration
	)
	for _, src := range c.registry.Snapshot() {
		stats.TotalSources++
		if src.Enabled {
			stats.ActiveSources++
		}
		for _, outcome := range src.History {
			attempts++
			if outcome.Success {
				successes++
				latency += outcome.Latency
			}
		}
	}
	if successes > 0 {
		stats.AverageFetchLatency = latency / time.Duration(successes)
	}
	if attempts > 0 {
		stats.FetchSuccessRate = float64(successes) / float64(attempts)
	}

	if dir, ok := c.directory.Peek(constant.DirectoryCacheKey); ok && dir != nil {
		stats.UniqueSites = len(dir.Entries)
		for _, entry := range dir.Entries {
			stats.TotalSites += len(entry.OriginURLs)
		}
		stats.LastAggregatedAt = dir.GeneratedAt
	}

	hits, misses := c.directory.Metrics()
	if total := hits + misses; total > 0 {
		stats.CacheHitRate = float64(hits) / float64(total)
	}

	return stats
}
