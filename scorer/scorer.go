// Package scorer computes quality and reliability trust metrics for config sources.
//
// Both scores are pure functions of their inputs and live in [0,1]: the
// aggregation engine feeds them into conflict resolution, and staleness
// penalties keep rotting sources from outranking fresh ones.
package scorer

import (
	"time"

	"github.com/spf13/viper"
	"github.com/streamdex-cli/streamdex/catalog"
	"github.com/streamdex-cli/streamdex/key"
	"github.com/streamdex-cli/streamdex/registry"
	"github.com/streamdex-cli/streamdex/util"
	"golang.org/x/exp/slices"
)

// Reliability computes an exponentially-weighted success rate over the last
// window fetch attempts. Outcomes decay by factor per step away from the most
// recent attempt, so recent failures matter more. An empty history scores a
// neutral 0.5.
func Reliability(history []registry.FetchOutcome, window int, decay float64) float64 {
	if window <= 0 || decay <= 0 || decay > 1 {
		return 0.5
	}

	if len(history) > window {
		history = history[len(history)-window:]
	}
	if len(history) == 0 {
		return 0.5
	}

	var weighted, total float64
	weight := 1.0
	for i := len(history) - 1; i >= 0; i-- {
		if history[i].Success {
			weighted += weight
		}
		total += weight
		weight *= decay
	}

	return util.Clamp(weighted/total, 0, 1)
}

// Quality derives a source's quality score from its reliability and the median
// age of its site entries: a median age beyond the staleness threshold is
// penalized proportionally, up to halving the score at twice the threshold.
func Quality(reliability float64, medianAge, staleness time.Duration) float64 {
	quality := reliability

	if staleness > 0 && medianAge > staleness {
		excess := float64(medianAge-staleness) / float64(staleness)
		penalty := util.Clamp(excess*0.5, 0, 0.5)
		quality *= 1 - penalty
	}

	return util.Clamp(quality, 0, 1)
}

// MedianEntryAge computes the median age of the fragment's dated site entries
// relative to now. Entries without a freshness timestamp are skipped; a
// fragment with no dated entries reports zero age and takes no penalty.
func MedianEntryAge(fragment *catalog.Fragment, now time.Time) time.Duration {
	var ages []time.Duration
	for _, site := range fragment.Sites {
		if site.UpdatedAt.IsZero() {
			continue
		}
		if age := now.Sub(site.UpdatedAt); age > 0 {
			ages = append(ages, age)
		} else {
			ages = append(ages, 0)
		}
	}

	if len(ages) == 0 {
		return 0
	}

	slices.Sort(ages)
	mid := len(ages) / 2
	if len(ages)%2 == 1 {
		return ages[mid]
	}
	return (ages[mid-1] + ages[mid]) / 2
}

// Score evaluates a source against its fetched fragment using the configured
// window, decay and staleness threshold.
func Score(src *registry.ConfigSource, fragment *catalog.Fragment, now time.Time) (quality, reliability float64) {
	window := viper.GetInt(key.ScoreHistoryWindow)
	if window <= 0 {
		window = 10
	}
	decay := viper.GetFloat64(key.ScoreDecayFactor)
	if decay <= 0 || decay > 1 {
		decay = 0.9
	}
	stalenessDays := viper.GetInt(key.ScoreStalenessThreshold)
	if stalenessDays <= 0 {
		stalenessDays = 7
	}

	reliability = Reliability(src.History, window, decay)

	var medianAge time.Duration
	if fragment != nil {
		medianAge = MedianEntryAge(fragment, now)
	}
	quality = Quality(reliability, medianAge, time.Duration(stalenessDays)*24*time.Hour)

	return quality, reliability
}
