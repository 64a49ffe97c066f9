// Package aggregate merges catalog fragments from all enabled sources into one deduplicated directory.
package aggregate

import (
	"time"

	"github.com/samber/lo"
	"github.com/streamdex-cli/streamdex/catalog"
	"github.com/streamdex-cli/streamdex/registry"
	"golang.org/x/exp/slices"
)

// mergeSlot tracks the current winner for one site key during a merge pass.
type mergeSlot struct {
	entry *catalog.AggregatedSiteEntry

	// Winner metadata for conflict resolution.
	priority      int
	quality       float64
	lastFetchedAt time.Time
	sourceID      string
}

// wins reports whether a challenger with the given metadata displaces the slot
// holder: higher priority, then higher quality, then most recent fetch, then
// lexicographically smaller source id.
func (s *mergeSlot) wins(priority int, quality float64, lastFetchedAt time.Time, sourceID string) bool {
	if priority != s.priority {
		return priority > s.priority
	}
	if quality != s.quality {
		return quality > s.quality
	}
	if !lastFetchedAt.Equal(s.lastFetchedAt) {
		return lastFetchedAt.After(s.lastFetchedAt)
	}
	return sourceID < s.sourceID
}

// mergeFragment folds one source's site entries into the working map.
// The losing side of every collision still contributes its origin URL.
func mergeFragment(merged map[string]*mergeSlot, src *registry.ConfigSource, fragment *catalog.Fragment, quality, reliability float64, now time.Time) {
	for _, site := range fragment.Sites {
		slot, seen := merged[site.Key]
		if !seen {
			merged[site.Key] = &mergeSlot{
				entry: &catalog.AggregatedSiteEntry{
					SiteEntry:        site,
					OriginURLs:       []string{src.URL},
					QualityScore:     quality,
					ReliabilityScore: reliability,
					LastSeen:         now,
				},
				priority:      src.Priority,
				quality:       quality,
				lastFetchedAt: src.LastFetchedAt,
				sourceID:      src.ID,
			}
			continue
		}

		if slot.wins(src.Priority, quality, src.LastFetchedAt, src.ID) {
			origins := slot.entry.OriginURLs
			slot.entry = &catalog.AggregatedSiteEntry{
				SiteEntry:        site,
				OriginURLs:       append(origins, src.URL),
				QualityScore:     quality,
				ReliabilityScore: reliability,
				LastSeen:         now,
			}
			slot.priority = src.Priority
			slot.quality = quality
			slot.lastFetchedAt = src.LastFetchedAt
			slot.sourceID = src.ID
		} else {
			slot.entry.OriginURLs = append(slot.entry.OriginURLs, src.URL)
		}
	}
}

// collectEntries flattens the merge map into the directory's ordered sequence:
// best quality first, site key as the deterministic tiebreak.
func collectEntries(merged map[string]*mergeSlot) []*catalog.AggregatedSiteEntry {
	entries := make([]*catalog.AggregatedSiteEntry, 0, len(merged))
	for _, slot := range merged {
		slot.entry.OriginURLs = lo.Uniq(slot.entry.OriginURLs)
		slices.Sort(slot.entry.OriginURLs)
		entries = append(entries, slot.entry)
	}

	slices.SortFunc(entries, func(a, b *catalog.AggregatedSiteEntry) int {
		if a.QualityScore != b.QualityScore {
			if a.QualityScore > b.QualityScore {
				return -1
			}
			return 1
		}
		if a.Key < b.Key {
			return -1
		}
		if a.Key > b.Key {
			return 1
		}
		return 0
	})

	return entries
}

// mergeAuxiliary folds a fragment's resolver, rule and live lists into the
// directory, deduplicating conservatively.
func mergeAuxiliary(directory *catalog.Directory, fragment *catalog.Fragment) {
	for _, r := range fragment.Resolvers {
		idx := slices.IndexFunc(directory.Resolvers, func(existing catalog.ResolverDescriptor) bool {
			return existing.ID == r.ID
		})
		if idx < 0 {
			directory.Resolvers = append(directory.Resolvers, r)
		} else if r.Priority > directory.Resolvers[idx].Priority {
			directory.Resolvers[idx] = r
		}
	}

	for _, rule := range fragment.Rules {
		exists := slices.ContainsFunc(directory.Rules, func(existing catalog.RuleEntry) bool {
			return existing.Name == rule.Name
		})
		if !exists {
			directory.Rules = append(directory.Rules, rule)
		}
	}

	for _, live := range fragment.Lives {
		exists := slices.ContainsFunc(directory.Lives, func(existing catalog.LiveEntry) bool {
			return existing.URL == live.URL
		})
		if !exists {
			directory.Lives = append(directory.Lives, live)
		}
	}
}
