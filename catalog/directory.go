// Package catalog defines the domain models for config-source fragments and the aggregated site directory.
package catalog

import "time"

// AggregatedSiteEntry is a SiteEntry enriched with merge provenance and trust scores.
// Exactly one instance exists per unique Key in a Directory.
type AggregatedSiteEntry struct {
	SiteEntry

	// OriginURLs is the sorted set of source URLs that contributed this key.
	OriginURLs []string `json:"originUrls"`

	QualityScore     float64   `json:"qualityScore"`
	ReliabilityScore float64   `json:"reliabilityScore"`
	LastSeen         time.Time `json:"lastSeen"`
}

// FailureNote records a source that contributed nothing to an aggregation cycle.
type FailureNote struct {
	SourceID  string `json:"sourceId"`
	SourceURL string `json:"sourceUrl"`
	Reason    string `json:"reason"`
}

// Directory is an immutable snapshot of the deduplicated, scored, merged view
// across all enabled sources. It is replaced wholesale on each successful
// aggregation cycle.
type Directory struct {
	Entries []*AggregatedSiteEntry `json:"entries"`

	// Categories indexes entry keys by site kind.
	Categories map[string][]string `json:"categories"`

	Resolvers []ResolverDescriptor `json:"resolvers,omitempty"`
	Rules     []RuleEntry          `json:"rules,omitempty"`
	Lives     []LiveEntry          `json:"lives,omitempty"`

	GeneratedAt time.Time     `json:"generatedAt"`
	Failures    []FailureNote `json:"failures,omitempty"`

	// Stale marks a snapshot served from cache after a failed rebuild.
	Stale bool `json:"stale,omitempty"`
}

// Lookup returns the entry with the given key, or nil.
func (d *Directory) Lookup(key string) *AggregatedSiteEntry {
	for _, e := range d.Entries {
		if e.Key == key {
			return e
		}
	}
	return nil
}
