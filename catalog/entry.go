// Package catalog defines the domain models for config-source fragments and the aggregated site directory.
package catalog

import (
	"encoding/json"
	"time"
)

// SiteEntry represents one playable content site listed by a config source.
type SiteEntry struct {
	// Key is the dedup identity of the site within a fragment.
	Key  string `json:"key"`
	Name string `json:"name"`
	// Kind categorizes the site (e.g. "vod", "live", "spider").
	Kind     string `json:"kind"`
	Endpoint string `json:"endpoint"`

	// Capability flags.
	Searchable  bool `json:"searchable"`
	QuickSearch bool `json:"quickSearch"`
	Filterable  bool `json:"filterable"`

	// FallbackParsers optionally pins the resolver fallback chain for this site.
	FallbackParsers []string `json:"fallbackParsers,omitempty"`

	// Ext carries an opaque, source-defined extension payload.
	Ext *Extension `json:"ext,omitempty"`

	// UpdatedAt is the source-declared freshness timestamp, zero when absent.
	UpdatedAt time.Time `json:"updatedAt,omitzero"`
}

// Extension is a tagged union for heterogeneous site extension payloads.
// Merge logic never inspects Data; it is passed through verbatim.
type Extension struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data,omitempty"`
}

// ResolverDescriptor declares a resolver plugin offered by a config source.
type ResolverDescriptor struct {
	ID               string   `json:"id"`
	Name             string   `json:"name"`
	URL              string   `json:"url"`
	SupportedFormats []string `json:"supportedFormats"`
	Checksum         string   `json:"checksum"`
	Priority         int      `json:"priority"`
}

// RuleEntry is a host/pattern blocking rule contributed by a config source.
type RuleEntry struct {
	Name     string   `json:"name"`
	Hosts    []string `json:"hosts"`
	Patterns []string `json:"patterns"`
}

// LiveEntry is a live-stream channel group contributed by a config source.
type LiveEntry struct {
	Name string `json:"name"`
	Type string `json:"type"`
	URL  string `json:"url"`
	EPG  string `json:"epg,omitempty"`
	Logo string `json:"logo,omitempty"`
}
