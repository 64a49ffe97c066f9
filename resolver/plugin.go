// Package resolver loads, validates and executes resolver plugins with fallback chains.
package resolver

import (
	"context"

	"github.com/streamdex-cli/streamdex/catalog"
)

// LoadState tracks a plugin's lifecycle. Rejected is terminal for a given
// descriptor; only a new descriptor may retry.
type LoadState string

const (
	StateUnverified LoadState = "unverified"
	StateLoaded     LoadState = "loaded"
	StateRejected   LoadState = "rejected"
)

// Runner executes a plugin against a site entry. Implementations must honor
// context cancellation and deadlines.
type Runner interface {
	Run(ctx context.Context, site catalog.SiteEntry) (*catalog.StreamDescriptor, error)
}

// Plugin is an immutable registry entry for one resolver plugin.
type Plugin struct {
	Descriptor catalog.ResolverDescriptor
	State      LoadState

	runner Runner
}

// ID returns the plugin identifier.
func (p *Plugin) ID() string {
	return p.Descriptor.ID
}

// Supports reports whether the plugin handles the given site kind.
// An empty format list acts as a wildcard.
func (p *Plugin) Supports(kind string) bool {
	if len(p.Descriptor.SupportedFormats) == 0 {
		return true
	}
	for _, f := range p.Descriptor.SupportedFormats {
		if f == kind {
			return true
		}
	}
	return false
}
