// Package pipeline retrieves raw config-source content and converts it into catalog fragments.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/streamdex-cli/streamdex/catalog"
	"github.com/streamdex-cli/streamdex/log"
	"github.com/streamdex-cli/streamdex/network"
	"github.com/streamdex-cli/streamdex/registry"
)

// FetchFunc retrieves the raw bytes behind a config-source URL.
type FetchFunc func(ctx context.Context, url string, timeout time.Duration) ([]byte, error)

// FetchError wraps a network or timeout failure for one source.
// It is non-fatal to aggregation; the caller records it and moves on.
type FetchError struct {
	SourceID string
	Err      error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("fetch source %s: %v", e.SourceID, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// ParseError wraps a malformed or schema-invalid source payload.
type ParseError struct {
	SourceID string
	Err      error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse source %s: %v", e.SourceID, e.Err)
}

func (e *ParseError) Unwrap() error { return e.Err }

// Pipeline turns one config source into a validated catalog fragment and
// reports every outcome back to the registry's health tracking.
type Pipeline struct {
	registry *registry.Registry
	fetch    FetchFunc
}

// New builds a pipeline over the given registry using the shared network client.
func New(reg *registry.Registry) *Pipeline {
	return &Pipeline{registry: reg, fetch: network.Fetch}
}

// NewWithFetch builds a pipeline with a custom fetch capability.
func NewWithFetch(reg *registry.Registry, fetch FetchFunc) *Pipeline {
	return &Pipeline{registry: reg, fetch: fetch}
}

// FetchAndParse retrieves and validates one source under the given timeout.
// Every attempt, successful or not, lands in the source's fetch history.
func (p *Pipeline) FetchAndParse(ctx context.Context, src *registry.ConfigSource, timeout time.Duration) (*catalog.Fragment, error) {
	started := time.Now()

	raw, err := p.fetch(ctx, src.URL, timeout)
	if err != nil {
		p.record(src.ID, false, started)
		log.Warnf("fetch %s failed: %v", src.ID, err)
		return nil, &FetchError{SourceID: src.ID, Err: err}
	}

	fragment, err := catalog.ParseFragment(raw)
	if err != nil {
		p.record(src.ID, false, started)
		log.Warnf("parse %s failed: %v", src.ID, err)
		return nil, &ParseError{SourceID: src.ID, Err: err}
	}

	p.record(src.ID, true, started)
	log.Debugf("source %s yielded %d sites", src.ID, len(fragment.Sites))
	return fragment, nil
}

func (p *Pipeline) record(id string, success bool, started time.Time) {
	p.registry.RecordFetch(id, registry.FetchOutcome{
		Success: success,
		Latency: time.Since(started),
		At:      time.Now(),
	})
}
