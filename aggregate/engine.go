// Package aggregate merges catalog fragments from all enabled sources into one deduplicated directory.
package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/streamdex-cli/streamdex/cache"
	"github.com/streamdex-cli/streamdex/catalog"
	"github.com/streamdex-cli/streamdex/key"
	"github.com/streamdex-cli/streamdex/log"
	"github.com/streamdex-cli/streamdex/pipeline"
	"github.com/streamdex-cli/streamdex/registry"
	"github.com/streamdex-cli/streamdex/scorer"
	"golang.org/x/exp/slices"
)

// ErrAggregationFailed signals that every enabled source failed to contribute.
var ErrAggregationFailed = errors.New("aggregation failed")

// Engine fans fetches out across the enabled sources and merges the resulting
// fragments. Raw fragments are memoized per source so registry mutations or a
// directory refresh within the fragment TTL reuse prior fetches.
type Engine struct {
	registry  *registry.Registry
	pipeline  *pipeline.Pipeline
	fragments *cache.Store[*catalog.Fragment]
}

// New wires an engine over the registry, pipeline and fragment cache.
func New(reg *registry.Registry, pipe *pipeline.Pipeline, fragments *cache.Store[*catalog.Fragment]) *Engine {
	return &Engine{registry: reg, pipeline: pipe, fragments: fragments}
}

// fetchResult carries one source's contribution out of the fan-out phase.
type fetchResult struct {
	src      *registry.ConfigSource
	fragment *catalog.Fragment
	err      error
}

// Aggregate runs one aggregation cycle: concurrent bounded fetches, then a
// deterministic merge. Per-source failures become directory failure notes;
// only a cycle in which every source fails returns ErrAggregationFailed.
func (e *Engine) Aggregate(ctx context.Context) (*catalog.Directory, error) {
	sources := e.registry.Enabled()
	if len(sources) == 0 {
		return nil, fmt.Errorf("%w: no enabled sources", ErrAggregationFailed)
	}

	results := e.fanOut(ctx, sources)

	now := time.Now()
	directory := &catalog.Directory{
		Categories:  make(map[string][]string),
		GeneratedAt: now,
	}

	var succeeded int
	merged := make(map[string]*mergeSlot)

	// Deterministic merge order regardless of worker completion order.
	slices.SortFunc(results, func(a, b *fetchResult) int {
		if a.src.ID < b.src.ID {
			return -1
		}
		if a.src.ID > b.src.ID {
			return 1
		}
		return 0
	})

	for _, r := range results {
		if r.err != nil {
			directory.Failures = append(directory.Failures, catalog.FailureNote{
				SourceID:  r.src.ID,
				SourceURL: r.src.URL,
				Reason:    r.err.Error(),
			})
			continue
		}

		succeeded++

		// Scores see the fetch outcome just recorded; conflict resolution keeps
		// the cycle-start snapshot so lastFetchedAt ties stay deterministic.
		scored := r.src
		if fresh, ok := e.registry.Get(r.src.ID); ok {
			scored = fresh
		}

		quality, reliability := scorer.Score(scored, r.fragment, now)
		mergeFragment(merged, r.src, r.fragment, quality, reliability, now)
		mergeAuxiliary(directory, r.fragment)
	}

	if succeeded == 0 {
		return nil, fmt.Errorf("%w: all %d enabled sources failed", ErrAggregationFailed, len(sources))
	}

	directory.Entries = collectEntries(merged)
	for _, entry := range directory.Entries {
		kind := entry.Kind
		if kind == "" {
			kind = "uncategorized"
		}
		directory.Categories[kind] = append(directory.Categories[kind], entry.Key)
	}

	log.Infof("aggregated %d unique sites from %d/%d sources",
		len(directory.Entries), succeeded, len(sources))

	return directory, nil
}

// fanOut fetches all sources concurrently, bounded by the configured
// parallelism limit, each under its own timeout.
func (e *Engine) fanOut(ctx context.Context, sources []*registry.ConfigSource) []*fetchResult {
	parallelism := viper.GetInt(key.AggregateParallelism)
	if parallelism <= 0 {
		parallelism = 8
	}
	timeout := time.Duration(viper.GetInt(key.FetchTimeout)) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	sem := make(chan struct{}, parallelism)
	out := make(chan *fetchResult, len(sources))

	for _, src := range sources {
		if ctx.Err() != nil {
			// Cancellation stops scheduling further work; sources never
			// attempted count as failures for this cycle.
			out <- &fetchResult{src: src, err: ctx.Err()}
			continue
		}

		sem <- struct{}{}
		go func(src *registry.ConfigSource) {
			defer func() { <-sem }()

			fragment, _, err := e.fragments.Get(ctx, src.ID, func(ctx context.Context) (*catalog.Fragment, error) {
				return e.pipeline.FetchAndParse(ctx, src, timeout)
			})
			out <- &fetchResult{src: src, fragment: fragment, err: err}
		}(src)
	}

	results := make([]*fetchResult, 0, len(sources))
	for range sources {
		results = append(results, <-out)
	}
	return results
}

// InvalidateFragment expires the memoized fragment for one source.
func (e *Engine) InvalidateFragment(id string) {
	e.fragments.Invalidate(id)
}
