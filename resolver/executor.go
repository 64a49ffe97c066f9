// Package resolver loads, validates and executes resolver plugins with fallback chains.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"github.com/streamdex-cli/streamdex/catalog"
	"github.com/streamdex-cli/streamdex/key"
	"github.com/streamdex-cli/streamdex/log"
	"github.com/streamdex-cli/streamdex/resolver/script"
)

// ErrNoResolverAvailable signals an empty fallback chain; no network round-trip occurred.
var ErrNoResolverAvailable = errors.New("no resolver available")

// Outcome categorizes one resolution attempt.
type Outcome string

const (
	OutcomeSuccess Outcome = "success"
	OutcomeTimeout Outcome = "timeout"
	OutcomeNoMatch Outcome = "no-match"
	OutcomeError   Outcome = "error"
)

// Attempt records one plugin execution within a fallback chain.
type Attempt struct {
	PluginID string        `json:"pluginId"`
	Outcome  Outcome       `json:"outcome"`
	Elapsed  time.Duration `json:"elapsed"`
	Error    string        `json:"error,omitempty"`

	// stream carries the successful payload to the result; it is not part of
	// the attempt trail serialization.
	stream *catalog.StreamDescriptor
}

// Result is the full account of one resolve call. Exhaustion is a normal,
// reportable outcome: Success false with the complete attempt trail.
type Result struct {
	EntryKey string                    `json:"entryKey"`
	Success  bool                      `json:"success"`
	Stream   *catalog.StreamDescriptor `json:"stream,omitempty"`
	Attempts []Attempt                 `json:"attempts"`
}

// Executor runs fallback chains against the plugin registry.
// Attempts within one call are strictly sequential; independent calls may run
// concurrently against the read-only registry snapshot.
type Executor struct {
	registry *Registry
}

// NewExecutor builds an executor over the given plugin registry.
func NewExecutor(reg *Registry) *Executor {
	return &Executor{registry: reg}
}

// Resolve turns a directory entry into a playable stream descriptor.
// The fallback chain is the explicit hint list when present, else the entry's
// pinned parsers, else every loaded plugin matching the entry's kind in
// priority order. Each attempt gets its own timeout and at most one retry,
// on timeout only.
func (e *Executor) Resolve(ctx context.Context, entry *catalog.AggregatedSiteEntry, hint []string) (*Result, error) {
	chain := e.chainFor(entry, hint)
	if len(chain) == 0 {
		return nil, fmt.Errorf("%w for entry %s (kind %s)", ErrNoResolverAvailable, entry.Key, entry.Kind)
	}

	timeout := time.Duration(viper.GetInt(key.ResolveAttemptTimeout)) * time.Second
	if timeout <= 0 {
		timeout = 8 * time.Second
	}
	retryOnTimeout := viper.GetBool(key.ResolveRetryOnTimeout)

	result := &Result{EntryKey: entry.Key}

	for _, plugin := range chain {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		attempt := e.attempt(ctx, plugin, entry.SiteEntry, timeout)
		result.Attempts = append(result.Attempts, attempt)

		if attempt.Outcome == OutcomeTimeout && retryOnTimeout {
			attempt = e.attempt(ctx, plugin, entry.SiteEntry, timeout)
			result.Attempts = append(result.Attempts, attempt)
		}

		if attempt.Outcome == OutcomeSuccess {
			result.Success = true
			result.Stream = attempt.stream
			log.Debugf("entry %s resolved by %s after %d attempts",
				entry.Key, plugin.ID(), len(result.Attempts))
			return result, nil
		}
	}

	log.Infof("entry %s exhausted %d attempts without success", entry.Key, len(result.Attempts))
	return result, nil
}

// attempt executes one plugin under its own deadline.
func (e *Executor) attempt(ctx context.Context, plugin *Plugin, site catalog.SiteEntry, timeout time.Duration) Attempt {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	started := time.Now()
	stream, err := plugin.runner.Run(attemptCtx, site)
	elapsed := time.Since(started)

	attempt := Attempt{PluginID: plugin.ID(), Elapsed: elapsed}

	switch {
	case err == nil:
		attempt.Outcome = OutcomeSuccess
		attempt.stream = stream
	case errors.Is(err, context.DeadlineExceeded):
		attempt.Outcome = OutcomeTimeout
		attempt.Error = err.Error()
	case errors.Is(err, script.ErrNoMatch):
		attempt.Outcome = OutcomeNoMatch
		attempt.Error = err.Error()
	default:
		attempt.Outcome = OutcomeError
		attempt.Error = err.Error()
	}

	return attempt
}

// chainFor assembles the ordered fallback chain for an entry.
func (e *Executor) chainFor(entry *catalog.AggregatedSiteEntry, hint []string) []*Plugin {
	explicit := hint
	if len(explicit) == 0 {
		explicit = entry.FallbackParsers
	}

	if len(explicit) > 0 {
		var chain []*Plugin
		for _, id := range explicit {
			if p, ok := e.registry.Get(id); ok && p.State == StateLoaded {
				chain = append(chain, p)
			}
		}
		return chain
	}

	return e.registry.Match(entry.Kind)
}
