// Package registry manages the set of subscribed config sources and their fetch health.
package registry

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/metafates/gache"
	"github.com/samber/lo"
	"github.com/spf13/viper"
	"github.com/streamdex-cli/streamdex/filesystem"
	"github.com/streamdex-cli/streamdex/key"
	"github.com/streamdex-cli/streamdex/log"
)

var (
	// ErrDuplicateSource is returned when a source id or URL is already registered.
	ErrDuplicateSource = errors.New("duplicate source")

	// ErrUnknownSource is returned for operations against an unregistered id.
	ErrUnknownSource = errors.New("unknown source")
)

// Registry holds the ordered set of subscribed config sources.
// One writer lock guards mutations; reads work against cloned snapshots.
type Registry struct {
	mu      sync.RWMutex
	sources []*ConfigSource

	persist *gache.Cache[[]*ConfigSource]

	// onMutate observers are notified after every committed mutation, outside
	// the lock. The aggregation cache subscribes here to invalidate itself.
	onMutate []func()
}

// Open loads the persisted source list from path and returns a ready registry.
func Open(path string) (*Registry, error) {
	r := &Registry{
		persist: gache.New[[]*ConfigSource](&gache.Options{
			Path:       path,
			FileSystem: &filesystem.GacheFs{},
		}),
	}

	saved, _, err := r.persist.Get()
	if err != nil {
		return nil, fmt.Errorf("load source registry: %w", err)
	}
	r.sources = saved

	return r, nil
}

// OnMutate registers an observer invoked after every committed mutation.
func (r *Registry) OnMutate(fn func()) {
	r.mu.Lock()
	r.onMutate = append(r.onMutate, fn)
	r.mu.Unlock()
}

func (r *Registry) notify() {
	r.mu.RLock()
	observers := r.onMutate
	r.mu.RUnlock()

	for _, fn := range observers {
		fn()
	}
}

func (r *Registry) save() error {
	return r.persist.Set(r.sources)
}

func (r *Registry) find(id string) (*ConfigSource, bool) {
	for _, s := range r.sources {
		if s.ID == id {
			return s, true
		}
	}
	return nil, false
}

// Add registers a new config source. The id and URL must both be unused.
func (r *Registry) Add(src ConfigSource) error {
	if src.ID == "" || src.URL == "" {
		return errors.New("source requires both id and url")
	}

	r.mu.Lock()
	for _, existing := range r.sources {
		if existing.ID == src.ID || existing.URL == src.URL {
			r.mu.Unlock()
			return fmt.Errorf("%w: %s", ErrDuplicateSource, src.ID)
		}
	}

	if src.Health == "" {
		src.Health = HealthUnknown
	}
	if src.Primary {
		for _, existing := range r.sources {
			existing.Primary = false
		}
	}

	r.sources = append(r.sources, &src)
	err := r.save()
	r.mu.Unlock()

	if err != nil {
		return err
	}

	log.Infof("registered source %s (%s)", src.ID, src.URL)
	r.notify()
	return nil
}

// Remove deletes the source with the given id.
func (r *Registry) Remove(id string) error {
	r.mu.Lock()
	before := len(r.sources)
	r.sources = lo.Filter(r.sources, func(s *ConfigSource, _ int) bool {
		return s.ID != id
	})

	if len(r.sources) == before {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}

	err := r.save()
	r.mu.Unlock()

	if err != nil {
		return err
	}

	r.notify()
	return nil
}

// SetEnabled toggles a source's participation in aggregation.
func (r *Registry) SetEnabled(id string, enabled bool) error {
	r.mu.Lock()
	src, ok := r.find(id)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}

	src.Enabled = enabled
	err := r.save()
	r.mu.Unlock()

	if err != nil {
		return err
	}

	r.notify()
	return nil
}

// SetPrimary marks the given source as primary, atomically clearing the previous one.
func (r *Registry) SetPrimary(id string) error {
	r.mu.Lock()
	src, ok := r.find(id)
	if !ok {
		r.mu.Unlock()
		return fmt.Errorf("%w: %s", ErrUnknownSource, id)
	}

	for _, s := range r.sources {
		s.Primary = false
	}
	src.Primary = true
	err := r.save()
	r.mu.Unlock()

	if err != nil {
		return err
	}

	r.notify()
	return nil
}

// Get returns a copy of the source with the given id.
func (r *Registry) Get(id string) (*ConfigSource, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	src, ok := r.find(id)
	if !ok {
		return nil, false
	}
	return src.clone(), true
}

// Snapshot returns copies of every registered source, in registration order.
func (r *Registry) Snapshot() []*ConfigSource {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return lo.Map(r.sources, func(s *ConfigSource, _ int) *ConfigSource {
		return s.clone()
	})
}

// Enabled returns copies of the sources participating in aggregation.
func (r *Registry) Enabled() []*ConfigSource {
	return lo.Filter(r.Snapshot(), func(s *ConfigSource, _ int) bool {
		return s.Enabled
	})
}

// RecordFetch appends a fetch outcome to a source's history ring and rolls its
// health status: success restores healthy, while reaching the configured
// consecutive-failure threshold degrades it to error.
// Fetch outcomes do not count as registry mutations; observers stay quiet.
func (r *Registry) RecordFetch(id string, outcome FetchOutcome) {
	threshold := viper.GetInt(key.FetchFailureThreshold)
	if threshold <= 0 {
		threshold = 3
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	src, ok := r.find(id)
	if !ok {
		return
	}

	if outcome.At.IsZero() {
		outcome.At = time.Now()
	}

	src.History = append(src.History, outcome)
	if len(src.History) > historyCap {
		src.History = src.History[len(src.History)-historyCap:]
	}

	if outcome.Success {
		src.LastFetchedAt = outcome.At
		src.ConsecutiveFailures = 0
		src.Health = HealthHealthy
	} else {
		src.ConsecutiveFailures++
		if src.ConsecutiveFailures >= threshold {
			src.Health = HealthError
		} else if src.Health == HealthHealthy {
			src.Health = HealthWarning
		}
	}

	_ = r.save()
}
