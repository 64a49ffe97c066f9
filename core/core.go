// Package core wires the registry, aggregation, caching and resolution
// subsystems into the single directory service the rest of the application
// consumes. Instances are explicitly constructed and closed; nothing here is
// an ambient global.
package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/metafates/gache"
	"github.com/spf13/viper"
	"github.com/streamdex-cli/streamdex/aggregate"
	"github.com/streamdex-cli/streamdex/cache"
	"github.com/streamdex-cli/streamdex/catalog"
	"github.com/streamdex-cli/streamdex/constant"
	"github.com/streamdex-cli/streamdex/filesystem"
	"github.com/streamdex-cli/streamdex/key"
	"github.com/streamdex-cli/streamdex/log"
	"github.com/streamdex-cli/streamdex/network"
	"github.com/streamdex-cli/streamdex/pipeline"
	"github.com/streamdex-cli/streamdex/registry"
	"github.com/streamdex-cli/streamdex/resolver"
	"github.com/streamdex-cli/streamdex/where"
)

// ErrEntryNotFound is returned when resolving a key absent from the directory.
var ErrEntryNotFound = errors.New("entry not found in directory")

// Options configures a Core instance. Zero values fall back to the standard
// application paths and the shared network client.
type Options struct {
	RegistryPath string
	SnapshotPath string
	Fetch        pipeline.FetchFunc
}

// Core is the aggregation and resolution service facade.
type Core struct {
	registry  *registry.Registry
	engine    *aggregate.Engine
	directory *cache.Store[*catalog.Directory]
	resolvers *resolver.Registry
	executor  *resolver.Executor

	snapshot *gache.Cache[*catalog.Directory]
}

// Open constructs a Core, restoring the persisted source registry and the
// last good directory snapshot so stale fallback works across restarts.
func Open(opts Options) (*Core, error) {
	if opts.RegistryPath == "" {
		opts.RegistryPath = where.Sources()
	}
	if opts.SnapshotPath == "" {
		opts.SnapshotPath = where.Directory()
	}
	if opts.Fetch == nil {
		opts.Fetch = network.Fetch
	}

	reg, err := registry.Open(opts.RegistryPath)
	if err != nil {
		return nil, err
	}

	fragmentTTL := time.Duration(viper.GetInt(key.CacheFragmentTTL)) * time.Minute
	if fragmentTTL <= 0 {
		fragmentTTL = 30 * time.Minute
	}
	directoryTTL := time.Duration(viper.GetInt(key.CacheDirectoryTTL)) * time.Minute
	if directoryTTL <= 0 || directoryTTL > fragmentTTL {
		directoryTTL = min(10*time.Minute, fragmentTTL)
	}

	pipe := pipeline.NewWithFetch(reg, opts.Fetch)
	fragments := cache.New[*catalog.Fragment](fragmentTTL)
	resolvers := resolver.NewRegistry()

	c := &Core{
		registry:  reg,
		engine:    aggregate.New(reg, pipe, fragments),
		directory: cache.New[*catalog.Directory](directoryTTL),
		resolvers: resolvers,
		executor:  resolver.NewExecutor(resolvers),
		snapshot: gache.New[*catalog.Directory](&gache.Options{
			Path:       opts.SnapshotPath,
			FileSystem: &filesystem.GacheFs{},
		}),
	}

	// Restore the last good snapshot with its original generation time: an
	// old one comes back expired and only serves as stale fallback.
	if saved, _, err := c.snapshot.Get(); err == nil && saved != nil {
		c.directory.Seed(constant.DirectoryCacheKey, saved, saved.GeneratedAt)
	}

	// Registry mutations invalidate the aggregated view.
	reg.OnMutate(func() {
		c.directory.Invalidate(constant.DirectoryCacheKey)
	})

	return c, nil
}

// Close releases in-memory state. Registry and snapshot persistence happen
// eagerly on mutation, so closing never loses data.
func (c *Core) Close() error {
	c.directory.Drop(constant.DirectoryCacheKey)
	return nil
}

// Sources exposes the underlying source registry.
func (c *Core) Sources() *registry.Registry {
	return c.registry
}

// Plugins exposes the resolver plugin registry.
func (c *Core) Plugins() *resolver.Registry {
	return c.resolvers
}

// RegisterSource subscribes a new config source.
func (c *Core) RegisterSource(src registry.ConfigSource) error {
	return c.registry.Add(src)
}

// RemoveSource drops a config source.
func (c *Core) RemoveSource(id string) error {
	return c.registry.Remove(id)
}

// SetPrimarySource marks one source as primary, clearing the previous one.
func (c *Core) SetPrimarySource(id string) error {
	return c.registry.SetPrimary(id)
}

// SetSourceEnabled toggles a source's participation in aggregation.
func (c *Core) SetSourceEnabled(id string, enabled bool) error {
	return c.registry.SetEnabled(id, enabled)
}

// Directory returns the aggregated directory, rebuilding it when the cached
// snapshot expired or forceRefresh is set. A snapshot served after a failed
// rebuild carries Stale=true.
func (c *Core) Directory(ctx context.Context, forceRefresh bool) (*catalog.Directory, error) {
	rebuild := func(ctx context.Context) (*catalog.Directory, error) {
		dir, err := c.engine.Aggregate(ctx)
		if err != nil {
			return nil, err
		}
		if err := c.snapshot.Set(dir); err != nil {
			log.Warnf("persist directory snapshot: %v", err)
		}
		return dir, nil
	}

	var (
		dir   *catalog.Directory
		stale bool
		err   error
	)
	if forceRefresh {
		for _, src := range c.registry.Snapshot() {
			c.engine.InvalidateFragment(src.ID)
		}
		dir, stale, err = c.directory.Refresh(ctx, constant.DirectoryCacheKey, rebuild)
	} else {
		dir, stale, err = c.directory.Get(ctx, constant.DirectoryCacheKey, rebuild)
	}
	if err != nil {
		return nil, err
	}

	if stale {
		// Copy so the cached snapshot itself stays unflagged.
		flagged := *dir
		flagged.Stale = true
		return &flagged, nil
	}
	return dir, nil
}

// Resolve turns the directory entry with the given key into a playable
// stream descriptor via the plugin fallback chain.
func (c *Core) Resolve(ctx context.Context, entryKey string, hint []string) (*resolver.Result, error) {
	dir, err := c.Directory(ctx, false)
	if err != nil {
		return nil, err
	}

	entry := dir.Lookup(entryKey)
	if entry == nil {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, entryKey)
	}

	return c.executor.Resolve(ctx, entry, hint)
}

// LoadPlugin validates and loads a resolver plugin from raw bytes.
func (c *Core) LoadPlugin(desc catalog.ResolverDescriptor, data []byte) (*resolver.Plugin, error) {
	return c.resolvers.Load(desc, data)
}

// UnloadPlugin removes a plugin's eligibility immediately.
func (c *Core) UnloadPlugin(id string) {
	c.resolvers.Unload(id)
}
