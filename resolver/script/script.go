// Package script bridges resolver plugins written in Lua to the Go core.
//
// A plugin is a Lua chunk that defines a global Resolve(site) function taking
// a table {key, kind, endpoint} and returning either a stream table
// {url, quality?, headers?, drm?} or nil when it cannot handle the site.
package script

import (
	"context"
	"errors"
	"fmt"
	"sync"

	libs "github.com/metafates/mangal-lua-libs"
	"github.com/streamdex-cli/streamdex/catalog"
	"github.com/streamdex-cli/streamdex/constant"
	lua "github.com/yuin/gopher-lua"
)

// ErrNoMatch is returned when a plugin declines to resolve a site.
var ErrNoMatch = errors.New("plugin reported no match")

// Script is a compiled, validated resolver plugin.
// A single Lua state backs each script; calls are serialized.
type Script struct {
	name  string
	mu    sync.Mutex
	state *lua.LState
}

// Compile executes the plugin chunk and validates its contract.
func Compile(name string, code []byte) (*Script, error) {
	state := lua.NewState()
	libs.Preload(state)

	if err := state.DoString(string(code)); err != nil {
		state.Close()
		return nil, fmt.Errorf("compile plugin %s: %w", name, err)
	}

	if state.GetGlobal(constant.ResolveFn).Type() != lua.LTFunction {
		state.Close()
		return nil, fmt.Errorf("plugin %s: function %s is required but not defined", name, constant.ResolveFn)
	}

	return &Script{name: name, state: state}, nil
}

// Name returns the plugin script identifier.
func (s *Script) Name() string {
	return s.name
}

// Close releases the underlying Lua state.
func (s *Script) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.state.Close()
}

// Run invokes the plugin's Resolve function for the given site. The context
// bounds execution; gopher-lua aborts the chunk when it expires.
func (s *Script) Run(ctx context.Context, site catalog.SiteEntry) (*catalog.StreamDescriptor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state.SetContext(ctx)
	defer s.state.SetContext(context.Background())

	arg := s.state.NewTable()
	s.state.SetField(arg, "key", lua.LString(site.Key))
	s.state.SetField(arg, "kind", lua.LString(site.Kind))
	s.state.SetField(arg, "endpoint", lua.LString(site.Endpoint))

	err := s.state.CallByParam(lua.P{
		Fn:      s.state.GetGlobal(constant.ResolveFn),
		NRet:    1,
		Protect: true,
	}, arg)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("plugin %s: %w", s.name, err)
	}

	ret := s.state.Get(-1)
	s.state.Pop(1)

	if ret == lua.LNil {
		return nil, ErrNoMatch
	}

	table, ok := ret.(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("plugin %s returned %s, expected table or nil", s.name, ret.Type())
	}

	return descriptorFromTable(s.name, table)
}

func descriptorFromTable(name string, table *lua.LTable) (*catalog.StreamDescriptor, error) {
	url := lua.LVAsString(table.RawGetString("url"))
	if url == "" {
		return nil, fmt.Errorf("plugin %s returned a stream without url", name)
	}

	descriptor := &catalog.StreamDescriptor{
		URL:     url,
		Quality: lua.LVAsString(table.RawGetString("quality")),
		Headers: stringMap(table.RawGetString("headers")),
	}

	if drm, ok := table.RawGetString("drm").(*lua.LTable); ok {
		descriptor.DRM = &catalog.DRMDescriptor{
			Scheme:     lua.LVAsString(drm.RawGetString("scheme")),
			LicenseURL: lua.LVAsString(drm.RawGetString("license")),
			Headers:    stringMap(drm.RawGetString("headers")),
		}
	}

	return descriptor, nil
}

func stringMap(value lua.LValue) map[string]string {
	table, ok := value.(*lua.LTable)
	if !ok {
		return nil
	}

	out := make(map[string]string)
	table.ForEach(func(k, v lua.LValue) {
		out[k.String()] = v.String()
	})
	return out
}
