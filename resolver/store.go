package resolver

import (
	"fmt"
	"path/filepath"
	"sort"

	"github.com/metafates/gache"
	"github.com/spf13/afero"
	"github.com/streamdex-cli/streamdex/catalog"
	"github.com/streamdex-cli/streamdex/filesystem"
	"github.com/streamdex-cli/streamdex/log"
)

// InstalledPlugin pairs a persisted descriptor with its on-disk script path.
type InstalledPlugin struct {
	Descriptor catalog.ResolverDescriptor
	Path       string
}

// Store persists resolver plugin scripts and their descriptors on disk.
// Script writes go through a temp file and an atomic rename so a crash
// mid-install never leaves a truncated plugin behind.
type Store struct {
	dir      string
	manifest *gache.Cache[map[string]catalog.ResolverDescriptor]
}

// NewStore opens a plugin store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{
		dir: dir,
		manifest: gache.New[map[string]catalog.ResolverDescriptor](&gache.Options{
			Path:       filepath.Join(dir, "manifest.json"),
			FileSystem: &filesystem.GacheFs{},
		}),
	}
}

func (s *Store) scriptPath(id string) string {
	return filepath.Join(s.dir, id+".lua")
}

func (s *Store) descriptors() (map[string]catalog.ResolverDescriptor, error) {
	manifest, _, err := s.manifest.Get()
	if err != nil {
		return nil, err
	}
	if manifest == nil {
		manifest = make(map[string]catalog.ResolverDescriptor)
	}
	return manifest, nil
}

// Install validates the script bytes against the descriptor checksum and
// persists both. An existing plugin with the same id is replaced.
func (s *Store) Install(desc catalog.ResolverDescriptor, data []byte) error {
	if computed := Checksum(data); computed != desc.Checksum {
		return &ChecksumError{PluginID: desc.ID, Declared: desc.Checksum, Computed: computed}
	}

	fs := filesystem.API()
	if err := fs.MkdirAll(s.dir, 0755); err != nil {
		return err
	}

	target := s.scriptPath(desc.ID)
	tmp := target + ".tmp"
	if err := afero.WriteFile(fs, tmp, data, 0644); err != nil {
		return err
	}
	if err := fs.Rename(tmp, target); err != nil {
		_ = fs.Remove(tmp)
		return err
	}

	manifest, err := s.descriptors()
	if err != nil {
		return err
	}
	manifest[desc.ID] = desc
	return s.manifest.Set(manifest)
}

// Remove deletes a plugin's script and manifest entry.
func (s *Store) Remove(id string) error {
	manifest, err := s.descriptors()
	if err != nil {
		return err
	}
	if _, ok := manifest[id]; !ok {
		return fmt.Errorf("plugin %s is not installed", id)
	}

	if err := filesystem.API().Remove(s.scriptPath(id)); err != nil {
		return err
	}

	delete(manifest, id)
	return s.manifest.Set(manifest)
}

// Installed lists persisted plugins ordered by id.
func (s *Store) Installed() ([]InstalledPlugin, error) {
	manifest, err := s.descriptors()
	if err != nil {
		return nil, err
	}

	installed := make([]InstalledPlugin, 0, len(manifest))
	for id, desc := range manifest {
		installed = append(installed, InstalledPlugin{Descriptor: desc, Path: s.scriptPath(id)})
	}
	sort.Slice(installed, func(i, j int) bool {
		return installed[i].Descriptor.ID < installed[j].Descriptor.ID
	})
	return installed, nil
}

// LoadAll loads every installed plugin into the registry. Plugins that fail
// to load are logged and skipped so one broken script never blocks the rest.
func (s *Store) LoadAll(reg *Registry) error {
	installed, err := s.Installed()
	if err != nil {
		return err
	}

	for _, p := range installed {
		data, err := afero.ReadFile(filesystem.API(), p.Path)
		if err != nil {
			log.Warnf("read plugin %s: %v", p.Descriptor.ID, err)
			continue
		}
		if _, err := reg.Load(p.Descriptor, data); err != nil {
			log.Warnf("load plugin %s: %v", p.Descriptor.ID, err)
		}
	}
	return nil
}
