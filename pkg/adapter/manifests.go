package adapter

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/golang/glog"

	"github.com/robotalks/mcplink/pkg/manifest"
)

// ManifestExts are the file extensions looked up for a device, in order.
var ManifestExts = []string{".json", ".yaml", ".yml", ".toml"}

// ErrManifestNotFound indicates no manifest file for the device.
var ErrManifestNotFound = errors.New("manifest not found")

// Manifests loads per device manifests named <device-id>.json (or .yaml,
// .yml, .toml) from Dir and caches them.
type Manifests struct {
	Dir string

	lock  sync.Mutex
	cache map[string]*manifest.Manifest
}

// NewManifests creates Manifests reading dir.
func NewManifests(dir string) *Manifests {
	return &Manifests{Dir: dir, cache: make(map[string]*manifest.Manifest)}
}

// Path finds the manifest file of a device.
func (m *Manifests) Path(deviceID string) (string, error) {
	if deviceID == "" || deviceID != filepath.Base(deviceID) || strings.HasPrefix(deviceID, ".") {
		return "", fmt.Errorf("invalid device id %q", deviceID)
	}
	for _, ext := range ManifestExts {
		fn := filepath.Join(m.Dir, deviceID+ext)
		if info, err := os.Stat(fn); err == nil && info.Mode().IsRegular() {
			return fn, nil
		}
	}
	return "", fmt.Errorf("%w for device %q, expect %s",
		ErrManifestNotFound, deviceID, filepath.Join(m.Dir, deviceID+ManifestExts[0]))
}

// Get returns the cached manifest of a device, loading it on first use.
func (m *Manifests) Get(deviceID string) (*manifest.Manifest, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	if mf := m.cache[deviceID]; mf != nil {
		return mf, nil
	}
	return m.load(deviceID)
}

// Reload drops the cached manifest and loads it again.
func (m *Manifests) Reload(deviceID string) (*manifest.Manifest, error) {
	m.lock.Lock()
	defer m.lock.Unlock()
	delete(m.cache, deviceID)
	return m.load(deviceID)
}

func (m *Manifests) load(deviceID string) (*manifest.Manifest, error) {
	fn, err := m.Path(deviceID)
	if err != nil {
		return nil, err
	}
	mf, err := manifest.Load(fn)
	if err != nil {
		return nil, err
	}
	if m.cache == nil {
		m.cache = make(map[string]*manifest.Manifest)
	}
	m.cache[deviceID] = mf
	glog.Infof("loaded %s: %s %s, %d functions", fn, mf.Name, mf.Version, len(mf.Functions))
	for n := range mf.Functions {
		glog.V(1).Infof("  %d %s", mf.Functions[n].Tag, mf.Functions[n].Signature())
	}
	return mf, nil
}

// List returns the sorted ids of devices having a manifest.
// A missing Dir gives an empty list.
func (m *Manifests) List() ([]string, error) {
	entries, err := os.ReadDir(m.Dir)
	if os.IsNotExist(err) {
		glog.Warningf("manifest directory %s doesn't exist", m.Dir)
		return []string{}, nil
	}
	if err != nil {
		return nil, err
	}
	ids := []string{}
	seen := make(map[string]bool)
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		name := entry.Name()
		ext := filepath.Ext(name)
		id := strings.TrimSuffix(name, ext)
		if id == "" || seen[id] || !hasManifestExt(ext) {
			continue
		}
		seen[id] = true
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids, nil
}

func hasManifestExt(ext string) bool {
	for _, e := range ManifestExts {
		if e == ext {
			return true
		}
	}
	return false
}
