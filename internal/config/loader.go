package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"gopkg.in/yaml.v3"
)

// Paths helper for default/wheel files.
type Paths struct {
	BaseDir string // base directory, e.g., /opt/app/config
}

func (p Paths) DefaultPath() string {
	return filepath.Join(p.BaseDir, "wheels", "default.yaml")
}
func (p Paths) WheelPath(name string) string {
	return filepath.Join(p.BaseDir, "wheels", name+".yaml")
}

// Loader reads YAML configs and merges default → wheel.
type Loader struct {
	paths Paths

	mu    sync.RWMutex
	cache map[string]RawConfig // key: wheel name
}

// NewLoader creates a config loader with the given base directory.
func NewLoader(baseDir string) *Loader {
	return &Loader{
		paths: Paths{BaseDir: baseDir},
		cache: make(map[string]RawConfig),
	}
}

func (l *Loader) Paths() Paths { return l.paths }

// LoadMerged loads and merges default → wheel. The wheel file is optional.
// It returns the merged RawConfig (without validation).
func (l *Loader) LoadMerged(name string) (RawConfig, error) {
	l.mu.RLock()
	if cfg, ok := l.cache[name]; ok {
		l.mu.RUnlock()
		return cfg, nil
	}
	l.mu.RUnlock()

	defCfg, err := readYAML(l.paths.DefaultPath())
	if err != nil {
		return RawConfig{}, fmt.Errorf("read default: %w", err)
	}
	var wheelCfg RawConfig
	if name != "" && name != "default" {
		wheelCfg, err = readYAML(l.paths.WheelPath(name))
		if err != nil {
			return RawConfig{}, fmt.Errorf("read wheel %q: %w", name, err)
		}
	}

	merged := mergeRaw(defCfg, wheelCfg)

	l.mu.Lock()
	l.cache[name] = merged
	l.mu.Unlock()

	return merged, nil
}

// Invalidate clears loader's cache. Call after hot-reload detects changes.
func (l *Loader) Invalidate() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.cache = make(map[string]RawConfig)
}

// readYAML loads a YAML file into RawConfig. Missing files return zero cfg, no error.
func readYAML(path string) (RawConfig, error) {
	var cfg RawConfig
	b, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return RawConfig{}, nil
		}
		return RawConfig{}, err
	}
	if err := yaml.Unmarshal(b, &cfg); err != nil {
		return RawConfig{}, err
	}
	return cfg, nil
}

// mergeRaw overlays b on a: set scalars in b win, a non-empty slice list in b
// replaces a's list wholesale.
func mergeRaw(a, b RawConfig) RawConfig {
	out := a

	if b.Version != "" {
		out.Version = b.Version
	}
	if b.Notes != "" {
		out.Notes = b.Notes
	}

	// spin
	if b.Spin.MinRevolutions != nil {
		out.Spin.MinRevolutions = b.Spin.MinRevolutions
	}
	if b.Spin.MaxRevolutions != nil {
		out.Spin.MaxRevolutions = b.Spin.MaxRevolutions
	}
	if b.Spin.AngularSpeed != nil {
		out.Spin.AngularSpeed = b.Spin.AngularSpeed
	}
	if b.Spin.IndicatorOffset != nil {
		out.Spin.IndicatorOffset = b.Spin.IndicatorOffset
	}

	// slices: order matters, so never interleave the two lists
	if len(b.Slices) > 0 {
		out.Slices = append([]SliceCfg(nil), b.Slices...)
	}

	return out
}
