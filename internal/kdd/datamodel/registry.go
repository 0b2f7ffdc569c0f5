package datamodel

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strconv"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed models/*.json
var modelsFS embed.FS

// Registry holds data models by version.
type Registry struct {
	mu     sync.RWMutex
	models map[string]*Model
}

// NewRegistry builds a registry from models.
func NewRegistry(models ...*Model) (*Registry, error) {
	r := &Registry{models: make(map[string]*Model, len(models))}
	for _, model := range models {
		if err := r.Add(model); err != nil {
			return nil, err
		}
	}
	return r, nil
}

var (
	defaultOnce     sync.Once
	defaultRegistry *Registry
)

// Default returns the registry of embedded data models.
func Default() *Registry {
	defaultOnce.Do(func() {
		registry, err := LoadDir(modelsFS, "models")
		if err != nil {
			panic(fmt.Sprintf("load embedded data models: %v", err))
		}
		defaultRegistry = registry
	})
	return defaultRegistry
}

// Add registers model, replacing any model with the same version.
func (r *Registry) Add(model *Model) error {
	if err := model.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[model.Version] = model
	return nil
}

// Model returns the model for version.
func (r *Registry) Model(version string) (*Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	model, ok := r.models[strings.TrimSpace(version)]
	return model, ok
}

// Versions returns the registered versions in ascending order.
func (r *Registry) Versions() []string {
	r.mu.RLock()
	versions := make([]string, 0, len(r.models))
	for version := range r.models {
		versions = append(versions, version)
	}
	r.mu.RUnlock()
	sort.Slice(versions, func(i, j int) bool {
		return versionLess(versions[i], versions[j])
	})
	return versions
}

// Latest returns the model with the highest version.
func (r *Registry) Latest() *Model {
	versions := r.Versions()
	if len(versions) == 0 {
		return nil
	}
	model, _ := r.Model(versions[len(versions)-1])
	return model
}

// versionLess compares dotted versions numerically, falling back to string
// order for non-numeric parts.
func versionLess(a, b string) bool {
	left, right := strings.Split(a, "."), strings.Split(b, ".")
	for i := 0; i < len(left) && i < len(right); i++ {
		if left[i] == right[i] {
			continue
		}
		l, lerr := strconv.Atoi(left[i])
		r, rerr := strconv.Atoi(right[i])
		if lerr == nil && rerr == nil {
			return l < r
		}
		return left[i] < right[i]
	}
	return len(left) < len(right)
}

// Load decodes one model file. Files ending in .yaml or .yml are decoded as
// YAML, everything else as JSON.
func Load(fsys fs.FS, name string) (*Model, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read data model %s: %w", name, err)
	}
	var model Model
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &model)
	default:
		err = json.Unmarshal(data, &model)
	}
	if err != nil {
		return nil, fmt.Errorf("decode data model %s: %w", name, err)
	}
	if err := model.Validate(); err != nil {
		return nil, fmt.Errorf("data model %s: %w", name, err)
	}
	return &model, nil
}

// LoadDir loads every model file in dir.
func LoadDir(fsys fs.FS, dir string) (*Registry, error) {
	entries, err := fs.ReadDir(fsys, dir)
	if err != nil {
		return nil, fmt.Errorf("read data model dir %s: %w", dir, err)
	}
	registry := &Registry{models: make(map[string]*Model)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		switch strings.ToLower(path.Ext(entry.Name())) {
		case ".json", ".yaml", ".yml":
		default:
			continue
		}
		model, err := Load(fsys, path.Join(dir, entry.Name()))
		if err != nil {
			return nil, err
		}
		if err := registry.Add(model); err != nil {
			return nil, err
		}
	}
	return registry, nil
}
