// Package vocab holds controlled vocabularies: named lists of accepted items,
// each with a display label.
package vocab

import (
	"embed"
	"encoding/json"
	"fmt"
	"io/fs"
	"path"
	"strings"
	"sync"

	"golang.org/x/text/cases"
	"gopkg.in/yaml.v3"
)

//go:embed vocabularies/*.json
var vocabulariesFS embed.FS

// Item is one accepted vocabulary entry.
type Item struct {
	Item  string `json:"item" yaml:"item"`
	Label string `json:"label" yaml:"label"`
}

// Vocabulary is a named list of items.
type Vocabulary struct {
	Label string `json:"label,omitempty" yaml:"label,omitempty"`
	Items []Item `json:"items" yaml:"items"`
}

// Set maps vocabulary names to vocabularies. A Set is read-only once built.
type Set struct {
	vocabularies map[string]Vocabulary
	// folded maps vocabulary name to case-folded item to label. First item wins.
	folded map[string]map[string]string
}

// NewSet indexes vocabularies for case-insensitive lookups.
func NewSet(vocabularies map[string]Vocabulary) *Set {
	fold := cases.Fold()
	s := &Set{
		vocabularies: make(map[string]Vocabulary, len(vocabularies)),
		folded:       make(map[string]map[string]string, len(vocabularies)),
	}
	for name, vocabulary := range vocabularies {
		s.vocabularies[name] = vocabulary
		index := make(map[string]string, len(vocabulary.Items))
		for _, item := range vocabulary.Items {
			if item.Item == "" {
				continue
			}
			key := fold.String(item.Item)
			if _, exists := index[key]; !exists {
				index[key] = item.Label
			}
		}
		s.folded[name] = index
	}
	return s
}

// Label translates token through the named vocabulary. Matching ignores case
// and surrounding whitespace.
func (s *Set) Label(name, token string) (string, bool) {
	if s == nil {
		return "", false
	}
	index, ok := s.folded[name]
	if !ok {
		return "", false
	}
	label, ok := index[cases.Fold().String(strings.TrimSpace(token))]
	return label, ok
}

// Vocabulary returns the named vocabulary.
func (s *Set) Vocabulary(name string) (Vocabulary, bool) {
	if s == nil {
		return Vocabulary{}, false
	}
	v, ok := s.vocabularies[name]
	return v, ok
}

// Merge returns a new set holding s overlaid with other.
func (s *Set) Merge(other *Set) *Set {
	merged := make(map[string]Vocabulary)
	if s != nil {
		for name, v := range s.vocabularies {
			merged[name] = v
		}
	}
	if other != nil {
		for name, v := range other.vocabularies {
			merged[name] = v
		}
	}
	return NewSet(merged)
}

var (
	defaultOnce sync.Once
	defaultSet  *Set
)

// Default returns the embedded vocabularies.
func Default() *Set {
	defaultOnce.Do(func() {
		set, err := Load(vocabulariesFS, "vocabularies/defaults.json")
		if err != nil {
			panic(fmt.Sprintf("load embedded vocabularies: %v", err))
		}
		defaultSet = set
	})
	return defaultSet
}

// Load decodes a vocabulary file, YAML for .yaml/.yml and JSON otherwise.
func Load(fsys fs.FS, name string) (*Set, error) {
	data, err := fs.ReadFile(fsys, name)
	if err != nil {
		return nil, fmt.Errorf("read vocabularies %s: %w", name, err)
	}
	vocabularies := map[string]Vocabulary{}
	switch strings.ToLower(path.Ext(name)) {
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &vocabularies)
	default:
		err = json.Unmarshal(data, &vocabularies)
	}
	if err != nil {
		return nil, fmt.Errorf("decode vocabularies %s: %w", name, err)
	}
	return NewSet(vocabularies), nil
}
