// Package summarizer builds the summary engine from process configuration.
package summarizer

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/earthref/KDD/internal/kdd/crossref"
	"github.com/earthref/KDD/internal/kdd/datamodel"
	"github.com/earthref/KDD/internal/kdd/summary"
	"github.com/earthref/KDD/internal/kdd/vocab"
	"github.com/earthref/KDD/internal/platform/config"
)

// Config selects the data model, vocabularies and reference resolver.
type Config struct {
	DataModelPath    string `env:"KDD_DATA_MODEL_PATH"`
	VocabularyPath   string `env:"KDD_VOCABULARY_PATH"`
	CrossRefURL      string `env:"KDD_CROSSREF_URL" envDefault:"https://api.crossref.org/works/"`
	CrossRefMailto   string `env:"KDD_CROSSREF_MAILTO"`
	CrossRefDisabled bool   `env:"KDD_CROSSREF_DISABLED"`
}

// LoadConfig reads Config from the environment.
func LoadConfig() (Config, error) {
	var cfg Config
	if err := config.ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// New creates a summarizer for cfg. A data model file is used instead of the
// latest embedded model; a vocabulary file is overlaid on the embedded
// vocabularies.
func New(cfg Config, opts ...summary.Option) (*summary.Summarizer, error) {
	var base []summary.Option
	if path := strings.TrimSpace(cfg.DataModelPath); path != "" {
		model, err := datamodel.Load(os.DirFS(filepath.Dir(path)), filepath.Base(path))
		if err != nil {
			return nil, err
		}
		base = append(base, summary.WithModel(model))
	}
	if path := strings.TrimSpace(cfg.VocabularyPath); path != "" {
		set, err := vocab.Load(os.DirFS(filepath.Dir(path)), filepath.Base(path))
		if err != nil {
			return nil, err
		}
		base = append(base, summary.WithVocabularies(vocab.Default().Merge(set)))
	}
	if !cfg.CrossRefDisabled {
		baseURL := strings.TrimSpace(cfg.CrossRefURL)
		if baseURL == "" {
			baseURL = crossref.DefaultBaseURL
		}
		if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
			return nil, fmt.Errorf("crossref url must be http or https, got %q", cfg.CrossRefURL)
		}
		var clientOpts []crossref.Option
		if mailto := strings.TrimSpace(cfg.CrossRefMailto); mailto != "" {
			clientOpts = append(clientOpts, crossref.WithMailto(mailto))
		}
		base = append(base, summary.WithResolver(crossref.NewClient(baseURL, clientOpts...)))
	}
	return summary.New(append(base, opts...)...), nil
}
