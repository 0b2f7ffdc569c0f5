package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/earthref/KDD/internal/kdd/contribution"
	"github.com/earthref/KDD/internal/kdd/datamodel"
	"github.com/earthref/KDD/internal/kdd/vocab"
	apperrors "github.com/earthref/KDD/internal/platform/errors"
)

// Mode selects how much a run summarizes.
type Mode int

const (
	// ModeFull summarizes every value.
	ModeFull Mode = iota
	// ModeCounts only maintains the "_n_*" counters.
	ModeCounts
)

func (m Mode) String() string {
	if m == ModeCounts {
		return "pre"
	}
	return "full"
}

// ParseMode reads "full" or "pre" (also "counts").
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "full":
		return ModeFull, nil
	case "pre", "counts":
		return ModeCounts, nil
	default:
		return ModeFull, fmt.Errorf("unknown summary mode %q", s)
	}
}

// Meta seeds contribution-level fields before any row is read. String lists
// become token sets; other values are kept verbatim and win over the
// contribution row.
type Meta map[string]any

// Result is the outcome of one run.
type Result struct {
	Mode     Mode
	Document *Document
	Report   *Report
}

// Incomplete reports whether the document only carries counts.
func (r *Result) Incomplete() bool {
	return r.Mode == ModeCounts
}

// Summarizer runs the summary pipeline. A Summarizer is safe for concurrent
// use; every run builds its own document.
type Summarizer struct {
	model        *datamodel.Model
	vocabularies *vocab.Set
	resolver     ReferenceResolver
	yield        func(context.Context) error
}

// Option configures a Summarizer.
type Option func(*Summarizer)

// WithModel selects the data model. Defaults to the latest embedded model.
func WithModel(model *datamodel.Model) Option {
	return func(s *Summarizer) {
		if model != nil {
			s.model = model
		}
	}
}

// WithVocabularies selects the controlled vocabularies.
func WithVocabularies(vocabularies *vocab.Set) Option {
	return func(s *Summarizer) {
		if vocabularies != nil {
			s.vocabularies = vocabularies
		}
	}
}

// WithResolver enables reference enrichment.
func WithResolver(resolver ReferenceResolver) Option {
	return func(s *Summarizer) {
		s.resolver = resolver
	}
}

// WithYield replaces the function called between tables.
func WithYield(yield func(context.Context) error) Option {
	return func(s *Summarizer) {
		if yield != nil {
			s.yield = yield
		}
	}
}

// New creates a Summarizer.
func New(opts ...Option) *Summarizer {
	s := &Summarizer{
		model:        datamodel.Default().Latest(),
		vocabularies: vocab.Default(),
		yield:        cooperativeYield,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Model returns the data model the Summarizer uses.
func (s *Summarizer) Model() *datamodel.Model {
	return s.model
}

// PreSummarize builds the counts-only summary of c.
func (s *Summarizer) PreSummarize(ctx context.Context, c contribution.Contribution, meta Meta) (*Result, error) {
	return s.Run(ctx, ModeCounts, c, meta)
}

// Summarize builds the full summary of c.
func (s *Summarizer) Summarize(ctx context.Context, c contribution.Contribution, meta Meta) (*Result, error) {
	return s.Run(ctx, ModeFull, c, meta)
}

// Run builds the summary of c in mode. A nil contribution is recorded as a
// fatal issue in the report and nothing else happens. The returned error is
// only set when ctx ends the run early.
func (s *Summarizer) Run(ctx context.Context, mode Mode, c contribution.Contribution, meta Meta) (*Result, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	report := newReport()
	if c == nil {
		report.add(apperrors.CodeContributionMissing, "Invalid contribution.")
		return &Result{Mode: mode, Report: report}, nil
	}

	p := &pass{
		mode:         mode,
		model:        s.model,
		vocabularies: s.vocabularies,
		resolver:     s.resolver,
		yield:        s.yield,
		contribution: c,
		doc:          NewDocument(),
		report:       report,
	}
	p.seed(meta)

	p, err := runStages(ctx, p, stagesFor(mode))
	if err != nil {
		return nil, fmt.Errorf("summarize contribution: %w", err)
	}
	return &Result{Mode: mode, Document: p.doc, Report: p.report}, nil
}

// seed writes the data model version and meta into the contribution summary.
func (p *pass) seed(meta Meta) {
	bucket := p.doc.Root.ensure(datamodel.RootTable)
	bucket.set("data_model_version", &Scalar{Value: p.model.Version})

	keys := make([]string, 0, len(meta))
	for key := range meta {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		switch v := meta[key].(type) {
		case []string:
			set := NewCategoricalSet()
			for _, token := range v {
				set.Add(token)
			}
			bucket.set(key, set)
		case []any:
			set := NewCategoricalSet()
			for _, token := range v {
				set.Add(fmt.Sprint(token))
			}
			bucket.set(key, set)
		default:
			bucket.set(key, &Scalar{Value: v})
		}
	}
}
