package summarize

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/earthref/KDD/internal/kdd/contribution"
	"github.com/earthref/KDD/internal/kdd/summary"
	"github.com/earthref/KDD/internal/platform/config"
	"github.com/earthref/KDD/internal/services/summary/storage"
	summarysqlite "github.com/earthref/KDD/internal/services/summary/storage/sqlite"
	"github.com/earthref/KDD/internal/services/summary/summarizer"
)

// localBackend runs the engine in process and writes to the sqlite store.
type localBackend struct {
	engine *summary.Summarizer
	store  *summarysqlite.Store
}

func newLocalBackend(cfg Config) (*localBackend, error) {
	engineCfg, err := summarizer.LoadConfig()
	if err != nil {
		return nil, err
	}
	if cfg.DataModel != "" {
		engineCfg.DataModelPath = cfg.DataModel
	}
	engine, err := summarizer.New(engineCfg)
	if err != nil {
		return nil, fmt.Errorf("configure summarizer: %w", err)
	}

	b := &localBackend{engine: engine}
	if !cfg.DryRun {
		if err := config.EnsureParentDir(cfg.DBPath); err != nil {
			return nil, err
		}
		store, err := summarysqlite.Open(cfg.DBPath)
		if err != nil {
			return nil, fmt.Errorf("open summary store: %w", err)
		}
		b.store = store
	}
	return b, nil
}

func (b *localBackend) summarize(ctx context.Context, mode summary.Mode, j job, persist bool) (outcome, error) {
	file, err := os.Open(j.Path)
	if err != nil {
		return outcome{}, err
	}
	c, err := contribution.Decode(file)
	_ = file.Close()
	if err != nil {
		return outcome{}, err
	}

	result, err := b.engine.Run(ctx, mode, c, nil)
	if err != nil {
		return outcome{}, err
	}
	if err := result.Report.Err(); err != nil {
		return outcome{}, err
	}
	document, err := json.Marshal(result.Document)
	if err != nil {
		return outcome{}, fmt.Errorf("encode summary: %w", err)
	}
	errs, warnings := storageIssues(result.Report.Errors()), storageIssues(result.Report.Warnings())

	if persist && b.store != nil {
		if _, err := b.store.PutSummary(ctx, storage.SummaryRecord{
			ContributionID:   j.ID,
			Mode:             mode.String(),
			DataModelVersion: b.engine.Model().Version,
			Document:         document,
			Errors:           errs,
			Warnings:         warnings,
		}); err != nil {
			return outcome{}, err
		}
	}
	return outcome{Document: document, Errors: issueCount(errs), Warnings: issueCount(warnings)}, nil
}

func (b *localBackend) close() error {
	if b.store == nil {
		return nil
	}
	return b.store.Close()
}

func storageIssues(issues []summary.Issue) []storage.Issue {
	out := make([]storage.Issue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, storage.Issue{Code: string(issue.Code), Message: issue.Message, Count: issue.Count})
	}
	return out
}

func issueCount(issues []storage.Issue) int {
	n := 0
	for _, issue := range issues {
		n += issue.Count
	}
	return n
}
