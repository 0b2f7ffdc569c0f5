// Package summarize summarizes a directory of contribution files in batch.
package summarize

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/earthref/KDD/internal/kdd/summary"
	"github.com/earthref/KDD/internal/platform/config"
	"golang.org/x/sync/errgroup"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const (
	contributionExt = ".json"
	summaryExt      = ".summary.json"
)

// Config holds configuration for the batch summarizer.
type Config struct {
	Dir         string
	DBPath      string
	Out         string
	Mode        string
	Concurrency int
	DryRun      bool
	DataModel   string
	Addr        string
	Lang        string
}

// ParseConfig parses CLI flags into a Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	cfg := Config{
		DBPath:      config.DataPath("", "summaries.db"),
		Mode:        summary.ModeFull.String(),
		Concurrency: 4,
		Lang:        "en",
	}

	fs.StringVar(&cfg.Dir, "dir", "", "directory containing contribution JSON files")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "summary database path")
	fs.StringVar(&cfg.Out, "out", "", "directory for <name>.summary.json documents")
	fs.StringVar(&cfg.Mode, "mode", cfg.Mode, "summary mode: pre or full")
	fs.IntVar(&cfg.Concurrency, "concurrency", cfg.Concurrency, "contributions summarized at once")
	fs.BoolVar(&cfg.DryRun, "dry-run", false, "summarize without writing to the database")
	fs.StringVar(&cfg.DataModel, "data-model", "", "data model JSON or YAML file")
	fs.StringVar(&cfg.Addr, "addr", "", "summary service address; summarize locally when empty")
	fs.StringVar(&cfg.Lang, "lang", cfg.Lang, "language tag for the totals line")
	if err := fs.Parse(args); err != nil {
		return Config{}, err
	}

	if strings.TrimSpace(cfg.Dir) == "" {
		return Config{}, errors.New("dir is required")
	}
	if _, err := summary.ParseMode(cfg.Mode); err != nil {
		return Config{}, err
	}
	if cfg.Concurrency <= 0 {
		return Config{}, errors.New("concurrency must be greater than zero")
	}
	return cfg, nil
}

// job is one contribution file. ID is taken from a numeric file name and is
// zero otherwise; only identified contributions are stored.
type job struct {
	Name string
	Path string
	ID   int64
}

// outcome is what a backend reports for one summarized file.
type outcome struct {
	Document []byte
	Errors   int
	Warnings int
}

type backend interface {
	summarize(ctx context.Context, mode summary.Mode, j job, persist bool) (outcome, error)
	close() error
}

type totals struct {
	mu        sync.Mutex
	succeeded int
	failed    int
	stored    int
	errors    int
	warnings  int
}

// Run summarizes every contribution file in cfg.Dir. A file that cannot be
// summarized is logged and counted; the batch continues.
func Run(ctx context.Context, cfg Config, out io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if out == nil {
		out = io.Discard
	}
	mode, err := summary.ParseMode(cfg.Mode)
	if err != nil {
		return err
	}
	jobs, err := listContributions(cfg.Dir)
	if err != nil {
		return err
	}
	if len(jobs) == 0 {
		return fmt.Errorf("no contribution files found in %s", cfg.Dir)
	}
	if cfg.Out != "" {
		if err := os.MkdirAll(cfg.Out, 0o755); err != nil {
			return fmt.Errorf("create output dir: %w", err)
		}
	}

	var b backend
	if strings.TrimSpace(cfg.Addr) != "" {
		b, err = newRemoteBackend(ctx, cfg.Addr)
	} else {
		b, err = newLocalBackend(cfg)
	}
	if err != nil {
		return err
	}
	defer func() {
		if err := b.close(); err != nil {
			log.Printf("summarize close backend: %v", err)
		}
	}()

	var sum totals
	group, groupCtx := errgroup.WithContext(ctx)
	group.SetLimit(max(cfg.Concurrency, 1))
	for _, j := range jobs {
		group.Go(func() error {
			if err := groupCtx.Err(); err != nil {
				return err
			}
			persist := !cfg.DryRun && j.ID > 0
			result, err := b.summarize(groupCtx, mode, j, persist)
			if err == nil && cfg.Out != "" {
				err = writeSummary(cfg.Out, j.Name, result.Document)
			}

			sum.mu.Lock()
			defer sum.mu.Unlock()
			if err != nil {
				if ctxErr := groupCtx.Err(); ctxErr != nil {
					return ctxErr
				}
				log.Printf("summarize %s: %v", j.Name, err)
				sum.failed++
				return nil
			}
			sum.succeeded++
			sum.errors += result.Errors
			sum.warnings += result.Warnings
			if persist {
				sum.stored++
			}
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return err
	}

	p := message.NewPrinter(printerTag(cfg.Lang))
	if cfg.DryRun {
		_, err = p.Fprintf(out, "summarized %d of %d contribution(s) in %s mode, %d error(s), %d warning(s), dry run\n",
			sum.succeeded, len(jobs), mode, sum.errors, sum.warnings)
	} else {
		_, err = p.Fprintf(out, "summarized %d of %d contribution(s) in %s mode, %d error(s), %d warning(s), %d stored\n",
			sum.succeeded, len(jobs), mode, sum.errors, sum.warnings, sum.stored)
	}
	if err != nil {
		return err
	}
	if sum.failed > 0 {
		return fmt.Errorf("%d contribution(s) failed", sum.failed)
	}
	return nil
}

func printerTag(lang string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(lang))
	if err != nil {
		return language.English
	}
	return tag
}

func listContributions(dir string) ([]job, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, err
	}
	var jobs []job
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, contributionExt) || strings.HasSuffix(name, summaryExt) {
			continue
		}
		base := strings.TrimSuffix(name, contributionExt)
		id, err := strconv.ParseInt(base, 10, 64)
		if err != nil || id < 0 {
			id = 0
		}
		jobs = append(jobs, job{Name: base, Path: filepath.Join(dir, name), ID: id})
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].Name < jobs[j].Name })
	return jobs, nil
}

func writeSummary(dir, name string, document []byte) error {
	path := filepath.Join(dir, name+summaryExt)
	if err := os.WriteFile(path, append(document, '\n'), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	return nil
}
