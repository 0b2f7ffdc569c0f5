package summarize

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	server "github.com/earthref/KDD/internal/services/summary/app"
	summarysqlite "github.com/earthref/KDD/internal/services/summary/storage/sqlite"
	"golang.org/x/text/language"
)

const scenarioContribution = `{
  "contribution": [{}],
  "kds": [{"element": "Na", "kd": "5", "rock_types": "Basalt:Gabbro"}]
}`

func writeContributions(t *testing.T, files map[string]string) string {
	t.Helper()
	dir := t.TempDir()
	for name, body := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}
	return dir
}

func readSummary(t *testing.T, path string) map[string]any {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read summary: %v", err)
	}
	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode summary: %v", err)
	}
	return doc
}

func kdsBucket(t *testing.T, doc map[string]any) map[string]any {
	t.Helper()
	contribution, _ := doc["contribution"].(map[string]any)
	summary, _ := contribution["summary"].(map[string]any)
	kds, ok := summary["kds"].(map[string]any)
	if !ok {
		t.Fatalf("missing kds bucket in %v", doc)
	}
	return kds
}

func TestParseConfig(t *testing.T) {
	t.Parallel()

	cfg, err := ParseConfig(flag.NewFlagSet("summarize", flag.ContinueOnError), []string{"-dir", "in", "-mode", "pre", "-concurrency", "2"})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Dir != "in" || cfg.Mode != "pre" || cfg.Concurrency != 2 {
		t.Fatalf("config = %+v", cfg)
	}
	if cfg.DBPath != filepath.Join("data", "summaries.db") {
		t.Fatalf("db path = %q", cfg.DBPath)
	}

	tests := [][]string{
		{},
		{"-dir", "in", "-mode", "partial"},
		{"-dir", "in", "-concurrency", "0"},
	}
	for _, args := range tests {
		fs := flag.NewFlagSet("summarize", flag.ContinueOnError)
		fs.SetOutput(io.Discard)
		if _, err := ParseConfig(fs, args); err == nil {
			t.Fatalf("expected error for %v", args)
		}
	}
}

func TestListContributions(t *testing.T) {
	t.Parallel()

	dir := writeContributions(t, map[string]string{
		"12.json":         "{}",
		"notes.json":      "{}",
		"12.summary.json": "{}",
		"readme.txt":      "",
	})
	if err := os.Mkdir(filepath.Join(dir, "nested.json"), 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}

	jobs, err := listContributions(dir)
	if err != nil {
		t.Fatalf("list contributions: %v", err)
	}
	if len(jobs) != 2 {
		t.Fatalf("jobs = %+v", jobs)
	}
	if jobs[0].Name != "12" || jobs[0].ID != 12 {
		t.Fatalf("first job = %+v", jobs[0])
	}
	if jobs[1].Name != "notes" || jobs[1].ID != 0 {
		t.Fatalf("second job = %+v", jobs[1])
	}
}

func TestRunLocalStoresAndWritesSummaries(t *testing.T) {
	t.Setenv("KDD_CROSSREF_DISABLED", "true")

	dir := writeContributions(t, map[string]string{
		"101.json":   scenarioContribution,
		"notes.json": scenarioContribution,
		"bad.json":   "{",
	})
	outDir := filepath.Join(t.TempDir(), "out")
	dbPath := filepath.Join(t.TempDir(), "db", "summaries.db")

	var out bytes.Buffer
	err := Run(context.Background(), Config{
		Dir:         dir,
		DBPath:      dbPath,
		Out:         outDir,
		Mode:        "full",
		Concurrency: 2,
		Lang:        "en",
	}, &out)
	if err == nil || !strings.Contains(err.Error(), "1 contribution(s) failed") {
		t.Fatalf("run error = %v", err)
	}
	if got := out.String(); !strings.Contains(got, "summarized 2 of 3 contribution(s) in full mode") || !strings.Contains(got, "1 stored") {
		t.Fatalf("output = %q", got)
	}

	kds := kdsBucket(t, readSummary(t, filepath.Join(outDir, "101.summary.json")))
	if kds["_n_kds"] != float64(1) {
		t.Fatalf("_n_kds = %v", kds["_n_kds"])
	}
	if _, err := os.Stat(filepath.Join(outDir, "notes.summary.json")); err != nil {
		t.Fatalf("expected notes summary: %v", err)
	}

	store, err := summarysqlite.Open(dbPath)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	defer store.Close()
	record, err := store.GetSummary(context.Background(), 101)
	if err != nil {
		t.Fatalf("get summary: %v", err)
	}
	if record.Mode != "full" || record.DataModelVersion != "1.0" {
		t.Fatalf("record = %+v", record)
	}
}

func TestRunDryRunSkipsStore(t *testing.T) {
	t.Setenv("KDD_CROSSREF_DISABLED", "true")

	dir := writeContributions(t, map[string]string{"7.json": scenarioContribution})
	dbPath := filepath.Join(t.TempDir(), "summaries.db")

	var out bytes.Buffer
	if err := Run(context.Background(), Config{
		Dir:         dir,
		DBPath:      dbPath,
		Mode:        "pre",
		Concurrency: 1,
		DryRun:      true,
	}, &out); err != nil {
		t.Fatalf("run: %v", err)
	}
	if !strings.Contains(out.String(), "in pre mode") || !strings.Contains(out.String(), "dry run") {
		t.Fatalf("output = %q", out.String())
	}
	if _, err := os.Stat(dbPath); !os.IsNotExist(err) {
		t.Fatalf("dry run must not create the database, stat err = %v", err)
	}
}

func TestRunEmptyDir(t *testing.T) {
	t.Parallel()

	if err := Run(context.Background(), Config{Dir: t.TempDir(), Mode: "full", Concurrency: 1}, nil); err == nil {
		t.Fatal("expected error for empty dir")
	}
}

func TestRunRemote(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "remote.db")
	t.Setenv("KDD_SUMMARY_DB_PATH", dbPath)
	t.Setenv("KDD_CROSSREF_DISABLED", "true")

	srv, err := server.NewWithAddr("127.0.0.1:0")
	if err != nil {
		t.Fatalf("new server: %v", err)
	}
	runCtx, runCancel := context.WithCancel(context.Background())
	serveDone := make(chan error, 1)
	go func() {
		serveDone <- srv.Serve(runCtx)
	}()
	t.Cleanup(func() {
		runCancel()
		select {
		case <-serveDone:
		case <-time.After(5 * time.Second):
			t.Error("timeout waiting for server shutdown")
		}
	})

	dir := writeContributions(t, map[string]string{"55.json": scenarioContribution})
	outDir := t.TempDir()
	var out bytes.Buffer
	if err := Run(context.Background(), Config{
		Dir:         dir,
		Out:         outDir,
		Mode:        "pre",
		Concurrency: 1,
		Addr:        srv.Addr(),
	}, &out); err != nil {
		t.Fatalf("run remote: %v", err)
	}
	if !strings.Contains(out.String(), "1 stored") {
		t.Fatalf("output = %q", out.String())
	}
	kds := kdsBucket(t, readSummary(t, filepath.Join(outDir, "55.summary.json")))
	if kds["_n_results"] != float64(0) {
		t.Fatalf("_n_results = %v", kds["_n_results"])
	}
}

func TestPrinterTag(t *testing.T) {
	t.Parallel()

	if got := printerTag("not a tag!"); got.String() != language.English.String() {
		t.Fatalf("fallback tag = %v", got)
	}
	if got := printerTag("de"); got.String() != language.German.String() {
		t.Fatalf("tag = %v", got)
	}
}
