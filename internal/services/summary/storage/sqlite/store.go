// Package sqlite provides a SQLite-backed summary storage implementation.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	msqlite "modernc.org/sqlite"
	sqlite3lib "modernc.org/sqlite/lib"

	sqlitemigrate "github.com/earthref/KDD/internal/platform/storage/sqlitemigrate"
	"github.com/earthref/KDD/internal/services/summary/storage"
	"github.com/earthref/KDD/internal/services/summary/storage/sqlite/migrations"
)

// revisionAttempts bounds retries when a generated revision id collides.
const revisionAttempts = 3

// Store persists summary state in SQLite.
type Store struct {
	sqlDB *sql.DB
	clock func() time.Time
	newID func() string
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens a SQLite summary store and applies embedded migrations.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	cleanPath := filepath.Clean(path)
	dsn := cleanPath + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := sqlitemigrate.ApplyMigrations(context.Background(), sqlDB, migrations.FS, ""); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB, clock: time.Now, newID: uuid.NewString}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// PutSummary inserts or replaces the summary of one contribution. Every write
// gets a new revision id; the creation time of an existing record is kept.
func (s *Store) PutSummary(ctx context.Context, record storage.SummaryRecord) (storage.SummaryRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SummaryRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SummaryRecord{}, fmt.Errorf("storage is not configured")
	}
	if record.ContributionID <= 0 {
		return storage.SummaryRecord{}, fmt.Errorf("contribution id must be greater than zero")
	}
	mode := strings.TrimSpace(record.Mode)
	if mode != "pre" && mode != "full" {
		return storage.SummaryRecord{}, fmt.Errorf("mode must be pre or full, got %q", record.Mode)
	}
	if !json.Valid(record.Document) {
		return storage.SummaryRecord{}, fmt.Errorf("document must be valid json")
	}
	errorsJSON, err := encodeIssues(record.Errors)
	if err != nil {
		return storage.SummaryRecord{}, err
	}
	warningsJSON, err := encodeIssues(record.Warnings)
	if err != nil {
		return storage.SummaryRecord{}, err
	}
	updatedAt := record.UpdatedAt.UTC()
	if updatedAt.IsZero() {
		updatedAt = s.clock().UTC()
	}
	createdAt := record.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = updatedAt
	}

	for attempt := 1; ; attempt++ {
		_, err = s.sqlDB.ExecContext(
			ctx,
			`INSERT INTO summaries (
			   contribution_id,
			   revision_id,
			   mode,
			   data_model_version,
			   document,
			   errors,
			   warnings,
			   created_at,
			   updated_at
			 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(contribution_id) DO UPDATE SET
			   revision_id = excluded.revision_id,
			   mode = excluded.mode,
			   data_model_version = excluded.data_model_version,
			   document = excluded.document,
			   errors = excluded.errors,
			   warnings = excluded.warnings,
			   updated_at = excluded.updated_at`,
			record.ContributionID,
			s.newID(),
			mode,
			strings.TrimSpace(record.DataModelVersion),
			string(record.Document),
			errorsJSON,
			warningsJSON,
			toMillis(createdAt),
			toMillis(updatedAt),
		)
		if err == nil {
			break
		}
		if !isRevisionUniqueViolation(err) || attempt == revisionAttempts {
			return storage.SummaryRecord{}, fmt.Errorf("put summary: %w", err)
		}
	}
	return s.GetSummary(ctx, record.ContributionID)
}

// GetSummary returns the summary of one contribution.
func (s *Store) GetSummary(ctx context.Context, contributionID int64) (storage.SummaryRecord, error) {
	if err := ctx.Err(); err != nil {
		return storage.SummaryRecord{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SummaryRecord{}, fmt.Errorf("storage is not configured")
	}
	if contributionID <= 0 {
		return storage.SummaryRecord{}, fmt.Errorf("contribution id must be greater than zero")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT contribution_id, revision_id, mode, data_model_version,
		        document, errors, warnings, created_at, updated_at
		   FROM summaries
		  WHERE contribution_id = ?`,
		contributionID,
	)
	record, err := scanSummary(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return storage.SummaryRecord{}, storage.ErrNotFound
		}
		return storage.SummaryRecord{}, fmt.Errorf("get summary: %w", err)
	}
	return record, nil
}

// ListSummaries returns one page of summary records ordered by contribution.
func (s *Store) ListSummaries(ctx context.Context, pageSize int, pageToken string) (storage.SummaryPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.SummaryPage{}, err
	}
	if s == nil || s.sqlDB == nil {
		return storage.SummaryPage{}, fmt.Errorf("storage is not configured")
	}
	if pageSize <= 0 {
		return storage.SummaryPage{}, fmt.Errorf("page size must be greater than zero")
	}
	var after int64
	if pageToken = strings.TrimSpace(pageToken); pageToken != "" {
		parsed, err := strconv.ParseInt(pageToken, 10, 64)
		if err != nil {
			return storage.SummaryPage{}, fmt.Errorf("invalid page token %q", pageToken)
		}
		after = parsed
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT contribution_id, revision_id, mode, data_model_version,
		        document, errors, warnings, created_at, updated_at
		   FROM summaries
		  WHERE contribution_id > ?
		  ORDER BY contribution_id ASC
		  LIMIT ?`,
		after,
		pageSize+1,
	)
	if err != nil {
		return storage.SummaryPage{}, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	page := storage.SummaryPage{
		Summaries: make([]storage.SummaryRecord, 0, pageSize),
	}
	for rows.Next() {
		record, err := scanSummary(rows)
		if err != nil {
			return storage.SummaryPage{}, fmt.Errorf("list summaries: %w", err)
		}
		page.Summaries = append(page.Summaries, record)
	}
	if err := rows.Err(); err != nil {
		return storage.SummaryPage{}, fmt.Errorf("list summaries: %w", err)
	}
	if len(page.Summaries) > pageSize {
		page.NextPageToken = strconv.FormatInt(page.Summaries[pageSize-1].ContributionID, 10)
		page.Summaries = page.Summaries[:pageSize]
	}
	return page, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSummary(row scanner) (storage.SummaryRecord, error) {
	var (
		record       storage.SummaryRecord
		document     string
		errorsJSON   string
		warningsJSON string
		createdAt    int64
		updatedAt    int64
	)
	if err := row.Scan(
		&record.ContributionID,
		&record.RevisionID,
		&record.Mode,
		&record.DataModelVersion,
		&document,
		&errorsJSON,
		&warningsJSON,
		&createdAt,
		&updatedAt,
	); err != nil {
		return storage.SummaryRecord{}, err
	}
	record.Document = json.RawMessage(document)
	if err := json.Unmarshal([]byte(errorsJSON), &record.Errors); err != nil {
		return storage.SummaryRecord{}, fmt.Errorf("decode errors: %w", err)
	}
	if err := json.Unmarshal([]byte(warningsJSON), &record.Warnings); err != nil {
		return storage.SummaryRecord{}, fmt.Errorf("decode warnings: %w", err)
	}
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}

func encodeIssues(issues []storage.Issue) (string, error) {
	if issues == nil {
		issues = []storage.Issue{}
	}
	data, err := json.Marshal(issues)
	if err != nil {
		return "", fmt.Errorf("encode issues: %w", err)
	}
	return string(data), nil
}

func isRevisionUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	var sqliteErr *msqlite.Error
	if errors.As(err, &sqliteErr) {
		switch sqliteErr.Code() {
		case sqlite3lib.SQLITE_CONSTRAINT_UNIQUE:
			return true
		}
	}
	message := strings.ToLower(err.Error())
	return strings.Contains(message, "unique constraint failed") &&
		strings.Contains(message, "summaries.revision_id")
}

var _ storage.SummaryStore = (*Store)(nil)
