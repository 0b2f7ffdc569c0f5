// Package storage defines persistence contracts for summary service state.
package storage

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates a requested summary record is missing.
	ErrNotFound = errors.New("record not found")
)

// Issue is one error or warning recorded while summarizing.
type Issue struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Count   int    `json:"count"`
}

// SummaryRecord stores the latest summary document of one contribution.
type SummaryRecord struct {
	ContributionID int64
	// RevisionID changes on every write.
	RevisionID       string
	Mode             string
	DataModelVersion string
	Document         json.RawMessage
	Errors           []Issue
	Warnings         []Issue
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// SummaryPage stores one page of summary records.
type SummaryPage struct {
	Summaries     []SummaryRecord
	NextPageToken string
}

// SummaryStore persists summary records.
type SummaryStore interface {
	PutSummary(ctx context.Context, record SummaryRecord) (SummaryRecord, error)
	GetSummary(ctx context.Context, contributionID int64) (SummaryRecord, error)
	ListSummaries(ctx context.Context, pageSize int, pageToken string) (SummaryPage, error)
}
