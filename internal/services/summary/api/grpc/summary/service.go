// Package summary exposes the kdd.summary.v1 gRPC operations.
package summary

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/earthref/KDD/internal/kdd/contribution"
	"github.com/earthref/KDD/internal/kdd/datamodel"
	engine "github.com/earthref/KDD/internal/kdd/summary"
	apperrors "github.com/earthref/KDD/internal/platform/errors"
	"github.com/earthref/KDD/internal/platform/grpc/pagination"
	"github.com/earthref/KDD/internal/services/summary/storage"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/encoding/protojson"
	"google.golang.org/protobuf/types/known/structpb"
)

const (
	defaultListSummariesPageSize = 10
	maxListSummariesPageSize     = 50
)

// Engine runs the summary pipeline.
type Engine interface {
	Run(ctx context.Context, mode engine.Mode, c contribution.Contribution, meta engine.Meta) (*engine.Result, error)
	Model() *datamodel.Model
}

// Service exposes SummaryService operations. The store is optional; without
// it, summaries are computed but never persisted or read back.
type Service struct {
	engine Engine
	store  storage.SummaryStore
}

var _ SummaryServer = (*Service)(nil)

// NewService creates a summary service.
func NewService(summarizer Engine, store storage.SummaryStore) *Service {
	return &Service{engine: summarizer, store: store}
}

// PreSummarize returns the counts-only summary of a contribution.
func (s *Service) PreSummarize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.run(ctx, engine.ModeCounts, in)
}

// Summarize returns the full summary of a contribution.
func (s *Service) Summarize(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	return s.run(ctx, engine.ModeFull, in)
}

type summarizeResponse struct {
	ContributionID int64           `json:"contribution_id,omitempty"`
	RevisionID     string          `json:"revision_id,omitempty"`
	Mode           string          `json:"mode"`
	Incomplete     bool            `json:"incomplete"`
	Summary        json.RawMessage `json:"summary"`
	Errors         []storage.Issue `json:"errors"`
	Warnings       []storage.Issue `json:"warnings"`
}

func (s *Service) run(ctx context.Context, mode engine.Mode, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "summarize request is required")
	}
	if s == nil || s.engine == nil {
		return nil, status.Error(codes.Internal, "summarizer is not configured")
	}
	fields := in.GetFields()

	contributionID, err := int64Field(fields, "contribution_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	persist := fields["persist"].GetBoolValue()
	if persist {
		if contributionID <= 0 {
			return nil, status.Error(codes.InvalidArgument, "contribution id is required to persist a summary")
		}
		if s.store == nil {
			return nil, status.Error(codes.FailedPrecondition, "summary store is not configured")
		}
	}

	c, err := contributionField(fields)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodeContributionInvalid, "Invalid contribution: "+err.Error(), err).ToGRPCStatus()
	}
	result, err := s.engine.Run(ctx, mode, c, metaField(fields))
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, status.FromContextError(ctxErr).Err()
		}
		return nil, status.Errorf(codes.Internal, "summarize contribution: %v", err)
	}
	if fatal := result.Report.Err(); fatal != nil {
		var domainErr *apperrors.Error
		if errors.As(fatal, &domainErr) {
			return nil, domainErr.ToGRPCStatus()
		}
		return nil, status.Error(codes.InvalidArgument, fatal.Error())
	}

	document, err := json.Marshal(result.Document)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode summary: %v", err)
	}
	resp := summarizeResponse{
		ContributionID: contributionID,
		Mode:           mode.String(),
		Incomplete:     result.Incomplete(),
		Summary:        document,
		Errors:         issuesFromReport(result.Report.Errors()),
		Warnings:       issuesFromReport(result.Report.Warnings()),
	}
	if persist {
		record, err := s.store.PutSummary(ctx, storage.SummaryRecord{
			ContributionID:   contributionID,
			Mode:             resp.Mode,
			DataModelVersion: s.engine.Model().Version,
			Document:         document,
			Errors:           resp.Errors,
			Warnings:         resp.Warnings,
		})
		if err != nil {
			return nil, status.Errorf(codes.Internal, "put summary: %v", err)
		}
		resp.RevisionID = record.RevisionID
	}
	return toStruct(resp)
}

type summaryRecordResponse struct {
	ContributionID   int64           `json:"contribution_id"`
	RevisionID       string          `json:"revision_id"`
	Mode             string          `json:"mode"`
	Incomplete       bool            `json:"incomplete"`
	DataModelVersion string          `json:"data_model_version"`
	Summary          json.RawMessage `json:"summary,omitempty"`
	Errors           []storage.Issue `json:"errors,omitempty"`
	Warnings         []storage.Issue `json:"warnings,omitempty"`
	CreatedAt        string          `json:"created_at"`
	UpdatedAt        string          `json:"updated_at"`
}

// GetSummary returns the stored summary of one contribution.
func (s *Service) GetSummary(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "get summary request is required")
	}
	if s == nil || s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "summary store is not configured")
	}
	contributionID, err := int64Field(in.GetFields(), "contribution_id")
	if err != nil {
		return nil, status.Error(codes.InvalidArgument, err.Error())
	}
	if contributionID <= 0 {
		return nil, status.Error(codes.InvalidArgument, "contribution id is required")
	}

	record, err := s.store.GetSummary(ctx, contributionID)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, apperrors.WithMetadata(apperrors.CodeNotFound, "summary not found", map[string]string{
				"contribution_id": strconv.FormatInt(contributionID, 10),
			}).ToGRPCStatus()
		}
		return nil, status.Errorf(codes.Internal, "get summary: %v", err)
	}
	return toStruct(recordResponse(record, true))
}

type listSummariesResponse struct {
	Summaries     []summaryRecordResponse `json:"summaries"`
	NextPageToken string                  `json:"next_page_token,omitempty"`
}

// ListSummaries returns a page of stored summaries without their documents.
func (s *Service) ListSummaries(ctx context.Context, in *structpb.Struct) (*structpb.Struct, error) {
	if in == nil {
		return nil, status.Error(codes.InvalidArgument, "list summaries request is required")
	}
	if s == nil || s.store == nil {
		return nil, status.Error(codes.FailedPrecondition, "summary store is not configured")
	}
	fields := in.GetFields()
	pageSize := pagination.ClampPageSize(fields["page_size"].GetNumberValue(), pagination.PageSizeConfig{
		Default: defaultListSummariesPageSize,
		Max:     maxListSummariesPageSize,
	})
	page, err := s.store.ListSummaries(ctx, pageSize, strings.TrimSpace(fields["page_token"].GetStringValue()))
	if err != nil {
		return nil, status.Errorf(codes.Internal, "list summaries: %v", err)
	}

	resp := listSummariesResponse{
		Summaries:     make([]summaryRecordResponse, 0, len(page.Summaries)),
		NextPageToken: page.NextPageToken,
	}
	for _, record := range page.Summaries {
		resp.Summaries = append(resp.Summaries, recordResponse(record, false))
	}
	return toStruct(resp)
}

func recordResponse(record storage.SummaryRecord, withDocument bool) summaryRecordResponse {
	resp := summaryRecordResponse{
		ContributionID:   record.ContributionID,
		RevisionID:       record.RevisionID,
		Mode:             record.Mode,
		Incomplete:       record.Mode == engine.ModeCounts.String(),
		DataModelVersion: record.DataModelVersion,
		CreatedAt:        record.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:        record.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if withDocument {
		resp.Summary = record.Document
		resp.Errors = record.Errors
		resp.Warnings = record.Warnings
	}
	return resp
}

func int64Field(fields map[string]*structpb.Value, name string) (int64, error) {
	value, ok := fields[name]
	if !ok {
		return 0, nil
	}
	switch kind := value.GetKind().(type) {
	case *structpb.Value_NullValue:
		return 0, nil
	case *structpb.Value_NumberValue:
		n := kind.NumberValue
		if n != math.Trunc(n) || math.Abs(n) > 1<<53 {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return int64(n), nil
	case *structpb.Value_StringValue:
		text := strings.TrimSpace(kind.StringValue)
		if text == "" {
			return 0, nil
		}
		n, err := strconv.ParseInt(text, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s must be an integer", name)
		}
		return n, nil
	default:
		return 0, fmt.Errorf("%s must be an integer", name)
	}
}

// contributionField returns nil when the request carries no contribution so
// the engine reports it as missing.
func contributionField(fields map[string]*structpb.Value) (contribution.Contribution, error) {
	value, ok := fields["contribution"]
	if !ok {
		return nil, nil
	}
	if _, isNull := value.GetKind().(*structpb.Value_NullValue); isNull {
		return nil, nil
	}
	tables := value.GetStructValue()
	if tables == nil {
		return nil, errors.New("contribution must be an object of tables")
	}
	return contribution.FromMaps(tables.AsMap())
}

func metaField(fields map[string]*structpb.Value) engine.Meta {
	meta := fields["meta"].GetStructValue()
	if meta == nil {
		return nil
	}
	return engine.Meta(meta.AsMap())
}

func issuesFromReport(issues []engine.Issue) []storage.Issue {
	out := make([]storage.Issue, 0, len(issues))
	for _, issue := range issues {
		out = append(out, storage.Issue{Code: string(issue.Code), Message: issue.Message, Count: issue.Count})
	}
	return out
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, status.Errorf(codes.Internal, "encode response: %v", err)
	}
	out := new(structpb.Struct)
	if err := protojson.Unmarshal(data, out); err != nil {
		return nil, status.Errorf(codes.Internal, "decode response: %v", err)
	}
	return out, nil
}
