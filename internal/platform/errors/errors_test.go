package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestErrorIsMatchesByCode(t *testing.T) {
	err := fmt.Errorf("wrapped: %w", New(CodeContributionMissing, "Invalid contribution."))
	if !stderrors.Is(err, New(CodeContributionMissing, "")) {
		t.Fatal("expected errors.Is to match on code")
	}
	if stderrors.Is(err, New(CodeNotFound, "")) {
		t.Fatal("expected different code not to match")
	}
}

func TestWrapUnwrapsCause(t *testing.T) {
	cause := stderrors.New("disk full")
	err := Wrap(CodeUnknown, "store summary", cause)
	if !stderrors.Is(err, cause) {
		t.Fatal("expected cause to be reachable")
	}
}

func TestSeverity(t *testing.T) {
	tests := []struct {
		code Code
		want Severity
	}{
		{CodeContributionMissing, SeverityFatal},
		{CodeSummaryTargetInvalid, SeverityError},
		{CodeDataModelInvalid, SeverityError},
		{CodeColumnTypeUnknown, SeverityError},
		{CodeColumnUnknown, SeverityWarning},
		{CodeParentNotFound, SeverityWarning},
	}
	for _, tt := range tests {
		if got := New(tt.code, "").Severity(); got != tt.want {
			t.Fatalf("%s severity = %s, want %s", tt.code, got, tt.want)
		}
	}
}

func TestToGRPCStatusAttachesErrorInfo(t *testing.T) {
	err := WithMetadata(CodeContributionMissing, "Invalid contribution.", map[string]string{"mode": "full"}).ToGRPCStatus()
	st, ok := status.FromError(err)
	if !ok {
		t.Fatalf("expected gRPC status, got %v", err)
	}
	if st.Code() != codes.InvalidArgument {
		t.Fatalf("code = %v, want %v", st.Code(), codes.InvalidArgument)
	}
	var info *errdetails.ErrorInfo
	for _, detail := range st.Details() {
		if d, ok := detail.(*errdetails.ErrorInfo); ok {
			info = d
		}
	}
	if info == nil {
		t.Fatal("expected ErrorInfo detail")
	}
	if info.GetReason() != string(CodeContributionMissing) || info.GetDomain() != Domain {
		t.Fatalf("unexpected error info: %+v", info)
	}
	if info.GetMetadata()["mode"] != "full" {
		t.Fatalf("metadata = %v", info.GetMetadata())
	}
}
