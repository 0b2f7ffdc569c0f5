// Package errors provides structured, code-carrying errors for KdD services.
package errors

import "google.golang.org/grpc/codes"

// Code is a machine-readable error code.
type Code string

// Severity classifies how a recorded error affects a summarization run.
type Severity string

const (
	SeverityFatal   Severity = "fatal"
	SeverityError   Severity = "error"
	SeverityWarning Severity = "warning"
)

const (
	// CodeUnknown represents an unknown error.
	CodeUnknown Code = "UNKNOWN"

	// Contribution errors
	CodeContributionMissing Code = "CONTRIBUTION_MISSING"
	CodeContributionInvalid Code = "CONTRIBUTION_INVALID"

	// Summary structure errors
	CodeSummaryTargetInvalid Code = "SUMMARY_TARGET_INVALID"
	CodeDataModelInvalid     Code = "DATA_MODEL_INVALID"
	CodeColumnTypeUnknown    Code = "COLUMN_TYPE_UNRECOGNIZED"

	// Data-quality warnings
	CodeColumnUnknown   Code = "COLUMN_UNRECOGNIZED"
	CodeTableUnknown    Code = "TABLE_UNRECOGNIZED"
	CodeParentNotFound  Code = "PARENT_NOT_FOUND"
	CodeParentAmbiguous Code = "PARENT_AMBIGUOUS"

	// Storage errors
	CodeNotFound Code = "NOT_FOUND"
)

// Severity reports the default severity of a code.
func (c Code) Severity() Severity {
	switch c {
	case CodeContributionMissing:
		return SeverityFatal
	case CodeColumnUnknown, CodeTableUnknown, CodeParentNotFound, CodeParentAmbiguous:
		return SeverityWarning
	default:
		return SeverityError
	}
}

// GRPCCode maps domain codes to gRPC status codes.
func (c Code) GRPCCode() codes.Code {
	switch c {
	// InvalidArgument - the request carried an unusable contribution
	case CodeContributionMissing,
		CodeContributionInvalid:
		return codes.InvalidArgument

	// FailedPrecondition - the configured data model cannot serve the request
	case CodeDataModelInvalid,
		CodeColumnTypeUnknown:
		return codes.FailedPrecondition

	case CodeNotFound:
		return codes.NotFound

	default:
		return codes.Internal
	}
}
