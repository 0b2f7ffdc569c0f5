package summary

import (
	apperrors "github.com/earthref/KDD/internal/platform/errors"
)

// Issue is one recorded error or warning. Repeats of the same message are
// folded into Count.
type Issue struct {
	Code    apperrors.Code `json:"code"`
	Message string         `json:"message"`
	Count   int            `json:"count"`
}

// Report collects the errors and warnings of one run.
type Report struct {
	errors   []Issue
	warnings []Issue
	index    map[string]int
	fatal    *apperrors.Error
}

func newReport() *Report {
	return &Report{index: make(map[string]int)}
}

func (r *Report) add(code apperrors.Code, message string) {
	severity := code.Severity()
	key := string(severity) + "\x00" + message
	list := &r.errors
	if severity == apperrors.SeverityWarning {
		list = &r.warnings
	}
	if i, ok := r.index[key]; ok {
		(*list)[i].Count++
		return
	}
	r.index[key] = len(*list)
	*list = append(*list, Issue{Code: code, Message: message, Count: 1})
	if severity == apperrors.SeverityFatal && r.fatal == nil {
		r.fatal = apperrors.New(code, message)
	}
}

// Errors returns the recorded errors, fatal ones included.
func (r *Report) Errors() []Issue {
	return append([]Issue(nil), r.errors...)
}

// Warnings returns the recorded warnings.
func (r *Report) Warnings() []Issue {
	return append([]Issue(nil), r.warnings...)
}

// Fatal reports whether the run stopped before processing.
func (r *Report) Fatal() bool {
	return r.fatal != nil
}

// Err returns the fatal error, if any.
func (r *Report) Err() error {
	if r.fatal == nil {
		return nil
	}
	return r.fatal
}

// Messages flattens issues into their messages.
func Messages(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Message)
	}
	return out
}
