package summary

import (
	"regexp"
	"strings"
)

// NameToKey turns a raw row name into a grouping key. The mapping is a pure
// character substitution, so distinct names keep distinct keys except where
// they differ only by "." versus "_" or surrounding whitespace.
func NameToKey(name string) string {
	return "_" + strings.ReplaceAll(strings.TrimSpace(name), ".", "_")
}

var (
	countColumn = regexp.MustCompile(`^_n_`)
	ageColumn   = regexp.MustCompile(`^_age.*_y(bp)?$`)
)

const (
	keyAll          = "_all"
	keyContribution = "contribution"
	keyResults      = "_n_results"
	keyHasGeo       = "_has_geo"
	keyGeoPoint     = "_geo_point"
	keyGeoEnvelope  = "_geo_envelope"
	keyAgeRange     = "_age_range_ybp"
	keyAgeSigma     = "_age_sigma_y"
	keyReference    = "_reference"
	keyIncomplete   = "_incomplete_summary"
)

func countKey(table string) string {
	return "_n_" + table
}

func internal(column string) bool {
	return strings.HasPrefix(column, "_")
}
