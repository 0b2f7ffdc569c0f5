package contribution

import (
	"reflect"
	"strings"
	"testing"
)

func TestDecodeRowArrays(t *testing.T) {
	t.Parallel()

	c, err := Decode(strings.NewReader(`{
		"contribution": [{"id": 12, "reference": "10.1029/92JB01202", "is_validated": true, "description": null}],
		"kds": [{"element": "Na", "kd": 5.10, "rock_types": "Basalt:Gabbro", "kd_sigma": ""}]
	}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := c.Tables(); !reflect.DeepEqual(got, []string{"contribution", "kds"}) {
		t.Fatalf("tables = %v", got)
	}
	wantRoot := Row{"id": "12", "reference": "10.1029/92JB01202", "is_validated": "true"}
	if got := c.Rows("contribution")[0]; !reflect.DeepEqual(got, wantRoot) {
		t.Fatalf("contribution row = %v, want %v", got, wantRoot)
	}
	wantKd := Row{"element": "Na", "kd": "5.10", "rock_types": "Basalt:Gabbro"}
	if got := c.Rows("kds")[0]; !reflect.DeepEqual(got, wantKd) {
		t.Fatalf("kds row = %v, want %v", got, wantKd)
	}
}

func TestDecodeBulkTable(t *testing.T) {
	t.Parallel()

	c, err := Unmarshal([]byte(`{"kds": {"columns": ["element", "kd"], "rows": [["Na", "5"], ["Rb", null], ["Cs"]]}}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	want := []Row{{"element": "Na", "kd": "5"}, {"element": "Rb"}, {"element": "Cs"}}
	if got := c.Rows("kds"); !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestDecodeErrors(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":       `{`,
		"null document":  `null`,
		"scalar table":   `{"kds": 5}`,
		"nested cell":    `{"kds": [{"kd": {"a": 1}}]}`,
		"too many cells": `{"kds": {"columns": ["a"], "rows": [["1", "2"]]}}`,
	}
	for name, body := range cases {
		if _, err := Unmarshal([]byte(body)); err == nil {
			t.Errorf("%s: expected error", name)
		}
	}
}

func TestFromMaps(t *testing.T) {
	t.Parallel()

	c, err := FromMaps(map[string]any{
		"kds": []any{map[string]any{"element": "Na", "kd": float64(5)}},
	})
	if err != nil {
		t.Fatalf("from maps: %v", err)
	}
	if got := c.Rows("kds")[0]["kd"]; got != "5" {
		t.Fatalf("kd = %q, want 5", got)
	}
}

func TestNullTableHasNoRows(t *testing.T) {
	t.Parallel()

	c, err := Unmarshal([]byte(`{"kds": null}`))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rows := c.Rows("kds"); len(rows) != 0 {
		t.Fatalf("rows = %v", rows)
	}
}
