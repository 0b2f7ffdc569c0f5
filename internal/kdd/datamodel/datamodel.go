// Package datamodel describes versioned KdD data models: the ordered tables of
// a contribution and the typed columns each table declares.
package datamodel

import (
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// RootTable is the table that owns a contribution's own metadata.
const RootTable = "contribution"

// ColumnType is the declared value type of a column.
type ColumnType string

const (
	TypeInteger    ColumnType = "Integer"
	TypeNumber     ColumnType = "Number"
	TypeString     ColumnType = "String"
	TypeList       ColumnType = "List"
	TypeDictionary ColumnType = "Dictionary"
	TypeTimestamp  ColumnType = "Timestamp"
	TypeMatrix     ColumnType = "Matrix"
)

// UnitFlag marks String columns holding boolean-like tokens.
const UnitFlag = "Flag"

// Model is one version of the data model.
type Model struct {
	Version      string           `json:"data_model_version" yaml:"data_model_version"`
	UpdatedDay   string           `json:"updated_day,omitempty" yaml:"updated_day,omitempty"`
	PublishedDay string           `json:"published_day,omitempty" yaml:"published_day,omitempty"`
	Tables       map[string]Table `json:"tables" yaml:"tables"`
}

// Table declares one table and its position in the hierarchy.
type Table struct {
	Label       string            `json:"label,omitempty" yaml:"label,omitempty"`
	Position    int               `json:"position" yaml:"position"`
	Description string            `json:"description,omitempty" yaml:"description,omitempty"`
	Notes       string            `json:"notes,omitempty" yaml:"notes,omitempty"`
	Columns     map[string]Column `json:"columns" yaml:"columns"`
}

// Column declares one column of a table.
type Column struct {
	Label       string     `json:"label,omitempty" yaml:"label,omitempty"`
	Group       string     `json:"group,omitempty" yaml:"group,omitempty"`
	Position    int        `json:"position" yaml:"position"`
	Type        ColumnType `json:"type" yaml:"type"`
	Unit        string     `json:"unit,omitempty" yaml:"unit,omitempty"`
	Description string     `json:"description,omitempty" yaml:"description,omitempty"`
	Notes       string     `json:"notes,omitempty" yaml:"notes,omitempty"`
	Examples    []string   `json:"examples,omitempty" yaml:"examples,omitempty"`
	Validations []string   `json:"validations,omitempty" yaml:"validations,omitempty"`
}

var vocabularyValidation = regexp.MustCompile(`cv\("(.*)"\)`)

// Vocabulary returns the controlled vocabulary named by a cv("...")
// validation, if any.
func (c Column) Vocabulary() (string, bool) {
	for _, validation := range c.Validations {
		if match := vocabularyValidation.FindStringSubmatch(validation); match != nil {
			return match[1], true
		}
	}
	return "", false
}

// Validate checks the model has a version, a root table and known column types.
func (m *Model) Validate() error {
	if m == nil {
		return fmt.Errorf("data model is required")
	}
	if strings.TrimSpace(m.Version) == "" {
		return fmt.Errorf("data model version is required")
	}
	if _, ok := m.Tables[RootTable]; !ok {
		return fmt.Errorf("data model %s: table %q is required", m.Version, RootTable)
	}
	for tableName, table := range m.Tables {
		for columnName, column := range table.Columns {
			if !column.Type.Known() {
				return fmt.Errorf("data model %s: %s.%s: unknown column type %q", m.Version, tableName, columnName, column.Type)
			}
		}
	}
	return nil
}

// Known reports whether the type is one the engine can summarize.
func (t ColumnType) Known() bool {
	switch t {
	case TypeInteger, TypeNumber, TypeString, TypeList, TypeDictionary, TypeTimestamp, TypeMatrix:
		return true
	default:
		return false
	}
}

// SortedTables returns table names in hierarchy order. Equal positions are
// ordered by name.
func (m *Model) SortedTables() []string {
	if m == nil {
		return nil
	}
	names := make([]string, 0, len(m.Tables))
	for name := range m.Tables {
		names = append(names, name)
	}
	sort.Slice(names, func(i, j int) bool {
		left, right := m.Tables[names[i]], m.Tables[names[j]]
		if left.Position != right.Position {
			return left.Position < right.Position
		}
		return names[i] < names[j]
	})
	return names
}

// Parent returns the table preceding table in hierarchy order.
func (m *Model) Parent(table string) (string, bool) {
	tables := m.SortedTables()
	for i, name := range tables {
		if name == table {
			if i == 0 {
				return "", false
			}
			return tables[i-1], true
		}
	}
	return "", false
}

// Column looks up a column declaration.
func (m *Model) Column(table, column string) (Column, bool) {
	if m == nil {
		return Column{}, false
	}
	t, ok := m.Tables[table]
	if !ok {
		return Column{}, false
	}
	c, ok := t.Columns[column]
	return c, ok
}

// EntityColumn returns the column naming a row of table: the table name
// without its plural suffix.
func EntityColumn(table string) string {
	return strings.TrimSuffix(table, "s")
}
