package summary

import (
	"encoding/json"

	"github.com/earthref/KDD/internal/kdd/contribution"
	"github.com/earthref/KDD/internal/kdd/datamodel"
)

// GroupKey identifies one row group of a table.
type GroupKey struct {
	Table  string
	Own    string
	Parent string
}

// Group is the rows sharing a GroupKey and their summary.
type Group struct {
	Key     GroupKey
	Rows    []contribution.Row
	Summary *Container
}

// Document is the summary of one contribution: the root container plus every
// row group, kept in creation order.
type Document struct {
	Root *Container

	groups map[GroupKey]*Group
	keys   []GroupKey
	tables []string
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		Root:   newContainer(),
		groups: make(map[GroupKey]*Group),
	}
}

// Group returns the group stored under key.
func (d *Document) Group(key GroupKey) (*Group, bool) {
	g, ok := d.groups[key]
	return g, ok
}

// Groups returns every group in creation order.
func (d *Document) Groups() []*Group {
	out := make([]*Group, 0, len(d.keys))
	for _, key := range d.keys {
		out = append(out, d.groups[key])
	}
	return out
}

// GroupsOf returns the groups of table in creation order.
func (d *Document) GroupsOf(table string) []*Group {
	var out []*Group
	for _, key := range d.keys {
		if key.Table == table {
			out = append(out, d.groups[key])
		}
	}
	return out
}

// Tables returns the non-root tables the contribution provided.
func (d *Document) Tables() []string {
	return append([]string(nil), d.tables...)
}

// Containers returns the root container followed by every group summary.
func (d *Document) Containers() []*Container {
	out := make([]*Container, 0, len(d.keys)+1)
	out = append(out, d.Root)
	for _, key := range d.keys {
		out = append(out, d.groups[key].Summary)
	}
	return out
}

func (d *Document) addTable(table string) {
	for _, existing := range d.tables {
		if existing == table {
			return
		}
	}
	d.tables = append(d.tables, table)
}

func (d *Document) ensureGroup(key GroupKey) (*Group, bool) {
	if g, ok := d.groups[key]; ok {
		return g, false
	}
	d.addTable(key.Table)
	g := &Group{Key: key, Rows: []contribution.Row{}, Summary: newContainer()}
	d.groups[key] = g
	d.keys = append(d.keys, key)
	return g, true
}

// groupsNamed returns the groups of table whose own key is own.
func (d *Document) groupsNamed(table, own string) []*Group {
	var out []*Group
	for _, key := range d.keys {
		if key.Table == table && key.Own == own {
			out = append(out, d.groups[key])
		}
	}
	return out
}

type groupJSON struct {
	Rows    []contribution.Row `json:"rows"`
	Summary *Container         `json:"summary"`
}

// MarshalJSON renders
//
//	{<table>: {<own>: {<parent>: {rows, summary}}}, contribution: {summary}}
//
// with sorted object keys.
func (d *Document) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(d.tables)+1)
	for _, table := range d.tables {
		out[table] = map[string]map[string]groupJSON{}
	}
	for _, key := range d.keys {
		g := d.groups[key]
		byOwn := out[key.Table].(map[string]map[string]groupJSON)
		if byOwn[key.Own] == nil {
			byOwn[key.Own] = map[string]groupJSON{}
		}
		byOwn[key.Own][key.Parent] = groupJSON{Rows: g.Rows, Summary: g.Summary}
	}
	out[datamodel.RootTable] = struct {
		Summary *Container `json:"summary"`
	}{d.Root}
	return json.Marshal(out)
}
