// Package contribution decodes KdD contributions: named tables of rows whose
// cells are kept as raw strings.
package contribution

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strconv"
)

// Row maps column names to raw cell values.
type Row map[string]string

// Contribution maps table names to their rows.
type Contribution map[string][]Row

// Tables returns the table names in sorted order.
func (c Contribution) Tables() []string {
	names := make([]string, 0, len(c))
	for name := range c {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Rows returns the rows of table.
func (c Contribution) Rows(table string) []Row {
	return c[table]
}

// Decode reads a contribution JSON document. Each table is either an array of
// row objects or a bulk {"columns": [...], "rows": [[...], ...]} object.
func Decode(r io.Reader) (Contribution, error) {
	dec := json.NewDecoder(r)
	dec.UseNumber()
	var raw map[string]json.RawMessage
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode contribution: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("decode contribution: document is null")
	}
	c := make(Contribution, len(raw))
	for table, body := range raw {
		rows, err := decodeTable(body)
		if err != nil {
			return nil, fmt.Errorf("decode contribution table %s: %w", table, err)
		}
		c[table] = rows
	}
	return c, nil
}

// Unmarshal decodes a contribution from data.
func Unmarshal(data []byte) (Contribution, error) {
	return Decode(bytes.NewReader(data))
}

// FromMaps converts generic decoded values, such as the output of
// structpb.Struct.AsMap, into a contribution.
func FromMaps(tables map[string]any) (Contribution, error) {
	data, err := json.Marshal(tables)
	if err != nil {
		return nil, fmt.Errorf("encode contribution: %w", err)
	}
	return Unmarshal(data)
}

type bulkTable struct {
	Columns []string            `json:"columns"`
	Rows    [][]json.RawMessage `json:"rows"`
}

func decodeTable(body json.RawMessage) ([]Row, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '[':
		var objects []map[string]json.RawMessage
		if err := unmarshalNumbers(trimmed, &objects); err != nil {
			return nil, err
		}
		rows := make([]Row, 0, len(objects))
		for _, object := range objects {
			row := make(Row, len(object))
			for column, cell := range object {
				if value, ok, err := cellString(cell); err != nil {
					return nil, fmt.Errorf("column %s: %w", column, err)
				} else if ok {
					row[column] = value
				}
			}
			rows = append(rows, row)
		}
		return rows, nil
	case '{':
		var bulk bulkTable
		if err := unmarshalNumbers(trimmed, &bulk); err != nil {
			return nil, err
		}
		rows := make([]Row, 0, len(bulk.Rows))
		for i, cells := range bulk.Rows {
			if len(cells) > len(bulk.Columns) {
				return nil, fmt.Errorf("row %d has %d cells for %d columns", i, len(cells), len(bulk.Columns))
			}
			row := make(Row, len(cells))
			for j, cell := range cells {
				if value, ok, err := cellString(cell); err != nil {
					return nil, fmt.Errorf("row %d column %s: %w", i, bulk.Columns[j], err)
				} else if ok {
					row[bulk.Columns[j]] = value
				}
			}
			rows = append(rows, row)
		}
		return rows, nil
	default:
		return nil, fmt.Errorf("expected array or bulk object")
	}
}

func unmarshalNumbers(data []byte, v any) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	return dec.Decode(v)
}

// cellString renders one cell as a string. Null and empty cells are reported
// as absent.
func cellString(cell json.RawMessage) (string, bool, error) {
	var value any
	if err := unmarshalNumbers(cell, &value); err != nil {
		return "", false, err
	}
	switch v := value.(type) {
	case nil:
		return "", false, nil
	case string:
		if v == "" {
			return "", false, nil
		}
		return v, true, nil
	case json.Number:
		return v.String(), true, nil
	case bool:
		return strconv.FormatBool(v), true, nil
	default:
		return "", false, fmt.Errorf("unsupported cell value %s", string(cell))
	}
}
