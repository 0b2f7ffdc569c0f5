package summary

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/earthref/KDD/internal/kdd/contribution"
	"github.com/earthref/KDD/internal/kdd/datamodel"
	apperrors "github.com/earthref/KDD/internal/platform/errors"
)

// summarizeTables walks the tables in hierarchy order. The root row is copied
// into the contribution summary; other rows are grouped and, in full mode,
// folded into their group's accumulators.
func summarizeTables(ctx context.Context, p *pass) (*pass, error) {
	for _, table := range p.contribution.Tables() {
		if _, ok := p.model.Tables[table]; !ok {
			p.report.add(apperrors.CodeTableUnknown, fmt.Sprintf("Unrecognized data model table %q.", table))
		}
	}

	for _, table := range p.model.SortedTables() {
		if err := p.yield(ctx); err != nil {
			return p, err
		}
		rows, ok := p.contribution[table]
		if !ok {
			continue
		}
		model := p.model.Tables[table]
		if table == datamodel.RootTable {
			bucket := p.doc.Root.ensure(datamodel.RootTable)
			for _, row := range rows {
				p.copyRow(row, bucket, model)
			}
			continue
		}

		p.doc.addTable(table)
		ownColumn := datamodel.EntityColumn(table)
		parentColumn := ""
		if parent, ok := p.model.Parent(table); ok {
			parentColumn = datamodel.EntityColumn(parent)
		}
		for _, row := range rows {
			key := GroupKey{
				Table:  table,
				Own:    NameToKey(row[ownColumn]),
				Parent: NameToKey(row[parentColumn]),
			}
			group, created := p.doc.ensureGroup(key)
			bucket := group.Summary.ensure(table)
			if created {
				if n, ok := counterTarget(bucket, countKey(table), p.report); ok {
					n.N++
				}
				counterTarget(bucket, keyResults, p.report)
			}
			group.Rows = append(group.Rows, row)
			if p.mode == ModeFull {
				p.summarizeRow(row, bucket, model)
				if n, ok := counterTarget(bucket, keyResults, p.report); ok {
					n.N++
				}
			}
		}
	}
	return p, nil
}

func sortedColumns(row contribution.Row) []string {
	columns := make([]string, 0, len(row))
	for column := range row {
		columns = append(columns, column)
	}
	sort.Strings(columns)
	return columns
}

// copyRow copies the root row into the contribution summary. Scalars already
// present, such as those seeded from meta, are kept.
func (p *pass) copyRow(row contribution.Row, bucket *Bucket, model datamodel.Table) {
	if model.Columns == nil {
		p.report.add(apperrors.CodeDataModelInvalid, "Invalid data model.")
		return
	}
	for _, column := range sortedColumns(row) {
		declared, ok := model.Columns[column]
		if !ok {
			p.report.add(apperrors.CodeColumnUnknown, fmt.Sprintf("Unrecognized data model column %q.", column))
			continue
		}
		value := row[column]
		switch declared.Type {
		case datamodel.TypeList:
			if set, ok := categoricalTarget(bucket, column, p.report); ok {
				for _, token := range splitList(value, 0) {
					set.Add(token)
				}
			}
		case datamodel.TypeNumber:
			if _, exists := bucket.Get(column); !exists {
				v, ok := parseFloat(value)
				bucket.set(column, &Scalar{Value: optionalNumber(v, ok)})
			}
		case datamodel.TypeInteger:
			if _, exists := bucket.Get(column); !exists {
				v, ok := parseInt(value)
				bucket.set(column, &Scalar{Value: optionalNumber(v, ok)})
			}
		case datamodel.TypeString, datamodel.TypeTimestamp, datamodel.TypeMatrix:
			if _, exists := bucket.Get(column); !exists {
				bucket.set(column, &Scalar{Value: strings.TrimSpace(value)})
			}
		case datamodel.TypeDictionary:
			p.addDictionary(bucket, column, value)
		default:
			p.report.add(apperrors.CodeColumnTypeUnknown, fmt.Sprintf("Unrecognized data model type %q.", declared.Type))
		}
	}
}

func optionalNumber(v float64, ok bool) any {
	if !ok {
		return nil
	}
	return v
}

// summarizeRow folds one row into a group bucket.
func (p *pass) summarizeRow(row contribution.Row, bucket *Bucket, model datamodel.Table) {
	if model.Columns == nil {
		p.report.add(apperrors.CodeDataModelInvalid, "Invalid data model.")
		return
	}

	if unit, ok := row["age_unit"]; ok {
		for _, column := range []string{"age", "age_low", "age_high"} {
			age, ok := parseFloat(row[column])
			if !ok {
				continue
			}
			if ybp, ok := ageYBP(unit, age); ok {
				p.addNumber(bucket, "_"+column+"_ybp", ybp)
				p.addNumber(bucket, keyAgeRange, ybp)
			}
		}
		if sigma, ok := parseFloat(row["age_sigma"]); ok {
			if years, ok := ageSpanYears(unit, sigma); ok {
				p.addNumber(bucket, keyAgeSigma, years)
			}
		}
	}

	lon, okLon := parseFloat(row["lon"])
	lat, okLat := parseFloat(row["lat"])
	if okLon && okLat {
		if shape, ok := NewPoint(lon, lat); ok {
			p.addShape(bucket, keyGeoPoint, shape)
		}
	}
	lonW, okW := parseFloat(row["lon_w"])
	latN, okN := parseFloat(row["lat_n"])
	lonE, okE := parseFloat(row["lon_e"])
	latS, okS := parseFloat(row["lat_s"])
	if okW && okN && okE && okS {
		if shape, ok := NewEnvelope(lonW, latN, lonE, latS); ok {
			p.addShape(bucket, keyGeoEnvelope, shape)
		}
	}

	for _, column := range sortedColumns(row) {
		declared, ok := model.Columns[column]
		if !ok {
			p.report.add(apperrors.CodeColumnUnknown, fmt.Sprintf("Unrecognized data model column %q.", column))
			continue
		}
		value := row[column]
		switch declared.Type {
		case datamodel.TypeList:
			set, ok := categoricalTarget(bucket, column, p.report)
			if !ok || set.Frozen() {
				continue
			}
			for _, token := range splitList(value, MaxValues) {
				set.Add(token)
			}
		case datamodel.TypeNumber:
			if v, ok := parseFloat(value); ok {
				p.addNumber(bucket, column, v)
			}
		case datamodel.TypeInteger:
			if _, ok := parseInt(value); ok {
				v, _ := parseFloat(value)
				p.addNumber(bucket, column, v)
			}
		case datamodel.TypeString, datamodel.TypeMatrix:
			token := strings.TrimSpace(value)
			if token == "" {
				continue
			}
			if set, ok := categoricalTarget(bucket, column, p.report); ok {
				set.Add(p.translate(declared, token))
			}
		case datamodel.TypeTimestamp:
			if t, ok := parseTimestamp(strings.TrimSpace(value)); ok {
				p.addNumber(bucket, column, float64(t.UnixMilli()))
			}
		case datamodel.TypeDictionary:
			p.addDictionary(bucket, column, value)
		default:
			p.report.add(apperrors.CodeColumnTypeUnknown, fmt.Sprintf("Unrecognized data model type %q.", declared.Type))
		}
	}
}

// translate maps a Flag column token through its controlled vocabulary.
// Tokens without a match are kept as given.
func (p *pass) translate(column datamodel.Column, token string) string {
	if column.Unit != datamodel.UnitFlag {
		return token
	}
	name, ok := column.Vocabulary()
	if !ok {
		return token
	}
	if label, ok := p.vocabularies.Label(name, token); ok {
		return label
	}
	return token
}

// addNumber routes a value into a range, or into a pass-through list for
// internal columns other than ages.
func (p *pass) addNumber(bucket *Bucket, column string, v float64) {
	if internal(column) && !ageColumn.MatchString(column) {
		if list, ok := passThroughTarget(bucket, column, p.report); ok {
			list.Append(v)
		}
		return
	}
	if r, ok := rangeTarget(bucket, column, p.report); ok {
		r.Add(v)
	}
}

func (p *pass) addShape(bucket *Bucket, column string, shape GeoShape) {
	if geo, ok := geoTarget(bucket, column, p.report); ok {
		geo.Add(shape)
	}
	flagTarget(bucket, keyHasGeo, p.report)
}

func (p *pass) addDictionary(bucket *Bucket, column, value string) {
	entries := parseDictionary(value)
	if len(entries) == 0 {
		return
	}
	if dict, ok := dictionaryTarget(bucket, column, p.report); ok {
		for _, entry := range entries {
			dict.Add(entry)
		}
	}
}
