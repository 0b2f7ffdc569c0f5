package summary

import (
	"context"
	"fmt"

	"github.com/earthref/KDD/internal/kdd/datamodel"
	apperrors "github.com/earthref/KDD/internal/platform/errors"
)

// adoptChildren merges every child group into its parent, deepest tables
// first, so each level carries the buckets of all tables below it. Groups of
// tables directly under the root, and groups whose parent group is missing,
// are merged into the contribution summary.
func adoptChildren(ctx context.Context, p *pass) (*pass, error) {
	tables := p.model.SortedTables()
	for i := len(tables) - 1; i >= 0; i-- {
		table := tables[i]
		if table == datamodel.RootTable {
			continue
		}
		if err := p.yield(ctx); err != nil {
			return p, err
		}
		parent, _ := p.model.Parent(table)
		for _, group := range p.doc.GroupsOf(table) {
			p.mergeContainer(p.parentContainer(table, parent, group), group.Summary)
		}
	}
	return p, nil
}

func (p *pass) parentContainer(table, parent string, group *Group) *Container {
	if parent == "" || parent == datamodel.RootTable {
		return p.doc.Root
	}
	matches := p.doc.groupsNamed(parent, group.Key.Parent)
	switch len(matches) {
	case 0:
		p.report.add(apperrors.CodeParentNotFound,
			fmt.Sprintf("No %s row named %q for %s rows; adopted by the contribution.", parent, group.Key.Parent[1:], table))
		return p.doc.Root
	case 1:
	default:
		p.report.add(apperrors.CodeParentAmbiguous,
			fmt.Sprintf("Several %s rows named %q for %s rows; adopted by the first.", parent, group.Key.Parent[1:], table))
	}
	return matches[0].Summary
}

// mergeContainer merges every table bucket of from into to.
func (p *pass) mergeContainer(to, from *Container) {
	for _, table := range from.Tables() {
		if table == keyAll || table == keyContribution {
			continue
		}
		bucket, _ := from.Bucket(table)
		p.mergeBucket(to, table, table, bucket)
	}
}

// mergeBucket merges from into the bucket toName of container to. Counts
// always add; in counts mode nothing else is merged.
func (p *pass) mergeBucket(to *Container, fromName, toName string, from *Bucket) {
	if _, ok := p.model.Tables[fromName]; !ok {
		p.report.add(apperrors.CodeDataModelInvalid, "Invalid data model.")
		return
	}
	dst := to.ensure(toName)
	to.setIncomplete(p.mode == ModeCounts)
	for _, column := range from.Columns() {
		acc, _ := from.Get(column)
		if n, ok := acc.(*Counter); ok {
			if countColumn.MatchString(column) {
				if sum, ok := counterTarget(dst, column, p.report); ok {
					sum.N += n.N
				}
			}
			continue
		}
		if p.mode == ModeCounts {
			continue
		}
		switch src := acc.(type) {
		case *NumericRange:
			if r, ok := rangeTarget(dst, column, p.report); ok {
				r.Merge(src)
			}
		case *CategoricalSet:
			if set, ok := categoricalTarget(dst, column, p.report); ok {
				set.Union(src)
			}
		case *GeoCollection:
			if geo, ok := geoTarget(dst, column, p.report); ok {
				geo.Merge(src)
			}
			flagTarget(dst, keyHasGeo, p.report)
		case *DictionaryList:
			if dict, ok := dictionaryTarget(dst, column, p.report); ok {
				dict.Merge(src)
			}
		case *PassThroughList:
			if list, ok := passThroughTarget(dst, column, p.report); ok {
				list.Append(src.values...)
			}
		case *Flag:
			flagTarget(dst, column, p.report)
		}
	}
}
