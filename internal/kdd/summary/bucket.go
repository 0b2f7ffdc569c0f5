package summary

import (
	"encoding/json"
	"fmt"

	apperrors "github.com/earthref/KDD/internal/platform/errors"
)

// Bucket holds the accumulators of one table-scoped summary, keyed by column.
type Bucket struct {
	columns map[string]Accumulator
	order   []string
}

func newBucket() *Bucket {
	return &Bucket{columns: make(map[string]Accumulator)}
}

// Get returns the accumulator of column.
func (b *Bucket) Get(column string) (Accumulator, bool) {
	acc, ok := b.columns[column]
	return acc, ok
}

// Columns returns the column names in insertion order.
func (b *Bucket) Columns() []string {
	return append([]string(nil), b.order...)
}

func (b *Bucket) set(column string, acc Accumulator) {
	if _, ok := b.columns[column]; !ok {
		b.order = append(b.order, column)
	}
	b.columns[column] = acc
}

// MarshalJSON renders the bucket as an object with sorted keys.
func (b *Bucket) MarshalJSON() ([]byte, error) {
	return json.Marshal(b.columns)
}

func (b *Bucket) cloneWithout(skip func(column string) bool) *Bucket {
	c := newBucket()
	for _, column := range b.order {
		if skip != nil && skip(column) {
			continue
		}
		c.set(column, b.columns[column].clone())
	}
	return c
}

// target returns the accumulator of column, creating it when absent. A
// column already holding another variant is reported and left alone.
func target[T Accumulator](b *Bucket, column string, report *Report, create func() T) (T, bool) {
	acc, ok := b.columns[column]
	if !ok {
		created := create()
		b.set(column, created)
		return created, true
	}
	typed, ok := acc.(T)
	if !ok {
		var zero T
		report.add(apperrors.CodeSummaryTargetInvalid,
			fmt.Sprintf("Invalid summary target %q: holds a %s, not a %s.", column, kindName(acc), kindName(zero)))
		return zero, false
	}
	return typed, true
}

func categoricalTarget(b *Bucket, column string, report *Report) (*CategoricalSet, bool) {
	return target(b, column, report, NewCategoricalSet)
}

func rangeTarget(b *Bucket, column string, report *Report) (*NumericRange, bool) {
	return target(b, column, report, NewNumericRange)
}

func counterTarget(b *Bucket, column string, report *Report) (*Counter, bool) {
	return target(b, column, report, func() *Counter { return &Counter{} })
}

func geoTarget(b *Bucket, column string, report *Report) (*GeoCollection, bool) {
	return target(b, column, report, func() *GeoCollection { return &GeoCollection{} })
}

func dictionaryTarget(b *Bucket, column string, report *Report) (*DictionaryList, bool) {
	return target(b, column, report, func() *DictionaryList { return &DictionaryList{} })
}

func passThroughTarget(b *Bucket, column string, report *Report) (*PassThroughList, bool) {
	return target(b, column, report, func() *PassThroughList { return &PassThroughList{} })
}

func flagTarget(b *Bucket, column string, report *Report) (*Flag, bool) {
	return target(b, column, report, func() *Flag { return &Flag{} })
}

// Container groups the table-scoped buckets of one summary: the contribution
// root or one row group.
type Container struct {
	buckets    map[string]*Bucket
	order      []string
	incomplete *bool
}

func newContainer() *Container {
	return &Container{buckets: make(map[string]*Bucket)}
}

// Bucket returns the bucket of table.
func (c *Container) Bucket(table string) (*Bucket, bool) {
	b, ok := c.buckets[table]
	return b, ok
}

// Tables returns the bucket names in insertion order.
func (c *Container) Tables() []string {
	return append([]string(nil), c.order...)
}

// Incomplete reports the "_incomplete_summary" marker, once set.
func (c *Container) Incomplete() (bool, bool) {
	if c.incomplete == nil {
		return false, false
	}
	return *c.incomplete, true
}

func (c *Container) ensure(table string) *Bucket {
	if b, ok := c.buckets[table]; ok {
		return b
	}
	b := newBucket()
	c.put(table, b)
	return b
}

func (c *Container) put(table string, b *Bucket) {
	if _, ok := c.buckets[table]; !ok {
		c.order = append(c.order, table)
	}
	c.buckets[table] = b
}

func (c *Container) setIncomplete(incomplete bool) {
	c.incomplete = &incomplete
}

// MarshalJSON renders the buckets plus "_incomplete_summary" with sorted keys.
func (c *Container) MarshalJSON() ([]byte, error) {
	out := make(map[string]any, len(c.buckets)+1)
	for table, b := range c.buckets {
		out[table] = b
	}
	if c.incomplete != nil {
		if *c.incomplete {
			out[keyIncomplete] = "true"
		} else {
			out[keyIncomplete] = "false"
		}
	}
	return json.Marshal(out)
}
