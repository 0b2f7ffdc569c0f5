package summary

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"strconv"
)

// MaxValues caps every bounded collection in a summary.
const MaxValues = 100

// Accumulator is one column's aggregated state within a bucket.
type Accumulator interface {
	json.Marshaler
	clone() Accumulator
}

type setState int

const (
	setOpen setState = iota
	setFrozen
)

// CategoricalSet collects distinct tokens. It starts open and freezes into a
// fixed array once it holds MaxValues tokens or when consolidated; frozen
// sets never grow or reopen.
type CategoricalSet struct {
	state  setState
	seen   map[string]struct{}
	tokens []string
}

// NewCategoricalSet returns an empty open set.
func NewCategoricalSet() *CategoricalSet {
	return &CategoricalSet{seen: make(map[string]struct{})}
}

// Add inserts token while the set is open.
func (s *CategoricalSet) Add(token string) {
	if s.state == setFrozen {
		return
	}
	if _, ok := s.seen[token]; ok {
		return
	}
	s.seen[token] = struct{}{}
	s.tokens = append(s.tokens, token)
	if len(s.tokens) >= MaxValues {
		s.freeze()
	}
}

// Union adds every token of other.
func (s *CategoricalSet) Union(other *CategoricalSet) {
	for _, token := range other.tokens {
		if s.state == setFrozen {
			return
		}
		s.Add(token)
	}
}

func (s *CategoricalSet) freeze() {
	s.state = setFrozen
	s.seen = nil
	keyOrder(s.tokens, func(token string) string { return token })
}

// Frozen reports whether the set has become a fixed array.
func (s *CategoricalSet) Frozen() bool { return s.state == setFrozen }

// Len returns the number of distinct tokens.
func (s *CategoricalSet) Len() int { return len(s.tokens) }

// Values returns the tokens in first-insertion order. A frozen set lists
// array-index-like tokens first, see keyOrder.
func (s *CategoricalSet) Values() []string {
	return append([]string(nil), s.tokens...)
}

// MarshalJSON renders a frozen set as an array and an open set as an object
// of token flags.
func (s *CategoricalSet) MarshalJSON() ([]byte, error) {
	if s.state == setFrozen {
		if s.tokens == nil {
			return []byte("[]"), nil
		}
		return json.Marshal(s.tokens)
	}
	flags := make(map[string]bool, len(s.tokens))
	for _, token := range s.tokens {
		flags[token] = true
	}
	return json.Marshal(flags)
}

func (s *CategoricalSet) clone() Accumulator {
	c := &CategoricalSet{state: s.state, tokens: append([]string(nil), s.tokens...)}
	if s.state == setOpen {
		c.seen = make(map[string]struct{}, len(s.seen))
		for token := range s.seen {
			c.seen[token] = struct{}{}
		}
	}
	return c
}

// keyOrder reorders items the way the keys of a flag object enumerate when
// it is flattened to an array: keys that are canonical array indices come
// first in ascending numeric order, every other key keeps insertion order.
func keyOrder[T any](items []T, key func(T) string) {
	sort.SliceStable(items, func(i, j int) bool {
		a, aok := arrayIndex(key(items[i]))
		b, bok := arrayIndex(key(items[j]))
		if aok && bok {
			return a < b
		}
		return aok && !bok
	})
}

// arrayIndex parses a canonical unsigned integer below 2^32-1.
func arrayIndex(key string) (uint64, bool) {
	if key == "" || (len(key) > 1 && key[0] == '0') {
		return 0, false
	}
	n, err := strconv.ParseUint(key, 10, 32)
	if err != nil || n == math.MaxUint32 {
		return 0, false
	}
	return n, true
}

// Counter holds an additive "_n_*" count.
type Counter struct {
	N int
}

func (c *Counter) MarshalJSON() ([]byte, error) { return json.Marshal(c.N) }

func (c *Counter) clone() Accumulator { return &Counter{N: c.N} }

// Flag is a boolean marker such as "_has_geo". It is only ever set, so it
// always renders as "true".
type Flag struct{}

func (*Flag) MarshalJSON() ([]byte, error) { return []byte(`"true"`), nil }

func (f *Flag) clone() Accumulator { return &Flag{} }

// Scalar is a value copied verbatim, such as a contribution-level field.
type Scalar struct {
	Value any
}

func (s *Scalar) MarshalJSON() ([]byte, error) {
	if v, ok := s.Value.(float64); ok {
		return json.Marshal(jsonNumber(v))
	}
	return json.Marshal(s.Value)
}

func (s *Scalar) clone() Accumulator {
	if values, ok := s.Value.([]string); ok {
		return &Scalar{Value: append([]string(nil), values...)}
	}
	return &Scalar{Value: s.Value}
}

// PassThroughList keeps every value of an internal numeric column.
type PassThroughList struct {
	values []float64
}

// Append adds values to the list.
func (l *PassThroughList) Append(values ...float64) {
	l.values = append(l.values, values...)
}

// Values returns the collected values.
func (l *PassThroughList) Values() []float64 {
	return append([]float64(nil), l.values...)
}

func (l *PassThroughList) MarshalJSON() ([]byte, error) {
	return marshalNumbers(l.values)
}

func (l *PassThroughList) clone() Accumulator {
	return &PassThroughList{values: append([]float64(nil), l.values...)}
}

// DictionaryEntry is one key[value] pair.
type DictionaryEntry struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// DictionaryList collects up to MaxValues entries, duplicates included.
type DictionaryList struct {
	entries []DictionaryEntry
}

// Add appends entry unless the list is full.
func (d *DictionaryList) Add(entry DictionaryEntry) {
	if len(d.entries) < MaxValues {
		d.entries = append(d.entries, entry)
	}
}

// Merge appends other's entries up to the cap.
func (d *DictionaryList) Merge(other *DictionaryList) {
	for _, entry := range other.entries {
		d.Add(entry)
	}
}

// Entries returns the collected entries.
func (d *DictionaryList) Entries() []DictionaryEntry {
	return append([]DictionaryEntry(nil), d.entries...)
}

func (d *DictionaryList) MarshalJSON() ([]byte, error) {
	if d.entries == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(d.entries)
}

func (d *DictionaryList) clone() Accumulator {
	return &DictionaryList{entries: append([]DictionaryEntry(nil), d.entries...)}
}

func marshalNumbers(values []float64) ([]byte, error) {
	out := make([]any, len(values))
	for i, v := range values {
		out[i] = jsonNumber(v)
	}
	return json.Marshal(out)
}

// kindName names an accumulator variant in report messages.
func kindName(acc Accumulator) string {
	switch acc.(type) {
	case *CategoricalSet:
		return "set"
	case *NumericRange:
		return "range"
	case *GeoCollection:
		return "geo"
	case *DictionaryList:
		return "dictionary"
	case *PassThroughList:
		return "list"
	case *Counter:
		return "count"
	case *Flag:
		return "flag"
	case *Scalar:
		return "value"
	default:
		return fmt.Sprintf("%T", acc)
	}
}
