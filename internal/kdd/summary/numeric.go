package summary

import (
	"encoding/json"
	"math"
)

// NumericRange tracks the count, the bounds and a sample of the values of a
// numeric column.
type NumericRange struct {
	N int

	gte, lte       float64
	hasGte, hasLte bool

	state setState
	seen  map[float64]struct{}
	vals  []float64
}

// NewNumericRange returns an empty range with an open value sample.
func NewNumericRange() *NumericRange {
	return &NumericRange{seen: make(map[float64]struct{})}
}

// Add folds one value in. Values in the magnitude band rejected by
// boundable are counted and sampled but never move the bounds.
func (r *NumericRange) Add(v float64) {
	r.N++
	r.sample(v)
	if !boundable(v) {
		return
	}
	if !r.hasGte || r.gte > v {
		r.gte, r.hasGte = v, true
	}
	if !r.hasLte || r.lte < v {
		r.lte, r.hasLte = v, true
	}
}

// Merge folds another range in: counts add, samples union up to the cap and
// bounds widen component-wise.
func (r *NumericRange) Merge(other *NumericRange) {
	r.N += other.N
	for _, v := range other.vals {
		if r.state == setFrozen {
			break
		}
		r.sample(v)
	}
	if other.hasGte && (!r.hasGte || r.gte > other.gte) {
		r.gte, r.hasGte = other.gte, true
	}
	if other.hasLte && (!r.hasLte || r.lte < other.lte) {
		r.lte, r.hasLte = other.lte, true
	}
}

func (r *NumericRange) sample(v float64) {
	if r.state == setFrozen {
		return
	}
	if math.IsNaN(v) {
		return
	}
	if _, ok := r.seen[v]; ok {
		return
	}
	r.seen[v] = struct{}{}
	r.vals = append(r.vals, v)
	if len(r.vals) >= MaxValues {
		r.freeze()
	}
}

func (r *NumericRange) freeze() {
	r.state = setFrozen
	r.seen = nil
	keyOrder(r.vals, numberKey)
}

// Gte returns the lower bound, if any value set it.
func (r *NumericRange) Gte() (float64, bool) { return r.gte, r.hasGte }

// Lte returns the upper bound, if any value set it.
func (r *NumericRange) Lte() (float64, bool) { return r.lte, r.hasLte }

// Frozen reports whether the value sample has become a fixed array.
func (r *NumericRange) Frozen() bool { return r.state == setFrozen }

// Values returns the sampled values in first-insertion order. A frozen
// sample lists non-negative integers first, see keyOrder.
func (r *NumericRange) Values() []float64 {
	return append([]float64(nil), r.vals...)
}

type rangeBounds struct {
	Gte any `json:"gte,omitempty"`
	Lte any `json:"lte,omitempty"`
}

type rangeJSON struct {
	N     int             `json:"n"`
	Range rangeBounds     `json:"range"`
	Vals  json.RawMessage `json:"vals"`
}

// MarshalJSON renders {"n", "range": {"gte", "lte"}, "vals"}. An open sample
// renders as an object of value flags, a frozen one as an array.
func (r *NumericRange) MarshalJSON() ([]byte, error) {
	out := rangeJSON{N: r.N}
	if r.hasGte {
		out.Range.Gte = jsonNumber(r.gte)
	}
	if r.hasLte {
		out.Range.Lte = jsonNumber(r.lte)
	}
	var err error
	if r.state == setFrozen {
		out.Vals, err = marshalNumbers(r.vals)
	} else {
		flags := make(map[string]bool, len(r.vals))
		for _, v := range r.vals {
			flags[numberKey(v)] = true
		}
		out.Vals, err = json.Marshal(flags)
	}
	if err != nil {
		return nil, err
	}
	return json.Marshal(out)
}

// numberKey renders v the way it prints in a JSON document.
func numberKey(v float64) string {
	switch {
	case math.IsInf(v, 1):
		return "Infinity"
	case math.IsInf(v, -1):
		return "-Infinity"
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "NaN"
	}
	return string(b)
}

func (r *NumericRange) clone() Accumulator {
	c := &NumericRange{
		N:      r.N,
		gte:    r.gte,
		lte:    r.lte,
		hasGte: r.hasGte,
		hasLte: r.hasLte,
		state:  r.state,
		vals:   append([]float64(nil), r.vals...),
	}
	if r.state == setOpen {
		c.seen = make(map[float64]struct{}, len(r.seen))
		for v := range r.seen {
			c.seen[v] = struct{}{}
		}
	}
	return c
}
