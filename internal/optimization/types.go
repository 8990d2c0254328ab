// Package optimization holds the vocabulary shared by the solvers: objective
// and constraint callbacks, box ranges, the improvement history and the
// error type used for malformed problems.
package optimization

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Func is an objective or constraint evaluated at a point.
// It must not retain or modify x.
type Func func(x []float64) float64

// Constraint is a function whose value is compared against zero.
// Equality constraints must evaluate to 0 within eps, inequality
// constraints to at most eps.
type Constraint = Func

// Gradient writes the partial derivatives of a function at x into grad.
type Gradient func(grad, x []float64)

// Filter adjusts x in place before it is evaluated, e.g. by rounding
// components onto an integer lattice.
type Filter func(x []float64)

// Range is a closed interval [Lower, Upper] for one dimension.
type Range struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Width returns Upper - Lower.
func (r Range) Width() float64 {
	return r.Upper - r.Lower
}

// Contains reports whether v lies inside the range.
func (r Range) Contains(v float64) bool {
	return v >= r.Lower && v <= r.Upper
}

// Clamp projects v onto the range.
func (r Range) Clamp(v float64) float64 {
	return math.Max(r.Lower, math.Min(v, r.Upper))
}

// Valid reports whether the range has finite-or-infinite ordered endpoints.
func (r Range) Valid() bool {
	return !math.IsNaN(r.Lower) && !math.IsNaN(r.Upper) && r.Lower <= r.Upper
}

// Bounded reports whether both endpoints are finite.
func (r Range) Bounded() bool {
	return !math.IsInf(r.Lower, 0) && !math.IsInf(r.Upper, 0)
}

// HistoryEntry records one accepted improvement of an adaptive search.
type HistoryEntry struct {
	Value float64   `json:"value"`
	Point []float64 `json:"point"`
}

// Linear returns the objective c·x. The returned function reads only the
// first len(c) components of its argument.
func Linear(c []float64) Func {
	coeffs := append([]float64(nil), c...)
	return func(x []float64) float64 {
		return floats.Dot(coeffs, x[:len(coeffs)])
	}
}

// ValidateRanges checks that every range is ordered and, when dim > 0,
// that there is exactly one range per dimension.
func ValidateRanges(ranges []Range, dim int) error {
	if dim > 0 && len(ranges) != dim {
		return WrapErrorf(ErrDimensionMismatch, "got %d ranges for %d dimensions", len(ranges), dim)
	}
	for i, r := range ranges {
		if !r.Valid() {
			return WrapErrorf(ErrInvalidRange, "range %d is [%v, %v]", i, r.Lower, r.Upper)
		}
	}
	return nil
}

// CloneRanges returns a copy of ranges.
func CloneRanges(ranges []Range) []Range {
	if ranges == nil {
		return nil
	}
	return append([]Range(nil), ranges...)
}

// Clone returns a copy of x.
func Clone(x []float64) []float64 {
	if x == nil {
		return nil
	}
	return append([]float64(nil), x...)
}
