// Package assignment implements a greedy heuristic for the linear
// assignment problem.
//
// One sweep starts at a row, gives it its cheapest free column and moves on
// to the next row, wrapping around, until every row is assigned. A sweep is
// run from every row and the cheapest one is kept. The result is not
// guaranteed to be optimal.
package assignment

import (
	"gonum.org/v1/gonum/mat"

	"github.com/curiousTauseef/anyprog/internal/optimization"
)

// DefaultSentinel marks a forbidden assignment.
const DefaultSentinel = 1e10

// Pair assigns Row to Col.
type Pair struct {
	Row int `json:"row"`
	Col int `json:"col"`
}

// Assignment is a solved assignment problem.
type Assignment struct {
	costs    *mat.Dense
	sentinel float64
	path     []Pair
	total    float64
}

// New solves the assignment problem for the square cost matrix c. Costs at
// or above sentinel are forbidden; a non-positive sentinel selects
// DefaultSentinel.
func New(c mat.Matrix, sentinel float64) (*Assignment, error) {
	r, cols := c.Dims()
	if r == 0 {
		return nil, optimization.WrapError(optimization.ErrEmptyProblem, "cost matrix").
			WithComponent("assignment").WithOperation("new")
	}
	if r != cols {
		return nil, optimization.WrapErrorf(optimization.ErrNonSquare, "cost matrix is %dx%d", r, cols).
			WithComponent("assignment").WithOperation("new")
	}
	if sentinel <= 0 {
		sentinel = DefaultSentinel
	}
	a := &Assignment{
		costs:    mat.DenseCopyOf(c),
		sentinel: sentinel,
		total:    sentinel,
	}
	a.solve()
	return a, nil
}

func (a *Assignment) solve() {
	n, _ := a.costs.Dims()
	path := make([]Pair, 0, n)
	used := make([]bool, n)
	for start := 0; start < n; start++ {
		path = path[:0]
		sum := a.sweep(start, used, &path)
		if sum < a.total {
			a.total = sum
			a.path = append([]Pair(nil), path...)
		}
	}
}

// sweep assigns rows from start onward, each to its cheapest free column,
// and returns the total cost.
func (a *Assignment) sweep(start int, used []bool, path *[]Pair) float64 {
	n := len(used)
	for j := range used {
		used[j] = false
	}
	var sum float64
	for row := start; len(*path) < n; row = (row + 1) % n {
		col := -1
		for j := 0; j < n; j++ {
			if used[j] {
				continue
			}
			if col < 0 || a.costs.At(row, j) < a.costs.At(row, col) {
				col = j
			}
		}
		sum += a.costs.At(row, col)
		*path = append(*path, Pair{Row: row, Col: col})
		used[col] = true
	}
	return sum
}

// Solve returns the cheapest assignment found, in the order it was built.
// It is empty when every sweep hit a forbidden cost.
func (a *Assignment) Solve() []Pair {
	return append([]Pair(nil), a.path...)
}

// Obj returns the total cost of Solve, or the sentinel when no sweep was
// feasible.
func (a *Assignment) Obj() float64 {
	return a.total
}

// Feasible reports whether a sweep avoided every forbidden cost.
func (a *Assignment) Feasible() bool {
	return a.path != nil
}

// Columns returns, for every row, the column it is assigned to, or nil when
// the assignment is infeasible.
func (a *Assignment) Columns() []int {
	if a.path == nil {
		return nil
	}
	cols := make([]int, len(a.path))
	for _, p := range a.path {
		cols[p.Row] = p.Col
	}
	return cols
}
