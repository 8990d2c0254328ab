// Package tsp builds travelling salesman tours with the nearest neighbour
// heuristic.
package tsp

import (
	"gonum.org/v1/gonum/mat"

	"github.com/curiousTauseef/anyprog/internal/optimization"
)

// DefaultSentinel marks an unreachable edge.
const DefaultSentinel = 1e10

// Tour is a nearest neighbour tour over a distance matrix.
type Tour struct {
	start    int
	sentinel float64
	path     []int
	length   float64
	feasible bool
}

// New builds the tour of the square distance matrix d starting and ending
// at start. The diagonal is treated as unreachable. Distances at or above
// sentinel are unreachable; a non-positive sentinel selects DefaultSentinel.
func New(d mat.Matrix, start int, sentinel float64) (*Tour, error) {
	r, c := d.Dims()
	if r == 0 {
		return nil, optimization.WrapError(optimization.ErrEmptyProblem, "distance matrix").
			WithComponent("tsp").WithOperation("new")
	}
	if r != c {
		return nil, optimization.WrapErrorf(optimization.ErrNonSquare, "distance matrix is %dx%d", r, c).
			WithComponent("tsp").WithOperation("new")
	}
	if start < 0 || start >= r {
		return nil, optimization.WrapErrorf(optimization.ErrStartOutOfRange, "start %d with %d nodes", start, r).
			WithComponent("tsp").WithOperation("new")
	}
	if sentinel <= 0 {
		sentinel = DefaultSentinel
	}
	t := &Tour{start: start, sentinel: sentinel, feasible: true}
	t.build(d)
	return t, nil
}

func (t *Tour) build(d mat.Matrix) {
	n, _ := d.Dims()
	work := mat.DenseCopyOf(d)
	for i := 0; i < n; i++ {
		work.Set(i, i, t.sentinel)
	}
	visited := make([]bool, n)
	t.path = make([]int, 0, n+1)

	node := t.start
	for {
		t.path = append(t.path, node)
		visited[node] = true
		// no edge may lead back into the path
		for i := 0; i < n; i++ {
			work.Set(i, node, t.sentinel)
		}
		if len(t.path) == n {
			break
		}
		next := -1
		for j := 0; j < n; j++ {
			if visited[j] {
				continue
			}
			if next < 0 || work.At(node, j) < work.At(node, next) {
				next = j
			}
		}
		t.add(d.At(node, next))
		node = next
	}
	if n > 1 {
		t.add(d.At(node, t.start))
	}
	t.path = append(t.path, t.start)
}

func (t *Tour) add(edge float64) {
	if edge >= t.sentinel {
		t.feasible = false
	}
	t.length += edge
}

// Solve returns the tour: n+1 nodes beginning and ending at the start node.
func (t *Tour) Solve() []int {
	return append([]int(nil), t.path...)
}

// Obj returns the tour length including the edge back to the start.
func (t *Tour) Obj() float64 {
	return t.length
}

// Feasible reports whether every edge of the tour is reachable.
func (t *Tour) Feasible() bool {
	return t.feasible
}

// Start returns the start node.
func (t *Tour) Start() int {
	return t.start
}
