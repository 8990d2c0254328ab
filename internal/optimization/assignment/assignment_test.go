package assignment

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/curiousTauseef/anyprog/internal/optimization"
)

func TestAssignment(t *testing.T) {
	tests := []struct {
		name     string
		costs    []float64
		n        int
		wantCols []int
		wantObj  float64
	}{
		{
			name:     "identity is the unique minimum",
			costs:    []float64{1, 2, 3, 2, 1, 3, 3, 3, 1},
			n:        3,
			wantCols: []int{0, 1, 2},
			wantObj:  3,
		},
		{
			name:     "anti diagonal",
			costs:    []float64{9, 9, 1, 9, 1, 9, 1, 9, 9},
			n:        3,
			wantCols: []int{2, 1, 0},
			wantObj:  3,
		},
		{
			name: "later start row wins",
			// row 0 greedily takes column 0 and forces row 1 onto a cost of 10
			costs:    []float64{1, 2, 1, 10},
			n:        2,
			wantCols: []int{1, 0},
			wantObj:  3,
		},
		{
			name:     "single cell",
			costs:    []float64{4},
			n:        1,
			wantCols: []int{0},
			wantObj:  4,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a, err := New(mat.NewDense(tt.n, tt.n, tt.costs), 1e10)
			require.NoError(t, err)
			assert.True(t, a.Feasible())
			assert.Equal(t, tt.wantCols, a.Columns())
			assert.Equal(t, tt.wantObj, a.Obj())

			path := a.Solve()
			require.Len(t, path, tt.n)
			rows := map[int]bool{}
			cols := map[int]bool{}
			for _, p := range path {
				rows[p.Row] = true
				cols[p.Col] = true
			}
			assert.Len(t, rows, tt.n)
			assert.Len(t, cols, tt.n)
		})
	}
}

func TestAssignmentPathOrder(t *testing.T) {
	a, err := New(mat.NewDense(2, 2, []float64{1, 2, 1, 10}), 0)
	require.NoError(t, err)
	assert.Equal(t, []Pair{{Row: 1, Col: 0}, {Row: 0, Col: 1}}, a.Solve())
}

func TestAssignmentInfeasible(t *testing.T) {
	const inf = 1e10
	a, err := New(mat.NewDense(2, 2, []float64{inf, inf, 1, inf}), inf)
	require.NoError(t, err)
	assert.False(t, a.Feasible())
	assert.Empty(t, a.Solve())
	assert.Nil(t, a.Columns())
	assert.Equal(t, inf, a.Obj())
}

func TestAssignmentSkipsUsedColumns(t *testing.T) {
	// every row prefers column 0, only the sweep from row 0 stays under 9
	a, err := New(mat.NewDense(3, 3, []float64{
		1, 9, 9,
		1, 2, 9,
		1, 1, 3,
	}), 9)
	require.NoError(t, err)
	require.True(t, a.Feasible())
	assert.Equal(t, []int{0, 1, 2}, a.Columns())
	assert.Equal(t, 6.0, a.Obj())
}

func TestAssignmentDoesNotModifyInput(t *testing.T) {
	c := mat.NewDense(2, 2, []float64{1, 2, 3, 4})
	_, err := New(c, 0)
	require.NoError(t, err)
	assert.Equal(t, []float64{1, 2, 3, 4}, c.RawMatrix().Data)
}

func TestAssignmentErrors(t *testing.T) {
	_, err := New(mat.NewDense(2, 3, nil), 0)
	assert.ErrorIs(t, err, optimization.ErrNonSquare)
}
