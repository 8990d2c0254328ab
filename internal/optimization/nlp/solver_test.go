package nlp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curiousTauseef/anyprog/internal/optimization"
	"github.com/curiousTauseef/anyprog/internal/optimization/random"
)

func sphere(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += (v - 1) * (v - 1)
	}
	return s
}

func sphereGrad(grad, x []float64) {
	for i, v := range x {
		grad[i] = 2 * (v - 1)
	}
}

func box(n int, lo, hi float64) []optimization.Range {
	r := make([]optimization.Range, n)
	for i := range r {
		r[i] = optimization.Range{Lower: lo, Upper: hi}
	}
	return r
}

func TestMinimizeUnconstrained(t *testing.T) {
	tests := []struct {
		name   string
		method Method
		grad   bool
	}{
		{name: "nelder mead", method: NelderMead},
		{name: "bfgs analytic", method: BFGS, grad: true},
		{name: "lbfgs finite difference", method: LBFGS},
		{name: "gradient descent", method: GradientDescent, grad: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Problem{Dim: 2, Func: sphere}
			if tt.grad {
				p.Grad = sphereGrad
			}
			res, err := NewEngine(nil).Minimize(context.Background(), p, []float64{-3, 4}, Settings{Method: tt.method})
			require.NoError(t, err)
			require.NotNil(t, res)
			assert.True(t, res.OK, res.Status)
			assert.InDelta(t, 1, res.X[0], 1e-2)
			assert.InDelta(t, 1, res.X[1], 1e-2)
			assert.Less(t, res.F, 1e-3)
			assert.Positive(t, res.Evaluations)
		})
	}
}

func TestMinimizeRespectsBounds(t *testing.T) {
	p := Problem{Dim: 2, Func: sphere, Bounds: box(2, 2, 5)}
	res, err := NewEngine(nil).Minimize(context.Background(), p, []float64{4, 4}, Settings{Method: NelderMead})
	require.NoError(t, err)
	for i, v := range res.X {
		assert.True(t, p.Bounds[i].Contains(v), "component %d = %v", i, v)
	}
	assert.InDelta(t, 2, res.X[0], 1e-3)
	assert.InDelta(t, 2, res.X[1], 1e-3)
}

func TestMinimizeInequality(t *testing.T) {
	// maximise x+y subject to x+y <= 5 on [0,10]^2
	p := Problem{
		Dim:    2,
		Func:   func(x []float64) float64 { return -x[0] - x[1] },
		Bounds: box(2, 0, 10),
		Ineq:   []optimization.Constraint{func(x []float64) float64 { return x[0] + x[1] - 5 }},
	}
	res, err := NewEngine(nil).Minimize(context.Background(), p, []float64{1, 1}, Settings{Method: NelderMead, MaxEvaluations: 5000})
	require.NoError(t, err)
	assert.True(t, res.OK, "violation %v", res.Violation)
	assert.InDelta(t, -5, res.F, 1e-3)
}

func TestMinimizeEquality(t *testing.T) {
	p := Problem{
		Dim:  2,
		Func: func(x []float64) float64 { return x[0]*x[0] + x[1]*x[1] },
		Grad: func(grad, x []float64) { grad[0], grad[1] = 2*x[0], 2*x[1] },
		Eq:   []optimization.Constraint{func(x []float64) float64 { return x[0] + x[1] - 2 }},
		EqGrad: []optimization.Gradient{func(grad, _ []float64) {
			grad[0], grad[1] = 1, 1
		}},
	}
	res, err := NewEngine(nil).Minimize(context.Background(), p, []float64{3, -1}, Settings{Method: BFGS})
	require.NoError(t, err)
	assert.True(t, res.OK, "violation %v", res.Violation)
	assert.InDelta(t, 1, res.X[0], 1e-2)
	assert.InDelta(t, 1, res.X[1], 1e-2)
}

func TestMinimizeGlobal(t *testing.T) {
	for _, m := range []Method{GuessAndCheck, CMAES, Mayfly} {
		t.Run(m.String(), func(t *testing.T) {
			p := Problem{Dim: 2, Func: sphere, Bounds: box(2, -5, 5)}
			s := Settings{Method: m, Rand: random.NewRand(7), MaxEvaluations: 4000, Population: 40}
			res, err := NewEngine(nil).Minimize(context.Background(), p, []float64{-4, -4}, s)
			require.NoError(t, err)
			assert.True(t, res.OK, res.Status)
			assert.Less(t, res.F, 1e-2)
		})
	}
}

func TestMinimizeGlobalSeeded(t *testing.T) {
	for _, m := range []Method{GuessAndCheck, CMAES} {
		t.Run(m.String(), func(t *testing.T) {
			p := Problem{Dim: 2, Func: sphere, Bounds: box(2, -5, 5)}
			run := func(seed int64) *Result {
				s := Settings{Method: m, Rand: random.NewRand(seed), MaxEvaluations: 4000, Population: 40}
				res, err := NewEngine(nil).Minimize(context.Background(), p, []float64{-4, 4}, s)
				require.NoError(t, err)
				return res
			}

			first, second := run(42), run(42)
			assert.Equal(t, first.X, second.X)
			assert.Equal(t, first.F, second.F)
			assert.True(t, first.OK, first.Status)
			assert.InDelta(t, 1, first.X[0], 1e-2)
			assert.InDelta(t, 1, first.X[1], 1e-2)
		})
	}
}

func TestMinimizeGlobalWithoutBounds(t *testing.T) {
	p := Problem{Dim: 1, Func: sphere}
	res, err := NewEngine(nil).Minimize(context.Background(), p, []float64{3}, Settings{Method: GuessAndCheck})
	require.NoError(t, err)
	assert.False(t, res.OK)
	assert.Equal(t, []float64{3}, res.X)
}

func TestMinimizeValidation(t *testing.T) {
	e := NewEngine(nil)
	ctx := context.Background()

	_, err := e.Minimize(ctx, Problem{}, nil, Settings{})
	assert.True(t, errors.Is(err, optimization.ErrEmptyProblem))

	_, err = e.Minimize(ctx, Problem{Dim: 2, Func: sphere}, []float64{1}, Settings{})
	assert.True(t, errors.Is(err, optimization.ErrDimensionMismatch))

	_, err = e.Minimize(ctx, Problem{Dim: 1, Func: sphere}, []float64{1}, Settings{Method: Method(99)})
	assert.True(t, errors.Is(err, optimization.ErrUnknownMethod))

	_, err = e.Minimize(ctx, Problem{Dim: 1, Func: sphere, Bounds: box(1, 2, 1)}, []float64{1}, Settings{})
	assert.True(t, errors.Is(err, optimization.ErrInvalidRange))
}

func TestMinimizeCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	res, err := NewEngine(nil).Minimize(ctx, Problem{Dim: 1, Func: sphere}, []float64{3}, Settings{})
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.False(t, res.OK)
}
