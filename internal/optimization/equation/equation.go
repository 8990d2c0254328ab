// Package equation solves systems of nonlinear equations h_i(x) = 0 by
// minimising the sum of squared residuals under the equations as equality
// constraints.
package equation

import (
	"context"

	"github.com/curiousTauseef/anyprog/internal/optimization"
	"github.com/curiousTauseef/anyprog/internal/optimization/constrained"
	"github.com/curiousTauseef/anyprog/internal/optimization/nlp"
)

// DefaultEps is the default residual tolerance.
const DefaultEps = 1e-8

// System is a set of equations with a start point.
type System struct {
	opt    *constrained.Optimizer
	method nlp.Method
	ok     bool
}

// New returns the system eqs starting at x0.
func New(eqs []optimization.Constraint, x0 []float64, cfg constrained.Config) (*System, error) {
	if len(eqs) == 0 {
		return nil, optimization.WrapError(optimization.ErrEmptyProblem, "no equations").
			WithComponent("equation").WithOperation("new")
	}
	hs := append([]optimization.Constraint(nil), eqs...)
	o, err := constrained.New(func(x []float64) float64 {
		var s float64
		for _, h := range hs {
			v := h(x)
			s += v * v
		}
		return s
	}, x0, cfg)
	if err != nil {
		return nil, err
	}
	o.SetEquality(hs...)
	return &System{opt: o, method: cfg.DefaultMethod}, nil
}

// SetMethod selects the solver method, NelderMead by default.
func (s *System) SetMethod(m nlp.Method) {
	s.method = m
}

// Solve looks for a root from the current point. OK reports whether every
// residual is within eps at the returned point.
func (s *System) Solve(ctx context.Context, eps float64, maxIter int) ([]float64, error) {
	if eps <= 0 {
		eps = DefaultEps
	}
	x, err := s.opt.Solve(ctx, s.method, eps, maxIter)
	s.ok = s.opt.IsOK()
	return x, err
}

// OK reports the outcome of the last Solve.
func (s *System) OK() bool {
	return s.ok
}

// Residual returns the sum of squared residuals at x.
func (s *System) Residual(x []float64) float64 {
	return s.opt.Obj(x)
}
