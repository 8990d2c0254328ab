// Package fit fits models that are linear combinations of basis functions,
// either exactly by linear least squares or through the constrained
// optimizer when the basis depends on the parameters.
package fit

import (
	"context"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curiousTauseef/anyprog/internal/optimization"
	"github.com/curiousTauseef/anyprog/internal/optimization/constrained"
	"github.com/curiousTauseef/anyprog/internal/optimization/nlp"
)

// Basis evaluates one basis function at an observation row for the
// parameters p.
type Basis func(row, p []float64) float64

// Model is y(row) = sum_i p_i * basis_i(row, p) over a set of observations.
type Model struct {
	data   *mat.Dense
	basis  []Basis
	design *mat.Dense
	point  []float64
	cfg    constrained.Config

	eq     []optimization.Constraint
	ineq   []optimization.Constraint
	filter optimization.Filter
}

// New returns a model over the observation rows of data with one parameter
// per basis function, starting at p0. The design matrix used by Solve is
// evaluated at p0.
func New(data mat.Matrix, basis []Basis, p0 []float64, cfg constrained.Config) (*Model, error) {
	rows, _ := data.Dims()
	if rows == 0 || len(basis) == 0 {
		return nil, optimization.WrapError(optimization.ErrEmptyProblem, "model").
			WithComponent("fit").WithOperation("new")
	}
	if len(p0) != len(basis) {
		return nil, optimization.WrapErrorf(optimization.ErrDimensionMismatch,
			"%d parameters for %d basis functions", len(p0), len(basis)).WithComponent("fit").WithOperation("new")
	}
	m := &Model{
		data:  mat.DenseCopyOf(data),
		basis: append([]Basis(nil), basis...),
		point: optimization.Clone(p0),
		cfg:   cfg,
	}
	m.design = mat.NewDense(rows, len(basis), nil)
	for i := 0; i < rows; i++ {
		row := m.data.RawRowView(i)
		for j, b := range m.basis {
			m.design.Set(i, j, b(row, m.point))
		}
	}
	return m, nil
}

// SetEquality replaces the equality constraints on the parameters.
func (m *Model) SetEquality(cs ...optimization.Constraint) {
	m.eq = append([]optimization.Constraint(nil), cs...)
}

// SetInequality replaces the inequality constraints on the parameters.
func (m *Model) SetInequality(cs ...optimization.Constraint) {
	m.ineq = append([]optimization.Constraint(nil), cs...)
}

// SetFilter installs a filter applied to candidate parameters.
func (m *Model) SetFilter(f optimization.Filter) {
	m.filter = f
}

// Point returns the current parameters.
func (m *Model) Point() []float64 {
	return optimization.Clone(m.point)
}

// Solve returns the linear least squares parameters for the observed
// values y. A square design matrix is solved exactly.
func (m *Model) Solve(y mat.Vector) (*mat.VecDense, error) {
	rows, _ := m.design.Dims()
	if y.Len() != rows {
		return nil, optimization.WrapErrorf(optimization.ErrDimensionMismatch,
			"%d values for %d observations", y.Len(), rows).WithComponent("fit").WithOperation("solve")
	}
	var p mat.VecDense
	if err := p.SolveVec(m.design, y); err != nil {
		return nil, optimization.WrapError(err, "least squares").WithComponent("fit").WithOperation("solve")
	}
	return &p, nil
}

// Fitting returns the model values at every observation for parameters p.
func (m *Model) Fitting(p []float64) *mat.VecDense {
	rows, _ := m.data.Dims()
	out := mat.NewVecDense(rows, nil)
	for i := 0; i < rows; i++ {
		out.SetVec(i, m.eval(m.data.RawRowView(i), p))
	}
	return out
}

func (m *Model) eval(row, p []float64) float64 {
	var sum float64
	for i, b := range m.basis {
		sum += p[i] * b(row, p)
	}
	return sum
}

// residual returns ||Y(p) - y|| / rows.
func (m *Model) residual(y []float64) optimization.Func {
	rows, _ := m.data.Dims()
	fitted := make([]float64, rows)
	return func(p []float64) float64 {
		for i := range fitted {
			fitted[i] = m.eval(m.data.RawRowView(i), p)
		}
		return floats.Distance(fitted, y, 2) / float64(rows)
	}
}

func (m *Model) optimizer(y mat.Vector, bounds []optimization.Range) (*constrained.Optimizer, error) {
	rows, _ := m.data.Dims()
	if y.Len() != rows {
		return nil, optimization.WrapErrorf(optimization.ErrDimensionMismatch,
			"%d values for %d observations", y.Len(), rows).WithComponent("fit").WithOperation("least squares")
	}
	values := make([]float64, rows)
	for i := range values {
		values[i] = y.AtVec(i)
	}
	var (
		o   *constrained.Optimizer
		err error
	)
	if bounds != nil {
		o, err = constrained.NewWithBounds(m.residual(values), m.point, bounds, m.cfg)
	} else {
		o, err = constrained.New(m.residual(values), m.point, m.cfg)
	}
	if err != nil {
		return nil, err
	}
	if len(m.eq) > 0 {
		o.SetEquality(m.eq...)
	}
	if len(m.ineq) > 0 {
		o.SetInequality(m.ineq...)
	}
	if m.filter != nil {
		o.SetFilter(m.filter)
	}
	return o, nil
}

// LSSolve minimises the residual from the current parameters with one
// solver call and moves the parameters to the result.
func (m *Model) LSSolve(ctx context.Context, y mat.Vector, method nlp.Method, eps float64, maxIter int) (constrained.Outcome, error) {
	o, err := m.optimizer(y, nil)
	if err != nil {
		return constrained.Outcome{}, err
	}
	x, err := o.Solve(ctx, method, eps, maxIter)
	m.point = x
	return constrained.Outcome{X: optimization.Clone(x), Value: o.Value(), OK: o.IsOK()}, err
}

// LSSearch minimises the residual over bounds with an adaptive search and
// moves the parameters to the result.
func (m *Model) LSSearch(ctx context.Context, y mat.Vector, bounds []optimization.Range, opts constrained.SearchOptions) (constrained.Outcome, error) {
	if bounds == nil {
		bounds = []optimization.Range{}
	}
	o, err := m.optimizer(y, bounds)
	if err != nil {
		return constrained.Outcome{}, err
	}
	x, err := o.Search(ctx, opts)
	m.point = x
	return constrained.Outcome{X: optimization.Clone(x), Value: o.Value(), OK: o.IsOK()}, err
}
