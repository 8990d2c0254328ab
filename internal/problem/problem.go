// Package problem decodes JSON problem descriptions into constrained
// optimizers and runs them.
package problem

import (
	"context"
	"fmt"
	"strings"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/optimize/functions"

	"github.com/curiousTauseef/anyprog/internal/optimization"
	"github.com/curiousTauseef/anyprog/internal/optimization/constrained"
	"github.com/curiousTauseef/anyprog/internal/optimization/nlp"
)

// Objectives understood by Definition.
const (
	ObjectiveLinear     = "linear"
	ObjectiveSphere     = "sphere"
	ObjectiveRosenbrock = "rosenbrock"
	ObjectiveBeale      = "beale"
)

// Modes understood by Definition.
const (
	ModeSolve  = "solve"
	ModeSearch = "search"
)

// Definition describes an optimization problem.
type Definition struct {
	Objective    string               `json:"objective"`
	Coefficients []float64            `json:"coefficients,omitempty"`
	X0           []float64            `json:"x0,omitempty"`
	Bounds       []optimization.Range `json:"bounds,omitempty"`
	AEq          [][]float64          `json:"a_eq,omitempty"`
	BEq          []float64            `json:"b_eq,omitempty"`
	AUb          [][]float64          `json:"a_ub,omitempty"`
	BUb          []float64            `json:"b_ub,omitempty"`
	Integer      bool                 `json:"integer,omitempty"`
	Binary       bool                 `json:"binary,omitempty"`

	Mode          string  `json:"mode,omitempty"`
	Method        string  `json:"method,omitempty"`
	Eps           float64 `json:"eps,omitempty"`
	MaxIter       int     `json:"max_iter,omitempty"`
	MaxRandomIter int     `json:"max_random_iter,omitempty"`
	MaxNotChanged int     `json:"max_not_changed,omitempty"`
	Shrink        float64 `json:"shrink,omitempty"`
}

// Result is the outcome of running a Definition.
type Result struct {
	OK      bool                        `json:"ok"`
	Value   float64                     `json:"value"`
	Point   []float64                   `json:"point"`
	History []optimization.HistoryEntry `json:"history,omitempty"`
}

func invalid(format string, args ...interface{}) error {
	return optimization.NewErrorf(format, args...).WithComponent("problem").WithOperation("validate")
}

// Dim returns the problem dimension implied by the definition.
func (s *Definition) Dim() int {
	switch {
	case len(s.X0) > 0:
		return len(s.X0)
	case len(s.Bounds) > 0:
		return len(s.Bounds)
	default:
		return len(s.Coefficients)
	}
}

// Validate checks the definition for consistency.
func (s *Definition) Validate() error {
	n := s.Dim()
	if n == 0 {
		return optimization.WrapError(optimization.ErrEmptyProblem, "definition needs x0, bounds or coefficients").
			WithComponent("problem").WithOperation("validate")
	}
	if len(s.X0) == 0 && len(s.Bounds) == 0 {
		return invalid("definition needs x0 or bounds")
	}
	if len(s.X0) > 0 && len(s.Bounds) > 0 && len(s.X0) != len(s.Bounds) {
		return optimization.WrapErrorf(optimization.ErrDimensionMismatch, "x0 has %d components, bounds %d", len(s.X0), len(s.Bounds)).
			WithComponent("problem").WithOperation("validate")
	}
	switch strings.ToLower(s.Objective) {
	case ObjectiveLinear:
		if len(s.Coefficients) != n {
			return optimization.WrapErrorf(optimization.ErrDimensionMismatch, "%d coefficients for %d dimensions", len(s.Coefficients), n).
				WithComponent("problem").WithOperation("validate")
		}
	case ObjectiveSphere, ObjectiveRosenbrock:
	case ObjectiveBeale:
		if n != 2 {
			return optimization.WrapErrorf(optimization.ErrDimensionMismatch, "beale is two dimensional, got %d", n).
				WithComponent("problem").WithOperation("validate")
		}
	default:
		return invalid("unknown objective %q", s.Objective)
	}
	if err := checkSystem("a_eq", s.AEq, s.BEq, n); err != nil {
		return err
	}
	if err := checkSystem("a_ub", s.AUb, s.BUb, n); err != nil {
		return err
	}
	switch strings.ToLower(s.Mode) {
	case "", ModeSolve, ModeSearch:
	default:
		return invalid("unknown mode %q", s.Mode)
	}
	if s.Method != "" {
		if _, err := nlp.ParseMethod(s.Method); err != nil {
			return err
		}
	}
	if s.Integer && s.Binary {
		return invalid("integer and binary are exclusive")
	}
	return nil
}

func checkSystem(name string, a [][]float64, b []float64, n int) error {
	if len(a) != len(b) {
		return optimization.WrapErrorf(optimization.ErrDimensionMismatch, "%s has %d rows and %d right-hand sides", name, len(a), len(b)).
			WithComponent("problem").WithOperation("validate")
	}
	for i, row := range a {
		if len(row) != n {
			return optimization.WrapErrorf(optimization.ErrDimensionMismatch, "%s row %d has %d columns, want %d", name, i, len(row), n).
				WithComponent("problem").WithOperation("validate")
		}
	}
	return nil
}

func sphere(x []float64) float64 {
	var s float64
	for _, v := range x {
		s += v * v
	}
	return s
}

func sphereGrad(grad, x []float64) {
	for i, v := range x {
		grad[i] = 2 * v
	}
}

func (s *Definition) objective() (optimization.Func, optimization.Gradient) {
	switch strings.ToLower(s.Objective) {
	case ObjectiveLinear:
		c := append([]float64(nil), s.Coefficients...)
		return optimization.Linear(c), func(grad, _ []float64) { copy(grad, c) }
	case ObjectiveRosenbrock:
		f := functions.ExtendedRosenbrock{}
		return f.Func, f.Grad
	case ObjectiveBeale:
		f := functions.Beale{}
		return f.Func, f.Grad
	default:
		return sphere, sphereGrad
	}
}

func dense(a [][]float64) *mat.Dense {
	n := len(a[0])
	data := make([]float64, 0, len(a)*n)
	for _, row := range a {
		data = append(data, row...)
	}
	return mat.NewDense(len(a), n, data)
}

// Build validates the definition and returns the optimizer it describes.
func (s *Definition) Build(cfg constrained.Config) (*constrained.Optimizer, error) {
	if err := s.Validate(); err != nil {
		return nil, err
	}
	obj, grad := s.objective()

	var (
		o   *constrained.Optimizer
		err error
	)
	switch {
	case len(s.X0) > 0 && len(s.Bounds) > 0:
		o, err = constrained.NewWithBounds(obj, s.X0, s.Bounds, cfg)
	case len(s.X0) > 0:
		o, err = constrained.New(obj, s.X0, cfg)
	default:
		o, err = constrained.NewInBounds(obj, s.Bounds, cfg)
	}
	if err != nil {
		return nil, err
	}
	o.SetGradient(grad)

	if len(s.AEq) > 0 {
		if err := o.SetEqualityLinear(dense(s.AEq), mat.NewVecDense(len(s.BEq), append([]float64(nil), s.BEq...))); err != nil {
			return nil, err
		}
	}
	if len(s.AUb) > 0 {
		if err := o.SetInequalityLinear(dense(s.AUb), mat.NewVecDense(len(s.BUb), append([]float64(nil), s.BUb...))); err != nil {
			return nil, err
		}
	}
	if s.Integer {
		o.EnableIntegerFilter()
	}
	if s.Binary {
		o.EnableBinaryFilter()
	}
	return o, nil
}

// method returns the solver method of the definition, or fallback when unset.
func (s *Definition) method(fallback nlp.Method) nlp.Method {
	if s.Method == "" {
		return fallback
	}
	m, err := nlp.ParseMethod(s.Method)
	if err != nil {
		return fallback
	}
	return m
}

// Run builds the optimizer and solves or searches it according to Mode.
// The partial result is returned with a context error.
func Run(ctx context.Context, s *Definition, cfg constrained.Config) (*Result, error) {
	o, err := s.Build(cfg)
	if err != nil {
		return nil, err
	}
	method := s.method(cfg.DefaultMethod)

	var point []float64
	if strings.ToLower(s.Mode) == ModeSearch {
		opts := o.DefaultSearchOptions()
		opts.Method = method
		if s.Eps > 0 {
			opts.Eps = s.Eps
		}
		if s.MaxIter > 0 {
			opts.MaxIter = s.MaxIter
		}
		if s.MaxRandomIter > 0 {
			opts.MaxRandomIter = s.MaxRandomIter
		}
		if s.MaxNotChanged > 0 {
			opts.MaxNotChanged = s.MaxNotChanged
		}
		if s.Shrink > 0 {
			opts.Shrink = s.Shrink
		}
		point, err = o.Search(ctx, opts)
	} else {
		point, err = o.Solve(ctx, method, s.Eps, s.MaxIter)
	}

	res := &Result{
		OK:      o.IsOK(),
		Value:   o.Value(),
		Point:   point,
		History: o.History(),
	}
	if err != nil {
		return res, fmt.Errorf("run %s: %w", s.Objective, err)
	}
	return res, nil
}
