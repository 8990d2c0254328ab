// Package constrained implements a stateful constrained optimizer around a
// single-shot nonlinear solver, and an adaptive multi-start search that
// narrows the sampling box around the best feasible point found so far.
package constrained

import (
	"context"
	"math"
	"math/rand"
	"time"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/curiousTauseef/anyprog/internal/optimization"
	"github.com/curiousTauseef/anyprog/internal/optimization/nlp"
)

const (
	// DefaultEps is the default feasibility and improvement tolerance.
	DefaultEps = 1e-5
	// DefaultMaxIter is the default evaluation budget of one solver call.
	DefaultMaxIter = 1000

	latticeMargin = 0.4999
)

// Optimizer minimises an objective subject to bounds and constraints. It
// keeps a working point that every Solve and Search call starts from and
// updates. An Optimizer is not safe for concurrent use.
type Optimizer struct {
	cfg    Config
	logger *zap.Logger
	rng    *rand.Rand

	obj      optimization.Func
	grad     optimization.Gradient
	eq       []optimization.Constraint
	ineq     []optimization.Constraint
	eqGrad   []optimization.Gradient
	ineqGrad []optimization.Gradient
	filter   optimization.Filter

	point   []float64
	bounds  []optimization.Range
	ok      bool
	fval    float64
	history []optimization.HistoryEntry
}

func newOptimizer(obj optimization.Func, x0 []float64, bounds []optimization.Range, cfg Config) (*Optimizer, error) {
	if obj == nil {
		return nil, optimization.NewError("objective is nil").WithComponent("constrained").WithOperation("new")
	}
	if len(x0) == 0 {
		return nil, optimization.WrapError(optimization.ErrEmptyProblem, "start point").
			WithComponent("constrained").WithOperation("new")
	}
	if len(bounds) > 0 {
		if err := optimization.ValidateRanges(bounds, len(x0)); err != nil {
			return nil, optimization.WrapError(err, "bounds").WithComponent("constrained").WithOperation("new")
		}
	}
	cfg = cfg.normalize()
	o := &Optimizer{
		cfg:    cfg,
		logger: cfg.Logger.Named("constrained"),
		rng:    cfg.Rand,
		obj:    obj,
		point:  optimization.Clone(x0),
		bounds: optimization.CloneRanges(bounds),
	}
	o.fval = obj(o.point)
	return o, nil
}

// New returns an optimizer starting at x0. When the default bound step is
// enabled the box is x0 widened by the step in every dimension, otherwise
// the problem is unbounded.
func New(obj optimization.Func, x0 []float64, cfg Config) (*Optimizer, error) {
	var bounds []optimization.Range
	if cfg.EnableDefaultBoundStep {
		step := cfg.DefaultBoundStep
		if step <= 0 {
			step = DefaultBoundStep
		}
		bounds = make([]optimization.Range, len(x0))
		for i, v := range x0 {
			bounds[i] = optimization.Range{Lower: v - step, Upper: v + step}
		}
	}
	return newOptimizer(obj, x0, bounds, cfg)
}

// NewInBounds returns an optimizer over bounds starting at a point drawn
// uniformly from them.
func NewInBounds(obj optimization.Func, bounds []optimization.Range, cfg Config) (*Optimizer, error) {
	if len(bounds) == 0 {
		return nil, optimization.WrapError(optimization.ErrEmptyProblem, "bounds").
			WithComponent("constrained").WithOperation("new")
	}
	if err := optimization.ValidateRanges(bounds, 0); err != nil {
		return nil, optimization.WrapError(err, "bounds").WithComponent("constrained").WithOperation("new")
	}
	for i, r := range bounds {
		if !r.Bounded() {
			return nil, optimization.WrapErrorf(optimization.ErrBoundsRequired, "range %d", i).
				WithComponent("constrained").WithOperation("new")
		}
	}
	cfg = cfg.normalize()
	x0 := make([]float64, len(bounds))
	for i, r := range bounds {
		x0[i] = r.Lower + r.Width()*cfg.Rand.Float64()
	}
	return newOptimizer(obj, x0, bounds, cfg)
}

// NewWithBounds returns an optimizer over bounds starting at x0. Empty
// bounds leave the problem unbounded.
func NewWithBounds(obj optimization.Func, x0 []float64, bounds []optimization.Range, cfg Config) (*Optimizer, error) {
	return newOptimizer(obj, x0, bounds, cfg)
}

// NewInRange returns an optimizer over r replicated in dim dimensions.
func NewInRange(obj optimization.Func, r optimization.Range, dim int, cfg Config) (*Optimizer, error) {
	if dim <= 0 {
		return nil, optimization.WrapError(optimization.ErrEmptyProblem, "dimension").
			WithComponent("constrained").WithOperation("new")
	}
	bounds := make([]optimization.Range, dim)
	for i := range bounds {
		bounds[i] = r
	}
	return NewInBounds(obj, bounds, cfg)
}

// NewLinear returns an optimizer for the objective c·x. At least one of x0
// and bounds must be given; x0 defaults to a point drawn from bounds.
func NewLinear(c, x0 []float64, bounds []optimization.Range, cfg Config) (*Optimizer, error) {
	obj := optimization.Linear(c)
	n := len(x0)
	if n == 0 {
		n = len(bounds)
	}
	if len(c) != n {
		return nil, optimization.WrapErrorf(optimization.ErrDimensionMismatch,
			"%d coefficients for %d dimensions", len(c), n).WithComponent("constrained").WithOperation("new")
	}
	switch {
	case x0 != nil && bounds != nil:
		return NewWithBounds(obj, x0, bounds, cfg)
	case x0 != nil:
		return New(obj, x0, cfg)
	default:
		return NewInBounds(obj, bounds, cfg)
	}
}

// SetEquality replaces the equality constraints h_i(x) = 0.
func (o *Optimizer) SetEquality(cs ...optimization.Constraint) {
	o.eq = append([]optimization.Constraint(nil), cs...)
}

// SetInequality replaces the inequality constraints g_i(x) <= 0.
func (o *Optimizer) SetInequality(cs ...optimization.Constraint) {
	o.ineq = append([]optimization.Constraint(nil), cs...)
}

// SetEqualityLinear adds the equality constraints A x = b.
func (o *Optimizer) SetEqualityLinear(a mat.Matrix, b mat.Vector) error {
	cs, err := o.linearRows(a, b, "set equality")
	if err != nil {
		return err
	}
	o.eq = append(o.eq, cs...)
	return nil
}

// SetInequalityLinear adds the inequality constraints A x <= b.
func (o *Optimizer) SetInequalityLinear(a mat.Matrix, b mat.Vector) error {
	cs, err := o.linearRows(a, b, "set inequality")
	if err != nil {
		return err
	}
	o.ineq = append(o.ineq, cs...)
	return nil
}

func (o *Optimizer) linearRows(a mat.Matrix, b mat.Vector, op string) ([]optimization.Constraint, error) {
	r, c := a.Dims()
	if c != len(o.point) || b.Len() != r {
		return nil, optimization.WrapErrorf(optimization.ErrDimensionMismatch,
			"system is %dx%d with %d right-hand sides for %d dimensions", r, c, b.Len(), len(o.point)).
			WithComponent("constrained").WithOperation(op)
	}
	cs := make([]optimization.Constraint, r)
	for i := range cs {
		row := mat.Row(nil, i, a)
		bi := b.AtVec(i)
		cs[i] = func(x []float64) float64 {
			return floats.Dot(row, x) - bi
		}
	}
	return cs, nil
}

// SetFilter installs f, applied to every candidate before it is evaluated.
func (o *Optimizer) SetFilter(f optimization.Filter) {
	o.filter = f
}

// SetGradient installs the objective gradient.
func (o *Optimizer) SetGradient(g optimization.Gradient) {
	o.grad = g
}

// SetEqualityGradients installs one gradient per equality constraint.
func (o *Optimizer) SetEqualityGradients(gs ...optimization.Gradient) {
	o.eqGrad = append([]optimization.Gradient(nil), gs...)
}

// SetInequalityGradients installs one gradient per inequality constraint.
func (o *Optimizer) SetInequalityGradients(gs ...optimization.Gradient) {
	o.ineqGrad = append([]optimization.Gradient(nil), gs...)
}

// EnableIntegerFilter rounds every component to the nearest integer and
// widens each range by just under half a unit on both sides.
func (o *Optimizer) EnableIntegerFilter() {
	o.filter = func(x []float64) {
		for i := range x {
			x[i] = math.Round(x[i])
		}
	}
	for i := range o.bounds {
		o.bounds[i].Lower -= latticeMargin
		o.bounds[i].Upper += latticeMargin
	}
}

// EnableBinaryFilter snaps every component onto {0, 1} and replaces the
// ranges with [-0.4999, 1.4999].
func (o *Optimizer) EnableBinaryFilter() {
	o.filter = func(x []float64) {
		for i := range x {
			x[i] = math.Max(0, math.Min(1, math.Round(x[i])))
		}
	}
	o.bounds = make([]optimization.Range, len(o.point))
	for i := range o.bounds {
		o.bounds[i] = optimization.Range{Lower: -latticeMargin, Upper: 1 + latticeMargin}
	}
}

func (o *Optimizer) applyFilter(x []float64) {
	if o.filter != nil {
		o.filter(x)
	}
}

func (o *Optimizer) wrapFunc(f optimization.Func) optimization.Func {
	if o.filter == nil {
		return f
	}
	return func(x []float64) float64 {
		y := optimization.Clone(x)
		o.filter(y)
		return f(y)
	}
}

func (o *Optimizer) wrapGradient(g optimization.Gradient) optimization.Gradient {
	if g == nil || o.filter == nil {
		return g
	}
	return func(grad, x []float64) {
		y := optimization.Clone(x)
		o.filter(y)
		g(grad, y)
	}
}

func (o *Optimizer) problem() nlp.Problem {
	p := nlp.Problem{
		Dim:    len(o.point),
		Func:   o.wrapFunc(o.obj),
		Grad:   o.wrapGradient(o.grad),
		Bounds: o.bounds,
	}
	for _, h := range o.eq {
		p.Eq = append(p.Eq, o.wrapFunc(h))
	}
	for _, g := range o.ineq {
		p.Ineq = append(p.Ineq, o.wrapFunc(g))
	}
	for _, g := range o.eqGrad {
		p.EqGrad = append(p.EqGrad, o.wrapGradient(g))
	}
	for _, g := range o.ineqGrad {
		p.IneqGrad = append(p.IneqGrad, o.wrapGradient(g))
	}
	return p
}

// check reports whether x satisfies the constraints within eps. Inequalities
// are not evaluated once an equality fails.
func (o *Optimizer) check(x []float64, eps float64) bool {
	for _, h := range o.eq {
		if math.Abs(h(x)) > eps {
			return false
		}
	}
	for _, g := range o.ineq {
		if v := g(x); v > 0 && v > eps {
			return false
		}
	}
	return true
}

// Solve runs one solver call from the working point and moves the working
// point to its result, which is returned whether or not it is feasible.
// IsOK reports whether the solver succeeded and the filtered result
// satisfies every constraint within eps.
func (o *Optimizer) Solve(ctx context.Context, method nlp.Method, eps float64, maxIter int) ([]float64, error) {
	if eps <= 0 {
		eps = DefaultEps
	}
	if maxIter <= 0 {
		maxIter = DefaultMaxIter
	}
	o.applyFilter(o.point)

	start := time.Now()
	res, err := o.cfg.Solver.Minimize(ctx, o.problem(), o.point, nlp.Settings{
		Method:         method,
		LocalMethod:    o.cfg.LocalMethod,
		Eps:            eps,
		MaxEvaluations: maxIter,
		Population:     o.cfg.Population,
		Rand:           o.rng,
	})
	solverOK := err == nil && res != nil && res.OK
	if res != nil && len(res.X) == len(o.point) {
		copy(o.point, res.X)
	}
	o.applyFilter(o.point)
	o.ok = solverOK && o.check(o.point, eps)
	o.fval = o.obj(o.point)
	o.cfg.Recorder.SolverCall(method.String(), o.ok, time.Since(start))

	if err != nil {
		return optimization.Clone(o.point), err
	}
	return optimization.Clone(o.point), nil
}

// Obj evaluates the objective at x without touching the optimizer state.
func (o *Optimizer) Obj(x []float64) float64 {
	return o.obj(x)
}

// IsOK reports whether the last Solve or Search produced a feasible point.
func (o *Optimizer) IsOK() bool {
	return o.ok
}

// Value returns the objective at the working point after the last Solve
// or Search.
func (o *Optimizer) Value() float64 {
	return o.fval
}

// Point returns a copy of the working point.
func (o *Optimizer) Point() []float64 {
	return optimization.Clone(o.point)
}

// Bounds returns a copy of the ranges.
func (o *Optimizer) Bounds() []optimization.Range {
	return optimization.CloneRanges(o.bounds)
}

// Dim returns the problem dimension.
func (o *Optimizer) Dim() int {
	return len(o.point)
}

// History returns the improvements accepted by every Search so far, oldest
// first.
func (o *Optimizer) History() []optimization.HistoryEntry {
	out := make([]optimization.HistoryEntry, len(o.history))
	for i, h := range o.history {
		out[i] = optimization.HistoryEntry{Value: h.Value, Point: optimization.Clone(h.Point)}
	}
	return out
}
