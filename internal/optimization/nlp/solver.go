// Package nlp binds nonlinear programming problems to gonum's optimize
// methods and the mayfly metaheuristic.
//
// Methods in gonum are unconstrained. Bounds are enforced by evaluating the
// objective on the projection of a point onto the box and penalising the
// distance outside it; general constraints are handled by an augmented
// Lagrangian outer loop.
package nlp

import (
	"context"
	"math"
	"math/rand"
	randv2 "math/rand/v2"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/optimize"

	"github.com/curiousTauseef/anyprog/internal/optimization"
	"github.com/curiousTauseef/anyprog/internal/optimization/random"
)

const (
	// DefaultEps is the default tolerance of a solve.
	DefaultEps = 1e-5
	// DefaultMaxEvaluations is the default evaluation budget of one inner run.
	DefaultMaxEvaluations = 1000
	maxOuterRounds        = 12
	convergeIterations    = 50
)

// Problem is a minimisation problem. Eq constraints must evaluate to zero,
// Ineq constraints to at most zero. EqGrad and IneqGrad are used only when
// they have one entry per constraint and Grad is set; otherwise gradients
// are estimated by central differences.
type Problem struct {
	Dim      int
	Func     optimization.Func
	Grad     optimization.Gradient
	Bounds   []optimization.Range
	Eq       []optimization.Constraint
	Ineq     []optimization.Constraint
	EqGrad   []optimization.Gradient
	IneqGrad []optimization.Gradient
}

// Settings controls one call of Minimize.
type Settings struct {
	Method      Method
	LocalMethod Method
	Eps         float64
	// MaxEvaluations bounds the function evaluations of each inner run.
	MaxEvaluations int
	// Population is a hint for population based methods.
	Population int
	Rand       *rand.Rand
}

func (s Settings) withDefaults() Settings {
	if s.Eps <= 0 {
		s.Eps = DefaultEps
	}
	if s.MaxEvaluations <= 0 {
		s.MaxEvaluations = DefaultMaxEvaluations
	}
	if s.Rand == nil {
		s.Rand = random.NewRand(0)
	}
	if s.LocalMethod.IsGlobal() || !s.LocalMethod.Valid() {
		s.LocalMethod = NelderMead
	}
	return s
}

// Result is the outcome of Minimize. X always lies inside the bounds.
// OK is false when the method failed or the constraints are violated by
// more than Eps at X.
type Result struct {
	X           []float64
	F           float64
	OK          bool
	Status      string
	Violation   float64
	Evaluations int
}

// Solver minimises a Problem from a start point.
type Solver interface {
	Minimize(ctx context.Context, p Problem, x0 []float64, s Settings) (*Result, error)
}

// Engine is the default Solver.
type Engine struct {
	logger *zap.Logger
}

// NewEngine returns an Engine logging to logger, which may be nil.
func NewEngine(logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{logger: logger.Named("nlp")}
}

func validate(p Problem, x0 []float64, s Settings) error {
	if p.Dim <= 0 {
		return optimization.WrapError(optimization.ErrEmptyProblem, "minimize").WithComponent("nlp")
	}
	if p.Func == nil {
		return optimization.NewError("objective is nil").WithComponent("nlp").WithOperation("minimize")
	}
	if len(x0) != p.Dim {
		return optimization.WrapErrorf(optimization.ErrDimensionMismatch,
			"start point has %d components, want %d", len(x0), p.Dim).WithComponent("nlp")
	}
	if len(p.Bounds) > 0 {
		if err := optimization.ValidateRanges(p.Bounds, p.Dim); err != nil {
			return optimization.WrapError(err, "bounds").WithComponent("nlp")
		}
	}
	if !s.Method.Valid() {
		return optimization.WrapErrorf(optimization.ErrUnknownMethod, "method %d", int(s.Method)).WithComponent("nlp")
	}
	return nil
}

func finiteBounds(bounds []optimization.Range) bool {
	if len(bounds) == 0 {
		return false
	}
	for _, r := range bounds {
		if !r.Bounded() {
			return false
		}
	}
	return true
}

// Minimize runs s.Method from x0. Errors are returned for malformed input
// and context cancellation; an unsuccessful run is reported through
// Result.OK.
func (e *Engine) Minimize(ctx context.Context, p Problem, x0 []float64, s Settings) (*Result, error) {
	if err := validate(p, x0, s); err != nil {
		return nil, err
	}
	s = s.withDefaults()
	al := newLagrangian(p)
	x, _ := al.project(x0)

	if s.Method.IsGlobal() && !finiteBounds(p.Bounds) {
		e.logger.Debug("global method without finite bounds", zap.Stringer("method", s.Method))
		return &Result{
			X:         x,
			F:         p.Func(x),
			Status:    optimization.ErrBoundsRequired.Error(),
			Violation: al.violation(x),
		}, nil
	}

	rounds := 1
	if al.constrained() {
		rounds = maxOuterRounds
	}

	res := &Result{OK: true}
	prev := math.Inf(1)
	method := s.Method
	for k := 0; k < rounds; k++ {
		next, status, evals, err := e.run(ctx, method, al, x, s)
		res.Evaluations += evals
		res.Status = status
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				res.X, res.F, res.OK = x, p.Func(x), false
				res.Violation = al.violation(x)
				return res, ctxErr
			}
			e.logger.Debug("inner run failed", zap.Stringer("method", method), zap.Error(err))
			res.OK = false
			if next == nil {
				break
			}
		}
		x = next
		if method.NeedsLocal() {
			next, status, evals, err = e.run(ctx, s.LocalMethod, al, x, s)
			res.Evaluations += evals
			res.Status = status
			if err != nil {
				if ctxErr := ctx.Err(); ctxErr != nil {
					res.X, res.F, res.OK = x, p.Func(x), false
					res.Violation = al.violation(x)
					return res, ctxErr
				}
				res.OK = false
			}
			if next != nil {
				x = next
			}
		}
		if !al.constrained() {
			break
		}
		viol := al.violation(x)
		e.logger.Debug("augmented lagrangian round",
			zap.Int("round", k),
			zap.Float64("violation", viol),
			zap.Float64("penalty", al.rho))
		if viol <= s.Eps {
			break
		}
		al.update(x, viol, prev)
		prev = viol
		if method.IsGlobal() {
			method = s.LocalMethod
		}
	}

	res.X = x
	res.F = p.Func(x)
	res.Violation = al.violation(x)
	if res.Violation > s.Eps {
		res.OK = false
	}
	return res, nil
}

// run performs one inner unconstrained minimisation of the augmented
// Lagrangian and returns the projected best point.
func (e *Engine) run(ctx context.Context, m Method, al *lagrangian, x0 []float64, s Settings) ([]float64, string, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, optimize.Failure.String(), 0, err
	}
	if m == Mayfly {
		return e.runMayfly(ctx, al, s)
	}

	problem := optimize.Problem{
		Func: al.value,
		Status: func() (optimize.Status, error) {
			if err := ctx.Err(); err != nil {
				return optimize.Failure, err
			}
			return optimize.NotTerminated, nil
		},
	}
	if m.NeedsGradient() {
		problem.Grad = al.gradient
	}
	settings := &optimize.Settings{
		Converger: &optimize.FunctionConverge{
			Absolute:   s.Eps * 1e-2,
			Relative:   s.Eps * 1e-2,
			Iterations: convergeIterations,
		},
		GradientThreshold: s.Eps * 1e-2,
		FuncEvaluations:   s.MaxEvaluations,
		Concurrent:        1,
	}

	result, err := optimize.Minimize(problem, x0, settings, e.method(m, al.p.Bounds, s))
	if result == nil {
		return nil, optimize.Failure.String(), 0, err
	}
	x, _ := al.project(result.X)
	evals := result.FuncEvaluations + result.GradEvaluations
	if err == nil && result.Status == optimize.Failure {
		err = optimization.NewErrorf("%s terminated with %s", m, result.Status).WithComponent("nlp")
	}
	return x, result.Status.String(), evals, err
}

func (e *Engine) method(m Method, bounds []optimization.Range, s Settings) optimize.Method {
	switch m {
	case BFGS:
		return &optimize.BFGS{}
	case LBFGS:
		return &optimize.LBFGS{}
	case ConjugateGradient:
		return &optimize.CG{}
	case GradientDescent:
		return &optimize.GradientDescent{}
	case CMAES:
		pop := s.Population
		if limit := s.MaxEvaluations / 10; pop > limit {
			pop = limit
		}
		if pop < 0 {
			pop = 0
		}
		return &optimize.CmaEsChol{
			InitStepSize: 0.3 * meanWidth(bounds, 1),
			Population:   pop,
			Src:          randv2.NewPCG(uint64(s.Rand.Int63()), uint64(s.Rand.Int63())),
		}
	case GuessAndCheck:
		return &optimize.GuessAndCheck{Rander: &boxRander{bounds: bounds, rng: s.Rand}}
	default:
		return &optimize.NelderMead{SimplexSize: 0.1 * meanWidth(bounds, 10)}
	}
}

// meanWidth returns the mean width of the finite ranges, or fallback.
func meanWidth(bounds []optimization.Range, fallback float64) float64 {
	var sum float64
	var n int
	for _, r := range bounds {
		if r.Bounded() && r.Width() > 0 {
			sum += r.Width()
			n++
		}
	}
	if n == 0 {
		return fallback
	}
	return sum / float64(n)
}

// boxRander draws points uniformly from a finite box.
type boxRander struct {
	bounds []optimization.Range
	rng    *rand.Rand
}

func (b *boxRander) Rand(x []float64) []float64 {
	if x == nil {
		x = make([]float64, len(b.bounds))
	}
	for i, r := range b.bounds {
		x[i] = r.Lower + r.Width()*b.rng.Float64()
	}
	return x
}
