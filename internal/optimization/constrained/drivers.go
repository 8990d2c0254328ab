package constrained

import (
	"context"

	"github.com/curiousTauseef/anyprog/internal/optimization"
	"github.com/curiousTauseef/anyprog/internal/optimization/nlp"
)

// Outcome is the result of a one-shot driver.
type Outcome struct {
	X     []float64 `json:"x"`
	Value float64   `json:"value"`
	OK    bool      `json:"ok"`
}

func outcome(o *Optimizer, x []float64) Outcome {
	return Outcome{X: x, Value: o.Value(), OK: o.IsOK()}
}

// Unconstrained minimises f from x0 with a derivative-free method and no
// bounds.
func Unconstrained(ctx context.Context, f optimization.Func, x0 []float64, eps float64, maxIter int) (Outcome, error) {
	cfg := DefaultConfig()
	cfg.EnableDefaultBoundStep = false
	o, err := New(f, x0, cfg)
	if err != nil {
		return Outcome{}, err
	}
	x, err := o.Solve(ctx, nlp.NelderMead, eps, maxIter)
	return outcome(o, x), err
}

// UnconstrainedGrad minimises f from x0 with L-BFGS using the gradient g.
func UnconstrainedGrad(ctx context.Context, f optimization.Func, g optimization.Gradient, x0 []float64, eps float64, maxIter int) (Outcome, error) {
	cfg := DefaultConfig()
	cfg.EnableDefaultBoundStep = false
	o, err := New(f, x0, cfg)
	if err != nil {
		return Outcome{}, err
	}
	o.SetGradient(g)
	x, err := o.Solve(ctx, nlp.LBFGS, eps, maxIter)
	return outcome(o, x), err
}

// Bounded minimises f over bounds from a random point inside them.
func Bounded(ctx context.Context, f optimization.Func, bounds []optimization.Range, eps float64, maxIter int) (Outcome, error) {
	o, err := NewInBounds(f, bounds, DefaultConfig())
	if err != nil {
		return Outcome{}, err
	}
	x, err := o.Solve(ctx, nlp.NelderMead, eps, maxIter)
	return outcome(o, x), err
}
