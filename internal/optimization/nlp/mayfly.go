package nlp

import (
	"context"

	"github.com/cwbudde/mayfly"

	"github.com/curiousTauseef/anyprog/internal/optimization"
)

const minMayflyPopulation = 20

// runMayfly minimises the augmented Lagrangian with the mayfly swarm. The
// library takes scalar bounds, so the search runs on the unit cube and is
// mapped onto the problem box.
func (e *Engine) runMayfly(ctx context.Context, al *lagrangian, s Settings) ([]float64, string, int, error) {
	bounds := al.p.Bounds
	toBox := func(u []float64) []float64 {
		x := make([]float64, len(u))
		for i, r := range bounds {
			x[i] = r.Lower + r.Width()*u[i]
		}
		return x
	}

	pop := s.Population
	if limit := s.MaxEvaluations / 10; pop > limit {
		pop = limit
	}
	if pop < minMayflyPopulation {
		pop = minMayflyPopulation
	}
	iters := s.MaxEvaluations / pop
	if iters < 1 {
		iters = 1
	}

	evals := 0
	config := mayfly.NewDefaultConfig()
	config.ObjectiveFunc = func(u []float64) float64 {
		evals++
		return al.value(toBox(u))
	}
	config.ProblemSize = len(bounds)
	config.MaxIterations = iters
	config.NPop = pop
	config.LowerBound = 0
	config.UpperBound = 1
	config.Rand = s.Rand

	result, err := mayfly.Optimize(config)
	if err != nil {
		return nil, "Failure", evals, optimization.WrapError(err, "mayfly").WithComponent("nlp")
	}
	if err := ctx.Err(); err != nil {
		return nil, "Failure", evals, err
	}
	x, _ := al.project(toBox(result.GlobalBest.Position))
	return x, "MethodConverge", evals, nil
}
