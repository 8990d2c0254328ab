package constrained

import (
	"context"
	"math"

	"go.uber.org/zap"

	"github.com/curiousTauseef/anyprog/internal/optimization"
	"github.com/curiousTauseef/anyprog/internal/optimization/nlp"
	"github.com/curiousTauseef/anyprog/internal/optimization/random"
)

// Default values of SearchOptions.
const (
	DefaultMaxRandomIter = 100
	DefaultMaxNotChanged = 30
	DefaultShrink        = 0.382
)

// SearchOptions controls Search.
type SearchOptions struct {
	// MaxRandomIter bounds the random starts of one restart.
	MaxRandomIter int
	// MaxNotChanged is the number of consecutive rejected starts that ends
	// a restart early. It also bounds the restarts of one epoch.
	MaxNotChanged int
	// Shrink scales how far a range is pulled toward the best point.
	Shrink  float64
	Method  nlp.Method
	Eps     float64
	MaxIter int
}

// DefaultSearchOptions returns the default options with the configured
// default method.
func (o *Optimizer) DefaultSearchOptions() SearchOptions {
	return SearchOptions{
		MaxRandomIter: DefaultMaxRandomIter,
		MaxNotChanged: DefaultMaxNotChanged,
		Shrink:        DefaultShrink,
		Method:        o.cfg.DefaultMethod,
		Eps:           DefaultEps,
		MaxIter:       DefaultMaxIter,
	}
}

func (s SearchOptions) withDefaults() SearchOptions {
	if s.MaxRandomIter <= 0 {
		s.MaxRandomIter = DefaultMaxRandomIter
	}
	if s.MaxNotChanged < 0 {
		s.MaxNotChanged = 0
	}
	if s.Shrink <= 0 || s.Shrink >= 1 {
		s.Shrink = DefaultShrink
	}
	if s.Eps <= 0 {
		s.Eps = DefaultEps
	}
	if s.MaxIter <= 0 {
		s.MaxIter = DefaultMaxIter
	}
	return s
}

// Search looks for a global minimum by solving from random points of a box
// that shrinks toward the best feasible point found so far. Unless every
// dimension has finite bounds it is a single Solve.
//
// A start is accepted when it is feasible and either the incumbent is not,
// or it improves the incumbent by at least Eps. Every acceptance is appended
// to History, which keeps growing across calls, and IsOK reports whether it
// holds any entry. The solver always sees
// the configured bounds; only the sampling box narrows. An epoch that ends
// without a feasible point starts over from the configured bounds, at most
// Config.MaxReloopIter times.
func (o *Optimizer) Search(ctx context.Context, opts SearchOptions) ([]float64, error) {
	opts = opts.withDefaults()
	if !finiteBox(o.bounds) {
		return o.Solve(ctx, opts.Method, opts.Eps, opts.MaxIter)
	}
	eps := opts.Eps
	dim := len(o.point)

	o.applyFilter(o.point)
	globalPoint := optimization.Clone(o.point)
	globalValue := o.obj(globalPoint)
	globalOK := o.check(globalPoint, eps)

	shrink := random.NewFrom(-eps, math.Abs(opts.Shrink)+eps, o.rng)
	samplers := make([]*random.Uniform, dim)
	candidate := make([]float64, dim)
	var epochs, restarts, calls int

	finish := func(err error) ([]float64, error) {
		copy(o.point, globalPoint)
		o.ok = len(o.history) > 0
		o.fval = globalValue
		o.logger.Info("search finished",
			zap.Int("epochs", epochs),
			zap.Int("restarts", restarts),
			zap.Int("solver_calls", calls),
			zap.Bool("ok", o.ok),
			zap.Float64("value", globalValue))
		return optimization.Clone(globalPoint), err
	}

	for reloop := 0; ; reloop++ {
		epochs++
		window := optimization.CloneRanges(o.bounds)
		o.logger.Debug("search epoch", zap.Int("epoch", reloop))

		for restart := 0; ; restart++ {
			restarts++
			o.cfg.Recorder.SearchRestart()
			for j, r := range window {
				samplers[j] = nil
				if r.Width() >= eps {
					samplers[j] = random.NewFrom(r.Lower-eps, r.Upper+eps, o.rng)
				}
			}

			stale := 0
			for i := 0; i < opts.MaxRandomIter; i++ {
				if err := ctx.Err(); err != nil {
					return finish(err)
				}
				for j, s := range samplers {
					if s == nil {
						candidate[j] = window[j].Clamp(globalPoint[j])
						continue
					}
					candidate[j] = s.Generate()
				}
				copy(o.point, candidate)
				calls++
				if _, err := o.Solve(ctx, opts.Method, eps, opts.MaxIter); err != nil {
					return finish(err)
				}

				if o.ok && (!globalOK || globalValue-o.fval >= eps) {
					copy(globalPoint, o.point)
					globalValue = o.fval
					globalOK = true
					stale = 0
					o.history = append(o.history, optimization.HistoryEntry{
						Value: o.fval,
						Point: optimization.Clone(o.point),
					})
					o.logger.Debug("search improved",
						zap.Int("epoch", reloop),
						zap.Int("restart", restart),
						zap.Float64("value", o.fval))
					continue
				}
				stale++
				if stale > opts.MaxNotChanged {
					break
				}
			}

			copy(o.point, globalPoint)
			o.ok = len(o.history) > 0

			converged := 0
			for j := range window {
				if window[j].Width() < eps {
					converged++
					continue
				}
				best := globalPoint[j]
				if best < window[j].Lower {
					window[j].Lower = best
				} else if best > window[j].Upper {
					window[j].Upper = best
				}
				r := shrink.Generate()
				if best > window[j].Lower+0.5*window[j].Width() {
					window[j].Lower += (best - window[j].Lower) * r
				} else {
					window[j].Upper -= (window[j].Upper - best) * r
				}
			}

			if converged < dim-1 && restart+1 <= opts.MaxNotChanged {
				continue
			}
			break
		}

		if !o.ok && reloop+1 <= o.cfg.MaxReloopIter {
			continue
		}
		break
	}

	return finish(nil)
}

// finiteBox reports whether bounds is non-empty and every range is finite.
func finiteBox(bounds []optimization.Range) bool {
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
