package nlp

import (
	"math"

	"gonum.org/v1/gonum/diff/fd"

	"github.com/curiousTauseef/anyprog/internal/optimization"
)

const (
	initialPenalty = 10.0
	maxPenalty     = 1e12
	penaltyGrowth  = 10.0
	boxWeight      = 1e6
)

// lagrangian is the Powell-Hestenes-Rockafellar augmented Lagrangian of a
// problem, evaluated on the projection of x onto the bounds plus a quadratic
// penalty on the distance outside them.
type lagrangian struct {
	p      Problem
	lambda []float64
	mu     []float64
	rho    float64
	fd     *fd.Settings
}

func newLagrangian(p Problem) *lagrangian {
	return &lagrangian{
		p:      p,
		lambda: make([]float64, len(p.Eq)),
		mu:     make([]float64, len(p.Ineq)),
		rho:    initialPenalty,
		fd:     &fd.Settings{Formula: fd.Central},
	}
}

func (l *lagrangian) constrained() bool {
	return len(l.p.Eq) > 0 || len(l.p.Ineq) > 0
}

// project returns a copy of x clamped to the bounds and the squared
// distance between the two.
func (l *lagrangian) project(x []float64) ([]float64, float64) {
	y := optimization.Clone(x)
	var dist float64
	for i, r := range l.p.Bounds {
		y[i] = r.Clamp(x[i])
		d := x[i] - y[i]
		dist += d * d
	}
	return y, dist
}

func (l *lagrangian) value(x []float64) float64 {
	y, dist := l.project(x)
	f := l.p.Func(y)
	for i, h := range l.p.Eq {
		v := h(y)
		f += l.lambda[i]*v + 0.5*l.rho*v*v
	}
	for j, g := range l.p.Ineq {
		t := math.Max(0, l.mu[j]+l.rho*g(y))
		f += (t*t - l.mu[j]*l.mu[j]) / (2 * l.rho)
	}
	return f + boxWeight*dist
}

func (l *lagrangian) analytic() bool {
	return l.p.Grad != nil &&
		len(l.p.EqGrad) == len(l.p.Eq) &&
		len(l.p.IneqGrad) == len(l.p.Ineq)
}

func (l *lagrangian) gradient(grad, x []float64) {
	if !l.analytic() {
		fd.Gradient(grad, l.value, x, l.fd)
		return
	}
	y, _ := l.project(x)
	l.p.Grad(grad, y)
	tmp := make([]float64, len(x))
	for i, h := range l.p.Eq {
		w := l.lambda[i] + l.rho*h(y)
		l.p.EqGrad[i](tmp, y)
		for k := range grad {
			grad[k] += w * tmp[k]
		}
	}
	for j, g := range l.p.Ineq {
		w := math.Max(0, l.mu[j]+l.rho*g(y))
		if w == 0 {
			continue
		}
		l.p.IneqGrad[j](tmp, y)
		for k := range grad {
			grad[k] += w * tmp[k]
		}
	}
	for i := range l.p.Bounds {
		if d := x[i] - y[i]; d != 0 {
			grad[i] = 2 * boxWeight * d
		}
	}
}

// violation returns the largest constraint violation at x: |h| for
// equalities and the positive part of g for inequalities.
func (l *lagrangian) violation(x []float64) float64 {
	var v float64
	for _, h := range l.p.Eq {
		v = math.Max(v, math.Abs(h(x)))
	}
	for _, g := range l.p.Ineq {
		v = math.Max(v, g(x))
	}
	return v
}

// update moves the multipliers to the values implied by x and raises the
// penalty when the violation did not at least halve.
func (l *lagrangian) update(x []float64, viol, prev float64) {
	for i, h := range l.p.Eq {
		l.lambda[i] += l.rho * h(x)
	}
	for j, g := range l.p.Ineq {
		l.mu[j] = math.Max(0, l.mu[j]+l.rho*g(x))
	}
	if viol > 0.5*prev {
		l.rho = math.Min(l.rho*penaltyGrowth, maxPenalty)
	}
}
