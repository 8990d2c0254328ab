package nlp

import (
	"strings"

	"github.com/curiousTauseef/anyprog/internal/optimization"
)

// Kind classifies a method by the information it needs and the scope of
// its search.
type Kind int

const (
	// LocalDerivativeFree methods use function values only.
	LocalDerivativeFree Kind = iota
	// LocalDerivative methods consume gradients.
	LocalDerivative
	// Global methods explore the whole box and require finite bounds.
	Global
)

func (k Kind) String() string {
	switch k {
	case LocalDerivativeFree:
		return "local-derivative-free"
	case LocalDerivative:
		return "local-derivative"
	case Global:
		return "global"
	default:
		return "unknown"
	}
}

// Method selects the algorithm of a single solver invocation.
type Method int

const (
	// NelderMead is the downhill simplex method.
	NelderMead Method = iota
	// BFGS is the quasi-Newton method of Broyden, Fletcher, Goldfarb and Shanno.
	BFGS
	// LBFGS is the limited-memory variant of BFGS.
	LBFGS
	// ConjugateGradient is nonlinear conjugate gradient.
	ConjugateGradient
	// GradientDescent is steepest descent with line search.
	GradientDescent
	// CMAES is the covariance matrix adaptation evolution strategy.
	CMAES
	// GuessAndCheck samples the box uniformly and keeps the best point.
	GuessAndCheck
	// Mayfly is the mayfly swarm metaheuristic.
	Mayfly
)

type methodInfo struct {
	name       string
	kind       Kind
	needsLocal bool
}

var methods = map[Method]methodInfo{
	NelderMead:        {name: "neldermead", kind: LocalDerivativeFree},
	BFGS:              {name: "bfgs", kind: LocalDerivative},
	LBFGS:             {name: "lbfgs", kind: LocalDerivative},
	ConjugateGradient: {name: "cg", kind: LocalDerivative},
	GradientDescent:   {name: "gradientdescent", kind: LocalDerivative},
	CMAES:             {name: "cmaes", kind: Global, needsLocal: true},
	GuessAndCheck:     {name: "guessandcheck", kind: Global, needsLocal: true},
	Mayfly:            {name: "mayfly", kind: Global, needsLocal: true},
}

// Methods returns every known method in declaration order.
func Methods() []Method {
	return []Method{NelderMead, BFGS, LBFGS, ConjugateGradient, GradientDescent, CMAES, GuessAndCheck, Mayfly}
}

// ParseMethod maps a method name (case-insensitive) to its Method.
func ParseMethod(name string) (Method, error) {
	n := strings.ToLower(strings.TrimSpace(name))
	for m, info := range methods {
		if info.name == n {
			return m, nil
		}
	}
	return 0, optimization.WrapErrorf(optimization.ErrUnknownMethod, "%q", name).
		WithComponent("nlp").WithOperation("parse method")
}

// Valid reports whether m is a known method.
func (m Method) Valid() bool {
	_, ok := methods[m]
	return ok
}

func (m Method) String() string {
	if info, ok := methods[m]; ok {
		return info.name
	}
	return "unknown"
}

// Kind returns the classification of m.
func (m Method) Kind() Kind {
	return methods[m].kind
}

// NeedsGradient reports whether m consumes derivatives.
func (m Method) NeedsGradient() bool {
	return m.Kind() == LocalDerivative
}

// IsGlobal reports whether m is a global method.
func (m Method) IsGlobal() bool {
	return m.Kind() == Global
}

// NeedsLocal reports whether m hands its best point to a local refinement.
func (m Method) NeedsLocal() bool {
	return methods[m].needsLocal
}

// MarshalText implements encoding.TextMarshaler.
func (m Method) MarshalText() ([]byte, error) {
	return []byte(m.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (m *Method) UnmarshalText(text []byte) error {
	parsed, err := ParseMethod(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
