package constrained

import (
	"math/rand"
	"time"

	"go.uber.org/zap"

	"github.com/curiousTauseef/anyprog/internal/optimization/nlp"
	"github.com/curiousTauseef/anyprog/internal/optimization/random"
)

// Default values of Config.
const (
	DefaultBoundStep     = 50.0
	DefaultPopulation    = 200
	DefaultMaxReloopIter = 3
)

// Recorder observes solver calls and search restarts. Implementations must
// be safe for concurrent use when shared between optimizers.
type Recorder interface {
	SolverCall(method string, ok bool, elapsed time.Duration)
	SearchRestart()
}

type nopRecorder struct{}

func (nopRecorder) SolverCall(string, bool, time.Duration) {}
func (nopRecorder) SearchRestart()                         {}

// Config holds the settings shared by every Optimizer built from it.
type Config struct {
	// DefaultMethod is the method used by DefaultSearchOptions.
	DefaultMethod nlp.Method
	// LocalMethod refines the result of global methods that need it.
	LocalMethod nlp.Method
	// EnableDefaultBoundStep gives an optimizer built from a start point
	// alone the box [x_i - DefaultBoundStep, x_i + DefaultBoundStep].
	EnableDefaultBoundStep bool
	DefaultBoundStep       float64
	// Population is the hint passed to population based methods.
	Population int
	// MaxReloopIter bounds how often a search that found nothing feasible
	// starts over from the configured bounds.
	MaxReloopIter int
	// Seed seeds the generator when Rand is nil. Zero means time seeded.
	Seed int64
	Rand *rand.Rand

	Solver   nlp.Solver
	Logger   *zap.Logger
	Recorder Recorder
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DefaultMethod:          nlp.NelderMead,
		LocalMethod:            nlp.NelderMead,
		EnableDefaultBoundStep: true,
		DefaultBoundStep:       DefaultBoundStep,
		Population:             DefaultPopulation,
		MaxReloopIter:          DefaultMaxReloopIter,
	}
}

func (c Config) normalize() Config {
	if c.Logger == nil {
		c.Logger = zap.NewNop()
	}
	if c.Solver == nil {
		c.Solver = nlp.NewEngine(c.Logger)
	}
	if c.Recorder == nil {
		c.Recorder = nopRecorder{}
	}
	if c.Rand == nil {
		c.Rand = random.NewRand(c.Seed)
	}
	if c.DefaultBoundStep <= 0 {
		c.DefaultBoundStep = DefaultBoundStep
	}
	if c.MaxReloopIter < 0 {
		c.MaxReloopIter = 0
	}
	return c
}
