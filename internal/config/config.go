package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v10"

	"github.com/curiousTauseef/anyprog/internal/optimization/constrained"
	"github.com/curiousTauseef/anyprog/internal/optimization/nlp"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	HTTP        struct {
		Port            int           `env:"HTTP_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"HTTP_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"HTTP_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"HTTP_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"HTTP_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Logging struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Optimization struct {
		WorkerCount     int        `env:"OPT_WORKER_COUNT" envDefault:"10"`
		DefaultMethod   nlp.Method `env:"OPT_DEFAULT_METHOD" envDefault:"neldermead"`
		LocalMethod     nlp.Method `env:"OPT_LOCAL_METHOD" envDefault:"neldermead"`
		EnableBoundStep bool       `env:"OPT_ENABLE_BOUND_STEP" envDefault:"true"`
		BoundStep       float64    `env:"OPT_BOUND_STEP" envDefault:"50"`
		Population      int        `env:"OPT_POPULATION" envDefault:"200"`
		MaxReloopIter   int        `env:"OPT_MAX_RELOOP" envDefault:"3"`
		Seed            int64      `env:"OPT_SEED" envDefault:"0"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}

	// Parse environment variables
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Set default logging level based on environment
	if cfg.Environment == "development" && cfg.Logging.Level == "" {
		cfg.Logging.Level = "debug"
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports settings the optimizer cannot run with.
func (c *Config) Validate() error {
	if c.Optimization.WorkerCount < 1 {
		return fmt.Errorf("OPT_WORKER_COUNT must be positive, got %d", c.Optimization.WorkerCount)
	}
	if c.Optimization.BoundStep <= 0 {
		return fmt.Errorf("OPT_BOUND_STEP must be positive, got %g", c.Optimization.BoundStep)
	}
	if c.Optimization.MaxReloopIter < 0 {
		return fmt.Errorf("OPT_MAX_RELOOP must not be negative, got %d", c.Optimization.MaxReloopIter)
	}
	if c.Optimization.LocalMethod.IsGlobal() {
		return fmt.Errorf("OPT_LOCAL_METHOD must be a local method, got %s", c.Optimization.LocalMethod)
	}
	return nil
}

// Optimizer returns the optimizer configuration described by c. Solver,
// Logger and Recorder are left for the caller to set.
func (c *Config) Optimizer() constrained.Config {
	oc := constrained.DefaultConfig()
	oc.DefaultMethod = c.Optimization.DefaultMethod
	oc.LocalMethod = c.Optimization.LocalMethod
	oc.EnableDefaultBoundStep = c.Optimization.EnableBoundStep
	oc.DefaultBoundStep = c.Optimization.BoundStep
	oc.Population = c.Optimization.Population
	oc.MaxReloopIter = c.Optimization.MaxReloopIter
	oc.Seed = c.Optimization.Seed
	return oc
}
