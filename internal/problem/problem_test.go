package problem

import (
	"context"
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curiousTauseef/anyprog/internal/optimization"
	"github.com/curiousTauseef/anyprog/internal/optimization/constrained"
)

func seeded() constrained.Config {
	cfg := constrained.DefaultConfig()
	cfg.Seed = 99
	return cfg
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		def     Definition
		wantErr error
	}{
		{
			name: "valid linear program",
			def:  Definition{Objective: "linear", Coefficients: []float64{1, 1}, Bounds: []optimization.Range{{Lower: 0, Upper: 1}, {Lower: 0, Upper: 1}}},
		},
		{
			name:    "empty",
			def:     Definition{Objective: "sphere"},
			wantErr: optimization.ErrEmptyProblem,
		},
		{
			name:    "coefficient mismatch",
			def:     Definition{Objective: "linear", Coefficients: []float64{1}, X0: []float64{0, 0}},
			wantErr: optimization.ErrDimensionMismatch,
		},
		{
			name:    "beale dimension",
			def:     Definition{Objective: "beale", X0: []float64{0, 0, 0}},
			wantErr: optimization.ErrDimensionMismatch,
		},
		{
			name:    "ragged system",
			def:     Definition{Objective: "sphere", X0: []float64{0, 0}, AUb: [][]float64{{1}}, BUb: []float64{1}},
			wantErr: optimization.ErrDimensionMismatch,
		},
		{
			name:    "unknown method",
			def:     Definition{Objective: "sphere", X0: []float64{0}, Method: "simplex"},
			wantErr: optimization.ErrUnknownMethod,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.def.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}

	assert.Error(t, (&Definition{Objective: "ackley", X0: []float64{0}}).Validate())
	assert.Error(t, (&Definition{Objective: "sphere", X0: []float64{0}, Mode: "anneal"}).Validate())
	assert.Error(t, (&Definition{Objective: "sphere", X0: []float64{0}, Integer: true, Binary: true}).Validate())
}

func TestRunLinearProgramJSON(t *testing.T) {
	raw := `{
		"objective": "linear",
		"coefficients": [-1, -1],
		"x0": [1, 1],
		"bounds": [{"lower": 0, "upper": 10}, {"lower": 0, "upper": 10}],
		"a_ub": [[1, 1]],
		"b_ub": [5],
		"mode": "solve",
		"max_iter": 5000
	}`
	var def Definition
	require.NoError(t, json.Unmarshal([]byte(raw), &def))

	res, err := Run(context.Background(), &def, seeded())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.InDelta(t, -5, res.Value, 1e-3)
	assert.Len(t, res.Point, 2)
}

func TestRunSearchInteger(t *testing.T) {
	def := &Definition{
		Objective:     "sphere",
		X0:            []float64{2.6, -2.2},
		Bounds:        []optimization.Range{{Lower: -3, Upper: 3}, {Lower: -3, Upper: 3}},
		Integer:       true,
		Mode:          ModeSearch,
		MaxRandomIter: 20,
		MaxNotChanged: 5,
	}
	res, err := Run(context.Background(), def, seeded())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.Equal(t, []float64{0, 0}, res.Point)
	assert.Zero(t, res.Value)
	assert.NotEmpty(t, res.History)
}

func TestRunRosenbrockGradient(t *testing.T) {
	def := &Definition{Objective: "rosenbrock", X0: []float64{-1.2, 1}, Method: "lbfgs", Eps: 1e-6, MaxIter: 5000}
	res, err := Run(context.Background(), def, seeded())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.InDelta(t, 1, res.Point[0], 1e-3)
	assert.InDelta(t, 1, res.Point[1], 1e-3)
}

func TestRunBeale(t *testing.T) {
	def := &Definition{
		Objective:     "beale",
		Bounds:        []optimization.Range{{Lower: -4.5, Upper: 4.5}, {Lower: -4.5, Upper: 4.5}},
		Mode:          ModeSearch,
		MaxRandomIter: 20,
		MaxNotChanged: 5,
		Eps:           1e-8,
	}
	res, err := Run(context.Background(), def, seeded())
	require.NoError(t, err)
	assert.True(t, res.OK)
	assert.InDelta(t, 3, res.Point[0], 1e-2)
	assert.InDelta(t, 0.5, res.Point[1], 1e-2)
}

func TestRunCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	def := &Definition{Objective: "sphere", Bounds: []optimization.Range{{Lower: -1, Upper: 1}}, Mode: ModeSearch}
	res, err := Run(ctx, def, seeded())
	assert.ErrorIs(t, err, context.Canceled)
	require.NotNil(t, res)
	assert.False(t, math.IsNaN(res.Value))
}
