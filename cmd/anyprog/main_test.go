package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/curiousTauseef/anyprog/internal/problem"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

func TestVersion(t *testing.T) {
	out, err := execute(t, "", "version")
	require.NoError(t, err)
	assert.Equal(t, "anyprog version "+version+"\n", out)
}

func TestSolveFromStdin(t *testing.T) {
	out, err := execute(t,
		`{"objective":"linear","coefficients":[1,2],"bounds":[{"lower":0,"upper":3},{"lower":1,"upper":4}],"max_iter":5000}`,
		"solve", "--seed", "3")
	require.NoError(t, err)

	var res problem.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.OK)
	assert.InDelta(t, 2, res.Value, 1e-3)
	assert.Nil(t, res.History)
}

func TestSolveSearchFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "problem.json")
	require.NoError(t, os.WriteFile(path, []byte(`{
		"objective": "sphere",
		"bounds": [{"lower": -3, "upper": 3}, {"lower": -3, "upper": 3}],
		"max_random_iter": 5,
		"max_not_changed": 2
	}`), 0o644))

	out, err := execute(t, "", "solve", path, "--mode", "search", "--seed", "11", "--history")
	require.NoError(t, err)

	var res problem.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.True(t, res.OK)
	assert.InDelta(t, 0, res.Value, 1e-4)
	assert.NotEmpty(t, res.History)
}

func TestSolveErrors(t *testing.T) {
	_, err := execute(t, `{"objective":`, "solve")
	assert.Error(t, err)

	_, err = execute(t, `{"objective":"sphere","x0":[1]}`, "solve", "--method", "simplex")
	assert.Error(t, err)

	_, err = execute(t, "", "solve", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestTSP(t *testing.T) {
	out, err := execute(t, `{"points":[{"x":0,"y":0},{"x":1,"y":0},{"x":1,"y":1},{"x":0,"y":1}]}`, "tsp", "--start", "2")
	require.NoError(t, err)

	var res problem.TSPResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, 2, res.Tour[0])
	assert.Equal(t, 2, res.Tour[len(res.Tour)-1])
	assert.InDelta(t, 4, res.Length, 1e-12)

	_, err = execute(t, `{"points":[{"x":0,"y":0},{"x":1,"y":0}]}`, "tsp", "--metric", "manhattan")
	assert.Error(t, err)
}

func TestAssign(t *testing.T) {
	out, err := execute(t, `{"costs":[[1,2,3],[2,1,3],[3,3,1]]}`, "assign")
	require.NoError(t, err)

	var res problem.AssignmentResult
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, []int{0, 1, 2}, res.Columns)
	assert.Equal(t, 3.0, res.Total)

	out, err = execute(t, `{"costs":[[5,5],[5,5]]}`, "assign", "--sentinel", "5")
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.False(t, res.Feasible)
}
