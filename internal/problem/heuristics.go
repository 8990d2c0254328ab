package problem

import (
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/curiousTauseef/anyprog/internal/optimization"
	"github.com/curiousTauseef/anyprog/internal/optimization/assignment"
	"github.com/curiousTauseef/anyprog/internal/optimization/tsp"
)

// Metrics understood by TSPRequest.
const (
	MetricEuclidean = "euclidean"
	MetricGeodesic  = "geodesic"
)

// AssignmentRequest is a square cost matrix to assign.
type AssignmentRequest struct {
	Costs    [][]float64 `json:"costs"`
	Sentinel float64     `json:"sentinel,omitempty"`
}

// AssignmentResult is the outcome of an AssignmentRequest.
type AssignmentResult struct {
	Pairs    []assignment.Pair `json:"pairs"`
	Columns  []int             `json:"columns"`
	Total    float64           `json:"total"`
	Feasible bool              `json:"feasible"`
}

// TSPRequest is a tour request given either as a distance matrix or as points
// measured with Metric.
type TSPRequest struct {
	Distances [][]float64 `json:"distances,omitempty"`
	Points    []tsp.Point `json:"points,omitempty"`
	Metric    string      `json:"metric,omitempty"`
	Unit      float64     `json:"unit,omitempty"`
	Start     int         `json:"start"`
	Sentinel  float64     `json:"sentinel,omitempty"`
}

// TSPResult is the outcome of a TSPRequest.
type TSPResult struct {
	Tour     []int   `json:"tour"`
	Length   float64 `json:"length"`
	Feasible bool    `json:"feasible"`
}

func squareMatrix(component string, a [][]float64) (*mat.Dense, error) {
	if len(a) == 0 {
		return nil, optimization.WrapError(optimization.ErrEmptyProblem, "matrix").
			WithComponent(component).WithOperation("validate")
	}
	for i, row := range a {
		if len(row) != len(a) {
			return nil, optimization.WrapErrorf(optimization.ErrNonSquare, "row %d has %d columns, want %d", i, len(row), len(a)).
				WithComponent(component).WithOperation("validate")
		}
	}
	return dense(a), nil
}

// Solve runs the assignment heuristic.
func (s *AssignmentRequest) Solve() (*AssignmentResult, error) {
	c, err := squareMatrix("assignment", s.Costs)
	if err != nil {
		return nil, err
	}
	a, err := assignment.New(c, s.Sentinel)
	if err != nil {
		return nil, err
	}
	return &AssignmentResult{
		Pairs:    a.Solve(),
		Columns:  a.Columns(),
		Total:    a.Obj(),
		Feasible: a.Feasible(),
	}, nil
}

func (s *TSPRequest) metric() (tsp.Metric, error) {
	switch strings.ToLower(s.Metric) {
	case "", MetricEuclidean:
		return tsp.Euclidean, nil
	case MetricGeodesic:
		return tsp.Geodesic(s.Unit), nil
	default:
		return nil, optimization.NewErrorf("unknown metric %q", s.Metric).
			WithComponent("tsp").WithOperation("validate")
	}
}

// Matrix returns the distance matrix of the definition.
func (s *TSPRequest) Matrix() (*mat.Dense, error) {
	switch {
	case len(s.Distances) > 0 && len(s.Points) > 0:
		return nil, optimization.NewError("distances and points are exclusive").
			WithComponent("tsp").WithOperation("validate")
	case len(s.Points) > 0:
		m, err := s.metric()
		if err != nil {
			return nil, err
		}
		return tsp.Distance(s.Points, m, s.Sentinel), nil
	default:
		return squareMatrix("tsp", s.Distances)
	}
}

// Solve runs the nearest neighbour tour heuristic.
func (s *TSPRequest) Solve() (*TSPResult, error) {
	d, err := s.Matrix()
	if err != nil {
		return nil, err
	}
	t, err := tsp.New(d, s.Start, s.Sentinel)
	if err != nil {
		return nil, err
	}
	return &TSPResult{
		Tour:     t.Solve(),
		Length:   t.Obj(),
		Feasible: t.Feasible(),
	}, nil
}
