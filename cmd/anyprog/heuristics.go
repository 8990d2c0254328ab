package main

import (
	"github.com/spf13/cobra"

	"github.com/curiousTauseef/anyprog/internal/problem"
)

func newTSPCmd(root *rootOptions) *cobra.Command {
	var (
		metric string
		unit   float64
		start  int
	)
	cmd := &cobra.Command{
		Use:   "tsp [tour.json]",
		Short: "Build a nearest neighbour tour",
		Long: `Reads {"distances": [[...]]} or {"points": [{"x":..,"y":..}]} and prints
the closed tour and its length. Geodesic points are latitude (x) and
longitude (y) in degrees.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req problem.TSPRequest
			if err := readInput(cmd, args, &req); err != nil {
				return err
			}
			if cmd.Flags().Changed("metric") {
				req.Metric = metric
			}
			if cmd.Flags().Changed("unit") {
				req.Unit = unit
			}
			if cmd.Flags().Changed("start") {
				req.Start = start
			}
			res, err := req.Solve()
			if err != nil {
				return err
			}
			if !res.Feasible {
				root.logger.Warn("Tour uses an unreachable edge", map[string]interface{}{"length": res.Length})
			}
			return writeOutput(cmd, res)
		},
	}
	cmd.Flags().StringVar(&metric, "metric", problem.MetricEuclidean, "Point metric (euclidean, geodesic)")
	cmd.Flags().Float64Var(&unit, "unit", 1e3, "Geodesic unit in metres")
	cmd.Flags().IntVar(&start, "start", 0, "Start node")
	return cmd
}

func newAssignCmd(root *rootOptions) *cobra.Command {
	var sentinel float64
	cmd := &cobra.Command{
		Use:   "assign [costs.json]",
		Short: "Assign rows to columns greedily",
		Long:  `Reads {"costs": [[...]]} and prints the assignment and its total cost.`,
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var req problem.AssignmentRequest
			if err := readInput(cmd, args, &req); err != nil {
				return err
			}
			if cmd.Flags().Changed("sentinel") {
				req.Sentinel = sentinel
			}
			res, err := req.Solve()
			if err != nil {
				return err
			}
			if !res.Feasible {
				root.logger.Warn("No feasible assignment found")
			}
			return writeOutput(cmd, res)
		},
	}
	cmd.Flags().Float64Var(&sentinel, "sentinel", 0, "Costs at or above this value are forbidden")
	return cmd
}
