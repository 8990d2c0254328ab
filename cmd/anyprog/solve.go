package main

import (
	"context"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/curiousTauseef/anyprog/internal/optimization/constrained"
	"github.com/curiousTauseef/anyprog/internal/optimization/nlp"
	"github.com/curiousTauseef/anyprog/internal/problem"
)

func newSolveCmd(root *rootOptions) *cobra.Command {
	var (
		method  string
		mode    string
		seed    int64
		timeout time.Duration
		history bool
	)
	cmd := &cobra.Command{
		Use:   "solve [problem.json]",
		Short: "Solve or search a constrained optimization problem",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var def problem.Definition
			if err := readInput(cmd, args, &def); err != nil {
				return err
			}
			if method != "" {
				def.Method = method
			}
			if mode != "" {
				def.Mode = mode
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			if timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, timeout)
				defer cancel()
			}

			cfg := constrained.DefaultConfig()
			cfg.Seed = seed
			cfg.Logger = root.zap()

			start := time.Now()
			res, err := problem.Run(ctx, &def, cfg)
			if res == nil {
				return err
			}
			root.logger.Info("Optimization finished", map[string]interface{}{
				"ok":       res.OK,
				"value":    res.Value,
				"duration": time.Since(start).String(),
			})
			if err != nil {
				root.logger.Warn("Optimization interrupted", map[string]interface{}{"error": err.Error()})
			}
			if !history {
				res.History = nil
			}
			if werr := writeOutput(cmd, res); werr != nil {
				return werr
			}
			return err
		},
	}
	cmd.Flags().StringVar(&method, "method", "", "Solver method, overriding the problem ("+methodNames()+")")
	cmd.Flags().StringVar(&mode, "mode", "", "solve or search, overriding the problem")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed (0 seeds from the clock)")
	cmd.Flags().DurationVar(&timeout, "timeout", 0, "Stop after this long and report the best point so far")
	cmd.Flags().BoolVar(&history, "history", false, "Include the search history in the output")
	return cmd
}

func methodNames() string {
	names := make([]string, 0, len(nlp.Methods()))
	for _, m := range nlp.Methods() {
		names = append(names, m.String())
	}
	return strings.Join(names, ", ")
}
