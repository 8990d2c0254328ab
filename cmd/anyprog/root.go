package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/curiousTauseef/anyprog/internal/logging"
)

type rootOptions struct {
	logLevel  string
	logFormat string
	logger    *logging.Logger
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	cmd := &cobra.Command{
		Use:   "anyprog",
		Short: "Constrained optimization from the command line",
		Long: `anyprog minimises objectives under equality, inequality and box
constraints, and solves assignment and travelling salesman problems
with greedy heuristics. Problems are read as JSON from a file or stdin.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			opts.logger = logging.New(logging.ParseLevel(opts.logLevel), cmd.ErrOrStderr())
			if opts.logFormat == string(logging.TextFormat) {
				opts.logger = opts.logger.WithFormat(logging.TextFormat)
			}
			return nil
		},
	}
	cmd.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format (json, text)")

	cmd.AddCommand(
		newSolveCmd(opts),
		newTSPCmd(opts),
		newAssignCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

// zap returns the optimizer logger bridged onto the command logger.
func (o *rootOptions) zap() *zap.Logger {
	if o.logger == nil {
		return zap.NewNop()
	}
	return logging.NewZapLogger(o.logger)
}

// readInput decodes JSON from the file named by args, or from stdin when
// args is empty or "-".
func readInput(cmd *cobra.Command, args []string, v interface{}) error {
	var r io.Reader = cmd.InOrStdin()
	if len(args) > 0 && args[0] != "-" {
		f, err := os.Open(args[0])
		if err != nil {
			return fmt.Errorf("failed to open input: %w", err)
		}
		defer f.Close()
		r = f
	}
	if err := json.NewDecoder(r).Decode(v); err != nil {
		return fmt.Errorf("failed to decode input: %w", err)
	}
	return nil
}

func writeOutput(cmd *cobra.Command, v interface{}) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
