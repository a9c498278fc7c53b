package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewSweepCommand creates the sweep command.
func NewSweepCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Place every due scheduled order",
		Long: `Promote scheduled orders whose take-effect date has arrived into placed
orders, one creation batch per run.

Exit codes:
  0 - every due order was placed
  1 - some orders failed (listed in the output)
  2 - command error`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, closeFn, err := rootOpts.backend(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := b.Sweeper.RunSweep(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "sweep", err)
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				if result.Errors == nil {
					result.Errors = []string{}
				}
				if err := writeJSON(out, result); err != nil {
					return err
				}
			} else {
				fmt.Fprintf(out, "Placed %d orders", result.ProcessedCount)
				if result.BatchID != 0 {
					fmt.Fprintf(out, " in batch %d", result.BatchID)
				}
				fmt.Fprintln(out)
				for _, e := range result.Errors {
					fmt.Fprintf(out, "  error: %s\n", e)
				}
			}

			if len(result.Errors) > 0 {
				return NewExitError(ExitFailure, fmt.Sprintf("%d orders failed", len(result.Errors)))
			}
			return nil
		},
	}
}
