package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/service"
	"github.com/spf13/cobra"
)

// MigrateApplyOptions holds flags for migrate apply.
type MigrateApplyOptions struct {
	*RootOptions
	BadDay string
	NewDay string
}

// NewMigrateCommand creates the migrate command group.
func NewMigrateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Migrate legacy client order data into order configurations",
	}
	cmd.AddCommand(newMigrateCandidatesCommand(rootOpts))
	cmd.AddCommand(newMigrateApplyCommand(rootOpts))
	return cmd
}

func newMigrateCandidatesCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "candidates",
		Short: "List clients with legacy data and no saved configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			b, closeFn, err := rootOpts.backend(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			candidates, err := b.Migrator.GetMigrationCandidates(ctx)
			if err != nil {
				return WrapExitError(ExitCommandError, "list candidates", err)
			}

			out := cmd.OutOrStdout()
			if rootOpts.Format == "json" {
				if candidates == nil {
					candidates = []service.MigrationCandidate{}
				}
				return writeJSON(out, candidates)
			}

			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "CLIENT\tNAME\tTYPE\tSTATUS\tMESSAGE")
			for _, c := range candidates {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n", c.ClientID, c.ClientName, c.ServiceType, c.Validation.Status, c.Validation.Message)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d candidates\n", len(candidates))
			return nil
		},
	}
}

func newMigrateApplyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &MigrateApplyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "apply <client-id>",
		Short: "Migrate one client's legacy data",
		Long: `Merge the client's legacy order sources into a configuration and save it.

Use --bad-day and --new-day together to move selections off a delivery day
the vendor does not serve.

Examples:
  deliveryctl migrate apply 3f2a...
  deliveryctl migrate apply 3f2a... --bad-day Friday --new-day Monday`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			clientID, err := uuid.Parse(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "invalid client id", err)
			}
			if (opts.BadDay == "") != (opts.NewDay == "") {
				return NewExitError(ExitCommandError, "--bad-day and --new-day must be given together")
			}
			var rename *service.DayRename
			if opts.BadDay != "" {
				rename = &service.DayRename{BadDay: opts.BadDay, NewDay: opts.NewDay}
			}

			ctx := cmd.Context()
			b, closeFn, err := rootOpts.backend(ctx)
			if err != nil {
				return err
			}
			defer closeFn()

			result, err := b.Migrator.ApplyMigration(ctx, clientID, rename, opts.Actor)
			if err != nil {
				return WrapExitError(ExitFailure, "apply migration", err)
			}

			out := cmd.OutOrStdout()
			if opts.Format == "json" {
				return writeJSON(out, map[string]interface{}{
					"client_id":         clientID,
					"order_config":      result.Config,
					"scheduled_orders":  len(result.Headers),
					"removed_schedules": result.Removed,
				})
			}
			fmt.Fprintf(out, "Migrated client %s: %d scheduled orders saved, %d removed\n", clientID, len(result.Headers), result.Removed)
			return nil
		},
	}

	cmd.Flags().StringVar(&opts.BadDay, "bad-day", "", "delivery day to replace")
	cmd.Flags().StringVar(&opts.NewDay, "new-day", "", "replacement delivery day")

	return cmd
}
