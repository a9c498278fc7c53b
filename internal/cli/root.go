// Package cli implements deliveryctl, the operator tool for running the
// lifecycle sweep and the legacy order data migration outside HTTP.
package cli

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/homedeliver/api/internal/service"
	"github.com/spf13/cobra"
)

// Sweeper runs the scheduled-to-placed promotion.
// Satisfied by *service.LifecycleProcessor.
type Sweeper interface {
	RunSweep(ctx context.Context) (*service.SweepResult, error)
}

// Migrator reads and applies legacy order data migrations.
// Satisfied by *service.MigrationService.
type Migrator interface {
	GetMigrationCandidates(ctx context.Context) ([]service.MigrationCandidate, error)
	ApplyMigration(ctx context.Context, clientID uuid.UUID, rename *service.DayRename, actor string) (*service.SaveResult, error)
}

// Backend is what commands need from the service layer.
type Backend struct {
	Sweeper  Sweeper
	Migrator Migrator
}

// ConnectFunc opens a Backend. The returned func releases it.
type ConnectFunc func(ctx context.Context) (*Backend, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Format  string // "json" | "text"
	Actor   string
	connect ConnectFunc
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for deliveryctl.
func NewRootCommand(connect ConnectFunc) *cobra.Command {
	opts := &RootOptions{connect: connect}

	cmd := &cobra.Command{
		Use:   "deliveryctl",
		Short: "Operate the home delivery order pipeline",
		Long:  "Run the order lifecycle sweep and migrate legacy client order data.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.Actor, "actor", "deliveryctl", "name recorded as last_updated_by")

	cmd.AddCommand(NewSweepCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))

	return cmd
}

func (o *RootOptions) backend(ctx context.Context) (*Backend, func(), error) {
	b, closeFn, err := o.connect(ctx)
	if err != nil {
		return nil, nil, WrapExitError(ExitCommandError, "connect", err)
	}
	return b, closeFn, nil
}

func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
