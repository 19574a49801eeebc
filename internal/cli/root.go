// Package cli implements the verbflow command line for offline archive
// tooling: migrations, history inspection, time travel, export and import.
package cli

import (
	"context"
	"fmt"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"

	"github.com/verbflow/verbflow/internal/config"
	"github.com/verbflow/verbflow/internal/db"
	"github.com/verbflow/verbflow/internal/domain"
	"github.com/verbflow/verbflow/internal/eventlog"
	"github.com/verbflow/verbflow/internal/repository"
	"github.com/verbflow/verbflow/internal/tenant"
)

var cliJSON = jsoniter.ConfigCompatibleWithStandardLibrary

// RootOptions holds global flags shared by all commands.
type RootOptions struct {
	ConfigPath string
	Tenant     string
}

// NewRootCommand creates the root verbflow command.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "verbflow",
		Short: "Entity lifecycle engine tooling",
		Long:  "Inspect, export and import the durable archive behind the verbflow engine.",
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", ".", "directory containing config.yaml")
	cmd.PersistentFlags().StringVar(&opts.Tenant, "tenant", "", "tenant context (overrides config)")

	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))
	cmd.AddCommand(NewAsOfCommand(opts))
	cmd.AddCommand(NewSnapshotCommand(opts))
	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))

	return cmd
}

// loadConfig reads config.yaml and applies the tenant override flag.
func loadConfig(opts *RootOptions) (config.Config, error) {
	cfg, err := config.Load(opts.ConfigPath)
	if err != nil {
		return config.Config{}, err
	}
	if opts.Tenant != "" {
		cfg.Tenant = opts.Tenant
	}
	return cfg, nil
}

// scopedContext stamps the command context with the configured tenant so the
// archive repositories can enforce their scope.
func scopedContext(cmd *cobra.Command, cfg config.Config) context.Context {
	return tenant.WithContext(cmd.Context(), cfg.Tenant)
}

// connect opens the archive database described by the config.
func connect(ctx context.Context, cfg config.Config) (*db.Connection, error) {
	conn, err := db.NewConnection(ctx, cfg.Database)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to archive: %w", err)
	}
	return conn, nil
}

// replayArchive loads archived events for the tenant into a fresh in-memory
// log, preserving archive order.
func replayArchive(ctx context.Context, events repository.EventRepository, filter domain.EventFilter) (*eventlog.Log, error) {
	archived, err := events.List(ctx, filter)
	if err != nil {
		return nil, err
	}
	l := eventlog.New()
	for _, ev := range archived {
		l.Append(ev)
	}
	return l, nil
}

func printJSON(cmd *cobra.Command, value any) error {
	payload, err := cliJSON.MarshalIndent(value, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to render output: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(payload))
	return nil
}
