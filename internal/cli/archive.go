package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verbflow/verbflow/internal/domain"
	"github.com/verbflow/verbflow/internal/repository"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history <entity-type> <entity-id>",
		Short: "Print the archived lifecycle record of one entity",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			ctx := scopedContext(cmd, cfg)
			conn, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			events := repository.NewEventArchive(conn.Pool, cfg.Tenant)
			history, err := events.History(ctx, args[0], args[1])
			if err != nil {
				return err
			}

			for _, ev := range history {
				changes := domain.DiffSnapshots(ev.Before, ev.After)
				fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\n", ev.Sequence, ev.QualifiedType, ev.Timestamp.Format("2006-01-02 15:04:05"))
				if !changes.Empty() {
					fmt.Fprintln(cmd.OutOrStdout(), changes.String())
				}
			}
			return nil
		},
	}
	return cmd
}

// NewAsOfCommand creates the asof command.
func NewAsOfCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "asof <entity-type> <entity-id> <timestamp>",
		Short: "Reconstruct an entity's state at a past instant",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			ctx := scopedContext(cmd, cfg)
			conn, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			events := repository.NewEventArchive(conn.Pool, cfg.Tenant)
			l, err := replayArchive(ctx, events, domain.EventFilter{EntityType: args[0], EntityID: args[1]})
			if err != nil {
				return err
			}

			state, err := l.AsOf(args[0], args[1], args[2])
			if err != nil {
				return err
			}
			return printJSON(cmd, state)
		},
	}
	return cmd
}

// NewSnapshotCommand creates the snapshot command.
func NewSnapshotCommand(rootOpts *RootOptions) *cobra.Command {
	var entityType string

	cmd := &cobra.Command{
		Use:   "snapshot",
		Short: "Print the latest state of every archived entity",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			ctx := scopedContext(cmd, cfg)
			conn, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			events := repository.NewEventArchive(conn.Pool, cfg.Tenant)
			l, err := replayArchive(ctx, events, domain.EventFilter{EntityType: entityType})
			if err != nil {
				return err
			}
			return printJSON(cmd, l.Snapshot())
		},
	}

	cmd.Flags().StringVar(&entityType, "type", "", "restrict the snapshot to one entity type")
	return cmd
}
