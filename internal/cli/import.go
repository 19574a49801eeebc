package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/verbflow/verbflow/internal/engine"
	"github.com/verbflow/verbflow/internal/ingest"
	"github.com/verbflow/verbflow/internal/repository"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import <entity-type> <workbook.xlsx>",
		Short: "Ingest entity rows from an xlsx workbook through the create lifecycle",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(rootOpts)
			if err != nil {
				return err
			}
			payload, err := os.ReadFile(args[1])
			if err != nil {
				return fmt.Errorf("failed to read workbook: %w", err)
			}
			ctx := scopedContext(cmd, cfg)
			conn, err := connect(ctx, cfg)
			if err != nil {
				return err
			}
			defer conn.Close()

			events := repository.NewEventArchive(conn.Pool, cfg.Tenant)
			entities := repository.NewEntityArchive(conn.Pool, cfg.Tenant)

			eng := engine.New(cfg.Tenant, nil, engine.WithArchiver(events))
			res, err := ingest.NewService(eng).Workbook(args[0], payload)
			if err != nil {
				return err
			}

			for _, inst := range eng.Find(args[0], nil) {
				if err := entities.Save(ctx, inst); err != nil {
					return err
				}
			}

			fmt.Fprintf(cmd.OutOrStdout(), "created %d entities\n", res.Created)
			for _, rowErr := range res.Errors {
				fmt.Fprintf(cmd.ErrOrStderr(), "skipped %v\n", rowErr)
			}
			return nil
		},
	}
	return cmd
}
