package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/verbflow/verbflow/internal/domain"
	"github.com/verbflow/verbflow/internal/export"
	"github.com/verbflow/verbflow/internal/query"
	"github.com/verbflow/verbflow/internal/repository"
)

// archiveSource adapts archived entity snapshots to the query read surface.
type archiveSource struct {
	instances []domain.EntityInstance
}

func (s archiveSource) Get(entityType, id string) (domain.EntityInstance, bool) {
	for _, inst := range s.instances {
		if inst.Type == entityType && inst.ID == id {
			return inst, true
		}
	}
	return domain.EntityInstance{}, false
}

func (s archiveSource) Find(entityType string, filter map[string]any) []domain.EntityInstance {
	var out []domain.EntityInstance
	for _, inst := range s.instances {
		if inst.Type == entityType && inst.MatchesFilter(filter) {
			out = append(out, inst)
		}
	}
	return out
}

func (s archiveSource) All() []domain.EntityInstance {
	return s.instances
}

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var outDir string

	cmd := &cobra.Command{
		Use:   "export <entity-type>",
		Short: "Write archived entities of one type to an xlsx workbook",
		Args:  cobra.ExactArgs(1),
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

			entities := repository.NewEntityArchive(conn.Pool, cfg.Tenant)
			instances, err := entities.ListByType(ctx, args[0])
			if err != nil {
				return err
			}

			dir := cfg.ExportDir
			if outDir != "" {
				dir = outDir
			}
			svc := export.NewService(export.WithDirectory(dir))
			path, err := svc.Entities(query.NewService(archiveSource{instances: instances}, nil), args[0], nil)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "exported %d entities to %s\n", len(instances), path)
			return nil
		},
	}

	cmd.Flags().StringVar(&outDir, "out", "", "output directory (overrides config)")
	return cmd
}
