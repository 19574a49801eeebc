// Package export writes entity pages and lifecycle histories to xlsx
// workbooks for offline review.
package export

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/xuri/excelize/v2"

	"github.com/verbflow/verbflow/internal/domain"
	"github.com/verbflow/verbflow/internal/query"
)

const defaultPageSize = 500

// Searcher is the read surface exports page through.
type Searcher interface {
	Search(p query.Params) query.Result
}

// Historian yields the ordered lifecycle record of one entity.
type Historian interface {
	History(entityType, id string) []domain.LifecycleEvent
}

// Service writes export workbooks into a target directory.
type Service struct {
	exportDir string
	pageSize  int
}

// Option customizes the export service.
type Option func(*Service)

// WithDirectory sets where workbooks are written.
func WithDirectory(dir string) Option {
	return func(s *Service) {
		if dir != "" {
			s.exportDir = dir
		}
	}
}

// WithPageSize sets how many entities each search page fetches.
func WithPageSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// NewService creates an export service.
func NewService(opts ...Option) *Service {
	s := &Service{exportDir: "exports", pageSize: defaultPageSize}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Entities pages through every instance of the type and writes one workbook.
// It returns the written file path.
func (s *Service) Entities(source Searcher, entityType string, filter map[string]any) (string, error) {
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	var instances []domain.EntityInstance
	cursor := ""
	for {
		res := source.Search(query.Params{
			EntityType: entityType,
			Filter:     filter,
			Limit:      s.pageSize,
			Cursor:     cursor,
		})
		instances = append(instances, res.Items...)
		if res.NextCursor == "" {
			break
		}
		cursor = res.NextCursor
	}

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	fieldKeys := collectFieldKeys(instances)
	headers := append([]any{}, fixedHeaders...)
	for _, key := range fieldKeys {
		headers = append(headers, key)
	}
	if err := writeRow(f, sheet, 1, headers); err != nil {
		return "", err
	}
	for i, inst := range instances {
		row := make([]any, 0, len(headers))
		row = append(row, inst.ID, inst.Version, inst.CreatedAt.Format(time.RFC3339), inst.UpdatedAt.Format(time.RFC3339))
		for _, key := range fieldKeys {
			row = append(row, renderCell(inst.Fields[key]))
		}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return "", err
		}
	}

	path := filepath.Join(s.exportDir, fmt.Sprintf("%s-%s.xlsx", entityType, uuid.NewString()))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save export: %w", err)
	}
	return path, nil
}

// History writes one entity's lifecycle record, one event per row with a
// change summary derived from the before and after snapshots.
func (s *Service) History(source Historian, entityType, id string) (string, error) {
	if err := os.MkdirAll(s.exportDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create export directory: %w", err)
	}

	events := source.History(entityType, id)

	f := excelize.NewFile()
	defer f.Close()

	sheet := f.GetSheetName(0)
	if err := writeRow(f, sheet, 1, []any{"sequence", "event", "verb", "timestamp", "changes"}); err != nil {
		return "", err
	}
	for i, ev := range events {
		changes := domain.DiffSnapshots(ev.Before, ev.After)
		row := []any{ev.Sequence, ev.QualifiedType, ev.Verb, ev.Timestamp.Format(time.RFC3339), changes.String()}
		if err := writeRow(f, sheet, i+2, row); err != nil {
			return "", err
		}
	}

	path := filepath.Join(s.exportDir, fmt.Sprintf("%s-%s-history.xlsx", entityType, id))
	if err := f.SaveAs(path); err != nil {
		return "", fmt.Errorf("failed to save history export: %w", err)
	}
	return path, nil
}

var fixedHeaders = []any{"id", "version", "createdAt", "updatedAt"}

func collectFieldKeys(instances []domain.EntityInstance) []string {
	seen := map[string]bool{}
	for _, inst := range instances {
		for key := range inst.Fields {
			seen[key] = true
		}
	}
	keys := make([]string, 0, len(seen))
	for key := range seen {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func writeRow(f *excelize.File, sheet string, row int, values []any) error {
	for col, value := range values {
		cell, err := excelize.CoordinatesToCellName(col+1, row)
		if err != nil {
			return fmt.Errorf("failed to address cell: %w", err)
		}
		if err := f.SetCellValue(sheet, cell, value); err != nil {
			return fmt.Errorf("failed to write cell %s: %w", cell, err)
		}
	}
	return nil
}

func renderCell(value any) any {
	switch value.(type) {
	case nil:
		return ""
	case string, bool, int, int64, float64, float32:
		return value
	}
	return fmt.Sprint(value)
}
