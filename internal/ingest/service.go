// Package ingest loads entity rows from xlsx workbooks and feeds them
// through the create lifecycle.
package ingest

import (
	"bytes"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/verbflow/verbflow/internal/domain"
)

// Creator runs one row through the create lifecycle. The engine satisfies it.
type Creator interface {
	Create(entityType string, data map[string]any) (domain.EntityInstance, error)
}

// RowError records one failed row; the surrounding batch continues.
type RowError struct {
	Row int
	Err error
}

func (e RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

// Result summarizes one ingested workbook.
type Result struct {
	Created int
	Errors  []RowError
}

// Service ingests workbooks into an entity type.
type Service struct {
	creator Creator
}

// NewService creates an ingest service writing through the given creator.
func NewService(creator Creator) *Service {
	return &Service{creator: creator}
}

// Workbook ingests the first sheet of an xlsx payload. The first non-empty
// row is the header; each following row becomes one create request. A failed
// row is recorded and the batch continues.
func (s *Service) Workbook(entityType string, payload []byte) (Result, error) {
	f, err := excelize.OpenReader(bytes.NewReader(payload))
	if err != nil {
		return Result{}, fmt.Errorf("failed to open xlsx: %w", err)
	}
	defer func() { _ = f.Close() }()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return Result{}, errors.New("workbook has no sheets")
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return Result{}, fmt.Errorf("failed to read rows: %w", err)
	}

	return s.ingestRows(entityType, rows)
}

func (s *Service) ingestRows(entityType string, rows [][]string) (Result, error) {
	var headers []string
	headerIndex := -1
	for idx, row := range rows {
		if rowEmpty(row) {
			continue
		}
		headers = sanitizeHeaders(row)
		headerIndex = idx
		break
	}
	if headers == nil {
		return Result{}, errors.New("header row could not be detected")
	}

	result := Result{}
	for idx := headerIndex + 1; idx < len(rows); idx++ {
		row := rows[idx]
		if rowEmpty(row) {
			continue
		}
		data := rowToFields(headers, row)
		if _, err := s.creator.Create(entityType, data); err != nil {
			result.Errors = append(result.Errors, RowError{Row: idx + 1, Err: err})
			continue
		}
		result.Created++
	}
	return result, nil
}

func sanitizeHeaders(row []string) []string {
	headers := make([]string, len(row))
	for i, value := range row {
		headers[i] = strings.TrimSpace(value)
	}
	return headers
}

func rowEmpty(row []string) bool {
	for _, value := range row {
		if strings.TrimSpace(value) != "" {
			return false
		}
	}
	return true
}

// rowToFields maps one data row onto the headers, coercing obvious numbers
// and booleans. Blank cells are omitted.
func rowToFields(headers []string, row []string) map[string]any {
	fields := make(map[string]any, len(headers))
	for i, header := range headers {
		if header == "" || i >= len(row) {
			continue
		}
		value := strings.TrimSpace(row[i])
		if value == "" {
			continue
		}
		fields[header] = coerceValue(value)
	}
	return fields
}

func coerceValue(value string) any {
	if n, err := strconv.ParseInt(value, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(value, 64); err == nil {
		return f
	}
	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}
	return value
}
