// Package memory implements the ledger port in process memory. It backs
// tests and the default development backend, the same way a ledger
// spreadsheet would: one header row plus data rows per spreadsheet ID.
package memory

import (
	"context"
	"fmt"
	"sync"

	"github.com/GeniusFinance/house-gerencer/internal/ledger"
)

type table struct {
	header []string
	rows   [][]string
}

type Store struct {
	mu     sync.Mutex
	tables map[string]*table // keyed by spreadsheet ID
}

var _ ledger.Ledger = (*Store)(nil)

func New() *Store {
	return &Store{tables: make(map[string]*table)}
}

// Seed installs a header and data rows for the source's spreadsheet,
// replacing whatever was there.
func (s *Store) Seed(src ledger.Source, header []string, rows [][]string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copied := make([][]string, len(rows))
	for i, r := range rows {
		copied[i] = append([]string(nil), r...)
	}
	s.tables[src.SpreadsheetID] = &table{
		header: append([]string(nil), header...),
		rows:   copied,
	}
}

func (s *Store) Fetch(_ context.Context, src ledger.Source) ([]map[string]string, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[src.SpreadsheetID]
	if !ok {
		return nil, nil
	}
	out := make([]map[string]string, 0, len(t.rows))
	for _, r := range t.rows {
		row := make(map[string]string, len(t.header))
		for i, name := range t.header {
			if name == "" {
				continue
			}
			if i < len(r) {
				row[name] = r[i]
			} else {
				row[name] = ""
			}
		}
		out = append(out, row)
	}
	return out, nil
}

func (s *Store) Append(_ context.Context, src ledger.Source, row []string) error {
	if err := src.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[src.SpreadsheetID]
	if !ok {
		t = &table{}
		s.tables[src.SpreadsheetID] = t
	}
	t.rows = append(t.rows, append([]string(nil), row...))
	return nil
}

func (s *Store) UpdateCell(_ context.Context, src ledger.Source, rowIndex, columnIndex int, value string) error {
	if err := src.Validate(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[src.SpreadsheetID]
	if !ok {
		return fmt.Errorf("unknown spreadsheet %q", src.SpreadsheetID)
	}
	// rowIndex is 1-based and counts the header row.
	i := rowIndex - 2
	if i < 0 || i >= len(t.rows) {
		return fmt.Errorf("row %d out of range", rowIndex)
	}
	for len(t.rows[i]) <= columnIndex {
		t.rows[i] = append(t.rows[i], "")
	}
	t.rows[i][columnIndex] = value
	return nil
}

func (s *Store) FindRowByKey(ctx context.Context, src ledger.Source, key string) (int, error) {
	rows, err := s.Fetch(ctx, src)
	if err != nil {
		return 0, err
	}
	idx := ledger.RowIndexByKey(rows, key)
	if idx == 0 {
		return 0, fmt.Errorf("%w: %q", ledger.ErrRowNotFound, key)
	}
	return idx, nil
}

// Cell returns the raw cell at the sheet coordinates UpdateCell uses,
// for assertions in tests.
func (s *Store) Cell(src ledger.Source, rowIndex, columnIndex int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[src.SpreadsheetID]
	if !ok {
		return "", false
	}
	i := rowIndex - 2
	if i < 0 || i >= len(t.rows) || columnIndex >= len(t.rows[i]) {
		return "", false
	}
	return t.rows[i][columnIndex], true
}

// RowCount reports the number of data rows for the source's spreadsheet.
func (s *Store) RowCount(src ledger.Source) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[src.SpreadsheetID]
	if !ok {
		return 0
	}
	return len(t.rows)
}

// LastRow returns the most recently appended data row.
func (s *Store) LastRow(src ledger.Source) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.tables[src.SpreadsheetID]
	if !ok || len(t.rows) == 0 {
		return nil
	}
	return append([]string(nil), t.rows[len(t.rows)-1]...)
}
