package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrRowNotFound is returned by FindRowByKey when no row carries the key.
	// Callers treat it as a soft failure: report the missing key, keep going.
	ErrRowNotFound = errors.New("no row matches key")

	// ErrMissingConfig marks an operation attempted against an incomplete
	// ledger source. Fatal for the operation, never retried.
	ErrMissingConfig = errors.New("ledger source configuration missing")
)

// Source identifies one tabular range in the ledger store plus the column
// that carries the settlement marker. It is passed explicitly to every
// collaborator at construction time; nothing reads ambient globals.
type Source struct {
	SpreadsheetID    string
	Range            string // e.g. "credit!A:K"; the first row is the header
	SheetName        string // sheet (tab) name for point updates
	SettlementColumn int    // 0-based column index of the settlement marker
}

func (s Source) Validate() error {
	if s.SpreadsheetID == "" {
		return fmt.Errorf("%w: spreadsheet id", ErrMissingConfig)
	}
	if s.Range == "" {
		return fmt.Errorf("%w: range", ErrMissingConfig)
	}
	return nil
}

// Ledger is the outbound port to the spreadsheet-backed store. The store has
// no transactions and no compare-and-swap; every mutation is an independent
// idempotent-intent command (append-only rows, point cell updates).
type Ledger interface {
	// Fetch reads the range and returns one map per data row, keyed by the
	// header row's column names. Missing cells are empty strings.
	Fetch(ctx context.Context, src Source) ([]map[string]string, error)

	// Append adds row as a new row at the end of the range, never
	// overwriting existing data.
	Append(ctx context.Context, src Source, row []string) error

	// UpdateCell writes value into a single cell. rowIndex is 1-based and
	// includes the header row; columnIndex is 0-based.
	UpdateCell(ctx context.Context, src Source, rowIndex, columnIndex int, value string) error

	// FindRowByKey locates the row whose code column matches key,
	// case-insensitively after trimming, and returns its 1-based index
	// (header included). Returns ErrRowNotFound when absent.
	FindRowByKey(ctx context.Context, src Source, key string) (int, error)
}

// codeKeys are the candidate header names for the relation-key column.
var codeKeys = []string{"code", "codigo"}

// RowIndexByKey scans fetched rows for the first one whose code column
// equals key, trimmed and case-insensitive, and returns its 1-based sheet
// row. The +2 accounts for the header row and 1-based indexing. Returns 0
// when no row matches.
func RowIndexByKey(rows []map[string]string, key string) int {
	key = strings.ToLower(strings.TrimSpace(key))
	if key == "" {
		return 0
	}
	for i, row := range rows {
		for _, k := range codeKeys {
			code := strings.TrimSpace(row[k])
			if code != "" && strings.ToLower(code) == key {
				return i + 2
			}
		}
	}
	return 0
}
