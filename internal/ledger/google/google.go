// Package google implements the ledger port on top of the Google Sheets v4
// API using service-account credentials.
package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/GeniusFinance/house-gerencer/internal/ledger"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

type Client struct {
	svc *gsheet.Service
}

var _ ledger.Ledger = (*Client)(nil)

// NewFromEnv creates a Sheets-backed ledger client. Credentials come from
// GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or the standard
// GOOGLE_APPLICATION_CREDENTIALS file path, in that order.
func NewFromEnv(ctx context.Context) (*Client, error) {
	svc, err := newSheetsService(ctx)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{svc: svc}, nil
}

func newSheetsService(ctx context.Context) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_JSON"))
	serviceAccountFile := strings.TrimSpace(os.Getenv("GOOGLE_SERVICE_ACCOUNT_FILE"))
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var credentialsJSON []byte
	var err error
	switch {
	case serviceAccountJSON != "":
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// Fetch reads the source range, using its first row as the header.
func (c *Client) Fetch(ctx context.Context, src ledger.Source) ([]map[string]string, error) {
	if err := src.Validate(); err != nil {
		return nil, err
	}
	if c.svc == nil {
		return nil, errors.New("sheets service not initialized")
	}
	resp, err := c.svc.Spreadsheets.Values.Get(src.SpreadsheetID, src.Range).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", src.Range, err)
	}
	if len(resp.Values) == 0 {
		return nil, nil
	}
	header := toStrings(resp.Values[0])
	rows := make([]map[string]string, 0, len(resp.Values)-1)
	for _, raw := range resp.Values[1:] {
		cols := toStrings(raw)
		row := make(map[string]string, len(header))
		for i, name := range header {
			if name == "" {
				continue
			}
			if i < len(cols) {
				row[name] = cols[i]
			} else {
				row[name] = ""
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Append inserts row after the existing data, never overwriting.
func (c *Client) Append(ctx context.Context, src ledger.Source, row []string) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	values := make([]any, len(row))
	for i, v := range row {
		values[i] = v
	}
	vr := &gsheet.ValueRange{Values: [][]any{values}}
	_, err := c.svc.Spreadsheets.Values.Append(src.SpreadsheetID, src.Range, vr).
		ValueInputOption("USER_ENTERED").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("append to %s: %w", src.Range, err)
	}
	return nil
}

// UpdateCell writes a single cell addressed by 1-based row (header included)
// and 0-based column.
func (c *Client) UpdateCell(ctx context.Context, src ledger.Source, rowIndex, columnIndex int, value string) error {
	if err := src.Validate(); err != nil {
		return err
	}
	if c.svc == nil {
		return errors.New("sheets service not initialized")
	}
	cell := fmt.Sprintf("%s!%s%d", src.SheetName, ColumnLetter(columnIndex), rowIndex)
	vr := &gsheet.ValueRange{Values: [][]any{{value}}}
	_, err := c.svc.Spreadsheets.Values.Update(src.SpreadsheetID, cell, vr).
		ValueInputOption("USER_ENTERED").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("update %s: %w", cell, err)
	}
	return nil
}

// FindRowByKey scans the range for a row whose code column matches key.
func (c *Client) FindRowByKey(ctx context.Context, src ledger.Source, key string) (int, error) {
	rows, err := c.Fetch(ctx, src)
	if err != nil {
		return 0, err
	}
	idx := ledger.RowIndexByKey(rows, key)
	if idx == 0 {
		slog.DebugContext(ctx, "Key not found in sheet", "key", key, "range", src.Range)
		return 0, fmt.Errorf("%w: %q", ledger.ErrRowNotFound, key)
	}
	return idx, nil
}

// ColumnLetter converts a 0-based column index to its A1 notation letters.
func ColumnLetter(index int) string {
	letters := ""
	for index >= 0 {
		letters = string(rune('A'+index%26)) + letters
		index = index/26 - 1
	}
	return letters
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}
