package config

import (
	"strings"
	"testing"

	"github.com/GeniusFinance/house-gerencer/internal/ledger"
)

func validSheetsConfig() Config {
	return Config{
		Port:        "8081",
		DataBackend: "sheets",
		CreditSource: ledger.Source{
			SpreadsheetID:    "credit-id",
			Range:            "credit!A:K",
			SheetName:        "credit",
			SettlementColumn: 8,
		},
		ExpenseSource: ledger.Source{
			SpreadsheetID:    "credit-id",
			Range:            "Expense!A:I",
			SheetName:        "Expense",
			SettlementColumn: 7,
		},
		IncomeSource: ledger.Source{
			SpreadsheetID: "income-id",
			Range:         "income!A:K",
			SheetName:     "income",
		},
		ProofDir:     "./data/proofs",
		ProofBaseURL: "/uploads/proofs",
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		wantErr     bool
		errorString string
	}{
		{
			name:    "valid sheets backend config",
			mutate:  func(*Config) {},
			wantErr: false,
		},
		{
			name:        "invalid port - non-numeric",
			mutate:      func(c *Config) { c.Port = "abc" },
			wantErr:     true,
			errorString: "invalid port 'abc': must be a number",
		},
		{
			name:        "invalid port - out of range low",
			mutate:      func(c *Config) { c.Port = "0" },
			wantErr:     true,
			errorString: "invalid port 0: must be between 1 and 65535",
		},
		{
			name:        "invalid backend",
			mutate:      func(c *Config) { c.DataBackend = "postgres" },
			wantErr:     true,
			errorString: "invalid data backend 'postgres'",
		},
		{
			name:        "sheets backend requires credit spreadsheet id",
			mutate:      func(c *Config) { c.CreditSource.SpreadsheetID = "" },
			wantErr:     true,
			errorString: "credit source",
		},
		{
			name:        "sheets backend requires income range",
			mutate:      func(c *Config) { c.IncomeSource.Range = "" },
			wantErr:     true,
			errorString: "income source",
		},
		{
			name:        "negative settlement column",
			mutate:      func(c *Config) { c.CreditSource.SettlementColumn = -1 },
			wantErr:     true,
			errorString: "settlement column",
		},
		{
			name:        "empty proof dir",
			mutate:      func(c *Config) { c.ProofDir = "" },
			wantErr:     true,
			errorString: "proof directory",
		},
		{
			name:    "memory backend skips source validation",
			mutate:  func(c *Config) { c.DataBackend = "memory"; c.CreditSource.SpreadsheetID = "" },
			wantErr: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validSheetsConfig()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr && !strings.Contains(err.Error(), tt.errorString) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.errorString)
			}
		})
	}
}

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{
		"PORT", "DATA_BACKEND",
		"GOOGLE_SHEETS_SPREADSHEET_CREDIT_ID", "GOOGLE_SHEETS_CREDIT_RANGE",
		"GOOGLE_SHEETS_SPREADSHEET_EXPENSE_ID", "GOOGLE_SHEETS_EXPENSE_RANGE",
		"GOOGLE_SHEETS_SPREADSHEET_INCOME_ID", "CREDIT_SETTLEMENT_COLUMN",
	} {
		t.Setenv(key, "")
	}

	cfg := Load()
	if cfg.Port != "8081" {
		t.Errorf("Port = %q, want 8081", cfg.Port)
	}
	if cfg.DataBackend != "memory" {
		t.Errorf("DataBackend = %q, want memory", cfg.DataBackend)
	}
	if cfg.CreditSource.SettlementColumn != 8 || cfg.ExpenseSource.SettlementColumn != 7 {
		t.Errorf("settlement columns = %d/%d, want 8/7",
			cfg.CreditSource.SettlementColumn, cfg.ExpenseSource.SettlementColumn)
	}
}

func TestLoadExpenseFallsBackToCreditSpreadsheet(t *testing.T) {
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_CREDIT_ID", "credit-id")
	t.Setenv("GOOGLE_SHEETS_SPREADSHEET_EXPENSE_ID", "")

	cfg := Load()
	if cfg.ExpenseSource.SpreadsheetID != "credit-id" {
		t.Errorf("ExpenseSource.SpreadsheetID = %q, want credit-id", cfg.ExpenseSource.SpreadsheetID)
	}
}
