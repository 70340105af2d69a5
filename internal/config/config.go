package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/GeniusFinance/house-gerencer/internal/ledger"
)

// Default settlement-marker columns (0-based) for each charge sheet layout.
// Credit and expense rows live on different sheets with the marker in
// different columns.
const (
	creditSettlementColumn  = 8
	expenseSettlementColumn = 7
)

type Config struct {
	// HTTP server
	Port string

	// Ledger sources, one per record type. Passed explicitly to every
	// collaborator; nothing else reads the environment.
	CreditSource  ledger.Source
	ExpenseSource ledger.Source
	IncomeSource  ledger.Source

	// Proof-of-payment storage
	ProofDir     string
	ProofBaseURL string

	// Backend selection: "sheets" or "memory"
	DataBackend string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8081"),

		CreditSource: ledger.Source{
			SpreadsheetID:    getEnv("GOOGLE_SHEETS_SPREADSHEET_CREDIT_ID", ""),
			Range:            getEnv("GOOGLE_SHEETS_CREDIT_RANGE", "credit!A:K"),
			SheetName:        getEnv("CREDIT_SHEET_NAME", "credit"),
			SettlementColumn: getEnvInt("CREDIT_SETTLEMENT_COLUMN", creditSettlementColumn),
		},
		ExpenseSource: ledger.Source{
			SpreadsheetID:    getEnv("GOOGLE_SHEETS_SPREADSHEET_EXPENSE_ID", ""),
			Range:            getEnv("GOOGLE_SHEETS_EXPENSE_RANGE", "Expense!A:I"),
			SheetName:        getEnv("EXPENSE_SHEET_NAME", "Expense"),
			SettlementColumn: getEnvInt("EXPENSE_SETTLEMENT_COLUMN", expenseSettlementColumn),
		},
		IncomeSource: ledger.Source{
			SpreadsheetID: getEnv("GOOGLE_SHEETS_SPREADSHEET_INCOME_ID", ""),
			Range:         getEnv("GOOGLE_SHEETS_INCOME_RANGE", "income!A:K"),
			SheetName:     getEnv("INCOME_SHEET_NAME", "income"),
		},

		ProofDir:     getEnv("PROOF_DIR", "./data/proofs"),
		ProofBaseURL: getEnv("PROOF_BASE_URL", "/uploads/proofs"),

		DataBackend: getEnv("DATA_BACKEND", "memory"),
	}

	// Some deployments keep expenses on the credit spreadsheet.
	if cfg.ExpenseSource.SpreadsheetID == "" {
		cfg.ExpenseSource.SpreadsheetID = cfg.CreditSource.SpreadsheetID
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errs []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errs = append(errs, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errs = append(errs, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DataBackend {
	case "memory", "sheets":
	default:
		errs = append(errs, fmt.Sprintf("invalid data backend '%s': must be one of [memory sheets]", c.DataBackend))
	}

	if c.DataBackend == "sheets" {
		if err := c.CreditSource.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("credit source: %v", err))
		}
		if err := c.IncomeSource.Validate(); err != nil {
			errs = append(errs, fmt.Sprintf("income source: %v", err))
		}
	}

	if c.CreditSource.SettlementColumn < 0 || c.ExpenseSource.SettlementColumn < 0 {
		errs = append(errs, "settlement column index cannot be negative")
	}

	if c.ProofDir == "" {
		errs = append(errs, "proof directory cannot be empty")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errs, "\n- "))
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}
