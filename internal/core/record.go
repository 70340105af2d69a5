package core

import (
	"errors"
	"math"
	"strings"
)

const (
	// SettledTag is the marker written into the settlement column of a
	// charge row once its payment has been received.
	SettledTag = "Recebi"

	// StatusPaid marks a charge the ledger itself already considers paid.
	StatusPaid = "paid"
	// StatusPago is the Portuguese spelling some ledgers use instead.
	StatusPago = "pago"
)

type (
	// ChargeRecord is the canonical form of an expense/credit row read from
	// the ledger. All fields except Value keep the raw cell text; dates are
	// parsed on demand because malformed dates must not drop the row.
	ChargeRecord struct {
		PurchaseDate string
		ValidateDate string // due date
		Description  string
		Value        float64
		Account      string
		Status       string
		Category     string
		Subcategory  string
		Tags         string
		Owner        string // person responsible for the charge
		Credit       string
		Card         string
		Observation  string
		Month        string
		Year         string
		Code         string // stable relation key, may be empty
	}

	// PaymentRecord is an income row: money received against one or more
	// charges. Created by the allocator, appended to the ledger, never
	// mutated afterwards.
	PaymentRecord struct {
		Date        string
		Description string
		Value       float64
		Account     string
		Status      string
		Category    string
		Subcategory string
		PayerTag    string // person who paid
		ProofURL    string
		RelatedCode string // one or more charge codes, comma-joined
		Observation string
	}
)

var (
	ErrNegativeValue    = errors.New("charge value must not be negative")
	ErrInvalidAmount    = errors.New("payment value must be positive")
	ErrEmptyDescription = errors.New("empty description")
)

// Validate reports whether the charge satisfies the ledger invariants.
// A NaN value passes: it marks a corrupt row that callers detect with
// math.IsNaN rather than a validation failure.
func (c ChargeRecord) Validate() error {
	if c.Value < 0 {
		return ErrNegativeValue
	}
	return nil
}

// Settled reports whether the charge carries the settlement marker in its
// tags column.
func (c ChargeRecord) Settled() bool {
	return strings.EqualFold(strings.TrimSpace(c.Tags), SettledTag)
}

// Paid reports whether the ledger's own status column marks the charge paid.
func (c ChargeRecord) Paid() bool {
	s := strings.ToLower(strings.TrimSpace(c.Status))
	return s == StatusPaid || s == StatusPago
}

func (p PaymentRecord) Validate() error {
	if math.IsNaN(p.Value) || p.Value <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(p.Description) == "" {
		return ErrEmptyDescription
	}
	return nil
}
