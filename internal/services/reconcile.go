// Package services orchestrates ledger reads and writes into the
// reconciliation views and payment submissions the HTTP layer exposes.
package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/GeniusFinance/house-gerencer/internal/core"
	"github.com/GeniusFinance/house-gerencer/internal/ledger"
)

// Sources groups the ledger sources the services read and write. Charges
// live on the credit and expense sheets, payments on the income sheet.
type Sources struct {
	Credit  ledger.Source
	Expense ledger.Source
	Income  ledger.Source
}

// Charge maps a record type to its charge source. Anything that is not
// "expense" reads the credit sheet.
func (s Sources) Charge(recordType string) ledger.Source {
	if strings.EqualFold(strings.TrimSpace(recordType), "expense") {
		return s.Expense
	}
	return s.Credit
}

// ChargeQuery carries the filter and sort parameters of a charge view.
// Zero values mean "no filtering" except TagMode, which defaults to the
// unsettled-only view.
type ChargeQuery struct {
	RecordType string
	Owner      string
	Month      string
	Year       string
	Start      *time.Time
	End        *time.Time
	DateField  core.DateField
	TagMode    core.TagFilterMode
	SortBy     core.SortColumn
	Ascending  bool
}

// UserBalance is the per-user reconciliation summary.
type UserBalance struct {
	User        string  `json:"user"`
	Outstanding float64 `json:"outstanding"`
	Paid        float64 `json:"paid"`
	NetDebt     float64 `json:"netDebt"`
}

// ReconcileService computes balance views from fresh ledger reads. No
// state is kept between calls; every view re-fetches the full range.
type ReconcileService struct {
	store   ledger.Ledger
	sources Sources
	matcher core.Matcher
}

func NewReconcileService(store ledger.Ledger, sources Sources) *ReconcileService {
	return &ReconcileService{
		store:   store,
		sources: sources,
		matcher: core.DescriptionMatcher{},
	}
}

// WithMatcher swaps the payment-to-charge matching heuristic.
func (s *ReconcileService) WithMatcher(m core.Matcher) *ReconcileService {
	s.matcher = m
	return s
}

// Charges fetches, normalizes, filters and sorts the charge rows for one
// view. The tag filter defaults to hiding settled charges.
func (s *ReconcileService) Charges(ctx context.Context, q ChargeQuery) ([]core.ChargeRecord, error) {
	src := s.sources.Charge(q.RecordType)
	rows, err := s.store.Fetch(ctx, src)
	if err != nil {
		return nil, fmt.Errorf("fetch charges: %w", err)
	}

	records := core.NormalizeCharges(rows)
	records = core.FilterByOwner(records, q.Owner)
	records = core.FilterByMonth(records, q.Month, q.Year)

	field := q.DateField
	if field == "" {
		field = core.FieldValidateDate
	}
	records = core.FilterByDateRange(records, q.Start, q.End, field)

	mode := q.TagMode
	if mode == "" {
		mode = core.TagExcluded
	}
	records = core.FilterByTag(records, mode, core.SettledTag)

	if q.SortBy != "" {
		records = core.SortByColumn(records, q.SortBy, q.Ascending)
	}
	return records, nil
}

// Payments fetches and normalizes the income rows.
func (s *ReconcileService) Payments(ctx context.Context) ([]core.PaymentRecord, error) {
	rows, err := s.store.Fetch(ctx, s.sources.Income)
	if err != nil {
		return nil, fmt.Errorf("fetch payments: %w", err)
	}
	return core.NormalizePayments(rows), nil
}

// BalanceFor computes a user's outstanding total, attributable payments
// and net debt from fresh reads of both sheets. NetDebt may be negative
// when the user has overpaid.
func (s *ReconcileService) BalanceFor(ctx context.Context, user, recordType string) (UserBalance, error) {
	charges, err := s.Charges(ctx, ChargeQuery{
		RecordType: recordType,
		Owner:      user,
		TagMode:    core.TagAll,
	})
	if err != nil {
		return UserBalance{}, err
	}
	payments, err := s.Payments(ctx)
	if err != nil {
		return UserBalance{}, err
	}

	// Settled charges drop out of the outstanding total, but the payment
	// matcher still sees them: an income row may reference a charge that
	// was already marked received.
	unsettled := core.FilterByTag(charges, core.TagExcluded, core.SettledTag)
	outstanding := core.TotalOutstanding(unsettled)
	paid := core.TotalPaidBy(s.matcher, payments, charges, user)

	return UserBalance{
		User:        user,
		Outstanding: outstanding,
		Paid:        paid,
		NetDebt:     core.NetDebt(outstanding, paid),
	}, nil
}

// UnlinkedCharges returns the charges with no matching payment, oldest
// first. This is the allocation pool for general payments. A non-empty
// owner scopes the pool to that user's charges; empty draws from the
// whole ledger.
func (s *ReconcileService) UnlinkedCharges(ctx context.Context, recordType, owner string) ([]core.ChargeRecord, error) {
	charges, err := s.Charges(ctx, ChargeQuery{RecordType: recordType, Owner: owner})
	if err != nil {
		return nil, err
	}
	payments, err := s.Payments(ctx)
	if err != nil {
		return nil, err
	}
	return core.UnlinkedCharges(s.matcher, charges, payments), nil
}
