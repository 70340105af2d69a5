package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/GeniusFinance/house-gerencer/internal/core"
	"github.com/GeniusFinance/house-gerencer/internal/ledger"
	applog "github.com/GeniusFinance/house-gerencer/internal/log"
)

// SubmissionState tracks a payment submission through its lifecycle.
type SubmissionState string

const (
	StateIdle       SubmissionState = "idle"
	StateUploading  SubmissionState = "uploading"
	StateSubmitting SubmissionState = "submitting"
	StateSettled    SubmissionState = "settled"
	StateFailed     SubmissionState = "failed"
)

// maxSummaryCharges caps how many pool charges a general payment names in
// its auto-generated description.
const maxSummaryCharges = 3

// ProofSaver stores an uploaded proof-of-payment file and returns the URL
// it will be served at.
type ProofSaver interface {
	Save(filename string, size int64, content io.Reader) (string, error)
}

// ProofFile is an uploaded proof-of-payment attachment.
type ProofFile struct {
	Name    string
	Size    int64
	Content io.Reader
}

// TargetedRequest submits a payment against one specific charge.
type TargetedRequest struct {
	Charge      core.ChargeRecord
	Amount      float64 // 0 defaults to the charge value, larger or smaller is allowed
	PayerTag    string
	Account     string
	Description string // empty defaults to "Payment - {charge description}"
	Proof       *ProofFile
}

// GeneralRequest submits a lump payment with no single target charge.
type GeneralRequest struct {
	RecordType  string
	Amount      float64
	PayerTag    string
	Account     string
	Description string
	Proof       *ProofFile
}

// MultiRequest submits a payment against an explicit set of charge codes
// and marks each of them settled.
type MultiRequest struct {
	RecordType string
	Codes      []string
	Amount     float64
	PayerTag   string
	Account    string
	Proof      *ProofFile
}

// SubmissionResult reports the outcome of a payment submission.
type SubmissionResult struct {
	State    SubmissionState `json:"state"`
	Payment  core.PaymentRecord
	ProofURL string        `json:"proofUrl,omitempty"`
	Settle   *SettleResult `json:"settle,omitempty"`
}

// CodeResult is the per-code outcome of a settlement fan-out.
type CodeResult struct {
	Code     string `json:"code"`
	Settled  bool   `json:"settled"`
	NotFound bool   `json:"notFound,omitempty"`
	Error    string `json:"error,omitempty"`
}

// SettleResult aggregates the fan-out. A missing or failing code never
// fails the batch; callers read Succeeded against the request size.
type SettleResult struct {
	Succeeded int          `json:"succeeded"`
	Results   []CodeResult `json:"results"`
}

// PaymentService records payments in the income sheet and marks charges
// settled. Proof upload happens before the payload is built; an upload
// failure aborts the submission, an append failure after a successful
// upload does not delete the proof.
type PaymentService struct {
	store     ledger.Ledger
	sources   Sources
	proofs    ProofSaver
	reconcile *ReconcileService
	now       func() time.Time
}

func NewPaymentService(store ledger.Ledger, sources Sources, proofs ProofSaver, reconcile *ReconcileService) *PaymentService {
	return &PaymentService{
		store:     store,
		sources:   sources,
		proofs:    proofs,
		reconcile: reconcile,
		now:       time.Now,
	}
}

// SubmitTargeted records a payment against one charge. The payment keeps
// the charge's code as its relation key; the charge row itself is not
// touched, there is no partial-value tracking at the charge level.
func (s *PaymentService) SubmitTargeted(ctx context.Context, req TargetedRequest) (SubmissionResult, error) {
	amount := req.Amount
	if amount == 0 {
		amount = req.Charge.Value
	}
	description := req.Description
	if description == "" {
		description = "Payment - " + req.Charge.Description
	}

	payment := core.PaymentRecord{
		Date:        core.FormatDate(s.now()),
		Description: description,
		Value:       amount,
		Account:     req.Account,
		Status:      core.StatusPaid,
		Category:    "Incomes",
		PayerTag:    req.PayerTag,
		RelatedCode: req.Charge.Code,
	}
	return s.submit(ctx, payment, req.Proof)
}

// SubmitGeneral records a lump payment. The payer's unlinked charges
// supply a human-readable summary for the description, but the amount is
// not split per charge: one record carries the full value, and settlement
// of individual charges is inferred later by the matcher.
func (s *PaymentService) SubmitGeneral(ctx context.Context, req GeneralRequest) (SubmissionResult, error) {
	description := req.Description
	if description == "" {
		pool, err := s.reconcile.UnlinkedCharges(ctx, req.RecordType, req.PayerTag)
		if err != nil {
			return SubmissionResult{State: StateFailed}, fmt.Errorf("compute allocation pool: %w", err)
		}
		description = summarizePool(pool)
	}

	payment := core.PaymentRecord{
		Date:        core.FormatDate(s.now()),
		Description: description,
		Value:       req.Amount,
		Account:     req.Account,
		Status:      core.StatusPaid,
		Category:    "Incomes",
		PayerTag:    req.PayerTag,
	}
	return s.submit(ctx, payment, req.Proof)
}

// SubmitMulti records one payment referencing every selected code, then
// marks each charge settled. Settlement failures reduce the aggregate
// count but never fail the submission itself.
func (s *PaymentService) SubmitMulti(ctx context.Context, req MultiRequest) (SubmissionResult, error) {
	payment := core.PaymentRecord{
		Date:        core.FormatDate(s.now()),
		Description: fmt.Sprintf("Payment - %d charges", len(req.Codes)),
		Value:       req.Amount,
		Account:     req.Account,
		Status:      core.StatusPaid,
		Category:    "Incomes",
		PayerTag:    req.PayerTag,
		RelatedCode: strings.Join(req.Codes, ","),
	}

	result, err := s.submit(ctx, payment, req.Proof)
	if err != nil {
		return result, err
	}

	settle := s.SettleCodes(ctx, req.RecordType, req.Codes)
	result.Settle = &settle
	return result, nil
}

// SettleCodes writes the settlement marker into the charge row of every
// code, concurrently. Each code succeeds or fails on its own; a missing
// code is reported in its result and never aborts the batch. Nothing may
// depend on completion order.
func (s *PaymentService) SettleCodes(ctx context.Context, recordType string, codes []string) SettleResult {
	src := s.sources.Charge(recordType)

	var (
		mu      sync.Mutex
		results = make([]CodeResult, 0, len(codes))
	)
	g, ctx := errgroup.WithContext(ctx)

	for _, code := range codes {
		code := code
		g.Go(func() error {
			res := s.settleOne(ctx, src, code)
			mu.Lock()
			results = append(results, res)
			mu.Unlock()
			return nil
		})
	}
	// Goroutines report per-code outcomes instead of returning errors.
	_ = g.Wait()

	settled := 0
	for _, r := range results {
		if r.Settled {
			settled++
		}
	}
	applog.FromContext(ctx).InfoContext(ctx, "Settlement fan-out finished",
		"requested", len(codes), "succeeded", settled)
	return SettleResult{Succeeded: settled, Results: results}
}

func (s *PaymentService) settleOne(ctx context.Context, src ledger.Source, code string) CodeResult {
	logger := applog.FromContext(ctx)
	sl := applog.NewStructuredLogger(logger)

	row, err := s.store.FindRowByKey(ctx, src, code)
	if errors.Is(err, ledger.ErrRowNotFound) {
		logger.WarnContext(ctx, "Settlement skipped, code not found", applog.FieldCode, code)
		return CodeResult{Code: code, NotFound: true}
	}
	if err != nil {
		sl.LogError(ctx, "Settlement row lookup failed", err,
			applog.ComponentPayment, applog.OpSettle, applog.LogFields{applog.FieldCode: code})
		return CodeResult{Code: code, Error: err.Error()}
	}

	if err := s.store.UpdateCell(ctx, src, row, src.SettlementColumn, core.SettledTag); err != nil {
		sl.LogError(ctx, "Settlement marker write failed", err,
			applog.ComponentPayment, applog.OpSettle, applog.LogFields{applog.FieldCode: code})
		return CodeResult{Code: code, Error: err.Error()}
	}
	return CodeResult{Code: code, Settled: true}
}

// submit runs the Uploading and Submitting phases shared by all modes.
func (s *PaymentService) submit(ctx context.Context, payment core.PaymentRecord, proof *ProofFile) (SubmissionResult, error) {
	result := SubmissionResult{State: StateIdle}

	if proof != nil {
		result.State = StateUploading
		if s.proofs == nil {
			return failed(result), errors.New("proof storage not configured")
		}
		url, err := s.proofs.Save(proof.Name, proof.Size, proof.Content)
		if err != nil {
			return failed(result), fmt.Errorf("upload proof: %w", err)
		}
		payment.ProofURL = url
		result.ProofURL = url
	}

	result.State = StateSubmitting
	if err := payment.Validate(); err != nil {
		return failed(result), err
	}

	if err := s.store.Append(ctx, s.sources.Income, paymentRow(payment)); err != nil {
		// An already-uploaded proof stays on disk.
		return failed(result), fmt.Errorf("append payment: %w", err)
	}

	applog.NewStructuredLogger(applog.FromContext(ctx)).
		LogPaymentRecorded(ctx, payment.Value, payment.RelatedCode, payment.ProofURL)
	result.State = StateSettled
	result.Payment = payment
	return result, nil
}

func failed(r SubmissionResult) SubmissionResult {
	r.State = StateFailed
	return r
}

// paymentRow lays the record out in the income sheet's column order.
func paymentRow(p core.PaymentRecord) []string {
	return []string{
		p.Date,
		p.Description,
		formatValue(p.Value),
		p.Account,
		p.Status,
		p.Category,
		p.Subcategory,
		p.PayerTag,
		p.ProofURL,
		p.RelatedCode,
		p.Observation,
	}
}

func formatValue(v float64) string {
	if math.IsNaN(v) {
		return ""
	}
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// summarizePool names the oldest pool charges in a generated description.
func summarizePool(pool []core.ChargeRecord) string {
	if len(pool) == 0 {
		return "Payment"
	}
	n := min(len(pool), maxSummaryCharges)
	names := make([]string, 0, n)
	for _, c := range pool[:n] {
		names = append(names, c.Description)
	}
	desc := "Payment - " + strings.Join(names, ", ")
	if rest := len(pool) - n; rest > 0 {
		desc += fmt.Sprintf(" (+%d more)", rest)
	}
	return desc
}
