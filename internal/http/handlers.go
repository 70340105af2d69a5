package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/GeniusFinance/house-gerencer/internal/core"
	applog "github.com/GeniusFinance/house-gerencer/internal/log"
	"github.com/GeniusFinance/house-gerencer/internal/services"
	"github.com/GeniusFinance/house-gerencer/internal/storage"
)

// maxUploadMemory bounds how much of a multipart submission stays in
// memory before spilling to temp files.
const maxUploadMemory = 8 << 20

// handleCharges serves the filtered charge view. Bad filter values fall
// back to defaults; the view fails open rather than hiding rows.
func (s *Server) handleCharges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	q := parseChargeQuery(r.URL.Query())
	records, err := s.reconcile.Charges(r.Context(), q)
	if err != nil {
		slog.ErrorContext(r.Context(), "Charge view error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load charges")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Count   int          `json:"count"`
		Charges []chargeJSON `json:"charges"`
	}{len(records), toChargeJSON(records)})
}

// handleUnlinkedCharges serves the allocation pool, oldest first.
func (s *Server) handleUnlinkedCharges(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	recordType := strings.TrimSpace(r.URL.Query().Get("type"))
	owner := strings.TrimSpace(r.URL.Query().Get("owner"))
	records, err := s.reconcile.UnlinkedCharges(r.Context(), recordType, owner)
	if err != nil {
		slog.ErrorContext(r.Context(), "Unlinked charges error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load unlinked charges")
		return
	}

	writeJSON(w, http.StatusOK, struct {
		Count   int          `json:"count"`
		Charges []chargeJSON `json:"charges"`
	}{len(records), toChargeJSON(records)})
}

// handleBalance serves a user's reconciliation summary. The user
// parameter is required; a missing one gets guidance, not a crash.
func (s *Server) handleBalance(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		w.Header().Set("Allow", "GET")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	user := strings.TrimSpace(r.URL.Query().Get("user"))
	if user == "" {
		writeError(w, http.StatusBadRequest, "user parameter is required, e.g. /api/balance?user=user1")
		return
	}

	balance, err := s.reconcile.BalanceFor(r.Context(), user, strings.TrimSpace(r.URL.Query().Get("type")))
	if err != nil {
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Balance error", err, applog.ComponentReconcile, applog.OpFetch,
			applog.NewFields().WithUser(user))
		writeError(w, http.StatusInternalServerError, "failed to compute balance")
		return
	}
	writeJSON(w, http.StatusOK, balance)
}

func (s *Server) handlePayments(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		s.listPayments(w, r)
	case http.MethodPost:
		s.submitPayment(w, r)
	default:
		w.Header().Set("Allow", "GET, POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
	}
}

func (s *Server) listPayments(w http.ResponseWriter, r *http.Request) {
	payments, err := s.reconcile.Payments(r.Context())
	if err != nil {
		slog.ErrorContext(r.Context(), "Payment list error", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to load payments")
		return
	}
	writeJSON(w, http.StatusOK, struct {
		Count    int           `json:"count"`
		Payments []paymentJSON `json:"payments"`
	}{len(payments), toPaymentJSON(payments)})
}

type submissionJSON struct {
	State    services.SubmissionState `json:"state"`
	Payment  paymentJSON              `json:"payment"`
	ProofURL string                   `json:"proofUrl,omitempty"`
	Settle   *services.SettleResult   `json:"settle,omitempty"`
}

// submitPayment records a payment. The submission mode follows the form:
// a single code is a targeted payment, a code list is a multi-select, and
// neither is a general lump payment.
func (s *Server) submitPayment(w http.ResponseWriter, r *http.Request) {
	contentType := r.Header.Get("Content-Type")
	if strings.HasPrefix(contentType, "multipart/form-data") {
		if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
			writeError(w, http.StatusBadRequest, "invalid multipart form")
			return
		}
	} else if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid form")
		return
	}

	amount, ok := parseAmountField(r.Form, "amount")
	if !ok {
		writeError(w, http.StatusUnprocessableEntity, "invalid amount")
		return
	}

	proof, closeProof, err := proofFromRequest(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid proof attachment")
		return
	}
	defer closeProof()

	recordType := sanitizeInput(r.Form.Get("type"))
	payer := sanitizeInput(r.Form.Get("payer"))
	account := sanitizeInput(r.Form.Get("account"))
	description := sanitizeInput(r.Form.Get("description"))
	code := sanitizeInput(r.Form.Get("code"))
	codes := splitCodes(r.Form.Get("codes"))

	var result services.SubmissionResult
	switch {
	case code != "":
		charge, found, lookupErr := s.findCharge(r, recordType, code)
		if lookupErr != nil {
			writeError(w, http.StatusInternalServerError, "failed to load charges")
			return
		}
		if !found {
			writeError(w, http.StatusNotFound, "no charge matches code "+code)
			return
		}
		result, err = s.payments.SubmitTargeted(r.Context(), services.TargetedRequest{
			Charge:      charge,
			Amount:      amount,
			PayerTag:    payer,
			Account:     account,
			Description: description,
			Proof:       proof,
		})
	case len(codes) > 0:
		result, err = s.payments.SubmitMulti(r.Context(), services.MultiRequest{
			RecordType: recordType,
			Codes:      codes,
			Amount:     amount,
			PayerTag:   payer,
			Account:    account,
			Proof:      proof,
		})
	default:
		result, err = s.payments.SubmitGeneral(r.Context(), services.GeneralRequest{
			RecordType:  recordType,
			Amount:      amount,
			PayerTag:    payer,
			Account:     account,
			Description: description,
			Proof:       proof,
		})
	}
	if err != nil {
		s.writeSubmissionError(w, r, err)
		return
	}

	writeJSON(w, http.StatusCreated, submissionJSON{
		State:    result.State,
		Payment:  singlePaymentJSON(result.Payment),
		ProofURL: result.ProofURL,
		Settle:   result.Settle,
	})
}

func (s *Server) writeSubmissionError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrEmptyDescription),
		errors.Is(err, storage.ErrProofTooLarge), errors.Is(err, storage.ErrProofType):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Payment submission error", "error", err)
		writeError(w, http.StatusInternalServerError, "payment submission failed")
	}
}

// findCharge resolves a targeted payment's charge by code from a fresh
// ledger read, settled charges included.
func (s *Server) findCharge(r *http.Request, recordType, code string) (core.ChargeRecord, bool, error) {
	records, err := s.reconcile.Charges(r.Context(), services.ChargeQuery{
		RecordType: recordType,
		TagMode:    core.TagAll,
	})
	if err != nil {
		return core.ChargeRecord{}, false, err
	}
	for _, c := range records {
		if strings.EqualFold(strings.TrimSpace(c.Code), code) {
			return c, true, nil
		}
	}
	return core.ChargeRecord{}, false, nil
}

type settleRequest struct {
	Type  string   `json:"type"`
	Codes []string `json:"codes"`
}

// handleSettle marks a set of charges settled. Per-code outcomes come
// back individually; a missing code is reported, not an error.
func (s *Server) handleSettle(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req settleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	var codes []string
	for _, c := range req.Codes {
		if c = strings.TrimSpace(c); c != "" {
			codes = append(codes, c)
		}
	}
	if len(codes) == 0 {
		writeError(w, http.StatusBadRequest, "codes is required and must not be empty")
		return
	}

	result := s.payments.SettleCodes(r.Context(), req.Type, codes)
	writeJSON(w, http.StatusOK, result)
}

// handleProofUpload stores a proof-of-payment file on its own, for
// clients that upload before building the payment submission.
func (s *Server) handleProofUpload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		w.Header().Set("Allow", "POST")
		writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	if s.proofs == nil {
		writeError(w, http.StatusServiceUnavailable, "proof storage not configured")
		return
	}

	if err := r.ParseMultipartForm(maxUploadMemory); err != nil {
		writeError(w, http.StatusBadRequest, "invalid multipart form")
		return
	}
	file, header, err := r.FormFile("proof")
	if err != nil {
		writeError(w, http.StatusBadRequest, "proof file field is required")
		return
	}
	defer file.Close()

	url, err := s.proofs.Save(header.Filename, header.Size, file)
	if err != nil {
		if errors.Is(err, storage.ErrProofTooLarge) || errors.Is(err, storage.ErrProofType) {
			writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		applog.NewStructuredLogger(applog.FromContext(r.Context())).LogError(r.Context(),
			"Proof upload error", err, applog.ComponentProof, applog.OpUpload, applog.NewFields())
		writeError(w, http.StatusInternalServerError, "proof upload failed")
		return
	}

	writeJSON(w, http.StatusCreated, struct {
		URL string `json:"url"`
	}{url})
}
