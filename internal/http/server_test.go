package http

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/GeniusFinance/house-gerencer/internal/ledger"
	"github.com/GeniusFinance/house-gerencer/internal/ledger/memory"
	"github.com/GeniusFinance/house-gerencer/internal/services"
	"github.com/GeniusFinance/house-gerencer/internal/storage"
)

var (
	creditSrc = ledger.Source{
		SpreadsheetID:    "credit-sheet",
		Range:            "credit!A:K",
		SheetName:        "credit",
		SettlementColumn: 8,
	}
	incomeSrc = ledger.Source{
		SpreadsheetID: "income-sheet",
		Range:         "income!A:K",
		SheetName:     "income",
	}
)

func newTestServer(t *testing.T) (*Server, *memory.Store) {
	t.Helper()

	store := memory.New()
	store.Seed(creditSrc, []string{
		"Purchase Date", "Validate Date", "Description", "Value", "Account",
		"Status", "Category", "Subcategory", "Recebi", "Pessoas", "code",
	}, [][]string{
		{"01/01/2024", "05/01/2024", "Rent", "100", "", "pending", "Home", "", "", "user1", "c-1"},
		{"02/01/2024", "06/01/2024", "Internet", "200", "", "pending", "Home", "", "", "user2", "c-2"},
		{"03/01/2024", "07/01/2024", "Water", "150", "", "pending", "Home", "", "", "user1", "c-3"},
		{"04/01/2024", "08/01/2024", "Gas", "50", "", "pending", "Home", "", "Recebi", "user1", "c-4"},
	})
	store.Seed(incomeSrc, []string{
		"Date", "Description", "Value", "Account", "Status", "Category",
		"Subcategory", "Tags", "Proof", "Related Code", "Observation",
	}, [][]string{
		{"10/01/2024", "Payment - Rent", "100", "", "paid", "Incomes", "", "user1", "", "c-1", ""},
	})

	sources := services.Sources{Credit: creditSrc, Expense: creditSrc, Income: incomeSrc}
	reconcile := services.NewReconcileService(store, sources)

	proofs, err := storage.NewProofStore(t.TempDir(), "/uploads/proofs")
	if err != nil {
		t.Fatalf("NewProofStore() error = %v", err)
	}
	payments := services.NewPaymentService(store, sources, proofs, reconcile)

	s := NewServer(":0", reconcile, payments, proofs, proofs.Dir(), "/uploads/proofs")
	t.Cleanup(func() { _ = s.Shutdown(context.Background()) })
	return s, store
}

func do(s *Server, req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	s.Server.Handler.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("decoding response %q: %v", rec.Body.String(), err)
	}
}

func TestHealthEndpoints(t *testing.T) {
	s, _ := newTestServer(t)
	for _, path := range []string{"/healthz", "/readyz"} {
		rec := do(s, httptest.NewRequest(http.MethodGet, path, nil))
		if rec.Code != http.StatusOK {
			t.Errorf("GET %s = %d, want 200", path, rec.Code)
		}
	}
}

func TestChargesDefaultView(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/charges", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/charges = %d, want 200", rec.Code)
	}

	var resp struct {
		Count   int          `json:"count"`
		Charges []chargeJSON `json:"charges"`
	}
	decode(t, rec, &resp)
	if resp.Count != 3 {
		t.Errorf("count = %d, want 3 (settled charge hidden)", resp.Count)
	}
	for _, c := range resp.Charges {
		if c.Settled {
			t.Errorf("default view returned settled charge %q", c.Description)
		}
	}
}

func TestChargesWithFilters(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/charges?owner=user1&tags=all&sortBy=value&order=desc", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/charges = %d, want 200", rec.Code)
	}

	var resp struct {
		Count   int          `json:"count"`
		Charges []chargeJSON `json:"charges"`
	}
	decode(t, rec, &resp)
	if resp.Count != 3 {
		t.Fatalf("count = %d, want 3 user1 charges", resp.Count)
	}
	if resp.Charges[0].Description != "Water" {
		t.Errorf("first charge = %q, want Water (largest value)", resp.Charges[0].Description)
	}
}

func TestChargesMethodNotAllowed(t *testing.T) {
	s, _ := newTestServer(t)
	rec := do(s, httptest.NewRequest(http.MethodPost, "/api/charges", nil))
	if rec.Code != http.StatusMethodNotAllowed {
		t.Errorf("POST /api/charges = %d, want 405", rec.Code)
	}
}

func TestBalanceRequiresUser(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/balance", nil))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("GET /api/balance = %d, want 400", rec.Code)
	}
	var resp errorResponse
	decode(t, rec, &resp)
	if !strings.Contains(resp.Error, "user parameter is required") {
		t.Errorf("error = %q, want guidance about the user parameter", resp.Error)
	}
}

func TestBalance(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/balance?user=user1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/balance = %d, want 200", rec.Code)
	}

	var balance services.UserBalance
	decode(t, rec, &balance)
	if balance.Outstanding != 250 {
		t.Errorf("outstanding = %v, want 250", balance.Outstanding)
	}
	if balance.Paid != 100 {
		t.Errorf("paid = %v, want 100", balance.Paid)
	}
	if balance.NetDebt != 150 {
		t.Errorf("netDebt = %v, want 150", balance.NetDebt)
	}
}

func TestUnlinkedCharges(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/charges/unlinked", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/charges/unlinked = %d, want 200", rec.Code)
	}
	var resp struct {
		Charges []chargeJSON `json:"charges"`
	}
	decode(t, rec, &resp)
	if len(resp.Charges) != 2 || resp.Charges[0].Description != "Internet" {
		t.Errorf("pool = %+v, want Internet then Water", resp.Charges)
	}
}

func TestUnlinkedChargesOwnerParam(t *testing.T) {
	s, _ := newTestServer(t)

	rec := do(s, httptest.NewRequest(http.MethodGet, "/api/charges/unlinked?owner=user1", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("GET /api/charges/unlinked?owner=user1 = %d, want 200", rec.Code)
	}
	var resp struct {
		Charges []chargeJSON `json:"charges"`
	}
	decode(t, rec, &resp)
	if len(resp.Charges) != 1 || resp.Charges[0].Description != "Water" {
		t.Errorf("pool = %+v, want only Water", resp.Charges)
	}
}

func TestSubmitTargetedPayment(t *testing.T) {
	s, store := newTestServer(t)

	form := url.Values{"code": {"c-1"}, "amount": {"50"}, "payer": {"user1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := do(s, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/payments = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp submissionJSON
	decode(t, rec, &resp)
	if resp.State != services.StateSettled {
		t.Errorf("state = %q, want settled", resp.State)
	}
	if resp.Payment.RelatedCode != "c-1" {
		t.Errorf("relatedCode = %q, want c-1", resp.Payment.RelatedCode)
	}
	if got := store.RowCount(incomeSrc); got != 2 {
		t.Errorf("income rows = %d, want 2", got)
	}
}

func TestSubmitTargetedPaymentUnknownCode(t *testing.T) {
	s, _ := newTestServer(t)

	form := url.Values{"code": {"nope"}, "amount": {"50"}}
	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if rec := do(s, req); rec.Code != http.StatusNotFound {
		t.Errorf("POST /api/payments = %d, want 404", rec.Code)
	}
}

func TestSubmitMultiPayment(t *testing.T) {
	s, store := newTestServer(t)

	form := url.Values{"codes": {"c-1,c-3"}, "amount": {"250"}, "payer": {"user1"}}
	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	rec := do(s, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/payments = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp submissionJSON
	decode(t, rec, &resp)
	if resp.Settle == nil || resp.Settle.Succeeded != 2 {
		t.Fatalf("settle = %+v, want 2 succeeded", resp.Settle)
	}
	if cell, _ := store.Cell(creditSrc, 2, creditSrc.SettlementColumn); cell != "Recebi" {
		t.Errorf("c-1 settlement cell = %q, want Recebi", cell)
	}
}

func TestSubmitPaymentInvalidAmount(t *testing.T) {
	s, _ := newTestServer(t)

	form := url.Values{"amount": {"abc"}}
	req := httptest.NewRequest(http.MethodPost, "/api/payments", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	if rec := do(s, req); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("POST /api/payments = %d, want 422", rec.Code)
	}
}

func TestSettleEndpoint(t *testing.T) {
	s, _ := newTestServer(t)

	body, _ := json.Marshal(settleRequest{Type: "credit", Codes: []string{"c-1", "missing"}})
	req := httptest.NewRequest(http.MethodPost, "/api/settle", bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")

	rec := do(s, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("POST /api/settle = %d, want 200", rec.Code)
	}

	var result services.SettleResult
	decode(t, rec, &result)
	if result.Succeeded != 1 {
		t.Errorf("succeeded = %d, want 1", result.Succeeded)
	}
}

func TestSettleRequiresCodes(t *testing.T) {
	s, _ := newTestServer(t)

	req := httptest.NewRequest(http.MethodPost, "/api/settle", strings.NewReader(`{"codes":[]}`))
	req.Header.Set("Content-Type", "application/json")
	if rec := do(s, req); rec.Code != http.StatusBadRequest {
		t.Errorf("POST /api/settle = %d, want 400", rec.Code)
	}
}

func multipartProof(t *testing.T, field, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	part, err := mw.CreateFormFile(field, filename)
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	if _, err := part.Write([]byte(content)); err != nil {
		t.Fatalf("writing part: %v", err)
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("closing writer: %v", err)
	}
	return &buf, mw.FormDataContentType()
}

func TestProofUpload(t *testing.T) {
	s, _ := newTestServer(t)

	body, contentType := multipartProof(t, "proof", "receipt.png", "fake png")
	req := httptest.NewRequest(http.MethodPost, "/api/proofs", body)
	req.Header.Set("Content-Type", contentType)

	rec := do(s, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/proofs = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp struct {
		URL string `json:"url"`
	}
	decode(t, rec, &resp)
	if !strings.HasPrefix(resp.URL, "/uploads/proofs/") {
		t.Errorf("url = %q, want /uploads/proofs/ prefix", resp.URL)
	}
}

func TestProofUploadRejectsType(t *testing.T) {
	s, _ := newTestServer(t)

	body, contentType := multipartProof(t, "proof", "malware.exe", "bits")
	req := httptest.NewRequest(http.MethodPost, "/api/proofs", body)
	req.Header.Set("Content-Type", contentType)

	if rec := do(s, req); rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("POST /api/proofs = %d, want 422", rec.Code)
	}
}

func TestSubmitPaymentWithProof(t *testing.T) {
	s, store := newTestServer(t)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	_ = mw.WriteField("code", "c-3")
	_ = mw.WriteField("amount", "150")
	_ = mw.WriteField("payer", "user1")
	part, err := mw.CreateFormFile("proof", "receipt.jpg")
	if err != nil {
		t.Fatalf("CreateFormFile() error = %v", err)
	}
	_, _ = part.Write([]byte("fake jpeg"))
	_ = mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/payments", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	rec := do(s, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("POST /api/payments = %d, want 201: %s", rec.Code, rec.Body.String())
	}

	var resp submissionJSON
	decode(t, rec, &resp)
	if !strings.HasPrefix(resp.ProofURL, "/uploads/proofs/") {
		t.Errorf("proofUrl = %q, want /uploads/proofs/ prefix", resp.ProofURL)
	}
	row := store.LastRow(incomeSrc)
	if row[8] != resp.ProofURL {
		t.Errorf("proof cell = %q, want %q", row[8], resp.ProofURL)
	}
}

func TestRateLimitRejectsAndCounts(t *testing.T) {
	s, _ := newTestServer(t)

	// httptest requests share one RemoteAddr, so they count as one client.
	post := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/api/settle", strings.NewReader(`{"codes":["c-2"]}`))
		req.Header.Set("Content-Type", "application/json")
		return do(s, req)
	}

	for i := 0; i < rateLimitPerMinute; i++ {
		if rec := post(); rec.Code == http.StatusTooManyRequests {
			t.Fatalf("request %d rejected before the limit", i+1)
		}
	}

	rec := post()
	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("request over the limit = %d, want 429", rec.Code)
	}
	if rec.Header().Get("Retry-After") != "60" {
		t.Errorf("Retry-After = %q, want 60", rec.Header().Get("Retry-After"))
	}
	if hits := atomic.LoadInt64(&s.metrics.rateLimitHits); hits != 1 {
		t.Errorf("rateLimitHits = %d, want 1", hits)
	}
}
