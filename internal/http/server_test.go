package http

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"fluxo/internal/config"
	"fluxo/internal/core"
	"fluxo/internal/services"
	"fluxo/internal/sheets/memory"
)

func testServer(t *testing.T) *Server {
	t.Helper()
	store := memory.New(core.Reference{
		Categories: []core.Category{
			{ID: "uh1", Name: "Chalé UH 1", Group: core.GroupLodging},
			{ID: "limpeza", Name: "Limpeza"},
		},
		Accounts: []core.Account{
			{ID: "stone", Name: "Conta Stone"},
			{ID: "caixa", Name: "Caixa", SeedBalance: core.Money{Cents: 50000}},
		},
		PaymentMethods: []core.PaymentMethod{
			{ID: "pix", Name: "Pix"},
			{ID: "cartao", Name: "Cartão", FeePct: 3, CardSettlement: true},
		},
	})
	clock := func() time.Time { return time.Date(2024, 6, 15, 10, 0, 0, 0, time.UTC) }
	reports := services.NewReportService(store, 16, time.Minute, nil).WithClock(clock)
	transactions := services.NewTransactionService(store, store, nil, reports)

	srv := NewServer(&config.Config{Port: "8082"}, transactions, reports)
	srv.now = clock
	t.Cleanup(func() { srv.rateLimiter.stop() })
	return srv
}

func doRequest(srv *Server, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body != "" {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	rec := httptest.NewRecorder()
	srv.handler.ServeHTTP(rec, req)
	return rec
}

func TestHealthAndReady(t *testing.T) {
	srv := testServer(t)

	if rec := doRequest(srv, http.MethodGet, "/healthz", ""); rec.Code != http.StatusOK {
		t.Errorf("healthz = %d", rec.Code)
	}
	if rec := doRequest(srv, http.MethodGet, "/readyz", ""); rec.Code != http.StatusOK {
		t.Errorf("readyz = %d", rec.Code)
	}
}

func TestCreateAndDeleteTransaction(t *testing.T) {
	srv := testServer(t)

	body := `{"kind":"income","amount":"1500,00","date":"2024-06-10","category_id":"uh1","account_id":"stone","payment_method_id":"pix"}`
	rec := doRequest(srv, http.MethodPost, "/api/transactions", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("create = %d, body %s", rec.Code, rec.Body.String())
	}

	var created transactionDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode create response: %v", err)
	}
	if created.ID == "" {
		t.Fatal("expected an assigned ID")
	}
	if created.Amount.Cents != 150000 {
		t.Errorf("amount = %d, want 150000", created.Amount.Cents)
	}
	if created.Kind != "INCOME" {
		t.Errorf("kind = %s", created.Kind)
	}
	if rec.Header().Get("X-Request-ID") == "" {
		t.Error("expected request id header")
	}

	if rec := doRequest(srv, http.MethodDelete, "/api/transactions/"+created.ID, ""); rec.Code != http.StatusNoContent {
		t.Errorf("delete = %d", rec.Code)
	}
	if rec := doRequest(srv, http.MethodDelete, "/api/transactions/"+created.ID, ""); rec.Code != http.StatusNotFound {
		t.Errorf("second delete = %d, want 404", rec.Code)
	}
}

func TestCreateTransactionRejectsInvalid(t *testing.T) {
	srv := testServer(t)

	cases := []struct {
		name string
		body string
	}{
		{"malformed json", `{"kind":`},
		{"bad amount", `{"kind":"income","amount":"abc","date":"2024-06-10","account_id":"stone"}`},
		{"bad date", `{"kind":"income","amount":"10,00","date":"junho","account_id":"stone"}`},
		{"missing account", `{"kind":"expense","amount":"10,00","date":"2024-06-10"}`},
		{"transfer without target", `{"kind":"transfer","amount":"10,00","date":"2024-06-10","account_id":"stone"}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := doRequest(srv, http.MethodPost, "/api/transactions", tc.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestDREEndpoint(t *testing.T) {
	srv := testServer(t)

	income := `{"kind":"income","amount":"2000,00","date":"2024-06-05","category_id":"uh1","account_id":"stone","payment_method_id":"pix","commission_pct":10}`
	expense := `{"kind":"expense","amount":"300,00","date":"2024-06-20","category_id":"limpeza","account_id":"caixa","payment_method_id":"pix"}`
	for _, body := range []string{income, expense} {
		if rec := doRequest(srv, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
			t.Fatalf("seed create = %d", rec.Code)
		}
	}

	rec := doRequest(srv, http.MethodGet, "/api/reports/dre?month=6&year=2024", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dre = %d, body %s", rec.Code, rec.Body.String())
	}
	var rep reportDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &rep); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rep.GrossRevenue.Cents != 200000 {
		t.Errorf("gross = %d, want 200000", rep.GrossRevenue.Cents)
	}
	if rep.TotalCommissions.Cents != 20000 {
		t.Errorf("commissions = %d, want 20000", rep.TotalCommissions.Cents)
	}
	if rep.TotalExpenses.Cents != 30000 {
		t.Errorf("expenses = %d, want 30000", rep.TotalExpenses.Cents)
	}
	// 200000 - 20000 - 30000
	if rep.NetProfit.Cents != 150000 {
		t.Errorf("net profit = %d, want 150000", rep.NetProfit.Cents)
	}

	if rec := doRequest(srv, http.MethodGet, "/api/reports/dre?month=13&year=2024", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("month 13 = %d, want 400", rec.Code)
	}
}

func TestBalancesEndpoint(t *testing.T) {
	srv := testServer(t)

	body := `{"kind":"expense","amount":"100,00","date":"2024-06-10","category_id":"limpeza","account_id":"caixa","payment_method_id":"dinheiro"}`
	if rec := doRequest(srv, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
		t.Fatalf("seed create = %d", rec.Code)
	}

	rec := doRequest(srv, http.MethodGet, "/api/balances?as_of=2024-06-30", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("balances = %d", rec.Code)
	}
	var resp balancesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.AsOf != "2024-06-30" {
		t.Errorf("as_of = %s", resp.AsOf)
	}
	var caixa *balanceDTO
	for i := range resp.Balances {
		if resp.Balances[i].AccountID == "caixa" {
			caixa = &resp.Balances[i]
		}
	}
	if caixa == nil {
		t.Fatal("caixa missing from balances")
	}
	// 50000 seed - 10000 expense
	if caixa.Balance.Cents != 40000 {
		t.Errorf("caixa = %d, want 40000", caixa.Balance.Cents)
	}

	if rec := doRequest(srv, http.MethodGet, "/api/balances?as_of=not-a-date", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("bad as_of = %d, want 400", rec.Code)
	}
}

func TestTrendEndpoint(t *testing.T) {
	srv := testServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/reports/trend?month=6&year=2024&months=3", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("trend = %d", rec.Code)
	}
	var resp struct {
		Reports []reportDTO `json:"reports"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Reports) != 3 {
		t.Fatalf("len = %d, want 3", len(resp.Reports))
	}
	if resp.Reports[2].Month != 8 || resp.Reports[2].Year != 2024 {
		t.Errorf("last period = %d/%d", resp.Reports[2].Month, resp.Reports[2].Year)
	}

	if rec := doRequest(srv, http.MethodGet, "/api/reports/trend?months=0", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("months=0 = %d, want 400", rec.Code)
	}
}

func TestReferenceEndpoint(t *testing.T) {
	srv := testServer(t)

	rec := doRequest(srv, http.MethodGet, "/api/reference", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("reference = %d", rec.Code)
	}
	var resp referenceResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if len(resp.Categories) != 2 || len(resp.Accounts) != 2 || len(resp.PaymentMethods) != 2 {
		t.Errorf("reference = %+v", resp)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	srv := testServer(t)

	cases := []struct{ method, path string }{
		{http.MethodGet, "/api/transactions"},
		{http.MethodPost, "/api/dashboard"},
		{http.MethodPut, "/api/transactions/abc"},
	}
	for _, tc := range cases {
		if rec := doRequest(srv, tc.method, tc.path, ""); rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("%s %s = %d, want 405", tc.method, tc.path, rec.Code)
		}
	}
}

func TestDashboardEndpoint(t *testing.T) {
	srv := testServer(t)

	body := `{"kind":"income","amount":"500,00","date":"2024-06-01","category_id":"uh1","account_id":"stone","payment_method_id":"pix"}`
	if rec := doRequest(srv, http.MethodPost, "/api/transactions", body); rec.Code != http.StatusCreated {
		t.Fatalf("seed create = %d", rec.Code)
	}

	rec := doRequest(srv, http.MethodGet, "/api/dashboard", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("dashboard = %d", rec.Code)
	}
	var resp dashboardDTO
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.Month != 6 || resp.Year != 2024 {
		t.Errorf("period = %d/%d", resp.Month, resp.Year)
	}
	if resp.TransactionCount != 1 {
		t.Errorf("transaction count = %d", resp.TransactionCount)
	}
	if resp.Report.GrossRevenue.Cents != 50000 {
		t.Errorf("gross = %d", resp.Report.GrossRevenue.Cents)
	}
}
