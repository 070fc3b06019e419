package handlers

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"agencyops/backend/database"
	"agencyops/backend/middleware"
	"agencyops/backend/migrations"
	"agencyops/backend/models"
	"agencyops/backend/services"

	"github.com/gorilla/mux"
)

// egpPerUnit prices one unit of each currency in EGP
var egpPerUnit = map[models.Currency]float64{
	models.CurrencyEGP: 1,
	models.CurrencySAR: 12.5,
	models.CurrencyAED: 12.5,
	models.CurrencyUSD: 50,
	models.CurrencyEUR: 62.5,
}

type stubRates struct {
	mu   sync.Mutex
	down bool
}

func (s *stubRates) Rates(ctx context.Context, base models.Currency) (map[string]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.down {
		return nil, &services.Error{Kind: services.KindRateFetchFailure, Message: "rate provider down"}
	}
	rates := make(map[string]float64)
	for c, egp := range egpPerUnit {
		if c != base {
			rates[string(c)] = egpPerUnit[base] / egp
		}
	}
	return rates, nil
}

type recordingMailer struct {
	mu   sync.Mutex
	sent []services.Message
}

func (m *recordingMailer) Send(ctx context.Context, msg services.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.sent = append(m.sent, msg)
	return nil
}

type testApp struct {
	db           *sql.DB
	rates        *stubRates
	mailer       *recordingMailer
	transactions *TransactionHandler
	projects     *ProjectHandler
	finance      *FinanceHandler
	employees    *EmployeeHandler
	users        *UserHandler
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.SeedTestData(db); err != nil {
		t.Fatalf("Failed to seed test data: %v", err)
	}

	rates := &stubRates{}
	mailer := &recordingMailer{}
	conv := services.NewConverter(rates)
	staffing := services.NewStaffing(db, conv)
	finance := services.NewFinance(db)

	return &testApp{
		db:           db,
		rates:        rates,
		mailer:       mailer,
		transactions: NewTransactionHandler(services.NewLedger(db, conv)),
		projects:     NewProjectHandler(services.NewProjects(db, conv, staffing), staffing, finance),
		finance:      NewFinanceHandler(finance, services.NewAnalytics(db)),
		employees:    NewEmployeeHandler(services.NewEmployees(db, mailer)),
		users:        NewUserHandler(services.NewUsers(db)),
	}
}

// call routes one request through a router holding only pattern, as the
// seeded admin
func call(t *testing.T, h http.HandlerFunc, method, pattern, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	return callAs(t, migrations.DevAdminID, models.CurrencyEGP, h, method, pattern, target, body)
}

func callAs(t *testing.T, userID string, currency models.Currency, h http.HandlerFunc, method, pattern, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatal(err)
		}
		reader = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	ctx := context.WithValue(req.Context(), middleware.UserIDKey, userID)
	ctx = context.WithValue(ctx, middleware.UserRoleKey, models.RoleAdmin)
	ctx = context.WithValue(ctx, middleware.CurrencyKey, currency)
	req = req.WithContext(ctx)

	router := mux.NewRouter()
	router.HandleFunc(pattern, h).Methods(method)

	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decode(t *testing.T, rr *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.NewDecoder(rr.Body).Decode(v); err != nil {
		t.Fatalf("Error decoding response %q: %v", rr.Body.String(), err)
	}
}

func expectStatus(t *testing.T, rr *httptest.ResponseRecorder, status int) {
	t.Helper()
	if rr.Code != status {
		t.Fatalf("Expected status code %d, got %d: %s", status, rr.Code, rr.Body.String())
	}
}

// expectError checks the status and the error envelope
func expectError(t *testing.T, rr *httptest.ResponseRecorder, status int, envelope string) errorResponse {
	t.Helper()
	expectStatus(t, rr, status)
	var resp errorResponse
	decode(t, rr, &resp)
	if resp.Status != envelope || resp.Message == "" {
		t.Errorf("Expected %s envelope with a message, got %+v", envelope, resp)
	}
	return resp
}

func egp(t *testing.T, m models.ConvertedAmounts) int64 {
	t.Helper()
	v, ok := m.Get(models.CurrencyEGP)
	if !ok {
		t.Fatal("Expected an EGP value")
	}
	return v
}

var errUnreachable = errors.New("unreachable")
