package services

import (
	"context"
	"database/sql"
	"errors"
	"sync"
	"testing"
	"time"

	"agencyops/backend/database"
	"agencyops/backend/migrations"
	"agencyops/backend/models"
)

const testActor = migrations.DevAdminID

// egpPerUnit prices one unit of each currency in EGP for fakeRates
var egpPerUnit = map[models.Currency]float64{
	models.CurrencyEGP: 1,
	models.CurrencySAR: 12.5,
	models.CurrencyAED: 12.5,
	models.CurrencyUSD: 50,
	models.CurrencyEUR: 62.5,
}

// fakeRates serves a fixed cross-rate table. Bases listed in fail return
// that error; codes listed in drop are left out of every response.
type fakeRates struct {
	mu    sync.Mutex
	calls int
	fail  map[models.Currency]error
	drop  map[string]bool
}

func (f *fakeRates) Rates(ctx context.Context, base models.Currency) (map[string]float64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.calls++
	if err := f.fail[base]; err != nil {
		return nil, err
	}
	rates := make(map[string]float64)
	for c, egp := range egpPerUnit {
		if c == base || f.drop[string(c)] {
			continue
		}
		rates[string(c)] = egpPerUnit[base] / egp
	}
	return rates, nil
}

func (f *fakeRates) failBase(base models.Currency) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.fail == nil {
		f.fail = map[models.Currency]error{}
	}
	f.fail[base] = &Error{Kind: KindRateFetchFailure, Message: "rate provider down"}
}

type fakeMailer struct {
	mu   sync.Mutex
	sent []Message
	err  error
}

func (m *fakeMailer) Send(ctx context.Context, msg Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.sent = append(m.sent, msg)
	return nil
}

type testEnv struct {
	db        *sql.DB
	rates     *fakeRates
	converter *Converter
	ledger    *Ledger
	staffing  *Staffing
	projects  *Projects
	finance   *Finance
	analytics *Analytics
	employees *Employees
	users     *Users
	mailer    *fakeMailer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	db, err := database.OpenInMemory()
	if err != nil {
		t.Fatalf("Failed to open test database: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	if err := migrations.SeedTestData(db); err != nil {
		t.Fatalf("Failed to seed test data: %v", err)
	}

	rates := &fakeRates{}
	conv := NewConverter(rates)
	staffing := NewStaffing(db, conv)
	mailer := &fakeMailer{}

	return &testEnv{
		db:        db,
		rates:     rates,
		converter: conv,
		ledger:    NewLedger(db, conv),
		staffing:  staffing,
		projects:  NewProjects(db, conv, staffing),
		finance:   NewFinance(db),
		analytics: NewAnalytics(db),
		employees: NewEmployees(db, mailer),
		users:     NewUsers(db),
		mailer:    mailer,
	}
}

// addEmployee inserts an active backend developer and returns the employee id
func (e *testEnv) addEmployee(t *testing.T, id, name string) string {
	t.Helper()

	now := time.Now().UTC()
	userID := "user-" + id
	_, err := e.db.Exec(`
		INSERT INTO users (id, name, email, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, 'employee', 1, ?, ?)
	`, userID, name, id+"@example.com", now, now)
	if err != nil {
		t.Fatalf("Failed to insert user %s: %v", userID, err)
	}
	_, err = e.db.Exec(`
		INSERT INTO employees (id, user_id, department_id, position_id, employment_type, created_at, updated_at)
		VALUES (?, ?, 'dept-engineering', 'pos-backend', 'full_time', ?, ?)
	`, id, userID, now, now)
	if err != nil {
		t.Fatalf("Failed to insert employee %s: %v", id, err)
	}
	return id
}

func (e *testEnv) deactivateUser(t *testing.T, employeeID string) {
	t.Helper()
	if _, err := e.db.Exec("UPDATE users SET is_active = 0 WHERE id = ?", "user-"+employeeID); err != nil {
		t.Fatalf("Failed to deactivate user: %v", err)
	}
}

// addProject creates an engineering project for client-nile through the
// project service
func (e *testEnv) addProject(t *testing.T, name string, budget float64, currency models.Currency, roster ...models.RosterEntry) string {
	t.Helper()
	id, err := e.projects.Create(context.Background(), models.ProjectInput{
		Name:         name,
		ClientID:     "client-nile",
		DepartmentID: "dept-engineering",
		Budget:       budget,
		Currency:     currency,
		Status:       models.ProjectActive,
		Employees:    roster,
	}, testActor)
	if err != nil {
		t.Fatalf("Failed to create project %s: %v", name, err)
	}
	return id
}

func requireKind(t *testing.T, err error, kind ErrorKind) {
	t.Helper()
	if err == nil {
		t.Fatalf("Expected %s error, got nil", kind)
	}
	if got := KindOf(err); got != kind {
		t.Fatalf("Expected %s error, got %s (%v)", kind, got, err)
	}
}

func countRows(t *testing.T, db *sql.DB, query string, args ...any) int {
	t.Helper()
	var n int
	if err := db.QueryRow(query, args...).Scan(&n); err != nil {
		t.Fatalf("Count query failed: %v", err)
	}
	return n
}

func datePtr(year int, month time.Month, day int) *time.Time {
	d := time.Date(year, month, day, 12, 0, 0, 0, time.UTC)
	return &d
}

var errMailDown = errors.New("mail server unavailable")
