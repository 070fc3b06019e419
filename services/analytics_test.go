package services

import (
	"context"
	"fmt"
	"testing"
	"time"

	"agencyops/backend/models"
)

func TestOverviewCurrencyFallback(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// a legacy row whose USD value was stored as 0
	now := time.Now().UTC()
	_, err := env.db.Exec(`
		INSERT INTO transactions (id, type, category, amount, currency, amount_egp, amount_usd, date, status, added_by, created_at, updated_at)
		VALUES ('legacy', 'income', 'other_income', 500, 'EGP', 500, 0, ?, 'completed', ?, ?, ?)
	`, now, testActor, now, now)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := env.ledger.Create(ctx, models.TransactionInput{Type: "income", Category: "other_income", Amount: 1000}, testActor); err != nil {
		t.Fatal(err)
	}

	got, err := env.analytics.Overview(ctx, OverviewQuery{Lifetime: true, Currency: models.CurrencyUSD})
	if err != nil {
		t.Fatalf("Overview() error = %v", err)
	}
	if got.Financials.TotalIncome != 520 {
		t.Errorf("Expected 500 raw + 20 converted = 520, got %d", got.Financials.TotalIncome)
	}
	if !got.Period.Lifetime {
		t.Error("Expected a lifetime period")
	}
}

func TestOverviewWindowAndCharts(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	env.analytics.now = func() time.Time { return time.Date(2024, 3, 20, 9, 0, 0, 0, time.UTC) }

	project := env.addProject(t, "Storefront", 100000, models.CurrencyEGP)

	entries := []struct {
		category string
		amount   float64
		date     *time.Time
		project  string
	}{
		{"client_payment", 30000, datePtr(2024, 3, 5), project},
		{"other_income", 2000, datePtr(2024, 3, 10), ""},
		{"client_payment", 7000, datePtr(2024, 1, 10), project},
		{"client_payment", 1000, datePtr(2023, 11, 2), project},
	}
	for _, e := range entries {
		in := models.TransactionInput{Type: "income", Category: models.TransactionCategory(e.category), Amount: e.amount, Date: e.date, ProjectID: e.project}
		if e.project != "" {
			in.ClientID = "client-nile"
		}
		if _, err := env.ledger.Create(ctx, in, testActor); err != nil {
			t.Fatal(err)
		}
	}
	expenses := []models.TransactionInput{
		{Type: "expense", Category: "employee_salary", Amount: 8000, Date: datePtr(2024, 3, 15)},
		{Type: "expense", Category: "office", Amount: 4000, Date: datePtr(2024, 3, 16)},
	}
	for _, in := range expenses {
		if _, err := env.ledger.Create(ctx, in, testActor); err != nil {
			t.Fatal(err)
		}
	}

	// defaults to the current month
	month, err := env.analytics.Overview(ctx, OverviewQuery{})
	if err != nil {
		t.Fatal(err)
	}
	want := models.OverviewFinancials{TotalIncome: 32000, TotalSalaries: 8000, OtherExpenses: 4000, NetProfit: 20000, ProfitMargin: 63}
	if month.Financials != want {
		t.Errorf("Financials = %+v, want %+v", month.Financials, want)
	}
	if month.Period.From == nil || !month.Period.From.Equal(time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Expected window to start on 2024-03-01, got %v", month.Period.From)
	}

	from := time.Date(2023, 10, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 3, 31, 0, 0, 0, 0, time.UTC)
	wide, err := env.analytics.Overview(ctx, OverviewQuery{From: &from, To: &to})
	if err != nil {
		t.Fatal(err)
	}
	if wide.Financials.TotalIncome != 40000 {
		t.Errorf("Expected 40000 income in the wide window, got %d", wide.Financials.TotalIncome)
	}

	pivot := wide.Charts.IncomeByDepartment
	if len(pivot) != 2 || pivot[0].Quarter != "Q1" || pivot[1].Quarter != "Q4" {
		t.Fatalf("Expected Q1 and Q4 buckets, got %+v", pivot)
	}
	if pivot[0].Departments["Engineering"] != 37000 || pivot[0].Departments[models.UnassignedDepartment] != 2000 {
		t.Errorf("Unexpected Q1 pivot %+v", pivot[0].Departments)
	}
	if pivot[1].Departments["Engineering"] != 1000 {
		t.Errorf("Unexpected Q4 pivot %+v", pivot[1].Departments)
	}

	// the trend ignores the window
	trend := month.Charts.GrowthTrend
	if len(trend) != 3 {
		t.Fatalf("Expected 3 monthly points, got %+v", trend)
	}
	if trend[0] != (models.GrowthPoint{Year: 2023, Month: 11, Value: 1000}) {
		t.Errorf("Unexpected first point %+v", trend[0])
	}
	if trend[2] != (models.GrowthPoint{Year: 2024, Month: 3, Value: 32000}) {
		t.Errorf("Unexpected last point %+v", trend[2])
	}

	if len(month.RecentProjects) != 1 || month.RecentProjects[0].Client != "Nour Hassan" || month.RecentProjects[0].Department != "Engineering" {
		t.Errorf("Unexpected recent projects %+v", month.RecentProjects)
	}
}

func TestOverviewRecentProjectsLimit(t *testing.T) {
	env := newTestEnv(t)
	for i := 0; i < recentProjectsLimit+2; i++ {
		env.addProject(t, fmt.Sprintf("Project %d", i), 100, models.CurrencyEGP)
	}

	got, err := env.analytics.Overview(context.Background(), OverviewQuery{Lifetime: true})
	if err != nil {
		t.Fatal(err)
	}
	if len(got.RecentProjects) != recentProjectsLimit {
		t.Errorf("Expected %d recent projects, got %d", recentProjectsLimit, len(got.RecentProjects))
	}
	if got.Financials.ProfitMargin != 0 {
		t.Errorf("Expected profit margin 0 without income, got %d", got.Financials.ProfitMargin)
	}
}

func TestOverviewRejectsUnknownCurrency(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.analytics.Overview(context.Background(), OverviewQuery{Currency: "GBP"})
	requireKind(t, err, KindValidation)
}

func TestStatsEmpty(t *testing.T) {
	env := newTestEnv(t)

	got, err := env.analytics.Stats(context.Background(), "")
	if err != nil {
		t.Fatalf("Stats() error = %v", err)
	}
	if got.Counts.AvgCompletion != 0 || got.Counts.ActiveProjects != 0 {
		t.Errorf("Expected zero counts, got %+v", got.Counts)
	}
	if got.Currency != models.CurrencyEGP {
		t.Errorf("Expected default currency EGP, got %s", got.Currency)
	}
	if len(got.Departments) != 0 {
		t.Errorf("Expected no department rows, got %+v", got.Departments)
	}
}

func TestStats(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	a := env.addEmployee(t, "emp-a", "Amal")
	b := env.addEmployee(t, "emp-b", "Bassem")
	env.deactivateUser(t, b)

	live := env.addProject(t, "Live", 40000, models.CurrencyEGP, models.RosterEntry{EmployeeID: a, Compensation: 1000})
	done := env.addProject(t, "Done", 10000, models.CurrencyEGP)
	gone := env.addProject(t, "Gone", 99999, models.CurrencyEGP)

	status := models.ProjectCompleted
	if err := env.projects.Update(ctx, done, models.ProjectUpdate{Status: &status}); err != nil {
		t.Fatal(err)
	}
	if err := env.projects.SoftDelete(ctx, gone); err != nil {
		t.Fatal(err)
	}

	if _, err := env.ledger.RecordEmployeePayment(ctx, models.EmployeePaymentInput{
		EmployeeID: a, ProjectID: live, Amount: 12500,
	}, testActor); err != nil {
		t.Fatal(err)
	}

	got, err := env.analytics.Stats(ctx, models.CurrencyEGP)
	if err != nil {
		t.Fatal(err)
	}

	want := models.StatsCounts{TotalProjects: 3, ActiveProjects: 2, ActiveEmployees: 1, AvgCompletion: 50}
	if got.Counts != want {
		t.Errorf("Counts = %+v, want %+v", got.Counts, want)
	}
	if len(got.Departments) != 1 {
		t.Fatalf("Expected 1 department, got %+v", got.Departments)
	}
	d := got.Departments[0]
	if d.Name != "Engineering" || d.Spent != 12500 || d.Budget != 50000 || d.Percent != 25 {
		t.Errorf("Unexpected department progress %+v", d)
	}
}
