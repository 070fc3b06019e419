package services

import (
	"context"
	"testing"
	"time"

	"agencyops/backend/models"
)

// snapshotProject builds the reference scenario: budget 100000 EGP, one
// member on 40000, 30000 collected and 10000 paid to the member
func snapshotProject(t *testing.T, env *testEnv) (projectID, employeeID string) {
	t.Helper()
	ctx := context.Background()

	employeeID = env.addEmployee(t, "emp-1", "Sara Ali")
	projectID = env.addProject(t, "Storefront", 100000, models.CurrencyEGP,
		models.RosterEntry{EmployeeID: employeeID, Compensation: 40000})

	if _, err := env.ledger.RecordClientPayment(ctx, models.ClientPaymentInput{
		ProjectID: projectID, ClientID: "client-nile", Amount: 30000,
	}, testActor); err != nil {
		t.Fatal(err)
	}
	if _, err := env.ledger.RecordEmployeePayment(ctx, models.EmployeePaymentInput{
		EmployeeID: employeeID, ProjectID: projectID, Amount: 10000,
	}, testActor); err != nil {
		t.Fatal(err)
	}
	return projectID, employeeID
}

func TestProjectFinancialsSnapshot(t *testing.T) {
	env := newTestEnv(t)
	projectID, _ := snapshotProject(t, env)

	// pending rows never count
	if _, err := env.ledger.Create(context.Background(), models.TransactionInput{
		Type: "income", Category: "client_payment", ProjectID: projectID, ClientID: "client-nile",
		Amount: 99999, Status: "pending",
	}, testActor); err != nil {
		t.Fatal(err)
	}

	got, err := env.finance.ProjectFinancials(context.Background(), projectID)
	if err != nil {
		t.Fatalf("ProjectFinancials() error = %v", err)
	}

	f := got.Financials
	want := models.ProjectFinancialFigures{
		Budget:                     100000,
		TotalEmployeesCompensation: 40000,
		EmployeesCount:             1,
		MoneyCollected:             30000,
		TotalExpenses:              10000,
		PaidToEmployees:            10000,
		OtherExpenses:              0,
		ClientBalanceDue:           70000,
		EmployeeBalanceDue:         30000,
		GrossProfit:                60000,
		NetProfitToDate:            20000,
	}
	if f != want {
		t.Errorf("ProjectFinancials() = %+v, want %+v", f, want)
	}

	if len(got.Transactions.ClientTransactions) != 1 || len(got.Transactions.EmployeeTransactions) != 1 {
		t.Errorf("Expected 1 client and 1 employee transaction, got %d and %d",
			len(got.Transactions.ClientTransactions), len(got.Transactions.EmployeeTransactions))
	}
	if got.Project.Client == nil || got.Project.Client.Name != "Nour Hassan" {
		t.Errorf("Expected project client to resolve, got %+v", got.Project.Client)
	}
}

func TestProjectFinancialsUsesProjectCurrency(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	projectID := env.addProject(t, "Gulf Portal", 2000, models.CurrencyUSD)
	if _, err := env.ledger.RecordClientPayment(ctx, models.ClientPaymentInput{
		ProjectID: projectID, ClientID: "client-nile", Amount: 25000, Currency: models.CurrencyEGP,
	}, testActor); err != nil {
		t.Fatal(err)
	}

	got, err := env.finance.ProjectFinancials(ctx, projectID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Financials.MoneyCollected != 500 {
		t.Errorf("Expected 25000 EGP to count as 500 USD, got %d", got.Financials.MoneyCollected)
	}
	if got.Financials.ClientBalanceDue != 1500 {
		t.Errorf("Expected balance due 1500, got %d", got.Financials.ClientBalanceDue)
	}
}

func TestProjectFinancialsHidesDeletedProject(t *testing.T) {
	env := newTestEnv(t)
	projectID := env.addProject(t, "Old", 10, models.CurrencyEGP)
	if err := env.projects.SoftDelete(context.Background(), projectID); err != nil {
		t.Fatal(err)
	}

	_, err := env.finance.ProjectFinancials(context.Background(), projectID)
	requireKind(t, err, KindNotFound)
}

func TestEmployeeBreakdown(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	projectID, employeeID := snapshotProject(t, env)

	if _, err := env.ledger.RecordEmployeePayment(ctx, models.EmployeePaymentInput{
		EmployeeID: employeeID, ProjectID: projectID, Category: "employee_bonus", Amount: 100, Currency: models.CurrencyUSD,
	}, testActor); err != nil {
		t.Fatal(err)
	}

	got, err := env.finance.EmployeeBreakdown(ctx, projectID)
	if err != nil {
		t.Fatalf("EmployeeBreakdown() error = %v", err)
	}
	if len(got.Breakdown) != 1 {
		t.Fatalf("Expected 1 member, got %d", len(got.Breakdown))
	}

	ep := got.Breakdown[0]
	if ep.Position != "Backend Developer" {
		t.Errorf("Expected position Backend Developer, got %q", ep.Position)
	}
	if ep.Compensation != 40000 || ep.Paid != 15000 || ep.Remaining != 25000 {
		t.Errorf("Expected 40000/15000/25000, got %d/%d/%d", ep.Compensation, ep.Paid, ep.Remaining)
	}
	if ep.PaymentCount != 2 || len(ep.Payments) != 2 {
		t.Errorf("Expected 2 payments, got %d and %d lines", ep.PaymentCount, len(ep.Payments))
	}

	// payments keep their recorded currency
	currencies := map[models.Currency]bool{}
	for _, p := range ep.Payments {
		currencies[p.Currency] = true
	}
	if !currencies[models.CurrencyUSD] || !currencies[models.CurrencyEGP] {
		t.Errorf("Expected EGP and USD payment lines, got %v", currencies)
	}

	want := models.EmployeeBreakdownSummary{EmployeesCount: 1, TotalCompensation: 40000, TotalPaid: 15000, TotalRemaining: 25000}
	if got.Summary != want {
		t.Errorf("Summary = %+v, want %+v", got.Summary, want)
	}
}

func TestClientPaymentHistory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	projectID, _ := snapshotProject(t, env)

	if _, err := env.ledger.Create(ctx, models.TransactionInput{
		Type: "income", Category: "client_payment", ProjectID: projectID, ClientID: "client-nile",
		Amount: 5000, Status: "pending",
	}, testActor); err != nil {
		t.Fatal(err)
	}

	got, err := env.finance.ClientPaymentHistory(ctx, projectID)
	if err != nil {
		t.Fatalf("ClientPaymentHistory() error = %v", err)
	}
	want := models.ClientPaymentSummary{TotalPayments: 2, TotalCollected: 30000, BalanceDue: 70000, PercentagePaid: 30}
	if got.Summary != want {
		t.Errorf("Summary = %+v, want %+v", got.Summary, want)
	}
}

func TestClientPaymentHistoryZeroBudget(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	projectID := env.addProject(t, "Pro bono", 0, models.CurrencyEGP)
	if _, err := env.ledger.RecordClientPayment(ctx, models.ClientPaymentInput{
		ProjectID: projectID, ClientID: "client-nile", Amount: 100,
	}, testActor); err != nil {
		t.Fatal(err)
	}

	got, err := env.finance.ClientPaymentHistory(ctx, projectID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary.PercentagePaid != 0 {
		t.Errorf("Expected percentagePaid 0 for a zero budget, got %d", got.Summary.PercentagePaid)
	}
	if got.Summary.BalanceDue != -100 {
		t.Errorf("Expected balance due -100, got %d", got.Summary.BalanceDue)
	}
}

func TestCompanyFinancials(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	snapshotProject(t, env)

	old := time.Date(2020, 1, 15, 0, 0, 0, 0, time.UTC)
	if _, err := env.ledger.Create(ctx, models.TransactionInput{
		Type: "expense", Category: "office", Amount: 5000, Date: &old,
	}, testActor); err != nil {
		t.Fatal(err)
	}

	lifetime, err := env.finance.CompanyFinancials(ctx, models.Period{Lifetime: true}, "")
	if err != nil {
		t.Fatalf("CompanyFinancials() error = %v", err)
	}
	want := models.CompanySummary{TotalIncome: 30000, TotalExpenses: 15000, NetProfit: 15000, ProfitMargin: 50}
	if lifetime.Summary != want {
		t.Errorf("Summary = %+v, want %+v", lifetime.Summary, want)
	}
	if lifetime.Projects.ActiveCount != 1 || lifetime.Projects.TotalBudget != 100000 || lifetime.Projects.Uncollected != 70000 {
		t.Errorf("Unexpected projects section %+v", lifetime.Projects)
	}
	if lifetime.TransactionCounts != (models.TransactionCounts{Income: 1, Expense: 2}) {
		t.Errorf("Unexpected counts %+v", lifetime.TransactionCounts)
	}

	from := time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)
	recent, err := env.finance.CompanyFinancials(ctx, models.Period{From: &from}, models.CurrencyUSD)
	if err != nil {
		t.Fatal(err)
	}
	if recent.Summary.TotalExpenses != 200 || recent.Summary.TotalIncome != 600 {
		t.Errorf("Expected 600 income and 200 expenses in USD, got %+v", recent.Summary)
	}

	_, err = env.finance.CompanyFinancials(ctx, models.Period{}, "GBP")
	requireKind(t, err, KindValidation)
}

func TestCompanyFinancialsNoIncome(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.ledger.RecordExpense(ctx, models.ExpenseInput{
		Category: "software", Amount: 300, Description: "Licenses",
	}, testActor); err != nil {
		t.Fatal(err)
	}

	got, err := env.finance.CompanyFinancials(ctx, models.Period{}, models.CurrencyEGP)
	if err != nil {
		t.Fatal(err)
	}
	if got.Summary.ProfitMargin != 0 {
		t.Errorf("Expected profitMargin 0 without income, got %d", got.Summary.ProfitMargin)
	}
	if got.Summary.NetProfit != -300 {
		t.Errorf("Expected net profit -300, got %d", got.Summary.NetProfit)
	}
}
