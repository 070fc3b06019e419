package services

import (
	"bytes"
	"context"
	"fmt"
	"testing"
	"time"

	"agencyops/backend/models"

	"github.com/xuri/excelize/v2"
)

func TestCreateTransactionDefaults(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.ledger.Create(ctx, models.TransactionInput{
		Type:        "Expense",
		Category:    "SOFTWARE",
		Amount:      1000,
		Description: "  Hosting  ",
	}, testActor)
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	tx, err := env.ledger.GetByID(ctx, id)
	if err != nil {
		t.Fatalf("GetByID() error = %v", err)
	}
	if tx.Type != models.TransactionExpense || tx.Category != models.CategorySoftware {
		t.Errorf("Expected normalized expense/software, got %s/%s", tx.Type, tx.Category)
	}
	if tx.Currency != models.CurrencyEGP {
		t.Errorf("Expected default currency EGP, got %s", tx.Currency)
	}
	if tx.Status != models.StatusCompleted {
		t.Errorf("Expected default status completed, got %s", tx.Status)
	}
	if tx.PaymentMethod != models.PaymentInstapay {
		t.Errorf("Expected default payment method instapay, got %s", tx.PaymentMethod)
	}
	if tx.Description != "Hosting" {
		t.Errorf("Expected trimmed description, got %q", tx.Description)
	}
	if usd, _ := tx.AmountConverted.Get(models.CurrencyUSD); usd != 20 {
		t.Errorf("Expected 20 USD, got %d", usd)
	}
	if tx.AddedByUser == nil || tx.AddedByUser.Name != "Admin" {
		t.Errorf("Expected addedBy to resolve to Admin, got %+v", tx.AddedByUser)
	}
}

func TestCreateTransactionPartition(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		typ      models.TransactionType
		category models.TransactionCategory
	}{
		{models.TransactionExpense, models.CategoryClientPayment},
		{models.TransactionExpense, models.CategoryOtherIncome},
		{models.TransactionIncome, models.CategoryEmployeeSalary},
		{models.TransactionIncome, models.CategoryOffice},
	}

	for _, tt := range tests {
		_, err := env.ledger.Create(context.Background(), models.TransactionInput{
			Type:     tt.typ,
			Category: tt.category,
			Amount:   10,
		}, testActor)
		requireKind(t, err, KindInvalidReference)
	}

	if n := countRows(t, env.db, "SELECT COUNT(*) FROM transactions"); n != 0 {
		t.Errorf("Expected no transactions written, got %d", n)
	}
}

func TestCreateTransactionValidation(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name  string
		input models.TransactionInput
		actor string
	}{
		{"missing actor", models.TransactionInput{Type: "income", Category: "other_income", Amount: 1}, ""},
		{"unknown type", models.TransactionInput{Type: "transfer", Category: "other_income", Amount: 1}, testActor},
		{"negative amount", models.TransactionInput{Type: "income", Category: "other_income", Amount: -5}, testActor},
		{"unknown currency", models.TransactionInput{Type: "income", Category: "other_income", Amount: 1, Currency: "GBP"}, testActor},
		{"unknown status", models.TransactionInput{Type: "income", Category: "other_income", Amount: 1, Status: "settled"}, testActor},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := env.ledger.Create(context.Background(), tt.input, tt.actor)
			requireKind(t, err, KindValidation)
		})
	}
}

func TestCreateTransactionReferences(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	member := env.addEmployee(t, "emp-1", "Sara Ali")
	outsider := env.addEmployee(t, "emp-2", "Karim Adel")
	project := env.addProject(t, "Storefront", 100000, models.CurrencyEGP,
		models.RosterEntry{EmployeeID: member, Compensation: 40000})

	_, err := env.ledger.Create(ctx, models.TransactionInput{
		Type: "income", Category: "client_payment", ProjectID: project, ClientID: "client-gulf", Amount: 10,
	}, testActor)
	requireKind(t, err, KindInvalidReference)

	_, err = env.ledger.Create(ctx, models.TransactionInput{
		Type: "expense", Category: "employee_salary", ProjectID: project, EmployeeID: outsider, Amount: 10,
	}, testActor)
	requireKind(t, err, KindInvalidReference)

	_, err = env.ledger.Create(ctx, models.TransactionInput{
		Type: "income", Category: "client_payment", ProjectID: "missing", Amount: 10,
	}, testActor)
	requireKind(t, err, KindNotFound)

	id, err := env.ledger.Create(ctx, models.TransactionInput{
		Type: "expense", Category: "employee_salary", ProjectID: project, EmployeeID: member, Amount: 10,
	}, testActor)
	if err != nil {
		t.Fatalf("Expected member payment to succeed, got %v", err)
	}
	view, err := env.ledger.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if view.Employee == nil || view.Employee.Name != "Sara Ali" {
		t.Errorf("Expected employee reference to resolve, got %+v", view.Employee)
	}
	if view.Project == nil || view.Project.Name != "Storefront" {
		t.Errorf("Expected project reference to resolve, got %+v", view.Project)
	}
}

func TestCreateTransactionConversionFailureWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	env.rates.failBase(models.CurrencyUSD)

	_, err := env.ledger.Create(context.Background(), models.TransactionInput{
		Type: "income", Category: "other_income", Amount: 100, Currency: "usd",
	}, testActor)
	requireKind(t, err, KindRateFetchFailure)

	if n := countRows(t, env.db, "SELECT COUNT(*) FROM transactions"); n != 0 {
		t.Errorf("Expected no transaction after a conversion failure, got %d", n)
	}
}

func TestUpdateCompletedTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.ledger.Create(ctx, models.TransactionInput{
		Type: "expense", Category: "software", Amount: 1000,
	}, testActor)
	if err != nil {
		t.Fatal(err)
	}

	category := models.CategoryOffice
	err = env.ledger.Update(ctx, id, models.TransactionUpdate{Category: &category})
	requireKind(t, err, KindInvalidStateTransition)

	typ := models.TransactionIncome
	err = env.ledger.Update(ctx, id, models.TransactionUpdate{Type: &typ})
	requireKind(t, err, KindInvalidStateTransition)

	// restating the stored values is not a change
	same := models.TransactionCategory("Software")
	if err := env.ledger.Update(ctx, id, models.TransactionUpdate{Category: &same}); err != nil {
		t.Errorf("Expected unchanged category to pass, got %v", err)
	}

	amount := 2500.0
	usd := models.CurrencyUSD
	if err := env.ledger.Update(ctx, id, models.TransactionUpdate{Amount: &amount, Currency: &usd}); err != nil {
		t.Fatalf("Expected amount update to succeed, got %v", err)
	}

	view, err := env.ledger.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if view.Amount != 2500 || view.Currency != models.CurrencyUSD {
		t.Errorf("Expected 2500 USD, got %v %s", view.Amount, view.Currency)
	}
	if egp, _ := view.AmountConverted.Get(models.CurrencyEGP); egp != 125000 {
		t.Errorf("Expected reconverted EGP 125000, got %d", egp)
	}
	if v, _ := view.AmountConverted.Get(models.CurrencyUSD); v != 2500 {
		t.Errorf("Expected identity USD 2500, got %d", v)
	}
}

func TestUpdatePendingTransactionCategory(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.ledger.Create(ctx, models.TransactionInput{
		Type: "expense", Category: "software", Amount: 100, Status: "pending",
	}, testActor)
	if err != nil {
		t.Fatal(err)
	}

	category := models.CategoryEquipment
	if err := env.ledger.Update(ctx, id, models.TransactionUpdate{Category: &category}); err != nil {
		t.Fatalf("Expected category change on pending transaction, got %v", err)
	}

	income := models.CategoryClientPayment
	err = env.ledger.Update(ctx, id, models.TransactionUpdate{Category: &income})
	requireKind(t, err, KindInvalidReference)

	err = env.ledger.Update(ctx, "missing", models.TransactionUpdate{Category: &category})
	requireKind(t, err, KindNotFound)
}

func TestUpdateAmountConversionFailureKeepsRow(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.ledger.Create(ctx, models.TransactionInput{Type: "income", Category: "other_income", Amount: 100}, testActor)
	if err != nil {
		t.Fatal(err)
	}

	env.rates.failBase(models.CurrencyEGP)
	amount := 300.0
	err = env.ledger.Update(ctx, id, models.TransactionUpdate{Amount: &amount})
	requireKind(t, err, KindRateFetchFailure)

	view, err := env.ledger.GetByID(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if view.Amount != 100 {
		t.Errorf("Expected amount to stay 100, got %v", view.Amount)
	}
}

func TestListTransactionsEnumNormalization(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inputs := []models.TransactionInput{
		{Type: "income", Category: "other_income", Amount: 10},
		{Type: "income", Category: "other_income", Amount: 20},
		{Type: "expense", Category: "office", Amount: 30},
	}
	for _, in := range inputs {
		if _, err := env.ledger.Create(ctx, in, testActor); err != nil {
			t.Fatal(err)
		}
	}

	upper, err := env.ledger.List(ctx, models.TransactionFilter{Type: "INCOME"})
	if err != nil {
		t.Fatal(err)
	}
	mixed, err := env.ledger.List(ctx, models.TransactionFilter{Type: "Income"})
	if err != nil {
		t.Fatal(err)
	}
	if upper.Total != 2 || mixed.Total != 2 {
		t.Fatalf("Expected 2 income transactions, got %d and %d", upper.Total, mixed.Total)
	}
	for i := range upper.Data {
		if upper.Data[i].ID != mixed.Data[i].ID {
			t.Errorf("Expected identical result sets, differ at %d", i)
		}
	}

	// unknown enum values do not filter
	all, err := env.ledger.List(ctx, models.TransactionFilter{Type: "refund"})
	if err != nil {
		t.Fatal(err)
	}
	if all.Total != 3 {
		t.Errorf("Expected unknown type filter to be ignored, got %d", all.Total)
	}
}

func TestListTransactionsPagination(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	base := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	for i := 0; i < 12; i++ {
		date := base.AddDate(0, 0, i)
		_, err := env.ledger.Create(ctx, models.TransactionInput{
			Type: "expense", Category: "office", Amount: float64(i + 1), Date: &date,
			Description: fmt.Sprintf("day %d", i+1),
		}, testActor)
		if err != nil {
			t.Fatal(err)
		}
	}

	page, err := env.ledger.List(ctx, models.TransactionFilter{Page: 3, Limit: 5})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 12 || page.TotalPages != 3 || page.Results != 2 {
		t.Errorf("Expected total 12, 3 pages, 2 results; got %d, %d, %d", page.Total, page.TotalPages, page.Results)
	}
	if page.Data[0].Description != "day 2" || page.Data[1].Description != "day 1" {
		t.Errorf("Expected newest first ordering, got %q then %q", page.Data[0].Description, page.Data[1].Description)
	}

	defaults, err := env.ledger.List(ctx, models.TransactionFilter{Limit: 500})
	if err != nil {
		t.Fatal(err)
	}
	if defaults.Page != 1 || defaults.Limit != models.MaxPageLimit {
		t.Errorf("Expected page 1 and limit capped at %d, got %d and %d", models.MaxPageLimit, defaults.Page, defaults.Limit)
	}

	start := base.AddDate(0, 0, 3)
	end := base.AddDate(0, 0, 5)
	window, err := env.ledger.List(ctx, models.TransactionFilter{StartDate: &start, EndDate: &end})
	if err != nil {
		t.Fatal(err)
	}
	if window.Total != 3 {
		t.Errorf("Expected 3 transactions in date window, got %d", window.Total)
	}
}

func TestDeleteTransaction(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.ledger.Create(ctx, models.TransactionInput{Type: "income", Category: "other_income", Amount: 5}, testActor)
	if err != nil {
		t.Fatal(err)
	}

	if err := env.ledger.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	requireKind(t, env.ledger.Delete(ctx, id), KindNotFound)

	_, err = env.ledger.GetByID(ctx, id)
	requireKind(t, err, KindNotFound)
}

func TestExportTransactions(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, in := range []models.TransactionInput{
		{Type: "income", Category: "other_income", Amount: 100, Description: "Consulting"},
		{Type: "expense", Category: "office", Amount: 40, Description: "Rent"},
	} {
		if _, err := env.ledger.Create(ctx, in, testActor); err != nil {
			t.Fatal(err)
		}
	}

	var buf bytes.Buffer
	n, err := env.ledger.Export(ctx, models.TransactionFilter{Type: "expense"}, &buf)
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 exported transaction, got %d", n)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("Failed to open exported workbook: %v", err)
	}
	defer f.Close()

	rows, err := f.GetRows(exportSheet)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected header and 1 row, got %d rows", len(rows))
	}
	if rows[0][0] != "Date" || rows[1][2] != "office" {
		t.Errorf("Unexpected workbook content: %v", rows)
	}
}
