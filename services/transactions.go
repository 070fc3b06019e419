package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"agencyops/backend/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Ledger records and queries financial transactions
type Ledger struct {
	db        *sql.DB
	converter *Converter
	now       func() time.Time
}

func NewLedger(db *sql.DB, converter *Converter) *Ledger {
	return &Ledger{db: db, converter: converter, now: time.Now}
}

var transactionColumns = `t.id, t.type, t.category, t.project_id, t.client_id, t.employee_id, t.amount, t.currency, ` +
	convertedColumns("t", fieldAmount) +
	`, t.description, t.date, t.payment_method, t.reference, t.status, t.receipt_url, t.notes, t.added_by, t.created_at, t.updated_at`

// transactionViewQuery selects transactions with their display references
var transactionViewQuery = `
	SELECT ` + transactionColumns + `,
		p.name, c.name, c.company_name, eu.name, eu.email, au.name
	FROM transactions t
	LEFT JOIN projects p ON p.id = t.project_id
	LEFT JOIN clients c ON c.id = t.client_id
	LEFT JOIN employees e ON e.id = t.employee_id
	LEFT JOIN users eu ON eu.id = e.user_id
	LEFT JOIN users au ON au.id = t.added_by
`

// Create validates and records a transaction on behalf of actorID
func (l *Ledger) Create(ctx context.Context, in models.TransactionInput, actorID string) (string, error) {
	t, err := l.prepare(in, actorID)
	if err != nil {
		return "", err
	}

	if !t.Category.MatchesType(t.Type) {
		return "", invalidReference("Category %s is not valid for %s transactions", t.Category, t.Type)
	}

	if err := l.validateReferences(ctx, t); err != nil {
		return "", err
	}

	return l.insert(ctx, t)
}

// validateReferences checks that referenced rows exist and agree with each
// other: the client must own the project and the employee must be an active
// member of it.
func (l *Ledger) validateReferences(ctx context.Context, t *models.Transaction) error {
	var project *models.Project

	g, gctx := errgroup.WithContext(ctx)
	if t.ProjectID != "" {
		g.Go(func() error {
			var err error
			project, err = findProject(gctx, l.db, t.ProjectID)
			return err
		})
	}
	if t.ClientID != "" {
		g.Go(func() error {
			_, err := findClient(gctx, l.db, t.ClientID)
			return err
		})
	}
	if t.EmployeeID != "" {
		g.Go(func() error {
			_, _, err := findEmployee(gctx, l.db, t.EmployeeID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if project != nil && t.ClientID != "" && project.ClientID != t.ClientID {
		return invalidReference("Client does not belong to this project")
	}

	if project != nil && t.EmployeeID != "" {
		member, err := hasActiveMembership(ctx, l.db, project.ID, t.EmployeeID)
		if err != nil {
			return err
		}
		if !member {
			return invalidReference("Employee is not assigned to this project")
		}
	}
	return nil
}

// prepare normalizes an input into an unsaved transaction with defaults
func (l *Ledger) prepare(in models.TransactionInput, actorID string) (*models.Transaction, error) {
	if strings.TrimSpace(actorID) == "" {
		return nil, validation("addedBy is required")
	}

	typ, ok := models.NormalizeEnum(string(in.Type), models.TransactionTypes)
	if !ok {
		return nil, validation("invalid transaction type %q", in.Type)
	}
	category, ok := models.NormalizeEnum(string(in.Category), models.TransactionCategories)
	if !ok {
		return nil, validation("invalid transaction category %q", in.Category)
	}

	if err := checkAmount(in.Amount); err != nil {
		return nil, err
	}

	currency, err := parseCurrencyOrDefault(string(in.Currency))
	if err != nil {
		return nil, err
	}

	method := models.PaymentInstapay
	if in.PaymentMethod != "" {
		if method, ok = models.NormalizeEnum(string(in.PaymentMethod), models.PaymentMethods); !ok {
			return nil, validation("invalid payment method %q", in.PaymentMethod)
		}
	}

	status := models.StatusCompleted
	if in.Status != "" {
		if status, ok = models.NormalizeEnum(string(in.Status), models.TransactionStatuses); !ok {
			return nil, validation("invalid transaction status %q", in.Status)
		}
	}

	date := l.now().UTC()
	if in.Date != nil && !in.Date.IsZero() {
		date = in.Date.UTC()
	}

	return &models.Transaction{
		Type:          typ,
		Category:      category,
		ProjectID:     strings.TrimSpace(in.ProjectID),
		ClientID:      strings.TrimSpace(in.ClientID),
		EmployeeID:    strings.TrimSpace(in.EmployeeID),
		Amount:        in.Amount,
		Currency:      currency,
		Description:   strings.TrimSpace(in.Description),
		Date:          date,
		PaymentMethod: method,
		Reference:     in.Reference,
		Status:        status,
		ReceiptURL:    in.ReceiptURL,
		Notes:         in.Notes,
		AddedBy:       actorID,
	}, nil
}

func checkAmount(amount float64) error {
	if amount < 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return validation("amount must be a non-negative number")
	}
	return nil
}

func parseCurrencyOrDefault(value string) (models.Currency, error) {
	if strings.TrimSpace(value) == "" {
		return models.DefaultCurrency, nil
	}
	c, ok := models.ParseCurrency(value)
	if !ok {
		return "", validation("unsupported currency %q", value)
	}
	return c, nil
}

// insert converts the amount and persists t. Nothing is written when the
// conversion fails.
func (l *Ledger) insert(ctx context.Context, t *models.Transaction) (string, error) {
	converted, err := l.converter.ConvertToAll(ctx, t.Amount, t.Currency)
	if err != nil {
		return "", err
	}

	now := l.now().UTC()
	t.ID = uuid.NewString()
	t.AmountConverted = converted
	t.CreatedAt = now
	t.UpdatedAt = now

	args := []any{t.ID, t.Type, t.Category, nullString(t.ProjectID), nullString(t.ClientID), nullString(t.EmployeeID), t.Amount, t.Currency}
	args = append(args, t.AmountConverted.Values()...)
	args = append(args, nullString(t.Description), t.Date, t.PaymentMethod, nullString(t.Reference), t.Status,
		nullString(t.ReceiptURL), nullString(t.Notes), t.AddedBy, t.CreatedAt, t.UpdatedAt)

	_, err = l.db.ExecContext(ctx, `
		INSERT INTO transactions (id, type, category, project_id, client_id, employee_id, amount, currency, `+
		convertedColumns("", fieldAmount)+`,
			description, date, payment_method, reference, status, receipt_url, notes, added_by, created_at, updated_at)
		VALUES (`+placeholders(len(args))+`)
	`, args...)
	if err != nil {
		return "", writeError(err, "Transaction already exists")
	}

	return t.ID, nil
}

// List returns one page of transactions matching f, newest first.
// Unrecognized enum filters are ignored.
func (l *Ledger) List(ctx context.Context, f models.TransactionFilter) (*models.TransactionPage, error) {
	page, limit := normalizePage(f.Page, f.Limit)
	where, args := transactionWhere(f)

	var total int
	var data []models.TransactionView

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := l.db.QueryRowContext(gctx, "SELECT COUNT(*) FROM transactions t"+where, args...).Scan(&total)
		if err != nil {
			return internal(err, "error counting transactions")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		query := transactionViewQuery + where + " ORDER BY t.date DESC, t.created_at DESC LIMIT ? OFFSET ?"
		data, err = l.queryViews(gctx, query, append(args, limit, (page-1)*limit)...)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.TransactionPage{
		Total:      total,
		TotalPages: totalPages(total, limit),
		Page:       page,
		Limit:      limit,
		Results:    len(data),
		Data:       data,
	}, nil
}

// transactionWhere builds the filter clause for a transactions table aliased t
func transactionWhere(f models.TransactionFilter) (string, []any) {
	where := " WHERE 1=1"
	args := []any{}

	if v, ok := models.NormalizeEnum(f.Type, models.TransactionTypes); ok {
		where += " AND t.type = ?"
		args = append(args, v)
	}
	if v, ok := models.NormalizeEnum(f.Category, models.TransactionCategories); ok {
		where += " AND t.category = ?"
		args = append(args, v)
	}
	if v, ok := models.NormalizeEnum(f.Status, models.TransactionStatuses); ok {
		where += " AND t.status = ?"
		args = append(args, v)
	}
	if v, ok := models.NormalizeEnum(f.PaymentMethod, models.PaymentMethods); ok {
		where += " AND t.payment_method = ?"
		args = append(args, v)
	}
	if f.ProjectID != "" {
		where += " AND t.project_id = ?"
		args = append(args, f.ProjectID)
	}
	if f.ClientID != "" {
		where += " AND t.client_id = ?"
		args = append(args, f.ClientID)
	}
	if f.EmployeeID != "" {
		where += " AND t.employee_id = ?"
		args = append(args, f.EmployeeID)
	}
	if f.StartDate != nil {
		where += " AND t.date >= ?"
		args = append(args, f.StartDate.UTC())
	}
	if f.EndDate != nil {
		where += " AND t.date <= ?"
		args = append(args, f.EndDate.UTC())
	}
	return where, args
}

func (l *Ledger) queryViews(ctx context.Context, query string, args ...any) ([]models.TransactionView, error) {
	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, internal(err, "error querying transactions")
	}
	defer rows.Close()

	views := []models.TransactionView{}
	for rows.Next() {
		v, err := scanTransactionView(rows)
		if err != nil {
			return nil, internal(err, "error scanning transaction")
		}
		views = append(views, *v)
	}
	if err := rows.Err(); err != nil {
		return nil, internal(err, "error iterating transactions")
	}
	return views, nil
}

func scanTransactionView(row rowScanner) (*models.TransactionView, error) {
	var v models.TransactionView
	t := &v.Transaction

	var projectID, clientID, employeeID, description, reference, receipt, notes sql.NullString
	var projectName, clientName, clientCompany, employeeName, employeeEmail, adderName sql.NullString

	dest := []any{&t.ID, &t.Type, &t.Category, &projectID, &clientID, &employeeID, &t.Amount, &t.Currency}
	dest = append(dest, t.AmountConverted.ScanTargets()...)
	dest = append(dest, &description, &t.Date, &t.PaymentMethod, &reference, &t.Status, &receipt, &notes,
		&t.AddedBy, &t.CreatedAt, &t.UpdatedAt,
		&projectName, &clientName, &clientCompany, &employeeName, &employeeEmail, &adderName)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}

	t.ProjectID = projectID.String
	t.ClientID = clientID.String
	t.EmployeeID = employeeID.String
	t.Description = description.String
	t.Reference = reference.String
	t.ReceiptURL = receipt.String
	t.Notes = notes.String

	if t.ProjectID != "" {
		v.Project = &models.Ref{ID: t.ProjectID, Name: projectName.String}
	}
	if t.ClientID != "" {
		client := models.Client{Name: clientName.String, CompanyName: clientCompany.String}
		v.Client = &models.Ref{ID: t.ClientID, Name: client.DisplayName()}
	}
	if t.EmployeeID != "" {
		v.Employee = &models.Ref{ID: t.EmployeeID, Name: employeeName.String, Email: employeeEmail.String}
	}
	v.AddedByUser = &models.Ref{ID: t.AddedBy, Name: adderName.String}

	return &v, nil
}

// GetByID returns one transaction with its references resolved
func (l *Ledger) GetByID(ctx context.Context, id string) (*models.TransactionView, error) {
	v, err := scanTransactionView(l.db.QueryRowContext(ctx, transactionViewQuery+" WHERE t.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Transaction not found")
	}
	if err != nil {
		return nil, internal(err, "error loading transaction %s", id)
	}
	return v, nil
}

// Update applies the fields present in u. Type and category are frozen once
// the stored transaction is completed. A new amount or currency triggers a
// fresh conversion, using the stored value for whichever one is absent.
func (l *Ledger) Update(ctx context.Context, id string, u models.TransactionUpdate) error {
	current, err := l.GetByID(ctx, id)
	if err != nil {
		return err
	}
	t := current.Transaction

	sets := []string{}
	args := []any{}
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	typ, category := t.Type, t.Category
	if u.Type != nil {
		v, ok := models.NormalizeEnum(string(*u.Type), models.TransactionTypes)
		if !ok {
			return validation("invalid transaction type %q", *u.Type)
		}
		typ = v
	}
	if u.Category != nil {
		v, ok := models.NormalizeEnum(string(*u.Category), models.TransactionCategories)
		if !ok {
			return validation("invalid transaction category %q", *u.Category)
		}
		category = v
	}
	if typ != t.Type || category != t.Category {
		if t.Status == models.StatusCompleted {
			return newError(KindInvalidStateTransition, "Cannot change type or category of a completed transaction")
		}
		if !category.MatchesType(typ) {
			return invalidReference("Category %s is not valid for %s transactions", category, typ)
		}
		set("type", typ)
		set("category", category)
	}

	if u.Status != nil {
		v, ok := models.NormalizeEnum(string(*u.Status), models.TransactionStatuses)
		if !ok {
			return validation("invalid transaction status %q", *u.Status)
		}
		set("status", v)
	}
	if u.PaymentMethod != nil {
		v, ok := models.NormalizeEnum(string(*u.PaymentMethod), models.PaymentMethods)
		if !ok {
			return validation("invalid payment method %q", *u.PaymentMethod)
		}
		set("payment_method", v)
	}
	if u.Description != nil {
		set("description", nullString(strings.TrimSpace(*u.Description)))
	}
	if u.Date != nil && !u.Date.IsZero() {
		set("date", u.Date.UTC())
	}
	if u.Reference != nil {
		set("reference", nullString(*u.Reference))
	}
	if u.ReceiptURL != nil {
		set("receipt_url", nullString(*u.ReceiptURL))
	}
	if u.Notes != nil {
		set("notes", nullString(*u.Notes))
	}

	if u.Amount != nil || u.Currency != nil {
		amount, currency := t.Amount, t.Currency.OrDefault()
		if u.Amount != nil {
			if err := checkAmount(*u.Amount); err != nil {
				return err
			}
			amount = *u.Amount
		}
		if u.Currency != nil {
			if currency, err = parseCurrencyOrDefault(string(*u.Currency)); err != nil {
				return err
			}
		}

		converted, err := l.converter.ConvertToAll(ctx, amount, currency)
		if err != nil {
			return err
		}

		set("amount", amount)
		set("currency", currency)
		values := converted.Values()
		for i, c := range models.Currencies {
			set(convertedColumn(fieldAmount, c), values[i])
		}
	}

	if len(sets) == 0 {
		return nil
	}
	set("updated_at", l.now().UTC())

	query := fmt.Sprintf("UPDATE transactions SET %s WHERE id = ?", strings.Join(sets, ", "))
	if _, err := l.db.ExecContext(ctx, query, append(args, id)...); err != nil {
		return writeError(err, "Transaction update conflicts with an existing record")
	}
	return nil
}

// Delete removes a transaction permanently
func (l *Ledger) Delete(ctx context.Context, id string) error {
	result, err := l.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return internal(err, "error deleting transaction %s", id)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return internal(err, "error deleting transaction %s", id)
	}
	if n == 0 {
		return notFound("Transaction not found")
	}
	return nil
}

// normalizePage applies the listing defaults: page 1, limit 10, at most 100
func normalizePage(page, limit int) (int, int) {
	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = models.DefaultPageLimit
	}
	if limit > models.MaxPageLimit {
		limit = models.MaxPageLimit
	}
	return page, limit
}

func totalPages(total, limit int) int {
	if limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}
