package services

import (
	"context"
	"strings"

	"agencyops/backend/models"

	"golang.org/x/sync/errgroup"
)

// RecordClientPayment records money received from the client of a project.
// Both the project and the client must be active and belong together.
func (l *Ledger) RecordClientPayment(ctx context.Context, in models.ClientPaymentInput, actorID string) (string, error) {
	if in.ProjectID == "" || in.ClientID == "" {
		return "", validation("project and client are required")
	}

	var project *models.Project
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		project, err = findActiveProject(gctx, l.db, in.ProjectID)
		return err
	})
	g.Go(func() error {
		_, err := findActiveClient(gctx, l.db, in.ClientID)
		return err
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	if project.ClientID != in.ClientID {
		return "", invalidReference("Client does not belong to this project")
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = "Payment for project: " + project.Name
	}

	t, err := l.prepare(models.TransactionInput{
		Type:          models.TransactionIncome,
		Category:      models.CategoryClientPayment,
		ProjectID:     in.ProjectID,
		ClientID:      in.ClientID,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Description:   description,
		Date:          in.Date,
		PaymentMethod: in.PaymentMethod,
		Reference:     in.Reference,
	}, actorID)
	if err != nil {
		return "", err
	}
	return l.insert(ctx, t)
}

// RecordEmployeePayment records a salary or bonus paid to an active
// employee, optionally against a project the employee is staffed on.
func (l *Ledger) RecordEmployeePayment(ctx context.Context, in models.EmployeePaymentInput, actorID string) (string, error) {
	if in.EmployeeID == "" {
		return "", validation("employee is required")
	}

	category := models.CategoryEmployeeSalary
	if in.Category != "" {
		v, ok := models.NormalizeEnum(string(in.Category), models.TransactionCategories)
		if !ok || !v.IsEmployeePayment() {
			return "", invalidReference("Category must be employee_salary or employee_bonus")
		}
		category = v
	}

	var user *models.User
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		_, user, err = findActiveEmployee(gctx, l.db, in.EmployeeID)
		return err
	})
	if in.ProjectID != "" {
		g.Go(func() error {
			_, err := findActiveProject(gctx, l.db, in.ProjectID)
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return "", err
	}

	if in.ProjectID != "" {
		member, err := hasActiveMembership(ctx, l.db, in.ProjectID, in.EmployeeID)
		if err != nil {
			return "", err
		}
		if !member {
			return "", invalidReference("Employee is not assigned to this project")
		}
	}

	description := strings.TrimSpace(in.Description)
	if description == "" {
		description = "Payment to " + user.Name
	}

	t, err := l.prepare(models.TransactionInput{
		Type:          models.TransactionExpense,
		Category:      category,
		ProjectID:     in.ProjectID,
		EmployeeID:    in.EmployeeID,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Description:   description,
		Date:          in.Date,
		PaymentMethod: in.PaymentMethod,
	}, actorID)
	if err != nil {
		return "", err
	}
	return l.insert(ctx, t)
}

// RecordExpense records a general expense, optionally against an active
// project.
func (l *Ledger) RecordExpense(ctx context.Context, in models.ExpenseInput, actorID string) (string, error) {
	if strings.TrimSpace(in.Description) == "" {
		return "", validation("description is required")
	}

	category, ok := models.NormalizeEnum(string(in.Category), models.TransactionCategories)
	if !ok {
		return "", validation("invalid transaction category %q", in.Category)
	}
	if !category.MatchesType(models.TransactionExpense) {
		return "", invalidReference("Category %s is not an expense category", category)
	}

	if in.ProjectID != "" {
		if _, err := findActiveProject(ctx, l.db, in.ProjectID); err != nil {
			return "", err
		}
	}

	t, err := l.prepare(models.TransactionInput{
		Type:          models.TransactionExpense,
		Category:      category,
		ProjectID:     in.ProjectID,
		Amount:        in.Amount,
		Currency:      in.Currency,
		Description:   in.Description,
		Date:          in.Date,
		PaymentMethod: in.PaymentMethod,
		ReceiptURL:    in.ReceiptURL,
	}, actorID)
	if err != nil {
		return "", err
	}
	return l.insert(ctx, t)
}
