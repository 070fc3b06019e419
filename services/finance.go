package services

import (
	"context"
	"database/sql"
	"fmt"

	"agencyops/backend/models"

	"golang.org/x/sync/errgroup"
)

// Finance answers the per-project and company-wide financial questions.
// Project views are expressed in the project's own currency.
type Finance struct {
	db *sql.DB
}

func NewFinance(db *sql.DB) *Finance {
	return &Finance{db: db}
}

// convertedOrRaw reads the converted column for c, falling back to the
// origin value when the conversion was never stored
func convertedOrRaw(alias, field string, c models.Currency) string {
	return fmt.Sprintf("COALESCE(%s.%s, %s.%s)", alias, convertedColumn(field, c), alias, field)
}

const employeePaymentCategories = "('employee_salary', 'employee_bonus')"

var ledgerLineQuery = `
	SELECT t.id, t.amount, t.currency, t.date, t.description, t.category, t.status, t.payment_method, t.reference,
		t.client_id, c.name, c.company_name, t.employee_id, eu.name, eu.email, au.name
	FROM transactions t
	LEFT JOIN clients c ON c.id = t.client_id
	LEFT JOIN employees e ON e.id = t.employee_id
	LEFT JOIN users eu ON eu.id = e.user_id
	LEFT JOIN users au ON au.id = t.added_by
`

// ledgerLines runs ledgerLineQuery with the given filter, newest first
func ledgerLines(ctx context.Context, q querier, where string, args ...any) ([]models.LedgerLine, error) {
	rows, err := q.QueryContext(ctx, ledgerLineQuery+where+" ORDER BY t.date DESC", args...)
	if err != nil {
		return nil, internal(err, "error querying transactions")
	}
	defer rows.Close()

	lines := []models.LedgerLine{}
	for rows.Next() {
		var l models.LedgerLine
		var description, reference, clientID, clientName, clientCompany sql.NullString
		var employeeID, employeeName, employeeEmail, adder sql.NullString

		err := rows.Scan(&l.ID, &l.Amount, &l.Currency, &l.Date, &description, &l.Category, &l.Status, &l.PaymentMethod,
			&reference, &clientID, &clientName, &clientCompany, &employeeID, &employeeName, &employeeEmail, &adder)
		if err != nil {
			return nil, internal(err, "error scanning transaction")
		}

		l.Description = description.String
		l.Reference = reference.String
		l.AddedBy = adder.String
		if clientID.Valid {
			c := models.Client{Name: clientName.String, CompanyName: clientCompany.String}
			l.Client = &models.Ref{ID: clientID.String, Name: c.DisplayName()}
		}
		if employeeID.Valid {
			l.Employee = &models.Ref{ID: employeeID.String, Name: employeeName.String, Email: employeeEmail.String}
		}
		lines = append(lines, l)
	}
	if err := rows.Err(); err != nil {
		return nil, internal(err, "error iterating transactions")
	}
	return lines, nil
}

func (s *Finance) projectSummary(ctx context.Context, p *models.Project) (models.ProjectSummary, error) {
	summary := models.ProjectSummary{
		ID:       p.ID,
		Name:     p.Name,
		Budget:   roundMoney(p.Budget),
		Currency: p.Currency.OrDefault(),
		Status:   p.Status,
	}

	c, err := findClient(ctx, s.db, p.ClientID)
	if IsKind(err, KindNotFound) {
		return summary, nil
	}
	if err != nil {
		return summary, err
	}
	summary.Client = &models.Ref{ID: c.ID, Name: c.DisplayName(), Email: c.Email}
	return summary, nil
}

// ProjectFinancials reports what a project has collected, spent and still
// owes, with the completed client and employee transactions behind it.
func (s *Finance) ProjectFinancials(ctx context.Context, projectID string) (*models.ProjectFinancials, error) {
	p, err := findLiveProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	currency := p.Currency.OrDefault()
	amount := convertedOrRaw("t", fieldAmount, currency)

	var summary models.ProjectSummary
	var compensation, income, expenses, paidToEmployees float64
	var members int
	var clientLines, employeeLines []models.LedgerLine

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.projectSummary(gctx, p)
		return err
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, `
			SELECT COALESCE(SUM(`+convertedOrRaw("m", fieldCompensation, currency)+`), 0), COUNT(*)
			FROM project_members m
			WHERE m.project_id = ? AND m.removed_at IS NULL
		`, projectID).Scan(&compensation, &members)
		if err != nil {
			return internal(err, "error summing project compensation")
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, `
			SELECT
				COALESCE(SUM(CASE WHEN t.type = 'income' THEN `+amount+` END), 0),
				COALESCE(SUM(CASE WHEN t.type = 'expense' THEN `+amount+` END), 0),
				COALESCE(SUM(CASE WHEN t.type = 'expense' AND t.category IN `+employeePaymentCategories+` THEN `+amount+` END), 0)
			FROM transactions t
			WHERE t.project_id = ? AND t.status = 'completed'
		`, projectID).Scan(&income, &expenses, &paidToEmployees)
		if err != nil {
			return internal(err, "error summing project transactions")
		}
		return nil
	})
	g.Go(func() error {
		var err error
		clientLines, err = ledgerLines(gctx, s.db,
			" WHERE t.project_id = ? AND t.type = 'income' AND t.status = 'completed'", projectID)
		return err
	})
	g.Go(func() error {
		var err error
		employeeLines, err = ledgerLines(gctx, s.db,
			" WHERE t.project_id = ? AND t.category IN "+employeePaymentCategories+" AND t.status = 'completed'", projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	otherExpenses := expenses - paidToEmployees

	return &models.ProjectFinancials{
		Project: summary,
		Financials: models.ProjectFinancialFigures{
			Budget:                     roundMoney(p.Budget),
			TotalEmployeesCompensation: roundMoney(compensation),
			EmployeesCount:             members,
			MoneyCollected:             roundMoney(income),
			TotalExpenses:              roundMoney(expenses),
			PaidToEmployees:            roundMoney(paidToEmployees),
			OtherExpenses:              roundMoney(otherExpenses),
			ClientBalanceDue:           roundMoney(p.Budget - income),
			EmployeeBalanceDue:         roundMoney(compensation - paidToEmployees),
			GrossProfit:                roundMoney(p.Budget - compensation - otherExpenses),
			NetProfitToDate:            roundMoney(income - expenses),
		},
		Transactions: models.ProjectTransactions{
			ClientTransactions:   clientLines,
			EmployeeTransactions: employeeLines,
		},
	}, nil
}

// EmployeeBreakdown lists every active member with what they were promised,
// what they were paid and the payments themselves in their recorded currency.
func (s *Finance) EmployeeBreakdown(ctx context.Context, projectID string) (*models.EmployeeBreakdown, error) {
	p, err := findLiveProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	currency := p.Currency.OrDefault()

	type paidTotal struct {
		amount float64
		count  int
	}

	var breakdown []models.EmployeePayments
	paid := make(map[string]paidTotal)
	var lines []models.LedgerLine

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, `
			SELECT m.employee_id, u.name, u.email, pos.name, `+convertedOrRaw("m", fieldCompensation, currency)+`
			FROM project_members m
			LEFT JOIN employees e ON e.id = m.employee_id
			LEFT JOIN users u ON u.id = e.user_id
			LEFT JOIN positions pos ON pos.id = e.position_id
			WHERE m.project_id = ? AND m.removed_at IS NULL
			ORDER BY m.assigned_at
		`, projectID)
		if err != nil {
			return internal(err, "error loading project members")
		}
		defer rows.Close()

		for rows.Next() {
			var ep models.EmployeePayments
			var name, email, position sql.NullString
			var compensation float64
			if err := rows.Scan(&ep.Employee.ID, &name, &email, &position, &compensation); err != nil {
				return internal(err, "error scanning project member")
			}
			ep.Employee.Name = name.String
			ep.Employee.Email = email.String
			ep.Position = position.String
			ep.Compensation = roundMoney(compensation)
			ep.Currency = currency
			breakdown = append(breakdown, ep)
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, `
			SELECT t.employee_id, COALESCE(SUM(`+convertedOrRaw("t", fieldAmount, currency)+`), 0), COUNT(*)
			FROM transactions t
			WHERE t.project_id = ? AND t.employee_id IS NOT NULL
				AND t.category IN `+employeePaymentCategories+` AND t.status = 'completed'
			GROUP BY t.employee_id
		`, projectID)
		if err != nil {
			return internal(err, "error summing employee payments")
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			var total paidTotal
			if err := rows.Scan(&id, &total.amount, &total.count); err != nil {
				return internal(err, "error scanning employee payments")
			}
			paid[id] = total
		}
		return rows.Err()
	})
	g.Go(func() error {
		var err error
		lines, err = ledgerLines(gctx, s.db, ` WHERE t.project_id = ? AND t.employee_id IS NOT NULL
			AND t.category IN `+employeePaymentCategories+` AND t.status = 'completed'`, projectID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	byEmployee := make(map[string][]models.LedgerLine)
	for _, l := range lines {
		byEmployee[l.Employee.ID] = append(byEmployee[l.Employee.ID], l)
	}

	result := &models.EmployeeBreakdown{
		ProjectID:   p.ID,
		ProjectName: p.Name,
		Currency:    currency,
		Breakdown:   []models.EmployeePayments{},
	}
	for _, ep := range breakdown {
		total := paid[ep.Employee.ID]
		ep.Paid = roundMoney(total.amount)
		ep.Remaining = ep.Compensation - ep.Paid
		ep.PaymentCount = total.count
		ep.Payments = byEmployee[ep.Employee.ID]
		if ep.Payments == nil {
			ep.Payments = []models.LedgerLine{}
		}

		result.Summary.TotalCompensation += ep.Compensation
		result.Summary.TotalPaid += ep.Paid
		result.Summary.TotalRemaining += ep.Remaining
		result.Breakdown = append(result.Breakdown, ep)
	}
	result.Summary.EmployeesCount = len(result.Breakdown)

	return result, nil
}

// ClientPaymentHistory lists every client payment recorded against a
// project. Only completed payments count toward the collected total.
func (s *Finance) ClientPaymentHistory(ctx context.Context, projectID string) (*models.ClientPaymentHistory, error) {
	p, err := findLiveProject(ctx, s.db, projectID)
	if err != nil {
		return nil, err
	}
	currency := p.Currency.OrDefault()

	var summary models.ProjectSummary
	var payments []models.LedgerLine
	var collected float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		summary, err = s.projectSummary(gctx, p)
		return err
	})
	g.Go(func() error {
		var err error
		payments, err = ledgerLines(gctx, s.db,
			" WHERE t.project_id = ? AND t.type = 'income' AND t.category = 'client_payment'", projectID)
		return err
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, `
			SELECT COALESCE(SUM(`+convertedOrRaw("t", fieldAmount, currency)+`), 0)
			FROM transactions t
			WHERE t.project_id = ? AND t.type = 'income' AND t.category = 'client_payment' AND t.status = 'completed'
		`, projectID).Scan(&collected)
		if err != nil {
			return internal(err, "error summing client payments")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.ClientPaymentHistory{
		Project:  summary,
		Payments: payments,
		Summary: models.ClientPaymentSummary{
			TotalPayments:  len(payments),
			TotalCollected: roundMoney(collected),
			BalanceDue:     roundMoney(p.Budget - collected),
			PercentagePaid: percent(collected, p.Budget),
		},
	}, nil
}

// CompanyFinancials sums completed income and expenses across the company
// within an optional date window, expressed in currency.
func (s *Finance) CompanyFinancials(ctx context.Context, period models.Period, currency models.Currency) (*models.CompanyFinancials, error) {
	currency = currency.OrDefault()
	if !currency.Valid() {
		return nil, validation("unsupported currency %q", currency)
	}
	amount := convertedOrRaw("t", fieldAmount, currency)

	where := " WHERE t.status = 'completed'"
	args := []any{}
	if period.From != nil {
		where += " AND t.date >= ?"
		args = append(args, period.From.UTC())
	}
	if period.To != nil {
		where += " AND t.date <= ?"
		args = append(args, period.To.UTC())
	}

	var income, expenses, budget float64
	var incomeCount, expenseCount, activeProjects int

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, `
			SELECT
				COALESCE(SUM(CASE WHEN t.type = 'income' THEN `+amount+` END), 0),
				COALESCE(SUM(CASE WHEN t.type = 'expense' THEN `+amount+` END), 0),
				COUNT(CASE WHEN t.type = 'income' THEN 1 END),
				COUNT(CASE WHEN t.type = 'expense' THEN 1 END)
			FROM transactions t`+where, args...).Scan(&income, &expenses, &incomeCount, &expenseCount)
		if err != nil {
			return internal(err, "error summing company transactions")
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, `
			SELECT COUNT(*), COALESCE(SUM(`+convertedOrRaw("p", fieldBudget, currency)+`), 0)
			FROM projects p WHERE p.is_active = 1
		`).Scan(&activeProjects, &budget)
		if err != nil {
			return internal(err, "error summing project budgets")
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	net := income - expenses
	return &models.CompanyFinancials{
		Period:   period,
		Currency: currency,
		Summary: models.CompanySummary{
			TotalIncome:   roundMoney(income),
			TotalExpenses: roundMoney(expenses),
			NetProfit:     roundMoney(net),
			ProfitMargin:  percent(net, income),
		},
		Projects: models.CompanyProjects{
			ActiveCount: activeProjects,
			TotalBudget: roundMoney(budget),
			Uncollected: roundMoney(budget - income),
		},
		TransactionCounts: models.TransactionCounts{
			Income:  incomeCount,
			Expense: expenseCount,
		},
	}, nil
}
