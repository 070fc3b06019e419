package services

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"time"

	"agencyops/backend/models"

	"golang.org/x/sync/errgroup"
)

const recentProjectsLimit = 10

// Analytics builds the dashboard views. Every figure is read from the
// precomputed column of the requested display currency.
type Analytics struct {
	db  *sql.DB
	now func() time.Time
}

func NewAnalytics(db *sql.DB) *Analytics {
	return &Analytics{db: db, now: time.Now}
}

// OverviewQuery selects the window of an overview. Without Lifetime, a nil
// From defaults to the start of the current month and a nil To to today.
// To always extends to the end of its day.
type OverviewQuery struct {
	From     *time.Time
	To       *time.Time
	Lifetime bool
	Currency models.Currency
}

// displayAmount sums the converted value of a row when it is positive and
// the raw value otherwise, rounding each row to whole units
func displayAmount(alias, field string, c models.Currency) string {
	col := alias + "." + convertedColumn(field, c)
	raw := alias + "." + field
	return fmt.Sprintf("CASE WHEN %s > 0 THEN ROUND(%s) ELSE ROUND(%s) END", col, col, raw)
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Millisecond), t.Location())
}

// window resolves q into concrete bounds, or a lifetime period
func (s *Analytics) window(q OverviewQuery) models.Period {
	if q.Lifetime {
		return models.Period{Lifetime: true}
	}

	now := s.now().UTC()
	from := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	if q.From != nil {
		from = q.From.UTC()
	}
	to := endOfDay(now)
	if q.To != nil {
		to = endOfDay(q.To.UTC())
	}
	return models.Period{From: &from, To: &to}
}

// Overview returns the windowed financial summary, the income-by-department
// quarter pivot, the lifetime monthly income trend and the latest projects.
func (s *Analytics) Overview(ctx context.Context, q OverviewQuery) (*models.Overview, error) {
	currency := q.Currency.OrDefault()
	if !currency.Valid() {
		return nil, validation("unsupported currency %q", currency)
	}

	period := s.window(q)
	amount := displayAmount("t", fieldAmount, currency)

	where := " WHERE t.status = 'completed'"
	args := []any{}
	if !period.Lifetime {
		where += " AND t.date >= ? AND t.date <= ?"
		args = append(args, *period.From, *period.To)
	}

	result := &models.Overview{Period: period, Currency: currency}
	var income, salaries, other float64

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, `
			SELECT
				COALESCE(SUM(CASE WHEN t.type = 'income' THEN `+amount+` END), 0),
				COALESCE(SUM(CASE WHEN t.type = 'expense' AND t.category = 'employee_salary' THEN `+amount+` END), 0),
				COALESCE(SUM(CASE WHEN t.type = 'expense' AND t.category <> 'employee_salary' THEN `+amount+` END), 0)
			FROM transactions t`+where, args...).Scan(&income, &salaries, &other)
		if err != nil {
			return internal(err, "error summing overview totals")
		}
		return nil
	})
	g.Go(func() error {
		pivot, err := s.incomeByDepartment(gctx, amount, where, args)
		if err != nil {
			return err
		}
		result.Charts.IncomeByDepartment = pivot
		return nil
	})
	g.Go(func() error {
		trend, err := s.growthTrend(gctx, amount)
		if err != nil {
			return err
		}
		result.Charts.GrowthTrend = trend
		return nil
	})
	g.Go(func() error {
		projects, err := s.recentProjects(gctx, currency)
		if err != nil {
			return err
		}
		result.RecentProjects = projects
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	net := income - salaries - other
	result.Financials = models.OverviewFinancials{
		TotalIncome:   roundMoney(income),
		TotalSalaries: roundMoney(salaries),
		OtherExpenses: roundMoney(other),
		NetProfit:     roundMoney(net),
		ProfitMargin:  percent(net, income),
	}
	return result, nil
}

// incomeByDepartment pivots windowed income by project department and
// calendar quarter. Quarters of different years share a bucket.
func (s *Analytics) incomeByDepartment(ctx context.Context, amount, where string, args []any) ([]models.QuarterIncome, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT (CAST(strftime('%m', t.date) AS INTEGER) + 2) / 3 AS quarter,
			COALESCE(d.name, ?) AS department,
			SUM(`+amount+`)
		FROM transactions t
		LEFT JOIN projects p ON p.id = t.project_id
		LEFT JOIN departments d ON d.id = p.department_id`+
		where+` AND t.type = 'income'
		GROUP BY quarter, department
		ORDER BY quarter, department
	`, append([]any{models.UnassignedDepartment}, args...)...)
	if err != nil {
		return nil, internal(err, "error grouping income by department")
	}
	defer rows.Close()

	byQuarter := make(map[int]map[string]int64)
	for rows.Next() {
		var quarter int
		var department string
		var total float64
		if err := rows.Scan(&quarter, &department, &total); err != nil {
			return nil, internal(err, "error scanning department income")
		}
		if byQuarter[quarter] == nil {
			byQuarter[quarter] = make(map[string]int64)
		}
		byQuarter[quarter][department] += roundMoney(total)
	}
	if err := rows.Err(); err != nil {
		return nil, internal(err, "error iterating department income")
	}

	quarters := make([]int, 0, len(byQuarter))
	for q := range byQuarter {
		quarters = append(quarters, q)
	}
	sort.Ints(quarters)

	pivot := make([]models.QuarterIncome, 0, len(quarters))
	for _, q := range quarters {
		pivot = append(pivot, models.QuarterIncome{Quarter: fmt.Sprintf("Q%d", q), Departments: byQuarter[q]})
	}
	return pivot, nil
}

// growthTrend groups all completed income by year and month, oldest first
func (s *Analytics) growthTrend(ctx context.Context, amount string) ([]models.GrowthPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT CAST(strftime('%Y', t.date) AS INTEGER) AS year,
			CAST(strftime('%m', t.date) AS INTEGER) AS month,
			SUM(`+amount+`)
		FROM transactions t
		WHERE t.type = 'income' AND t.status = 'completed'
		GROUP BY year, month
		ORDER BY year, month
	`)
	if err != nil {
		return nil, internal(err, "error grouping monthly income")
	}
	defer rows.Close()

	trend := []models.GrowthPoint{}
	for rows.Next() {
		var p models.GrowthPoint
		var total float64
		if err := rows.Scan(&p.Year, &p.Month, &total); err != nil {
			return nil, internal(err, "error scanning monthly income")
		}
		p.Value = roundMoney(total)
		trend = append(trend, p)
	}
	if err := rows.Err(); err != nil {
		return nil, internal(err, "error iterating monthly income")
	}
	return trend, nil
}

func (s *Analytics) recentProjects(ctx context.Context, currency models.Currency) ([]models.RecentProject, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT p.id, p.name, c.name, c.company_name, d.name, p.status, p.start_date, p.end_date,
			`+displayAmount("p", fieldBudget, currency)+`
		FROM projects p
		LEFT JOIN clients c ON c.id = p.client_id
		LEFT JOIN departments d ON d.id = p.department_id
		WHERE p.is_active = 1
		ORDER BY p.created_at DESC
		LIMIT ?
	`, recentProjectsLimit)
	if err != nil {
		return nil, internal(err, "error loading recent projects")
	}
	defer rows.Close()

	projects := []models.RecentProject{}
	for rows.Next() {
		var p models.RecentProject
		var clientName, clientCompany, department sql.NullString
		var start, end sql.NullTime
		var budget float64
		err := rows.Scan(&p.ID, &p.Name, &clientName, &clientCompany, &department, &p.Status, &start, &end, &budget)
		if err != nil {
			return nil, internal(err, "error scanning recent project")
		}
		p.Client = models.Client{Name: clientName.String, CompanyName: clientCompany.String}.DisplayName()
		p.Department = department.String
		p.StartDate = timePtr(start)
		p.EndDate = timePtr(end)
		p.Budget = roundMoney(budget)
		projects = append(projects, p)
	}
	if err := rows.Err(); err != nil {
		return nil, internal(err, "error iterating recent projects")
	}
	return projects, nil
}

// Stats returns lifetime counts and per-department spending against the
// budgets of active projects, in currency.
func (s *Analytics) Stats(ctx context.Context, currency models.Currency) (*models.Stats, error) {
	currency = currency.OrDefault()
	if !currency.Valid() {
		return nil, validation("unsupported currency %q", currency)
	}

	var counts models.StatsCounts
	var completedActive int
	spent := make(map[string]float64)
	names := make(map[string]string)
	var order []string
	budgets := make(map[string]float64)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, `
			SELECT COUNT(*),
				COALESCE(SUM(CASE WHEN is_active = 1 THEN 1 ELSE 0 END), 0),
				COALESCE(SUM(CASE WHEN is_active = 1 AND status = 'completed' THEN 1 ELSE 0 END), 0)
			FROM projects
		`).Scan(&counts.TotalProjects, &counts.ActiveProjects, &completedActive)
		if err != nil {
			return internal(err, "error counting projects")
		}
		return nil
	})
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, `
			SELECT COUNT(*) FROM employees e JOIN users u ON u.id = e.user_id WHERE `+activeUserCondition,
		).Scan(&counts.ActiveEmployees)
		if err != nil {
			return internal(err, "error counting active employees")
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, `
			SELECT d.id, d.name, SUM(`+displayAmount("t", fieldAmount, currency)+`)
			FROM transactions t
			JOIN projects p ON p.id = t.project_id
			JOIN departments d ON d.id = p.department_id
			WHERE t.type = 'expense' AND t.status = 'completed'
			GROUP BY d.id, d.name
			ORDER BY d.name
		`)
		if err != nil {
			return internal(err, "error summing department expenses")
		}
		defer rows.Close()

		for rows.Next() {
			var id, name string
			var total float64
			if err := rows.Scan(&id, &name, &total); err != nil {
				return internal(err, "error scanning department expenses")
			}
			spent[id] = total
			names[id] = name
			order = append(order, id)
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, `
			SELECT p.department_id, SUM(`+displayAmount("p", fieldBudget, currency)+`)
			FROM projects p
			WHERE p.is_active = 1 AND p.department_id IS NOT NULL
			GROUP BY p.department_id
		`)
		if err != nil {
			return internal(err, "error summing department budgets")
		}
		defer rows.Close()

		for rows.Next() {
			var id string
			var total float64
			if err := rows.Scan(&id, &total); err != nil {
				return internal(err, "error scanning department budgets")
			}
			budgets[id] = total
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	counts.AvgCompletion = percent(float64(completedActive), float64(counts.ActiveProjects))

	departments := make([]models.DepartmentProgress, 0, len(order))
	for _, id := range order {
		progress := models.DepartmentProgress{
			ID:     id,
			Name:   names[id],
			Spent:  roundMoney(spent[id]),
			Budget: roundMoney(budgets[id]),
		}
		progress.Percent = percent(float64(progress.Spent), float64(progress.Budget))
		departments = append(departments, progress)
	}

	return &models.Stats{Currency: currency, Counts: counts, Departments: departments}, nil
}
