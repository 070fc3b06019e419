package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"agencyops/backend/models"
)

// querier is satisfied by both *sql.DB and *sql.Tx
type querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// activeUserCondition is the storage form of models.IsEmployeeActive for a
// users table aliased u
const activeUserCondition = "u.is_active = 1 AND u.deleted_at IS NULL"

// Monetary fields that carry per-currency columns
const (
	fieldAmount       = "amount"
	fieldBudget       = "budget"
	fieldCompensation = "compensation"
)

// convertedColumn maps a monetary field and a currency to its stored column.
// Both inputs come from closed sets; unknown currencies fall back to the
// default currency column.
func convertedColumn(field string, c models.Currency) string {
	switch field {
	case fieldAmount, fieldBudget, fieldCompensation:
	default:
		panic("unknown monetary field " + field)
	}
	switch c {
	case models.CurrencySAR:
		return field + "_sar"
	case models.CurrencyAED:
		return field + "_aed"
	case models.CurrencyUSD:
		return field + "_usd"
	case models.CurrencyEUR:
		return field + "_eur"
	}
	return field + "_egp"
}

// convertedColumns lists the per-currency columns of field in
// models.Currencies order, qualified by alias when one is given
func convertedColumns(alias, field string) string {
	cols := make([]string, 0, len(models.Currencies))
	for _, c := range models.Currencies {
		col := convertedColumn(field, c)
		if alias != "" {
			col = alias + "." + col
		}
		cols = append(cols, col)
	}
	return strings.Join(cols, ", ")
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: t.UTC(), Valid: true}
}

func timePtr(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

// placeholders returns "?, ?, ?" for n arguments
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, v := range values {
		args[i] = v
	}
	return args
}

// dedupe drops empty and repeated ids while keeping order
func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}

var projectColumns = `id, name, description, client_id, department_id, budget, currency, ` +
	convertedColumns("", fieldBudget) +
	`, status, priority, start_date, end_date, is_active, created_by, created_at, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProject(row rowScanner) (*models.Project, error) {
	var p models.Project
	var description, department sql.NullString
	var start, end sql.NullTime

	dest := []any{&p.ID, &p.Name, &description, &p.ClientID, &department, &p.Budget, &p.Currency}
	dest = append(dest, p.BudgetConverted.ScanTargets()...)
	dest = append(dest, &p.Status, &p.Priority, &start, &end, &p.IsActive, &p.CreatedBy, &p.CreatedAt, &p.UpdatedAt)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	p.Description = description.String
	p.DepartmentID = department.String
	p.StartDate = timePtr(start)
	p.EndDate = timePtr(end)
	return &p, nil
}

func findProject(ctx context.Context, q querier, id string) (*models.Project, error) {
	p, err := scanProject(q.QueryRowContext(ctx, "SELECT "+projectColumns+" FROM projects WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Project not found")
	}
	if err != nil {
		return nil, internal(err, "error loading project %s", id)
	}
	return p, nil
}

// findActiveProject treats a soft deleted project as Inactive
func findActiveProject(ctx context.Context, q querier, id string) (*models.Project, error) {
	p, err := findProject(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, inactive("Project %s is not active", p.Name)
	}
	return p, nil
}

// findLiveProject treats a soft deleted project as missing, the way the
// financial views do
func findLiveProject(ctx context.Context, q querier, id string) (*models.Project, error) {
	p, err := findProject(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if !p.IsActive {
		return nil, notFound("Project not found")
	}
	return p, nil
}

func findClient(ctx context.Context, q querier, id string) (*models.Client, error) {
	var c models.Client
	var company, email sql.NullString
	err := q.QueryRowContext(ctx,
		"SELECT id, name, company_name, email, is_active FROM clients WHERE id = ?", id,
	).Scan(&c.ID, &c.Name, &company, &email, &c.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Client not found")
	}
	if err != nil {
		return nil, internal(err, "error loading client %s", id)
	}
	c.CompanyName = company.String
	c.Email = email.String
	return &c, nil
}

func findActiveClient(ctx context.Context, q querier, id string) (*models.Client, error) {
	c, err := findClient(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if !c.IsActive {
		return nil, inactive("Client %s is not active", c.DisplayName())
	}
	return c, nil
}

// findEmployee loads an employee with its linked user. The user is nil when
// the link is dangling.
func findEmployee(ctx context.Context, q querier, id string) (*models.Employee, *models.User, error) {
	var e models.Employee
	var userID, name, email, phone, role, currency sql.NullString
	var isActive sql.NullBool
	var deletedAt sql.NullTime

	err := q.QueryRowContext(ctx, `
		SELECT e.id, e.user_id, e.department_id, e.position_id, e.employment_type, e.created_at, e.updated_at,
			u.id, u.name, u.email, u.phone, u.role, u.currency, u.is_active, u.deleted_at
		FROM employees e
		LEFT JOIN users u ON u.id = e.user_id
		WHERE e.id = ?
	`, id).Scan(&e.ID, &e.UserID, &e.DepartmentID, &e.PositionID, &e.EmploymentType, &e.CreatedAt, &e.UpdatedAt,
		&userID, &name, &email, &phone, &role, &currency, &isActive, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil, notFound("Employee not found")
	}
	if err != nil {
		return nil, nil, internal(err, "error loading employee %s", id)
	}

	if !userID.Valid {
		return &e, nil, nil
	}
	u := &models.User{
		ID:        userID.String,
		Name:      name.String,
		Email:     email.String,
		Phone:     phone.String,
		Role:      role.String,
		Currency:  models.Currency(currency.String),
		IsActive:  isActive.Bool,
		DeletedAt: timePtr(deletedAt),
	}
	return &e, u, nil
}

// findActiveEmployee requires the employee's user to be active
func findActiveEmployee(ctx context.Context, q querier, id string) (*models.Employee, *models.User, error) {
	e, u, err := findEmployee(ctx, q, id)
	if err != nil {
		return nil, nil, err
	}
	if !models.IsEmployeeActive(u) {
		return nil, nil, inactive("Employee is not active")
	}
	return e, u, nil
}

func hasActiveMembership(ctx context.Context, q querier, projectID, employeeID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM project_members WHERE project_id = ? AND employee_id = ? AND removed_at IS NULL",
		projectID, employeeID,
	).Scan(&count)
	if err != nil {
		return false, internal(err, "error checking project membership")
	}
	return count > 0, nil
}

func findDepartment(ctx context.Context, q querier, id string) (*models.Department, error) {
	var d models.Department
	err := q.QueryRowContext(ctx, "SELECT id, name, is_active FROM departments WHERE id = ?", id).
		Scan(&d.ID, &d.Name, &d.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Department not found")
	}
	if err != nil {
		return nil, internal(err, "error loading department %s", id)
	}
	return &d, nil
}

func findActiveDepartment(ctx context.Context, q querier, id string) (*models.Department, error) {
	d, err := findDepartment(ctx, q, id)
	if err != nil {
		return nil, err
	}
	if !d.IsActive {
		return nil, inactive("Department %s is not active", d.Name)
	}
	return d, nil
}

// positionInDepartment reports whether the position exists under department
func positionInDepartment(ctx context.Context, q querier, positionID, departmentID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM positions WHERE id = ? AND department_id = ?", positionID, departmentID,
	).Scan(&count)
	if err != nil {
		return false, internal(err, "error checking position")
	}
	return count > 0, nil
}

// countSkillsInPosition counts how many of skillIDs belong to the position
func countSkillsInPosition(ctx context.Context, q querier, skillIDs []string, positionID string) (int, error) {
	if len(skillIDs) == 0 {
		return 0, nil
	}
	args := append(stringArgs(skillIDs), positionID)
	var count int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM skills WHERE id IN (%s) AND position_id = ?", placeholders(len(skillIDs))),
		args...,
	).Scan(&count)
	if err != nil {
		return 0, internal(err, "error checking skills")
	}
	return count, nil
}

// countActive counts the ids present and active in table. Only called with
// table names from this package.
func countActive(ctx context.Context, q querier, table string, ids []string) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	var count int
	err := q.QueryRowContext(ctx,
		fmt.Sprintf("SELECT COUNT(*) FROM %s WHERE id IN (%s) AND is_active = 1", table, placeholders(len(ids))),
		stringArgs(ids)...,
	).Scan(&count)
	if err != nil {
		return 0, internal(err, "error checking %s", table)
	}
	return count, nil
}
