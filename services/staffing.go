package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"agencyops/backend/database"
	"agencyops/backend/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// conversionConcurrency bounds the parallel rate lookups of one sync
const conversionConcurrency = 4

// Staffing keeps a project's membership rows in line with a declared roster
type Staffing struct {
	db        *sql.DB
	converter *Converter
	now       func() time.Time
}

func NewStaffing(db *sql.DB, converter *Converter) *Staffing {
	return &Staffing{db: db, converter: converter, now: time.Now}
}

// syncPlan is the set of writes needed to reach a roster. Members in adds,
// updates and reactivations carry the target compensation.
type syncPlan struct {
	projectID     string
	adds          []models.ProjectMember
	updates       []models.ProjectMember
	reactivations []models.ProjectMember
	removals      []string
	unchanged     int
}

func (p *syncPlan) result() models.SyncResult {
	return models.SyncResult{
		Added:       len(p.adds),
		Updated:     len(p.updates),
		Reactivated: len(p.reactivations),
		Removed:     len(p.removals),
		Unchanged:   p.unchanged,
	}
}

// SyncMembers makes the active members of a project match roster exactly.
// Every compensation is converted before anything is written; the writes
// then run in a single transaction.
func (s *Staffing) SyncMembers(ctx context.Context, projectID string, roster []models.RosterEntry) (models.SyncResult, error) {
	if _, err := findProject(ctx, s.db, projectID); err != nil {
		return models.SyncResult{}, err
	}

	plan, err := s.prepare(ctx, s.db, projectID, roster)
	if err != nil {
		return models.SyncResult{}, err
	}

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		return s.apply(ctx, tx, plan)
	})
	if err != nil {
		return models.SyncResult{}, err
	}

	return plan.result(), nil
}

// prepare validates the roster, plans the writes against the stored members
// and fills in converted compensation for every member that will be written.
func (s *Staffing) prepare(ctx context.Context, q querier, projectID string, roster []models.RosterEntry) (*syncPlan, error) {
	entries, err := normalizeRoster(roster)
	if err != nil {
		return nil, err
	}

	ids := make([]string, len(entries))
	for i, e := range entries {
		ids[i] = e.EmployeeID
	}
	if err := checkRosterEmployees(ctx, q, ids); err != nil {
		return nil, err
	}

	existing, err := loadMembers(ctx, q, projectID)
	if err != nil {
		return nil, err
	}

	plan := planSync(projectID, existing, entries)
	if err := s.convert(ctx, plan); err != nil {
		return nil, err
	}
	return plan, nil
}

// normalizeRoster validates each entry and applies the default currency.
// An employee may appear only once.
func normalizeRoster(roster []models.RosterEntry) ([]models.RosterEntry, error) {
	out := make([]models.RosterEntry, 0, len(roster))
	seen := make(map[string]bool, len(roster))

	for _, entry := range roster {
		id := strings.TrimSpace(entry.EmployeeID)
		if id == "" {
			return nil, validation("roster entry is missing an employee")
		}
		if seen[id] {
			return nil, validation("employee %s appears more than once in the roster", id)
		}
		seen[id] = true

		if err := checkAmount(entry.Compensation); err != nil {
			return nil, validation("compensation must be a non-negative number")
		}
		currency, err := parseCurrencyOrDefault(string(entry.Currency))
		if err != nil {
			return nil, err
		}

		out = append(out, models.RosterEntry{EmployeeID: id, Compensation: entry.Compensation, Currency: currency})
	}
	return out, nil
}

// planSync diffs the stored members of a project against the normalized
// roster. It performs no I/O.
func planSync(projectID string, existing []models.ProjectMember, roster []models.RosterEntry) *syncPlan {
	active := make(map[string]models.ProjectMember)
	removed := make(map[string]models.ProjectMember)
	for _, m := range existing {
		if m.Active() {
			active[m.EmployeeID] = m
		} else {
			removed[m.EmployeeID] = m
		}
	}

	plan := &syncPlan{projectID: projectID}
	incoming := make(map[string]bool, len(roster))

	for _, entry := range roster {
		incoming[entry.EmployeeID] = true

		if m, ok := active[entry.EmployeeID]; ok {
			if m.Compensation == entry.Compensation && m.Currency == entry.Currency {
				plan.unchanged++
				continue
			}
			m.Compensation = entry.Compensation
			m.Currency = entry.Currency
			plan.updates = append(plan.updates, m)
			continue
		}

		if m, ok := removed[entry.EmployeeID]; ok {
			m.Compensation = entry.Compensation
			m.Currency = entry.Currency
			plan.reactivations = append(plan.reactivations, m)
			continue
		}

		plan.adds = append(plan.adds, models.ProjectMember{
			ProjectID:    projectID,
			EmployeeID:   entry.EmployeeID,
			Compensation: entry.Compensation,
			Currency:     entry.Currency,
		})
	}

	for _, m := range existing {
		if m.Active() && !incoming[m.EmployeeID] {
			plan.removals = append(plan.removals, m.ID)
		}
	}

	return plan
}

// convert fills CompensationConverted on every member the plan writes. All
// conversions are attempted; the error names every employee that failed.
func (s *Staffing) convert(ctx context.Context, plan *syncPlan) error {
	var targets []*models.ProjectMember
	for _, group := range [][]models.ProjectMember{plan.adds, plan.updates, plan.reactivations} {
		for i := range group {
			targets = append(targets, &group[i])
		}
	}
	if len(targets) == 0 {
		return nil
	}

	errs := make([]error, len(targets))
	var g errgroup.Group
	g.SetLimit(conversionConcurrency)
	for i, m := range targets {
		i, m := i, m
		g.Go(func() error {
			converted, err := s.converter.ConvertToAll(ctx, m.Compensation, m.Currency)
			if err != nil {
				errs[i] = err
				return nil
			}
			m.CompensationConverted = converted
			return nil
		})
	}
	_ = g.Wait()

	var failed []string
	var kind ErrorKind
	var joined []error
	for i, err := range errs {
		if err == nil {
			continue
		}
		if len(failed) == 0 {
			kind = KindOf(err)
		}
		failed = append(failed, targets[i].EmployeeID)
		joined = append(joined, fmt.Errorf("employee %s: %w", targets[i].EmployeeID, err))
	}
	if len(failed) == 0 {
		return nil
	}

	return &Error{
		Kind:    kind,
		Message: fmt.Sprintf("compensation conversion failed for employees: %s", strings.Join(failed, ", ")),
		Err:     errors.Join(joined...),
	}
}

// apply executes a converted plan inside tx
func (s *Staffing) apply(ctx context.Context, tx *sql.Tx, plan *syncPlan) error {
	now := s.now().UTC()

	for _, m := range plan.adds {
		args := []any{uuid.NewString(), plan.projectID, m.EmployeeID, m.Compensation, m.Currency}
		args = append(args, m.CompensationConverted.Values()...)
		args = append(args, now)

		_, err := tx.ExecContext(ctx, `
			INSERT INTO project_members (id, project_id, employee_id, compensation, currency, `+
			convertedColumns("", fieldCompensation)+`, assigned_at)
			VALUES (`+placeholders(len(args))+`)
		`, args...)
		if err != nil {
			return writeError(err, "Employee is already a member of this project")
		}
	}

	setCompensation := "compensation = ?, currency = ?"
	for _, c := range models.Currencies {
		setCompensation += ", " + convertedColumn(fieldCompensation, c) + " = ?"
	}

	for _, m := range plan.updates {
		args := []any{m.Compensation, m.Currency}
		args = append(args, m.CompensationConverted.Values()...)
		args = append(args, m.ID)
		if _, err := tx.ExecContext(ctx, "UPDATE project_members SET "+setCompensation+" WHERE id = ?", args...); err != nil {
			return writeError(err, "error updating project member")
		}
	}

	for _, m := range plan.reactivations {
		args := []any{m.Compensation, m.Currency}
		args = append(args, m.CompensationConverted.Values()...)
		args = append(args, now, m.ID)
		_, err := tx.ExecContext(ctx,
			"UPDATE project_members SET "+setCompensation+", removed_at = NULL, assigned_at = ? WHERE id = ?", args...)
		if err != nil {
			return writeError(err, "error reactivating project member")
		}
	}

	if len(plan.removals) > 0 {
		args := append([]any{now}, stringArgs(plan.removals)...)
		_, err := tx.ExecContext(ctx,
			fmt.Sprintf("UPDATE project_members SET removed_at = ? WHERE id IN (%s)", placeholders(len(plan.removals))),
			args...)
		if err != nil {
			return writeError(err, "error removing project members")
		}
	}

	return nil
}

// checkRosterEmployees requires every id to be an existing active employee
func checkRosterEmployees(ctx context.Context, q querier, ids []string) error {
	if len(ids) == 0 {
		return nil
	}

	var found, active int
	err := q.QueryRowContext(ctx, fmt.Sprintf(`
		SELECT COUNT(*), COALESCE(SUM(CASE WHEN %s THEN 1 ELSE 0 END), 0)
		FROM employees e
		LEFT JOIN users u ON u.id = e.user_id
		WHERE e.id IN (%s)
	`, activeUserCondition, placeholders(len(ids))), stringArgs(ids)...).Scan(&found, &active)
	if err != nil {
		return internal(err, "error checking roster employees")
	}

	if found != len(ids) {
		return notFound("One or more employees not found")
	}
	if active != len(ids) {
		return inactive("One or more employees are inactive")
	}
	return nil
}

var memberColumns = `m.id, m.project_id, m.employee_id, m.compensation, m.currency, ` +
	convertedColumns("m", fieldCompensation) + `, m.assigned_at, m.removed_at`

func scanMember(row rowScanner, extra ...any) (*models.ProjectMember, error) {
	var m models.ProjectMember
	var removedAt sql.NullTime

	dest := []any{&m.ID, &m.ProjectID, &m.EmployeeID, &m.Compensation, &m.Currency}
	dest = append(dest, m.CompensationConverted.ScanTargets()...)
	dest = append(dest, &m.AssignedAt, &removedAt)
	dest = append(dest, extra...)

	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	m.RemovedAt = timePtr(removedAt)
	return &m, nil
}

// loadMembers returns every membership row of a project, removed ones included
func loadMembers(ctx context.Context, q querier, projectID string) ([]models.ProjectMember, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+memberColumns+" FROM project_members m WHERE m.project_id = ?", projectID)
	if err != nil {
		return nil, internal(err, "error loading project members")
	}
	defer rows.Close()

	var members []models.ProjectMember
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, internal(err, "error scanning project member")
		}
		members = append(members, *m)
	}
	if err := rows.Err(); err != nil {
		return nil, internal(err, "error iterating project members")
	}
	return members, nil
}
