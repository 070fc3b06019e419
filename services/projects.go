package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"agencyops/backend/database"
	"agencyops/backend/models"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Projects handles project writes and project reads
type Projects struct {
	db        *sql.DB
	converter *Converter
	staffing  *Staffing
	now       func() time.Time
}

func NewProjects(db *sql.DB, converter *Converter, staffing *Staffing) *Projects {
	return &Projects{db: db, converter: converter, staffing: staffing, now: time.Now}
}

// Create validates the references of in, converts the budget and stores the
// project with its services and roster in one transaction.
func (s *Projects) Create(ctx context.Context, in models.ProjectInput, actorID string) (string, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return "", validation("project name is required")
	}
	if in.ClientID == "" {
		return "", validation("client is required")
	}
	if in.DepartmentID == "" {
		return "", validation("department is required")
	}
	if err := checkAmount(in.Budget); err != nil {
		return "", validation("budget must be a non-negative number")
	}
	currency, err := parseCurrencyOrDefault(string(in.Currency))
	if err != nil {
		return "", err
	}

	status := models.ProjectPlanning
	if in.Status != "" {
		var ok bool
		if status, ok = models.NormalizeEnum(string(in.Status), models.ProjectStatuses); !ok {
			return "", validation("invalid project status %q", in.Status)
		}
	}
	priority := models.PriorityNormal
	if in.Priority != "" {
		var ok bool
		if priority, ok = models.NormalizeEnum(string(in.Priority), models.ProjectPriorities); !ok {
			return "", validation("invalid project priority %q", in.Priority)
		}
	}

	serviceIDs := dedupe(in.ServiceIDs)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		_, err := findActiveClient(gctx, s.db, in.ClientID)
		return err
	})
	g.Go(func() error {
		_, err := findActiveDepartment(gctx, s.db, in.DepartmentID)
		return err
	})
	g.Go(func() error {
		return checkServices(gctx, s.db, serviceIDs)
	})
	if err := g.Wait(); err != nil {
		return "", err
	}

	budget, err := s.converter.ConvertToAll(ctx, in.Budget, currency)
	if err != nil {
		return "", err
	}

	id := uuid.NewString()
	plan, err := s.staffing.prepare(ctx, s.db, id, in.Employees)
	if err != nil {
		return "", err
	}

	now := s.now().UTC()
	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		args := []any{id, name, nullString(strings.TrimSpace(in.Description)), in.ClientID, nullString(in.DepartmentID),
			in.Budget, currency}
		args = append(args, budget.Values()...)
		args = append(args, status, priority, nullTime(in.StartDate), nullTime(in.EndDate), actorID, now, now)

		_, err := tx.ExecContext(ctx, `
			INSERT INTO projects (id, name, description, client_id, department_id, budget, currency, `+
			convertedColumns("", fieldBudget)+`,
				status, priority, start_date, end_date, created_by, created_at, updated_at)
			VALUES (`+placeholders(len(args))+`)
		`, args...)
		if err != nil {
			return writeError(err, "Project already exists")
		}

		if err := replaceServices(ctx, tx, id, serviceIDs); err != nil {
			return err
		}
		return s.staffing.apply(ctx, tx, plan)
	})
	if err != nil {
		return "", err
	}

	log.Printf("Project %s created by %s with %d members", id, actorID, len(plan.adds))
	return id, nil
}

// Update applies the fields present in u. Changing budget or currency
// reconverts the budget; a non-nil roster is synced in the same transaction.
func (s *Projects) Update(ctx context.Context, id string, u models.ProjectUpdate) error {
	current, err := findProject(ctx, s.db, id)
	if err != nil {
		return err
	}

	sets := []string{}
	args := []any{}
	set := func(column string, value any) {
		sets = append(sets, column+" = ?")
		args = append(args, value)
	}

	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return validation("project name cannot be empty")
		}
		set("name", name)
	}
	if u.Description != nil {
		set("description", nullString(strings.TrimSpace(*u.Description)))
	}
	if u.Status != nil {
		v, ok := models.NormalizeEnum(string(*u.Status), models.ProjectStatuses)
		if !ok {
			return validation("invalid project status %q", *u.Status)
		}
		set("status", v)
	}
	if u.Priority != nil {
		v, ok := models.NormalizeEnum(string(*u.Priority), models.ProjectPriorities)
		if !ok {
			return validation("invalid project priority %q", *u.Priority)
		}
		set("priority", v)
	}
	if u.StartDate != nil {
		set("start_date", nullTime(u.StartDate))
	}
	if u.EndDate != nil {
		set("end_date", nullTime(u.EndDate))
	}

	var serviceIDs []string
	if u.ServiceIDs != nil {
		serviceIDs = dedupe(*u.ServiceIDs)
	}

	g, gctx := errgroup.WithContext(ctx)
	if u.ClientID != nil && *u.ClientID != "" {
		g.Go(func() error {
			_, err := findActiveClient(gctx, s.db, *u.ClientID)
			return err
		})
		set("client_id", *u.ClientID)
	}
	if u.DepartmentID != nil && *u.DepartmentID != "" {
		g.Go(func() error {
			_, err := findActiveDepartment(gctx, s.db, *u.DepartmentID)
			return err
		})
		set("department_id", *u.DepartmentID)
	}
	if len(serviceIDs) > 0 {
		g.Go(func() error {
			return checkServices(gctx, s.db, serviceIDs)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	if u.Budget != nil || u.Currency != nil {
		budget, currency := current.Budget, current.Currency.OrDefault()
		if u.Budget != nil {
			if err := checkAmount(*u.Budget); err != nil {
				return validation("budget must be a non-negative number")
			}
			budget = *u.Budget
		}
		if u.Currency != nil {
			if currency, err = parseCurrencyOrDefault(string(*u.Currency)); err != nil {
				return err
			}
		}

		converted, err := s.converter.ConvertToAll(ctx, budget, currency)
		if err != nil {
			return err
		}
		set("budget", budget)
		set("currency", currency)
		values := converted.Values()
		for i, c := range models.Currencies {
			set(convertedColumn(fieldBudget, c), values[i])
		}
	}

	var plan *syncPlan
	if u.Employees != nil {
		if plan, err = s.staffing.prepare(ctx, s.db, id, *u.Employees); err != nil {
			return err
		}
	}

	set("updated_at", s.now().UTC())

	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		query := fmt.Sprintf("UPDATE projects SET %s WHERE id = ?", strings.Join(sets, ", "))
		if _, err := tx.ExecContext(ctx, query, append(args, id)...); err != nil {
			return writeError(err, "Project update conflicts with an existing record")
		}
		if u.ServiceIDs != nil {
			if err := replaceServices(ctx, tx, id, serviceIDs); err != nil {
				return err
			}
		}
		if plan != nil {
			return s.staffing.apply(ctx, tx, plan)
		}
		return nil
	})
}

// SoftDelete marks a project inactive. Its rows and transactions are kept.
func (s *Projects) SoftDelete(ctx context.Context, id string) error {
	if _, err := findProject(ctx, s.db, id); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx, "UPDATE projects SET is_active = 0, updated_at = ? WHERE id = ?", s.now().UTC(), id)
	if err != nil {
		return internal(err, "error deleting project %s", id)
	}
	return nil
}

// ToggleActive flips the active flag and returns the new value
func (s *Projects) ToggleActive(ctx context.Context, id string) (bool, error) {
	p, err := findProject(ctx, s.db, id)
	if err != nil {
		return false, err
	}
	active := !p.IsActive
	_, err = s.db.ExecContext(ctx, "UPDATE projects SET is_active = ?, updated_at = ? WHERE id = ?", active, s.now().UTC(), id)
	if err != nil {
		return false, internal(err, "error updating project %s", id)
	}
	return active, nil
}

// Get returns a project with its client, department, services and active
// members resolved
func (s *Projects) Get(ctx context.Context, id string) (*models.ProjectDetail, error) {
	p, err := findProject(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	detail := &models.ProjectDetail{Project: *p, Services: []models.Ref{}, Members: []models.MemberView{}}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var name, company sql.NullString
		err := s.db.QueryRowContext(gctx, "SELECT name, company_name FROM clients WHERE id = ?", p.ClientID).Scan(&name, &company)
		if errors.Is(err, sql.ErrNoRows) {
			return nil
		}
		if err != nil {
			return internal(err, "error loading project client")
		}
		c := models.Client{Name: name.String, CompanyName: company.String}
		detail.Client = &models.Ref{ID: p.ClientID, Name: c.DisplayName()}
		return nil
	})
	if p.DepartmentID != "" {
		g.Go(func() error {
			var name string
			err := s.db.QueryRowContext(gctx, "SELECT name FROM departments WHERE id = ?", p.DepartmentID).Scan(&name)
			if errors.Is(err, sql.ErrNoRows) {
				return nil
			}
			if err != nil {
				return internal(err, "error loading project department")
			}
			detail.Department = &models.Ref{ID: p.DepartmentID, Name: name}
			return nil
		})
	}
	g.Go(func() error {
		refs, err := queryRefs(gctx, s.db, `
			SELECT sv.id, sv.name FROM project_services ps
			JOIN services sv ON sv.id = ps.service_id
			WHERE ps.project_id = ? ORDER BY sv.name
		`, id)
		if err != nil {
			return internal(err, "error loading project services")
		}
		detail.Services = refs
		return nil
	})
	g.Go(func() error {
		members, err := activeMemberViews(gctx, s.db, id)
		if err != nil {
			return err
		}
		detail.Members = members
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return detail, nil
}

// activeMemberViews lists the active members of a project with their names
func activeMemberViews(ctx context.Context, q querier, projectID string) ([]models.MemberView, error) {
	rows, err := q.QueryContext(ctx, "SELECT "+memberColumns+`, u.name, u.email
		FROM project_members m
		LEFT JOIN employees e ON e.id = m.employee_id
		LEFT JOIN users u ON u.id = e.user_id
		WHERE m.project_id = ? AND m.removed_at IS NULL
		ORDER BY m.assigned_at
	`, projectID)
	if err != nil {
		return nil, internal(err, "error loading project members")
	}
	defer rows.Close()

	views := []models.MemberView{}
	for rows.Next() {
		var name, email sql.NullString
		m, err := scanMember(rows, &name, &email)
		if err != nil {
			return nil, internal(err, "error scanning project member")
		}
		views = append(views, models.MemberView{ProjectMember: *m, Name: name.String, Email: email.String})
	}
	if err := rows.Err(); err != nil {
		return nil, internal(err, "error iterating project members")
	}
	return views, nil
}

// List returns one page of projects, newest first. Inactive projects are
// hidden unless requested.
func (s *Projects) List(ctx context.Context, f models.ProjectFilter) (*models.ProjectPage, error) {
	page, limit := normalizePage(f.Page, f.Limit)

	where := " WHERE is_active = ?"
	args := []any{!f.IncludeInactive}
	if f.IncludeInactive {
		where = " WHERE 1=1"
		args = []any{}
	}
	if v, ok := models.NormalizeEnum(f.Status, models.ProjectStatuses); ok {
		where += " AND status = ?"
		args = append(args, v)
	}
	if v, ok := models.NormalizeEnum(f.Priority, models.ProjectPriorities); ok {
		where += " AND priority = ?"
		args = append(args, v)
	}
	if f.ClientID != "" {
		where += " AND client_id = ?"
		args = append(args, f.ClientID)
	}
	if f.DepartmentID != "" {
		where += " AND department_id = ?"
		args = append(args, f.DepartmentID)
	}
	if search := strings.TrimSpace(f.Search); search != "" {
		pattern := likePattern(search)
		where += ` AND (name LIKE ? ESCAPE '\' OR description LIKE ? ESCAPE '\')`
		args = append(args, pattern, pattern)
	}

	var total int
	projects := []models.Project{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := s.db.QueryRowContext(gctx, "SELECT COUNT(*) FROM projects"+where, args...).Scan(&total); err != nil {
			return internal(err, "error counting projects")
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx,
			"SELECT "+projectColumns+" FROM projects"+where+" ORDER BY created_at DESC LIMIT ? OFFSET ?",
			append(append([]any{}, args...), limit, (page-1)*limit)...)
		if err != nil {
			return internal(err, "error querying projects")
		}
		defer rows.Close()

		for rows.Next() {
			p, err := scanProject(rows)
			if err != nil {
				return internal(err, "error scanning project")
			}
			projects = append(projects, *p)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &models.ProjectPage{
		Total:      total,
		TotalPages: totalPages(total, limit),
		Page:       page,
		Limit:      limit,
		Data:       projects,
	}, nil
}

// checkServices requires every id to be an existing active service
func checkServices(ctx context.Context, q querier, ids []string) error {
	count, err := countActive(ctx, q, "services", ids)
	if err != nil {
		return err
	}
	if count != len(ids) {
		return notFound("One or more services not found")
	}
	return nil
}

func replaceServices(ctx context.Context, tx *sql.Tx, projectID string, serviceIDs []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM project_services WHERE project_id = ?", projectID); err != nil {
		return internal(err, "error clearing project services")
	}
	for _, serviceID := range serviceIDs {
		_, err := tx.ExecContext(ctx, "INSERT INTO project_services (project_id, service_id) VALUES (?, ?)", projectID, serviceID)
		if err != nil {
			return writeError(err, "Service already linked to project")
		}
	}
	return nil
}

func queryRefs(ctx context.Context, q querier, query string, args ...any) ([]models.Ref, error) {
	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	refs := []models.Ref{}
	for rows.Next() {
		var r models.Ref
		if err := rows.Scan(&r.ID, &r.Name); err != nil {
			return nil, err
		}
		refs = append(refs, r)
	}
	return refs, rows.Err()
}

// likePattern wraps s for a case-insensitive substring LIKE with '\' as
// the escape character
func likePattern(s string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return "%" + r.Replace(s) + "%"
}
