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
	"agencyops/backend/security"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
)

// Employees provisions staff accounts. An employee is always created and
// deleted together with its user.
type Employees struct {
	db     *sql.DB
	mailer Mailer
	now    func() time.Time
}

func NewEmployees(db *sql.DB, mailer Mailer) *Employees {
	return &Employees{db: db, mailer: mailer, now: time.Now}
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// emailTaken reports whether another user already holds email
func emailTaken(ctx context.Context, q querier, email, exceptUserID string) (bool, error) {
	var count int
	err := q.QueryRowContext(ctx, "SELECT COUNT(*) FROM users WHERE email = ? AND id <> ?", email, exceptUserID).Scan(&count)
	if err != nil {
		return false, internal(err, "error checking email")
	}
	return count > 0, nil
}

// Create validates the department, position, skills and email of in, then
// inserts the user and the employee and sends the account email inside one
// transaction. If the email cannot be sent neither record is kept.
func (s *Employees) Create(ctx context.Context, in models.EmployeeInput) (string, error) {
	name := strings.TrimSpace(in.Name)
	email := normalizeEmail(in.Email)
	if name == "" {
		return "", validation("name is required")
	}
	if email == "" {
		return "", validation("email is required")
	}
	if in.DepartmentID == "" || in.PositionID == "" {
		return "", validation("department and position are required")
	}

	employmentType, ok := models.NormalizeEnum(in.EmploymentType, models.EmploymentTypes)
	if !ok {
		employmentType = models.DefaultEmploymentType
	}
	skillIDs := dedupe(in.SkillIDs)

	if _, err := findActiveDepartment(ctx, s.db, in.DepartmentID); err != nil {
		return "", err
	}

	inDepartment, err := positionInDepartment(ctx, s.db, in.PositionID, in.DepartmentID)
	if err != nil {
		return "", err
	}
	if !inDepartment {
		return "", invalidReference("Position not found or does not belong to this department")
	}

	if err := checkSkills(ctx, s.db, skillIDs, in.PositionID); err != nil {
		return "", err
	}

	taken, err := emailTaken(ctx, s.db, email, "")
	if err != nil {
		return "", err
	}
	if taken {
		return "", conflict("User with this email already exists")
	}

	password, err := security.GenerateTempPassword()
	if err != nil {
		return "", internal(err, "error creating credentials")
	}
	hash, err := security.HashPassword(password)
	if err != nil {
		return "", internal(err, "error creating credentials")
	}

	msg, err := accountEmail(name, email, password)
	if err != nil {
		return "", internal(err, "error preparing account email")
	}

	userID := uuid.NewString()
	employeeID := uuid.NewString()
	now := s.now().UTC()

	err = database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO users (id, name, email, phone, role, temp_password_hash, is_active, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
		`, userID, name, email, nullString(strings.TrimSpace(in.Phone)), models.RoleEmployee, hash, now, now)
		if err != nil {
			return writeError(err, "User with this email already exists")
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO employees (id, user_id, department_id, position_id, employment_type, created_at, updated_at)
			VALUES (?, ?, ?, ?, ?, ?, ?)
		`, employeeID, userID, in.DepartmentID, in.PositionID, employmentType, now, now)
		if err != nil {
			return writeError(err, "Employee already exists")
		}

		if err := replaceSkills(ctx, tx, employeeID, skillIDs); err != nil {
			return err
		}

		if err := s.mailer.Send(ctx, msg); err != nil {
			return internal(err, "Failed to send account email to %s", email)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	log.Printf("Provisioned employee %s for user %s", employeeID, userID)
	return employeeID, nil
}

// checkSkills requires every skill to belong to the position
func checkSkills(ctx context.Context, q querier, skillIDs []string, positionID string) error {
	if len(skillIDs) == 0 {
		return nil
	}
	count, err := countSkillsInPosition(ctx, q, skillIDs, positionID)
	if err != nil {
		return err
	}
	if count != len(skillIDs) {
		return invalidReference("One or more skills do not belong to this position")
	}
	return nil
}

func replaceSkills(ctx context.Context, tx *sql.Tx, employeeID string, skillIDs []string) error {
	if _, err := tx.ExecContext(ctx, "DELETE FROM employee_skills WHERE employee_id = ?", employeeID); err != nil {
		return internal(err, "error clearing employee skills")
	}
	for _, skillID := range skillIDs {
		_, err := tx.ExecContext(ctx, "INSERT INTO employee_skills (employee_id, skill_id) VALUES (?, ?)", employeeID, skillID)
		if err != nil {
			return writeError(err, "Skill already assigned")
		}
	}
	return nil
}

// Update changes the employee profile and the linked user's identity. The
// department, position and skills chain is validated again whenever one of
// its links changes.
func (s *Employees) Update(ctx context.Context, id string, u models.EmployeeUpdate) error {
	e, user, err := findEmployee(ctx, s.db, id)
	if err != nil {
		return err
	}
	if user == nil {
		return invalidReference("Employee has no linked user account")
	}

	department := e.DepartmentID
	if u.DepartmentID != nil {
		department = *u.DepartmentID
	}
	position := e.PositionID
	if u.PositionID != nil {
		position = *u.PositionID
	}

	var employmentType models.EmploymentType
	if u.EmploymentType != nil {
		v, ok := models.NormalizeEnum(*u.EmploymentType, models.EmploymentTypes)
		if !ok {
			return validation("invalid employment type %q", *u.EmploymentType)
		}
		employmentType = v
	}

	var email string
	if u.Email != nil {
		if email = normalizeEmail(*u.Email); email == "" {
			return validation("email cannot be empty")
		}
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) == "" {
		return validation("name cannot be empty")
	}

	var skillIDs []string
	if u.SkillIDs != nil {
		skillIDs = dedupe(*u.SkillIDs)
	}

	g, gctx := errgroup.WithContext(ctx)
	if u.Email != nil {
		g.Go(func() error {
			taken, err := emailTaken(gctx, s.db, email, user.ID)
			if err != nil {
				return err
			}
			if taken {
				return conflict("User with this email already exists")
			}
			return nil
		})
	}
	if u.DepartmentID != nil {
		g.Go(func() error {
			_, err := findActiveDepartment(gctx, s.db, department)
			return err
		})
	}
	if u.DepartmentID != nil || u.PositionID != nil {
		g.Go(func() error {
			ok, err := positionInDepartment(gctx, s.db, position, department)
			if err != nil {
				return err
			}
			if !ok {
				return invalidReference("Position not found or does not belong to this department")
			}
			return nil
		})
	}
	if len(skillIDs) > 0 {
		g.Go(func() error {
			return checkSkills(gctx, s.db, skillIDs, position)
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	now := s.now().UTC()

	userSets := []string{}
	userArgs := []any{}
	if u.Name != nil {
		userSets = append(userSets, "name = ?")
		userArgs = append(userArgs, strings.TrimSpace(*u.Name))
	}
	if u.Email != nil {
		userSets = append(userSets, "email = ?")
		userArgs = append(userArgs, email)
	}
	if u.Phone != nil {
		userSets = append(userSets, "phone = ?")
		userArgs = append(userArgs, nullString(strings.TrimSpace(*u.Phone)))
	}

	saves, sctx := errgroup.WithContext(ctx)
	if len(userSets) > 0 {
		saves.Go(func() error {
			userSets = append(userSets, "updated_at = ?")
			query := fmt.Sprintf("UPDATE users SET %s WHERE id = ?", strings.Join(userSets, ", "))
			if _, err := s.db.ExecContext(sctx, query, append(userArgs, now, user.ID)...); err != nil {
				return writeError(err, "User with this email already exists")
			}
			return nil
		})
	}
	saves.Go(func() error {
		return database.WithTx(sctx, s.db, func(tx *sql.Tx) error {
			if employmentType == "" {
				employmentType = e.EmploymentType
			}
			_, err := tx.ExecContext(sctx, `
				UPDATE employees SET department_id = ?, position_id = ?, employment_type = ?, updated_at = ? WHERE id = ?
			`, department, position, employmentType, now, id)
			if err != nil {
				return writeError(err, "error updating employee")
			}
			if u.SkillIDs != nil {
				return replaceSkills(sctx, tx, id, skillIDs)
			}
			return nil
		})
	})
	return saves.Wait()
}

// ToggleActive flips the linked user's active flag and returns the new value
func (s *Employees) ToggleActive(ctx context.Context, id string) (bool, error) {
	_, user, err := findEmployee(ctx, s.db, id)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, invalidReference("Employee has no linked user account")
	}

	active := !user.IsActive
	_, err = s.db.ExecContext(ctx, "UPDATE users SET is_active = ?, updated_at = ? WHERE id = ?", active, s.now().UTC(), user.ID)
	if err != nil {
		return false, internal(err, "error updating user %s", user.ID)
	}
	return active, nil
}

// Delete removes the employee, its skills and its user together
func (s *Employees) Delete(ctx context.Context, id string) error {
	e, _, err := findEmployee(ctx, s.db, id)
	if err != nil {
		return err
	}

	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, "DELETE FROM employee_skills WHERE employee_id = ?", id); err != nil {
			return internal(err, "error deleting employee skills")
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM employees WHERE id = ?", id); err != nil {
			return internal(err, "error deleting employee %s", id)
		}
		if _, err := tx.ExecContext(ctx, "DELETE FROM users WHERE id = ?", e.UserID); err != nil {
			return internal(err, "error deleting user %s", e.UserID)
		}
		return nil
	})
}

const employeeViewQuery = `
	SELECT e.id, e.employment_type, e.created_at, e.updated_at,
		u.id, u.name, u.email, u.phone, u.is_active,
		d.id, d.name, pos.id, pos.name
	FROM employees e
	JOIN users u ON u.id = e.user_id
	LEFT JOIN departments d ON d.id = e.department_id
	LEFT JOIN positions pos ON pos.id = e.position_id
`

func scanEmployeeView(row rowScanner) (*models.EmployeeView, error) {
	var v models.EmployeeView
	var email, phone, deptID, deptName, posID, posName sql.NullString

	err := row.Scan(&v.ID, &v.EmploymentType, &v.CreatedAt, &v.UpdatedAt,
		&v.User.ID, &v.User.Name, &email, &phone, &v.User.IsActive,
		&deptID, &deptName, &posID, &posName)
	if err != nil {
		return nil, err
	}

	v.User.Email = email.String
	v.User.Phone = phone.String
	if deptID.Valid {
		v.Department = &models.Ref{ID: deptID.String, Name: deptName.String}
	}
	if posID.Valid {
		v.Position = &models.Ref{ID: posID.String, Name: posName.String}
	}
	v.Skills = []models.Ref{}
	return &v, nil
}

// Get returns one employee with its user, department, position and skills
func (s *Employees) Get(ctx context.Context, id string) (*models.EmployeeView, error) {
	v, err := scanEmployeeView(s.db.QueryRowContext(ctx, employeeViewQuery+" WHERE e.id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("Employee not found")
	}
	if err != nil {
		return nil, internal(err, "error loading employee %s", id)
	}

	skills, err := skillsFor(ctx, s.db, []string{id})
	if err != nil {
		return nil, err
	}
	if refs, ok := skills[id]; ok {
		v.Skills = refs
	}
	return v, nil
}

// List pages through employees with a joined, filtered query. Without an
// explicit IsActive only active employees are returned; Name matches a
// case-insensitive substring of the user's name.
func (s *Employees) List(ctx context.Context, f models.EmployeeFilter) (*models.EmployeePage, error) {
	page, limit := normalizePage(f.Page, f.Limit)

	where := " WHERE " + activeUserCondition
	if f.IsActive != nil && !*f.IsActive {
		where = " WHERE NOT (" + activeUserCondition + ")"
	}
	args := []any{}

	if f.DepartmentID != "" {
		where += " AND e.department_id = ?"
		args = append(args, f.DepartmentID)
	}
	if f.PositionID != "" {
		where += " AND e.position_id = ?"
		args = append(args, f.PositionID)
	}
	if f.SkillID != "" {
		where += " AND EXISTS (SELECT 1 FROM employee_skills es WHERE es.employee_id = e.id AND es.skill_id = ?)"
		args = append(args, f.SkillID)
	}
	if v, ok := models.NormalizeEnum(f.EmploymentType, models.EmploymentTypes); ok {
		where += " AND e.employment_type = ?"
		args = append(args, v)
	}
	if name := strings.TrimSpace(f.Name); name != "" {
		where += ` AND u.name LIKE ? ESCAPE '\'`
		args = append(args, likePattern(name))
	}

	var total int
	views := []models.EmployeeView{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		err := s.db.QueryRowContext(gctx, "SELECT COUNT(*) FROM employees e JOIN users u ON u.id = e.user_id"+where, args...).Scan(&total)
		if err != nil {
			return internal(err, "error counting employees")
		}
		return nil
	})
	g.Go(func() error {
		rows, err := s.db.QueryContext(gctx, employeeViewQuery+where+" ORDER BY e.created_at LIMIT ? OFFSET ?",
			append(append([]any{}, args...), limit, (page-1)*limit)...)
		if err != nil {
			return internal(err, "error querying employees")
		}
		defer rows.Close()

		for rows.Next() {
			v, err := scanEmployeeView(rows)
			if err != nil {
				return internal(err, "error scanning employee")
			}
			views = append(views, *v)
		}
		return rows.Err()
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	ids := make([]string, len(views))
	for i, v := range views {
		ids[i] = v.ID
	}
	skills, err := skillsFor(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range views {
		if refs, ok := skills[views[i].ID]; ok {
			views[i].Skills = refs
		}
	}

	pages := totalPages(total, limit)
	if pages == 0 {
		pages = 1
	}

	return &models.EmployeePage{
		Total:      total,
		TotalPages: pages,
		Page:       page,
		Limit:      limit,
		Results:    len(views),
		Data:       views,
	}, nil
}

// skillsFor loads the skills of each employee in ids
func skillsFor(ctx context.Context, q querier, ids []string) (map[string][]models.Ref, error) {
	out := make(map[string][]models.Ref)
	if len(ids) == 0 {
		return out, nil
	}

	rows, err := q.QueryContext(ctx, fmt.Sprintf(`
		SELECT es.employee_id, sk.id, sk.name
		FROM employee_skills es
		JOIN skills sk ON sk.id = es.skill_id
		WHERE es.employee_id IN (%s)
		ORDER BY sk.name
	`, placeholders(len(ids))), stringArgs(ids)...)
	if err != nil {
		return nil, internal(err, "error loading employee skills")
	}
	defer rows.Close()

	for rows.Next() {
		var employeeID string
		var ref models.Ref
		if err := rows.Scan(&employeeID, &ref.ID, &ref.Name); err != nil {
			return nil, internal(err, "error scanning employee skill")
		}
		out[employeeID] = append(out[employeeID], ref)
	}
	if err := rows.Err(); err != nil {
		return nil, internal(err, "error iterating employee skills")
	}
	return out, nil
}
