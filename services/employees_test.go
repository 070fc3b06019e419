package services

import (
	"context"
	"strings"
	"testing"

	"agencyops/backend/models"
	"agencyops/backend/security"
)

func newEmployeeInput(name, email string) models.EmployeeInput {
	return models.EmployeeInput{
		Name:           name,
		Email:          email,
		DepartmentID:   "dept-engineering",
		PositionID:     "pos-backend",
		SkillIDs:       []string{"skill-go", "skill-sql"},
		EmploymentType: "Full_Time",
	}
}

func TestCreateEmployee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.employees.Create(ctx, newEmployeeInput("nadia farouk", " Nadia@Example.com "))
	if err != nil {
		t.Fatalf("Create() error = %v", err)
	}

	view, err := env.employees.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if view.User.Email != "nadia@example.com" || !view.User.IsActive {
		t.Errorf("Unexpected user %+v", view.User)
	}
	if view.EmploymentType != models.EmploymentFullTime {
		t.Errorf("Expected full_time, got %s", view.EmploymentType)
	}
	if view.Department == nil || view.Department.Name != "Engineering" {
		t.Errorf("Unexpected department %+v", view.Department)
	}
	if len(view.Skills) != 2 {
		t.Errorf("Expected 2 skills, got %+v", view.Skills)
	}

	var role, hash string
	if err := env.db.QueryRow("SELECT role, temp_password_hash FROM users WHERE id = ?", view.User.ID).Scan(&role, &hash); err != nil {
		t.Fatal(err)
	}
	if role != models.RoleEmployee || hash == "" {
		t.Errorf("Expected employee role with a temporary password hash, got %q and %q", role, hash)
	}

	if len(env.mailer.sent) != 1 {
		t.Fatalf("Expected 1 account email, got %d", len(env.mailer.sent))
	}
	msg := env.mailer.sent[0]
	if msg.To != "nadia@example.com" {
		t.Errorf("Expected email to nadia@example.com, got %s", msg.To)
	}
	if !strings.Contains(msg.HTML, "Welcome, Nadia") {
		t.Errorf("Expected greeting in email, got %s", msg.HTML)
	}

	// the mailed password matches the stored hash
	start := strings.Index(msg.HTML, "<code>")
	end := strings.Index(msg.HTML, "</code>")
	if start < 0 || end < start {
		t.Fatalf("Expected the password in a code span, got %s", msg.HTML)
	}
	password := msg.HTML[start+len("<code>") : end]
	if !security.CheckPassword(hash, password) {
		t.Error("Expected the mailed password to match the stored hash")
	}
}

func TestCreateEmployeeDefaultsEmploymentType(t *testing.T) {
	env := newTestEnv(t)
	in := newEmployeeInput("Omar", "omar@example.com")
	in.EmploymentType = "intern"
	in.SkillIDs = nil

	id, err := env.employees.Create(context.Background(), in)
	if err != nil {
		t.Fatal(err)
	}
	view, err := env.employees.Get(context.Background(), id)
	if err != nil {
		t.Fatal(err)
	}
	if view.EmploymentType != models.EmploymentFreelancer {
		t.Errorf("Expected freelancer default, got %s", view.EmploymentType)
	}
}

func TestCreateEmployeeAtomicWhenEmailFails(t *testing.T) {
	env := newTestEnv(t)
	env.mailer.err = errMailDown

	_, err := env.employees.Create(context.Background(), newEmployeeInput("Nadia", "nadia@example.com"))
	requireKind(t, err, KindInternal)

	if n := countRows(t, env.db, "SELECT COUNT(*) FROM users WHERE email = ?", "nadia@example.com"); n != 0 {
		t.Errorf("Expected no user after a failed email, got %d", n)
	}
	if n := countRows(t, env.db, "SELECT COUNT(*) FROM employees"); n != 0 {
		t.Errorf("Expected no employee after a failed email, got %d", n)
	}
	if n := countRows(t, env.db, "SELECT COUNT(*) FROM employee_skills"); n != 0 {
		t.Errorf("Expected no skills after a failed email, got %d", n)
	}
}

func TestCreateEmployeeValidation(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	if _, err := env.db.Exec("UPDATE departments SET is_active = 0 WHERE id = 'dept-marketing'"); err != nil {
		t.Fatal(err)
	}
	if _, err := env.employees.Create(ctx, newEmployeeInput("Taken", "taken@example.com")); err != nil {
		t.Fatal(err)
	}

	tests := []struct {
		name   string
		mutate func(*models.EmployeeInput)
		kind   ErrorKind
	}{
		{"missing name", func(in *models.EmployeeInput) { in.Name = " " }, KindValidation},
		{"missing department", func(in *models.EmployeeInput) { in.DepartmentID = "" }, KindValidation},
		{"unknown department", func(in *models.EmployeeInput) { in.DepartmentID = "dept-x" }, KindNotFound},
		{"inactive department", func(in *models.EmployeeInput) {
			in.DepartmentID = "dept-marketing"
			in.PositionID = "pos-seo"
			in.SkillIDs = nil
		}, KindInactive},
		{"position elsewhere", func(in *models.EmployeeInput) { in.PositionID = "pos-ui" }, KindInvalidReference},
		{"skill elsewhere", func(in *models.EmployeeInput) { in.SkillIDs = []string{"skill-react"} }, KindInvalidReference},
		{"duplicate email", func(in *models.EmployeeInput) { in.Email = "TAKEN@example.com" }, KindConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := newEmployeeInput("Nadia", "nadia@example.com")
			tt.mutate(&in)
			_, err := env.employees.Create(ctx, in)
			requireKind(t, err, tt.kind)
		})
	}

	if n := countRows(t, env.db, "SELECT COUNT(*) FROM employees"); n != 1 {
		t.Errorf("Expected only the first employee, got %d", n)
	}
}

func TestUpdateEmployee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.employees.Create(ctx, newEmployeeInput("Nadia", "nadia@example.com"))
	if err != nil {
		t.Fatal(err)
	}
	if _, err := env.employees.Create(ctx, newEmployeeInput("Other", "other@example.com")); err != nil {
		t.Fatal(err)
	}

	elsewhere := "pos-ui"
	err = env.employees.Update(ctx, id, models.EmployeeUpdate{PositionID: &elsewhere})
	requireKind(t, err, KindInvalidReference)

	position := "pos-frontend"
	wrongSkills := []string{"skill-go"}
	err = env.employees.Update(ctx, id, models.EmployeeUpdate{PositionID: &position, SkillIDs: &wrongSkills})
	requireKind(t, err, KindInvalidReference)

	skills := []string{"skill-react"}
	name := "Nadia Farouk"
	phone := "+20 100 000 0000"
	employment := "contract"
	err = env.employees.Update(ctx, id, models.EmployeeUpdate{
		PositionID:     &position,
		SkillIDs:       &skills,
		Name:           &name,
		Phone:          &phone,
		EmploymentType: &employment,
	})
	if err != nil {
		t.Fatalf("Update() error = %v", err)
	}

	view, err := env.employees.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if view.Position == nil || view.Position.ID != "pos-frontend" {
		t.Errorf("Expected frontend position, got %+v", view.Position)
	}
	if len(view.Skills) != 1 || view.Skills[0].ID != "skill-react" {
		t.Errorf("Expected React skill, got %+v", view.Skills)
	}
	if view.User.Name != name || view.User.Phone != phone {
		t.Errorf("Expected user identity to change, got %+v", view.User)
	}
	if view.EmploymentType != models.EmploymentContract {
		t.Errorf("Expected contract, got %s", view.EmploymentType)
	}

	taken := "other@example.com"
	err = env.employees.Update(ctx, id, models.EmployeeUpdate{Email: &taken})
	requireKind(t, err, KindConflict)

	bad := "intern"
	err = env.employees.Update(ctx, id, models.EmployeeUpdate{EmploymentType: &bad})
	requireKind(t, err, KindValidation)

	err = env.employees.Update(ctx, "missing", models.EmployeeUpdate{Name: &name})
	requireKind(t, err, KindNotFound)
}

func TestToggleAndDeleteEmployee(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	id, err := env.employees.Create(ctx, newEmployeeInput("Nadia", "nadia@example.com"))
	if err != nil {
		t.Fatal(err)
	}

	active, err := env.employees.ToggleActive(ctx, id)
	if err != nil || active {
		t.Fatalf("Expected first toggle to deactivate, got %v, %v", active, err)
	}
	active, err = env.employees.ToggleActive(ctx, id)
	if err != nil || !active {
		t.Fatalf("Expected second toggle to reactivate, got %v, %v", active, err)
	}

	if err := env.employees.Delete(ctx, id); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if n := countRows(t, env.db, "SELECT COUNT(*) FROM users WHERE email = 'nadia@example.com'"); n != 0 {
		t.Errorf("Expected the linked user to be deleted, got %d", n)
	}
	if n := countRows(t, env.db, "SELECT COUNT(*) FROM employee_skills WHERE employee_id = ?", id); n != 0 {
		t.Errorf("Expected skills to be deleted, got %d", n)
	}
	requireKind(t, env.employees.Delete(ctx, id), KindNotFound)

	// the email is free again
	if _, err := env.employees.Create(ctx, newEmployeeInput("Nadia", "nadia@example.com")); err != nil {
		t.Errorf("Expected email to be reusable, got %v", err)
	}
}

func TestListEmployees(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	inputs := []models.EmployeeInput{
		newEmployeeInput("Nadia Farouk", "nadia@example.com"),
		newEmployeeInput("Omar Nabil", "omar@example.com"),
		{Name: "Yara Samir", Email: "yara@example.com", DepartmentID: "dept-design", PositionID: "pos-ui", SkillIDs: []string{"skill-figma"}},
	}
	ids := make([]string, len(inputs))
	for i, in := range inputs {
		id, err := env.employees.Create(ctx, in)
		if err != nil {
			t.Fatal(err)
		}
		ids[i] = id
	}
	if _, err := env.employees.ToggleActive(ctx, ids[1]); err != nil {
		t.Fatal(err)
	}

	active, err := env.employees.List(ctx, models.EmployeeFilter{})
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if active.Total != 2 {
		t.Errorf("Expected 2 active employees by default, got %d", active.Total)
	}

	inactive := false
	off, err := env.employees.List(ctx, models.EmployeeFilter{IsActive: &inactive})
	if err != nil {
		t.Fatal(err)
	}
	if off.Total != 1 || off.Data[0].ID != ids[1] {
		t.Errorf("Expected only the deactivated employee, got %+v", off.Data)
	}

	named, err := env.employees.List(ctx, models.EmployeeFilter{Name: "NAB"})
	if err != nil {
		t.Fatal(err)
	}
	if named.Total != 0 {
		t.Errorf("Expected inactive Omar to be excluded from the default name search, got %d", named.Total)
	}

	byName, err := env.employees.List(ctx, models.EmployeeFilter{Name: "far"})
	if err != nil {
		t.Fatal(err)
	}
	if byName.Total != 1 || byName.Data[0].User.Name != "Nadia Farouk" {
		t.Errorf("Expected case-insensitive substring match, got %+v", byName.Data)
	}

	bySkill, err := env.employees.List(ctx, models.EmployeeFilter{SkillID: "skill-figma"})
	if err != nil {
		t.Fatal(err)
	}
	if bySkill.Total != 1 || bySkill.Data[0].ID != ids[2] {
		t.Errorf("Expected Yara for the figma skill, got %+v", bySkill.Data)
	}
	if len(bySkill.Data[0].Skills) != 1 {
		t.Errorf("Expected skills to be attached, got %+v", bySkill.Data[0].Skills)
	}

	empty, err := env.employees.List(ctx, models.EmployeeFilter{DepartmentID: "dept-marketing"})
	if err != nil {
		t.Fatal(err)
	}
	if empty.Total != 0 || empty.TotalPages != 1 || empty.Results != 0 {
		t.Errorf("Expected an empty single page, got %+v", empty)
	}
}
