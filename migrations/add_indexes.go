package migrations

import (
	"database/sql"
	"fmt"
	"log"
)

// AddIndexes creates the lookup indexes used by listings and aggregations
func AddIndexes(db *sql.DB) error {
	indexes := []string{
		"CREATE INDEX IF NOT EXISTS idx_transactions_project ON transactions(project_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_employee ON transactions(employee_id)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_status_date ON transactions(status, date)",
		"CREATE INDEX IF NOT EXISTS idx_transactions_type_category ON transactions(type, category)",
		"CREATE INDEX IF NOT EXISTS idx_project_members_employee ON project_members(employee_id)",
		"CREATE INDEX IF NOT EXISTS idx_projects_active_created ON projects(is_active, created_at)",
		"CREATE INDEX IF NOT EXISTS idx_employees_department ON employees(department_id)",
		"CREATE INDEX IF NOT EXISTS idx_employees_position ON employees(position_id)",
		"CREATE INDEX IF NOT EXISTS idx_employee_skills_skill ON employee_skills(skill_id)",
		"CREATE INDEX IF NOT EXISTS idx_users_active ON users(is_active, deleted_at)",
	}

	for _, stmt := range indexes {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("error creating index: %w", err)
		}
	}

	log.Printf("Created %d indexes", len(indexes))
	return nil
}
