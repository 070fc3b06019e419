package migrations

import (
	"database/sql"
	"fmt"
	"log"
)

// CreateBaseSchema creates all the base tables needed for the application.
//
// Monetary rows keep the origin amount and currency plus one whole-unit
// column per supported currency (<field>_egp ... <field>_eur).
func CreateBaseSchema(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS users (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			email TEXT UNIQUE,
			phone TEXT,
			role TEXT NOT NULL DEFAULT 'employee',
			password_hash TEXT,
			temp_password_hash TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			deleted_at DATETIME,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS departments (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS positions (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL COLLATE NOCASE,
			department_id TEXT NOT NULL REFERENCES departments(id),
			created_at DATETIME NOT NULL,
			UNIQUE(name, department_id)
		);

		CREATE TABLE IF NOT EXISTS skills (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL COLLATE NOCASE,
			position_id TEXT NOT NULL REFERENCES positions(id),
			created_at DATETIME NOT NULL,
			UNIQUE(name, position_id)
		);

		CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			company_name TEXT,
			email TEXT,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS services (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE COLLATE NOCASE,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS employees (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL UNIQUE REFERENCES users(id),
			department_id TEXT NOT NULL REFERENCES departments(id),
			position_id TEXT NOT NULL REFERENCES positions(id),
			employment_type TEXT NOT NULL DEFAULT 'freelancer',
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS employee_skills (
			employee_id TEXT NOT NULL REFERENCES employees(id),
			skill_id TEXT NOT NULL REFERENCES skills(id),
			PRIMARY KEY (employee_id, skill_id)
		);

		CREATE TABLE IF NOT EXISTS projects (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT,
			client_id TEXT NOT NULL REFERENCES clients(id),
			department_id TEXT REFERENCES departments(id),
			budget REAL NOT NULL DEFAULT 0 CHECK (budget >= 0),
			currency TEXT NOT NULL DEFAULT 'EGP',
			budget_egp INTEGER,
			budget_sar INTEGER,
			budget_aed INTEGER,
			budget_usd INTEGER,
			budget_eur INTEGER,
			status TEXT NOT NULL DEFAULT 'planning',
			priority TEXT NOT NULL DEFAULT 'normal',
			start_date DATETIME,
			end_date DATETIME,
			is_active BOOLEAN NOT NULL DEFAULT 1,
			created_by TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);

		CREATE TABLE IF NOT EXISTS project_services (
			project_id TEXT NOT NULL REFERENCES projects(id),
			service_id TEXT NOT NULL REFERENCES services(id),
			PRIMARY KEY (project_id, service_id)
		);

		CREATE TABLE IF NOT EXISTS project_members (
			id TEXT PRIMARY KEY,
			project_id TEXT NOT NULL REFERENCES projects(id),
			employee_id TEXT NOT NULL REFERENCES employees(id),
			compensation REAL NOT NULL DEFAULT 0 CHECK (compensation >= 0),
			currency TEXT NOT NULL DEFAULT 'EGP',
			compensation_egp INTEGER,
			compensation_sar INTEGER,
			compensation_aed INTEGER,
			compensation_usd INTEGER,
			compensation_eur INTEGER,
			assigned_at DATETIME NOT NULL,
			removed_at DATETIME,
			UNIQUE(project_id, employee_id)
		);

		CREATE TABLE IF NOT EXISTS transactions (
			id TEXT PRIMARY KEY,
			type TEXT NOT NULL,
			category TEXT NOT NULL,
			project_id TEXT REFERENCES projects(id),
			client_id TEXT REFERENCES clients(id),
			employee_id TEXT REFERENCES employees(id),
			amount REAL NOT NULL CHECK (amount >= 0),
			currency TEXT NOT NULL DEFAULT 'EGP',
			amount_egp INTEGER,
			amount_sar INTEGER,
			amount_aed INTEGER,
			amount_usd INTEGER,
			amount_eur INTEGER,
			description TEXT,
			date DATETIME NOT NULL,
			payment_method TEXT NOT NULL DEFAULT 'instapay',
			reference TEXT,
			status TEXT NOT NULL DEFAULT 'completed',
			receipt_url TEXT,
			notes TEXT,
			added_by TEXT NOT NULL,
			created_at DATETIME NOT NULL,
			updated_at DATETIME NOT NULL
		);
	`)
	if err != nil {
		return fmt.Errorf("failed to create base schema: %w", err)
	}

	log.Println("Base schema created successfully")
	return nil
}
