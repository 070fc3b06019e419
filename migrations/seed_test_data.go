package migrations

import (
	"database/sql"
	"fmt"
	"log"
	"os"
	"time"
)

// DevAdminID is the user the auth middleware impersonates when Firebase is
// not configured
const DevAdminID = "admin-user-1"

// SeedTestData loads reference data for development environments. It never
// runs when APP_ENV or OPS_APP_ENV is production.
func SeedTestData(db *sql.DB) error {
	if os.Getenv("APP_ENV") == "production" || os.Getenv("OPS_APP_ENV") == "production" {
		log.Println("Refusing to seed test data in production environment")
		return nil
	}

	log.Println("Seeding test data for development environment...")

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if os.Getenv("RESET_DB") == "true" {
		tables := []string{"transactions", "project_members", "project_services", "projects", "employee_skills", "employees"}
		for _, table := range tables {
			exists, err := tableExists(tx, table)
			if err != nil {
				return err
			}
			if exists {
				if _, err := tx.Exec("DELETE FROM " + table); err != nil {
					return fmt.Errorf("failed to clear table %s: %w", table, err)
				}
			}
		}
	}

	now := time.Now().UTC()

	_, err = tx.Exec(`
		INSERT OR IGNORE INTO users (id, name, email, role, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, 1, ?, ?)
	`, DevAdminID, "Admin", "admin@localhost", "admin", now, now)
	if err != nil {
		return fmt.Errorf("failed to insert admin user: %w", err)
	}

	departments := []struct{ id, name string }{
		{"dept-engineering", "Engineering"},
		{"dept-design", "Design"},
		{"dept-marketing", "Marketing"},
	}
	for _, d := range departments {
		if _, err := tx.Exec("INSERT OR IGNORE INTO departments (id, name, is_active, created_at) VALUES (?, ?, 1, ?)", d.id, d.name, now); err != nil {
			return fmt.Errorf("failed to insert department %s: %w", d.name, err)
		}
	}

	positions := []struct{ id, name, department string }{
		{"pos-backend", "Backend Developer", "dept-engineering"},
		{"pos-frontend", "Frontend Developer", "dept-engineering"},
		{"pos-ui", "UI Designer", "dept-design"},
		{"pos-seo", "SEO Specialist", "dept-marketing"},
	}
	for _, p := range positions {
		if _, err := tx.Exec("INSERT OR IGNORE INTO positions (id, name, department_id, created_at) VALUES (?, ?, ?, ?)", p.id, p.name, p.department, now); err != nil {
			return fmt.Errorf("failed to insert position %s: %w", p.name, err)
		}
	}

	skills := []struct{ id, name, position string }{
		{"skill-go", "Go", "pos-backend"},
		{"skill-sql", "SQL", "pos-backend"},
		{"skill-react", "React", "pos-frontend"},
		{"skill-figma", "Figma", "pos-ui"},
	}
	for _, s := range skills {
		if _, err := tx.Exec("INSERT OR IGNORE INTO skills (id, name, position_id, created_at) VALUES (?, ?, ?, ?)", s.id, s.name, s.position, now); err != nil {
			return fmt.Errorf("failed to insert skill %s: %w", s.name, err)
		}
	}

	clients := []struct{ id, name, company string }{
		{"client-nile", "Nour Hassan", "Nile Retail"},
		{"client-gulf", "Omar Saeed", "Gulf Logistics"},
	}
	for _, c := range clients {
		if _, err := tx.Exec("INSERT OR IGNORE INTO clients (id, name, company_name, is_active, created_at) VALUES (?, ?, ?, 1, ?)", c.id, c.name, c.company, now); err != nil {
			return fmt.Errorf("failed to insert client %s: %w", c.name, err)
		}
	}

	services := []struct{ id, name string }{
		{"svc-web", "Web Development"},
		{"svc-branding", "Branding"},
	}
	for _, s := range services {
		if _, err := tx.Exec("INSERT OR IGNORE INTO services (id, name, is_active, created_at) VALUES (?, ?, 1, ?)", s.id, s.name, now); err != nil {
			return fmt.Errorf("failed to insert service %s: %w", s.name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit seed data: %w", err)
	}

	log.Println("Test data seeded successfully")
	return nil
}
