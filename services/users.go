package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"agencyops/backend/models"
)

// Users reads and maintains identity records
type Users struct {
	db  *sql.DB
	now func() time.Time
}

func NewUsers(db *sql.DB) *Users {
	return &Users{db: db, now: time.Now}
}

const userColumns = "id, name, email, phone, role, currency, is_active, deleted_at, created_at, updated_at"

func scanUser(row rowScanner) (*models.User, error) {
	var u models.User
	var email, phone, currency sql.NullString
	var deletedAt sql.NullTime
	err := row.Scan(&u.ID, &u.Name, &email, &phone, &u.Role, &currency, &u.IsActive, &deletedAt, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	u.Email = email.String
	u.Phone = phone.String
	u.Currency = models.Currency(currency.String)
	u.DeletedAt = timePtr(deletedAt)
	return &u, nil
}

// Get returns a user by id, soft deleted ones included
func (s *Users) Get(ctx context.Context, id string) (*models.User, error) {
	u, err := scanUser(s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notFound("User not found")
	}
	if err != nil {
		return nil, internal(err, "error loading user %s", id)
	}
	return u, nil
}

// Role returns the role of an active user. Deactivated and deleted users are
// reported as Inactive.
func (s *Users) Role(ctx context.Context, id string) (string, error) {
	u, err := s.Get(ctx, id)
	if err != nil {
		return "", err
	}
	if !u.IsActive || u.Deleted() {
		return "", inactive("User is not active")
	}
	if u.Role == "" {
		return models.RoleEmployee, nil
	}
	return u.Role, nil
}

// PreferredCurrency returns the user's display currency, or the default
// when none is stored or the user is unknown
func (s *Users) PreferredCurrency(ctx context.Context, id string) (models.Currency, error) {
	var currency sql.NullString
	err := s.db.QueryRowContext(ctx, "SELECT currency FROM users WHERE id = ?", id).Scan(&currency)
	if errors.Is(err, sql.ErrNoRows) {
		return models.DefaultCurrency, nil
	}
	if err != nil {
		return "", internal(err, "error loading user currency")
	}
	c, ok := models.ParseCurrency(currency.String)
	if !ok {
		return models.DefaultCurrency, nil
	}
	return c, nil
}

// SetPreferredCurrency stores the user's display currency
func (s *Users) SetPreferredCurrency(ctx context.Context, id, value string) (models.Currency, error) {
	c, ok := models.ParseCurrency(value)
	if !ok {
		return "", validation("unsupported currency %q", value)
	}
	result, err := s.db.ExecContext(ctx, "UPDATE users SET currency = ?, updated_at = ? WHERE id = ?", c, s.now().UTC(), id)
	if err != nil {
		return "", internal(err, "error updating user currency")
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return "", notFound("User not found")
	}
	return c, nil
}

// SetRole changes the role of target on behalf of actor. Only admins may
// grant admin, nobody may change their own role and only admins may change
// the role of another admin.
func (s *Users) SetRole(ctx context.Context, actorID, targetID, role string) error {
	if !ValidRole(role) {
		return validation("invalid role: %s", role)
	}
	if actorID == targetID {
		return newError(KindInvalidStateTransition, "Cannot change your own role")
	}

	actorRole, err := s.Role(ctx, actorID)
	if err != nil {
		return err
	}
	target, err := s.Get(ctx, targetID)
	if err != nil {
		return err
	}
	if target.Deleted() {
		return notFound("User not found")
	}

	if !IsRoleAtLeast(actorRole, models.RoleManager) {
		return newError(KindInvalidStateTransition, "Insufficient permissions to change roles")
	}
	if (role == models.RoleAdmin || target.Role == models.RoleAdmin) && actorRole != models.RoleAdmin {
		return newError(KindInvalidStateTransition, "Only admins can change admin roles")
	}

	_, err = s.db.ExecContext(ctx, "UPDATE users SET role = ?, updated_at = ? WHERE id = ?", role, s.now().UTC(), targetID)
	if err != nil {
		return internal(err, "failed to update user role")
	}
	return nil
}

// SoftDelete deactivates a user, records when and strips the personal
// fields so the email can be registered again
func (s *Users) SoftDelete(ctx context.Context, id string) error {
	u, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if u.Deleted() {
		return nil
	}

	now := s.now().UTC()
	_, err = s.db.ExecContext(ctx, `
		UPDATE users
		SET is_active = 0, deleted_at = ?, name = 'Deleted user', email = NULL, phone = NULL,
			password_hash = NULL, temp_password_hash = NULL, updated_at = ?
		WHERE id = ?
	`, now, now, id)
	if err != nil {
		return internal(err, "error deleting user %s", id)
	}
	return nil
}
