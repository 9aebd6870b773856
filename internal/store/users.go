// ABOUTME: User entity store methods for admins and device operators
// ABOUTME: Users are keyed by employee_id from the external employee registry

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CreateUser inserts a new user. Returns ErrUsernameExists if the username
// is taken.
func (s *SQLiteStore) CreateUser(ctx context.Context, u *User) error {
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO users (employee_id, username, password_hash, role, is_active, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		u.EmployeeID,
		u.Username,
		u.PasswordHash,
		u.Role,
		u.IsActive,
		u.CreatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrUsernameExists
		}
		return fmt.Errorf("inserting user: %w", err)
	}

	s.logger.Info("created user", "employee_id", u.EmployeeID, "username", u.Username, "role", u.Role)
	return nil
}

const userColumns = `employee_id, username, password_hash, role, is_active, created_at`

func scanUser(scanner interface{ Scan(dest ...any) error }) (*User, error) {
	var u User
	var roleStr, createdAtStr string

	if err := scanner.Scan(
		&u.EmployeeID,
		&u.Username,
		&u.PasswordHash,
		&roleStr,
		&u.IsActive,
		&createdAtStr,
	); err != nil {
		return nil, err
	}

	u.Role = UserRole(roleStr)

	var err error
	if u.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	return &u, nil
}

// GetUserByUsername retrieves a user by unique username.
// Returns ErrUserNotFound if no record exists.
func (s *SQLiteStore) GetUserByUsername(ctx context.Context, username string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE username = ?`, username)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by username: %w", err)
	}
	return u, nil
}

// GetUserByEmployeeID retrieves a user by employee id.
// Returns ErrUserNotFound if no record exists.
func (s *SQLiteStore) GetUserByEmployeeID(ctx context.Context, employeeID int64) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE employee_id = ?`, employeeID)

	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user by employee id: %w", err)
	}
	return u, nil
}

// SetUserActive flips the is_active flag. Deactivation takes effect on the
// next request because both auth predicates re-check the flag per request.
func (s *SQLiteStore) SetUserActive(ctx context.Context, employeeID int64, active bool) error {
	result, err := s.db.ExecContext(ctx,
		`UPDATE users SET is_active = ? WHERE employee_id = ?`, active, employeeID)
	if err != nil {
		return fmt.Errorf("updating user active flag: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrUserNotFound
	}

	s.logger.Info("set user active flag", "employee_id", employeeID, "active", active)
	return nil
}

// CountAdmins returns the number of admin users, used by bootstrap to
// decide whether an initial admin is needed.
func (s *SQLiteStore) CountAdmins(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM users WHERE role = ?`, RoleAdmin).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting admins: %w", err)
	}
	return count, nil
}

// FilterValidEmployees returns the subset of the given employee ids that
// exist as operator users. Order of the result follows database order, not
// input order.
func (s *SQLiteStore) FilterValidEmployees(ctx context.Context, employeeIDs []int64) ([]int64, error) {
	if len(employeeIDs) == 0 {
		return nil, nil
	}

	placeholders := strings.Repeat("?,", len(employeeIDs))
	placeholders = placeholders[:len(placeholders)-1]

	args := make([]any, 0, len(employeeIDs)+1)
	for _, id := range employeeIDs {
		args = append(args, id)
	}
	args = append(args, RoleOperator)

	query := `SELECT employee_id FROM users WHERE employee_id IN (` + placeholders + `) AND role = ?`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying valid employees: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var valid []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning employee id: %w", err)
		}
		valid = append(valid, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating employee ids: %w", err)
	}
	return valid, nil
}
