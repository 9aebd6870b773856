// ABOUTME: Assignment store methods linking operators to devices
// ABOUTME: Inserts are idempotent; at most one row per (device, employee) pair

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// AssignUsers creates assignment rows for the given employees. Duplicate
// (device, employee) pairs are ignored rather than erroring, so re-assigning
// is a no-op. Returns the number of rows actually created.
func (s *SQLiteStore) AssignUsers(ctx context.Context, deviceID int64, employeeIDs []int64, assignedBy int64) (int, error) {
	if len(employeeIDs) == 0 {
		return 0, nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning assignment transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)
	created := 0

	for _, employeeID := range employeeIDs {
		result, err := tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO device_assignments (device_id, employee_id, assigned_by, assigned_at)
			VALUES (?, ?, ?, ?)
		`, deviceID, employeeID, assignedBy, now)
		if err != nil {
			return 0, fmt.Errorf("inserting assignment: %w", err)
		}

		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return 0, fmt.Errorf("getting rows affected: %w", err)
		}
		created += int(rowsAffected)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing assignment transaction: %w", err)
	}

	s.logger.Info("assigned users to device", "device_id", deviceID, "requested", len(employeeIDs), "created", created)
	return created, nil
}

// IsAssigned answers whether the operator is permitted to use the device.
func (s *SQLiteStore) IsAssigned(ctx context.Context, employeeID, deviceID int64) (bool, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM device_assignments WHERE employee_id = ? AND device_id = ? LIMIT 1
	`, employeeID, deviceID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("querying assignment: %w", err)
	}
	return true, nil
}

// ListAssignmentsForDevice returns all assignments for a device, oldest first.
func (s *SQLiteStore) ListAssignmentsForDevice(ctx context.Context, deviceID int64) ([]*Assignment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, device_id, employee_id, assigned_by, assigned_at
		FROM device_assignments
		WHERE device_id = ?
		ORDER BY assigned_at ASC, id ASC
	`, deviceID)
	if err != nil {
		return nil, fmt.Errorf("querying assignments: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var assignments []*Assignment
	for rows.Next() {
		var a Assignment
		var assignedAtStr string

		if err := rows.Scan(&a.ID, &a.DeviceID, &a.EmployeeID, &a.AssignedBy, &assignedAtStr); err != nil {
			return nil, fmt.Errorf("scanning assignment row: %w", err)
		}

		if a.AssignedAt, err = time.Parse(time.RFC3339, assignedAtStr); err != nil {
			return nil, fmt.Errorf("parsing assigned_at: %w", err)
		}
		assignments = append(assignments, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assignment rows: %w", err)
	}
	return assignments, nil
}

// RemoveAssignmentsForDevice deletes every assignment for a device.
// Removing from an unassigned device succeeds silently.
func (s *SQLiteStore) RemoveAssignmentsForDevice(ctx context.Context, deviceID int64) error {
	result, err := s.db.ExecContext(ctx,
		`DELETE FROM device_assignments WHERE device_id = ?`, deviceID)
	if err != nil {
		return fmt.Errorf("removing assignments: %w", err)
	}

	rowsAffected, _ := result.RowsAffected()
	if rowsAffected > 0 {
		s.logger.Info("removed assignments", "device_id", deviceID, "count", rowsAffected)
	}
	return nil
}
