// ABOUTME: Device entity store methods implementing the provisioning lifecycle
// ABOUTME: Lifecycle transitions and credential issuance use atomic conditional updates

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// CreateDevice inserts a new device record. The status defaults to pending
// when unset. Returns ErrDuplicateUUID if the uuid is already registered.
func (s *SQLiteStore) CreateDevice(ctx context.Context, d *Device) error {
	now := time.Now().UTC()
	if d.CreatedAt.IsZero() {
		d.CreatedAt = now
	}
	if d.UpdatedAt.IsZero() {
		d.UpdatedAt = now
	}
	if d.LastUpdateCheck.IsZero() {
		d.LastUpdateCheck = now
	}
	if d.Status == "" {
		d.Status = DeviceStatusPending
	}

	query := `
		INSERT INTO devices (device_uuid, credential_hash, device_name, assigned_site, registered_by,
			status, app_version, os_version, last_update_check, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := s.db.ExecContext(ctx, query,
		d.UUID,
		d.CredentialHash,
		nullString(d.Name),
		nullString(d.AssignedSite),
		d.RegisteredBy,
		d.Status,
		nullString(d.AppVersion),
		nullString(d.OSVersion),
		d.LastUpdateCheck.Format(time.RFC3339),
		d.CreatedAt.Format(time.RFC3339),
		d.UpdatedAt.Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateUUID
		}
		return fmt.Errorf("inserting device: %w", err)
	}

	d.ID, err = result.LastInsertId()
	if err != nil {
		return fmt.Errorf("getting device id: %w", err)
	}

	s.logger.Debug("created device", "id", d.ID, "uuid", d.UUID, "status", d.Status)
	return nil
}

const deviceColumns = `device_id, device_uuid, credential_hash, device_name, assigned_site,
	registered_by, status, app_version, os_version, last_update_check, created_at, updated_at`

// scanDevice scans a row into a Device.
func scanDevice(scanner interface{ Scan(dest ...any) error }) (*Device, error) {
	var d Device
	var credentialHash, name, site, appVersion, osVersion sql.NullString
	var registeredBy sql.NullInt64
	var statusStr, lastCheckStr, createdAtStr, updatedAtStr string

	if err := scanner.Scan(
		&d.ID,
		&d.UUID,
		&credentialHash,
		&name,
		&site,
		&registeredBy,
		&statusStr,
		&appVersion,
		&osVersion,
		&lastCheckStr,
		&createdAtStr,
		&updatedAtStr,
	); err != nil {
		return nil, err
	}

	if credentialHash.Valid {
		d.CredentialHash = &credentialHash.String
	}
	if registeredBy.Valid {
		d.RegisteredBy = &registeredBy.Int64
	}
	d.Name = name.String
	d.AssignedSite = site.String
	d.AppVersion = appVersion.String
	d.OSVersion = osVersion.String
	d.Status = DeviceStatus(statusStr)

	var err error
	if d.LastUpdateCheck, err = time.Parse(time.RFC3339, lastCheckStr); err != nil {
		return nil, fmt.Errorf("parsing last_update_check: %w", err)
	}
	if d.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr); err != nil {
		return nil, fmt.Errorf("parsing created_at: %w", err)
	}
	if d.UpdatedAt, err = time.Parse(time.RFC3339, updatedAtStr); err != nil {
		return nil, fmt.Errorf("parsing updated_at: %w", err)
	}

	return &d, nil
}

// GetDeviceByUUID retrieves a device by its client-generated UUID.
// Returns ErrDeviceNotFound if no record exists.
func (s *SQLiteStore) GetDeviceByUUID(ctx context.Context, uuid string) (*Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE device_uuid = ?`, uuid)

	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying device by uuid: %w", err)
	}
	return d, nil
}

// GetDevice retrieves a device by its server-assigned id.
// Returns ErrDeviceNotFound if no record exists.
func (s *SQLiteStore) GetDevice(ctx context.Context, id int64) (*Device, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE device_id = ?`, id)

	d, err := scanDevice(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrDeviceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying device: %w", err)
	}
	return d, nil
}

// normalizeDeviceLimit applies default (100) and cap (1000) to list limits.
func normalizeDeviceLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

// ListDevices returns devices ordered by most recent registration.
func (s *SQLiteStore) ListDevices(ctx context.Context, limit int) ([]*Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices ORDER BY created_at DESC LIMIT ?`,
		normalizeDeviceLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying devices: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectDevices(rows)
}

// ListDevicesByStatus returns devices in the given lifecycle status,
// oldest registration first so admins review in arrival order.
func (s *SQLiteStore) ListDevicesByStatus(ctx context.Context, status DeviceStatus, limit int) ([]*Device, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+deviceColumns+` FROM devices WHERE status = ? ORDER BY created_at ASC LIMIT ?`,
		status, normalizeDeviceLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying devices by status: %w", err)
	}
	defer func() { _ = rows.Close() }()

	return collectDevices(rows)
}

func collectDevices(rows *sql.Rows) ([]*Device, error) {
	var devices []*Device
	for rows.Next() {
		d, err := scanDevice(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning device row: %w", err)
		}
		devices = append(devices, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device rows: %w", err)
	}
	return devices, nil
}

// UpdateDeviceStatus transitions a device from the expected status to the
// new one. The WHERE clause on the current status makes the transition
// atomic; a zero-row update is disambiguated into ErrDeviceNotFound or
// ErrInvalidState.
func (s *SQLiteStore) UpdateDeviceStatus(ctx context.Context, id int64, from, to DeviceStatus) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		`UPDATE devices SET status = ?, updated_at = ? WHERE device_id = ? AND status = ?`,
		to, now, id, from)
	if err != nil {
		return fmt.Errorf("updating device status: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected > 0 {
		s.logger.Info("device status updated", "id", id, "from", from, "to", to)
		return nil
	}

	// Zero rows: either the device is missing or it is in another status.
	if _, err := s.GetDevice(ctx, id); err != nil {
		return err
	}
	return ErrInvalidState
}

// ClaimCredentialSlot atomically stores a credential hash for an active
// device whose slot is empty. The conditional update is what enforces
// at-most-once issuance under concurrent fetches: of N simultaneous
// callers, exactly one update matches a row.
func (s *SQLiteStore) ClaimCredentialSlot(ctx context.Context, id int64, hash string) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx, `
		UPDATE devices
		SET credential_hash = ?, updated_at = ?
		WHERE device_id = ? AND status = ? AND credential_hash IS NULL
	`, hash, now, id, DeviceStatusActive)
	if err != nil {
		return fmt.Errorf("claiming credential slot: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected > 0 {
		s.logger.Info("credential slot claimed", "id", id)
		return nil
	}

	if _, err := s.GetDevice(ctx, id); err != nil {
		return err
	}
	return ErrCredentialIssued
}

// ClearCredentialHash empties the credential slot regardless of status.
// Returns ErrDeviceNotFound if the device does not exist; clearing an
// already-empty slot succeeds silently.
func (s *SQLiteStore) ClearCredentialHash(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339)

	result, err := s.db.ExecContext(ctx,
		`UPDATE devices SET credential_hash = NULL, updated_at = ? WHERE device_id = ?`,
		now, id)
	if err != nil {
		return fmt.Errorf("clearing credential hash: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		return ErrDeviceNotFound
	}

	s.logger.Info("cleared credential hash", "id", id)
	return nil
}

// RevokeDevice transitions an active device to revoked, clears its
// credential hash, and removes all of its assignments in a single
// transaction so a partially-revoked device can never be observed.
func (s *SQLiteStore) RevokeDevice(ctx context.Context, id int64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning revoke transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	now := time.Now().UTC().Format(time.RFC3339)

	result, err := tx.ExecContext(ctx, `
		UPDATE devices
		SET status = ?, credential_hash = NULL, updated_at = ?
		WHERE device_id = ? AND status = ?
	`, DeviceStatusRevoked, now, id, DeviceStatusActive)
	if err != nil {
		return fmt.Errorf("revoking device: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected == 0 {
		// Disambiguate inside the transaction; the pool may be down to
		// this one connection.
		var exists int
		err := tx.QueryRowContext(ctx,
			`SELECT 1 FROM devices WHERE device_id = ?`, id).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrDeviceNotFound
		}
		if err != nil {
			return fmt.Errorf("checking device during revoke: %w", err)
		}
		return ErrInvalidState
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM device_assignments WHERE device_id = ?`, id); err != nil {
		return fmt.Errorf("removing assignments during revoke: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing revoke transaction: %w", err)
	}

	s.logger.Info("revoked device", "id", id)
	return nil
}

// TouchLastUpdateCheck records that the device polled its status.
func (s *SQLiteStore) TouchLastUpdateCheck(ctx context.Context, id int64) error {
	now := time.Now().UTC().Format(time.RFC3339)

	_, err := s.db.ExecContext(ctx,
		`UPDATE devices SET last_update_check = ? WHERE device_id = ?`, now, id)
	if err != nil {
		return fmt.Errorf("touching last_update_check: %w", err)
	}
	return nil
}
