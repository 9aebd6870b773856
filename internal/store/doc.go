// Package store provides persistence for kioskgate using SQLite.
//
// # Overview
//
// The store owns four tables and exposes one interface per concern:
//
//   - users: admins and operators keyed by employee_id (UserStore)
//   - devices: kiosk lifecycle records and credential hashes (DeviceStore)
//   - device_assignments: operator-to-device authorization edges (AssignmentStore)
//   - device_events: the append-only audit trail (AuditStore)
//
// SQLiteStore implements all four. It is the single writer of every table;
// services never touch the database directly.
//
// # Lifecycle discipline
//
// Device status transitions are conditional updates guarded by the expected
// starting status, so an out-of-order admin action surfaces as
// ErrInvalidState instead of silently clobbering state. Credential issuance
// goes through ClaimCredentialSlot, a conditional update on
// credential_hash IS NULL that admits exactly one winner under concurrent
// fetches. RevokeDevice performs the status change, hash clear, and
// assignment teardown in one transaction.
//
// # Errors
//
// Expected conditions are sentinel errors (ErrDeviceNotFound,
// ErrInvalidState, ErrCredentialIssued, ...) so callers can dispatch with
// errors.Is. Infrastructure failures are wrapped with context.
//
// # Schema
//
// The schema is created automatically on first open. WAL mode and foreign
// keys are enabled. Timestamps are stored as RFC 3339 strings in UTC.
package store
