// ABOUTME: Store interfaces and data types for kioskgate persistence
// ABOUTME: Defines Device, User, Assignment structs and the store interfaces

package store

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors returned by store implementations.
var (
	ErrDeviceNotFound = errors.New("device not found")
	ErrUserNotFound   = errors.New("user not found")
	ErrUsernameExists = errors.New("username already exists")
	ErrDuplicateUUID  = errors.New("device uuid already registered")

	// ErrInvalidState is returned when a lifecycle update's expected
	// starting status does not match the device's current status.
	ErrInvalidState = errors.New("invalid device state for transition")

	// ErrCredentialIssued is returned when a credential slot is already
	// occupied and a second issuance is attempted.
	ErrCredentialIssued = errors.New("credential already issued")
)

// DeviceStatus represents a device's lifecycle state.
type DeviceStatus string

const (
	DeviceStatusPending  DeviceStatus = "pending"
	DeviceStatusActive   DeviceStatus = "active"
	DeviceStatusRejected DeviceStatus = "rejected"
	DeviceStatusRevoked  DeviceStatus = "revoked"
)

// ValidDeviceStatuses lists all valid device statuses.
var ValidDeviceStatuses = []DeviceStatus{
	DeviceStatusPending,
	DeviceStatusActive,
	DeviceStatusRejected,
	DeviceStatusRevoked,
}

// Device represents a provisioned (or provisioning) kiosk device.
// CredentialHash is non-nil only while an issued device token is live.
type Device struct {
	ID              int64
	UUID            string
	CredentialHash  *string
	Name            string
	AssignedSite    string
	RegisteredBy    *int64 // employee id, nil for self-registered devices
	Status          DeviceStatus
	AppVersion      string
	OSVersion       string
	LastUpdateCheck time.Time
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// UserRole represents a user's role.
type UserRole string

const (
	RoleAdmin    UserRole = "admin"
	RoleOperator UserRole = "operator"
)

// User represents a principal in the credential store, keyed by the
// employee id of an external employee registry.
type User struct {
	EmployeeID   int64
	Username     string
	PasswordHash string
	Role         UserRole
	IsActive     bool
	CreatedAt    time.Time
}

// Assignment is an authorization edge permitting an operator to use a device.
type Assignment struct {
	ID         int64
	DeviceID   int64
	EmployeeID int64
	AssignedBy int64
	AssignedAt time.Time
}

// DeviceStore defines the interface for device lifecycle persistence.
// SQLiteStore is the single writer of the devices table.
type DeviceStore interface {
	CreateDevice(ctx context.Context, d *Device) error
	GetDeviceByUUID(ctx context.Context, uuid string) (*Device, error)
	GetDevice(ctx context.Context, id int64) (*Device, error)
	ListDevices(ctx context.Context, limit int) ([]*Device, error)
	ListDevicesByStatus(ctx context.Context, status DeviceStatus, limit int) ([]*Device, error)

	// UpdateDeviceStatus transitions a device from the expected status to
	// the new one. Returns ErrInvalidState if the device is not currently
	// in the expected status, ErrDeviceNotFound if it does not exist.
	UpdateDeviceStatus(ctx context.Context, id int64, from, to DeviceStatus) error

	// ClaimCredentialSlot atomically stores a credential hash for an
	// active device whose slot is empty. Returns ErrCredentialIssued if
	// the slot is occupied or the device is not active; exactly one of N
	// concurrent callers can succeed.
	ClaimCredentialSlot(ctx context.Context, id int64, hash string) error

	// ClearCredentialHash empties the credential slot regardless of
	// status. Clearing an already-empty slot is not an error.
	ClearCredentialHash(ctx context.Context, id int64) error

	// RevokeDevice transitions an active device to revoked, clears its
	// credential hash, and removes all of its assignments in a single
	// transaction.
	RevokeDevice(ctx context.Context, id int64) error

	// TouchLastUpdateCheck records that the device polled its status.
	TouchLastUpdateCheck(ctx context.Context, id int64) error
}

// UserStore defines the interface for user persistence.
type UserStore interface {
	CreateUser(ctx context.Context, u *User) error
	GetUserByUsername(ctx context.Context, username string) (*User, error)
	GetUserByEmployeeID(ctx context.Context, employeeID int64) (*User, error)
	SetUserActive(ctx context.Context, employeeID int64, active bool) error
	CountAdmins(ctx context.Context) (int, error)

	// FilterValidEmployees returns the subset of the given employee ids
	// that exist as operator users.
	FilterValidEmployees(ctx context.Context, employeeIDs []int64) ([]int64, error)
}

// AssignmentStore defines the interface for assignment persistence.
// SQLiteStore is the single writer of the device_assignments table.
type AssignmentStore interface {
	// AssignUsers creates assignment rows for the given employees.
	// Duplicate (device, employee) pairs are ignored; returns the number
	// of rows actually created.
	AssignUsers(ctx context.Context, deviceID int64, employeeIDs []int64, assignedBy int64) (int, error)

	IsAssigned(ctx context.Context, employeeID, deviceID int64) (bool, error)
	ListAssignmentsForDevice(ctx context.Context, deviceID int64) ([]*Assignment, error)
	RemoveAssignmentsForDevice(ctx context.Context, deviceID int64) error
}
