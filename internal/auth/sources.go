// ABOUTME: Narrow store interfaces consumed by the auth gateway
// ABOUTME: Satisfied by store.SQLiteStore; split per concern for testability

package auth

import (
	"context"

	"github.com/kioskgate/kioskgate/internal/store"
)

// UserSource looks up users for login and per-request re-verification.
type UserSource interface {
	GetUserByUsername(ctx context.Context, username string) (*store.User, error)
	GetUserByEmployeeID(ctx context.Context, employeeID int64) (*store.User, error)
}

// DeviceSource resolves devices by their client-generated UUID.
type DeviceSource interface {
	GetDeviceByUUID(ctx context.Context, uuid string) (*store.Device, error)
}

// AssignmentSource answers whether an operator is assigned to a device.
type AssignmentSource interface {
	IsAssigned(ctx context.Context, employeeID, deviceID int64) (bool, error)
}

// DeviceTokenValidator runs the one-way comparison of a presented device
// token against the stored credential hash.
type DeviceTokenValidator interface {
	ValidateDeviceToken(ctx context.Context, deviceUUID, token string) (bool, error)
}
