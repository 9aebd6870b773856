// ABOUTME: Login orchestration for administrators and device operators
// ABOUTME: All failure modes collapse into one opaque error to resist enumeration

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/kioskgate/kioskgate/internal/store"
	"github.com/kioskgate/kioskgate/internal/vault"
)

// ErrInvalidCredentials is returned for every login failure. Callers never
// learn which factor failed: wrong password, wrong device, missing
// assignment, and unknown username are indistinguishable from outside.
var ErrInvalidCredentials = errors.New("invalid credentials")

// Service handles admin and operator login and issues session tokens.
type Service struct {
	users       UserSource
	devices     DeviceSource
	assignments AssignmentSource
	validator   DeviceTokenValidator
	audit       store.AuditStore
	signer      *Signer

	adminTTL    time.Duration
	operatorTTL time.Duration

	logger *slog.Logger
}

// NewService creates a login service. Every dependency is injected; the
// service holds no ambient state.
func NewService(
	users UserSource,
	devices DeviceSource,
	assignments AssignmentSource,
	validator DeviceTokenValidator,
	audit store.AuditStore,
	signer *Signer,
	adminTTL, operatorTTL time.Duration,
) *Service {
	return &Service{
		users:       users,
		devices:     devices,
		assignments: assignments,
		validator:   validator,
		audit:       audit,
		signer:      signer,
		adminTTL:    adminTTL,
		operatorTTL: operatorTTL,
		logger:      slog.Default().With("component", "auth"),
	}
}

// AdminLogin authenticates an administrator by username and password and
// returns a signed session token.
func (s *Service) AdminLogin(ctx context.Context, username, password string) (string, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			// burn a comparison so unknown usernames take as long as known ones
			vault.VerifyDummy(password)
			return "", ErrInvalidCredentials
		}
		return "", err
	}

	if user.Role != store.RoleAdmin || !user.IsActive {
		vault.VerifyDummy(password)
		return "", ErrInvalidCredentials
	}

	if !vault.VerifySecret(password, user.PasswordHash) {
		return "", ErrInvalidCredentials
	}

	token, err := s.signer.Sign(SessionClaims{
		EmployeeID: user.EmployeeID,
		Role:       string(store.RoleAdmin),
		Username:   user.Username,
	}, s.adminTTL)
	if err != nil {
		return "", err
	}

	s.appendEvent(ctx, &store.DeviceEvent{
		DeviceUUID: "",
		ActorID:    &user.EmployeeID,
		Type:       store.EventAdminLogin,
		Detail:     map[string]any{"username": user.Username},
	})

	return token, nil
}

// OperatorSession is the result of a successful operator login.
type OperatorSession struct {
	Token      string
	EmployeeID int64
	Username   string
	DeviceID   int64
}

// OperatorLogin authenticates an operator against all four factors:
// username, password, device identity, and assignment. The session claims
// embed the device id, enabling the gateway's device-binding check. The
// check order is deliberate; swapping it changes what a failed caller can
// infer.
func (s *Service) OperatorLogin(ctx context.Context, deviceUUID, deviceToken, username, password string) (*OperatorSession, error) {
	user, err := s.users.GetUserByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrUserNotFound) {
			vault.VerifyDummy(password)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if user.Role != store.RoleOperator || !user.IsActive {
		vault.VerifyDummy(password)
		return nil, ErrInvalidCredentials
	}

	if !vault.VerifySecret(password, user.PasswordHash) {
		return nil, ErrInvalidCredentials
	}

	device, err := s.devices.GetDeviceByUUID(ctx, deviceUUID)
	if err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := s.validator.ValidateDeviceToken(ctx, deviceUUID, deviceToken)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	assigned, err := s.assignments.IsAssigned(ctx, user.EmployeeID, device.ID)
	if err != nil {
		return nil, err
	}
	if !assigned {
		return nil, ErrInvalidCredentials
	}

	token, err := s.signer.Sign(SessionClaims{
		EmployeeID: user.EmployeeID,
		Role:       string(store.RoleOperator),
		Username:   user.Username,
		DeviceID:   device.ID,
	}, s.operatorTTL)
	if err != nil {
		return nil, err
	}

	s.appendEvent(ctx, &store.DeviceEvent{
		DeviceID:   &device.ID,
		DeviceUUID: device.UUID,
		ActorID:    &user.EmployeeID,
		Type:       store.EventOperatorLogin,
		Detail:     map[string]any{"username": user.Username},
	})

	return &OperatorSession{
		Token:      token,
		EmployeeID: user.EmployeeID,
		Username:   user.Username,
		DeviceID:   device.ID,
	}, nil
}

// appendEvent writes to the audit log, best effort. Audit must never block
// or fail a login.
func (s *Service) appendEvent(ctx context.Context, e *store.DeviceEvent) {
	if err := s.audit.AppendDeviceEvent(ctx, e); err != nil {
		s.logger.Warn("failed to append audit event", "type", e.Type, "error", err)
	}
}
