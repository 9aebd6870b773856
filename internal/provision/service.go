// ABOUTME: Device provisioning lifecycle: registration, status polling, credential issuance
// ABOUTME: Enforces at-most-once plaintext token delivery via the store's conditional claim

package provision

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/kioskgate/kioskgate/internal/store"
	"github.com/kioskgate/kioskgate/internal/vault"
)

// ErrDeviceNotActive is returned when a credential fetch is attempted
// before the device has been approved (or after it left the active state).
var ErrDeviceNotActive = errors.New("device is not active")

// StatusUnknown is reported when a device polls for a uuid that has no
// record. Kiosks treat it the same as pending and keep waiting.
const StatusUnknown = "unknown"

// Store is the persistence surface the provisioning service needs.
type Store interface {
	store.DeviceStore
	store.AuditStore
}

// Service drives the device provisioning lifecycle. All mutations flow
// through the store's conditional updates so concurrent callers cannot
// double-issue a credential.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates a provisioning service backed by the given store.
func NewService(st Store) *Service {
	return &Service{
		store:  st,
		logger: slog.Default().With("component", "provision"),
	}
}

// RegisterRequest carries the self-reported metadata a kiosk submits when
// it first asks to join the fleet.
type RegisterRequest struct {
	DeviceUUID   string
	Name         string
	AssignedSite string
	AppVersion   string
	OSVersion    string
}

// RegisterResult reports the outcome of a registration request.
type RegisterResult struct {
	Status    store.DeviceStatus
	Duplicate bool
}

// Register records a new pending device, or reports the current status if
// the uuid is already registered. Repeat submissions are not an error; a
// kiosk retrying after a lost response must land in the same place.
func (s *Service) Register(ctx context.Context, req RegisterRequest) (*RegisterResult, error) {
	if req.DeviceUUID == "" {
		return nil, fmt.Errorf("device uuid is required")
	}

	device := &store.Device{
		UUID:         req.DeviceUUID,
		Name:         req.Name,
		AssignedSite: req.AssignedSite,
		AppVersion:   req.AppVersion,
		OSVersion:    req.OSVersion,
		Status:       store.DeviceStatusPending,
	}

	err := s.store.CreateDevice(ctx, device)
	if err != nil {
		if !errors.Is(err, store.ErrDuplicateUUID) {
			return nil, fmt.Errorf("failed to create device: %w", err)
		}

		existing, getErr := s.store.GetDeviceByUUID(ctx, req.DeviceUUID)
		if getErr != nil {
			return nil, fmt.Errorf("failed to load existing device: %w", getErr)
		}

		s.appendEvent(ctx, &store.DeviceEvent{
			DeviceID:   &existing.ID,
			DeviceUUID: existing.UUID,
			Type:       store.EventRegisterRequestedDuplicate,
			Detail:     map[string]any{"status": string(existing.Status)},
		})
		return &RegisterResult{Status: existing.Status, Duplicate: true}, nil
	}

	s.logger.Info("device registration requested", "device_uuid", device.UUID, "name", device.Name)
	s.appendEvent(ctx, &store.DeviceEvent{
		DeviceID:   &device.ID,
		DeviceUUID: device.UUID,
		Type:       store.EventRegisterRequested,
		Detail:     map[string]any{"name": device.Name, "site": device.AssignedSite},
	})

	return &RegisterResult{Status: store.DeviceStatusPending}, nil
}

// Status reports the lifecycle status for a device uuid. Unregistered
// uuids report StatusUnknown rather than an error, so a kiosk polling
// before registration lands does not alarm. Known devices get their
// last_update_check timestamp refreshed.
func (s *Service) Status(ctx context.Context, deviceUUID string) (string, error) {
	device, err := s.store.GetDeviceByUUID(ctx, deviceUUID)
	if err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			return StatusUnknown, nil
		}
		return "", fmt.Errorf("failed to load device: %w", err)
	}

	if err := s.store.TouchLastUpdateCheck(ctx, device.ID); err != nil {
		s.logger.Warn("failed to touch last update check", "device_uuid", deviceUUID, "error", err)
	}

	return string(device.Status), nil
}

// FetchCredential mints and returns the device's one-time plaintext token.
// The plaintext crosses the wire exactly once: only its bcrypt hash is
// stored, and the slot claim is a conditional write, so of N concurrent
// fetches exactly one receives a token and the rest get
// store.ErrCredentialIssued.
func (s *Service) FetchCredential(ctx context.Context, deviceUUID string) (string, error) {
	device, err := s.store.GetDeviceByUUID(ctx, deviceUUID)
	if err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			return "", store.ErrDeviceNotFound
		}
		return "", fmt.Errorf("failed to load device: %w", err)
	}

	if device.Status != store.DeviceStatusActive {
		s.appendEvent(ctx, &store.DeviceEvent{
			DeviceID:   &device.ID,
			DeviceUUID: device.UUID,
			Type:       store.EventCredentialFetchDenied,
			Detail:     map[string]any{"status": string(device.Status)},
		})
		return "", ErrDeviceNotActive
	}

	if device.CredentialHash != nil {
		s.appendEvent(ctx, &store.DeviceEvent{
			DeviceID:   &device.ID,
			DeviceUUID: device.UUID,
			Type:       store.EventCredentialFetchAfterIssue,
		})
		return "", store.ErrCredentialIssued
	}

	token := vault.NewToken()
	hash, err := vault.HashSecret(token)
	if err != nil {
		return "", fmt.Errorf("failed to hash credential: %w", err)
	}

	if err := s.store.ClaimCredentialSlot(ctx, device.ID, hash); err != nil {
		if errors.Is(err, store.ErrCredentialIssued) {
			// lost the race to a concurrent fetch
			s.appendEvent(ctx, &store.DeviceEvent{
				DeviceID:   &device.ID,
				DeviceUUID: device.UUID,
				Type:       store.EventCredentialFetchAfterIssue,
			})
			return "", store.ErrCredentialIssued
		}
		return "", fmt.Errorf("failed to claim credential slot: %w", err)
	}

	s.logger.Info("device credential issued", "device_uuid", device.UUID)
	s.appendEvent(ctx, &store.DeviceEvent{
		DeviceID:   &device.ID,
		DeviceUUID: device.UUID,
		Type:       store.EventCredentialIssued,
	})

	return token, nil
}

// ValidateDeviceToken verifies a presented device token against the
// stored hash. Unknown devices and devices without an issued credential
// fail closed. Both outcomes are audited.
func (s *Service) ValidateDeviceToken(ctx context.Context, deviceUUID, token string) (bool, error) {
	device, err := s.store.GetDeviceByUUID(ctx, deviceUUID)
	if err != nil {
		if errors.Is(err, store.ErrDeviceNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("failed to load device: %w", err)
	}

	valid := device.CredentialHash != nil && vault.VerifySecret(token, *device.CredentialHash)

	s.appendEvent(ctx, &store.DeviceEvent{
		DeviceID:   &device.ID,
		DeviceUUID: device.UUID,
		Type:       store.EventDeviceValidation,
		Detail:     map[string]any{"valid": valid},
	})

	return valid, nil
}

// appendEvent writes to the audit log, best effort.
func (s *Service) appendEvent(ctx context.Context, e *store.DeviceEvent) {
	if err := s.store.AppendDeviceEvent(ctx, e); err != nil {
		s.logger.Warn("failed to append audit event", "type", e.Type, "device_uuid", e.DeviceUUID, "error", err)
	}
}
