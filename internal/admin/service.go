// ABOUTME: Administrative device management: review queue, lifecycle transitions, assignments
// ABOUTME: Every mutation records who did it in the device event log

package admin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kioskgate/kioskgate/internal/store"
)

// Store is the persistence surface the admin service needs.
type Store interface {
	store.DeviceStore
	store.UserStore
	store.AssignmentStore
	store.AuditStore
}

// Service implements the administrative operations on the device fleet.
// Actor ids come from the verified admin identity; the service never
// authenticates on its own.
type Service struct {
	store  Store
	logger *slog.Logger
}

// NewService creates an admin service backed by the given store.
func NewService(st Store) *Service {
	return &Service{
		store:  st,
		logger: slog.Default().With("component", "admin"),
	}
}

// ListPending returns devices awaiting review, oldest first.
func (s *Service) ListPending(ctx context.Context, limit int) ([]*store.Device, error) {
	return s.store.ListDevicesByStatus(ctx, store.DeviceStatusPending, limit)
}

// ListAll returns all devices, newest first.
func (s *Service) ListAll(ctx context.Context, limit int) ([]*store.Device, error) {
	return s.store.ListDevices(ctx, limit)
}

// DeviceDetails bundles a device with its assignments and recent events.
type DeviceDetails struct {
	Device      *store.Device
	Assignments []*store.Assignment
	Events      []store.DeviceEvent
}

// GetDeviceDetails returns the full picture for one device: the record,
// its operator assignments, and the most recent audit events.
func (s *Service) GetDeviceDetails(ctx context.Context, deviceID int64) (*DeviceDetails, error) {
	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	assignments, err := s.store.ListAssignmentsForDevice(ctx, deviceID)
	if err != nil {
		return nil, fmt.Errorf("failed to list assignments: %w", err)
	}

	events, err := s.store.ListDeviceEvents(ctx, store.EventFilter{DeviceID: &deviceID, Limit: 50})
	if err != nil {
		return nil, fmt.Errorf("failed to list events: %w", err)
	}

	return &DeviceDetails{Device: device, Assignments: assignments, Events: events}, nil
}

// ListDeviceEvents returns the audit trail for one device.
func (s *Service) ListDeviceEvents(ctx context.Context, deviceID int64, limit int) ([]store.DeviceEvent, error) {
	if _, err := s.store.GetDevice(ctx, deviceID); err != nil {
		return nil, err
	}
	return s.store.ListDeviceEvents(ctx, store.EventFilter{DeviceID: &deviceID, Limit: limit})
}

// Approve transitions a pending device to active. Any other starting
// status is a state conflict; approval is never retroactive.
func (s *Service) Approve(ctx context.Context, deviceID, actorID int64) (*store.Device, error) {
	if err := s.store.UpdateDeviceStatus(ctx, deviceID, store.DeviceStatusPending, store.DeviceStatusActive); err != nil {
		return nil, err
	}

	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("device approved", "device_uuid", device.UUID, "actor_id", actorID)
	s.appendEvent(ctx, &store.DeviceEvent{
		DeviceID:   &device.ID,
		DeviceUUID: device.UUID,
		ActorID:    &actorID,
		Type:       store.EventApproved,
	})

	return device, nil
}

// RejectOrRevoke removes a device from service. A pending device is
// rejected; an active device is revoked, which also clears its credential
// and drops its assignments in one transaction. Devices already rejected
// or revoked are a state conflict.
func (s *Service) RejectOrRevoke(ctx context.Context, deviceID, actorID int64) (*store.Device, error) {
	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	switch device.Status {
	case store.DeviceStatusPending:
		if err := s.store.UpdateDeviceStatus(ctx, deviceID, store.DeviceStatusPending, store.DeviceStatusRejected); err != nil {
			return nil, err
		}
		s.appendEvent(ctx, &store.DeviceEvent{
			DeviceID:   &device.ID,
			DeviceUUID: device.UUID,
			ActorID:    &actorID,
			Type:       store.EventRejectPendingDevice,
		})

	case store.DeviceStatusActive:
		if err := s.store.RevokeDevice(ctx, deviceID); err != nil {
			return nil, err
		}
		s.appendEvent(ctx, &store.DeviceEvent{
			DeviceID:   &device.ID,
			DeviceUUID: device.UUID,
			ActorID:    &actorID,
			Type:       store.EventRejectApprovedDevice,
		})

	default:
		return nil, fmt.Errorf("%w: device is %s", store.ErrInvalidState, device.Status)
	}

	device, err = s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("device removed from service", "device_uuid", device.UUID, "status", device.Status, "actor_id", actorID)
	return device, nil
}

// ForceResetToken clears a device's credential slot so the device can
// fetch a fresh token. Safe on any status; the old token stops verifying
// the moment the hash is gone.
func (s *Service) ForceResetToken(ctx context.Context, deviceID, actorID int64) error {
	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return err
	}

	if err := s.store.ClearCredentialHash(ctx, deviceID); err != nil {
		return err
	}

	s.logger.Info("device token reset", "device_uuid", device.UUID, "actor_id", actorID)
	s.appendEvent(ctx, &store.DeviceEvent{
		DeviceID:   &device.ID,
		DeviceUUID: device.UUID,
		ActorID:    &actorID,
		Type:       store.EventForceResetToken,
	})

	return nil
}

// AssignResult reports partial success for a bulk assignment.
type AssignResult struct {
	Assigned           int
	InvalidEmployeeIDs []int64
}

// AssignUsers authorizes operators to use a device. Ids that do not
// resolve to operator users are reported back rather than failing the
// whole request; duplicate assignments are ignored silently.
func (s *Service) AssignUsers(ctx context.Context, deviceID int64, employeeIDs []int64, actorID int64) (*AssignResult, error) {
	device, err := s.store.GetDevice(ctx, deviceID)
	if err != nil {
		return nil, err
	}

	valid, err := s.store.FilterValidEmployees(ctx, employeeIDs)
	if err != nil {
		return nil, fmt.Errorf("failed to filter employees: %w", err)
	}

	validSet := make(map[int64]bool, len(valid))
	for _, id := range valid {
		validSet[id] = true
	}
	var invalid []int64
	for _, id := range employeeIDs {
		if !validSet[id] {
			invalid = append(invalid, id)
		}
	}

	created := 0
	if len(valid) > 0 {
		created, err = s.store.AssignUsers(ctx, deviceID, valid, actorID)
		if err != nil {
			return nil, fmt.Errorf("failed to assign users: %w", err)
		}
	}

	if created > 0 {
		s.appendEvent(ctx, &store.DeviceEvent{
			DeviceID:   &device.ID,
			DeviceUUID: device.UUID,
			ActorID:    &actorID,
			Type:       store.EventUsersAssigned,
			Detail:     map[string]any{"assigned": created, "employee_ids": valid},
		})
	}

	return &AssignResult{Assigned: created, InvalidEmployeeIDs: invalid}, nil
}

// appendEvent writes to the audit log, best effort.
func (s *Service) appendEvent(ctx context.Context, e *store.DeviceEvent) {
	if err := s.store.AppendDeviceEvent(ctx, e); err != nil {
		s.logger.Warn("failed to append audit event", "type", e.Type, "device_uuid", e.DeviceUUID, "error", err)
	}
}
