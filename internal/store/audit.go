// ABOUTME: Device event log entity and store methods for the provisioning audit trail
// ABOUTME: Records every lifecycle transition and authentication outcome, best-effort for callers

package store

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// EventType represents an auditable device event.
type EventType string

const (
	EventRegisterRequested          EventType = "register_requested"
	EventRegisterRequestedDuplicate EventType = "register_requested_duplicate"
	EventApproved                   EventType = "approved"
	EventCredentialFetchDenied      EventType = "credential_fetch_denied"
	EventCredentialFetchAfterIssue  EventType = "credential_fetch_attempt_after_issue"
	EventCredentialIssued           EventType = "credential_issued"
	EventDeviceValidation           EventType = "device_validation"
	EventRejectPendingDevice        EventType = "reject_pending_device"
	EventRejectApprovedDevice       EventType = "reject_approved_device"
	EventForceResetToken            EventType = "force_reset_token"
	EventUsersAssigned              EventType = "users_assigned"
	EventAdminLogin                 EventType = "admin_login"
	EventOperatorLogin              EventType = "operator_login"
)

// DeviceEvent represents a single audit log entry for a device.
type DeviceEvent struct {
	ID         string         // UUID v4
	DeviceID   *int64         // nil when the device row does not exist yet
	DeviceUUID string         // client-generated identifier, always known
	ActorID    *int64         // employee id of the acting user, nil for device-initiated events
	Type       EventType      // what happened
	Timestamp  time.Time      // when it happened
	Detail     map[string]any // additional context
}

// EventFilter specifies filtering options for listing device events.
type EventFilter struct {
	DeviceID *int64
	Type     *EventType
	Since    *time.Time
	Limit    int // max results (default 100, max 1000)
}

// AuditStore defines the append-only device event log. Append failures are
// treated as best-effort by callers: logged, never surfaced.
type AuditStore interface {
	AppendDeviceEvent(ctx context.Context, e *DeviceEvent) error
	ListDeviceEvents(ctx context.Context, f EventFilter) ([]DeviceEvent, error)
}

// AppendDeviceEvent appends a new entry to the device event log.
// Generates ID and Timestamp if not set.
func (s *SQLiteStore) AppendDeviceEvent(ctx context.Context, e *DeviceEvent) error {
	if e.ID == "" {
		e.ID = uuid.New().String()
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = time.Now().UTC()
	}

	var detailJSON *string
	if e.Detail != nil {
		data, err := json.Marshal(e.Detail)
		if err != nil {
			return fmt.Errorf("marshaling event detail: %w", err)
		}
		str := string(data)
		detailJSON = &str
	}

	query := `
		INSERT INTO device_events (event_id, device_id, device_uuid, actor_id, event_type, ts, detail_json)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.DeviceID,
		e.DeviceUUID,
		e.ActorID,
		e.Type,
		e.Timestamp.UTC().Format(time.RFC3339),
		detailJSON,
	)
	if err != nil {
		return fmt.Errorf("inserting device event: %w", err)
	}

	s.logger.Debug("appended device event",
		"id", e.ID,
		"device_uuid", e.DeviceUUID,
		"type", e.Type,
	)
	return nil
}

// normalizeEventLimit applies default (100) and cap (1000) to event limits.
func normalizeEventLimit(limit int) int {
	switch {
	case limit <= 0:
		return 100
	case limit > 1000:
		return 1000
	default:
		return limit
	}
}

const deviceEventQuery = `
	SELECT event_id, device_id, device_uuid, actor_id, event_type, ts, detail_json
	FROM device_events
	WHERE (? IS NULL OR device_id = ?)
	  AND (? IS NULL OR event_type = ?)
	  AND (? IS NULL OR ts >= ?)
	ORDER BY ts DESC
	LIMIT ?
`

// ListDeviceEvents returns events matching the filter criteria.
// Results are returned newest first (DESC by timestamp).
func (s *SQLiteStore) ListDeviceEvents(ctx context.Context, f EventFilter) ([]DeviceEvent, error) {
	limit := normalizeEventLimit(f.Limit)

	var typeStr *string
	if f.Type != nil {
		t := string(*f.Type)
		typeStr = &t
	}
	var sinceStr *string
	if f.Since != nil {
		t := f.Since.UTC().Format(time.RFC3339)
		sinceStr = &t
	}

	rows, err := s.db.QueryContext(ctx, deviceEventQuery,
		f.DeviceID, f.DeviceID,
		typeStr, typeStr,
		sinceStr, sinceStr,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying device events: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var events []DeviceEvent
	for rows.Next() {
		var e DeviceEvent
		var typeStr, tsStr string
		var detailJSON *string

		if err := rows.Scan(
			&e.ID,
			&e.DeviceID,
			&e.DeviceUUID,
			&e.ActorID,
			&typeStr,
			&tsStr,
			&detailJSON,
		); err != nil {
			return nil, fmt.Errorf("scanning device event: %w", err)
		}

		e.Type = EventType(typeStr)
		if e.Timestamp, err = time.Parse(time.RFC3339, tsStr); err != nil {
			return nil, fmt.Errorf("parsing timestamp: %w", err)
		}
		if detailJSON != nil {
			if err := json.Unmarshal([]byte(*detailJSON), &e.Detail); err != nil {
				return nil, fmt.Errorf("unmarshaling detail: %w", err)
			}
		}
		events = append(events, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device events: %w", err)
	}

	if events == nil {
		events = []DeviceEvent{}
	}
	return events, nil
}
