// ABOUTME: Wire types for the HTTP API
// ABOUTME: Devices are rendered without their credential hash; only its presence shows

package httpapi

import (
	"time"

	"github.com/kioskgate/kioskgate/internal/store"
)

type registerRequest struct {
	DeviceUUID   string `json:"device_uuid"`
	Name         string `json:"name"`
	AssignedSite string `json:"assigned_site"`
	AppVersion   string `json:"app_version"`
	OSVersion    string `json:"os_version"`
}

type registerResponse struct {
	Status    string `json:"status"`
	Duplicate bool   `json:"duplicate,omitempty"`
}

type statusResponse struct {
	Status string `json:"status"`
}

type fetchCredentialRequest struct {
	DeviceUUID string `json:"device_uuid"`
}

type fetchCredentialResponse struct {
	DeviceToken string `json:"device_token"`
}

type adminLoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type operatorLoginRequest struct {
	DeviceUUID  string `json:"device_uuid"`
	DeviceToken string `json:"device_token"`
	Username    string `json:"username"`
	Password    string `json:"password"`
}

type loginResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	EmployeeID  int64  `json:"employee_id,omitempty"`
	Username    string `json:"username,omitempty"`
	DeviceID    int64  `json:"device_id,omitempty"`
}

type assignRequest struct {
	EmployeeIDs []int64 `json:"employee_ids"`
}

type assignResponse struct {
	Assigned           int     `json:"assigned"`
	InvalidEmployeeIDs []int64 `json:"invalid_employee_ids"`
}

// deviceView is the wire shape of a device. The credential hash never
// leaves the server; HasCredential tells admins whether a token is live.
type deviceView struct {
	ID              int64      `json:"id"`
	DeviceUUID      string     `json:"device_uuid"`
	Name            string     `json:"name,omitempty"`
	AssignedSite    string     `json:"assigned_site,omitempty"`
	Status          string     `json:"status"`
	HasCredential   bool       `json:"has_credential"`
	AppVersion      string     `json:"app_version,omitempty"`
	OSVersion       string     `json:"os_version,omitempty"`
	RegisteredBy    *int64     `json:"registered_by,omitempty"`
	LastUpdateCheck *time.Time `json:"last_update_check,omitempty"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

func toDeviceView(d *store.Device) deviceView {
	v := deviceView{
		ID:            d.ID,
		DeviceUUID:    d.UUID,
		Name:          d.Name,
		AssignedSite:  d.AssignedSite,
		Status:        string(d.Status),
		HasCredential: d.CredentialHash != nil,
		AppVersion:    d.AppVersion,
		OSVersion:     d.OSVersion,
		RegisteredBy:  d.RegisteredBy,
		CreatedAt:     d.CreatedAt,
		UpdatedAt:     d.UpdatedAt,
	}
	if !d.LastUpdateCheck.IsZero() {
		t := d.LastUpdateCheck
		v.LastUpdateCheck = &t
	}
	return v
}

func toDeviceViews(devices []*store.Device) []deviceView {
	views := make([]deviceView, 0, len(devices))
	for _, d := range devices {
		views = append(views, toDeviceView(d))
	}
	return views
}

type assignmentView struct {
	EmployeeID int64     `json:"employee_id"`
	AssignedBy int64     `json:"assigned_by"`
	AssignedAt time.Time `json:"assigned_at"`
}

type eventView struct {
	ID         string         `json:"id"`
	DeviceUUID string         `json:"device_uuid"`
	ActorID    *int64         `json:"actor_id,omitempty"`
	Type       string         `json:"type"`
	Timestamp  time.Time      `json:"timestamp"`
	Detail     map[string]any `json:"detail,omitempty"`
}

func toEventViews(events []store.DeviceEvent) []eventView {
	views := make([]eventView, 0, len(events))
	for _, e := range events {
		views = append(views, eventView{
			ID:         e.ID,
			DeviceUUID: e.DeviceUUID,
			ActorID:    e.ActorID,
			Type:       string(e.Type),
			Timestamp:  e.Timestamp,
			Detail:     e.Detail,
		})
	}
	return views
}

type deviceDetailsResponse struct {
	Device      deviceView       `json:"device"`
	Assignments []assignmentView `json:"assignments"`
	Events      []eventView      `json:"events"`
}

type pingResponse struct {
	EmployeeID int64  `json:"employee_id"`
	Username   string `json:"username"`
	Role       string `json:"role"`
	DeviceID   int64  `json:"device_id"`
	DeviceUUID string `json:"device_uuid"`
}
