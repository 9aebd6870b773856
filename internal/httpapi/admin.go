// ABOUTME: Handlers for the admin device-management surface
// ABOUTME: All run behind RequireAdmin; the acting admin comes from the request context

package httpapi

import (
	"net/http"
	"strconv"

	"github.com/kioskgate/kioskgate/internal/auth"
)

// pathDeviceID parses the {id} path segment.
func pathDeviceID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// queryLimit parses an optional ?limit= parameter, 0 meaning default.
func queryLimit(r *http.Request) int {
	limit, err := strconv.Atoi(r.URL.Query().Get("limit"))
	if err != nil || limit < 0 {
		return 0
	}
	return limit
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	devices, err := s.admin.ListPending(r.Context(), queryLimit(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"devices": toDeviceViews(devices)})
}

func (s *Server) handleListDevices(w http.ResponseWriter, r *http.Request) {
	devices, err := s.admin.ListAll(r.Context(), queryLimit(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"devices": toDeviceViews(devices)})
}

func (s *Server) handleDeviceDetails(w http.ResponseWriter, r *http.Request) {
	id, ok := pathDeviceID(r)
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	details, err := s.admin.GetDeviceDetails(r.Context(), id)
	if err != nil {
		s.writeError(w, err)
		return
	}

	assignments := make([]assignmentView, 0, len(details.Assignments))
	for _, a := range details.Assignments {
		assignments = append(assignments, assignmentView{
			EmployeeID: a.EmployeeID,
			AssignedBy: a.AssignedBy,
			AssignedAt: a.AssignedAt,
		})
	}

	s.writeJSON(w, http.StatusOK, deviceDetailsResponse{
		Device:      toDeviceView(details.Device),
		Assignments: assignments,
		Events:      toEventViews(details.Events),
	})
}

func (s *Server) handleDeviceEvents(w http.ResponseWriter, r *http.Request) {
	id, ok := pathDeviceID(r)
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	events, err := s.admin.ListDeviceEvents(r.Context(), id, queryLimit(r))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]any{"events": toEventViews(events)})
}

func (s *Server) handleApprove(w http.ResponseWriter, r *http.Request) {
	id, ok := pathDeviceID(r)
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid device id")
		return
	}
	actor := auth.MustFromContext(r.Context())

	device, err := s.admin.Approve(r.Context(), id, actor.EmployeeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDeviceView(device))
}

func (s *Server) handleReject(w http.ResponseWriter, r *http.Request) {
	id, ok := pathDeviceID(r)
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid device id")
		return
	}
	actor := auth.MustFromContext(r.Context())

	device, err := s.admin.RejectOrRevoke(r.Context(), id, actor.EmployeeID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, toDeviceView(device))
}

func (s *Server) handleForceResetToken(w http.ResponseWriter, r *http.Request) {
	id, ok := pathDeviceID(r)
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid device id")
		return
	}
	actor := auth.MustFromContext(r.Context())

	if err := s.admin.ForceResetToken(r.Context(), id, actor.EmployeeID); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

func (s *Server) handleAssign(w http.ResponseWriter, r *http.Request) {
	id, ok := pathDeviceID(r)
	if !ok {
		s.sendJSONError(w, http.StatusBadRequest, "invalid device id")
		return
	}

	var req assignRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.EmployeeIDs) == 0 {
		s.sendJSONError(w, http.StatusBadRequest, "employee_ids is required")
		return
	}
	actor := auth.MustFromContext(r.Context())

	res, err := s.admin.AssignUsers(r.Context(), id, req.EmployeeIDs, actor.EmployeeID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	invalid := res.InvalidEmployeeIDs
	if invalid == nil {
		invalid = []int64{}
	}
	s.writeJSON(w, http.StatusOK, assignResponse{
		Assigned:           res.Assigned,
		InvalidEmployeeIDs: invalid,
	})
}

func (s *Server) handleOperatorPing(w http.ResponseWriter, r *http.Request) {
	id := auth.MustFromContext(r.Context())
	s.writeJSON(w, http.StatusOK, pingResponse{
		EmployeeID: id.EmployeeID,
		Username:   id.Username,
		Role:       id.Role,
		DeviceID:   id.DeviceID,
		DeviceUUID: id.DeviceUUID,
	})
}
