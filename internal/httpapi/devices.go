// ABOUTME: Handlers for the device-facing provisioning endpoints
// ABOUTME: These run unauthenticated; the device has no credential yet

package httpapi

import (
	"net/http"

	"github.com/kioskgate/kioskgate/internal/provision"
)

func (s *Server) handleRegisterRequest(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DeviceUUID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "device_uuid is required")
		return
	}

	res, err := s.provision.Register(r.Context(), provision.RegisterRequest{
		DeviceUUID:   req.DeviceUUID,
		Name:         req.Name,
		AssignedSite: req.AssignedSite,
		AppVersion:   req.AppVersion,
		OSVersion:    req.OSVersion,
	})
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, registerResponse{
		Status:    string(res.Status),
		Duplicate: res.Duplicate,
	})
}

func (s *Server) handleDeviceStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.provision.Status(r.Context(), r.PathValue("device_uuid"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, statusResponse{Status: status})
}

func (s *Server) handleFetchCredential(w http.ResponseWriter, r *http.Request) {
	var req fetchCredentialRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.DeviceUUID == "" {
		s.sendJSONError(w, http.StatusBadRequest, "device_uuid is required")
		return
	}

	token, err := s.provision.FetchCredential(r.Context(), req.DeviceUUID)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, fetchCredentialResponse{DeviceToken: token})
}
