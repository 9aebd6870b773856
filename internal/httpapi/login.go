// ABOUTME: Handlers for the admin and operator login endpoints
// ABOUTME: Failures come back uniformly as 401 invalid credentials

package httpapi

import (
	"net/http"
)

func (s *Server) handleAdminLogin(w http.ResponseWriter, r *http.Request) {
	var req adminLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" {
		s.sendJSONError(w, http.StatusBadRequest, "username and password are required")
		return
	}

	token, err := s.login.AdminLogin(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: token,
		TokenType:   "bearer",
	})
}

func (s *Server) handleOperatorLogin(w http.ResponseWriter, r *http.Request) {
	var req operatorLoginRequest
	if err := decodeJSON(r, &req); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Username == "" || req.Password == "" || req.DeviceUUID == "" || req.DeviceToken == "" {
		s.sendJSONError(w, http.StatusBadRequest, "username, password, device_uuid and device_token are required")
		return
	}

	sess, err := s.login.OperatorLogin(r.Context(), req.DeviceUUID, req.DeviceToken, req.Username, req.Password)
	if err != nil {
		s.writeError(w, err)
		return
	}

	s.writeJSON(w, http.StatusOK, loginResponse{
		AccessToken: sess.Token,
		TokenType:   "bearer",
		EmployeeID:  sess.EmployeeID,
		Username:    sess.Username,
		DeviceID:    sess.DeviceID,
	})
}
