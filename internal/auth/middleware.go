// ABOUTME: HTTP middleware implementing the admin and operator authorization predicates
// ABOUTME: Extracts bearer/device credentials and attaches a verified Identity to context

package auth

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/kioskgate/kioskgate/internal/store"
)

// Device-identifying headers presented on operator-flow requests.
const (
	DeviceUUIDHeader  = "X-Device-UUID"
	DeviceTokenHeader = "X-Device-Token"
)

// Gateway implements the two authorization predicates that gate protected
// endpoints. Both predicates re-verify against the store on every request;
// there is no session cache, so deactivating a user takes effect
// immediately.
type Gateway struct {
	signer      *Signer
	users       UserSource
	devices     DeviceSource
	assignments AssignmentSource
	validator   DeviceTokenValidator
	logger      *slog.Logger
}

// NewGateway creates an authorization gateway with explicit dependencies.
func NewGateway(signer *Signer, users UserSource, devices DeviceSource, assignments AssignmentSource, validator DeviceTokenValidator) *Gateway {
	return &Gateway{
		signer:      signer,
		users:       users,
		devices:     devices,
		assignments: assignments,
		validator:   validator,
		logger:      slog.Default().With("component", "gateway"),
	}
}

// extractBearerToken extracts a bearer token from the Authorization header.
// Returns the token and an error message (empty if successful).
func extractBearerToken(authHeader string) (string, string) {
	if authHeader == "" {
		return "", "missing authorization header"
	}
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return "", "invalid authorization header format"
	}
	token := strings.TrimPrefix(authHeader, "Bearer ")
	if token == "" {
		return "", "empty token"
	}
	return token, ""
}

// writeAuthError writes a minimal JSON error body without pulling in the
// full response codec.
func writeAuthError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write([]byte(`{"error":"` + msg + `"}`))
}

// RequireAdmin enforces the admin predicate: a valid unexpired bearer with
// role admin whose subject still exists and is active. The verified
// identity, augmented with the looked-up username, is attached to the
// request context.
func (g *Gateway) RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
		if errMsg != "" {
			writeAuthError(w, http.StatusUnauthorized, errMsg)
			return
		}

		claims, err := g.signer.Verify(token)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if !claims.IsAdmin() {
			writeAuthError(w, http.StatusForbidden, "admin role required")
			return
		}

		user, err := g.users.GetUserByEmployeeID(r.Context(), claims.EmployeeID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				writeAuthError(w, http.StatusUnauthorized, "admin user not found")
				return
			}
			g.logger.Error("admin lookup failed", "employee_id", claims.EmployeeID, "error", err)
			writeAuthError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if user.Role != store.RoleAdmin || !user.IsActive {
			writeAuthError(w, http.StatusForbidden, "admin account is not active")
			return
		}

		identity := &Identity{
			EmployeeID: user.EmployeeID,
			Username:   user.Username,
			Role:       string(store.RoleAdmin),
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}

// RequireOperator enforces the operator predicate. All proofs must hold:
//
//  1. session bearer decodes, is unexpired, and carries role operator
//  2. device headers resolve to a device with status active
//  3. the presented device token verifies against the stored hash
//  4. the session subject resolves to an active operator user
//  5. the session's device binding matches the resolved device
//  6. the operator holds a live assignment for the device
//
// Device checks run before the assignment lookup so forged device claims
// fail before the more expensive query.
func (g *Gateway) RequireOperator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token, errMsg := extractBearerToken(r.Header.Get("Authorization"))
		if errMsg != "" {
			writeAuthError(w, http.StatusUnauthorized, errMsg)
			return
		}

		claims, err := g.signer.Verify(token)
		if err != nil {
			writeAuthError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		if !claims.IsOperator() {
			writeAuthError(w, http.StatusForbidden, "operator role required")
			return
		}

		deviceUUID := r.Header.Get(DeviceUUIDHeader)
		deviceToken := r.Header.Get(DeviceTokenHeader)
		if deviceUUID == "" || deviceToken == "" {
			writeAuthError(w, http.StatusUnauthorized, "missing device credentials")
			return
		}

		device, err := g.devices.GetDeviceByUUID(r.Context(), deviceUUID)
		if err != nil {
			if errors.Is(err, store.ErrDeviceNotFound) {
				writeAuthError(w, http.StatusUnauthorized, "unknown device")
				return
			}
			g.logger.Error("device lookup failed", "device_uuid", deviceUUID, "error", err)
			writeAuthError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if device.Status != store.DeviceStatusActive {
			writeAuthError(w, http.StatusForbidden, "device is not active")
			return
		}

		ok, err := g.validator.ValidateDeviceToken(r.Context(), deviceUUID, deviceToken)
		if err != nil {
			g.logger.Error("device token validation failed", "device_uuid", deviceUUID, "error", err)
			writeAuthError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !ok {
			writeAuthError(w, http.StatusUnauthorized, "invalid device token")
			return
		}

		user, err := g.users.GetUserByEmployeeID(r.Context(), claims.EmployeeID)
		if err != nil {
			if errors.Is(err, store.ErrUserNotFound) {
				writeAuthError(w, http.StatusUnauthorized, "operator user not found")
				return
			}
			g.logger.Error("operator lookup failed", "employee_id", claims.EmployeeID, "error", err)
			writeAuthError(w, http.StatusInternalServerError, "internal error")
			return
		}

		if user.Role != store.RoleOperator || !user.IsActive {
			writeAuthError(w, http.StatusForbidden, "operator account is not active")
			return
		}

		// A session minted for one device must not authorize another.
		if claims.DeviceID != 0 && claims.DeviceID != device.ID {
			writeAuthError(w, http.StatusForbidden, "session is bound to a different device")
			return
		}

		assigned, err := g.assignments.IsAssigned(r.Context(), user.EmployeeID, device.ID)
		if err != nil {
			g.logger.Error("assignment lookup failed", "employee_id", user.EmployeeID, "device_id", device.ID, "error", err)
			writeAuthError(w, http.StatusInternalServerError, "internal error")
			return
		}
		if !assigned {
			writeAuthError(w, http.StatusForbidden, "operator is not assigned to this device")
			return
		}

		identity := &Identity{
			EmployeeID: user.EmployeeID,
			Username:   user.Username,
			Role:       string(store.RoleOperator),
			DeviceID:   device.ID,
			DeviceUUID: device.UUID,
		}
		next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), identity)))
	})
}
