// ABOUTME: Tests for the admin and operator gateway predicates
// ABOUTME: Exercises every proof independently via httptest requests

package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kioskgate/kioskgate/internal/store"
)

// gatewayFixture reuses the login fixture's fake store and adds a Gateway
// plus pre-minted session tokens.
type gatewayFixture struct {
	*loginFixture
	gw            *Gateway
	adminToken    string
	operatorToken string
}

func newGatewayFixture(t *testing.T) *gatewayFixture {
	t.Helper()

	fx := newLoginFixture(t)
	gw := NewGateway(fx.signer, fx.fs, fx.fs, fx.fs, &fakeValidator{store: fx.fs})

	adminToken, err := fx.signer.Sign(SessionClaims{EmployeeID: 1, Role: "admin", Username: "alice"}, time.Hour)
	require.NoError(t, err)
	operatorToken, err := fx.signer.Sign(SessionClaims{EmployeeID: 42, Role: "operator", Username: "bob", DeviceID: 3}, time.Hour)
	require.NoError(t, err)

	return &gatewayFixture{loginFixture: fx, gw: gw, adminToken: adminToken, operatorToken: operatorToken}
}

// identityEcho records the identity the middleware attached.
func identityEcho(got **Identity) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = FromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequireAdmin(t *testing.T) {
	fx := newGatewayFixture(t)

	var got *Identity
	handler := fx.gw.RequireAdmin(identityEcho(&got))

	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+fx.adminToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, int64(1), got.EmployeeID)
	assert.Equal(t, "alice", got.Username)
	assert.True(t, got.IsAdmin())
	assert.Zero(t, got.DeviceID)
}

func TestRequireAdminRejections(t *testing.T) {
	fx := newGatewayFixture(t)

	expired, err := fx.signer.Sign(SessionClaims{EmployeeID: 1, Role: "admin", Username: "alice"}, -time.Minute)
	require.NoError(t, err)
	ghost, err := fx.signer.Sign(SessionClaims{EmployeeID: 999, Role: "admin", Username: "ghost"}, time.Hour)
	require.NoError(t, err)

	tests := []struct {
		name   string
		header string
		want   int
	}{
		{"no header", "", http.StatusUnauthorized},
		{"not bearer", "Basic abc", http.StatusUnauthorized},
		{"garbage token", "Bearer garbage", http.StatusUnauthorized},
		{"expired token", "Bearer " + expired, http.StatusUnauthorized},
		{"operator session", "Bearer " + fx.operatorToken, http.StatusForbidden},
		{"subject no longer exists", "Bearer " + ghost, http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := fx.gw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be reached")
			}))
			req := httptest.NewRequest(http.MethodGet, "/admin", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
		})
	}
}

func TestRequireAdminDeactivatedMidSession(t *testing.T) {
	fx := newGatewayFixture(t)
	fx.fs.users["alice"].IsActive = false

	handler := fx.gw.RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be reached")
	}))
	req := httptest.NewRequest(http.MethodGet, "/admin", nil)
	req.Header.Set("Authorization", "Bearer "+fx.adminToken)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func operatorRequest(fx *gatewayFixture) *http.Request {
	req := httptest.NewRequest(http.MethodGet, "/operator", nil)
	req.Header.Set("Authorization", "Bearer "+fx.operatorToken)
	req.Header.Set(DeviceUUIDHeader, "dev-1")
	req.Header.Set(DeviceTokenHeader, fx.deviceToken)
	return req
}

func TestRequireOperator(t *testing.T) {
	fx := newGatewayFixture(t)

	var got *Identity
	handler := fx.gw.RequireOperator(identityEcho(&got))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, operatorRequest(fx))

	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got)
	assert.Equal(t, int64(42), got.EmployeeID)
	assert.Equal(t, "bob", got.Username)
	assert.Equal(t, int64(3), got.DeviceID)
	assert.Equal(t, "dev-1", got.DeviceUUID)
	assert.False(t, got.IsAdmin())
}

func TestRequireOperatorRejections(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(fx *gatewayFixture, req *http.Request)
		want   int
	}{
		{
			"admin session",
			func(fx *gatewayFixture, req *http.Request) {
				req.Header.Set("Authorization", "Bearer "+fx.adminToken)
			},
			http.StatusForbidden,
		},
		{
			"missing device headers",
			func(fx *gatewayFixture, req *http.Request) {
				req.Header.Del(DeviceUUIDHeader)
				req.Header.Del(DeviceTokenHeader)
			},
			http.StatusUnauthorized,
		},
		{
			"unknown device",
			func(fx *gatewayFixture, req *http.Request) {
				req.Header.Set(DeviceUUIDHeader, "dev-nope")
			},
			http.StatusUnauthorized,
		},
		{
			"device not active",
			func(fx *gatewayFixture, req *http.Request) {
				fx.fs.devices["dev-1"].Status = store.DeviceStatusRevoked
			},
			http.StatusForbidden,
		},
		{
			"wrong device token",
			func(fx *gatewayFixture, req *http.Request) {
				req.Header.Set(DeviceTokenHeader, "not-the-token")
			},
			http.StatusUnauthorized,
		},
		{
			"operator deactivated",
			func(fx *gatewayFixture, req *http.Request) {
				fx.fs.users["bob"].IsActive = false
			},
			http.StatusForbidden,
		},
		{
			"session bound to another device",
			func(fx *gatewayFixture, req *http.Request) {
				fx.fs.devices["dev-1"].ID = 99
				fx.fs.assignments[[2]int64{42, 99}] = true
			},
			http.StatusForbidden,
		},
		{
			"assignment removed",
			func(fx *gatewayFixture, req *http.Request) {
				delete(fx.fs.assignments, [2]int64{42, 3})
			},
			http.StatusForbidden,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fx := newGatewayFixture(t)
			handler := fx.gw.RequireOperator(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				t.Fatal("handler should not be reached")
			}))
			req := operatorRequest(fx)
			tt.mutate(fx, req)
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}
