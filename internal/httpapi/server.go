// ABOUTME: HTTP server wiring and route registration for the kioskgate API
// ABOUTME: Device endpoints are open; admin and operator surfaces sit behind the gateway

package httpapi

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/kioskgate/kioskgate/internal/admin"
	"github.com/kioskgate/kioskgate/internal/auth"
	"github.com/kioskgate/kioskgate/internal/provision"
)

// Server exposes the provisioning, auth, and admin services over HTTP.
type Server struct {
	provision *provision.Service
	admin     *admin.Service
	login     *auth.Service
	gateway   *auth.Gateway

	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer creates an HTTP server bound to addr.
func NewServer(addr string, prov *provision.Service, adm *admin.Service, login *auth.Service, gw *auth.Gateway) *Server {
	s := &Server{
		provision: prov,
		admin:     adm,
		login:     login,
		gateway:   gw,
		logger:    slog.Default().With("component", "httpapi"),
	}

	mux := http.NewServeMux()
	s.RegisterRoutes(mux)

	s.httpServer = &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 10 * time.Second,
	}

	return s
}

// RegisterRoutes registers all API routes on the mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	// Device-facing endpoints, reachable without credentials
	mux.HandleFunc("POST /api/v1/devices/register-request", s.handleRegisterRequest)
	mux.HandleFunc("GET /api/v1/devices/status/{device_uuid}", s.handleDeviceStatus)
	mux.HandleFunc("POST /api/v1/devices/fetch-credential", s.handleFetchCredential)

	// Login
	mux.HandleFunc("POST /api/v1/auth/admin/login", s.handleAdminLogin)
	mux.HandleFunc("POST /api/v1/auth/operator/login", s.handleOperatorLogin)

	// Admin surface
	mux.Handle("GET /api/v1/admin/devices/pending", s.gateway.RequireAdmin(http.HandlerFunc(s.handleListPending)))
	mux.Handle("GET /api/v1/admin/devices/list", s.gateway.RequireAdmin(http.HandlerFunc(s.handleListDevices)))
	mux.Handle("GET /api/v1/admin/devices/{id}", s.gateway.RequireAdmin(http.HandlerFunc(s.handleDeviceDetails)))
	mux.Handle("GET /api/v1/admin/devices/{id}/events", s.gateway.RequireAdmin(http.HandlerFunc(s.handleDeviceEvents)))
	mux.Handle("POST /api/v1/admin/devices/{id}/approve", s.gateway.RequireAdmin(http.HandlerFunc(s.handleApprove)))
	mux.Handle("POST /api/v1/admin/devices/{id}/reject", s.gateway.RequireAdmin(http.HandlerFunc(s.handleReject)))
	mux.Handle("POST /api/v1/admin/devices/{id}/force-reset-token", s.gateway.RequireAdmin(http.HandlerFunc(s.handleForceResetToken)))
	mux.Handle("POST /api/v1/admin/devices/{id}/assign", s.gateway.RequireAdmin(http.HandlerFunc(s.handleAssign)))

	// Operator surface
	mux.Handle("GET /api/v1/operator/ping", s.gateway.RequireOperator(http.HandlerFunc(s.handleOperatorPing)))

	mux.HandleFunc("GET /healthz", s.handleHealthz)
}

// Start begins serving. Blocks until the listener fails or Shutdown runs.
func (s *Server) Start() error {
	s.logger.Info("http server starting", "addr", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("http server shutting down")
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
