// Package rest exposes the HTTP transport: a gorilla/mux router whose
// protected routes run behind the session middleware.
package rest

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/dmitrijs2005/storeauth/internal/logging"
	"github.com/dmitrijs2005/storeauth/internal/server/auth"
	"github.com/gorilla/mux"
)

// SessionService is the part of auth.SessionResolver the transport needs.
type SessionService interface {
	Resolve(ctx context.Context, accessToken, refreshToken string) (*auth.Session, error)
	Revoke(ctx context.Context, personID int64) error
}

type Server struct {
	address  string
	resolver SessionService
	logger   logging.Logger
}

func NewServer(a string, l logging.Logger, resolver SessionService) *Server {
	return &Server{address: a, resolver: resolver, logger: l.With("module", "http_server")}
}

// Router builds the route table. Protected routes are registered on the root
// router, each wrapped by RequireSession, so a method mismatch yields 405
// rather than falling through a subrouter as 404.
func (s *Server) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)

	protect := s.RequireSession()
	r.Handle("/api/v1/me", protect(http.HandlerFunc(s.me))).Methods(http.MethodGet)
	r.Handle("/api/v1/logout", protect(http.HandlerFunc(s.logout))).Methods(http.MethodPost)

	return r
}

func (s *Server) Run(ctx context.Context) error {
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, listen)
}

// Serve handles requests on lis until ctx is cancelled.
func (s *Server) Serve(ctx context.Context, lis net.Listener) error {
	srv := &http.Server{Handler: s.Router(), ReadHeaderTimeout: 10 * time.Second}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", lis.Addr().String())

	if err := srv.Serve(lis); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

type meResponse struct {
	PersonID int64  `json:"person_id"`
	State    string `json:"state"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}
	writeJSON(w, http.StatusOK, meResponse{PersonID: sess.Person.ID, State: string(sess.State)})
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	sess, ok := auth.SessionFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "unauthorized", "no session")
		return
	}
	if err := s.resolver.Revoke(r.Context(), sess.Person.ID); err != nil {
		if ae, ok := auth.AsAuthError(err); ok {
			writeError(w, ae.Status, string(ae.Kind), ae.Message)
			return
		}
		s.logger.Error(r.Context(), "logout failed", "person_id", sess.Person.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error", "internal error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, kind, msg string) {
	writeJSON(w, status, errorResponse{Error: kind, Message: msg})
}
