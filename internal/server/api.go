// ABOUTME: HTTP API handlers for accounts, documents and feature modules
// ABOUTME: Maps domain errors onto status codes with JSON error bodies

package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/issambenlahbib/levelupmy-life/internal/auth"
	"github.com/issambenlahbib/levelupmy-life/internal/dashboard"
	"github.com/issambenlahbib/levelupmy-life/internal/features"
	"github.com/issambenlahbib/levelupmy-life/internal/remote"
	"github.com/issambenlahbib/levelupmy-life/internal/store"
	"github.com/issambenlahbib/levelupmy-life/internal/synced"
)

// maxBodyBytes bounds request bodies. Documents embed attachments as data
// URIs and may reach several megabytes.
const maxBodyBytes = 32 << 20

// SignUpRequest is the JSON body for POST /api/auth/signup.
type SignUpRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// SignInRequest is the JSON body for POST /api/auth/signin.
type SignInRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ResetRequest is the JSON body for POST /api/auth/reset.
type ResetRequest struct {
	Email string `json:"email"`
}

// ResetConfirmRequest is the JSON body for POST /api/auth/reset/confirm.
type ResetConfirmRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// NavigateRequest is the JSON body for POST /api/features/calendar/navigate.
// Either Delta moves relative to the current month, or Year and Month
// (1-12) select one.
type NavigateRequest struct {
	Delta int `json:"delta"`
	Year  int `json:"year"`
	Month int `json:"month"`
}

// FeatureResponse is the JSON response for GET /api/features/{feature}.
type FeatureResponse struct {
	Feature string        `json:"feature"`
	State   any           `json:"state"`
	Status  synced.Status `json:"status"`
}

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health endpoints - no auth required
	mux.HandleFunc("GET /health", s.handleHealth)

	mux.HandleFunc("POST /api/auth/signup", s.handleSignUp)
	mux.HandleFunc("POST /api/auth/signin", s.handleSignIn)
	mux.HandleFunc("POST /api/auth/signout", s.handleSignOut)
	mux.HandleFunc("POST /api/auth/reset", s.handleResetRequest)
	mux.HandleFunc("POST /api/auth/reset/confirm", s.handleResetConfirm)

	authed := auth.Middleware(s.auth, s.logger)
	handle := func(pattern string, h http.HandlerFunc) {
		mux.Handle(pattern, authed(h))
	}
	handle("GET /api/me", s.handleMe)
	handle("GET /api/me/activity", s.handleActivity)

	handle("GET /api/docs/watch", s.handleWatch)
	handle("GET /api/docs/{path...}", s.handleGetDoc)
	handle("PUT /api/docs/{path...}", s.handleWriteDoc)
	handle("PATCH /api/docs/{path...}", s.handleWriteDoc)

	handle("GET /api/features", s.handleOverview)
	handle("GET /api/features/{feature}", s.handleFeature)
	handle("POST /api/features/{feature}/retry", s.handleRetry)
	handle("POST /api/features/calendar/navigate", s.handleNavigate)
	handle("POST /api/features/{feature}/{op}", s.handleApply)

	return mux
}

// handleHealth returns 200 OK if the server is alive.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("OK"))
}

func (s *Server) handleSignUp(w http.ResponseWriter, r *http.Request) {
	var req SignUpRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.auth.SignUp(r.Context(), req.Name, req.Email, req.Password)
	if err != nil {
		s.sendError(w, err)
		return
	}
	s.sendJSON(w, http.StatusCreated, sess)
}

func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req SignInRequest
	if !s.decode(w, r, &req) {
		return
	}
	sess, err := s.auth.SignIn(r.Context(), req.Email, req.Password)
	if err != nil {
		s.sendError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, sess)
}

func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	token := auth.BearerToken(r)
	if token == "" {
		s.sendJSONError(w, http.StatusUnauthorized, "missing authorization header")
		return
	}
	if err := s.auth.SignOut(r.Context(), token); err != nil {
		s.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleResetRequest(w http.ResponseWriter, r *http.Request) {
	var req ResetRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.auth.RequestPasswordReset(r.Context(), req.Email); err != nil {
		s.sendError(w, err)
		return
	}
	s.sendJSON(w, http.StatusAccepted, map[string]bool{"ok": true})
}

func (s *Server) handleResetConfirm(w http.ResponseWriter, r *http.Request) {
	var req ResetConfirmRequest
	if !s.decode(w, r, &req) {
		return
	}
	if err := s.auth.ResetPassword(r.Context(), req.Token, req.Password); err != nil {
		s.sendError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	s.sendJSON(w, http.StatusOK, auth.MustFromContext(r.Context()))
}

func (s *Server) handleActivity(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			s.sendJSONError(w, http.StatusBadRequest, "limit must be a non-negative integer")
			return
		}
		limit = n
	}
	id := auth.MustFromContext(r.Context())
	entries, err := s.auth.Activity(r.Context(), id.UserID, limit)
	if err != nil {
		s.sendError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, entries)
}

// ownedHandle parses a document path and checks it lies in the caller's
// namespace. It writes the error response itself when it returns false.
func (s *Server) ownedHandle(w http.ResponseWriter, r *http.Request, path string) (remote.Handle, bool) {
	h, err := remote.ParsePath(path)
	if err != nil {
		s.sendJSONError(w, http.StatusBadRequest, err.Error())
		return remote.Handle{}, false
	}
	id := auth.MustFromContext(r.Context())
	if !h.OwnedBy(id.UserID) {
		s.logger.Debug("document access denied", "uid", id.UserID, "path", h.Path())
		s.sendJSONError(w, http.StatusForbidden, "document belongs to another user")
		return remote.Handle{}, false
	}
	return h, true
}

func (s *Server) handleGetDoc(w http.ResponseWriter, r *http.Request) {
	h, ok := s.ownedHandle(w, r, r.PathValue("path"))
	if !ok {
		return
	}
	snap, err := s.docs.Get(r.Context(), h)
	if err != nil {
		s.sendError(w, err)
		return
	}
	if !snap.Exists {
		s.sendJSONError(w, http.StatusNotFound, "document not found")
		return
	}
	s.sendJSON(w, http.StatusOK, snap)
}

func (s *Server) handleWriteDoc(w http.ResponseWriter, r *http.Request) {
	h, ok := s.ownedHandle(w, r, r.PathValue("path"))
	if !ok {
		return
	}
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.sendJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var snap remote.Snapshot
	if r.Method == http.MethodPut {
		snap, err = s.docs.ReplaceRaw(r.Context(), h, body)
	} else {
		snap, err = s.docs.MergeRaw(r.Context(), h, body)
	}
	if err != nil {
		s.sendError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, snap)
}

// workspace mounts or returns the caller's workspace.
func (s *Server) workspace(w http.ResponseWriter, r *http.Request) (*dashboard.Workspace, bool) {
	ws, err := s.workspaces.Acquire(r.Context(), auth.MustFromContext(r.Context()))
	if err != nil {
		s.sendError(w, err)
		return nil, false
	}
	return ws, true
}

func (s *Server) handleOverview(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	s.sendJSON(w, http.StatusOK, ws.Overview())
}

func (s *Server) handleFeature(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	m, err := ws.Module(r.PathValue("feature"))
	if err != nil {
		s.sendError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, FeatureResponse{Feature: m.Feature(), State: m.State(), Status: m.Status()})
}

func (s *Server) handleRetry(w http.ResponseWriter, r *http.Request) {
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	feature := r.PathValue("feature")
	if err := ws.Retry(r.Context(), feature); err != nil {
		s.sendError(w, err)
		return
	}
	m, _ := ws.Module(feature)
	s.sendJSON(w, http.StatusOK, m.Status())
}

func (s *Server) handleNavigate(w http.ResponseWriter, r *http.Request) {
	var req NavigateRequest
	if !s.decode(w, r, &req) {
		return
	}
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}

	var err error
	switch {
	case req.Year != 0:
		if req.Month < 1 || req.Month > 12 {
			s.sendJSONError(w, http.StatusBadRequest, fmt.Sprintf("month must be 1-12, got %d", req.Month))
			return
		}
		err = ws.SetMonth(r.Context(), req.Year, time.Month(req.Month))
	default:
		err = ws.NavigateMonth(r.Context(), req.Delta)
	}
	if err != nil {
		s.sendError(w, err)
		return
	}
	cal := ws.Features().Calendar
	s.sendJSON(w, http.StatusOK, FeatureResponse{Feature: cal.Feature(), State: cal.State(), Status: cal.Status()})
}

func (s *Server) handleApply(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		s.sendJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}
	if len(body) == 0 {
		body = []byte("{}")
	}
	ws, ok := s.workspace(w, r)
	if !ok {
		return
	}
	result, err := ws.Apply(r.PathValue("feature"), r.PathValue("op"), body)
	if err != nil {
		s.sendError(w, err)
		return
	}
	s.sendJSON(w, http.StatusOK, result)
}

// decode reads a JSON request body into v, answering 400 on failure.
func (s *Server) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v); err != nil {
		s.sendJSONError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	return true
}

func (s *Server) sendJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Debug("failed to write response", "error", err)
	}
}

// sendJSONError sends a JSON error response.
func (s *Server) sendJSONError(w http.ResponseWriter, status int, message string) {
	s.sendJSON(w, status, ErrorResponse{Error: message})
}

// sendError maps err onto a status code and JSON body.
func (s *Server) sendError(w http.ResponseWriter, err error) {
	var ae *auth.AuthError
	if errors.As(err, &ae) {
		s.sendJSON(w, authStatus(ae.Code), ErrorResponse{Error: ae.Message, Code: ae.Code})
		return
	}

	status := errorStatus(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "error", err)
		s.sendJSONError(w, status, "internal error")
		return
	}
	s.sendJSONError(w, status, err.Error())
}

func authStatus(code string) int {
	switch code {
	case auth.CodeInvalidCredentials, auth.CodeUnknownAccount, auth.CodeInvalidToken:
		return http.StatusUnauthorized
	case auth.CodeEmailInUse:
		return http.StatusConflict
	default:
		return http.StatusBadRequest
	}
}

func errorStatus(err error) int {
	switch {
	case errors.Is(err, features.ErrNotFound),
		errors.Is(err, remote.ErrNotFound),
		errors.Is(err, dashboard.ErrUnknownFeature),
		errors.Is(err, features.ErrUnknownOp):
		return http.StatusNotFound
	case errors.Is(err, features.ErrEmptyName),
		errors.Is(err, features.ErrInvalidArgument),
		errors.Is(err, remote.ErrInvalidHandle),
		errors.Is(err, store.ErrInvalidDocument):
		return http.StatusBadRequest
	case errors.Is(err, remote.ErrPermissionDenied):
		return http.StatusForbidden
	case errors.Is(err, synced.ErrNotReady),
		errors.Is(err, synced.ErrLoadInProgress):
		return http.StatusConflict
	case errors.Is(err, dashboard.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, remote.ErrTransientIO),
		errors.Is(err, synced.ErrTornDown),
		errors.Is(err, dashboard.ErrClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
