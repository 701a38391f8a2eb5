// Package rest exposes the auth service over HTTP. Handlers translate JSON
// requests into service calls and error kinds into status codes; everything
// else lives in the services layer.
package rest

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"strconv"
	"strings"

	"github.com/cuppie/cuppie-auth/internal/common"
	"github.com/cuppie/cuppie-auth/internal/logging"
	"github.com/cuppie/cuppie-auth/internal/server/services"
)

// AuthUseCase is the slice of the services layer the handlers need.
type AuthUseCase interface {
	Register(ctx context.Context, req *services.RegisterRequest) (*services.AuthResult, error)
	Login(ctx context.Context, req *services.LoginRequest) (*services.AuthResult, error)
	Refresh(ctx context.Context, token string, ip string) (*services.AuthResult, error)
	Identify(ctx context.Context, accessToken string) (*services.SafeUser, error)
	DeleteUser(ctx context.Context, id int64) (*services.SafeUser, error)
}

// Handler serves the /api/auth endpoints.
type Handler struct {
	svc    AuthUseCase
	logger logging.Logger
}

func NewHandler(svc AuthUseCase, logger logging.Logger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// Routes registers the auth endpoints on the mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/auth/register", h.register)
	mux.HandleFunc("POST /api/auth/login", h.login)
	mux.HandleFunc("POST /api/auth/refresh", h.refresh)
	mux.HandleFunc("POST /api/auth/me", h.me)
	mux.HandleFunc("DELETE /api/auth", h.deleteUser)
	mux.HandleFunc("GET /api/auth/health", h.health)
}

type errorResponse struct {
	Error string `json:"error"`
}

func statusFromKind(kind common.Kind) int {
	switch kind {
	case common.KindValidation, common.KindBadRequest:
		return http.StatusBadRequest
	case common.KindUnauthorized:
		return http.StatusUnauthorized
	case common.KindNotFound:
		return http.StatusNotFound
	case common.KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error(context.Background(), "writing response", "error", err)
	}
}

// writeError maps the error kind to a status code and emits the client-safe
// message. Internal causes never leave the server.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromKind(common.KindOf(err))
	if status == http.StatusInternalServerError {
		h.logger.Error(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		reportError(r.Context(), err)
	}
	h.writeJSON(w, status, errorResponse{Error: common.Message(err)})
}

// maxBodySize caps request bodies. Auth payloads are tiny; anything bigger
// is garbage.
const maxBodySize = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodySize))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return common.Wrap(common.KindBadRequest, "invalid request body", err)
	}
	return nil
}

// clientIP prefers the X-Real-IP header set by a fronting proxy and falls
// back to the connection's remote address.
func clientIP(r *http.Request) string {
	if ip := r.Header.Get("X-Real-IP"); ip != "" {
		return ip
	}
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func bearerToken(r *http.Request) string {
	const prefix = "Bearer "
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

func (h *Handler) register(w http.ResponseWriter, r *http.Request) {
	req := &services.RegisterRequest{}
	if err := decodeJSON(w, r, req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.IP = clientIP(r)

	res, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	req := &services.LoginRequest{}
	if err := decodeJSON(w, r, req); err != nil {
		h.writeError(w, r, err)
		return
	}
	req.IP = clientIP(r)

	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	req := &refreshRequest{}
	if err := decodeJSON(w, r, req); err != nil {
		h.writeError(w, r, err)
		return
	}

	res, err := h.svc.Refresh(r.Context(), req.RefreshToken, clientIP(r))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		h.writeError(w, r, common.New(common.KindUnauthorized, "missing bearer token"))
		return
	}

	user, err := h.svc.Identify(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) deleteUser(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		h.writeError(w, r, common.New(common.KindUnauthorized, "missing bearer token"))
		return
	}
	caller, err := h.svc.Identify(r.Context(), token)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	id, err := strconv.ParseInt(r.URL.Query().Get("id"), 10, 64)
	if err != nil {
		h.writeError(w, r, common.New(common.KindValidation, "invalid user id"))
		return
	}
	if caller.ID != id {
		h.writeError(w, r, common.New(common.KindUnauthorized, "cannot delete another user"))
		return
	}

	user, err := h.svc.DeleteUser(r.Context(), id)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, user)
}

func (h *Handler) health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
