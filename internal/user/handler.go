package user

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/savemedha/outreach-api/internal/session"
	"github.com/savemedha/outreach-api/internal/user/entity"
)

// Handler exposes HTTP endpoints for account operations.
type Handler struct {
	svc    *UserService
	logger *zap.SugaredLogger
}

func NewHandler(svc *UserService, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

// AuthResponse is returned by register and login.
type AuthResponse struct {
	User  *entity.Account `json:"user"`
	Token string          `json:"token"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req session.RegisterInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid register payload", session.LogFields(r, "err", err)...)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	acc, token, err := h.svc.Register(r.Context(), req)
	if err != nil {
		h.writeError(w, r, err, "failed to register user")
		return
	}
	h.writeJSON(w, http.StatusCreated, AuthResponse{User: acc, Token: token})
}

// LoginRequest login payload.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Debugw("invalid login payload", session.LogFields(r, "err", err)...)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	acc, token, err := h.svc.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		h.writeError(w, r, err, "failed to login")
		return
	}
	h.writeJSON(w, http.StatusOK, AuthResponse{User: acc, Token: token})
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err, "failed to fetch users")
		return
	}
	h.writeJSON(w, http.StatusOK, accounts)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	acc, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err, "failed to fetch user")
		return
	}
	h.writeJSON(w, http.StatusOK, acc)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var patch entity.AccountPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		h.logger.Debugw("invalid update payload", session.LogFields(r, "err", err)...)
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid payload"})
		return
	}
	acc, err := h.svc.Update(r.Context(), r.PathValue("id"), patch)
	if err != nil {
		h.writeError(w, r, err, "failed to update user")
		return
	}
	h.writeJSON(w, http.StatusOK, acc)
}

// writeError maps service errors to status codes. Only messages the session
// package marks as public reach the client; everything else is logged.
func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, session.ErrValidation):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": session.PublicMessage(err)})
	case errors.Is(err, session.ErrUnauthorized):
		h.logger.Debugw("authentication failed", session.LogFields(r, "err", err)...)
		h.writeJSON(w, http.StatusUnauthorized, map[string]string{"error": session.PublicMessage(err)})
	case errors.Is(err, session.ErrConflict):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": session.PublicMessage(err)})
	case errors.Is(err, session.ErrAccountNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": "user not found"})
	case errors.Is(err, session.ErrTimeout):
		h.logger.Warnw("request timed out", session.LogFields(r, "err", err)...)
		h.writeJSON(w, http.StatusServiceUnavailable, map[string]string{"error": "temporarily unavailable"})
	default:
		h.logger.Errorw(fallback, session.LogFields(r, "err", err)...)
		h.writeJSON(w, http.StatusInternalServerError, map[string]string{"error": fallback})
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
