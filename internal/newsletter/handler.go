package newsletter

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/savemedha/outreach-api/internal/newsletter/repo"
	"github.com/savemedha/outreach-api/internal/session"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type emailRequest struct {
	Email string `json:"email"`
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req emailRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": ErrInvalidEmail.Error()})
		return "", false
	}
	return req.Email, true
}

func (h *Handler) Subscribe(w http.ResponseWriter, r *http.Request) {
	email, ok := h.decode(w, r)
	if !ok {
		return
	}
	sub, err := h.svc.Subscribe(r.Context(), email)
	if err != nil {
		h.writeError(w, r, err, "failed to create newsletter subscription")
		return
	}
	h.writeJSON(w, http.StatusCreated, sub)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	subs, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err, "failed to fetch newsletter subscriptions")
		return
	}
	h.writeJSON(w, http.StatusOK, subs)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	sub, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err, "failed to fetch newsletter subscription")
		return
	}
	h.writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	email, ok := h.decode(w, r)
	if !ok {
		return
	}
	sub, err := h.svc.UpdateEmail(r.Context(), r.PathValue("id"), email)
	if err != nil {
		h.writeError(w, r, err, "failed to update newsletter subscription")
		return
	}
	h.writeJSON(w, http.StatusOK, sub)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err, "failed to delete newsletter subscription")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "subscription deleted"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, ErrInvalidEmail):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
	case errors.Is(err, repo.ErrDuplicate):
		h.writeJSON(w, http.StatusConflict, map[string]string{"error": repo.ErrDuplicate.Error()})
	case errors.Is(err, repo.ErrNotFound):
		h.writeJSON(w, http.StatusNotFound, map[string]string{"error": repo.ErrNotFound.Error()})
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
