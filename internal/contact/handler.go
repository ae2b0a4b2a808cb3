package contact

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/savemedha/outreach-api/internal/contact/entity"
	"github.com/savemedha/outreach-api/internal/contact/repo"
	"github.com/savemedha/outreach-api/internal/session"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var in entity.Submission
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	c, err := h.svc.Submit(r.Context(), in)
	if err != nil {
		h.writeError(w, r, err, "failed to save contact submission")
		return
	}
	h.writeJSON(w, http.StatusCreated, c)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err, "failed to fetch contact submissions")
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err, "failed to fetch contact submission")
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var p entity.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	c, err := h.svc.Update(r.Context(), r.PathValue("id"), p)
	if err != nil {
		h.writeError(w, r, err, "failed to update contact submission")
		return
	}
	h.writeJSON(w, http.StatusOK, c)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Delete(r.Context(), r.PathValue("id")); err != nil {
		h.writeError(w, r, err, "failed to delete contact submission")
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"message": "contact submission deleted"})
}

func (h *Handler) writeError(w http.ResponseWriter, r *http.Request, err error, fallback string) {
	switch {
	case errors.Is(err, session.ErrValidation):
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": session.PublicMessage(err)})
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
