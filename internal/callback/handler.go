package callback

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/savemedha/outreach-api/internal/callback/entity"
	"github.com/savemedha/outreach-api/internal/callback/repo"
	"github.com/savemedha/outreach-api/internal/session"
)

type Handler struct {
	svc    *Service
	logger *zap.SugaredLogger
}

func NewHandler(svc *Service, logger *zap.SugaredLogger) *Handler {
	return &Handler{svc: svc, logger: logger}
}

type createRequest struct {
	FullName    string `json:"fullName"`
	PhoneNumber string `json:"phoneNumber"`
	Description string `json:"description"`
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var in createRequest
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req, err := h.svc.Create(r.Context(), entity.Request{
		FullName: in.FullName, PhoneNumber: in.PhoneNumber, Description: in.Description,
	})
	if err != nil {
		h.writeError(w, r, err, "failed to create callback request")
		return
	}
	h.writeJSON(w, http.StatusCreated, req)
}

func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	list, err := h.svc.List(r.Context())
	if err != nil {
		h.writeError(w, r, err, "failed to fetch callback requests")
		return
	}
	h.writeJSON(w, http.StatusOK, list)
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	req, err := h.svc.Get(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeError(w, r, err, "failed to fetch callback request")
		return
	}
	h.writeJSON(w, http.StatusOK, req)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var rv entity.Review
	if err := json.NewDecoder(r.Body).Decode(&rv); err != nil {
		h.writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid request body"})
		return
	}
	req, err := h.svc.Review(r.Context(), r.PathValue("id"), rv)
	if err != nil {
		h.writeError(w, r, err, "failed to update callback request")
		return
	}
	h.writeJSON(w, http.StatusOK, req)
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
