package triage

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

type Handler struct {
	svc *Service
}

func NewHandler(svc *Service) *Handler {
	return &Handler{svc: svc}
}

type checkinRequest struct {
	PatientID string `json:"patient_id"`
}

func (h *Handler) HandleCheckin(w http.ResponseWriter, r *http.Request) {
	var req checkinRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.PatientID == "" {
		http.Error(w, "Missing patient_id", http.StatusBadRequest)
		return
	}

	result, err := h.svc.RunCheckin(r.Context(), req.PatientID)
	if err != nil {
		if errors.Is(err, ErrPatientNotFound) {
			http.Error(w, err.Error(), http.StatusNotFound)
			return
		}
		http.Error(w, "Check-in failed: "+err.Error(), http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(result)
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/agent/checkin", h.HandleCheckin)
}
