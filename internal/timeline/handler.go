package timeline

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

type Handler struct {
	store *Store
}

func NewHandler(store *Store) *Handler {
	return &Handler{store: store}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func (h *Handler) SaveProfile(w http.ResponseWriter, r *http.Request) {
	var profile PatientProfile
	if err := json.NewDecoder(r.Body).Decode(&profile); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if profile.ID == "" {
		profile.ID = uuid.New().String()
	}
	writeJSON(w, h.store.SaveProfile(&profile))
}

func (h *Handler) GetActiveProfile(w http.ResponseWriter, r *http.Request) {
	profile := h.store.GetActiveProfile()
	if profile == nil {
		http.Error(w, "No active profile found", http.StatusNotFound)
		return
	}
	writeJSON(w, profile)
}

func (h *Handler) GetProfile(w http.ResponseWriter, r *http.Request) {
	profile := h.store.GetProfile(chi.URLParam(r, "profileID"))
	if profile == nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, profile)
}

func (h *Handler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.store.ListProfiles())
}

type createProfileRequest struct {
	Name string `json:"name"`
}

func (h *Handler) CreateProfile(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.Name == "" {
		http.Error(w, "Missing name", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.store.CreateNewProfile(req.Name))
}

func (h *Handler) SwitchProfile(w http.ResponseWriter, r *http.Request) {
	profile := h.store.SwitchProfile(chi.URLParam(r, "profileID"))
	if profile == nil {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, profile)
}

func (h *Handler) DeleteProfile(w http.ResponseWriter, r *http.Request) {
	if !h.store.DeleteProfile(chi.URLParam(r, "profileID")) {
		http.Error(w, "Profile not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"deleted": true})
}

func (h *Handler) AddEvent(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "Failed to read request body", http.StatusBadRequest)
		return
	}
	event, err := h.store.AddEvent(raw)
	if err != nil {
		http.Error(w, "Invalid event: "+err.Error(), http.StatusBadRequest)
		return
	}
	writeJSON(w, event)
}

func (h *Handler) GetEvents(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.store.GetEvents(chi.URLParam(r, "patientID")))
}

func (h *Handler) GetRecentEvents(w http.ResponseWriter, r *http.Request) {
	windowHours := 168
	if v := r.URL.Query().Get("window_hours"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid window_hours", http.StatusBadRequest)
			return
		}
		windowHours = parsed
	}

	var eventTypes []EventType
	if v := r.URL.Query().Get("types"); v != "" {
		eventTypes = lo.Map(strings.Split(v, ","), func(t string, _ int) EventType {
			return EventType(strings.TrimSpace(t))
		})
	}

	writeJSON(w, h.store.GetRecentEvents(chi.URLParam(r, "patientID"), windowHours, eventTypes))
}

func (h *Handler) DeleteEvent(w http.ResponseWriter, r *http.Request) {
	if !h.store.DeleteEvent(chi.URLParam(r, "eventID")) {
		http.Error(w, "Event not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"deleted": true})
}

func (h *Handler) AddFollowup(w http.ResponseWriter, r *http.Request) {
	var task FollowupTask
	if err := json.NewDecoder(r.Body).Decode(&task); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if task.PatientID == "" {
		http.Error(w, "Missing patient_id", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.store.AddFollowupTask(&task))
}

func (h *Handler) ListFollowups(w http.ResponseWriter, r *http.Request) {
	status := TaskStatus(r.URL.Query().Get("status"))
	writeJSON(w, h.store.GetFollowupTasks(chi.URLParam(r, "patientID"), status))
}

type updateStatusRequest struct {
	Status TaskStatus `json:"status"`
}

func (h *Handler) UpdateFollowupStatus(w http.ResponseWriter, r *http.Request) {
	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Status == "" {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	task := h.store.UpdateFollowupStatus(chi.URLParam(r, "taskID"), req.Status)
	if task == nil {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, task)
}

func (h *Handler) DeleteFollowup(w http.ResponseWriter, r *http.Request) {
	if !h.store.DeleteFollowupTask(chi.URLParam(r, "taskID")) {
		http.Error(w, "Task not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"deleted": true})
}

func (h *Handler) AddAnnotation(w http.ResponseWriter, r *http.Request) {
	var annotation Annotation
	if err := json.NewDecoder(r.Body).Decode(&annotation); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if annotation.PatientID == "" {
		http.Error(w, "Missing patient_id", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.store.AddAnnotation(&annotation))
}

func (h *Handler) ListAnnotations(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.store.GetAnnotations(chi.URLParam(r, "patientID")))
}

func (h *Handler) DeleteAnnotation(w http.ResponseWriter, r *http.Request) {
	if !h.store.DeleteAnnotation(chi.URLParam(r, "annotationID")) {
		http.Error(w, "Annotation not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"deleted": true})
}

func (h *Handler) AddSavedView(w http.ResponseWriter, r *http.Request) {
	var view SavedView
	if err := json.NewDecoder(r.Body).Decode(&view); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if view.PatientID == "" {
		http.Error(w, "Missing patient_id", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.store.AddSavedView(&view))
}

func (h *Handler) ListSavedViews(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.store.GetSavedViews(chi.URLParam(r, "patientID")))
}

func (h *Handler) DeleteSavedView(w http.ResponseWriter, r *http.Request) {
	if !h.store.DeleteSavedView(chi.URLParam(r, "viewID")) {
		http.Error(w, "View not found", http.StatusNotFound)
		return
	}
	writeJSON(w, map[string]bool{"deleted": true})
}

type createSessionRequest struct {
	AgentType  string         `json:"agent_type"`
	Transcript string         `json:"transcript"`
	Analysis   map[string]any `json:"analysis"`
}

func (h *Handler) CreateSession(w http.ResponseWriter, r *http.Request) {
	var req createSessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "Invalid request", http.StatusBadRequest)
		return
	}
	if req.AgentType == "" {
		http.Error(w, "Missing agent_type", http.StatusBadRequest)
		return
	}
	writeJSON(w, h.store.CreateSession(req.AgentType, req.Transcript, req.Analysis))
}

func (h *Handler) GetSessions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, h.store.GetSessions())
}

func RegisterRoutes(r chi.Router, h *Handler) {
	r.Post("/profile", h.SaveProfile)
	r.Get("/profile", h.GetActiveProfile)
	r.Post("/profile/new", h.CreateProfile)
	r.Post("/profile/switch/{profileID}", h.SwitchProfile)
	r.Get("/profile/{profileID}", h.GetProfile)
	r.Delete("/profile/{profileID}", h.DeleteProfile)
	r.Get("/profiles", h.ListProfiles)

	r.Post("/events", h.AddEvent)
	r.Get("/events/{patientID}", h.GetEvents)
	r.Get("/events/{patientID}/recent", h.GetRecentEvents)
	r.Delete("/events/{eventID}", h.DeleteEvent)

	r.Post("/followups", h.AddFollowup)
	r.Get("/followups/{patientID}", h.ListFollowups)
	r.Patch("/followups/{taskID}/status", h.UpdateFollowupStatus)
	r.Delete("/followups/{taskID}", h.DeleteFollowup)

	r.Post("/annotations", h.AddAnnotation)
	r.Get("/annotations/{patientID}", h.ListAnnotations)
	r.Delete("/annotations/{annotationID}", h.DeleteAnnotation)

	r.Post("/views", h.AddSavedView)
	r.Get("/views/{patientID}", h.ListSavedViews)
	r.Delete("/views/{viewID}", h.DeleteSavedView)

	r.Post("/agent/session", h.CreateSession)
	r.Get("/agent/sessions", h.GetSessions)
}
