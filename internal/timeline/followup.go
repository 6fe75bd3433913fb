package timeline

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/samber/lo"
)

type TaskUrgency string

const (
	UrgencyRoutine TaskUrgency = "routine"
	UrgencyUrgent  TaskUrgency = "urgent"
	UrgencyStat    TaskUrgency = "stat"
)

type TaskStatus string

const (
	TaskPending    TaskStatus = "pending"
	TaskInProgress TaskStatus = "in_progress"
	TaskCompleted  TaskStatus = "completed"
	TaskCancelled  TaskStatus = "cancelled"
)

// urgencyRank fixes the total order stat < urgent < routine (stat first).
var urgencyRank = map[TaskUrgency]int{
	UrgencyStat:    0,
	UrgencyUrgent:  1,
	UrgencyRoutine: 2,
}

// FollowupTask is a clinician work item, typically opened by a yellow
// triage route. Tasks only ever advance status; they are memory-only and do
// not survive a restart.
type FollowupTask struct {
	ID          string      `json:"id"`
	PatientID   string      `json:"patient_id"`
	Urgency     TaskUrgency `json:"urgency"`
	Summary     string      `json:"summary"`
	Context     string      `json:"context,omitempty"`
	TriggeredBy string      `json:"triggered_by,omitempty"`
	Assignee    string      `json:"assignee,omitempty"`
	CreatedAt   string      `json:"created_at"`
	Status      TaskStatus  `json:"status"`
}

// Annotation marks a time range of interest on a patient's timeline view,
// independent of any event.
type Annotation struct {
	ID        string `json:"id"`
	PatientID string `json:"patient_id"`
	Title     string `json:"title"`
	Start     string `json:"start"`
	End       string `json:"end"`
	Text      string `json:"text,omitempty"`
	Color     string `json:"color,omitempty"`
	CreatedAt string `json:"created_at"`
}

// ViewFilters holds per-category name lists plus show-all switches.
type ViewFilters struct {
	Symptoms      []string `json:"symptoms"`
	AllSymptoms   bool     `json:"all_symptoms"`
	Treatments    []string `json:"treatments"`
	AllTreatments bool     `json:"all_treatments"`
	Lifestyle     []string `json:"lifestyle"`
	AllLifestyle  bool     `json:"all_lifestyle"`
}

// SavedView is a named timeline filter configuration.
type SavedView struct {
	ID        string      `json:"id"`
	PatientID string      `json:"patient_id"`
	Name      string      `json:"name"`
	Filters   ViewFilters `json:"filters"`
	ChartType string      `json:"chart_type,omitempty"`
	CreatedAt string      `json:"created_at"`
}

// AgentSession records one agent conversation: the transcript plus whatever
// analysis the orchestration layer attached.
type AgentSession struct {
	ID         string         `json:"id"`
	AgentType  string         `json:"agent_type"`
	Transcript string         `json:"transcript"`
	Analysis   map[string]any `json:"analysis,omitempty"`
	CreatedAt  string         `json:"created_at"`
}

func nowTimestamp() string {
	return time.Now().UTC().Format(time.RFC3339)
}

// AddFollowupTask stamps missing id/created_at/status and appends the task.
// Followups are not persisted.
func (s *Store) AddFollowupTask(task *FollowupTask) *FollowupTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	if task.ID == "" {
		task.ID = uuid.New().String()
	}
	if task.CreatedAt == "" {
		task.CreatedAt = nowTimestamp()
	}
	if task.Status == "" {
		task.Status = TaskPending
	}
	if task.Urgency == "" {
		task.Urgency = UrgencyRoutine
	}
	s.followups[task.PatientID] = append(s.followups[task.PatientID], task)
	return task
}

// GetFollowupTasks lists a patient's tasks, optionally filtered by status,
// ordered stat first, then urgent, then routine; creation order breaks
// ties.
func (s *Store) GetFollowupTasks(patientID string, status TaskStatus) []*FollowupTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	tasks := lo.Filter(s.followups[patientID], func(t *FollowupTask, _ int) bool {
		return status == "" || t.Status == status
	})
	sort.SliceStable(tasks, func(i, j int) bool {
		return urgencyRank[tasks[i].Urgency] < urgencyRank[tasks[j].Urgency]
	})
	return tasks
}

// UpdateFollowupStatus advances a task's status, the only mutation tasks
// allow. Returns nil when the id is unknown.
func (s *Store) UpdateFollowupStatus(taskID string, status TaskStatus) *FollowupTask {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, tasks := range s.followups {
		for _, task := range tasks {
			if task.ID == taskID {
				task.Status = status
				return task
			}
		}
	}
	return nil
}

// DeleteFollowupTask removes a task by id.
func (s *Store) DeleteFollowupTask(taskID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for patientID, tasks := range s.followups {
		for i, task := range tasks {
			if task.ID == taskID {
				s.followups[patientID] = append(tasks[:i:i], tasks[i+1:]...)
				return true
			}
		}
	}
	return false
}

// AddAnnotation stamps missing id/created_at, appends and persists.
func (s *Store) AddAnnotation(annotation *Annotation) *Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()

	if annotation.ID == "" {
		annotation.ID = uuid.New().String()
	}
	if annotation.CreatedAt == "" {
		annotation.CreatedAt = nowTimestamp()
	}
	s.annotations[annotation.PatientID] = append(s.annotations[annotation.PatientID], annotation)
	s.persistLocked()
	return annotation
}

func (s *Store) GetAnnotations(patientID string) []*Annotation {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Annotation{}, s.annotations[patientID]...)
}

func (s *Store) DeleteAnnotation(annotationID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for patientID, annotations := range s.annotations {
		for i, annotation := range annotations {
			if annotation.ID == annotationID {
				s.annotations[patientID] = append(annotations[:i:i], annotations[i+1:]...)
				s.persistLocked()
				return true
			}
		}
	}
	return false
}

// AddSavedView stamps missing id/created_at, appends and persists.
func (s *Store) AddSavedView(view *SavedView) *SavedView {
	s.mu.Lock()
	defer s.mu.Unlock()

	if view.ID == "" {
		view.ID = uuid.New().String()
	}
	if view.CreatedAt == "" {
		view.CreatedAt = nowTimestamp()
	}
	s.savedViews[view.PatientID] = append(s.savedViews[view.PatientID], view)
	s.persistLocked()
	return view
}

func (s *Store) GetSavedViews(patientID string) []*SavedView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*SavedView{}, s.savedViews[patientID]...)
}

func (s *Store) DeleteSavedView(viewID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for patientID, views := range s.savedViews {
		for i, view := range views {
			if view.ID == viewID {
				s.savedViews[patientID] = append(views[:i:i], views[i+1:]...)
				s.persistLocked()
				return true
			}
		}
	}
	return false
}

// CreateSession records one agent conversation and persists it.
func (s *Store) CreateSession(agentType, transcript string, analysis map[string]any) *AgentSession {
	s.mu.Lock()
	defer s.mu.Unlock()

	session := &AgentSession{
		ID:         uuid.New().String(),
		AgentType:  agentType,
		Transcript: transcript,
		Analysis:   analysis,
		CreatedAt:  nowTimestamp(),
	}
	s.sessions = append(s.sessions, session)
	s.persistLocked()
	return session
}

func (s *Store) GetSessions() []*AgentSession {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*AgentSession{}, s.sessions...)
}
