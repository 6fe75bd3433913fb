package triage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"oncology-console/internal/timeline"
)

// How far back a check-in looks for context (7 days).
const checkinWindowHours = 168

// ErrPatientNotFound reports a check-in against an unknown patient id.
var ErrPatientNotFound = errors.New("patient not found")

// Decision is what the triage engine asserts about a patient's recent
// events. The service records it verbatim; it does not second-guess the
// route.
type Decision struct {
	Route             timeline.TriageRoute
	PatientSummary    string
	ClinicianSummary  string
	EscalationTrigger string
	SafetyFlags       []string
	Confidence        float64
	Signals           []timeline.DerivedSignal
}

// Engine computes a triage decision from patient context. Implementations
// range from the rule-based engine to a full LLM orchestrator.
type Engine interface {
	RunTriage(ctx context.Context, profile *timeline.PatientProfile, recent []timeline.Event) (*Decision, error)
}

// Reporter delivers red-route escalations to the care team.
type Reporter interface {
	SendEscalation(ctx context.Context, profile *timeline.PatientProfile, result *timeline.WorkflowResultEvent) error
}

type Service struct {
	store    *timeline.Store
	engine   Engine
	reporter Reporter
}

func NewService(store *timeline.Store, engine Engine, reporter Reporter) *Service {
	return &Service{
		store:    store,
		engine:   engine,
		reporter: reporter,
	}
}

// RunCheckin reads the patient's recent context, asks the engine for a
// route, and records the decision as an immutable workflow-result event.
// Yellow routes open an urgent followup task; red routes additionally go to
// the reporter. A reporter failure is logged, not returned: the audit event
// is already on the timeline.
func (s *Service) RunCheckin(ctx context.Context, patientID string) (*timeline.WorkflowResultEvent, error) {
	profile := s.store.GetProfile(patientID)
	if profile == nil {
		return nil, fmt.Errorf("%w: %s", ErrPatientNotFound, patientID)
	}

	recent := s.store.GetRecentEvents(patientID, checkinWindowHours, nil)

	decision, err := s.engine.RunTriage(ctx, profile, recent)
	if err != nil {
		return nil, fmt.Errorf("triage engine failed: %w", err)
	}

	result := &timeline.WorkflowResultEvent{
		Envelope: timeline.Envelope{
			ID:            uuid.New().String(),
			PatientID:     patientID,
			Timestamp:     time.Now().UTC().Format(time.RFC3339),
			EventType:     timeline.EventWorkflowResult,
			Source:        timeline.SourceVoice,
			Confidence:    1.0,
			SchemaVersion: "1.0",
		},
		WorkflowName:      "symptom_triage",
		Route:             decision.Route,
		PatientSummary:    decision.PatientSummary,
		ClinicianSummary:  decision.ClinicianSummary,
		EscalationTrigger: decision.EscalationTrigger,
		SafetyFlags:       decision.SafetyFlags,
		TriageConfidence:  decision.Confidence,
		Signals:           decision.Signals,
	}

	raw, err := json.Marshal(result)
	if err != nil {
		return nil, fmt.Errorf("marshal workflow result: %w", err)
	}
	logged, err := s.store.AddEvent(raw)
	if err != nil {
		return nil, fmt.Errorf("log workflow result: %w", err)
	}
	audit, ok := logged.(*timeline.WorkflowResultEvent)
	if !ok {
		return nil, fmt.Errorf("unexpected event type %T for workflow result", logged)
	}

	switch decision.Route {
	case timeline.RouteYellow:
		s.store.AddFollowupTask(&timeline.FollowupTask{
			PatientID:   patientID,
			Urgency:     timeline.UrgencyUrgent,
			Summary:     decision.ClinicianSummary,
			Context:     decision.EscalationTrigger,
			TriggeredBy: audit.ID,
		})
	case timeline.RouteRed:
		if s.reporter != nil {
			if err := s.reporter.SendEscalation(ctx, profile, audit); err != nil {
				log.Printf("triage: escalation delivery failed for patient %s: %v", patientID, err)
			}
		}
	}

	return audit, nil
}
