package timeline

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// EventType discriminates the closed set of timeline event variants.
type EventType string

const (
	EventSymptom        EventType = "symptom"
	EventWellness       EventType = "wellness"
	EventTreatment      EventType = "treatment"
	EventLifestyle      EventType = "lifestyle"
	EventWorkflowResult EventType = "workflow_result"
)

// EventSource records how an event entered the system.
type EventSource string

const (
	SourceManual         EventSource = "manual"
	SourceVoice          EventSource = "voice"
	SourcePortal         EventSource = "portal"
	SourceImportedRecord EventSource = "imported_record"
	SourceDocument       EventSource = "document"
)

// TriageRoute is the three-level routing outcome of a triage workflow.
type TriageRoute string

const (
	RouteGreen  TriageRoute = "green"
	RouteYellow TriageRoute = "yellow"
	RouteRed    TriageRoute = "red"
)

// LifestyleCategory classifies lifestyle events.
type LifestyleCategory string

const (
	LifestyleDiet     LifestyleCategory = "diet"
	LifestyleExercise LifestyleCategory = "exercise"
	LifestyleSleep    LifestyleCategory = "sleep"
	LifestyleStress   LifestyleCategory = "stress"
	LifestyleTravel   LifestyleCategory = "travel"
	LifestyleOther    LifestyleCategory = "other"
)

// Envelope holds the fields shared by every timeline event. The caller
// supplies both id and timestamp; the store does not generate them.
type Envelope struct {
	ID            string      `json:"id"`
	PatientID     string      `json:"patient_id"`
	Timestamp     string      `json:"timestamp"`
	EventType     EventType   `json:"event_type"`
	Source        EventSource `json:"source,omitempty"`
	Confidence    float64     `json:"confidence"`
	DerivedFrom   []string    `json:"derived_from,omitempty"`
	SchemaVersion string      `json:"schema_version,omitempty"`
	CorrelationID string      `json:"correlation_id,omitempty"`
}

// Event is satisfied by every variant through the embedded envelope. An
// event with an unknown discriminator is represented by the bare *Envelope.
type Event interface {
	Env() *Envelope
}

func (e *Envelope) Env() *Envelope { return e }

// Severity is a graded symptom measurement on a named scale.
type Severity struct {
	Value int    `json:"value"`
	Scale string `json:"scale,omitempty"`
	Label string `json:"label,omitempty"`
}

// SymptomMeasurement is one observed symptom inside a symptom event.
type SymptomMeasurement struct {
	Name      string    `json:"name"`
	Severity  *Severity `json:"severity,omitempty"`
	Frequency string    `json:"frequency,omitempty"`
	Trend     string    `json:"trend,omitempty"` // worsening, stable, improving
	RawAnswer string    `json:"rawAnswer,omitempty"`
}

type SymptomEvent struct {
	Envelope
	Measurements []SymptomMeasurement `json:"measurements"`
}

type WellnessEvent struct {
	Envelope
	Mood    int    `json:"mood"`    // 1-5
	Anxiety int    `json:"anxiety"` // 0-10
	Notes   string `json:"notes,omitempty"`
}

// TreatmentEvent covers both point-in-time treatments (single infusion,
// start/end absent, the envelope timestamp is the point) and interval
// treatments (courses with start and end timestamps).
type TreatmentEvent struct {
	Envelope
	Name           string `json:"name"`
	Description    string `json:"description,omitempty"`
	StartTimestamp string `json:"start_timestamp,omitempty"`
	EndTimestamp   string `json:"end_timestamp,omitempty"`
}

type LifestyleEvent struct {
	Envelope
	Name        string            `json:"name"`
	Category    LifestyleCategory `json:"category,omitempty"`
	Description string            `json:"description,omitempty"`
	Notes       string            `json:"notes,omitempty"`
}

// EvidenceRef points a derived signal back to the event (and optionally the
// field) it was inferred from.
type EvidenceRef struct {
	EventID string `json:"event_id"`
	Field   string `json:"field,omitempty"`
}

type SignalWindow struct {
	Start string `json:"start,omitempty"`
	End   string `json:"end,omitempty"`
}

// DerivedSignal is a structured clinical inference attached to a workflow
// result, e.g. "headache worsening over 72h".
type DerivedSignal struct {
	Type            string        `json:"type"`
	Title           string        `json:"title"`
	Severity        string        `json:"severity,omitempty"`
	Summary         string        `json:"summary,omitempty"`
	Window          *SignalWindow `json:"window,omitempty"`
	Evidence        []EvidenceRef `json:"evidence,omitempty"`
	SuggestedAction string        `json:"suggested_action,omitempty"`
}

// WorkflowResultEvent is the auditable record of a triage decision. Once
// persisted it is never edited, only superseded by a new event.
type WorkflowResultEvent struct {
	Envelope
	WorkflowName      string          `json:"workflow_name"`
	Route             TriageRoute     `json:"route"`
	PatientSummary    string          `json:"patient_summary,omitempty"`
	ClinicianSummary  string          `json:"clinician_summary,omitempty"`
	EscalationTrigger string          `json:"escalation_trigger,omitempty"`
	SafetyFlags       []string        `json:"safety_flags,omitempty"`
	TriageConfidence  float64         `json:"triage_confidence"`
	StructuredPayload map[string]any  `json:"structured_payload,omitempty"`
	Signals           []DerivedSignal `json:"signals,omitempty"`
}

// DecodeEvent constructs the correctly-typed variant from a raw tagged
// record. An unknown or missing discriminator falls back to the bare
// envelope. A missing patient id or missing variant-required fields yield a
// validation error.
func DecodeEvent(raw []byte) (Event, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("decode event: %w", err)
	}
	if env.PatientID == "" {
		return nil, fmt.Errorf("event is missing patient_id")
	}

	ev, err := decodeVariant(env.EventType, raw)
	if err != nil {
		return nil, err
	}
	if ev == nil {
		// Unknown discriminator: keep the envelope shape.
		fallback := env
		ev = &fallback
	}

	var defaults struct {
		Confidence *float64 `json:"confidence"`
	}
	_ = json.Unmarshal(raw, &defaults)
	if defaults.Confidence == nil {
		ev.Env().Confidence = 1.0
	}

	// Normalize parseable timestamps to UTC RFC 3339 at write time.
	// Unparseable values are kept verbatim and excluded from windowed reads.
	if t, ok := parseTimestamp(ev.Env().Timestamp); ok {
		ev.Env().Timestamp = t.Format(time.RFC3339Nano)
	}
	return ev, nil
}

func decodeVariant(eventType EventType, raw []byte) (Event, error) {
	switch eventType {
	case EventSymptom:
		var e SymptomEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode symptom event: %w", err)
		}
		if len(e.Measurements) == 0 {
			return nil, fmt.Errorf("symptom event requires at least one measurement")
		}
		for i, m := range e.Measurements {
			if m.Name == "" {
				return nil, fmt.Errorf("symptom measurement %d is missing a name", i)
			}
		}
		return &e, nil

	case EventWellness:
		var required struct {
			Mood    *int `json:"mood"`
			Anxiety *int `json:"anxiety"`
		}
		if err := json.Unmarshal(raw, &required); err != nil {
			return nil, fmt.Errorf("decode wellness event: %w", err)
		}
		if required.Mood == nil || required.Anxiety == nil {
			return nil, fmt.Errorf("wellness event requires mood and anxiety")
		}
		if *required.Mood < 1 || *required.Mood > 5 {
			return nil, fmt.Errorf("wellness mood must be 1-5, got %d", *required.Mood)
		}
		if *required.Anxiety < 0 || *required.Anxiety > 10 {
			return nil, fmt.Errorf("wellness anxiety must be 0-10, got %d", *required.Anxiety)
		}
		var e WellnessEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode wellness event: %w", err)
		}
		return &e, nil

	case EventTreatment:
		var e TreatmentEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode treatment event: %w", err)
		}
		if e.Name == "" {
			return nil, fmt.Errorf("treatment event requires a name")
		}
		return &e, nil

	case EventLifestyle:
		var e LifestyleEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode lifestyle event: %w", err)
		}
		return &e, nil

	case EventWorkflowResult:
		var e WorkflowResultEvent
		if err := json.Unmarshal(raw, &e); err != nil {
			return nil, fmt.Errorf("decode workflow result event: %w", err)
		}
		if e.WorkflowName == "" {
			return nil, fmt.Errorf("workflow result event requires workflow_name")
		}
		switch e.Route {
		case RouteGreen, RouteYellow, RouteRed:
		default:
			return nil, fmt.Errorf("workflow result route must be green, yellow or red, got %q", e.Route)
		}
		var defaults struct {
			TriageConfidence *float64 `json:"triage_confidence"`
		}
		_ = json.Unmarshal(raw, &defaults)
		if defaults.TriageConfidence == nil {
			e.TriageConfidence = 1.0
		}
		return &e, nil
	}
	return nil, nil
}

var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
	"2006-01-02",
}

// parseTimestamp accepts RFC 3339 timestamps with or without offset or
// fractional seconds; offset-free values are read as UTC.
func parseTimestamp(s string) (time.Time, bool) {
	for _, layout := range timestampLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// sortEventsDesc orders newest-first by parsed timestamp. Two unparseable
// timestamps fall back to raw string comparison; the sort is stable, so
// insertion order breaks ties.
func sortEventsDesc(events []Event) {
	sort.SliceStable(events, func(i, j int) bool {
		ti, iok := parseTimestamp(events[i].Env().Timestamp)
		tj, jok := parseTimestamp(events[j].Env().Timestamp)
		if iok && jok {
			return ti.After(tj)
		}
		if iok != jok {
			return iok
		}
		return events[i].Env().Timestamp > events[j].Env().Timestamp
	})
}
