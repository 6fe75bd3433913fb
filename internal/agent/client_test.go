package agent

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oncology-console/internal/timeline"
)

func nsclcProfile() *timeline.PatientProfile {
	return &timeline.PatientProfile{
		ID:         "p1",
		Name:       "Test Patient",
		CancerType: "Non-small cell lung cancer",
		CurrentTreatment: timeline.CurrentTreatment{
			IsActive: true,
			Regimen:  "Carboplatin + Pemetrexed",
		},
	}
}

func symptomEvent(id, name string, severity int, trend string) *timeline.SymptomEvent {
	return &timeline.SymptomEvent{
		Envelope: timeline.Envelope{
			ID:        id,
			PatientID: "p1",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			EventType: timeline.EventSymptom,
			Source:    timeline.SourceVoice,
		},
		Measurements: []timeline.SymptomMeasurement{{
			Name:     name,
			Severity: &timeline.Severity{Value: severity, Scale: "0_10"},
			Trend:    trend,
		}},
	}
}

func wellnessEvent(id string, mood, anxiety int) *timeline.WellnessEvent {
	return &timeline.WellnessEvent{
		Envelope: timeline.Envelope{
			ID:        id,
			PatientID: "p1",
			Timestamp: time.Now().UTC().Format(time.RFC3339),
			EventType: timeline.EventWellness,
		},
		Mood:    mood,
		Anxiety: anxiety,
	}
}

func TestRunTriageGreenWhenStableAndMild(t *testing.T) {
	engine := NewRuleEngine()

	decision, err := engine.RunTriage(context.Background(), nsclcProfile(), []timeline.Event{
		symptomEvent("e1", "Fatigue", 2, "stable"),
	})
	require.NoError(t, err)

	assert.Equal(t, timeline.RouteGreen, decision.Route)
	assert.Empty(t, decision.SafetyFlags)
	assert.Empty(t, decision.Signals)
}

func TestRunTriageYellowAtProtocolThreshold(t *testing.T) {
	engine := NewRuleEngine()

	// Headache under Carboplatin/Pemetrexed goes yellow at severity >= 4.
	decision, err := engine.RunTriage(context.Background(), nsclcProfile(), []timeline.Event{
		symptomEvent("e1", "Headache", 7, "worsening"),
	})
	require.NoError(t, err)

	assert.Equal(t, timeline.RouteYellow, decision.Route)
	assert.Contains(t, decision.EscalationTrigger, "Headache")
	assert.Contains(t, decision.SafetyFlags, "worsening_trend")

	require.Len(t, decision.Signals, 1)
	signal := decision.Signals[0]
	assert.Equal(t, "symptom_trend", signal.Type)
	require.Len(t, signal.Evidence, 1)
	assert.Equal(t, "e1", signal.Evidence[0].EventID)
}

func TestRunTriageYellowOnWorseningBelowThreshold(t *testing.T) {
	engine := NewRuleEngine()

	decision, err := engine.RunTriage(context.Background(), nsclcProfile(), []timeline.Event{
		symptomEvent("e1", "Headache", 3, "worsening"),
	})
	require.NoError(t, err)
	assert.Equal(t, timeline.RouteYellow, decision.Route)
}

func TestRunTriageRedAtSeverityThreshold(t *testing.T) {
	engine := NewRuleEngine()

	decision, err := engine.RunTriage(context.Background(), nsclcProfile(), []timeline.Event{
		symptomEvent("e1", "Headache", 9, "worsening"),
	})
	require.NoError(t, err)

	assert.Equal(t, timeline.RouteRed, decision.Route)
	assert.Contains(t, decision.SafetyFlags, "severity_threshold_exceeded")
	assert.NotEmpty(t, decision.PatientSummary)
	assert.NotEmpty(t, decision.ClinicianSummary)
}

func TestRunTriageRedOnRedFlagSymptom(t *testing.T) {
	engine := NewRuleEngine()

	decision, err := engine.RunTriage(context.Background(), nsclcProfile(), []timeline.Event{
		symptomEvent("e1", "Fever", 3, "stable"),
	})
	require.NoError(t, err)

	assert.Equal(t, timeline.RouteRed, decision.Route)
	assert.Contains(t, decision.SafetyFlags, "red_flag_present")
}

func TestRunTriageYellowOnDistressWithoutSymptoms(t *testing.T) {
	engine := NewRuleEngine()

	decision, err := engine.RunTriage(context.Background(), nsclcProfile(), []timeline.Event{
		wellnessEvent("e1", 2, 9),
	})
	require.NoError(t, err)

	assert.Equal(t, timeline.RouteYellow, decision.Route)
	assert.Contains(t, decision.SafetyFlags, "elevated_distress")
}

func TestRunTriageGreenWithNoRecentEvents(t *testing.T) {
	engine := NewRuleEngine()

	decision, err := engine.RunTriage(context.Background(), nsclcProfile(), nil)
	require.NoError(t, err)
	assert.Equal(t, timeline.RouteGreen, decision.Route)
}

func TestProtocolsForAlwaysIncludesFallback(t *testing.T) {
	profile := &timeline.PatientProfile{
		CurrentTreatment: timeline.CurrentTreatment{IsActive: false},
	}
	protocols := ProtocolsFor(profile, "dizziness")
	require.NotEmpty(t, protocols)
	assert.Equal(t, "General Oncology Triage", protocols[len(protocols)-1].Name)

	nsclc := ProtocolsFor(nsclcProfile(), "headache")
	assert.Equal(t, "NSCLC Symptom Management - Neurological", nsclc[0].Name)
}
