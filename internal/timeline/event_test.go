package timeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeEventDispatchesOnDiscriminator(t *testing.T) {
	cases := []struct {
		name string
		raw  string
		want any
	}{
		{
			name: "symptom",
			raw:  `{"id":"e1","patient_id":"p1","timestamp":"2025-06-01T00:00:00Z","event_type":"symptom","measurements":[{"name":"Headache"}]}`,
			want: &SymptomEvent{},
		},
		{
			name: "wellness",
			raw:  `{"id":"e2","patient_id":"p1","timestamp":"2025-06-01T00:00:00Z","event_type":"wellness","mood":3,"anxiety":6}`,
			want: &WellnessEvent{},
		},
		{
			name: "treatment",
			raw:  `{"id":"e3","patient_id":"p1","timestamp":"2025-06-01T00:00:00Z","event_type":"treatment","name":"Carboplatin infusion"}`,
			want: &TreatmentEvent{},
		},
		{
			name: "lifestyle",
			raw:  `{"id":"e4","patient_id":"p1","timestamp":"2025-06-01T00:00:00Z","event_type":"lifestyle","name":"Morning walk","category":"exercise"}`,
			want: &LifestyleEvent{},
		},
		{
			name: "workflow_result",
			raw:  `{"id":"e5","patient_id":"p1","timestamp":"2025-06-01T00:00:00Z","event_type":"workflow_result","workflow_name":"symptom_triage","route":"green"}`,
			want: &WorkflowResultEvent{},
		},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			event, err := DecodeEvent([]byte(tc.raw))
			require.NoError(t, err)
			assert.IsType(t, tc.want, event)
		})
	}
}

func TestDecodeEventUnknownTypeKeepsEnvelope(t *testing.T) {
	raw := `{"id":"e1","patient_id":"p1","timestamp":"2025-06-01T00:00:00Z","event_type":"future_variant","payload":"ignored"}`
	event, err := DecodeEvent([]byte(raw))
	require.NoError(t, err)

	env, ok := event.(*Envelope)
	require.True(t, ok)
	assert.Equal(t, EventType("future_variant"), env.EventType)
	assert.Equal(t, "p1", env.PatientID)
}

func TestDecodeEventConfidenceDefault(t *testing.T) {
	withDefault, err := DecodeEvent([]byte(`{"id":"e1","patient_id":"p1","timestamp":"2025-06-01T00:00:00Z","event_type":"treatment","name":"Infusion"}`))
	require.NoError(t, err)
	assert.Equal(t, 1.0, withDefault.Env().Confidence)

	explicit, err := DecodeEvent([]byte(`{"id":"e2","patient_id":"p1","timestamp":"2025-06-01T00:00:00Z","event_type":"treatment","name":"Infusion","confidence":0.4}`))
	require.NoError(t, err)
	assert.Equal(t, 0.4, explicit.Env().Confidence)
}

func TestDecodeEventNormalizesTimestampToUTC(t *testing.T) {
	raw := `{"id":"e1","patient_id":"p1","timestamp":"2025-01-02T10:00:00+02:00","event_type":"treatment","name":"Infusion"}`
	event, err := DecodeEvent([]byte(raw))
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02T08:00:00Z", event.Env().Timestamp)

	// Offset-free timestamps are read as UTC, not local time.
	naive := `{"id":"e2","patient_id":"p1","timestamp":"2025-01-02T10:00:00","event_type":"treatment","name":"Infusion"}`
	event, err = DecodeEvent([]byte(naive))
	require.NoError(t, err)
	assert.Equal(t, "2025-01-02T10:00:00Z", event.Env().Timestamp)

	// Unparseable timestamps are kept verbatim.
	garbled := `{"id":"e3","patient_id":"p1","timestamp":"last tuesday","event_type":"treatment","name":"Infusion"}`
	event, err = DecodeEvent([]byte(garbled))
	require.NoError(t, err)
	assert.Equal(t, "last tuesday", event.Env().Timestamp)
}

func TestDecodeWellnessRangeValidation(t *testing.T) {
	_, err := DecodeEvent([]byte(`{"id":"e1","patient_id":"p1","timestamp":"2025-06-01T00:00:00Z","event_type":"wellness","mood":6,"anxiety":2}`))
	assert.ErrorContains(t, err, "mood")

	_, err = DecodeEvent([]byte(`{"id":"e1","patient_id":"p1","timestamp":"2025-06-01T00:00:00Z","event_type":"wellness","mood":3,"anxiety":11}`))
	assert.ErrorContains(t, err, "anxiety")
}

func TestDecodeWorkflowResultConfidenceDefault(t *testing.T) {
	raw := `{"id":"e1","patient_id":"p1","timestamp":"2025-06-01T00:00:00Z","event_type":"workflow_result","workflow_name":"symptom_triage","route":"yellow"}`
	event, err := DecodeEvent([]byte(raw))
	require.NoError(t, err)

	wr, ok := event.(*WorkflowResultEvent)
	require.True(t, ok)
	assert.Equal(t, 1.0, wr.TriageConfidence)
}

func TestSortEventsDescUnparseableLast(t *testing.T) {
	events := []Event{
		&Envelope{ID: "bad", PatientID: "p1", Timestamp: "???", EventType: "note"},
		&Envelope{ID: "old", PatientID: "p1", Timestamp: "2025-06-01T00:00:00Z", EventType: "note"},
		&Envelope{ID: "new", PatientID: "p1", Timestamp: "2025-06-02T00:00:00Z", EventType: "note"},
	}
	sortEventsDesc(events)

	assert.Equal(t, "new", events[0].Env().ID)
	assert.Equal(t, "old", events[1].Env().ID)
	assert.Equal(t, "bad", events[2].Env().ID)
}
