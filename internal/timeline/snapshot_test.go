package timeline

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFilePersisterLoadMissingReturnsNil(t *testing.T) {
	persister := NewFilePersister(filepath.Join(t.TempDir(), "missing.json"))
	snap, err := persister.Load()
	require.NoError(t, err)
	assert.Nil(t, snap)
}

func TestFilePersisterRejectsCorruptSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewFilePersister(path).Load()
	assert.ErrorContains(t, err, "parse snapshot")
}

func TestStoreSelfSeedsWithoutSnapshot(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	store, err := NewStore(NewFilePersister(path))
	require.NoError(t, err)

	require.Len(t, store.ListProfiles(), 1)
	assert.NotNil(t, store.GetActiveProfile())

	// The seed itself is persisted immediately.
	_, statErr := os.Stat(path)
	assert.NoError(t, statErr)
}

func TestSnapshotRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "state.json")
	persister := NewFilePersister(path)

	store, err := NewStore(persister)
	require.NoError(t, err)

	profile := store.CreateNewProfile("Round Trip")
	require.NotNil(t, store.SwitchProfile(profile.ID))

	ts := time.Now().UTC().Format(time.RFC3339)
	_, err = store.AddEvent(symptomRaw(t, profile.ID, "sym-1", ts, "Headache", 6, "worsening"))
	require.NoError(t, err)
	_, err = store.AddEvent(workflowRaw(t, profile.ID, "wr-1", ts, RouteYellow))
	require.NoError(t, err)

	store.AddAnnotation(&Annotation{
		PatientID: profile.ID,
		Title:     "Cycle 3",
		Start:     ts,
		End:       ts,
		Color:     "#ffcc00",
	})
	store.AddSavedView(&SavedView{
		PatientID: profile.ID,
		Name:      "Symptoms only",
		Filters:   ViewFilters{AllSymptoms: true},
		ChartType: "line",
	})
	store.CreateSession("wellness", "transcript text", map[string]any{"mood": "anxious"})
	store.AddFollowupTask(&FollowupTask{
		PatientID: profile.ID,
		Urgency:   UrgencyUrgent,
		Summary:   "review headache trend",
	})

	reloaded, err := NewStore(NewFilePersister(path))
	require.NoError(t, err)

	require.NotNil(t, reloaded.GetProfile(profile.ID))
	assert.Equal(t, profile.ID, reloaded.GetActiveProfile().ID)
	assert.Len(t, reloaded.ListProfiles(), len(store.ListProfiles()))

	events := reloaded.GetEvents(profile.ID)
	require.Len(t, events, 2)

	// Variant types survive the round trip; nothing degrades to the envelope.
	var sawSymptom, sawWorkflow bool
	for _, ev := range events {
		switch typed := ev.(type) {
		case *SymptomEvent:
			sawSymptom = true
			require.Len(t, typed.Measurements, 1)
			assert.Equal(t, "Headache", typed.Measurements[0].Name)
		case *WorkflowResultEvent:
			sawWorkflow = true
			assert.Equal(t, RouteYellow, typed.Route)
		default:
			t.Fatalf("unexpected event type %T after reload", ev)
		}
	}
	assert.True(t, sawSymptom)
	assert.True(t, sawWorkflow)

	annotations := reloaded.GetAnnotations(profile.ID)
	require.Len(t, annotations, 1)
	assert.Equal(t, "Cycle 3", annotations[0].Title)

	views := reloaded.GetSavedViews(profile.ID)
	require.Len(t, views, 1)
	assert.True(t, views[0].Filters.AllSymptoms)

	sessions := reloaded.GetSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "wellness", sessions[0].AgentType)

	// Followup tasks are memory-only by contract.
	assert.Empty(t, reloaded.GetFollowupTasks(profile.ID, ""))
}
