package timeline

import (
	"testing"

	"github.com/samber/lo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFollowupTasksSortStatFirst(t *testing.T) {
	store := newTestStore(t)

	store.AddFollowupTask(&FollowupTask{PatientID: "p1", Urgency: UrgencyRoutine, Summary: "routine a"})
	store.AddFollowupTask(&FollowupTask{PatientID: "p1", Urgency: UrgencyStat, Summary: "stat"})
	store.AddFollowupTask(&FollowupTask{PatientID: "p1", Urgency: UrgencyUrgent, Summary: "urgent"})
	store.AddFollowupTask(&FollowupTask{PatientID: "p1", Urgency: UrgencyRoutine, Summary: "routine b"})

	tasks := store.GetFollowupTasks("p1", "")
	require.Len(t, tasks, 4)
	urgencies := lo.Map(tasks, func(task *FollowupTask, _ int) TaskUrgency { return task.Urgency })
	assert.Equal(t, []TaskUrgency{UrgencyStat, UrgencyUrgent, UrgencyRoutine, UrgencyRoutine}, urgencies)
	assert.Equal(t, "routine a", tasks[2].Summary, "creation order breaks ties")
}

func TestFollowupTaskDefaults(t *testing.T) {
	store := newTestStore(t)

	task := store.AddFollowupTask(&FollowupTask{PatientID: "p1", Summary: "check labs"})
	assert.NotEmpty(t, task.ID)
	assert.NotEmpty(t, task.CreatedAt)
	assert.Equal(t, TaskPending, task.Status)
	assert.Equal(t, UrgencyRoutine, task.Urgency)
}

func TestFollowupStatusFilterAndUpdate(t *testing.T) {
	store := newTestStore(t)

	task := store.AddFollowupTask(&FollowupTask{PatientID: "p1", Urgency: UrgencyUrgent, Summary: "call patient"})
	store.AddFollowupTask(&FollowupTask{PatientID: "p1", Urgency: UrgencyRoutine, Summary: "log review"})

	updated := store.UpdateFollowupStatus(task.ID, TaskInProgress)
	require.NotNil(t, updated)
	assert.Equal(t, TaskInProgress, updated.Status)

	pending := store.GetFollowupTasks("p1", TaskPending)
	require.Len(t, pending, 1)
	assert.Equal(t, "log review", pending[0].Summary)

	inProgress := store.GetFollowupTasks("p1", TaskInProgress)
	require.Len(t, inProgress, 1)
	assert.Equal(t, task.ID, inProgress[0].ID)

	assert.Nil(t, store.UpdateFollowupStatus("unknown", TaskCompleted))
}

func TestDeleteFollowupTask(t *testing.T) {
	store := newTestStore(t)

	task := store.AddFollowupTask(&FollowupTask{PatientID: "p1", Summary: "temp"})
	assert.True(t, store.DeleteFollowupTask(task.ID))
	assert.False(t, store.DeleteFollowupTask(task.ID))
	assert.Empty(t, store.GetFollowupTasks("p1", ""))
}

func TestAnnotationLifecycle(t *testing.T) {
	store := newTestStore(t)

	annotation := store.AddAnnotation(&Annotation{
		PatientID: "p1",
		Title:     "Radiation course",
		Start:     "2025-05-01T00:00:00Z",
		End:       "2025-05-20T00:00:00Z",
	})
	assert.NotEmpty(t, annotation.ID)
	assert.NotEmpty(t, annotation.CreatedAt)

	require.Len(t, store.GetAnnotations("p1"), 1)
	assert.Empty(t, store.GetAnnotations("p2"))

	assert.True(t, store.DeleteAnnotation(annotation.ID))
	assert.False(t, store.DeleteAnnotation(annotation.ID))
	assert.Empty(t, store.GetAnnotations("p1"))
}

func TestSavedViewLifecycle(t *testing.T) {
	store := newTestStore(t)

	view := store.AddSavedView(&SavedView{
		PatientID: "p1",
		Name:      "GI symptoms",
		Filters:   ViewFilters{Symptoms: []string{"Nausea", "Vomiting"}},
		ChartType: "scatter",
	})
	assert.NotEmpty(t, view.ID)

	views := store.GetSavedViews("p1")
	require.Len(t, views, 1)
	assert.Equal(t, []string{"Nausea", "Vomiting"}, views[0].Filters.Symptoms)

	assert.True(t, store.DeleteSavedView(view.ID))
	assert.False(t, store.DeleteSavedView(view.ID))
}

func TestSessions(t *testing.T) {
	store := newTestStore(t)

	session := store.CreateSession("patient_initiated_checkin", "hello", map[string]any{"chief_complaint": "headache"})
	assert.NotEmpty(t, session.ID)
	assert.NotEmpty(t, session.CreatedAt)

	sessions := store.GetSessions()
	require.Len(t, sessions, 1)
	assert.Equal(t, "patient_initiated_checkin", sessions[0].AgentType)
}
