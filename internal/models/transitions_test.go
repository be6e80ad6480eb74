package models_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trobanga/spittal/internal/models"
)

func TestSetStaged_HasNoIdentifiers(t *testing.T) {
	record := models.SetStaged("/d/f.csv", "20250101_120000_f.csv", "20250101_120000_", 2, 10, 11)

	assert.True(t, record.IsStaged())
	assert.False(t, record.IsCreated())
	assert.False(t, record.IsQueued())
	assert.Equal(t, "20250101_120000_", record.TimestampPrefix)
}

func TestSetCreated_IsPure(t *testing.T) {
	original := models.SetStaged("f", "f", "", 1, 10, 11)

	created := models.SetCreated(original, 42, `{"taskId":42}`)

	assert.False(t, original.IsCreated(), "original must not change")
	require.True(t, created.IsCreated())
	assert.Equal(t, int64(42), *created.CreationTaskID)
	assert.Equal(t, `{"taskId":42}`, created.LastPayload)
	assert.Equal(t, int64(10), *created.UploadHandle)
}

func TestSetQueued_RequiresCreation(t *testing.T) {
	_, err := models.SetQueued(models.ResourceRecord{}, 1, "")
	assert.Error(t, err)
}

func TestSetQueued_OnlyOnce(t *testing.T) {
	record := models.SetCreated(models.ResourceRecord{}, 5, "")

	queued, err := models.SetQueued(record, 6, "")
	require.NoError(t, err)
	assert.Equal(t, models.JobStateQueued, queued.JobState)

	_, err = models.SetQueued(queued, 7, "")
	assert.Error(t, err)
}

func TestTransitionJob_FollowsLifecycle(t *testing.T) {
	record, err := models.SetQueued(models.SetCreated(models.ResourceRecord{}, 5, ""), 6, "queued")
	require.NoError(t, err)

	record, err = models.TransitionJob(record, models.JobStatePolling, "")
	require.NoError(t, err)
	assert.Equal(t, "queued", record.LastPayload, "an empty payload keeps the previous one")

	record, err = models.TransitionJob(record, models.JobStateDone, `{"status":"done"}`)
	require.NoError(t, err)
	assert.Equal(t, models.JobStateDone, record.JobState)
	assert.Equal(t, `{"status":"done"}`, record.LastPayload)

	_, err = models.TransitionJob(record, models.JobStatePolling, "")
	assert.Error(t, err, "terminal states have no successor")
}

func TestTransitionJob_RejectsSkippingPolling(t *testing.T) {
	record, err := models.SetQueued(models.SetCreated(models.ResourceRecord{}, 5, ""), 6, "")
	require.NoError(t, err)

	_, err = models.TransitionJob(record, models.JobStateDone, "")
	assert.Error(t, err)
}

func TestAdopt(t *testing.T) {
	record := models.Adopt(2)

	assert.True(t, record.IsCreated())
	assert.False(t, record.IsStaged())
	assert.False(t, record.IsQueued())
	assert.NoError(t, record.Validate())
}

func TestJobState_CanTransitionTo(t *testing.T) {
	tests := []struct {
		from, to models.JobState
		want     bool
	}{
		{models.JobStateNone, models.JobStateQueued, true},
		{models.JobStateNone, models.JobStatePolling, false},
		{models.JobStateQueued, models.JobStatePolling, true},
		{models.JobStateQueued, models.JobStateDone, false},
		{models.JobStatePolling, models.JobStateDone, true},
		{models.JobStatePolling, models.JobStateFailed, true},
		{models.JobStatePolling, models.JobStateTimedOut, true},
		{models.JobStateDone, models.JobStateQueued, false},
		{models.JobStateFailed, models.JobStatePolling, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.want, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestOutcome_State(t *testing.T) {
	assert.Equal(t, models.JobStateDone, models.OutcomeDone.State())
	assert.Equal(t, models.JobStateFailed, models.OutcomeFailed.State())
	assert.Equal(t, models.JobStateTimedOut, models.OutcomeTimedOut.State())
	assert.Equal(t, models.JobStateNone, models.Outcome("other").State())
}
