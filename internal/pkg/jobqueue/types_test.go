package jobqueue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycleTransitions(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: DefaultMaxRetries}

	job.MarkAsProcessing()
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.NotNil(t, job.ProcessedAt)

	job.MarkAsFailed("smtp timeout")
	assert.Equal(t, JobStatusFailed, job.Status)
	assert.Equal(t, 1, job.RetryCount)
	assert.True(t, job.IsRetryable())

	job.MarkAsCompleted()
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.NotNil(t, job.CompletedAt)
}

func TestJobRetriesExhaust(t *testing.T) {
	job := &Job{Status: JobStatusPending, MaxRetries: 1}
	job.MarkAsFailed("boom")
	assert.True(t, job.IsRetryable())
	job.MarkAsFailed("boom")
	assert.False(t, job.IsRetryable())
}

func TestReviewNotificationPayloadRoundTrip(t *testing.T) {
	in := ReviewNotificationPayload{
		BusinessID:   9,
		BusinessName: "Corner Cafe",
		ContactEmail: "owner@corner.cafe",
		ReviewerName: "Pat",
		Rating:       2,
		Comment:      "cold coffee",
	}
	out, err := ReviewNotificationPayloadFromMap(in.ToMap())
	require.NoError(t, err)
	assert.Equal(t, in, *out)
}
