package taskqueue

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestTaskDue(t *testing.T) {
	now := time.Now()

	task := &Task{Status: TaskPending, NextRunAt: now}
	assert.True(t, task.Due(now))
	assert.True(t, task.Due(now.Add(time.Second)))
	assert.False(t, task.Due(now.Add(-time.Second)), "scheduled in the future")

	task.Status = TaskRunning
	assert.False(t, task.Due(now), "only pending tasks are due")

	task.Status = TaskCompleted
	assert.False(t, task.Due(now))
}

func TestWorkerBackoffForPrefersTaskBackoff(t *testing.T) {
	w := NewWorker(nil, zap.NewNop(), 1, time.Minute)

	task := &Task{Backoff: 30 * time.Second}
	assert.Equal(t, 30*time.Second, w.backoffFor(task))

	// Tasks enqueued without a delay fall back to the worker default.
	assert.Equal(t, time.Minute, w.backoffFor(&Task{}))
}

func TestTaskBackoffSurvivesSerialization(t *testing.T) {
	task := &Task{ID: "t1", Status: TaskPending, Backoff: 45 * time.Second}

	data, err := json.Marshal(task)
	assert.NoError(t, err)

	var decoded Task
	assert.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 45*time.Second, decoded.Backoff)
}
