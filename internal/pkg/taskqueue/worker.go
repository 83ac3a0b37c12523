package taskqueue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Executor runs one task attempt. A returned error marks the attempt failed;
// the worker decides between a delayed retry and terminal failure based on the
// task's attempt budget.
type Executor func(ctx context.Context, payload json.RawMessage) error

const (
	pollInterval = time.Second
	claimTTL     = 10 * time.Minute
	claimPrefix  = "review:task:claim:"
)

// Worker consumes due pending tasks from the queue. Multiple worker processes
// may run concurrently; a Redis claim key keeps two workers off the same task.
type Worker struct {
	svc         *Service
	log         *zap.Logger
	executors   map[string]Executor
	concurrency int
	backoff     time.Duration
}

func NewWorker(svc *Service, log *zap.Logger, concurrency int, backoff time.Duration) *Worker {
	if concurrency < 1 {
		concurrency = 1
	}
	return &Worker{
		svc:         svc,
		log:         log,
		executors:   make(map[string]Executor),
		concurrency: concurrency,
		backoff:     backoff,
	}
}

// Register binds an executor to a task type. Call before Run.
func (w *Worker) Register(taskType string, exec Executor) {
	w.executors[taskType] = exec
}

// Run polls for due tasks until ctx is cancelled.
func (w *Worker) Run(ctx context.Context) {
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	sem := make(chan struct{}, w.concurrency)

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		tasks, err := w.svc.Pending(ctx, w.concurrency*2)
		if err != nil {
			w.log.Warn("task poll failed", zap.Error(err))
			continue
		}

		for _, task := range tasks {
			if _, ok := w.executors[task.Type]; !ok {
				continue
			}
			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}
			go func(id string) {
				defer func() { <-sem }()
				w.runOne(ctx, id)
			}(task.ID)
		}
	}
}

func (w *Worker) runOne(ctx context.Context, id string) {
	claimed, err := w.svc.rc.Raw().SetNX(ctx, claimPrefix+id, 1, claimTTL).Result()
	if err != nil || !claimed {
		return
	}
	defer w.svc.rc.Raw().Del(ctx, claimPrefix+id)

	task, err := w.svc.MarkRunning(ctx, id)
	if err != nil {
		// Another worker got there first, or the task was cancelled meanwhile.
		return
	}

	exec := w.executors[task.Type]
	runErr := w.execute(ctx, exec, task.Payload)
	if runErr == nil {
		if err := w.svc.UpdateStatus(ctx, id, TaskCompleted, nil, ""); err != nil {
			w.log.Warn("task complete update failed", zap.String("task", id), zap.Error(err))
		}
		return
	}

	if task.Attempt >= task.MaxAttempts {
		w.log.Warn("task failed permanently",
			zap.String("task", id),
			zap.String("type", task.Type),
			zap.Int("attempts", task.Attempt),
			zap.Error(runErr))
		if err := w.svc.UpdateStatus(ctx, id, TaskFailed, nil, runErr.Error()); err != nil {
			w.log.Warn("task fail update failed", zap.String("task", id), zap.Error(err))
		}
		return
	}

	delay := w.backoffFor(task)
	w.log.Info("task attempt failed, rescheduling",
		zap.String("task", id),
		zap.String("type", task.Type),
		zap.Int("attempt", task.Attempt),
		zap.Duration("backoff", delay),
		zap.Error(runErr))
	if _, err := w.svc.Reschedule(ctx, id, delay, runErr.Error()); err != nil {
		w.log.Warn("task reschedule failed", zap.String("task", id), zap.Error(err))
	}
}

// backoffFor prefers the delay stored on the task at enqueue time; the
// worker-wide default covers tasks enqueued without one.
func (w *Worker) backoffFor(task *Task) time.Duration {
	if task.Backoff > 0 {
		return task.Backoff
	}
	return w.backoff
}

// execute shields the worker loop from executor panics; a panic counts as a
// failed attempt.
func (w *Worker) execute(ctx context.Context, exec Executor, payload json.RawMessage) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic: %v", r)
		}
	}()
	return exec(ctx, payload)
}
