// Package scheduler executes a workflow's DAG level by level, bounding
// total in-flight tasks across the whole run, retrying failed tasks with
// exponential backoff, and propagating failures to dependents unless a
// task opts out via continue_on_failure.
package scheduler

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/sync/semaphore"

	"github.com/coreflow/coreflow/internal/backoff"
	"github.com/coreflow/coreflow/internal/digraph"
	"github.com/coreflow/coreflow/internal/digraph/executor"
	"github.com/coreflow/coreflow/internal/model"
	"github.com/coreflow/coreflow/internal/persistence"
)

const (
	retryBaseDelay = time.Second
	retryMaxDelay  = 60 * time.Second
	retryFactor    = 2.0
)

// Recorder persists execution/task-execution state. It is the subset of
// *persistence.Store the scheduler depends on, kept as an interface so
// tests can substitute an in-memory fake.
type Recorder interface {
	StartTask(ctx context.Context, executionID, taskName string, attempt int) (int64, error)
	UpdateTaskStatus(ctx context.Context, id int64, result model.ExecutionResult) error
	SetTaskRetry(ctx context.Context, id int64, retryCount int, nextRetryAt time.Time) error
}

// Scheduler runs a workflow's tasks against its DAG.
type Scheduler struct {
	logger    *slog.Logger
	recorder  Recorder
	executors map[model.TaskType]executor.Executor
}

// New constructs a Scheduler with the default executor set (shell, ssh, http).
func New(logger *slog.Logger, recorder Recorder) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		logger:   logger,
		recorder: recorder,
		executors: map[model.TaskType]executor.Executor{
			model.TaskTypeShell: executor.NewShell(),
			model.TaskTypeSSH:   executor.NewSSH(logger),
			model.TaskTypeHTTP:  executor.NewHTTP(),
		},
	}
}

// Run executes every task in the graph, honoring per-level concurrency
// bounds, retry/backoff, timeouts, and failure propagation. It returns
// true only if every task succeeded, and false if any task ended failed
// or timed out, including a task with continue_on_failure set.
//
// When maxConcurrency == 1 the walk is driven sequentially in
// topological order; otherwise it proceeds level by level, with up to
// maxConcurrency task attempts in flight across the whole run.
func (s *Scheduler) Run(ctx context.Context, executionID string, g *digraph.Graph, maxConcurrency int) (bool, error) {
	if maxConcurrency <= 0 {
		maxConcurrency = 4
	}
	if maxConcurrency == 1 {
		return s.runSequential(ctx, executionID, g), nil
	}
	return s.runParallel(ctx, executionID, g, maxConcurrency), nil
}

// runSequential drives the topological order one task at a time, stopping
// the walk as soon as a task fails without continue_on_failure.
func (s *Scheduler) runSequential(ctx context.Context, executionID string, g *digraph.Graph) bool {
	failed := make(map[string]bool)
	skipped := make(map[string]bool)

	for _, name := range g.TopologicalSort() {
		task, _ := g.Task(name)

		if s.shouldSkip(g, task, failed, skipped) {
			s.logger.Info("skipping task due to upstream failure", "task", name)
			skipped[name] = true
			continue
		}

		status := s.runWithRetry(ctx, executionID, task)
		if status != model.StatusSuccess {
			failed[name] = true
			if !task.ContinueOnFailure {
				break
			}
		}
	}

	return len(failed) == 0
}

// runParallel drives the graph level by level, running every eligible
// task in a level concurrently (bounded by a semaphore shared across the
// whole run) and waiting for the level to finish before advancing. If any
// task in a level fails without continue_on_failure, the workflow is
// marked failed and no further level is attempted.
func (s *Scheduler) runParallel(ctx context.Context, executionID string, g *digraph.Graph, maxConcurrency int) bool {
	sem := semaphore.NewWeighted(int64(maxConcurrency))

	failed := make(map[string]bool)
	skipped := make(map[string]bool)

	for _, level := range g.ParallelLevels() {
		type outcome struct {
			name              string
			status            model.Status
			continueOnFailure bool
		}
		results := make(chan outcome, len(level))

		for _, name := range level {
			task, _ := g.Task(name)

			if s.shouldSkip(g, task, failed, skipped) {
				s.logger.Info("skipping task due to upstream failure", "task", name)
				skipped[name] = true
				results <- outcome{name: name, status: model.StatusSkipped}
				continue
			}

			if err := sem.Acquire(ctx, 1); err != nil {
				results <- outcome{name: name, status: model.StatusFailed, continueOnFailure: task.ContinueOnFailure}
				continue
			}

			go func(task model.TaskConfig) {
				defer sem.Release(1)
				status := s.runWithRetry(ctx, executionID, task)
				results <- outcome{name: task.Name, status: status, continueOnFailure: task.ContinueOnFailure}
			}(task)
		}

		haltAfterLevel := false
		for range level {
			o := <-results
			switch o.status {
			case model.StatusSkipped:
				// already recorded above
			case model.StatusSuccess:
				// nothing to track beyond not being failed
			default:
				failed[o.name] = true
				if !o.continueOnFailure {
					haltAfterLevel = true
				}
			}
		}

		if haltAfterLevel {
			break
		}
	}

	return len(failed) == 0
}

// shouldSkip reports whether a task must be skipped because an upstream
// dependency failed and did not opt into continue_on_failure. Skipped
// tasks are never recorded as task executions.
func (s *Scheduler) shouldSkip(g *digraph.Graph, task model.TaskConfig, failed, skipped map[string]bool) bool {
	for _, dep := range g.Dependencies(task.Name) {
		if skipped[dep] {
			return true
		}
		if failed[dep] {
			depTask, _ := g.Task(dep)
			if !depTask.ContinueOnFailure {
				return true
			}
		}
	}
	return false
}

// runWithRetry executes a task, retrying up to task.Retry additional
// times with exponential backoff (base 1s, factor 2, cap 60s) on
// failure. Each attempt is wrapped in the task's configured timeout.
// Before each backoff sleep, the failed attempt's record is marked
// `retrying` with its next-retry timestamp, per §4.3.
func (s *Scheduler) runWithRetry(ctx context.Context, executionID string, task model.TaskConfig) model.Status {
	policy := backoff.NewExponentialBackoffPolicy(retryBaseDelay)
	policy.BackoffFactor = retryFactor
	policy.MaxInterval = retryMaxDelay

	maxAttempts := task.Retry + 1
	var lastResult model.ExecutionResult

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		recordID, err := s.recorder.StartTask(ctx, executionID, task.Name, attempt)
		if err != nil {
			s.logger.Error("failed to record task start", "task", task.Name, "error", err)
		}

		result := s.runOnce(ctx, task)
		lastResult = result

		if result.Status == model.StatusSuccess {
			if err := s.recorder.UpdateTaskStatus(ctx, recordID, result); err != nil {
				s.logger.Error("failed to record task outcome", "task", task.Name, "error", err)
			}
			return model.StatusSuccess
		}

		if attempt == maxAttempts {
			if err := s.recorder.UpdateTaskStatus(ctx, recordID, result); err != nil {
				s.logger.Error("failed to record task outcome", "task", task.Name, "error", err)
			}
			break
		}

		retryCount := attempt - 1
		delay, _ := policy.ComputeNextInterval(retryCount, 0, nil)
		nextRetryAt := time.Now().UTC().Add(delay)
		if err := s.recorder.SetTaskRetry(ctx, recordID, retryCount, nextRetryAt); err != nil {
			s.logger.Error("failed to record task retry state", "task", task.Name, "error", err)
		}
		s.logger.Warn("task failed, retrying", "task", task.Name, "attempt", attempt, "max_attempts", maxAttempts, "delay", delay)

		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return model.StatusFailed
		}
	}

	s.logger.Error("task exhausted retries", "task", task.Name, "status", lastResult.Status)
	if lastResult.Status == model.StatusTimeout {
		return model.StatusTimeout
	}
	return model.StatusFailed
}

func (s *Scheduler) runOnce(ctx context.Context, task model.TaskConfig) model.ExecutionResult {
	exec, ok := s.executors[task.Type]
	if !ok {
		return model.ExecutionResult{Status: model.StatusFailed, Stderr: "no executor registered for task type"}
	}

	timeout := time.Duration(task.Timeout) * time.Second
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := exec.Execute(attemptCtx, task)
	if err != nil {
		return model.ExecutionResult{Status: model.StatusFailed, Stderr: err.Error()}
	}
	return result
}
