package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow/coreflow/internal/model"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	path := t.TempDir() + "/test.db"
	s, err := Open(context.Background(), path)
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestGetOrCreateWorkflowUpsertsSchedule(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	wf, err := s.GetOrCreateWorkflow(ctx, "nightly", "0 2 * * *")
	require.NoError(t, err)
	assert.Equal(t, "0 2 * * *", wf.Schedule)

	wf2, err := s.GetOrCreateWorkflow(ctx, "nightly", "0 3 * * *")
	require.NoError(t, err)
	assert.Equal(t, wf.ID, wf2.ID)
	assert.Equal(t, "0 3 * * *", wf2.Schedule)
}

func TestExecutionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	wf, err := s.GetOrCreateWorkflow(ctx, "wf1", "")
	require.NoError(t, err)

	exec, err := s.StartExecution(ctx, wf.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusRunning, exec.Status)

	taskID, err := s.StartTask(ctx, exec.ID, "build", 1)
	require.NoError(t, err)

	err = s.UpdateTaskStatus(ctx, taskID, model.ExecutionResult{Status: model.StatusSuccess})
	require.NoError(t, err)

	err = s.UpdateExecutionStatus(ctx, exec.ID, model.StatusSuccess)
	require.NoError(t, err)

	got, err := s.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuccess, got.Status)
	require.NotNil(t, got.EndedAt)

	tasks, err := s.GetTaskExecutions(ctx, exec.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, "build", tasks[0].TaskName)
	assert.Equal(t, model.StatusSuccess, tasks[0].Status)
}

func TestSetTaskRetryMarksRetryingWithNextAttemptTime(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	wf, err := s.GetOrCreateWorkflow(ctx, "retrying-wf", "")
	require.NoError(t, err)
	exec, err := s.StartExecution(ctx, wf.ID)
	require.NoError(t, err)

	taskID, err := s.StartTask(ctx, exec.ID, "flaky", 1)
	require.NoError(t, err)

	nextRetryAt := time.Now().UTC().Add(time.Second)
	err = s.SetTaskRetry(ctx, taskID, 0, nextRetryAt)
	require.NoError(t, err)

	tasks, err := s.GetTaskExecutions(ctx, exec.ID)
	require.NoError(t, err)
	require.Len(t, tasks, 1)
	assert.Equal(t, model.StatusRetrying, tasks[0].Status)
	assert.Equal(t, 0, tasks[0].RetryCount)
	require.NotNil(t, tasks[0].NextRetryAt)
	assert.WithinDuration(t, nextRetryAt, *tasks[0].NextRetryAt, time.Second)
}

func TestRecoverFromCrashMarksOrphansFailed(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	wf, err := s.GetOrCreateWorkflow(ctx, "wf2", "")
	require.NoError(t, err)
	exec, err := s.StartExecution(ctx, wf.ID)
	require.NoError(t, err)

	n, err := s.RecoverFromCrash(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 1, n)

	got, err := s.GetExecution(ctx, exec.ID)
	require.NoError(t, err)
	assert.Equal(t, model.StatusFailed, got.Status)
}

func TestGetExecutionHistoryOrdersNewestFirst(t *testing.T) {
	ctx := context.Background()
	s := openTestStore(t)

	wf, err := s.GetOrCreateWorkflow(ctx, "wf3", "")
	require.NoError(t, err)

	var last model.Execution
	for i := 0; i < 3; i++ {
		last, err = s.StartExecution(ctx, wf.ID)
		require.NoError(t, err)
	}

	history, err := s.GetExecutionHistory(ctx, wf.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, last.ID, history[0].ID)
}
