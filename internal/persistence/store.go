// Package persistence is the embedded SQLite state store: workflow
// registration, execution/task-execution bookkeeping, and crash recovery.
package persistence

import (
	"context"
	"database/sql"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/google/uuid"

	"github.com/coreflow/coreflow/internal/coreerr"
	"github.com/coreflow/coreflow/internal/model"
)

// Store is the single-writer, SQLite-backed persistence layer. All writes
// go through mu to serialize access, matching the store's single-writer
// contract on an embedded database with no separate connection pool for
// writes.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open creates (if needed) and opens the SQLite database at path,
// configuring the PRAGMAs the orchestrator relies on for durability and
// throughput on an edge device: WAL journaling, NORMAL sync, a bounded
// page cache, in-memory temp storage, mmap disabled, and foreign keys on.
func Open(ctx context.Context, path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, coreerr.Persistence(err, "failed to open database at %q", path)
	}
	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA cache_size=-2000",
		"PRAGMA temp_store=MEMORY",
		"PRAGMA mmap_size=0",
		"PRAGMA foreign_keys=ON",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			db.Close()
			return nil, coreerr.Persistence(err, "failed to apply pragma %q", p)
		}
	}

	if err := migrate(db); err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error { return s.db.Close() }

// GetOrCreateWorkflow upserts a workflow registration by name, recording
// its schedule (empty for ad-hoc, non-cron runs).
func (s *Store) GetOrCreateWorkflow(ctx context.Context, name, schedule string) (model.Workflow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	row := s.db.QueryRowContext(ctx, `SELECT id, name, schedule, created_at, updated_at FROM workflows WHERE name = ?`, name)
	var wf model.Workflow
	var sched sql.NullString
	err := row.Scan(&wf.ID, &wf.Name, &sched, &wf.CreatedAt, &wf.UpdatedAt)
	switch {
	case err == sql.ErrNoRows:
		res, err := s.db.ExecContext(ctx,
			`INSERT INTO workflows (name, schedule, created_at, updated_at) VALUES (?, ?, ?, ?)`,
			name, schedule, now, now)
		if err != nil {
			return model.Workflow{}, coreerr.Persistence(err, "failed to create workflow %q", name)
		}
		id, _ := res.LastInsertId()
		return model.Workflow{ID: id, Name: name, Schedule: schedule, CreatedAt: now, UpdatedAt: now}, nil
	case err != nil:
		return model.Workflow{}, coreerr.Persistence(err, "failed to look up workflow %q", name)
	}

	wf.Schedule = sched.String
	if wf.Schedule != schedule {
		if _, err := s.db.ExecContext(ctx, `UPDATE workflows SET schedule = ?, updated_at = ? WHERE id = ?`, schedule, now, wf.ID); err != nil {
			return model.Workflow{}, coreerr.Persistence(err, "failed to update schedule for workflow %q", name)
		}
		wf.Schedule = schedule
		wf.UpdatedAt = now
	}
	return wf, nil
}

// StartExecution records a new running execution for a workflow.
func (s *Store) StartExecution(ctx context.Context, workflowID int64) (model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	exec := model.Execution{
		ID:         uuid.NewString(),
		WorkflowID: workflowID,
		Status:     model.StatusRunning,
		StartedAt:  time.Now().UTC(),
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO executions (id, workflow_id, status, started_at) VALUES (?, ?, ?, ?)`,
		exec.ID, exec.WorkflowID, exec.Status, exec.StartedAt)
	if err != nil {
		return model.Execution{}, coreerr.Persistence(err, "failed to start execution for workflow %d", workflowID)
	}
	return exec, nil
}

// UpdateExecutionStatus sets the terminal status and end time of an execution.
func (s *Store) UpdateExecutionStatus(ctx context.Context, executionID string, status model.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx, `UPDATE executions SET status = ?, ended_at = ? WHERE id = ?`, status, now, executionID)
	if err != nil {
		return coreerr.Persistence(err, "failed to update execution %q", executionID)
	}
	return nil
}

// StartTask records a new task attempt.
func (s *Store) StartTask(ctx context.Context, executionID, taskName string, attempt int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO task_executions (execution_id, task_name, status, attempt, started_at) VALUES (?, ?, ?, ?, ?)`,
		executionID, taskName, model.StatusRunning, attempt, time.Now().UTC())
	if err != nil {
		return 0, coreerr.Persistence(err, "failed to start task %q for execution %q", taskName, executionID)
	}
	return res.LastInsertId()
}

// UpdateTaskStatus records the terminal outcome of a task attempt.
func (s *Store) UpdateTaskStatus(ctx context.Context, id int64, result model.ExecutionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	_, err := s.db.ExecContext(ctx,
		`UPDATE task_executions SET status = ?, exit_code = ?, stdout = ?, stderr = ?, truncated = ?, ended_at = ? WHERE id = ?`,
		result.Status, result.ExitCode, result.Stdout, result.Stderr, boolToInt(result.OutputTruncated), now, id)
	if err != nil {
		return coreerr.Persistence(err, "failed to update task execution %d", id)
	}
	return nil
}

// SetTaskRetry marks a task attempt as retrying and records the retry
// count and the timestamp of the next attempt, ahead of the scheduler's
// backoff sleep.
func (s *Store) SetTaskRetry(ctx context.Context, id int64, retryCount int, nextRetryAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`UPDATE task_executions SET status = ?, retry_count = ?, next_retry_at = ? WHERE id = ?`,
		model.StatusRetrying, retryCount, nextRetryAt, id)
	if err != nil {
		return coreerr.Persistence(err, "failed to set retry state for task execution %d", id)
	}
	return nil
}

// GetExecution fetches one execution row by ID.
func (s *Store) GetExecution(ctx context.Context, executionID string) (model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx, `SELECT id, workflow_id, status, started_at, ended_at FROM executions WHERE id = ?`, executionID)
	var exec model.Execution
	var ended sql.NullTime
	if err := row.Scan(&exec.ID, &exec.WorkflowID, &exec.Status, &exec.StartedAt, &ended); err != nil {
		if err == sql.ErrNoRows {
			return model.Execution{}, coreerr.NotFound("execution %q not found", executionID)
		}
		return model.Execution{}, coreerr.Persistence(err, "failed to fetch execution %q", executionID)
	}
	if ended.Valid {
		exec.EndedAt = &ended.Time
	}
	return exec, nil
}

// GetTaskExecutions returns every task attempt recorded for an execution,
// ordered by insertion (i.e. attempt order).
func (s *Store) GetTaskExecutions(ctx context.Context, executionID string) ([]model.TaskExecution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, execution_id, task_name, status, attempt, exit_code, stdout, stderr, truncated, started_at, ended_at, retry_count, next_retry_at
		 FROM task_executions WHERE execution_id = ? ORDER BY id ASC`, executionID)
	if err != nil {
		return nil, coreerr.Persistence(err, "failed to list task executions for %q", executionID)
	}
	defer rows.Close()

	var out []model.TaskExecution
	for rows.Next() {
		var te model.TaskExecution
		var exitCode sql.NullInt64
		var stdout, stderr sql.NullString
		var truncated int
		var ended, nextRetryAt sql.NullTime
		if err := rows.Scan(&te.ID, &te.ExecutionID, &te.TaskName, &te.Status, &te.Attempt,
			&exitCode, &stdout, &stderr, &truncated, &te.StartedAt, &ended, &te.RetryCount, &nextRetryAt); err != nil {
			return nil, coreerr.Persistence(err, "failed to scan task execution row")
		}
		if exitCode.Valid {
			code := int(exitCode.Int64)
			te.ExitCode = &code
		}
		te.Stdout = stdout.String
		te.Stderr = stderr.String
		te.Truncated = truncated != 0
		if ended.Valid {
			te.EndedAt = &ended.Time
		}
		if nextRetryAt.Valid {
			te.NextRetryAt = &nextRetryAt.Time
		}
		out = append(out, te)
	}
	return out, rows.Err()
}

// GetExecutionHistory lists the most recent executions for a workflow,
// newest first, bounded by limit.
func (s *Store) GetExecutionHistory(ctx context.Context, workflowID int64, limit int) ([]model.Execution, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = -1 // SQLite treats a negative LIMIT as "no limit"
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, workflow_id, status, started_at, ended_at FROM executions
		 WHERE workflow_id = ? ORDER BY started_at DESC LIMIT ?`, workflowID, limit)
	if err != nil {
		return nil, coreerr.Persistence(err, "failed to fetch execution history for workflow %d", workflowID)
	}
	defer rows.Close()

	var out []model.Execution
	for rows.Next() {
		var exec model.Execution
		var ended sql.NullTime
		if err := rows.Scan(&exec.ID, &exec.WorkflowID, &exec.Status, &exec.StartedAt, &ended); err != nil {
			return nil, coreerr.Persistence(err, "failed to scan execution row")
		}
		if ended.Valid {
			exec.EndedAt = &ended.Time
		}
		out = append(out, exec)
	}
	return out, rows.Err()
}

// RecoverFromCrash marks every execution left in `running` state (from a
// prior process that never reached a terminal status) as failed. It is
// called once at start-up, before any new execution begins.
func (s *Store) RecoverFromCrash(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	res, err := s.db.ExecContext(ctx,
		`UPDATE executions SET status = ?, ended_at = ? WHERE status = ?`,
		model.StatusFailed, now, model.StatusRunning)
	if err != nil {
		return 0, coreerr.Persistence(err, "failed to recover orphaned executions")
	}

	if _, err := s.db.ExecContext(ctx,
		`UPDATE task_executions SET status = ?, ended_at = ? WHERE status IN (?, ?)`,
		model.StatusFailed, now, model.StatusRunning, model.StatusRetrying); err != nil {
		return 0, coreerr.Persistence(err, "failed to recover orphaned task executions")
	}

	return res.RowsAffected()
}

// ListWorkflowSummaries returns every registered workflow along with its
// most recent execution status and total run count, for `workflow list`.
func (s *Store) ListWorkflowSummaries(ctx context.Context) ([]model.WorkflowSummary, error) {
	s.mu.Lock()
	rows, err := s.db.QueryContext(ctx, `SELECT id, name, schedule, created_at, updated_at FROM workflows ORDER BY name ASC`)
	s.mu.Unlock()
	if err != nil {
		return nil, coreerr.Persistence(err, "failed to list workflows")
	}
	defer rows.Close()

	var workflows []model.Workflow
	for rows.Next() {
		var wf model.Workflow
		var sched sql.NullString
		if err := rows.Scan(&wf.ID, &wf.Name, &sched, &wf.CreatedAt, &wf.UpdatedAt); err != nil {
			return nil, coreerr.Persistence(err, "failed to scan workflow row")
		}
		wf.Schedule = sched.String
		workflows = append(workflows, wf)
	}
	if err := rows.Err(); err != nil {
		return nil, coreerr.Persistence(err, "failed to list workflows")
	}

	out := make([]model.WorkflowSummary, 0, len(workflows))
	for _, wf := range workflows {
		history, err := s.GetExecutionHistory(ctx, wf.ID, 1)
		if err != nil {
			return nil, err
		}
		sum := model.WorkflowSummary{Workflow: wf}
		if len(history) > 0 {
			sum.LastStatus = history[0].Status
			sum.LastRunAt = &history[0].StartedAt
		}
		all, err := s.GetExecutionHistory(ctx, wf.ID, 0)
		if err != nil {
			return nil, err
		}
		sum.TotalRuns = len(all)
		out = append(out, sum)
	}
	return out, nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
