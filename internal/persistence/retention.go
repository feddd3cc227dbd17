package persistence

import (
	"context"
	"time"

	"github.com/coreflow/coreflow/internal/coreerr"
)

// RetentionPolicy bounds how many executions (or how many days of
// history) are kept for a workflow. A zero field means "no limit" on
// that dimension.
type RetentionPolicy struct {
	WorkflowName  string
	MaxExecutions int
	MaxAgeDays    int
}

// SetRetentionPolicy upserts the retention policy for a workflow.
func (s *Store) SetRetentionPolicy(ctx context.Context, p RetentionPolicy) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO retention_policy (workflow_name, max_executions, max_age_days) VALUES (?, ?, ?)
		 ON CONFLICT(workflow_name) DO UPDATE SET max_executions = excluded.max_executions, max_age_days = excluded.max_age_days`,
		p.WorkflowName, p.MaxExecutions, p.MaxAgeDays)
	if err != nil {
		return coreerr.Persistence(err, "failed to set retention policy for %q", p.WorkflowName)
	}
	return nil
}

// PruneExecutions deletes executions (and their task executions) that
// fall outside a workflow's retention policy. It is called once when the
// daemon starts, not from the hot execution path.
func (s *Store) PruneExecutions(ctx context.Context, workflowID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT rp.max_executions, rp.max_age_days FROM retention_policy rp
		 JOIN workflows w ON w.name = rp.workflow_name WHERE w.id = ?`, workflowID)
	var maxExecutions, maxAgeDays int
	if err := row.Scan(&maxExecutions, &maxAgeDays); err != nil {
		return 0, nil // no retention policy configured for this workflow
	}

	var total int64
	if maxAgeDays > 0 {
		cutoff := time.Now().UTC().AddDate(0, 0, -maxAgeDays)
		n, err := s.deleteExecutionsWhere(ctx, `workflow_id = ? AND started_at < ?`, workflowID, cutoff)
		if err != nil {
			return total, err
		}
		total += n
	}
	if maxExecutions > 0 {
		n, err := s.deleteExecutionsBeyondLimit(ctx, workflowID, maxExecutions)
		if err != nil {
			return total, err
		}
		total += n
	}
	return total, nil
}

func (s *Store) deleteExecutionsWhere(ctx context.Context, where string, args ...any) (int64, error) {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM task_executions WHERE execution_id IN (SELECT id FROM executions WHERE `+where+`)`, args...); err != nil {
		return 0, coreerr.Persistence(err, "failed to prune task executions")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM executions WHERE `+where, args...)
	if err != nil {
		return 0, coreerr.Persistence(err, "failed to prune executions")
	}
	return res.RowsAffected()
}

func (s *Store) deleteExecutionsBeyondLimit(ctx context.Context, workflowID int64, limit int) (int64, error) {
	const q = `id IN (
		SELECT id FROM executions WHERE workflow_id = ?
		ORDER BY started_at DESC LIMIT -1 OFFSET ?
	)`
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM task_executions WHERE execution_id IN (SELECT id FROM executions WHERE `+q+`)`, workflowID, limit); err != nil {
		return 0, coreerr.Persistence(err, "failed to prune task executions beyond limit")
	}
	res, err := s.db.ExecContext(ctx, `DELETE FROM executions WHERE `+q, workflowID, limit)
	if err != nil {
		return 0, coreerr.Persistence(err, "failed to prune executions beyond limit")
	}
	return res.RowsAffected()
}
