// Package executor runs individual tasks: shell commands, SSH commands,
// and HTTP requests. The scheduler wraps every call in the task's
// configured deadline. The only timeouts executors apply themselves are
// the HTTP executor's per-request timeout and the SSH connect timeout.
package executor

import (
	"context"

	"github.com/coreflow/coreflow/internal/model"
)

// Executor runs one task attempt to completion (or until ctx is
// cancelled) and returns its outcome. An error return means the executor
// itself malfunctioned (bad config, internal fault); a task that ran and
// failed is reported via ExecutionResult.Status, not an error.
type Executor interface {
	Execute(ctx context.Context, task model.TaskConfig) (model.ExecutionResult, error)
}

func truncate(s string, max int) (string, bool) {
	b := []byte(s)
	if len(b) <= max {
		return s, false
	}
	return string(b[:max]), true
}
