// Package engine wires the DAG builder, the scheduler, and persistence
// together into a single "run one workflow" operation, the unit both the
// CLI's `run` command and the cron runtime dispatch.
package engine

import (
	"context"
	"log/slog"
	"time"

	"github.com/coreflow/coreflow/internal/digraph"
	"github.com/coreflow/coreflow/internal/model"
	"github.com/coreflow/coreflow/internal/persistence"
	"github.com/coreflow/coreflow/internal/scheduler"
)

// Engine executes workflow definitions against a persistence store.
type Engine struct {
	logger *slog.Logger
	store  *persistence.Store
	sched  *scheduler.Scheduler
}

func New(logger *slog.Logger, store *persistence.Store) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{logger: logger, store: store, sched: scheduler.New(logger, store)}
}

// Execute registers the workflow (upserting its schedule), starts a new
// execution record, builds its DAG, runs the scheduler over it, and
// records the terminal execution status. It returns the execution ID and
// whether the run succeeded.
func (e *Engine) Execute(ctx context.Context, wf *model.WorkflowConfig) (string, bool, error) {
	workflow, err := e.store.GetOrCreateWorkflow(ctx, wf.Name, wf.Schedule)
	if err != nil {
		return "", false, err
	}

	exec, err := e.store.StartExecution(ctx, workflow.ID)
	if err != nil {
		return "", false, err
	}

	g, err := digraph.Build(wf.Tasks)
	if err != nil {
		_ = e.store.UpdateExecutionStatus(ctx, exec.ID, model.StatusFailed)
		return exec.ID, false, err
	}

	start := time.Now()
	ok, err := e.sched.Run(ctx, exec.ID, g, wf.Config.MaxParallel)
	e.logger.Info("workflow execution finished", "workflow", wf.Name, "execution_id", exec.ID,
		"success", ok, "duration", time.Since(start))
	if err != nil {
		_ = e.store.UpdateExecutionStatus(ctx, exec.ID, model.StatusFailed)
		return exec.ID, false, err
	}

	status := model.StatusSuccess
	if !ok {
		status = model.StatusFailed
	}
	if err := e.store.UpdateExecutionStatus(ctx, exec.ID, status); err != nil {
		return exec.ID, ok, err
	}
	return exec.ID, ok, nil
}
