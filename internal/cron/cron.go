// Package cron drives scheduled workflow execution: each registered
// workflow's cron expression fires a non-blocking trigger that hands the
// run off to a workflow executor callback.
package cron

import (
	"context"
	"log/slog"

	"github.com/robfig/cron/v3"

	"github.com/coreflow/coreflow/internal/coreerr"
	"github.com/coreflow/coreflow/internal/model"
)

// RunFunc executes one workflow run to completion. The cron runtime
// invokes it in its own goroutine per trigger so a slow run never
// delays other scheduled workflows.
type RunFunc func(ctx context.Context, wf *model.WorkflowConfig)

// Runtime wraps a robfig/cron scheduler, accepting both 5- and 6-field
// expressions (seconds optional).
type Runtime struct {
	logger *slog.Logger
	cron   *cron.Cron
	run    RunFunc
}

// New constructs a cron Runtime. run is invoked on every trigger.
func New(logger *slog.Logger, run RunFunc) *Runtime {
	if logger == nil {
		logger = slog.Default()
	}
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	c := cron.New(cron.WithParser(parser), cron.WithChain(cron.Recover(cron.DefaultLogger)))
	return &Runtime{logger: logger, cron: c, run: run}
}

// AddWorkflow registers a workflow's schedule, validating the cron
// expression up front so bad workflow files fail at load time rather
// than silently never firing.
func (r *Runtime) AddWorkflow(wf *model.WorkflowConfig) error {
	if wf.Schedule == "" {
		return coreerr.Validation("workflow %q has no schedule defined", wf.Name)
	}

	name := wf.Name
	wfCopy := *wf
	_, err := r.cron.AddFunc(wf.Schedule, func() {
		r.logger.Info("cron trigger firing", "workflow", name)
		r.run(context.Background(), &wfCopy)
	})
	if err != nil {
		return coreerr.Validation("invalid cron expression %q for workflow %q: %v", wf.Schedule, name, err)
	}
	return nil
}

// Start begins the background scheduler loop. It does not block.
func (r *Runtime) Start() { r.cron.Start() }

// Stop halts the scheduler and blocks until every in-flight trigger
// returns. Each trigger calls the RunFunc synchronously, so this waits
// for the workflow runs already in progress to finish.
func (r *Runtime) Stop() {
	<-r.cron.Stop().Done()
}

// ValidateExpression reports whether a cron expression is well-formed,
// without registering anything.
func ValidateExpression(expr string) error {
	parser := cron.NewParser(
		cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
	)
	if _, err := parser.Parse(expr); err != nil {
		return coreerr.Validation("invalid cron expression %q: %v", expr, err)
	}
	return nil
}
