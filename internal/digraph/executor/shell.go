package executor

import (
	"bytes"
	"context"
	"os/exec"
	"syscall"
	"time"

	"github.com/coreflow/coreflow/internal/coreerr"
	"github.com/coreflow/coreflow/internal/model"
)

// Shell runs a task as a local subprocess. No shell interpolation: the
// command is exec'd directly with an argv, never passed through /bin/sh.
type Shell struct{}

func NewShell() *Shell { return &Shell{} }

func (s *Shell) Execute(ctx context.Context, task model.TaskConfig) (model.ExecutionResult, error) {
	if task.Shell == nil {
		return model.ExecutionResult{}, coreerr.Validation("task %q has no shell config", task.Name)
	}
	cfg := task.Shell

	cmd := exec.CommandContext(ctx, cfg.Command, cfg.Args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	cmd.Cancel = func() error {
		return syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
	}
	if cfg.Workdir != "" {
		cmd.Dir = cfg.Workdir
	}
	if len(cfg.Env) > 0 {
		env := cmd.Environ()
		for k, v := range cfg.Env {
			env = append(env, k+"="+v)
		}
		cmd.Env = env
	}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	duration := time.Since(start)

	out, outTrunc := truncate(stdout.String(), model.MaxOutputSize)
	errOut, errTrunc := truncate(stderr.String(), model.MaxOutputSize)
	truncated := outTrunc || errTrunc

	if ctx.Err() == context.DeadlineExceeded {
		return model.ExecutionResult{
			Status:          model.StatusTimeout,
			Stdout:          out,
			Stderr:          "task timed out",
			Duration:        duration,
			OutputTruncated: truncated,
		}, nil
	}

	var exitCode *int
	status := model.StatusSuccess
	if runErr != nil {
		status = model.StatusFailed
		if exitErr, ok := runErr.(*exec.ExitError); ok {
			code := exitErr.ExitCode()
			exitCode = &code
		} else {
			return model.ExecutionResult{}, coreerr.ExecutorFailure(runErr, "failed to run shell command for task %q", task.Name)
		}
	} else {
		code := 0
		exitCode = &code
	}

	return model.ExecutionResult{
		Status:          status,
		Stdout:          out,
		Stderr:          errOut,
		ExitCode:        exitCode,
		Duration:        duration,
		OutputTruncated: truncated,
	}, nil
}
