// Package daemon manages the coreflow daemon's process lifecycle: a
// liveness-checked PID file lock, and graceful shutdown on SIGTERM/SIGINT.
package daemon

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"golang.org/x/sys/unix"

	"github.com/coreflow/coreflow/internal/coreerr"
)

const stopPollInterval = 200 * time.Millisecond

// PidFileGuard owns a PID file for the lifetime of the process: it is
// removed on every exit path, including a panic, via defer.
type PidFileGuard struct {
	path string
}

// Acquire checks that no other live process holds the PID file, then
// writes the current PID into it. A stale PID file (process no longer
// alive) is treated as unheld and silently replaced.
func Acquire(path string) (*PidFileGuard, error) {
	if pid, ok := readPidFile(path); ok {
		if processAlive(pid) {
			return nil, coreerr.Daemon(nil, "daemon already running with pid %d (pid file %s)", pid, path)
		}
	}

	if err := os.WriteFile(path, []byte(strconv.Itoa(os.Getpid())), 0o644); err != nil {
		return nil, coreerr.Daemon(err, "failed to write pid file %s", path)
	}
	return &PidFileGuard{path: path}, nil
}

// Release removes the PID file. Safe to call multiple times.
func (g *PidFileGuard) Release() {
	if g == nil {
		return
	}
	_ = os.Remove(g.path)
}

func readPidFile(path string) (int, bool) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, false
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return 0, false
	}
	return pid, true
}

// processAlive reports whether pid names a live process, using a
// signal-0 kill, which delivers no signal but still performs the
// existence/permission check.
func processAlive(pid int) bool {
	if pid <= 0 {
		return false
	}
	return unix.Kill(pid, 0) == nil
}

// Status reports whether the daemon named by a PID file is currently running.
func Status(path string) (running bool, pid int) {
	p, ok := readPidFile(path)
	if !ok {
		return false, 0
	}
	return processAlive(p), p
}

// Stop sends SIGTERM to the daemon identified by a PID file and polls
// for the PID file's removal (the daemon's own shutdown signal handler
// removes it) up to a 30s timeout. It always returns nil, even on an
// unclean shutdown, matching the CLI's "stop never fails" contract —
// callers that need to know whether the daemon actually stopped should
// check Status afterward.
func Stop(ctx context.Context, path string) error {
	pid, ok := readPidFile(path)
	if !ok {
		return nil
	}
	if !processAlive(pid) {
		_ = os.Remove(path)
		return nil
	}

	if err := unix.Kill(pid, unix.SIGTERM); err != nil {
		return nil //nolint:nilerr
	}

	deadline := time.Now().Add(30 * time.Second)
	ticker := time.NewTicker(stopPollInterval)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		if _, err := os.Stat(path); os.IsNotExist(err) {
			return nil
		}
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
	return nil
}

// Runner is implemented by whatever owns the daemon's main work loop
// (the cron runtime): it must stop cleanly when Stop is called.
type Runner interface {
	Start()
	Stop()
}

// Serve blocks until a termination signal arrives (via sigCh, which the
// caller wires to SIGTERM/SIGINT) or ctx is cancelled, then stops runner
// and releases guard. SIGHUP is intentionally not wired to anything here
// — config reload is not supported, and the daemon command ignores it.
func Serve(ctx context.Context, logger *slog.Logger, guard *PidFileGuard, runner Runner, sigCh <-chan os.Signal) {
	defer guard.Release()

	runner.Start()
	logger.Info("daemon started", "pid", os.Getpid())

	select {
	case sig := <-sigCh:
		logger.Info("received signal, shutting down", "signal", sig.String())
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	runner.Stop()
	logger.Info("daemon stopped")
}

// Describe is a small helper for CLI status output.
func Describe(path string) string {
	running, pid := Status(path)
	if running {
		return fmt.Sprintf("running (pid %d)", pid)
	}
	return "not running"
}
