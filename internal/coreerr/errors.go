// Package coreerr defines the error taxonomy shared by every coreflow
// package: validation, graph, executor, persistence, and daemon failures.
package coreerr

import "fmt"

// Kind classifies an Error for callers that branch on error category
// (e.g. the CLI picking an exit code).
type Kind string

const (
	KindValidation  Kind = "validation"
	KindGraph       Kind = "graph"
	KindExecutor    Kind = "executor"
	KindPersistence Kind = "persistence"
	KindDaemon      Kind = "daemon"
	KindNotFound    Kind = "not_found"
	KindTimeout     Kind = "timeout"
)

// Error is the common typed error for all coreflow packages. It carries a
// Kind for programmatic matching and wraps an optional underlying cause.
type Error struct {
	Kind    Kind
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

func newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func wrapf(kind Kind, cause error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Cause: cause}
}

// Validation reports a config/workflow validation failure.
func Validation(format string, args ...any) *Error { return newf(KindValidation, format, args...) }

// ValidationWrap wraps an underlying error as a validation failure.
func ValidationWrap(cause error, format string, args ...any) *Error {
	return wrapf(KindValidation, cause, format, args...)
}

// CycleDetected reports a dependency cycle, naming the path that closes it.
func CycleDetected(path []string) *Error {
	return newf(KindGraph, "dependency cycle detected: %v", path)
}

// MissingDependency reports a task referencing an undefined dependency.
func MissingDependency(task, dep string) *Error {
	return newf(KindGraph, "task %q depends on undefined task %q", task, dep)
}

// DuplicateTask reports two tasks sharing a name.
func DuplicateTask(name string) *Error {
	return newf(KindValidation, "duplicate task name %q", name)
}

// ExecutorFailure wraps an executor-level error (distinct from a task's own
// non-zero exit/status, which is not an error).
func ExecutorFailure(cause error, format string, args ...any) *Error {
	return wrapf(KindExecutor, cause, format, args...)
}

// Timeout reports an operation that exceeded its deadline.
func Timeout(format string, args ...any) *Error { return newf(KindTimeout, format, args...) }

// Persistence wraps a state-store failure.
func Persistence(cause error, format string, args ...any) *Error {
	return wrapf(KindPersistence, cause, format, args...)
}

// NotFound reports a missing workflow/execution/task row.
func NotFound(format string, args ...any) *Error { return newf(KindNotFound, format, args...) }

// Daemon wraps a daemon lifecycle failure (PID file, signal handling).
func Daemon(cause error, format string, args ...any) *Error {
	return wrapf(KindDaemon, cause, format, args...)
}
