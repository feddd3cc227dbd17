// Package model holds the workflow configuration and execution record types
// shared across the engine, persistence, and CLI packages.
package model

import "time"

// Size and count limits enforced at parse time, ported from the reference
// implementation's constants module.
const (
	MaxYAMLSize     = 1_048_576
	MaxTaskCount    = 1000
	MaxTaskNameLen  = 64
	MaxCommandLen   = 4096
	MaxArgCount     = 256
	MaxArgLen       = 4096
	MaxOutputSize   = 10_485_760
	MaxResponseSize = 10_485_760
)

// TaskType discriminates the executor a task uses.
type TaskType string

const (
	TaskTypeShell TaskType = "shell"
	TaskTypeSSH   TaskType = "ssh"
	TaskTypeHTTP  TaskType = "http"
)

// HTTPMethod is the set of methods the HTTP executor supports.
type HTTPMethod string

const (
	MethodGet    HTTPMethod = "GET"
	MethodPost   HTTPMethod = "POST"
	MethodPut    HTTPMethod = "PUT"
	MethodDelete HTTPMethod = "DELETE"
)

// Status is the lifecycle state of an execution or task execution.
type Status string

const (
	StatusPending  Status = "pending"
	StatusRunning  Status = "running"
	StatusSuccess  Status = "success"
	StatusFailed   Status = "failed"
	StatusSkipped  Status = "skipped"
	StatusRetrying Status = "retrying"
	StatusTimeout  Status = "timeout"
)

// ShellConfig is the executor config for TaskTypeShell.
type ShellConfig struct {
	Command string
	Args    []string
	Workdir string
	Env     map[string]string
}

// SSHConfig is the executor config for TaskTypeSSH. KnownHostsPath and
// ConnectTimeout are not part of the wire schema (see §3). ConnectTimeout
// is set to 10 seconds when a task is parsed; KnownHostsPath is left
// empty, and the SSH executor then uses ~/.ssh/known_hosts.
type SSHConfig struct {
	Host           string
	Port           int
	User           string
	KeyPath        string
	Command        string
	VerifyHostKey  bool
	KnownHostsPath string
	ConnectTimeout int
}

// HTTPConfig is the executor config for TaskTypeHTTP.
type HTTPConfig struct {
	URL             string
	Method          HTTPMethod
	Headers         map[string]string
	Body            any
	Timeout         int
	AllowPrivateIPs bool
}

// TaskConfig is one node of a workflow's DAG. Retry and Timeout are
// always resolved concrete values by the time a TaskConfig reaches the
// scheduler: the config package applies the workflow's retry_default and
// timeout_default to any task that didn't set its own.
type TaskConfig struct {
	Name              string
	Type              TaskType
	DependsOn         []string
	Shell             *ShellConfig
	SSH               *SSHConfig
	HTTP              *HTTPConfig
	Retry             int
	Timeout           int
	ContinueOnFailure bool
}

// GlobalConfig holds workflow-wide defaults and bounds.
type GlobalConfig struct {
	MaxParallel    int
	RetryDefault   int
	TimeoutDefault int
}

// WorkflowConfig is the parsed form of a workflow YAML file.
type WorkflowConfig struct {
	Name        string
	Description string
	Schedule    string
	Config      GlobalConfig
	Tasks       []TaskConfig
}

// Workflow is the persisted registration of a workflow definition.
type Workflow struct {
	ID        int64
	Name      string
	Schedule  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Execution is one run of a workflow.
type Execution struct {
	ID         string
	WorkflowID int64
	Status     Status
	StartedAt  time.Time
	EndedAt    *time.Time
}

// TaskExecution is one attempt of one task within an Execution.
type TaskExecution struct {
	ID          int64
	ExecutionID string
	TaskName    string
	Status      Status
	Attempt     int
	ExitCode    *int
	Stdout      string
	Stderr      string
	Truncated   bool
	StartedAt   time.Time
	EndedAt     *time.Time
	RetryCount  int
	NextRetryAt *time.Time
}

// ExecutionResult is what an executor returns for a single task attempt.
type ExecutionResult struct {
	Status           Status
	Stdout           string
	Stderr           string
	ExitCode         *int
	Duration         time.Duration
	OutputTruncated  bool
}

// WorkflowSummary is a read projection used by `workflow list`.
type WorkflowSummary struct {
	Workflow     Workflow
	LastRunAt    *time.Time
	LastStatus   Status
	TotalRuns    int
}

// WorkflowStatistics is a read projection used by `stats`.
type WorkflowStatistics struct {
	WorkflowName    string
	TotalRuns       int
	SuccessCount    int
	FailureCount    int
	SuccessRate     float64
	AverageDuration time.Duration
	Last24hRuns     int
}
