// Package config parses and validates workflow definition files.
package config

import (
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"

	"github.com/coreflow/coreflow/internal/coreerr"
	"github.com/coreflow/coreflow/internal/model"
)

var taskNamePattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

const (
	defaultMaxParallel    = 4
	defaultRetry          = 3
	defaultTimeoutSeconds = 300
	defaultHTTPTimeout    = 300
	defaultSSHPort        = 22
	defaultSSHConnectTO   = 10
)

// rawGlobalConfig mirrors the workflow file's `config:` block (§6).
// RetryDefault and TimeoutDefault are pointers so an omitted key can be
// told apart from an explicit zero.
type rawGlobalConfig struct {
	MaxParallel    int  `yaml:"max_parallel,omitempty"`
	RetryDefault   *int `yaml:"retry_default,omitempty"`
	TimeoutDefault *int `yaml:"timeout_default,omitempty"`
}

// rawTask mirrors one entry of the workflow file's `tasks:` list. Config
// is decoded generically because its shape depends on Type; it is
// re-marshaled and strictly decoded into the matching executor config
// once Type is known.
type rawTask struct {
	Name              string         `yaml:"name"`
	Type              model.TaskType `yaml:"type"`
	DependsOn         []string       `yaml:"depends_on,omitempty"`
	Config            any            `yaml:"config"`
	Retry             *int           `yaml:"retry,omitempty"`
	Timeout           *int           `yaml:"timeout,omitempty"`
	ContinueOnFailure bool           `yaml:"continue_on_failure,omitempty"`
}

// rawWorkflow mirrors the full workflow file schema from §6.
type rawWorkflow struct {
	Name        string          `yaml:"name"`
	Description string          `yaml:"description,omitempty"`
	Schedule    string          `yaml:"schedule,omitempty"`
	Config      rawGlobalConfig `yaml:"config,omitempty"`
	Tasks       []rawTask       `yaml:"tasks"`
}

// rawShellConfig is the wire shape of a shell task's `config:` block.
type rawShellConfig struct {
	Command string            `yaml:"command"`
	Args    []string          `yaml:"args,omitempty"`
	Workdir string            `yaml:"workdir,omitempty"`
	Env     map[string]string `yaml:"env,omitempty"`
}

// rawSSHConfig is the wire shape of an ssh task's `config:` block.
// VerifyHostKey is a pointer so an omitted key defaults to true rather
// than to the bool zero value.
type rawSSHConfig struct {
	Host          string `yaml:"host"`
	Port          int    `yaml:"port,omitempty"`
	User          string `yaml:"user"`
	KeyPath       string `yaml:"key_path,omitempty"`
	Command       string `yaml:"command"`
	VerifyHostKey *bool  `yaml:"verify_host_key,omitempty"`
}

// rawHTTPConfig is the wire shape of an http task's `config:` block.
type rawHTTPConfig struct {
	URL             string            `yaml:"url"`
	Method          string            `yaml:"method,omitempty"`
	Headers         map[string]string `yaml:"headers,omitempty"`
	Body            any               `yaml:"body,omitempty"`
	Timeout         int               `yaml:"timeout,omitempty"`
	AllowPrivateIPs bool              `yaml:"allow_private_ips,omitempty"`
}

// ParseFile reads and validates a workflow YAML file from disk.
func ParseFile(path string) (*model.WorkflowConfig, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, coreerr.ValidationWrap(err, "cannot stat workflow file %q", path)
	}
	if info.Size() > model.MaxYAMLSize {
		return nil, coreerr.Validation("workflow file %q exceeds max size of %d bytes", path, model.MaxYAMLSize)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, coreerr.ValidationWrap(err, "cannot read workflow file %q", path)
	}
	return Parse(data)
}

// Parse validates and returns a WorkflowConfig from raw YAML bytes.
// Unknown keys at the top level, within the config block, within task
// blocks, and within executor configs are all rejected.
func Parse(data []byte) (*model.WorkflowConfig, error) {
	if len(data) > model.MaxYAMLSize {
		return nil, coreerr.Validation("workflow document exceeds max size of %d bytes", model.MaxYAMLSize)
	}

	var raw rawWorkflow
	if err := yaml.UnmarshalWithOptions(data, &raw, yaml.Strict()); err != nil {
		return nil, coreerr.ValidationWrap(err, "failed to parse workflow YAML")
	}

	wf, err := buildWorkflowConfig(raw)
	if err != nil {
		return nil, err
	}

	if err := Validate(wf); err != nil {
		return nil, err
	}
	return wf, nil
}

// buildWorkflowConfig resolves a rawWorkflow into a model.WorkflowConfig,
// dispatching each task's `config:` block to its executor-specific type
// and applying the workflow's retry_default/timeout_default to any task
// that did not set its own retry/timeout.
func buildWorkflowConfig(raw rawWorkflow) (*model.WorkflowConfig, error) {
	global := model.GlobalConfig{
		MaxParallel:    raw.Config.MaxParallel,
		RetryDefault:   defaultRetry,
		TimeoutDefault: defaultTimeoutSeconds,
	}
	if global.MaxParallel <= 0 {
		global.MaxParallel = defaultMaxParallel
	}
	if raw.Config.RetryDefault != nil {
		global.RetryDefault = *raw.Config.RetryDefault
	}
	if raw.Config.TimeoutDefault != nil {
		global.TimeoutDefault = *raw.Config.TimeoutDefault
	}

	wf := &model.WorkflowConfig{
		Name:        raw.Name,
		Description: raw.Description,
		Schedule:    raw.Schedule,
		Config:      global,
		Tasks:       make([]model.TaskConfig, len(raw.Tasks)),
	}

	for i, rt := range raw.Tasks {
		task := model.TaskConfig{
			Name:              rt.Name,
			Type:              rt.Type,
			DependsOn:         rt.DependsOn,
			ContinueOnFailure: rt.ContinueOnFailure,
			Retry:             global.RetryDefault,
			Timeout:           global.TimeoutDefault,
		}
		if rt.Retry != nil {
			task.Retry = *rt.Retry
		}
		if rt.Timeout != nil {
			task.Timeout = *rt.Timeout
		}

		if err := dispatchExecutorConfig(&task, rt.Config); err != nil {
			return nil, err
		}
		wf.Tasks[i] = task
	}

	return wf, nil
}

// dispatchExecutorConfig re-marshals a task's generically-decoded
// `config:` block and strictly decodes it into the executor-specific
// struct matching task.Type, rejecting fields that don't belong to that
// executor's config (mirroring each variant's deny-unknown-fields
// contract).
func dispatchExecutorConfig(task *model.TaskConfig, raw any) error {
	blob, err := yaml.Marshal(raw)
	if err != nil {
		return coreerr.ValidationWrap(err, "task %q has an invalid config block", task.Name)
	}

	switch task.Type {
	case model.TaskTypeShell:
		var c rawShellConfig
		if err := yaml.UnmarshalWithOptions(blob, &c, yaml.Strict()); err != nil {
			return coreerr.ValidationWrap(err, "task %q has an invalid shell config", task.Name)
		}
		task.Shell = &model.ShellConfig{
			Command: c.Command,
			Args:    c.Args,
			Workdir: c.Workdir,
			Env:     c.Env,
		}
	case model.TaskTypeSSH:
		var c rawSSHConfig
		if err := yaml.UnmarshalWithOptions(blob, &c, yaml.Strict()); err != nil {
			return coreerr.ValidationWrap(err, "task %q has an invalid ssh config", task.Name)
		}
		verifyHostKey := true
		if c.VerifyHostKey != nil {
			verifyHostKey = *c.VerifyHostKey
		}
		port := c.Port
		if port <= 0 {
			port = defaultSSHPort
		}
		task.SSH = &model.SSHConfig{
			Host:           c.Host,
			Port:           port,
			User:           c.User,
			KeyPath:        c.KeyPath,
			Command:        c.Command,
			VerifyHostKey:  verifyHostKey,
			ConnectTimeout: defaultSSHConnectTO,
		}
	case model.TaskTypeHTTP:
		var c rawHTTPConfig
		if err := yaml.UnmarshalWithOptions(blob, &c, yaml.Strict()); err != nil {
			return coreerr.ValidationWrap(err, "task %q has an invalid http config", task.Name)
		}
		method := model.HTTPMethod(strings.ToUpper(c.Method))
		if method == "" {
			method = model.MethodGet
		}
		timeout := c.Timeout
		if timeout <= 0 {
			timeout = defaultHTTPTimeout
		}
		task.HTTP = &model.HTTPConfig{
			URL:             c.URL,
			Method:          method,
			Headers:         c.Headers,
			Body:            c.Body,
			Timeout:         timeout,
			AllowPrivateIPs: c.AllowPrivateIPs,
		}
	default:
		return coreerr.Validation("task %q has unknown type %q", task.Name, task.Type)
	}
	return nil
}

// Validate checks a parsed WorkflowConfig against every structural
// invariant the orchestrator relies on before it ever touches the DAG
// engine or the scheduler.
func Validate(wf *model.WorkflowConfig) error {
	if strings.TrimSpace(wf.Name) == "" {
		return coreerr.Validation("workflow name cannot be empty")
	}
	if len(wf.Tasks) > model.MaxTaskCount {
		return coreerr.Validation("workflow %q has %d tasks, exceeds max of %d", wf.Name, len(wf.Tasks), model.MaxTaskCount)
	}
	if wf.Config.MaxParallel < 1 || wf.Config.MaxParallel > 256 {
		return coreerr.Validation("workflow %q max_parallel must be between 1 and 256", wf.Name)
	}

	seen := make(map[string]bool, len(wf.Tasks))
	names := make(map[string]bool, len(wf.Tasks))
	for _, t := range wf.Tasks {
		names[t.Name] = true
	}

	for _, t := range wf.Tasks {
		if err := validateTaskName(t.Name); err != nil {
			return err
		}
		if seen[t.Name] {
			return coreerr.DuplicateTask(t.Name)
		}
		seen[t.Name] = true

		for _, dep := range t.DependsOn {
			if !names[dep] {
				return coreerr.MissingDependency(t.Name, dep)
			}
		}

		if err := validateTaskExecutor(t); err != nil {
			return err
		}
	}

	return nil
}

func validateTaskName(name string) error {
	if name == "" {
		return coreerr.Validation("task name cannot be empty")
	}
	if len(name) > model.MaxTaskNameLen {
		return coreerr.Validation("task name %q exceeds max length of %d", name, model.MaxTaskNameLen)
	}
	if !taskNamePattern.MatchString(name) {
		return coreerr.Validation("task name %q contains invalid characters (allowed: A-Za-z0-9_-)", name)
	}
	return nil
}

func validateTaskExecutor(t model.TaskConfig) error {
	switch t.Type {
	case model.TaskTypeShell:
		if t.Shell == nil {
			return coreerr.Validation("task %q has type shell but no config", t.Name)
		}
		return validateShellConfig(t.Name, t.Shell)
	case model.TaskTypeSSH:
		if t.SSH == nil {
			return coreerr.Validation("task %q has type ssh but no config", t.Name)
		}
		if t.SSH.Host == "" || t.SSH.User == "" || t.SSH.Command == "" {
			return coreerr.Validation("task %q ssh config requires host, user, and command", t.Name)
		}
		return nil
	case model.TaskTypeHTTP:
		if t.HTTP == nil {
			return coreerr.Validation("task %q has type http but no config", t.Name)
		}
		if t.HTTP.URL == "" {
			return coreerr.Validation("task %q http config requires a url", t.Name)
		}
		if !strings.HasPrefix(t.HTTP.URL, "http://") && !strings.HasPrefix(t.HTTP.URL, "https://") {
			return coreerr.Validation("task %q http url must use the http or https scheme", t.Name)
		}
		if t.HTTP.Timeout < 1 || t.HTTP.Timeout > 3600 {
			return coreerr.Validation("task %q http timeout must be between 1 and 3600 seconds", t.Name)
		}
		return nil
	default:
		return coreerr.Validation("task %q has unknown type %q", t.Name, t.Type)
	}
}

func validateShellConfig(task string, s *model.ShellConfig) error {
	if len(s.Command) == 0 {
		return coreerr.Validation("task %q shell command cannot be empty", task)
	}
	if len(s.Command) > model.MaxCommandLen {
		return coreerr.Validation("task %q shell command exceeds max length of %d", task, model.MaxCommandLen)
	}
	if !filepath.IsAbs(s.Command) {
		return coreerr.Validation("task %q shell command must be an absolute path, got %q", task, s.Command)
	}
	if len(s.Args) > model.MaxArgCount {
		return coreerr.Validation("task %q has %d args, exceeds max of %d", task, len(s.Args), model.MaxArgCount)
	}
	for _, a := range s.Args {
		if len(a) > model.MaxArgLen {
			return coreerr.Validation("task %q has an argument exceeding max length of %d", task, model.MaxArgLen)
		}
	}
	if s.Workdir != "" {
		if err := validatePath(s.Workdir); err != nil {
			return coreerr.ValidationWrap(err, "task %q has invalid workdir", task)
		}
	}
	return nil
}

func validatePath(p string) error {
	if strings.Contains(p, "..") {
		return coreerr.Validation("path %q must not contain '..'", p)
	}
	if !filepath.IsAbs(p) {
		return coreerr.Validation("path %q must be absolute", p)
	}
	return nil
}
