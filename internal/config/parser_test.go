package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/coreflow/coreflow/internal/model"
)

const validYAML = `
name: nightly-backup
schedule: "0 2 * * *"
tasks:
  - name: dump
    type: shell
    config:
      command: /usr/bin/pg_dump
      args: ["-f", "/tmp/out.sql"]
  - name: upload
    type: http
    depends_on: ["dump"]
    config:
      url: "https://example.com/upload"
      method: POST
`

func TestParseValid(t *testing.T) {
	wf, err := Parse([]byte(validYAML))
	require.NoError(t, err)
	assert.Equal(t, "nightly-backup", wf.Name)
	assert.Len(t, wf.Tasks, 2)
	assert.Equal(t, 300, wf.Tasks[0].Timeout)
	assert.Equal(t, 3, wf.Tasks[0].Retry)
	assert.Equal(t, 4, wf.Config.MaxParallel)
}

func TestParseAppliesWorkflowRetryAndTimeoutDefaults(t *testing.T) {
	const yml = `
name: defaults
config:
  max_parallel: 2
  retry_default: 5
  timeout_default: 600
tasks:
  - name: a
    type: shell
    config: { command: /bin/true }
  - name: b
    type: shell
    config: { command: /bin/true }
    retry: 0
    timeout: 45
`
	wf, err := Parse([]byte(yml))
	require.NoError(t, err)
	assert.Equal(t, 2, wf.Config.MaxParallel)
	assert.Equal(t, 5, wf.Tasks[0].Retry)
	assert.Equal(t, 600, wf.Tasks[0].Timeout)
	// Task b explicitly set retry: 0 and timeout: 45, which must override
	// the workflow defaults rather than being mistaken for "omitted".
	assert.Equal(t, 0, wf.Tasks[1].Retry)
	assert.Equal(t, 45, wf.Tasks[1].Timeout)
}

func TestParseRejectsUnknownTopLevelKey(t *testing.T) {
	const yml = `
name: bad-top-level
unexpected_field: true
tasks:
  - name: a
    type: shell
    config: { command: /bin/true }
`
	_, err := Parse([]byte(yml))
	require.Error(t, err)
}

func TestParseRejectsUnknownTaskBlockKey(t *testing.T) {
	const yml = `
name: bad-task-block
tasks:
  - name: a
    type: shell
    unexpected_field: true
    config: { command: /bin/true }
`
	_, err := Parse([]byte(yml))
	require.Error(t, err)
}

func TestParseRejectsUnknownExecutorConfigKey(t *testing.T) {
	const yml = `
name: bad-executor-config
tasks:
  - name: a
    type: shell
    config:
      command: /bin/true
      unexpected_field: true
`
	_, err := Parse([]byte(yml))
	require.Error(t, err)
}

func TestParseRejectsDuplicateTaskNames(t *testing.T) {
	const yml = `
name: dup
tasks:
  - name: a
    type: shell
    config: { command: /bin/true }
  - name: a
    type: shell
    config: { command: /bin/true }
`
	_, err := Parse([]byte(yml))
	require.Error(t, err)
}

func TestParseRejectsMissingDependency(t *testing.T) {
	const yml = `
name: missing-dep
tasks:
  - name: a
    type: shell
    depends_on: ["ghost"]
    config: { command: /bin/true }
`
	_, err := Parse([]byte(yml))
	require.Error(t, err)
}

func TestParseRejectsRelativeShellCommand(t *testing.T) {
	const yml = `
name: relcmd
tasks:
  - name: a
    type: shell
    config: { command: echo }
`
	_, err := Parse([]byte(yml))
	require.Error(t, err)
}

func TestParseRejectsEmptyName(t *testing.T) {
	_, err := Parse([]byte("name: \"\"\ntasks: []\n"))
	require.Error(t, err)
}

func TestParseRejectsBadTaskName(t *testing.T) {
	const yml = `
name: badname
tasks:
  - name: "has space"
    type: shell
    config: { command: /bin/true }
`
	_, err := Parse([]byte(yml))
	require.Error(t, err)
}

func TestParseSSHDefaultsVerifyHostKeyTrue(t *testing.T) {
	const yml = `
name: ssh-defaults
tasks:
  - name: a
    type: ssh
    config:
      host: 10.0.0.5
      user: deploy
      command: uptime
`
	wf, err := Parse([]byte(yml))
	require.NoError(t, err)
	require.NotNil(t, wf.Tasks[0].SSH)
	assert.True(t, wf.Tasks[0].SSH.VerifyHostKey)
	assert.Equal(t, 22, wf.Tasks[0].SSH.Port)
}

func TestParseSSHVerifyHostKeyExplicitFalse(t *testing.T) {
	const yml = `
name: ssh-explicit-false
tasks:
  - name: a
    type: ssh
    config:
      host: 10.0.0.5
      user: deploy
      command: uptime
      verify_host_key: false
`
	wf, err := Parse([]byte(yml))
	require.NoError(t, err)
	assert.False(t, wf.Tasks[0].SSH.VerifyHostKey)
}

func TestParseHTTPDefaultTimeout(t *testing.T) {
	const yml = `
name: http-defaults
tasks:
  - name: a
    type: http
    config:
      url: https://example.com
`
	wf, err := Parse([]byte(yml))
	require.NoError(t, err)
	assert.Equal(t, model.MethodGet, wf.Tasks[0].HTTP.Method)
	assert.Equal(t, 300, wf.Tasks[0].HTTP.Timeout)
}

func TestParseRejectsOutOfRangeMaxParallel(t *testing.T) {
	const yml = `
name: bad-max-parallel
config:
  max_parallel: 300
tasks:
  - name: a
    type: shell
    config: { command: /bin/true }
`
	_, err := Parse([]byte(yml))
	require.Error(t, err)
}
