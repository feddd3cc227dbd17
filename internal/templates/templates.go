// Package templates holds the canned workflow definitions served by the
// `template` CLI command, ported from the reference implementation's
// built-in template set.
package templates

import "sort"

// Info describes one available template.
type Info struct {
	Name        string
	Description string
}

var registry = map[string]struct {
	description string
	yaml        string
}{
	"minimal": {"Single shell task, no dependencies", templateMinimal},
	"shell":   {"Multiple shell tasks with dependencies, retry, timeout", templateShell},
	"ssh":     {"SSH remote execution with key auth", templateSSH},
	"http":    {"HTTP API calls (GET/POST) with headers", templateHTTP},
	"full":    {"All executor types combined with DAG dependencies", templateFull},
}

// List returns metadata for every available template, sorted by name.
func List() []Info {
	out := make([]Info, 0, len(registry))
	for name, t := range registry {
		out = append(out, Info{Name: name, Description: t.description})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Get returns the YAML content for a template type, and whether it exists.
func Get(name string) (string, bool) {
	t, ok := registry[name]
	if !ok {
		return "", false
	}
	return t.yaml, true
}

const templateMinimal = `# coreflow workflow — minimal example
# A single shell task with no dependencies.
name: minimal-workflow
description: "A minimal workflow with a single task"

tasks:
  - name: hello
    type: shell
    config:
      command: /bin/echo
      args: ["Hello from coreflow!"]
`

const templateShell = `# coreflow workflow — shell tasks
# Demonstrates dependencies, retry logic, and timeouts.
name: shell-workflow
description: "Shell tasks with dependencies, retry, and timeout"

config:
  max_parallel: 2
  retry_default: 1
  timeout_default: 120

tasks:
  - name: check_disk_space
    type: shell
    config:
      command: /bin/df
      args: ["-h", "/"]
    timeout: 30

  - name: create_output_dir
    type: shell
    depends_on: [check_disk_space]
    config:
      command: /bin/mkdir
      args: ["-p", "/tmp/coreflow-output"]

  - name: generate_report
    type: shell
    depends_on: [create_output_dir]
    config:
      command: /bin/sh
      args: ["-c", "date > /tmp/coreflow-output/report.txt"]
    retry: 3
    timeout: 60

  - name: cleanup
    type: shell
    depends_on: [generate_report]
    config:
      command: /bin/rm
      args: ["-rf", "/tmp/coreflow-output"]
    continue_on_failure: true
`

const templateSSH = `# coreflow workflow — SSH tasks
# Demonstrates SSH remote execution with key-based auth.
# NOTE: update host, user, and key_path to match your environment.
#
# Host key verification defaults to on, checked against ~/.ssh/known_hosts.
# Set verify_host_key: false to skip it (a warning is logged on every
# attempt; not recommended for production).
name: ssh-workflow
description: "SSH remote execution with key auth"

tasks:
  - name: remote_health_check
    type: ssh
    config:
      host: 192.168.1.100
      port: 22
      user: deploy
      key_path: ~/.ssh/id_ed25519
      command: uptime
      verify_host_key: true
    timeout: 30
    retry: 2

  - name: remote_backup
    type: ssh
    depends_on: [remote_health_check]
    config:
      host: 192.168.1.100
      port: 22
      user: deploy
      key_path: ~/.ssh/id_ed25519
      command: "tar czf /tmp/backup.tar.gz /var/data"
      verify_host_key: true
    timeout: 600
    retry: 1
`

const templateHTTP = `# coreflow workflow — HTTP tasks
# Demonstrates HTTP API calls with GET and POST methods.
# NOTE: replace URLs with your actual API endpoints.
name: http-workflow
description: "HTTP API calls (GET/POST) with headers"

tasks:
  - name: health_check
    type: http
    config:
      url: https://api.example.com/health
      method: GET
      timeout: 10
    retry: 2

  - name: fetch_data
    type: http
    depends_on: [health_check]
    config:
      url: https://api.example.com/data
      method: GET
      headers:
        Authorization: "Bearer ${API_TOKEN}"
        Accept: application/json
      timeout: 30

  - name: post_results
    type: http
    depends_on: [fetch_data]
    config:
      url: https://api.example.com/results
      method: POST
      headers:
        Content-Type: application/json
        Authorization: "Bearer ${API_TOKEN}"
      body: '{"status": "completed", "source": "coreflow"}'
      timeout: 30
    retry: 3
`

const templateFull = `# coreflow workflow — full example
# Combines shell, SSH, and HTTP executors with DAG dependencies.
# NOTE: update SSH hosts, HTTP URLs, and credentials for your environment.
name: full-workflow
description: "All executor types combined with DAG dependencies"
schedule: "0 2 * * *"

config:
  max_parallel: 4
  retry_default: 2
  timeout_default: 300

tasks:
  - name: api_health_check
    type: http
    config:
      url: https://api.example.com/health
      method: GET
      timeout: 10
    retry: 2

  - name: server_health_check
    type: ssh
    config:
      host: 192.168.1.100
      port: 22
      user: deploy
      key_path: ~/.ssh/id_ed25519
      command: "systemctl is-active myservice"
    timeout: 30

  - name: backup_database
    type: ssh
    depends_on: [api_health_check, server_health_check]
    config:
      host: 192.168.1.100
      port: 22
      user: deploy
      key_path: ~/.ssh/id_ed25519
      command: "pg_dump mydb | gzip > /backup/db.sql.gz"
    timeout: 600
    retry: 3

  - name: verify_backup
    type: shell
    depends_on: [backup_database]
    config:
      command: /bin/sh
      args: ["-c", "test -f /backup/db.sql.gz && echo OK"]
    retry: 1

  - name: notify_complete
    type: http
    depends_on: [verify_backup]
    config:
      url: https://api.example.com/notifications
      method: POST
      headers:
        Content-Type: application/json
        Authorization: "Bearer ${API_TOKEN}"
      body: '{"event": "backup_complete", "workflow": "full-workflow"}'
      timeout: 15

  - name: cleanup_old_backups
    type: ssh
    depends_on: [verify_backup]
    config:
      host: 192.168.1.100
      port: 22
      user: deploy
      key_path: ~/.ssh/id_ed25519
      command: "find /backup -name '*.sql.gz' -mtime +7 -delete"
    continue_on_failure: true
`
