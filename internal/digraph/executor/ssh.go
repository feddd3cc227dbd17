package executor

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"time"

	"github.com/skeema/knownhosts"
	"golang.org/x/crypto/ssh"

	"github.com/coreflow/coreflow/internal/coreerr"
	"github.com/coreflow/coreflow/internal/model"
)

// SSH runs a task as a single exec command over a fresh SSH connection.
// It authenticates with a key only — no password auth — and never wraps
// the command in a remote shell.
type SSH struct {
	logger *slog.Logger
}

func NewSSH(logger *slog.Logger) *SSH {
	if logger == nil {
		logger = slog.Default()
	}
	return &SSH{logger: logger}
}

func (s *SSH) Execute(ctx context.Context, task model.TaskConfig) (model.ExecutionResult, error) {
	if task.SSH == nil {
		return model.ExecutionResult{}, coreerr.Validation("task %q has no ssh config", task.Name)
	}
	cfg := task.SSH

	signer, err := loadSigner(cfg.KeyPath)
	if err != nil {
		return model.ExecutionResult{}, coreerr.ExecutorFailure(err, "failed to load ssh key for task %q", task.Name)
	}

	hostKeyCallback, err := s.hostKeyCallback(cfg, task.Name)
	if err != nil {
		return model.ExecutionResult{}, coreerr.ExecutorFailure(err, "failed to set up host key verification for task %q", task.Name)
	}

	clientConfig := &ssh.ClientConfig{
		User:            cfg.User,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(signer)},
		HostKeyCallback: hostKeyCallback,
		Timeout:         time.Duration(cfg.ConnectTimeout) * time.Second,
	}

	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
	dialer := net.Dialer{Timeout: clientConfig.Timeout}
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return model.ExecutionResult{
			Status: model.StatusFailed,
			Stderr: "connection failed: " + err.Error(),
		}, nil
	}
	sshConn, chans, reqs, err := ssh.NewClientConn(conn, addr, clientConfig)
	if err != nil {
		conn.Close()
		return model.ExecutionResult{
			Status: model.StatusFailed,
			Stderr: "ssh handshake failed: " + err.Error(),
		}, nil
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return model.ExecutionResult{}, coreerr.ExecutorFailure(err, "failed to open ssh session for task %q", task.Name)
	}
	defer session.Close()

	var stdout, stderr bytes.Buffer
	session.Stdout = &stdout
	session.Stderr = &stderr

	start := time.Now()
	done := make(chan error, 1)
	go func() { done <- session.Run(cfg.Command) }()

	var runErr error
	select {
	case <-ctx.Done():
		session.Signal(ssh.SIGKILL) //nolint:errcheck
		status := model.StatusFailed
		if ctx.Err() == context.DeadlineExceeded {
			status = model.StatusTimeout
		}
		return model.ExecutionResult{
			Status:   status,
			Stdout:   stdout.String(),
			Stderr:   "task timed out",
			Duration: time.Since(start),
		}, nil
	case runErr = <-done:
	}
	duration := time.Since(start)

	out, outTrunc := truncate(stdout.String(), model.MaxOutputSize)
	errOut, errTrunc := truncate(stderr.String(), model.MaxOutputSize)

	var exitCode *int
	status := model.StatusSuccess
	if runErr != nil {
		status = model.StatusFailed
		if exitErr, ok := runErr.(*ssh.ExitError); ok {
			code := exitErr.ExitStatus()
			exitCode = &code
		} else {
			errOut = runErr.Error()
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
		OutputTruncated: outTrunc || errTrunc,
	}, nil
}

func (s *SSH) hostKeyCallback(cfg *model.SSHConfig, taskName string) (ssh.HostKeyCallback, error) {
	if !cfg.VerifyHostKey {
		s.logger.Warn("ssh host key verification disabled", "task", taskName)
		return ssh.InsecureIgnoreHostKey(), nil //nolint:gosec
	}

	path := cfg.KnownHostsPath
	if path == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		path = filepath.Join(home, ".ssh", "known_hosts")
	}
	db, err := knownhosts.NewDB(path)
	if err != nil {
		return nil, fmt.Errorf("loading known_hosts from %q: %w", path, err)
	}
	return db.HostKeyCallback(), nil
}

func loadSigner(keyPath string) (ssh.Signer, error) {
	if keyPath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, err
		}
		keyPath = filepath.Join(home, ".ssh", "id_rsa")
	}
	key, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("reading ssh key %q: %w", keyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(key)
	if err != nil {
		return nil, fmt.Errorf("parsing ssh key %q: %w", keyPath, err)
	}
	return signer, nil
}
