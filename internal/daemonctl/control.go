package daemonctl

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sys/unix"
)

// LaunchOptions controls daemon process launch behavior.
type LaunchOptions struct {
	ConfigPath string
}

// Launch starts a detached automerge daemon process.
func Launch(executablePath string, opts LaunchOptions) error {
	if strings.TrimSpace(executablePath) == "" {
		return fmt.Errorf("resolve executable: executable path is empty")
	}
	args := []string{"daemon"}
	if cfg := strings.TrimSpace(opts.ConfigPath); cfg != "" {
		args = append(args, "--config", cfg)
	}
	proc := exec.Command(executablePath, args...)
	proc.SysProcAttr = &syscall.SysProcAttr{Setsid: true}
	if err := proc.Start(); err != nil {
		return fmt.Errorf("launch daemon: %w", err)
	}
	return proc.Process.Release()
}

// WaitForReady polls the status endpoint until the daemon reports running.
func WaitForReady(ctx context.Context, client *Client, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	var lastErr error
	for time.Now().Before(deadline) {
		status, err := client.Status(ctx)
		if err == nil && status.Running {
			return nil
		}
		if err != nil {
			lastErr = err
		} else {
			lastErr = errors.New("daemon not yet running")
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	if lastErr == nil {
		lastErr = errors.New("timeout waiting for daemon")
	}
	return fmt.Errorf("daemon failed to start: %w", lastErr)
}

// StartResult reports what EnsureStarted did.
type StartResult struct {
	AlreadyRunning bool
	Launched       bool
}

// EnsureStarted launches the daemon unless one already answers.
func EnsureStarted(ctx context.Context, client *Client, executablePath string, opts LaunchOptions, timeout time.Duration) (StartResult, error) {
	if status, err := client.Status(ctx); err == nil && status.Running {
		return StartResult{AlreadyRunning: true}, nil
	}
	if err := Launch(executablePath, opts); err != nil {
		return StartResult{}, err
	}
	if err := WaitForReady(ctx, client, timeout); err != nil {
		return StartResult{Launched: true}, err
	}
	return StartResult{Launched: true}, nil
}

// Stop sends SIGTERM to the daemon process reported by the status endpoint
// and waits for the API to go away.
func Stop(ctx context.Context, client *Client, timeout time.Duration) (int, error) {
	status, err := client.Status(ctx)
	if err != nil {
		return 0, err
	}
	if status.PID <= 0 {
		return 0, errors.New("daemon did not report a pid")
	}
	if err := unix.Kill(status.PID, unix.SIGTERM); err != nil {
		return status.PID, fmt.Errorf("signal daemon (pid %d): %w", status.PID, err)
	}
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if _, err := client.Status(ctx); errors.Is(err, ErrDaemonNotRunning) {
			return status.PID, nil
		}
		select {
		case <-ctx.Done():
			return status.PID, ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	return status.PID, fmt.Errorf("daemon (pid %d) did not stop within %s", status.PID, timeout)
}
