package runner

import (
	"context"
	"fmt"
	"os/exec"
	"syscall"

	"golang.org/x/sys/unix"
)

// childProcess is a started executor process placed in its own process
// group, so one signal reaches the executor and every descendant it spawns.
type childProcess struct {
	cmd *exec.Cmd
}

// startChild starts cmd in a dedicated process group and, when a memory
// ceiling is configured, applies RLIMIT_AS to the child before it begins
// work (the executor only starts reading test paths after the orchestrator
// writes them, which happens after startChild returns).
func startChild(cmd *exec.Cmd, memoryLimitMiB uint64) (*childProcess, error) {
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting executor %s: %w", cmd.Path, err)
	}

	child := &childProcess{cmd: cmd}
	if memoryLimitMiB > 0 {
		limit := unix.Rlimit{
			Cur: memoryLimitMiB * 1024 * 1024,
			Max: unix.RLIM_INFINITY,
		}
		if err := unix.Prlimit(cmd.Process.Pid, unix.RLIMIT_AS, &limit, nil); err != nil {
			child.killGroup()
			_ = cmd.Wait()
			return nil, fmt.Errorf("applying memory limit to executor: %w", err)
		}
	}
	return child, nil
}

// killGroup kills the whole process group. Safe to call more than once.
func (c *childProcess) killGroup() {
	if c.cmd.Process == nil {
		return
	}
	_ = syscall.Kill(-c.cmd.Process.Pid, syscall.SIGKILL)
}

// watch kills the process group as soon as ctx is done. The returned stop
// function must be called once the process has been waited on.
func (c *childProcess) watch(ctx context.Context) (stop func()) {
	done := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			c.killGroup()
		case <-done:
		}
	}()
	return func() { close(done) }
}
