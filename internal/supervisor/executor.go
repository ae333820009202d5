package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime/debug"
	"sync"
	"syscall"
	"time"
)

// DefaultStopTimeout is how long a child process gets to exit after SIGTERM
// before it is killed.
const DefaultStopTimeout = 10 * time.Second

// ServiceFlag is the flag a child process receives naming its service.
const ServiceFlag = "-service"

// Process is one running service execution context.
type Process interface {
	// Pid is the OS process id, or 0 when the service runs in-process.
	Pid() int
	// Wait blocks until the service exits and returns its exit error.
	Wait() error
	// Stop asks the service to terminate. It does not wait.
	Stop() error
}

// Executor starts services in execution contexts.
type Executor interface {
	Start(spec ServiceSpec) (Process, error)
}

// exitState is shared by both process kinds.
type exitState struct {
	done chan struct{}
	err  error
}

func newExitState() *exitState {
	return &exitState{done: make(chan struct{})}
}

func (e *exitState) finish(err error) {
	e.err = err
	close(e.done)
}

func (e *exitState) Wait() error {
	<-e.done
	return e.err
}

// InProcess runs each service on its own goroutine with a cancelable
// context. A panic is reported as the service's exit error instead of taking
// down the siblings.
type InProcess struct{}

type goroutineProcess struct {
	*exitState
	cancel context.CancelFunc
}

func (InProcess) Start(spec ServiceSpec) (Process, error) {
	if spec.Run == nil {
		return nil, fmt.Errorf("service %q has no entrypoint", spec.Name)
	}
	ctx, cancel := context.WithCancel(context.Background())
	p := &goroutineProcess{exitState: newExitState(), cancel: cancel}

	go func() {
		var err error
		defer func() {
			if r := recover(); r != nil {
				err = fmt.Errorf("service %q panicked: %v\n%s", spec.Name, r, debug.Stack())
			}
			cancel()
			p.finish(err)
		}()
		err = spec.Run(ctx)
	}()
	return p, nil
}

func (p *goroutineProcess) Pid() int { return 0 }

func (p *goroutineProcess) Stop() error {
	p.cancel()
	return nil
}

// ChildProcess runs each service as a child OS process by re-executing a
// binary with ServiceFlag and the service name ahead of Args. Children
// share the parent's stdout and stderr unless overridden.
type ChildProcess struct {
	// Exe defaults to the running executable.
	Exe  string
	Args []string
	// Env is appended to the parent environment.
	Env         []string
	Stdout      io.Writer
	Stderr      io.Writer
	StopTimeout time.Duration
}

type osProcess struct {
	*exitState
	cmd     *exec.Cmd
	timeout time.Duration
	once    sync.Once
}

// ChildArgs builds a child's argument vector. The service selection comes
// first so flag parsing sees it even when args hold a non-flag argument.
func ChildArgs(args []string, service string) []string {
	return append([]string{ServiceFlag, service}, args...)
}

func (c ChildProcess) Start(spec ServiceSpec) (Process, error) {
	exe := c.Exe
	if exe == "" {
		var err error
		exe, err = os.Executable()
		if err != nil {
			return nil, fmt.Errorf("resolve executable: %w", err)
		}
	}

	cmd := exec.Command(exe, ChildArgs(c.Args, spec.Name)...)
	cmd.Env = append(os.Environ(), c.Env...)
	cmd.Stdout = c.Stdout
	if cmd.Stdout == nil {
		cmd.Stdout = os.Stdout
	}
	cmd.Stderr = c.Stderr
	if cmd.Stderr == nil {
		cmd.Stderr = os.Stderr
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("start service %q: %w", spec.Name, err)
	}

	timeout := c.StopTimeout
	if timeout <= 0 {
		timeout = DefaultStopTimeout
	}
	p := &osProcess{exitState: newExitState(), cmd: cmd, timeout: timeout}
	go func() { p.finish(cmd.Wait()) }()
	return p, nil
}

func (p *osProcess) Pid() int { return p.cmd.Process.Pid }

// Stop sends SIGTERM and kills the child if it has not exited within the
// stop timeout.
func (p *osProcess) Stop() error {
	var err error
	p.once.Do(func() {
		if sigErr := p.cmd.Process.Signal(syscall.SIGTERM); sigErr != nil {
			if errors.Is(sigErr, os.ErrProcessDone) {
				return
			}
			err = p.cmd.Process.Kill()
			return
		}
		go func() {
			select {
			case <-p.done:
			case <-time.After(p.timeout):
				_ = p.cmd.Process.Kill()
			}
		}()
	})
	return err
}
