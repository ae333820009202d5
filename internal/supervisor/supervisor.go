// Package supervisor runs a fixed set of blocking services as one unit.
//
// Each service gets its own execution context. A service that exits is not
// restarted and its siblings keep running. Cancelling Run propagates stop to
// every running service, and Run returns only after all of them have exited.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/bobmcallan/voice-mcp-agent/internal/common"
)

// RestartPolicy decides what happens when a service exits.
type RestartPolicy int

const (
	// RestartNone leaves an exited service down.
	RestartNone RestartPolicy = iota
)

func (p RestartPolicy) String() string {
	switch p {
	case RestartNone:
		return "none"
	default:
		return fmt.Sprintf("RestartPolicy(%d)", int(p))
	}
}

// ServiceSpec names a service and its blocking entrypoint. Run should return
// only when ctx is cancelled or the service fails.
type ServiceSpec struct {
	Name    string
	Run     func(ctx context.Context) error
	Restart RestartPolicy
}

// Supervisor owns the lifecycles of its services. The spec set is fixed at
// construction.
type Supervisor struct {
	logger   *common.Logger
	executor Executor
	specs    []ServiceSpec
}

// New creates a Supervisor. A nil executor runs services in-process.
func New(logger *common.Logger, executor Executor, specs ...ServiceSpec) *Supervisor {
	if logger == nil {
		logger = common.NewSilentLogger()
	}
	if executor == nil {
		executor = InProcess{}
	}
	return &Supervisor{
		logger:   logger,
		executor: executor,
		specs:    append([]ServiceSpec(nil), specs...),
	}
}

type exitEvent struct {
	name string
	err  error
}

// Run starts every service and blocks. It returns after ctx is cancelled and
// every service has stopped, or when every service has exited on its own, in
// which case the exit errors are joined.
func (s *Supervisor) Run(ctx context.Context) error {
	if len(s.specs) == 0 {
		return errors.New("supervisor: no services")
	}

	running := make(map[string]Process, len(s.specs))
	exits := make(chan exitEvent, len(s.specs))

	for _, spec := range s.specs {
		proc, err := s.executor.Start(spec)
		if err != nil {
			s.logger.Error().Err(err).Str("service", spec.Name).Msg("service failed to start")
			s.stopAll(running, exits)
			return fmt.Errorf("start %q: %w", spec.Name, err)
		}
		running[spec.Name] = proc
		s.logger.Info().
			Str("service", spec.Name).
			Int("pid", proc.Pid()).
			Str("restart", spec.Restart.String()).
			Msg("service started")

		go func(name string, p Process) {
			exits <- exitEvent{name: name, err: p.Wait()}
		}(spec.Name, proc)
	}

	var exitErrs []error
	for len(running) > 0 {
		select {
		case <-ctx.Done():
			s.logger.Info().Int("running", len(running)).Msg("stop requested, stopping services")
			s.stopAll(running, exits)
			s.logger.Info().Msg("all services stopped")
			return nil
		case ev := <-exits:
			delete(running, ev.name)
			s.logExit(ev, len(running))
			if ev.err != nil {
				exitErrs = append(exitErrs, fmt.Errorf("service %q: %w", ev.name, ev.err))
			}
		}
	}

	s.logger.Warn().Msg("all services exited")
	return errors.Join(exitErrs...)
}

func (s *Supervisor) logExit(ev exitEvent, remaining int) {
	if ev.err != nil {
		s.logger.Error().Err(ev.err).
			Str("service", ev.name).
			Int("remaining", remaining).
			Msg("service exited; not restarted")
		return
	}
	s.logger.Warn().
		Str("service", ev.name).
		Int("remaining", remaining).
		Msg("service exited; not restarted")
}

// stopAll signals every running process and waits for each exit event.
func (s *Supervisor) stopAll(running map[string]Process, exits <-chan exitEvent) {
	for name, p := range running {
		if err := p.Stop(); err != nil {
			s.logger.Warn().Err(err).Str("service", name).Msg("stop failed")
		}
	}
	for len(running) > 0 {
		ev := <-exits
		delete(running, ev.name)
		s.logger.Info().Str("service", ev.name).Msg("service stopped")
	}
}

// RunUntilSignal runs sup until SIGINT or SIGTERM arrives or ctx is done.
func RunUntilSignal(ctx context.Context, sup *Supervisor) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return sup.Run(ctx)
}

// RunService runs one service in the current process until SIGINT or
// SIGTERM. It is the entrypoint of a supervised child.
func RunService(ctx context.Context, spec ServiceSpec) error {
	if spec.Run == nil {
		return fmt.Errorf("service %q has no entrypoint", spec.Name)
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return spec.Run(ctx)
}
