package supervisor

import (
	"context"
	"errors"
	"flag"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/bobmcallan/voice-mcp-agent/internal/common"
)

// standIn is a blocking service that records its lifecycle.
type standIn struct {
	name    string
	starts  atomic.Int32
	stopped atomic.Bool
	started chan struct{}
	once    sync.Once
	exitErr error
	block   bool
	panics  bool
}

func newStandIn(name string) *standIn {
	return &standIn{name: name, started: make(chan struct{}), block: true}
}

func (s *standIn) spec() ServiceSpec {
	return ServiceSpec{
		Name:    s.name,
		Restart: RestartNone,
		Run: func(ctx context.Context) error {
			s.starts.Add(1)
			s.once.Do(func() { close(s.started) })
			if s.panics {
				panic("boom")
			}
			if !s.block {
				return s.exitErr
			}
			<-ctx.Done()
			s.stopped.Store(true)
			return nil
		},
	}
}

func waitStarted(t *testing.T, services ...*standIn) {
	t.Helper()
	for _, s := range services {
		select {
		case <-s.started:
		case <-time.After(2 * time.Second):
			t.Fatalf("service %s did not start", s.name)
		}
	}
}

func runAsync(ctx context.Context, sup *Supervisor) <-chan error {
	done := make(chan error, 1)
	go func() { done <- sup.Run(ctx) }()
	return done
}

func assertBlocking(t *testing.T, done <-chan error) {
	t.Helper()
	select {
	case err := <-done:
		t.Fatalf("expected supervisor to keep running, returned %v", err)
	case <-time.After(200 * time.Millisecond):
	}
}

func waitReturn(t *testing.T, done <-chan error) error {
	t.Helper()
	select {
	case err := <-done:
		return err
	case <-time.After(5 * time.Second):
		t.Fatal("supervisor did not return")
		return nil
	}
}

func TestRun_UnifiedStandIns(t *testing.T) {
	frontend := newStandIn(ServiceFrontend)
	agent := newStandIn(ServiceAgent)
	sup := New(common.NewSilentLogger(), InProcess{}, frontend.spec(), agent.spec())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, sup)

	waitStarted(t, frontend, agent)
	assertBlocking(t, done)
	if frontend.stopped.Load() || agent.stopped.Load() {
		t.Fatal("expected services to keep running before cancel")
	}

	cancel()
	if err := waitReturn(t, done); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}

	if n := frontend.starts.Load(); n != 1 {
		t.Errorf("expected frontend started once, got %d", n)
	}
	if n := agent.starts.Load(); n != 1 {
		t.Errorf("expected agent started once, got %d", n)
	}
	if !frontend.stopped.Load() {
		t.Error("expected frontend termination hook to fire")
	}
	if !agent.stopped.Load() {
		t.Error("expected agent termination hook to fire")
	}
}

func TestRun_SiblingCrashIsNotRestarted(t *testing.T) {
	crasher := newStandIn("crasher")
	crasher.block = false
	crasher.exitErr = errors.New("exit status 1")
	survivor := newStandIn("survivor")
	sup := New(common.NewSilentLogger(), nil, crasher.spec(), survivor.spec())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, sup)

	waitStarted(t, crasher, survivor)
	assertBlocking(t, done)
	if survivor.stopped.Load() {
		t.Fatal("expected sibling to keep running after crash")
	}

	cancel()
	if err := waitReturn(t, done); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if !survivor.stopped.Load() {
		t.Error("expected survivor to be stopped on cancel")
	}
	if n := crasher.starts.Load(); n != 1 {
		t.Errorf("expected crashed service started once, got %d", n)
	}
}

func TestRun_PanicIsContained(t *testing.T) {
	panicker := newStandIn("panicker")
	panicker.panics = true
	survivor := newStandIn("survivor")
	sup := New(common.NewSilentLogger(), InProcess{}, panicker.spec(), survivor.spec())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	done := runAsync(ctx, sup)

	waitStarted(t, panicker, survivor)
	assertBlocking(t, done)

	cancel()
	if err := waitReturn(t, done); err != nil {
		t.Fatalf("expected clean shutdown, got %v", err)
	}
	if !survivor.stopped.Load() {
		t.Error("expected survivor to be stopped on cancel")
	}
}

func TestRun_ReturnsWhenAllExit(t *testing.T) {
	a := newStandIn("a")
	a.block = false
	a.exitErr = errors.New("port in use")
	b := newStandIn("b")
	b.block = false
	sup := New(common.NewSilentLogger(), InProcess{}, a.spec(), b.spec())

	err := waitReturn(t, runAsync(context.Background(), sup))
	if err == nil {
		t.Fatal("expected joined exit error")
	}
	if !strings.Contains(err.Error(), "port in use") || !strings.Contains(err.Error(), `service "a"`) {
		t.Errorf("expected error naming service a, got %v", err)
	}
}

type failingExecutor struct {
	InProcess
	fail string
}

func (f failingExecutor) Start(spec ServiceSpec) (Process, error) {
	if spec.Name == f.fail {
		return nil, errors.New("exec format error")
	}
	return f.InProcess.Start(spec)
}

func TestRun_StartFailureStopsStartedServices(t *testing.T) {
	first := newStandIn("first")
	second := newStandIn("second")
	sup := New(common.NewSilentLogger(), failingExecutor{fail: "second"}, first.spec(), second.spec())

	err := waitReturn(t, runAsync(context.Background(), sup))
	if err == nil || !strings.Contains(err.Error(), "exec format error") {
		t.Fatalf("expected start error, got %v", err)
	}
	if !first.stopped.Load() {
		t.Error("expected already started service to be stopped")
	}
	if n := second.starts.Load(); n != 0 {
		t.Errorf("expected failed service never run, got %d starts", n)
	}
}

func TestRun_NoServices(t *testing.T) {
	if err := New(nil, nil).Run(context.Background()); err == nil {
		t.Error("expected error for empty supervisor")
	}
}

func TestInProcess_NilEntrypoint(t *testing.T) {
	if _, err := (InProcess{}).Start(ServiceSpec{Name: "empty"}); err == nil {
		t.Error("expected error for nil entrypoint")
	}
}

func TestRunService(t *testing.T) {
	svc := newStandIn("solo")
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- RunService(ctx, svc.spec()) }()

	waitStarted(t, svc)
	cancel()
	if err := waitReturn(t, done); err != nil {
		t.Fatalf("expected clean return, got %v", err)
	}
	if !svc.stopped.Load() {
		t.Error("expected service to be stopped")
	}
}

func TestChildArgs_ServiceSurvivesPositionalArgs(t *testing.T) {
	tests := []struct {
		name   string
		parent []string
	}{
		{"flags only", []string{"-mode", "unified", "-c", "voice-agent.toml"}},
		{"stray positional", []string{"-mode", "unified", "stray"}},
		{"terminator", []string{"-mode", "unified", "--", "extra"}},
		{"no args", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fs := flag.NewFlagSet("child", flag.ContinueOnError)
			service := fs.String("service", "", "")
			fs.String("mode", "", "")
			fs.String("c", "", "")

			if err := fs.Parse(ChildArgs(tt.parent, ServiceFrontend)); err != nil {
				t.Fatalf("unexpected parse error: %v", err)
			}
			if *service != ServiceFrontend {
				t.Errorf("expected service %q, got %q (leftover %v)", ServiceFrontend, *service, fs.Args())
			}
		})
	}
}

func TestChildArgs_DoesNotAliasParent(t *testing.T) {
	parent := make([]string, 1, 4)
	parent[0] = "-mode"
	got := ChildArgs(parent, ServiceAgent)

	want := []string{ServiceFlag, ServiceAgent, "-mode"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("expected %v, got %v", want, got)
	}
	if parent[0] != "-mode" {
		t.Errorf("expected parent args untouched, got %v", parent)
	}
}

func TestResolveMode(t *testing.T) {
	tests := []struct {
		selector string
		want     Mode
		known    bool
	}{
		{"frontend", ModeFrontend, true},
		{"voice_agent", ModeAgent, true},
		{"agent", ModeAgent, true},
		{"unified", ModeUnified, true},
		{" Unified ", ModeUnified, true},
		{"", ModeUnified, false},
		{"backend", ModeUnified, false},
	}

	for _, tt := range tests {
		got, known := ResolveMode(tt.selector)
		if got != tt.want || known != tt.known {
			t.Errorf("ResolveMode(%q): expected (%s, %v), got (%s, %v)", tt.selector, tt.want, tt.known, got, known)
		}
	}
}

func TestModeServices(t *testing.T) {
	tests := []struct {
		mode     Mode
		want     []string
		isolated bool
	}{
		{ModeFrontend, []string{ServiceFrontend}, false},
		{ModeAgent, []string{ServiceAgent}, false},
		{ModeUnified, []string{ServiceFrontend, ServiceAgent}, true},
	}

	for _, tt := range tests {
		if got := tt.mode.Services(); !reflect.DeepEqual(got, tt.want) {
			t.Errorf("%s: expected services %v, got %v", tt.mode, tt.want, got)
		}
		if got := tt.mode.Isolated(); got != tt.isolated {
			t.Errorf("%s: expected isolated %v, got %v", tt.mode, tt.isolated, got)
		}
	}
}
