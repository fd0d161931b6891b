package runtime

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type fakeService struct {
	name    string
	prio    int
	deps    []string
	enabled bool

	mu      sync.Mutex
	started bool
	stopped bool
}

func (s *fakeService) Name() string           { return s.name }
func (s *fakeService) Priority() int          { return s.prio }
func (s *fakeService) Dependencies() []string { return s.deps }
func (s *fakeService) Enabled() bool          { return s.enabled }

func (s *fakeService) Initialize(ctx context.Context) error { return nil }

func (s *fakeService) Start(ctx context.Context, shutdown <-chan struct{}) error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	<-shutdown
	s.mu.Lock()
	s.stopped = true
	s.mu.Unlock()
	return nil
}

func (s *fakeService) Stop(ctx context.Context) error { return nil }

func (s *fakeService) Health() HealthStatus { return HealthStatus{Healthy: true} }

func testEntry() *logrus.Entry {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return logrus.NewEntry(l)
}

func TestSupervisor_MissingDependencyFails(t *testing.T) {
	sup := NewSupervisor(testEntry(), time.Second)
	sup.Register(&fakeService{name: "a", enabled: true, deps: []string{"missing"}})

	err := sup.Run(context.Background())
	var depErr *ErrMissingDependency
	if err == nil {
		t.Fatal("expected missing dependency error")
	}
	if !asMissingDependency(err, &depErr) {
		t.Fatalf("expected ErrMissingDependency, got %v", err)
	}
}

func asMissingDependency(err error, target **ErrMissingDependency) bool {
	e, ok := err.(*ErrMissingDependency)
	if ok {
		*target = e
	}
	return ok
}

func TestSupervisor_DisabledServiceNeverStarts(t *testing.T) {
	sup := NewSupervisor(testEntry(), time.Second)
	disabled := &fakeService{name: "off", enabled: false}
	sup.Register(disabled)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = sup.Run(ctx)

	disabled.mu.Lock()
	defer disabled.mu.Unlock()
	if disabled.started {
		t.Fatal("disabled service must never start")
	}
}

func TestSupervisor_StartsAndStopsAll(t *testing.T) {
	sup := NewSupervisor(testEntry(), time.Second)
	a := &fakeService{name: "a", prio: 1, enabled: true}
	b := &fakeService{name: "b", prio: 2, enabled: true, deps: []string{"a"}}
	sup.Register(b)
	sup.Register(a)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_ = sup.Run(ctx)

	for _, s := range []*fakeService{a, b} {
		s.mu.Lock()
		started, stopped := s.started, s.stopped
		s.mu.Unlock()
		if !started || !stopped {
			t.Fatalf("service %s: started=%v stopped=%v", s.name, started, stopped)
		}
	}
}

func TestPassiveService_BlocksUntilShutdown(t *testing.T) {
	svc := newPassiveService("swap", 25, nil, "swap executor")
	shutdown := make(chan struct{})
	done := make(chan error, 1)

	go func() { done <- svc.Start(context.Background(), shutdown) }()

	select {
	case <-done:
		t.Fatal("passive service returned before shutdown was closed")
	case <-time.After(20 * time.Millisecond):
	}

	close(shutdown)
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	case <-time.After(time.Second):
		t.Fatal("passive service did not return after shutdown")
	}
}

func TestRunUntilShutdown_CancelsOnShutdownClose(t *testing.T) {
	shutdown := make(chan struct{})
	cancelled := make(chan struct{})

	go func() {
		runUntilShutdown(context.Background(), shutdown, func(runCtx context.Context) {
			<-runCtx.Done()
			close(cancelled)
		})
	}()

	close(shutdown)
	select {
	case <-cancelled:
	case <-time.After(time.Second):
		t.Fatal("runUntilShutdown did not cancel its derived context on shutdown close")
	}
}
