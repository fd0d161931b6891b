// Package runtime implements the service supervisor (C7): dependency
// checked, priority-ordered startup/shutdown for the agent's long-running
// components, generalizing the unified server's ad-hoc goroutine/channel/
// signal pattern into a named Service interface rather than one hand-wired
// Server struct.
package runtime

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"sync"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"
)

// HealthStatus is a service's self-reported health at a point in time.
type HealthStatus struct {
	Healthy bool
	Detail  string
}

// Service is one long-running component the supervisor manages.
type Service interface {
	// Name identifies the service in logs, health reports, and other
	// services' Dependencies lists.
	Name() string

	// Priority orders startup: lower values initialize first. Ties are
	// broken by registration order.
	Priority() int

	// Dependencies names other registered services that must exist; the
	// supervisor checks presence (not readiness) at Run time and aborts
	// as a configuration error if any is missing.
	Dependencies() []string

	// Enabled reports whether this service should be initialized and
	// started at all; disabled services are skipped entirely.
	Enabled() bool

	// Initialize performs one-time setup (DB connections, client
	// construction); failures here are fatal per the configuration/
	// startup error taxonomy.
	Initialize(ctx context.Context) error

	// Start runs the service's main loop. It must return once shutdown
	// is closed.
	Start(ctx context.Context, shutdown <-chan struct{}) error

	// Stop requests a graceful shutdown, given its own bounded context.
	Stop(ctx context.Context) error

	// Health reports the service's current health.
	Health() HealthStatus
}

// ErrMissingDependency is returned by Run when a service names a
// dependency that was never registered.
type ErrMissingDependency struct {
	Service    string
	Dependency string
}

func (e *ErrMissingDependency) Error() string {
	return fmt.Sprintf("runtime: service %q depends on unregistered service %q", e.Service, e.Dependency)
}

// Supervisor runs a registered set of Services in priority order, starting
// lower-priority services first and stopping them in reverse order.
type Supervisor struct {
	log          *logrus.Entry
	stopTimeout  time.Duration
	services     []Service
	startErrCh   chan error
}

// NewSupervisor builds an empty supervisor. stopTimeout bounds how long each
// service's Stop call is given before the supervisor moves on regardless.
func NewSupervisor(log *logrus.Entry, stopTimeout time.Duration) *Supervisor {
	if stopTimeout <= 0 {
		stopTimeout = 5 * time.Second
	}
	return &Supervisor{log: log, stopTimeout: stopTimeout}
}

// Register adds a service. Order of registration breaks priority ties.
func (s *Supervisor) Register(svc Service) {
	s.services = append(s.services, svc)
}

// enabled returns the registered services that report Enabled, stably
// sorted by ascending priority.
func (s *Supervisor) enabled() []Service {
	out := make([]Service, 0, len(s.services))
	for _, svc := range s.services {
		if svc.Enabled() {
			out = append(out, svc)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority() < out[j].Priority() })
	return out
}

// checkDependencies verifies every enabled service's declared dependencies
// were themselves registered (regardless of that dependency's own Enabled
// state — absence, not disablement, is the fatal condition).
func (s *Supervisor) checkDependencies(svcs []Service) error {
	names := make(map[string]struct{}, len(s.services))
	for _, svc := range s.services {
		names[svc.Name()] = struct{}{}
	}
	for _, svc := range svcs {
		for _, dep := range svc.Dependencies() {
			if _, ok := names[dep]; !ok {
				return &ErrMissingDependency{Service: svc.Name(), Dependency: dep}
			}
		}
	}
	return nil
}

// Run checks dependencies, initializes every enabled service in priority
// order (aborting on first error), then starts them all concurrently and
// blocks until ctx is done or any service's Start returns an error.
func (s *Supervisor) Run(ctx context.Context) error {
	svcs := s.enabled()

	if err := s.checkDependencies(svcs); err != nil {
		return err
	}

	for _, svc := range svcs {
		s.log.WithField("service", svc.Name()).Info("initializing service")
		if err := svc.Initialize(ctx); err != nil {
			return fmt.Errorf("initialize %s: %w", svc.Name(), err)
		}
	}

	shutdownCh := make(chan struct{})
	s.startErrCh = make(chan error, len(svcs))
	var wg sync.WaitGroup

	for _, svc := range svcs {
		wg.Add(1)
		go func(svc Service) {
			defer wg.Done()
			s.log.WithField("service", svc.Name()).Info("starting service")
			if err := svc.Start(ctx, shutdownCh); err != nil {
				s.startErrCh <- fmt.Errorf("%s: %w", svc.Name(), err)
			}
		}(svc)
	}

	var runErr error
	select {
	case <-ctx.Done():
		runErr = ctx.Err()
	case err := <-s.startErrCh:
		runErr = err
	}

	close(shutdownCh)
	s.stopAll(svcs)
	wg.Wait()

	return runErr
}

// stopAll stops services in reverse priority order, each with its own
// bounded Stop context.
func (s *Supervisor) stopAll(svcs []Service) {
	for i := len(svcs) - 1; i >= 0; i-- {
		svc := svcs[i]
		stopCtx, cancel := context.WithTimeout(context.Background(), s.stopTimeout)
		if err := svc.Stop(stopCtx); err != nil {
			s.log.WithField("service", svc.Name()).WithError(err).Warn("service stop failed")
		}
		cancel()
	}
}

// HealthReport is one service's health snapshot.
type HealthReport struct {
	Service string
	Status  HealthStatus
}

// HealthCheck polls every registered service's Health.
func (s *Supervisor) HealthCheck() []HealthReport {
	out := make([]HealthReport, 0, len(s.services))
	for _, svc := range s.services {
		out = append(out, HealthReport{Service: svc.Name(), Status: svc.Health()})
	}
	return out
}

// WaitForSignal returns a context derived from parent that is cancelled on
// the first SIGINT/SIGTERM. Matches the teacher server's inline
// signal.Notify handling, generalized into a reusable helper.
func WaitForSignal(parent context.Context) context.Context {
	ctx, cancel := context.WithCancel(parent)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		defer signal.Stop(sigCh)
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx
}
