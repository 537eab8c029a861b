package health

import (
	"context"
	"fmt"
	"slices"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Criticality decides how a failing checker affects overall readiness.
type Criticality int

const (
	// Critical checkers make the process unhealthy when they fail.
	Critical Criticality = iota
	// Optional checkers only degrade the process when they fail.
	Optional
)

// AggregatorConfig configures the health aggregator.
type AggregatorConfig struct {
	// Timeout bounds each CheckAll call. Default: 5 seconds
	Timeout time.Duration
}

type registration struct {
	checker     Checker
	criticality Criticality
}

// Aggregator runs registered checkers concurrently.
type Aggregator struct {
	timeout time.Duration

	mu    sync.RWMutex
	regs  map[string]registration
	order []string
}

// NewAggregator creates a new health aggregator.
func NewAggregator(config AggregatorConfig) *Aggregator {
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}
	return &Aggregator{
		timeout: config.Timeout,
		regs:    make(map[string]registration),
	}
}

// Register adds or replaces a checker under its own name.
func (a *Aggregator) Register(checker Checker, criticality Criticality) {
	a.mu.Lock()
	defer a.mu.Unlock()

	name := checker.Name()
	if _, exists := a.regs[name]; !exists {
		a.order = append(a.order, name)
	}
	a.regs[name] = registration{checker: checker, criticality: criticality}
}

// Unregister removes a checker.
func (a *Aggregator) Unregister(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()

	delete(a.regs, name)
	a.order = slices.DeleteFunc(a.order, func(n string) bool { return n == name })
}

// CheckerNames returns registered names in registration order.
func (a *Aggregator) CheckerNames() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return slices.Clone(a.order)
}

// Check runs a single named checker.
func (a *Aggregator) Check(ctx context.Context, name string) (Result, error) {
	a.mu.RLock()
	reg, ok := a.regs[name]
	a.mu.RUnlock()

	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrCheckerNotFound, name)
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()
	return run(ctx, reg.checker), nil
}

// Report is the outcome of CheckAll.
type Report struct {
	Status  Status
	Results map[string]Result
}

// CheckAll runs every checker concurrently and folds their statuses.
func (a *Aggregator) CheckAll(ctx context.Context) Report {
	a.mu.RLock()
	regs := make(map[string]registration, len(a.regs))
	for name, reg := range a.regs {
		regs[name] = reg
	}
	a.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	var (
		mu      sync.Mutex
		results = make(map[string]Result, len(regs))
		g       errgroup.Group
	)
	for name, reg := range regs {
		g.Go(func() error {
			r := run(ctx, reg.checker)
			mu.Lock()
			results[name] = r
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	status := StatusHealthy
	for name, r := range results {
		s := r.Status
		if s == StatusUnhealthy && regs[name].criticality == Optional {
			s = StatusDegraded
		}
		status = worse(status, s)
	}
	return Report{Status: status, Results: results}
}

// run executes a checker, abandoning it when ctx ends first.
func run(ctx context.Context, checker Checker) Result {
	start := time.Now()
	ch := make(chan Result, 1)

	go func() {
		r := checker.Check(ctx)
		if r.Timestamp.IsZero() {
			r.Timestamp = start
		}
		if r.Duration == 0 {
			r.Duration = time.Since(start)
		}
		ch <- r
	}()

	select {
	case r := <-ch:
		return r
	case <-ctx.Done():
		return Unhealthy("check timed out", ErrCheckTimeout).WithDuration(time.Since(start))
	}
}
