package health

import (
	"context"
	"sync"
	"time"
)

type CheckResult struct {
	Name    string `json:"name"`
	Healthy bool   `json:"healthy"`
	Error   string `json:"error,omitempty"`
}

type Checker interface {
	Check(ctx context.Context) CheckResult
}

type CheckerFunc func(ctx context.Context) CheckResult

func (f CheckerFunc) Check(ctx context.Context) CheckResult { return f(ctx) }

// ProbeRunner fans readiness checks out with a per-probe timeout and caches
// the combined result briefly so probe storms do not hammer dependencies.
type ProbeRunner struct {
	timeout  time.Duration
	cacheTTL time.Duration
	checkers []Checker

	mu          sync.Mutex
	cachedAt    time.Time
	cachedReady bool
	cached      []CheckResult
}

func NewProbeRunner(timeout, cacheTTL time.Duration, checkers ...Checker) *ProbeRunner {
	if timeout <= 0 {
		timeout = 2 * time.Second
	}
	return &ProbeRunner{timeout: timeout, cacheTTL: cacheTTL, checkers: checkers}
}

func (p *ProbeRunner) Ready(ctx context.Context) (bool, []CheckResult) {
	p.mu.Lock()
	if p.cacheTTL > 0 && time.Since(p.cachedAt) < p.cacheTTL && p.cached != nil {
		ready, results := p.cachedReady, p.cached
		p.mu.Unlock()
		return ready, results
	}
	p.mu.Unlock()

	ready := true
	results := make([]CheckResult, 0, len(p.checkers))
	for _, c := range p.checkers {
		checkCtx, cancel := context.WithTimeout(ctx, p.timeout)
		res := c.Check(checkCtx)
		cancel()
		if !res.Healthy {
			ready = false
		}
		results = append(results, res)
	}

	p.mu.Lock()
	p.cachedAt = time.Now()
	p.cachedReady = ready
	p.cached = results
	p.mu.Unlock()
	return ready, results
}

// DatabasePinger adapts anything with a PingContext, like *sql.DB, into a
// readiness checker.
func DatabasePinger(name string, ping func(ctx context.Context) error) Checker {
	return CheckerFunc(func(ctx context.Context) CheckResult {
		if err := ping(ctx); err != nil {
			return CheckResult{Name: name, Healthy: false, Error: err.Error()}
		}
		return CheckResult{Name: name, Healthy: true}
	})
}
