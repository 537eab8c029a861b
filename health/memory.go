package health

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"time"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// Budget is the heap size in bytes the process is allowed to use.
	// Zero means the heap size obtained from the runtime (HeapSys).
	Budget uint64

	// WarningThreshold is the fraction of Budget that degrades health and
	// makes UnderPressure report true. Default: 0.8
	WarningThreshold float64

	// CriticalThreshold is the fraction of Budget that is unhealthy. Default: 0.95
	CriticalThreshold float64

	// SampleInterval limits how often UnderPressure reads runtime stats.
	// Default: 1 second
	SampleInterval time.Duration

	// ReadStats overrides runtime.ReadMemStats. Optional.
	ReadStats func(*runtime.MemStats)
}

// MemoryChecker watches heap usage against a budget. Its UnderPressure
// method feeds the local cache tier so that new entries are not admitted
// while the heap is near the budget.
type MemoryChecker struct {
	config MemoryCheckerConfig

	mu        sync.Mutex
	sampledAt time.Time
	ratio     float64
}

// NewMemoryChecker creates a new memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold > 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = min(config.WarningThreshold+0.1, 0.99)
	}
	if config.SampleInterval <= 0 {
		config.SampleInterval = time.Second
	}
	if config.ReadStats == nil {
		config.ReadStats = runtime.ReadMemStats
	}
	return &MemoryChecker{config: config}
}

// Name returns the name of this checker.
func (m *MemoryChecker) Name() string { return "memory" }

// Check reads fresh heap statistics.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	if err := ctx.Err(); err != nil {
		return Unhealthy("context cancelled", err)
	}

	ratio, stats := m.sample()
	details := map[string]any{
		"heap_alloc_bytes": stats.HeapAlloc,
		"budget_bytes":     m.budget(stats),
		"usage_percent":    ratio * 100,
		"num_gc":           stats.NumGC,
		"goroutines":       runtime.NumGoroutine(),
	}

	switch {
	case ratio >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("heap usage critical: %.1f%%", ratio*100), ErrCheckFailed).WithDetails(details)
	case ratio >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("heap usage high: %.1f%%", ratio*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("heap usage normal: %.1f%%", ratio*100)).WithDetails(details)
	}
}

// UnderPressure reports whether heap usage is at or above the warning
// threshold. Stats are re-read at most once per SampleInterval.
func (m *MemoryChecker) UnderPressure() bool {
	m.mu.Lock()
	stale := time.Since(m.sampledAt) >= m.config.SampleInterval
	ratio := m.ratio
	m.mu.Unlock()

	if stale {
		ratio, _ = m.sample()
	}
	return ratio >= m.config.WarningThreshold
}

func (m *MemoryChecker) sample() (float64, runtime.MemStats) {
	var stats runtime.MemStats
	m.config.ReadStats(&stats)

	ratio := 0.0
	if budget := m.budget(stats); budget > 0 {
		ratio = float64(stats.HeapAlloc) / float64(budget)
	}

	m.mu.Lock()
	m.ratio = ratio
	m.sampledAt = time.Now()
	m.mu.Unlock()
	return ratio, stats
}

func (m *MemoryChecker) budget(stats runtime.MemStats) uint64 {
	if m.config.Budget > 0 {
		return m.config.Budget
	}
	return stats.HeapSys
}
