package memory

import (
	"context"
	"runtime"
	"sync"
	"time"

	"raw-catalog/internal/logging"
	"raw-catalog/internal/metrics"
)

// Config holds memory management configuration
type Config struct {
	// LimitBytes is the soft memory limit (0 = use GOMEMLIMIT or no limit)
	LimitBytes int64

	// HighWaterMark is the fraction of the limit below which paused decoding resumes
	HighWaterMark float64

	// CriticalWaterMark is the fraction at which decoding pauses
	CriticalWaterMark float64

	// CheckInterval is how often to check memory usage
	CheckInterval time.Duration
}

// DefaultConfig returns the default watermarks.
func DefaultConfig() Config {
	return Config{
		HighWaterMark:     0.7,
		CriticalWaterMark: 0.85,
		CheckInterval:     2 * time.Second,
	}
}

// Monitor samples heap usage and holds RAW decode workers back while it is
// above the critical watermark. A paused monitor resumes once usage drops
// under the high watermark.
type Monitor struct {
	config    Config
	limit     int64
	readAlloc func() uint64

	stop     chan struct{}
	stopOnce sync.Once

	mu      sync.RWMutex
	current uint64
	paused  bool
	resume  chan struct{}
}

// NewMonitor creates a new memory monitor
func NewMonitor(config Config) *Monitor {
	def := DefaultConfig()
	if config.HighWaterMark <= 0 {
		config.HighWaterMark = def.HighWaterMark
	}
	if config.CriticalWaterMark <= 0 {
		config.CriticalWaterMark = def.CriticalWaterMark
	}
	if config.CheckInterval <= 0 {
		config.CheckInterval = def.CheckInterval
	}

	limit := config.LimitBytes
	if limit == 0 {
		if goMemLimit := setMemoryLimit(-1); goMemLimit > 0 && goMemLimit < 1<<62 {
			limit = goMemLimit
			logging.Info("Memory monitor using GOMEMLIMIT: %s", formatBytes(limit))
		}
	}
	if limit == 0 {
		logging.Debug("Memory monitor: no memory limit configured, backpressure disabled")
	}

	return &Monitor{
		config:    config,
		limit:     limit,
		readAlloc: heapAlloc,
		stop:      make(chan struct{}),
		resume:    make(chan struct{}),
	}
}

func heapAlloc() uint64 {
	var stats runtime.MemStats
	runtime.ReadMemStats(&stats)
	return stats.Alloc
}

// Limit returns the limit the watermarks apply to, 0 when disabled.
func (m *Monitor) Limit() int64 {
	return m.limit
}

// Start begins monitoring memory usage
func (m *Monitor) Start() {
	if m.limit == 0 {
		return
	}
	go m.loop()
}

// Stop ends monitoring and releases any waiting workers.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() {
		close(m.stop)
		m.mu.Lock()
		if m.paused {
			m.setPaused(false)
		}
		m.mu.Unlock()
	})
}

func (m *Monitor) loop() {
	ticker := time.NewTicker(m.config.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			m.check()
		case <-m.stop:
			return
		}
	}
}

func (m *Monitor) check() {
	alloc := m.readAlloc()
	usage := float64(alloc) / float64(m.limit)
	metrics.MemoryUsageRatio.Set(usage)

	m.mu.Lock()
	defer m.mu.Unlock()
	m.current = alloc

	switch {
	case usage >= m.config.CriticalWaterMark && !m.paused:
		logging.Warn("Memory critical (%.1f%% of %s), pausing RAW decoding", usage*100, formatBytes(m.limit))
		m.setPaused(true)
		metrics.MemoryDecodePausesTotal.Inc()
		go runtime.GC()
	case usage < m.config.HighWaterMark && m.paused:
		logging.Info("Memory recovered (%.1f%% of limit), resuming RAW decoding", usage*100)
		m.setPaused(false)
	}
}

// setPaused must be called with mu held.
func (m *Monitor) setPaused(paused bool) {
	m.paused = paused
	if paused {
		metrics.MemoryDecodePaused.Set(1)
		return
	}
	metrics.MemoryDecodePaused.Set(0)
	close(m.resume)
	m.resume = make(chan struct{})
}

// Wait blocks while decoding is paused. It returns ctx's error if ctx ends
// first and nil once decoding may proceed.
func (m *Monitor) Wait(ctx context.Context) error {
	m.mu.RLock()
	if !m.paused {
		m.mu.RUnlock()
		return nil
	}
	resume := m.resume
	m.mu.RUnlock()

	select {
	case <-resume:
		return nil
	case <-m.stop:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Paused reports whether decoding is currently held back.
func (m *Monitor) Paused() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.paused
}

// Usage returns the last sampled heap usage as a fraction of the limit, or
// 0 when no limit is configured.
func (m *Monitor) Usage() float64 {
	if m.limit == 0 {
		return 0
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	return float64(m.current) / float64(m.limit)
}
