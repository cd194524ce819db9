package memory

import (
	"math"
	"os"
	"runtime/debug"
	"strconv"

	"raw-catalog/internal/logging"
)

// DefaultMemoryRatio is the share of the memory limit given to the Go heap.
// The rest is left for libvips, dcraw pipes and decoded RAW buffers.
const DefaultMemoryRatio = 0.85

// ConfigResult holds the result of memory configuration
type ConfigResult struct {
	// Configured indicates whether GOMEMLIMIT was set
	Configured bool

	// Source is "GOMEMLIMIT", "memory.limit" or "none".
	Source string

	// ContainerLimit is the configured memory limit in bytes (0 if not set)
	ContainerLimit int64

	// GoMemLimit is the effective GOMEMLIMIT in bytes (0 if not set)
	GoMemLimit int64

	Ratio float64
}

// setMemoryLimit is replaced in tests.
var setMemoryLimit = debug.SetMemoryLimit

// ApplyLimit sets GOMEMLIMIT to ratio of limit bytes. A GOMEMLIMIT
// environment variable takes precedence, and a zero limit leaves the
// runtime untouched. Ratios outside (0, 1] fall back to DefaultMemoryRatio.
func ApplyLimit(limit int64, ratio float64) ConfigResult {
	result := ConfigResult{Source: "none"}

	if env := os.Getenv("GOMEMLIMIT"); env != "" {
		if current := setMemoryLimit(-1); current > 0 && current < math.MaxInt64 {
			result.Configured = true
			result.Source = "GOMEMLIMIT"
			result.GoMemLimit = current
		}
		logging.Info("GOMEMLIMIT set via environment: %s", env)
		return result
	}

	if limit <= 0 {
		logging.Debug("No memory limit configured, GOMEMLIMIT left unset")
		return result
	}

	if ratio <= 0 || ratio > 1 {
		logging.Warn("Memory ratio %.2f out of range (0.0-1.0], using default %.2f", ratio, DefaultMemoryRatio)
		ratio = DefaultMemoryRatio
	}

	goMemLimit := int64(float64(limit) * ratio)
	setMemoryLimit(goMemLimit)

	result.Configured = true
	result.Source = "memory.limit"
	result.ContainerLimit = limit
	result.GoMemLimit = goMemLimit
	result.Ratio = ratio

	logging.Info("Configured GOMEMLIMIT: %s (%.1f%% of %s limit)",
		formatBytes(goMemLimit),
		ratio*100,
		formatBytes(limit),
	)
	return result
}

// formatBytes formats bytes into human-readable string
func formatBytes(b int64) string {
	const unit = 1024
	if b < unit {
		return strconv.FormatInt(b, 10) + " B"
	}
	div, exp := int64(unit), 0
	for n := b / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return strconv.FormatFloat(float64(b)/float64(div), 'f', 1, 64) + " " + string("KMGTPE"[exp]) + "iB"
}
