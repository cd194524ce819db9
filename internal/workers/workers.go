package workers

import (
	"os"
	"runtime"
	"strconv"
)

// EnvOverride is the environment variable that pins the worker count.
const EnvOverride = "RAWCAT_WORKERS"

// Count returns the worker count for a task type, scaled from GOMAXPROCS
// (which follows container CPU limits).
//
// The multiplier adjusts for task characteristics:
//   - 1.0 for CPU-bound tasks
//   - 2.0 for I/O-bound tasks
//   - 1.5 for mixed tasks
//
// The limit parameter caps the worker count. Use 0 for no limit.
// RAWCAT_WORKERS overrides the computed value.
func Count(multiplier float64, limit int) int {
	if override := os.Getenv(EnvOverride); override != "" {
		if count, err := strconv.Atoi(override); err == nil && count > 0 {
			return capAt(count, limit)
		}
	}

	workers := int(float64(runtime.GOMAXPROCS(0)) * multiplier)
	if workers < 1 {
		workers = 1
	}
	return capAt(workers, limit)
}

func capAt(n, limit int) int {
	if limit > 0 && n > limit {
		return limit
	}
	return n
}

// ForCPU returns worker count for CPU-bound tasks (1 per CPU).
func ForCPU(limit int) int {
	return Count(1.0, limit)
}

// ForMixed returns worker count for mixed tasks (1.5 per CPU).
func ForMixed(limit int) int {
	return Count(1.5, limit)
}

// ForDecode returns the number of RAW decode workers. An explicit
// configured value wins; otherwise one worker per CPU, capped at 8, since
// each decode holds a full-resolution bitmap in memory.
func ForDecode(configured int) int {
	if configured > 0 {
		return configured
	}
	return ForCPU(8)
}
