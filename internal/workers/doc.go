/*
Package workers sizes worker pools from GOMAXPROCS, which the Go runtime sets
from the container CPU limit, rather than runtime.NumCPU, which reports host
CPUs.

RAW decoding is CPU heavy and memory hungry (a 24MP half-size bitmap is
roughly 70MB), so the scan pipeline uses ForDecode, which defaults to one
worker per CPU with a cap of 8:

	n := workers.ForDecode(cfg.Workers)

Operators can pin the value with RAWCAT_WORKERS.
*/
package workers
