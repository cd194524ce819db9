// Package metrics provides Prometheus instrumentation for rawcat.
//
// All metrics are registered on the default registry via promauto and are
// prefixed with "rawcat_". They cover HTTP serving, catalog queries and lock
// retries, scan outcomes, preview rendering phases, filesystem retries and
// search fan-out.
//
// Long-running processes expose them through promhttp on /metrics. One-shot
// scans can dump them with WriteTextfile for node_exporter's textfile
// collector.
//
// The Collector periodically refreshes catalog gauges from a StatsProvider
// together with the on-disk size of the SQLite main, WAL and SHM files:
//
//	collector := metrics.NewCollector(db, dbPath, time.Minute)
//	collector.Start()
//	defer collector.Stop()
package metrics
