package metrics

import (
	"context"
	"os"
	"sync"
	"time"

	"raw-catalog/internal/logging"
)

// StatsProvider interface for collecting catalog stats
type StatsProvider interface {
	GetStats(ctx context.Context) (Stats, error)
}

// Stats holds the current catalog statistics
type Stats struct {
	TotalPhotos   int
	PhotosWithGPS int
	TotalClients  int
	PreviewBytes  int64
}

// Collector periodically collects catalog statistics and SQLite file sizes
// and updates the corresponding gauges.
type Collector struct {
	statsProvider StatsProvider
	dbPath        string
	interval      time.Duration
	stopChan      chan struct{}
	stopOnce      sync.Once
	wg            sync.WaitGroup
}

// NewCollector creates a new metrics collector
func NewCollector(provider StatsProvider, dbPath string, interval time.Duration) *Collector {
	return &Collector{
		statsProvider: provider,
		dbPath:        dbPath,
		interval:      interval,
		stopChan:      make(chan struct{}),
	}
}

// Start begins the metrics collection loop
func (c *Collector) Start() {
	c.wg.Add(1)
	go c.collectLoop()
}

// Stop stops the metrics collection and waits for the loop to exit.
func (c *Collector) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
	c.wg.Wait()
}

func (c *Collector) collectLoop() {
	defer c.wg.Done()

	c.collect()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.collect()
		case <-c.stopChan:
			return
		}
	}
}

func (c *Collector) collect() {
	c.collectFileSizes()

	if c.statsProvider == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), c.interval)
	defer cancel()

	stats, err := c.statsProvider.GetStats(ctx)
	if err != nil {
		logging.Warn("Metrics collection failed: %v", err)
		return
	}

	CatalogPhotosTotal.Set(float64(stats.TotalPhotos))
	CatalogPhotosWithGPS.Set(float64(stats.PhotosWithGPS))
	CatalogClientsTotal.Set(float64(stats.TotalClients))
	CatalogPreviewBytes.Set(float64(stats.PreviewBytes))

	logging.Debug("Metrics collected: photos=%d, gps=%d, clients=%d",
		stats.TotalPhotos, stats.PhotosWithGPS, stats.TotalClients)
}

func (c *Collector) collectFileSizes() {
	if c.dbPath == "" {
		return
	}
	for label, suffix := range map[string]string{"main": "", "wal": "-wal", "shm": "-shm"} {
		var size int64
		if info, err := os.Stat(c.dbPath + suffix); err == nil {
			size = info.Size()
		}
		DBSizeBytes.WithLabelValues(label).Set(float64(size))
	}
}
