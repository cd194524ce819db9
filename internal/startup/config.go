package startup

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"

	"raw-catalog/internal/database"
	"raw-catalog/internal/indexer"
	"raw-catalog/internal/logging"
	"raw-catalog/internal/media"
	"raw-catalog/internal/memory"
)

// EnvPrefix prefixes every environment override, e.g. RAWCAT_DATABASE_PATH.
const EnvPrefix = "RAWCAT"

// Configuration keys. Nested keys map to env vars with "." replaced by "_".
const (
	KeyDatabasePath    = "database.path"
	KeyJPGDatabasePath = "database.jpg_path"
	KeyLockRetries     = "database.lock_retries"
	KeyLockRetryDelay  = "database.lock_retry_delay"
	KeyPreviewSize     = "preview.size"
	KeyPreviewQuality  = "preview.quality"
	KeyWorkers         = "scan.workers"
	KeyBatchSize       = "scan.batch_size"
	KeyWatchDebounce   = "scan.watch_debounce"
	KeyDecoders        = "decoders.order"
	KeyDcrawPath       = "decoders.dcraw_path"
	KeyExifToolPath    = "decoders.exiftool_path"
	KeyLogLevel        = "log.level"
	KeyLogFormat       = "log.format"
	KeyMetricsFile     = "metrics.textfile"
	KeyServeAddr       = "serve.addr"
	KeyStatsCacheTTL   = "serve.stats_cache_ttl"
	KeyMemoryLimit     = "memory.limit"
	KeyMemoryRatio     = "memory.ratio"
)

// Config holds all application configuration
type Config struct {
	DatabasePath    string
	JPGDatabasePath string
	LockRetries     int
	LockRetryDelay  time.Duration

	PreviewSize    int
	PreviewQuality int

	Workers       int
	BatchSize     int
	WatchDebounce time.Duration

	Decoders     []string
	DcrawPath    string
	ExifToolPath string

	LogLevel  string
	LogFormat string

	// MemoryLimit is the container memory limit in bytes, 0 when unknown.
	MemoryLimit int64
	MemoryRatio float64

	MetricsFile   string
	Addr          string
	StatsCacheTTL time.Duration

	// ConfigFile is the file that was read, empty when none was found.
	ConfigFile string
}

// SetDefaults registers the default value of every key on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyDatabasePath, "raw_photos.db")
	v.SetDefault(KeyJPGDatabasePath, "photos_full.db")
	v.SetDefault(KeyLockRetries, database.DefaultMaxAttempts)
	v.SetDefault(KeyLockRetryDelay, database.DefaultRetryDelay)
	v.SetDefault(KeyPreviewSize, media.DefaultPreviewSize)
	v.SetDefault(KeyPreviewQuality, media.DefaultPreviewQuality)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyBatchSize, indexer.DefaultBatchSize)
	v.SetDefault(KeyWatchDebounce, 2*time.Second)
	v.SetDefault(KeyDecoders, []string{"dcraw", "vips", "embedded"})
	v.SetDefault(KeyDcrawPath, "")
	v.SetDefault(KeyExifToolPath, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyLogFormat, "console")
	v.SetDefault(KeyMetricsFile, "")
	v.SetDefault(KeyServeAddr, ":8080")
	v.SetDefault(KeyStatsCacheTTL, 30*time.Second)
	v.SetDefault(KeyMemoryLimit, 0)
	v.SetDefault(KeyMemoryRatio, memory.DefaultMemoryRatio)
}

// NewViper returns a viper instance with defaults and RAWCAT_* environment
// overrides registered. Flags are bound by the caller.
func NewViper() *viper.Viper {
	v := viper.New()
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	// The Kubernetes Downward API convention is honoured as a fallback.
	_ = v.BindEnv(KeyMemoryLimit, EnvPrefix+"_MEMORY_LIMIT", "MEMORY_LIMIT")
	_ = v.BindEnv(KeyMemoryRatio, EnvPrefix+"_MEMORY_RATIO", "MEMORY_RATIO")
	return v
}

// ReadConfigFile loads path into v. With an empty path it looks for
// rawcat.yaml in the working directory and $HOME/.config/rawcat; not
// finding one is not an error.
func ReadConfigFile(v *viper.Viper, path string) error {
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("read config %s: %w", path, err)
		}
		return nil
	}

	v.SetConfigName("rawcat")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		v.AddConfigPath(filepath.Join(home, ".config", "rawcat"))
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if errors.As(err, &notFound) {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

// LoadConfig resolves the layered configuration in v into a validated
// Config. Relative catalog paths are made absolute.
func LoadConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		DatabasePath:    v.GetString(KeyDatabasePath),
		JPGDatabasePath: v.GetString(KeyJPGDatabasePath),
		LockRetries:     v.GetInt(KeyLockRetries),
		LockRetryDelay:  v.GetDuration(KeyLockRetryDelay),
		PreviewSize:     v.GetInt(KeyPreviewSize),
		PreviewQuality:  v.GetInt(KeyPreviewQuality),
		Workers:         v.GetInt(KeyWorkers),
		BatchSize:       v.GetInt(KeyBatchSize),
		WatchDebounce:   v.GetDuration(KeyWatchDebounce),
		Decoders:        decoderList(v.GetStringSlice(KeyDecoders)),
		DcrawPath:       v.GetString(KeyDcrawPath),
		ExifToolPath:    v.GetString(KeyExifToolPath),
		LogLevel:        v.GetString(KeyLogLevel),
		LogFormat:       v.GetString(KeyLogFormat),
		MemoryLimit:     v.GetInt64(KeyMemoryLimit),
		MemoryRatio:     v.GetFloat64(KeyMemoryRatio),
		MetricsFile:     v.GetString(KeyMetricsFile),
		Addr:            v.GetString(KeyServeAddr),
		StatsCacheTTL:   v.GetDuration(KeyStatsCacheTTL),
		ConfigFile:      v.ConfigFileUsed(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	var err error
	if cfg.DatabasePath, err = absPath(cfg.DatabasePath); err != nil {
		return nil, fmt.Errorf("failed to resolve database path: %w", err)
	}
	if cfg.JPGDatabasePath, err = absPath(cfg.JPGDatabasePath); err != nil {
		return nil, fmt.Errorf("failed to resolve JPG database path: %w", err)
	}
	return cfg, nil
}

// Validate rejects values no component can work with.
func (c *Config) Validate() error {
	var errs []error
	if c.DatabasePath == "" {
		errs = append(errs, errors.New("database path is empty"))
	}
	if c.PreviewSize <= 0 {
		errs = append(errs, fmt.Errorf("preview size must be positive, got %d", c.PreviewSize))
	}
	if c.PreviewQuality < 1 || c.PreviewQuality > 100 {
		errs = append(errs, fmt.Errorf("preview quality must be 1-100, got %d", c.PreviewQuality))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must not be negative, got %d", c.Workers))
	}
	if c.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("batch size must be positive, got %d", c.BatchSize))
	}
	if c.LockRetries < 1 {
		errs = append(errs, fmt.Errorf("lock retries must be at least 1, got %d", c.LockRetries))
	}
	if c.LockRetryDelay < 0 {
		errs = append(errs, fmt.Errorf("lock retry delay must not be negative, got %v", c.LockRetryDelay))
	}
	if len(c.Decoders) == 0 {
		errs = append(errs, errors.New("no decoders configured"))
	}
	if c.MemoryLimit < 0 {
		errs = append(errs, fmt.Errorf("memory limit must not be negative, got %d", c.MemoryLimit))
	}
	if c.MemoryRatio <= 0 || c.MemoryRatio > 1 {
		errs = append(errs, fmt.Errorf("memory ratio must be in (0, 1], got %v", c.MemoryRatio))
	}
	if c.LogFormat != "console" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format must be console or json, got %q", c.LogFormat))
	}
	if len(errs) > 0 {
		return fmt.Errorf("invalid configuration: %w", errors.Join(errs...))
	}
	return nil
}

// ApplyLogging configures the logging package from c.
func (c *Config) ApplyLogging() {
	logging.Configure(os.Stderr, c.LogFormat)
	logging.SetLevel(logging.ParseLevel(c.LogLevel))
}

// PreviewConfig returns the renderer settings.
func (c *Config) PreviewConfig() media.PreviewConfig {
	return media.PreviewConfig{Size: c.PreviewSize, Quality: c.PreviewQuality}
}

// DatabaseOptions returns catalog options for the RAW catalog.
func (c *Config) DatabaseOptions() *database.Options {
	return &database.Options{
		LockRetry: database.RetryPolicy{
			MaxAttempts: c.LockRetries,
			Delay:       c.LockRetryDelay,
		},
	}
}

// IndexerOptions returns scan options with the configured pipeline sizes.
func (c *Config) IndexerOptions() indexer.Options {
	return indexer.Options{
		BatchSize: c.BatchSize,
		Workers:   c.Workers,
	}
}

// ApplyMemoryLimit sets GOMEMLIMIT from the configured limit and returns a
// started decode monitor. The caller stops it.
func (c *Config) ApplyMemoryLimit() *memory.Monitor {
	result := memory.ApplyLimit(c.MemoryLimit, c.MemoryRatio)
	m := memory.NewMonitor(memory.Config{LimitBytes: result.GoMemLimit})
	m.Start()
	return m
}

// LogConfig prints the CONFIGURATION block.
func (c *Config) LogConfig() {
	logging.Info("------------------------------------------------------------")
	logging.Info("CONFIGURATION")
	logging.Info("------------------------------------------------------------")
	if c.ConfigFile != "" {
		logging.Info("  Config file:        %s", c.ConfigFile)
	} else {
		logging.Info("  Config file:        (none)")
	}
	logging.Info("  RAW catalog:        %s", c.DatabasePath)
	logging.Info("  JPG catalog:        %s", c.JPGDatabasePath)
	logging.Info("  Lock retries:       %d x %v", c.LockRetries, c.LockRetryDelay)
	logging.Info("  Preview:            %dpx, quality %d", c.PreviewSize, c.PreviewQuality)
	if c.Workers == 0 {
		logging.Info("  Workers:            auto")
	} else {
		logging.Info("  Workers:            %d", c.Workers)
	}
	logging.Info("  Batch size:         %d", c.BatchSize)
	logging.Info("  Decoders:           %s", strings.Join(c.Decoders, ", "))
	if c.MemoryLimit > 0 {
		logging.Info("  Memory limit:       %d bytes (ratio %.2f)", c.MemoryLimit, c.MemoryRatio)
	}
	logging.Info("  LOG_LEVEL:          %s", logging.GetLevel())
	if c.MetricsFile != "" {
		logging.Info("  Metrics textfile:   %s", c.MetricsFile)
	}
	logging.Info("")
}

// decoderList accepts both a YAML list and a comma separated env value.
func decoderList(in []string) []string {
	var out []string
	for _, item := range in {
		for _, name := range strings.Split(item, ",") {
			if name = strings.TrimSpace(name); name != "" {
				out = append(out, strings.ToLower(name))
			}
		}
	}
	return out
}

func absPath(p string) (string, error) {
	if p == "" {
		return "", nil
	}
	if strings.HasPrefix(p, "~"+string(filepath.Separator)) || p == "~" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		p = filepath.Join(home, strings.TrimPrefix(p, "~"))
	}
	return filepath.Abs(p)
}
