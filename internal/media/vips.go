package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"sync"

	"raw-catalog/internal/logging"

	"github.com/davidbyttow/govips/v2/vips"
	"github.com/disintegration/imaging"
)

var (
	vipsInitialized bool
	vipsInitMutex   sync.Mutex
	vipsAvailable   bool
)

// vipsThreshold maps the application log level to the lowest libvips level
// that is forwarded.
func vipsThreshold(level logging.LogLevel) vips.LogLevel {
	switch level {
	case logging.LevelDebug:
		return vips.LogLevelInfo
	case logging.LevelWarn:
		return vips.LogLevelError
	case logging.LevelError:
		return vips.LogLevelCritical
	default:
		return vips.LogLevelWarning
	}
}

func vipsLogHandler(domain string, level vips.LogLevel, msg string) {
	switch {
	case level >= vips.LogLevelError:
		logging.Error("[%s] %s", domain, msg)
	case level == vips.LogLevelWarning:
		logging.Warn("[%s] %s", domain, msg)
	default:
		logging.Debug("[%s] %s", domain, msg)
	}
}

// InitVips starts libvips once per process. libvips messages are routed
// through the logging package at a threshold derived from the current level.
func InitVips(concurrency int) error {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		return nil
	}

	vips.LoggingSettings(vipsLogHandler, vipsThreshold(logging.GetLevel()))

	if concurrency < 1 {
		concurrency = 1
	}
	vips.Startup(&vips.Config{
		ConcurrencyLevel: concurrency,
		MaxCacheMem:      50 * 1024 * 1024,
		MaxCacheSize:     100,
	})

	vipsInitialized = true
	vipsAvailable = true
	logging.Info("libvips initialized (version: %s)", vips.Version)
	return nil
}

// ShutdownVips cleans up libvips resources
func ShutdownVips() {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()

	if vipsInitialized {
		vips.Shutdown()
		vipsInitialized = false
		vipsAvailable = false
		logging.Debug("libvips shutdown complete")
	}
}

// IsVipsAvailable returns whether libvips is initialized and available
func IsVipsAvailable() bool {
	vipsInitMutex.Lock()
	defer vipsInitMutex.Unlock()
	return vipsAvailable
}

// VipsSource loads RAW files through libvips (libraw or ImageMagick
// loaders, depending on how libvips was built) and halves the resolution
// during load.
type VipsSource struct{}

// NewVipsSource creates a libvips-backed pixel source. It is only available
// after InitVips.
func NewVipsSource() *VipsSource {
	return &VipsSource{}
}

func (s *VipsSource) Name() string { return "vips" }

func (s *VipsSource) Available() bool { return IsVipsAvailable() }

func (s *VipsSource) Decode(ctx context.Context, path string) (image.Image, error) {
	if !s.Available() {
		return nil, errors.New("libvips not available")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ref, err := vips.LoadImageFromFile(path, vips.NewImportParams())
	if err != nil {
		return nil, fmt.Errorf("vips failed to load %s: %w", path, err)
	}
	defer ref.Close()

	width, height := ref.Width()/2, ref.Height()/2
	if width > 0 && height > 0 {
		if err := ref.Thumbnail(width, height, vips.InterestingNone); err != nil {
			return nil, fmt.Errorf("vips shrink failed: %w", err)
		}
	}

	buf, _, err := ref.ExportPng(&vips.PngExportParams{Compression: 1})
	if err != nil {
		return nil, fmt.Errorf("vips export failed: %w", err)
	}

	img, err := imaging.Decode(bytes.NewReader(buf))
	if err != nil {
		return nil, fmt.Errorf("decode vips output: %w", err)
	}
	return img, nil
}

// encodeJPEGWithVips encodes img as a progressive JPEG with optimized
// Huffman tables, which the standard library encoder cannot produce.
func encodeJPEGWithVips(img image.Image, quality int) ([]byte, error) {
	var staging bytes.Buffer
	if err := imaging.Encode(&staging, img, imaging.PNG, imaging.PNGCompressionLevel(png.NoCompression)); err != nil {
		return nil, fmt.Errorf("stage image for vips: %w", err)
	}

	ref, err := vips.NewImageFromBuffer(staging.Bytes())
	if err != nil {
		return nil, fmt.Errorf("vips load staged image: %w", err)
	}
	defer ref.Close()

	out, _, err := ref.ExportJpeg(&vips.JpegExportParams{
		Quality:        quality,
		Interlace:      true,
		OptimizeCoding: true,
		StripMetadata:  true,
	})
	if err != nil {
		return nil, fmt.Errorf("vips jpeg export: %w", err)
	}
	return out, nil
}
