package media

import (
	"bytes"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/disintegration/imaging"

	"raw-catalog/internal/filesystem"
	"raw-catalog/internal/logging"
	"raw-catalog/internal/mediatypes"
	"raw-catalog/internal/metrics"
)

const (
	// DefaultPreviewSize is the long edge of a preview in pixels.
	DefaultPreviewSize = 1080
	// DefaultPreviewQuality is the JPEG quality of a preview.
	DefaultPreviewQuality = 85
)

// PreviewPath returns where the preview for a RAW file lives: the file's
// stem plus "_preview.jpg", in the same directory.
func PreviewPath(rawPath string) string {
	dir, base := filepath.Split(rawPath)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, stem+mediatypes.PreviewSuffix)
}

// PreviewConfig controls preview geometry and encoding.
type PreviewConfig struct {
	Size    int
	Quality int
}

// DefaultPreviewConfig returns a 1080px, quality 85 configuration.
func DefaultPreviewConfig() PreviewConfig {
	return PreviewConfig{Size: DefaultPreviewSize, Quality: DefaultPreviewQuality}
}

// PreviewRenderer resizes decoded RAW bitmaps and writes them as JPEG.
type PreviewRenderer struct {
	cfg PreviewConfig
}

// NewPreviewRenderer normalizes cfg: a non-positive size falls back to the
// default and quality is clamped to 1..100.
func NewPreviewRenderer(cfg PreviewConfig) *PreviewRenderer {
	if cfg.Size <= 0 {
		cfg.Size = DefaultPreviewSize
	}
	switch {
	case cfg.Quality <= 0:
		cfg.Quality = DefaultPreviewQuality
	case cfg.Quality > 100:
		cfg.Quality = 100
	}
	return &PreviewRenderer{cfg: cfg}
}

// Config returns the normalized configuration.
func (r *PreviewRenderer) Config() PreviewConfig {
	return r.cfg
}

// Render fits img inside a Size x Size box (never enlarging it), encodes it
// as JPEG and atomically writes it to dest, creating the parent directory if
// needed. It returns the number of bytes written. Failures are returned as
// *ConvertError.
func (r *PreviewRenderer) Render(img image.Image, dest string) (int64, error) {
	if img == nil {
		return 0, &ConvertError{Path: dest, Stage: StageEncode, Err: fmt.Errorf("nil image")}
	}

	start := time.Now()
	resized := imaging.Fit(img, r.cfg.Size, r.cfg.Size, imaging.Lanczos)
	metrics.PreviewPhaseDuration.WithLabelValues("resize").Observe(time.Since(start).Seconds())

	start = time.Now()
	data, err := r.encode(resized)
	metrics.PreviewPhaseDuration.WithLabelValues("encode").Observe(time.Since(start).Seconds())
	if err != nil {
		return 0, &ConvertError{Path: dest, Stage: StageEncode, Err: err}
	}

	start = time.Now()
	if err := os.MkdirAll(filepath.Dir(dest), 0o755); err != nil {
		return 0, &ConvertError{Path: dest, Stage: StageFilesystem, Err: err}
	}
	if err := filesystem.WriteFileAtomic(dest, data, 0o644); err != nil {
		return 0, &ConvertError{Path: dest, Stage: StageFilesystem, Err: err}
	}
	metrics.PreviewPhaseDuration.WithLabelValues("write").Observe(time.Since(start).Seconds())
	metrics.PreviewBytesWritten.Add(float64(len(data)))

	logging.Debug("Preview written: %s (%dx%d, %d bytes)",
		dest, resized.Bounds().Dx(), resized.Bounds().Dy(), len(data))
	return int64(len(data)), nil
}

// encode prefers libvips for progressive output and falls back to the
// imaging encoder.
func (r *PreviewRenderer) encode(img image.Image) ([]byte, error) {
	if IsVipsAvailable() {
		data, err := encodeJPEGWithVips(img, r.cfg.Quality)
		if err == nil {
			return data, nil
		}
		logging.Debug("vips encode failed, using fallback encoder: %v", err)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(r.cfg.Quality)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
