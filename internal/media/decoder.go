package media

import (
	"context"
	"errors"
	"fmt"
	"image"
	"io"
	"strings"
	"time"

	"raw-catalog/internal/logging"
	"raw-catalog/internal/metrics"
)

// PixelSource turns a RAW file into a bitmap.
type PixelSource interface {
	// Name identifies the source in logs, metrics and configuration.
	Name() string
	// Available reports whether the source can run on this host.
	Available() bool
	Decode(ctx context.Context, path string) (image.Image, error)
}

// MetadataReader extracts capture metadata from a RAW file.
type MetadataReader interface {
	Metadata(ctx context.Context, path string) (Metadata, error)
}

// RawDecoder decodes RAW files through an ordered list of pixel sources and
// reads their metadata.
type RawDecoder struct {
	sources  []PixelSource
	metadata MetadataReader
}

// NewRawDecoder keeps the available sources in order. It returns
// ErrNoDecoder if none is available. meta may be nil, in which case every
// file yields empty metadata.
func NewRawDecoder(sources []PixelSource, meta MetadataReader) (*RawDecoder, error) {
	var usable []PixelSource
	var missing []string
	for _, s := range sources {
		if s != nil && s.Available() {
			usable = append(usable, s)
		} else if s != nil {
			missing = append(missing, s.Name())
		}
	}
	if len(missing) > 0 {
		logging.Debug("RAW decoders unavailable: %s", strings.Join(missing, ", "))
	}
	if len(usable) == 0 {
		return nil, fmt.Errorf("%w: tried %s", ErrNoDecoder, strings.Join(missing, ", "))
	}
	return &RawDecoder{sources: usable, metadata: meta}, nil
}

// Sources returns the names of the active pixel sources in order.
func (d *RawDecoder) Sources() []string {
	names := make([]string, len(d.sources))
	for i, s := range d.sources {
		names[i] = s.Name()
	}
	return names
}

// Decode returns the first successful bitmap. If every source fails the
// error is a *ConvertError at StageDecode joining each source's reason.
func (d *RawDecoder) Decode(ctx context.Context, path string) (image.Image, error) {
	start := time.Now()
	defer func() {
		metrics.PreviewPhaseDuration.WithLabelValues("decode").Observe(time.Since(start).Seconds())
	}()

	var errs []error
	for _, s := range d.sources {
		if err := ctx.Err(); err != nil {
			return nil, &ConvertError{Path: path, Stage: StageDecode, Err: err}
		}

		img, err := s.Decode(ctx, path)
		if err == nil && img != nil {
			metrics.PreviewDecodeBySource.WithLabelValues(s.Name(), "success").Inc()
			return img, nil
		}
		if err == nil {
			err = errors.New("no image returned")
		}
		metrics.PreviewDecodeBySource.WithLabelValues(s.Name(), "error").Inc()
		logging.Debug("%s decode failed for %s: %v", s.Name(), path, err)
		errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
	}

	return nil, &ConvertError{Path: path, Stage: StageDecode, Err: errors.Join(errs...)}
}

// Metadata never fails: any extraction error is logged as a warning and
// yields empty Metadata, so the caller can still catalog the file.
func (d *RawDecoder) Metadata(ctx context.Context, path string) Metadata {
	if d.metadata == nil {
		return Metadata{}
	}
	m, err := d.metadata.Metadata(ctx, path)
	if err != nil {
		metrics.MetadataExtractionsTotal.WithLabelValues("failed").Inc()
		logging.Warn("Could not extract metadata from %s: %v", path, err)
		return Metadata{}
	}
	metrics.MetadataExtractionsTotal.WithLabelValues("success").Inc()
	return m
}

// Close releases helper processes held by the metadata reader and the
// pixel sources.
func (d *RawDecoder) Close() error {
	var errs []error
	if c, ok := d.metadata.(io.Closer); ok {
		errs = append(errs, c.Close())
	}
	for _, s := range d.sources {
		if c, ok := s.(io.Closer); ok {
			errs = append(errs, c.Close())
		}
	}
	return errors.Join(errs...)
}

// BuildSources maps configured source names ("dcraw", "vips", "embedded")
// to pixel sources in the same order. Unknown names are an error.
func BuildSources(names []string, dcrawPath string, exif *ExifTool) ([]PixelSource, error) {
	sources := make([]PixelSource, 0, len(names))
	for _, name := range names {
		switch strings.ToLower(strings.TrimSpace(name)) {
		case "dcraw":
			sources = append(sources, NewDcrawSource(dcrawPath))
		case "vips", "libvips":
			sources = append(sources, NewVipsSource())
		case "embedded", "exiftool":
			sources = append(sources, NewEmbeddedPreviewSource(exif))
		default:
			return nil, fmt.Errorf("unknown decoder %q", name)
		}
	}
	return sources, nil
}
