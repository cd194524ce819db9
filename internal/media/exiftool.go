package media

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/barasher/go-exiftool"
	"github.com/disintegration/imaging"

	"raw-catalog/internal/logging"
)

// Embedded previews of full-frame bodies run to several MB once base64
// encoded, well past bufio's default token size.
const (
	exifBufferSize    = 256 * 1024
	exifMaxBinarySize = 64 * 1024 * 1024
)

// embeddedPreviewTags are tried in order; JpgFromRaw is the larger one.
var embeddedPreviewTags = []string{"JpgFromRaw", "PreviewImage"}

var errExifToolMissing = errors.New("exiftool not found")

// extractor is the part of *exiftool.Exiftool used here.
type extractor interface {
	ExtractMetadata(files ...string) []exiftool.FileMetadata
	Close() error
}

// ExifTool reads metadata and embedded previews through long-running
// exiftool processes (-stay_open). Processes are started on first use and
// shared by all workers, so calls are serialized.
type ExifTool struct {
	path  string
	start func(path string, binary bool) (extractor, error)

	mu   sync.Mutex
	meta extractor
	bin  extractor
}

// NewExifTool locates the exiftool binary. binary may be a name on PATH or
// an absolute path; empty means "exiftool".
func NewExifTool(binary string) *ExifTool {
	return &ExifTool{path: lookTool(binary, "exiftool"), start: startExifTool}
}

func startExifTool(path string, binary bool) (extractor, error) {
	opts := []func(*exiftool.Exiftool) error{
		exiftool.SetExiftoolBinaryPath(path),
		exiftool.NoPrintConversion(),
	}
	if binary {
		opts = append(opts,
			exiftool.ExtractAllBinaryMetadata(),
			exiftool.Buffer(make([]byte, exifBufferSize), exifMaxBinarySize),
		)
	}
	et, err := exiftool.NewExiftool(opts...)
	if err != nil {
		return nil, fmt.Errorf("start exiftool: %w", err)
	}
	return et, nil
}

// Available reports whether the exiftool binary was found.
func (e *ExifTool) Available() bool {
	return e != nil && e.path != ""
}

// Close stops the exiftool processes. The ExifTool restarts them if used
// again.
func (e *ExifTool) Close() error {
	if e == nil {
		return nil
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	var errs []error
	for _, et := range []*extractor{&e.meta, &e.bin} {
		if *et != nil {
			errs = append(errs, (*et).Close())
			*et = nil
		}
	}
	return errors.Join(errs...)
}

// extract returns the tags of path from the metadata process, or from the
// binary process when binary is set.
func (e *ExifTool) extract(ctx context.Context, binary bool, path string) (exiftool.FileMetadata, error) {
	if !e.Available() {
		return exiftool.FileMetadata{}, errExifToolMissing
	}
	if err := ctx.Err(); err != nil {
		return exiftool.FileMetadata{}, err
	}
	// exiftool reads arguments line by line; a relative name starting
	// with "-" would be taken as an option.
	abs, err := filepath.Abs(path)
	if err != nil {
		return exiftool.FileMetadata{}, err
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	et := &e.meta
	if binary {
		et = &e.bin
	}
	if *et == nil {
		started, err := e.start(e.path, binary)
		if err != nil {
			return exiftool.FileMetadata{}, err
		}
		*et = started
	}

	records := (*et).ExtractMetadata(abs)
	if len(records) == 0 {
		return exiftool.FileMetadata{}, errors.New("exiftool returned no records")
	}
	if records[0].Err != nil {
		return exiftool.FileMetadata{}, records[0].Err
	}
	return records[0], nil
}

// Metadata extracts capture metadata from path.
func (e *ExifTool) Metadata(ctx context.Context, path string) (Metadata, error) {
	fm, err := e.extract(ctx, false, path)
	if err != nil {
		return Metadata{}, err
	}
	return parseExifFields(fm.Fields), nil
}

// EmbeddedPreview returns the largest JPEG the camera embedded in the RAW
// file, trying JpgFromRaw before PreviewImage.
func (e *ExifTool) EmbeddedPreview(ctx context.Context, path string) ([]byte, error) {
	fm, err := e.extract(ctx, true, path)
	if err != nil {
		return nil, err
	}

	var errs []error
	for _, tag := range embeddedPreviewTags {
		value, ok := fm.Fields[tag].(string)
		if !ok {
			continue
		}
		data, err := decodeBinaryTag(value)
		if err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", tag, err))
			continue
		}
		if len(data) > 0 {
			return data, nil
		}
	}
	if len(errs) > 0 {
		return nil, fmt.Errorf("no embedded preview in %s: %w", path, errors.Join(errs...))
	}
	return nil, fmt.Errorf("no embedded preview in %s", path)
}

// decodeBinaryTag decodes exiftool's "base64:" JSON form of binary tags.
func decodeBinaryTag(value string) ([]byte, error) {
	encoded, ok := strings.CutPrefix(value, "base64:")
	if !ok {
		return nil, errors.New("not a binary value")
	}
	return base64.StdEncoding.DecodeString(encoded)
}

func parseExifFields(r map[string]interface{}) Metadata {
	var m Metadata
	m.CameraMake = stringTag(r, "Make")
	m.CameraModel = stringTag(r, "Model")
	m.LensModel = stringTag(r, "LensModel", "LensID", "Lens")

	if iso := floatTag(r, "ISO"); iso != nil && *iso > 0 {
		v := int(*iso + 0.5)
		m.ISO = &v
	}
	if fn := floatTag(r, "FNumber"); fn != nil && *fn > 0 {
		s := FormatAperture(*fn)
		m.Aperture = &s
	}
	if et := floatTag(r, "ExposureTime"); et != nil {
		if s, ok := FormatShutter(*et); ok {
			m.ShutterSpeed = &s
		}
	}
	if fl := floatTag(r, "FocalLength"); fl != nil && *fl > 0 {
		s := FormatFocalLength(*fl)
		m.FocalLength = &s
	}
	for _, key := range []string{"DateTimeOriginal", "CreateDate"} {
		if s := stringTag(r, key); s != nil {
			if ts, ok := parseExifTime(*s); ok {
				m.CaptureTime = &ts
				break
			}
		}
	}
	m.GPSLatitude = floatTag(r, "GPSLatitude")
	m.GPSLongitude = floatTag(r, "GPSLongitude")

	return m
}

// stringTag returns the first non-empty value among keys. Numeric values are
// formatted without trailing zeros.
func stringTag(r map[string]interface{}, keys ...string) *string {
	for _, key := range keys {
		var s string
		switch v := r[key].(type) {
		case string:
			s = strings.TrimSpace(v)
		case float64:
			s = strconv.FormatFloat(v, 'f', -1, 64)
		default:
			continue
		}
		if s != "" {
			return &s
		}
	}
	return nil
}

func floatTag(r map[string]interface{}, key string) *float64 {
	switch v := r[key].(type) {
	case float64:
		return &v
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return nil
		}
		return &f
	}
	return nil
}

// parseExifTime parses "2006:01:02 15:04:05", ignoring any sub-second or
// zone suffix. Camera clocks carry no zone, so the result is in UTC.
func parseExifTime(s string) (time.Time, bool) {
	if len(s) < len(exifTimeLayout) {
		return time.Time{}, false
	}
	ts, err := time.Parse(exifTimeLayout, s[:len(exifTimeLayout)])
	if err != nil {
		return time.Time{}, false
	}
	return ts, true
}

// EmbeddedPreviewSource decodes the JPEG preview the camera stored inside
// the RAW file. It is the fastest source and works for formats the other
// decoders do not understand, at the cost of the camera's own rendering.
type EmbeddedPreviewSource struct {
	exif *ExifTool
}

// NewEmbeddedPreviewSource creates a pixel source backed by exif.
func NewEmbeddedPreviewSource(exif *ExifTool) *EmbeddedPreviewSource {
	return &EmbeddedPreviewSource{exif: exif}
}

func (s *EmbeddedPreviewSource) Name() string { return "embedded" }

func (s *EmbeddedPreviewSource) Available() bool { return s.exif.Available() }

// Close stops the exiftool process behind the source.
func (s *EmbeddedPreviewSource) Close() error { return s.exif.Close() }

func (s *EmbeddedPreviewSource) Decode(ctx context.Context, path string) (image.Image, error) {
	data, err := s.exif.EmbeddedPreview(ctx, path)
	if err != nil {
		return nil, err
	}
	img, err := imaging.Decode(bytes.NewReader(data), imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("decode embedded preview: %w", err)
	}
	logging.Debug("Embedded preview for %s: %dx%d", path, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}
