package media

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"image"

	"golang.org/x/image/tiff"

	"raw-catalog/internal/logging"
)

// dcrawArgs select the fast preview path: write to stdout (-c), half-size
// output skipping full demosaic (-h), camera white balance (-w), no
// auto-brightening (-W), 8-bit TIFF container (-T).
var dcrawArgs = []string{"-c", "-h", "-w", "-W", "-T"}

// DcrawSource demosaics RAW files with dcraw (or a compatible fork such as
// dcraw_emu) and decodes the TIFF it writes to stdout.
type DcrawSource struct {
	path string
	run  runFunc
}

// NewDcrawSource locates the dcraw binary. binary may be a name on PATH or
// an absolute path; empty means "dcraw".
func NewDcrawSource(binary string) *DcrawSource {
	return &DcrawSource{path: lookTool(binary, "dcraw"), run: runCommand}
}

func (s *DcrawSource) Name() string { return "dcraw" }

func (s *DcrawSource) Available() bool { return s.path != "" }

func (s *DcrawSource) Decode(ctx context.Context, path string) (image.Image, error) {
	if !s.Available() {
		return nil, errors.New("dcraw not found")
	}

	args := append(append([]string{}, dcrawArgs...), path)
	out, err := s.run(ctx, s.path, args...)
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("dcraw produced no output for %s", path)
	}

	img, err := tiff.Decode(bytes.NewReader(out))
	if err != nil {
		return nil, fmt.Errorf("decode dcraw output: %w", err)
	}

	logging.Debug("dcraw decoded %s: %dx%d", path, img.Bounds().Dx(), img.Bounds().Dy())
	return img, nil
}
