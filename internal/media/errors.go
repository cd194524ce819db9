package media

import (
	"errors"
	"fmt"
)

// ErrNoDecoder is returned by NewRawDecoder when none of the configured
// pixel sources can run on this host.
var ErrNoDecoder = errors.New("no RAW decoder available")

// Stage identifies where a preview conversion failed.
type Stage string

const (
	// StageDecode covers reading and demosaicing the RAW file.
	StageDecode Stage = "decode"
	// StageEncode covers resizing and JPEG encoding.
	StageEncode Stage = "encode"
	// StageFilesystem covers creating directories and writing the preview.
	StageFilesystem Stage = "filesystem"
)

// ConvertError reports a failed RAW to preview conversion for one file.
type ConvertError struct {
	Path  string
	Stage Stage
	Err   error
}

func (e *ConvertError) Error() string {
	return fmt.Sprintf("%s failed for %s: %v", e.Stage, e.Path, e.Err)
}

func (e *ConvertError) Unwrap() error {
	return e.Err
}

// StageOf returns the conversion stage recorded in err, or "" if err is not
// a ConvertError.
func StageOf(err error) Stage {
	var ce *ConvertError
	if errors.As(err, &ce) {
		return ce.Stage
	}
	return ""
}
