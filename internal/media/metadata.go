package media

import (
	"fmt"
	"math"
	"time"
)

// exifTimeLayout is the EXIF DateTimeOriginal format.
const exifTimeLayout = "2006:01:02 15:04:05"

// Metadata is the capture information extracted from a RAW file. Every field
// is independently optional.
type Metadata struct {
	CameraMake   *string
	CameraModel  *string
	LensModel    *string
	ISO          *int
	Aperture     *string
	ShutterSpeed *string
	FocalLength  *string
	CaptureTime  *time.Time
	GPSLatitude  *float64
	GPSLongitude *float64
}

// HasGPS reports whether both coordinates are present.
func (m Metadata) HasGPS() bool {
	return m.GPSLatitude != nil && m.GPSLongitude != nil
}

// FormatAperture renders an f-number as "f/2.8".
func FormatAperture(fnumber float64) string {
	return fmt.Sprintf("f/%.1f", fnumber)
}

// FormatShutter renders an exposure time in seconds. Exposures of a second
// or longer print as "2.0s"; shorter ones as a reciprocal such as "1/250".
// The boolean is false for non-positive durations.
func FormatShutter(seconds float64) (string, bool) {
	if seconds <= 0 || math.IsNaN(seconds) || math.IsInf(seconds, 0) {
		return "", false
	}
	if seconds >= 1 {
		return fmt.Sprintf("%.1fs", seconds), true
	}
	return fmt.Sprintf("1/%d", int(math.Round(1/seconds))), true
}

// FormatFocalLength renders a focal length rounded to whole millimetres.
func FormatFocalLength(mm float64) string {
	return fmt.Sprintf("%.0fmm", mm)
}
