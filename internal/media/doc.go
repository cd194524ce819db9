// Package media turns camera RAW files into JPEG previews and capture
// metadata.
//
// Scanner finds RAW files below a directory (and can keep watching it).
// RawDecoder decodes them through an ordered list of PixelSources:
//
//   - dcraw: half-size demosaic with camera white balance, no auto-brightening
//   - vips: libvips load with shrink-on-load
//   - embedded: the camera's own JPEG preview, extracted with exiftool
//
// and reads metadata with exiftool. PreviewRenderer fits the bitmap in a
// square box and writes "<stem>_preview.jpg" beside the source.
//
// Conversion failures are reported as *ConvertError with the Stage that
// failed. Metadata extraction never fails; problems are logged and produce
// empty Metadata.
package media
