// Package mediatypes holds the dependency-free file classification shared by
// the scanner, the preview renderer and the HTTP handlers.
//
// A file is a RAW candidate when its extension (compared case-insensitively)
// is one of RawExtensions:
//
//	if mediatypes.IsRawFile(path) {
//	    // schedule for preview generation
//	}
//
// Previews are recognized by PreviewSuffix so that a scan never treats its
// own output as input.
package mediatypes
