package mediatypes

import (
	"path/filepath"
	"strings"
)

// FileType represents the role of a file in the catalog.
type FileType string

const (
	// FileTypeRaw represents a camera RAW file.
	FileTypeRaw FileType = "raw"
	// FileTypePreview represents a derived JPEG preview.
	FileTypePreview FileType = "preview"
	// FileTypeOther represents anything else.
	FileTypeOther FileType = "other"
)

// PreviewSuffix is appended to a RAW file's stem to name its preview.
const PreviewSuffix = "_preview.jpg"

// RawExtensions maps lowercase file extensions to whether they are
// recognized camera RAW formats.
var RawExtensions = map[string]bool{
	".arw": true, // Sony
	".cr2": true, // Canon
	".cr3": true, // Canon
	".nef": true, // Nikon
	".dng": true, // Adobe / various
	".raf": true, // Fujifilm
	".orf": true, // Olympus
	".rw2": true, // Panasonic
	".pef": true, // Pentax
	".srw": true, // Samsung
}

// MimeTypes maps file extensions to their MIME types.
var MimeTypes = map[string]string{
	".jpg":  "image/jpeg",
	".jpeg": "image/jpeg",
	".dng":  "image/x-adobe-dng",
	".cr2":  "image/x-canon-cr2",
	".cr3":  "image/x-canon-cr3",
	".nef":  "image/x-nikon-nef",
	".arw":  "image/x-sony-arw",
	".raf":  "image/x-fuji-raf",
	".orf":  "image/x-olympus-orf",
	".rw2":  "image/x-panasonic-rw2",
	".pef":  "image/x-pentax-pef",
	".srw":  "image/x-samsung-srw",
}

// GetFileType returns the FileType for a file name or path.
// Extension matching is case-insensitive.
func GetFileType(name string) FileType {
	if strings.HasSuffix(strings.ToLower(name), PreviewSuffix) {
		return FileTypePreview
	}
	if RawExtensions[strings.ToLower(filepath.Ext(name))] {
		return FileTypeRaw
	}
	return FileTypeOther
}

// IsRawFile reports whether name has a recognized RAW extension.
func IsRawFile(name string) bool {
	return GetFileType(name) == FileTypeRaw
}

// GetMimeType returns the MIME type for a file name or path.
// Returns "application/octet-stream" if the extension is not recognized.
func GetMimeType(name string) string {
	if mime, ok := MimeTypes[strings.ToLower(filepath.Ext(name))]; ok {
		return mime
	}
	return "application/octet-stream"
}
