// Package pathinfo infers a client name and shoot date from the directory
// naming convention photographers use for RAW libraries:
//
//	/photos/2024-05-01 Smith Wedding/IMG_01.CR2  → client "Smith Wedding", date 2024-05-01
//	/photos/2024-05-01/IMG_02.NEF                → date 2024-05-01
//
// Both separators are accepted so that catalogs built from Windows shares
// parse the same way.
package pathinfo

import (
	"regexp"
	"strings"
)

var (
	// A date followed by whitespace and a name running up to the next separator.
	clientDatePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})\s+([^\\/]+)`)
	// A date that is itself a whole path component.
	datePattern = regexp.MustCompile(`(\d{4}-\d{2}-\d{2})[\\/]`)
)

// Info is the client and date inferred from a path. Either may be nil.
type Info struct {
	Client *string
	Date   *string
}

// Parse extracts client and date from path. It never fails: a path that
// matches neither convention yields an Info with both fields nil.
func Parse(path string) Info {
	if m := clientDatePattern.FindStringSubmatch(path); m != nil {
		info := Info{Date: strPtr(m[1])}
		if client := strings.TrimSpace(m[2]); client != "" {
			info.Client = &client
		}
		return info
	}

	if m := datePattern.FindStringSubmatch(path); m != nil {
		return Info{Date: strPtr(m[1])}
	}

	return Info{}
}

func strPtr(s string) *string {
	return &s
}
