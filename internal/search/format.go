package search

import (
	"fmt"
	"io"
)

func orUnknown(s *string) string {
	if s == nil || *s == "" {
		return "unknown"
	}
	return *s
}

// WriteDetailed prints results the way photosearch shows them by default:
// a header line per photo followed by its path.
func WriteDetailed(w io.Writer, results []Result) error {
	if _, err := fmt.Fprintf(w, "\nFound %d photos:\n\n", len(results)); err != nil {
		return err
	}
	for _, r := range results {
		if _, err := fmt.Fprintf(w, "[%s] %s | %s | %s\n  %s\n\n",
			r.Origin, orUnknown(r.Date), orUnknown(r.Client), orUnknown(r.Camera), r.Path); err != nil {
			return err
		}
	}
	return nil
}

// WriteSimple prints one path per line.
func WriteSimple(w io.Writer, results []Result) error {
	for _, r := range results {
		if _, err := fmt.Fprintln(w, r.Path); err != nil {
			return err
		}
	}
	return nil
}

// WriteCounts prints the per-origin totals.
func WriteCounts(w io.Writer, c Counts) error {
	_, err := fmt.Fprintf(w, "Total photos found: %d\n  JPG: %d\n  RAW previews: %d\n",
		c.Total, c.ByOrigin[OriginJPG], c.ByOrigin[OriginRAW])
	return err
}
