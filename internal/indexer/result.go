package indexer

import (
	"fmt"
	"io"
	"time"
)

// Outcome is what happened to one RAW file during a scan.
type Outcome int

const (
	// OutcomeSkipped: the preview already existed.
	OutcomeSkipped Outcome = iota
	// OutcomeConverted: a preview was written and, with a catalog attached,
	// its row stored.
	OutcomeConverted
	// OutcomeFailedConversion: decode, encode or write of the preview failed.
	OutcomeFailedConversion
	// OutcomeFailedCatalog: the preview was written but the row was not.
	OutcomeFailedCatalog
	// OutcomeReconciled: an existing preview had no row and one was added.
	OutcomeReconciled
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSkipped:
		return "skipped"
	case OutcomeConverted:
		return "converted"
	case OutcomeFailedConversion:
		return "failed_conversion"
	case OutcomeFailedCatalog:
		return "failed_catalog"
	case OutcomeReconciled:
		return "reconciled"
	default:
		return fmt.Sprintf("outcome(%d)", int(o))
	}
}

// FileError records a per-file failure.
type FileError struct {
	Path    string
	Outcome Outcome
	Err     error
}

func (e FileError) Error() string {
	return fmt.Sprintf("%s: %v", e.Path, e.Err)
}

func (e FileError) Unwrap() error { return e.Err }

// Result summarizes a scan run.
type Result struct {
	RunID            string
	Root             string
	StartedAt        time.Time
	Duration         time.Duration
	Found            int
	Converted        int
	Skipped          int
	FailedConversion int
	FailedCatalog    int
	Reconciled       int
	Failures         []FileError
}

// Processed is the number of previews generated in this run, whether or
// not their catalog row was stored.
func (r Result) Processed() int {
	return r.Converted + r.FailedCatalog
}

// Failed is the number of files that hit any error.
func (r Result) Failed() int {
	return r.FailedConversion + r.FailedCatalog
}

// Handled is the number of files that reached a final outcome.
func (r Result) Handled() int {
	return r.Converted + r.Skipped + r.FailedConversion + r.FailedCatalog + r.Reconciled
}

func (r *Result) count(o Outcome) {
	switch o {
	case OutcomeSkipped:
		r.Skipped++
	case OutcomeConverted:
		r.Converted++
	case OutcomeFailedConversion:
		r.FailedConversion++
	case OutcomeFailedCatalog:
		r.FailedCatalog++
	case OutcomeReconciled:
		r.Reconciled++
	}
}

func (r *Result) uncount(o Outcome) {
	switch o {
	case OutcomeConverted:
		r.Converted--
	case OutcomeReconciled:
		r.Reconciled--
	}
}

// WriteSummary prints the end-of-run report.
func (r Result) WriteSummary(w io.Writer) error {
	_, err := fmt.Fprintf(w, "\nResults:\n  Generated: %d previews\n  Skipped: %d (already exist)\n  Failed: %d\n",
		r.Processed(), r.Skipped, r.Failed())
	if err != nil {
		return err
	}
	if r.Reconciled > 0 {
		if _, err := fmt.Fprintf(w, "  Reconciled: %d (catalog rows restored)\n", r.Reconciled); err != nil {
			return err
		}
	}
	if r.FailedCatalog > 0 {
		if _, err := fmt.Fprintf(w, "  Not cataloged: %d (preview written, database write failed)\n", r.FailedCatalog); err != nil {
			return err
		}
	}
	_, err = fmt.Fprintf(w, "\nPreviews stored beside the RAW files under: %s\n", r.Root)
	return err
}
