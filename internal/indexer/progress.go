package indexer

import (
	"fmt"
	"io"
	"os"
	"sync"

	"golang.org/x/term"
)

// progress prints a single updating "Processing i/N..." line. It only
// writes when the destination is a terminal.
type progress struct {
	mu      sync.Mutex
	w       io.Writer
	total   int
	current int
}

func newProgress(w io.Writer, total int) *progress {
	if !isTerminal(w) {
		w = nil
	}
	return &progress{w: w, total: total}
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok || f == nil {
		return false
	}
	return term.IsTerminal(int(f.Fd()))
}

func (p *progress) step() {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.current++
	if p.w == nil {
		return
	}
	_, _ = fmt.Fprintf(p.w, "\r  Processing %d/%d...", p.current, p.total)
}

func (p *progress) done() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.w == nil {
		return
	}
	_, _ = fmt.Fprintf(p.w, "\r  Processed %d RAW files\n", p.total)
}
