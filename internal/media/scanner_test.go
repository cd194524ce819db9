package media

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"
)

// createTree writes empty files at the given slash-separated paths below root.
func createTree(t *testing.T, root string, files ...string) {
	t.Helper()
	for _, f := range files {
		p := filepath.Join(root, filepath.FromSlash(f))
		if err := os.MkdirAll(filepath.Dir(p), 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(p, []byte("raw"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func relPaths(t *testing.T, root string, paths []string) []string {
	t.Helper()
	out := make([]string, len(paths))
	for i, p := range paths {
		rel, err := filepath.Rel(root, p)
		if err != nil {
			t.Fatal(err)
		}
		out[i] = filepath.ToSlash(rel)
	}
	sort.Strings(out)
	return out
}

func TestScannerCollect(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	createTree(t, root,
		"2024-05-01 Smith Wedding/IMG_01.CR2",
		"2024-05-01 Smith Wedding/IMG_01_preview.jpg",
		"2024-05-01 Smith Wedding/notes.txt",
		"2024-05-02/DSC_0002.nef",
		"2024-05-02/deep/nested/DSC_0003.Arw",
		".cache/hidden.dng",
		"misc/IMG_03.DNG",
	)

	paths, err := NewScanner(root, 0).Collect(context.Background())
	if err != nil {
		t.Fatalf("Collect() error = %v", err)
	}

	want := []string{
		"2024-05-01 Smith Wedding/IMG_01.CR2",
		"2024-05-02/DSC_0002.nef",
		"2024-05-02/deep/nested/DSC_0003.Arw",
		".cache/hidden.dng",
		"misc/IMG_03.DNG",
	}
	sort.Strings(want)
	got := relPaths(t, root, paths)
	if len(got) != len(want) {
		t.Fatalf("Collect() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("path[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestScannerLimitStopsEarly(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	createTree(t, root, "a/1.nef", "a/2.nef", "a/3.nef", "b/4.nef", "b/5.nef")

	var seen []string
	found, err := NewScanner(root, 2).Walk(context.Background(), func(path string) error {
		seen = append(seen, path)
		return nil
	})
	if err != nil {
		t.Fatalf("Walk() error = %v", err)
	}
	if found != 2 || len(seen) != 2 {
		t.Errorf("found = %d, callbacks = %d; want 2, 2", found, len(seen))
	}
}

func TestScannerEmptyDirectory(t *testing.T) {
	t.Parallel()
	found, err := NewScanner(t.TempDir(), 0).Walk(context.Background(), func(string) error {
		t.Error("callback invoked for empty directory")
		return nil
	})
	if err != nil || found != 0 {
		t.Errorf("Walk() = %d, %v; want 0, nil", found, err)
	}
}

func TestScannerMissingRoot(t *testing.T) {
	t.Parallel()
	_, err := NewScanner(filepath.Join(t.TempDir(), "nope"), 0).Collect(context.Background())
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Collect() error = %v, want ErrNotExist", err)
	}
}

func TestScannerCallbackErrorStopsWalk(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	createTree(t, root, "1.nef", "2.nef", "3.nef")

	stop := errors.New("stop")
	calls := 0
	_, err := NewScanner(root, 0).Walk(context.Background(), func(string) error {
		calls++
		return stop
	})
	if !errors.Is(err, stop) {
		t.Errorf("Walk() error = %v, want %v", err, stop)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
}

func TestScannerCancelledContext(t *testing.T) {
	t.Parallel()
	root := t.TempDir()
	createTree(t, root, "1.nef")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewScanner(root, 0).Walk(ctx, func(string) error { return nil })
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Walk() error = %v, want context.Canceled", err)
	}
}

func TestScannerWatchReportsNewFiles(t *testing.T) {
	root := t.TempDir()
	createTree(t, root, "existing/old.nef")

	scanner := NewScanner(root, 0)
	scanner.SetWatchDebounce(50 * time.Millisecond)

	var mu sync.Mutex
	var reported []string
	got := make(chan struct{}, 4)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- scanner.Watch(ctx, func(path string) {
			mu.Lock()
			reported = append(reported, path)
			mu.Unlock()
			got <- struct{}{}
		})
	}()

	// Give the watcher time to register directories.
	time.Sleep(200 * time.Millisecond)
	createTree(t, root, "existing/new.ARW", "existing/ignored.txt")

	select {
	case <-got:
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report new RAW file")
	}

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Watch() error = %v", err)
	}

	mu.Lock()
	defer mu.Unlock()
	if len(reported) != 1 || filepath.Base(reported[0]) != "new.ARW" {
		t.Errorf("reported = %v, want only new.ARW", reported)
	}
}
