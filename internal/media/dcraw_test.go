package media

import (
	"bytes"
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"golang.org/x/image/tiff"
)

func tiffBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := tiff.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h)), nil); err != nil {
		t.Fatal(err)
	}
	return buf.Bytes()
}

func TestDcrawSourceDecode(t *testing.T) {
	t.Parallel()
	out := tiffBytes(t, 300, 200)

	var gotArgs []string
	src := &DcrawSource{
		path: "/usr/bin/dcraw",
		run: func(_ context.Context, _ string, args ...string) ([]byte, error) {
			gotArgs = args
			return out, nil
		},
	}

	img, err := src.Decode(context.Background(), "/photos/a.nef")
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if img.Bounds().Dx() != 300 || img.Bounds().Dy() != 200 {
		t.Errorf("bounds = %v, want 300x200", img.Bounds())
	}
	if got := strings.Join(gotArgs, " "); got != "-c -h -w -W -T /photos/a.nef" {
		t.Errorf("args = %q", got)
	}
}

func TestDcrawSourceErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name string
		src  *DcrawSource
	}{
		{"not installed", &DcrawSource{}},
		{"exec failure", &DcrawSource{path: "dcraw", run: func(context.Context, string, ...string) ([]byte, error) {
			return nil, errors.New("Cannot decode file")
		}}},
		{"empty output", &DcrawSource{path: "dcraw", run: func(context.Context, string, ...string) ([]byte, error) {
			return nil, nil
		}}},
		{"garbage output", &DcrawSource{path: "dcraw", run: func(context.Context, string, ...string) ([]byte, error) {
			return []byte("not a tiff"), nil
		}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.src.Decode(context.Background(), "/x.nef"); err == nil {
				t.Error("expected error")
			}
		})
	}
}
