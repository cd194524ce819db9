package media

import (
	"context"
	"errors"
	"image"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSource struct {
	name      string
	available bool
	img       image.Image
	err       error
	calls     int
}

func (f *fakeSource) Name() string    { return f.name }
func (f *fakeSource) Available() bool { return f.available }
func (f *fakeSource) Decode(context.Context, string) (image.Image, error) {
	f.calls++
	return f.img, f.err
}

type fakeMeta struct {
	m   Metadata
	err error
}

func (f fakeMeta) Metadata(context.Context, string) (Metadata, error) { return f.m, f.err }

func TestNewRawDecoderNoSources(t *testing.T) {
	t.Parallel()
	_, err := NewRawDecoder([]PixelSource{
		&fakeSource{name: "dcraw"},
		&fakeSource{name: "vips"},
	}, nil)
	require.ErrorIs(t, err, ErrNoDecoder)
	assert.Contains(t, err.Error(), "dcraw, vips")
}

func TestNewRawDecoderKeepsAvailableInOrder(t *testing.T) {
	t.Parallel()
	d, err := NewRawDecoder([]PixelSource{
		&fakeSource{name: "dcraw"},
		&fakeSource{name: "vips", available: true},
		&fakeSource{name: "embedded", available: true},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"vips", "embedded"}, d.Sources())
}

func TestRawDecoderFallsBack(t *testing.T) {
	t.Parallel()
	first := &fakeSource{name: "dcraw", available: true, err: errors.New("unsupported camera")}
	second := &fakeSource{name: "embedded", available: true, img: image.NewRGBA(image.Rect(0, 0, 10, 10))}
	third := &fakeSource{name: "vips", available: true}

	d, err := NewRawDecoder([]PixelSource{first, second, third}, nil)
	require.NoError(t, err)

	img, err := d.Decode(context.Background(), "/x.cr3")
	require.NoError(t, err)
	assert.Equal(t, 10, img.Bounds().Dx())
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls)
	assert.Equal(t, 0, third.calls, "sources after the first success must not run")
}

func TestRawDecoderAllFail(t *testing.T) {
	t.Parallel()
	d, err := NewRawDecoder([]PixelSource{
		&fakeSource{name: "dcraw", available: true, err: errors.New("corrupt header")},
		&fakeSource{name: "embedded", available: true},
	}, nil)
	require.NoError(t, err)

	_, err = d.Decode(context.Background(), "/x.nef")
	require.Error(t, err)

	var ce *ConvertError
	require.ErrorAs(t, err, &ce)
	assert.Equal(t, StageDecode, ce.Stage)
	assert.Equal(t, "/x.nef", ce.Path)
	assert.True(t, strings.Contains(err.Error(), "corrupt header"))
	assert.True(t, strings.Contains(err.Error(), "no image returned"))
}

func TestRawDecoderCancelled(t *testing.T) {
	t.Parallel()
	src := &fakeSource{name: "dcraw", available: true}
	d, err := NewRawDecoder([]PixelSource{src}, nil)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err = d.Decode(ctx, "/x.nef")
	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, 0, src.calls)
}

func TestRawDecoderMetadataDegrades(t *testing.T) {
	t.Parallel()
	model := "Z 6II"
	src := &fakeSource{name: "dcraw", available: true}

	ok, err := NewRawDecoder([]PixelSource{src}, fakeMeta{m: Metadata{CameraModel: &model}})
	require.NoError(t, err)
	m := ok.Metadata(context.Background(), "/x.nef")
	require.NotNil(t, m.CameraModel)
	assert.Equal(t, model, *m.CameraModel)

	failing, err := NewRawDecoder([]PixelSource{src}, fakeMeta{m: Metadata{CameraModel: &model}, err: errors.New("boom")})
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, failing.Metadata(context.Background(), "/x.nef"))

	none, err := NewRawDecoder([]PixelSource{src}, nil)
	require.NoError(t, err)
	assert.Equal(t, Metadata{}, none.Metadata(context.Background(), "/x.nef"))
}

type closingMeta struct {
	fakeMeta
	closed *int
}

func (c closingMeta) Close() error {
	*c.closed++
	return nil
}

func TestRawDecoderCloseReleasesExifTool(t *testing.T) {
	t.Parallel()
	meta := &fakeExtractor{out: "[{}]"}
	exif := &ExifTool{path: "exiftool", start: func(string, bool) (extractor, error) { return meta, nil }}

	d, err := NewRawDecoder([]PixelSource{NewEmbeddedPreviewSource(exif)}, exif)
	require.NoError(t, err)
	d.Metadata(context.Background(), "/x.nef")

	require.NoError(t, d.Close())
	assert.Equal(t, 1, meta.closed, "shared exiftool process is stopped once")

	closed := 0
	plain, err := NewRawDecoder([]PixelSource{&fakeSource{name: "dcraw", available: true}}, closingMeta{closed: &closed})
	require.NoError(t, err)
	require.NoError(t, plain.Close())
	assert.Equal(t, 1, closed)
}

func TestBuildSources(t *testing.T) {
	t.Parallel()
	sources, err := BuildSources([]string{"embedded", "DCRAW", "vips"}, "", &ExifTool{})
	require.NoError(t, err)
	require.Len(t, sources, 3)
	assert.Equal(t, "embedded", sources[0].Name())
	assert.Equal(t, "dcraw", sources[1].Name())
	assert.Equal(t, "vips", sources[2].Name())

	_, err = BuildSources([]string{"rawtherapee"}, "", nil)
	assert.Error(t, err)
}

func TestStageOf(t *testing.T) {
	t.Parallel()
	err := &ConvertError{Path: "/p", Stage: StageFilesystem, Err: errors.New("read-only")}
	assert.Equal(t, StageFilesystem, StageOf(err))
	assert.Equal(t, Stage(""), StageOf(errors.New("other")))
	assert.Contains(t, err.Error(), "filesystem failed for /p")
}
