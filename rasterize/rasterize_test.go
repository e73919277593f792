package rasterize

import (
	"bytes"
	"context"
	"errors"
	"image/png"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100" viewBox="0 0 200 100"><rect width="200" height="100" fill="#336699"/></svg>`

func writeSample(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sample.svg")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))
	return path
}

func TestNativeRender(t *testing.T) {
	tests := []struct {
		name string
		opts *Options
		w, h int
	}{
		{"intrinsic", nil, 200, 100},
		{"width only", &Options{Width: 400}, 400, 200},
		{"height only", &Options{Height: 50}, 100, 50},
		{"both", &Options{Width: 30, Height: 30}, 30, 30},
		{"capped", &Options{Width: 1000, MaxPixels: 500}, 500, 250},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, w, h, err := NewNative().Render([]byte(sample), tt.opts)
			require.NoError(t, err)
			assert.Equal(t, tt.w, w)
			assert.Equal(t, tt.h, h)

			cfg, err := png.DecodeConfig(bytes.NewReader(data))
			require.NoError(t, err)
			assert.Equal(t, tt.w, cfg.Width)
			assert.Equal(t, tt.h, cfg.Height)
		})
	}
}

func TestNativeRenderFillsPixels(t *testing.T) {
	data, _, _, err := NewNative().Render([]byte(sample), nil)
	require.NoError(t, err)
	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	r, g, b, a := img.At(100, 50).RGBA()
	assert.Equal(t, uint32(0x3333), r)
	assert.Equal(t, uint32(0x6666), g)
	assert.Equal(t, uint32(0x9999), b)
	assert.Equal(t, uint32(0xffff), a)
}

func TestNativeConvert(t *testing.T) {
	out := filepath.Join(t.TempDir(), "out", "sample.png")
	res, err := NewNative().Convert(context.Background(), writeSample(t), out, nil)
	require.NoError(t, err)
	assert.Equal(t, out, res.Path)
	assert.Equal(t, "native", res.Converter)
	assert.FileExists(t, out)

	_, err = NewNative().Convert(context.Background(), filepath.Join(t.TempDir(), "nope.svg"), out, nil)
	var convErr *Error
	require.ErrorAs(t, err, &convErr)
	assert.Equal(t, "native", convErr.Converter)
	assert.Equal(t, "read SVG", convErr.Operation)
}

func TestTargetSize(t *testing.T) {
	w, h := targetSize(0, 0, &Options{})
	assert.Equal(t, defaultSize, w)
	assert.Equal(t, defaultSize, h)

	w, h = targetSize(0, 0, &Options{Width: 120})
	assert.Equal(t, 120, w)
	assert.Equal(t, 120, h)
}

type fakeConverter struct {
	name  string
	err   error
	calls int
}

func (f *fakeConverter) Name() string      { return f.name }
func (f *fakeConverter) IsAvailable() bool { return true }
func (f *fakeConverter) Convert(_ context.Context, _, out string, _ *Options) (*Result, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return &Result{Path: out, Width: 1, Height: 1, Converter: f.name}, nil
}

func TestManagerFallback(t *testing.T) {
	broken := &fakeConverter{name: "broken", err: errors.New("boom")}
	working := &fakeConverter{name: "working"}
	m := NewManagerWith(broken, working)

	res, err := m.Convert(context.Background(), "in.svg", "out.png", nil)
	require.NoError(t, err)
	assert.Equal(t, "working", res.Converter)
	assert.Equal(t, 1, broken.calls)

	require.NoError(t, m.SetPreferred("working"))
	assert.Equal(t, []string{"working", "broken"}, m.Available())
	_, err = m.Convert(context.Background(), "in.svg", "out.png", nil)
	require.NoError(t, err)
	assert.Equal(t, 1, broken.calls)

	assert.Error(t, m.SetPreferred("missing"))
}

func TestManagerAllFail(t *testing.T) {
	first := errors.New("first")
	second := errors.New("second")
	m := NewManagerWith(&fakeConverter{name: "a", err: first}, &fakeConverter{name: "b", err: second})

	_, err := m.Convert(context.Background(), "in.svg", "out.png", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, first)
	assert.ErrorIs(t, err, second)

	_, err = NewManagerWith().Convert(context.Background(), "in.svg", "out.png", nil)
	assert.Error(t, err)
}

func TestManagerDefaultsStartNative(t *testing.T) {
	m := NewManager(false)
	require.NotEmpty(t, m.Available())
	assert.Equal(t, "native", m.Available()[0])
	assert.NotContains(t, m.Available(), "playwright")
}

func TestExternalConverters(t *testing.T) {
	for _, c := range []Converter{NewRSVG(), NewInkscape()} {
		t.Run(c.Name(), func(t *testing.T) {
			if !c.IsAvailable() {
				t.Skipf("%s not available, skipping conversion test", c.Name())
			}
			out := filepath.Join(t.TempDir(), "sample.png")
			res, err := c.Convert(context.Background(), writeSample(t), out, &Options{Width: 100})
			require.NoError(t, err)
			assert.Equal(t, 100, res.Width)
			assert.FileExists(t, out)
		})
	}
}
