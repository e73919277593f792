package graphic

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sample = `<svg xmlns="http://www.w3.org/2000/svg" width="200" height="100"><rect width="200" height="100" fill="#336699"/></svg>`

func TestLoadExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "chart.svg")
	require.NoError(t, os.WriteFile(path, []byte(sample), 0644))

	g, err := Load(path, false)
	require.NoError(t, err)
	assert.Equal(t, sample, string(g.Markup))
	assert.False(t, g.Created)
	assert.Equal(t, "chart.svg", g.Name())
}

func TestLoadMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.svg")

	_, err := Load(path, false)
	assert.ErrorIs(t, err, ErrMissing)
	assert.NoFileExists(t, path)
}

func TestLoadCreatesPlaceholder(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "dir", "missing.svg")

	g, err := Load(path, true)
	require.NoError(t, err)
	assert.True(t, g.Created)
	assert.FileExists(t, path)

	onDisk, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, g.Markup, onDisk)
	assert.Contains(t, string(onDisk), "missing.svg")
}

func TestPlaceholder(t *testing.T) {
	markup := string(Placeholder(320, 180, "hello"))
	assert.Contains(t, markup, `width="320"`)
	assert.Contains(t, markup, `height="180"`)
	assert.Contains(t, markup, ">hello</text>")
	assert.Contains(t, markup, "</svg>")
}

func TestInspect(t *testing.T) {
	tests := []struct {
		name   string
		markup string
		w, h   float64
	}{
		{"plain pixels", sample, 200, 100},
		{"units", `<svg xmlns="http://www.w3.org/2000/svg" width="2in" height="72pt"></svg>`, 192, 96},
		{"viewBox only", `<svg xmlns="http://www.w3.org/2000/svg" viewBox="0 0 640 480"></svg>`, 640, 480},
		{"percent falls back to viewBox", `<svg xmlns="http://www.w3.org/2000/svg" width="100%" height="100%" viewBox="0,0,30,10"></svg>`, 30, 10},
		{"unknown size", `<svg xmlns="http://www.w3.org/2000/svg"></svg>`, 0, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			info, err := Inspect([]byte(tt.markup))
			require.NoError(t, err)
			assert.InDelta(t, tt.w, info.Width, 1e-9)
			assert.InDelta(t, tt.h, info.Height, 1e-9)
		})
	}

	info, err := Inspect([]byte(sample))
	require.NoError(t, err)
	assert.InDelta(t, 2.0, info.AspectRatio(), 1e-9)
	assert.Zero(t, Info{}.AspectRatio())
}

func TestInspectRejectsNonSVG(t *testing.T) {
	_, err := Inspect([]byte("just some text"))
	assert.Error(t, err)
}

func TestSave(t *testing.T) {
	dir := t.TempDir()

	good := filepath.Join(dir, "out", "good.svg")
	require.NoError(t, Save(good, []byte(sample)))
	assert.FileExists(t, good)

	bad := filepath.Join(dir, "bad.svg")
	assert.Error(t, Save(bad, []byte("not markup")))
	assert.NoFileExists(t, bad)
}
