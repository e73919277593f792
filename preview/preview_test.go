package preview

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/svgdeck/pptx"
)

func writeDeck(t *testing.T, slides int) string {
	t.Helper()
	d, err := pptx.New(pptx.DefaultSize)
	require.NoError(t, err)
	_, err = d.EnsureSlides(slides)
	require.NoError(t, err)
	path := filepath.Join(t.TempDir(), "deck.pptx")
	require.NoError(t, d.Save(path))
	return path
}

func TestSummarize(t *testing.T) {
	slides, err := New(0).Summarize(writeDeck(t, 2))
	require.NoError(t, err)
	require.Len(t, slides, 2)
	assert.Equal(t, 1, slides[0].Index)
	assert.Equal(t, 2, slides[1].Index)
}

func TestRenderRejectsOutOfRange(t *testing.T) {
	deck := writeDeck(t, 1)
	err := New(0).Render(deck, 2, filepath.Join(t.TempDir(), "slide.png"))
	assert.ErrorContains(t, err, "out of range")
}

func TestMissingFile(t *testing.T) {
	_, err := New(0).Summarize(filepath.Join(t.TempDir(), "missing.pptx"))
	assert.Error(t, err)
}

func TestNewDefaultsWidth(t *testing.T) {
	assert.Equal(t, DefaultWidth, New(-1).Width)
	assert.Equal(t, 640, New(640).Width)
}
