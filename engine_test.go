package svgdeck

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/flanksource/svgdeck/naming"
	"github.com/flanksource/svgdeck/pptx"
	"github.com/flanksource/svgdeck/rasterize"
	"github.com/flanksource/svgdeck/units"
)

const squareSVG = `<svg xmlns="http://www.w3.org/2000/svg" width="100" height="100" viewBox="0 0 100 100"><rect width="100" height="100" fill="#336699"/></svg>`

type stubRasterizer struct {
	err   error
	calls int
}

func (s *stubRasterizer) Render(markup []byte, options *rasterize.Options) ([]byte, int, int, error) {
	s.calls++
	if s.err != nil {
		return nil, 0, 0, s.err
	}
	return nil, options.Width, options.Height, nil
}

func fixedClock() time.Time {
	return time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
}

func newTestEngine(t *testing.T) (*Engine, *stubRasterizer) {
	t.Helper()
	e, err := New(DefaultConfig())
	require.NoError(t, err)
	r := &stubRasterizer{}
	e.Rasterizer = r
	e.Namer = naming.Namer{Now: fixedClock}
	return e, r
}

func writeDeck(t *testing.T, path string, slides int) {
	t.Helper()
	doc, err := pptx.New(pptx.Size{Width: units.Inches(16), Height: units.Inches(9)})
	require.NoError(t, err)
	_, err = doc.EnsureSlides(slides)
	require.NoError(t, err)
	require.NoError(t, doc.Save(path))
}

func writeSVG(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(squareSVG), 0644))
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Canvas.Width = "wide"
	_, err := New(cfg)
	require.Error(t, err)
	assert.Equal(t, InvalidExpression, KindOf(err))

	cfg = DefaultConfig()
	cfg.AssumedUnit = "%"
	_, err = New(cfg)
	require.Error(t, err)
	assert.Equal(t, UnsupportedUnit, KindOf(err))
}

func TestInsertAppendsMissingSlides(t *testing.T) {
	e, r := newTestEngine(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "deck.pptx")
	svg := filepath.Join(dir, "chart.svg")
	writeDeck(t, doc, 1)
	writeSVG(t, svg)

	res, err := e.Insert(context.Background(), InsertRequest{
		Document:    doc,
		Graphic:     svg,
		Slide:       3,
		AssumedUnit: units.Inch,
	})
	require.NoError(t, err)
	assert.Equal(t, doc, res.Output)
	assert.Equal(t, 3, res.Slides)
	assert.False(t, res.DocumentCreated)
	assert.False(t, res.DocumentRebuilt)
	assert.Contains(t, res.Diagnostics.String(), "appended 2 blank slides")
	assert.Equal(t, 1, r.calls)

	assert.Equal(t, Placement{Width: 14630400, Height: 8229600}, res.Placement)

	info, err := e.Info(doc)
	require.NoError(t, err)
	assert.Equal(t, 3, info.Slides)
	require.Len(t, info.Pictures, 3)
	assert.Empty(t, info.Pictures[0])
	assert.Empty(t, info.Pictures[1])
	require.Len(t, info.Pictures[2], 1)
	pic := info.Pictures[2][0]
	assert.Equal(t, "chart.svg", pic.Name)
	assert.Equal(t, units.EMU(14630400), pic.Width)
	assert.Equal(t, units.EMU(8229600), pic.Height)
	assert.NotEmpty(t, pic.SVG)
}

func TestInsertKeepsEarlierGraphics(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "deck.pptx")
	a := filepath.Join(dir, "a.svg")
	b := filepath.Join(dir, "b.svg")
	writeSVG(t, a)
	writeSVG(t, b)

	first, err := e.Insert(context.Background(), InsertRequest{
		Document:        doc,
		Graphic:         a,
		Slide:           1,
		CreateIfMissing: true,
		AssumedUnit:     units.Inch,
	})
	require.NoError(t, err)
	assert.True(t, first.DocumentCreated)

	second, err := e.Insert(context.Background(), InsertRequest{
		Document:    doc,
		Graphic:     b,
		Slide:       2,
		AssumedUnit: units.Inch,
	})
	require.NoError(t, err)
	assert.False(t, second.DocumentCreated)
	assert.False(t, second.DocumentRebuilt)
	assert.NotContains(t, second.Diagnostics.String(), "could not be read")

	info, err := e.Info(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Slides)
	require.Len(t, info.Pictures, 2)
	require.Len(t, info.Pictures[0], 1)
	assert.Equal(t, "a.svg", info.Pictures[0][0].Name)
	require.Len(t, info.Pictures[1], 1)
	assert.Equal(t, "b.svg", info.Pictures[1][0].Name)
}

func TestInsertExplicitRect(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "deck.pptx")
	svg := filepath.Join(dir, "logo.svg")
	writeDeck(t, doc, 1)
	writeSVG(t, svg)

	res, err := e.Insert(context.Background(), InsertRequest{
		Document:    doc,
		Graphic:     svg,
		Slide:       1,
		Rect:        Rect{X: "1in", Y: "2.54cm", Width: "25%", Height: "72pt"},
		AssumedUnit: units.Inch,
	})
	require.NoError(t, err)
	assert.Equal(t, Placement{X: 914400, Y: 914400, Width: 3657600, Height: 914400}, res.Placement)
	assert.Equal(t, "1.00in,1.00in 4.00in x 1.00in", res.Placement.String())
}

func TestInsertCreatesDocumentAndGraphic(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "new.pptx")
	svg := filepath.Join(dir, "missing.svg")

	res, err := e.Insert(context.Background(), InsertRequest{
		Document:        doc,
		Graphic:         svg,
		Slide:           2,
		AssumedUnit:     units.Inch,
		CreateIfMissing: true,
	})
	require.NoError(t, err)
	assert.True(t, res.DocumentCreated)
	assert.True(t, res.GraphicCreated)
	assert.Equal(t, 2, res.Slides)
	assert.FileExists(t, doc)
	assert.FileExists(t, svg)
}

func TestInsertMissingWithoutCreate(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()
	svg := filepath.Join(dir, "chart.svg")
	writeSVG(t, svg)

	_, err := e.Insert(context.Background(), InsertRequest{
		Document: filepath.Join(dir, "absent.pptx"),
		Graphic:  svg,
		Slide:    1,
	})
	require.Error(t, err)
	assert.Equal(t, IOFailure, KindOf(err))

	_, err = e.Insert(context.Background(), InsertRequest{
		Document: filepath.Join(dir, "absent.pptx"),
		Graphic:  filepath.Join(dir, "absent.svg"),
		Slide:    1,
	})
	require.Error(t, err)
	assert.Equal(t, GraphicMissing, KindOf(err))
}

func TestInsertRejectsBadInput(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "deck.pptx")
	svg := filepath.Join(dir, "chart.svg")
	writeDeck(t, doc, 1)
	writeSVG(t, svg)

	_, err := e.Insert(context.Background(), InsertRequest{Document: doc, Graphic: svg, Slide: 0})
	assert.Equal(t, IndexOutOfRange, KindOf(err))

	_, err = e.Insert(context.Background(), InsertRequest{Graphic: svg, Slide: 1})
	assert.Equal(t, IOFailure, KindOf(err))

	_, err = e.Insert(context.Background(), InsertRequest{Document: doc, Graphic: svg, Slide: 1, Rect: Rect{X: "3ft"}})
	assert.Equal(t, UnsupportedUnit, KindOf(err))

	_, err = e.Insert(context.Background(), InsertRequest{Document: doc, Graphic: svg, Slide: 1, Rect: Rect{Width: "wide"}})
	assert.Equal(t, InvalidExpression, KindOf(err))
}

func TestInsertRebuildsUnreadableDocument(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "broken.pptx")
	svg := filepath.Join(dir, "chart.svg")
	require.NoError(t, os.WriteFile(doc, []byte("not a zip archive"), 0644))
	writeSVG(t, svg)

	res, err := e.Insert(context.Background(), InsertRequest{
		Document:    doc,
		Graphic:     svg,
		Slide:       4,
		AssumedUnit: units.Inch,
	})
	require.NoError(t, err)
	assert.True(t, res.DocumentRebuilt)
	assert.Equal(t, 4, res.Slides)
	assert.Contains(t, res.Diagnostics.String(), "could not be read")

	reopened, err := pptx.Open(doc)
	require.NoError(t, err)
	assert.Equal(t, 4, reopened.SlideCount())
}

func TestInsertRecordsFallbackFailure(t *testing.T) {
	e, r := newTestEngine(t)
	r.err = errors.New("no renderer")
	dir := t.TempDir()
	doc := filepath.Join(dir, "deck.pptx")
	svg := filepath.Join(dir, "chart.svg")
	writeDeck(t, doc, 1)
	writeSVG(t, svg)

	res, err := e.Insert(context.Background(), InsertRequest{Document: doc, Graphic: svg, Slide: 1})
	require.NoError(t, err)
	assert.Contains(t, res.Diagnostics.String(), "no raster fallback for chart.svg")
}

func TestInsertOutputDirectory(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()
	out := filepath.Join(dir, "out")
	require.NoError(t, os.Mkdir(out, 0755))
	doc := filepath.Join(dir, "deck_insertion_20230101_000000.pptx")
	svg := filepath.Join(dir, "chart.svg")
	writeDeck(t, doc, 1)
	writeSVG(t, svg)

	res, err := e.Insert(context.Background(), InsertRequest{Document: doc, Graphic: svg, Slide: 1, Output: out})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(out, "deck_insertion_20240301_103000.pptx"), res.Output)
	assert.FileExists(t, res.Output)

	original, err := pptx.Open(doc)
	require.NoError(t, err)
	pics, err := original.Pictures(1)
	require.NoError(t, err)
	assert.Empty(t, pics)
}

func TestSlideOperations(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "deck.pptx")
	svg := filepath.Join(dir, "chart.svg")
	writeDeck(t, doc, 3)
	writeSVG(t, svg)
	ctx := context.Background()

	_, err := e.Insert(ctx, InsertRequest{Document: doc, Graphic: svg, Slide: 3})
	require.NoError(t, err)

	res, err := e.MoveSlide(ctx, MoveRequest{Document: doc, From: 3, To: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Slides)

	info, err := e.Info(doc)
	require.NoError(t, err)
	assert.Len(t, info.Pictures[0], 1)
	assert.Empty(t, info.Pictures[2])

	res, err = e.InsertBlankSlide(ctx, SlideRequest{Document: doc, Slide: 1})
	require.NoError(t, err)
	assert.Equal(t, 4, res.Slides)

	res, err = e.DeleteSlide(ctx, SlideRequest{Document: doc, Slide: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, res.Slides)

	info, err = e.Info(doc)
	require.NoError(t, err)
	assert.Len(t, info.Pictures[0], 1)

	_, err = e.DeleteSlide(ctx, SlideRequest{Document: doc, Slide: 9})
	assert.Equal(t, IndexOutOfRange, KindOf(err))

	_, err = e.InsertBlankSlide(ctx, SlideRequest{Document: doc, Slide: 5})
	assert.Equal(t, IndexOutOfRange, KindOf(err))

	_, err = e.MoveSlide(ctx, MoveRequest{Document: doc, From: 0, To: 1})
	assert.Equal(t, IndexOutOfRange, KindOf(err))

	_, err = e.DeleteSlide(ctx, SlideRequest{Document: filepath.Join(dir, "absent.pptx"), Slide: 1})
	assert.Equal(t, IOFailure, KindOf(err))
}

func TestInfo(t *testing.T) {
	e, _ := newTestEngine(t)
	dir := t.TempDir()
	doc := filepath.Join(dir, "deck.pptx")
	writeDeck(t, doc, 2)

	info, err := e.Info(doc)
	require.NoError(t, err)
	assert.Equal(t, 2, info.Slides)
	assert.InDelta(t, 16, info.WidthIn(), 1e-9)
	assert.InDelta(t, 9, info.HeightIn(), 1e-9)
	assert.InDelta(t, 40.64, info.WidthCm(), 1e-9)
	assert.InDelta(t, 16.0/9.0, info.AspectRatio(), 1e-9)
	assert.Positive(t, info.Size)

	_, err = e.Info(filepath.Join(dir, "absent.pptx"))
	assert.Equal(t, IOFailure, KindOf(err))
}
