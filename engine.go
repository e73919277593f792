// Package svgdeck places SVG graphics onto slides of PPTX documents.
package svgdeck

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/flanksource/commons/logger"

	"github.com/flanksource/svgdeck/graphic"
	"github.com/flanksource/svgdeck/naming"
	"github.com/flanksource/svgdeck/pptx"
	"github.com/flanksource/svgdeck/rasterize"
	"github.com/flanksource/svgdeck/units"
)

var log = logger.GetLogger("svgdeck")

// Rasterizer renders the PNG fallback stored next to each SVG picture.
type Rasterizer interface {
	Render(markup []byte, options *rasterize.Options) ([]byte, int, int, error)
}

// Engine runs insertions and slide edits against documents on disk.
type Engine struct {
	Config     Config
	Rasterizer Rasterizer
	Namer      naming.Namer

	canvas pptx.Size
}

// New validates cfg and returns an engine rendering fallbacks natively.
func New(cfg Config) (*Engine, error) {
	canvas, err := cfg.CanvasSize()
	if err != nil {
		return nil, wrap("configure", "", err)
	}
	if _, err := cfg.Unit(); err != nil {
		return nil, wrap("configure", "", err)
	}
	return &Engine{
		Config:     cfg,
		Rasterizer: rasterize.NewNative(),
		Namer:      naming.Namer{Now: time.Now},
		canvas:     canvas,
	}, nil
}

// AssumedUnit is the configured unit for bare numbers.
func (e *Engine) AssumedUnit() units.Unit {
	u, err := e.Config.Unit()
	if err != nil {
		return units.Inch
	}
	return u
}

// InsertRequest places one graphic on one slide.
type InsertRequest struct {
	Document string
	Graphic  string
	// Slide is 1-based; missing slides are appended as blanks.
	Slide           int
	Rect            Rect
	AssumedUnit     units.Unit
	Output          string
	CreateIfMissing bool
	KeepAspect      bool
}

// InsertResult reports where the graphic went.
type InsertResult struct {
	Output          string
	Slide           int
	Slides          int
	Placement       Placement
	Picture         pptx.PictureInfo
	DocumentCreated bool
	DocumentRebuilt bool
	GraphicCreated  bool
	Diagnostics     Diagnostics
}

// Insert places req.Graphic on slide req.Slide and saves the document.
// An unreadable document is rebuilt from scratch with req.Slide blank
// slides and the placement retried once.
func (e *Engine) Insert(ctx context.Context, req InsertRequest) (*InsertResult, error) {
	const op = "insert"
	res := &InsertResult{Slide: req.Slide}

	if req.Slide < 1 {
		return res, newError(IndexOutOfRange, op, req.Document, fmt.Errorf("slide %d: slides are numbered from 1", req.Slide))
	}
	if req.Document == "" {
		return res, newError(IOFailure, op, "", errors.New("no document path given"))
	}
	res.Output = e.outputPath(req.Document, req.Output, naming.Insertion)

	g, err := graphic.Load(req.Graphic, req.CreateIfMissing)
	if err != nil {
		return res, wrap(op, req.Graphic, err)
	}
	if g.Created {
		res.GraphicCreated = true
		res.Diagnostics.Addf("created placeholder graphic %s", req.Graphic)
	}

	doc, created, err := e.open(req.Document, req.CreateIfMissing)
	if err != nil {
		if KindOf(err) != DocumentUnreadable {
			return res, err
		}
		log.Warnf("%s is unreadable, rebuilding it: %v", req.Document, err)
		res.Diagnostics.Addf("document %s could not be read (%v); rebuilding it with %d blank slides", req.Document, err, req.Slide)
		if retryErr := e.rebuild(req, g, res); retryErr != nil {
			return res, &Error{Kind: DocumentUnreadable, Op: op, Path: req.Document, Err: errors.Join(err, retryErr)}
		}
		res.DocumentRebuilt = true
		return res, nil
	}
	if created {
		res.DocumentCreated = true
		res.Diagnostics.Addf("created document %s", req.Document)
	}

	if err := e.place(doc, g, req, res); err != nil {
		return res, err
	}
	if err := doc.Save(res.Output); err != nil {
		return res, wrap(op, res.Output, err)
	}
	log.Infof("placed %s on slide %d of %s", g.Name(), req.Slide, res.Output)
	return res, nil
}

func (e *Engine) rebuild(req InsertRequest, g *graphic.Graphic, res *InsertResult) error {
	doc, err := pptx.New(e.canvas)
	if err != nil {
		return err
	}
	if err := e.place(doc, g, req, res); err != nil {
		return err
	}
	return doc.Save(res.Output)
}

// place fills the document up to req.Slide and adds the picture.
func (e *Engine) place(doc *pptx.Document, g *graphic.Graphic, req InsertRequest, res *InsertResult) error {
	const op = "insert"
	added, err := doc.EnsureSlides(req.Slide)
	if err != nil {
		return wrap(op, req.Document, err)
	}
	if added > 0 {
		res.Diagnostics.Addf("appended %d blank slides", added)
	}

	info, err := graphic.Inspect(g.Markup)
	if err != nil {
		res.Diagnostics.Addf("could not read the size of %s: %v", g.Name(), err)
	}
	placement, err := req.Rect.Resolve(doc.SlideSize(), req.AssumedUnit, info.AspectRatio(), req.KeepAspect)
	if err != nil {
		return wrap(op, req.Document, err)
	}
	res.Placement = placement

	pic, err := doc.PlaceGraphic(req.Slide, pptx.Picture{
		Name:        g.Name(),
		Description: g.Path,
		SVG:         g.Markup,
		PNG:         e.fallback(g, placement, &res.Diagnostics),
		X:           placement.X,
		Y:           placement.Y,
		Width:       placement.Width,
		Height:      placement.Height,
	})
	if err != nil {
		return wrap(op, req.Document, err)
	}
	res.Picture = pic
	res.Slides = doc.SlideCount()
	return nil
}

// fallback renders the raster shown by readers without SVG support. On
// failure the picture falls back to a transparent pixel.
func (e *Engine) fallback(g *graphic.Graphic, p Placement, diags *Diagnostics) []byte {
	if e.Rasterizer == nil {
		return nil
	}
	data, _, _, err := e.Rasterizer.Render(g.Markup, &rasterize.Options{
		Width:     int(p.Width.Pixels()),
		Height:    int(p.Height.Pixels()),
		MaxPixels: e.Config.FallbackMaxPixels,
	})
	if err != nil {
		log.Debugf("no raster fallback for %s: %v", g.Name(), err)
		diags.Addf("no raster fallback for %s: %v", g.Name(), err)
		return nil
	}
	return data
}

// open reads path, creating an empty document when it is missing and
// create is set.
func (e *Engine) open(path string, create bool) (*pptx.Document, bool, error) {
	doc, err := pptx.Open(path)
	if err == nil {
		return doc, false, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, false, wrap("open", path, err)
	}
	if !create {
		return nil, false, newError(IOFailure, "open", path, err)
	}
	doc, err = pptx.New(e.canvas)
	if err != nil {
		return nil, false, wrap("create", path, err)
	}
	return doc, true, nil
}

// outputPath picks the file written for document: output itself, a
// synthesized name inside output when it is a directory, or the document.
func (e *Engine) outputPath(document, output, tag string) string {
	if output == "" {
		return document
	}
	if st, err := os.Stat(output); err == nil && st.IsDir() {
		ext := filepath.Ext(document)
		if ext == "" {
			ext = ".pptx"
		}
		base := strings.TrimSuffix(filepath.Base(document), filepath.Ext(document))
		return filepath.Join(output, e.Namer.Synthesize(base, tag)+ext)
	}
	return output
}
