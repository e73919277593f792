package svgdeck

import (
	"context"
	"os"
	"time"

	"github.com/flanksource/svgdeck/naming"
	"github.com/flanksource/svgdeck/pptx"
)

// SlideRequest addresses one slide of a document.
type SlideRequest struct {
	Document        string
	Slide           int
	Output          string
	CreateIfMissing bool
}

// MoveRequest moves the slide at From so that it ends up at To.
type MoveRequest struct {
	Document string
	From     int
	To       int
	Output   string
}

// SlideResult is the state of a document after a slide edit.
type SlideResult struct {
	Output      string
	Slides      int
	Diagnostics Diagnostics
}

// DeleteSlide removes a slide; later slides shift down by one.
func (e *Engine) DeleteSlide(ctx context.Context, req SlideRequest) (*SlideResult, error) {
	const op = "delete slide"
	res := &SlideResult{Output: e.outputPath(req.Document, req.Output, naming.Deletion)}
	doc, _, err := e.open(req.Document, false)
	if err != nil {
		return res, err
	}
	if _, err := doc.RemoveSlide(req.Slide); err != nil {
		return res, wrap(op, req.Document, err)
	}
	return res, e.save(op, doc, res)
}

// InsertBlankSlide inserts a blank slide at req.Slide, 1 through count+1.
func (e *Engine) InsertBlankSlide(ctx context.Context, req SlideRequest) (*SlideResult, error) {
	const op = "insert blank slide"
	res := &SlideResult{Output: e.outputPath(req.Document, req.Output, naming.Insertion)}
	doc, created, err := e.open(req.Document, req.CreateIfMissing)
	if err != nil {
		return res, err
	}
	if created {
		res.Diagnostics.Addf("created document %s", req.Document)
	}
	if _, err := doc.InsertBlankSlide(req.Slide); err != nil {
		return res, wrap(op, req.Document, err)
	}
	return res, e.save(op, doc, res)
}

// MoveSlide reorders one slide.
func (e *Engine) MoveSlide(ctx context.Context, req MoveRequest) (*SlideResult, error) {
	const op = "move slide"
	res := &SlideResult{Output: e.outputPath(req.Document, req.Output, naming.Output)}
	doc, _, err := e.open(req.Document, false)
	if err != nil {
		return res, err
	}
	if err := doc.MoveSlide(req.From, req.To); err != nil {
		return res, wrap(op, req.Document, err)
	}
	return res, e.save(op, doc, res)
}

func (e *Engine) save(op string, doc *pptx.Document, res *SlideResult) error {
	if err := doc.Save(res.Output); err != nil {
		return wrap(op, res.Output, err)
	}
	res.Slides = doc.SlideCount()
	log.Infof("%s: %s now has %d slides", op, res.Output, res.Slides)
	return nil
}

// DeckInfo describes a document on disk.
type DeckInfo struct {
	Path     string
	Size     int64
	Modified time.Time
	Slides   int
	Canvas   pptx.Size
	Pictures [][]pptx.PictureInfo
}

// WidthIn and the other accessors project the canvas for display.
func (d DeckInfo) WidthIn() float64  { return d.Canvas.Width.Inches() }
func (d DeckInfo) HeightIn() float64 { return d.Canvas.Height.Inches() }
func (d DeckInfo) WidthCm() float64  { return d.Canvas.Width.Centimeters() }
func (d DeckInfo) HeightCm() float64 { return d.Canvas.Height.Centimeters() }

// AspectRatio is the canvas width over height.
func (d DeckInfo) AspectRatio() float64 {
	if d.Canvas.Height == 0 {
		return 0
	}
	return float64(d.Canvas.Width) / float64(d.Canvas.Height)
}

// Info reads path without modifying it.
func (e *Engine) Info(path string) (*DeckInfo, error) {
	const op = "info"
	st, err := os.Stat(path)
	if err != nil {
		return nil, newError(IOFailure, op, path, err)
	}
	doc, err := pptx.Open(path)
	if err != nil {
		return nil, wrap(op, path, err)
	}
	info := &DeckInfo{
		Path:     path,
		Size:     st.Size(),
		Modified: st.ModTime(),
		Slides:   doc.SlideCount(),
		Canvas:   doc.SlideSize(),
	}
	for i := 1; i <= info.Slides; i++ {
		pics, err := doc.Pictures(i)
		if err != nil {
			return nil, wrap(op, path, err)
		}
		info.Pictures = append(info.Pictures, pics)
	}
	return info, nil
}

// Canvas is the slide size given to new documents.
func (e *Engine) Canvas() pptx.Size {
	return e.canvas
}
