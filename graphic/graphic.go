// Package graphic loads SVG markup for placement, synthesizes placeholder
// graphics and reads their intrinsic dimensions.
package graphic

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	svgo "github.com/ajstarks/svgo"
	"github.com/flanksource/commons/logger"
	svgparse "github.com/rustyoz/svg"

	"github.com/flanksource/svgdeck/units"
)

var log = logger.GetLogger("graphic")

// ErrMissing is returned when a graphic file does not exist and no
// placeholder was requested.
var ErrMissing = errors.New("graphic not found")

// Placeholder canvas, in pixels.
const (
	PlaceholderWidth  = 800
	PlaceholderHeight = 450
)

// Graphic is SVG markup read from disk.
type Graphic struct {
	Path   string
	Markup []byte
	// Created is set when Markup is a placeholder written by Load.
	Created bool
}

// Name is the file name, used to label picture frames.
func (g *Graphic) Name() string {
	return filepath.Base(g.Path)
}

// Load reads the graphic at path. When the file is missing and
// createIfMissing is set, a placeholder is written there first.
func Load(path string, createIfMissing bool) (*Graphic, error) {
	data, err := os.ReadFile(path)
	if err == nil {
		return &Graphic{Path: path, Markup: data}, nil
	}
	if !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if !createIfMissing {
		return nil, fmt.Errorf("%w: %s", ErrMissing, path)
	}

	markup := Placeholder(PlaceholderWidth, PlaceholderHeight, filepath.Base(path))
	if err := write(path, markup); err != nil {
		return nil, err
	}
	log.Infof("created placeholder graphic %s", path)
	return &Graphic{Path: path, Markup: markup, Created: true}, nil
}

// Placeholder renders a labelled frame of w x h pixels.
func Placeholder(w, h int, label string) []byte {
	var buf bytes.Buffer
	canvas := svgo.New(&buf)
	canvas.Start(w, h)
	canvas.Rect(0, 0, w, h, "fill:#f4f4f5;stroke:none")
	canvas.Rect(8, 8, w-16, h-16, "fill:none;stroke:#a1a1aa;stroke-width:4;stroke-dasharray:16,8")
	canvas.Line(8, 8, w-8, h-8, "stroke:#d4d4d8;stroke-width:2")
	canvas.Line(w-8, 8, 8, h-8, "stroke:#d4d4d8;stroke-width:2")
	if label != "" {
		canvas.Text(w/2, h/2, label, "text-anchor:middle;dominant-baseline:middle;font-family:sans-serif;font-size:32px;fill:#52525b")
	}
	canvas.End()
	return buf.Bytes()
}

// Save writes markup to path, creating parent directories. Markup that
// does not parse as SVG is rejected before anything is written.
func Save(path string, markup []byte) error {
	if _, err := Inspect(markup); err != nil {
		return err
	}
	return write(path, markup)
}

func write(path string, markup []byte) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("creating %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(path, markup, 0644); err != nil {
		return fmt.Errorf("writing %s: %w", path, err)
	}
	return nil
}

// Info is the intrinsic geometry of a graphic in CSS pixels.
type Info struct {
	Width   float64
	Height  float64
	ViewBox []float64
}

// AspectRatio is width over height, 0 when unknown.
func (i Info) AspectRatio() float64 {
	if i.Width <= 0 || i.Height <= 0 {
		return 0
	}
	return i.Width / i.Height
}

// Inspect parses markup and reports its intrinsic size. width and height
// attributes win; a viewBox fills in whatever they leave out.
func Inspect(markup []byte) (Info, error) {
	if !bytes.Contains(markup, []byte("<svg")) {
		return Info{}, fmt.Errorf("invalid SVG: no <svg> element")
	}
	doc, err := svgparse.ParseSvg(string(markup), "graphic", 1.0)
	if err != nil {
		return Info{}, fmt.Errorf("invalid SVG: %w", err)
	}

	info := Info{ViewBox: parseViewBox(doc.ViewBox)}
	info.Width = parseDimension(doc.Width)
	info.Height = parseDimension(doc.Height)
	if len(info.ViewBox) == 4 {
		if info.Width == 0 {
			info.Width = info.ViewBox[2]
		}
		if info.Height == 0 {
			info.Height = info.ViewBox[3]
		}
	}
	return info, nil
}

// parseDimension converts an SVG length attribute to pixels. Percentages
// and unparsable values yield 0.
func parseDimension(attr string) float64 {
	attr = strings.TrimSpace(attr)
	if attr == "" || strings.HasSuffix(attr, "%") {
		return 0
	}
	px, err := units.ToUnit(attr, units.Pixel, nil)
	if err != nil || px < 0 {
		return 0
	}
	return px
}

func parseViewBox(attr string) []float64 {
	fields := strings.FieldsFunc(attr, func(r rune) bool { return r == ' ' || r == ',' || r == '\t' || r == '\n' })
	if len(fields) != 4 {
		return nil
	}
	out := make([]float64, 4)
	for i, f := range fields {
		v, err := strconv.ParseFloat(f, 64)
		if err != nil {
			return nil
		}
		out[i] = v
	}
	return out
}
