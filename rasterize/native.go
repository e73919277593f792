package rasterize

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"image/png"
	"math"
	"os"
	"path/filepath"

	"github.com/srwiley/oksvg"
	"github.com/srwiley/rasterx"
)

// defaultSize is used for graphics without a usable intrinsic size.
const defaultSize = 400

// Native renders in-process with oksvg and rasterx. Text elements are not
// rendered.
type Native struct{}

func NewNative() *Native {
	return &Native{}
}

func (c *Native) Name() string {
	return "native"
}

func (c *Native) IsAvailable() bool {
	return true
}

func (c *Native) Convert(ctx context.Context, svgPath, outputPath string, options *Options) (*Result, error) {
	markup, err := os.ReadFile(svgPath)
	if err != nil {
		return nil, newError(c.Name(), "read SVG", err)
	}
	data, w, h, err := c.Render(markup, options)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return nil, newError(c.Name(), "create output directory", err)
	}
	if err := os.WriteFile(outputPath, data, 0644); err != nil {
		return nil, newError(c.Name(), "write PNG", err)
	}
	return &Result{Path: outputPath, Width: w, Height: h, Converter: c.Name()}, nil
}

// Render rasterizes markup and returns the encoded PNG with its size.
func (c *Native) Render(markup []byte, options *Options) ([]byte, int, int, error) {
	if options == nil {
		options = DefaultOptions()
	}

	icon, err := oksvg.ReadIconStream(bytes.NewReader(markup), oksvg.IgnoreErrorMode)
	if err != nil {
		return nil, 0, 0, newError(c.Name(), "parse SVG", err)
	}

	w, h := targetSize(icon.ViewBox.W, icon.ViewBox.H, options)
	if w <= 0 || h <= 0 {
		return nil, 0, 0, newError(c.Name(), "size", fmt.Errorf("empty target %dx%d", w, h))
	}

	icon.SetTarget(0, 0, float64(w), float64(h))
	rgba := image.NewRGBA(image.Rect(0, 0, w, h))
	if bg, ok := parseHexColor(options.BackgroundColor); ok {
		draw.Draw(rgba, rgba.Bounds(), &image.Uniform{C: bg}, image.Point{}, draw.Src)
	}

	scanner := rasterx.NewScannerGV(w, h, rgba, rgba.Bounds())
	raster := rasterx.NewDasher(w, h, scanner)
	icon.Draw(raster, 1.0)

	var buf bytes.Buffer
	if err := png.Encode(&buf, rgba); err != nil {
		return nil, 0, 0, newError(c.Name(), "encode PNG", err)
	}
	return buf.Bytes(), w, h, nil
}

// targetSize resolves the output size from the requested size and the
// intrinsic size, keeping the aspect ratio and the MaxPixels bound.
func targetSize(intrinsicW, intrinsicH float64, options *Options) (int, int) {
	aspect := 1.0
	if intrinsicW > 0 && intrinsicH > 0 {
		aspect = intrinsicW / intrinsicH
	}

	w, h := float64(options.Width), float64(options.Height)
	switch {
	case w > 0 && h > 0:
	case w > 0:
		h = w / aspect
	case h > 0:
		w = h * aspect
	case intrinsicW > 0 && intrinsicH > 0:
		w, h = intrinsicW, intrinsicH
	case aspect >= 1:
		w, h = defaultSize, defaultSize/aspect
	default:
		w, h = defaultSize*aspect, defaultSize
	}

	if limit := float64(options.MaxPixels); limit > 0 {
		if longest := math.Max(w, h); longest > limit {
			w, h = w*limit/longest, h*limit/longest
		}
	}
	return max(1, int(math.Round(w))), max(1, int(math.Round(h)))
}

func parseHexColor(s string) (color.RGBA, bool) {
	var r, g, b uint8
	if len(s) == 7 && s[0] == '#' {
		if _, err := fmt.Sscanf(s, "#%02x%02x%02x", &r, &g, &b); err == nil {
			return color.RGBA{R: r, G: g, B: b, A: 0xff}, true
		}
	}
	return color.RGBA{}, false
}
