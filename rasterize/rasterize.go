// Package rasterize turns SVG graphics into PNG images, either natively or
// through external renderers, reporting the pixel size produced.
package rasterize

import (
	"context"
	"fmt"
	"image/png"
	"os"

	"github.com/flanksource/commons/logger"
)

var log = logger.GetLogger("rasterize")

// DefaultMaxPixels bounds the longest side of a rendered image.
const DefaultMaxPixels = 2048

// Converter renders an SVG file into a PNG file.
type Converter interface {
	Name() string
	IsAvailable() bool
	Convert(ctx context.Context, svgPath, outputPath string, options *Options) (*Result, error)
}

// Options controls the rendered size. Zero Width and Height mean the
// graphic's intrinsic size; setting one derives the other from the aspect
// ratio.
type Options struct {
	Width           int
	Height          int
	DPI             int
	BackgroundColor string
	MaxPixels       int
}

func DefaultOptions() *Options {
	return &Options{DPI: 96, MaxPixels: DefaultMaxPixels}
}

// Result describes a rendered image.
type Result struct {
	Path      string
	Width     int
	Height    int
	Converter string
}

// Error wraps a failure of one converter step.
type Error struct {
	Converter string
	Operation string
	Err       error
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s converter %s failed: %v", e.Converter, e.Operation, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(converter, operation string, err error) error {
	return &Error{Converter: converter, Operation: operation, Err: err}
}

// pngResult reads the pixel size of a PNG written by an external renderer.
func pngResult(name, path string) (*Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, newError(name, "read output", err)
	}
	defer f.Close()
	cfg, err := png.DecodeConfig(f)
	if err != nil {
		return nil, newError(name, "decode output", err)
	}
	return &Result{Path: path, Width: cfg.Width, Height: cfg.Height, Converter: name}, nil
}
