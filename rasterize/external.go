package rasterize

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/flanksource/svgdeck/exec"
)

// RSVG renders with rsvg-convert.
type RSVG struct{}

func NewRSVG() *RSVG {
	return &RSVG{}
}

func (c *RSVG) Name() string {
	return "rsvg-convert"
}

func (c *RSVG) IsAvailable() bool {
	return exec.Available("rsvg-convert")
}

func (c *RSVG) Convert(ctx context.Context, svgPath, outputPath string, options *Options) (*Result, error) {
	if !c.IsAvailable() {
		return nil, newError(c.Name(), "convert", fmt.Errorf("rsvg-convert not found in PATH"))
	}
	if options == nil {
		options = DefaultOptions()
	}

	args := []string{"--format=png"}
	if options.Width > 0 {
		args = append(args, "--width="+strconv.Itoa(options.Width))
	}
	if options.Height > 0 {
		args = append(args, "--height="+strconv.Itoa(options.Height))
	}
	if options.Width > 0 && options.Height == 0 || options.Height > 0 && options.Width == 0 {
		args = append(args, "--keep-aspect-ratio")
	}
	if options.DPI > 0 {
		args = append(args, "--dpi-x="+strconv.Itoa(options.DPI), "--dpi-y="+strconv.Itoa(options.DPI))
	}
	if options.BackgroundColor != "" {
		args = append(args, "--background-color="+options.BackgroundColor)
	}
	args = append(args, "--output="+outputPath, svgPath)

	if err := run(ctx, c.Name(), outputPath, "rsvg-convert", args...); err != nil {
		return nil, err
	}
	return pngResult(c.Name(), outputPath)
}

// Inkscape renders with the inkscape command line (1.x syntax).
type Inkscape struct{}

func NewInkscape() *Inkscape {
	return &Inkscape{}
}

func (c *Inkscape) Name() string {
	return "inkscape"
}

func (c *Inkscape) IsAvailable() bool {
	return exec.Available("inkscape")
}

func (c *Inkscape) Convert(ctx context.Context, svgPath, outputPath string, options *Options) (*Result, error) {
	if !c.IsAvailable() {
		return nil, newError(c.Name(), "convert", fmt.Errorf("inkscape not found in PATH"))
	}
	if options == nil {
		options = DefaultOptions()
	}

	args := []string{svgPath, "--export-filename=" + outputPath, "--export-type=png"}
	if options.Width > 0 {
		args = append(args, "--export-width="+strconv.Itoa(options.Width))
	}
	if options.Height > 0 {
		args = append(args, "--export-height="+strconv.Itoa(options.Height))
	}
	if options.DPI > 0 {
		args = append(args, "--export-dpi="+strconv.Itoa(options.DPI))
	}
	if options.BackgroundColor != "" {
		args = append(args, "--export-background="+options.BackgroundColor)
	}

	if err := run(ctx, c.Name(), outputPath, "inkscape", args...); err != nil {
		return nil, err
	}
	return pngResult(c.Name(), outputPath)
}

func run(ctx context.Context, name, outputPath, bin string, args ...string) error {
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return newError(name, "create output directory", err)
	}
	if err := exec.New(bin, args...).WithLogger(log).Run(ctx); err != nil {
		return newError(name, "convert", err)
	}
	return nil
}
