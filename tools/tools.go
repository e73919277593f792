// Package tools is the operation surface exposed on the command line and
// over MCP. Every tool returns a human-readable status string; failures and
// panics are reported in the string rather than as errors.
package tools

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/flanksource/commons/logger"
	"github.com/samber/lo"

	"github.com/flanksource/svgdeck"
	"github.com/flanksource/svgdeck/graphic"
	"github.com/flanksource/svgdeck/naming"
	"github.com/flanksource/svgdeck/preview"
	"github.com/flanksource/svgdeck/rasterize"
)

var log = logger.GetLogger("tools")

// Tools binds the engine and its collaborators.
type Tools struct {
	Engine      *svgdeck.Engine
	Rasterizers *rasterize.Manager
	Preview     *preview.Renderer
	Namer       naming.Namer
}

// New builds the tool set for cfg.
func New(cfg svgdeck.Config) (*Tools, error) {
	engine, err := svgdeck.New(cfg)
	if err != nil {
		return nil, err
	}
	manager := rasterize.NewManager(cfg.Playwright)
	if cfg.Rasterizer != "" {
		if err := manager.SetPreferred(cfg.Rasterizer); err != nil {
			log.Warnf("ignoring preferred rasterizer: %v", err)
		}
	}
	return &Tools{
		Engine:      engine,
		Rasterizers: manager,
		Preview:     preview.New(cfg.PreviewWidth),
		Namer:       engine.Namer,
	}, nil
}

func (t *Tools) Close() error {
	if t.Rasterizers == nil {
		return nil
	}
	return t.Rasterizers.Close()
}

func (t *Tools) config() svgdeck.Config {
	return t.Engine.Config
}

// guard runs fn and turns its error or panic into a status string. The
// status fn returned is kept as context after the error line.
func guard(op string, fn func() (string, error)) (status string) {
	defer func() {
		if r := recover(); r != nil {
			log.Errorf("%s panicked: %v", op, r)
			status = fmt.Sprintf("Error: %s failed unexpectedly: %v", op, r)
		}
	}()
	out, err := fn()
	if err == nil {
		return out
	}
	log.Debugf("%s failed: %v", op, err)
	msg := fmt.Sprintf("Error: %s failed [%s]: %v", op, svgdeck.KindOf(err), err)
	if out != "" {
		msg += "\n" + out
	}
	return msg
}

func withDiagnostics(status string, diags svgdeck.Diagnostics) string {
	if len(diags) == 0 {
		return status
	}
	lines := lo.Map(diags, func(d string, _ int) string { return "  - " + d })
	return status + "\nNotes:\n" + strings.Join(lines, "\n")
}

// documentPath falls back to a fresh presentation_<timestamp>.pptx.
func (t *Tools) documentPath(path string, diags *svgdeck.Diagnostics) string {
	if strings.TrimSpace(path) != "" {
		return path
	}
	path = t.Namer.Synthesize("presentation", naming.Creation) + ".pptx"
	diags.Addf("no document path given, using %s", path)
	return path
}

// InsertArgs are the arguments of insert_svg.
type InsertArgs struct {
	PPTXPath        string
	SVGPath         string
	Slide           int
	X               string
	Y               string
	Width           string
	Height          string
	OutputPath      string
	CreateIfMissing bool
	KeepAspect      bool
}

func (a InsertArgs) rect() svgdeck.Rect {
	return svgdeck.Rect{X: a.X, Y: a.Y, Width: a.Width, Height: a.Height}
}

// InsertSVG places one SVG on one slide.
func (t *Tools) InsertSVG(ctx context.Context, args InsertArgs) string {
	return guard("insert_svg", func() (string, error) {
		var notes svgdeck.Diagnostics
		doc := t.documentPath(args.PPTXPath, &notes)
		res, err := t.Engine.Insert(ctx, svgdeck.InsertRequest{
			Document:        doc,
			Graphic:         args.SVGPath,
			Slide:           args.Slide,
			Rect:            args.rect(),
			AssumedUnit:     t.Engine.AssumedUnit(),
			Output:          args.OutputPath,
			CreateIfMissing: args.CreateIfMissing,
			KeepAspect:      args.KeepAspect,
		})
		if res != nil {
			notes = append(notes, res.Diagnostics...)
		}
		if err != nil {
			return withDiagnostics("", notes), err
		}
		status := fmt.Sprintf("Inserted %s into %s on slide %d of %d at %s",
			args.SVGPath, res.Output, res.Slide, res.Slides, res.Placement)
		return withDiagnostics(status, notes), nil
	})
}

// BatchArgs are the arguments of batch_insert_svgs. SVGPaths come first,
// followed by the *.svg files of SVGDir in name order.
type BatchArgs struct {
	PPTXPath        string
	SVGPaths        []string
	SVGDir          string
	Start           int
	X               string
	Y               string
	Width           string
	Height          string
	OutputPath      string
	CreateIfMissing bool
	KeepAspect      bool
}

// BatchInsertSVGs places each graphic on its own consecutive slide.
func (t *Tools) BatchInsertSVGs(ctx context.Context, args BatchArgs) string {
	return guard("batch_insert_svgs", func() (string, error) {
		var notes svgdeck.Diagnostics
		paths := append([]string{}, args.SVGPaths...)
		if args.SVGDir != "" {
			found, err := svgFiles(args.SVGDir)
			if err != nil {
				return "", err
			}
			paths = append(paths, found...)
		}
		doc := t.documentPath(args.PPTXPath, &notes)
		start := args.Start
		if start == 0 {
			start = 1
		}

		report, err := t.Engine.InsertBatch(ctx, svgdeck.BatchRequest{
			Document:        doc,
			Items:           lo.Map(paths, func(p string, _ int) svgdeck.BatchItem { return svgdeck.BatchItem{Graphic: p} }),
			Start:           start,
			Rect:            svgdeck.Rect{X: args.X, Y: args.Y, Width: args.Width, Height: args.Height},
			AssumedUnit:     t.Engine.AssumedUnit(),
			Output:          args.OutputPath,
			CreateIfMissing: args.CreateIfMissing,
			KeepAspect:      args.KeepAspect,
		})
		if err != nil {
			return withDiagnostics("", notes), err
		}

		lines := []string{fmt.Sprintf("Batch finished: %d of %d graphics placed, saved to %s",
			report.Succeeded, len(report.Outcomes), report.Output)}
		for _, o := range report.Outcomes {
			if o.OK {
				lines = append(lines, fmt.Sprintf("  [ok] %s -> slide %d", o.Graphic, o.Slide))
			} else {
				lines = append(lines, fmt.Sprintf("  [failed] %s -> slide %d: %s", o.Graphic, o.Slide, o.Message))
			}
			notes = append(notes, o.Diagnostics...)
		}
		notes = append(notes, report.Diagnostics...)
		return withDiagnostics(strings.Join(lines, "\n"), notes), nil
	})
}

func svgFiles(dir string) ([]string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, &svgdeck.Error{Kind: svgdeck.IOFailure, Op: "list graphics", Path: dir, Err: err}
	}
	names := lo.FilterMap(entries, func(e os.DirEntry, _ int) (string, bool) {
		return e.Name(), !e.IsDir() && strings.EqualFold(filepath.Ext(e.Name()), ".svg")
	})
	sort.Strings(names)
	return lo.Map(names, func(n string, _ int) string { return filepath.Join(dir, n) }), nil
}

// SlideArgs address one slide for delete_slide and insert_blank_slide.
type SlideArgs struct {
	PPTXPath        string
	Slide           int
	OutputPath      string
	CreateIfMissing bool
}

func (t *Tools) DeleteSlide(ctx context.Context, args SlideArgs) string {
	return guard("delete_slide", func() (string, error) {
		res, err := t.Engine.DeleteSlide(ctx, svgdeck.SlideRequest{
			Document: args.PPTXPath,
			Slide:    args.Slide,
			Output:   args.OutputPath,
		})
		if err != nil {
			return "", err
		}
		return withDiagnostics(fmt.Sprintf("Deleted slide %d; %s now has %d slides", args.Slide, res.Output, res.Slides), res.Diagnostics), nil
	})
}

func (t *Tools) InsertBlankSlide(ctx context.Context, args SlideArgs) string {
	return guard("insert_blank_slide", func() (string, error) {
		var notes svgdeck.Diagnostics
		res, err := t.Engine.InsertBlankSlide(ctx, svgdeck.SlideRequest{
			Document:        t.documentPath(args.PPTXPath, &notes),
			Slide:           args.Slide,
			Output:          args.OutputPath,
			CreateIfMissing: args.CreateIfMissing,
		})
		if res != nil {
			notes = append(notes, res.Diagnostics...)
		}
		if err != nil {
			return withDiagnostics("", notes), err
		}
		return withDiagnostics(fmt.Sprintf("Inserted a blank slide at %d; %s now has %d slides", args.Slide, res.Output, res.Slides), notes), nil
	})
}

// MoveArgs are the arguments of move_slide.
type MoveArgs struct {
	PPTXPath   string
	From       int
	To         int
	OutputPath string
}

func (t *Tools) MoveSlide(ctx context.Context, args MoveArgs) string {
	return guard("move_slide", func() (string, error) {
		res, err := t.Engine.MoveSlide(ctx, svgdeck.MoveRequest{
			Document: args.PPTXPath,
			From:     args.From,
			To:       args.To,
			Output:   args.OutputPath,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("Moved slide %d to %d in %s", args.From, args.To, res.Output), nil
	})
}

// SaveArgs are the arguments of save_svg_code.
type SaveArgs struct {
	Code string
	Path string
}

// SaveSVGCode validates markup and writes it to a file.
func (t *Tools) SaveSVGCode(args SaveArgs) string {
	return guard("save_svg_code", func() (string, error) {
		path := args.Path
		if path == "" {
			path = t.Namer.Synthesize("graphic", naming.Creation) + ".svg"
		}
		if err := graphic.Save(path, []byte(args.Code)); err != nil {
			return "", &svgdeck.Error{Kind: svgdeck.IOFailure, Op: "save svg", Path: path, Err: err}
		}
		info, _ := graphic.Inspect([]byte(args.Code))
		return fmt.Sprintf("Saved SVG to %s (%.0fx%.0fpx)", path, info.Width, info.Height), nil
	})
}

// ConvertArgs are the arguments of convert_svg_to_png.
type ConvertArgs struct {
	SVGPath    string
	OutputPath string
	Width      int
	Height     int
	Background string
}

func (t *Tools) ConvertSVGToPNG(ctx context.Context, args ConvertArgs) string {
	return guard("convert_svg_to_png", func() (string, error) {
		if _, err := os.Stat(args.SVGPath); err != nil {
			return "", &svgdeck.Error{Kind: svgdeck.GraphicMissing, Op: "convert", Path: args.SVGPath, Err: err}
		}
		out := args.OutputPath
		if out == "" {
			out = strings.TrimSuffix(args.SVGPath, filepath.Ext(args.SVGPath)) + ".png"
		}
		opts := rasterize.DefaultOptions()
		opts.Width, opts.Height = args.Width, args.Height
		opts.BackgroundColor = args.Background
		opts.MaxPixels = t.config().FallbackMaxPixels

		res, err := t.Rasterizers.Convert(ctx, args.SVGPath, out, opts)
		if err != nil {
			return "", &svgdeck.Error{Kind: svgdeck.IOFailure, Op: "convert", Path: args.SVGPath, Err: err}
		}
		return fmt.Sprintf("Converted %s to %s with %s\nWidth: %dpx\nHeight: %dpx",
			args.SVGPath, res.Path, res.Converter, res.Width, res.Height), nil
	})
}

// RenderArgs are the arguments of render_slide.
type RenderArgs struct {
	PPTXPath   string
	Slide      int
	OutputPath string
}

// RenderSlide writes a PNG preview of one slide.
func (t *Tools) RenderSlide(args RenderArgs) string {
	return guard("render_slide", func() (string, error) {
		out := args.OutputPath
		if out == "" {
			out = fmt.Sprintf("%s_slide%d.png", strings.TrimSuffix(args.PPTXPath, filepath.Ext(args.PPTXPath)), args.Slide)
		}
		if err := t.Preview.Render(args.PPTXPath, args.Slide, out); err != nil {
			kind := svgdeck.KindOf(err)
			if kind == svgdeck.KindUnknown {
				kind = svgdeck.IOFailure
			}
			return "", &svgdeck.Error{Kind: kind, Op: "render slide", Path: args.PPTXPath, Err: err}
		}
		return fmt.Sprintf("Rendered slide %d of %s to %s", args.Slide, args.PPTXPath, out), nil
	})
}
