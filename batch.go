package svgdeck

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/flanksource/commons/logger"

	"github.com/flanksource/svgdeck/naming"
	"github.com/flanksource/svgdeck/units"
)

var batchLog = logger.GetLogger("batch")

// BatchItem is one graphic of a batch. Rect overrides the request's
// rectangle for this item only.
type BatchItem struct {
	Graphic string `json:"graphic"`
	Rect    *Rect  `json:"rect,omitempty"`
}

// BatchRequest places Items[i] on slide Start+i.
type BatchRequest struct {
	Document        string
	Items           []BatchItem
	Start           int
	Rect            Rect
	AssumedUnit     units.Unit
	Output          string
	CreateIfMissing bool
	KeepAspect      bool
	// ScratchDir overrides the configured snapshot directory.
	ScratchDir string
}

// ItemOutcome is the result of one batch step.
type ItemOutcome struct {
	Index       int
	Graphic     string
	Slide       int
	OK          bool
	Message     string
	Diagnostics Diagnostics
}

// BatchReport summarizes a batch run.
type BatchReport struct {
	Output      string
	Outcomes    []ItemOutcome
	Succeeded   int
	Failed      int
	Slides      int
	Diagnostics Diagnostics
}

// InsertBatch runs one insertion per item, chaining snapshots so that each
// step starts from the last successful one. A failed item is dropped from
// the result and never stops the run. Snapshots are removed at the end.
func (e *Engine) InsertBatch(ctx context.Context, req BatchRequest) (*BatchReport, error) {
	const op = "batch insert"
	report := &BatchReport{}

	if len(req.Items) == 0 {
		return report, newError(EmptyBatch, op, req.Document, ErrEmptyBatch)
	}
	if req.Start < 1 {
		return report, newError(IndexOutOfRange, op, req.Document, fmt.Errorf("start slide %d: slides are numbered from 1", req.Start))
	}
	if req.Document == "" {
		return report, newError(IOFailure, op, "", errors.New("no document path given"))
	}
	report.Output = e.outputPath(req.Document, req.Output, naming.Insertion)

	scratchDir := req.ScratchDir
	if scratchDir == "" {
		scratchDir = e.Config.ScratchDir
	}
	if scratchDir == "" {
		scratchDir = filepath.Dir(report.Output)
	}
	base := naming.Sanitize(strings.TrimSuffix(filepath.Base(req.Document), filepath.Ext(req.Document)))
	stamp := e.Namer.Synthesize("", "batch")

	var scratch []string
	defer func() {
		e.cleanup(scratch, &report.Diagnostics)
	}()

	source, lastGood := req.Document, ""
	last := len(req.Items) - 1
	for i, item := range req.Items {
		outcome := ItemOutcome{Index: i + 1, Graphic: item.Graphic, Slide: req.Start + i}

		if err := ctx.Err(); err != nil {
			outcome.Message = fmt.Sprintf("skipped: %v", err)
			report.Outcomes = append(report.Outcomes, outcome)
			report.Failed++
			continue
		}

		target := report.Output
		if i < last {
			target = filepath.Join(scratchDir, fmt.Sprintf("%s%s_%d.pptx", base, stamp, i+1))
			scratch = append(scratch, target)
		}

		rect := req.Rect
		if item.Rect != nil {
			rect = *item.Rect
		}
		res, err := e.Insert(ctx, InsertRequest{
			Document:        source,
			Graphic:         item.Graphic,
			Slide:           outcome.Slide,
			Rect:            rect,
			AssumedUnit:     req.AssumedUnit,
			Output:          target,
			CreateIfMissing: req.CreateIfMissing,
			KeepAspect:      req.KeepAspect,
		})
		if res != nil {
			outcome.Diagnostics = res.Diagnostics
		}
		if err != nil {
			batchLog.Warnf("item %d (%s) failed: %v", i+1, item.Graphic, err)
			outcome.Message = err.Error()
			report.Failed++
		} else {
			outcome.OK = true
			outcome.Message = fmt.Sprintf("placed on slide %d", outcome.Slide)
			report.Succeeded++
			report.Slides = res.Slides
			source, lastGood = target, target
		}
		report.Outcomes = append(report.Outcomes, outcome)
	}

	if !report.Outcomes[last].OK && lastGood != "" && lastGood != report.Output {
		if err := promote(lastGood, report.Output); err != nil {
			return report, newError(IOFailure, op, report.Output, fmt.Errorf("promoting %s: %w", lastGood, err))
		}
		report.Diagnostics.Addf("last item failed; kept the result of item %d", lastSuccess(report.Outcomes))
	}
	batchLog.Infof("%d of %d items placed in %s", report.Succeeded, len(req.Items), report.Output)
	return report, nil
}

func lastSuccess(outcomes []ItemOutcome) int {
	for i := len(outcomes) - 1; i >= 0; i-- {
		if outcomes[i].OK {
			return outcomes[i].Index
		}
	}
	return 0
}

// cleanup removes snapshots; failures are reported but never fatal.
func (e *Engine) cleanup(paths []string, diags *Diagnostics) {
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) {
			batchLog.Errorf("failed to remove snapshot %s: %v", p, err)
			diags.Addf("could not remove snapshot %s: %v", p, err)
		}
	}
}

// promote moves src over dst, copying when a rename crosses devices.
func promote(src, dst string) error {
	if err := os.MkdirAll(filepath.Dir(dst), 0755); err != nil {
		return err
	}
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}
