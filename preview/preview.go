// Package preview renders slides of a saved presentation to PNG images and
// reads back slide statistics through an independent OOXML reader.
package preview

import (
	"fmt"
	"os"
	"path/filepath"

	ppt "github.com/VantageDataChat/GoPPT"
	"github.com/flanksource/commons/logger"

	"github.com/flanksource/svgdeck/deck"
)

var log = logger.GetLogger("preview")

// DefaultWidth is the rendered image width in pixels; the height follows
// the slide aspect ratio.
const DefaultWidth = 1280

// SlideSummary is what an independent reader sees on one slide.
type SlideSummary struct {
	Index  int
	Shapes int
}

// Renderer renders slides with GoPPT.
type Renderer struct {
	Width int
}

func New(width int) *Renderer {
	if width <= 0 {
		width = DefaultWidth
	}
	return &Renderer{Width: width}
}

// Summarize lists the slides of the presentation at path with their shape
// counts.
func (r *Renderer) Summarize(path string) ([]SlideSummary, error) {
	reader := &ppt.PPTXReader{}
	pres, err := reader.Read(path)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	slides := pres.GetAllSlides()
	out := make([]SlideSummary, len(slides))
	for i, s := range slides {
		out[i] = SlideSummary{Index: i + 1, Shapes: len(s.GetShapes())}
	}
	return out, nil
}

// Render writes slide (1-based) of the presentation at path to outputPath.
func (r *Renderer) Render(path string, slide int, outputPath string) error {
	reader := &ppt.PPTXReader{}
	pres, err := reader.Read(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}
	count := len(pres.GetAllSlides())
	if slide < 1 || slide > count {
		return fmt.Errorf("%w: slide %d, presentation has %d slides", deck.ErrIndexOutOfRange, slide, count)
	}
	if err := os.MkdirAll(filepath.Dir(outputPath), 0755); err != nil {
		return fmt.Errorf("creating %s: %w", filepath.Dir(outputPath), err)
	}

	opts := ppt.DefaultRenderOptions()
	opts.Width = r.Width
	if err := pres.SaveSlideAsImage(slide-1, outputPath, opts); err != nil {
		return fmt.Errorf("rendering slide %d: %w", slide, err)
	}
	log.Debugf("rendered slide %d of %s to %s", slide, path, outputPath)
	return nil
}
