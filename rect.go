package svgdeck

import (
	"fmt"

	"github.com/flanksource/svgdeck/pptx"
	"github.com/flanksource/svgdeck/units"
)

// Rect is a placement rectangle in length expressions. Empty fields are
// absent: X and Y default to 0, Width and Height to the canvas extent.
// Percentages resolve against the canvas width (X, Width) or height
// (Y, Height).
type Rect struct {
	X      string `json:"x,omitempty" yaml:"x,omitempty"`
	Y      string `json:"y,omitempty" yaml:"y,omitempty"`
	Width  string `json:"width,omitempty" yaml:"width,omitempty"`
	Height string `json:"height,omitempty" yaml:"height,omitempty"`
}

// Placement is a resolved rectangle in EMU.
type Placement struct {
	X      units.EMU
	Y      units.EMU
	Width  units.EMU
	Height units.EMU
}

func (p Placement) String() string {
	return fmt.Sprintf("%.2fin,%.2fin %.2fin x %.2fin", p.X.Inches(), p.Y.Inches(), p.Width.Inches(), p.Height.Inches())
}

// Resolve converts r to EMU on canvas. When keepAspect is set and aspect is
// known, a missing width or height is derived from the other; with both
// missing the graphic is fitted inside the canvas.
func (r Rect) Resolve(canvas pptx.Size, assumed units.Unit, aspect float64, keepAspect bool) (Placement, error) {
	var p Placement
	var err error
	if p.X, err = resolveField("x", r.X, 0, canvas.Width, assumed); err != nil {
		return p, err
	}
	if p.Y, err = resolveField("y", r.Y, 0, canvas.Height, assumed); err != nil {
		return p, err
	}
	if p.Width, err = resolveField("width", r.Width, canvas.Width, canvas.Width, assumed); err != nil {
		return p, err
	}
	if p.Height, err = resolveField("height", r.Height, canvas.Height, canvas.Height, assumed); err != nil {
		return p, err
	}

	if !keepAspect || aspect <= 0 {
		return p, nil
	}
	switch {
	case r.Width != "" && r.Height != "":
	case r.Width != "":
		p.Height = units.EMU(float64(p.Width) / aspect)
	case r.Height != "":
		p.Width = units.EMU(float64(p.Height) * aspect)
	default:
		if float64(canvas.Width)/float64(canvas.Height) > aspect {
			p.Height = canvas.Height
			p.Width = units.EMU(float64(canvas.Height) * aspect)
		} else {
			p.Width = canvas.Width
			p.Height = units.EMU(float64(canvas.Width) / aspect)
		}
	}
	return p, nil
}

func resolveField(name, expr string, fallback, reference units.EMU, assumed units.Unit) (units.EMU, error) {
	if expr == "" {
		return fallback, nil
	}
	v, err := units.ToEMU(expr, assumed, &reference)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", name, err)
	}
	return v, nil
}
