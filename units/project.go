package units

import "fmt"

// Project re-expresses a canonical (EMU) value in target.
func Project(canonical float64, target Unit) (float64, error) {
	f, err := target.Factor()
	if err != nil {
		return 0, fmt.Errorf("cannot project into %s: %w", target, err)
	}
	return canonical / f, nil
}

func (e EMU) Inches() float64      { return float64(e) / EMUPerInch }
func (e EMU) Centimeters() float64 { return float64(e) / EMUPerCentimeter }
func (e EMU) Millimeters() float64 { return float64(e) / EMUPerMillimeter }
func (e EMU) Points() float64      { return float64(e) / EMUPerPoint }
func (e EMU) Pixels() float64      { return float64(e) / EMUPerPixel }

// In projects e into u; Percent yields an error.
func (e EMU) In(u Unit) (float64, error) {
	return Project(float64(e), u)
}

// Inches returns a whole-EMU length for v inches.
func Inches(v float64) EMU { return truncate(v * EMUPerInch) }

// Centimeters returns a whole-EMU length for v centimeters.
func Centimeters(v float64) EMU { return truncate(v * EMUPerCentimeter) }

// Points returns a whole-EMU length for v points.
func Points(v float64) EMU { return truncate(v * EMUPerPoint) }

func InchesToCm(in float64) float64 {
	return in * EMUPerInch / EMUPerCentimeter
}

func CmToInches(cm float64) float64 {
	return cm * EMUPerCentimeter / EMUPerInch
}

func PointsToInches(pt float64) float64 {
	return pt * EMUPerPoint / EMUPerInch
}

func InchesToPoints(in float64) float64 {
	return in * EMUPerInch / EMUPerPoint
}

func PixelsToEMU(px float64) float64 {
	return px * EMUPerPixel
}

func EMUToPixels(emu float64) float64 {
	return emu / EMUPerPixel
}
