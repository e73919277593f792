// Package units converts length expressions used for slide placement into
// English Metric Units (EMU), the canonical length unit of Office documents,
// and projects EMU values back into display units.
package units

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// EMU is a length in English Metric Units, 1/914400 of an inch.
type EMU int64

// Unit identifies the unit a Length is expressed in.
type Unit int

const (
	EMUUnit Unit = iota
	Point
	Inch
	Centimeter
	Millimeter
	Pixel
	Percent
)

// Exact conversion factors to EMU. Every conversion between two display
// units goes through these constants.
const (
	EMUPerInch       = 914400
	EMUPerCentimeter = 360000
	EMUPerMillimeter = 36000
	EMUPerPoint      = 12700
	EMUPerPixel      = 9525
)

var (
	// ErrInvalidExpression is returned for malformed expressions and for
	// percentages without a reference total.
	ErrInvalidExpression = errors.New("invalid length expression")
	// ErrUnsupportedUnit is returned for unknown unit suffixes.
	ErrUnsupportedUnit = errors.New("unsupported unit")
)

var unitNames = map[Unit]string{
	EMUUnit:    "emu",
	Point:      "pt",
	Inch:       "in",
	Centimeter: "cm",
	Millimeter: "mm",
	Pixel:      "px",
	Percent:    "%",
}

func (u Unit) String() string {
	if name, ok := unitNames[u]; ok {
		return name
	}
	return fmt.Sprintf("unit(%d)", int(u))
}

// Factor returns the number of EMU in one u. Percent has no fixed factor.
func (u Unit) Factor() (float64, error) {
	switch u {
	case EMUUnit:
		return 1, nil
	case Point:
		return EMUPerPoint, nil
	case Inch:
		return EMUPerInch, nil
	case Centimeter:
		return EMUPerCentimeter, nil
	case Millimeter:
		return EMUPerMillimeter, nil
	case Pixel:
		return EMUPerPixel, nil
	}
	return 0, fmt.Errorf("%w: %s has no fixed factor", ErrUnsupportedUnit, u)
}

// ParseUnit resolves a unit suffix such as "pt", "inch" or "EMU".
func ParseUnit(suffix string) (Unit, error) {
	switch strings.ToLower(strings.TrimSpace(suffix)) {
	case "emu":
		return EMUUnit, nil
	case "pt":
		return Point, nil
	case "in", "inch", "inches":
		return Inch, nil
	case "cm":
		return Centimeter, nil
	case "mm":
		return Millimeter, nil
	case "px":
		return Pixel, nil
	case "%":
		return Percent, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrUnsupportedUnit, suffix)
}

// Length is a signed real number tagged with a unit.
type Length struct {
	Value float64
	Unit  Unit
}

// FromFloat tags a raw number with a unit.
func FromFloat(v float64, u Unit) Length {
	return Length{Value: v, Unit: u}
}

func (l Length) String() string {
	if l.Unit == Percent {
		return fmt.Sprintf("%g%%", l.Value)
	}
	return fmt.Sprintf("%g%s", l.Value, l.Unit)
}

// IsPercent reports whether the length needs a reference total to resolve.
func (l Length) IsPercent() bool {
	return l.Unit == Percent
}

// Canonical returns the exact EMU value as a float, without truncation.
func (l Length) Canonical() (float64, error) {
	if l.Unit == Percent {
		return 0, fmt.Errorf("%w: %s needs a reference total", ErrInvalidExpression, l)
	}
	f, err := l.Unit.Factor()
	if err != nil {
		return 0, err
	}
	return l.Value * f, nil
}

// EMU returns the length truncated toward zero to a whole EMU.
func (l Length) EMU() (EMU, error) {
	c, err := l.Canonical()
	if err != nil {
		return 0, err
	}
	return truncate(c), nil
}

// Resolve converts the length to EMU, resolving percentages against total.
func (l Length) Resolve(total EMU) (EMU, error) {
	if l.Unit == Percent {
		return truncate(l.Value / 100 * float64(total)), nil
	}
	return l.EMU()
}

// truncate drops the fractional part, snapping values that are within
// float noise of an integer onto it first ("25.4mm" must be 914400, not
// 914399).
func truncate(v float64) EMU {
	if r := math.Round(v); math.Abs(v-r) < 1e-6 {
		return EMU(r)
	}
	return EMU(math.Trunc(v))
}
