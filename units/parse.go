package units

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

var expressionPattern = regexp.MustCompile(`^([+-]?(?:\d+(?:\.\d*)?|\.\d+))\s*([A-Za-z]+|%)?$`)

// Parse reads a length expression: a number with an optional unit suffix
// (pt, in, inch, cm, mm, px, emu) or a trailing "%". A bare number is
// tagged with assumed; callers must say which unit family they work in.
func Parse(expr string, assumed Unit) (Length, error) {
	s := strings.TrimSpace(expr)
	if s == "" {
		return Length{}, fmt.Errorf("%w: empty expression", ErrInvalidExpression)
	}

	m := expressionPattern.FindStringSubmatch(s)
	if m == nil {
		return Length{}, fmt.Errorf("%w: %q", ErrInvalidExpression, expr)
	}

	value, err := strconv.ParseFloat(m[1], 64)
	if err != nil {
		return Length{}, fmt.Errorf("%w: %q: %v", ErrInvalidExpression, expr, err)
	}

	if m[2] == "" {
		if assumed == Percent {
			return Length{}, fmt.Errorf("%w: percent cannot be an assumed unit", ErrUnsupportedUnit)
		}
		return Length{Value: value, Unit: assumed}, nil
	}

	unit, err := ParseUnit(m[2])
	if err != nil {
		return Length{}, err
	}
	return Length{Value: value, Unit: unit}, nil
}

// ToEMU parses expr and resolves it to whole EMU. Percentages need a
// reference total in EMU.
func ToEMU(expr string, assumed Unit, reference *EMU) (EMU, error) {
	l, err := Parse(expr, assumed)
	if err != nil {
		return 0, err
	}
	if l.IsPercent() {
		if reference == nil {
			return 0, fmt.Errorf("%w: %q is a percentage but no reference total was given", ErrInvalidExpression, expr)
		}
		return l.Resolve(*reference)
	}
	return l.EMU()
}

// ToUnit parses expr and projects it into target, keeping float precision.
// Bare numbers are taken to be in target already; percentages need a
// reference total expressed in target.
func ToUnit(expr string, target Unit, reference *float64) (float64, error) {
	if target == Percent {
		return 0, fmt.Errorf("%w: cannot project into %s", ErrUnsupportedUnit, target)
	}
	l, err := Parse(expr, target)
	if err != nil {
		return 0, err
	}
	if l.IsPercent() {
		if reference == nil {
			return 0, fmt.Errorf("%w: %q is a percentage but no reference total was given", ErrInvalidExpression, expr)
		}
		return l.Value / 100 * *reference, nil
	}
	if l.Unit == target {
		return l.Value, nil
	}
	c, err := l.Canonical()
	if err != nil {
		return 0, err
	}
	return Project(c, target)
}

// MustEMU is ToEMU for constant expressions; it panics on error.
func MustEMU(expr string) EMU {
	v, err := ToEMU(expr, EMUUnit, nil)
	if err != nil {
		panic(err)
	}
	return v
}
