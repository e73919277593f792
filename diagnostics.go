package svgdeck

import (
	"fmt"
	"strings"
)

// Diagnostics is the ordered trail of notes an operation collected on its
// way: recoveries, created files, cleanup failures.
type Diagnostics []string

func (d *Diagnostics) Addf(format string, args ...any) {
	*d = append(*d, fmt.Sprintf(format, args...))
}

func (d Diagnostics) String() string {
	return strings.Join(d, "\n")
}
