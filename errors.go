package svgdeck

import (
	"errors"
	"fmt"
	"io/fs"

	"github.com/flanksource/svgdeck/deck"
	"github.com/flanksource/svgdeck/graphic"
	"github.com/flanksource/svgdeck/pptx"
	"github.com/flanksource/svgdeck/units"
)

// Kind classifies failures surfaced by the engine.
type Kind int

const (
	KindUnknown Kind = iota
	InvalidExpression
	UnsupportedUnit
	IndexOutOfRange
	EmptyBatch
	DocumentUnreadable
	GraphicMissing
	IOFailure
	// MissingArgument is a tool call without one of its required inputs.
	MissingArgument
)

var kindNames = map[Kind]string{
	KindUnknown:        "Unknown",
	InvalidExpression:  "InvalidExpression",
	UnsupportedUnit:    "UnsupportedUnit",
	IndexOutOfRange:    "IndexOutOfRange",
	EmptyBatch:         "EmptyBatch",
	DocumentUnreadable: "DocumentUnreadable",
	GraphicMissing:     "GraphicMissing",
	IOFailure:          "IOFailure",
	MissingArgument:    "MissingArgument",
}

func (k Kind) String() string {
	if s, ok := kindNames[k]; ok {
		return s
	}
	return fmt.Sprintf("Kind(%d)", int(k))
}

// ErrEmptyBatch is returned when a batch carries no items.
var ErrEmptyBatch = errors.New("batch has no items")

// Error is an engine failure tagged with its kind, the operation and the
// file it concerns.
type Error struct {
	Kind Kind
	Op   string
	Path string
	Err  error
}

func (e *Error) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("%s: %s: %v", e.Op, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s %s: %s: %v", e.Op, e.Path, e.Kind, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf classifies err, looking through wrapping.
func KindOf(err error) Kind {
	if err == nil {
		return KindUnknown
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	switch {
	case errors.Is(err, units.ErrInvalidExpression):
		return InvalidExpression
	case errors.Is(err, units.ErrUnsupportedUnit):
		return UnsupportedUnit
	case errors.Is(err, deck.ErrIndexOutOfRange):
		return IndexOutOfRange
	case errors.Is(err, ErrEmptyBatch):
		return EmptyBatch
	case errors.Is(err, pptx.ErrNotPresentation):
		return DocumentUnreadable
	case errors.Is(err, graphic.ErrMissing):
		return GraphicMissing
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, fs.ErrPermission), errors.Is(err, fs.ErrExist):
		return IOFailure
	}
	var pathErr *fs.PathError
	if errors.As(err, &pathErr) {
		return IOFailure
	}
	return KindUnknown
}

// wrap tags err with op and path unless it already carries a kind.
func wrap(op, path string, err error) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return &Error{Kind: KindOf(err), Op: op, Path: path, Err: err}
}

func newError(kind Kind, op, path string, err error) error {
	return &Error{Kind: kind, Op: op, Path: path, Err: err}
}
