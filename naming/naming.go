// Package naming derives output file names that carry at most one operation
// tag, however many times a document has been edited.
package naming

import (
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"golang.org/x/text/unicode/norm"
)

// Operation tags recorded in synthesized names.
const (
	Insertion = "insertion"
	Deletion  = "deletion"
	Creation  = "creation"
	Output    = "output"
)

// TimestampLayout is the YYYYMMDD_HHMMSS stamp appended after the tag.
const TimestampLayout = "20060102_150405"

var (
	tagPattern       = regexp.MustCompile(`_(?:insertion|deletion|creation|output)_\d{8}_\d{6}`)
	separatorPattern = regexp.MustCompile(`[_-]{2,}`)
)

// Sanitize removes every historical operation tag from base, collapses
// separator runs to their first character and trims trailing separators.
// Sanitize(Sanitize(x)) == Sanitize(x).
func Sanitize(base string) string {
	s := norm.NFC.String(base)
	for {
		next := tagPattern.ReplaceAllString(s, "")
		next = separatorPattern.ReplaceAllStringFunc(next, func(run string) string { return run[:1] })
		next = strings.TrimRight(next, "_-")
		if next == s {
			return s
		}
		s = next
	}
}

// Namer synthesizes tagged names against a clock.
type Namer struct {
	Now func() time.Time
}

var defaultNamer = Namer{Now: time.Now}

func (n Namer) now() time.Time {
	if n.Now == nil {
		return time.Now()
	}
	return n.Now()
}

// Synthesize returns Sanitize(base) + "_" + tag + "_" + timestamp.
func (n Namer) Synthesize(base, tag string) string {
	return Sanitize(base) + "_" + tag + "_" + n.now().Format(TimestampLayout)
}

// SynthesizePath renames the file part of path, keeping its directory and
// extension: out/deck_insertion_20240101_101010.pptx.
func (n Namer) SynthesizePath(path, tag string) string {
	dir, file := filepath.Split(path)
	ext := filepath.Ext(file)
	return filepath.Join(dir, n.Synthesize(strings.TrimSuffix(file, ext), tag)+ext)
}

// Synthesize uses the wall clock.
func Synthesize(base, tag string) string {
	return defaultNamer.Synthesize(base, tag)
}

// SynthesizePath uses the wall clock.
func SynthesizePath(path, tag string) string {
	return defaultNamer.SynthesizePath(path, tag)
}
