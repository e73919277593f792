package pptx

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/flanksource/commons/logger"
	"github.com/samber/lo"

	"github.com/flanksource/svgdeck/deck"
	"github.com/flanksource/svgdeck/units"
)

var log = logger.GetLogger("pptx")

// ErrNotPresentation is returned when a file is not a readable presentation
// package: not a zip, required parts missing, or unparsable structure.
var ErrNotPresentation = errors.New("not a valid presentation package")

// DefaultSize is the 16:9 canvas, 16in by 9in.
var DefaultSize = Size{Width: 16 * units.EMUPerInch, Height: 9 * units.EMUPerInch}

// Size is a slide canvas in EMU.
type Size struct {
	Width  units.EMU
	Height units.EMU
}

// SlideRef identifies one slide part and its entry in the slide order.
type SlideRef struct {
	ID    uint32
	RelID string
	Part  string
}

// Document is an in-memory presentation package. Nothing reaches disk
// until Save.
type Document struct {
	parts map[string][]byte
	order []string

	types        *contentTypesXML
	presRels     *relationshipsXML
	presentation []byte
	slides       *deck.Collection[SlideRef]

	size        Size
	sizeDirty   bool
	lastSlideID uint32
}

// Open reads a presentation from path.
func Open(filename string) (*Document, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", filename, err)
	}
	d, err := Read(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", filename, err)
	}
	log.Debugf("opened %s with %d slides", filename, d.SlideCount())
	return d, nil
}

// Read parses a presentation package held in memory.
func Read(data []byte) (*Document, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("%w: opening ZIP archive: %v", ErrNotPresentation, err)
	}

	d := &Document{parts: make(map[string][]byte, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotPresentation, f.Name, err)
		}
		body, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %v", ErrNotPresentation, f.Name, err)
		}
		d.putPart(f.Name, body)
	}

	if err := d.load(); err != nil {
		return nil, err
	}
	return d, nil
}

// New creates an empty presentation from the built-in template.
func New(canvas Size) (*Document, error) {
	d := &Document{parts: make(map[string][]byte, len(templateParts))}
	for _, p := range templateParts {
		d.putPart(p.name, []byte(p.body))
	}
	if err := d.load(); err != nil {
		return nil, fmt.Errorf("loading template: %w", err)
	}
	if canvas.Width > 0 && canvas.Height > 0 {
		d.SetSlideSize(canvas)
	}
	return d, nil
}

func (d *Document) load() error {
	for _, name := range []string{partContentTypes, partPresentation} {
		if _, ok := d.parts[name]; !ok {
			return fmt.Errorf("%w: missing required part %s", ErrNotPresentation, name)
		}
	}

	d.types = &contentTypesXML{}
	if err := xml.Unmarshal(d.parts[partContentTypes], d.types); err != nil {
		return fmt.Errorf("%w: parsing content types: %v", ErrNotPresentation, err)
	}

	rels, err := d.readRels(partPresentation)
	if err != nil {
		return err
	}
	d.presRels = rels

	d.presentation = d.parts[partPresentation]
	var pres presentationXML
	if err := xml.Unmarshal(d.presentation, &pres); err != nil {
		return fmt.Errorf("%w: parsing presentation: %v", ErrNotPresentation, err)
	}

	if pres.SlideSz != nil {
		d.size = Size{Width: units.EMU(pres.SlideSz.Cx), Height: units.EMU(pres.SlideSz.Cy)}
	} else {
		d.size = DefaultSize
	}

	d.slides = deck.New[SlideRef]()
	d.lastSlideID = minSlideID - 1
	if pres.SlideIdList == nil {
		return nil
	}
	for _, sid := range pres.SlideIdList.SlideId {
		rel, ok := lo.Find(d.presRels.Relationship, func(r relationshipXML) bool { return r.ID == sid.RID })
		if !ok {
			return fmt.Errorf("%w: slide %d references unknown relationship %q", ErrNotPresentation, sid.ID, sid.RID)
		}
		part := resolveTarget("ppt", rel.Target)
		if _, ok := d.parts[part]; !ok {
			return fmt.Errorf("%w: slide part %s is missing", ErrNotPresentation, part)
		}
		_ = d.slides.InsertAt(d.slides.Len()+1, SlideRef{ID: sid.ID, RelID: sid.RID, Part: part})
		d.lastSlideID = max(d.lastSlideID, sid.ID)
	}
	return nil
}

// SlideCount returns the number of slides in presentation order.
func (d *Document) SlideCount() int {
	return d.slides.Len()
}

// Slides returns the slide order.
func (d *Document) Slides() []SlideRef {
	return d.slides.Items()
}

func (d *Document) SlideSize() Size {
	return d.size
}

func (d *Document) SetSlideSize(s Size) {
	d.size = s
	d.sizeDirty = true
}

// Parts lists every part name in the package, in write order.
func (d *Document) Parts() []string {
	return append([]string(nil), d.order...)
}

// Part returns the raw bytes of a part.
func (d *Document) Part(name string) ([]byte, bool) {
	b, ok := d.parts[name]
	return b, ok
}

// Bytes serialises the package.
func (d *Document) Bytes() ([]byte, error) {
	if err := d.flush(); err != nil {
		return nil, err
	}

	names := append([]string{partContentTypes}, lo.Without(d.order, partContentTypes)...)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate})
		if err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
		if _, err := w.Write(d.parts[name]); err != nil {
			return nil, fmt.Errorf("writing %s: %w", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, fmt.Errorf("closing archive: %w", err)
	}
	return buf.Bytes(), nil
}

// Save writes the package to filename through a temporary file in the same
// directory, so a failed write never leaves a truncated document behind.
func (d *Document) Save(filename string) error {
	data, err := d.Bytes()
	if err != nil {
		return err
	}

	dir := filepath.Dir(filename)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(filename)+".*.tmp")
	if err != nil {
		return fmt.Errorf("creating temporary file: %w", err)
	}
	defer os.Remove(tmp.Name()) // nolint:errcheck

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), filename); err != nil {
		return fmt.Errorf("replacing %s: %w", filename, err)
	}
	log.Debugf("saved %s (%d slides, %d bytes)", filename, d.SlideCount(), len(data))
	return nil
}

func (d *Document) flush() error {
	types, err := marshalPart(d.types)
	if err != nil {
		return fmt.Errorf("encoding content types: %w", err)
	}
	d.parts[partContentTypes] = types

	if err := d.writeRels(partPresentation, d.presRels); err != nil {
		return err
	}

	pres, err := d.renderPresentation()
	if err != nil {
		return err
	}
	d.presentation = pres
	d.parts[partPresentation] = pres
	return nil
}

var (
	rootPrefixPattern = regexp.MustCompile(`<(\w+:)?presentation[\s>]`)
	relNSPattern      = regexp.MustCompile(`xmlns:(\w+)="` + regexp.QuoteMeta(nsRelationships) + `"`)
	sldIdLstPattern   = regexp.MustCompile(`(?s)<(\w+:)?sldIdLst\b[^>]*?(/>|>.*?</(\w+:)?sldIdLst>)`)
	sldSzPattern      = regexp.MustCompile(`(?s)<(\w+:)?sldSz\b[^>]*?/>`)
	notesSzPattern    = regexp.MustCompile(`<(\w+:)?notesSz\b`)
)

// renderPresentation splices the current slide order and size into the
// original presentation part.
func (d *Document) renderPresentation() ([]byte, error) {
	src := string(d.presentation)

	prefix := ""
	if m := rootPrefixPattern.FindStringSubmatch(src); m != nil {
		prefix = m[1]
	}
	relPrefix, relDecl := "r", ` xmlns:r="`+nsRelationships+`"`
	if m := relNSPattern.FindStringSubmatch(src); m != nil {
		relPrefix, relDecl = m[1], ""
	}

	var list strings.Builder
	if d.slides.Len() > 0 {
		fmt.Fprintf(&list, "<%ssldIdLst%s>", prefix, relDecl)
		for _, s := range d.slides.Items() {
			fmt.Fprintf(&list, `<%ssldId id="%d" %s:id="%s"/>`, prefix, s.ID, relPrefix, s.RelID)
		}
		fmt.Fprintf(&list, "</%ssldIdLst>", prefix)
	}

	if loc := sldIdLstPattern.FindStringIndex(src); loc != nil {
		src = src[:loc[0]] + list.String() + src[loc[1]:]
	} else if list.Len() > 0 {
		at := firstIndex(src, sldSzPattern, notesSzPattern)
		if at < 0 {
			return nil, fmt.Errorf("%w: presentation has neither sldSz nor notesSz", ErrNotPresentation)
		}
		src = src[:at] + list.String() + src[at:]
	}

	if d.sizeDirty {
		sz := fmt.Sprintf(`<%ssldSz cx="%d" cy="%d"/>`, prefix, d.size.Width, d.size.Height)
		if loc := sldSzPattern.FindStringIndex(src); loc != nil {
			src = src[:loc[0]] + sz + src[loc[1]:]
		} else if loc := notesSzPattern.FindStringIndex(src); loc != nil {
			src = src[:loc[0]] + sz + src[loc[0]:]
		}
	}
	return []byte(src), nil
}

func firstIndex(s string, patterns ...*regexp.Regexp) int {
	for _, p := range patterns {
		if loc := p.FindStringIndex(s); loc != nil {
			return loc[0]
		}
	}
	return -1
}

func (d *Document) putPart(name string, data []byte) {
	if _, ok := d.parts[name]; !ok {
		d.order = append(d.order, name)
	}
	d.parts[name] = data
}

func (d *Document) deletePart(name string) {
	if _, ok := d.parts[name]; !ok {
		return
	}
	delete(d.parts, name)
	d.order = lo.Without(d.order, name)
	d.types.Override = lo.Reject(d.types.Override, func(o overrideXML, _ int) bool {
		return o.PartName == "/"+name
	})
}

func (d *Document) setOverride(name, contentType string) {
	partName := "/" + name
	for i, o := range d.types.Override {
		if o.PartName == partName {
			d.types.Override[i].ContentType = contentType
			return
		}
	}
	d.types.Override = append(d.types.Override, overrideXML{PartName: partName, ContentType: contentType})
}

func (d *Document) ensureDefault(ext, contentType string) {
	if lo.ContainsBy(d.types.Default, func(x defaultXML) bool { return strings.EqualFold(x.Extension, ext) }) {
		return
	}
	d.types.Default = append(d.types.Default, defaultXML{Extension: ext, ContentType: contentType})
}

// relsPart returns the relationships part name for part.
func relsPart(part string) string {
	dir, base := path.Split(part)
	return dir + "_rels/" + base + ".rels"
}

func (d *Document) readRels(part string) (*relationshipsXML, error) {
	rels := &relationshipsXML{}
	data, ok := d.parts[relsPart(part)]
	if !ok {
		return rels, nil
	}
	if err := xml.Unmarshal(data, rels); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrNotPresentation, relsPart(part), err)
	}
	return rels, nil
}

func (d *Document) writeRels(part string, rels *relationshipsXML) error {
	data, err := marshalPart(rels)
	if err != nil {
		return fmt.Errorf("encoding %s: %w", relsPart(part), err)
	}
	d.putPart(relsPart(part), data)
	return nil
}

func marshalPart(v any) ([]byte, error) {
	body, err := xml.Marshal(v)
	if err != nil {
		return nil, err
	}
	return append([]byte(xmlDeclaration), body...), nil
}

// resolveTarget resolves a relationship target against the directory of
// its source part.
func resolveTarget(baseDir, target string) string {
	if strings.HasPrefix(target, "/") {
		return strings.TrimPrefix(target, "/")
	}
	return path.Clean(path.Join(baseDir, target))
}

// nextRelID returns an unused rIdN for rels.
func nextRelID(rels *relationshipsXML) string {
	max := 0
	for _, r := range rels.Relationship {
		if n, err := strconv.Atoi(strings.TrimPrefix(r.ID, "rId")); err == nil && n > max {
			max = n
		}
	}
	return "rId" + strconv.Itoa(max+1)
}

// nextPartName returns the first prefixN+ext not present in the package.
func (d *Document) nextPartName(prefix, ext string, also ...string) string {
	for n := 1; ; n++ {
		name := prefix + strconv.Itoa(n) + ext
		if _, taken := d.parts[name]; taken {
			continue
		}
		free := true
		for _, other := range also {
			if _, taken := d.parts[prefix+strconv.Itoa(n)+other]; taken {
				free = false
				break
			}
		}
		if free {
			return name
		}
	}
}

// partNumber extracts N from names like ppt/slideLayouts/slideLayoutN.xml.
func partNumber(name, prefix string) int {
	n, err := strconv.Atoi(strings.TrimSuffix(strings.TrimPrefix(name, prefix), ".xml"))
	if err != nil {
		return 0
	}
	return n
}

func (d *Document) partsWithPrefix(prefix string) []string {
	names := lo.Filter(d.order, func(name string, _ int) bool {
		return strings.HasPrefix(name, prefix) && strings.HasSuffix(name, ".xml")
	})
	sort.SliceStable(names, func(i, j int) bool {
		return partNumber(names[i], prefix) < partNumber(names[j], prefix)
	})
	return names
}
