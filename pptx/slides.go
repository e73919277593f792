package pptx

import (
	"encoding/xml"
	"fmt"
	"path"
	"strings"

	"github.com/samber/lo"
)

// blankLayout picks the layout new slides are based on: the first layout of
// type "blank", otherwise the first layout in the package.
func (d *Document) blankLayout() (string, error) {
	layouts := d.partsWithPrefix(slideLayoutPrefix)
	if len(layouts) == 0 {
		return "", fmt.Errorf("%w: package has no slide layouts", ErrNotPresentation)
	}
	for _, name := range layouts {
		var l slideLayoutXML
		if err := xml.Unmarshal(d.parts[name], &l); err != nil {
			log.Warnf("skipping unreadable layout %s: %v", name, err)
			continue
		}
		if l.Type == "blank" {
			return name, nil
		}
	}
	log.Debugf("no blank layout, using %s", layouts[0])
	return layouts[0], nil
}

// NewBlankSlide creates an empty slide part without placing it in the
// slide order. It is the blank factory handed to the slide collection.
func (d *Document) NewBlankSlide() (SlideRef, error) {
	layout, err := d.blankLayout()
	if err != nil {
		return SlideRef{}, err
	}

	part := d.nextPartName("ppt/slides/slide", ".xml")
	d.putPart(part, []byte(blankSlideXML))
	d.setOverride(part, ctSlide)

	rels := &relationshipsXML{Relationship: []relationshipXML{{
		ID:     "rId1",
		Type:   relTypeSlideLayout,
		Target: relativeTarget(path.Dir(part), layout),
	}}}
	if err := d.writeRels(part, rels); err != nil {
		return SlideRef{}, err
	}

	relID := nextRelID(d.presRels)
	d.presRels.Relationship = append(d.presRels.Relationship, relationshipXML{
		ID:     relID,
		Type:   relTypeSlide,
		Target: relativeTarget("ppt", part),
	})

	return SlideRef{ID: d.nextSlideID(), RelID: relID, Part: part}, nil
}

// AddBlankSlide appends a blank slide.
func (d *Document) AddBlankSlide() (SlideRef, error) {
	ref, err := d.NewBlankSlide()
	if err != nil {
		return SlideRef{}, err
	}
	if err := d.slides.InsertAt(d.slides.Len()+1, ref); err != nil {
		d.dropSlide(ref)
		return SlideRef{}, err
	}
	return ref, nil
}

// EnsureSlides appends blank slides until the deck holds at least n.
func (d *Document) EnsureSlides(n int) (int, error) {
	return d.slides.EnsureLength(n, d.NewBlankSlide)
}

// InsertSlide places ref at the 1-based index, shifting later slides.
func (d *Document) InsertSlide(index int, ref SlideRef) error {
	return d.slides.InsertAt(index, ref)
}

// InsertBlankSlide creates a blank slide at index, 1 ≤ index ≤ count+1.
func (d *Document) InsertBlankSlide(index int) (SlideRef, error) {
	if index < 1 || index > d.slides.Len()+1 {
		// let the collection produce the range error before creating parts
		return SlideRef{}, d.slides.InsertAt(index, SlideRef{})
	}
	ref, err := d.NewBlankSlide()
	if err != nil {
		return SlideRef{}, err
	}
	if err := d.slides.InsertAt(index, ref); err != nil {
		d.dropSlide(ref)
		return SlideRef{}, err
	}
	return ref, nil
}

// RemoveSlide deletes the slide at index together with its part, its
// relationships, its notes and any media no other part still references.
func (d *Document) RemoveSlide(index int) (SlideRef, error) {
	ref, err := d.slides.DeleteAt(index)
	if err != nil {
		return SlideRef{}, err
	}
	d.dropSlide(ref)
	return ref, nil
}

// MoveSlide moves the slide at from to position to.
func (d *Document) MoveSlide(from, to int) error {
	return d.slides.Move(from, to)
}

func (d *Document) dropSlide(ref SlideRef) {
	rels, err := d.readRels(ref.Part)
	if err != nil {
		log.Warnf("dropping %s with unreadable relationships: %v", ref.Part, err)
		rels = &relationshipsXML{}
	}

	d.deletePart(ref.Part)
	d.deletePart(relsPart(ref.Part))
	d.presRels.Relationship = lo.Reject(d.presRels.Relationship, func(r relationshipXML, _ int) bool {
		return r.ID == ref.RelID
	})

	dir := path.Dir(ref.Part)
	for _, r := range rels.Relationship {
		if r.TargetMode == "External" {
			continue
		}
		target := resolveTarget(dir, r.Target)
		switch r.Type {
		case relTypeNotesSlide:
			d.deletePart(target)
			d.deletePart(relsPart(target))
		case relTypeImage:
			if !d.referenced(target) {
				d.deletePart(target)
			}
		}
	}
}

// referenced reports whether any relationships part still targets name.
func (d *Document) referenced(name string) bool {
	for _, part := range d.order {
		if path.Base(path.Dir(part)) != "_rels" {
			continue
		}
		source := path.Join(path.Dir(path.Dir(part)), strings.TrimSuffix(path.Base(part), ".rels"))
		rels, err := d.readRels(source)
		if err != nil {
			continue
		}
		for _, r := range rels.Relationship {
			if r.TargetMode != "External" && resolveTarget(path.Dir(source), r.Target) == name {
				return true
			}
		}
	}
	return false
}

func (d *Document) nextSlideID() uint32 {
	d.lastSlideID++
	return d.lastSlideID
}

// relativeTarget expresses part relative to the directory fromDir.
func relativeTarget(fromDir, part string) string {
	from := splitPath(fromDir)
	to := splitPath(part)
	i := 0
	for i < len(from) && i < len(to)-1 && from[i] == to[i] {
		i++
	}
	out := ""
	for range from[i:] {
		out += "../"
	}
	return out + path.Join(to[i:]...)
}

func splitPath(p string) []string {
	return lo.Filter(strings.Split(path.Clean(p), "/"), func(s string, _ int) bool { return s != "" && s != "." })
}
