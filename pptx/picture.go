package pptx

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"path"
	"regexp"
	"strconv"
	"strings"

	"github.com/flanksource/svgdeck/units"
)

// Picture is an SVG graphic placed as a picture frame. PNG is the raster
// fallback shown by readers without SVG support; a transparent pixel is
// used when it is empty.
type Picture struct {
	Name        string
	Description string
	SVG         []byte
	PNG         []byte

	X      units.EMU
	Y      units.EMU
	Width  units.EMU
	Height units.EMU
}

// PictureInfo describes a picture frame found on a slide.
type PictureInfo struct {
	ID          int
	Name        string
	Description string
	X           units.EMU
	Y           units.EMU
	Width       units.EMU
	Height      units.EMU
	// Image is the part holding the raster blip, SVG the svgBlip part if any.
	Image string
	SVG   string
}

var spTreeClosePattern = regexp.MustCompile(`</(\w+:)?spTree>`)

// PlaceGraphic adds pic to the slide at the 1-based index.
func (d *Document) PlaceGraphic(index int, pic Picture) (PictureInfo, error) {
	ref, err := d.slides.At(index)
	if err != nil {
		return PictureInfo{}, err
	}
	body, ok := d.parts[ref.Part]
	if !ok {
		return PictureInfo{}, fmt.Errorf("%w: slide part %s is missing", ErrNotPresentation, ref.Part)
	}

	closes := spTreeClosePattern.FindAllIndex(body, -1)
	if len(closes) == 0 {
		return PictureInfo{}, fmt.Errorf("%w: %s has no shape tree", ErrNotPresentation, ref.Part)
	}
	// the slide's own tree closes last; nested groups close before it
	at := closes[len(closes)-1][0]

	id, err := maxShapeID(body)
	if err != nil {
		return PictureInfo{}, fmt.Errorf("%w: %s: %v", ErrNotPresentation, ref.Part, err)
	}
	id++

	rels, err := d.readRels(ref.Part)
	if err != nil {
		return PictureInfo{}, err
	}

	png := pic.PNG
	if len(png) == 0 {
		png = transparentPNG
	}
	pngPart := d.nextPartName("ppt/media/svgdeck", ".png", ".svg")
	svgPart := strings.TrimSuffix(pngPart, ".png") + ".svg"
	d.putPart(pngPart, png)
	d.putPart(svgPart, pic.SVG)
	d.ensureDefault("png", ctPNG)
	d.ensureDefault("svg", ctSVG)

	dir := path.Dir(ref.Part)
	pngRel := nextRelID(rels)
	rels.Relationship = append(rels.Relationship, relationshipXML{ID: pngRel, Type: relTypeImage, Target: relativeTarget(dir, pngPart)})
	svgRel := nextRelID(rels)
	rels.Relationship = append(rels.Relationship, relationshipXML{ID: svgRel, Type: relTypeImage, Target: relativeTarget(dir, svgPart)})
	if err := d.writeRels(ref.Part, rels); err != nil {
		return PictureInfo{}, err
	}

	name := pic.Name
	if name == "" {
		name = "Graphic " + strconv.Itoa(id)
	}
	frame := fmt.Sprintf(`<p:pic xmlns:p="%s" xmlns:a="%s" xmlns:r="%s">`+
		`<p:nvPicPr><p:cNvPr id="%d" name="%s" descr="%s"/><p:cNvPicPr><a:picLocks noChangeAspect="1"/></p:cNvPicPr><p:nvPr/></p:nvPicPr>`+
		`<p:blipFill><a:blip r:embed="%s"><a:extLst><a:ext uri="%s">`+
		`<asvg:svgBlip xmlns:asvg="%s" r:embed="%s"/></a:ext></a:extLst></a:blip>`+
		`<a:stretch><a:fillRect/></a:stretch></p:blipFill>`+
		`<p:spPr><a:xfrm><a:off x="%d" y="%d"/><a:ext cx="%d" cy="%d"/></a:xfrm><a:prstGeom prst="rect"><a:avLst/></a:prstGeom></p:spPr>`+
		`</p:pic>`,
		nsPresentationML, nsDrawingML, nsRelationships,
		id, escapeAttr(name), escapeAttr(pic.Description),
		pngRel, svgBlipExtURI, nsSVG, svgRel,
		pic.X, pic.Y, pic.Width, pic.Height)

	out := make([]byte, 0, len(body)+len(frame))
	out = append(out, body[:at]...)
	out = append(out, frame...)
	out = append(out, body[at:]...)
	d.putPart(ref.Part, out)

	log.Debugf("placed %s on slide %d at (%d,%d) %dx%d", name, index, pic.X, pic.Y, pic.Width, pic.Height)
	return PictureInfo{
		ID: id, Name: name, Description: pic.Description,
		X: pic.X, Y: pic.Y, Width: pic.Width, Height: pic.Height,
		Image: pngPart, SVG: svgPart,
	}, nil
}

// Pictures lists the top-level picture frames on the slide at index.
func (d *Document) Pictures(index int) ([]PictureInfo, error) {
	ref, err := d.slides.At(index)
	if err != nil {
		return nil, err
	}
	var slide slideXML
	if err := xml.Unmarshal(d.parts[ref.Part], &slide); err != nil {
		return nil, fmt.Errorf("%w: parsing %s: %v", ErrNotPresentation, ref.Part, err)
	}
	rels, err := d.readRels(ref.Part)
	if err != nil {
		return nil, err
	}
	target := func(id string) string {
		if id == "" {
			return ""
		}
		for _, r := range rels.Relationship {
			if r.ID == id {
				return resolveTarget(path.Dir(ref.Part), r.Target)
			}
		}
		return ""
	}

	out := make([]PictureInfo, 0, len(slide.CSld.SpTree.Pic))
	for _, p := range slide.CSld.SpTree.Pic {
		info := PictureInfo{
			ID:          p.NvPicPr.CNvPr.ID,
			Name:        p.NvPicPr.CNvPr.Name,
			Description: p.NvPicPr.CNvPr.Descr,
			Image:       target(p.BlipFill.Blip.Embed),
		}
		if x := p.SpPr.Xfrm; x != nil {
			info.X, info.Y = units.EMU(x.Off.X), units.EMU(x.Off.Y)
			info.Width, info.Height = units.EMU(x.Ext.Cx), units.EMU(x.Ext.Cy)
		}
		if ext := p.BlipFill.Blip.ExtLst; ext != nil {
			for _, e := range ext.Ext {
				if e.URI == svgBlipExtURI && e.SVGBlip != nil {
					info.SVG = target(e.SVGBlip.Embed)
				}
			}
		}
		out = append(out, info)
	}
	return out, nil
}

// maxShapeID returns the largest cNvPr id on a slide.
func maxShapeID(body []byte) (int, error) {
	dec := xml.NewDecoder(bytes.NewReader(body))
	max := 0
	for {
		tok, err := dec.Token()
		if err == io.EOF {
			return max, nil
		}
		if err != nil {
			return 0, err
		}
		se, ok := tok.(xml.StartElement)
		if !ok || se.Name.Local != "cNvPr" {
			continue
		}
		for _, a := range se.Attr {
			if a.Name.Local == "id" {
				if n, err := strconv.Atoi(a.Value); err == nil && n > max {
					max = n
				}
			}
		}
	}
}

func escapeAttr(s string) string {
	var b strings.Builder
	_ = xml.EscapeText(&b, []byte(s))
	return b.String()
}
