// Package pptx edits Office Open XML presentation packages in memory: slide
// order, slide size, blank slides and SVG picture frames. Parts it does not
// understand are carried through untouched.
package pptx

import (
	"encoding/xml"
	"fmt"
	"strconv"
)

const (
	nsPresentationML = "http://schemas.openxmlformats.org/presentationml/2006/main"
	nsDrawingML      = "http://schemas.openxmlformats.org/drawingml/2006/main"
	nsRelationships  = "http://schemas.openxmlformats.org/officeDocument/2006/relationships"
	nsPackageRels    = "http://schemas.openxmlformats.org/package/2006/relationships"
	nsContentTypes   = "http://schemas.openxmlformats.org/package/2006/content-types"
	nsSVG            = "http://schemas.microsoft.com/office/drawing/2016/SVG/main"

	// extension uri PowerPoint uses for the svgBlip next to the raster blip
	svgBlipExtURI = "{96DAC541-7B7A-43D3-8B79-37D633B846F1}"
)

const (
	relTypeSlide       = nsRelationships + "/slide"
	relTypeSlideLayout = nsRelationships + "/slideLayout"
	relTypeImage       = nsRelationships + "/image"
	relTypeNotesSlide  = nsRelationships + "/notesSlide"

	ctSlide = "application/vnd.openxmlformats-officedocument.presentationml.slide+xml"
	ctPNG   = "image/png"
	ctSVG   = "image/svg+xml"
)

const (
	partContentTypes  = "[Content_Types].xml"
	partPresentation  = "ppt/presentation.xml"
	partPresRels      = "ppt/_rels/presentation.xml.rels"
	xmlDeclaration    = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"
	minSlideID        = 256
	slideLayoutPrefix = "ppt/slideLayouts/slideLayout"
)

// presentationXML is the subset of ppt/presentation.xml read on open. The
// document itself is rewritten by splicing, so unknown elements survive.
type presentationXML struct {
	XMLName     xml.Name        `xml:"presentation"`
	SlideIdList *slideIdListXML `xml:"sldIdLst"`
	SlideSz     *slideSzXML     `xml:"sldSz"`
}

type slideIdListXML struct {
	SlideId []slideIdXML `xml:"sldId"`
}

// slideIdXML carries both a bare id and an r:id attribute; encoding/xml
// would match either against an unqualified tag, so they are split by hand.
type slideIdXML struct {
	ID  uint32
	RID string
}

func (s *slideIdXML) UnmarshalXML(d *xml.Decoder, start xml.StartElement) error {
	for _, a := range start.Attr {
		if a.Name.Local != "id" {
			continue
		}
		switch a.Name.Space {
		case "":
			n, err := strconv.ParseUint(a.Value, 10, 32)
			if err != nil {
				return fmt.Errorf("sldId id %q: %w", a.Value, err)
			}
			s.ID = uint32(n)
		case nsRelationships:
			s.RID = a.Value
		}
	}
	return d.Skip()
}

type slideSzXML struct {
	Cx int64 `xml:"cx,attr"`
	Cy int64 `xml:"cy,attr"`
}

type slideLayoutXML struct {
	XMLName xml.Name `xml:"sldLayout"`
	Type    string   `xml:"type,attr"`
}

// slideXML is read when listing picture frames.
type slideXML struct {
	XMLName xml.Name `xml:"sld"`
	CSld    cSldXML  `xml:"cSld"`
}

type cSldXML struct {
	SpTree spTreeXML `xml:"spTree"`
}

type spTreeXML struct {
	Pic []picXML `xml:"pic"`
}

type picXML struct {
	NvPicPr  nvPicPrXML  `xml:"nvPicPr"`
	BlipFill blipFillXML `xml:"blipFill"`
	SpPr     spPrXML     `xml:"spPr"`
}

type nvPicPrXML struct {
	CNvPr cNvPrXML `xml:"cNvPr"`
}

type cNvPrXML struct {
	ID    int    `xml:"id,attr"`
	Name  string `xml:"name,attr"`
	Descr string `xml:"descr,attr"`
}

type blipFillXML struct {
	Blip blipXML `xml:"blip"`
}

type blipXML struct {
	Embed  string         `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
	ExtLst *blipExtLstXML `xml:"extLst"`
}

type blipExtLstXML struct {
	Ext []blipExtXML `xml:"ext"`
}

type blipExtXML struct {
	URI     string      `xml:"uri,attr"`
	SVGBlip *svgBlipXML `xml:"http://schemas.microsoft.com/office/drawing/2016/SVG/main svgBlip"`
}

type svgBlipXML struct {
	Embed string `xml:"http://schemas.openxmlformats.org/officeDocument/2006/relationships embed,attr"`
}

type spPrXML struct {
	Xfrm *xfrmXML `xml:"xfrm"`
}

type xfrmXML struct {
	Off offXML `xml:"off"`
	Ext extXML `xml:"ext"`
}

type offXML struct {
	X int64 `xml:"x,attr"`
	Y int64 `xml:"y,attr"`
}

type extXML struct {
	Cx int64 `xml:"cx,attr"`
	Cy int64 `xml:"cy,attr"`
}

// relationshipsXML represents .rels parts.
type relationshipsXML struct {
	XMLName      xml.Name          `xml:"http://schemas.openxmlformats.org/package/2006/relationships Relationships"`
	Relationship []relationshipXML `xml:"Relationship"`
}

type relationshipXML struct {
	ID         string `xml:"Id,attr"`
	Type       string `xml:"Type,attr"`
	Target     string `xml:"Target,attr"`
	TargetMode string `xml:"TargetMode,attr,omitempty"`
}

// contentTypesXML represents [Content_Types].xml.
type contentTypesXML struct {
	XMLName  xml.Name      `xml:"http://schemas.openxmlformats.org/package/2006/content-types Types"`
	Default  []defaultXML  `xml:"Default"`
	Override []overrideXML `xml:"Override"`
}

type defaultXML struct {
	Extension   string `xml:"Extension,attr"`
	ContentType string `xml:"ContentType,attr"`
}

type overrideXML struct {
	PartName    string `xml:"PartName,attr"`
	ContentType string `xml:"ContentType,attr"`
}
