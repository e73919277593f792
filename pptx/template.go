package pptx

const nsDecl = `xmlns:a="` + nsDrawingML + `" xmlns:r="` + nsRelationships + `" xmlns:p="` + nsPresentationML + `"`

const emptyGroup = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/><a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

// blankSlideXML is the body of every slide produced by the blank factory.
const blankSlideXML = xmlDeclaration +
	`<p:sld ` + nsDecl + `><p:cSld><p:spTree>` + emptyGroup + `</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sld>`

// transparentPNG is a 1x1 fully transparent image used when no raster
// fallback could be produced for a picture.
var transparentPNG = []byte{
	0x89, 0x50, 0x4e, 0x47, 0x0d, 0x0a, 0x1a, 0x0a, 0x00, 0x00, 0x00, 0x0d,
	0x49, 0x48, 0x44, 0x52, 0x00, 0x00, 0x00, 0x01, 0x00, 0x00, 0x00, 0x01,
	0x08, 0x06, 0x00, 0x00, 0x00, 0x1f, 0x15, 0xc4, 0x89, 0x00, 0x00, 0x00,
	0x0b, 0x49, 0x44, 0x41, 0x54, 0x78, 0x9c, 0x63, 0x60, 0x00, 0x02, 0x00,
	0x00, 0x05, 0x00, 0x01, 0x7a, 0x5e, 0xab, 0x3f, 0x00, 0x00, 0x00, 0x00,
	0x49, 0x45, 0x4e, 0x44, 0xae, 0x42, 0x60, 0x82,
}

// templateParts is the smallest package PowerPoint opens without repair:
// one master, one blank layout, a theme and the property parts.
var templateParts = []struct {
	name string
	body string
}{
	{partContentTypes, xmlDeclaration +
		`<Types xmlns="` + nsContentTypes + `">` +
		`<Default Extension="rels" ContentType="application/vnd.openxmlformats-package.relationships+xml"/>` +
		`<Default Extension="xml" ContentType="application/xml"/>` +
		`<Override PartName="/ppt/presentation.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presentation.main+xml"/>` +
		`<Override PartName="/ppt/slideMasters/slideMaster1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideMaster+xml"/>` +
		`<Override PartName="/ppt/slideLayouts/slideLayout1.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.slideLayout+xml"/>` +
		`<Override PartName="/ppt/theme/theme1.xml" ContentType="application/vnd.openxmlformats-officedocument.theme+xml"/>` +
		`<Override PartName="/ppt/presProps.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.presProps+xml"/>` +
		`<Override PartName="/ppt/viewProps.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.viewProps+xml"/>` +
		`<Override PartName="/ppt/tableStyles.xml" ContentType="application/vnd.openxmlformats-officedocument.presentationml.tableStyles+xml"/>` +
		`<Override PartName="/docProps/core.xml" ContentType="application/vnd.openxmlformats-package.core-properties+xml"/>` +
		`<Override PartName="/docProps/app.xml" ContentType="application/vnd.openxmlformats-officedocument.extended-properties+xml"/>` +
		`</Types>`},
	{"_rels/.rels", xmlDeclaration +
		`<Relationships xmlns="` + nsPackageRels + `">` +
		`<Relationship Id="rId1" Type="` + nsRelationships + `/officeDocument" Target="ppt/presentation.xml"/>` +
		`<Relationship Id="rId2" Type="` + nsPackageRels + `/metadata/core-properties" Target="docProps/core.xml"/>` +
		`<Relationship Id="rId3" Type="` + nsRelationships + `/extended-properties" Target="docProps/app.xml"/>` +
		`</Relationships>`},
	{"docProps/core.xml", xmlDeclaration +
		`<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties" ` +
		`xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/" ` +
		`xmlns:xsi="http://www.w3.org/2001/XMLSchema-instance"><dc:title>svgdeck</dc:title><dc:creator>svgdeck</dc:creator></cp:coreProperties>`},
	{"docProps/app.xml", xmlDeclaration +
		`<Properties xmlns="http://schemas.openxmlformats.org/officeDocument/2006/extended-properties">` +
		`<Application>svgdeck</Application></Properties>`},
	{partPresentation, xmlDeclaration +
		`<p:presentation ` + nsDecl + ` saveSubsetFonts="1">` +
		`<p:sldMasterIdLst><p:sldMasterId id="2147483648" r:id="rId1"/></p:sldMasterIdLst>` +
		`<p:sldSz cx="14630400" cy="8229600"/><p:notesSz cx="6858000" cy="9144000"/>` +
		`</p:presentation>`},
	{partPresRels, xmlDeclaration +
		`<Relationships xmlns="` + nsPackageRels + `">` +
		`<Relationship Id="rId1" Type="` + nsRelationships + `/slideMaster" Target="slideMasters/slideMaster1.xml"/>` +
		`<Relationship Id="rId2" Type="` + nsRelationships + `/theme" Target="theme/theme1.xml"/>` +
		`<Relationship Id="rId3" Type="` + nsRelationships + `/presProps" Target="presProps.xml"/>` +
		`<Relationship Id="rId4" Type="` + nsRelationships + `/viewProps" Target="viewProps.xml"/>` +
		`<Relationship Id="rId5" Type="` + nsRelationships + `/tableStyles" Target="tableStyles.xml"/>` +
		`</Relationships>`},
	{"ppt/presProps.xml", xmlDeclaration + `<p:presentationPr ` + nsDecl + `/>`},
	{"ppt/viewProps.xml", xmlDeclaration + `<p:viewPr ` + nsDecl + `/>`},
	{"ppt/tableStyles.xml", xmlDeclaration +
		`<a:tblStyleLst xmlns:a="` + nsDrawingML + `" def="{5C22544A-7EE6-4342-B048-85BDC9FD1C3A}"/>`},
	{"ppt/slideMasters/slideMaster1.xml", xmlDeclaration +
		`<p:sldMaster ` + nsDecl + `><p:cSld><p:bg><p:bgRef idx="1001"><a:schemeClr val="bg1"/></p:bgRef></p:bg>` +
		`<p:spTree>` + emptyGroup + `</p:spTree></p:cSld>` +
		`<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" ` +
		`accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>` +
		`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
		`<p:txStyles><p:titleStyle/><p:bodyStyle/><p:otherStyle/></p:txStyles></p:sldMaster>`},
	{"ppt/slideMasters/_rels/slideMaster1.xml.rels", xmlDeclaration +
		`<Relationships xmlns="` + nsPackageRels + `">` +
		`<Relationship Id="rId1" Type="` + relTypeSlideLayout + `" Target="../slideLayouts/slideLayout1.xml"/>` +
		`<Relationship Id="rId2" Type="` + nsRelationships + `/theme" Target="../theme/theme1.xml"/>` +
		`</Relationships>`},
	{"ppt/slideLayouts/slideLayout1.xml", xmlDeclaration +
		`<p:sldLayout ` + nsDecl + ` type="blank" preserve="1"><p:cSld name="Blank">` +
		`<p:spTree>` + emptyGroup + `</p:spTree></p:cSld>` +
		`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr></p:sldLayout>`},
	{"ppt/slideLayouts/_rels/slideLayout1.xml.rels", xmlDeclaration +
		`<Relationships xmlns="` + nsPackageRels + `">` +
		`<Relationship Id="rId1" Type="` + nsRelationships + `/slideMaster" Target="../slideMasters/slideMaster1.xml"/>` +
		`</Relationships>`},
	{"ppt/theme/theme1.xml", xmlDeclaration + themeXML},
}

const solidPh = `<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>`

const themeXML = `<a:theme xmlns:a="` + nsDrawingML + `" name="Office Theme"><a:themeElements>` +
	`<a:clrScheme name="Office">` +
	`<a:dk1><a:sysClr val="windowText" lastClr="000000"/></a:dk1>` +
	`<a:lt1><a:sysClr val="window" lastClr="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="44546A"/></a:dk2><a:lt2><a:srgbClr val="E7E6E6"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="4472C4"/></a:accent1><a:accent2><a:srgbClr val="ED7D31"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="A5A5A5"/></a:accent3><a:accent4><a:srgbClr val="FFC000"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="5B9BD5"/></a:accent5><a:accent6><a:srgbClr val="70AD47"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="0563C1"/></a:hlink><a:folHlink><a:srgbClr val="954F72"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="Office">` +
	`<a:majorFont><a:latin typeface="Calibri Light"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="Calibri"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="Office">` +
	`<a:fillStyleLst>` + solidPh + solidPh + solidPh + `</a:fillStyleLst>` +
	`<a:lnStyleLst>` +
	`<a:ln w="6350">` + solidPh + `</a:ln><a:ln w="12700">` + solidPh + `</a:ln><a:ln w="19050">` + solidPh + `</a:ln>` +
	`</a:lnStyleLst>` +
	`<a:effectStyleLst>` +
	`<a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle><a:effectStyle><a:effectLst/></a:effectStyle>` +
	`</a:effectStyleLst>` +
	`<a:bgFillStyleLst>` + solidPh + solidPh + solidPh + `</a:bgFillStyleLst>` +
	`</a:fmtScheme></a:themeElements></a:theme>`
