package render

// Static package parts for the deck. PowerPoint insists on a complete
// master/layout/theme skeleton even though every slide is drawn on a
// blank layout with explicit geometry.

const xmlHeader = `<?xml version="1.0" encoding="UTF-8" standalone="yes"?>` + "\n"

const nsDecls = `xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" xmlns:r="http://schemas.openxmlformats.org/officeDocument/2006/relationships" xmlns:p="http://schemas.openxmlformats.org/presentationml/2006/main"`

const relNS = `http://schemas.openxmlformats.org/package/2006/relationships`

const officeRelNS = `http://schemas.openxmlformats.org/officeDocument/2006/relationships`

const pptxRootRels = xmlHeader +
	`<Relationships xmlns="` + relNS + `">` +
	`<Relationship Id="rId1" Type="` + officeRelNS + `/officeDocument" Target="ppt/presentation.xml"/>` +
	`</Relationships>`

const emptySpTree = `<p:nvGrpSpPr><p:cNvPr id="1" name=""/><p:cNvGrpSpPr/><p:nvPr/></p:nvGrpSpPr>` +
	`<p:grpSpPr><a:xfrm><a:off x="0" y="0"/><a:ext cx="0" cy="0"/>` +
	`<a:chOff x="0" y="0"/><a:chExt cx="0" cy="0"/></a:xfrm></p:grpSpPr>`

const clrMap = `<p:clrMap bg1="lt1" tx1="dk1" bg2="lt2" tx2="dk2" accent1="accent1" accent2="accent2" accent3="accent3" accent4="accent4" accent5="accent5" accent6="accent6" hlink="hlink" folHlink="folHlink"/>`

const slideMasterXML = xmlHeader +
	`<p:sldMaster ` + nsDecls + `>` +
	`<p:cSld><p:bg><p:bgPr><a:solidFill><a:srgbClr val="FFFFFF"/></a:solidFill><a:effectLst/></p:bgPr></p:bg>` +
	`<p:spTree>` + emptySpTree + `</p:spTree></p:cSld>` +
	clrMap +
	`<p:sldLayoutIdLst><p:sldLayoutId id="2147483649" r:id="rId1"/></p:sldLayoutIdLst>` +
	`<p:txStyles><p:titleStyle/><p:bodyStyle/><p:otherStyle/></p:txStyles>` +
	`</p:sldMaster>`

const slideMasterRels = xmlHeader +
	`<Relationships xmlns="` + relNS + `">` +
	`<Relationship Id="rId1" Type="` + officeRelNS + `/slideLayout" Target="../slideLayouts/slideLayout1.xml"/>` +
	`<Relationship Id="rId2" Type="` + officeRelNS + `/theme" Target="../theme/theme1.xml"/>` +
	`</Relationships>`

const slideLayoutXML = xmlHeader +
	`<p:sldLayout ` + nsDecls + ` type="blank" preserve="1">` +
	`<p:cSld name="Blank"><p:spTree>` + emptySpTree + `</p:spTree></p:cSld>` +
	`<p:clrMapOvr><a:masterClrMapping/></p:clrMapOvr>` +
	`</p:sldLayout>`

const slideLayoutRels = xmlHeader +
	`<Relationships xmlns="` + relNS + `">` +
	`<Relationship Id="rId1" Type="` + officeRelNS + `/slideMaster" Target="../slideMasters/slideMaster1.xml"/>` +
	`</Relationships>`

const notesMasterXML = xmlHeader +
	`<p:notesMaster ` + nsDecls + `>` +
	`<p:cSld><p:spTree>` + emptySpTree + `</p:spTree></p:cSld>` +
	clrMap +
	`</p:notesMaster>`

const notesMasterRels = xmlHeader +
	`<Relationships xmlns="` + relNS + `">` +
	`<Relationship Id="rId1" Type="` + officeRelNS + `/theme" Target="../theme/theme2.xml"/>` +
	`</Relationships>`

// themeXML is a minimal-but-complete DrawingML theme carrying the deck
// palette. The format scheme entries are the bare shapes PowerPoint
// requires, not styling the slides actually rely on.
const themeXML = xmlHeader +
	`<a:theme xmlns:a="http://schemas.openxmlformats.org/drawingml/2006/main" name="%s">` +
	`<a:themeElements>` +
	`<a:clrScheme name="Lectern">` +
	`<a:dk1><a:srgbClr val="` + colorDarkText + `"/></a:dk1>` +
	`<a:lt1><a:srgbClr val="FFFFFF"/></a:lt1>` +
	`<a:dk2><a:srgbClr val="` + colorGray + `"/></a:dk2>` +
	`<a:lt2><a:srgbClr val="F2F2F2"/></a:lt2>` +
	`<a:accent1><a:srgbClr val="` + colorOrange + `"/></a:accent1>` +
	`<a:accent2><a:srgbClr val="` + colorAmber + `"/></a:accent2>` +
	`<a:accent3><a:srgbClr val="` + colorStripe + `"/></a:accent3>` +
	`<a:accent4><a:srgbClr val="` + colorGray + `"/></a:accent4>` +
	`<a:accent5><a:srgbClr val="8C8C8C"/></a:accent5>` +
	`<a:accent6><a:srgbClr val="D9D9D9"/></a:accent6>` +
	`<a:hlink><a:srgbClr val="` + colorOrange + `"/></a:hlink>` +
	`<a:folHlink><a:srgbClr val="` + colorAmber + `"/></a:folHlink>` +
	`</a:clrScheme>` +
	`<a:fontScheme name="Lectern">` +
	`<a:majorFont><a:latin typeface="` + fontTitle + `"/><a:ea typeface=""/><a:cs typeface=""/></a:majorFont>` +
	`<a:minorFont><a:latin typeface="` + fontBody + `"/><a:ea typeface=""/><a:cs typeface=""/></a:minorFont>` +
	`</a:fontScheme>` +
	`<a:fmtScheme name="Lectern">` +
	`<a:fillStyleLst>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`</a:fillStyleLst>` +
	`<a:lnStyleLst>` +
	`<a:ln w="6350"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>` +
	`<a:ln w="12700"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>` +
	`<a:ln w="19050"><a:solidFill><a:schemeClr val="phClr"/></a:solidFill></a:ln>` +
	`</a:lnStyleLst>` +
	`<a:effectStyleLst>` +
	`<a:effectStyle><a:effectLst/></a:effectStyle>` +
	`<a:effectStyle><a:effectLst/></a:effectStyle>` +
	`<a:effectStyle><a:effectLst/></a:effectStyle>` +
	`</a:effectStyleLst>` +
	`<a:bgFillStyleLst>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`<a:solidFill><a:schemeClr val="phClr"/></a:solidFill>` +
	`</a:bgFillStyleLst>` +
	`</a:fmtScheme>` +
	`</a:themeElements>` +
	`</a:theme>`
