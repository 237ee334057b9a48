package epub

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yuanying/epubbuilder/internal/templates"
)

// Manifest ids of generated documents. IDSet never hands these out for
// registered files.
const (
	ncxID        = "ncx"
	navID        = "nav"
	stylesheetID = "stylesheet"
	inlineTOCID  = "toc"
)

// identifierID is the id of dc:identifier in the content.opf templates.
const identifierID = "epub-id-1"

var reservedIDs = []string{ncxID, navID, coverID, stylesheetID, inlineTOCID, identifierID}

// untitled is written where a document requires a title and none was set.
const untitled = "Untitled"

// manifestItem is one <item> of the package manifest.
type manifestItem struct {
	id         string
	href       string
	mediaType  string
	properties string
}

// assignIDs gives every registered file a unique manifest id. The first
// cover image gets "cover-image", the inline TOC page "toc". EPUB 3 creator
// ids are drawn from the same set first so the package document never
// repeats an id.
func (b *Builder) assignIDs() {
	ids := NewIDSet(reservedIDs...)
	b.creatorIDs = nil
	if b.cfg.Version == V3 {
		for i := range b.meta.Authors {
			b.creatorIDs = append(b.creatorIDs, ids.Unique("epub-creator-"+strconv.Itoa(i+1)))
		}
	}
	coverAssigned := false
	for _, e := range b.reg.entries {
		switch {
		case e.kind == kindInlineTOC:
			e.id = inlineTOCID
		case e.cover && !coverAssigned:
			e.id = coverID
			coverAssigned = true
		default:
			e.id = ids.Unique(e.path)
		}
	}
}

func (b *Builder) manifest() []manifestItem {
	items := []manifestItem{{id: ncxID, href: ncxFile, mediaType: MediaTypeNCX}}
	if b.cfg.Version == V3 {
		items = append(items, manifestItem{id: navID, href: navFile, mediaType: MediaTypeXHTML, properties: "nav"})
	}
	items = append(items, manifestItem{id: stylesheetID, href: stylesheetFile, mediaType: MediaTypeCSS})
	for _, e := range b.reg.entries {
		item := manifestItem{id: e.id, href: e.path, mediaType: e.mediaType}
		if b.cfg.Version == V3 && e.id == coverID {
			item.properties = "cover-image"
		}
		items = append(items, item)
	}
	return items
}

// renderOPF fills the package document for the configured version.
func (b *Builder) renderOPF() ([]byte, error) {
	m := &b.meta
	title := m.Title
	if title == "" {
		title = untitled
	}

	vars := map[string]string{
		"identifier":    escapeAttr(m.Identifier),
		"title":         b.text(title),
		"lang":          escapeAttr(m.Language),
		"date_modified": m.Modified.UTC().Format(dateFormat),
		"metadata":      b.opfMetadata(),
		"generator":     escapeAttr(m.Generator),
		"items":         b.opfItems(),
		"itemrefs":      b.opfItemRefs(),
	}

	name := templates.ContentOPFV2
	if b.cfg.Version == V3 {
		name = templates.ContentOPFV3
		vars["spine_attrs"] = fmt.Sprintf(` page-progression-direction="%s"`, b.cfg.Direction)
	} else {
		vars["guide"] = b.opfGuide()
	}
	return templates.Render(name, vars)
}

// opfMetadata renders the optional metadata elements, one per line.
func (b *Builder) opfMetadata() string {
	var sb strings.Builder
	line := func(format string, args ...any) {
		sb.WriteString("    ")
		fmt.Fprintf(&sb, format, args...)
		sb.WriteByte('\n')
	}

	m := &b.meta
	for i, author := range m.Authors {
		if b.cfg.Version == V3 {
			id := b.creatorIDs[i]
			line(`<dc:creator id="%s">%s</dc:creator>`, id, b.text(author))
			line(`<meta refines="#%s" property="role" scheme="marc:relators">aut</meta>`, id)
		} else {
			line(`<dc:creator opf:role="aut">%s</dc:creator>`, b.text(author))
		}
	}
	if m.Date != "" {
		if b.cfg.Version == V3 {
			line(`<dc:date>%s</dc:date>`, b.text(m.Date))
		} else {
			line(`<dc:date opf:event="publication">%s</dc:date>`, b.text(m.Date))
		}
	}
	if m.Publisher != "" {
		line(`<dc:publisher>%s</dc:publisher>`, b.text(m.Publisher))
	}
	for _, d := range m.Descriptions {
		line(`<dc:description>%s</dc:description>`, b.text(d))
	}
	for _, s := range m.Subjects {
		line(`<dc:subject>%s</dc:subject>`, b.text(s))
	}
	if m.License != "" {
		line(`<dc:rights>%s</dc:rights>`, b.text(m.License))
	}
	for _, meta := range m.Meta {
		line(`<meta name="%s" content="%s"/>`, b.text(meta.Name), b.text(meta.Content))
	}
	if cover := b.coverEntry(); cover != nil {
		line(`<meta name="cover" content="%s"/>`, cover.id)
	}
	return sb.String()
}

func (b *Builder) opfItems() string {
	var sb strings.Builder
	for _, item := range b.manifest() {
		fmt.Fprintf(&sb, `    <item id="%s" href="%s" media-type="%s"`, item.id, escapeAttr(item.href), escapeAttr(item.mediaType))
		if item.properties != "" {
			fmt.Fprintf(&sb, ` properties="%s"`, item.properties)
		}
		sb.WriteString("/>\n")
	}
	return sb.String()
}

func (b *Builder) opfItemRefs() string {
	var sb strings.Builder
	for _, e := range b.reg.entries {
		if !e.inSpine() {
			continue
		}
		fmt.Fprintf(&sb, `    <itemref idref="%s"`, e.id)
		if !e.linear() {
			sb.WriteString(` linear="no"`)
		}
		sb.WriteString("/>\n")
	}
	return sb.String()
}

// structural is a spine document carrying a reference type.
type structural struct {
	refType  RefType
	href     string
	title    string
	rawTitle string
}

func (b *Builder) structuralDocs() []structural {
	var docs []structural
	for _, e := range b.reg.entries {
		switch {
		case e.kind == kindInlineTOC:
			docs = append(docs, structural{refType: RefToc, href: e.path, title: b.meta.tocName()})
		case e.kind == kindContent && e.content.RefType != RefNone:
			c := e.content
			docs = append(docs, structural{refType: c.RefType, href: e.path, title: c.Title, rawTitle: c.RawTitle})
		}
	}
	return docs
}

// opfGuide renders the EPUB 2 guide, or nothing when no document has a
// reference type.
func (b *Builder) opfGuide() string {
	docs := b.structuralDocs()
	if len(docs) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("  <guide>\n")
	for _, d := range docs {
		fmt.Fprintf(&sb, `    <reference type="%s"`, d.refType.GuideType())
		if d.title != "" {
			fmt.Fprintf(&sb, ` title="%s"`, b.plainTitle(d.title, d.rawTitle))
		}
		fmt.Fprintf(&sb, " href=\"%s\"/>\n", escapeAttr(d.href))
	}
	sb.WriteString("  </guide>\n")
	return sb.String()
}
