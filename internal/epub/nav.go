package epub

import (
	"fmt"
	"strings"

	"github.com/yuanying/epubbuilder/internal/templates"
)

// renderNav renders nav.xhtml, the EPUB 3 navigation document.
func (b *Builder) renderNav() ([]byte, error) {
	return templates.Render(templates.NavV3, b.navVars(b.navList(b.navTree(), "ol", 6), b.landmarks()))
}

// renderInlineTOC renders toc.xhtml, the table of contents page in the
// reading order.
func (b *Builder) renderInlineTOC() ([]byte, error) {
	if b.cfg.Version == V3 {
		return templates.Render(templates.NavV3, b.navVars(b.navList(b.navTree(), "ol", 6), ""))
	}
	return templates.Render(templates.NavV2, b.navVars(b.navList(b.navTree(), "ul", 6), ""))
}

func (b *Builder) navVars(toc, landmarks string) map[string]string {
	return map[string]string{
		"lang":      escapeAttr(b.meta.Language),
		"direction": b.cfg.Direction.String(),
		"generator": escapeAttr(b.meta.Generator),
		"toc_name":  b.text(b.meta.tocName()),
		"toc":       toc,
		"landmarks": landmarks,
	}
}

// navList renders the tree as nested lists of links. Link text is markup,
// so titles are written verbatim when escaping is disabled.
func (b *Builder) navList(tree []*TocElement, tag string, indent int) string {
	pad := func(n int) string { return strings.Repeat(" ", n) }
	itemIndent := func(depth int) int { return indent + 2 + 4*(depth-1) }

	var sb strings.Builder
	fmt.Fprintf(&sb, "%s<%s>\n", pad(indent), tag)
	walkTOC(tree, func(e *TocElement, depth int) {
		li := itemIndent(depth)
		fmt.Fprintf(&sb, "%s<li><a href=\"%s\">%s</a>", pad(li), escapeAttr(e.URL), b.markupTitle(e.Title))
		if len(e.Children) > 0 {
			fmt.Fprintf(&sb, "\n%s<%s>\n", pad(li+2), tag)
		} else {
			sb.WriteString("</li>\n")
		}
	}, func(e *TocElement, depth int) {
		if len(e.Children) == 0 {
			return
		}
		li := itemIndent(depth)
		fmt.Fprintf(&sb, "%s</%s>\n%s</li>\n", pad(li+2), tag, pad(li))
	})
	fmt.Fprintf(&sb, "%s</%s>\n", pad(indent), tag)
	return sb.String()
}

// landmarks renders the EPUB 3 landmarks nav, or nothing when no titled
// document has a reference type.
func (b *Builder) landmarks() string {
	var items []string
	for _, d := range b.structuralDocs() {
		if d.title == "" {
			continue
		}
		items = append(items, fmt.Sprintf("        <li><a epub:type=\"%s\" href=\"%s\">%s</a></li>\n",
			d.refType.Landmark(), escapeAttr(d.href), b.plainTitle(d.title, d.rawTitle)))
	}
	if len(items) == 0 {
		return ""
	}

	var sb strings.Builder
	sb.WriteString("    <nav epub:type=\"landmarks\" id=\"landmarks\" hidden=\"hidden\">\n")
	sb.WriteString("      <ol>\n")
	for _, item := range items {
		sb.WriteString(item)
	}
	sb.WriteString("      </ol>\n")
	sb.WriteString("    </nav>\n")
	return sb.String()
}
