package epub

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/yuanying/epubbuilder/internal/templates"
)

// navTree returns the tree rendered into toc.ncx and the navigation
// documents. Both formats need at least one entry, so an empty table of
// contents becomes a single entry for the first linear document, labelled
// with the book title.
func (b *Builder) navTree() []*TocElement {
	if len(b.toc) > 0 {
		return b.toc
	}
	title := b.meta.Title
	if title == "" {
		title = untitled
	}
	for _, e := range b.reg.entries {
		if e.inSpine() && e.linear() {
			return []*TocElement{{URL: e.path, Title: title}}
		}
	}
	return nil
}

func (b *Builder) renderNCX() ([]byte, error) {
	tree := b.navTree()
	title := b.meta.Title
	if title == "" {
		title = untitled
	}
	return templates.Render(templates.TocNCX, map[string]string{
		"identifier": escapeAttr(b.meta.Identifier),
		"depth":      strconv.Itoa(max(tocDepth(tree), 1)),
		"title":      b.text(title),
		"nav_points": b.ncxNavPoints(tree),
	})
}

// ncxNavPoints renders nested navPoints numbered in document order.
func (b *Builder) ncxNavPoints(tree []*TocElement) string {
	var sb strings.Builder
	order := 0
	indent := func(depth int) string { return strings.Repeat("  ", depth+1) }

	walkTOC(tree, func(e *TocElement, depth int) {
		order++
		in := indent(depth)
		fmt.Fprintf(&sb, "%s<navPoint id=\"navPoint-%d\" playOrder=\"%d\">\n", in, order, order)
		fmt.Fprintf(&sb, "%s  <navLabel>\n%s    <text>%s</text>\n%s  </navLabel>\n", in, in, b.plainTitle(e.Title, e.RawTitle), in)
		fmt.Fprintf(&sb, "%s  <content src=\"%s\"/>\n", in, escapeAttr(e.URL))
	}, func(_ *TocElement, depth int) {
		fmt.Fprintf(&sb, "%s</navPoint>\n", indent(depth))
	})
	return sb.String()
}
