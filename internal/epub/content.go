package epub

import (
	"fmt"
	"path"
	"strings"
)

// RefType marks the structural role of a content document. It feeds the
// EPUB 2 guide and the EPUB 3 landmarks.
type RefType int

const (
	RefNone RefType = iota
	RefCover
	RefTitlePage
	RefText
	RefToc
	RefGlossary
	RefAcknowledgements
	RefBibliography
	RefColophon
	RefCopyright
	RefDedication
	RefEpigraph
	RefForeword
	RefLOI
	RefLOT
	RefNotes
	RefPreface
	RefIndex
)

type refTypeInfo struct {
	guide    string // EPUB 2 guide reference type
	landmark string // EPUB 3 epub:type
}

var refTypes = map[RefType]refTypeInfo{
	RefCover:            {"cover", "cover"},
	RefTitlePage:        {"title-page", "titlepage"},
	RefText:             {"text", "bodymatter"},
	RefToc:              {"toc", "toc"},
	RefGlossary:         {"glossary", "glossary"},
	RefAcknowledgements: {"acknowledgements", "acknowledgements"},
	RefBibliography:     {"bibliography", "bibliography"},
	RefColophon:         {"colophon", "colophon"},
	RefCopyright:        {"copyright", "copyright-page"},
	RefDedication:       {"dedication", "dedication"},
	RefEpigraph:         {"epigraph", "epigraph"},
	RefForeword:         {"foreword", "foreword"},
	RefLOI:              {"loi", "loi"},
	RefLOT:              {"lot", "lot"},
	RefNotes:            {"notes", "endnotes"},
	RefPreface:          {"preface", "preface"},
	RefIndex:            {"index", "index"},
}

// GuideType returns the EPUB 2 guide type, or "" for RefNone.
func (r RefType) GuideType() string { return refTypes[r].guide }

// Landmark returns the EPUB 3 landmark epub:type, or "" for RefNone.
func (r RefType) Landmark() string { return refTypes[r].landmark }

// ParseRefType accepts guide types and landmark names.
func ParseRefType(s string) (RefType, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return RefNone, true
	}
	for r, info := range refTypes {
		if info.guide == s || info.landmark == s {
			return r, true
		}
	}
	return RefNone, false
}

// Reserved paths of generated documents, relative to the content directory.
const (
	opfFile        = "content.opf"
	ncxFile        = "toc.ncx"
	navFile        = "nav.xhtml"
	stylesheetFile = "stylesheet.css"
	inlineTOCFile  = "toc.xhtml"
)

type entryKind int

const (
	kindContent entryKind = iota
	kindResource
	kindInlineTOC
)

// entry is one registered file in registration order.
type entry struct {
	kind      entryKind
	path      string
	mediaType string
	data      []byte
	content   *Content // kindContent only
	cover     bool
	id        string // assigned during Generate
}

func (e *entry) linear() bool {
	switch e.kind {
	case kindContent:
		return !e.content.NonLinear
	case kindInlineTOC:
		return true
	}
	return false
}

func (e *entry) inSpine() bool {
	return e.kind == kindContent || e.kind == kindInlineTOC
}

// registry keeps content, resources, and the inline TOC page in insertion
// order, rejecting duplicate or reserved paths.
type registry struct {
	entries []*entry
	paths   map[string]struct{}
}

func newRegistry() *registry {
	r := &registry{paths: make(map[string]struct{})}
	for _, p := range []string{opfFile, ncxFile, navFile, stylesheetFile} {
		r.paths[p] = struct{}{}
	}
	return r
}

func (r *registry) add(e *entry) error {
	if _, ok := r.paths[e.path]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, e.path)
	}
	r.paths[e.path] = struct{}{}
	r.entries = append(r.entries, e)
	return nil
}

// normalizePath converts p to a clean forward-slash path relative to the
// content directory.
func normalizePath(p string) (string, error) {
	orig := p
	p = strings.ReplaceAll(p, "\\", "/")
	p = strings.TrimPrefix(p, "./")
	if p == "" || strings.HasPrefix(p, "/") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, orig)
	}
	p = path.Clean(p)
	if p == "." || p == ".." || strings.HasPrefix(p, "../") {
		return "", fmt.Errorf("%w: %q", ErrInvalidPath, orig)
	}
	return p, nil
}

// AddContent registers an XHTML document at the current spine position.
// c is copied; Data is retained without copying.
func (b *Builder) AddContent(c *Content) error {
	if err := b.checkBuilding(); err != nil {
		return err
	}
	if c == nil {
		return fmt.Errorf("%w: nil content", ErrInvalidPath)
	}
	p, err := normalizePath(c.Path)
	if err != nil {
		return err
	}
	cc := *c
	cc.Path = p
	if cc.MediaType == "" {
		cc.MediaType = MediaTypeXHTML
	}
	if cc.Level < 1 {
		cc.Level = 1
	}
	if err := b.reg.add(&entry{kind: kindContent, path: p, mediaType: cc.MediaType, data: cc.Data, content: &cc}); err != nil {
		return err
	}
	b.log.Debug("content added", "path", p, "title", cc.Title, "level", cc.Level)
	return nil
}

// AddResource registers a manifest-only file such as an image, font or
// stylesheet. An empty MediaType is guessed from the extension. Cover marks
// the file as the cover image, as AddCoverImage does.
func (b *Builder) AddResource(r *Resource) error {
	if r == nil {
		return fmt.Errorf("%w: nil resource", ErrInvalidPath)
	}
	if r.Cover {
		return b.AddCoverImage(r.Path, r.Data, r.MediaType)
	}
	return b.addResource(r.Path, r.Data, r.MediaType, false)
}

func (b *Builder) addResource(p string, data []byte, mediaType string, cover bool) error {
	if err := b.checkBuilding(); err != nil {
		return err
	}
	np, err := normalizePath(p)
	if err != nil {
		return err
	}
	if mediaType == "" {
		mediaType = MediaTypeOf(np)
	}
	if err := b.reg.add(&entry{kind: kindResource, path: np, mediaType: mediaType, data: data, cover: cover}); err != nil {
		return err
	}
	b.log.Debug("resource added", "path", np, "media_type", mediaType, "cover", cover)
	return nil
}

// Stylesheet supplies stylesheet.css. Without it an empty stylesheet is
// written.
func (b *Builder) Stylesheet(data []byte) error {
	if err := b.checkBuilding(); err != nil {
		return err
	}
	if b.stylesheet != nil {
		return fmt.Errorf("%w: %s", ErrDuplicatePath, stylesheetFile)
	}
	if data == nil {
		data = []byte{}
	}
	b.stylesheet = data
	return nil
}

// InlineTOC inserts the table of contents page at the current spine
// position.
func (b *Builder) InlineTOC() error {
	if err := b.checkBuilding(); err != nil {
		return err
	}
	if err := b.reg.add(&entry{kind: kindInlineTOC, path: inlineTOCFile, mediaType: MediaTypeXHTML}); err != nil {
		return err
	}
	b.log.Debug("inline toc added", "position", len(b.reg.entries)-1)
	return nil
}
