package converter

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"

	"github.com/yuanying/epubbuilder/internal/epub"
	"github.com/yuanying/epubbuilder/internal/templates"
)

// ChapterOptions controls how one source document becomes a chapter.
type ChapterOptions struct {
	Path      string // path inside the book
	Title     string // overrides the heading-derived title
	Version   epub.Version
	Language  string
	Direction epub.Direction

	// Markup keeps inline markup of headings in titles; otherwise titles
	// are plain text.
	Markup bool

	// SourceDir resolves relative image references.
	SourceDir string
	Images    *AssetSet
}

// Chapter is an XHTML content document built from a source file.
type Chapter struct {
	Path     string
	Title    string
	RawTitle string
	Data     []byte
	Headings []*epub.TocElement
}

// Content converts the chapter for the builder.
func (c *Chapter) Content(level int, ref epub.RefType, nonLinear bool) *epub.Content {
	content := epub.NewContent(c.Path, c.Data)
	content.Title = c.Title
	content.RawTitle = c.RawTitle
	content.Level = level
	content.RefType = ref
	content.NonLinear = nonLinear
	content.Children = c.Headings
	return content
}

// BuildChapter parses an HTML document or fragment and wraps its body into
// an XHTML content document. name is the source file name, used as the
// title when neither opts.Title nor an <h1> provides one.
func BuildChapter(source []byte, name string, opts ChapterOptions) (*Chapter, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(source))
	if err != nil {
		return nil, fmt.Errorf("failed to parse %s: %w", name, err)
	}
	if opts.Version == epub.V2 {
		DowngradeToXHTML11(doc)
	}

	body := doc.Find("body")
	ch := &Chapter{Path: opts.Path}
	ch.Title, ch.RawTitle = chapterTitle(body, name, opts)
	ch.Headings = collectHeadings(body, opts)
	if opts.Images != nil {
		rewriteImages(body, opts.SourceDir, opts.Images)
	}

	var buf bytes.Buffer
	for n := body.Get(0).FirstChild; n != nil; n = n.NextSibling {
		if err := html.Render(&buf, n); err != nil {
			return nil, fmt.Errorf("failed to render %s: %w", name, err)
		}
	}

	tmpl := templates.ChapterV2
	if opts.Version == epub.V3 {
		tmpl = templates.ChapterV3
	}
	lang := opts.Language
	if lang == "" {
		lang = "en"
	}
	plain := ch.RawTitle
	if plain == "" {
		plain = ch.Title
	}
	ch.Data, err = templates.Render(tmpl, map[string]string{
		"lang":      html.EscapeString(lang),
		"direction": opts.Direction.String(),
		"title":     html.EscapeString(plain),
		"body":      strings.TrimSpace(buf.String()),
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

// chapterTitle picks the explicit title, the first <h1>, or the file name.
func chapterTitle(body *goquery.Selection, name string, opts ChapterOptions) (string, string) {
	if opts.Title != "" {
		return opts.Title, ""
	}
	if h1 := body.Find("h1").First(); h1.Length() > 0 {
		if title, raw := headingTitle(h1, opts.Markup); title != "" {
			return title, raw
		}
	}
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base)), ""
}

// headingTitle returns the title of a heading and its plain-text form. In
// markup mode the title is the heading's inner HTML.
func headingTitle(h *goquery.Selection, markup bool) (string, string) {
	text := strings.Join(strings.Fields(h.Text()), " ")
	if !markup {
		return text, ""
	}
	inner, err := h.Html()
	if err != nil {
		return text, ""
	}
	return strings.TrimSpace(inner), text
}

// collectHeadings gives every <h2> and <h3> an id and returns them as table
// of contents entries; an <h3> nests under the preceding <h2>.
func collectHeadings(body *goquery.Selection, opts ChapterOptions) []*epub.TocElement {
	ids := epub.NewIDSet()
	body.Find("[id]").Each(func(_ int, s *goquery.Selection) {
		id, _ := s.Attr("id")
		ids.Unique(id)
	})

	var roots []*epub.TocElement
	var section *epub.TocElement
	body.Find("h2, h3").Each(func(_ int, s *goquery.Selection) {
		title, raw := headingTitle(s, opts.Markup)
		if title == "" {
			return
		}
		id, ok := s.Attr("id")
		if !ok || id == "" {
			key := raw
			if key == "" {
				key = title
			}
			id = ids.Unique(key)
			s.SetAttr("id", id)
		}

		elem := &epub.TocElement{URL: opts.Path + "#" + id, Title: title, RawTitle: raw}
		if goquery.NodeName(s) == "h3" && section != nil {
			section.AddChild(elem)
			return
		}
		roots = append(roots, elem)
		if goquery.NodeName(s) == "h2" {
			section = elem
		}
	})
	return roots
}

// rewriteImages points relative <img> sources at their copy in the book.
func rewriteImages(body *goquery.Selection, sourceDir string, images *AssetSet) {
	body.Find("img[src]").Each(func(_ int, s *goquery.Selection) {
		src, _ := s.Attr("src")
		u, err := url.Parse(src)
		if err != nil || u.IsAbs() || u.Path == "" || strings.HasPrefix(u.Path, "/") {
			return
		}
		s.SetAttr("src", images.Add(filepath.Join(sourceDir, filepath.FromSlash(u.Path))))
	})
}

// AssetSet assigns book paths under one directory to files referenced by
// the book.
type AssetSet struct {
	dir      string
	bySource map[string]string
	used     map[string]bool
	order    []AssetRef
}

// AssetRef maps a file to its path inside the book.
type AssetRef struct {
	Source string
	Path   string
}

func NewAssetSet(dir string) *AssetSet {
	return &AssetSet{dir: dir, bySource: make(map[string]string), used: make(map[string]bool)}
}

// Add returns the book path for source, assigning one on first use. Base
// names are sanitized so they need no URL escaping, and distinct files that
// map to the same name get numbered names.
func (s *AssetSet) Add(source string) string {
	source = filepath.Clean(source)
	if p, ok := s.bySource[source]; ok {
		return p
	}
	base := filepath.Base(source)
	ext := strings.ToLower(filepath.Ext(base))
	stem := epub.SanitizeID(strings.TrimSuffix(base, filepath.Ext(base)))
	p := path.Join(s.dir, stem+ext)
	for n := 2; s.used[p]; n++ {
		p = path.Join(s.dir, stem+"-"+strconv.Itoa(n)+ext)
	}
	s.used[p] = true
	s.bySource[source] = p
	s.order = append(s.order, AssetRef{Source: source, Path: p})
	return p
}

// Assign maps source to a book path the caller stores itself. Later Add
// calls for source return p, and p is never handed to another file.
func (s *AssetSet) Assign(source, p string) {
	s.used[p] = true
	s.bySource[filepath.Clean(source)] = p
}

// Refs lists the files in first-reference order.
func (s *AssetSet) Refs() []AssetRef {
	return append([]AssetRef(nil), s.order...)
}
