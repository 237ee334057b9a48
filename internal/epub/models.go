package epub

import (
	"fmt"
	"log/slog"
	"strings"
)

// Version identifies the EPUB specification generation to write.
type Version int

const (
	V2 Version = 2 // EPUB 2.0.1
	V3 Version = 3 // EPUB 3.0.1
)

func (v Version) String() string {
	switch v {
	case V2:
		return "2.0"
	case V3:
		return "3.0"
	default:
		return fmt.Sprintf("Version(%d)", int(v))
	}
}

// ParseVersion accepts "2", "2.0", "2.0.1", "3", "3.0" and "3.0.1".
func ParseVersion(s string) (Version, error) {
	switch strings.TrimSpace(s) {
	case "2", "2.0", "2.0.1":
		return V2, nil
	case "3", "3.0", "3.0.1":
		return V3, nil
	}
	return 0, fmt.Errorf("%w: %q", ErrInvalidVersion, s)
}

// Direction is the page-progression direction of the book.
type Direction int

const (
	LTR Direction = iota
	RTL
)

func (d Direction) String() string {
	if d == RTL {
		return "rtl"
	}
	return "ltr"
}

// ParseDirection parses "ltr" or "rtl", case-insensitively.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ltr":
		return LTR, nil
	case "rtl":
		return RTL, nil
	}
	return LTR, fmt.Errorf("%w: %q", ErrInvalidDirection, s)
}

// Config is fixed when the Builder is created.
type Config struct {
	Version Version

	// EscapeHTML escapes titles and text fields in every generated document.
	// When false, titles are written verbatim and RawTitle is preferred in
	// contexts that cannot hold markup.
	EscapeHTML bool

	// InlineTOC inserts a table of contents page at the start of the
	// reading order.
	InlineTOC bool

	Direction Direction

	// IBooksDisplayOptions writes META-INF/com.apple.ibooks.display-options.xml.
	IBooksDisplayOptions bool

	Logger *slog.Logger
}

// DefaultConfig returns an EPUB 2 configuration with escaping enabled.
func DefaultConfig() Config {
	return Config{
		Version:              V2,
		EscapeHTML:           true,
		IBooksDisplayOptions: true,
	}
}

// Content is an XHTML document that takes part in the spine.
type Content struct {
	Path      string
	Data      []byte
	MediaType string

	// Title adds the document to the table of contents. Untitled content
	// still occupies its spine position.
	Title string
	// RawTitle is a markup-free alternative used when escaping is disabled.
	RawTitle string

	// Level controls nesting in the table of contents; 1 is top level.
	Level int

	RefType RefType

	// Children are entries inside this document, e.g. anchors of headings.
	Children []*TocElement

	// NonLinear removes the document from the default reading order.
	NonLinear bool
}

// NewContent returns level-1 XHTML content.
func NewContent(path string, data []byte) *Content {
	return &Content{
		Path:      path,
		Data:      data,
		MediaType: MediaTypeXHTML,
		Level:     1,
	}
}

// AddChild appends a table of contents entry inside this document.
func (c *Content) AddChild(e *TocElement) *Content {
	c.Children = append(c.Children, e)
	return c
}

// Resource is a file listed in the manifest but not in the spine.
type Resource struct {
	Path      string
	Data      []byte
	MediaType string
	Cover     bool
}

// TocElement is a node of the table of contents.
type TocElement struct {
	URL      string // path, optionally with a fragment
	Title    string
	RawTitle string
	Children []*TocElement
}

// NewTocElement returns an element without children.
func NewTocElement(url, title string) *TocElement {
	return &TocElement{URL: url, Title: title}
}

// AddChild appends child and returns e.
func (e *TocElement) AddChild(child *TocElement) *TocElement {
	e.Children = append(e.Children, child)
	return e
}

// Well-known media types.
const (
	MediaTypeXHTML = "application/xhtml+xml"
	MediaTypeCSS   = "text/css"
	MediaTypeNCX   = "application/x-dtbncx+xml"
)
