// Package templates renders the fixed parts of the documents inside an EPUB
// container. Templates use {{tag}} placeholders and are filled with values
// that are already escaped.
package templates

import (
	"embed"
	"errors"
	"fmt"
	"io"
	"path"

	"github.com/beevik/etree"
	"github.com/valyala/fasttemplate"
)

// Name identifies an embedded template.
type Name string

const (
	ContentOPFV2 Name = "v2/content.opf"
	ContentOPFV3 Name = "v3/content.opf"
	TocNCX       Name = "toc.ncx"
	NavV2        Name = "v2/nav.xhtml"
	NavV3        Name = "v3/nav.xhtml"
	ChapterV2    Name = "v2/chapter.xhtml"
	ChapterV3    Name = "v3/chapter.xhtml"
)

var ErrNotFound = errors.New("template not found")

//go:embed files
var files embed.FS

// Render substitutes vars into the named template. A placeholder without a
// value is an error.
func Render(name Name, vars map[string]string) ([]byte, error) {
	src, err := files.ReadFile(path.Join("files", string(name)))
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	t, err := fasttemplate.NewTemplate(string(src), "{{", "}}")
	if err != nil {
		return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
	}
	out, err := t.ExecuteFuncStringWithErr(func(w io.Writer, tag string) (int, error) {
		value, ok := vars[tag]
		if !ok {
			return 0, fmt.Errorf("missing value for %s", tag)
		}
		return w.Write([]byte(value))
	})
	if err != nil {
		return nil, fmt.Errorf("failed to render template %s: %w", name, err)
	}
	return []byte(out), nil
}

const (
	containerNS      = "urn:oasis:names:tc:opendocument:xmlns:container"
	packageMediaType = "application/oebps-package+xml"
)

// Container returns META-INF/container.xml pointing at the package document.
func Container(opfPath string) ([]byte, error) {
	doc := newDocument()
	container := doc.CreateElement("container")
	container.CreateAttr("version", "1.0")
	container.CreateAttr("xmlns", containerNS)
	rootfile := container.CreateElement("rootfiles").CreateElement("rootfile")
	rootfile.CreateAttr("full-path", opfPath)
	rootfile.CreateAttr("media-type", packageMediaType)
	return write(doc)
}

// IBooksDisplayOptions returns META-INF/com.apple.ibooks.display-options.xml
// enabling the book's embedded fonts.
func IBooksDisplayOptions() ([]byte, error) {
	doc := newDocument()
	platform := doc.CreateElement("display_options").CreateElement("platform")
	platform.CreateAttr("name", "*")
	option := platform.CreateElement("option")
	option.CreateAttr("name", "specified-fonts")
	option.SetText("true")
	return write(doc)
}

func newDocument() *etree.Document {
	doc := etree.NewDocument()
	doc.CreateProcInst("xml", `version="1.0" encoding="UTF-8"`)
	return doc
}

func write(doc *etree.Document) ([]byte, error) {
	doc.Indent(2)
	out, err := doc.WriteToBytes()
	if err != nil {
		return nil, fmt.Errorf("failed to serialize document: %w", err)
	}
	return out, nil
}
