package epub

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"
	"testing"

	"github.com/PuerkitoBio/goquery"
)

// bookReader reads a generated archive back for assertions.
type bookReader struct {
	files   map[string]*zip.File
	order   []*zip.File
	opfPath string
}

// container.xml structure
type container struct {
	Rootfiles struct {
		Rootfile []struct {
			FullPath  string `xml:"full-path,attr"`
			MediaType string `xml:"media-type,attr"`
		} `xml:"rootfile"`
	} `xml:"rootfiles"`
}

var (
	errInvalidMimetype    = errors.New("invalid mimetype: must be 'application/epub+zip'")
	errMimetypeCompressed = errors.New("mimetype must not be compressed")
	errMimetypeNotFirst   = errors.New("mimetype must be the first entry")
	errContainerNotFound  = errors.New("META-INF/container.xml not found")
	errOPFPathNotFound    = errors.New("OPF path not found in container.xml")
)

// openBook opens and validates archive bytes.
func openBook(t *testing.T, data []byte) *bookReader {
	t.Helper()
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		t.Fatalf("failed to open archive: %v", err)
	}

	r := &bookReader{files: make(map[string]*zip.File), order: zr.File}
	for _, f := range zr.File {
		r.files[f.Name] = f
	}
	if err := r.validateMimetype(); err != nil {
		t.Fatalf("invalid mimetype: %v", err)
	}
	if err := r.parseContainer(); err != nil {
		t.Fatalf("invalid container: %v", err)
	}
	return r
}

func (r *bookReader) names() []string {
	names := make([]string, len(r.order))
	for i, f := range r.order {
		names[i] = f.Name
	}
	return names
}

func (r *bookReader) has(name string) bool {
	_, ok := r.files[name]
	return ok
}

func (r *bookReader) readFile(name string) ([]byte, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("file not found: %s", name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open file %s: %w", name, err)
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

func (r *bookReader) mustRead(t *testing.T, name string) string {
	t.Helper()
	data, err := r.readFile(name)
	if err != nil {
		t.Fatalf("%v", err)
	}
	return string(data)
}

// validateMimetype checks that mimetype is the first, stored entry.
func (r *bookReader) validateMimetype() error {
	if len(r.order) == 0 || r.order[0].Name != "mimetype" {
		return errMimetypeNotFirst
	}
	if r.order[0].Method != zip.Store {
		return errMimetypeCompressed
	}
	content, err := r.readFile("mimetype")
	if err != nil {
		return fmt.Errorf("failed to read mimetype: %w", err)
	}
	if string(content) != "application/epub+zip" {
		return errInvalidMimetype
	}
	return nil
}

// parseContainer parses container.xml to extract the OPF path.
func (r *bookReader) parseContainer() error {
	content, err := r.readFile("META-INF/container.xml")
	if err != nil {
		return errContainerNotFound
	}
	var c container
	if err := xml.Unmarshal(content, &c); err != nil {
		return fmt.Errorf("failed to parse container.xml: %w", err)
	}
	for _, rf := range c.Rootfiles.Rootfile {
		if rf.MediaType == "application/oebps-package+xml" {
			r.opfPath = rf.FullPath
			return nil
		}
	}
	return errOPFPathNotFound
}

// opfPackage represents the OPF XML structure
type opfPackage struct {
	XMLName  xml.Name    `xml:"package"`
	Version  string      `xml:"version,attr"`
	UniqueID string      `xml:"unique-identifier,attr"`
	Metadata opfMetadata `xml:"metadata"`
	Manifest struct {
		Items []opfManifestItem `xml:"item"`
	} `xml:"manifest"`
	Spine struct {
		Toc                      string       `xml:"toc,attr"`
		PageProgressionDirection string       `xml:"page-progression-direction,attr"`
		ItemRefs                 []opfItemRef `xml:"itemref"`
	} `xml:"spine"`
	Guide *struct {
		References []opfReference `xml:"reference"`
	} `xml:"guide"`
}

type opfMetadata struct {
	Title       []string        `xml:"http://purl.org/dc/elements/1.1/ title"`
	Creator     []opfCreator    `xml:"http://purl.org/dc/elements/1.1/ creator"`
	Language    []string        `xml:"http://purl.org/dc/elements/1.1/ language"`
	Identifier  []opfIdentifier `xml:"http://purl.org/dc/elements/1.1/ identifier"`
	Publisher   []string        `xml:"http://purl.org/dc/elements/1.1/ publisher"`
	Date        []string        `xml:"http://purl.org/dc/elements/1.1/ date"`
	Description []string        `xml:"http://purl.org/dc/elements/1.1/ description"`
	Subject     []string        `xml:"http://purl.org/dc/elements/1.1/ subject"`
	Rights      []string        `xml:"http://purl.org/dc/elements/1.1/ rights"`
	Meta        []opfMeta       `xml:"meta"`
}

type opfCreator struct {
	Name string `xml:",chardata"`
	Role string `xml:"http://www.idpf.org/2007/opf role,attr"`
	ID   string `xml:"id,attr"`
}

type opfIdentifier struct {
	Value string `xml:",chardata"`
	ID    string `xml:"id,attr"`
}

// opfMeta represents a meta element (EPUB 2.0 and 3.0)
type opfMeta struct {
	Name     string `xml:"name,attr"`
	Content  string `xml:"content,attr"`
	Value    string `xml:",chardata"`
	Property string `xml:"property,attr"`
	Refines  string `xml:"refines,attr"`
	Scheme   string `xml:"scheme,attr"`
}

type opfManifestItem struct {
	ID         string `xml:"id,attr"`
	Href       string `xml:"href,attr"`
	MediaType  string `xml:"media-type,attr"`
	Properties string `xml:"properties,attr"`
}

type opfItemRef struct {
	IDRef  string `xml:"idref,attr"`
	Linear string `xml:"linear,attr"`
}

type opfReference struct {
	Type  string `xml:"type,attr"`
	Title string `xml:"title,attr"`
	Href  string `xml:"href,attr"`
}

func (r *bookReader) opf(t *testing.T) *opfPackage {
	t.Helper()
	var pkg opfPackage
	if err := xml.Unmarshal([]byte(r.mustRead(t, r.opfPath)), &pkg); err != nil {
		t.Fatalf("failed to parse OPF XML: %v", err)
	}
	return &pkg
}

func (p *opfPackage) item(id string) (opfManifestItem, bool) {
	for _, item := range p.Manifest.Items {
		if item.ID == id {
			return item, true
		}
	}
	return opfManifestItem{}, false
}

// spineHrefs resolves the spine to manifest hrefs.
func (p *opfPackage) spineHrefs() []string {
	var hrefs []string
	for _, ref := range p.Spine.ItemRefs {
		if item, ok := p.item(ref.IDRef); ok {
			hrefs = append(hrefs, item.Href)
		}
	}
	return hrefs
}

// detectCover finds the cover image the way reading systems do:
// properties="cover-image" first, then <meta name="cover">.
func (p *opfPackage) detectCover() (href, method string) {
	for _, item := range p.Manifest.Items {
		for _, prop := range strings.Fields(item.Properties) {
			if prop == "cover-image" {
				return item.Href, "properties"
			}
		}
	}
	for _, m := range p.Metadata.Meta {
		if m.Name == "cover" && m.Content != "" {
			if item, ok := p.item(m.Content); ok {
				return item.Href, "meta"
			}
		}
	}
	return "", ""
}

// tocNode is a table of contents entry read from NCX or a nav document.
type tocNode struct {
	Label    string
	Href     string
	Children []tocNode
}

type ncxDoc struct {
	Head struct {
		Meta []struct {
			Name    string `xml:"name,attr"`
			Content string `xml:"content,attr"`
		} `xml:"meta"`
	} `xml:"head"`
	DocTitle string        `xml:"docTitle>text"`
	NavMap   []ncxNavPoint `xml:"navMap>navPoint"`
}

type ncxNavPoint struct {
	ID        string `xml:"id,attr"`
	PlayOrder int    `xml:"playOrder,attr"`
	Label     string `xml:"navLabel>text"`
	Content   struct {
		Src string `xml:"src,attr"`
	} `xml:"content"`
	Children []ncxNavPoint `xml:"navPoint"`
}

func (d *ncxDoc) meta(name string) string {
	for _, m := range d.Head.Meta {
		if m.Name == name {
			return m.Content
		}
	}
	return ""
}

func (r *bookReader) ncx(t *testing.T) *ncxDoc {
	t.Helper()
	var doc ncxDoc
	name := path.Join(path.Dir(r.opfPath), "toc.ncx")
	if err := xml.Unmarshal([]byte(r.mustRead(t, name)), &doc); err != nil {
		t.Fatalf("failed to parse NCX: %v", err)
	}
	return &doc
}

func ncxNodes(points []ncxNavPoint) []tocNode {
	var nodes []tocNode
	for _, p := range points {
		nodes = append(nodes, tocNode{Label: p.Label, Href: p.Content.Src, Children: ncxNodes(p.Children)})
	}
	return nodes
}

// flattenNCX lists navPoints in document order.
func flattenNCX(points []ncxNavPoint) []ncxNavPoint {
	var out []ncxNavPoint
	for _, p := range points {
		out = append(out, p)
		out = append(out, flattenNCX(p.Children)...)
	}
	return out
}

// navDocument parses an XHTML navigation document.
func (r *bookReader) navDocument(t *testing.T, name string) *goquery.Document {
	t.Helper()
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(r.mustRead(t, path.Join(path.Dir(r.opfPath), name))))
	if err != nil {
		t.Fatalf("failed to parse %s: %v", name, err)
	}
	return doc
}

// navNodes reads the list under the element with id "toc".
func navNodes(doc *goquery.Document) []tocNode {
	return listNodes(doc.Find("#toc").ChildrenFiltered("ol, ul"))
}

func listNodes(list *goquery.Selection) []tocNode {
	var nodes []tocNode
	list.ChildrenFiltered("li").Each(func(_ int, li *goquery.Selection) {
		a := li.ChildrenFiltered("a").First()
		href, _ := a.Attr("href")
		nodes = append(nodes, tocNode{
			Label:    a.Text(),
			Href:     href,
			Children: listNodes(li.ChildrenFiltered("ol, ul")),
		})
	})
	return nodes
}
