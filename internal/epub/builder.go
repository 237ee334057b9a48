// Package epub assembles EPUB 2.0.1 and 3.0.1 books from caller-supplied
// content, resources and metadata.
package epub

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"path"
	"strings"
	"time"

	"github.com/yuanying/epubbuilder/internal/archive"
	"github.com/yuanying/epubbuilder/internal/templates"
)

const (
	mimetypeName = "mimetype"
	mimetype     = "application/epub+zip"
	contentDir   = "OEBPS"
	containerXML = "META-INF/container.xml"
	ibooksXML    = "META-INF/com.apple.ibooks.display-options.xml"
)

type phase int

const (
	phaseBuilding phase = iota
	phaseFinalizing
	phaseWritten
)

// Builder collects a book and writes it once with Generate.
type Builder struct {
	cfg      Config
	archiver archive.Archiver
	log      *slog.Logger

	meta       Metadata
	reg        *registry
	stylesheet []byte
	toc        []*TocElement
	creatorIDs []string

	phase phase
	now   func() time.Time
}

// NewBuilder returns a Builder writing through a. A zero Version means V2.
func NewBuilder(a archive.Archiver, cfg Config) (*Builder, error) {
	if a == nil {
		return nil, errors.New("epub: nil archiver")
	}
	if cfg.Version == 0 {
		cfg.Version = V2
	}
	if cfg.Version != V2 && cfg.Version != V3 {
		return nil, fmt.Errorf("%w: %v", ErrInvalidVersion, cfg.Version)
	}
	if cfg.Direction != LTR && cfg.Direction != RTL {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDirection, int(cfg.Direction))
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	b := &Builder{
		cfg:      cfg,
		archiver: a,
		log:      logger,
		meta:     newMetadata(),
		reg:      newRegistry(),
		now:      time.Now,
	}
	if cfg.InlineTOC {
		if err := b.InlineTOC(); err != nil {
			return nil, err
		}
	}
	return b, nil
}

// Config returns the configuration the Builder was created with.
func (b *Builder) Config() Config { return b.cfg }

func (b *Builder) checkBuilding() error {
	if b.phase != phaseBuilding {
		return ErrAlreadyGenerated
	}
	return nil
}

func (b *Builder) hasLinearContent() bool {
	for _, e := range b.reg.entries {
		if e.kind == kindContent && e.linear() {
			return true
		}
	}
	return false
}

// tocEntries lists the spine documents in reading order as TOC input.
func (b *Builder) tocEntries() []*Content {
	var entries []*Content
	for _, e := range b.reg.entries {
		switch e.kind {
		case kindContent:
			entries = append(entries, e.content)
		case kindInlineTOC:
			entries = append(entries, &Content{
				Path:    e.path,
				Title:   b.meta.tocName(),
				Level:   1,
				RefType: RefToc,
			})
		}
	}
	return entries
}

// archiveFile is one entry of the output archive.
type archiveFile struct {
	name     string
	data     []byte
	compress bool
}

func inContentDir(name string, data []byte) archiveFile {
	return archiveFile{name: path.Join(contentDir, name), data: data, compress: true}
}

// Generate renders every document and writes the book to w. It can be
// called once; after it has started writing, later calls and all mutators
// return ErrAlreadyGenerated, whether or not writing succeeded.
// Without linear content it returns ErrEmptyBook and the Builder stays
// usable.
func (b *Builder) Generate(w io.Writer) error {
	if err := b.checkBuilding(); err != nil {
		return err
	}
	if !b.hasLinearContent() {
		return ErrEmptyBook
	}

	b.phase = phaseFinalizing
	defer func() { b.phase = phaseWritten }()

	b.meta.ensureIdentifier()
	if b.meta.Modified.IsZero() {
		b.meta.Modified = b.now().UTC()
	}
	b.assignIDs()
	b.toc = BuildTOC(b.tocEntries())

	files, err := b.render()
	if err != nil {
		return &PackagingError{Op: "render", Err: err}
	}
	b.log.Debug("writing epub", "version", b.cfg.Version.String(), "files", len(files), "toc_roots", len(b.toc))
	return b.write(w, files)
}

// render produces all archive entries in write order.
func (b *Builder) render() ([]archiveFile, error) {
	container, err := templates.Container(path.Join(contentDir, opfFile))
	if err != nil {
		return nil, err
	}
	files := []archiveFile{
		{name: mimetypeName, data: []byte(mimetype)},
		{name: containerXML, data: container, compress: true},
	}
	if b.cfg.IBooksDisplayOptions {
		opts, err := templates.IBooksDisplayOptions()
		if err != nil {
			return nil, err
		}
		files = append(files, archiveFile{name: ibooksXML, data: opts, compress: true})
	}

	opf, err := b.renderOPF()
	if err != nil {
		return nil, err
	}
	ncx, err := b.renderNCX()
	if err != nil {
		return nil, err
	}
	files = append(files, inContentDir(opfFile, opf), inContentDir(ncxFile, ncx))

	if b.cfg.Version == V3 {
		nav, err := b.renderNav()
		if err != nil {
			return nil, err
		}
		files = append(files, inContentDir(navFile, nav))
	}
	if b.hasInlineTOC() {
		page, err := b.renderInlineTOC()
		if err != nil {
			return nil, err
		}
		files = append(files, inContentDir(inlineTOCFile, page))
	}

	stylesheet := b.stylesheet
	if stylesheet == nil {
		stylesheet = []byte{}
	}
	files = append(files, inContentDir(stylesheetFile, stylesheet))

	for _, e := range b.reg.entries {
		if e.kind == kindInlineTOC {
			continue
		}
		files = append(files, inContentDir(e.path, e.data))
	}
	return files, nil
}

func (b *Builder) hasInlineTOC() bool {
	for _, e := range b.reg.entries {
		if e.kind == kindInlineTOC {
			return true
		}
	}
	return false
}

func (b *Builder) write(w io.Writer, files []archiveFile) error {
	if err := b.archiver.Begin(w); err != nil {
		return &PackagingError{Op: "begin", Err: err}
	}
	for _, f := range files {
		if err := b.archiver.WriteEntry(f.name, f.data, f.compress); err != nil {
			return &PackagingError{Op: "write", Path: f.name, Err: err}
		}
	}
	if err := b.archiver.Finish(); err != nil {
		return &PackagingError{Op: "finish", Err: err}
	}
	return nil
}

// MediaTypeOf infers a media type from the file extension.
func MediaTypeOf(p string) string {
	switch ext := strings.ToLower(path.Ext(p)); ext {
	case ".xhtml", ".html", ".htm":
		return MediaTypeXHTML
	case ".ncx":
		return MediaTypeNCX
	case ".css":
		return MediaTypeCSS
	case ".jpg", ".jpeg":
		return "image/jpeg"
	default:
		if t, _, err := mime.ParseMediaType(mime.TypeByExtension(ext)); err == nil {
			return t
		}
	}
	return "application/octet-stream"
}
