package converter

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/yuanying/epubbuilder/internal/archive"
	"github.com/yuanying/epubbuilder/internal/epub"
)

// Archive backends selectable with ConvertOptions.Zip.
const (
	ZipAuto    = "auto"
	ZipLibrary = "library"
	ZipCommand = "command"
)

const (
	imagesDir    = "images"
	resourcesDir = "resources"
	coverStem    = "cover"
)

var (
	ErrNoChapters     = errors.New("no chapters to convert")
	ErrInvalidZipMode = errors.New("invalid zip mode")
)

// ConvertOptions holds options for the conversion pipeline. Values set here
// take precedence over the manifest.
type ConvertOptions struct {
	Chapters     []string
	ManifestPath string
	OutputPath   string

	Title        string
	Authors      []string
	Language     string
	Identifier   string
	Descriptions []string
	Subjects     []string
	Date         string
	Publisher    string
	License      string
	TOCName      string

	Version   epub.Version // zero means the manifest's, else EPUB 2
	Direction string       // "" means the manifest's, else ltr
	InlineTOC bool
	NoEscape  bool

	Stylesheet    string
	Cover         string
	CoverMaxWidth int
	Resources     []string

	Zip        string
	ZipCommand string

	Logger *slog.Logger
}

// chapterSpec is one chapter of the reading order.
type chapterSpec struct {
	file      string
	title     string
	level     int
	ref       epub.RefType
	nonLinear bool
}

// Pipeline turns chapter sources into an EPUB file.
type Pipeline struct {
	Options ConvertOptions
	log     *slog.Logger
}

// NewPipeline creates a new conversion pipeline.
func NewPipeline(opts ConvertOptions) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Pipeline{Options: opts, log: logger}
}

// Convert executes the conversion pipeline.
func (p *Pipeline) Convert() error {
	opts, chapters, err := p.plan()
	if err != nil {
		return err
	}

	arch, err := newArchiver(opts.Zip, opts.ZipCommand)
	if err != nil {
		return err
	}
	if fb, ok := arch.(*archive.Fallback); ok && fb.ProbeErr() != nil {
		p.log.Debug("using fallback archiver", "error", fb.ProbeErr())
	}

	direction := epub.LTR
	if opts.Direction != "" {
		if direction, err = epub.ParseDirection(opts.Direction); err != nil {
			return err
		}
	}
	cfg := epub.DefaultConfig()
	cfg.Version = opts.Version
	cfg.EscapeHTML = !opts.NoEscape
	cfg.InlineTOC = opts.InlineTOC
	cfg.Direction = direction
	cfg.Logger = p.log

	b, err := epub.NewBuilder(arch, cfg)
	if err != nil {
		return fmt.Errorf("failed to create builder: %w", err)
	}
	if err := p.setMetadata(b, opts); err != nil {
		return err
	}

	if opts.Stylesheet != "" {
		data, err := os.ReadFile(opts.Stylesheet)
		if err != nil {
			return fmt.Errorf("failed to read stylesheet: %w", err)
		}
		if err := b.Stylesheet(data); err != nil {
			return err
		}
	}

	images := NewAssetSet(imagesDir)
	cover, err := p.addCover(b, opts, images)
	if err != nil {
		return err
	}

	for i, spec := range chapters {
		if err := p.addChapter(b, opts, i, spec, images); err != nil {
			return err
		}
	}
	for _, ref := range images.Refs() {
		if err := addFile(b, ref); err != nil {
			return err
		}
	}

	extra := NewAssetSet(resourcesDir)
	for _, res := range opts.Resources {
		if cover != nil && filepath.Clean(res) == filepath.Clean(cover.Source) {
			continue
		}
		extra.Add(res)
	}
	for _, ref := range extra.Refs() {
		if err := addFile(b, ref); err != nil {
			return err
		}
	}

	if err := p.write(b, opts.OutputPath); err != nil {
		return err
	}
	p.log.Info("wrote book", "path", opts.OutputPath, "chapters", len(chapters), "version", cfg.Version.String())
	return nil
}

// plan merges the manifest into the options and lists the chapters.
func (p *Pipeline) plan() (ConvertOptions, []chapterSpec, error) {
	opts := p.Options
	var chapters []chapterSpec

	if opts.ManifestPath != "" {
		m, err := LoadManifest(opts.ManifestPath)
		if err != nil {
			return opts, nil, err
		}
		if err := mergeManifest(&opts, m); err != nil {
			return opts, nil, err
		}
		for _, c := range m.Chapters {
			ref, ok := epub.ParseRefType(c.Type)
			if !ok {
				return opts, nil, fmt.Errorf("chapter %s: unknown type %q", c.File, c.Type)
			}
			chapters = append(chapters, chapterSpec{
				file:      c.File,
				title:     c.Title,
				level:     max(c.Level, 1),
				ref:       ref,
				nonLinear: c.Linear != nil && !*c.Linear,
			})
		}
	}
	for _, f := range opts.Chapters {
		chapters = append(chapters, chapterSpec{file: f, level: 1})
	}
	if len(chapters) == 0 {
		return opts, nil, ErrNoChapters
	}
	if opts.OutputPath == "" {
		opts.OutputPath = DefaultOutputPath(chapters[0].file, opts.ManifestPath)
	}
	return opts, chapters, nil
}

func mergeManifest(opts *ConvertOptions, m *Manifest) error {
	setString := func(dst *string, v string) {
		if *dst == "" {
			*dst = v
		}
	}
	setList := func(dst *[]string, v []string) {
		if len(*dst) == 0 {
			*dst = v
		}
	}
	setString(&opts.Title, m.Title)
	setList(&opts.Authors, m.Authors)
	setString(&opts.Language, m.Language)
	setString(&opts.Identifier, m.Identifier)
	setList(&opts.Descriptions, m.Descriptions)
	setList(&opts.Subjects, m.Subjects)
	setString(&opts.Date, m.Date)
	setString(&opts.Publisher, m.Publisher)
	setString(&opts.License, m.License)
	setString(&opts.TOCName, m.TOCName)
	setString(&opts.Direction, m.Direction)
	setString(&opts.Stylesheet, m.Stylesheet)
	setString(&opts.Cover, m.Cover)
	opts.Resources = append(m.Resources, opts.Resources...)

	if opts.Version == 0 && m.Version != "" {
		v, err := epub.ParseVersion(m.Version)
		if err != nil {
			return err
		}
		opts.Version = v
	}
	if m.InlineTOC != nil && *m.InlineTOC {
		opts.InlineTOC = true
	}
	return nil
}

func (p *Pipeline) setMetadata(b *epub.Builder, opts ConvertOptions) error {
	fields := []struct {
		key    epub.MetadataKey
		values []string
	}{
		{epub.KeyTitle, []string{opts.Title}},
		{epub.KeyAuthor, opts.Authors},
		{epub.KeyLanguage, []string{opts.Language}},
		{epub.KeyIdentifier, []string{opts.Identifier}},
		{epub.KeyDescription, opts.Descriptions},
		{epub.KeySubject, opts.Subjects},
		{epub.KeyDate, []string{opts.Date}},
		{epub.KeyPublisher, []string{opts.Publisher}},
		{epub.KeyLicense, []string{opts.License}},
		{epub.KeyTOCName, []string{opts.TOCName}},
	}
	for _, f := range fields {
		for _, v := range f.values {
			if v == "" {
				continue
			}
			if err := b.SetMetadata(f.key, v); err != nil {
				return err
			}
		}
	}
	return nil
}

// addCover stores the detected cover image, downsized if needed.
func (p *Pipeline) addCover(b *epub.Builder, opts ConvertOptions, images *AssetSet) (*CoverInfo, error) {
	cover := DetectCover(opts.Cover, opts.Resources)
	if cover == nil {
		return nil, nil
	}
	data, err := os.ReadFile(cover.Source)
	if err != nil {
		return nil, fmt.Errorf("failed to read cover: %w", err)
	}
	img, err := NewCoverOptimizer(opts).Optimize(cover.MediaType, data)
	if err != nil {
		return nil, err
	}
	if img.Warning != "" {
		p.log.Warn("cover image left unchanged", "path", cover.Source, "reason", img.Warning)
	}

	ext := extensionFor(img.MediaType)
	if ext == "" {
		ext = strings.ToLower(filepath.Ext(cover.Source))
	}
	p.log.Debug("adding cover", "path", cover.Source, "method", cover.DetectionMethod,
		"width", img.Width, "height", img.Height)
	coverPath := path.Join(imagesDir, coverStem+ext)
	if err := b.AddCoverImage(coverPath, img.Data, img.MediaType); err != nil {
		return nil, err
	}
	images.Assign(cover.Source, coverPath)
	return cover, nil
}

func (p *Pipeline) addChapter(b *epub.Builder, opts ConvertOptions, i int, spec chapterSpec, images *AssetSet) error {
	src, err := os.ReadFile(spec.file)
	if err != nil {
		return fmt.Errorf("failed to read chapter: %w", err)
	}
	if isMarkdown(spec.file) {
		if src, err = MarkdownToHTML(src); err != nil {
			return fmt.Errorf("%s: %w", spec.file, err)
		}
	}

	direction, _ := epub.ParseDirection(opts.Direction)
	ch, err := BuildChapter(src, spec.file, ChapterOptions{
		Path:      fmt.Sprintf("ch%03d.xhtml", i+1),
		Title:     spec.title,
		Version:   b.Config().Version,
		Language:  opts.Language,
		Direction: direction,
		Markup:    opts.NoEscape,
		SourceDir: filepath.Dir(spec.file),
		Images:    images,
	})
	if err != nil {
		return err
	}
	p.log.Debug("converted chapter", "source", spec.file, "path", ch.Path, "title", ch.Title, "headings", len(ch.Headings))
	return b.AddContent(ch.Content(spec.level, spec.ref, spec.nonLinear))
}

func addFile(b *epub.Builder, ref AssetRef) error {
	data, err := os.ReadFile(ref.Source)
	if err != nil {
		return fmt.Errorf("failed to read resource: %w", err)
	}
	return b.AddResource(&epub.Resource{Path: ref.Path, Data: data})
}

// write generates the book into a temporary file next to the output and
// renames it into place.
func (p *Pipeline) write(b *epub.Builder, outputPath string) error {
	f, err := os.CreateTemp(filepath.Dir(outputPath), ".epubbuilder-*")
	if err != nil {
		return fmt.Errorf("failed to create output file: %w", err)
	}
	tmp := f.Name()
	defer os.Remove(tmp)

	if err := b.Generate(f); err != nil {
		f.Close()
		return fmt.Errorf("failed to write EPUB: %w", err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("failed to write EPUB: %w", err)
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		return fmt.Errorf("failed to move output into place: %w", err)
	}
	return nil
}

func newArchiver(mode, program string) (archive.Archiver, error) {
	switch mode {
	case "", ZipAuto:
		return archive.NewAuto(program), nil
	case ZipLibrary:
		return archive.NewLibrary(), nil
	case ZipCommand:
		c := archive.NewCommand(program)
		if err := c.Probe(); err != nil {
			return nil, err
		}
		return c, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrInvalidZipMode, mode)
}

// DefaultOutputPath derives the book path from the manifest, or else the
// first chapter.
func DefaultOutputPath(firstChapter, manifestPath string) string {
	base := firstChapter
	if manifestPath != "" {
		base = manifestPath
	}
	return strings.TrimSuffix(base, filepath.Ext(base)) + ".epub"
}
