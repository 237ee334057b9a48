package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/yuanying/epubbuilder/internal/converter"
	"github.com/yuanying/epubbuilder/internal/epub"
)

const defaultCoverMaxWidth = 1600

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "epubbuilder [flags] <chapter files...>",
		Short: "Build EPUB 2 and EPUB 3 books from Markdown and HTML",
		Long: `epubbuilder packages Markdown and HTML chapters into an EPUB 2.0.1
or EPUB 3.0.1 book.

Chapters are taken from the command line, a YAML manifest (--manifest),
or both. Files ending in .md are converted from Markdown; every other
chapter is read as HTML. Each chapter is titled by the manifest, else its
first <h1>, else its file name, and its <h2>/<h3> headings are added to
the table of contents.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := readCLIOptions(cmd, args)
			if err != nil {
				return err
			}

			opts.Logger.Info("building", "output", opts.OutputPath, "chapters", len(opts.Chapters))
			if err := converter.NewPipeline(opts).Convert(); err != nil {
				return fmt.Errorf("build failed: %w", err)
			}
			opts.Logger.Info("done", "output", opts.OutputPath)
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("output", "o", "", "Output file path (default: manifest or first chapter with .epub extension)")
	f.StringP("manifest", "m", "", "YAML book manifest")
	f.String("title", "", "Book title")
	f.StringArray("author", nil, "Author (repeatable)")
	f.String("lang", "", "Language code (default: en)")
	f.String("identifier", "", "Unique identifier (default: generated urn:uuid)")
	f.StringArray("description", nil, "Description (repeatable)")
	f.StringArray("subject", nil, "Subject (repeatable)")
	f.String("publisher", "", "Publisher")
	f.String("license", "", "License or rights statement")
	f.String("date", "", "Publication date")
	f.String("toc-name", "", "Title of the table of contents")
	f.String("epub-version", "", "EPUB version: 2 or 3 (default: 2)")
	f.String("direction", "", "Page progression direction: ltr or rtl")
	f.Bool("inline-toc", false, "Insert a table of contents page")
	f.Bool("no-escape", false, "Keep markup in chapter titles instead of escaping it")
	f.String("css", "", "Stylesheet file")
	f.String("cover", "", "Cover image (default: first resource named like cover)")
	f.Int("cover-max-width", defaultCoverMaxWidth, "Maximum cover width in pixels")
	f.StringArray("resource", nil, "Extra file to include (repeatable)")
	f.String("zip", converter.ZipAuto, "Archive backend: auto, library or command")
	f.String("zip-command", "zip", "zip program used by the command backend")
	f.String("log-level", "info", "Log level: debug, info, warn, error")
	f.String("log-format", "text", "Log format: text or json")
	f.BoolP("verbose", "v", false, "Enable debug logging")
	return cmd
}

// readCLIOptions validates flags and arguments.
func readCLIOptions(cmd *cobra.Command, args []string) (converter.ConvertOptions, error) {
	f := cmd.Flags()
	var opts converter.ConvertOptions

	opts.Chapters = args
	opts.OutputPath, _ = f.GetString("output")
	opts.ManifestPath, _ = f.GetString("manifest")
	if len(opts.Chapters) == 0 && opts.ManifestPath == "" {
		return opts, fmt.Errorf("no chapters given: pass chapter files or --manifest")
	}
	if opts.OutputPath == "" {
		first := ""
		if len(args) > 0 {
			first = args[0]
		}
		opts.OutputPath = defaultOutputPath(first, opts.ManifestPath)
	}

	opts.Title, _ = f.GetString("title")
	opts.Authors, _ = f.GetStringArray("author")
	opts.Language, _ = f.GetString("lang")
	opts.Identifier, _ = f.GetString("identifier")
	opts.Descriptions, _ = f.GetStringArray("description")
	opts.Subjects, _ = f.GetStringArray("subject")
	opts.Publisher, _ = f.GetString("publisher")
	opts.License, _ = f.GetString("license")
	opts.Date, _ = f.GetString("date")
	opts.TOCName, _ = f.GetString("toc-name")

	if v, _ := f.GetString("epub-version"); v != "" {
		version, err := epub.ParseVersion(v)
		if err != nil {
			return opts, fmt.Errorf("invalid --epub-version %q: must be 2 or 3", v)
		}
		opts.Version = version
	}
	opts.Direction, _ = f.GetString("direction")
	if opts.Direction != "" {
		if _, err := epub.ParseDirection(opts.Direction); err != nil {
			return opts, fmt.Errorf("invalid --direction %q: must be ltr or rtl", opts.Direction)
		}
	}
	opts.InlineTOC, _ = f.GetBool("inline-toc")
	opts.NoEscape, _ = f.GetBool("no-escape")

	opts.Stylesheet, _ = f.GetString("css")
	opts.Cover, _ = f.GetString("cover")
	opts.CoverMaxWidth, _ = f.GetInt("cover-max-width")
	if opts.CoverMaxWidth <= 0 {
		return opts, fmt.Errorf("invalid --cover-max-width %d: must be positive", opts.CoverMaxWidth)
	}
	opts.Resources, _ = f.GetStringArray("resource")

	opts.Zip, _ = f.GetString("zip")
	switch opts.Zip {
	case converter.ZipAuto, converter.ZipLibrary, converter.ZipCommand:
	default:
		return opts, fmt.Errorf("invalid --zip %q: must be auto, library or command", opts.Zip)
	}
	opts.ZipCommand, _ = f.GetString("zip-command")

	level, _ := f.GetString("log-level")
	level = strings.ToLower(level)
	switch level {
	case "debug", "info", "warn", "error":
	default:
		return opts, fmt.Errorf("invalid --log-level %q: must be debug, info, warn or error", level)
	}
	format, _ := f.GetString("log-format")
	format = strings.ToLower(format)
	if format != "text" && format != "json" {
		return opts, fmt.Errorf("invalid --log-format %q: must be text or json", format)
	}
	if verbose, _ := f.GetBool("verbose"); verbose {
		level = "debug"
	}
	opts.Logger = buildLogger(cmd.ErrOrStderr(), level, format)

	return opts, nil
}

func buildLogger(w io.Writer, level, format string) *slog.Logger {
	var lv slog.Level
	switch strings.ToLower(level) {
	case "debug":
		lv = slog.LevelDebug
	case "warn":
		lv = slog.LevelWarn
	case "error":
		lv = slog.LevelError
	default:
		lv = slog.LevelInfo
	}

	handlerOpts := &slog.HandlerOptions{Level: lv}
	if strings.EqualFold(format, "json") {
		return slog.New(slog.NewJSONHandler(w, handlerOpts))
	}
	return slog.New(slog.NewTextHandler(w, handlerOpts))
}

func defaultOutputPath(firstChapter, manifestPath string) string {
	return converter.DefaultOutputPath(firstChapter, manifestPath)
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
