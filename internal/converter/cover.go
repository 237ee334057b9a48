package converter

import (
	"path/filepath"
	"strings"

	"github.com/yuanying/epubbuilder/internal/epub"
)

// CoverInfo describes the image chosen as cover.
type CoverInfo struct {
	Source          string
	MediaType       string
	DetectionMethod string
}

// DetectCover picks the cover image. An explicit path wins; otherwise the
// first image resource whose file name contains "cover" is used.
func DetectCover(explicit string, resources []string) *CoverInfo {
	if explicit != "" {
		return &CoverInfo{
			Source:          explicit,
			MediaType:       epub.MediaTypeOf(filepath.ToSlash(explicit)),
			DetectionMethod: "explicit",
		}
	}
	for _, res := range resources {
		mt := epub.MediaTypeOf(filepath.ToSlash(res))
		if !isImage(mt) {
			continue
		}
		base := strings.ToLower(filepath.Base(res))
		if strings.Contains(base, "cover") {
			return &CoverInfo{
				Source:          res,
				MediaType:       mt,
				DetectionMethod: "filename-pattern",
			}
		}
	}
	return nil
}

// isImage checks if a media type indicates an image file.
func isImage(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}

// isMarkdown reports whether a chapter source is Markdown.
func isMarkdown(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".md", ".markdown":
		return true
	}
	return false
}
