package epub

import "strings"

// coverID is the manifest id of the first cover image.
const coverID = "cover-image"

// AddCoverImage registers the cover image. It is listed in the manifest with
// the cover-image property (EPUB 3) and referenced by <meta name="cover">.
func (b *Builder) AddCoverImage(path string, data []byte, mediaType string) error {
	if !isImageMediaType(mediaType) {
		b.log.Warn("cover image has a non-image media type", "path", path, "media_type", mediaType)
	}
	return b.addResource(path, data, mediaType, true)
}

// isImageMediaType checks if a media type is an image, SVG included.
func isImageMediaType(mediaType string) bool {
	return strings.HasPrefix(mediaType, "image/")
}

// coverEntry returns the first registered cover, or nil.
func (b *Builder) coverEntry() *entry {
	for _, e := range b.reg.entries {
		if e.cover {
			return e
		}
	}
	return nil
}
