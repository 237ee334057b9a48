package converter

import (
	"bytes"
	"fmt"
	"image"
	"image/png"
	"strings"

	"github.com/disintegration/imaging"
)

const (
	defaultCoverMaxWidth    = 1600
	defaultCoverJPEGQuality = 90
	defaultMaxPixels        = 100 * 1000 * 1000 // 100 megapixels
)

// CoverOptimizer downsizes cover images that are wider than MaxWidth.
type CoverOptimizer struct {
	MaxWidth    int
	JPEGQuality int
	MaxPixels   int // Total pixel count limit for decode (width * height)
}

// OptimizedImage holds the image to store in the book.
// Warning is set when the input was returned as-is because it could not be
// processed; Data is usable either way.
type OptimizedImage struct {
	Data      []byte
	Width     int
	Height    int
	MediaType string
	Warning   string
}

// NewCoverOptimizer creates a cover optimizer with defaults.
func NewCoverOptimizer(opts ConvertOptions) *CoverOptimizer {
	maxWidth := opts.CoverMaxWidth
	if maxWidth <= 0 {
		maxWidth = defaultCoverMaxWidth
	}
	return &CoverOptimizer{
		MaxWidth:    maxWidth,
		JPEGQuality: defaultCoverJPEGQuality,
		MaxPixels:   defaultMaxPixels,
	}
}

// Optimize returns input unchanged when it already fits, and a resized,
// re-encoded image otherwise. Opaque images are written as JPEG and images
// with transparency as PNG. Only encoding failures return an error.
func (o *CoverOptimizer) Optimize(mediaType string, input []byte) (OptimizedImage, error) {
	out := OptimizedImage{Data: input, MediaType: mediaType}

	cfg, _, err := image.DecodeConfig(bytes.NewReader(input))
	if err != nil {
		out.Warning = fmt.Sprintf("image decode failed: %v", err)
		return out, nil
	}
	out.Width, out.Height = cfg.Width, cfg.Height
	pixels := uint64(cfg.Width) * uint64(cfg.Height)
	if o.MaxPixels > 0 && pixels > uint64(o.MaxPixels) {
		out.Warning = fmt.Sprintf("image too large to decode: %dx%d (%d pixels)", cfg.Width, cfg.Height, pixels)
		return out, nil
	}
	if o.MaxWidth <= 0 || cfg.Width <= o.MaxWidth {
		return out, nil
	}

	src, err := imaging.Decode(bytes.NewReader(input), imaging.AutoOrientation(true))
	if err != nil {
		out.Warning = fmt.Sprintf("image decode failed: %v", err)
		return out, nil
	}
	resized := imaging.Resize(src, o.MaxWidth, 0, imaging.Lanczos)

	var buf bytes.Buffer
	if hasAlpha(resized) {
		err = imaging.Encode(&buf, resized, imaging.PNG, imaging.PNGCompressionLevel(png.BestCompression))
		out.MediaType = "image/png"
	} else {
		err = imaging.Encode(&buf, resized, imaging.JPEG, imaging.JPEGQuality(o.JPEGQuality))
		out.MediaType = "image/jpeg"
	}
	if err != nil {
		return OptimizedImage{}, fmt.Errorf("failed to encode cover: %w", err)
	}

	out.Data = buf.Bytes()
	out.Width = resized.Bounds().Dx()
	out.Height = resized.Bounds().Dy()
	return out, nil
}

// extensionFor returns the file extension matching an image media type.
func extensionFor(mediaType string) string {
	switch strings.ToLower(mediaType) {
	case "image/jpeg", "image/jpg":
		return ".jpg"
	case "image/png":
		return ".png"
	case "image/gif":
		return ".gif"
	case "image/svg+xml":
		return ".svg"
	case "image/webp":
		return ".webp"
	default:
		return ""
	}
}

func hasAlpha(img image.Image) bool {
	if o, ok := img.(interface{ Opaque() bool }); ok {
		return !o.Opaque()
	}
	bounds := img.Bounds()
	for y := bounds.Min.Y; y < bounds.Max.Y; y++ {
		for x := bounds.Min.X; x < bounds.Max.X; x++ {
			_, _, _, a := img.At(x, y).RGBA()
			if a < 0xFFFF {
				return true
			}
		}
	}
	return false
}
