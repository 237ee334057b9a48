package converter

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"image/png"
	"testing"
)

func TestCoverOptimizer_ResizeOverMaxWidth(t *testing.T) {
	src := makeSolidNRGBA(1200, 800, color.NRGBA{R: 20, G: 50, B: 200, A: 255})
	data := mustEncodeJPEG(t, src, 90)
	opt := NewCoverOptimizer(ConvertOptions{CoverMaxWidth: 600})

	out, err := opt.Optimize("image/jpeg", data)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if out.Width != 600 || out.Height != 400 {
		t.Fatalf("got %dx%d, want 600x400", out.Width, out.Height)
	}
	if out.MediaType != "image/jpeg" {
		t.Fatalf("media type = %q, want image/jpeg", out.MediaType)
	}
	cfg, format, err := image.DecodeConfig(bytes.NewReader(out.Data))
	if err != nil || format != "jpeg" || cfg.Width != 600 {
		t.Fatalf("output decode = %v %q %d", err, format, cfg.Width)
	}
}

func TestCoverOptimizer_NoResizeUnderMaxWidth(t *testing.T) {
	src := makeSolidNRGBA(500, 300, color.NRGBA{R: 100, G: 120, B: 140, A: 255})
	data := mustEncodePNG(t, src)
	opt := NewCoverOptimizer(ConvertOptions{CoverMaxWidth: 600})

	out, err := opt.Optimize("image/png", data)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if !bytes.Equal(out.Data, data) || out.MediaType != "image/png" {
		t.Fatal("image within limits should pass through unchanged")
	}
	if out.Width != 500 || out.Height != 300 {
		t.Fatalf("got %dx%d, want 500x300", out.Width, out.Height)
	}
}

func TestCoverOptimizer_OpaquePNGBecomesJPEG(t *testing.T) {
	src := makePatternNRGBA(900, 300)
	data := mustEncodePNG(t, src)
	opt := NewCoverOptimizer(ConvertOptions{CoverMaxWidth: 300})

	out, err := opt.Optimize("image/png", data)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if out.MediaType != "image/jpeg" {
		t.Fatalf("media type = %q, want image/jpeg", out.MediaType)
	}
	if out.Width != 300 || out.Height != 100 {
		t.Fatalf("got %dx%d, want 300x100", out.Width, out.Height)
	}
}

func TestCoverOptimizer_KeepTransparentPNG(t *testing.T) {
	src := makeSolidNRGBA(700, 400, color.NRGBA{R: 10, G: 80, B: 180, A: 120})
	data := mustEncodePNG(t, src)
	opt := NewCoverOptimizer(ConvertOptions{CoverMaxWidth: 350})

	out, err := opt.Optimize("image/png", data)
	if err != nil {
		t.Fatalf("Optimize() error = %v", err)
	}
	if out.MediaType != "image/png" {
		t.Fatalf("media type = %q, want image/png", out.MediaType)
	}
	if _, format, err := image.DecodeConfig(bytes.NewReader(out.Data)); err != nil || format != "png" {
		t.Fatalf("output is not png: %v %q", err, format)
	}
}

func TestCoverOptimizer_DefaultMaxWidth(t *testing.T) {
	opt := NewCoverOptimizer(ConvertOptions{})
	if opt.MaxWidth != defaultCoverMaxWidth {
		t.Fatalf("MaxWidth = %d, want %d", opt.MaxWidth, defaultCoverMaxWidth)
	}
}

func TestCoverOptimizer_DecodeFailurePassthrough(t *testing.T) {
	raw := []byte("not-an-image")
	opt := NewCoverOptimizer(ConvertOptions{})

	out, err := opt.Optimize("image/jpeg", raw)
	if err != nil {
		t.Fatalf("decode failure should not return error, got %v", err)
	}
	if out.Warning == "" {
		t.Fatal("expected warning for decode failure")
	}
	if !bytes.Equal(out.Data, raw) || out.MediaType != "image/jpeg" {
		t.Fatal("decode failure should passthrough original bytes")
	}
}

func TestCoverOptimizer_HugeImagePassthrough(t *testing.T) {
	src := makeSolidNRGBA(200, 200, color.NRGBA{R: 100, G: 100, B: 100, A: 255})
	data := mustEncodeJPEG(t, src, 90)

	opt := NewCoverOptimizer(ConvertOptions{CoverMaxWidth: 100})
	opt.MaxPixels = 100 * 100

	out, err := opt.Optimize("image/jpeg", data)
	if err != nil {
		t.Fatalf("huge image should not return error, got %v", err)
	}
	if out.Warning == "" {
		t.Fatal("expected warning for huge image")
	}
	if !bytes.Equal(out.Data, data) {
		t.Fatal("huge image should passthrough original bytes")
	}
}

func TestExtensionFor(t *testing.T) {
	tests := map[string]string{
		"image/jpeg":    ".jpg",
		"IMAGE/PNG":     ".png",
		"image/gif":     ".gif",
		"image/svg+xml": ".svg",
		"text/plain":    "",
	}
	for mt, want := range tests {
		if got := extensionFor(mt); got != want {
			t.Errorf("extensionFor(%q) = %q, want %q", mt, got, want)
		}
	}
}

func makeSolidNRGBA(w, h int, c color.NRGBA) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetNRGBA(x, y, c)
		}
	}
	return img
}

func makePatternNRGBA(w, h int) *image.NRGBA {
	img := image.NewNRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			r := uint8((x*17 + y*11) % 256)
			g := uint8((x*7 + y*23) % 256)
			b := uint8((x*3 + y*13) % 256)
			img.SetNRGBA(x, y, color.NRGBA{R: r, G: g, B: b, A: 255})
		}
	}
	return img
}

func mustEncodeJPEG(t *testing.T, img image.Image, quality int) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := jpeg.Encode(&buf, img, &jpeg.Options{Quality: quality}); err != nil {
		t.Fatalf("jpeg.Encode() error = %v", err)
	}
	return buf.Bytes()
}

func mustEncodePNG(t *testing.T, img image.Image) []byte {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("png.Encode() error = %v", err)
	}
	return buf.Bytes()
}
