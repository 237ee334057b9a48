package archive

import (
	"archive/zip"
	"compress/flate"
	"hash/crc32"
	"io"
	"time"

	"github.com/pkg/errors"
)

// Library writes the archive in-process with archive/zip.
type Library struct {
	// Modified is recorded on every entry. Zero leaves timestamps unset,
	// which keeps output byte-for-byte reproducible.
	Modified time.Time

	zw *zip.Writer
}

// NewLibrary returns an in-process backend.
func NewLibrary() *Library {
	return &Library{}
}

// Probe always succeeds.
func (l *Library) Probe() error { return nil }

func (l *Library) Begin(w io.Writer) error {
	if l.zw != nil {
		return ErrAlreadyStarted
	}
	l.zw = zip.NewWriter(w)
	l.zw.RegisterCompressor(zip.Deflate, func(out io.Writer) (io.WriteCloser, error) {
		return flate.NewWriter(out, flate.BestCompression)
	})
	return nil
}

// WriteEntry adds one file. Stored entries are written raw with their CRC
// and sizes in the local header, so no data descriptor or extra field
// follows; readers that sniff "mimetype" at a fixed offset depend on this.
func (l *Library) WriteEntry(name string, data []byte, compress bool) error {
	if l.zw == nil {
		return ErrNotStarted
	}
	if err := checkName(name); err != nil {
		return err
	}

	if compress {
		w, err := l.zw.CreateHeader(&zip.FileHeader{
			Name:     name,
			Method:   zip.Deflate,
			Modified: l.Modified,
		})
		if err != nil {
			return errors.Wrapf(err, "creating entry %s", name)
		}
		if _, err := w.Write(data); err != nil {
			return errors.Wrapf(err, "writing entry %s", name)
		}
		return nil
	}

	fh := &zip.FileHeader{
		Name:               name,
		Method:             zip.Store,
		CRC32:              crc32.ChecksumIEEE(data),
		CompressedSize64:   uint64(len(data)),
		UncompressedSize64: uint64(len(data)),
	}
	if !l.Modified.IsZero() {
		fh.SetModTime(l.Modified)
	}
	w, err := l.zw.CreateRaw(fh)
	if err != nil {
		return errors.Wrapf(err, "creating stored entry %s", name)
	}
	if _, err := w.Write(data); err != nil {
		return errors.Wrapf(err, "writing stored entry %s", name)
	}
	return nil
}

func (l *Library) Finish() error {
	if l.zw == nil {
		return ErrNotStarted
	}
	err := l.zw.Close()
	l.zw = nil
	return errors.Wrap(err, "closing archive")
}
