// Package archive writes the ZIP container of an EPUB. Backends receive
// entries in their final order; the first entry must be stored.
package archive

import (
	"io"
	"path"
	"strings"

	"github.com/pkg/errors"
)

// Archiver writes one archive. Begin must be called first and Finish last.
type Archiver interface {
	Begin(w io.Writer) error
	WriteEntry(name string, data []byte, compress bool) error
	Finish() error
}

// Prober is implemented by backends that depend on the environment.
type Prober interface {
	Probe() error
}

var (
	ErrNotStarted     = errors.New("archive not started")
	ErrAlreadyStarted = errors.New("archive already started")
	ErrUnsafePath     = errors.New("entry path escapes the archive root")
)

// checkName rejects entry names that are empty, absolute or contain "..".
func checkName(name string) error {
	if name == "" || strings.HasPrefix(name, "/") || strings.Contains(name, "\\") {
		return errors.Wrapf(ErrUnsafePath, "entry %q", name)
	}
	if clean := path.Clean(name); clean != name || clean == ".." || strings.HasPrefix(clean, "../") {
		return errors.Wrapf(ErrUnsafePath, "entry %q", name)
	}
	return nil
}
