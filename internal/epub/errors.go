package epub

import (
	"errors"
	"fmt"
)

// Sentinel errors returned by the Builder. Errors carrying the offending
// path or key wrap one of these, so callers match them with errors.Is.
var (
	// ErrDuplicatePath indicates a path is already registered as content,
	// resource, or generated document.
	ErrDuplicatePath = errors.New("epub: duplicate path")

	// ErrInvalidPath indicates an empty, absolute, or root-escaping path.
	ErrInvalidPath = errors.New("epub: invalid path")

	// ErrInvalidMetadataKey indicates an unrecognized metadata key.
	ErrInvalidMetadataKey = errors.New("epub: invalid metadata key")

	// ErrEmptyBook indicates Generate was called without any linear content.
	ErrEmptyBook = errors.New("epub: book has no linear content")

	// ErrAlreadyGenerated indicates the one-shot Builder was used after Generate.
	ErrAlreadyGenerated = errors.New("epub: book already generated")

	// ErrPackaging matches every *PackagingError.
	ErrPackaging = errors.New("epub: packaging failed")

	ErrInvalidVersion   = errors.New("epub: invalid version")
	ErrInvalidDirection = errors.New("epub: invalid page direction")
)

// PackagingError reports a failure of the archive backend or of document
// rendering during Generate.
type PackagingError struct {
	Op   string // "begin", "write", "finish" or "render"
	Path string // archive entry, empty for begin/finish
	Err  error
}

func (e *PackagingError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("epub: %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("epub: %s %s: %v", e.Op, e.Path, e.Err)
}

func (e *PackagingError) Unwrap() error { return e.Err }

// Is reports whether target is ErrPackaging.
func (e *PackagingError) Is(target error) bool {
	return target == ErrPackaging
}
