package epub

import (
	"strconv"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// SanitizeID maps raw to a string usable as an XML id.
//
// Compatibility decomposition runs first so accented letters keep their base
// letter; combining marks are dropped and any other rune outside
// [A-Za-z0-9_.-] becomes '_'. An underscore is prepended when the result is
// empty or does not start with a letter or underscore. SanitizeID is total
// and idempotent, but distinct inputs may collide; see IDSet.
func SanitizeID(raw string) string {
	var b strings.Builder
	for _, r := range norm.NFKD.String(raw) {
		switch {
		case unicode.Is(unicode.Mn, r):
		case isIDChar(r):
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	id := b.String()
	if id == "" || !isIDStart(id[0]) {
		id = "_" + id
	}
	return id
}

func isIDChar(r rune) bool {
	return r < unicode.MaxASCII && (isIDStart(byte(r)) || r == '-' || r == '.' || ('0' <= r && r <= '9'))
}

func isIDStart(c byte) bool {
	return c == '_' || ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z')
}

// IDSet hands out ids that are unique within one document.
// A sanitized id that is already taken gets the first free "-N" suffix,
// starting at 2.
type IDSet struct {
	used map[string]struct{}
}

// NewIDSet returns a set with reserved ids already taken.
func NewIDSet(reserved ...string) *IDSet {
	s := &IDSet{used: make(map[string]struct{}, len(reserved))}
	for _, id := range reserved {
		s.used[id] = struct{}{}
	}
	return s
}

// Unique sanitizes raw and disambiguates it against every id handed out so far.
func (s *IDSet) Unique(raw string) string {
	base := SanitizeID(raw)
	id := base
	for n := 2; s.Has(id); n++ {
		id = base + "-" + strconv.Itoa(n)
	}
	s.used[id] = struct{}{}
	return id
}

// Has reports whether id is taken.
func (s *IDSet) Has(id string) bool {
	_, ok := s.used[id]
	return ok
}
