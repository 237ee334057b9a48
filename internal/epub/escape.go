package epub

import "golang.org/x/net/html"

// EscapeMode selects whether text is entity-escaped.
type EscapeMode int

const (
	Escaped EscapeMode = iota
	Raw
)

// Escape replaces the five XML special characters (& < > " ') in Escaped
// mode and returns text unchanged in Raw mode.
func Escape(text string, mode EscapeMode) string {
	if mode == Raw {
		return text
	}
	return html.EscapeString(text)
}

// escapeAttr escapes structural values (paths, ids, media types) that are
// never subject to the escaping configuration.
func escapeAttr(s string) string {
	return html.EscapeString(s)
}

func (b *Builder) mode() EscapeMode {
	if b.cfg.EscapeHTML {
		return Escaped
	}
	return Raw
}

// markupTitle renders a title where markup is allowed (nav link text).
func (b *Builder) markupTitle(title string) string {
	return Escape(title, b.mode())
}

// plainTitle renders a title in text-only or attribute contexts. With
// escaping disabled the raw alternative wins when present.
func (b *Builder) plainTitle(title, raw string) string {
	if b.cfg.EscapeHTML {
		return Escape(title, Escaped)
	}
	if raw != "" {
		return raw
	}
	return title
}

// text renders a metadata value.
func (b *Builder) text(s string) string {
	return Escape(s, b.mode())
}
