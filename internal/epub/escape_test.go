package epub

import "testing"

func TestEscape(t *testing.T) {
	tests := []struct {
		in   string
		mode EscapeMode
		want string
	}{
		{`<a href="x">Tom & Jerry's</a>`, Escaped, "&lt;a href=&#34;x&#34;&gt;Tom &amp; Jerry&#39;s&lt;/a&gt;"},
		{"&amp;", Escaped, "&amp;amp;"},
		{"plain", Escaped, "plain"},
		{"", Escaped, ""},
		{`<b>bold</b> & "q"`, Raw, `<b>bold</b> & "q"`},
	}

	for _, tt := range tests {
		if got := Escape(tt.in, tt.mode); got != tt.want {
			t.Errorf("Escape(%q, %v) = %q, want %q", tt.in, tt.mode, got, tt.want)
		}
	}
}

func TestTitleSelection(t *testing.T) {
	escaped := &Builder{cfg: Config{EscapeHTML: true}}
	raw := &Builder{cfg: Config{EscapeHTML: false}}

	tests := []struct {
		name string
		got  string
		want string
	}{
		{"escaped markup", escaped.markupTitle("<i>A</i>"), "&lt;i&gt;A&lt;/i&gt;"},
		{"escaped plain ignores raw", escaped.plainTitle("A & B", "raw"), "A &amp; B"},
		{"raw markup", raw.markupTitle("<i>A</i>"), "<i>A</i>"},
		{"raw plain prefers raw title", raw.plainTitle("<i>A</i>", "A"), "A"},
		{"raw plain falls back", raw.plainTitle("<i>A</i>", ""), "<i>A</i>"},
		{"raw text", raw.text("a & b"), "a & b"},
		{"attr always escaped", escapeAttr(`a"b&c`), "a&#34;b&amp;c"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}
