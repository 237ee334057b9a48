package epub

import (
	"regexp"
	"testing"
)

var xmlName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_.-]*$`)

func TestSanitizeID(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"chapter_1.xhtml", "chapter_1.xhtml"},
		{"text/chapter 1.xhtml", "text_chapter_1.xhtml"},
		{"1st.xhtml", "_1st.xhtml"},
		{"-dash", "_-dash"},
		{".hidden", "_.hidden"},
		{"", "_"},
		{"Café.xhtml", "Cafe.xhtml"},
		{"naïve résumé", "naive_resume"},
		{"ﬁle", "file"},
		{"章.xhtml", "_.xhtml"},
		{"a:b#c", "a_b_c"},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got := SanitizeID(tt.raw)
			if got != tt.want {
				t.Errorf("SanitizeID(%q) = %q, want %q", tt.raw, got, tt.want)
			}
			if !xmlName.MatchString(got) {
				t.Errorf("SanitizeID(%q) = %q is not an XML name", tt.raw, got)
			}
			if again := SanitizeID(got); again != got {
				t.Errorf("SanitizeID not idempotent: %q -> %q", got, again)
			}
		})
	}
}

func TestIDSet_Unique(t *testing.T) {
	ids := NewIDSet("ncx", "cover-image")

	got := []string{
		ids.Unique("a b"),
		ids.Unique("a_b"),
		ids.Unique("a?b"),
		ids.Unique("ncx"),
		ids.Unique("cover-image"),
		ids.Unique("a_b-2"),
	}
	want := []string{"a_b", "a_b-2", "a_b-3", "ncx-2", "cover-image-2", "a_b-2-2"}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Unique #%d = %q, want %q", i, got[i], want[i])
		}
	}

	seen := map[string]bool{}
	for _, id := range got {
		if seen[id] {
			t.Errorf("duplicate id %q", id)
		}
		seen[id] = true
	}
	if !ids.Has("a_b-3") || ids.Has("missing") {
		t.Errorf("Has reports wrong membership")
	}
}
