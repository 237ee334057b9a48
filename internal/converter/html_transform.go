package converter

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// xhtml11Replacements maps HTML5 elements that XHTML 1.1 lacks to the
// element that takes their place. The original name is kept as a class.
var xhtml11Replacements = map[string]string{
	"article":    "div",
	"section":    "div",
	"aside":      "div",
	"nav":        "div",
	"header":     "div",
	"footer":     "div",
	"main":       "div",
	"figure":     "div",
	"figcaption": "p",
	"mark":       "span",
	"time":       "span",
}

// html5OnlyAttrs are dropped from every element.
var html5OnlyAttrs = map[string]bool{
	"contenteditable": true,
	"draggable":       true,
	"hidden":          true,
	"spellcheck":      true,
	"translate":       true,
	"role":            true,
}

// DowngradeToXHTML11 rewrites an HTML5 document into the element and
// attribute set of XHTML 1.1 used by EPUB 2 content documents.
func DowngradeToXHTML11(doc *goquery.Document) {
	for origTag, newTag := range xhtml11Replacements {
		doc.Find(origTag).Each(func(i int, s *goquery.Selection) {
			existingClass, _ := s.Attr("class")
			if existingClass != "" {
				s.SetAttr("class", existingClass+" "+origTag)
			} else {
				s.SetAttr("class", origTag)
			}
			s.Get(0).Data = newTag
		})
	}

	doc.Find("*").Each(func(i int, s *goquery.Selection) {
		node := s.Get(0)
		var toRemove []string
		for _, attr := range node.Attr {
			if html5OnlyAttrs[attr.Key] ||
				strings.HasPrefix(attr.Key, "data-") ||
				strings.HasPrefix(attr.Key, "aria-") ||
				strings.HasPrefix(attr.Key, "epub:") {
				toRemove = append(toRemove, attr.Key)
			}
		}
		for _, key := range toRemove {
			s.RemoveAttr(key)
		}
	})
}
