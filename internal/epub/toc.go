package epub

// BuildTOC turns titled content, in reading order, into a forest.
//
// An entry becomes a child of the nearest preceding titled entry with a
// strictly lower level, or a root if there is none. Untitled entries are
// skipped and do not affect nesting. Each entry's own Children are copied
// in front of the children gained from later entries.
func BuildTOC(entries []*Content) []*TocElement {
	type open struct {
		level int
		elem  *TocElement
	}

	var roots []*TocElement
	var stack []open
	for _, c := range entries {
		if c == nil || c.Title == "" {
			continue
		}
		level := max(c.Level, 1)
		elem := &TocElement{
			URL:      c.Path,
			Title:    c.Title,
			RawTitle: c.RawTitle,
			Children: cloneTOC(c.Children),
		}

		for len(stack) > 0 && stack[len(stack)-1].level >= level {
			stack = stack[:len(stack)-1]
		}
		if len(stack) == 0 {
			roots = append(roots, elem)
		} else {
			parent := stack[len(stack)-1].elem
			parent.Children = append(parent.Children, elem)
		}
		stack = append(stack, open{level: level, elem: elem})
	}
	return roots
}

// cloneTOC deep-copies a forest without recursion.
func cloneTOC(src []*TocElement) []*TocElement {
	type job struct {
		src []*TocElement
		dst *[]*TocElement
	}

	var out []*TocElement
	work := []job{{src: src, dst: &out}}
	for len(work) > 0 {
		j := work[len(work)-1]
		work = work[:len(work)-1]

		var copies []*TocElement
		for _, e := range j.src {
			if e == nil {
				continue
			}
			c := &TocElement{URL: e.URL, Title: e.Title, RawTitle: e.RawTitle}
			copies = append(copies, c)
			if len(e.Children) > 0 {
				work = append(work, job{src: e.Children, dst: &c.Children})
			}
		}
		*j.dst = copies
	}
	return out
}

// walkTOC visits the forest depth-first in document order. enter runs before
// an element's children and leave after them; depth starts at 1.
func walkTOC(roots []*TocElement, enter, leave func(e *TocElement, depth int)) {
	type frame struct {
		elems []*TocElement
		next  int
	}

	stack := []frame{{elems: roots}}
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(top.elems) {
			stack = stack[:len(stack)-1]
			if len(stack) > 0 {
				parent := stack[len(stack)-1]
				leave(parent.elems[parent.next-1], len(stack))
			}
			continue
		}

		depth := len(stack)
		e := top.elems[top.next]
		top.next++
		enter(e, depth)
		if len(e.Children) > 0 {
			stack = append(stack, frame{elems: e.Children})
		} else {
			leave(e, depth)
		}
	}
}

// tocDepth returns the number of levels in the forest.
func tocDepth(roots []*TocElement) int {
	depth := 0
	walkTOC(roots, func(_ *TocElement, d int) {
		depth = max(depth, d)
	}, func(*TocElement, int) {})
	return depth
}

// TOC returns the table of contents built by Generate, or nil before it.
func (b *Builder) TOC() []*TocElement {
	return cloneTOC(b.toc)
}
