package mask

import (
	"cmp"
	"slices"
	"strings"
)

// Redact rebuilds data with each mention's span replaced by its mask label.
//
// Mentions are stably sorted by (start, end); identical spans keep their input
// order. Overlaps are not resolved: when the next mention starts before the
// current one ends, the gap between them is empty. Slice bounds are clamped
// to the document, so a mention without offsets (-1, -1) sorts first and,
// when alone, yields its label followed by the whole document.
func Redact(data string, mentions []Mention) string {
	if len(mentions) == 0 {
		return data
	}

	sorted := slices.Clone(mentions)
	slices.SortStableFunc(sorted, compareExtent)

	text := []rune(data)
	var b strings.Builder
	b.Grow(len(data))

	first, _ := sorted[0].Extent()
	b.WriteString(slice(text, 0, first))
	for cur, next := range Pairs(sorted) {
		_, end := cur.Extent()
		start, _ := next.Extent()
		b.WriteString(cur.Mask)
		b.WriteString(slice(text, end, start))
	}
	last := sorted[len(sorted)-1]
	_, end := last.Extent()
	b.WriteString(last.Mask)
	b.WriteString(slice(text, end, len(text)))
	return b.String()
}

func compareExtent(a, b Mention) int {
	as, ae := a.Extent()
	bs, be := b.Extent()
	if c := cmp.Compare(as, bs); c != 0 {
		return c
	}
	return cmp.Compare(ae, be)
}

// slice returns text[from:to] with both bounds clamped to [0, len(text)].
// A reversed range is empty.
func slice(text []rune, from, to int) string {
	from = min(max(from, 0), len(text))
	to = min(max(to, 0), len(text))
	if to <= from {
		return ""
	}
	return string(text[from:to])
}
