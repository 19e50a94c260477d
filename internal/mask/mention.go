package mask

// Mention is one occurrence of an entity in the document.
//
// Offsets count Unicode code points. Either offset may be missing in the
// extractor output, in which case Extent reports (-1, -1).
type Mention struct {
	Start      *int   `json:"startOffset,omitempty"`
	End        *int   `json:"endOffset,omitempty"`
	Type       string `json:"-"`
	Source     string `json:"source,omitempty"`
	Subsource  string `json:"subsource,omitempty"`
	Normalized string `json:"normalized,omitempty"`
	Mask       string `json:"mask,omitempty"`
}

// Entity groups the coreferent mentions of one extracted entity.
type Entity struct {
	Type             string    `json:"type"`
	EntityID         string    `json:"entityId,omitempty"`
	HeadMentionIndex int       `json:"headMentionIndex"`
	Mentions         []Mention `json:"mentions"`
}

// Document is the annotated text returned by the extraction service.
type Document struct {
	Data     string   `json:"data"`
	Entities []Entity `json:"entities"`
}

// Span builds a mention with both offsets set.
func Span(start, end int) Mention {
	return Mention{Start: &start, End: &end}
}

// Extent returns the start and end offsets of m, or (-1, -1) when the
// offsets are absent. A mention with only one offset set reports -1 for the
// missing one.
func (m Mention) Extent() (int, int) {
	start, end := -1, -1
	if m.Start != nil {
		start = *m.Start
	}
	if m.End != nil {
		end = *m.End
	}
	return start, end
}

// HasExtent reports whether both offsets are present.
func (m Mention) HasExtent() bool {
	return m.Start != nil && m.End != nil
}
