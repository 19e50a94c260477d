package mask

// Assigner labels mentions for one masking run. It keeps a running index per
// entity type; a fresh Assigner starts every type at zero.
type Assigner struct {
	tpls    Templates
	counter map[string]int
}

// NewAssigner returns an Assigner for the compiled templates.
func NewAssigner(tpls Templates) *Assigner {
	return &Assigner{
		tpls:    tpls,
		counter: make(map[string]int, len(tpls)),
	}
}

// Entity returns labeled copies of e's mentions, or nil when e's type has no
// template. The type's index advances once per entity, so coreferent mentions
// share one label.
func (a *Assigner) Entity(e Entity) []Mention {
	tpl, ok := a.tpls[e.Type]
	if !ok {
		return nil
	}
	a.counter[e.Type]++
	label := tpl.Format(a.counter[e.Type])

	out := make([]Mention, 0, len(e.Mentions))
	for _, m := range e.Mentions {
		m.Type = e.Type
		m.Mask = label
		out = append(out, m)
	}
	return out
}

// Count returns how many entities of typ have been labeled so far.
func (a *Assigner) Count(typ string) int {
	return a.counter[typ]
}

// Assign labels the mentions of every entity whose type is configured, in
// extraction order. Numbering follows the order of entities, not their
// position in the text; pre-sort entities for offset-consistent numbering.
// Entities of unconfigured types are dropped. The input is not modified.
func Assign(entities []Entity, tpls Templates) []Mention {
	a := NewAssigner(tpls)
	var out []Mention
	for _, e := range entities {
		out = append(out, a.Entity(e)...)
	}
	return out
}
