// Package mask replaces entity mentions in a document with category-labeled
// placeholder tokens. Mentions come from an external extraction service; this
// package only assigns labels and stitches the masked document together.
//
// Usage:
//
//	masked, err := mask.Mask(doc.Data, doc.Entities, mask.Config{
//		"PERSON":           "PERSON{}",
//		"IDENTIFIER:MONEY": "MONEY-AMOUNT",
//	})
//
// Masking is best-effort: anything the extractor missed stays in the output.
package mask

import (
	"fmt"
)

// Mask returns data with every mention of a configured entity type replaced by
// its mask label. An invalid configuration fails before any output is built.
// An empty configuration returns data unchanged.
func Mask(data string, entities []Entity, cfg Config) (string, error) {
	tpls, err := Compile(cfg)
	if err != nil {
		return "", err
	}
	return Redact(data, Assign(entities, tpls)), nil
}

// MaskDocument is Mask over an extracted Document.
func MaskDocument(doc *Document, cfg Config) (string, error) {
	if doc == nil {
		return "", fmt.Errorf("mask: nil document")
	}
	return Mask(doc.Data, doc.Entities, cfg)
}

// Result is a masked document together with per-type mention counts.
type Result struct {
	Masked string         `json:"masked"`
	Counts map[string]int `json:"counts"`
}

// Apply masks doc like MaskDocument and also reports how many mentions of each
// type were replaced.
func Apply(doc *Document, tpls Templates) Result {
	mentions := Assign(doc.Entities, tpls)
	return Result{
		Masked: Redact(doc.Data, mentions),
		Counts: Stats(mentions),
	}
}

// Stats counts decorated mentions per entity type.
func Stats(mentions []Mention) map[string]int {
	counts := make(map[string]int)
	for _, m := range mentions {
		counts[m.Type]++
	}
	return counts
}
