package mask

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strconv"
	"strings"
)

// ErrInvalidTemplate is returned when a mask template cannot be formatted with
// a single positional index.
var ErrInvalidTemplate = errors.New("invalid mask template")

// Config maps an entity type to its mask template.
//
// A template may contain one positional placeholder, "{}" or "{0}", which is
// replaced with the running index of the entity within its type ("PERSON{}"
// gives PERSON1, PERSON2, ...). A template without a placeholder is used
// verbatim for every mention of the type. "{{" and "}}" produce literal braces.
type Config map[string]string

// Template is a parsed mask template.
type Template struct {
	prefix   string
	suffix   string
	numbered bool
}

// Templates holds the compiled templates of a Config keyed by entity type.
type Templates map[string]Template

// ParseTemplate parses a single mask template.
func ParseTemplate(raw string) (Template, error) {
	var (
		b        strings.Builder
		t        Template
		numbered bool
	)
	for i := 0; i < len(raw); i++ {
		c := raw[i]
		switch c {
		case '{':
			if strings.HasPrefix(raw[i:], "{{") {
				b.WriteByte('{')
				i++
				continue
			}
			var width int
			switch {
			case strings.HasPrefix(raw[i:], "{}"):
				width = 2
			case strings.HasPrefix(raw[i:], "{0}"):
				width = 3
			default:
				return Template{}, fmt.Errorf("%w: %q: unsupported field at offset %d", ErrInvalidTemplate, raw, i)
			}
			if numbered {
				return Template{}, fmt.Errorf("%w: %q: more than one placeholder", ErrInvalidTemplate, raw)
			}
			numbered = true
			t.prefix = b.String()
			b.Reset()
			i += width - 1
		case '}':
			if !strings.HasPrefix(raw[i:], "}}") {
				return Template{}, fmt.Errorf("%w: %q: single '}' at offset %d", ErrInvalidTemplate, raw, i)
			}
			b.WriteByte('}')
			i++
		default:
			b.WriteByte(c)
		}
	}
	if numbered {
		t.suffix = b.String()
	} else {
		t.prefix = b.String()
	}
	t.numbered = numbered
	return t, nil
}

// Numbered reports whether the template carries an index placeholder.
func (t Template) Numbered() bool {
	return t.numbered
}

// Format renders the label for the index-th entity of a type.
func (t Template) Format(index int) string {
	if !t.numbered {
		return t.prefix
	}
	return t.prefix + strconv.Itoa(index) + t.suffix
}

// Compile parses every template in cfg. The first invalid template, in entity
// type order, aborts compilation.
func Compile(cfg Config) (Templates, error) {
	tpls := make(Templates, len(cfg))
	for _, typ := range slices.Sorted(maps.Keys(cfg)) {
		t, err := ParseTemplate(cfg[typ])
		if err != nil {
			return nil, fmt.Errorf("mask: entity type %s: %w", typ, err)
		}
		tpls[typ] = t
	}
	return tpls, nil
}

// MustCompile is like Compile but panics on error. Intended for built-in
// template tables.
func MustCompile(cfg Config) Templates {
	tpls, err := Compile(cfg)
	if err != nil {
		panic(err)
	}
	return tpls
}
