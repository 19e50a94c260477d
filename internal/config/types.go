package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gonkalabs/identity-mask/internal/mask"
)

// ErrUnknownEntityType is returned when a configured entity type is not in
// the supported catalog.
var ErrUnknownEntityType = errors.New("unknown entity type")

// EntityType describes one maskable type of the extraction service.
type EntityType struct {
	Name     string
	Template string
	Default  bool // masked when no types are selected explicitly
}

// Catalog lists every supported entity type in display order. Numbered
// templates keep different entities of a type distinguishable (LOCATION1,
// LOCATION2, ...); identifier types collapse to a single generic label.
var Catalog = []EntityType{
	{"ORGANIZATION", "ORGANIZATION{}", true},
	{"PERSON", "PERSON{}", true},
	{"LOCATION", "LOCATION{}", false},
	{"PRODUCT", "PRODUCT{}", false},
	{"TITLE", "TITLE{}", false},
	{"NATIONALITY", "NATIONALITY{}", false},
	{"RELIGION", "RELIGION{}", false},

	{"IDENTIFIER:CREDIT_CARD_NUM", "IDENTIFIER:CREDIT_CARD_NUM", true},
	{"IDENTIFIER:EMAIL", "IDENTIFIER:EMAIL", true},
	{"IDENTIFIER:MONEY", "IDENTIFIER:MONEY", true},
	{"IDENTIFIER:PERSONAL_ID_NUM", "IDENTIFIER:PERSONAL_ID_NUM", true},
	{"IDENTIFIER:PHONE_NUMBER", "IDENTIFIER:PHONE_NUMBER", true},
	{"TEMPORAL:DATE", "TEMPORAL:DATE", true},
	{"TEMPORAL:TIME", "TEMPORAL:TIME", true},
	{"IDENTIFIER:LATITUDE_LONGITUDE", "IDENTIFIER:LATITUDE_LONGITUDE", true},
	{"IDENTIFIER:URL", "IDENTIFIER:URL", false},
	{"IDENTIFIER:DISTANCE", "IDENTIFIER:DISTANCE", false},
}

var catalogIndex = func() map[string]EntityType {
	m := make(map[string]EntityType, len(Catalog))
	for _, t := range Catalog {
		m[t.Name] = t
	}
	return m
}()

// Lookup returns the catalog entry for name.
func Lookup(name string) (EntityType, bool) {
	t, ok := catalogIndex[name]
	return t, ok
}

// DefaultTypes returns the types masked when none are selected.
func DefaultTypes() []string {
	var out []string
	for _, t := range Catalog {
		if t.Default {
			out = append(out, t.Name)
		}
	}
	return out
}

// TypeNames returns every supported type name in catalog order.
func TypeNames() []string {
	out := make([]string, 0, len(Catalog))
	for _, t := range Catalog {
		out = append(out, t.Name)
	}
	return out
}

// Select builds the mask configuration for types. Templates in overrides win
// over the catalog defaults. An empty selection means DefaultTypes. Unknown
// types, either selected or overridden, are rejected.
func Select(types []string, overrides map[string]string) (mask.Config, error) {
	for name := range overrides {
		if _, ok := Lookup(name); !ok {
			return nil, fmt.Errorf("config: masks: %w: %s", ErrUnknownEntityType, name)
		}
	}
	if len(types) == 0 {
		types = DefaultTypes()
	}

	cfg := make(mask.Config, len(types))
	for _, name := range types {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		t, ok := Lookup(name)
		if !ok {
			return nil, fmt.Errorf("config: entity types: %w: %s", ErrUnknownEntityType, name)
		}
		tpl := t.Template
		if o, ok := overrides[name]; ok {
			tpl = o
		}
		cfg[name] = tpl
	}
	if _, err := mask.Compile(cfg); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}
