package mask

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseTemplate(t *testing.T) {
	tests := []struct {
		raw      string
		numbered bool
		first    string
		second   string
	}{
		{"PERSON{}", true, "PERSON1", "PERSON2"},
		{"PERSON{0}", true, "PERSON1", "PERSON2"},
		{"{}-PERSON", true, "1-PERSON", "2-PERSON"},
		{"<LOC {} >", true, "<LOC 1 >", "<LOC 2 >"},
		{"IDENTIFIER:EMAIL", false, "IDENTIFIER:EMAIL", "IDENTIFIER:EMAIL"},
		{"#ID#", false, "#ID#", "#ID#"},
		{"", false, "", ""},
		{"{{PERSON}}", false, "{PERSON}", "{PERSON}"},
		{"{{{}}}", true, "{1}", "{2}"},
	}

	for _, test := range tests {
		t.Run(test.raw, func(t *testing.T) {
			tpl, err := ParseTemplate(test.raw)
			require.NoError(t, err)
			assert.Equal(t, test.numbered, tpl.Numbered())
			assert.Equal(t, test.first, tpl.Format(1))
			assert.Equal(t, test.second, tpl.Format(2))
		})
	}
}

func TestParseTemplateRejects(t *testing.T) {
	for _, raw := range []string{
		"PERSON{}{}",
		"PERSON{0}{}",
		"PERSON{1}",
		"PERSON{name}",
		"PERSON{",
		"PERSON}",
		"{:03}",
	} {
		t.Run(raw, func(t *testing.T) {
			_, err := ParseTemplate(raw)
			assert.ErrorIs(t, err, ErrInvalidTemplate)
		})
	}
}

func TestCompile(t *testing.T) {
	tpls, err := Compile(Config{"PERSON": "PERSON{}", "IDENTIFIER:URL": "URL"})
	require.NoError(t, err)
	assert.Len(t, tpls, 2)
	assert.Equal(t, "PERSON7", tpls["PERSON"].Format(7))
	assert.Equal(t, "URL", tpls["IDENTIFIER:URL"].Format(7))

	_, err = Compile(Config{"PERSON": "PERSON{}", "TITLE": "TITLE{x}"})
	require.ErrorIs(t, err, ErrInvalidTemplate)
	assert.Contains(t, err.Error(), "TITLE")

	assert.Panics(t, func() { MustCompile(Config{"PERSON": "{"}) })
}
