package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMapper_PerSourceOverridesGlobal(t *testing.T) {
	global := FieldMaps{"format": ValueMap{"BK": "Book"}}
	perSource := map[string]FieldMaps{
		"acme": {"format": ValueMap{"BK": "ACME Book"}},
	}
	m := NewMapper(global, perSource)

	doc := map[string][]string{"format": {"BK"}}
	assert.Equal(t, []string{"ACME Book"}, m.MapValues("acme", doc)["format"])
	assert.Equal(t, []string{"Book"}, m.MapValues("other", doc)["format"])
}

func TestMapper_UnmappedValuesPassThrough(t *testing.T) {
	m := NewMapper(nil, nil)
	doc := map[string][]string{"title": {"Hello World"}}
	assert.Equal(t, []string{"Hello World"}, m.MapValues("acme", doc)["title"])
}

func TestMapper_PartialValueMapLeavesUnknownValuesUnchanged(t *testing.T) {
	global := FieldMaps{"format": ValueMap{"BK": "Book"}}
	m := NewMapper(global, nil)

	doc := map[string][]string{"format": {"BK", "XYZ"}}
	assert.Equal(t, []string{"Book", "XYZ"}, m.MapValues("acme", doc)["format"])
}
