package solrdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDocument_StripEmptyAndZero(t *testing.T) {
	doc := Document{
		"title":  {"Hello", "", "0"},
		"rating": {"0.0"},
		"id":     {"acme.1"},
	}
	doc.StripEmptyAndZero()

	assert.Equal(t, []string{"Hello"}, doc.Get("title"))
	assert.False(t, doc.Has("rating"))
	assert.Equal(t, []string{"acme.1"}, doc.Get("id"))
}

func TestDocument_DedupeFields_CaseSensitivity(t *testing.T) {
	doc := Document{
		"hierarchy_facet": {"0/a/", "0/a/", "0/A/"},
		"topic":           {"Fiction", "fiction"},
	}
	doc.DedupeFields(map[string]bool{"hierarchy_facet": true})

	assert.Equal(t, []string{"0/a/", "0/A/"}, doc.Get("hierarchy_facet"))
	assert.Equal(t, []string{"Fiction"}, doc.Get("topic"))
}

func TestDocument_Clone_IsIndependent(t *testing.T) {
	doc := Document{"title": {"Hello"}}
	clone := doc.Clone()
	clone.Set("title", "Changed")

	assert.Equal(t, []string{"Hello"}, doc.Get("title"))
}
