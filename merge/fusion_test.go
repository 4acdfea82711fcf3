package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFuse_MultiValuedSuffixFieldsAppendAcrossChildren(t *testing.T) {
	children := []Child{
		{ID: "a.1", Doc: map[string][]string{"isbn_mv": {"111"}}},
		{ID: "a.2", Doc: map[string][]string{"isbn_mv": {"222"}}},
	}
	merged := fuse(children, Options{})
	assert.ElementsMatch(t, []string{"111", "222"}, merged["isbn_mv"])
	assert.Equal(t, []string{"a.1", "a.2"}, merged[fieldLocalIDsMV])
}

func TestFuse_SingleFieldsAssignedOnlyOnce(t *testing.T) {
	children := []Child{
		{ID: "a.1", Doc: map[string][]string{"title": {"First"}}},
		{ID: "a.2", Doc: map[string][]string{"title": {"Second"}}},
	}
	merged := fuse(children, Options{SingleFields: []string{"title"}})
	assert.Equal(t, []string{"First"}, merged["title"])
}

func TestFuse_UnlistedFieldsAreIgnored(t *testing.T) {
	children := []Child{
		{ID: "a.1", Doc: map[string][]string{"irrelevant": {"x"}}},
	}
	merged := fuse(children, Options{})
	assert.Nil(t, merged["irrelevant"])
}

func TestFuse_AuthorAliasAppendsWhenDiffers(t *testing.T) {
	children := []Child{
		{ID: "a.1", Doc: map[string][]string{"author": {"Shakespeare"}}},
		{ID: "a.2", Doc: map[string][]string{"author": {"Marlowe"}}},
	}
	merged := fuse(children, Options{})
	assert.ElementsMatch(t, []string{"Shakespeare", "Marlowe"}, merged[fieldAuthorAlias])
}

func TestFuse_AllfieldsExtends(t *testing.T) {
	children := []Child{
		{ID: "a.1", Doc: map[string][]string{"allfields": {"one"}}},
		{ID: "a.2", Doc: map[string][]string{"allfields": {"two"}}},
	}
	merged := fuse(children, Options{})
	assert.Equal(t, []string{"one", "two"}, merged["allfields"])
}
