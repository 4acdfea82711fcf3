package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMergeRecords_OrdersChildrenByScoreDescending(t *testing.T) {
	children := []Child{
		{ID: "a.1", Title: "HELLO WORLD", Doc: map[string][]string{"title": {"HELLO WORLD"}}},
		{ID: "a.2", Title: "hello world", Doc: map[string][]string{"title": {"hello world"}}},
	}
	result := MergeRecords(children, Options{ScoredFields: []string{"title"}})
	require.Len(t, result.Children, 2)
	assert.Equal(t, "a.2", result.Children[0].ID)
	assert.Equal(t, []string{"a.2", "a.1"}, result.Merged[fieldLocalIDsMV])
}

func TestMergeRecords_DedupesHierarchicalFacetsCaseSensitively(t *testing.T) {
	children := []Child{
		{ID: "a.1", Doc: map[string][]string{"hierarchy_parent_title": {"0/Top/", "0/top/"}}},
	}
	result := MergeRecords(children, Options{HierarchicalFacets: []string{"hierarchy_parent_title"}})
	assert.ElementsMatch(t, []string{"0/Top/", "0/top/"}, result.Merged["hierarchy_parent_title"])
}

func TestCopyMergedDataToChildren_UnionsIntoEachChild(t *testing.T) {
	children := []Child{
		{ID: "a.1", Doc: map[string][]string{"topic_facet": {"x"}}},
		{ID: "a.2", Doc: map[string][]string{}},
	}
	merged := map[string][]string{"topic_facet": {"x", "y"}}
	CopyMergedDataToChildren(merged, children, []string{"topic_facet"})

	assert.ElementsMatch(t, []string{"x", "y"}, children[0].Doc["topic_facet"])
	assert.ElementsMatch(t, []string{"x", "y"}, children[1].Doc["topic_facet"])
}
