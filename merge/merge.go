// Package merge implements the Merge Engine (spec.md §4.G): it scores and
// orders the member documents ("children") of a deduplication group, fuses
// their fields into a single merged document under field-class rules, and
// copies selected merged fields back down onto the children.
package merge

import (
	"sort"

	"github.com/aleksip/RecordManager/solrdoc"
)

// Child is one member document of a dedup group, carrying the document id
// (also present inside Doc under "id") alongside its built Solr fields.
type Child struct {
	ID    string
	Doc   map[string][]string
	Title string
}

// Options carries the subset of the Solr config section that governs
// merge-field classification (spec.md §4.G, §4 config table).
type Options struct {
	ScoredFields         []string
	MergedFields         []string
	SingleFields         []string
	HierarchicalFacets   []string
	CopyFromMergedRecord []string
}

// Result is the outcome of mergeRecords: the fused document plus the
// score-ordered children it was built from (callers use the order to decide
// local_ids_str_mv reporting and merged_child_boolean tagging).
type Result struct {
	Merged   map[string][]string
	Children []Child
}

// MergeRecords implements mergeRecords(children) → mergedDoc (spec.md
// §4.G): scores and sorts children, fuses their fields, then dedupes.
func MergeRecords(children []Child, opts Options) *Result {
	sorted := make([]Child, len(children))
	copy(sorted, children)
	sort.SliceStable(sorted, func(i, j int) bool {
		return Score(sorted[i].Doc, opts.ScoredFields, sorted[i].Title) >
			Score(sorted[j].Doc, opts.ScoredFields, sorted[j].Title)
	})

	merged := fuse(sorted, opts)
	dedupeMerged(merged, opts.HierarchicalFacets)

	return &Result{Merged: merged, Children: sorted}
}

// CopyMergedDataToChildren implements copyMergedDataToChildren(merged,
// children) (spec.md §4.G): for every field in copy_from_merged_record,
// union the merged field's values into each child's same field.
func CopyMergedDataToChildren(merged map[string][]string, children []Child, fields []string) {
	for _, field := range fields {
		values := merged[field]
		if len(values) == 0 {
			continue
		}
		for i := range children {
			children[i].Doc[field] = unionStrings(children[i].Doc[field], values)
		}
	}
}

func unionStrings(existing, add []string) []string {
	seen := make(map[string]bool, len(existing))
	out := make([]string, 0, len(existing)+len(add))
	for _, v := range existing {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	for _, v := range add {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func dedupeMerged(merged map[string][]string, hierarchicalFacets []string) {
	doc := solrdoc.Document(merged)
	caseSensitive := make(map[string]bool, len(hierarchicalFacets))
	for _, f := range hierarchicalFacets {
		caseSensitive[f] = true
	}
	doc.DedupeFields(caseSensitive)
}
