package merge

import "strings"

const (
	fieldAuthor       = "author"
	fieldAuthorAlias  = "author2"
	fieldAllfields    = "allfields"
	fieldLocalIDsMV   = "local_ids_str_mv"
	multiValueSuffix  = "_mv"
)

// fuse walks the score-sorted children and applies the field-class fusion
// rules of spec.md §4.G, building the merged field map.
func fuse(sorted []Child, opts Options) map[string][]string {
	merged := map[string][]string{}
	mergedSet := toSet(opts.MergedFields)
	singleSet := toSet(opts.SingleFields)

	for _, child := range sorted {
		merged[fieldLocalIDsMV] = append(merged[fieldLocalIDsMV], child.ID)

		for field, values := range child.Doc {
			if field == fieldLocalIDsMV {
				continue
			}
			fuseField(merged, field, values, mergedSet, singleSet)
		}
	}
	return merged
}

func fuseField(merged map[string][]string, field string, values []string, mergedSet, singleSet map[string]bool) {
	switch {
	case field == fieldAuthor && authorDiffers(merged[fieldAuthorAlias], values):
		merged[fieldAuthorAlias] = appendUnique(merged[fieldAuthorAlias], values)
	case strings.HasSuffix(field, multiValueSuffix) || mergedSet[field]:
		merged[field] = append(merged[field], values...)
	case field == fieldAuthor:
		if len(merged[fieldAuthorAlias]) == 0 {
			merged[fieldAuthorAlias] = append(merged[fieldAuthorAlias], values...)
		}
	case singleSet[field]:
		if len(merged[field]) == 0 {
			merged[field] = append(merged[field], values...)
		}
	case field == fieldAllfields:
		merged[fieldAllfields] = append(merged[fieldAllfields], values...)
	default:
		// ignored per spec.md §4.G fusion rule
	}
}

// authorDiffers reports whether values introduces an author not already
// present in merged, the condition gating the author=author2 alias append
// branch (spec.md §4.G).
func authorDiffers(merged, values []string) bool {
	if len(merged) == 0 {
		return false
	}
	seen := toSet(merged)
	for _, v := range values {
		if !seen[v] {
			return true
		}
	}
	return false
}

func appendUnique(existing, add []string) []string {
	seen := toSet(existing)
	out := existing
	for _, v := range add {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

func toSet(values []string) map[string]bool {
	set := make(map[string]bool, len(values))
	for _, v := range values {
		set[v] = true
	}
	return set
}
