// Package solrdoc implements the Solr Document Builder (§4.F): turning a
// source record, optionally merged with its dedup group, into a flat Solr
// document ready for the Update Buffer.
package solrdoc

import "sort"

// Document is a flat mapping from field name to an ordered list of string
// values (§3 "Solr document"). A field with exactly one value is still
// stored as a one-element slice; callers decide at serialization time
// whether to emit a scalar or an array.
type Document map[string][]string

// Set replaces field's values.
func (d Document) Set(field string, values ...string) {
	d[field] = values
}

// Add appends values to field, creating it if absent.
func (d Document) Add(field string, values ...string) {
	d[field] = append(d[field], values...)
}

// Get returns field's values, or nil if absent.
func (d Document) Get(field string) []string {
	return d[field]
}

// Has reports whether field is present and non-empty.
func (d Document) Has(field string) bool {
	return len(d[field]) > 0
}

// Clone returns a deep copy of d.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		cp := make([]string, len(v))
		copy(cp, v)
		out[k] = cp
	}
	return out
}

// StripEmptyAndZero drops values that are empty, "0", or "0.0" from every
// array field, and removes scalar (one-value) fields entirely when their
// sole value is empty/zero (§8 invariant 5, §4.F step 13).
func (d Document) StripEmptyAndZero() {
	for field, values := range d {
		kept := values[:0]
		for _, v := range values {
			if isZeroish(v) {
				continue
			}
			kept = append(kept, v)
		}
		if len(kept) == 0 {
			delete(d, field)
			continue
		}
		d[field] = kept
	}
}

func isZeroish(v string) bool {
	return v == "" || v == "0" || v == "0.0"
}

// DedupeFields deduplicates every field's values, preserving first-seen
// order. Fields named in caseSensitive (hierarchical facets, since case
// encodes path depth) are deduplicated case-sensitively; all others
// case-insensitively (§4.F step 13, §4.G post-pass).
func (d Document) DedupeFields(caseSensitive map[string]bool) {
	for field, values := range d {
		d[field] = dedupePreserveOrder(values, caseSensitive[field])
	}
}

func dedupePreserveOrder(values []string, caseSensitive bool) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, v := range values {
		key := v
		if !caseSensitive {
			key = lower(v)
		}
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, v)
	}
	return out
}

// SortedFieldNames returns d's field names in sorted order, useful for
// deterministic test assertions and diagnostic dumps.
func (d Document) SortedFieldNames() []string {
	names := make([]string, 0, len(d))
	for k := range d {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}
