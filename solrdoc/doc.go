// Package solrdoc implements the Solr Document Builder (§4.F): the
// contract buildDocument(record, dedupRecord?) -> (doc, mergedComponentCount)
// or skip.
//
// Document is the flat field -> []string shape §3 specifies for the Solr
// document. Builder.BuildDocument runs the 14-step pipeline the spec lays
// out: component-part merge detection, native-projection transform plus
// enrichment, id/hierarchy linkage, defaults/extras, the building-field
// pipeline, hierarchical facet expansion, allfields synthesis, timestamps,
// format-in-allfields digit substitution, the hidden-component marker,
// work-key synthesis, Unicode normalization/cleanup, and warning
// attachment.
//
// The wire struct shapes (flat field -> ordered values) are grounded on
// other_examples/uvalib-virgo4-pool-solr-ws__solr-api.go's solrDocument,
// adapted from a fixed field-by-field struct to the dynamic map this
// system's per-source field sets require.
package solrdoc
