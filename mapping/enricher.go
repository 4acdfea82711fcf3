package mapping

import "github.com/aleksip/RecordManager/record"

// Enricher is a pluggable pre-index hook (§1 out of scope: enrichment
// modules; §4.E in scope: the bridge that invokes them). Implementations
// may add, remove, or rewrite fields on doc before it reaches the Solr
// Document Builder's later steps.
type Enricher interface {
	Enrich(source string, metadataRecord record.MetadataRecord, doc map[string][]string) error
}

// EnricherFunc adapts a plain function to the Enricher interface.
type EnricherFunc func(source string, metadataRecord record.MetadataRecord, doc map[string][]string) error

func (f EnricherFunc) Enrich(source string, metadataRecord record.MetadataRecord, doc map[string][]string) error {
	return f(source, metadataRecord, doc)
}
