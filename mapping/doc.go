// Package mapping implements the Field Mapper & Enrichment Bridge (§4.E):
// value-mapping tables applied per source, and a pluggable Enricher hook
// chain invoked before a document reaches the rest of the Solr Document
// Builder pipeline.
//
// # Mapper
//
// Mapper.MapValues rewrites field values according to a source-specific
// table, falling back to a global default table. Mapping files themselves
// (§1, out of scope) are expected to be loaded into a FieldMaps by callers.
//
// # Enrichers
//
// Enrichers implement the Enricher interface and register a constructor
// under a name:
//
//	func init() {
//		mapping.RegisterEnricher("holdings", NewHoldingsEnricher)
//	}
//
// An unqualified name resolves in the "builtin" namespace; a name already
// containing "/" is used as-is. Bridge instantiates and caches one Enricher
// per (source, name) pair, applying the global enrichment list before each
// source's own list, with duplicates removed.
package mapping
