// Package record defines RecordManager's core data-model types — the
// per-source SourceRecord and the deduplication DedupGroup (§3) — and the
// MetadataRecord contract that out-of-scope record-parser packages
// implement and register against (§4.M).
//
// # Format registry
//
// Record-parser packages register their format tag at init time:
//
//	func init() {
//		record.Register("MarcXML", NewMarcRecord)
//	}
//
// The Indexing Coordinator resolves a source's configured format via
// NewMetadataRecord; an unregistered format is treated as fatal, since it
// indicates a data source was configured for a parser that was never
// wired into the binary.
package record
