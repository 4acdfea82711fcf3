// Package recordmanager indexes bibliographic records from a document store
// into a Solr-compatible search index.
//
// # Overview
//
// RecordManager projects two kinds of normalized records, read from an
// external document store (out of scope — see the docstore package), into
// Solr documents:
//
//   - Per-source records: one bibliographic record from one data source,
//     indexed as-is (or fused with its component parts, §4.F).
//   - Dedup groups: clusters of per-source records describing the same
//     work, merged into one representative document plus per-member child
//     documents (§4.G).
//
// A single run (updateRecords, §4.I) streams both kinds concurrently
// through the Worker Pool Manager (pkg/worker), batches the resulting Solr
// documents and deletes through the Update Buffer (updatebuffer), and posts
// them via the Solr Client (solrclient), which gates every request on the
// Cluster Monitor's health probe and retries on transient failure.
// Checkpoints and queue-collection metadata persist in the State Store
// (statestore), a NATS JetStream KV bucket.
//
// # Package layout
//
//   - config: ini-based configuration (main Solr/site settings plus
//     per-source data source settings).
//   - record: the SourceRecord/DedupGroup/MetadataRecord contract
//     metadata-format parsers register against.
//   - docstore: the document store interface (out of scope; an in-memory
//     fake is included for tests).
//   - queue: the Queue Collection Manager (§4.H), resolving which dedup
//     ids a merged-stream run should visit.
//   - solrdoc: the Solr Document Builder (§4.F), the per-record mapping
//     pipeline.
//   - merge: dedup-group merge logic (§4.G): field-class fusion rules and
//     capitalization-ratio scoring.
//   - solrclient: the Solr Client and Cluster Monitor (§4.B/§4.C).
//   - updatebuffer: the Update Buffer (§4.A).
//   - statestore: the State Store (§4.K).
//   - coordinator: the Indexing Coordinator (§4.I), wiring every other
//     component into updateRecords, delete-source mode, compare mode, and
//     the countValues/checkIndexedRecords auxiliary operations.
//   - cmd/recordmanager: the CLI entry point.
//
// # Non-goals
//
// RecordManager does not implement a document store, a metadata-format
// parser, or an enrichment pipeline — these are external collaborator
// interfaces (record.MetadataRecord, docstore.Store, mapping.Enricher)
// that a deployment supplies.
package recordmanager
