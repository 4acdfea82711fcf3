// Package docstore specifies the document-store contract RecordManager
// depends on (§1 "out of scope, interface only"): a queryable collection of
// source records and deduplication groups. Real implementations talk to
// whatever system of record an installation uses; this package only
// describes the shape the Indexing Coordinator, Queue Collection Manager,
// and Solr Document Builder query against, plus an in-memory fake for tests.
package docstore

import (
	"context"
	"time"

	"github.com/aleksip/RecordManager/record"
)

// RecordFilter selects source records for Stage 1 of the Queue Collection
// Manager (§4.H) and for the per-source record stream (§4.I).
type RecordFilter struct {
	SourceID       string     // restrict to one source; empty = all sources
	SingleID       string     // restrict to exactly one record id
	ChangedSince   *time.Time // changed >= this time; nil = no lower bound
	RequireDedup   bool       // "dedup_id exists" filter (§4.H Stage 1)
	IncludeDeleted bool
}

// DedupGroupFilter selects dedup groups for Stage 2 of the Queue Collection
// Manager and for the merged-record stream.
type DedupGroupFilter struct {
	SingleID     string     // ids=singleId
	ChangedSince *time.Time // changed >= from
	// Neither set means "all" — callers should warn, since stale deleted
	// groups can inflate the result (§4.H Stage 2).
}

// RecordCursor iterates matching source records in dedup-id order when
// requested via RecordFilter.RequireDedup (needed for Stage 1's "on each
// change of dedup id, enqueue" logic).
type RecordCursor interface {
	Next(ctx context.Context) bool
	Record() *record.SourceRecord
	Err() error
	Close() error
}

// DedupGroupCursor iterates matching dedup groups.
type DedupGroupCursor interface {
	Next(ctx context.Context) bool
	Group() *record.DedupGroup
	Err() error
	Close() error
}

// Store is the document store abstraction the rest of RecordManager
// depends on. Each worker owns its own Store connection, reconnected after
// the merged-stream process fork (§3 Ownership).
type Store interface {
	// FindRecords returns a cursor over records matching filter.
	FindRecords(ctx context.Context, filter RecordFilter) (RecordCursor, error)

	// FindDedupGroups returns a cursor over dedup groups matching filter.
	FindDedupGroups(ctx context.Context, filter DedupGroupFilter) (DedupGroupCursor, error)

	// GetRecord fetches one record by id, or nil if it doesn't exist.
	GetRecord(ctx context.Context, id string) (*record.SourceRecord, error)

	// GetDedupGroup fetches one dedup group by id, or nil if it doesn't exist.
	GetDedupGroup(ctx context.Context, id string) (*record.DedupGroup, error)

	// FindComponentParts returns records whose host_record_id intersects
	// linkingIDs, restricted to sourceIDs if non-empty (§4.F step 2).
	FindComponentParts(ctx context.Context, linkingIDs, sourceIDs []string) ([]*record.SourceRecord, error)

	// FindByLinkingID returns the record that exposes linkingID among its
	// own linking ids, used to resolve a component part's host record
	// (§4.F step 4). Returns nil if no such record exists.
	FindByLinkingID(ctx context.Context, linkingID string) (*record.SourceRecord, error)

	// Close releases the store's connection. Called once per worker on
	// shutdown.
	Close() error
}
