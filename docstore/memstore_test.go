package docstore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksip/RecordManager/record"
)

func TestMemStore_FindRecords_FiltersBySourceAndDedup(t *testing.T) {
	store := NewMemStore()
	store.PutRecord(&record.SourceRecord{ID: "acme.1", Source: "acme", DedupID: "D1"})
	store.PutRecord(&record.SourceRecord{ID: "acme.2", Source: "acme"})
	store.PutRecord(&record.SourceRecord{ID: "other.1", Source: "other", DedupID: "D2"})

	cur, err := store.FindRecords(context.Background(), RecordFilter{SourceID: "acme", RequireDedup: true})
	require.NoError(t, err)
	defer cur.Close()

	var ids []string
	for cur.Next(context.Background()) {
		ids = append(ids, cur.Record().ID)
	}
	assert.Equal(t, []string{"acme.1"}, ids)
}

func TestMemStore_FindRecords_ExcludesDeletedByDefault(t *testing.T) {
	store := NewMemStore()
	store.PutRecord(&record.SourceRecord{ID: "acme.1", Source: "acme", Deleted: true})

	cur, err := store.FindRecords(context.Background(), RecordFilter{})
	require.NoError(t, err)
	defer cur.Close()

	assert.False(t, cur.Next(context.Background()))
}

func TestMemStore_FindComponentParts_MatchesHostLinkingIDs(t *testing.T) {
	store := NewMemStore()
	store.PutRecord(&record.SourceRecord{ID: "acme.part1", Source: "acme", HostRecordIDs: []string{"acme.host"}})
	store.PutRecord(&record.SourceRecord{ID: "acme.part2", Source: "acme", HostRecordIDs: []string{"other.host"}})

	parts, err := store.FindComponentParts(context.Background(), []string{"acme.host"}, nil)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "acme.part1", parts[0].ID)
}

func TestMemStore_FindDedupGroups_ChangedSince(t *testing.T) {
	store := NewMemStore()
	old := time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)
	recent := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	store.PutDedupGroup(&record.DedupGroup{ID: "D1", Changed: old})
	store.PutDedupGroup(&record.DedupGroup{ID: "D2", Changed: recent})

	since := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	cur, err := store.FindDedupGroups(context.Background(), DedupGroupFilter{ChangedSince: &since})
	require.NoError(t, err)
	defer cur.Close()

	var ids []string
	for cur.Next(context.Background()) {
		ids = append(ids, cur.Group().ID)
	}
	assert.Equal(t, []string{"D2"}, ids)
}
