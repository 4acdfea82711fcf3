package docstore

import (
	"context"
	"sort"
	"sync"

	"github.com/aleksip/RecordManager/record"
)

// MemStore is an in-memory Store used by tests for every component that
// depends on docstore.Store, avoiding a real document-store dependency in
// unit tests.
type MemStore struct {
	mu      sync.RWMutex
	records map[string]*record.SourceRecord
	groups  map[string]*record.DedupGroup
}

// NewMemStore returns an empty MemStore.
func NewMemStore() *MemStore {
	return &MemStore{
		records: make(map[string]*record.SourceRecord),
		groups:  make(map[string]*record.DedupGroup),
	}
}

// PutRecord inserts or replaces a record, for test setup.
func (m *MemStore) PutRecord(r *record.SourceRecord) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.records[r.ID] = r
}

// PutDedupGroup inserts or replaces a dedup group, for test setup.
func (m *MemStore) PutDedupGroup(g *record.DedupGroup) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.groups[g.ID] = g
}

func (m *MemStore) GetRecord(_ context.Context, id string) (*record.SourceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.records[id], nil
}

func (m *MemStore) GetDedupGroup(_ context.Context, id string) (*record.DedupGroup, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.groups[id], nil
}

func (m *MemStore) FindComponentParts(_ context.Context, linkingIDs, sourceIDs []string) ([]*record.SourceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	linkSet := make(map[string]bool, len(linkingIDs))
	for _, id := range linkingIDs {
		linkSet[id] = true
	}
	srcSet := make(map[string]bool, len(sourceIDs))
	for _, id := range sourceIDs {
		srcSet[id] = true
	}

	var out []*record.SourceRecord
	for _, r := range m.records {
		if len(srcSet) > 0 && !srcSet[r.Source] {
			continue
		}
		for _, h := range r.HostRecordIDs {
			if linkSet[h] {
				out = append(out, r)
				break
			}
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *MemStore) FindByLinkingID(_ context.Context, linkingID string) (*record.SourceRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, r := range m.records {
		for _, l := range r.LinkingIDs {
			if l == linkingID {
				return r, nil
			}
		}
	}
	return nil, nil
}

func (m *MemStore) FindRecords(_ context.Context, filter RecordFilter) (RecordCursor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*record.SourceRecord
	for _, r := range m.records {
		if !recordMatches(r, filter) {
			continue
		}
		matched = append(matched, r)
	}

	if filter.RequireDedup {
		sort.Slice(matched, func(i, j int) bool { return matched[i].DedupID < matched[j].DedupID })
	} else {
		sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	}

	return &sliceRecordCursor{items: matched, pos: -1}, nil
}

func recordMatches(r *record.SourceRecord, filter RecordFilter) bool {
	if filter.SourceID != "" && r.Source != filter.SourceID {
		return false
	}
	if filter.SingleID != "" && r.ID != filter.SingleID {
		return false
	}
	if filter.RequireDedup && r.DedupID == "" {
		return false
	}
	if filter.ChangedSince != nil && r.Changed.Before(*filter.ChangedSince) {
		return false
	}
	if r.Deleted && !filter.IncludeDeleted {
		return false
	}
	return true
}

func (m *MemStore) FindDedupGroups(_ context.Context, filter DedupGroupFilter) (DedupGroupCursor, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var matched []*record.DedupGroup
	for _, g := range m.groups {
		if filter.SingleID != "" && g.ID != filter.SingleID {
			continue
		}
		if filter.ChangedSince != nil && g.Changed.Before(*filter.ChangedSince) {
			continue
		}
		matched = append(matched, g)
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })

	return &sliceGroupCursor{items: matched, pos: -1}, nil
}

func (m *MemStore) Close() error { return nil }

type sliceRecordCursor struct {
	items []*record.SourceRecord
	pos   int
}

func (c *sliceRecordCursor) Next(context.Context) bool {
	c.pos++
	return c.pos < len(c.items)
}
func (c *sliceRecordCursor) Record() *record.SourceRecord { return c.items[c.pos] }
func (c *sliceRecordCursor) Err() error                   { return nil }
func (c *sliceRecordCursor) Close() error                 { return nil }

type sliceGroupCursor struct {
	items []*record.DedupGroup
	pos   int
}

func (c *sliceGroupCursor) Next(context.Context) bool {
	c.pos++
	return c.pos < len(c.items)
}
func (c *sliceGroupCursor) Group() *record.DedupGroup { return c.items[c.pos] }
func (c *sliceGroupCursor) Err() error                 { return nil }
func (c *sliceGroupCursor) Close() error               { return nil }
