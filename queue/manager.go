// Package queue implements the Queue Collection Manager (spec.md §4.H): it
// materializes the set of dedup-group ids that the merged-record stream
// must visit for a given selection and time window, content-addressing the
// result so repeat runs over an already-covered window can reuse it instead
// of re-scanning the document store.
package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/aleksip/RecordManager/docstore"
	"github.com/aleksip/RecordManager/statestore"
)

// batchSize bounds how many ids accumulate in memory before a stage flushes
// them to the state store, keeping memory bounded on very large selections.
const batchSize = 500

// Params identifies the selection the merged stream is scanning: the same
// source/single-id filters the Indexing Coordinator applies to the
// single-record stream (spec.md §4.I).
type Params struct {
	SourceID string
	SingleID string
}

// StateStore is the subset of *statestore.Store the Queue Collection
// Manager needs. A real *statestore.Store satisfies it directly; tests
// supply an in-memory fake instead of standing up a NATS server.
type StateStore interface {
	GetQueueCollection(ctx context.Context, hash string) (*statestore.QueueCollection, uint64, error)
	CreateQueueCollection(ctx context.Context, hash string, low, high time.Time) error
	FinalizeQueueCollection(ctx context.Context, hash string) error
	DropQueueCollection(ctx context.Context, hash string) error
	ListQueueCollections(ctx context.Context) ([]statestore.QueueCollection, error)
	AppendQueueIDs(ctx context.Context, hash string, ids []string) error
	GetQueueIDs(ctx context.Context, hash string) ([]string, error)
}

// Manager resolves and builds queue collections against a document store
// and a persisted state store.
type Manager struct {
	Store docstore.Store
	State StateStore

	// Warn receives human-readable warnings ("running without a from-date
	// ..." etc, spec.md §4.H). Optional; nil discards them.
	Warn func(msg string)
}

func (m *Manager) warn(format string, args ...any) {
	if m.Warn != nil {
		m.Warn(fmt.Sprintf(format, args...))
	}
}

// Resolve implements the top-level §4.H contract: given params and a
// [from, latest] window, reuse a covering final collection if one exists,
// otherwise build a fresh one and return its ids.
func (m *Manager) Resolve(ctx context.Context, params Params, from, latest time.Time) ([]string, error) {
	hash := statestore.SelectionHash(params.SourceID, params.SingleID)

	if err := m.gc(ctx, latest); err != nil {
		return nil, err
	}

	existing, _, err := m.State.GetQueueCollection(ctx, hash)
	if err != nil {
		return nil, err
	}
	if existing != nil && existing.Status == statestore.QueueFinal &&
		!existing.Low.After(from) && !existing.High.Before(latest) {
		return m.State.GetQueueIDs(ctx, hash)
	}

	return m.build(ctx, hash, params, from, latest)
}

func (m *Manager) build(ctx context.Context, hash string, params Params, from, latest time.Time) ([]string, error) {
	if err := m.State.CreateQueueCollection(ctx, hash, from, latest); err != nil {
		return nil, fmt.Errorf("queue: create collection: %w", err)
	}

	n1, err := m.stage1(ctx, hash, params)
	if err != nil {
		return nil, err
	}
	n2, err := m.stage2(ctx, hash, params, from)
	if err != nil {
		return nil, err
	}

	if n1+n2 == 0 {
		if dropErr := m.State.DropQueueCollection(ctx, hash); dropErr != nil {
			return nil, dropErr
		}
		return nil, nil
	}

	if err := m.State.FinalizeQueueCollection(ctx, hash); err != nil {
		return nil, err
	}
	return m.State.GetQueueIDs(ctx, hash)
}

// DropBuilding drops an in-progress (building) collection on clean shutdown
// (spec.md §4.H, §4.I SIGINT handling), without advancing any checkpoint.
func (m *Manager) DropBuilding(ctx context.Context, hash string) error {
	return m.State.DropQueueCollection(ctx, hash)
}

// gc opportunistically drops queue collections that are stale: older than
// latest's high-water, not currently building (those are owned by an
// in-progress build elsewhere), and not a final collection that still
// covers the window the caller is about to request.
func (m *Manager) gc(ctx context.Context, latest time.Time) error {
	collections, err := m.State.ListQueueCollections(ctx)
	if err != nil {
		return err
	}
	for _, qc := range collections {
		if qc.Status == statestore.QueueBuilding {
			continue
		}
		if qc.High.Before(latest) {
			if dropErr := m.State.DropQueueCollection(ctx, qc.Hash); dropErr != nil {
				return dropErr
			}
		}
	}
	return nil
}
