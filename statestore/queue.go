package statestore

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// QueueStatus is the lifecycle state of a queue collection (§3, §4.H).
type QueueStatus string

const (
	QueueBuilding QueueStatus = "building"
	QueueFinal    QueueStatus = "final"
)

// QueueCollection is the persisted metadata for one named, content-addressed
// materialization of dedup ids to visit.
type QueueCollection struct {
	Hash   string      `json:"hash"`
	Low    time.Time   `json:"low"`
	High   time.Time   `json:"high"`
	Status QueueStatus `json:"status"`
}

func queueMetaKey(hash string) string { return "queue." + hash + ".meta" }
func queueIDsKey(hash string) string  { return "queue." + hash + ".ids" }

// GetQueueCollection looks up a queue collection's metadata by its content
// hash, together with its current KV revision (0 when the collection does not
// exist).
func (s *Store) GetQueueCollection(ctx context.Context, hash string) (*QueueCollection, uint64, error) {
	e, err := s.get(ctx, queueMetaKey(hash))
	if err != nil {
		return nil, 0, err
	}
	if !e.found {
		return nil, 0, nil
	}
	var qc QueueCollection
	if err := unmarshalJSON(e.value, &qc); err != nil {
		return nil, 0, err
	}
	return &qc, e.revision, nil
}

// CreateQueueCollection writes a new collection in the `building` state. It
// fails if a collection with the same hash already exists (the hash is
// content-addressed, so a collision means someone else is already building
// the same selection).
func (s *Store) CreateQueueCollection(ctx context.Context, hash string, low, high time.Time) error {
	qc := QueueCollection{Hash: hash, Low: low, High: high, Status: QueueBuilding}
	data, err := marshalJSON(qc)
	if err != nil {
		return err
	}
	_, err = s.kv.Create(ctx, queueMetaKey(hash), data)
	if err != nil {
		return fmt.Errorf("statestore: create queue collection %s: %w", hash, err)
	}
	return nil
}

// FinalizeQueueCollection flips a collection from building to final via
// compare-and-swap against the revision it has just read, retrying on a
// conflict. If a racing opportunistic-GC pass (§4.H) has already dropped the
// collection, the finalize fails instead of recreating it.
func (s *Store) FinalizeQueueCollection(ctx context.Context, hash string) error {
	return s.UpdateWithRetry(ctx, queueMetaKey(hash), func(current []byte, found bool) ([]byte, error) {
		if !found {
			return nil, fmt.Errorf("statestore: queue collection %s vanished before finalize", hash)
		}
		var qc QueueCollection
		if err := unmarshalJSON(current, &qc); err != nil {
			return nil, err
		}
		qc.Status = QueueFinal
		return marshalJSON(qc)
	})
}

// DropQueueCollection removes a collection's metadata and id list, used for
// opportunistic GC of stale or abandoned `building` collections (§4.H).
func (s *Store) DropQueueCollection(ctx context.Context, hash string) error {
	if err := s.Delete(ctx, queueMetaKey(hash)); err != nil {
		return err
	}
	return s.Delete(ctx, queueIDsKey(hash))
}

// ListQueueCollections returns every queue collection's metadata, for the
// GC sweep to decide which are stale.
func (s *Store) ListQueueCollections(ctx context.Context) ([]QueueCollection, error) {
	keys, err := s.Keys(ctx, "queue.")
	if err != nil {
		return nil, err
	}

	var out []QueueCollection
	for _, k := range keys {
		if !strings.HasSuffix(k, ".meta") {
			continue
		}
		e, err := s.get(ctx, k)
		if err != nil {
			return nil, err
		}
		if !e.found {
			continue
		}
		var qc QueueCollection
		if err := unmarshalJSON(e.value, &qc); err != nil {
			return nil, err
		}
		out = append(out, qc)
	}
	return out, nil
}

// AppendQueueIDs appends ids to a collection's id list. Stage 1 and Stage 2
// of §4.H call this in batches as they walk their respective cursors, so the
// update is a CAS loop rather than a plain overwrite.
func (s *Store) AppendQueueIDs(ctx context.Context, hash string, ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	return s.UpdateWithRetry(ctx, queueIDsKey(hash), func(current []byte, found bool) ([]byte, error) {
		existing := decodeIDList(current)
		return encodeIDList(append(existing, ids...)), nil
	})
}

// GetQueueIDs reads back the full id list for a finalized (or in-progress)
// queue collection.
func (s *Store) GetQueueIDs(ctx context.Context, hash string) ([]string, error) {
	data, found, err := s.Get(ctx, queueIDsKey(hash))
	if err != nil || !found {
		return nil, err
	}
	return decodeIDList(data), nil
}

// CountQueueIDs reports how many ids a collection carries. The Queue
// Collection Manager does not call it: it decides whether a build is empty
// from the counts Stage 1 and Stage 2 return.
func (s *Store) CountQueueIDs(ctx context.Context, hash string) (int, error) {
	ids, err := s.GetQueueIDs(ctx, hash)
	if err != nil {
		return 0, err
	}
	return len(ids), nil
}

// encodeIDList/decodeIDList store an id list as newline-separated text
// rather than JSON — it is append-heavy and never needs structure beyond
// "is this id present", so the simplest wire format wins.
func encodeIDList(ids []string) []byte {
	return []byte(strings.Join(ids, "\n"))
}

func decodeIDList(data []byte) []string {
	if len(data) == 0 {
		return nil
	}
	parts := strings.Split(string(data), "\n")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// SelectionHash computes a stable content hash over a queue collection's
// selection parameters (source filter, single-id filter, dedup flag, ...),
// used by the Queue Collection Manager to name collections so that two
// identical selections land on the same hash and can share a `final`
// collection.
func SelectionHash(parts ...string) string {
	h := fnv1a(strings.Join(parts, "\x1f"))
	return strconv.FormatUint(h, 16)
}

func fnv1a(s string) uint64 {
	const (
		offset = 14695981039346656037
		prime  = 1099511628211
	)
	var h uint64 = offset
	for i := 0; i < len(s); i++ {
		h ^= uint64(s[i])
		h *= prime
	}
	return h
}
