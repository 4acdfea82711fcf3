// Package statestore persists the two kinds of durable state RecordManager
// needs across runs — the indexing checkpoint and queue-collection
// bookkeeping (§4.K) — in a NATS JetStream KV bucket.
package statestore

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	stderrors "github.com/aleksip/RecordManager/errors"
	"github.com/aleksip/RecordManager/pkg/retry"
)

const defaultBucket = "recordmanager_state"

// Store wraps a single NATS JetStream KV bucket behind the Get/Put/
// UpdateWithRetry interface used by the Indexing Coordinator and Queue
// Collection Manager.
type Store struct {
	nc  *nats.Conn
	kv  jetstream.KeyValue
	own bool // whether Store owns nc and should close it
}

// Connect dials natsURL, opens (creating if necessary) the given KV bucket,
// and returns a ready Store. An empty bucket name uses "recordmanager_state".
func Connect(ctx context.Context, natsURL, bucket string) (*Store, error) {
	if bucket == "" {
		bucket = defaultBucket
	}

	nc, err := nats.Connect(natsURL)
	if err != nil {
		return nil, stderrors.WrapTransient(err, "statestore", "Connect",
			fmt.Sprintf("dial %s", natsURL))
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, stderrors.WrapFatal(err, "statestore", "Connect", "init jetstream context")
	}

	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "RecordManager checkpoint and queue-collection state",
		History:     5,
	})
	if err != nil {
		nc.Close()
		return nil, stderrors.WrapTransient(err, "statestore", "Connect",
			fmt.Sprintf("open bucket %s", bucket))
	}

	return &Store{nc: nc, kv: kv, own: true}, nil
}

// NewWithBucket wraps an already-open KV bucket, for tests or callers that
// manage their own NATS connection lifecycle.
func NewWithBucket(kv jetstream.KeyValue) *Store {
	return &Store{kv: kv}
}

// Close releases the underlying NATS connection, if Store opened it itself.
func (s *Store) Close() {
	if s.own && s.nc != nil {
		s.nc.Close()
	}
}

// entry mirrors a KV get result with its revision, used for CAS operations.
type entry struct {
	value    []byte
	revision uint64
	found    bool
}

func (s *Store) get(ctx context.Context, key string) (entry, error) {
	e, err := s.kv.Get(ctx, key)
	if err != nil {
		if isNotFound(err) {
			return entry{}, nil
		}
		return entry{}, stderrors.WrapTransient(err, "statestore", "Get",
			fmt.Sprintf("get %s", key))
	}
	return entry{value: e.Value(), revision: e.Revision(), found: true}, nil
}

// Get returns the raw value stored under key, and whether it exists.
func (s *Store) Get(ctx context.Context, key string) ([]byte, bool, error) {
	e, err := s.get(ctx, key)
	if err != nil {
		return nil, false, err
	}
	return e.value, e.found, nil
}

// Put writes value under key unconditionally (last writer wins).
func (s *Store) Put(ctx context.Context, key string, value []byte) error {
	if _, err := s.kv.Put(ctx, key, value); err != nil {
		return stderrors.WrapTransient(err, "statestore", "Put", fmt.Sprintf("put %s", key))
	}
	return nil
}

// updateFn computes the next value given the current value (nil, found=false
// if the key doesn't exist yet). Returning a non-nil error from updateFn
// aborts the retry loop immediately (the error is not itself retried).
type updateFn func(current []byte, found bool) ([]byte, error)

// UpdateWithRetry performs a compare-and-swap update, retrying on revision
// conflicts with the same backoff shape as the teacher's KV CAS helper:
// exponential with jitter, bounded attempts. This is RecordManager's one
// piece of genuinely concurrent shared state (queue-collection
// finalization racing opportunistic GC, §4.K), so it leans on the KV's
// built-in optimistic concurrency rather than a mutex.
func (s *Store) UpdateWithRetry(ctx context.Context, key string, fn updateFn) error {
	cfg := retry.Config{
		MaxAttempts:  10,
		InitialDelay: 10 * time.Millisecond,
		MaxDelay:     time.Second,
		Multiplier:   2.0,
		AddJitter:    true,
	}

	return retry.Do(ctx, cfg, func() error {
		cur, err := s.get(ctx, key)
		if err != nil {
			return err
		}

		next, err := fn(cur.value, cur.found)
		if err != nil {
			return retry.NonRetryable(err)
		}

		if !cur.found {
			_, err = s.kv.Create(ctx, key, next)
			if err == nil {
				return nil
			}
			if isConflict(err) {
				return err // retry: someone else created it first
			}
			return stderrors.WrapTransient(err, "statestore", "UpdateWithRetry",
				fmt.Sprintf("create %s", key))
		}

		_, err = s.kv.Update(ctx, key, next, cur.revision)
		if err == nil {
			return nil
		}
		if isConflict(err) {
			return err // retry: revision moved under us
		}
		return stderrors.WrapTransient(err, "statestore", "UpdateWithRetry",
			fmt.Sprintf("update %s", key))
	})
}

// Delete removes key. Deleting a key that doesn't exist is not an error.
func (s *Store) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, key); err != nil && !isNotFound(err) {
		return stderrors.WrapTransient(err, "statestore", "Delete", fmt.Sprintf("delete %s", key))
	}
	return nil
}

// Keys lists every key in the bucket matching prefix (empty matches all).
func (s *Store) Keys(ctx context.Context, prefix string) ([]string, error) {
	lister, err := s.kv.ListKeys(ctx)
	if err != nil {
		if isNotFound(err) {
			return nil, nil
		}
		return nil, stderrors.WrapTransient(err, "statestore", "Keys", "list keys")
	}

	var keys []string
	for k := range lister.Keys() {
		if prefix == "" || strings.HasPrefix(k, prefix) {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func isNotFound(err error) bool {
	return err != nil && (err == jetstream.ErrKeyNotFound || strings.Contains(err.Error(), "key not found"))
}

func isConflict(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "wrong last sequence") ||
		strings.Contains(msg, "key exists") ||
		err == jetstream.ErrKeyExists
}

// marshalJSON and unmarshalJSON are small helpers so callers building typed
// wrappers (checkpoint.go, queue.go) don't each re-import encoding/json.
func marshalJSON(v any) ([]byte, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, stderrors.WrapFatal(err, "statestore", "marshalJSON", "encode value")
	}
	return data, nil
}

func unmarshalJSON(data []byte, v any) error {
	if err := json.Unmarshal(data, v); err != nil {
		return stderrors.WrapFatal(err, "statestore", "unmarshalJSON", "decode value")
	}
	return nil
}
