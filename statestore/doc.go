// Package statestore is RecordManager's one piece of durable, shared state:
// a NATS JetStream KV bucket ("recordmanager_state") holding the indexing
// checkpoint and queue-collection bookkeeping (§4.K).
//
// # Why JetStream KV
//
// Both pieces of state need compare-and-swap: a checkpoint must not advance
// past a run that partially failed, and a queue collection's
// building -> final transition must not race an opportunistic GC pass that
// decided to drop the same collection. JetStream KV gives revisioned
// Get/Update for free, so Store builds directly on it rather than layering
// its own locking over a plain key-value store.
//
// # Checkpoint
//
// GetCheckpoint/SetCheckpoint persist the "Last Index Update[ <update_url>]"
// timestamp from §3, reshaped into a KV-legal key by hashing the update URL.
// SetCheckpoint is only ever called by the Indexing Coordinator after a
// complete, unfiltered, non-dated run finishes successfully.
//
// # Queue collections
//
// A queue collection's metadata (low/high watermark, building/final status)
// lives under "queue.<hash>.meta"; its id membership lives separately under
// "queue.<hash>.ids" as a newline-joined list, written in append batches by
// Stage 1 and Stage 2 of the Queue Collection Manager (§4.H).
// FinalizeQueueCollection is the one operation that must be a genuine CAS
// rather than a last-writer-wins Put: a collection that was just garbage
// collected must not be resurrected by a finalize that started before the
// GC pass.
//
// # Basic usage
//
//	store, err := statestore.Connect(ctx, cfg.Site.StateStoreURL, "")
//	if err != nil { ... }
//	defer store.Close()
//
//	ts, ok, err := store.GetCheckpoint(ctx, cfg.Solr.UpdateURL)
//	...
//	err = store.FinalizeQueueCollection(ctx, hash)
package statestore
