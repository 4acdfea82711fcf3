// Package worker provides the Worker Pool Manager: a registry of named,
// independently-sized goroutine pools used by the Merge Engine and the Solr
// Client to parallelize per-record and per-group work.
//
// # Overview
//
// Unlike a typical bounded-queue worker pool, AddRequest blocks when a named
// pool's queue is full instead of dropping the request. The Indexing
// Coordinator depends on this: during a catalog-sized batch, a slow Solr
// endpoint must throttle the producer (Update Buffer flush loop) rather than
// silently lose documents. Each pool's result queue holds at most queueSize
// results; a worker waits on a full result queue until CheckForResults or
// GetResult drains it, so a producer submitting more than that drains
// results as it goes. A concurrency of 0 means the pool has no worker
// goroutines at all; AddRequest runs the handler inline on the caller. The
// Indexing Coordinator gets such a pool when record_workers or
// solr_update_workers is set to 0.
//
// # Usage
//
//	mgr := worker.NewManager(registry)
//	mgr.CreatePool("merge", 4, 100, func(ctx context.Context, req worker.Request) worker.Result {
//	    group := req.Payload.(*merge.Group)
//	    doc, err := merger.Merge(ctx, group)
//	    return worker.Result{Value: doc, Err: err}
//	})
//
//	for _, group := range groups {
//	    if err := mgr.AddRequest(ctx, "merge", worker.Request{ID: group.ID, Payload: group}); err != nil {
//	        return err
//	    }
//	}
//	if err := mgr.WaitUntilDone(ctx, "merge"); err != nil {
//	    return err
//	}
//	results, _ := mgr.CheckForResults("merge")
//
// # Thread Safety
//
// All Manager methods are safe for concurrent use. CheckForResults never
// blocks; GetResult and WaitUntilDone block until either data is available
// or ctx is cancelled. DestroyWorkerPools closes every pool's request
// channel and waits (up to a timeout) for in-flight handlers to finish.
package worker
