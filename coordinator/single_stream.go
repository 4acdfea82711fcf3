package coordinator

import (
	"context"
	"fmt"
	"time"

	"github.com/aleksip/RecordManager/config"
	"github.com/aleksip/RecordManager/docstore"
	"github.com/aleksip/RecordManager/pkg/worker"
	"github.com/aleksip/RecordManager/record"
	"github.com/aleksip/RecordManager/solrdoc"
	"github.com/aleksip/RecordManager/updatebuffer"
)

// progressEvery controls how often the single-record stream logs progress
// (spec.md §4.I: "Display progress every 1000 completions").
const progressEvery = 1000

// buildResult is what the record-worker pool's Handler produces for one
// source record.
type buildResult struct {
	id      string
	deleted bool
	doc     map[string][]string
}

// runSingleStream implements the single-record stream (spec.md §4.I):
// stream matching records through the record-worker pool, push built
// documents (or deletes) to the Update Buffer, drain at the end.
func (c *Coordinator) runSingleStream(ctx context.Context, opts Options, fromDate time.Time, buffer *updatebuffer.Buffer) error {
	filter := docstore.RecordFilter{
		SourceID:       opts.SourceID,
		SingleID:       opts.SingleID,
		IncludeDeleted: true,
	}
	if opts.SingleID == "" {
		t := fromDate
		filter.ChangedSince = &t
	}

	cursor, err := c.DocStore.FindRecords(ctx, filter)
	if err != nil {
		return fmt.Errorf("coordinator: open single-record cursor: %w", err)
	}
	defer cursor.Close()

	if err := c.ensureRecordPool(); err != nil {
		return err
	}

	hidden := c.nonIndexedSources()

	completed := 0
	for cursor.Next(ctx) {
		rec := cursor.Record()
		if rec.DedupID != "" {
			continue // dedup-grouped records belong to the merged stream
		}
		if hidden[rec.Source] {
			continue // source configured index=false (spec.md §3): hidden from indexing entirely
		}
		if !opts.SourceFilter.Matches(rec.Source) {
			continue
		}

		if err := c.Workers.AddRequest(ctx, c.RecordWorkerPool, worker.Request{ID: rec.ID, Payload: rec}); err != nil {
			return err
		}

		for _, res := range mustCheckResults(c.Workers, c.RecordWorkerPool) {
			if err := c.applyBuildResult(ctx, res, opts, buffer); err != nil {
				return err
			}
			if err := c.countRecord(ctx, opts, buffer); err != nil {
				return err
			}
			completed++
			if completed%progressEvery == 0 {
				c.logger().Info("single-record stream progress", "completed", completed)
			}
		}
	}
	if err := cursor.Err(); err != nil {
		return err
	}

	for {
		pending, err := c.Workers.RequestsPending(c.RecordWorkerPool)
		if err != nil {
			return err
		}
		if pending == 0 {
			break
		}
		res, ok, err := c.Workers.GetResult(ctx, c.RecordWorkerPool)
		if err != nil {
			return err
		}
		if !ok {
			continue
		}
		if err := c.applyBuildResult(ctx, res, opts, buffer); err != nil {
			return err
		}
		if err := c.countRecord(ctx, opts, buffer); err != nil {
			return err
		}
		completed++
		if completed%progressEvery == 0 {
			c.logger().Info("single-record stream progress", "completed", completed)
		}
	}

	// pending reaches 0 once every result is queued; apply those not yet read.
	for _, res := range mustCheckResults(c.Workers, c.RecordWorkerPool) {
		if err := c.applyBuildResult(ctx, res, opts, buffer); err != nil {
			return err
		}
		if err := c.countRecord(ctx, opts, buffer); err != nil {
			return err
		}
	}

	return buffer.Flush()
}

func mustCheckResults(mgr *worker.Manager, pool string) []worker.Result {
	results, _ := mgr.CheckForResults(pool)
	return results
}

func (c *Coordinator) applyBuildResult(ctx context.Context, res worker.Result, opts Options, buffer *updatebuffer.Buffer) error {
	if res.Err != nil {
		c.logger().Warn("record build failed", "id", res.ID, "error", res.Err)
		return nil
	}
	br, ok := res.Value.(*buildResult)
	if !ok || br == nil {
		return nil
	}
	if opts.Compare != "" {
		if br.deleted || br.doc == nil {
			return nil
		}
		return c.compareWithSolrRecord(ctx, br.id, br.doc, ignoreInComparison(c.Global))
	}
	if br.deleted {
		return buffer.Delete(br.id)
	}
	if br.doc == nil {
		return nil
	}
	return buffer.Append(br.doc)
}

// ensureRecordPool registers the record-worker pool the first time it's
// needed; cheap to call repeatedly.
func (c *Coordinator) ensureRecordPool() error {
	if c.RecordWorkerPool == "" {
		c.RecordWorkerPool = "record"
	}
	err := c.Workers.CreatePool(c.RecordWorkerPool, c.Global.RecordWorkers, 100, c.recordHandler)
	if err != nil && err != worker.ErrPoolExists {
		return err
	}
	return nil
}

func (c *Coordinator) recordHandler(ctx context.Context, req worker.Request) worker.Result {
	rec, _ := req.Payload.(*record.SourceRecord)
	if rec == nil {
		return worker.Result{ID: req.ID, Err: fmt.Errorf("coordinator: record handler got non-record payload")}
	}
	if rec.Deleted {
		return worker.Result{ID: req.ID, Value: &buildResult{id: rec.ID, deleted: true}}
	}

	meta, err := parseMetadata(rec)
	if err != nil {
		return worker.Result{ID: req.ID, Err: err}
	}

	src := c.dataSourceFor(rec.Source)
	result, err := c.Builder.BuildDocument(ctx, src, rec, meta, nil)
	if err != nil {
		if err == solrdoc.ErrSkip {
			return worker.Result{ID: req.ID}
		}
		return worker.Result{ID: req.ID, Err: err}
	}
	return worker.Result{ID: req.ID, Value: &buildResult{id: rec.ID, doc: result.Doc}}
}

func (c *Coordinator) dataSourceFor(sourceID string) *config.DataSourceSettings {
	if ds, ok := c.DataSources[sourceID]; ok {
		return &ds
	}
	return &config.DataSourceSettings{ID: sourceID, Index: true}
}
