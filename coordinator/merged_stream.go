package coordinator

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/aleksip/RecordManager/docstore"
	"github.com/aleksip/RecordManager/merge"
	"github.com/aleksip/RecordManager/pkg/worker"
	"github.com/aleksip/RecordManager/queue"
	"github.com/aleksip/RecordManager/solrdoc"
	"github.com/aleksip/RecordManager/updatebuffer"
)

const (
	fieldMergedChildBoolean = "merged_child_boolean"
	fieldMergedBoolean      = "merged_boolean"
	fieldRecordFormat       = "record_format"
	recordFormatMerged      = "merged"
)

// dedupResult is what the merge-worker pool's Handler produces for one
// dedup group.
type dedupResult struct {
	docs    []map[string][]string
	deletes []string
}

// runMergedStream implements processMerged (spec.md §4.I): resolve the
// queue of dedup ids to visit, then run processDedupRecord over them
// through the merge-worker pool. Returns whether any update was applied.
func (c *Coordinator) runMergedStream(ctx context.Context, opts Options, buffer *updatebuffer.Buffer) (bool, error) {
	lastRecordTime, err := c.latestRecordTime(ctx)
	if err != nil {
		return false, fmt.Errorf("coordinator: determine last record time: %w", err)
	}

	var from time.Time
	if opts.FromDate != nil {
		from = *opts.FromDate
	}

	params := queueParams(opts)

	sigCtx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ids, err := c.Queue.Resolve(sigCtx, params, from, lastRecordTime)
	if err != nil {
		if sigCtx.Err() != nil {
			return c.updatesApplied, nil
		}
		return false, fmt.Errorf("coordinator: resolve merged queue: %w", err)
	}

	if err := c.ensureMergePool(); err != nil {
		return false, err
	}

	applied := false
	for _, id := range ids {
		select {
		case <-sigCtx.Done():
			return applied, nil
		default:
		}

		req := worker.Request{ID: id, Payload: dedupJob{dedupID: id, sourceFilter: effectiveSourceFilter(opts), delete: opts.Delete}}
		if err := c.Workers.AddRequest(ctx, c.MergeWorkerPool, req); err != nil {
			return applied, err
		}
		for _, res := range mustCheckResults(c.Workers, c.MergeWorkerPool) {
			a, err := c.applyDedupResult(res, buffer)
			if err != nil {
				return applied, err
			}
			applied = applied || a
			if err := c.countRecord(ctx, opts, buffer); err != nil {
				return applied, err
			}
		}
	}

	for {
		pending, err := c.Workers.RequestsPending(c.MergeWorkerPool)
		if err != nil {
			return applied, err
		}
		if pending == 0 {
			break
		}
		res, ok, err := c.Workers.GetResult(ctx, c.MergeWorkerPool)
		if err != nil {
			return applied, err
		}
		if !ok {
			continue
		}
		a, err := c.applyDedupResult(res, buffer)
		if err != nil {
			return applied, err
		}
		applied = applied || a
		if err := c.countRecord(ctx, opts, buffer); err != nil {
			return applied, err
		}
	}

	// pending reaches 0 once every result is queued; apply those not yet read.
	for _, res := range mustCheckResults(c.Workers, c.MergeWorkerPool) {
		a, err := c.applyDedupResult(res, buffer)
		if err != nil {
			return applied, err
		}
		applied = applied || a
		if err := c.countRecord(ctx, opts, buffer); err != nil {
			return applied, err
		}
	}

	return applied, buffer.Flush()
}

// queueParams reproduces the same source/single-id selection the single
// stream uses, so both streams scan the same scope (spec.md §4.I).
func queueParams(opts Options) queue.Params {
	return queue.Params{SourceID: opts.SourceID, SingleID: opts.SingleID}
}

// latestRecordTime picks lastRecordTime "from the most recently updated
// record globally" (spec.md §4.I). Implemented as a cursor scan over every
// record, deleted ones included, keeping the latest change time, since
// docstore.Store exposes no direct "max(changed)" query.
func (c *Coordinator) latestRecordTime(ctx context.Context) (time.Time, error) {
	cursor, err := c.DocStore.FindRecords(ctx, docstore.RecordFilter{IncludeDeleted: true})
	if err != nil {
		return time.Time{}, err
	}
	defer cursor.Close()

	var latest time.Time
	for cursor.Next(ctx) {
		rec := cursor.Record()
		if rec.Changed.After(latest) {
			latest = rec.Changed
		}
	}
	if err := cursor.Err(); err != nil {
		return time.Time{}, err
	}
	if latest.IsZero() {
		latest = time.Now()
	}
	return latest, nil
}

func (c *Coordinator) ensureMergePool() error {
	if c.MergeWorkerPool == "" {
		c.MergeWorkerPool = "merge"
	}
	err := c.Workers.CreatePool(c.MergeWorkerPool, c.Global.RecordWorkers, 100, c.dedupHandler)
	if err != nil && err != worker.ErrPoolExists {
		return err
	}
	return nil
}

func (c *Coordinator) applyDedupResult(res worker.Result, buffer *updatebuffer.Buffer) (bool, error) {
	if res.Err != nil {
		c.logger().Warn("dedup record processing failed", "id", res.ID, "error", res.Err)
		return false, nil
	}
	dr, ok := res.Value.(*dedupResult)
	if !ok || dr == nil {
		return false, nil
	}
	for _, doc := range dr.docs {
		if err := buffer.Append(doc); err != nil {
			return false, err
		}
	}
	for _, id := range dr.deletes {
		if err := buffer.Delete(id); err != nil {
			return false, err
		}
	}
	return len(dr.docs)+len(dr.deletes) > 0, nil
}

// dedupJob is the payload the merge-worker pool dispatches to
// processDedupRecord.
type dedupJob struct {
	dedupID      string
	sourceFilter *SourceFilter
	delete       bool
}

// effectiveSourceFilter resolves the filter processDedupRecord applies to
// decide which members delete-mode touches: the explicit SourceFilter when
// given, else a single-literal filter derived from SourceID, else nil
// (matches every source).
func effectiveSourceFilter(opts Options) *SourceFilter {
	if opts.SourceFilter != nil {
		return opts.SourceFilter
	}
	if opts.SourceID == "" {
		return nil
	}
	f, _ := ParseSourceFilter(opts.SourceID)
	return f
}

func (c *Coordinator) dedupHandler(ctx context.Context, req worker.Request) worker.Result {
	job, _ := req.Payload.(dedupJob)
	result, err := c.processDedupRecord(ctx, job.dedupID, job.sourceFilter, job.delete)
	if err != nil {
		return worker.Result{ID: req.ID, Err: err}
	}
	return worker.Result{ID: req.ID, Value: result}
}

// processDedupRecord implements spec.md §4.I's contract in full.
func (c *Coordinator) processDedupRecord(ctx context.Context, dedupID string, sourceFilter *SourceFilter, deleteMode bool) (*dedupResult, error) {
	group, err := c.DocStore.GetDedupGroup(ctx, dedupID)
	if err != nil {
		return nil, err
	}
	if group == nil {
		c.logger().Warn("dedup group missing", "id", dedupID)
		return &dedupResult{}, nil
	}
	if group.Deleted {
		return &dedupResult{deletes: []string{dedupID}}, nil
	}

	nonIndexed := c.nonIndexedSources()

	var children []merge.Child
	var deletes []string

	for _, memberID := range group.Members {
		member, err := c.DocStore.GetRecord(ctx, memberID)
		if err != nil {
			return nil, err
		}
		if member == nil {
			continue
		}
		if nonIndexed[member.Source] {
			continue
		}

		deleteThis := member.Deleted || (deleteMode && sourceFilter.Matches(member.Source))
		if deleteThis {
			deletes = append(deletes, member.ID)
			continue
		}

		meta, err := parseMetadata(member)
		if err != nil {
			c.logger().Warn("member record parse failed", "id", member.ID, "error", err)
			continue
		}
		src := c.dataSourceFor(member.Source)
		built, err := c.Builder.BuildDocument(ctx, src, member, meta, group)
		if err != nil {
			if err == solrdoc.ErrSkip {
				continue
			}
			return nil, err
		}

		title := ""
		if titles := built.Doc.Get("title"); len(titles) > 0 {
			title = titles[0]
		}
		children = append(children, merge.Child{ID: member.ID, Doc: built.Doc, Title: title})
	}

	if len(children) == 0 {
		deletes = append(deletes, dedupID)
		return &dedupResult{deletes: deletes}, nil
	}

	result := merge.MergeRecords(children, c.MergeOpts)
	merge.CopyMergedDataToChildren(result.Merged, result.Children, c.MergeOpts.CopyFromMergedRecord)

	if len(result.Children) == 1 {
		if !deleteMode {
			c.logger().Warn("dedup group has a single surviving member", "id", dedupID)
		}
		docs := []map[string][]string{result.Children[0].Doc}
		deletes = append(deletes, dedupID)
		return &dedupResult{docs: docs, deletes: deletes}, nil
	}

	docs := make([]map[string][]string, 0, len(result.Children)+1)
	for _, child := range result.Children {
		child.Doc[fieldMergedChildBoolean] = []string{"true"}
		docs = append(docs, child.Doc)
	}
	result.Merged["id"] = []string{dedupID}
	result.Merged[fieldRecordFormat] = []string{recordFormatMerged}
	result.Merged[fieldMergedBoolean] = []string{"true"}
	docs = append(docs, result.Merged)

	return &dedupResult{docs: docs, deletes: deletes}, nil
}

