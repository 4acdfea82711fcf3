// Package coordinator implements the Indexing Coordinator (spec.md §4.I):
// the top-level updateRecords operation that resolves the checkpoint,
// drives the single-record and merged-record streams through the Worker
// Pool Manager, and decides when to commit.
package coordinator

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/aleksip/RecordManager/config"
	"github.com/aleksip/RecordManager/docstore"
	"github.com/aleksip/RecordManager/merge"
	"github.com/aleksip/RecordManager/pkg/worker"
	"github.com/aleksip/RecordManager/queue"
	"github.com/aleksip/RecordManager/record"
	"github.com/aleksip/RecordManager/solrclient"
	"github.com/aleksip/RecordManager/solrdoc"
	"github.com/aleksip/RecordManager/updatebuffer"
)

// CheckpointStore is the subset of *statestore.Store the coordinator needs
// for checkpoint persistence (spec.md §4.I, §4.K).
type CheckpointStore interface {
	GetCheckpoint(ctx context.Context, updateURL string) (time.Time, bool, error)
	SetCheckpoint(ctx context.Context, updateURL string, t time.Time) error
}

// Options are the inputs to updateRecords (spec.md §4.I).
type Options struct {
	FromDate *time.Time
	// SourceID restricts the Document Store query to exactly one source;
	// empty means no source restriction at query level. Set directly for
	// the single-source case, or derived from SourceFilter.Literal() when
	// the --source flag names exactly one plain inclusion.
	SourceID string
	// SourceFilter applies the full --source include/exclude/regex syntax
	// (spec.md §6) as a post-filter wherever SourceID alone can't express
	// it. Nil when the flag was empty or reduced to a single literal.
	SourceFilter *SourceFilter
	// SourceRaw carries the original --source flag text through to the
	// merged-stream child process (spec.md §5, sibling-process fork),
	// since SourceFilter itself doesn't cross a process boundary.
	SourceRaw     string
	SingleID      string
	NoCommit      bool
	Delete        bool
	Compare       string
	DumpPrefix    string
	DatePerServer bool
}

// Coordinator wires every other component (A–H) into the top-level
// updateRecords operation.
type Coordinator struct {
	Global      config.GlobalConfig
	DataSources map[string]config.DataSourceSettings

	DocStore    docstore.Store
	Checkpoints CheckpointStore
	Queue       *queue.Manager
	Builder     *solrdoc.Builder
	MergeOpts   merge.Options
	Solr        *solrclient.Client
	Workers     *worker.Manager

	RecordWorkerPool string // name registered with Workers for per-record builds
	MergeWorkerPool  string // name registered with Workers for per-dedup-group merges
	SolrWorkerPool   string // name registered with Workers for Solr update/delete dispatch

	// Forker launches the merged-record stream as a sibling process when
	// threaded_merged_record_update is enabled. Nil runs it in-process
	// (used by tests). --delete and --compare runs never fork, even when a
	// Forker is set.
	Forker Forker

	Logger *slog.Logger

	mu             sync.Mutex
	updatesApplied bool
	recordCount    int
}

func (c *Coordinator) logger() *slog.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return slog.Default()
}

// Result summarizes one updateRecords run for the CLI's exit-code mapping
// (spec.md §6: 0 success, 1 interrupted/partial-and-committable, 2 fatal).
type Result struct {
	UpdatesApplied bool
	Interrupted    bool
}

// DeleteSource implements spec.md §4.I's delete-source mode: removes every
// document belonging to sourceID by query, with no record iteration.
func (c *Coordinator) DeleteSource(ctx context.Context, sourceID string) error {
	if err := c.Solr.DeleteByQuery(ctx, fmt.Sprintf("id:%s.*", sourceID), 3600*time.Second); err != nil {
		return fmt.Errorf("coordinator: delete source %q: %w", sourceID, err)
	}
	return c.Solr.Commit(ctx, 3600*time.Second)
}

// RunMergedStreamOnly runs processMerged in isolation and commits on
// success — the body of the forked merged-stream child process (spec.md
// §5: "the merged-record stream runs as a sibling process"). The parent's
// ExecForker re-execs the binary with coordinator.MergedStreamFlag, which
// the CLI maps to this method instead of UpdateRecords.
func (c *Coordinator) RunMergedStreamOnly(ctx context.Context, opts Options) (Result, error) {
	sink, cleanup, err := c.buildSink(opts)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	buffer := &updatebuffer.Buffer{
		MaxRecords:   c.Global.MaxUpdateRecords,
		MaxSizeBytes: c.Global.MaxUpdateSizeKiB * 1024,
		Sink:         sink,
	}

	applied, err := c.runMergedStream(ctx, opts, buffer)
	if err != nil {
		return Result{Interrupted: true, UpdatesApplied: c.updatesApplied}, err
	}

	if applied && !opts.NoCommit && opts.DumpPrefix == "" {
		if err := c.Solr.Commit(ctx, 3600*time.Second); err != nil {
			return Result{Interrupted: true, UpdatesApplied: applied}, fmt.Errorf("coordinator: merged-stream child commit: %w", err)
		}
	}

	return Result{UpdatesApplied: applied}, nil
}

// UpdateRecords implements the top-level operation (spec.md §4.I).
func (c *Coordinator) UpdateRecords(ctx context.Context, opts Options) (Result, error) {
	updateURL := checkpointKeyFor(c.Global.UpdateURL, opts.DatePerServer)

	fromDate, err := c.resolveFromDate(ctx, opts, updateURL)
	if err != nil {
		return Result{}, fmt.Errorf("coordinator: resolve checkpoint: %w", err)
	}

	fullScope := opts.SourceID == "" && opts.SourceFilter == nil && opts.SingleID == "" && opts.FromDate == nil
	var lastIndexingDate time.Time
	if fullScope {
		lastIndexingDate = time.Now()
	}

	dedupEligible := c.dedupStreamEligible(opts)

	sink, cleanup, err := c.buildSink(opts)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	buffer := &updatebuffer.Buffer{
		MaxRecords:   c.Global.MaxUpdateRecords,
		MaxSizeBytes: c.Global.MaxUpdateSizeKiB * 1024,
		Sink:         sink,
	}

	threaded := c.Global.ThreadedMergedRecordUpdate && !opts.Delete && opts.Compare == "" && dedupEligible && c.Forker != nil

	var child ChildHandle
	if threaded {
		child, err = c.Forker.Fork(ctx, opts)
		if err != nil {
			return Result{}, fmt.Errorf("coordinator: fork merged-stream worker: %w", err)
		}
	}

	singleErr := c.runSingleStream(ctx, opts, fromDate, buffer)

	var mergedErr error
	var mergedApplied bool
	if threaded {
		code, waitErr := child.Wait(ctx)
		mergedErr = waitErr
		if code == 2 && waitErr == nil {
			mergedErr = fmt.Errorf("coordinator: merged-stream child failed")
		}
		mergedApplied = code == 1
	} else if dedupEligible {
		mergedApplied, mergedErr = c.runMergedStream(ctx, opts, buffer)
	}

	if singleErr != nil {
		if threaded {
			child.Signal(ctx)
			_, _ = child.Wait(ctx)
		}
		return Result{Interrupted: true}, singleErr
	}
	if mergedErr != nil {
		return Result{Interrupted: true, UpdatesApplied: c.updatesApplied}, mergedErr
	}

	if err := buffer.Flush(); err != nil {
		return Result{Interrupted: true}, fmt.Errorf("coordinator: final flush: %w", err)
	}

	applied := c.updatesApplied || mergedApplied
	if applied && !opts.NoCommit && opts.Compare == "" && opts.DumpPrefix == "" {
		if err := c.Solr.Commit(ctx, 3600*time.Second); err != nil {
			return Result{Interrupted: true, UpdatesApplied: applied}, fmt.Errorf("coordinator: final commit: %w", err)
		}
	}

	if fullScope && opts.Compare == "" {
		if err := c.Checkpoints.SetCheckpoint(ctx, updateURL, lastIndexingDate); err != nil {
			return Result{UpdatesApplied: applied}, fmt.Errorf("coordinator: advance checkpoint: %w", err)
		}
	}

	return Result{UpdatesApplied: applied}, nil
}

// checkpointKeyFor implements §6's "one key-value entry per update URL (or
// one shared entry)": a bare shared key by default, suffixed by updateURL
// only when --date-per-server asks for a per-server checkpoint.
func checkpointKeyFor(updateURL string, datePerServer bool) string {
	if !datePerServer {
		return ""
	}
	return updateURL
}

// resolveFromDate implements spec.md §4.I: "explicit value, else stored
// checkpoint, else beginning".
func (c *Coordinator) resolveFromDate(ctx context.Context, opts Options, updateURL string) (time.Time, error) {
	if opts.FromDate != nil {
		return *opts.FromDate, nil
	}
	t, found, err := c.Checkpoints.GetCheckpoint(ctx, updateURL)
	if err != nil {
		return time.Time{}, err
	}
	if found {
		return t, nil
	}
	return time.Time{}, nil // "beginning"
}

// dedupStreamEligible implements spec.md §4.I: "run only if no sourceId
// filter is given OR at least one included source has dedup true".
func (c *Coordinator) dedupStreamEligible(opts Options) bool {
	if opts.SourceID != "" {
		ds, ok := c.DataSources[opts.SourceID]
		return ok && ds.Dedup
	}
	if opts.SourceFilter == nil {
		return true
	}
	return opts.SourceFilter.AnyMatchWithDedup(c.DataSources)
}

// nonIndexedSources returns the set of source ids configured with index =
// false, silently dropped from merged-stream member fetches (spec.md §4.I
// processDedupRecord contract).
func (c *Coordinator) nonIndexedSources() map[string]bool {
	out := make(map[string]bool)
	for id, ds := range c.DataSources {
		if !ds.Index {
			out[id] = true
		}
	}
	return out
}

func (c *Coordinator) buildSink(opts Options) (updatebuffer.Sink, func(), error) {
	if opts.DumpPrefix != "" {
		sink, err := updatebuffer.NewDumpSink(opts.DumpPrefix)
		if err != nil {
			return nil, func() {}, err
		}
		return sink, func() {}, nil
	}
	return &solrSink{coordinator: c}, func() {}, nil
}

// solrSink adapts the Coordinator's Solr client and Solr worker pool to
// updatebuffer.Sink, tracking whether any update was actually applied.
type solrSink struct {
	coordinator *Coordinator
}

func (s *solrSink) SendUpdates(docs []map[string][]string) error {
	if len(docs) == 0 {
		return nil
	}
	s.coordinator.updatesApplied = true
	return s.coordinator.dispatchToSolrPool(docs)
}

func (s *solrSink) SendDeletes(ids []string) error {
	if len(ids) == 0 {
		return nil
	}
	s.coordinator.updatesApplied = true
	return s.coordinator.dispatchToSolrPool(ids)
}

// ensureSolrPool registers the Solr-update worker pool the first time it's
// needed (spec.md §1 "two worker pools (record transformation workers,
// Solr update workers)", §2 component D); cheap to call repeatedly.
func (c *Coordinator) ensureSolrPool() error {
	if c.SolrWorkerPool == "" {
		c.SolrWorkerPool = "solr"
	}
	err := c.Workers.CreatePool(c.SolrWorkerPool, c.Global.SolrUpdateWorkers, 100, c.solrHandler)
	if err != nil && err != worker.ErrPoolExists {
		return err
	}
	return nil
}

// dispatchToSolrPool submits a flushed update or delete batch to the Solr
// worker pool and blocks for its result, so the HTTP round-trip to Solr
// runs on a pool worker goroutine (concurrency = solr_update_workers)
// instead of the calling stream's own goroutine.
func (c *Coordinator) dispatchToSolrPool(payload any) error {
	if err := c.ensureSolrPool(); err != nil {
		return err
	}
	ctx := context.Background()
	if err := c.Workers.AddRequest(ctx, c.SolrWorkerPool, worker.Request{ID: c.SolrWorkerPool, Payload: payload}); err != nil {
		return err
	}
	res, ok, err := c.Workers.GetResult(ctx, c.SolrWorkerPool)
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("coordinator: solr pool closed before producing a result")
	}
	return res.Err
}

// solrHandler is the Solr worker pool's Handler (spec.md §2 component D):
// it dispatches either an update batch ([]map[string][]string) or a delete
// batch ([]string) to the Solr Client, whichever the request carries.
func (c *Coordinator) solrHandler(ctx context.Context, req worker.Request) worker.Result {
	switch payload := req.Payload.(type) {
	case []map[string][]string:
		return worker.Result{ID: req.ID, Err: c.Solr.Update(ctx, payload, 60*time.Second)}
	case []string:
		return worker.Result{ID: req.ID, Err: c.Solr.Delete(ctx, payload, 60*time.Second)}
	default:
		return worker.Result{ID: req.ID, Err: fmt.Errorf("coordinator: solr handler got unexpected payload %T", req.Payload)}
	}
}

// countRecord implements the commit-policy counter (spec.md §4.I: "at
// record counter % max_commit_interval == 0, drain the Solr pool and issue
// a commit"). A zero or negative interval disables periodic commits.
func (c *Coordinator) countRecord(ctx context.Context, opts Options, buffer *updatebuffer.Buffer) error {
	if c.Global.MaxCommitInterval <= 0 || opts.NoCommit || opts.Compare != "" || opts.DumpPrefix != "" {
		return nil
	}

	c.mu.Lock()
	c.recordCount++
	due := c.recordCount%c.Global.MaxCommitInterval == 0
	c.mu.Unlock()

	if !due {
		return nil
	}
	if err := buffer.Flush(); err != nil {
		return err
	}
	return c.Solr.Commit(ctx, 3600*time.Second)
}

// parseMetadata is a small helper shared by the single- and merged-stream
// builders to re-parse a source record's raw bytes via the record registry.
func parseMetadata(rec *record.SourceRecord) (record.MetadataRecord, error) {
	return record.NewMetadataRecord(rec.Format, rec.Raw)
}
