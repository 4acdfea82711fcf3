package coordinator

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksip/RecordManager/config"
	"github.com/aleksip/RecordManager/docstore"
	"github.com/aleksip/RecordManager/mapping"
	"github.com/aleksip/RecordManager/merge"
	"github.com/aleksip/RecordManager/pkg/worker"
	"github.com/aleksip/RecordManager/queue"
	"github.com/aleksip/RecordManager/record"
	"github.com/aleksip/RecordManager/solrclient"
	"github.com/aleksip/RecordManager/solrdoc"
	"github.com/aleksip/RecordManager/statestore"
)

type fakeMeta struct {
	id, title string
}

func (f *fakeMeta) ID() string     { return f.id }
func (f *fakeMeta) Format() string { return "TestFormat" }
func (f *fakeMeta) ToSolrArray() (map[string][]string, error) {
	return map[string][]string{"title": {f.title}}, nil
}
func (f *fakeMeta) Titles() ([]string, bool, []string) { return []string{f.title}, false, nil }
func (f *fakeMeta) Authors() []string                  { return nil }
func (f *fakeMeta) MergeComponentParts([]record.MetadataRecord) (string, error) { return "", nil }
func (f *fakeMeta) Warnings() []string                                         { return nil }
func (f *fakeMeta) Volume() string                                             { return "" }
func (f *fakeMeta) Issue() string                                              { return "" }
func (f *fakeMeta) StartPage() string                                          { return "" }
func (f *fakeMeta) ContainerReference() string                                 { return "" }

func init() {
	_ = record.Register("TestFormat", func(raw []byte) (record.MetadataRecord, error) {
		var m struct {
			Title string `json:"title"`
		}
		_ = json.Unmarshal(raw, &m)
		return &fakeMeta{title: m.Title}, nil
	})
}

func rawFor(title string) []byte {
	b, _ := json.Marshal(map[string]string{"title": title})
	return b
}

type fakeCheckpoints struct {
	mu  sync.Mutex
	val map[string]time.Time
}

func newFakeCheckpoints() *fakeCheckpoints {
	return &fakeCheckpoints{val: make(map[string]time.Time)}
}

func (f *fakeCheckpoints) GetCheckpoint(_ context.Context, url string) (time.Time, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	t, ok := f.val[url]
	return t, ok, nil
}

func (f *fakeCheckpoints) SetCheckpoint(_ context.Context, url string, t time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.val[url] = t
	return nil
}

// fakeQueueState is an in-memory queue.StateStore, standing in for a real
// *statestore.Store without a live NATS server (same shape as
// queue/manager_test.go's fakeState).
type fakeQueueState struct {
	mu          sync.Mutex
	collections map[string]statestore.QueueCollection
	ids         map[string][]string
}

func newFakeStateStore() *fakeQueueState {
	return &fakeQueueState{
		collections: map[string]statestore.QueueCollection{},
		ids:         map[string][]string{},
	}
}

func (f *fakeQueueState) GetQueueCollection(_ context.Context, hash string) (*statestore.QueueCollection, uint64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	qc, ok := f.collections[hash]
	if !ok {
		return nil, 0, nil
	}
	return &qc, 1, nil
}

func (f *fakeQueueState) CreateQueueCollection(_ context.Context, hash string, low, high time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.collections[hash] = statestore.QueueCollection{Hash: hash, Low: low, High: high, Status: statestore.QueueBuilding}
	return nil
}

func (f *fakeQueueState) FinalizeQueueCollection(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	qc := f.collections[hash]
	qc.Status = statestore.QueueFinal
	f.collections[hash] = qc
	return nil
}

func (f *fakeQueueState) DropQueueCollection(_ context.Context, hash string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.collections, hash)
	delete(f.ids, hash)
	return nil
}

func (f *fakeQueueState) ListQueueCollections(_ context.Context) ([]statestore.QueueCollection, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []statestore.QueueCollection
	for _, qc := range f.collections {
		out = append(out, qc)
	}
	return out, nil
}

func (f *fakeQueueState) AppendQueueIDs(_ context.Context, hash string, ids []string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.ids[hash] = append(f.ids[hash], ids...)
	return nil
}

func (f *fakeQueueState) GetQueueIDs(_ context.Context, hash string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.ids[hash]...), nil
}

func newTestBuilder(store docstore.Store) *solrdoc.Builder {
	return &solrdoc.Builder{
		Global: config.GlobalConfig{UnicodeNormalizationForm: "NFKC"},
		Mapper: mapping.NewMapper(nil, nil),
		Bridge: mapping.NewBridge(nil, nil),
		Store:  store,
	}
}

func newTestCoordinator(t *testing.T, solrServer *httptest.Server) (*Coordinator, *docstore.MemStore) {
	t.Helper()
	store := docstore.NewMemStore()

	client := &solrclient.Client{
		UpdateURL: solrServer.URL + "/update",
		MaxTries:  1,
	}

	return &Coordinator{
		Global: config.GlobalConfig{
			UpdateURL:         "http://solr/update",
			RecordWorkers:     0,
			MaxUpdateRecords:  1000,
			MaxUpdateSizeKiB:  1024,
			MaxCommitInterval: 0,
		},
		DataSources: map[string]config.DataSourceSettings{
			"acme": {ID: "acme", Index: true, IndexMergedParts: true},
		},
		DocStore:    store,
		Checkpoints: newFakeCheckpoints(),
		Queue:       &queue.Manager{Store: store, State: newFakeStateStore()},
		Builder:     newTestBuilder(store),
		MergeOpts:   merge.Options{ScoredFields: []string{"title"}},
		Solr:        client,
		Workers:     worker.NewManager(nil),
	}, store
}

func TestUpdateRecords_SingleRecordStream_IndexesViaSolr(t *testing.T) {
	var received []map[string][]string
	var mu sync.Mutex
	solrServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var docs []map[string][]string
		_ = json.NewDecoder(r.Body).Decode(&docs)
		mu.Lock()
		received = append(received, docs...)
		mu.Unlock()
		w.WriteHeader(http.StatusOK)
	}))
	defer solrServer.Close()

	c, store := newTestCoordinator(t, solrServer)
	store.PutRecord(&record.SourceRecord{
		ID: "acme.1", Source: "acme", Format: "TestFormat", Raw: rawFor("Hello World"),
		Changed: time.Now(),
	})

	result, err := c.UpdateRecords(context.Background(), Options{})
	require.NoError(t, err)
	assert.True(t, result.UpdatesApplied)

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 1)
	assert.Equal(t, []string{"acme.1"}, received[0]["id"])
}

func TestUpdateRecords_AdvancesCheckpointOnFullScope(t *testing.T) {
	solrServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer solrServer.Close()

	c, _ := newTestCoordinator(t, solrServer)
	checkpoints := c.Checkpoints.(*fakeCheckpoints)

	_, err := c.UpdateRecords(context.Background(), Options{})
	require.NoError(t, err)

	_, found, err := checkpoints.GetCheckpoint(context.Background(), "")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestUpdateRecords_DoesNotAdvanceCheckpointWithSourceFilter(t *testing.T) {
	solrServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer solrServer.Close()

	c, _ := newTestCoordinator(t, solrServer)
	checkpoints := c.Checkpoints.(*fakeCheckpoints)

	_, err := c.UpdateRecords(context.Background(), Options{SourceID: "acme"})
	require.NoError(t, err)

	_, found, _ := checkpoints.GetCheckpoint(context.Background(), "")
	assert.False(t, found)
}

func TestDedupStreamEligible(t *testing.T) {
	c := &Coordinator{DataSources: map[string]config.DataSourceSettings{
		"acme":  {Dedup: true},
		"other": {Dedup: false},
	}}
	assert.True(t, c.dedupStreamEligible(Options{}))
	assert.True(t, c.dedupStreamEligible(Options{SourceID: "acme"}))
	assert.False(t, c.dedupStreamEligible(Options{SourceID: "other"}))
	assert.False(t, c.dedupStreamEligible(Options{SourceID: "missing"}))
}

func TestResolveFromDate_PrefersExplicitThenCheckpointThenBeginning(t *testing.T) {
	checkpoints := newFakeCheckpoints()
	stored := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	checkpoints.val["u"] = stored
	c := &Coordinator{Checkpoints: checkpoints}

	explicit := time.Date(2026, 6, 1, 0, 0, 0, 0, time.UTC)
	got, err := c.resolveFromDate(context.Background(), Options{FromDate: &explicit}, "u")
	require.NoError(t, err)
	assert.Equal(t, explicit, got)

	got, err = c.resolveFromDate(context.Background(), Options{}, "u")
	require.NoError(t, err)
	assert.Equal(t, stored, got)

	got, err = c.resolveFromDate(context.Background(), Options{}, "missing")
	require.NoError(t, err)
	assert.True(t, got.IsZero())
}

func TestProcessDedupRecord_MergesTwoActiveMembersIntoOneDoc(t *testing.T) {
	store := docstore.NewMemStore()
	store.PutRecord(&record.SourceRecord{ID: "acme.1", Source: "acme", Format: "TestFormat", Raw: rawFor("hello world"), DedupID: "D1"})
	store.PutRecord(&record.SourceRecord{ID: "acme.2", Source: "acme", Format: "TestFormat", Raw: rawFor("HELLO WORLD"), DedupID: "D1"})
	store.PutDedupGroup(&record.DedupGroup{ID: "D1", Members: []string{"acme.1", "acme.2"}})

	c := &Coordinator{
		DataSources: map[string]config.DataSourceSettings{"acme": {ID: "acme", Index: true, IndexMergedParts: true}},
		DocStore:    store,
		Builder:     newTestBuilder(store),
		MergeOpts:   merge.Options{ScoredFields: []string{"title"}},
	}

	result, err := c.processDedupRecord(context.Background(), "D1", nil, false)
	require.NoError(t, err)
	require.Len(t, result.docs, 3) // 2 children + 1 merged doc
	assert.Empty(t, result.deletes)

	var mergedCount int
	for _, doc := range result.docs {
		if doc[fieldRecordFormat] != nil && doc[fieldRecordFormat][0] == recordFormatMerged {
			mergedCount++
			assert.Equal(t, []string{"D1"}, doc["id"])
			assert.Equal(t, []string{"true"}, doc[fieldMergedBoolean])
		} else {
			assert.Equal(t, []string{"true"}, doc[fieldMergedChildBoolean])
		}
	}
	assert.Equal(t, 1, mergedCount)
}

func TestProcessDedupRecord_DeletesGroupWhenNoActiveMembersRemain(t *testing.T) {
	store := docstore.NewMemStore()
	store.PutRecord(&record.SourceRecord{ID: "acme.1", Source: "acme", DedupID: "D1", Deleted: true})
	store.PutDedupGroup(&record.DedupGroup{ID: "D1", Members: []string{"acme.1"}})

	c := &Coordinator{
		DataSources: map[string]config.DataSourceSettings{"acme": {ID: "acme", Index: true}},
		DocStore:    store,
		Builder:     newTestBuilder(store),
	}

	result, err := c.processDedupRecord(context.Background(), "D1", nil, false)
	require.NoError(t, err)
	assert.Empty(t, result.docs)
	assert.Contains(t, result.deletes, "acme.1")
	assert.Contains(t, result.deletes, "D1")
}

func TestProcessDedupRecord_MissingGroupLogsAndReturnsEmpty(t *testing.T) {
	store := docstore.NewMemStore()
	c := &Coordinator{DocStore: store, Builder: newTestBuilder(store)}

	result, err := c.processDedupRecord(context.Background(), "missing", nil, false)
	require.NoError(t, err)
	assert.Empty(t, result.docs)
	assert.Empty(t, result.deletes)
}
