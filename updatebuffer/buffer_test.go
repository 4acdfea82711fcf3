package updatebuffer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSink struct {
	updateBatches [][]map[string][]string
	deleteBatches [][]string
}

func (f *fakeSink) SendUpdates(docs []map[string][]string) error {
	f.updateBatches = append(f.updateBatches, docs)
	return nil
}

func (f *fakeSink) SendDeletes(ids []string) error {
	f.deleteBatches = append(f.deleteBatches, ids)
	return nil
}

func TestAppend_FlushesAtMaxRecords(t *testing.T) {
	sink := &fakeSink{}
	b := &Buffer{MaxRecords: 2, Sink: sink}

	require.NoError(t, b.Append(map[string][]string{"id": {"a.1"}}))
	assert.Empty(t, sink.updateBatches)
	require.NoError(t, b.Append(map[string][]string{"id": {"a.2"}}))
	require.Len(t, sink.updateBatches, 1)
	assert.Len(t, sink.updateBatches[0], 2)

	docs, _ := b.Pending()
	assert.Equal(t, 0, docs)
}

func TestAppend_FlushesAtMaxSizeBytes(t *testing.T) {
	sink := &fakeSink{}
	b := &Buffer{MaxSizeBytes: 1, Sink: sink}

	require.NoError(t, b.Append(map[string][]string{"id": {"a.1"}}))
	require.Len(t, sink.updateBatches, 1)
}

func TestDelete_FlushesAtThousandIDs(t *testing.T) {
	sink := &fakeSink{}
	b := &Buffer{Sink: sink}

	for i := 0; i < deleteBatchThreshold-1; i++ {
		require.NoError(t, b.Delete("id"))
	}
	assert.Empty(t, sink.deleteBatches)

	require.NoError(t, b.Delete("last"))
	require.Len(t, sink.deleteBatches, 1)
	assert.Len(t, sink.deleteBatches[0], deleteBatchThreshold)
}

func TestFlush_DrainsPendingUpdatesAndDeletesUnconditionally(t *testing.T) {
	sink := &fakeSink{}
	b := &Buffer{MaxRecords: 1000, Sink: sink}

	require.NoError(t, b.Append(map[string][]string{"id": {"a.1"}}))
	require.NoError(t, b.Delete("a.2"))
	require.NoError(t, b.Flush())

	assert.Len(t, sink.updateBatches, 1)
	assert.Len(t, sink.deleteBatches, 1)

	docs, deletes := b.Pending()
	assert.Equal(t, 0, docs)
	assert.Equal(t, 0, deletes)
}

func TestFlush_NoopWhenEmpty(t *testing.T) {
	sink := &fakeSink{}
	b := &Buffer{Sink: sink}
	require.NoError(t, b.Flush())
	assert.Empty(t, sink.updateBatches)
	assert.Empty(t, sink.deleteBatches)
}
