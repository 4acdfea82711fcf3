package updatebuffer

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDumpSink_AllocatesSmallestUnusedN(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "batch")

	require.NoError(t, os.WriteFile(prefix+"-0.json", []byte(""), 0o644))

	sink, err := NewDumpSink(prefix)
	require.NoError(t, err)
	assert.Equal(t, prefix+"-1.json", sink.path)
}

func TestDumpSink_AppendsUpdatesAndDeletesAsSeparateLines(t *testing.T) {
	dir := t.TempDir()
	prefix := filepath.Join(dir, "batch")

	sink, err := NewDumpSink(prefix)
	require.NoError(t, err)

	require.NoError(t, sink.SendUpdates([]map[string][]string{{"id": {"a.1"}}}))
	require.NoError(t, sink.SendDeletes([]string{"a.2"}))

	data, err := os.ReadFile(sink.path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `"add":[{"id":["a.1"]}]`)
	assert.Contains(t, string(data), `"delete":["a.2"]`)
}
