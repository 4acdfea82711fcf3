package mapping

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksip/RecordManager/record"
)

func TestBridge_AppliesGlobalBeforePerSource_DedupingNames(t *testing.T) {
	resetEnricherRegistry()
	defer resetEnricherRegistry()

	var order []string
	register := func(name string) {
		n := name
		require.NoError(t, RegisterEnricher(n, func(cfg map[string]any) (Enricher, error) {
			return EnricherFunc(func(source string, m record.MetadataRecord, doc map[string][]string) error {
				order = append(order, n)
				return nil
			}), nil
		}))
	}
	register("a")
	register("b")

	bridge := NewBridge([]string{"a"}, map[string]map[string]any{})
	err := bridge.Apply("acme", []string{"b", "a"}, nil, map[string][]string{})
	require.NoError(t, err)

	assert.Equal(t, []string{"a", "b"}, order)
}

func TestBridge_CachesInstancePerSourceAndName(t *testing.T) {
	resetEnricherRegistry()
	defer resetEnricherRegistry()

	calls := 0
	require.NoError(t, RegisterEnricher("counter", func(cfg map[string]any) (Enricher, error) {
		calls++
		return EnricherFunc(func(string, record.MetadataRecord, map[string][]string) error { return nil }), nil
	}))

	bridge := NewBridge(nil, nil)
	require.NoError(t, bridge.Apply("acme", []string{"counter"}, nil, map[string][]string{}))
	require.NoError(t, bridge.Apply("acme", []string{"counter"}, nil, map[string][]string{}))
	require.NoError(t, bridge.Apply("other", []string{"counter"}, nil, map[string][]string{}))

	assert.Equal(t, 2, calls, "one instance per (source, name) pair")
}

func TestBridge_UnknownEnricherIsFatal(t *testing.T) {
	resetEnricherRegistry()
	defer resetEnricherRegistry()

	bridge := NewBridge(nil, nil)
	err := bridge.Apply("acme", []string{"does-not-exist"}, nil, map[string][]string{})
	assert.Error(t, err)
}
