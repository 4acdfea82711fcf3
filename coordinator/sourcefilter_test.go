package coordinator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksip/RecordManager/config"
)

func TestParseSourceFilter_EmptyMatchesEverything(t *testing.T) {
	f, err := ParseSourceFilter("")
	require.NoError(t, err)
	assert.Nil(t, f)
	assert.True(t, f.Matches("anything"))
}

func TestParseSourceFilter_IncludeExcludeAndRegex(t *testing.T) {
	f, err := ParseSourceFilter("sA,-sB,-/^test_.*/")
	require.NoError(t, err)
	require.NotNil(t, f)

	assert.True(t, f.Matches("sA"))
	assert.False(t, f.Matches("sB"))
	assert.False(t, f.Matches("test_acme"))
	assert.False(t, f.Matches("other")) // not in the include set
}

func TestParseSourceFilter_Literal(t *testing.T) {
	f, err := ParseSourceFilter("sA")
	require.NoError(t, err)
	id, ok := f.Literal()
	assert.True(t, ok)
	assert.Equal(t, "sA", id)

	f, err = ParseSourceFilter("sA,-sB")
	require.NoError(t, err)
	_, ok = f.Literal()
	assert.False(t, ok)
}

func TestParseSourceFilter_InvalidRegex(t *testing.T) {
	_, err := ParseSourceFilter("-/[/")
	assert.Error(t, err)
}

func TestSourceFilter_AnyMatchWithDedup(t *testing.T) {
	dataSources := map[string]config.DataSourceSettings{
		"acme":  {Dedup: true},
		"other": {Dedup: false},
	}
	f, err := ParseSourceFilter("other")
	require.NoError(t, err)
	assert.False(t, f.AnyMatchWithDedup(dataSources))

	f, err = ParseSourceFilter("acme,other")
	require.NoError(t, err)
	assert.True(t, f.AnyMatchWithDedup(dataSources))
}
