package record

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSourceRecord_IsComponentPart(t *testing.T) {
	withHost := &SourceRecord{HostRecordIDs: []string{"host.1"}}
	withoutHost := &SourceRecord{}

	assert.True(t, withHost.IsComponentPart())
	assert.False(t, withoutHost.IsComponentPart())
}

func TestSourceRecord_IsHost(t *testing.T) {
	host := &SourceRecord{LinkingIDs: []string{"link.1"}}
	part := &SourceRecord{HostRecordIDs: []string{"host.1"}, LinkingIDs: []string{"link.1"}}
	plain := &SourceRecord{}

	assert.True(t, host.IsHost())
	assert.False(t, part.IsHost())
	assert.False(t, plain.IsHost())
}

func TestDedupGroup_MemberCount(t *testing.T) {
	g := &DedupGroup{Members: []string{"a.1", "a.2"}}
	assert.Equal(t, 2, g.MemberCount())
}
