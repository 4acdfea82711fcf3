package solrdoc

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aleksip/RecordManager/config"
	"github.com/aleksip/RecordManager/docstore"
	"github.com/aleksip/RecordManager/mapping"
	"github.com/aleksip/RecordManager/record"
)

type fakeMeta struct {
	id     string
	format string
	title  string

	volume, issue, startPage, containerRef string
}

func (f *fakeMeta) ID() string     { return f.id }
func (f *fakeMeta) Format() string { return f.format }
func (f *fakeMeta) ToSolrArray() (map[string][]string, error) {
	return map[string][]string{
		"title":         {f.title},
		"record_format": {f.format},
		"format":        {f.format},
	}, nil
}
func (f *fakeMeta) Titles() ([]string, bool, []string) { return []string{f.title}, false, nil }
func (f *fakeMeta) Authors() []string                  { return nil }
func (f *fakeMeta) MergeComponentParts([]record.MetadataRecord) (string, error) {
	return "", nil
}
func (f *fakeMeta) Warnings() []string           { return nil }
func (f *fakeMeta) Volume() string               { return f.volume }
func (f *fakeMeta) Issue() string                { return f.issue }
func (f *fakeMeta) StartPage() string             { return f.startPage }
func (f *fakeMeta) ContainerReference() string    { return f.containerRef }

func newTestBuilder(store docstore.Store) *Builder {
	return &Builder{
		Global: config.GlobalConfig{UnicodeNormalizationForm: "NFKC"},
		Mapper: mapping.NewMapper(nil, nil),
		Bridge: mapping.NewBridge(nil, nil),
		Store:  store,
	}
}

func TestBuildDocument_S1_SimpleRecordNoDedup(t *testing.T) {
	src := &config.DataSourceSettings{IndexMergedParts: true, Index: true}
	rec := &record.SourceRecord{
		ID: "src1.001", Source: "src1",
		Created: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		Changed: time.Date(2026, 1, 2, 0, 0, 0, 0, time.UTC),
	}
	meta := &fakeMeta{id: "001", format: "Book", title: "Hello World"}

	b := newTestBuilder(docstore.NewMemStore())
	result, err := b.BuildDocument(context.Background(), src, rec, meta, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"src1.001"}, result.Doc.Get("id"))
	assert.Contains(t, result.Doc.Get("allfields"), "Hello World")
	assert.NotEmpty(t, result.Doc.Get("first_indexed"))
	assert.NotEmpty(t, result.Doc.Get("last_indexed"))
	assert.Equal(t, 0, result.MergedComponentCount)
}

func TestBuildDocument_SkipsHiddenComponentPartWhenNotIndexingMergedParts(t *testing.T) {
	src := &config.DataSourceSettings{IndexMergedParts: false}
	rec := &record.SourceRecord{
		ID: "src1.002", Source: "src1",
		HostRecordIDs: []string{"src1.host"},
	}
	meta := &fakeMeta{id: "002", format: "Article", title: "A Chapter"}

	b := newTestBuilder(docstore.NewMemStore())
	_, err := b.BuildDocument(context.Background(), src, rec, meta, nil)
	assert.ErrorIs(t, err, ErrSkip)
}

func TestBuildDocument_SetsDedupIDFieldWhenGroupGiven(t *testing.T) {
	src := &config.DataSourceSettings{IndexMergedParts: true}
	b := newTestBuilder(docstore.NewMemStore())
	b.Global.DedupIDField = "dedup_id_str_mv"

	rec := &record.SourceRecord{ID: "src1.003", Source: "src1"}
	meta := &fakeMeta{id: "003", format: "Book", title: "Grouped Work"}
	group := &record.DedupGroup{ID: "D1"}

	result, err := b.BuildDocument(context.Background(), src, rec, meta, group)
	require.NoError(t, err)
	assert.Equal(t, []string{"D1"}, result.Doc.Get("dedup_id_str_mv"))
}

func TestBuildDocument_ComponentPart_AlwaysSetsContainerFieldsFromRecord(t *testing.T) {
	src := &config.DataSourceSettings{IndexMergedParts: true}
	b := newTestBuilder(docstore.NewMemStore())
	b.Global.ContainerVolumeField = "container_volume"
	b.Global.ContainerIssueField = "container_issue"
	b.Global.ContainerStartPageField = "container_start_page"
	b.Global.ContainerReferenceField = "container_reference"

	rec := &record.SourceRecord{
		ID: "src1.005", Source: "src1",
		HostRecordIDs: []string{"src1.host"}, // no such host exists in the store
	}
	meta := &fakeMeta{
		id: "005", format: "Article", title: "A Chapter",
		volume: "12", issue: "3", startPage: "45", containerRef: "Some Journal 12(3), 45",
	}

	result, err := b.BuildDocument(context.Background(), src, rec, meta, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"12"}, result.Doc.Get("container_volume"))
	assert.Equal(t, []string{"3"}, result.Doc.Get("container_issue"))
	assert.Equal(t, []string{"45"}, result.Doc.Get("container_start_page"))
	assert.Equal(t, []string{"Some Journal 12(3), 45"}, result.Doc.Get("container_reference"))
}

func TestBuildDocument_StripsEmptyAndZeroValues(t *testing.T) {
	src := &config.DataSourceSettings{IndexMergedParts: true}
	b := newTestBuilder(docstore.NewMemStore())

	rec := &record.SourceRecord{ID: "src1.004", Source: "src1"}
	meta := &fakeMeta{id: "004", format: "Book", title: "Zero Test"}

	result, err := b.BuildDocument(context.Background(), src, rec, meta, nil)
	require.NoError(t, err)
	for _, values := range result.Doc {
		for _, v := range values {
			assert.NotEqual(t, "0", v)
			assert.NotEqual(t, "", v)
		}
	}
}
