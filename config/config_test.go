package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const mainINI = `
[Solr]
update_url = http://solr:8983/solr/biblio/update
search_url = http://solr:8983/solr/biblio/select
admin_url = http://solr:8983/solr/admin/collections
max_update_tries = 10
update_retry_wait = 3
max_commit_interval = 500
scored_fields = title,author
merged_fields = author,topic_facet
single_fields = title
journal_formats = Journal
ejournal_formats = eJournal

[Site]
log_level = debug
log_format = json
state_store_url = nats://localhost:4222
`

const dataSourcesINI = `
[acme]
institution = ACME University
componentParts = merge_all
dedup = true
extrafields = collection:main,building:acme

[other]
institution = Other U
componentPartSourceId = acme,missing
`

func writeTempFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoader_Load(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeTempFile(t, dir, "recordmanager.ini", mainINI)
	dsPath := writeTempFile(t, dir, "datasources.ini", dataSourcesINI)

	cfg, err := NewLoader(mainPath, dsPath).Load()
	require.NoError(t, err)

	assert.Equal(t, "http://solr:8983/solr/biblio/update", cfg.Solr.UpdateURL)
	assert.Equal(t, 10, cfg.Solr.MaxUpdateTries)
	assert.Equal(t, 3*time.Second, cfg.Solr.UpdateRetryWait)
	assert.Equal(t, []string{"title", "author"}, cfg.Solr.ScoredFields)
	assert.Equal(t, "json", cfg.Site.LogFormat)
	assert.Equal(t, "nats://localhost:4222", cfg.Site.StateStoreURL)

	acme, ok := cfg.DataSources["acme"]
	require.True(t, ok)
	assert.Equal(t, ComponentPartsMergeAll, acme.ComponentParts)
	assert.True(t, acme.Dedup)
	assert.Equal(t, []string{"main"}, acme.ExtraFields["collection"])
	assert.Equal(t, []string{"acme"}, acme.ExtraFields["building"])
	assert.True(t, acme.IndexMergedParts, "default true per §3")
	assert.True(t, acme.Index, "default true per §3")

	other := cfg.DataSources["other"]
	unresolved := cfg.UnresolvedSourceReferences()
	assert.ElementsMatch(t, []string{"missing"}, unresolved["other"])
	_ = other
}

func TestLoader_Load_MissingUpdateURL(t *testing.T) {
	dir := t.TempDir()
	mainPath := writeTempFile(t, dir, "recordmanager.ini", "[Solr]\nsearch_url = http://solr/select\n")

	_, err := NewLoader(mainPath, "").Load()
	assert.Error(t, err)
}

func TestConfig_Validate_RejectsUnknownComponentParts(t *testing.T) {
	cfg := &Config{
		Solr: GlobalConfig{UpdateURL: "http://solr/update"},
		DataSources: map[string]DataSourceSettings{
			"x": {ComponentParts: "bogus"},
		},
	}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestConfig_Validate_RejectsUnknownInstitutionInBuilding(t *testing.T) {
	cfg := &Config{
		Solr: GlobalConfig{UpdateURL: "http://solr/update"},
		DataSources: map[string]DataSourceSettings{
			"x": {InstitutionInBuilding: "bogus"},
		},
	}
	err := cfg.Validate()
	assert.Error(t, err)
}

func TestSafeConfig_GetReturnsIndependentCopy(t *testing.T) {
	cfg := &Config{
		Solr:        GlobalConfig{UpdateURL: "http://solr/update"},
		DataSources: map[string]DataSourceSettings{},
	}
	sc := NewSafeConfig(cfg)

	snapshot := sc.Get()
	snapshot.Solr.UpdateURL = "mutated"

	fresh := sc.Get()
	assert.Equal(t, "http://solr/update", fresh.Solr.UpdateURL)
}

func TestSafeConfig_UpdateRejectsInvalidConfig(t *testing.T) {
	sc := NewSafeConfig(&Config{Solr: GlobalConfig{UpdateURL: "http://solr/update"}})

	err := sc.Update(&Config{Solr: GlobalConfig{}})
	assert.Error(t, err)

	// original config must still be intact
	assert.Equal(t, "http://solr/update", sc.Get().Solr.UpdateURL)
}

func TestSafeConfig_UpdateAppliesValidConfig(t *testing.T) {
	sc := NewSafeConfig(&Config{Solr: GlobalConfig{UpdateURL: "http://solr/update"}})

	err := sc.Update(&Config{Solr: GlobalConfig{UpdateURL: "http://solr2/update"}})
	require.NoError(t, err)
	assert.Equal(t, "http://solr2/update", sc.Get().Solr.UpdateURL)
}
