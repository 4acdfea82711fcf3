// Package config loads RecordManager's two ini-format configuration files
// (the main site/Solr ini and conf/datasources.ini) into a validated,
// concurrency-safe snapshot.
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"gopkg.in/ini.v1"

	stderrors "github.com/aleksip/RecordManager/errors"
)

// componentParts policy values (§4.F's policy matrix).
const (
	ComponentPartsAsIs              = "as_is"
	ComponentPartsMergeAll          = "merge_all"
	ComponentPartsMergeNonEarticles = "merge_non_earticles"
)

// institutionInBuilding modes.
const (
	InstitutionInBuildingInstitution       = "institution"
	InstitutionInBuildingDriver            = "driver"
	InstitutionInBuildingNone              = "none"
	InstitutionInBuildingSource            = "source"
	InstitutionInBuildingInstitutionSource = "institution/source"
)

var validComponentParts = map[string]bool{
	"":                              true,
	ComponentPartsAsIs:              true,
	ComponentPartsMergeAll:          true,
	ComponentPartsMergeNonEarticles: true,
}

var validInstitutionInBuilding = map[string]bool{
	"":                                      true,
	InstitutionInBuildingInstitution:        true,
	InstitutionInBuildingDriver:             true,
	InstitutionInBuildingNone:               true,
	InstitutionInBuildingSource:             true,
	InstitutionInBuildingInstitutionSource:  true,
}

// DataSourceSettings holds the per-source-id options read from
// conf/datasources.ini (§3 "Data source settings").
type DataSourceSettings struct {
	ID                                     string              `json:"id"`
	Institution                            string              `json:"institution,omitempty"`
	ComponentParts                         string              `json:"componentParts,omitempty"`
	ComponentPartSourceID                  []string            `json:"componentPartSourceId,omitempty"`
	IndexMergedParts                       bool                `json:"indexMergedParts"`
	PreTransformation                      string              `json:"preTransformation,omitempty"`
	Normalization                          string              `json:"normalization,omitempty"`
	SolrTransformation                     string              `json:"solrTransformation,omitempty"`
	IDPrefix                               string              `json:"idPrefix,omitempty"`
	IndexUnprefixedIDs                     bool                `json:"indexUnprefixedIds"`
	Dedup                                  bool                `json:"dedup"`
	Index                                  bool                `json:"index"`
	InstitutionInBuilding                  string              `json:"institutionInBuilding,omitempty"`
	AddInstitutionToBuildingBeforeMapping  bool                `json:"addInstitutionToBuildingBeforeMapping"`
	ExtraFields                            map[string][]string `json:"extrafields,omitempty"`
	Enrichments                            []string            `json:"enrichments,omitempty"`
}

// GlobalConfig holds the [Solr] section of the main ini (§3 "Global config").
type GlobalConfig struct {
	UpdateURL      string `json:"update_url"`
	SearchURL      string `json:"search_url,omitempty"`
	AdminURL       string `json:"admin_url,omitempty"`
	Username       string `json:"username,omitempty"`
	Password       string `json:"password,omitempty"`

	MaxCommitInterval int           `json:"max_commit_interval"`
	MaxUpdateRecords  int           `json:"max_update_records"`
	MaxUpdateSizeKiB  int           `json:"max_update_size"`
	MaxUpdateTries    int           `json:"max_update_tries"`
	UpdateRetryWait   time.Duration `json:"update_retry_wait"`

	// TLS settings for the Solr HTTP client (pkg/tlsutil.ClientTLSConfig).
	// Empty TLSCAFiles and TLSMinVersion fall back to the system CA bundle
	// and TLS 1.2.
	TLSCAFiles            []string `json:"tls_ca_files,omitempty"`
	TLSMinVersion         string   `json:"tls_min_version,omitempty"`
	TLSInsecureSkipVerify bool     `json:"tls_insecure_skip_verify"`

	RecordWorkers              int           `json:"record_workers"`
	SolrUpdateWorkers          int           `json:"solr_update_workers"`
	ThreadedMergedRecordUpdate bool          `json:"threaded_merged_record_update"`
	ClusterStateCheckInterval  time.Duration `json:"cluster_state_check_interval"`
	TrackUpdatesPerUpdateURL   bool          `json:"track_updates_per_update_url"`

	UnicodeNormalizationForm string `json:"unicode_normalization_form"`

	MergedFields         []string `json:"merged_fields,omitempty"`
	SingleFields         []string `json:"single_fields,omitempty"`
	ScoredFields         []string `json:"scored_fields,omitempty"`
	BuildingFields       []string `json:"building_fields,omitempty"`
	HierarchicalFacets   []string `json:"hierarchical_facets,omitempty"`
	CopyFromMergedRecord []string `json:"copy_from_merged_record,omitempty"`
	JournalFormats       []string `json:"journal_formats,omitempty"`
	EJournalFormats      []string `json:"ejournal_formats,omitempty"`
	IgnoreInComparison   []string `json:"ignore_in_comparison,omitempty"`

	WarningsField     string `json:"warnings_field,omitempty"`
	FormatInAllfields bool   `json:"format_in_allfields"`

	DedupIDField              string `json:"dedup_id_field,omitempty"`
	ContainerTitleField       string `json:"container_title_field,omitempty"`
	ContainerVolumeField      string `json:"container_volume_field,omitempty"`
	ContainerIssueField       string `json:"container_issue_field,omitempty"`
	ContainerStartPageField   string `json:"container_start_page_field,omitempty"`
	ContainerReferenceField  string `json:"container_reference_field,omitempty"`
	HierarchyTopIDField       string `json:"hierarchy_top_id_field,omitempty"`
	HierarchyParentIDField    string `json:"hierarchy_parent_id_field,omitempty"`
	HierarchyParentTitleField string `json:"hierarchy_parent_title_field,omitempty"`
	IsHierarchyIDField        string `json:"is_hierarchy_id_field,omitempty"`
	IsHierarchyTitleField     string `json:"is_hierarchy_title_field,omitempty"`
	WorkKeysField             string `json:"work_keys_field,omitempty"`
}

// SiteConfig holds the [Site]/[General] section: logging and the NATS KV URL
// used by the State Store (§4.J, §4.K).
type SiteConfig struct {
	LogLevel      string `json:"log_level,omitempty"`
	LogFormat     string `json:"log_format,omitempty"` // "json" or "text"
	StateStoreURL string `json:"state_store_url,omitempty"`
	// DriverID is the consortium-level identifier substituted into the
	// building field when a source's institutionInBuilding mode is
	// "driver" (solrdoc.Builder.DriverID).
	DriverID string `json:"driver_id,omitempty"`
}

// Config is the complete, immutable configuration tree produced by Load.
type Config struct {
	Solr        GlobalConfig                   `json:"solr"`
	Site        SiteConfig                     `json:"site"`
	DataSources map[string]DataSourceSettings `json:"data_sources"`
}

// SafeConfig provides thread-safe access to configuration, mirroring the
// mutex-guarded-snapshot pattern used throughout RecordManager's components.
type SafeConfig struct {
	mu     sync.RWMutex
	config *Config
}

// NewSafeConfig creates a new thread-safe config wrapper.
func NewSafeConfig(cfg *Config) *SafeConfig {
	if cfg == nil {
		cfg = &Config{DataSources: map[string]DataSourceSettings{}}
	}
	return &SafeConfig{config: cfg}
}

// Get returns a deep copy of the current configuration.
func (sc *SafeConfig) Get() *Config {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.config.Clone()
}

// Update atomically replaces the configuration after validating it.
func (sc *SafeConfig) Update(cfg *Config) error {
	if cfg == nil {
		return stderrors.WrapInvalid(fmt.Errorf("config cannot be nil"),
			"SafeConfig", "Update", "nil config")
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.config = cfg
	return nil
}

// Clone creates a deep copy of the configuration via JSON round-trip.
func (c *Config) Clone() *Config {
	if c == nil {
		return &Config{DataSources: map[string]DataSourceSettings{}}
	}
	data, err := json.Marshal(c)
	if err != nil {
		copied := *c
		return &copied
	}
	var clone Config
	if err := json.Unmarshal(data, &clone); err != nil {
		copied := *c
		return &copied
	}
	return &clone
}

// Validate enforces the fatal rules from §4.J: a missing update_url, an
// out-of-matrix componentParts value, or an out-of-enum
// institutionInBuilding value.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Solr.UpdateURL) == "" {
		return stderrors.WrapInvalid(fmt.Errorf("solr.update_url is required"),
			"Config", "Validate", "missing update_url")
	}

	for id, ds := range c.DataSources {
		if !validComponentParts[ds.ComponentParts] {
			return stderrors.WrapInvalid(
				fmt.Errorf("data source %q: componentParts %q is not one of as_is/merge_all/merge_non_earticles", id, ds.ComponentParts),
				"Config", "Validate", "invalid componentParts")
		}
		if !validInstitutionInBuilding[ds.InstitutionInBuilding] {
			return stderrors.WrapInvalid(
				fmt.Errorf("data source %q: institutionInBuilding %q is not a recognized value", id, ds.InstitutionInBuilding),
				"Config", "Validate", "invalid institutionInBuilding")
		}
	}

	return nil
}

// UnresolvedSourceReferences reports componentPartSourceId entries that name
// a source id not present in DataSources. Per §4.J these are warnings, not
// validation failures, so the caller decides whether/how to log them.
func (c *Config) UnresolvedSourceReferences() map[string][]string {
	unresolved := make(map[string][]string)
	for id, ds := range c.DataSources {
		for _, ref := range ds.ComponentPartSourceID {
			if _, ok := c.DataSources[ref]; !ok {
				unresolved[id] = append(unresolved[id], ref)
			}
		}
	}
	return unresolved
}

// String returns a JSON representation of the config, useful for debug logs.
func (c *Config) String() string {
	data, _ := json.MarshalIndent(c, "", "  ")
	return string(data)
}

// Loader loads and parses the two ini files that make up a RecordManager
// configuration.
type Loader struct {
	mainPath        string
	dataSourcesPath string
}

// NewLoader creates a Loader for the given main ini and datasources ini paths.
func NewLoader(mainPath, dataSourcesPath string) *Loader {
	return &Loader{mainPath: mainPath, dataSourcesPath: dataSourcesPath}
}

// Load parses both ini files, applies defaults, and validates the result.
func (l *Loader) Load() (*Config, error) {
	cfg := defaults()

	if l.mainPath != "" {
		data, err := safeReadFile(l.mainPath)
		if err != nil {
			return nil, stderrors.WrapFatal(err, "Loader", "Load",
				fmt.Sprintf("failed to read %s", l.mainPath))
		}
		mainFile, err := ini.Load(data)
		if err != nil {
			return nil, stderrors.WrapFatal(err, "Loader", "Load",
				fmt.Sprintf("failed to parse %s", l.mainPath))
		}
		if err := applySolrSection(mainFile, &cfg.Solr); err != nil {
			return nil, err
		}
		applySiteSection(mainFile, &cfg.Site)
	}

	if l.dataSourcesPath != "" {
		data, err := safeReadFile(l.dataSourcesPath)
		if err != nil {
			return nil, stderrors.WrapFatal(err, "Loader", "Load",
				fmt.Sprintf("failed to read %s", l.dataSourcesPath))
		}
		dsFile, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, data)
		if err != nil {
			return nil, stderrors.WrapFatal(err, "Loader", "Load",
				fmt.Sprintf("failed to parse %s", l.dataSourcesPath))
		}
		cfg.DataSources = parseDataSources(dsFile)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func defaults() *Config {
	return &Config{
		Solr: GlobalConfig{
			MaxCommitInterval: 1,
			MaxUpdateRecords:  1000,
			MaxUpdateSizeKiB:  1024,
			MaxUpdateTries:    15,
			UpdateRetryWait:   5 * time.Second,
			RecordWorkers:     4,
			SolrUpdateWorkers: 4,
			UnicodeNormalizationForm: "NFKC",
			FormatInAllfields: false,
		},
		Site: SiteConfig{
			LogLevel:  "info",
			LogFormat: "text",
		},
		DataSources: map[string]DataSourceSettings{},
	}
}

func applySolrSection(file *ini.File, g *GlobalConfig) error {
	if !file.HasSection("Solr") {
		return nil
	}
	sec := file.Section("Solr")

	g.UpdateURL = sec.Key("update_url").MustString(g.UpdateURL)
	g.SearchURL = sec.Key("search_url").MustString(g.SearchURL)
	g.AdminURL = sec.Key("admin_url").MustString(g.AdminURL)
	g.Username = sec.Key("username").MustString(g.Username)
	g.Password = sec.Key("password").MustString(g.Password)

	g.MaxCommitInterval = sec.Key("max_commit_interval").MustInt(g.MaxCommitInterval)
	g.MaxUpdateRecords = sec.Key("max_update_records").MustInt(g.MaxUpdateRecords)
	g.MaxUpdateSizeKiB = sec.Key("max_update_size").MustInt(g.MaxUpdateSizeKiB)
	g.MaxUpdateTries = sec.Key("max_update_tries").MustInt(g.MaxUpdateTries)
	g.UpdateRetryWait = time.Duration(sec.Key("update_retry_wait").MustInt(int(g.UpdateRetryWait/time.Second))) * time.Second

	g.TLSCAFiles = splitList(sec.Key("tls_ca_files").String())
	g.TLSMinVersion = sec.Key("tls_min_version").MustString(g.TLSMinVersion)
	g.TLSInsecureSkipVerify = sec.Key("tls_insecure_skip_verify").MustBool(g.TLSInsecureSkipVerify)

	g.RecordWorkers = sec.Key("record_workers").MustInt(g.RecordWorkers)
	g.SolrUpdateWorkers = sec.Key("solr_update_workers").MustInt(g.SolrUpdateWorkers)
	g.ThreadedMergedRecordUpdate = sec.Key("threaded_merged_record_update").MustBool(g.ThreadedMergedRecordUpdate)
	g.ClusterStateCheckInterval = time.Duration(
		sec.Key("cluster_state_check_interval").MustInt(int(g.ClusterStateCheckInterval/time.Second))) * time.Second
	g.TrackUpdatesPerUpdateURL = sec.Key("track_updates_per_update_url").MustBool(g.TrackUpdatesPerUpdateURL)

	g.UnicodeNormalizationForm = sec.Key("unicode_normalization_form").MustString(g.UnicodeNormalizationForm)

	g.MergedFields = splitList(sec.Key("merged_fields").String())
	g.SingleFields = splitList(sec.Key("single_fields").String())
	g.ScoredFields = splitList(sec.Key("scored_fields").String())
	g.BuildingFields = splitList(sec.Key("building_fields").String())
	g.HierarchicalFacets = splitList(sec.Key("hierarchical_facets").String())
	g.CopyFromMergedRecord = splitList(sec.Key("copy_from_merged_record").String())
	g.JournalFormats = splitList(sec.Key("journal_formats").String())
	g.EJournalFormats = splitList(sec.Key("ejournal_formats").String())
	g.IgnoreInComparison = splitList(sec.Key("ignore_in_comparison").String())

	g.WarningsField = sec.Key("warnings_field").MustString(g.WarningsField)
	g.FormatInAllfields = sec.Key("format_in_allfields").MustBool(g.FormatInAllfields)

	g.DedupIDField = sec.Key("dedup_id_field").MustString("dedup_id_str_mv")
	g.ContainerTitleField = sec.Key("container_title_field").MustString("container_title")
	g.ContainerVolumeField = sec.Key("container_volume_field").MustString("container_volume")
	g.ContainerIssueField = sec.Key("container_issue_field").MustString("container_issue")
	g.ContainerStartPageField = sec.Key("container_start_page_field").MustString("container_start_page")
	g.ContainerReferenceField = sec.Key("container_reference_field").MustString("container_reference")
	g.HierarchyTopIDField = sec.Key("hierarchy_top_id_field").MustString("hierarchy_top_id")
	g.HierarchyParentIDField = sec.Key("hierarchy_parent_id_field").MustString("hierarchy_parent_id")
	g.HierarchyParentTitleField = sec.Key("hierarchy_parent_title_field").MustString("hierarchy_parent_title")
	g.IsHierarchyIDField = sec.Key("is_hierarchy_id_field").MustString("is_hierarchy_id")
	g.IsHierarchyTitleField = sec.Key("is_hierarchy_title_field").MustString("is_hierarchy_title")
	g.WorkKeysField = sec.Key("work_keys_field").MustString("work_keys_str_mv")

	return nil
}

func applySiteSection(file *ini.File, s *SiteConfig) {
	for _, name := range []string{"Site", "General"} {
		if !file.HasSection(name) {
			continue
		}
		sec := file.Section(name)
		s.LogLevel = sec.Key("log_level").MustString(s.LogLevel)
		s.LogFormat = sec.Key("log_format").MustString(s.LogFormat)
		s.StateStoreURL = sec.Key("state_store_url").MustString(s.StateStoreURL)
		s.DriverID = sec.Key("driver_id").MustString(s.DriverID)
	}
}

// parseDataSources converts each ini section (other than DEFAULT) into a
// DataSourceSettings keyed by section name (the source id).
func parseDataSources(file *ini.File) map[string]DataSourceSettings {
	out := make(map[string]DataSourceSettings)

	for _, sec := range file.Sections() {
		if sec.Name() == ini.DefaultSection {
			continue
		}

		ds := DataSourceSettings{
			ID:                                    sec.Name(),
			Institution:                           sec.Key("institution").String(),
			ComponentParts:                         sec.Key("componentParts").String(),
			ComponentPartSourceID:                  splitList(sec.Key("componentPartSourceId").String()),
			IndexMergedParts:                       sec.Key("indexMergedParts").MustBool(true),
			PreTransformation:                      sec.Key("preTransformation").String(),
			Normalization:                          sec.Key("normalization").String(),
			SolrTransformation:                      sec.Key("solrTransformation").String(),
			IDPrefix:                               sec.Key("idPrefix").MustString(sec.Name()),
			IndexUnprefixedIDs:                      sec.Key("indexUnprefixedIds").MustBool(false),
			Dedup:                                   sec.Key("dedup").MustBool(false),
			Index:                                   sec.Key("index").MustBool(true),
			InstitutionInBuilding:                   sec.Key("institutionInBuilding").String(),
			AddInstitutionToBuildingBeforeMapping:   sec.Key("addInstitutionToBuildingBeforeMapping").MustBool(false),
			Enrichments:                             splitList(sec.Key("enrichments").String()),
		}

		ds.ExtraFields = parseExtraFields(sec)

		out[sec.Name()] = ds
	}

	return out
}

// parseExtraFields accepts either repeated "extrafields" keys (ini-style
// repetition) or a single comma-joined value, each entry "name:value".
func parseExtraFields(sec *ini.Section) map[string][]string {
	fields := make(map[string][]string)
	if !sec.HasKey("extrafields") {
		return fields
	}

	var entries []string
	key := sec.Key("extrafields")
	if vals := key.ValueWithShadows(); len(vals) > 1 {
		entries = vals
	} else {
		entries = splitList(key.String())
	}

	for _, entry := range entries {
		parts := strings.SplitN(entry, ":", 2)
		if len(parts) != 2 {
			continue
		}
		name := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])
		fields[name] = append(fields[name], value)
	}

	return fields
}

func splitList(raw string) []string {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
