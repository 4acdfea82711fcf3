// Package config loads RecordManager's configuration from two ini files —
// the main site/Solr ini and conf/datasources.ini — into a validated,
// concurrency-safe snapshot (§4.J).
//
// # Core Components
//
// Config: the complete configuration tree, holding the Solr section
// (GlobalConfig), the Site/General section (SiteConfig), and the per-source
// settings parsed from datasources.ini (DataSourceSettings, keyed by source
// id).
//
// SafeConfig: a thread-safe wrapper using RWMutex and deep cloning so the
// Indexing Coordinator and worker-pool initializers can share one snapshot
// across goroutines without risk of a concurrent mutation.
//
// Loader: parses both ini files with gopkg.in/ini.v1, applies defaults, and
// validates the result.
//
// # Basic Usage
//
//	loader := config.NewLoader("recordmanager.ini", "conf/datasources.ini")
//	cfg, err := loader.Load()
//	if err != nil {
//		log.Fatal(err)
//	}
//	safeConfig := config.NewSafeConfig(cfg)
//
//	// Elsewhere, read a consistent snapshot:
//	snapshot := safeConfig.Get()
//	fmt.Println(snapshot.Solr.UpdateURL)
//
// # datasources.ini
//
// One section per source id; keys map onto DataSourceSettings fields. List
// values are comma-separated. extrafields entries are "name:value" pairs,
// either repeated ini-style or comma-joined — both forms are accepted.
//
//	[acme]
//	institution = ACME University
//	componentParts = merge_all
//	dedup = true
//	extrafields = collection:main,building:acme
//
// # Main ini
//
// A [Solr] section carries the Global config fields (update_url,
// max_update_tries, scored_fields, etc.), and a [Site] or [General] section
// carries the log level/format and the state-store URL used by the State
// Store (§4.K).
//
//	[Solr]
//	update_url = http://solr:8983/solr/biblio/update
//	max_update_tries = 15
//	update_retry_wait = 5
//
//	[Site]
//	log_level = info
//	state_store_url = nats://localhost:4222
//
// # Validation
//
// Validate rejects a missing update_url, a componentParts value outside
// {as_is, merge_all, merge_non_earticles}, and an institutionInBuilding
// value outside its enum. A componentPartSourceId entry naming a source
// that isn't configured is a warning, surfaced via
// Config.UnresolvedSourceReferences rather than a load failure, since the
// referenced source may simply not be enabled on this deployment.
//
// # Security
//
// Config files are read through safeReadFile, which validates the path
// (length, traversal), rejects files over 10MB, and requires a regular
// file (no symlinks or devices).
package config
