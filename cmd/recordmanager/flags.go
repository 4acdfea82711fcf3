package main

import (
	"flag"
	"fmt"
	"os"
	"time"
)

// CLIConfig holds the parsed command-line configuration (spec.md §6 "CLI
// surface").
type CLIConfig struct {
	ConfigPath      string
	DataSourcesPath string
	LogLevel        string
	LogFormat       string

	From          string
	Source        string
	Single        string
	NoCommit      bool
	Delete        bool
	DeleteSource  string
	Compare       string
	DumpPrefix    string
	DatePerServer bool

	// MergedStreamWorker is the hidden flag a sibling-process child
	// recognizes to run only the merged-record stream and exit, rather
	// than the full updateRecords operation (coordinator.MergedStreamFlag,
	// spec.md §5).
	MergedStreamWorker bool

	// CheckIndexedRecords runs the auxiliary checkIndexedRecords() scan
	// instead of updateRecords (spec.md §4.I "Auxiliary").
	CheckIndexedRecords bool

	// CountValuesField, non-empty, runs the auxiliary countValues() tally
	// instead of updateRecords, restricted to CountValuesSource if set.
	CountValuesField  string
	CountValuesSource string
	CountValuesMapped bool

	ShowVersion bool
	ShowHelp    bool
}

func parseFlags() *CLIConfig {
	cfg := &CLIConfig{}

	flag.StringVar(&cfg.ConfigPath, "config",
		getEnv("RECORDMANAGER_CONFIG", "conf/recordmanager.ini"),
		"Path to the main Solr/site configuration ini (env: RECORDMANAGER_CONFIG)")
	flag.StringVar(&cfg.DataSourcesPath, "datasources",
		getEnv("RECORDMANAGER_DATASOURCES", "conf/datasources.ini"),
		"Path to the data source settings ini (env: RECORDMANAGER_DATASOURCES)")

	flag.StringVar(&cfg.LogLevel, "log-level",
		getEnv("RECORDMANAGER_LOG_LEVEL", "info"),
		"Log level: debug, info, warn, error (env: RECORDMANAGER_LOG_LEVEL)")
	flag.StringVar(&cfg.LogFormat, "log-format",
		getEnv("RECORDMANAGER_LOG_FORMAT", "json"),
		"Log format: json, text (env: RECORDMANAGER_LOG_FORMAT)")

	flag.StringVar(&cfg.From, "from", "", "Only process records changed since this RFC3339 timestamp")
	flag.StringVar(&cfg.Source, "source", "",
		`Source filter: comma-separated; "-name" excludes, "-/regex/" excludes by regex`)
	flag.StringVar(&cfg.Single, "single", "", "Process exactly one record id")
	flag.BoolVar(&cfg.NoCommit, "no-commit", false, "Skip periodic and final Solr commits")
	flag.BoolVar(&cfg.Delete, "delete", false,
		"Within the merged stream, also delete dedup-group members whose source matches --source")
	flag.StringVar(&cfg.DeleteSource, "delete-source", "",
		"Delete every document for this source id by query, with no record iteration, then exit")
	flag.StringVar(&cfg.Compare, "compare", "",
		`Diff freshly built documents against the indexed ones instead of updating; "-" writes to stdout`)
	flag.StringVar(&cfg.DumpPrefix, "dump-prefix", "",
		"Write update batches to <prefix>-<N>.json instead of Solr")
	flag.BoolVar(&cfg.DatePerServer, "date-per-server", false,
		"Use a checkpoint key suffixed by update_url instead of one shared key")

	flag.BoolVar(&cfg.MergedStreamWorker, "merged-stream-worker", false,
		"internal: run only the merged-record stream as a forked child, then exit")

	flag.BoolVar(&cfg.CheckIndexedRecords, "check-indexed-records", false,
		"Scroll the Solr index and delete ids with no live source record or dedup group, then exit")
	flag.StringVar(&cfg.CountValuesField, "count-values", "",
		"Tally occurrences of this field across records instead of updating, then exit")
	flag.StringVar(&cfg.CountValuesSource, "count-values-source", "",
		"Restrict --count-values to one source id")
	flag.BoolVar(&cfg.CountValuesMapped, "count-values-mapped", false,
		"Tally against the mapped Solr document instead of the record's raw field projection")

	flag.BoolVar(&cfg.ShowVersion, "version", false, "Show version information")
	flag.BoolVar(&cfg.ShowHelp, "help", false, "Show help information")

	flag.Usage = printHelp
	flag.Parse()

	return cfg
}

func validateFlags(cfg *CLIConfig) error {
	if cfg.ShowVersion || cfg.ShowHelp {
		return nil
	}
	if cfg.From != "" {
		if _, err := time.Parse(time.RFC3339, cfg.From); err != nil {
			return fmt.Errorf("invalid --from %q: %w", cfg.From, err)
		}
	}
	if cfg.Single != "" && cfg.DeleteSource != "" {
		return fmt.Errorf("--single and --delete-source are mutually exclusive")
	}
	auxModes := 0
	if cfg.CheckIndexedRecords {
		auxModes++
	}
	if cfg.CountValuesField != "" {
		auxModes++
	}
	if auxModes > 1 {
		return fmt.Errorf("--check-indexed-records and --count-values are mutually exclusive")
	}
	if auxModes > 0 && (cfg.Single != "" || cfg.DeleteSource != "") {
		return fmt.Errorf("--check-indexed-records and --count-values cannot combine with --single or --delete-source")
	}
	if cfg.CountValuesSource != "" && cfg.CountValuesField == "" {
		return fmt.Errorf("--count-values-source requires --count-values")
	}
	if cfg.CountValuesMapped && cfg.CountValuesField == "" {
		return fmt.Errorf("--count-values-mapped requires --count-values")
	}
	validLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLevels[cfg.LogLevel] {
		return fmt.Errorf("invalid --log-level: %s", cfg.LogLevel)
	}
	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[cfg.LogFormat] {
		return fmt.Errorf("invalid --log-format: %s", cfg.LogFormat)
	}
	return nil
}

func printHelp() {
	_, _ = fmt.Fprintf(os.Stderr, `%s - bibliographic record indexing pipeline

Usage: %s [options]

Options:
`, appName, os.Args[0])
	flag.PrintDefaults()
	_, _ = fmt.Fprintf(os.Stderr, `
Examples:
  # Full-scope run against the configured data sources
  %s --config=conf/recordmanager.ini

  # Reindex one source since a checkpoint
  %s --source=acme --from=2026-01-01T00:00:00Z

  # Diff what would be indexed against what's already in Solr
  %s --compare=-

Version: %s
`, os.Args[0], os.Args[0], os.Args[0], Version)
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}
