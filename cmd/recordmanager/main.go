// Package main implements the entry point for RecordManager: the
// bibliographic record indexing pipeline that projects normalized document
// store records into a Solr-compatible search index (spec.md §6 "CLI
// surface").
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/aleksip/RecordManager/config"
	"github.com/aleksip/RecordManager/coordinator"
	"github.com/aleksip/RecordManager/docstore"
	"github.com/aleksip/RecordManager/mapping"
	"github.com/aleksip/RecordManager/merge"
	"github.com/aleksip/RecordManager/metric"
	"github.com/aleksip/RecordManager/pkg/tlsutil"
	"github.com/aleksip/RecordManager/pkg/worker"
	"github.com/aleksip/RecordManager/queue"
	"github.com/aleksip/RecordManager/solrclient"
	"github.com/aleksip/RecordManager/solrdoc"
	"github.com/aleksip/RecordManager/statestore"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "recordmanager"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	os.Exit(run())
}

// run returns the process exit code directly (spec.md §6: 0 success,
// 1 interrupted/partial-and-committable, 2 fatal error) instead of an
// error, since the three-way outcome doesn't collapse cleanly onto Go's
// error/no-error convention.
func run() int {
	cliCfg := parseFlags()

	if cliCfg.ShowVersion {
		fmt.Printf("%s version %s\n", appName, Version)
		return 0
	}
	if cliCfg.ShowHelp {
		printHelp()
		return 0
	}
	if err := validateFlags(cliCfg); err != nil {
		_, _ = fmt.Fprintf(os.Stderr, "%s: %v\n", appName, err)
		return 2
	}

	logger := setupLogger(cliCfg.LogLevel, cliCfg.LogFormat)
	slog.SetDefault(logger)

	cfg, err := config.NewLoader(cliCfg.ConfigPath, cliCfg.DataSourcesPath).Load()
	if err != nil {
		logger.Error("load configuration", "error", err)
		return 2
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	coord, cleanup, err := buildCoordinator(ctx, cfg, cliCfg, logger)
	if err != nil {
		logger.Error("build coordinator", "error", err)
		return 2
	}
	defer cleanup()

	opts, err := optionsFromFlags(cliCfg)
	if err != nil {
		logger.Error("parse options", "error", err)
		return 2
	}

	if cliCfg.DeleteSource != "" {
		if err := coord.DeleteSource(ctx, cliCfg.DeleteSource); err != nil {
			logger.Error("delete source", "source", cliCfg.DeleteSource, "error", err)
			return 2
		}
		logger.Info("deleted source", "source", cliCfg.DeleteSource)
		return 0
	}

	if cliCfg.CountValuesField != "" {
		counts, err := coord.CountValues(ctx, cliCfg.CountValuesSource, cliCfg.CountValuesField, cliCfg.CountValuesMapped)
		if err != nil {
			logger.Error("count values", "field", cliCfg.CountValuesField, "error", err)
			return 2
		}
		for value, n := range counts {
			fmt.Printf("%d\t%s\n", n, value)
		}
		return 0
	}

	if cliCfg.CheckIndexedRecords {
		result, err := coord.CheckIndexedRecords(ctx, opts)
		if err != nil {
			logger.Error("check indexed records", "error", err)
		}
		return exitCode(result, err)
	}

	if cliCfg.Compare != "" {
		compareFile, closeCompare, err := openCompareOutput(cliCfg.Compare)
		if err != nil {
			logger.Error("open --compare destination", "error", err)
			return 2
		}
		defer closeCompare()
		coordinator.SetCompareOutput(compareFile)
	}

	if cliCfg.MergedStreamWorker {
		// The parent reads this exit code: 0 nothing updated, 1 updates
		// applied, 2 failure.
		result, err := coord.RunMergedStreamOnly(ctx, opts)
		if err != nil {
			logger.Error("merged-stream worker", "error", err)
			return 2
		}
		if result.UpdatesApplied {
			return 1
		}
		return 0
	}

	result, err := coord.UpdateRecords(ctx, opts)
	if err != nil {
		logger.Error("update records", "error", err)
	}
	return exitCode(result, err)
}

func exitCode(result coordinator.Result, err error) int {
	switch {
	case err != nil && !result.Interrupted:
		return 2
	case err != nil || result.Interrupted:
		return 1
	default:
		return 0
	}
}

func openCompareOutput(path string) (*os.File, func(), error) {
	if path == "-" {
		return os.Stdout, func() {}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, func() {}, err
	}
	return f, func() { _ = f.Close() }, nil
}

// optionsFromFlags translates CLIConfig into coordinator.Options,
// resolving the --source flag into either a query-pushdown SourceID (a
// single plain inclusion) or a post-filter SourceFilter (spec.md §6,
// testable property S5).
func optionsFromFlags(cfg *CLIConfig) (coordinator.Options, error) {
	opts := coordinator.Options{
		SingleID:      cfg.Single,
		NoCommit:      cfg.NoCommit,
		Delete:        cfg.Delete,
		Compare:       cfg.Compare,
		DumpPrefix:    cfg.DumpPrefix,
		DatePerServer: cfg.DatePerServer,
		SourceRaw:     cfg.Source,
	}

	if cfg.From != "" {
		t, err := time.Parse(time.RFC3339, cfg.From)
		if err != nil {
			return opts, fmt.Errorf("invalid --from: %w", err)
		}
		opts.FromDate = &t
	}

	if cfg.Source != "" {
		filter, err := coordinator.ParseSourceFilter(cfg.Source)
		if err != nil {
			return opts, err
		}
		if literal, ok := filter.Literal(); ok {
			opts.SourceID = literal
		} else {
			opts.SourceFilter = filter
		}
	}

	return opts, nil
}

// buildCoordinator wires components A–H into a Coordinator the way
// cmd/semstreams/main.go wires its service dependencies: connect durable
// state, construct the domain stack from config, then assemble.
func buildCoordinator(ctx context.Context, cfg *config.Config, cliCfg *CLIConfig, logger *slog.Logger) (*coordinator.Coordinator, func(), error) {
	stateStore, err := statestore.Connect(ctx, cfg.Site.StateStoreURL, "")
	if err != nil {
		return nil, func() {}, fmt.Errorf("connect state store: %w", err)
	}
	cleanup := func() { stateStore.Close() }

	// The document store is an external collaborator interface (spec.md
	// §1 "out of scope"); a production deployment supplies its own
	// docstore.Store-backed implementation here. MemStore keeps the CLI
	// runnable end to end against the documented contract in its absence.
	store := docstore.NewMemStore()

	monitor := &solrclient.Monitor{
		AdminURL:      cfg.Solr.AdminURL,
		CheckInterval: cfg.Solr.ClusterStateCheckInterval,
	}
	solrClient := &solrclient.Client{
		UpdateURL: cfg.Solr.UpdateURL,
		SearchURL: cfg.Solr.SearchURL,
		Username:  cfg.Solr.Username,
		Password:  cfg.Solr.Password,
		MaxTries:  maxInt(cfg.Solr.MaxUpdateTries, 1),
		RetryWait: cfg.Solr.UpdateRetryWait,
		Monitor:   monitor,
	}

	// Only build a custom transport when TLS settings were actually
	// configured; otherwise leave HTTPClient nil so solrclient falls back to
	// its own default.
	if len(cfg.Solr.TLSCAFiles) > 0 || cfg.Solr.TLSMinVersion != "" || cfg.Solr.TLSInsecureSkipVerify {
		tlsConfig, err := tlsutil.LoadClientTLSConfig(tlsutil.ClientTLSConfig{
			CAFiles:            cfg.Solr.TLSCAFiles,
			MinVersion:         cfg.Solr.TLSMinVersion,
			InsecureSkipVerify: cfg.Solr.TLSInsecureSkipVerify,
		})
		if err != nil {
			return nil, cleanup, fmt.Errorf("load Solr TLS config: %w", err)
		}
		solrClient.HTTPClient = &http.Client{
			Transport: &http.Transport{TLSClientConfig: tlsConfig},
		}
	}

	builder := &solrdoc.Builder{
		Global:   cfg.Solr,
		Mapper:   mapping.NewMapper(nil, nil),
		Bridge:   mapping.NewBridge(nil, nil),
		Store:    store,
		DriverID: cfg.Site.DriverID,
	}

	mergeOpts := merge.Options{
		ScoredFields:         cfg.Solr.ScoredFields,
		MergedFields:         cfg.Solr.MergedFields,
		SingleFields:         cfg.Solr.SingleFields,
		HierarchicalFacets:   cfg.Solr.HierarchicalFacets,
		CopyFromMergedRecord: cfg.Solr.CopyFromMergedRecord,
	}

	workers := worker.NewManager(metric.NewMetricsRegistry())

	queueManager := &queue.Manager{
		Store: store,
		State: stateStore,
		Warn:  func(msg string) { logger.Warn(msg) },
	}

	coord := &coordinator.Coordinator{
		Global:      cfg.Solr,
		DataSources: cfg.DataSources,
		DocStore:    store,
		Checkpoints: stateStore,
		Queue:       queueManager,
		Builder:     builder,
		MergeOpts:   mergeOpts,
		Solr:        solrClient,
		Workers:     workers,
		Logger:      logger,
	}

	if cfg.Solr.ThreadedMergedRecordUpdate && !cliCfg.MergedStreamWorker {
		coord.Forker = &coordinator.ExecForker{
			Args: []string{
				"--config", cliCfg.ConfigPath,
				"--datasources", cliCfg.DataSourcesPath,
				"--log-level", cliCfg.LogLevel,
				"--log-format", cliCfg.LogFormat,
			},
		}
	}

	return coord, cleanup, nil
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
