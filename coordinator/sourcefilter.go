package coordinator

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aleksip/RecordManager/config"
)

// SourceFilter implements the --source flag's comma-separated
// include/exclude/regex-exclude syntax (spec.md §6, testable property S5:
// `--source "sA,-sB,-/^test_.*/"` includes sA, excludes sB, and excludes
// anything matching the regex).
type SourceFilter struct {
	include      map[string]bool
	excludeExact map[string]bool
	excludeRegex []*regexp.Regexp
}

// ParseSourceFilter parses the --source flag's raw value. An empty or
// blank string returns a nil filter, matching every source.
func ParseSourceFilter(raw string) (*SourceFilter, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}

	f := &SourceFilter{
		include:      make(map[string]bool),
		excludeExact: make(map[string]bool),
	}
	for _, tok := range strings.Split(raw, ",") {
		tok = strings.TrimSpace(tok)
		if tok == "" {
			continue
		}
		if strings.HasPrefix(tok, "-/") && strings.HasSuffix(tok, "/") && len(tok) > 3 {
			pattern := tok[2 : len(tok)-1]
			re, err := regexp.Compile(pattern)
			if err != nil {
				return nil, fmt.Errorf("coordinator: invalid --source regex %q: %w", pattern, err)
			}
			f.excludeRegex = append(f.excludeRegex, re)
			continue
		}
		if strings.HasPrefix(tok, "-") {
			f.excludeExact[strings.TrimPrefix(tok, "-")] = true
			continue
		}
		f.include[tok] = true
	}
	if len(f.include) == 0 && len(f.excludeExact) == 0 && len(f.excludeRegex) == 0 {
		return nil, nil
	}
	return f, nil
}

// Matches reports whether sourceID passes the filter. A nil filter matches
// everything.
func (f *SourceFilter) Matches(sourceID string) bool {
	if f == nil {
		return true
	}
	if f.excludeExact[sourceID] {
		return false
	}
	for _, re := range f.excludeRegex {
		if re.MatchString(sourceID) {
			return false
		}
	}
	if len(f.include) == 0 {
		return true
	}
	return f.include[sourceID]
}

// Literal returns the filter's single plain inclusive source id, and true,
// when it names exactly one source with no excludes — the common case the
// Document Store query can push down directly instead of scanning every
// source and filtering in process.
func (f *SourceFilter) Literal() (string, bool) {
	if f == nil || len(f.include) != 1 || len(f.excludeExact) != 0 || len(f.excludeRegex) != 0 {
		return "", false
	}
	for id := range f.include {
		return id, true
	}
	return "", false
}

// AnyMatchWithDedup reports whether at least one configured data source
// that passes the filter has dedup enabled (spec.md §4.I dedup-stream
// eligibility: "at least one included source has dedup true").
func (f *SourceFilter) AnyMatchWithDedup(dataSources map[string]config.DataSourceSettings) bool {
	for id, ds := range dataSources {
		if f.Matches(id) && ds.Dedup {
			return true
		}
	}
	return false
}
