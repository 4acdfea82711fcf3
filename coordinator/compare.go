package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/url"
	"os"
	"sort"
	"strings"

	"github.com/aleksip/RecordManager/config"
)

// fixedCompareExclusions are always excluded from compare-mode diffs,
// alongside whatever ignore_in_comparison configures (spec.md §4.I).
var fixedCompareExclusions = map[string]bool{
	"allfields":     true,
	"first_indexed": true,
	"last_indexed":  true,
	"_version_":     true,
	"fullrecord":    true,
}

func excludedFromCompare(field string, ignore []string) bool {
	if fixedCompareExclusions[field] {
		return true
	}
	if strings.HasSuffix(field, "_unstemmed") || strings.HasPrefix(field, "spelling") || strings.HasSuffix(field, "Str") {
		return true
	}
	for _, f := range ignore {
		if f == field {
			return true
		}
	}
	return false
}

// compareOutput is where compareWithSolrRecord writes its diff lines.
// Defaults to os.Stdout; tests substitute a buffer. The CLI substitutes a
// file when --compare names a path other than "-".
var compareOutput io.Writer = os.Stdout

// SetCompareOutput redirects compare mode's diff output, used by the CLI to
// honor `--compare <path|->` (a path writes to that file; "-" keeps
// stdout).
func SetCompareOutput(w io.Writer) {
	compareOutput = w
}

// compareWithSolrRecord implements spec.md §4.I's compare mode: fetch the
// existing indexed document by id and print a per-field textual diff
// against the freshly built one.
func (c *Coordinator) compareWithSolrRecord(ctx context.Context, id string, fresh map[string][]string, ignore []string) error {
	query := "q=" + url.QueryEscape("id:"+id) + "&wt=json&rows=1"
	body, err := c.Solr.Search(ctx, query, 0)
	if err != nil {
		return err
	}

	existing, err := firstSearchDoc(body)
	if err != nil {
		return err
	}

	fields := make(map[string]bool)
	for f := range existing {
		fields[f] = true
	}
	for f := range fresh {
		fields[f] = true
	}

	names := make([]string, 0, len(fields))
	for f := range fields {
		if excludedFromCompare(f, ignore) {
			continue
		}
		names = append(names, f)
	}
	sort.Strings(names)

	for _, f := range names {
		oldVal := existing[f]
		newVal := fresh[f]
		if stringsEqual(oldVal, newVal) {
			continue
		}
		fmt.Fprintf(compareOutput, "%s %s:\n--- %v\n+++ %v\n", id, f, oldVal, newVal)
	}
	return nil
}

func stringsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// firstSearchDoc extracts the first document's fields from a Solr select
// response body, or an empty map if none matched.
func firstSearchDoc(body []byte) (map[string][]string, error) {
	var parsed struct {
		Response struct {
			Docs []map[string]any `json:"docs"`
		} `json:"response"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return nil, fmt.Errorf("coordinator: parse compare search response: %w", err)
	}
	if len(parsed.Response.Docs) == 0 {
		return map[string][]string{}, nil
	}
	out := make(map[string][]string, len(parsed.Response.Docs[0]))
	for field, v := range parsed.Response.Docs[0] {
		out[field] = toStringSlice(v)
	}
	return out, nil
}

func toStringSlice(v any) []string {
	switch val := v.(type) {
	case []any:
		out := make([]string, 0, len(val))
		for _, item := range val {
			out = append(out, fmt.Sprintf("%v", item))
		}
		return out
	default:
		return []string{fmt.Sprintf("%v", val)}
	}
}

// ignoreInComparison resolves the configured exclusion list from the
// global Solr settings.
func ignoreInComparison(global config.GlobalConfig) []string {
	return global.IgnoreInComparison
}
