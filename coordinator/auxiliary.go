package coordinator

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"time"

	"github.com/aleksip/RecordManager/docstore"
	"github.com/aleksip/RecordManager/solrdoc"
	"github.com/aleksip/RecordManager/updatebuffer"
)

// CountValues implements spec.md §4.I's auxiliary countValues(sourceId?,
// field, mapped?) operation: iterate non-deleted records, optionally
// restricted to one source, build either the mapped Solr document or the
// record's raw field projection, and tally occurrences of field.
func (c *Coordinator) CountValues(ctx context.Context, sourceID, field string, mapped bool) (map[string]int, error) {
	cursor, err := c.DocStore.FindRecords(ctx, docstore.RecordFilter{SourceID: sourceID})
	if err != nil {
		return nil, fmt.Errorf("coordinator: open countValues cursor: %w", err)
	}
	defer cursor.Close()

	counts := make(map[string]int)
	for cursor.Next(ctx) {
		rec := cursor.Record()

		meta, err := parseMetadata(rec)
		if err != nil {
			c.logger().Warn("countValues: record parse failed", "id", rec.ID, "error", err)
			continue
		}

		var doc map[string][]string
		if mapped {
			src := c.dataSourceFor(rec.Source)
			built, err := c.Builder.BuildDocument(ctx, src, rec, meta, nil)
			if err != nil {
				if err == solrdoc.ErrSkip {
					continue
				}
				c.logger().Warn("countValues: build document failed", "id", rec.ID, "error", err)
				continue
			}
			doc = built.Doc
		} else {
			doc, err = meta.ToSolrArray()
			if err != nil {
				c.logger().Warn("countValues: raw projection failed", "id", rec.ID, "error", err)
				continue
			}
		}

		for _, v := range doc[field] {
			counts[v]++
		}
	}
	if err := cursor.Err(); err != nil {
		return nil, err
	}
	return counts, nil
}

// scanPageSize bounds each cursorMark page of checkIndexedRecords' Solr scroll.
const scanPageSize = 500

// CheckIndexedRecords implements spec.md §4.I's auxiliary checkIndexedRecords()
// operation: scroll the entire Solr index via cursorMark, and for each id
// look up its live source record (or dedup group when record_format=merged),
// deleting any id with no live record. Deletes feed the Update Buffer/Solr
// pool machinery identically to a regular run.
func (c *Coordinator) CheckIndexedRecords(ctx context.Context, opts Options) (Result, error) {
	sink, cleanup, err := c.buildSink(opts)
	if err != nil {
		return Result{}, err
	}
	defer cleanup()

	buffer := &updatebuffer.Buffer{
		MaxRecords:   c.Global.MaxUpdateRecords,
		MaxSizeBytes: c.Global.MaxUpdateSizeKiB * 1024,
		Sink:         sink,
	}

	cursorMark := "*"
	checked := 0
	for {
		query := fmt.Sprintf("q=%s&wt=json&rows=%d&sort=%s&cursorMark=%s",
			url.QueryEscape("*:*"), scanPageSize, url.QueryEscape("id asc"), url.QueryEscape(cursorMark))
		body, err := c.Solr.Search(ctx, query, 0)
		if err != nil {
			return Result{Interrupted: true}, fmt.Errorf("coordinator: checkIndexedRecords scan: %w", err)
		}

		page, err := parseScanPage(body)
		if err != nil {
			return Result{Interrupted: true}, err
		}

		for _, doc := range page.docs {
			live, err := c.recordIsLive(ctx, doc)
			if err != nil {
				return Result{Interrupted: true, UpdatesApplied: c.updatesApplied}, err
			}
			if live {
				continue
			}
			if err := buffer.Delete(doc.id); err != nil {
				return Result{Interrupted: true, UpdatesApplied: c.updatesApplied}, err
			}
			checked++
		}

		if page.nextCursorMark == "" || page.nextCursorMark == cursorMark || len(page.docs) == 0 {
			break
		}
		cursorMark = page.nextCursorMark
	}

	if err := buffer.Flush(); err != nil {
		return Result{Interrupted: true}, fmt.Errorf("coordinator: checkIndexedRecords flush: %w", err)
	}

	applied := c.updatesApplied
	if applied && !opts.NoCommit {
		if err := c.Solr.Commit(ctx, 3600*time.Second); err != nil {
			return Result{Interrupted: true, UpdatesApplied: applied}, fmt.Errorf("coordinator: checkIndexedRecords commit: %w", err)
		}
	}

	c.logger().Info("checkIndexedRecords complete", "deleted", checked)
	return Result{UpdatesApplied: applied}, nil
}

// recordIsLive looks up the source record behind a scanned id — or, when
// the scanned doc is a merged document, the dedup group it represents (per
// §9's resolution: check record_format, else recordtype).
func (c *Coordinator) recordIsLive(ctx context.Context, doc scannedDoc) (bool, error) {
	format := doc.recordFormat
	if format == "" {
		format = doc.recordType
	}

	if format == recordFormatMerged {
		group, err := c.DocStore.GetDedupGroup(ctx, doc.id)
		if err != nil {
			return false, err
		}
		return group != nil && !group.Deleted, nil
	}

	rec, err := c.DocStore.GetRecord(ctx, doc.id)
	if err != nil {
		return false, err
	}
	return rec != nil && !rec.Deleted, nil
}

type scannedDoc struct {
	id           string
	recordFormat string
	recordType   string
}

type scanPage struct {
	docs           []scannedDoc
	nextCursorMark string
}

// parseScanPage extracts ids (plus the fields checkIndexedRecords needs to
// classify them) and the next cursorMark from a Solr select response body.
func parseScanPage(body []byte) (scanPage, error) {
	var parsed struct {
		Response struct {
			Docs []map[string]any `json:"docs"`
		} `json:"response"`
		NextCursorMark string `json:"nextCursorMark"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return scanPage{}, fmt.Errorf("coordinator: parse checkIndexedRecords scan response: %w", err)
	}

	page := scanPage{nextCursorMark: parsed.NextCursorMark}
	for _, raw := range parsed.Response.Docs {
		id, _ := raw["id"].(string)
		if id == "" {
			continue
		}
		page.docs = append(page.docs, scannedDoc{
			id:           id,
			recordFormat: firstString(raw["record_format"]),
			recordType:   firstString(raw["recordtype"]),
		})
	}
	return page, nil
}

func firstString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case []any:
		if len(val) > 0 {
			s, _ := val[0].(string)
			return s
		}
	}
	return ""
}
