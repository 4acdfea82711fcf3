package solrdoc

import (
	"context"
	"fmt"
	"time"

	"github.com/aleksip/RecordManager/config"
	"github.com/aleksip/RecordManager/docstore"
	"github.com/aleksip/RecordManager/mapping"
	"github.com/aleksip/RecordManager/record"
)

// excludedFromAllfields lists the fields allfields synthesis skips (§4.F
// step 8).
var excludedFromAllfields = map[string]bool{
	"fullrecord": true, "thumbnail": true, "id": true,
	"recordtype": true, "record_format": true, "ctrlnum": true,
}

// Builder implements buildDocument (§4.F). One Builder is shared by a
// record-worker pool; BuildDocument itself holds no mutable state, so it's
// safe for concurrent use across workers.
type Builder struct {
	Global config.GlobalConfig
	Mapper *mapping.Mapper
	Bridge *mapping.Bridge
	Store  docstore.Store

	// DriverID is the consortium-level identifier used when a source's
	// institutionInBuilding mode is "driver".
	DriverID string
}

// ErrSkip is returned by BuildDocument when the record should not be indexed
// at all (§4.F step 1).
var ErrSkip = fmt.Errorf("solrdoc: record skipped")

// Result is BuildDocument's successful output.
type Result struct {
	Doc                 Document
	MergedComponentCount int
}

// BuildDocument implements the §4.F contract. dedupGroup is nil for
// records with no dedup group.
func (b *Builder) BuildDocument(
	ctx context.Context,
	src *config.DataSourceSettings,
	rec *record.SourceRecord,
	meta record.MetadataRecord,
	dedupGroup *record.DedupGroup,
) (*Result, error) {
	normForm := Form(b.Global.UnicodeNormalizationForm)
	var warnings []string

	// Step 1: hidden component parts.
	isComponentPart := rec.IsComponentPart()
	if isComponentPart && !src.IndexMergedParts {
		return nil, ErrSkip
	}

	mergedCount := 0
	effectiveDate := rec.Changed

	// Step 2: component-part merge.
	if rec.IsHost() {
		if shouldMergeComponentParts(src.ComponentParts, meta.Format(), b.Global.JournalFormats, b.Global.EJournalFormats) {
			sourceFilter := src.ComponentPartSourceID
			if len(sourceFilter) == 0 {
				sourceFilter = []string{rec.Source}
			}
			parts, err := b.Store.FindComponentParts(ctx, rec.LinkingIDs, sourceFilter)
			if err != nil {
				return nil, err
			}
			if len(parts) > 0 {
				partRecords := make([]record.MetadataRecord, 0, len(parts))
				for _, part := range parts {
					parsed, err := record.NewMetadataRecord(part.Format, part.Raw)
					if err != nil {
						warnings = append(warnings, "component part parse failed for "+part.ID+": "+err.Error())
						continue
					}
					partRecords = append(partRecords, parsed)
				}
				latest, err := meta.MergeComponentParts(partRecords)
				if err != nil {
					warnings = append(warnings, "component part merge failed: "+err.Error())
				} else if latest != "" {
					if t, err := time.Parse(time.RFC3339, latest); err == nil && t.After(effectiveDate) {
						effectiveDate = t
					}
				}
				mergedCount++
			}
		}
	}

	// Step 3: transform (solrTransformation is out of scope's XSLT engine;
	// this builder only supports the native-projection path).
	fields, err := meta.ToSolrArray()
	if err != nil {
		return nil, err
	}
	doc := Document{}
	for k, v := range fields {
		doc.Set(k, v...)
	}
	if err := b.Bridge.Apply(rec.Source, src.Enrichments, meta, doc); err != nil {
		warnings = append(warnings, "enrichment failed: "+err.Error())
	}

	// Step 4: identity and linkage.
	solrID := CreateSolrID(rec.ID, src.IndexUnprefixedIDs)
	doc.Set("id", solrID)

	if dedupGroup != nil && b.Global.DedupIDField != "" {
		doc.Set(b.Global.DedupIDField, dedupGroup.ID)
	}

	if isComponentPart {
		b.applyHierarchy(ctx, rec, meta, doc, &warnings)
	} else {
		for _, field := range []string{b.Global.HierarchyTopIDField, b.Global.IsHierarchyIDField} {
			if field == "" {
				continue
			}
			if values := doc.Get(field); len(values) > 0 {
				out := make([]string, len(values))
				for i, v := range values {
					out[i] = CreateSolrID(v, src.IndexUnprefixedIDs)
				}
				doc.Set(field, out...)
			}
		}
	}

	if mergedCount > 0 {
		if b.Global.IsHierarchyIDField != "" {
			doc.Set(b.Global.IsHierarchyIDField, solrID)
		}
		if b.Global.IsHierarchyTitleField != "" {
			if titles := doc.Get("title"); len(titles) > 0 {
				doc.Set(b.Global.IsHierarchyTitleField, titles[0])
			}
		}
	}

	// Step 5: defaults and extras.
	if !doc.Has("institution") && src.Institution != "" {
		doc.Set("institution", src.Institution)
	}
	for field, values := range src.ExtraFields {
		doc.Add(field, values...)
	}

	// Step 6: building pipeline.
	prefix := BuildingPrefix(src.InstitutionInBuilding, src.Institution, rec.Source, b.DriverID)
	mapBuilding := func() {
		mapped := b.Mapper.MapValues(rec.Source, doc)
		for k, v := range mapped {
			doc[k] = v
		}
	}
	if src.AddInstitutionToBuildingBeforeMapping {
		AddInstitutionToBuilding(doc, prefix)
		mapBuilding()
	} else {
		mapBuilding()
		AddInstitutionToBuilding(doc, prefix)
	}

	// Step 7: hierarchical facet expansion.
	caseSensitive := make(map[string]bool, len(b.Global.HierarchicalFacets))
	for _, facet := range b.Global.HierarchicalFacets {
		caseSensitive[facet] = true
		values := doc.Get(facet)
		var expanded []string
		for _, v := range values {
			expanded = append(expanded, ExpandHierarchicalPath(v)...)
		}
		if expanded != nil {
			doc.Set(facet, expanded...)
		}
	}

	// Step 8: allfields synthesis.
	if !doc.Has("allfields") {
		var all []string
		for field, values := range doc {
			if excludedFromAllfields[field] {
				continue
			}
			all = append(all, values...)
		}
		doc.Set("allfields", dedupePreserveOrder(all, false)...)
	}

	// Step 9: timestamps.
	doc.Set("first_indexed", rec.Created.UTC().Format(time.RFC3339))
	doc.Set("last_indexed", effectiveDate.UTC().Format(time.RFC3339))
	if !doc.Has("fullrecord") {
		doc.Set("fullrecord", string(rec.Raw))
	}

	// Step 10: format in allfields.
	if b.Global.FormatInAllfields {
		for _, f := range doc.Get("format") {
			doc.Add("allfields", FormatInAllfields(f, normForm))
		}
	}

	// Step 11: hidden marker. A component part that passed step 1's skip
	// check (i.e. indexMergedParts is true) is still indexed separately
	// from its host and is marked hidden so display layers can suppress it
	// from top-level result lists.
	if isComponentPart {
		doc.Set("hidden_component_boolean", "true")
	}

	// Step 12: work keys.
	if b.Global.WorkKeysField != "" {
		titles, uniform, altTitles := meta.Titles()
		authors := meta.Authors()
		if len(titles) > 0 && len(authors) > 0 {
			keys := WorkKeys(titles, uniform, altTitles, authors, normForm)
			if len(keys) > 0 {
				doc.Set(b.Global.WorkKeysField, keys...)
			}
		}
	}

	// Step 13: normalization & cleanup.
	NormalizeDocument(doc, normForm)
	doc.DedupeFields(caseSensitive)
	doc.StripEmptyAndZero()

	// Step 14: warnings.
	allWarnings := append(append([]string{}, warnings...), meta.Warnings()...)
	if len(allWarnings) > 0 && b.Global.WarningsField != "" {
		doc.Set(b.Global.WarningsField, allWarnings...)
	}

	return &Result{Doc: doc, MergedComponentCount: mergedCount}, nil
}

// applyHierarchy resolves a component part's host record(s) and sets the
// hierarchy-parent id/title or, if no host is found, falls back to the
// record's own container title (§4.F step 4).
func (b *Builder) applyHierarchy(ctx context.Context, rec *record.SourceRecord, meta record.MetadataRecord, doc Document, warnings *[]string) {
	found := false
	for _, hostID := range rec.HostRecordIDs {
		host, err := b.Store.FindByLinkingID(ctx, hostID)
		if err != nil || host == nil {
			continue
		}
		found = true
		if b.Global.HierarchyParentIDField != "" {
			doc.Add(b.Global.HierarchyParentIDField, host.ID)
		}
		if b.Global.HierarchyParentTitleField != "" {
			doc.Add(b.Global.HierarchyParentTitleField, hostTitle(host))
		}
	}
	if !found {
		*warnings = append(*warnings, "component part host record not found for "+rec.ID)
		if b.Global.ContainerTitleField != "" && !doc.Has(b.Global.ContainerTitleField) {
			if titles := doc.Get("title"); len(titles) > 0 {
				doc.Set(b.Global.ContainerTitleField, titles[0])
			}
		}
	}

	// Always set container volume/issue/start-page/reference from the
	// record itself, whether or not a host record was resolved (§4.F step 4).
	setIfNonEmpty(doc, b.Global.ContainerVolumeField, meta.Volume())
	setIfNonEmpty(doc, b.Global.ContainerIssueField, meta.Issue())
	setIfNonEmpty(doc, b.Global.ContainerStartPageField, meta.StartPage())
	setIfNonEmpty(doc, b.Global.ContainerReferenceField, meta.ContainerReference())
}

func setIfNonEmpty(doc Document, field, value string) {
	if field == "" || value == "" {
		return
	}
	doc.Set(field, value)
}

// hostTitle resolves a host record's title for the hierarchy-parent-title
// field, parsing its raw payload through the format registry. A parse
// failure falls back to the host's id rather than failing the whole build.
func hostTitle(host *record.SourceRecord) string {
	parsed, err := record.NewMetadataRecord(host.Format, host.Raw)
	if err != nil {
		return host.ID
	}
	titles, _, _ := parsed.Titles()
	if len(titles) == 0 {
		return host.ID
	}
	return titles[0]
}

// shouldMergeComponentParts implements §4.F step 2's policy matrix.
func shouldMergeComponentParts(policy, format string, journalFormats, ejournalFormats []string) bool {
	switch policy {
	case config.ComponentPartsMergeAll:
		return true
	case config.ComponentPartsMergeNonEarticles:
		return !contains(ejournalFormats, format)
	default:
		return !contains(journalFormats, format)
	}
}

func contains(list []string, v string) bool {
	for _, item := range list {
		if item == v {
			return true
		}
	}
	return false
}
