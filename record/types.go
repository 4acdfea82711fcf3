package record

import "time"

// SourceRecord is one per-source bibliographic record as read from the
// document store (§3). It either belongs to exactly one dedup group or to
// none — DedupID is empty in the latter case.
type SourceRecord struct {
	ID   string // "source.localId" form
	Source string
	Format string // metadata format tag, e.g. "MarcXML"
	Raw    []byte // original payload, typically XML

	LinkingIDs     []string // ids used to find component-part host records
	HostRecordIDs  []string // host-record linking ids, if this is a component part
	Deleted        bool
	Created        time.Time
	Changed        time.Time
	DedupID        string // back-pointer to the owning dedup group, if any
}

// IsComponentPart reports whether this record has a host record, per §4.F
// step 4's "component part" classification.
func (r *SourceRecord) IsComponentPart() bool {
	return len(r.HostRecordIDs) > 0
}

// IsHost reports whether this record could itself own component parts: no
// host-record id of its own, but at least one linking id other records
// could point back to.
func (r *SourceRecord) IsHost() bool {
	return len(r.HostRecordIDs) == 0 && len(r.LinkingIDs) > 0
}

// DedupGroup is a deduplication cluster of SourceRecord ids (§3). Groups
// with >=2 active members produce a merged document plus N child documents;
// groups with exactly 1 active member produce one document and the group id
// is scheduled for deletion from the index (§8 invariant 2/3).
type DedupGroup struct {
	ID      string
	Members []string // ordered member record ids
	Deleted bool
	Changed time.Time
}

// MemberCount returns the number of member ids recorded on the group.
// Per-member deletion state lives in the document store, not here, so
// callers needing the *active* count resolve membership separately.
func (g *DedupGroup) MemberCount() int {
	return len(g.Members)
}
