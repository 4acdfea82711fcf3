package record

// MetadataRecord is the external collaborator that knows how to read one
// metadata format (MARC, Dublin Core, ...) and expose the fields the Solr
// Document Builder needs. Implementations live in record-parser packages
// that are out of scope (§1) — this package only specifies the contract
// they register against.
type MetadataRecord interface {
	// ID returns the record's natural identifier within its source.
	ID() string

	// Format returns the metadata format tag this record was parsed as.
	Format() string

	// ToSolrArray returns the record's native field-by-field projection,
	// used when no solrTransformation stylesheet is configured (§4.F step 3).
	ToSolrArray() (map[string][]string, error)

	// Titles returns the record's titles: the primary/uniform title set and
	// any alternate-script titles, used for work-key synthesis (§4.F step 12).
	Titles() (titles []string, uniform bool, altScript []string)

	// Authors returns the record's author name forms, used alongside Titles
	// for work-key synthesis.
	Authors() []string

	// MergeComponentParts fuses the given component-part records into this
	// host record's representation and reports the latest change date found
	// among them (§4.F step 2).
	MergeComponentParts(parts []MetadataRecord) (latestChange string, err error)

	// Volume, Issue, StartPage, and ContainerReference return the record's
	// own container linkage fields, always copied onto a component part's
	// document regardless of whether its host record was resolvable
	// (§4.F step 4, §9 interface list: getVolume/getIssue/getStartPage/
	// getContainerReference). Empty string if the format has no such field.
	Volume() string
	Issue() string
	StartPage() string
	ContainerReference() string

	// Warnings returns any warnings the parser accumulated while reading the
	// record (malformed subfields, missing expected elements, ...), surfaced
	// on the output document if warnings_field is configured (§4.F step 14).
	Warnings() []string
}

// Constructor builds a MetadataRecord from a record's raw payload.
type Constructor func(raw []byte) (MetadataRecord, error)
