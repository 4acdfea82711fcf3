package mapping

// ValueMap maps a field's raw value to its mapped display value, e.g.
// format codes to human-readable labels loaded from a mapping file (§1
// "field value mapping files" are out of scope; this type is the in-scope
// shape they're loaded into).
type ValueMap map[string]string

// FieldMaps holds one ValueMap per field name.
type FieldMaps map[string]ValueMap

// Mapper applies source-specific and global default field-value mapping
// tables to a document (§4.E mapValues).
type Mapper struct {
	global    FieldMaps
	perSource map[string]FieldMaps
}

// NewMapper builds a Mapper from a global default table and a per-source
// override table, both keyed by field name.
func NewMapper(global FieldMaps, perSource map[string]FieldMaps) *Mapper {
	if global == nil {
		global = FieldMaps{}
	}
	if perSource == nil {
		perSource = map[string]FieldMaps{}
	}
	return &Mapper{global: global, perSource: perSource}
}

// MapValues rewrites each value in doc's mapped fields according to
// source's table, falling back to the global table when the source has no
// mapping for a field. Values with no entry in either table pass through
// unchanged.
func (m *Mapper) MapValues(source string, doc map[string][]string) map[string][]string {
	sourceMaps := m.perSource[source]

	out := make(map[string][]string, len(doc))
	for field, values := range doc {
		vm, ok := sourceMaps[field]
		if !ok {
			vm = m.global[field]
		}
		if vm == nil {
			out[field] = values
			continue
		}

		mapped := make([]string, len(values))
		for i, v := range values {
			if replacement, ok := vm[v]; ok {
				mapped[i] = replacement
			} else {
				mapped[i] = v
			}
		}
		out[field] = mapped
	}
	return out
}
