package solrdoc

import (
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
)

// Form selects which Unicode Normalization Form NormalizeString applies,
// matching the config key unicode_normalization_form (§3 Global config).
type Form string

const (
	FormNFC  Form = "NFC"
	FormNFD  Form = "NFD"
	FormNFKC Form = "NFKC"
	FormNFKD Form = "NFKD"
)

func (f Form) normalizer() norm.Form {
	switch f {
	case FormNFD:
		return norm.NFD
	case FormNFKC:
		return norm.NFKC
	case FormNFKD:
		return norm.NFKD
	default:
		return norm.NFC
	}
}

// NormalizeString applies form to s.
func NormalizeString(s string, form Form) string {
	return form.normalizer().String(s)
}

// NormalizeDocument Unicode-normalizes every string value in doc except
// fullrecord, which must retain its original byte-for-byte XML (§4.F step 13).
func NormalizeDocument(doc Document, form Form) {
	for field, values := range doc {
		if field == "fullrecord" {
			continue
		}
		for i, v := range values {
			values[i] = NormalizeString(v, form)
		}
		doc[field] = values
	}
}

func lower(s string) string { return strings.ToLower(s) }

// ExpandHierarchicalPath expands a "/"-joined path into depth-prefixed
// variants: "a/b/c" -> ["0/a/", "1/a/b/", "2/a/b/c/"] (§4.F step 7, §8
// invariant 6). A value already containing no "/" yields a single
// "0/<value>/" entry.
func ExpandHierarchicalPath(path string) []string {
	parts := strings.Split(path, "/")
	out := make([]string, 0, len(parts))
	for depth := range parts {
		out = append(out, strconv.Itoa(depth)+"/"+strings.Join(parts[:depth+1], "/")+"/")
	}
	return out
}

// digitSubstitution maps '0'-'9' to "ax".."jx" so an analyzer's
// word-boundary splitting doesn't fragment formats containing digits
// (§4.F step 10).
var digitSubstitution = map[byte]string{
	'0': "ax", '1': "bx", '2': "cx", '3': "dx", '4': "ex",
	'5': "fx", '6': "gx", '7': "hx", '8': "ix", '9': "jx",
}

// FormatInAllfields returns a normalized, digit-substituted form of a
// format value, appended to allfields when format_in_allfields is enabled.
func FormatInAllfields(format string, normForm Form) string {
	normalized := NormalizeString(lower(format), normForm)
	var b strings.Builder
	for i := 0; i < len(normalized); i++ {
		c := normalized[i]
		if sub, ok := digitSubstitution[c]; ok {
			b.WriteString(sub)
		} else {
			b.WriteByte(c)
		}
	}
	return b.String()
}

// CreateSolrID builds a document id from a "source.local" form record id,
// stripping the "source." prefix when unprefixed is true (§4.F step 4).
func CreateSolrID(id string, unprefixed bool) string {
	if !unprefixed {
		return id
	}
	if idx := strings.Index(id, "."); idx >= 0 {
		return id[idx+1:]
	}
	return id
}
