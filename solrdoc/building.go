package solrdoc

import (
	"strings"

	"github.com/aleksip/RecordManager/config"
)

// BuildingPrefix computes the institution prefix to unshift onto a record's
// building field, per the institutionInBuilding mode (§4.F step 6).
// driverID is the driver/consortium identifier configured globally, when
// mode is "driver".
func BuildingPrefix(mode, institution, source, driverID string) string {
	switch mode {
	case config.InstitutionInBuildingInstitution:
		return institution
	case config.InstitutionInBuildingDriver:
		return driverID
	case config.InstitutionInBuildingSource:
		return source
	case config.InstitutionInBuildingInstitutionSource:
		return institution + "/" + source
	case config.InstitutionInBuildingNone:
		return ""
	default:
		return ""
	}
}

// AddInstitutionToBuilding applies prefix to doc's building field: each
// existing value is prepended with "prefix/"; nested path arrays have the
// prefix unshifted as a new leading path segment; if building is absent,
// it's initialized to [prefix] (§4.F step 6).
func AddInstitutionToBuilding(doc Document, prefix string) {
	if prefix == "" {
		return
	}

	existing := doc.Get("building")
	if len(existing) == 0 {
		doc.Set("building", prefix)
		return
	}

	out := make([]string, len(existing))
	for i, v := range existing {
		if strings.HasPrefix(v, "/") {
			out[i] = "/" + prefix + v
		} else {
			out[i] = prefix + "/" + v
		}
	}
	doc.Set("building", out...)
}
