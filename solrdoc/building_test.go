package solrdoc

import (
	"testing"

	"github.com/aleksip/RecordManager/config"
	"github.com/stretchr/testify/assert"
)

func TestBuildingPrefix_Modes(t *testing.T) {
	assert.Equal(t, "ACME", BuildingPrefix(config.InstitutionInBuildingInstitution, "ACME", "acme", "driver1"))
	assert.Equal(t, "driver1", BuildingPrefix(config.InstitutionInBuildingDriver, "ACME", "acme", "driver1"))
	assert.Equal(t, "acme", BuildingPrefix(config.InstitutionInBuildingSource, "ACME", "acme", "driver1"))
	assert.Equal(t, "ACME/acme", BuildingPrefix(config.InstitutionInBuildingInstitutionSource, "ACME", "acme", "driver1"))
	assert.Equal(t, "", BuildingPrefix(config.InstitutionInBuildingNone, "ACME", "acme", "driver1"))
}

func TestAddInstitutionToBuilding_InitializesWhenAbsent(t *testing.T) {
	doc := Document{}
	AddInstitutionToBuilding(doc, "ACME")
	assert.Equal(t, []string{"ACME"}, doc.Get("building"))
}

func TestAddInstitutionToBuilding_PrependsToExisting(t *testing.T) {
	doc := Document{"building": {"main"}}
	AddInstitutionToBuilding(doc, "ACME")
	assert.Equal(t, []string{"ACME/main"}, doc.Get("building"))
}

func TestAddInstitutionToBuilding_NoopWhenPrefixEmpty(t *testing.T) {
	doc := Document{"building": {"main"}}
	AddInstitutionToBuilding(doc, "")
	assert.Equal(t, []string{"main"}, doc.Get("building"))
}
