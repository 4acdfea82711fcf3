package solrdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWorkKeys_UniformTitle(t *testing.T) {
	keys := WorkKeys([]string{"Hamlet"}, true, nil, []string{"Shakespeare"}, FormNFKC)
	assert.Contains(t, keys, "UT hamlet")
}

func TestWorkKeys_NonUniformTitleCrossedWithAuthors(t *testing.T) {
	keys := WorkKeys([]string{"Hamlet"}, false, nil, []string{"Shakespeare", "Anon"}, FormNFKC)
	assert.Contains(t, keys, "AT shakespeare hamlet")
	assert.Contains(t, keys, "AT anon hamlet")
}

func TestWorkKeys_IdempotentNormalization(t *testing.T) {
	once := normalizeWorkKeyPart("Café", FormNFC)
	twice := normalizeWorkKeyPart(once, FormNFC)
	assert.Equal(t, once, twice)
}
