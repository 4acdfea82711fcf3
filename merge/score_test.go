package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScore_ZeroWhenNoScoredFieldValues(t *testing.T) {
	doc := map[string][]string{"title": {"Hello"}}
	assert.Equal(t, float64(0), Score(doc, []string{"author"}, "Hello"))
}

func TestScore_FavorsLowerCapsRatio(t *testing.T) {
	lower := map[string][]string{"title": {"hello world"}}
	upper := map[string][]string{"title": {"HELLO WORLD"}}
	scoredFields := []string{"title"}

	lowerScore := Score(lower, scoredFields, "hello world")
	upperScore := Score(upper, scoredFields, "HELLO WORLD")

	assert.Greater(t, lowerScore, upperScore)
}

func TestFieldCapsRatio_ZeroForAlreadyLowercase(t *testing.T) {
	assert.Equal(t, float64(0), fieldCapsRatio("already lower"))
}

func TestFieldCapsRatio_PositiveForUppercase(t *testing.T) {
	assert.Greater(t, fieldCapsRatio("UPPER CASE"), float64(0))
}
