package solrdoc

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandHierarchicalPath(t *testing.T) {
	assert.Equal(t, []string{"0/a/", "1/a/b/", "2/a/b/c/"}, ExpandHierarchicalPath("a/b/c"))
}

func TestCreateSolrID(t *testing.T) {
	assert.Equal(t, "acme.123", CreateSolrID("acme.123", false))
	assert.Equal(t, "123", CreateSolrID("acme.123", true))
}

func TestFormatInAllfields_SubstitutesDigits(t *testing.T) {
	result := FormatInAllfields("mp3", FormNFKC)
	assert.Equal(t, "mpdx", result)
}

func TestNormalizeDocument_SkipsFullrecord(t *testing.T) {
	doc := Document{
		"fullrecord": {"<xml>raw</xml>"},
		"title":      {"Café"}, // decomposed e + combining acute
	}
	NormalizeDocument(doc, FormNFC)

	assert.Equal(t, "<xml>raw</xml>", doc.Get("fullrecord")[0])
	assert.Equal(t, "Café", doc.Get("title")[0])
}
