package solrdoc

// WorkKeys synthesizes the normalized work-key strings from a record's
// titles and authors (§4.F step 12, §8 invariant 7):
//
//   - for each uniform title T: "UT <normalized T>"
//   - for each non-uniform title T, for every author A: "AT <normalized A> <normalized T>"
//
// altTitles (alternate-script titles) are folded in the same way as
// non-uniform titles, per the same step.
func WorkKeys(titles []string, uniform bool, altTitles []string, authors []string, form Form) []string {
	var keys []string

	if uniform {
		for _, t := range titles {
			keys = append(keys, "UT "+normalizeWorkKeyPart(t, form))
		}
		return appendAuthorTitleKeys(keys, altTitles, authors, form)
	}

	keys = appendAuthorTitleKeys(keys, titles, authors, form)
	keys = appendAuthorTitleKeys(keys, altTitles, authors, form)
	return keys
}

func appendAuthorTitleKeys(keys, titles, authors []string, form Form) []string {
	for _, t := range titles {
		normTitle := normalizeWorkKeyPart(t, form)
		for _, a := range authors {
			keys = append(keys, "AT "+normalizeWorkKeyPart(a, form)+" "+normTitle)
		}
	}
	return keys
}

// normalizeWorkKeyPart folds a title/author fragment to lowercase and
// Unicode-normalizes it, so two manifestations differing only in case or
// accent composition produce the same key. Idempotent (§8 invariant 7):
// both lower-casing and Unicode normalization are themselves idempotent.
func normalizeWorkKeyPart(s string, form Form) string {
	return NormalizeString(lower(s), form)
}
