package merge

import "strings"

// lcsLength computes the length of the longest common subsequence of a and
// b, used as the similarity measure behind capsRatio (spec.md §4.G).
func lcsLength(a, b string) int {
	if a == "" || b == "" {
		return 0
	}
	ra, rb := []rune(a), []rune(b)
	prev := make([]int, len(rb)+1)
	cur := make([]int, len(rb)+1)
	for i := 1; i <= len(ra); i++ {
		for j := 1; j <= len(rb); j++ {
			if ra[i-1] == rb[j-1] {
				cur[j] = prev[j-1] + 1
			} else if prev[j] >= cur[j-1] {
				cur[j] = prev[j]
			} else {
				cur[j] = cur[j-1]
			}
		}
		prev, cur = cur, prev
	}
	return prev[len(rb)]
}

// fieldCapsRatio returns 1 minus the LCS-style similarity between v and its
// lowercase form, normalized by the byte length of v: 0 for a value with no
// capitals, rising towards 1 as more of it is upper case.
func fieldCapsRatio(v string) float64 {
	if v == "" {
		return 0
	}
	lower := strings.ToLower(v)
	sim := float64(lcsLength(v, lower))
	byteLen := float64(len(v))
	if byteLen == 0 {
		return 0
	}
	return 1 - (sim / byteLen)
}

// Score computes a child document's merge-ordering score (spec.md §4.G):
// fc is the count of values across scoredFields, tl is the title length,
// and capsRatio is the per-field average caps-heaviness across
// scoredFields. Score = 0 if fc == 0, fc if capsRatio == 0, else
// (fc+tl)/capsRatio — documents with heavier use of capitals (all-caps
// titles, uncorrected OCR) score lower and sort after cleaner records.
func Score(doc map[string][]string, scoredFields []string, title string) float64 {
	fc := 0
	var ratioSum float64
	var ratioCount int
	for _, field := range scoredFields {
		values := doc[field]
		fc += len(values)
		for _, v := range values {
			ratioSum += fieldCapsRatio(v)
			ratioCount++
		}
	}
	if fc == 0 {
		return 0
	}
	tl := len(title)
	if ratioCount == 0 {
		return float64(fc)
	}
	capsRatio := ratioSum / float64(ratioCount)
	if capsRatio == 0 {
		return float64(fc)
	}
	return (float64(fc) + float64(tl)) / capsRatio
}
