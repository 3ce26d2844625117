package textmatch

import (
	"sort"
	"strings"
)

// Similarity computes the Jaccard index over the token sets of both strings
// after normalization. If either token set is empty the similarity is 0.
// The result is symmetric and bounded to [0,1].
func Similarity(a, b string) float64 {
	setA := tokenSet(Normalize(a))
	setB := tokenSet(Normalize(b))
	j, _ := jaccard(setA, setB)
	return j
}

// jaccard returns the Jaccard index and the intersection size of two token sets.
func jaccard(a, b map[string]struct{}) (float64, int) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0
	}

	inter := 0
	for token := range a {
		if _, ok := b[token]; ok {
			inter++
		}
	}
	union := len(a) + len(b) - inter
	return float64(inter) / float64(union), inter
}

// Item is a matchable catalog entry.
type Item struct {
	ID    string
	Title string
}

// Match is a scored candidate produced per inbound message. Never stored.
type Match struct {
	ID    string
	Title string
	Score float64
}

// DefaultTopK is the number of candidates returned when k is not positive.
const DefaultTopK = 3

// TopMatches scores the query against every item title and returns the k
// best matches. Ties keep the original catalog order (stable sort).
func TopMatches(items []Item, query string, k int) []Match {
	if k <= 0 {
		k = DefaultTopK
	}

	querySet := tokenSet(Normalize(query))
	matches := make([]Match, 0, len(items))
	for _, item := range items {
		score, _ := jaccard(querySet, tokenSet(Normalize(item.Title)))
		matches = append(matches, Match{ID: item.ID, Title: item.Title, Score: score})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > k {
		matches = matches[:k]
	}
	return matches
}

// Matcher judges whether a message directly mentions a course title.
// The thresholds tolerate partial and reordered mentions while avoiding
// false positives on short generic titles.
type Matcher struct {
	JaccardThreshold float64 // Direct mention when jaccard >= this
	OverlapThreshold float64 // Or when intersection >= OverlapMinWords and jaccard >= this
	OverlapMinWords  int
}

// NewMatcher creates a Matcher with the given thresholds.
func NewMatcher(jaccardThreshold, overlapThreshold float64, overlapMinWords int) *Matcher {
	return &Matcher{
		JaccardThreshold: jaccardThreshold,
		OverlapThreshold: overlapThreshold,
		OverlapMinWords:  overlapMinWords,
	}
}

// IsDirectTitleMention reports whether the query refers to the title, either
// by containing it verbatim (after normalization) or by token overlap.
func (m *Matcher) IsDirectTitleMention(query, title string) bool {
	normQuery := Normalize(query)
	normTitle := Normalize(title)
	if normQuery == "" || normTitle == "" {
		return false
	}

	if strings.Contains(normQuery, normTitle) {
		return true
	}

	j, inter := jaccard(tokenSet(normQuery), tokenSet(normTitle))
	if j >= m.JaccardThreshold {
		return true
	}
	return inter >= m.OverlapMinWords && j >= m.OverlapThreshold
}
