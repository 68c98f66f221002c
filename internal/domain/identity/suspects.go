package identity

import (
	"slices"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"

	"github.com/okian/gridelo/internal/domain/model"
)

// Suspect is a pair of competitor IDs whose names are close enough that they are
// probably the same person split by a spelling difference.
type Suspect struct {
	A          model.CompetitorID `json:"a"`
	B          model.CompetitorID `json:"b"`
	Similarity float64            `json:"similarity"`
}

// Suspects returns every pair of ids whose match keys have a Levenshtein
// similarity of at least threshold, most similar first.
func Suspects(ids []model.CompetitorID, threshold float64) []Suspect {
	keys := make([]string, len(ids))
	for i, id := range ids {
		keys[i] = MatchKey(string(id))
	}

	var out []Suspect
	for i := range ids {
		for j := i + 1; j < len(ids); j++ {
			if ids[i] == ids[j] {
				continue
			}
			if s := Similarity(keys[i], keys[j]); s >= threshold {
				out = append(out, Suspect{A: ids[i], B: ids[j], Similarity: s})
			}
		}
	}
	slices.SortStableFunc(out, func(a, b Suspect) int {
		switch {
		case a.Similarity > b.Similarity:
			return -1
		case a.Similarity < b.Similarity:
			return 1
		default:
			return 0
		}
	})
	return out
}

// Similarity is 1 - distance/maxLen over runes: 1 for identical strings, 0 for
// nothing in common.
func Similarity(a, b string) float64 {
	if a == b {
		return 1
	}
	maxLen := max(utf8.RuneCountInString(a), utf8.RuneCountInString(b))
	if maxLen == 0 {
		return 1
	}
	s := 1 - float64(levenshtein.ComputeDistance(a, b))/float64(maxLen)
	return max(s, 0)
}
