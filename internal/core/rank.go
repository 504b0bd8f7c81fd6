package core

import (
	"sort"
	"strings"
	"unicode/utf8"

	"github.com/agnivade/levenshtein"
)

// BrandScore is one ranked brand.
type BrandScore struct {
	Brand string  `json:"brand"`
	Score float64 `json:"score"`
}

// RankBrands orders brands by similarity to a free-text query, best first.
// Ties break lexicographically; brands scoring zero are dropped. An empty
// query ranks nothing. limit <= 0 returns every match.
func RankBrands(brands []string, query string, limit int) []BrandScore {
	q := tokenKey(query)
	if q == "" {
		return []BrandScore{}
	}

	out := make([]BrandScore, 0, len(brands))
	for _, b := range brands {
		if s := brandScore(tokenKey(b), q); s > 0 {
			out = append(out, BrandScore{Brand: b, Score: s})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Score != out[j].Score {
			return out[i].Score > out[j].Score
		}
		return out[i].Brand < out[j].Brand
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// brandScore is the best of edit similarity, token-sorted edit similarity
// and a containment score that favors prefixes. Inputs are already folded.
func brandScore(candidate, query string) float64 {
	best := similarity(candidate, query)
	if s := similarity(tokenSort(candidate), tokenSort(query)); s > best {
		best = s
	}
	if s := containment(candidate, query); s > best {
		best = s
	}
	return best
}

// similarity is the normalized Levenshtein similarity in [0..1].
func similarity(a, b string) float64 {
	if a == "" && b == "" {
		return 1
	}
	if a == "" || b == "" {
		return 0
	}
	m := utf8.RuneCountInString(a)
	if mb := utf8.RuneCountInString(b); mb > m {
		m = mb
	}
	d := levenshtein.ComputeDistance(a, b)
	return 1 - float64(d)/float64(m)
}

// containment scores a candidate that contains the whole query. A prefix
// match scores above an inner match; longer candidates score lower.
func containment(candidate, query string) float64 {
	pos := strings.Index(candidate, query)
	if pos < 0 {
		return 0
	}
	ratio := float64(utf8.RuneCountInString(query)) / float64(utf8.RuneCountInString(candidate))
	if pos == 0 {
		return 0.8 + 0.2*ratio
	}
	return 0.6 + 0.2*ratio
}

func tokenSort(s string) string {
	fields := strings.Fields(s)
	sort.Strings(fields)
	return strings.Join(fields, " ")
}
