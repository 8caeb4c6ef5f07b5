package cache

import (
	"strings"

	"github.com/phrazzld/aiorch/internal/domain"
)

// Similarity scores how interchangeable two tasks are, in [0,1].
type Similarity interface {
	Score(a, b domain.Task) float64
}

// SimilarityFunc adapts an ordinary function to the Similarity interface.
type SimilarityFunc func(a, b domain.Task) float64

// Score calls f(a, b).
func (f SimilarityFunc) Score(a, b domain.Task) float64 {
	return f(a, b)
}

// Jaccard compares the lower-cased, whitespace-separated word sets of both inputs.
var Jaccard Similarity = SimilarityFunc(jaccard)

func jaccard(a, b domain.Task) float64 {
	setA := wordSet(a.Input)
	setB := wordSet(b.Input)

	union := len(setA)
	shared := 0
	for w := range setB {
		if _, ok := setA[w]; ok {
			shared++
		} else {
			union++
		}
	}
	if union == 0 {
		return 0
	}
	return float64(shared) / float64(union)
}

func wordSet(s string) map[string]struct{} {
	words := strings.Fields(strings.ToLower(s))
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
