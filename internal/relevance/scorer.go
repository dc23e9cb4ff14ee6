// Package relevance scores chunk text against a query.
package relevance

import (
	"context"
	"strings"
	"unicode"
)

// Scorer returns one score per text, in the same order. Higher is more
// relevant; scores are only comparable within a single call.
type Scorer interface {
	Score(ctx context.Context, query string, texts []string) ([]float64, error)
}

// LexicalScorer scores by the fraction of distinct query terms that occur
// in the text.
type LexicalScorer struct{}

func (LexicalScorer) Score(_ context.Context, query string, texts []string) ([]float64, error) {
	scores := make([]float64, len(texts))
	terms := tokenize(query)
	if len(terms) == 0 {
		return scores, nil
	}
	for i, text := range texts {
		words := tokenize(text)
		hits := 0
		for t := range terms {
			if words[t] {
				hits++
			}
		}
		scores[i] = float64(hits) / float64(len(terms))
	}
	return scores, nil
}

func tokenize(s string) map[string]bool {
	out := make(map[string]bool)
	for _, f := range strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		out[f] = true
	}
	return out
}
