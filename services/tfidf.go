package services

import (
	"errors"
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenRegexp = regexp.MustCompile(`\b\w\w+\b`)

var englishStopWords = toSet(strings.Fields(`
a about above after again against all am an and any are as at be because been
before being below between both but by can could did do does doing down during
each few for from further had has have having he her here hers herself him
himself his how i if in into is it its itself just me more most my myself no
nor not now of off on once only or other our ours ourselves out over own same
she should so some such than that the their theirs them themselves then there
these they this those through to too under until up very was we were what when
where which while who whom why will with would you your yours yourself
yourselves`))

// ErrVectorizerNotFitted is returned by Transform before Fit.
var ErrVectorizerNotFitted = errors.New("tfidf: vectorizer is not fitted")

// TextVectorizer is a TF-IDF encoder over a capped vocabulary. It is used
// only to enrich training matrices and is never consulted when serving.
type TextVectorizer struct {
	MaxFeatures int

	terms []string
	index map[string]int
	idf   []float64
}

func NewTextVectorizer(maxFeatures int) *TextVectorizer {
	return &TextVectorizer{MaxFeatures: maxFeatures}
}

// Fit learns the vocabulary and inverse document frequencies. The vocabulary
// keeps the MaxFeatures most frequent terms across the corpus and is stored
// in alphabetical order.
func (v *TextVectorizer) Fit(docs []string) {
	freq := make(map[string]int)
	df := make(map[string]int)
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, tok := range tokenize(doc) {
			freq[tok]++
			if !seen[tok] {
				seen[tok] = true
				df[tok]++
			}
		}
	}

	terms := make([]string, 0, len(freq))
	for t := range freq {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		if freq[terms[i]] != freq[terms[j]] {
			return freq[terms[i]] > freq[terms[j]]
		}
		return terms[i] < terms[j]
	})
	if v.MaxFeatures > 0 && len(terms) > v.MaxFeatures {
		terms = terms[:v.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(len(docs))
	v.terms = terms
	v.index = make(map[string]int, len(terms))
	v.idf = make([]float64, len(terms))
	for i, t := range terms {
		v.index[t] = i
		v.idf[i] = math.Log((1+n)/(1+float64(df[t]))) + 1
	}
}

// Terms returns the fitted vocabulary in column order.
func (v *TextVectorizer) Terms() []string {
	return v.terms
}

// Transform encodes one document as an l2-normalised TF-IDF row.
func (v *TextVectorizer) Transform(doc string) ([]float64, error) {
	if v.index == nil {
		return nil, ErrVectorizerNotFitted
	}

	row := make([]float64, len(v.terms))
	for _, tok := range tokenize(doc) {
		if i, ok := v.index[tok]; ok {
			row[i]++
		}
	}

	var norm float64
	for i := range row {
		row[i] *= v.idf[i]
		norm += row[i] * row[i]
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range row {
			row[i] /= norm
		}
	}
	return row, nil
}

func tokenize(doc string) []string {
	raw := tokenRegexp.FindAllString(strings.ToLower(doc), -1)
	out := raw[:0]
	for _, tok := range raw {
		if _, stop := englishStopWords[tok]; !stop {
			out = append(out, tok)
		}
	}
	return out
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}
