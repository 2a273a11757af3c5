package provider

import (
	"context"
	"hash/fnv"
	"math"
	"strings"
	"unicode"

	"github.com/fireclub/semsearch/domain/search"
)

// Token and n-gram contribution weights for the static embedder.
const (
	tokenWeight = 0.7
	ngramWeight = 0.3
	ngramSize   = 3
)

// StaticEmbedder generates deterministic hash-based 768-dimensional
// unit-norm embeddings. It needs no external model, which makes it the
// default for local development and tests; texts sharing tokens or
// character n-grams land near each other, which is enough for the
// search pipeline to behave realistically.
type StaticEmbedder struct {
	dim int
}

// NewStaticEmbedder creates a static embedder producing
// search.Dimension-sized vectors.
func NewStaticEmbedder() *StaticEmbedder {
	return &StaticEmbedder{dim: search.Dimension}
}

// Embed generates one vector per text. Deterministic for fixed input.
func (e *StaticEmbedder) Embed(_ context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		vectors[i] = e.embedOne(text)
	}
	return vectors, nil
}

func (e *StaticEmbedder) embedOne(text string) []float32 {
	vec := make([]float32, e.dim)

	trimmed := strings.TrimSpace(text)
	if trimmed == "" {
		// Zero vector: matches nothing, scores 0 everywhere.
		return vec
	}

	for _, token := range tokenize(trimmed) {
		vec[hashToIndex(token, e.dim)] += tokenWeight
	}

	compact := compactLower(trimmed)
	runes := []rune(compact)
	for i := 0; i+ngramSize <= len(runes); i++ {
		vec[hashToIndex(string(runes[i:i+ngramSize]), e.dim)] += ngramWeight
	}

	normalizeInPlace(vec)
	return vec
}

// tokenize splits on any non-letter/non-digit rune and lowercases.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsNumber(r)
	})
}

// compactLower lowercases and strips everything that is not a letter
// or digit, so n-grams span word boundaries consistently.
func compactLower(text string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsNumber(r) {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func hashToIndex(s string, dim int) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(s))
	return int(h.Sum32() % uint32(dim))
}

// normalizeInPlace scales the vector to unit L2 norm. Zero vectors are
// left untouched.
func normalizeInPlace(vec []float32) {
	var sum float64
	for _, v := range vec {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	norm := math.Sqrt(sum)
	for i := range vec {
		vec[i] = float32(float64(vec[i]) / norm)
	}
}
