package search

import "sort"

// Result is a single ranked search hit.
type Result struct {
	id    int64
	score float32
}

// NewResult creates a Result.
func NewResult(id int64, score float32) Result {
	return Result{id: id, score: score}
}

// ID returns the product id of the hit.
func (r Result) ID() int64 { return r.id }

// Score returns the similarity score of the hit.
func (r Result) Score() float32 { return r.score }

// SortResults orders results by score descending, ties broken by
// ascending product id.
func SortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].score != results[j].score {
			return results[i].score > results[j].score
		}
		return results[i].id < results[j].id
	})
}

// StableSortByScore orders results by score descending, preserving the
// relative order of equal scores. Used by hybrid search so literal
// substring hits keep their insertion order.
func StableSortByScore(results []Result) {
	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})
}
