package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/fireclub/semsearch/domain/product"
	"github.com/fireclub/semsearch/domain/search"
	"github.com/fireclub/semsearch/infrastructure/snapshot"
)

// substringScore is assigned to literal substring hits in hybrid
// search; it dominates every semantic score below 1.0.
const substringScore = 1.0

// SnapshotLoader reads the current snapshot pair.
type SnapshotLoader interface {
	Load(ctx context.Context) (*snapshot.Snapshot, error)
}

// Searcher serves read-only queries against a double-buffered index.
// The read mutex guards only reference capture and the final bulk swap;
// the reload mutex serializes reloads end to end, so file I/O and
// validation never block queries.
type Searcher struct {
	mu       sync.RWMutex
	reloadMu sync.Mutex

	loader   SnapshotLoader
	embedder search.Embedder
	logger   *slog.Logger
	dim      int

	active  *snapshot.Snapshot
	loading *snapshot.Snapshot
}

// NewSearcher creates a Searcher and loads the current snapshot. When
// no snapshot exists (or the pair is unreadable) the service starts
// with an empty index and keeps serving; a later reload picks up the
// first valid pair.
func NewSearcher(ctx context.Context, loader SnapshotLoader, embedder search.Embedder, dim int, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Searcher{
		loader:   loader,
		embedder: embedder,
		logger:   logger,
		dim:      dim,
		active:   snapshot.Empty(dim),
	}

	if err := s.Reload(ctx); err != nil {
		logger.Warn("initial snapshot load failed, serving empty index", "error", err)
	}
	return s
}

// Reload loads the snapshot pair into the loading slot, validates it,
// and swaps it in under the read mutex. On any failure the active
// tuple is left untouched. Concurrent reloads serialize.
func (s *Searcher) Reload(ctx context.Context) error {
	s.reloadMu.Lock()
	defer s.reloadMu.Unlock()

	snap, err := s.loader.Load(ctx)
	if err != nil {
		switch {
		case errors.Is(err, snapshot.ErrNotExist):
			return fmt.Errorf("%w: %v", ErrUnavailable, err)
		case errors.Is(err, snapshot.ErrTorn):
			return fmt.Errorf("%w: %v", ErrConflict, err)
		default:
			return fmt.Errorf("%w: load snapshot: %v", ErrInternal, err)
		}
	}
	s.loading = snap

	s.mu.Lock()
	s.active = s.loading
	s.loading = nil
	s.mu.Unlock()

	s.logger.Info("index swapped in",
		"products", len(snap.Products), "timestamp", snap.Timestamp)
	return nil
}

// ReloadAsync runs Reload on a background goroutine; load failures are
// logged and the active index keeps serving. A later mutation
// re-triggers the reload.
func (s *Searcher) ReloadAsync() {
	go func() {
		if err := s.Reload(context.Background()); err != nil {
			s.logger.Error("background reload failed, keeping active index", "error", err)
		}
	}()
}

// snapshotRef captures the active tuple. Queries work entirely on the
// captured reference so a concurrent swap never produces a mixed view.
func (s *Searcher) snapshotRef() *snapshot.Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.active
}

// Semantic embeds the query and returns every indexed product whose
// inner-product score meets the threshold, sorted by score descending
// with ties broken by ascending id.
func (s *Searcher) Semantic(ctx context.Context, query string, threshold float64) ([]search.Result, error) {
	snap := s.snapshotRef()
	return s.semanticOn(ctx, snap, query, threshold)
}

func (s *Searcher) semanticOn(ctx context.Context, snap *snapshot.Snapshot, query string, threshold float64) ([]search.Result, error) {
	if snap.Index.Count() == 0 {
		return []search.Result{}, nil
	}

	vecs, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("%w: embed query: %v", ErrInternal, err)
	}

	matches, err := snap.Index.Search(vecs[0])
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInternal, err)
	}

	results := make([]search.Result, 0, len(matches))
	for _, m := range matches {
		id, ok := snap.SlotToID[m.Slot]
		if !ok || float64(m.Score) < threshold {
			continue
		}
		results = append(results, search.NewResult(id, m.Score))
	}
	search.SortResults(results)
	return results, nil
}

// Hybrid augments semantic results with literal substring matches over
// the lowercased description and variant combination. Substring hits
// score 1.0 and therefore dominate all semantic results below 1.0.
// Both passes read the same captured snapshot.
func (s *Searcher) Hybrid(ctx context.Context, query string, threshold float64) ([]search.Result, error) {
	snap := s.snapshotRef()
	return s.hybridOn(ctx, snap, query, threshold)
}

func (s *Searcher) hybridOn(ctx context.Context, snap *snapshot.Snapshot, query string, threshold float64) ([]search.Result, error) {
	results, err := s.semanticOn(ctx, snap, query, threshold)
	if err != nil {
		return nil, err
	}

	seen := make(map[int64]struct{}, len(results))
	for _, r := range results {
		seen[r.ID()] = struct{}{}
	}

	needle := strings.ToLower(query)
	var literalIDs []int64
	for id, p := range snap.Products {
		if _, dup := seen[id]; dup {
			continue
		}
		if strings.Contains(strings.ToLower(p.Description), needle) ||
			strings.Contains(strings.ToLower(p.VariantCombo), needle) {
			literalIDs = append(literalIDs, id)
		}
	}
	sort.Slice(literalIDs, func(i, j int) bool { return literalIDs[i] < literalIDs[j] })

	merged := make([]search.Result, 0, len(literalIDs)+len(results))
	for _, id := range literalIDs {
		merged = append(merged, search.NewResult(id, substringScore))
	}
	merged = append(merged, results...)
	search.StableSortByScore(merged)
	return merged, nil
}

// Hit is a scored result materialized with its product record. Both
// come from the same snapshot, so a concurrent swap cannot mix
// generations within one response.
type Hit struct {
	Product product.Product
	Score   float32
}

// SemanticHits runs a semantic query and materializes the matching
// product records.
func (s *Searcher) SemanticHits(ctx context.Context, query string, threshold float64) ([]Hit, error) {
	snap := s.snapshotRef()
	results, err := s.semanticOn(ctx, snap, query, threshold)
	if err != nil {
		return nil, err
	}
	return materialize(snap, results), nil
}

// HybridHits runs a hybrid query and materializes the matching product
// records.
func (s *Searcher) HybridHits(ctx context.Context, query string, threshold float64) ([]Hit, error) {
	snap := s.snapshotRef()
	results, err := s.hybridOn(ctx, snap, query, threshold)
	if err != nil {
		return nil, err
	}
	return materialize(snap, results), nil
}

func materialize(snap *snapshot.Snapshot, results []search.Result) []Hit {
	hits := make([]Hit, 0, len(results))
	for _, r := range results {
		p, ok := snap.Products[r.ID()]
		if !ok {
			continue
		}
		hits = append(hits, Hit{Product: p, Score: r.Score()})
	}
	return hits
}

// Product returns the indexed record for an id from the active tuple.
func (s *Searcher) Product(id int64) (product.Product, bool) {
	snap := s.snapshotRef()
	p, ok := snap.Products[id]
	return p, ok
}

// SearchStats is the read-side stats payload.
type SearchStats struct {
	TotalProducts int    `json:"total_productos"`
	VectorTotal   int    `json:"faiss_total"`
	Dimension     int    `json:"dimension"`
	IndexLoaded   bool   `json:"index_loaded"`
	Service       string `json:"service"`
}

// Stats reports counters for the active tuple.
func (s *Searcher) Stats() SearchStats {
	snap := s.snapshotRef()
	return SearchStats{
		TotalProducts: len(snap.Products),
		VectorTotal:   snap.Index.Count(),
		Dimension:     s.dim,
		IndexLoaded:   true,
		Service:       "search",
	}
}
