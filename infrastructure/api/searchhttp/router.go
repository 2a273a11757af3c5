// Package searchhttp mounts the search service's HTTP surface.
package searchhttp

import (
	"fmt"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fireclub/semsearch/application/service"
	"github.com/fireclub/semsearch/infrastructure/api/middleware"
)

// Default thresholds for the two query modes.
const (
	DefaultHybridThreshold   = 0.45
	DefaultSemanticThreshold = 0.3
)

// SearchResponse is the reply shape of both query endpoints.
type SearchResponse struct {
	Query   string       `json:"query"`
	Results []ResultItem `json:"resultados"`
}

// ResultItem is one scored product.
type ResultItem struct {
	ID           int64   `json:"id"`
	Name         string  `json:"nombre"`
	Description  string  `json:"descripcion"`
	VariantCombo string  `json:"variantes_comb"`
	Similarity   float64 `json:"similitud"`
}

// HealthResponse is the health check reply.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// MessageResponse acknowledges an accepted request.
type MessageResponse struct {
	Message string `json:"mensaje"`
}

// Handler serves the search endpoints.
type Handler struct {
	searcher          *service.Searcher
	hybridThreshold   float64
	semanticThreshold float64
}

// NewHandler creates a handler; non-positive thresholds fall back to
// the defaults.
func NewHandler(searcher *service.Searcher, hybridThreshold, semanticThreshold float64) *Handler {
	if hybridThreshold <= 0 {
		hybridThreshold = DefaultHybridThreshold
	}
	if semanticThreshold <= 0 {
		semanticThreshold = DefaultSemanticThreshold
	}
	return &Handler{
		searcher:          searcher,
		hybridThreshold:   hybridThreshold,
		semanticThreshold: semanticThreshold,
	}
}

// Mount registers the search routes on the router.
func (h *Handler) Mount(r chi.Router) {
	r.Get("/search", h.hybridSearch)
	r.Get("/search/semantic", h.semanticSearch)
	r.Get("/product/{id}", h.product)
	r.Get("/stats", h.stats)
	r.Get("/health", h.health)
	r.Post("/reload_index", h.reloadIndex)
}

func (h *Handler) hybridSearch(w http.ResponseWriter, r *http.Request) {
	query, threshold, err := queryParams(r, h.hybridThreshold)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	hits, err := h.searcher.HybridHits(r.Context(), query, threshold)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, response(query, hits))
}

func (h *Handler) semanticSearch(w http.ResponseWriter, r *http.Request) {
	query, threshold, err := queryParams(r, h.semanticThreshold)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}

	hits, err := h.searcher.SemanticHits(r.Context(), query, threshold)
	if err != nil {
		middleware.WriteError(w, err)
		return
	}
	middleware.WriteJSON(w, http.StatusOK, response(query, hits))
}

func (h *Handler) product(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		middleware.WriteError(w, fmt.Errorf("%w: product id must be an integer", service.ErrBadRequest))
		return
	}

	p, ok := h.searcher.Product(id)
	if !ok {
		middleware.WriteError(w, fmt.Errorf("%w: product %d", service.ErrNotFound, id))
		return
	}
	middleware.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.searcher.Stats())
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "search",
	})
}

// reloadIndex acknowledges immediately; the reload runs in the
// background and a failed reload keeps the active index serving.
func (h *Handler) reloadIndex(w http.ResponseWriter, r *http.Request) {
	h.searcher.ReloadAsync()
	middleware.WriteJSON(w, http.StatusOK, MessageResponse{Message: "recarga de indice iniciada"})
}

func response(query string, hits []service.Hit) SearchResponse {
	items := make([]ResultItem, 0, len(hits))
	for _, hit := range hits {
		items = append(items, ResultItem{
			ID:           hit.Product.ID,
			Name:         hit.Product.Name,
			Description:  hit.Product.Description,
			VariantCombo: hit.Product.VariantCombo,
			Similarity:   roundScore(hit.Score),
		})
	}
	return SearchResponse{Query: query, Results: items}
}

func queryParams(r *http.Request, defaultThreshold float64) (string, float64, error) {
	query := r.URL.Query().Get("query")
	if query == "" {
		return "", 0, fmt.Errorf("%w: missing query parameter", service.ErrBadRequest)
	}

	threshold := defaultThreshold
	if raw := r.URL.Query().Get("threshold"); raw != "" {
		parsed, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return "", 0, fmt.Errorf("%w: threshold must be numeric", service.ErrBadRequest)
		}
		threshold = parsed
	}
	return query, threshold, nil
}

func roundScore(score float32) float64 {
	return math.Round(float64(score)*1000) / 1000
}
