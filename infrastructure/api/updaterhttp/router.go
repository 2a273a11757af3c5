// Package updaterhttp mounts the updater service's HTTP surface.
package updaterhttp

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/fireclub/semsearch/application/service"
	"github.com/fireclub/semsearch/infrastructure/api/middleware"
)

// MessageResponse acknowledges a completed mutation.
type MessageResponse struct {
	Message string `json:"mensaje"`
}

// HealthResponse is the health check reply.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
}

// Handler serves the mutation endpoints.
type Handler struct {
	updater *service.Updater
}

// NewHandler creates a handler over the index core.
func NewHandler(updater *service.Updater) *Handler {
	return &Handler{updater: updater}
}

// Mount registers the updater routes on the router.
func (h *Handler) Mount(r chi.Router) {
	r.Post("/update/add/{id}", h.mutation("agregado", h.updater.Add))
	r.Post("/update/modify/{id}", h.mutation("actualizado", h.updater.Modify))
	r.Post("/update/delete/{id}", h.mutation("eliminado", h.updater.Delete))
	r.Get("/stats", h.stats)
	r.Get("/health", h.health)
}

func (h *Handler) mutation(verb string, apply func(context.Context, int64) error) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
		if err != nil {
			middleware.WriteError(w, fmt.Errorf("%w: product id must be an integer", service.ErrBadRequest))
			return
		}

		if err := apply(r.Context(), id); err != nil {
			middleware.WriteError(w, err)
			return
		}
		middleware.WriteJSON(w, http.StatusOK, MessageResponse{
			Message: fmt.Sprintf("producto %d %s", id, verb),
		})
	}
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, h.updater.Stats())
}

func (h *Handler) health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:  "healthy",
		Service: "updater",
	})
}
