package rates

import (
	"log/slog"
	"net/http"

	"github.com/vantag/assistant-gateway/internal/api"
)

type Handler struct {
	service *Service
	store   *Store
}

func NewHandler(service *Service, store *Store) *Handler {
	return &Handler{service: service, store: store}
}

// Get serves the stored rates document. 404 until the first refresh has
// completed; the app falls back to its bundled rates in that case.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	doc, err := h.store.Get(r.Context())
	if err != nil {
		slog.Error("reading rates document", "error", err)
		api.HandleError(w, api.ErrAPIError)
		return
	}
	if doc == nil {
		api.HandleError(w, api.NewNotFoundError("rates not available yet"))
		return
	}
	api.JSON(w, http.StatusOK, doc)
}

// Refresh triggers an immediate refresh. Sits behind the admin JWT.
func (h *Handler) Refresh(w http.ResponseWriter, r *http.Request) {
	doc, err := h.service.Refresh(r.Context())
	if err != nil {
		slog.Error("manual rates refresh failed", "error", err)
		api.HandleError(w, api.ErrAPIError)
		return
	}
	api.JSON(w, http.StatusOK, doc)
}
