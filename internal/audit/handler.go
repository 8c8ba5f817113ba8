package audit

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/vantag/assistant-gateway/internal/api"
)

type Handler struct {
	repo *Repository
}

func NewHandler(repo *Repository) *Handler {
	return &Handler{repo: repo}
}

// ListByUser serves a user's recent usage events for support lookups.
// Sits behind the admin JWT.
func (h *Handler) ListByUser(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		api.HandleError(w, api.NewInvalidRequestError("userId is required"))
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))

	entries, err := h.repo.ListByUser(r.Context(), userID, limit)
	if err != nil {
		slog.Error("listing audit entries", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrAPIError)
		return
	}
	if entries == nil {
		entries = []Entry{}
	}

	api.JSON(w, http.StatusOK, map[string]any{"entries": entries})
}
