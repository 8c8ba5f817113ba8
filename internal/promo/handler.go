package promo

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vantag/assistant-gateway/internal/api"
	"github.com/vantag/assistant-gateway/internal/auth"
	"github.com/vantag/assistant-gateway/internal/events"
)

type Handler struct {
	repo      *Repository
	publisher *events.Publisher
	validate  *validator.Validate
}

func NewHandler(repo *Repository, publisher *events.Publisher) *Handler {
	return &Handler{
		repo:      repo,
		publisher: publisher,
		validate:  validator.New(),
	}
}

type grantRequest struct {
	UID   string `json:"uid" validate:"required"`
	Email string `json:"email" validate:"omitempty,email"`
	Type  string `json:"type" validate:"required,oneof=lifetime pro_gift"`
}

// Grant handles POST /api/v1/admin/promo. Sits behind the admin JWT.
func (h *Handler) Grant(w http.ResponseWriter, r *http.Request) {
	var req grantRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrInvalidRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewInvalidRequestError(err.Error()))
		return
	}

	user, err := h.repo.Grant(r.Context(), req.UID, req.Email, req.Type)
	if err != nil {
		slog.Error("granting promo", "error", err, "uid", req.UID)
		api.HandleError(w, api.ErrAPIError)
		return
	}

	h.publisher.PublishUsage(r.Context(), events.UsageEvent{
		UserID:    user.UID,
		EventType: events.EventPromoGranted,
		Details:   user.GrantType,
		Timestamp: time.Now(),
	})

	grantedBy := "unknown"
	if claims := auth.GetAdminClaims(r.Context()); claims != nil {
		grantedBy = claims.Subject
	}
	slog.Info("promo granted", "uid", user.UID, "grant_type", user.GrantType, "granted_by", grantedBy)
	api.JSON(w, http.StatusOK, user)
}
