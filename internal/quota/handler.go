package quota

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vantag/assistant-gateway/internal/api"
	"github.com/vantag/assistant-gateway/internal/events"
)

type Handler struct {
	repo      *Repository
	publisher *events.Publisher
	validate  *validator.Validate
	now       func() time.Time
}

func NewHandler(repo *Repository, publisher *events.Publisher) *Handler {
	return &Handler{
		repo:      repo,
		publisher: publisher,
		validate:  validator.New(),
		now:       time.Now,
	}
}

type statusResponse struct {
	Tier           Tier      `json:"tier"`
	RemainingQuota int       `json:"remainingQuota"`
	ResetDate      time.Time `json:"resetDate"`
	LimitType      LimitType `json:"limitType"`
}

// Status reports the caller's current quota for the app's paywall screen.
func (h *Handler) Status(w http.ResponseWriter, r *http.Request) {
	userID := r.URL.Query().Get("userId")
	if userID == "" {
		api.HandleError(w, api.NewInvalidRequestError("userId is required"))
		return
	}

	isPremium, _ := strconv.ParseBool(r.URL.Query().Get("isPremium"))
	tier := ParseTier(r.URL.Query().Get("subscriptionType"), isPremium)

	rec, err := h.repo.GetOrCreate(r.Context(), userID)
	if err != nil {
		slog.Error("fetching usage record", "error", err, "user_id", userID)
		api.HandleError(w, api.ErrAPIError)
		return
	}

	d := Decide(rec, tier, h.now())
	api.JSON(w, http.StatusOK, statusResponse{
		Tier:           tier,
		RemainingQuota: d.Remaining,
		ResetDate:      d.ResetAt,
		LimitType:      d.LimitType,
	})
}

type addCreditsRequest struct {
	UserID  string `json:"userId" validate:"required"`
	Credits int    `json:"credits" validate:"required,gt=0"`
}

// AddCredits additively raises a user's purchased-credit ceiling.
func (h *Handler) AddCredits(w http.ResponseWriter, r *http.Request) {
	var req addCreditsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.ErrInvalidRequest)
		return
	}

	if err := h.validate.Struct(req); err != nil {
		api.HandleError(w, api.NewInvalidRequestError(err.Error()))
		return
	}

	if err := h.repo.AddCredits(r.Context(), req.UserID, req.Credits); err != nil {
		slog.Error("adding credits", "error", err, "user_id", req.UserID)
		api.HandleError(w, api.ErrAPIError)
		return
	}

	h.publisher.PublishUsage(r.Context(), events.UsageEvent{
		UserID:    req.UserID,
		EventType: events.EventCreditsGranted,
		Details:   strconv.Itoa(req.Credits),
		Timestamp: h.now(),
	})

	slog.Info("credits granted", "user_id", req.UserID, "credits", req.Credits)
	api.JSONMessage(w, http.StatusOK, "credits added")
}
