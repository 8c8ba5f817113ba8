package assistant

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/vantag/assistant-gateway/internal/api"
	"github.com/vantag/assistant-gateway/internal/llm"
	"github.com/vantag/assistant-gateway/internal/quota"
)

type Handler struct {
	service  *Service
	validate *validator.Validate
}

func NewHandler(service *Service) *Handler {
	return &Handler{
		service:  service,
		validate: validator.New(),
	}
}

// Chat handles POST /api/v1/assistant/chat.
func (h *Handler) Chat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		api.HandleError(w, api.NewInvalidRequestError("invalid JSON body"))
		return
	}

	if err := h.validate.Struct(&req); err != nil {
		api.HandleError(w, api.NewInvalidRequestError(err.Error()))
		return
	}

	result, err := h.service.Chat(r.Context(), &req)
	if err != nil {
		h.writeChatError(w, err)
		return
	}

	api.JSON(w, http.StatusOK, result)
}

// writeChatError maps service failures onto the wire protocol the mobile
// client understands. Quota denials carry their own payload shape; model
// failures collapse to the generic codes so nothing upstream leaks out.
func (h *Handler) writeChatError(w http.ResponseWriter, err error) {
	var exceeded *quota.ExceededError
	if errors.As(err, &exceeded) {
		api.JSON(w, http.StatusTooManyRequests, quotaDeniedResponse{
			Error:          "LIMIT_EXCEEDED",
			ResetDate:      exceeded.ResetAt.Format(time.RFC3339),
			RemainingQuota: 0,
			LimitType:      string(exceeded.LimitType),
		})
		return
	}

	switch {
	case errors.Is(err, ErrMalformedToolResults):
		api.HandleError(w, api.NewInvalidRequestError(err.Error()))
	case errors.Is(err, llm.ErrInvalidRequest):
		api.HandleError(w, api.NewInvalidRequestError("model rejected the request"))
	case errors.Is(err, llm.ErrRateLimited):
		api.HandleError(w, api.ErrRateLimited)
	case errors.Is(err, llm.ErrNotConfigured):
		// Deployment problem, not a user problem. Alarm loudly but answer
		// with the generic code.
		slog.Error("llm client is not configured, chat is down")
		api.HandleError(w, api.ErrAPIError)
	case errors.Is(err, llm.ErrAuthFailed):
		slog.Error("llm credentials rejected upstream")
		api.HandleError(w, api.ErrAPIError)
	default:
		slog.Error("chat turn failed", "error", err)
		api.HandleError(w, api.ErrAPIError)
	}
}

// quotaDeniedResponse is the 429 body for an exhausted quota.
type quotaDeniedResponse struct {
	Error          string `json:"error"`
	ResetDate      string `json:"resetDate"`
	RemainingQuota int    `json:"remainingQuota"`
	LimitType      string `json:"limitType"`
}
