package assistant

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vantag/assistant-gateway/internal/events"
	"github.com/vantag/assistant-gateway/internal/llm"
	"github.com/vantag/assistant-gateway/internal/metrics"
	"github.com/vantag/assistant-gateway/internal/quota"
)

// UsageStore is the persistence surface the orchestrator needs.
// *quota.Repository implements it.
type UsageStore interface {
	GetOrCreate(ctx context.Context, userID string) (*quota.UsageRecord, error)
	Increment(ctx context.Context, userID string, now time.Time) (*quota.UsageRecord, error)
}

// Service drives one chat turn: quota check, context assembly, the model
// call, and the branch between a final answer and a tool-call round.
type Service struct {
	store     UsageStore
	model     llm.Client
	publisher *events.Publisher
	now       func() time.Time
}

func NewService(store UsageStore, model llm.Client, publisher *events.Publisher) *Service {
	return &Service{
		store:     store,
		model:     model,
		publisher: publisher,
		now:       time.Now,
	}
}

// Chat handles one request of the two-phase protocol. A first-phase request
// carries only the user message; a follow-up additionally replays the tool
// exchange in ToolResults. Only a final answer consumes quota.
func (s *Service) Chat(ctx context.Context, req *ChatRequest) (*ChatResult, error) {
	tier := quota.ParseTier(req.SubscriptionType, req.IsPremium)
	locale := ParseLocale(req.Language)
	now := s.now()

	rec, err := s.store.GetOrCreate(ctx, req.UserID)
	if err != nil {
		return nil, fmt.Errorf("loading usage record: %w", err)
	}

	decision := quota.Decide(rec, tier, now)
	if !decision.Allowed {
		metrics.ChatTurnsTotal.WithLabelValues("quota_denied").Inc()
		metrics.QuotaDenialsTotal.WithLabelValues(string(decision.LimitType)).Inc()
		s.publisher.PublishUsage(ctx, events.UsageEvent{
			UserID:    req.UserID,
			EventType: events.EventQuotaDenied,
			Tier:      string(tier),
			Locale:    string(locale),
			Remaining: 0,
			Timestamp: now,
		})
		return nil, &quota.ExceededError{ResetAt: decision.ResetAt, LimitType: decision.LimitType}
	}

	if err := ValidateToolResults(req.ToolResults); err != nil {
		return nil, err
	}

	messages := buildMessages(tier, locale, req)

	start := time.Now()
	resp, err := s.model.ChatCompletion(ctx, llm.ChatRequest{
		Messages: messages,
		Tools:    ToolSchemas(locale),
	})
	metrics.ModelCallDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.ChatTurnsTotal.WithLabelValues("error").Inc()
		return nil, err
	}

	// Tool-call round: hand the calls back to the client unchanged and
	// leave the quota untouched. The follow-up request replays this
	// exchange, so nothing needs to be remembered here.
	if len(resp.ToolCalls) > 0 {
		metrics.ChatTurnsTotal.WithLabelValues("tool_calls").Inc()
		return &ChatResult{
			Response:              strings.TrimSpace(resp.Content),
			ToolCalls:             toPayload(resp.ToolCalls),
			RemainingQuota:        decision.Remaining,
			RequiresToolExecution: true,
		}, nil
	}

	// Final answer: count the turn. If the write fails the user still gets
	// the answer they already paid a model call for; the counter catches up
	// on the next turn.
	if _, err := s.store.Increment(ctx, req.UserID, now); err != nil {
		slog.Error("incrementing usage", "error", err, "user_id", req.UserID)
	}

	remaining := decision.Remaining - 1
	if remaining < 0 {
		remaining = 0
	}

	metrics.ChatTurnsTotal.WithLabelValues("final_answer").Inc()
	s.publisher.PublishUsage(ctx, events.UsageEvent{
		UserID:    req.UserID,
		EventType: events.EventTurnCompleted,
		Tier:      string(tier),
		Locale:    string(locale),
		Remaining: remaining,
		Timestamp: now,
	})

	return &ChatResult{
		Response:       strings.TrimSpace(resp.Content),
		RemainingQuota: remaining,
	}, nil
}

// buildMessages assembles the turn sequence for the model: the system turn
// first, then the replayed tool exchange, then the user message.
func buildMessages(tier quota.Tier, locale Locale, req *ChatRequest) []llm.Message {
	messages := make([]llm.Message, 0, len(req.ToolResults)+2)

	messages = append(messages, llm.Message{
		Role:    "system",
		Content: BuildSystemPrompt(tier, locale),
	})

	for _, turn := range req.ToolResults {
		messages = append(messages, toModelMessage(turn))
	}

	messages = append(messages, llm.Message{
		Role:    "user",
		Content: req.Message,
	})

	return messages
}

func toModelMessage(turn Turn) llm.Message {
	msg := llm.Message{
		Role:       turn.Role,
		Content:    turn.Content,
		ToolCallID: turn.ToolCallID,
	}
	for _, tc := range turn.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
			ID:   tc.ID,
			Type: "function",
			Function: llm.FunctionCall{
				Name:      tc.Name,
				Arguments: tc.ArgumentsJSON,
			},
		})
	}
	return msg
}

func toPayload(calls []llm.ToolCall) []ToolCallPayload {
	payload := make([]ToolCallPayload, len(calls))
	for i, tc := range calls {
		payload[i] = ToolCallPayload{
			ID:            tc.ID,
			Name:          tc.Function.Name,
			ArgumentsJSON: tc.Function.Arguments,
		}
	}
	return payload
}
