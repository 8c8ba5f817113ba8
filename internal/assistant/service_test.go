package assistant

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantag/assistant-gateway/internal/llm"
	"github.com/vantag/assistant-gateway/internal/quota"
)

// fakeStore mirrors the repository's window semantics in memory: a stale
// window key resets the counter on increment.
type fakeStore struct {
	rec        quota.UsageRecord
	getErr     error
	incErr     error
	increments int
}

func (f *fakeStore) GetOrCreate(_ context.Context, userID string) (*quota.UsageRecord, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	rec := f.rec
	rec.UserID = userID
	return &rec, nil
}

func (f *fakeStore) Increment(_ context.Context, userID string, now time.Time) (*quota.UsageRecord, error) {
	if f.incErr != nil {
		return nil, f.incErr
	}
	f.increments++
	if f.rec.DailyWindowKey == quota.DayKey(now) {
		f.rec.DailyCount++
	} else {
		f.rec.DailyCount = 1
		f.rec.DailyWindowKey = quota.DayKey(now)
	}
	if f.rec.MonthlyWindowKey == quota.MonthKey(now) {
		f.rec.MonthlyCount++
	} else {
		f.rec.MonthlyCount = 1
		f.rec.MonthlyWindowKey = quota.MonthKey(now)
	}
	rec := f.rec
	rec.UserID = userID
	return &rec, nil
}

// fakeModel plays back scripted responses and records every request.
type fakeModel struct {
	responses []*llm.ChatResponse
	err       error
	requests  []llm.ChatRequest
}

func (f *fakeModel) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	f.requests = append(f.requests, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.responses) == 0 {
		panic("fakeModel: no scripted response left")
	}
	resp := f.responses[0]
	f.responses = f.responses[1:]
	return resp, nil
}

var testNow = time.Date(2025, 3, 15, 14, 0, 0, 0, quota.Location())

func newTestService(store *fakeStore, model *fakeModel) *Service {
	svc := NewService(store, model, nil)
	svc.now = func() time.Time { return testNow }
	return svc
}

func answer(content string) *llm.ChatResponse {
	return &llm.ChatResponse{Content: content, FinishReason: "stop"}
}

func TestChat_FinalAnswerConsumesQuota(t *testing.T) {
	store := &fakeStore{rec: quota.UsageRecord{
		DailyCount:     2,
		DailyWindowKey: quota.DayKey(testNow),
	}}
	model := &fakeModel{responses: []*llm.ChatResponse{answer("  Kahveye bu ay 840 TL harcadın.  ")}}
	svc := newTestService(store, model)

	result, err := svc.Chat(context.Background(), &ChatRequest{
		Message: "Bu ay kahveye ne kadar harcadım?",
		UserID:  "user-1",
	})
	require.NoError(t, err)

	assert.Equal(t, "Kahveye bu ay 840 TL harcadın.", result.Response)
	assert.Empty(t, result.ToolCalls)
	assert.False(t, result.RequiresToolExecution)
	// 5 cap, 2 used before the turn, minus this one.
	assert.Equal(t, 2, result.RemainingQuota)
	assert.Equal(t, 1, store.increments)
}

func TestChat_FifthTurnAllowedSixthDenied(t *testing.T) {
	store := &fakeStore{rec: quota.UsageRecord{
		DailyCount:     4,
		DailyWindowKey: quota.DayKey(testNow),
	}}
	model := &fakeModel{responses: []*llm.ChatResponse{answer("Tamam.")}}
	svc := newTestService(store, model)

	req := &ChatRequest{Message: "merhaba", UserID: "user-1"}

	result, err := svc.Chat(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, 0, result.RemainingQuota)

	_, err = svc.Chat(context.Background(), req)
	var exceeded *quota.ExceededError
	require.ErrorAs(t, err, &exceeded)
	assert.Equal(t, quota.LimitDaily, exceeded.LimitType)
	assert.Equal(t, time.Date(2025, 3, 16, 0, 0, 0, 0, quota.Location()), exceeded.ResetAt)
	// The denied turn never reached the model.
	assert.Len(t, model.requests, 1)
}

func TestChat_StaleWindowGrantsFreshQuota(t *testing.T) {
	store := &fakeStore{rec: quota.UsageRecord{
		DailyCount:     5,
		DailyWindowKey: "2025-03-14",
	}}
	model := &fakeModel{responses: []*llm.ChatResponse{answer("Günaydın!")}}
	svc := newTestService(store, model)

	result, err := svc.Chat(context.Background(), &ChatRequest{Message: "günaydın", UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, 4, result.RemainingQuota)
	assert.Equal(t, 1, store.rec.DailyCount)
	assert.Equal(t, quota.DayKey(testNow), store.rec.DailyWindowKey)
}

func TestChat_LifetimeCreditsExtendTheCap(t *testing.T) {
	store := &fakeStore{rec: quota.UsageRecord{
		MonthlyCount:     100,
		MonthlyWindowKey: quota.MonthKey(testNow),
		PurchasedCredits: 20,
	}}
	model := &fakeModel{responses: []*llm.ChatResponse{answer("Sure.")}}
	svc := newTestService(store, model)

	result, err := svc.Chat(context.Background(), &ChatRequest{
		Message:          "hello",
		UserID:           "user-1",
		SubscriptionType: "lifetime",
		Language:         "en",
	})
	require.NoError(t, err)
	assert.Equal(t, 19, result.RemainingQuota)
}

func TestChat_ToolCallRoundDoesNotConsumeQuota(t *testing.T) {
	store := &fakeStore{rec: quota.UsageRecord{
		DailyCount:     3,
		DailyWindowKey: quota.DayKey(testNow),
	}}
	model := &fakeModel{responses: []*llm.ChatResponse{{
		ToolCalls: []llm.ToolCall{{
			ID:   "call_1",
			Type: "function",
			Function: llm.FunctionCall{
				Name:      "get_expense_summary",
				Arguments: `{"period":"month"}`,
			},
		}},
		FinishReason: "tool_calls",
	}}}
	svc := newTestService(store, model)

	result, err := svc.Chat(context.Background(), &ChatRequest{Message: "bu ay ne harcadım", UserID: "user-1"})
	require.NoError(t, err)

	assert.True(t, result.RequiresToolExecution)
	require.Len(t, result.ToolCalls, 1)
	assert.Equal(t, "call_1", result.ToolCalls[0].ID)
	assert.Equal(t, "get_expense_summary", result.ToolCalls[0].Name)
	assert.JSONEq(t, `{"period":"month"}`, result.ToolCalls[0].ArgumentsJSON)
	// Quota stays where it was.
	assert.Equal(t, 2, result.RemainingQuota)
	assert.Zero(t, store.increments)
}

func TestChat_MalformedToolResultsRejectedBeforeModelCall(t *testing.T) {
	store := &fakeStore{}
	model := &fakeModel{}
	svc := newTestService(store, model)

	_, err := svc.Chat(context.Background(), &ChatRequest{
		Message: "devam",
		UserID:  "user-1",
		ToolResults: []Turn{
			{Role: "assistant", ToolCalls: []ToolCallPayload{{ID: "c1", Name: "get_budget_status"}}},
		},
	})
	require.ErrorIs(t, err, ErrMalformedToolResults)
	assert.Empty(t, model.requests)
	assert.Zero(t, store.increments)
}

func TestChat_MessageSequence(t *testing.T) {
	store := &fakeStore{}
	model := &fakeModel{responses: []*llm.ChatResponse{answer("done")}}
	svc := newTestService(store, model)

	_, err := svc.Chat(context.Background(), &ChatRequest{
		Message:          "so how much was it?",
		UserID:           "user-1",
		SubscriptionType: "pro",
		Language:         "en",
		ToolResults: []Turn{
			{Role: "assistant", ToolCalls: []ToolCallPayload{{
				ID: "c1", Name: "get_expense_summary", ArgumentsJSON: `{"period":"month"}`,
			}}},
			{Role: "tool", ToolCallID: "c1", Content: `{"total": 1200, "currency": "TRY"}`},
		},
	})
	require.NoError(t, err)

	require.Len(t, model.requests, 1)
	msgs := model.requests[0].Messages
	require.Len(t, msgs, 4)

	assert.Equal(t, "system", msgs[0].Role)
	assert.Contains(t, msgs[0].Content, "premium member")

	assert.Equal(t, "assistant", msgs[1].Role)
	require.Len(t, msgs[1].ToolCalls, 1)
	assert.Equal(t, "c1", msgs[1].ToolCalls[0].ID)
	assert.Equal(t, "get_expense_summary", msgs[1].ToolCalls[0].Function.Name)

	assert.Equal(t, "tool", msgs[2].Role)
	assert.Equal(t, "c1", msgs[2].ToolCallID)

	assert.Equal(t, "user", msgs[3].Role)
	assert.Equal(t, "so how much was it?", msgs[3].Content)

	// The tool set always rides along, localized to the request.
	require.Len(t, model.requests[0].Tools, 5)
	assert.Contains(t, model.requests[0].Tools[0].Function.Description, "Returns")
}

func TestChat_TwoPhaseRoundTrip(t *testing.T) {
	store := &fakeStore{rec: quota.UsageRecord{
		MonthlyCount:     10,
		MonthlyWindowKey: quota.MonthKey(testNow),
	}}
	model := &fakeModel{responses: []*llm.ChatResponse{
		{
			ToolCalls: []llm.ToolCall{{
				ID:   "call_add",
				Type: "function",
				Function: llm.FunctionCall{
					Name:      "add_expense",
					Arguments: `{"amount":40,"category":"kahve","decision":"yes"}`,
				},
			}},
			FinishReason: "tool_calls",
		},
		answer("40 TL'lik kahve harcamanı kaydettim."),
	}}
	svc := newTestService(store, model)

	first, err := svc.Chat(context.Background(), &ChatRequest{
		Message:          "Kahveye 40 lira verdim",
		UserID:           "user-1",
		SubscriptionType: "pro",
	})
	require.NoError(t, err)
	require.True(t, first.RequiresToolExecution)
	require.Len(t, first.ToolCalls, 1)
	assert.Equal(t, 490, first.RemainingQuota)

	var args map[string]any
	require.NoError(t, json.Unmarshal([]byte(first.ToolCalls[0].ArgumentsJSON), &args))
	assert.EqualValues(t, 40, args["amount"])
	assert.Equal(t, "yes", args["decision"])

	// The client executes the call locally and resubmits with the exchange.
	second, err := svc.Chat(context.Background(), &ChatRequest{
		Message:          "Kahveye 40 lira verdim",
		UserID:           "user-1",
		SubscriptionType: "pro",
		ToolResults: []Turn{
			{Role: "assistant", ToolCalls: first.ToolCalls},
			{Role: "tool", ToolCallID: "call_add", Content: `{"status":"saved"}`},
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "40 TL'lik kahve harcamanı kaydettim.", second.Response)
	assert.False(t, second.RequiresToolExecution)
	assert.Equal(t, 489, second.RemainingQuota)
	assert.Equal(t, 1, store.increments)
}

func TestChat_ModelErrorPassesThrough(t *testing.T) {
	store := &fakeStore{}
	model := &fakeModel{err: llm.ErrRateLimited}
	svc := newTestService(store, model)

	_, err := svc.Chat(context.Background(), &ChatRequest{Message: "hi", UserID: "user-1"})
	require.ErrorIs(t, err, llm.ErrRateLimited)
	assert.Zero(t, store.increments)
}

func TestChat_IncrementFailureStillAnswers(t *testing.T) {
	store := &fakeStore{incErr: errors.New("connection reset")}
	model := &fakeModel{responses: []*llm.ChatResponse{answer("Merhaba!")}}
	svc := newTestService(store, model)

	result, err := svc.Chat(context.Background(), &ChatRequest{Message: "selam", UserID: "user-1"})
	require.NoError(t, err)
	assert.Equal(t, "Merhaba!", result.Response)
	assert.Equal(t, 4, result.RemainingQuota)
}

func TestChat_StoreErrorSurfaces(t *testing.T) {
	store := &fakeStore{getErr: errors.New("db down")}
	svc := newTestService(store, &fakeModel{})

	_, err := svc.Chat(context.Background(), &ChatRequest{Message: "hi", UserID: "user-1"})
	require.Error(t, err)
}
