package assistant

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vantag/assistant-gateway/internal/llm"
	"github.com/vantag/assistant-gateway/internal/quota"
)

func newTestHandler(store *fakeStore, model *fakeModel) *Handler {
	return NewHandler(newTestService(store, model))
}

func postChat(t *testing.T, h *Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	buf, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/chat", bytes.NewReader(buf))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)
	return rec
}

func TestChatHandler_FinalAnswer(t *testing.T) {
	store := &fakeStore{}
	model := &fakeModel{responses: []*llm.ChatResponse{answer("Merhaba, nasıl yardımcı olabilirim?")}}
	h := newTestHandler(store, model)

	rec := postChat(t, h, map[string]any{"message": "selam", "userId": "user-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Merhaba, nasıl yardımcı olabilirim?", resp["response"])
	assert.EqualValues(t, 4, resp["remainingQuota"])
	_, hasToolCalls := resp["toolCalls"]
	assert.False(t, hasToolCalls)
	_, hasFlag := resp["requiresToolExecution"]
	assert.False(t, hasFlag)
}

func TestChatHandler_ToolCallRound(t *testing.T) {
	store := &fakeStore{}
	model := &fakeModel{responses: []*llm.ChatResponse{{
		ToolCalls: []llm.ToolCall{{
			ID:   "call_1",
			Type: "function",
			Function: llm.FunctionCall{
				Name:      "get_budget_status",
				Arguments: "{}",
			},
		}},
		FinishReason: "tool_calls",
	}}}
	h := newTestHandler(store, model)

	rec := postChat(t, h, map[string]any{"message": "bütçem nasıl", "userId": "user-1"})
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		ToolCalls             []ToolCallPayload `json:"toolCalls"`
		RemainingQuota        int               `json:"remainingQuota"`
		RequiresToolExecution bool              `json:"requiresToolExecution"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.RequiresToolExecution)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "get_budget_status", resp.ToolCalls[0].Name)
	assert.Equal(t, 5, resp.RemainingQuota)
}

func TestChatHandler_QuotaExhausted(t *testing.T) {
	store := &fakeStore{rec: quota.UsageRecord{
		DailyCount:     5,
		DailyWindowKey: quota.DayKey(testNow),
	}}
	h := newTestHandler(store, &fakeModel{})

	rec := postChat(t, h, map[string]any{"message": "selam", "userId": "user-1"})
	require.Equal(t, http.StatusTooManyRequests, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "LIMIT_EXCEEDED", resp["error"])
	assert.Equal(t, "daily", resp["limitType"])
	assert.EqualValues(t, 0, resp["remainingQuota"])
	assert.True(t, strings.HasPrefix(resp["resetDate"].(string), "2025-03-16T00:00:00"))
}

func TestChatHandler_ValidationFailures(t *testing.T) {
	h := newTestHandler(&fakeStore{}, &fakeModel{})

	tests := []struct {
		name string
		body map[string]any
	}{
		{"missing message", map[string]any{"userId": "user-1"}},
		{"missing userId", map[string]any{"message": "selam"}},
		{"bad subscription type", map[string]any{"message": "selam", "userId": "u", "subscriptionType": "platinum"}},
		{"bad language", map[string]any{"message": "selam", "userId": "u", "language": "fr"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := postChat(t, h, tt.body)
			require.Equal(t, http.StatusBadRequest, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, "INVALID_REQUEST", resp["error"])
		})
	}
}

func TestChatHandler_MalformedJSONBody(t *testing.T) {
	h := newTestHandler(&fakeStore{}, &fakeModel{})

	req := httptest.NewRequest(http.MethodPost, "/api/v1/assistant/chat", strings.NewReader("{not json"))
	rec := httptest.NewRecorder()
	h.Chat(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp["error"])
}

func TestChatHandler_MalformedToolResults(t *testing.T) {
	h := newTestHandler(&fakeStore{}, &fakeModel{})

	rec := postChat(t, h, map[string]any{
		"message": "devam",
		"userId":  "user-1",
		"toolResults": []map[string]any{
			{"role": "tool", "toolCallId": "unknown", "content": "{}"},
		},
	})
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "INVALID_REQUEST", resp["error"])
}

func TestChatHandler_UpstreamErrors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantCode   string
	}{
		{"rate limited upstream", llm.ErrRateLimited, http.StatusTooManyRequests, "RATE_LIMITED"},
		{"missing api key", llm.ErrNotConfigured, http.StatusInternalServerError, "API_ERROR"},
		{"auth rejected upstream", llm.ErrAuthFailed, http.StatusInternalServerError, "API_ERROR"},
		{"upstream down", llm.ErrUnavailable, http.StatusInternalServerError, "API_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestHandler(&fakeStore{}, &fakeModel{err: tt.err})

			rec := postChat(t, h, map[string]any{"message": "selam", "userId": "user-1"})
			require.Equal(t, tt.wantStatus, rec.Code)

			var resp map[string]any
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tt.wantCode, resp["error"])
		})
	}
}
