package assistant

import (
	"errors"
	"fmt"
)

// Locale selects the assistant's output language and the localized tool
// descriptions. Turkish is the app's home market and the default.
type Locale string

const (
	LocaleTR Locale = "tr"
	LocaleEN Locale = "en"
)

func ParseLocale(s string) Locale {
	if Locale(s) == LocaleEN {
		return LocaleEN
	}
	return LocaleTR
}

// Turn is one conversation turn in the client wire format. The client
// replays the tool exchange verbatim on the follow-up request, so the
// server stays stateless between the two phases.
type Turn struct {
	Role       string            `json:"role"`
	Content    string            `json:"content,omitempty"`
	ToolCalls  []ToolCallPayload `json:"toolCalls,omitempty"`
	ToolCallID string            `json:"toolCallId,omitempty"`
}

// ToolCallPayload is a tool invocation as exposed to the client.
type ToolCallPayload struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArgumentsJSON string `json:"argumentsJson"`
}

// ChatRequest is the body of a chat turn request.
type ChatRequest struct {
	Message          string `json:"message" validate:"required"`
	UserID           string `json:"userId" validate:"required"`
	IsPremium        bool   `json:"isPremium"`
	SubscriptionType string `json:"subscriptionType" validate:"omitempty,oneof=free pro lifetime"`
	Language         string `json:"language" validate:"omitempty,oneof=tr en"`
	ToolResults      []Turn `json:"toolResults"`
}

// ChatResult is the success payload of a chat turn: either a final answer,
// or a set of tool calls the client must execute and resubmit.
type ChatResult struct {
	Response              string            `json:"response"`
	ToolCalls             []ToolCallPayload `json:"toolCalls,omitempty"`
	RemainingQuota        int               `json:"remainingQuota"`
	RequiresToolExecution bool              `json:"requiresToolExecution,omitempty"`
}

// ErrMalformedToolResults flags a follow-up request whose replayed tool
// exchange is not a valid assistant-tool-call / tool-result alternation.
var ErrMalformedToolResults = errors.New("malformed tool results")

// ValidateToolResults checks the replayed tool exchange: each assistant
// turn must carry at least one tool call, and every one of its calls must
// be answered by a tool turn with the matching id before the sequence may
// move on. Anything else is rejected before the model is ever called.
func ValidateToolResults(turns []Turn) error {
	pending := map[string]bool{}

	for i, turn := range turns {
		switch turn.Role {
		case "assistant":
			if len(pending) > 0 {
				return fmt.Errorf("%w: turn %d starts a new tool round with unanswered calls", ErrMalformedToolResults, i)
			}
			if len(turn.ToolCalls) == 0 {
				return fmt.Errorf("%w: assistant turn %d carries no tool calls", ErrMalformedToolResults, i)
			}
			for _, tc := range turn.ToolCalls {
				if tc.ID == "" {
					return fmt.Errorf("%w: assistant turn %d has a tool call without an id", ErrMalformedToolResults, i)
				}
				pending[tc.ID] = true
			}
		case "tool":
			if turn.ToolCallID == "" {
				return fmt.Errorf("%w: tool turn %d has no toolCallId", ErrMalformedToolResults, i)
			}
			if !pending[turn.ToolCallID] {
				return fmt.Errorf("%w: tool turn %d answers unknown call %q", ErrMalformedToolResults, i, turn.ToolCallID)
			}
			delete(pending, turn.ToolCallID)
		default:
			return fmt.Errorf("%w: unexpected role %q at turn %d", ErrMalformedToolResults, turn.Role, i)
		}
	}

	if len(turns) > 0 && turns[0].Role != "assistant" {
		return fmt.Errorf("%w: tool results must start with an assistant tool-call turn", ErrMalformedToolResults)
	}
	if len(pending) > 0 {
		return fmt.Errorf("%w: %d tool calls left unanswered", ErrMalformedToolResults, len(pending))
	}
	return nil
}
