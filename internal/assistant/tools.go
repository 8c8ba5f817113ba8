package assistant

import (
	"encoding/json"

	"github.com/vantag/assistant-gateway/internal/llm"
)

// CurrencyCodes is the fixed set the add_expense and convert_to_work_hours
// currency parameter accepts. When absent the client falls back to the
// user's default currency.
var CurrencyCodes = []string{"TRY", "USD", "EUR", "GBP"}

var expensePeriods = []string{"day", "week", "month", "year"}

// localized is a pair of strings keyed by locale. Tool names and parameter
// keys stay locale-invariant so the client can route calls deterministically;
// only what the model reads as prose is localized.
type localized map[Locale]string

func text(tr, en string) localized {
	return localized{LocaleTR: tr, LocaleEN: en}
}

func (l localized) get(loc Locale) string {
	if s, ok := l[loc]; ok {
		return s
	}
	return l[LocaleTR]
}

type toolSpec struct {
	name        string
	description localized
	parameters  func(loc Locale) map[string]any
}

var toolCatalog = []toolSpec{
	{
		name: "get_expense_summary",
		description: text(
			"Kullanıcının belirli bir dönemdeki toplam harcamasını getirir.",
			"Returns the user's total spending for a given period.",
		),
		parameters: func(loc Locale) map[string]any {
			return objectSchema(map[string]any{
				"period": map[string]any{
					"type": "string",
					"enum": expensePeriods,
					"description": text(
						"Özetlenecek dönem.",
						"The period to summarize.",
					).get(loc),
				},
			}, "period")
		},
	},
	{
		name: "get_category_breakdown",
		description: text(
			"Harcamaları kategorilere göre ayrıştırır.",
			"Breaks spending down by category.",
		),
		parameters: func(loc Locale) map[string]any {
			return objectSchema(map[string]any{
				"period": map[string]any{
					"type": "string",
					"enum": expensePeriods,
					"description": text(
						"Ayrıştırılacak dönem.",
						"The period to break down.",
					).get(loc),
				},
			}, "period")
		},
	},
	{
		name: "add_expense",
		description: text(
			"Kullanıcı adına yeni bir harcama kaydı oluşturur.",
			"Records a new expense on behalf of the user.",
		),
		parameters: func(loc Locale) map[string]any {
			return objectSchema(map[string]any{
				"amount": map[string]any{
					"type":             "number",
					"exclusiveMinimum": 0,
					"description": text(
						"Harcama tutarı, sıfırdan büyük olmalı.",
						"The expense amount, must be greater than zero.",
					).get(loc),
				},
				"category": map[string]any{
					"type": "string",
					"description": text(
						"Harcama kategorisi, örn. kahve, market, ulaşım.",
						"The expense category, e.g. coffee, groceries, transport.",
					).get(loc),
				},
				"decision": map[string]any{
					"type": "string",
					"enum": []string{"yes", "thinking", "no"},
					"description": text(
						"Kullanıcının satın alma kararı: aldı, düşünüyor ya da vazgeçti.",
						"The user's purchase decision: bought, still thinking, or passed.",
					).get(loc),
				},
				"currency": map[string]any{
					"type": "string",
					"enum": CurrencyCodes,
					"description": text(
						"Para birimi. Verilmezse kullanıcının varsayılan para birimi kullanılır.",
						"Currency code. Defaults to the user's currency when omitted.",
					).get(loc),
				},
				"description": map[string]any{
					"type": "string",
					"description": text(
						"İsteğe bağlı kısa açıklama.",
						"Optional short note.",
					).get(loc),
				},
			}, "amount", "category", "decision")
		},
	},
	{
		name: "get_budget_status",
		description: text(
			"Kullanıcının bu ayki bütçe durumunu getirir.",
			"Returns the user's budget status for the current month.",
		),
		parameters: func(loc Locale) map[string]any {
			return objectSchema(map[string]any{})
		},
	},
	{
		name: "convert_to_work_hours",
		description: text(
			"Bir tutarı kullanıcının saatlik kazancına göre çalışma saatine çevirir.",
			"Converts an amount into hours of work based on the user's hourly earnings.",
		),
		parameters: func(loc Locale) map[string]any {
			return objectSchema(map[string]any{
				"amount": map[string]any{
					"type":             "number",
					"exclusiveMinimum": 0,
					"description": text(
						"Çevrilecek tutar.",
						"The amount to convert.",
					).get(loc),
				},
				"currency": map[string]any{
					"type": "string",
					"enum": CurrencyCodes,
					"description": text(
						"Para birimi. Verilmezse kullanıcının varsayılan para birimi kullanılır.",
						"Currency code. Defaults to the user's currency when omitted.",
					).get(loc),
				},
			}, "amount")
		},
	},
}

func objectSchema(properties map[string]any, required ...string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// ToolSchemas produces the callable tool set for the given locale, in a
// fixed order.
func ToolSchemas(loc Locale) []llm.Tool {
	tools := make([]llm.Tool, 0, len(toolCatalog))
	for _, spec := range toolCatalog {
		params, err := json.Marshal(spec.parameters(loc))
		if err != nil {
			// The catalog is static; a marshal failure is a programming error.
			panic("assistant: marshaling tool schema for " + spec.name + ": " + err.Error())
		}
		tools = append(tools, llm.Tool{
			Type: "function",
			Function: llm.ToolFunction{
				Name:        spec.name,
				Description: spec.description.get(loc),
				Parameters:  params,
			},
		})
	}
	return tools
}
