package assistant

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToolSchemas_CatalogIsStable(t *testing.T) {
	tools := ToolSchemas(LocaleTR)
	require.Len(t, tools, 5)

	var names []string
	for _, tool := range tools {
		assert.Equal(t, "function", tool.Type)
		names = append(names, tool.Function.Name)
	}
	assert.Equal(t, []string{
		"get_expense_summary",
		"get_category_breakdown",
		"add_expense",
		"get_budget_status",
		"convert_to_work_hours",
	}, names)
}

func TestToolSchemas_NamesAndKeysAreLocaleInvariant(t *testing.T) {
	tr := ToolSchemas(LocaleTR)
	en := ToolSchemas(LocaleEN)
	require.Len(t, en, len(tr))

	for i := range tr {
		assert.Equal(t, tr[i].Function.Name, en[i].Function.Name)

		var trSchema, enSchema map[string]any
		require.NoError(t, json.Unmarshal(tr[i].Function.Parameters, &trSchema))
		require.NoError(t, json.Unmarshal(en[i].Function.Parameters, &enSchema))

		trProps := trSchema["properties"].(map[string]any)
		enProps := enSchema["properties"].(map[string]any)
		assert.ElementsMatch(t, keys(trProps), keys(enProps), "tool %s", tr[i].Function.Name)
		assert.Equal(t, trSchema["required"], enSchema["required"], "tool %s", tr[i].Function.Name)
	}
}

func TestToolSchemas_DescriptionsAreLocalized(t *testing.T) {
	tr := ToolSchemas(LocaleTR)
	en := ToolSchemas(LocaleEN)

	for i := range tr {
		assert.NotEqual(t, tr[i].Function.Description, en[i].Function.Description,
			"tool %s", tr[i].Function.Name)
	}
}

func TestToolSchemas_AddExpense(t *testing.T) {
	tools := ToolSchemas(LocaleEN)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(tools[2].Function.Parameters, &schema))
	require.Equal(t, "object", schema["type"])

	props := schema["properties"].(map[string]any)
	assert.ElementsMatch(t, []string{"amount", "category", "decision", "currency", "description"}, keys(props))

	decision := props["decision"].(map[string]any)
	assert.ElementsMatch(t, []any{"yes", "thinking", "no"}, decision["enum"])

	currency := props["currency"].(map[string]any)
	assert.ElementsMatch(t, []any{"TRY", "USD", "EUR", "GBP"}, currency["enum"])

	amount := props["amount"].(map[string]any)
	assert.EqualValues(t, 0, amount["exclusiveMinimum"])

	assert.ElementsMatch(t, []any{"amount", "category", "decision"}, schema["required"])
}

func TestToolSchemas_BudgetStatusTakesNoArguments(t *testing.T) {
	tools := ToolSchemas(LocaleTR)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(tools[3].Function.Parameters, &schema))
	assert.Empty(t, schema["properties"])
	assert.Nil(t, schema["required"])
}

func keys(m map[string]any) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	return out
}
