package ai

import (
	"context"
	"testing"

	"erp-ledger/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisabledSummarizer(t *testing.T) {
	s := NewSummarizer("", "gpt-4o-mini")
	_, err := s.Summarize(context.Background(), "How did March go?", nil)
	assert.ErrorIs(t, err, core.ErrUnavailable)
}

func TestBuildPrompt(t *testing.T) {
	prompt, err := buildPrompt("  Why is cash low?  ", map[string]string{"net_cash_flow": "-450.00"})
	require.NoError(t, err)
	assert.Contains(t, prompt, `"net_cash_flow": "-450.00"`)
	assert.Contains(t, prompt, "Question: Why is cash low?")

	_, err = buildPrompt(" ", nil)
	assert.ErrorIs(t, err, core.ErrInvalidInput)
}

func TestInsightSchema(t *testing.T) {
	schema, err := insightSchema()
	require.NoError(t, err)
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])

	props, ok := schema["properties"].(map[string]any)
	require.True(t, ok)
	for _, name := range []string{"summary", "highlights", "risks", "confidence"} {
		assert.Contains(t, props, name)
	}
	assert.ElementsMatch(t, []any{"summary", "highlights", "risks", "confidence"}, schema["required"])
}

func TestParseInsight(t *testing.T) {
	in, err := parseInsight(`{"summary":"Sales rose.","highlights":["Revenue 1000.00"],"risks":[],"confidence":0.8}`)
	require.NoError(t, err)
	assert.Equal(t, "Sales rose.", in.Summary)
	assert.Equal(t, []string{"Revenue 1000.00"}, in.Highlights)

	_, err = parseInsight("")
	assert.ErrorIs(t, err, core.ErrUnavailable)

	_, err = parseInsight(`{"summary":"x","highlights":[],"risks":[],"confidence":3}`)
	assert.ErrorIs(t, err, core.ErrInconsistent)

	_, err = parseInsight("not json")
	assert.Error(t, err)
}
