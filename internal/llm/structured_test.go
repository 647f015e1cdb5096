package llm

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"medassist/internal/errors"
)

type testPlan struct {
	Title string   `json:"title"`
	Steps []string `json:"steps"`
}

func TestExtractJSON(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"bare", `{"a":1}`, `{"a":1}`},
		{"fenced", "Here you go:\n```json\n{\"a\":1}\n```\nDone.", `{"a":1}`},
		{"fenced no lang", "```\n{\"a\":1}\n```", `{"a":1}`},
		{"prose around", `Sure! {"a":1} hope that helps`, `{"a":1}`},
		{"array", `[1,2,3]`, `[1,2,3]`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, ExtractJSON(tc.in))
		})
	}
}

func TestDecodeStructuredRepairsMalformedJSON(t *testing.T) {
	var plan testPlan
	// trailing comma and single quotes, typical model damage
	err := DecodeStructured("```json\n{'title': 'x', 'steps': ['a', 'b',]}\n```", &plan)
	require.NoError(t, err)
	assert.Equal(t, "x", plan.Title)
	assert.Equal(t, []string{"a", "b"}, plan.Steps)
}

func TestDecodeStructuredSchemaError(t *testing.T) {
	var plan testPlan
	err := DecodeStructured("I cannot produce a plan for that.", &plan)
	require.Error(t, err)
	assert.True(t, errors.IsSchema(err))
}

func TestInvokeStructuredRetriesOnce(t *testing.T) {
	mock := NewMockClient("basic",
		ScriptedResponse{Response: &CompletionResponse{MessageID: "m1", Content: "sorry, here is prose"}},
		ScriptedResponse{Response: &CompletionResponse{MessageID: "m2", Content: `{"title":"ok","steps":[]}`}},
	)

	plan, raw, err := InvokeStructured[testPlan](context.Background(), mock, CompletionRequest{
		Messages: []Message{{Role: "user", Content: "plan it"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", plan.Title)
	assert.Equal(t, `{"title":"ok","steps":[]}`, raw)

	require.Len(t, mock.Requests, 2)
	retryMsgs := mock.Requests[1].Messages
	assert.Equal(t, "assistant", retryMsgs[len(retryMsgs)-2].Role)
	assert.Equal(t, "user", retryMsgs[len(retryMsgs)-1].Role)
}

func TestInvokeStructuredGivesUpAfterRetry(t *testing.T) {
	mock := NewMockClient("basic",
		ScriptedResponse{Response: &CompletionResponse{Content: "prose"}},
		ScriptedResponse{Response: &CompletionResponse{Content: "still prose"}},
	)
	_, _, err := InvokeStructured[testPlan](context.Background(), mock, CompletionRequest{})
	require.Error(t, err)
	assert.True(t, errors.IsSchema(err))
}

func TestResolverSelect(t *testing.T) {
	basic := NewMockClient("basic-model")
	reasoning := NewMockClient("reasoning-model")
	r := NewResolverFromClients(map[Class]Client{
		ClassBasic:     basic,
		ClassReasoning: reasoning,
		ClassVision:    basic,
	})

	c, err := r.Select(ClassBasic, false)
	require.NoError(t, err)
	assert.Equal(t, "basic-model", c.Model())

	c, err = r.Select(ClassBasic, true)
	require.NoError(t, err)
	assert.Equal(t, "reasoning-model", c.Model())

	c, err = r.Select(ClassVision, true)
	require.NoError(t, err)
	assert.Equal(t, "basic-model", c.Model())
}
