package openai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nithinv16/dukaaon-extractor/internal/llm"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewClient(Config{
		APIKey:      "test-key",
		BaseURL:     srv.URL,
		FastModel:   "fast-model",
		VisionModel: "vision-model",
	}, nil)
}

func TestInvokeDecodesContentAndUsage(t *testing.T) {
	var got map[string]any
	c := newTestClient(t, func(rw http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		_, _ = rw.Write([]byte(`{
			"choices":[{"message":{"content":"  [{\"name\":\"Tata Salt\",\"quantity\":2}]  "}}],
			"usage":{"prompt_tokens":120,"completion_tokens":30,"total_tokens":150}
		}`))
	})

	resp, err := c.Invoke(context.Background(), llm.InvokeRequest{
		Tier:      llm.TierFast,
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: "extract"}},
		MaxTokens: 500,
	})

	require.NoError(t, err)
	assert.Equal(t, `[{"name":"Tata Salt","quantity":2}]`, resp.Content, "content is trimmed")
	assert.Equal(t, 150, resp.Usage.TotalTokens)

	assert.Equal(t, "fast-model", got["model"])
	assert.Equal(t, float64(500), got["max_tokens"])
}

func TestInvokeMapsTiersToModels(t *testing.T) {
	var model string
	c := newTestClient(t, func(rw http.ResponseWriter, r *http.Request) {
		var body map[string]any
		_ = json.NewDecoder(r.Body).Decode(&body)
		model, _ = body["model"].(string)
		_, _ = rw.Write([]byte(`{"choices":[{"message":{"content":"ok"}}]}`))
	})

	_, err := c.Invoke(context.Background(), llm.InvokeRequest{Tier: llm.TierVision})
	require.NoError(t, err)
	assert.Equal(t, "vision-model", model)
}

func TestInvokeDecodesToolCalls(t *testing.T) {
	c := newTestClient(t, func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte(`{"choices":[{"message":{
			"content":"",
			"tool_calls":[{"id":"call_1","function":{"name":"web_search","arguments":"{\"query\":\"bikano\"}"}}]
		}}]}`))
	})

	resp, err := c.Invoke(context.Background(), llm.InvokeRequest{Tier: llm.TierVision})

	require.NoError(t, err)
	require.Len(t, resp.ToolCalls, 1)
	assert.Equal(t, "call_1", resp.ToolCalls[0].ID)
	assert.Equal(t, "web_search", resp.ToolCalls[0].Name)
	assert.JSONEq(t, `{"query":"bikano"}`, string(resp.ToolCalls[0].Arguments))
}

func TestInvokeFailsFastOnClientError(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(rw http.ResponseWriter, _ *http.Request) {
		calls++
		rw.WriteHeader(http.StatusBadRequest)
		_, _ = rw.Write([]byte(`{"error":{"message":"bad request"}}`))
	})

	_, err := c.Invoke(context.Background(), llm.InvokeRequest{Tier: llm.TierFast})

	require.Error(t, err)
	assert.Equal(t, 1, calls, "4xx other than 429 must not be retried")
}

func TestInvokeRejectsEmptyChoices(t *testing.T) {
	c := newTestClient(t, func(rw http.ResponseWriter, _ *http.Request) {
		_, _ = rw.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Invoke(context.Background(), llm.InvokeRequest{Tier: llm.TierFast})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestEncodeMessagesImageExpansion(t *testing.T) {
	msgs := encodeMessages([]llm.Message{
		{Role: llm.RoleSystem, Content: "sys"},
		{Role: llm.RoleUser, Content: "look", ImageURL: "data:image/jpeg;base64,AAAA"},
	})

	require.Len(t, msgs, 2)
	assert.Equal(t, "sys", msgs[0]["content"])

	parts, ok := msgs[1]["content"].([]map[string]any)
	require.True(t, ok, "image messages become multi-part content")
	require.Len(t, parts, 2)
	assert.Equal(t, "image_url", parts[1]["type"])
}

func TestEncodeMessagesToolCallArguments(t *testing.T) {
	// Re-encoded assistant tool calls must carry the arguments as a single
	// serialized string, never as a nested object or a doubly quoted literal.
	msgs := encodeMessages([]llm.Message{
		{Role: llm.RoleAssistant, ToolCalls: []llm.ToolCall{
			{ID: "call_1", Name: "web_search", Arguments: json.RawMessage(`{"query":"bikano"}`)},
		}},
	})

	require.Len(t, msgs, 1)
	calls, ok := msgs[0]["tool_calls"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, calls, 1)

	fn, ok := calls[0]["function"].(map[string]any)
	require.True(t, ok)
	args, ok := fn["arguments"].(string)
	require.True(t, ok, "arguments go over the wire as a string")
	assert.JSONEq(t, `{"query":"bikano"}`, args)
}

func TestImageDataURL(t *testing.T) {
	assert.Equal(t, "data:image/png;base64,aGk=", ImageDataURL([]byte("hi"), "image/png"))
	assert.Contains(t, ImageDataURL([]byte("hi"), ""), "data:image/jpeg;base64,", "mime type defaults to jpeg")
}
