package llmclient

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/xkilldash9x/autopilot/internal/config"
)

// chatServer answers chat completions with content and records the last request body.
func chatServer(t *testing.T, content string, captured *map[string]any) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/chat/completions") {
			http.NotFound(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		var req map[string]any
		require.NoError(t, json.Unmarshal(body, &req))
		*captured = req

		w.Header().Set("Content-Type", "application/json")
		resp := map[string]any{
			"id":      "chatcmpl-test",
			"object":  "chat.completion",
			"created": 1700000000,
			"model":   "o4-mini",
			"choices": []any{map[string]any{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]any{"role": "assistant", "content": content},
			}},
			"usage": map[string]any{"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestOpenAI(t *testing.T, srv *httptest.Server) *OpenAIClient {
	t.Helper()
	c, err := NewOpenAIClient(config.LLMConfig{
		Model:           "o4-mini",
		APIKey:          "sk-test",
		BaseURL:         srv.URL + "/v1/",
		ReasoningEffort: "medium",
	}, zap.NewNop())
	require.NoError(t, err)
	return c
}

func TestOpenAIClient_GenerateObject(t *testing.T) {
	var req map[string]any
	srv := chatServer(t, `{"0":"chlorophyll","1":"B"}`, &req)
	c := newTestOpenAI(t, srv)

	var schema Schema
	schema.Add(Field{Name: "0", Kind: KindString})
	schema.Add(Field{Name: "1", Kind: KindEnum, Options: []string{"A", "B"}})

	obj, err := c.GenerateObject(context.Background(), ObjectRequest{
		Prompt:          "What pigment?",
		Image:           []byte{0x89, 'P', 'N', 'G'},
		Schema:          schema,
		ReasoningEffort: EffortLow,
	})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"0": "chlorophyll", "1": "B"}, obj)

	assert.Equal(t, "o4-mini", req["model"])
	assert.Equal(t, "low", req["reasoning_effort"], "request effort overrides the configured default")
	format, ok := req["response_format"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "json_schema", format["type"])
	jsonSchema := format["json_schema"].(map[string]any)
	assert.Equal(t, "answers", jsonSchema["name"])
	assert.Equal(t, true, jsonSchema["strict"])

	messages := req["messages"].([]any)
	require.Len(t, messages, 1)
	parts := messages[0].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	image := parts[1].(map[string]any)["image_url"].(map[string]any)
	assert.True(t, strings.HasPrefix(image["url"].(string), "data:image/png;base64,"))
}

func TestOpenAIClient_GenerateObjectRejectsMismatch(t *testing.T) {
	var req map[string]any
	srv := chatServer(t, `{"0":"x","1":"Z"}`, &req)
	c := newTestOpenAI(t, srv)

	var schema Schema
	schema.Add(Field{Name: "0", Kind: KindString})
	schema.Add(Field{Name: "1", Kind: KindEnum, Options: []string{"A", "B"}})

	_, err := c.GenerateObject(context.Background(), ObjectRequest{Prompt: "q", Schema: schema})
	assert.ErrorIs(t, err, ErrSchemaMismatch)
}

func TestOpenAIClient_GenerateText(t *testing.T) {
	var req map[string]any
	srv := chatServer(t, "# Answers\n\n1. Mitosis", &req)
	c := newTestOpenAI(t, srv)

	text, err := c.GenerateText(context.Background(), TextRequest{
		System: "Answer in standard markdown.",
		User:   "Answer all parts of this worksheet.",
		Files:  []File{{Name: "instructions-pt0.pdf", MediaType: "application/pdf", Data: []byte("%PDF-1.4")}},
	})
	require.NoError(t, err)
	assert.Equal(t, "# Answers\n\n1. Mitosis", text)

	assert.Equal(t, "medium", req["reasoning_effort"])
	messages := req["messages"].([]any)
	require.Len(t, messages, 2)
	assert.Equal(t, "system", messages[0].(map[string]any)["role"])
	parts := messages[1].(map[string]any)["content"].([]any)
	require.Len(t, parts, 2)
	file := parts[1].(map[string]any)["file"].(map[string]any)
	assert.Equal(t, "instructions-pt0.pdf", file["filename"])
	assert.True(t, strings.HasPrefix(file["file_data"].(string), "data:application/pdf;base64,"))
}

func TestOpenAIClient_EmptyResponse(t *testing.T) {
	var req map[string]any
	srv := chatServer(t, "", &req)
	c := newTestOpenAI(t, srv)

	_, err := c.GenerateText(context.Background(), TextRequest{User: "hi"})
	assert.ErrorIs(t, err, ErrEmptyResponse)
}
