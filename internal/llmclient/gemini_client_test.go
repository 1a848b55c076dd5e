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
	"google.golang.org/genai"

	"github.com/xkilldash9x/autopilot/internal/config"
)

func TestGeminiClient_GenerateObject(t *testing.T) {
	var captured map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.URL.Path, ":generateContent") {
			http.NotFound(w, r)
			return
		}
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(body, &captured))

		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{
			"candidates": [{"content": {"role": "model", "parts": [{"text": "{\"Mitochondria\": true}"}]}}],
			"usageMetadata": {"promptTokenCount": 3, "candidatesTokenCount": 2, "totalTokenCount": 5}
		}`)
	}))
	defer srv.Close()

	c, err := NewGeminiClient(context.Background(), config.LLMConfig{
		Provider: config.ProviderGemini,
		Model:    "gemini-2.5-flash",
		APIKey:   "key",
		BaseURL:  srv.URL,
	}, zap.NewNop())
	require.NoError(t, err)

	var schema Schema
	schema.Add(Field{Name: "Mitochondria", Kind: KindBoolean})
	obj, err := c.GenerateObject(context.Background(), ObjectRequest{Prompt: "Which organelle?", Schema: schema})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"Mitochondria": true}, obj)

	gc, ok := captured["generationConfig"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "application/json", gc["responseMimeType"])
}

func TestToGenaiSchema(t *testing.T) {
	var schema Schema
	schema.Add(Field{Name: "0", Kind: KindString})
	schema.Add(Field{Name: "1", Kind: KindEnum, Options: []string{"A", "B"}})
	schema.Add(Field{Name: "Cell wall", Kind: KindBoolean})

	got := toGenaiSchema(schema)
	assert.Equal(t, genai.TypeObject, got.Type)
	assert.Equal(t, []string{"0", "1", "Cell wall"}, got.Required)
	assert.Equal(t, []string{"0", "1", "Cell wall"}, got.PropertyOrdering)
	assert.Equal(t, genai.TypeString, got.Properties["0"].Type)
	assert.Equal(t, []string{"A", "B"}, got.Properties["1"].Enum)
	assert.Equal(t, genai.TypeBoolean, got.Properties["Cell wall"].Type)
}
