package aireview

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/openkb/review-core/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const anthropicStubResponse = `{
	"id": "msg_01",
	"type": "message",
	"role": "assistant",
	"model": "stub-model",
	"content": [{"type": "text", "text": "{\"decision\":true,\"confidence\":0.9,\"violation_types\":[]}"}],
	"stop_reason": "end_turn",
	"usage": {"input_tokens": 10, "output_tokens": 5}
}`

func captureServer(t *testing.T, response string, captured *map[string]interface{}) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		data, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.NoError(t, json.Unmarshal(data, captured))
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, response)
	}))
}

func TestCallModelAnthropicSendsTemperature(t *testing.T) {
	var body map[string]interface{}
	srv := captureServer(t, anthropicStubResponse, &body)
	defer srv.Close()

	m := &models.AIModelConfig{
		Provider:    "anthropic",
		Name:        "stub",
		ModelID:     "stub-model",
		Endpoint:    srv.URL,
		APIKey:      "test-key",
		Temperature: 0.7,
	}

	result, err := callModel(context.Background(), m, "system", "user")
	require.NoError(t, err)
	assert.Contains(t, result.raw, `"decision":true`)

	require.Contains(t, body, "temperature")
	assert.Equal(t, 0.7, body["temperature"])
}

func TestCallOpenAICompatibleSendsTemperature(t *testing.T) {
	var body map[string]interface{}
	srv := captureServer(t, `{
		"choices": [{"message": {"content": "{\"decision\":false,\"confidence\":0.85,\"violation_types\":[\"porn\"]}"}}],
		"usage": {"prompt_tokens": 20, "completion_tokens": 8}
	}`, &body)
	defer srv.Close()

	m := &models.AIModelConfig{
		Provider:    "openai-compatible",
		Name:        "stub",
		ModelID:     "stub-model",
		Endpoint:    srv.URL,
		APIKey:      "test-key",
		Temperature: 0.3,
	}

	result, err := callModel(context.Background(), m, "system", "user")
	require.NoError(t, err)
	assert.Equal(t, 20, result.promptTokens)
	assert.Equal(t, 8, result.completionTokens)

	require.Contains(t, body, "temperature")
	assert.Equal(t, 0.3, body["temperature"])
}
