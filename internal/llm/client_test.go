package llm_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oggyb/tubematch/internal/config"
	"github.com/oggyb/tubematch/internal/llm"
)

func newClient(t *testing.T, h http.HandlerFunc) *llm.Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return llm.NewClient(config.LLMConfig{
		BaseURL:        srv.URL + "/v1/",
		APIKey:         "sk-test",
		Model:          "chat-model",
		EmbeddingModel: "embed-model",
		Timeout:        5 * time.Second,
	})
}

func completion(content string) map[string]any {
	return map[string]any{"choices": []any{map[string]any{"message": map[string]any{"role": "assistant", "content": content}}}}
}

func TestChatJSON_SendsJSONModeAndDecodes(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "chat-model", body["model"])
		assert.Equal(t, map[string]any{"type": "json_object"}, body["response_format"])

		_ = json.NewEncoder(w).Encode(completion("```json\n{\"score\": 81}\n```"))
	})

	var out struct{ Score int }
	require.NoError(t, c.ChatJSON(context.Background(), []llm.Message{llm.User("rate")}, &out))
	assert.Equal(t, 81, out.Score)
}

func TestChat_ReturnsContent(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(completion("You like science channels."))
	})
	got, err := c.Chat(context.Background(), []llm.Message{llm.System("s"), llm.User("q")})
	require.NoError(t, err)
	assert.Equal(t, "You like science channels.", got)
}

func TestEmbed(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/embeddings", r.URL.Path)
		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "embed-model", body["model"])
		assert.Equal(t, []any{"chess"}, body["input"])
		_ = json.NewEncoder(w).Encode(map[string]any{"data": []any{map[string]any{"embedding": []float32{0.1, 0.2}}}})
	})
	vec, err := c.Embed(context.Background(), "chess")
	require.NoError(t, err)
	assert.Equal(t, []float32{0.1, 0.2}, vec)
}

func TestUpstreamErrors(t *testing.T) {
	c := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"requests"}}`))
	})
	_, err := c.Chat(context.Background(), []llm.Message{llm.User("q")})
	var apiErr *llm.APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusTooManyRequests, apiErr.Status)
	assert.Equal(t, "rate limited", apiErr.Message)

	// a proxy answering with plain text still reports its status
	plain := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	})
	_, err = plain.Embed(context.Background(), "chess")
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)

	empty := newClient(t, func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"choices": []any{}})
	})
	_, err = empty.Chat(context.Background(), nil)
	assert.Error(t, err)
}

func TestNotConfigured(t *testing.T) {
	c := llm.NewClient(config.LLMConfig{BaseURL: "http://unused"})
	_, err := c.Embed(context.Background(), "x")
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
	_, err = c.Chat(context.Background(), []llm.Message{llm.User("q")})
	assert.ErrorIs(t, err, llm.ErrNotConfigured)
}
