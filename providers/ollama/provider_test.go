package ollama

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/goblinos/overmind/llm"
	"github.com/goblinos/overmind/providers"
	"github.com/goblinos/overmind/testutil"
	"github.com/goblinos/overmind/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompletion(t *testing.T) {
	var got ollamaRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		assert.Equal(t, "/api/chat", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"model":             got.Model,
			"message":           map[string]string{"role": "assistant", "content": "pong"},
			"done":              true,
			"prompt_eval_count": 5,
			"eval_count":        2,
		})
	}))
	t.Cleanup(srv.Close)

	p := New(providers.Config{BaseURL: srv.URL}, nil)
	resp, err := p.Completion(testutil.TestContext(t), &llm.ChatRequest{
		Model:       "llama3.2:3b",
		Temperature: 0.2,
		Messages:    []types.Message{types.NewUserMessage("ping")},
	})
	require.NoError(t, err)

	assert.False(t, got.Stream)
	assert.Equal(t, "llama3.2:3b", got.Model)
	require.NotNil(t, got.Options)
	assert.InDelta(t, 0.2, got.Options["temperature"], 1e-6)

	assert.Equal(t, "ollama", resp.Provider)
	assert.Equal(t, "pong", resp.Content)
	assert.Equal(t, 7, resp.Usage.TotalTokens)
}

func TestCompletionErrorMapping(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte("model not loaded"))
	}))
	t.Cleanup(srv.Close)

	p := New(providers.Config{BaseURL: srv.URL}, nil)
	_, err := p.Completion(testutil.TestContext(t), &llm.ChatRequest{
		Messages: []types.Message{types.NewUserMessage("ping")},
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrProviderUnavailable))
	assert.Contains(t, err.Error(), "model not loaded")
}

func TestHealthCheck(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/tags", r.URL.Path)
		_, _ = w.Write([]byte(`{"models": []}`))
	}))
	t.Cleanup(srv.Close)

	p := New(providers.Config{BaseURL: srv.URL}, nil)
	status, err := p.HealthCheck(testutil.TestContext(t))
	require.NoError(t, err)
	assert.True(t, status.Healthy)
}
