package openaicompat

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

func chatOK(t *testing.T, handler func(r *http.Request, body chatRequest)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body chatRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if handler != nil {
			handler(r, body)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":    "chatcmpl-1",
			"model": body.Model,
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": "pong"}, "finish_reason": "stop"},
			},
			"usage": map[string]int{"prompt_tokens": 7, "completion_tokens": 3, "total_tokens": 10},
		})
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestCompletion(t *testing.T) {
	var gotAuth string
	srv := chatOK(t, func(r *http.Request, body chatRequest) {
		gotAuth = r.Header.Get("Authorization")
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "deepseek-chat", body.Model)
		require.Len(t, body.Messages, 2)
		assert.Equal(t, "system", body.Messages[0].Role)
	})

	p := NewDeepSeek(providers.Config{APIKey: "sk-test", BaseURL: srv.URL}, nil)
	resp, err := p.Completion(testutil.TestContext(t), &llm.ChatRequest{
		Model: "deepseek-chat",
		Messages: []types.Message{
			types.NewSystemMessage("you are terse"),
			types.NewUserMessage("ping"),
		},
	})
	require.NoError(t, err)
	assert.Equal(t, "deepseek", resp.Provider)
	assert.Equal(t, "pong", resp.Content)
	assert.Equal(t, 10, resp.Usage.TotalTokens)
	assert.Equal(t, "Bearer sk-test", gotAuth)
}

func TestCompletionFallsBackToDefaultModel(t *testing.T) {
	srv := chatOK(t, func(r *http.Request, body chatRequest) {
		assert.Equal(t, "gpt-4o-mini", body.Model)
	})

	p := New("openai", providers.Config{BaseURL: srv.URL, Model: "gpt-4o-mini"}, nil)
	_, err := p.Completion(testutil.TestContext(t), &llm.ChatRequest{
		Messages: []types.Message{types.NewUserMessage("ping")},
	})
	require.NoError(t, err)
}

func TestCompletionErrorMapping(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		code      types.ErrorCode
		retryable bool
	}{
		{"rate limited", http.StatusTooManyRequests, types.ErrProviderUnavailable, true},
		{"server error", http.StatusInternalServerError, types.ErrProviderUnavailable, true},
		{"bad key", http.StatusUnauthorized, types.ErrExecution, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(`{"error": {"message": "upstream unhappy", "type": "server_error"}}`))
			}))
			t.Cleanup(srv.Close)

			p := New("glm", providers.Config{BaseURL: srv.URL}, nil)
			_, err := p.Completion(testutil.TestContext(t), &llm.ChatRequest{
				Messages: []types.Message{types.NewUserMessage("ping")},
			})
			require.Error(t, err)
			assert.True(t, types.IsCode(err, tt.code))
			assert.Contains(t, err.Error(), "upstream unhappy")

			var perr *types.Error
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.retryable, perr.Retryable)
		})
	}
}

func TestCompletionNoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"id": "chatcmpl-1", "choices": []}`))
	}))
	t.Cleanup(srv.Close)

	p := New("openai", providers.Config{BaseURL: srv.URL}, nil)
	_, err := p.Completion(testutil.TestContext(t), &llm.ChatRequest{
		Messages: []types.Message{types.NewUserMessage("ping")},
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrExecution))
}

func TestHealthCheck(t *testing.T) {
	healthy := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/models", r.URL.Path)
		_, _ = w.Write([]byte(`{"data": []}`))
	}))
	t.Cleanup(healthy.Close)

	p := New("openai", providers.Config{BaseURL: healthy.URL}, nil)
	status, err := p.HealthCheck(testutil.TestContext(t))
	require.NoError(t, err)
	assert.True(t, status.Healthy)

	broken := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	t.Cleanup(broken.Close)

	p = New("openai", providers.Config{BaseURL: broken.URL}, nil)
	status, err = p.HealthCheck(testutil.TestContext(t))
	require.Error(t, err)
	assert.False(t, status.Healthy)
}

func TestCompletionRespectsCancelledContext(t *testing.T) {
	srv := chatOK(t, nil)
	p := New("openai", providers.Config{BaseURL: srv.URL}, nil)

	_, err := p.Completion(testutil.CancelledContext(), &llm.ChatRequest{
		Messages: []types.Message{types.NewUserMessage("ping")},
	})
	require.Error(t, err)
	assert.True(t, types.IsCode(err, types.ErrProviderUnavailable))
}
