package gemini

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, srv *httptest.Server, opts ...Option) *Client {
	t.Helper()
	opts = append([]Option{
		WithBaseURL(srv.URL),
		WithHTTPClient(&http.Client{Timeout: 2 * time.Second}),
	}, opts...)
	c, err := NewClient("test-key", opts...)
	require.NoError(t, err)
	return c
}

func writeCompletion(t *testing.T, w http.ResponseWriter, content ...string) {
	t.Helper()
	choices := make([]map[string]any, 0, len(content))
	for i, c := range content {
		choices = append(choices, map[string]any{
			"index":         i,
			"message":       map[string]any{"role": "assistant", "content": c},
			"finish_reason": "stop",
		})
	}
	w.Header().Set("Content-Type", "application/json")
	require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
		"id":      "chatcmpl-1",
		"object":  "chat.completion",
		"created": 1700000000,
		"model":   "gemini-1.5-flash",
		"choices": choices,
	}))
}

func TestNewClient_Validation(t *testing.T) {
	_, err := NewClient(" ")
	require.Error(t, err)
	require.Contains(t, err.Error(), "api key")

	_, err = NewClient("k", WithModel(" "))
	require.Error(t, err)
	require.Contains(t, err.Error(), "model")

	c, err := NewClient("k")
	require.NoError(t, err)
	require.Equal(t, DefaultModel, c.Model())
}

func TestGenerate_HappyPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/chat/completions", r.URL.Path)
		require.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.Equal(t, "gemini-test", req.Model)
		require.False(t, req.Stream)
		require.Len(t, req.Messages, 1)
		require.Equal(t, openai.ChatMessageRoleUser, req.Messages[0].Role)
		require.Equal(t, "recommend something", req.Messages[0].Content)

		writeCompletion(t, w, "Try Ólafur Arnalds.")
	}))
	defer srv.Close()

	c := newTestClient(t, srv, WithModel("gemini-test"))
	out, err := c.Generate(context.Background(), "recommend something")
	require.NoError(t, err)
	require.Equal(t, "Try Ólafur Arnalds.", out)
}

func TestGenerate_FirstChoiceOnly(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w, "first", "second")
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv).Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Equal(t, "first", out)
}

func TestGenerate_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeCompletion(t, w)
	}))
	defer srv.Close()

	out, err := newTestClient(t, srv).Generate(context.Background(), "p")
	require.NoError(t, err)
	require.Empty(t, out)
}

func TestGenerate_APIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"API key not valid. Please pass a valid API key.","type":"invalid_request_error","code":401}}`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "API key not valid")

	var apiErr *openai.APIError
	require.ErrorAs(t, err, &apiErr)
	require.Equal(t, http.StatusUnauthorized, apiErr.HTTPStatusCode)
}

func TestGenerate_ServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`upstream exploded`))
	}))
	defer srv.Close()

	_, err := newTestClient(t, srv).Generate(context.Background(), "p")
	require.Error(t, err)
	require.Contains(t, err.Error(), "500")
}

func TestGenerate_ContextDeadline(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(time.Second):
		}
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err := newTestClient(t, srv).Generate(ctx, "p")
	require.Error(t, err)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
