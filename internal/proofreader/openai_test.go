package proofreader

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const completedResponse = `{
  "id": "resp_1",
  "object": "response",
  "created_at": 1700000000,
  "status": "completed",
  "model": "gpt-4-turbo-preview",
  "output": [
    {
      "type": "message",
      "id": "msg_1",
      "status": "completed",
      "role": "assistant",
      "content": [
        {"type": "output_text", "text": "  Hello, world.  ", "annotations": []}
      ]
    }
  ]
}`

const incompleteResponse = `{
  "id": "resp_2",
  "object": "response",
  "created_at": 1700000000,
  "status": "incomplete",
  "incomplete_details": {"reason": "max_output_tokens"},
  "model": "gpt-4-turbo-preview",
  "output": []
}`

func newTestCompleter(t *testing.T, handler http.HandlerFunc) *OpenAICompleter {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewOpenAICompleter(OpenAIConfig{
		APIKey:      "sk-test",
		BaseURL:     srv.URL + "/v1/",
		Model:       "gpt-4-turbo-preview",
		Temperature: 0.5,
		MaxTokens:   1500,
		MaxRetries:  0,
	})
	require.NoError(t, err)

	return c
}

func writeJSON(w http.ResponseWriter, code int, body string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_, _ = io.WriteString(w, body)
}

func TestOpenAICompleterSendsParameters(t *testing.T) {
	var got map[string]any

	c := newTestCompleter(t, func(w http.ResponseWriter, r *http.Request) {
		if !strings.HasSuffix(r.URL.Path, "/responses") {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("Authorization") != "Bearer sk-test" {
			writeJSON(w, http.StatusUnauthorized, `{"error":{"message":"bad key"}}`)
			return
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			writeJSON(w, http.StatusBadRequest, `{"error":{"message":"bad json"}}`)
			return
		}
		writeJSON(w, http.StatusOK, completedResponse)
	})

	out, err := c.Complete(context.Background(), "be a proofreader", "check this")
	require.NoError(t, err)
	require.Equal(t, "Hello, world.", out)

	require.Equal(t, "gpt-4-turbo-preview", got["model"])
	require.Equal(t, "be a proofreader", got["instructions"])
	require.Equal(t, "check this", got["input"])
	require.InDelta(t, 0.5, got["temperature"], 1e-9)
	require.InDelta(t, 1500, got["max_output_tokens"], 1e-9)
}

func TestOpenAICompleterIncompleteResponse(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, incompleteResponse)
	})

	_, err := c.Complete(context.Background(), "i", "p")
	require.ErrorContains(t, err, "incomplete")
}

func TestOpenAICompleterAPIError(t *testing.T) {
	c := newTestCompleter(t, func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusBadRequest, `{"error":{"message":"model not found","type":"invalid_request_error"}}`)
	})

	_, err := c.Complete(context.Background(), "i", "p")
	require.Error(t, err)
}

func TestNewOpenAICompleterValidates(t *testing.T) {
	_, err := NewOpenAICompleter(OpenAIConfig{APIKey: " ", Model: "m"})
	require.Error(t, err)

	_, err = NewOpenAICompleter(OpenAIConfig{APIKey: "k", Model: ""})
	require.Error(t, err)
}
