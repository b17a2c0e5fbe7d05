package anthropic

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func messagesResponse() string {
	return `{
		"id": "msg_01",
		"type": "message",
		"role": "assistant",
		"model": "claude-sonnet-4-5-20250929",
		"content": [{"type": "text", "text": "{\"insuranceProviders\":[\"Aetna\"]}"}],
		"stop_reason": "end_turn",
		"usage": {"input_tokens": 210, "output_tokens": 33}
	}`
}

func TestCreateMessage(t *testing.T) {
	var gotBody map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("X-Api-Key"))
		raw, _ := io.ReadAll(r.Body)
		require.NoError(t, json.Unmarshal(raw, &gotBody))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(messagesResponse()))
	}))
	defer srv.Close()

	c := NewClient("test-key", option.WithBaseURL(srv.URL))

	resp, err := c.CreateMessage(context.Background(), MessageRequest{
		Model:     "claude-sonnet-4-5-20250929",
		MaxTokens: 1024,
		System:    "You extract insurance data.",
		Messages:  []Message{{Role: "user", Content: "page text"}},
	})
	require.NoError(t, err)

	assert.Equal(t, "msg_01", resp.ID)
	assert.Equal(t, "end_turn", resp.StopReason)
	assert.Equal(t, `{"insuranceProviders":["Aetna"]}`, resp.Text())
	assert.Equal(t, int64(210), resp.Usage.InputTokens)
	assert.Equal(t, int64(33), resp.Usage.OutputTokens)

	assert.Equal(t, "claude-sonnet-4-5-20250929", gotBody["model"])
	assert.EqualValues(t, 1024, gotBody["max_tokens"])
}

func TestCreateMessageAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"type":"error","error":{"type":"invalid_request_error","message":"max_tokens required"}}`))
	}))
	defer srv.Close()

	c := NewClient("test-key", option.WithBaseURL(srv.URL), option.WithMaxRetries(0))

	_, err := c.CreateMessage(context.Background(), MessageRequest{
		Model:    "claude-sonnet-4-5-20250929",
		Messages: []Message{{Role: "user", Content: "page text"}},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "anthropic: create message")
}

func TestResponseTextSkipsNonText(t *testing.T) {
	resp := &MessageResponse{Content: []ContentBlock{
		{Type: "tool_use", Text: ""},
		{Type: "text", Text: "hello "},
		{Type: "text", Text: "world"},
	}}
	assert.Equal(t, "hello world", resp.Text())
}
