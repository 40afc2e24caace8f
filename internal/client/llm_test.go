package client

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/genai"
)

func chatCompletionHandler(t *testing.T, wantPath string, reply string, check func(r *http.Request, req openai.ChatCompletionRequest)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, wantPath, r.URL.Path)

		var req openai.ChatCompletionRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		if check != nil {
			check(r, req)
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(openai.ChatCompletionResponse{
			Choices: []openai.ChatCompletionChoice{{
				Message: openai.ChatCompletionMessage{Role: RoleAssistant, Content: reply},
			}},
		})
	}
}

func TestOpenAIClient_ChatWithHistory(t *testing.T) {
	srv := httptest.NewServer(chatCompletionHandler(t, "/v1/chat/completions", "Bonjour!", func(r *http.Request, req openai.ChatCompletionRequest) {
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		assert.Equal(t, "gpt-4o-mini", req.Model)
		require.Len(t, req.Messages, 2)
		assert.Equal(t, RoleSystem, req.Messages[0].Role)
		assert.Equal(t, "hi", req.Messages[1].Content)
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("sk-test")
	cfg.BaseURL = srv.URL + "/v1"
	c := NewOpenAIClientWithConfig(cfg, "")

	got, err := c.ChatWithHistory(context.Background(), []Message{
		{Role: RoleSystem, Content: "be nice"},
		{Role: RoleUser, Content: "hi"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Bonjour!", got)
	assert.Equal(t, "openai", c.Name())
	assert.Equal(t, openai.GPT4oMini, c.Model())
}

func TestAzureOpenAIClient_UsesDeploymentPath(t *testing.T) {
	srv := httptest.NewServer(chatCompletionHandler(t, "/openai/deployments/coach-mini/chat/completions", "ok", func(r *http.Request, _ openai.ChatCompletionRequest) {
		assert.Equal(t, "az-key", r.Header.Get("api-key"))
		assert.Equal(t, "2024-06-01", r.URL.Query().Get("api-version"))
	}))
	defer srv.Close()

	c := NewAzureOpenAIClient(srv.URL, "az-key", "2024-06-01", "coach-mini")
	got, err := c.ChatWithHistory(context.Background(), []Message{{Role: RoleUser, Content: "x"}})
	require.NoError(t, err)
	assert.Equal(t, "ok", got)
	assert.Equal(t, "azure_openai", c.Name())
}

func TestOpenAIClient_NoChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	cfg := openai.DefaultConfig("k")
	cfg.BaseURL = srv.URL
	_, err := NewOpenAIClientWithConfig(cfg, "m").ChatWithHistory(context.Background(), nil)
	assert.Error(t, err)
}

func TestToGeminiContents(t *testing.T) {
	system, contents := toGeminiContents([]Message{
		{Role: RoleSystem, Content: "persona"},
		{Role: RoleAssistant, Content: "Hello!"},
		{Role: RoleUser, Content: "Hi"},
		{Role: RoleSystem, Content: "extra"},
	})

	assert.Equal(t, "persona\n\nextra", system)
	require.Len(t, contents, 2)
	assert.Equal(t, string(genai.RoleModel), contents[0].Role)
	assert.Equal(t, "Hello!", contents[0].Parts[0].Text)
	assert.Equal(t, string(genai.RoleUser), contents[1].Role)
}
