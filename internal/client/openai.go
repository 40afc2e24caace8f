package client

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"
)

// OpenAIClient wraps the OpenAI API client. The same type talks to Azure
// OpenAI when built with NewAzureOpenAIClient.
type OpenAIClient struct {
	client *openai.Client
	model  string
	name   string
}

// NewOpenAIClient creates a new OpenAI client.
func NewOpenAIClient(apiKey, model string) *OpenAIClient {
	return NewOpenAIClientWithConfig(openai.DefaultConfig(apiKey), model)
}

// NewOpenAIClientWithConfig creates a client from an explicit go-openai config.
func NewOpenAIClientWithConfig(cfg openai.ClientConfig, model string) *OpenAIClient {
	if model == "" {
		model = openai.GPT4oMini
	}
	return &OpenAIClient{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		name:   "openai",
	}
}

// NewAzureOpenAIClient creates a client for an Azure OpenAI deployment.
// deployment is used both as the model and as the Azure deployment name.
func NewAzureOpenAIClient(endpoint, apiKey, apiVersion, deployment string) *OpenAIClient {
	cfg := openai.DefaultAzureConfig(apiKey, endpoint)
	if apiVersion != "" {
		cfg.APIVersion = apiVersion
	}
	cfg.AzureModelMapperFunc = func(string) string { return deployment }

	c := NewOpenAIClientWithConfig(cfg, deployment)
	c.name = "azure_openai"
	return c
}

// Name implements ChatCompleter.
func (c *OpenAIClient) Name() string {
	return c.name
}

// Model returns the configured model.
func (c *OpenAIClient) Model() string {
	return c.model
}

// ChatWithHistory sends a chat with message history.
func (c *OpenAIClient) ChatWithHistory(ctx context.Context, messages []Message) (string, error) {
	msgs := make([]openai.ChatCompletionMessage, 0, len(messages))
	for _, m := range messages {
		msgs = append(msgs, openai.ChatCompletionMessage{
			Role:    m.Role,
			Content: m.Content,
		})
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    c.model,
		Messages: msgs,
	})
	if err != nil {
		return "", err
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("no choices returned from %s", c.name)
	}

	return resp.Choices[0].Message.Content, nil
}
