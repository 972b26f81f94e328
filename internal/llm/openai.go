package llm

import (
	"context"
	"fmt"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

type OpenAIClient struct {
	client *openai.Client
	model  openai.ChatModel
}

func NewOpenAIClient(apiKey, model string, timeout time.Duration) *OpenAIClient {
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	client := openai.NewClient(opts...)
	m := openai.ChatModelGPT4oMini
	if model != "" {
		m = openai.ChatModel(model)
	}
	return &OpenAIClient{client: &client, model: m}
}

func (c *OpenAIClient) ModelName() string { return string(c.model) }

func (c *OpenAIClient) FetchNews(ctx context.Context, keyword string, maxResults int) ([]NewsItem, error) {
	resp, err := c.client.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: c.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(newsSystemPrompt),
			openai.UserMessage(newsUserPrompt(keyword, maxResults)),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("openai API error: %w", err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no response from openai")
	}

	items, err := parseNewsItems(resp.Choices[0].Message.Content)
	if err != nil {
		return nil, err
	}
	return limitItems(items, maxResults), nil
}
