package llm

import (
	"context"
	"fmt"

	"github.com/fabriziosalmi/newsportal/internal/config"
)

// NewsItem is one article found and summarized for a keyword.
type NewsItem struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Summary     string `json:"summary"`
	SourceName  string `json:"source_name"`
	PublishedAt string `json:"published_at"`
}

// NewsClient finds recent articles for a keyword and summarizes them.
type NewsClient interface {
	FetchNews(ctx context.Context, keyword string, maxResults int) ([]NewsItem, error)
	ModelName() string
}

// New builds the client for cfg.Provider.
func New(cfg config.LLMConfig) (NewsClient, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("llm: api key is not configured")
	}
	switch cfg.Provider {
	case "openai":
		return NewOpenAIClient(cfg.APIKey, cfg.Model, cfg.RequestTimeout), nil
	case "anthropic":
		return NewAnthropicClient(cfg.APIKey, cfg.Model, cfg.RequestTimeout), nil
	default:
		return nil, fmt.Errorf("llm: unknown provider %q", cfg.Provider)
	}
}
