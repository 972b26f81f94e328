package worker

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/fabriziosalmi/newsportal/internal/llm"
	"github.com/fabriziosalmi/newsportal/internal/metrics"
	"github.com/fabriziosalmi/newsportal/internal/models"
	"github.com/fabriziosalmi/newsportal/internal/queue"
	"github.com/hibiken/asynq"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const (
	outcomeSaved      = "saved"
	outcomeDuplicate  = "duplicate"
	outcomeIncomplete = "incomplete"
	outcomeFailed     = "failed"
)

// SummarizeProcessor handles TypeNewsSummarize: it asks the LLM for recent
// news about one keyword and saves every new article for the tenant.
type SummarizeProcessor struct {
	store      SummaryWriter
	news       llm.NewsClient
	maxResults int
	log        *zap.Logger
	limiter    *rate.Limiter
}

// NewSummarizeProcessor builds the processor. ratePerSec <= 0 disables the
// LLM call limiter.
func NewSummarizeProcessor(store SummaryWriter, news llm.NewsClient, maxResults int, ratePerSec float64, log *zap.Logger) *SummarizeProcessor {
	var limiter *rate.Limiter
	if ratePerSec > 0 {
		limiter = rate.NewLimiter(rate.Limit(ratePerSec), 1)
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &SummarizeProcessor{
		store:      store,
		news:       news,
		maxResults: maxResults,
		log:        log,
		limiter:    limiter,
	}
}

func (p *SummarizeProcessor) ProcessTask(ctx context.Context, t *asynq.Task) error {
	payload, err := queue.ParseSummarizePayload(t)
	if err != nil {
		return fmt.Errorf("parse payload: %v: %w", err, asynq.SkipRetry)
	}
	log := p.log.With(zap.String("tenant_id", payload.UserID), zap.String("keyword", payload.Keyword))

	if err := p.store.EnsureTenant(ctx, payload.UserID); err != nil {
		return fmt.Errorf("ensure tenant: %w", err)
	}

	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit wait: %w", err)
		}
	}

	items, err := p.news.FetchNews(ctx, payload.Keyword, p.maxResults)
	if err != nil {
		return fmt.Errorf("fetch news: %w", err)
	}

	saved := 0
	for _, item := range items {
		outcome, err := p.save(ctx, payload, item)
		metrics.SummariesIngestedTotal.WithLabelValues(outcome).Inc()
		if err != nil {
			// One bad article should not cost the others.
			log.Warn("failed to save summary", zap.String("url", item.URL), zap.Error(err))
			continue
		}
		if outcome == outcomeSaved {
			saved++
		}
	}

	log.Info("keyword summarized",
		zap.Int("found", len(items)),
		zap.Int("saved", saved),
		zap.String("model", p.news.ModelName()),
	)
	return nil
}

func (p *SummarizeProcessor) save(ctx context.Context, payload queue.SummarizePayload, item llm.NewsItem) (string, error) {
	title := strings.TrimSpace(item.Title)
	url := strings.TrimSpace(item.URL)
	if title == "" || url == "" {
		return outcomeIncomplete, nil
	}

	exists, err := p.store.URLExists(ctx, payload.UserID, url)
	if err != nil {
		return outcomeFailed, fmt.Errorf("check url: %w", err)
	}
	if exists {
		return outcomeDuplicate, nil
	}

	s := &models.Summary{
		TenantID:    payload.UserID,
		Title:       title,
		URL:         url,
		Summary:     item.Summary,
		Keyword:     payload.Keyword,
		SourceName:  item.SourceName,
		PublishedAt: item.PublishedAt,
		TokenCount:  len(strings.Fields(item.Summary)),
		Type:        models.SummaryTypeGrounding,
		Metadata: map[string]any{
			"model":          p.news.ModelName(),
			"prompt_version": llm.PromptVersion,
		},
		CreatedAt: models.Now(),
	}
	if err := p.store.CreateSummary(ctx, s); err != nil {
		if errors.Is(err, models.ErrDuplicate) {
			return outcomeDuplicate, nil
		}
		return outcomeFailed, fmt.Errorf("create summary: %w", err)
	}
	return outcomeSaved, nil
}
