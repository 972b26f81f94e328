package queue

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fabriziosalmi/newsportal/internal/config"
	"github.com/hibiken/asynq"
)

const (
	TypeSummaryCleanup = "summary:cleanup"
	TypeNewsSummarize  = "news:summarize"

	QueueCritical = "critical"
	QueueDefault  = "default"
	QueueLow      = "low"
)

// PubSubMessage mirrors the "message" object of a push subscription body.
// Data is base64-encoded JSON on the wire.
type PubSubMessage struct {
	Data        []byte `json:"data,omitempty"`
	MessageID   string `json:"messageId,omitempty"`
	PublishTime string `json:"publishTime,omitempty"`
}

// CleanupTrigger is the task payload for TypeSummaryCleanup. It keeps the
// push envelope shape so the same bytes can come from the scheduler, the
// admin API or an external publisher.
type CleanupTrigger struct {
	Message PubSubMessage `json:"message"`
}

// CleanupConfig is the JSON carried inside CleanupTrigger.Message.Data.
type CleanupConfig struct {
	RetentionDays *int `json:"retention_days,omitempty"`
}

// SummarizePayload is the task payload for TypeNewsSummarize.
type SummarizePayload struct {
	UserID  string `json:"user_id"`
	Keyword string `json:"keyword"`
}

// NewCleanupTrigger builds the envelope. retentionDays may be nil, in which
// case the cleanup applies its default.
func NewCleanupTrigger(retentionDays *int, now time.Time) (CleanupTrigger, error) {
	data, err := json.Marshal(CleanupConfig{RetentionDays: retentionDays})
	if err != nil {
		return CleanupTrigger{}, fmt.Errorf("queue: marshal cleanup config: %w", err)
	}
	return CleanupTrigger{Message: PubSubMessage{
		Data:        data,
		PublishTime: now.UTC().Format(time.RFC3339),
	}}, nil
}

// NewCleanupTask wraps a trigger in a task on the critical queue. Cleanup is
// never retried by asynq: the next scheduled run covers the same records.
func NewCleanupTask(retentionDays *int, opts ...asynq.Option) (*asynq.Task, error) {
	trig, err := NewCleanupTrigger(retentionDays, time.Now())
	if err != nil {
		return nil, err
	}
	b, err := json.Marshal(trig)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal cleanup trigger: %w", err)
	}
	opts = append([]asynq.Option{asynq.Queue(QueueCritical), asynq.MaxRetry(0)}, opts...)
	return asynq.NewTask(TypeSummaryCleanup, b, opts...), nil
}

func NewSummarizeTask(p SummarizePayload, opts ...asynq.Option) (*asynq.Task, error) {
	b, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("queue: marshal summarize: %w", err)
	}
	opts = append([]asynq.Option{asynq.Queue(QueueDefault)}, opts...)
	return asynq.NewTask(TypeNewsSummarize, b, opts...), nil
}

// ParseSummarizePayload decodes and checks both fields are present.
func ParseSummarizePayload(t *asynq.Task) (SummarizePayload, error) {
	var p SummarizePayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return p, fmt.Errorf("queue: decode summarize: %w", err)
	}
	if p.UserID == "" || p.Keyword == "" {
		return p, fmt.Errorf("queue: summarize payload requires user_id and keyword")
	}
	return p, nil
}

// EncodeData base64-encodes a cleanup config the way publishers do, for
// callers that build the envelope by hand.
func EncodeData(cfg CleanupConfig) (string, error) {
	b, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("queue: marshal cleanup config: %w", err)
	}
	return base64.StdEncoding.EncodeToString(b), nil
}

// RedisOpt converts the redis config section for asynq clients and servers.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	}
}
