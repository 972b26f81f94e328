package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

type NotificationService interface {
	SendAlert(ctx context.Context, subject string, severity string, message string) error
}

// New returns a Slack notifier when a webhook is configured, otherwise one
// that only logs.
func New(webhookURL string, log *zap.Logger) NotificationService {
	if webhookURL == "" {
		return &ConsoleNotifier{log: log}
	}
	return NewSlackNotifier(webhookURL)
}

type ConsoleNotifier struct {
	log *zap.Logger
}

func NewConsoleNotifier(log *zap.Logger) *ConsoleNotifier {
	return &ConsoleNotifier{log: log}
}

func (n *ConsoleNotifier) SendAlert(_ context.Context, subject, severity, message string) error {
	log := n.log
	if log == nil {
		log = zap.NewNop()
	}
	log.Warn("alert",
		zap.String("subject", subject),
		zap.String("severity", severity),
		zap.String("message", message),
	)
	return nil
}

// SlackNotifier posts alerts to an incoming webhook.
type SlackNotifier struct {
	WebhookURL string
	client     *http.Client
}

func NewSlackNotifier(webhookURL string) *SlackNotifier {
	return &SlackNotifier{
		WebhookURL: webhookURL,
		client:     &http.Client{Timeout: 10 * time.Second},
	}
}

type slackPayload struct {
	Text        string            `json:"text"`
	Attachments []slackAttachment `json:"attachments,omitempty"`
}

type slackAttachment struct {
	Color string `json:"color"`
	Title string `json:"title"`
	Text  string `json:"text"`
}

func severityColor(severity string) string {
	switch severity {
	case "critical":
		return "#ff0000"
	case "warning":
		return "#ffa500"
	default:
		return "#36a64f"
	}
}

func (n *SlackNotifier) SendAlert(ctx context.Context, subject string, severity string, message string) error {
	body, err := json.Marshal(slackPayload{
		Text: fmt.Sprintf("newsportal alert: %s", subject),
		Attachments: []slackAttachment{{
			Color: severityColor(severity),
			Title: fmt.Sprintf("[%s] Alert", severity),
			Text:  message,
		}},
	})
	if err != nil {
		return fmt.Errorf("marshal slack payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create slack request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send slack request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("slack api returned status: %d", resp.StatusCode)
	}
	return nil
}
