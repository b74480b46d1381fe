package sender

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/retreivo/retreivo/internal/notification/domain"
)

// WebhookSender 将通知推送到外部 webhook（如社区 IM 群）
type WebhookSender struct {
	client *http.Client
}

func NewWebhookSender() domain.Sender {
	return &WebhookSender{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

func (s *WebhookSender) Send(ctx context.Context, target string, subject string, content string) error {
	slog.InfoContext(ctx, "sending webhook", "url", target, "subject", subject)

	payload := map[string]string{
		"text": fmt.Sprintf("*%s*\n%s", subject, content),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewBuffer(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned %d", resp.StatusCode)
	}
	return nil
}
