// Package consumer 通知服务的 Kafka 消费入口
package consumer

import (
	"context"
	"encoding/json"
	"log/slog"

	claimdomain "github.com/retreivo/retreivo/internal/claim/domain"
	"github.com/retreivo/retreivo/internal/notification/application"
	"github.com/retreivo/retreivo/pkg/mq"
)

type ClaimResolvedHandler struct {
	svc    *application.NotificationService
	logger *slog.Logger
}

func NewClaimResolvedHandler(svc *application.NotificationService, logger *slog.Logger) *ClaimResolvedHandler {
	return &ClaimResolvedHandler{svc: svc, logger: logger}
}

func (h *ClaimResolvedHandler) Handle(ctx context.Context, msg *mq.Message) error {
	switch msg.Topic {
	case claimdomain.ClaimResolvedEventType:
		var event claimdomain.ClaimResolvedEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			h.logger.ErrorContext(ctx, "failed to unmarshal claim resolved event", "error", err)
			return err
		}
		if event.ClaimantEmail == "" {
			return nil
		}
		return h.svc.HandleClaimResolved(ctx, event)
	default:
		h.logger.WarnContext(ctx, "unknown notification topic", "topic", msg.Topic)
		return nil
	}
}
