// Package application 通知服务的应用层：消费裁决事件并发送通知。
package application

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/wyfcoding/pkg/idgen"

	claimdomain "github.com/retreivo/retreivo/internal/claim/domain"
	"github.com/retreivo/retreivo/internal/notification/domain"
)

// NotificationService 通知应用服务。发送失败只记录不上抛，
// 通知永远不影响裁决结果。
type NotificationService struct {
	repo       domain.NotificationRepository
	sender     domain.Sender
	webhook    domain.Sender
	webhookURL string
	logger     *slog.Logger
}

func NewNotificationService(repo domain.NotificationRepository, sender domain.Sender, logger *slog.Logger) *NotificationService {
	return &NotificationService{
		repo:   repo,
		sender: sender,
		logger: logger.With("module", "notification_service"),
	}
}

// WithWebhook 启用 webhook 旁路通知，裁决结果同时推送到社区群。
func (s *NotificationService) WithWebhook(sender domain.Sender, url string) *NotificationService {
	s.webhook = sender
	s.webhookURL = url
	return s
}

// HandleClaimResolved 处理认领裁决事件
func (s *NotificationService) HandleClaimResolved(ctx context.Context, event claimdomain.ClaimResolvedEvent) error {
	subject := fmt.Sprintf("Claim Update: %s", event.ItemName)
	content := buildClaimOutcomeContent(event)

	n := domain.NewNotification(
		fmt.Sprintf("NTF-%d", idgen.GenID()),
		event.ClaimantID,
		domain.NotificationTypeEmail,
		subject, content, event.ClaimantEmail,
	)

	if err := s.sender.Send(ctx, n.Target, n.Subject, n.Content); err != nil {
		s.logger.WarnContext(ctx, "notification send failed",
			"claim_id", event.ClaimID, "target", n.Target, "error", err)
		n.MarkFailed(err)
	} else {
		n.MarkSent()
	}

	if err := s.repo.Save(ctx, n); err != nil {
		s.logger.ErrorContext(ctx, "failed to persist notification",
			"claim_id", event.ClaimID, "error", err)
	}

	if s.webhook != nil && s.webhookURL != "" {
		w := domain.NewNotification(
			fmt.Sprintf("NTF-%d", idgen.GenID()),
			event.ClaimantID,
			domain.NotificationTypeWebhook,
			subject, content, s.webhookURL,
		)
		if err := s.webhook.Send(ctx, w.Target, w.Subject, w.Content); err != nil {
			s.logger.WarnContext(ctx, "webhook send failed",
				"claim_id", event.ClaimID, "error", err)
			w.MarkFailed(err)
		} else {
			w.MarkSent()
		}
		if err := s.repo.Save(ctx, w); err != nil {
			s.logger.ErrorContext(ctx, "failed to persist notification",
				"claim_id", event.ClaimID, "error", err)
		}
	}
	return nil
}

// History 返回用户的通知历史
func (s *NotificationService) History(ctx context.Context, userID string, limit, offset int) ([]*domain.Notification, int64, error) {
	return s.repo.ListByUser(ctx, userID, limit, offset)
}

var statusMessages = map[claimdomain.ClaimStatus]string{
	claimdomain.StatusApproved:            "Your claim has been approved! You can now collect your item.",
	claimdomain.StatusRejected:            "Your claim has been rejected. Please contact the hub for more information.",
	claimdomain.StatusPartialVerification: "Your claim requires additional verification. Please meet in person for verification.",
}

func buildClaimOutcomeContent(event claimdomain.ClaimResolvedEvent) string {
	content := fmt.Sprintf(
		"Dear %s,\n\nYour claim for %s has been updated.\n\nStatus: %s\nMessage: %s\n",
		event.ClaimantName, event.ItemName, event.Status, statusMessages[event.Status],
	)
	if event.HubMessage != "" {
		content += fmt.Sprintf("Hub Message: %s\n", event.HubMessage)
	}
	content += "\nThank you for using Retreivo!"
	return content
}
