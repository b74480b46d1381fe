package domain

import (
	"context"
	"time"
)

// ClaimResolvedEventType 认领裁决事件的主题
const ClaimResolvedEventType = "claim.resolved"

// ClaimResolvedEvent 认领裁决事件，驱动裁决结果通知。
type ClaimResolvedEvent struct {
	ClaimID       string      `json:"claim_id"`
	ClaimantID    string      `json:"claimant_id"`
	ClaimantName  string      `json:"claimant_name"`
	ClaimantEmail string      `json:"claimant_email"`
	ItemID        string      `json:"item_id"`
	ItemName      string      `json:"item_name"`
	Status        ClaimStatus `json:"status"`
	HubMessage    string      `json:"hub_message"`
	Timestamp     time.Time   `json:"timestamp"`
}

// EventPublisher 领域事件发布接口。PublishInTx 通过 outbox 表
// 把事件写入与业务变更同一个事务，提交后异步投递。
type EventPublisher interface {
	Publish(ctx context.Context, eventType string, key string, payload any) error
	PublishInTx(ctx context.Context, tx any, eventType string, key string, payload any) error
}
