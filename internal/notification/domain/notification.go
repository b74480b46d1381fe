// Package domain 通知服务的领域模型
package domain

import (
	"context"
	"time"

	"gorm.io/gorm"
)

// NotificationType 通知类型
type NotificationType string

const (
	NotificationTypeEmail   NotificationType = "EMAIL"
	NotificationTypeWebhook NotificationType = "WEBHOOK"
)

// NotificationStatus 通知状态
type NotificationStatus string

const (
	NotificationStatusPending NotificationStatus = "PENDING"
	NotificationStatusSent    NotificationStatus = "SENT"
	NotificationStatusFailed  NotificationStatus = "FAILED"
)

// Notification 通知记录
type Notification struct {
	gorm.Model
	NotificationID string             `gorm:"column:notification_id;type:varchar(32);uniqueIndex;not null" json:"notification_id"`
	UserID         string             `gorm:"column:user_id;type:varchar(32);index;not null" json:"user_id"`
	Type           NotificationType   `gorm:"column:type;type:varchar(20);not null" json:"type"`
	Subject        string             `gorm:"column:subject;type:varchar(200)" json:"subject"`
	Content        string             `gorm:"column:content;type:text" json:"content"`
	Target         string             `gorm:"column:target;type:varchar(255);not null" json:"target"`
	Status         NotificationStatus `gorm:"column:status;type:varchar(20);index;not null;default:'PENDING'" json:"status"`
	ErrorMessage   string             `gorm:"column:error_message;type:text" json:"error_message"`
	SentAt         *time.Time         `gorm:"column:sent_at" json:"sent_at"`
}

func (Notification) TableName() string { return "notifications" }

// NewNotification 创建待发送的通知记录
func NewNotification(notificationID, userID string, typ NotificationType, subject, content, target string) *Notification {
	return &Notification{
		NotificationID: notificationID,
		UserID:         userID,
		Type:           typ,
		Subject:        subject,
		Content:        content,
		Target:         target,
		Status:         NotificationStatusPending,
	}
}

// MarkSent 标记发送成功
func (n *Notification) MarkSent() {
	n.Status = NotificationStatusSent
	now := time.Now()
	n.SentAt = &now
}

// MarkFailed 标记发送失败
func (n *Notification) MarkFailed(err error) {
	n.Status = NotificationStatusFailed
	if err != nil {
		n.ErrorMessage = err.Error()
	}
}

// Sender 通知发送接口
type Sender interface {
	Send(ctx context.Context, target string, subject string, content string) error
}

// NotificationRepository 通知仓储接口
type NotificationRepository interface {
	Save(ctx context.Context, notification *Notification) error
	ListByUser(ctx context.Context, userID string, limit, offset int) ([]*Notification, int64, error)
}
