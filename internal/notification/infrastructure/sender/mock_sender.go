package sender

import (
	"context"
	"sync"

	"github.com/retreivo/retreivo/internal/notification/domain"
)

// SentMessage 测试用的已发送消息记录
type SentMessage struct {
	Target  string
	Subject string
	Content string
}

// MockSender 测试替身，记录所有发送请求。
type MockSender struct {
	mu       sync.Mutex
	messages []SentMessage
	Err      error // 非 nil 时 Send 返回该错误
}

func NewMockSender() *MockSender {
	return &MockSender{}
}

var _ domain.Sender = (*MockSender)(nil)

func (m *MockSender) Send(_ context.Context, target string, subject string, content string) error {
	if m.Err != nil {
		return m.Err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, SentMessage{Target: target, Subject: subject, Content: content})
	return nil
}

// Messages 返回已记录消息的副本
func (m *MockSender) Messages() []SentMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]SentMessage, len(m.messages))
	copy(out, m.messages)
	return out
}
