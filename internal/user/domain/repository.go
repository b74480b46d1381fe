package domain

import "context"

// UserRepository 用户仓储接口
type UserRepository interface {
	Save(ctx context.Context, user *User) error
	Get(ctx context.Context, userID string) (*User, error)
	GetByEmail(ctx context.Context, email string) (*User, error)
	// GetWithLock 以 FOR UPDATE 锁定用户行，必须在事务内调用。
	GetWithLock(ctx context.Context, userID string) (*User, error)
	// UpdateBalance 写回派生余额，必须与账本写入处于同一事务。
	UpdateBalance(ctx context.Context, userID string, balance int64) error
}
