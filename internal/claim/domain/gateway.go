package domain

import "context"

// RewardGranter 积分发放接口，必须在调用方事务内执行。
type RewardGranter interface {
	Grant(ctx context.Context, userID string, points int64, reason, sourceID string) error
}
