package domain

import "context"

// MatchingIndexer 匹配服务的物品索引接口。索引失败不影响主流程。
type MatchingIndexer interface {
	IndexItem(ctx context.Context, item *Item) error
}

// RewardGranter 积分发放接口，必须在调用方事务内执行。
type RewardGranter interface {
	Grant(ctx context.Context, userID string, points int64, reason, sourceID string) error
}
