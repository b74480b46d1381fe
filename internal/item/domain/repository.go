package domain

import "context"

// SearchQuery 物品检索条件
type SearchQuery struct {
	Type     ItemType
	Keyword  string
	Category string
	Location string
	Limit    int
}

// ItemRepository 物品仓储接口
type ItemRepository interface {
	// WithTx 在单个数据库事务内执行 fn，事务句柄随上下文传递。
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Save(ctx context.Context, item *Item) error
	Get(ctx context.Context, itemType ItemType, itemID string) (*Item, error)
	// GetWithLock 以 FOR UPDATE 锁定物品行，必须在事务内调用。
	GetWithLock(ctx context.Context, itemType ItemType, itemID string) (*Item, error)
	// MarkPendingClaim 条件更新：仅当物品仍处于可认领状态时置为 pending_claim，
	// 返回受影响行数，0 表示已被并发认领抢先。
	MarkPendingClaim(ctx context.Context, itemType ItemType, itemID string) (int64, error)
	// RevertToOpen 条件更新：仅当物品处于 pending_claim 时回退到可认领状态。
	RevertToOpen(ctx context.Context, itemType ItemType, itemID string) error
	Search(ctx context.Context, q SearchQuery) ([]*Item, error)
	ListByReporter(ctx context.Context, reporterID string) ([]*Item, error)
	// LatestLostByReporter 返回用户最近一次失物报告，没有则返回 nil。
	LatestLostByReporter(ctx context.Context, reporterID string) (*Item, error)
}
