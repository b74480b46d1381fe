package domain

import "context"

// LedgerRepository 积分账本仓储，只追加。
type LedgerRepository interface {
	Append(ctx context.Context, entry *LedgerEntry) error
	ListByUser(ctx context.Context, userID string) ([]*LedgerEntry, error)
	// SumByUser 返回用户账本条目之和，用于余额对账。
	SumByUser(ctx context.Context, userID string) (int64, error)
}

// RedemptionRepository 兑换记录仓储
type RedemptionRepository interface {
	// WithTx 在单个数据库事务内执行 fn，事务句柄随上下文传递。
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Save(ctx context.Context, redemption *Redemption) error
	ListByUser(ctx context.Context, userID string) ([]*Redemption, error)
	SumPointsByUser(ctx context.Context, userID string) (int64, error)
}

// ProductRepository 合作商品仓储
type ProductRepository interface {
	Save(ctx context.Context, product *Product) error
	// GetActive 返回上架中的商品，下架或不存在返回 NotFound。
	GetActive(ctx context.Context, productID string) (*Product, error)
	ListActive(ctx context.Context) ([]*Product, error)
}

// ProductCache 商品列表缓存
type ProductCache interface {
	GetProducts(ctx context.Context) ([]*Product, error)
	SetProducts(ctx context.Context, products []*Product) error
}
