package domain

import (
	"context"
	"time"

	itemdomain "github.com/retreivo/retreivo/internal/item/domain"
)

// ClaimDetail 认领单及其物品与申领人信息的联查结果
type ClaimDetail struct {
	Claim
	ItemName        string     `json:"item_name"`
	ItemCategory    string     `json:"item_category"`
	ItemDescription string     `json:"item_description"`
	ItemLocation    string     `json:"item_location"`
	ItemImageURL    string     `json:"item_image_url"`
	ItemOccurredOn  *time.Time `json:"item_occurred_on"`
	ClaimantName    string     `json:"claimant_name"`
	ClaimantEmail   string     `json:"claimant_email"`
	ClaimantPhone   string     `json:"claimant_phone"`
}

// ClaimRepository 认领仓储接口
type ClaimRepository interface {
	// WithTx 在单个数据库事务内执行 fn，事务句柄随上下文传递。
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
	Save(ctx context.Context, claim *Claim) error
	Get(ctx context.Context, claimID string) (*Claim, error)
	// GetWithLock 以 FOR UPDATE 锁定认领行，必须在事务内调用。
	// 裁决操作的状态前置检查必须基于锁定后的读取。
	GetWithLock(ctx context.Context, claimID string) (*Claim, error)
	// RejectSiblings 批量驳回同一物品上除 excludeClaimID 外的所有待裁决认领。
	RejectSiblings(ctx context.Context, itemType itemdomain.ItemType, itemID, excludeClaimID, message string) (int64, error)
	// CountOpenByItem 统计物品上仍待裁决（pending 或 partial_verification）的认领数。
	CountOpenByItem(ctx context.Context, itemType itemdomain.ItemType, itemID string) (int64, error)
	// ListDetails 按状态联查认领、物品与申领人，status 为空表示全部。
	ListDetails(ctx context.Context, status ClaimStatus) ([]*ClaimDetail, error)
	ListByClaimant(ctx context.Context, claimantID string) ([]*ClaimDetail, error)
	// CountByClaimant 返回申领人的历史认领总数与批准数
	CountByClaimant(ctx context.Context, claimantID string) (total, approved int64, err error)
	CountRecentByClaimant(ctx context.Context, claimantID string, since time.Time) (int64, error)
}
