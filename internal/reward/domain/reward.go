// Package domain 积分上下文的领域模型：只追加账本、兑换记录与合作商品。
package domain

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// LedgerEntry 积分账本条目，只追加，不更新不删除。
// 用户余额恒等于其账本条目之和减去兑换消耗之和。
type LedgerEntry struct {
	gorm.Model
	EntryID  string `gorm:"column:entry_id;type:varchar(32);uniqueIndex;not null" json:"entry_id"`
	UserID   string `gorm:"column:user_id;type:varchar(32);index;not null" json:"user_id"`
	Points   int64  `gorm:"column:points;not null" json:"points"`
	Reason   string `gorm:"column:reason;type:varchar(255);not null" json:"reason"`
	SourceID string `gorm:"column:source_id;type:varchar(32);index" json:"source_id"`
}

func (LedgerEntry) TableName() string { return "reward_ledger" }

// RedemptionKind 兑换类型
type RedemptionKind string

const (
	RedemptionCash    RedemptionKind = "cash"
	RedemptionProduct RedemptionKind = "product"
)

// Redemption 兑换记录。商品名与现金价值为兑换时刻的快照。
type Redemption struct {
	gorm.Model
	RedemptionID string          `gorm:"column:redemption_id;type:varchar(32);uniqueIndex;not null" json:"redemption_id"`
	UserID       string          `gorm:"column:user_id;type:varchar(32);index;not null" json:"user_id"`
	Kind         RedemptionKind  `gorm:"column:kind;type:varchar(16);not null" json:"kind"`
	PointsSpent  int64           `gorm:"column:points_spent;not null" json:"points_spent"`
	CashValue    decimal.Decimal `gorm:"column:cash_value;type:decimal(18,2)" json:"cash_value"`
	ProductID    string          `gorm:"column:product_id;type:varchar(32)" json:"product_id,omitempty"`
	ProductName  string          `gorm:"column:product_name;type:varchar(200)" json:"product_name,omitempty"`
	RedeemedAt   time.Time       `gorm:"column:redeemed_at;not null" json:"redeemed_at"`
}

func (Redemption) TableName() string { return "redemptions" }

// Product 合作商户商品。PricePoints 是兑换所需积分，服务端定价。
type Product struct {
	gorm.Model
	ProductID   string          `gorm:"column:product_id;type:varchar(32);uniqueIndex;not null" json:"product_id"`
	Partner     string          `gorm:"column:partner;type:varchar(100);not null" json:"partner"`
	Name        string          `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Description string          `gorm:"column:description;type:text" json:"description"`
	PricePoints int64           `gorm:"column:price_points;not null" json:"price_points"`
	CashValue   decimal.Decimal `gorm:"column:cash_value;type:decimal(18,2)" json:"cash_value"`
	Active      bool            `gorm:"column:active;not null;default:true" json:"active"`
}

func (Product) TableName() string { return "partner_products" }
