// Package domain 物品上下文的领域模型：失物报告与拾获物品。
package domain

import (
	"time"

	"gorm.io/gorm"

	"github.com/retreivo/retreivo/pkg/errs"
)

// ItemType 物品类型，区分失物报告与拾获上交。
type ItemType string

const (
	TypeLost  ItemType = "lost"
	TypeFound ItemType = "found"
)

// Valid 判断物品类型是否合法
func (t ItemType) Valid() bool {
	return t == TypeLost || t == TypeFound
}

// ItemStatus 物品状态。lost 与 found 各自使用独立的状态域，
// pending_claim 为两者共享的中间态。
type ItemStatus string

const (
	StatusActive       ItemStatus = "active"        // lost：等待找回
	StatusFound        ItemStatus = "found"         // lost：已找回
	StatusAvailable    ItemStatus = "available"     // found：待认领
	StatusClaimed      ItemStatus = "claimed"       // found：已被认领
	StatusPendingClaim ItemStatus = "pending_claim" // 存在待裁决的认领
)

// OpenStatus 返回该类型下可被认领的初始状态
func (t ItemType) OpenStatus() ItemStatus {
	if t == TypeLost {
		return StatusActive
	}
	return StatusAvailable
}

// ResolvedStatus 返回认领批准后的终态
func (t ItemType) ResolvedStatus() ItemStatus {
	if t == TypeLost {
		return StatusFound
	}
	return StatusClaimed
}

// Item 物品实体。Type 是判别标签，lost 与 found 共用一张表。
type Item struct {
	gorm.Model
	ItemID       string     `gorm:"column:item_id;type:varchar(32);uniqueIndex;not null" json:"item_id"`
	Type         ItemType   `gorm:"column:type;type:varchar(8);index;not null" json:"type"`
	ReporterID   string     `gorm:"column:reporter_id;type:varchar(32);index;not null" json:"reporter_id"`
	Name         string     `gorm:"column:name;type:varchar(200);not null" json:"name"`
	Category     string     `gorm:"column:category;type:varchar(50)" json:"category"`
	Description  string     `gorm:"column:description;type:text" json:"description"`
	Location     string     `gorm:"column:location;type:varchar(200)" json:"location"`
	OccurredOn   *time.Time `gorm:"column:occurred_on;type:date" json:"occurred_on"`
	ContactEmail string     `gorm:"column:contact_email;type:varchar(255)" json:"contact_email"`
	ImageURL     string     `gorm:"column:image_url;type:varchar(500)" json:"image_url"`
	Status       ItemStatus `gorm:"column:status;type:varchar(16);index;not null" json:"status"`
}

func (Item) TableName() string { return "items" }

// NewItem 创建处于可认领初始状态的物品
func NewItem(itemID string, itemType ItemType, reporterID, name string) (*Item, error) {
	if !itemType.Valid() {
		return nil, errs.Newf(errs.KindValidation, "invalid item type %q", itemType)
	}
	if name == "" {
		return nil, errs.New(errs.KindValidation, "item name is required")
	}
	return &Item{
		ItemID:     itemID,
		Type:       itemType,
		ReporterID: reporterID,
		Name:       name,
		Status:     itemType.OpenStatus(),
	}, nil
}

// IsOpen 是否处于可接受新认领的状态
func (i *Item) IsOpen() bool {
	return i.Status == i.Type.OpenStatus()
}

// Resolve 认领批准后进入终态
func (i *Item) Resolve() error {
	if i.Status != StatusPendingClaim && !i.IsOpen() {
		return errs.Newf(errs.KindConflict, "item %s already resolved", i.ItemID)
	}
	i.Status = i.Type.ResolvedStatus()
	return nil
}
