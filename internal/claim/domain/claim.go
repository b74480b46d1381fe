// Package domain 认领上下文的领域模型：认领单与裁决状态机。
package domain

import (
	"time"

	"gorm.io/gorm"

	itemdomain "github.com/retreivo/retreivo/internal/item/domain"
	"github.com/retreivo/retreivo/pkg/errs"
)

// ClaimStatus 认领状态
type ClaimStatus string

const (
	StatusPending             ClaimStatus = "pending"
	StatusApproved            ClaimStatus = "approved"
	StatusRejected            ClaimStatus = "rejected"
	StatusPartialVerification ClaimStatus = "partial_verification"
)

// 批准认领时的固定奖励积分
const (
	RewardFinderPoints   int64 = 100 // 拾获者，found 物品被成功认领
	RewardReporterPoints int64 = 50  // 失主报告者，lost 物品被找回
)

// SiblingRejectedMessage 同一物品其他认领被自动驳回时的附言
const SiblingRejectedMessage = "Another claim for this item was approved by hub"

// Claim 认领单
type Claim struct {
	gorm.Model
	ClaimID    string              `gorm:"column:claim_id;type:varchar(32);uniqueIndex;not null" json:"claim_id"`
	ClaimantID string              `gorm:"column:claimant_id;type:varchar(32);index;not null" json:"claimant_id"`
	ItemID     string              `gorm:"column:item_id;type:varchar(32);index;not null" json:"item_id"`
	ItemType   itemdomain.ItemType `gorm:"column:item_type;type:varchar(8);not null" json:"item_type"`
	Status     ClaimStatus         `gorm:"column:status;type:varchar(24);index;not null" json:"status"`
	Message    string              `gorm:"column:message;type:text" json:"message"`
	HubMessage string              `gorm:"column:hub_message;type:text" json:"hub_message"`
	ResolvedAt *time.Time          `gorm:"column:resolved_at" json:"resolved_at"`
}

func (Claim) TableName() string { return "claims" }

// NewClaim 创建待裁决的认领单
func NewClaim(claimID, claimantID string, itemType itemdomain.ItemType, itemID, message string) *Claim {
	return &Claim{
		ClaimID:    claimID,
		ClaimantID: claimantID,
		ItemID:     itemID,
		ItemType:   itemType,
		Status:     StatusPending,
		Message:    message,
	}
}

// resolvable 返回认领是否还能被裁决。
// partial_verification 是可恢复的挂起态，允许继续批准或驳回。
func (c *Claim) resolvable() bool {
	return c.Status == StatusPending || c.Status == StatusPartialVerification
}

// Approve 批准认领
func (c *Claim) Approve(hubMessage string) error {
	if !c.resolvable() {
		return errs.Newf(errs.KindConflict, "claim %s already %s", c.ClaimID, c.Status)
	}
	c.Status = StatusApproved
	c.HubMessage = hubMessage
	now := time.Now()
	c.ResolvedAt = &now
	return nil
}

// Reject 驳回认领
func (c *Claim) Reject(hubMessage string) error {
	if !c.resolvable() {
		return errs.Newf(errs.KindConflict, "claim %s already %s", c.ClaimID, c.Status)
	}
	c.Status = StatusRejected
	c.HubMessage = hubMessage
	now := time.Now()
	c.ResolvedAt = &now
	return nil
}

// Hold 转入部分核验挂起态，等待补充材料。
func (c *Claim) Hold(hubMessage string) error {
	if c.Status != StatusPending {
		return errs.Newf(errs.KindConflict, "claim %s already %s", c.ClaimID, c.Status)
	}
	c.Status = StatusPartialVerification
	c.HubMessage = hubMessage
	return nil
}

// RewardPoints 批准该认领时发给物品上报者的积分
func (c *Claim) RewardPoints() int64 {
	if c.ItemType == itemdomain.TypeFound {
		return RewardFinderPoints
	}
	return RewardReporterPoints
}
