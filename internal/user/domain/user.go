// Package domain 用户上下文的领域模型：社区用户档案与积分余额。
package domain

import (
	"strings"

	"gorm.io/gorm"

	"github.com/retreivo/retreivo/pkg/errs"
)

// UserRole 用户角色
type UserRole string

const (
	RoleCitizen UserRole = "citizen" // 普通市民
	RoleHub     UserRole = "hub"     // 社区服务点工作人员
)

// User 用户实体。RewardsBalance 是积分账本与兑换记录的派生余额，
// 任何变更必须与对应的账本/兑换写入处于同一事务。
type User struct {
	gorm.Model
	UserID         string   `gorm:"column:user_id;type:varchar(32);uniqueIndex;not null" json:"user_id"`
	Name           string   `gorm:"column:name;type:varchar(100);not null" json:"name"`
	Email          string   `gorm:"column:email;type:varchar(255);uniqueIndex;not null" json:"email"`
	Phone          string   `gorm:"column:phone;type:varchar(20)" json:"phone"`
	PasswordHash   string   `gorm:"column:password_hash;type:varchar(255)" json:"-"`
	Role           UserRole `gorm:"column:role;type:varchar(16);not null;default:'citizen'" json:"role"`
	RewardsBalance int64    `gorm:"column:rewards_balance;not null;default:0" json:"rewards_balance"`
}

func (User) TableName() string { return "users" }

// NewUser 创建普通市民用户
func NewUser(userID, name, email, phone string) (*User, error) {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if name == "" || email == "" {
		return nil, errs.New(errs.KindValidation, "name and email are required")
	}
	return &User{
		UserID: userID,
		Name:   name,
		Email:  email,
		Phone:  phone,
		Role:   RoleCitizen,
	}, nil
}

// Debit 扣减积分，余额不足返回冲突错误。
func (u *User) Debit(points int64) error {
	if points <= 0 {
		return errs.New(errs.KindValidation, "points must be positive")
	}
	if u.RewardsBalance < points {
		return errs.Newf(errs.KindConflict, "insufficient points: balance %d, need %d", u.RewardsBalance, points)
	}
	u.RewardsBalance -= points
	return nil
}

// Credit 增加积分
func (u *User) Credit(points int64) {
	u.RewardsBalance += points
}

// IsHub 是否为服务点工作人员
func (u *User) IsHub() bool {
	return u.Role == RoleHub
}
