package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/retreivo/retreivo/internal/user/domain"
	"github.com/retreivo/retreivo/pkg/errs"
)

type userRepository struct{ db *gorm.DB }

func NewUserRepository(db *gorm.DB) domain.UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) getDB(ctx context.Context) *gorm.DB {
	// 优先使用上下文中的事务句柄
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

func (r *userRepository) Save(ctx context.Context, user *domain.User) error {
	return r.getDB(ctx).WithContext(ctx).Save(user).Error
}

func (r *userRepository) Get(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	err := r.getDB(ctx).WithContext(ctx).Where("user_id = ?", userID).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "user %s not found", userID)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var u domain.User
	err := r.getDB(ctx).WithContext(ctx).Where("email = ?", email).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "user %s not found", email)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) GetWithLock(ctx context.Context, userID string) (*domain.User, error) {
	var u domain.User
	err := r.getDB(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("user_id = ?", userID).
		First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "user %s not found", userID)
	}
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *userRepository) UpdateBalance(ctx context.Context, userID string, balance int64) error {
	return r.getDB(ctx).WithContext(ctx).
		Model(&domain.User{}).
		Where("user_id = ?", userID).
		Update("rewards_balance", balance).Error
}
