package mysql

import (
	"context"
	"errors"
	"time"

	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/retreivo/retreivo/internal/claim/domain"
	itemdomain "github.com/retreivo/retreivo/internal/item/domain"
	"github.com/retreivo/retreivo/pkg/errs"
)

type claimRepository struct{ db *gorm.DB }

func NewClaimRepository(db *gorm.DB) domain.ClaimRepository {
	return &claimRepository{db: db}
}

func (r *claimRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

func (r *claimRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *claimRepository) Save(ctx context.Context, claim *domain.Claim) error {
	return r.getDB(ctx).WithContext(ctx).Save(claim).Error
}

func (r *claimRepository) Get(ctx context.Context, claimID string) (*domain.Claim, error) {
	var claim domain.Claim
	err := r.getDB(ctx).WithContext(ctx).Where("claim_id = ?", claimID).First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "claim %s not found", claimID)
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *claimRepository) GetWithLock(ctx context.Context, claimID string) (*domain.Claim, error) {
	var claim domain.Claim
	err := r.getDB(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("claim_id = ?", claimID).
		First(&claim).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "claim %s not found", claimID)
	}
	if err != nil {
		return nil, err
	}
	return &claim, nil
}

func (r *claimRepository) RejectSiblings(ctx context.Context, itemType itemdomain.ItemType, itemID, excludeClaimID, message string) (int64, error) {
	now := time.Now()
	res := r.getDB(ctx).WithContext(ctx).
		Model(&domain.Claim{}).
		Where("item_id = ? AND item_type = ? AND claim_id <> ? AND status IN ?",
			itemID, itemType, excludeClaimID,
			[]domain.ClaimStatus{domain.StatusPending, domain.StatusPartialVerification}).
		Updates(map[string]any{
			"status":      domain.StatusRejected,
			"hub_message": message,
			"resolved_at": now,
		})
	return res.RowsAffected, res.Error
}

func (r *claimRepository) CountOpenByItem(ctx context.Context, itemType itemdomain.ItemType, itemID string) (int64, error) {
	var count int64
	err := r.getDB(ctx).WithContext(ctx).
		Model(&domain.Claim{}).
		Where("item_id = ? AND item_type = ? AND status IN ?",
			itemID, itemType,
			[]domain.ClaimStatus{domain.StatusPending, domain.StatusPartialVerification}).
		Count(&count).Error
	return count, err
}

const detailSelect = `claims.*,
items.name AS item_name,
items.category AS item_category,
items.description AS item_description,
items.location AS item_location,
items.image_url AS item_image_url,
items.occurred_on AS item_occurred_on,
users.name AS claimant_name,
users.email AS claimant_email,
users.phone AS claimant_phone`

func (r *claimRepository) ListDetails(ctx context.Context, status domain.ClaimStatus) ([]*domain.ClaimDetail, error) {
	db := r.getDB(ctx).WithContext(ctx).
		Table("claims").
		Select(detailSelect).
		Joins("JOIN items ON items.item_id = claims.item_id AND items.type = claims.item_type").
		Joins("JOIN users ON users.user_id = claims.claimant_id")
	if status != "" {
		db = db.Where("claims.status = ?", status)
	}
	var details []*domain.ClaimDetail
	err := db.Order("claims.created_at DESC").Scan(&details).Error
	return details, err
}

func (r *claimRepository) ListByClaimant(ctx context.Context, claimantID string) ([]*domain.ClaimDetail, error) {
	var details []*domain.ClaimDetail
	err := r.getDB(ctx).WithContext(ctx).
		Table("claims").
		Select(detailSelect).
		Joins("JOIN items ON items.item_id = claims.item_id AND items.type = claims.item_type").
		Joins("JOIN users ON users.user_id = claims.claimant_id").
		Where("claims.claimant_id = ?", claimantID).
		Order("claims.created_at DESC").
		Scan(&details).Error
	return details, err
}

func (r *claimRepository) CountByClaimant(ctx context.Context, claimantID string) (total, approved int64, err error) {
	db := r.getDB(ctx).WithContext(ctx).Model(&domain.Claim{})
	if err = db.Where("claimant_id = ?", claimantID).Count(&total).Error; err != nil {
		return 0, 0, err
	}
	err = r.getDB(ctx).WithContext(ctx).
		Model(&domain.Claim{}).
		Where("claimant_id = ? AND status = ?", claimantID, domain.StatusApproved).
		Count(&approved).Error
	return total, approved, err
}

func (r *claimRepository) CountRecentByClaimant(ctx context.Context, claimantID string, since time.Time) (int64, error) {
	var count int64
	err := r.getDB(ctx).WithContext(ctx).
		Model(&domain.Claim{}).
		Where("claimant_id = ? AND created_at > ?", claimantID, since).
		Count(&count).Error
	return count, err
}
