package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"

	"github.com/retreivo/retreivo/internal/reward/domain"
	"github.com/retreivo/retreivo/pkg/errs"
)

type baseRepository struct {
	db *gorm.DB
}

func (r *baseRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

// --- Ledger Repository ---

type ledgerRepository struct {
	baseRepository
}

func NewLedgerRepository(db *gorm.DB) domain.LedgerRepository {
	return &ledgerRepository{baseRepository{db: db}}
}

func (r *ledgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	return r.getDB(ctx).WithContext(ctx).Create(entry).Error
}

func (r *ledgerRepository) ListByUser(ctx context.Context, userID string) ([]*domain.LedgerEntry, error) {
	var entries []*domain.LedgerEntry
	err := r.getDB(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&entries).Error
	return entries, err
}

func (r *ledgerRepository) SumByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.getDB(ctx).WithContext(ctx).
		Model(&domain.LedgerEntry{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points), 0)").
		Scan(&total).Error
	return total, err
}

// --- Redemption Repository ---

type redemptionRepository struct {
	baseRepository
}

func NewRedemptionRepository(db *gorm.DB) domain.RedemptionRepository {
	return &redemptionRepository{baseRepository{db: db}}
}

func (r *redemptionRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *redemptionRepository) Save(ctx context.Context, redemption *domain.Redemption) error {
	return r.getDB(ctx).WithContext(ctx).Save(redemption).Error
}

func (r *redemptionRepository) ListByUser(ctx context.Context, userID string) ([]*domain.Redemption, error) {
	var records []*domain.Redemption
	err := r.getDB(ctx).WithContext(ctx).
		Where("user_id = ?", userID).
		Order("redeemed_at DESC").
		Find(&records).Error
	return records, err
}

func (r *redemptionRepository) SumPointsByUser(ctx context.Context, userID string) (int64, error) {
	var total int64
	err := r.getDB(ctx).WithContext(ctx).
		Model(&domain.Redemption{}).
		Where("user_id = ?", userID).
		Select("COALESCE(SUM(points_spent), 0)").
		Scan(&total).Error
	return total, err
}

// --- Product Repository ---

type productRepository struct {
	baseRepository
}

func NewProductRepository(db *gorm.DB) domain.ProductRepository {
	return &productRepository{baseRepository{db: db}}
}

func (r *productRepository) Save(ctx context.Context, product *domain.Product) error {
	return r.getDB(ctx).WithContext(ctx).Save(product).Error
}

func (r *productRepository) GetActive(ctx context.Context, productID string) (*domain.Product, error) {
	var p domain.Product
	err := r.getDB(ctx).WithContext(ctx).
		Where("product_id = ? AND active = ?", productID, true).
		First(&p).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "product %s not available", productID)
	}
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *productRepository) ListActive(ctx context.Context) ([]*domain.Product, error) {
	var products []*domain.Product
	err := r.getDB(ctx).WithContext(ctx).
		Where("active = ?", true).
		Order("price_points ASC").
		Find(&products).Error
	return products, err
}
