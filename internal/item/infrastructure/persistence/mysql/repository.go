package mysql

import (
	"context"
	"errors"

	"github.com/wyfcoding/pkg/contextx"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/retreivo/retreivo/internal/item/domain"
	"github.com/retreivo/retreivo/pkg/errs"
)

type itemRepository struct{ db *gorm.DB }

func NewItemRepository(db *gorm.DB) domain.ItemRepository {
	return &itemRepository{db: db}
}

func (r *itemRepository) getDB(ctx context.Context) *gorm.DB {
	if tx, ok := contextx.GetTx(ctx).(*gorm.DB); ok && tx != nil {
		return tx
	}
	return r.db
}

func (r *itemRepository) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(contextx.WithTx(ctx, tx))
	})
}

func (r *itemRepository) Save(ctx context.Context, item *domain.Item) error {
	return r.getDB(ctx).WithContext(ctx).Save(item).Error
}

func (r *itemRepository) Get(ctx context.Context, itemType domain.ItemType, itemID string) (*domain.Item, error) {
	var item domain.Item
	err := r.getDB(ctx).WithContext(ctx).
		Where("item_id = ? AND type = ?", itemID, itemType).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "%s item %s not found", itemType, itemID)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) GetWithLock(ctx context.Context, itemType domain.ItemType, itemID string) (*domain.Item, error) {
	var item domain.Item
	err := r.getDB(ctx).WithContext(ctx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("item_id = ? AND type = ?", itemID, itemType).
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errs.Newf(errs.KindNotFound, "%s item %s not found", itemType, itemID)
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (r *itemRepository) MarkPendingClaim(ctx context.Context, itemType domain.ItemType, itemID string) (int64, error) {
	// 状态谓词保证并发提交下只有一个请求能完成状态迁移
	res := r.getDB(ctx).WithContext(ctx).
		Model(&domain.Item{}).
		Where("item_id = ? AND type = ? AND status = ?", itemID, itemType, itemType.OpenStatus()).
		Update("status", domain.StatusPendingClaim)
	return res.RowsAffected, res.Error
}

func (r *itemRepository) RevertToOpen(ctx context.Context, itemType domain.ItemType, itemID string) error {
	return r.getDB(ctx).WithContext(ctx).
		Model(&domain.Item{}).
		Where("item_id = ? AND type = ? AND status = ?", itemID, itemType, domain.StatusPendingClaim).
		Update("status", itemType.OpenStatus()).Error
}

func (r *itemRepository) Search(ctx context.Context, q domain.SearchQuery) ([]*domain.Item, error) {
	db := r.getDB(ctx).WithContext(ctx).Model(&domain.Item{})
	if q.Type.Valid() {
		db = db.Where("type = ?", q.Type)
	}
	if q.Keyword != "" {
		like := "%" + q.Keyword + "%"
		db = db.Where("name LIKE ? OR description LIKE ?", like, like)
	}
	if q.Category != "" {
		db = db.Where("category = ?", q.Category)
	}
	if q.Location != "" {
		db = db.Where("location LIKE ?", "%"+q.Location+"%")
	}
	limit := q.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	var items []*domain.Item
	err := db.Order("created_at DESC").Limit(limit).Find(&items).Error
	return items, err
}

func (r *itemRepository) ListByReporter(ctx context.Context, reporterID string) ([]*domain.Item, error) {
	var items []*domain.Item
	err := r.getDB(ctx).WithContext(ctx).
		Where("reporter_id = ?", reporterID).
		Order("created_at DESC").
		Find(&items).Error
	return items, err
}

func (r *itemRepository) LatestLostByReporter(ctx context.Context, reporterID string) (*domain.Item, error) {
	var item domain.Item
	err := r.getDB(ctx).WithContext(ctx).
		Where("reporter_id = ? AND type = ?", reporterID, domain.TypeLost).
		Order("created_at DESC").
		First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}
