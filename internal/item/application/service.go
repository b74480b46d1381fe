// Package application 物品上下文的应用服务
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/pkg/idgen"

	"github.com/retreivo/retreivo/internal/item/domain"
)

// 拾获上报的固定奖励积分
const reportFoundRewardPoints = 10

// ReportItemCommand 物品上报命令
type ReportItemCommand struct {
	Name         string     `json:"name" binding:"required"`
	Category     string     `json:"category"`
	Description  string     `json:"description"`
	Location     string     `json:"location"`
	OccurredOn   *time.Time `json:"occurred_on"`
	ContactEmail string     `json:"contact_email"`
	ImageURL     string     `json:"image_url"`
}

// ItemService 物品应用服务
type ItemService struct {
	repo    domain.ItemRepository
	granter domain.RewardGranter
	indexer domain.MatchingIndexer
	logger  *slog.Logger
}

func NewItemService(
	repo domain.ItemRepository,
	granter domain.RewardGranter,
	indexer domain.MatchingIndexer,
	logger *slog.Logger,
) *ItemService {
	return &ItemService{
		repo:    repo,
		granter: granter,
		indexer: indexer,
		logger:  logger.With("module", "item_service"),
	}
}

// ReportLost 登记失物报告
func (s *ItemService) ReportLost(ctx context.Context, reporterID string, cmd ReportItemCommand) (*domain.Item, error) {
	return s.report(ctx, domain.TypeLost, reporterID, cmd)
}

// ReportFound 登记拾获物品，同一事务内发放上报奖励积分。
func (s *ItemService) ReportFound(ctx context.Context, reporterID string, cmd ReportItemCommand) (*domain.Item, error) {
	return s.report(ctx, domain.TypeFound, reporterID, cmd)
}

func (s *ItemService) report(ctx context.Context, itemType domain.ItemType, reporterID string, cmd ReportItemCommand) (*domain.Item, error) {
	itemID := fmt.Sprintf("ITM-%d", idgen.GenID())
	item, err := domain.NewItem(itemID, itemType, reporterID, cmd.Name)
	if err != nil {
		return nil, err
	}
	item.Category = cmd.Category
	item.Description = cmd.Description
	item.Location = cmd.Location
	item.OccurredOn = cmd.OccurredOn
	item.ContactEmail = cmd.ContactEmail
	item.ImageURL = cmd.ImageURL

	err = s.repo.WithTx(ctx, func(txCtx context.Context) error {
		if err := s.repo.Save(txCtx, item); err != nil {
			return err
		}
		if itemType == domain.TypeFound {
			reason := fmt.Sprintf("Reported found item %q", item.Name)
			return s.granter.Grant(txCtx, reporterID, reportFoundRewardPoints, reason, item.ItemID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// 匹配索引是尽力而为的，失败只记日志
	if s.indexer != nil {
		if err := s.indexer.IndexItem(ctx, item); err != nil {
			s.logger.WarnContext(ctx, "matching index failed",
				"item_id", item.ItemID, "error", err)
		}
	}

	s.logger.InfoContext(ctx, "item reported",
		"item_id", item.ItemID, "type", item.Type, "reporter_id", reporterID)
	return item, nil
}

// Search 检索物品
func (s *ItemService) Search(ctx context.Context, q domain.SearchQuery) ([]*domain.Item, error) {
	return s.repo.Search(ctx, q)
}

// MyReports 返回用户的全部上报记录
func (s *ItemService) MyReports(ctx context.Context, reporterID string) ([]*domain.Item, error) {
	return s.repo.ListByReporter(ctx, reporterID)
}

// Get 查询单个物品
func (s *ItemService) Get(ctx context.Context, itemType domain.ItemType, itemID string) (*domain.Item, error) {
	return s.repo.Get(ctx, itemType, itemID)
}
