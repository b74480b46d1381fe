// Package infrastructure 欺诈上下文的数据源适配
package infrastructure

import (
	"context"
	"time"

	claimdomain "github.com/retreivo/retreivo/internal/claim/domain"
	"github.com/retreivo/retreivo/internal/fraud/domain"
	itemdomain "github.com/retreivo/retreivo/internal/item/domain"
	userdomain "github.com/retreivo/retreivo/internal/user/domain"
)

// RepositoryStatsSource 从认领、物品与用户仓储聚合申领人历史
type RepositoryStatsSource struct {
	users  userdomain.UserRepository
	items  itemdomain.ItemRepository
	claims claimdomain.ClaimRepository
}

func NewRepositoryStatsSource(
	users userdomain.UserRepository,
	items itemdomain.ItemRepository,
	claims claimdomain.ClaimRepository,
) *RepositoryStatsSource {
	return &RepositoryStatsSource{users: users, items: items, claims: claims}
}

func (s *RepositoryStatsSource) ClaimantStats(ctx context.Context, userID string) (*domain.ClaimantStats, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	total, approved, err := s.claims.CountByClaimant(ctx, userID)
	if err != nil {
		return nil, err
	}
	recent, err := s.claims.CountRecentByClaimant(ctx, userID, time.Now().AddDate(0, 0, -7))
	if err != nil {
		return nil, err
	}
	return &domain.ClaimantStats{
		TotalClaims:    total,
		ApprovedClaims: approved,
		RecentClaims:   recent,
		AccountAge:     time.Since(user.CreatedAt),
	}, nil
}

func (s *RepositoryStatsSource) LatestLostItem(ctx context.Context, userID string) (*domain.ItemSnapshot, error) {
	item, err := s.items.LatestLostByReporter(ctx, userID)
	if err != nil {
		return nil, err
	}
	if item == nil {
		return nil, nil
	}
	return &domain.ItemSnapshot{
		ItemID:      item.ItemID,
		Name:        item.Name,
		Category:    item.Category,
		Description: item.Description,
		Location:    item.Location,
		Date:        item.OccurredOn,
		Image:       item.ImageURL,
	}, nil
}
