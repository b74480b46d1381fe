// Package application 积分上下文的应用服务：发放、兑换与对账。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/shopspring/decimal"
	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"

	"github.com/retreivo/retreivo/internal/reward/domain"
	userdomain "github.com/retreivo/retreivo/internal/user/domain"
	"github.com/retreivo/retreivo/pkg/errs"
)

// RewardService 积分应用服务
type RewardService struct {
	users       userdomain.UserRepository
	ledger      domain.LedgerRepository
	redemptions domain.RedemptionRepository
	products    domain.ProductRepository
	cache       domain.ProductCache
	logger      *slog.Logger
}

func NewRewardService(
	users userdomain.UserRepository,
	ledger domain.LedgerRepository,
	redemptions domain.RedemptionRepository,
	products domain.ProductRepository,
	cache domain.ProductCache,
	logger *slog.Logger,
) *RewardService {
	return &RewardService{
		users:       users,
		ledger:      ledger,
		redemptions: redemptions,
		products:    products,
		cache:       cache,
		logger:      logger.With("module", "reward_service"),
	}
}

// Grant 发放积分并追加账本条目，sourceID 记录触发发放的业务单据。
// 余额与账本必须原子更新，因此只能在调用方已开启的事务内执行。
func (s *RewardService) Grant(ctx context.Context, userID string, points int64, reason, sourceID string) error {
	if points <= 0 {
		return errs.New(errs.KindValidation, "points must be positive")
	}
	if contextx.GetTx(ctx) == nil {
		return errs.New(errs.KindInternal, "grant requires an ambient transaction")
	}
	user, err := s.users.GetWithLock(ctx, userID)
	if err != nil {
		return err
	}
	user.Credit(points)
	if err := s.users.UpdateBalance(ctx, userID, user.RewardsBalance); err != nil {
		return err
	}
	entry := &domain.LedgerEntry{
		EntryID:  fmt.Sprintf("RWD-%d", idgen.GenID()),
		UserID:   userID,
		Points:   points,
		Reason:   reason,
		SourceID: sourceID,
	}
	return s.ledger.Append(ctx, entry)
}

// RedeemCash 积分兑换现金，1 积分兑 1 元。
func (s *RewardService) RedeemCash(ctx context.Context, userID string, points int64) (*domain.Redemption, error) {
	if points <= 0 {
		return nil, errs.New(errs.KindValidation, "points must be positive")
	}
	var redemption *domain.Redemption
	err := s.redemptions.WithTx(ctx, func(txCtx context.Context) error {
		user, err := s.users.GetWithLock(txCtx, userID)
		if err != nil {
			return err
		}
		if err := user.Debit(points); err != nil {
			return err
		}
		if err := s.users.UpdateBalance(txCtx, userID, user.RewardsBalance); err != nil {
			return err
		}
		redemption = &domain.Redemption{
			RedemptionID: fmt.Sprintf("RDM-%d", idgen.GenID()),
			UserID:       userID,
			Kind:         domain.RedemptionCash,
			PointsSpent:  points,
			CashValue:    decimal.NewFromInt(points),
			RedeemedAt:   time.Now(),
		}
		return s.redemptions.Save(txCtx, redemption)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "cash redeemed", "user_id", userID, "points", points)
	return redemption, nil
}

// RedeemProduct 积分兑换合作商品。价格以服务端商品记录为准，
// 商品名与价值在兑换记录中留快照。
func (s *RewardService) RedeemProduct(ctx context.Context, userID, productID string) (*domain.Redemption, error) {
	var redemption *domain.Redemption
	err := s.redemptions.WithTx(ctx, func(txCtx context.Context) error {
		product, err := s.products.GetActive(txCtx, productID)
		if err != nil {
			return err
		}
		user, err := s.users.GetWithLock(txCtx, userID)
		if err != nil {
			return err
		}
		if err := user.Debit(product.PricePoints); err != nil {
			return err
		}
		if err := s.users.UpdateBalance(txCtx, userID, user.RewardsBalance); err != nil {
			return err
		}
		redemption = &domain.Redemption{
			RedemptionID: fmt.Sprintf("RDM-%d", idgen.GenID()),
			UserID:       userID,
			Kind:         domain.RedemptionProduct,
			PointsSpent:  product.PricePoints,
			CashValue:    product.CashValue,
			ProductID:    product.ProductID,
			ProductName:  product.Name,
			RedeemedAt:   time.Now(),
		}
		return s.redemptions.Save(txCtx, redemption)
	})
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "product redeemed",
		"user_id", userID, "product_id", productID, "points", redemption.PointsSpent)
	return redemption, nil
}

// RewardSummary 余额与流水
type RewardSummary struct {
	UserID      string                `json:"user_id"`
	Balance     int64                 `json:"balance"`
	Ledger      []*domain.LedgerEntry `json:"ledger"`
	Redemptions []*domain.Redemption  `json:"redemptions"`
}

// Summary 返回用户余额与完整流水
func (s *RewardService) Summary(ctx context.Context, userID string) (*RewardSummary, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	entries, err := s.ledger.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	redemptions, err := s.redemptions.ListByUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &RewardSummary{
		UserID:      userID,
		Balance:     user.RewardsBalance,
		Ledger:      entries,
		Redemptions: redemptions,
	}, nil
}

// Reconcile 校验派生余额与账本的一致性，返回账本推导出的余额。
func (s *RewardService) Reconcile(ctx context.Context, userID string) (int64, bool, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	earned, err := s.ledger.SumByUser(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	spent, err := s.redemptions.SumPointsByUser(ctx, userID)
	if err != nil {
		return 0, false, err
	}
	derived := earned - spent
	return derived, derived == user.RewardsBalance, nil
}

// ListProducts 返回上架商品，优先读缓存。
func (s *RewardService) ListProducts(ctx context.Context) ([]*domain.Product, error) {
	if s.cache != nil {
		products, err := s.cache.GetProducts(ctx)
		if err != nil {
			s.logger.WarnContext(ctx, "product cache read failed", "error", err)
		} else if products != nil {
			return products, nil
		}
	}
	products, err := s.products.ListActive(ctx)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetProducts(ctx, products); err != nil {
			s.logger.WarnContext(ctx, "product cache write failed", "error", err)
		}
	}
	return products, nil
}
