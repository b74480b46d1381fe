// Package application 认领上下文的应用服务：提交与裁决。
package application

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/wyfcoding/pkg/contextx"
	"github.com/wyfcoding/pkg/idgen"

	"github.com/retreivo/retreivo/internal/claim/domain"
	itemdomain "github.com/retreivo/retreivo/internal/item/domain"
	userdomain "github.com/retreivo/retreivo/internal/user/domain"
	"github.com/retreivo/retreivo/pkg/errs"
)

// SubmitClaimCommand 认领提交命令
type SubmitClaimCommand struct {
	ItemID   string `json:"item_id" binding:"required"`
	ItemType string `json:"item_type" binding:"required"`
	Message  string `json:"message"`
}

// ClaimCommandService 认领命令服务。裁决的全部副作用
// （认领状态、物品状态、积分、事件）在单个数据库事务内完成。
type ClaimCommandService struct {
	claims    domain.ClaimRepository
	items     itemdomain.ItemRepository
	users     userdomain.UserRepository
	granter   domain.RewardGranter
	publisher domain.EventPublisher
	logger    *slog.Logger
}

func NewClaimCommandService(
	claims domain.ClaimRepository,
	items itemdomain.ItemRepository,
	users userdomain.UserRepository,
	granter domain.RewardGranter,
	publisher domain.EventPublisher,
	logger *slog.Logger,
) *ClaimCommandService {
	return &ClaimCommandService{
		claims:    claims,
		items:     items,
		users:     users,
		granter:   granter,
		publisher: publisher,
		logger:    logger.With("module", "claim_command"),
	}
}

// SubmitClaim 提交认领。物品状态迁移使用带状态谓词的条件更新，
// 并发提交产生的多份 pending 认领在批准时由 RejectSiblings 收敛。
func (s *ClaimCommandService) SubmitClaim(ctx context.Context, claimantID string, cmd SubmitClaimCommand) (*domain.Claim, error) {
	itemType := itemdomain.ItemType(cmd.ItemType)
	if !itemType.Valid() {
		return nil, errs.Newf(errs.KindValidation, "invalid item type %q", cmd.ItemType)
	}

	var claim *domain.Claim
	err := s.claims.WithTx(ctx, func(txCtx context.Context) error {
		item, err := s.items.Get(txCtx, itemType, cmd.ItemID)
		if err != nil {
			return err
		}
		if !item.IsOpen() {
			return errs.Newf(errs.KindConflict, "item %s is not open for claims", item.ItemID)
		}

		claim = domain.NewClaim(
			fmt.Sprintf("CLM-%d", idgen.GenID()),
			claimantID, itemType, cmd.ItemID, cmd.Message,
		)
		if err := s.claims.Save(txCtx, claim); err != nil {
			return err
		}

		// rows == 0 表示并发提交已把物品置为 pending_claim，
		// 两份认领都保留 pending，由服务点裁决时统一清理。
		if _, err := s.items.MarkPendingClaim(txCtx, itemType, cmd.ItemID); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "claim submitted",
		"claim_id", claim.ClaimID, "item_id", cmd.ItemID, "claimant_id", claimantID)
	return claim, nil
}

// ApproveClaim 批准认领：物品进入终态，物品上报者获得积分，
// 同一物品的其余待裁决认领被自动驳回。
func (s *ClaimCommandService) ApproveClaim(ctx context.Context, claimID, hubMessage string) (*domain.Claim, error) {
	var claim *domain.Claim
	err := s.claims.WithTx(ctx, func(txCtx context.Context) error {
		// 锁顺序固定：先物品行，后认领行。同伴驳回在持有物品锁后
		// 更新其他认领行，交叉加锁会与并发裁决互相死锁。
		ref, err := s.claims.Get(txCtx, claimID)
		if err != nil {
			return err
		}
		item, err := s.items.GetWithLock(txCtx, ref.ItemType, ref.ItemID)
		if err != nil {
			return err
		}
		// 状态前置检查必须基于锁定后的读取，防止并发裁决覆盖已提交的终态。
		claim, err = s.claims.GetWithLock(txCtx, claimID)
		if err != nil {
			return err
		}
		if err := claim.Approve(hubMessage); err != nil {
			return err
		}
		if err := s.claims.Save(txCtx, claim); err != nil {
			return err
		}

		if err := item.Resolve(); err != nil {
			return err
		}
		if err := s.items.Save(txCtx, item); err != nil {
			return err
		}

		if err := s.granter.Grant(txCtx, item.ReporterID, claim.RewardPoints(), rewardReason(claim.ItemType, item.Name), claim.ClaimID); err != nil {
			return err
		}

		rejected, err := s.claims.RejectSiblings(txCtx, claim.ItemType, claim.ItemID, claim.ClaimID, domain.SiblingRejectedMessage)
		if err != nil {
			return err
		}
		if rejected > 0 {
			s.logger.InfoContext(txCtx, "sibling claims auto rejected",
				"claim_id", claim.ClaimID, "count", rejected)
		}

		return s.publishResolved(txCtx, claim, item.Name)
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "claim approved", "claim_id", claimID)
	return claim, nil
}

// RejectClaim 驳回认领。物品上不再有待裁决认领时，
// 物品回退到可认领状态（lost 与 found 同样处理）。
func (s *ClaimCommandService) RejectClaim(ctx context.Context, claimID, hubMessage string) (*domain.Claim, error) {
	var claim *domain.Claim
	err := s.claims.WithTx(ctx, func(txCtx context.Context) error {
		// 与批准路径保持同一锁顺序：物品行在前，认领行在后。
		ref, err := s.claims.Get(txCtx, claimID)
		if err != nil {
			return err
		}
		if _, err := s.items.GetWithLock(txCtx, ref.ItemType, ref.ItemID); err != nil {
			return err
		}
		claim, err = s.claims.GetWithLock(txCtx, claimID)
		if err != nil {
			return err
		}
		if err := claim.Reject(hubMessage); err != nil {
			return err
		}
		if err := s.claims.Save(txCtx, claim); err != nil {
			return err
		}

		open, err := s.claims.CountOpenByItem(txCtx, claim.ItemType, claim.ItemID)
		if err != nil {
			return err
		}
		if open == 0 {
			if err := s.items.RevertToOpen(txCtx, claim.ItemType, claim.ItemID); err != nil {
				return err
			}
		}

		return s.publishResolved(txCtx, claim, "")
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "claim rejected", "claim_id", claimID)
	return claim, nil
}

// PartialVerify 转入部分核验挂起态。物品保持 pending_claim，
// 后续仍可批准或驳回。
func (s *ClaimCommandService) PartialVerify(ctx context.Context, claimID, hubMessage string) (*domain.Claim, error) {
	var claim *domain.Claim
	err := s.claims.WithTx(ctx, func(txCtx context.Context) error {
		var err error
		// 只写自身认领行，不取物品锁，锁定读取即可挡住并发裁决。
		claim, err = s.claims.GetWithLock(txCtx, claimID)
		if err != nil {
			return err
		}
		if err := claim.Hold(hubMessage); err != nil {
			return err
		}
		if err := s.claims.Save(txCtx, claim); err != nil {
			return err
		}
		return s.publishResolved(txCtx, claim, "")
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "claim held for partial verification", "claim_id", claimID)
	return claim, nil
}

// publishResolved 在事务内把裁决事件写入 outbox，提交后投递。
func (s *ClaimCommandService) publishResolved(txCtx context.Context, claim *domain.Claim, itemName string) error {
	if s.publisher == nil {
		return nil
	}
	claimant, err := s.users.Get(txCtx, claim.ClaimantID)
	if err != nil {
		return err
	}
	if itemName == "" {
		if item, err := s.items.Get(txCtx, claim.ItemType, claim.ItemID); err == nil {
			itemName = item.Name
		}
	}
	event := domain.ClaimResolvedEvent{
		ClaimID:       claim.ClaimID,
		ClaimantID:    claim.ClaimantID,
		ClaimantName:  claimant.Name,
		ClaimantEmail: claimant.Email,
		ItemID:        claim.ItemID,
		ItemName:      itemName,
		Status:        claim.Status,
		HubMessage:    claim.HubMessage,
		Timestamp:     time.Now(),
	}
	return s.publisher.PublishInTx(txCtx, contextx.GetTx(txCtx), domain.ClaimResolvedEventType, claim.ClaimID, event)
}

func rewardReason(itemType itemdomain.ItemType, itemName string) string {
	if itemType == itemdomain.TypeFound {
		return fmt.Sprintf("Found item %q successfully claimed and verified! You helped reunite someone with their lost item.", itemName)
	}
	return fmt.Sprintf("Your lost item %q has been found and verified! Thank you for reporting it and helping others.", itemName)
}
