package application

import (
	"context"
	"log/slog"
	"testing"

	"gorm.io/gorm"

	"github.com/retreivo/retreivo/internal/claim/domain"
	claimmysql "github.com/retreivo/retreivo/internal/claim/infrastructure/persistence/mysql"
	itemdomain "github.com/retreivo/retreivo/internal/item/domain"
	itemmysql "github.com/retreivo/retreivo/internal/item/infrastructure/persistence/mysql"
	rewardapp "github.com/retreivo/retreivo/internal/reward/application"
	rewarddomain "github.com/retreivo/retreivo/internal/reward/domain"
	rewardmysql "github.com/retreivo/retreivo/internal/reward/infrastructure/persistence/mysql"
	"github.com/retreivo/retreivo/internal/testutil"
	userdomain "github.com/retreivo/retreivo/internal/user/domain"
	usermysql "github.com/retreivo/retreivo/internal/user/infrastructure/persistence/mysql"
	"github.com/retreivo/retreivo/pkg/errs"
)

type capturedEvent struct {
	eventType string
	key       string
	payload   any
}

type capturingPublisher struct {
	events []capturedEvent
}

func (p *capturingPublisher) Publish(ctx context.Context, eventType, key string, payload any) error {
	p.events = append(p.events, capturedEvent{eventType, key, payload})
	return nil
}

func (p *capturingPublisher) PublishInTx(ctx context.Context, tx any, eventType, key string, payload any) error {
	p.events = append(p.events, capturedEvent{eventType, key, payload})
	return nil
}

type commandFixture struct {
	db        *gorm.DB
	svc       *ClaimCommandService
	users     userdomain.UserRepository
	items     itemdomain.ItemRepository
	claims    domain.ClaimRepository
	ledger    rewarddomain.LedgerRepository
	granter   domain.RewardGranter
	publisher *capturingPublisher
}

func newCommandFixture(t *testing.T) *commandFixture {
	t.Helper()
	db := testutil.NewDB(t,
		&userdomain.User{},
		&itemdomain.Item{},
		&domain.Claim{},
		&rewarddomain.LedgerEntry{},
		&rewarddomain.Redemption{},
		&rewarddomain.Product{},
	)
	users := usermysql.NewUserRepository(db)
	items := itemmysql.NewItemRepository(db)
	claims := claimmysql.NewClaimRepository(db)
	ledger := rewardmysql.NewLedgerRepository(db)
	redemptions := rewardmysql.NewRedemptionRepository(db)
	products := rewardmysql.NewProductRepository(db)
	rewardSvc := rewardapp.NewRewardService(users, ledger, redemptions, products, nil, slog.Default())
	publisher := &capturingPublisher{}
	svc := NewClaimCommandService(claims, items, users, rewardSvc, publisher, slog.Default())
	return &commandFixture{
		db:        db,
		svc:       svc,
		users:     users,
		items:     items,
		claims:    claims,
		ledger:    ledger,
		granter:   rewardSvc,
		publisher: publisher,
	}
}

func (f *commandFixture) seedUser(t *testing.T, userID, name string) {
	t.Helper()
	user, err := userdomain.NewUser(userID, name, userID+"@example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	if err := f.users.Save(context.Background(), user); err != nil {
		t.Fatal(err)
	}
}

func (f *commandFixture) seedItem(t *testing.T, itemID string, itemType itemdomain.ItemType, reporterID, name string) {
	t.Helper()
	item, err := itemdomain.NewItem(itemID, itemType, reporterID, name)
	if err != nil {
		t.Fatal(err)
	}
	if err := f.items.Save(context.Background(), item); err != nil {
		t.Fatal(err)
	}
}

func (f *commandFixture) balance(t *testing.T, userID string) int64 {
	t.Helper()
	user, err := f.users.Get(context.Background(), userID)
	if err != nil {
		t.Fatal(err)
	}
	return user.RewardsBalance
}

func TestSubmitClaim(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-finder", "Finder")
	f.seedUser(t, "USR-claimant", "Claimant")
	f.seedItem(t, "ITM-1", itemdomain.TypeFound, "USR-finder", "Black Wallet")

	claim, err := f.svc.SubmitClaim(ctx, "USR-claimant", SubmitClaimCommand{
		ItemID: "ITM-1", ItemType: "found", Message: "lost it on the bus",
	})
	if err != nil {
		t.Fatalf("SubmitClaim: %v", err)
	}
	if claim.Status != domain.StatusPending {
		t.Errorf("Status = %s, want %s", claim.Status, domain.StatusPending)
	}

	item, err := f.items.Get(ctx, itemdomain.TypeFound, "ITM-1")
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != itemdomain.StatusPendingClaim {
		t.Errorf("item status = %s, want %s", item.Status, itemdomain.StatusPendingClaim)
	}
}

func TestSubmitClaimItemNotOpen(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-finder", "Finder")
	f.seedUser(t, "USR-a", "A")
	f.seedUser(t, "USR-b", "B")
	f.seedItem(t, "ITM-1", itemdomain.TypeFound, "USR-finder", "Black Wallet")

	if _, err := f.svc.SubmitClaim(ctx, "USR-a", SubmitClaimCommand{ItemID: "ITM-1", ItemType: "found"}); err != nil {
		t.Fatal(err)
	}
	_, err := f.svc.SubmitClaim(ctx, "USR-b", SubmitClaimCommand{ItemID: "ITM-1", ItemType: "found"})
	if !errs.IsKind(err, errs.KindConflict) {
		t.Errorf("err = %v, want conflict", err)
	}
}

func TestSubmitClaimUnknownItem(t *testing.T) {
	f := newCommandFixture(t)
	f.seedUser(t, "USR-a", "A")
	_, err := f.svc.SubmitClaim(context.Background(), "USR-a", SubmitClaimCommand{ItemID: "ITM-404", ItemType: "found"})
	if !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestSubmitClaimInvalidType(t *testing.T) {
	f := newCommandFixture(t)
	_, err := f.svc.SubmitClaim(context.Background(), "USR-a", SubmitClaimCommand{ItemID: "ITM-1", ItemType: "stolen"})
	if !errs.IsKind(err, errs.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestApproveFoundClaimRewardsFinder(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-finder", "Finder")
	f.seedUser(t, "USR-claimant", "Claimant")
	f.seedItem(t, "ITM-1", itemdomain.TypeFound, "USR-finder", "Black Wallet")

	claim, err := f.svc.SubmitClaim(ctx, "USR-claimant", SubmitClaimCommand{ItemID: "ITM-1", ItemType: "found"})
	if err != nil {
		t.Fatal(err)
	}

	approved, err := f.svc.ApproveClaim(ctx, claim.ClaimID, "verified in person")
	if err != nil {
		t.Fatalf("ApproveClaim: %v", err)
	}
	if approved.Status != domain.StatusApproved {
		t.Errorf("Status = %s, want %s", approved.Status, domain.StatusApproved)
	}

	item, err := f.items.Get(ctx, itemdomain.TypeFound, "ITM-1")
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != itemdomain.StatusClaimed {
		t.Errorf("item status = %s, want %s", item.Status, itemdomain.StatusClaimed)
	}

	if got := f.balance(t, "USR-finder"); got != domain.RewardFinderPoints {
		t.Errorf("finder balance = %d, want %d", got, domain.RewardFinderPoints)
	}
	entries, err := f.ledger.ListByUser(ctx, "USR-finder")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("ledger entries = %d, want 1", len(entries))
	}
	if entries[0].Points != domain.RewardFinderPoints {
		t.Errorf("ledger points = %d, want %d", entries[0].Points, domain.RewardFinderPoints)
	}
	if entries[0].SourceID != claim.ClaimID {
		t.Errorf("ledger SourceID = %q, want %q", entries[0].SourceID, claim.ClaimID)
	}

	if len(f.publisher.events) != 1 {
		t.Fatalf("published events = %d, want 1", len(f.publisher.events))
	}
	ev := f.publisher.events[0]
	if ev.eventType != domain.ClaimResolvedEventType {
		t.Errorf("event type = %s, want %s", ev.eventType, domain.ClaimResolvedEventType)
	}
	resolved, ok := ev.payload.(domain.ClaimResolvedEvent)
	if !ok {
		t.Fatalf("payload type %T", ev.payload)
	}
	if resolved.Status != domain.StatusApproved || resolved.ItemName != "Black Wallet" {
		t.Errorf("event = %+v", resolved)
	}
}

func TestApproveLostClaimRewardsReporter(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-owner", "Owner")
	f.seedUser(t, "USR-claimant", "Claimant")
	f.seedItem(t, "ITM-1", itemdomain.TypeLost, "USR-owner", "House Keys")

	claim, err := f.svc.SubmitClaim(ctx, "USR-claimant", SubmitClaimCommand{ItemID: "ITM-1", ItemType: "lost"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.ApproveClaim(ctx, claim.ClaimID, ""); err != nil {
		t.Fatal(err)
	}

	item, err := f.items.Get(ctx, itemdomain.TypeLost, "ITM-1")
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != itemdomain.StatusFound {
		t.Errorf("item status = %s, want %s", item.Status, itemdomain.StatusFound)
	}
	if got := f.balance(t, "USR-owner"); got != domain.RewardReporterPoints {
		t.Errorf("owner balance = %d, want %d", got, domain.RewardReporterPoints)
	}
}

func TestApproveRejectsSiblings(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-finder", "Finder")
	f.seedUser(t, "USR-a", "A")
	f.seedUser(t, "USR-b", "B")
	f.seedItem(t, "ITM-1", itemdomain.TypeFound, "USR-finder", "Black Wallet")

	claimA, err := f.svc.SubmitClaim(ctx, "USR-a", SubmitClaimCommand{ItemID: "ITM-1", ItemType: "found"})
	if err != nil {
		t.Fatal(err)
	}
	// 并发提交窗口里产生的第二份 pending 认领
	claimB := domain.NewClaim("CLM-race", "USR-b", itemdomain.TypeFound, "ITM-1", "")
	if err := f.claims.Save(ctx, claimB); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.ApproveClaim(ctx, claimA.ClaimID, ""); err != nil {
		t.Fatal(err)
	}

	got, err := f.claims.Get(ctx, "CLM-race")
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusRejected {
		t.Errorf("sibling status = %s, want %s", got.Status, domain.StatusRejected)
	}
	if got.HubMessage != domain.SiblingRejectedMessage {
		t.Errorf("sibling hub message = %q, want %q", got.HubMessage, domain.SiblingRejectedMessage)
	}
	if got.ResolvedAt == nil {
		t.Error("sibling ResolvedAt should be set")
	}

	// 只有批准的认领产生积分
	entries, err := f.ledger.ListByUser(ctx, "USR-finder")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Errorf("ledger entries = %d, want 1", len(entries))
	}
}

func TestApproveTwiceGrantsOnce(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-finder", "Finder")
	f.seedUser(t, "USR-claimant", "Claimant")
	f.seedItem(t, "ITM-1", itemdomain.TypeFound, "USR-finder", "Black Wallet")

	claim, err := f.svc.SubmitClaim(ctx, "USR-claimant", SubmitClaimCommand{ItemID: "ITM-1", ItemType: "found"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.ApproveClaim(ctx, claim.ClaimID, ""); err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.ApproveClaim(ctx, claim.ClaimID, ""); !errs.IsKind(err, errs.KindConflict) {
		t.Fatalf("second approve: err = %v, want conflict", err)
	}
	if got := f.balance(t, "USR-finder"); got != domain.RewardFinderPoints {
		t.Errorf("finder balance = %d, want %d", got, domain.RewardFinderPoints)
	}
}

func TestRejectRevertsItem(t *testing.T) {
	cases := []struct {
		itemType itemdomain.ItemType
		want     itemdomain.ItemStatus
	}{
		{itemdomain.TypeFound, itemdomain.StatusAvailable},
		{itemdomain.TypeLost, itemdomain.StatusActive},
	}
	for _, tc := range cases {
		t.Run(string(tc.itemType), func(t *testing.T) {
			f := newCommandFixture(t)
			ctx := context.Background()
			f.seedUser(t, "USR-reporter", "Reporter")
			f.seedUser(t, "USR-claimant", "Claimant")
			f.seedItem(t, "ITM-1", tc.itemType, "USR-reporter", "Umbrella")

			claim, err := f.svc.SubmitClaim(ctx, "USR-claimant", SubmitClaimCommand{
				ItemID: "ITM-1", ItemType: string(tc.itemType),
			})
			if err != nil {
				t.Fatal(err)
			}
			rejected, err := f.svc.RejectClaim(ctx, claim.ClaimID, "not yours")
			if err != nil {
				t.Fatalf("RejectClaim: %v", err)
			}
			if rejected.Status != domain.StatusRejected {
				t.Errorf("Status = %s, want %s", rejected.Status, domain.StatusRejected)
			}

			item, err := f.items.Get(ctx, tc.itemType, "ITM-1")
			if err != nil {
				t.Fatal(err)
			}
			if item.Status != tc.want {
				t.Errorf("item status = %s, want %s", item.Status, tc.want)
			}
			if got := f.balance(t, "USR-reporter"); got != 0 {
				t.Errorf("reporter balance = %d, want 0", got)
			}
		})
	}
}

func TestRejectKeepsItemPendingWhileSiblingsRemain(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-finder", "Finder")
	f.seedUser(t, "USR-a", "A")
	f.seedUser(t, "USR-b", "B")
	f.seedItem(t, "ITM-1", itemdomain.TypeFound, "USR-finder", "Black Wallet")

	claimA, err := f.svc.SubmitClaim(ctx, "USR-a", SubmitClaimCommand{ItemID: "ITM-1", ItemType: "found"})
	if err != nil {
		t.Fatal(err)
	}
	claimB := domain.NewClaim("CLM-race", "USR-b", itemdomain.TypeFound, "ITM-1", "")
	if err := f.claims.Save(ctx, claimB); err != nil {
		t.Fatal(err)
	}

	if _, err := f.svc.RejectClaim(ctx, claimA.ClaimID, ""); err != nil {
		t.Fatal(err)
	}

	item, err := f.items.Get(ctx, itemdomain.TypeFound, "ITM-1")
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != itemdomain.StatusPendingClaim {
		t.Errorf("item status = %s, want %s while a pending claim remains", item.Status, itemdomain.StatusPendingClaim)
	}
}

// staleReadClaims 的 Get 固定返回构造时捕获的快照，模拟并发裁决下
// 未加锁读取拿到的过期行；其余方法落到真实仓储。
type staleReadClaims struct {
	domain.ClaimRepository
	stale domain.Claim
}

func (r *staleReadClaims) Get(ctx context.Context, claimID string) (*domain.Claim, error) {
	c := r.stale
	return &c, nil
}

func TestRejectChecksLockedRead(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-finder", "Finder")
	f.seedUser(t, "USR-claimant", "Claimant")
	f.seedItem(t, "ITM-1", itemdomain.TypeFound, "USR-finder", "Black Wallet")

	claim, err := f.svc.SubmitClaim(ctx, "USR-claimant", SubmitClaimCommand{ItemID: "ITM-1", ItemType: "found"})
	if err != nil {
		t.Fatal(err)
	}
	if _, err := f.svc.ApproveClaim(ctx, claim.ClaimID, ""); err != nil {
		t.Fatal(err)
	}

	// 另一名工作人员在批准提交前读到的还是 pending 行，
	// 驳回必须被锁定后的重读挡下，不能覆盖已提交的批准。
	staleSvc := NewClaimCommandService(
		&staleReadClaims{ClaimRepository: f.claims, stale: *claim},
		f.items, f.users, f.granter, f.publisher, slog.Default(),
	)
	if _, err := staleSvc.RejectClaim(ctx, claim.ClaimID, "denied"); !errs.IsKind(err, errs.KindConflict) {
		t.Fatalf("reject after approve: err = %v, want conflict", err)
	}

	got, err := f.claims.Get(ctx, claim.ClaimID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Status != domain.StatusApproved {
		t.Errorf("claim status = %s, want %s", got.Status, domain.StatusApproved)
	}
	item, err := f.items.Get(ctx, itemdomain.TypeFound, "ITM-1")
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != itemdomain.StatusClaimed {
		t.Errorf("item status = %s, want %s", item.Status, itemdomain.StatusClaimed)
	}
	if got := f.balance(t, "USR-finder"); got != domain.RewardFinderPoints {
		t.Errorf("finder balance = %d, want %d", got, domain.RewardFinderPoints)
	}
}

func TestPartialVerifyThenApprove(t *testing.T) {
	f := newCommandFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-finder", "Finder")
	f.seedUser(t, "USR-claimant", "Claimant")
	f.seedItem(t, "ITM-1", itemdomain.TypeFound, "USR-finder", "Black Wallet")

	claim, err := f.svc.SubmitClaim(ctx, "USR-claimant", SubmitClaimCommand{ItemID: "ITM-1", ItemType: "found"})
	if err != nil {
		t.Fatal(err)
	}
	held, err := f.svc.PartialVerify(ctx, claim.ClaimID, "bring your receipt")
	if err != nil {
		t.Fatalf("PartialVerify: %v", err)
	}
	if held.Status != domain.StatusPartialVerification {
		t.Errorf("Status = %s, want %s", held.Status, domain.StatusPartialVerification)
	}

	item, err := f.items.Get(ctx, itemdomain.TypeFound, "ITM-1")
	if err != nil {
		t.Fatal(err)
	}
	if item.Status != itemdomain.StatusPendingClaim {
		t.Errorf("item status = %s, want %s", item.Status, itemdomain.StatusPendingClaim)
	}

	if _, err := f.svc.ApproveClaim(ctx, claim.ClaimID, ""); err != nil {
		t.Fatalf("approve after hold: %v", err)
	}
	if got := f.balance(t, "USR-finder"); got != domain.RewardFinderPoints {
		t.Errorf("finder balance = %d, want %d", got, domain.RewardFinderPoints)
	}
	// hold 与 approve 各发布一次裁决事件
	if len(f.publisher.events) != 2 {
		t.Errorf("published events = %d, want 2", len(f.publisher.events))
	}
}
