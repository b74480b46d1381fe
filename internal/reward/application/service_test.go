package application

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/retreivo/retreivo/internal/reward/domain"
	rewardmysql "github.com/retreivo/retreivo/internal/reward/infrastructure/persistence/mysql"
	"github.com/retreivo/retreivo/internal/testutil"
	userdomain "github.com/retreivo/retreivo/internal/user/domain"
	usermysql "github.com/retreivo/retreivo/internal/user/infrastructure/persistence/mysql"
	"github.com/retreivo/retreivo/pkg/errs"
)

type fakeProductCache struct {
	products []*domain.Product
	getErr   error
	setCalls int
}

func (c *fakeProductCache) GetProducts(ctx context.Context) ([]*domain.Product, error) {
	return c.products, c.getErr
}

func (c *fakeProductCache) SetProducts(ctx context.Context, products []*domain.Product) error {
	c.products = products
	c.setCalls++
	return nil
}

type rewardFixture struct {
	svc         *RewardService
	users       userdomain.UserRepository
	ledger      domain.LedgerRepository
	redemptions domain.RedemptionRepository
	products    domain.ProductRepository
	cache       *fakeProductCache
}

func newRewardFixture(t *testing.T) *rewardFixture {
	t.Helper()
	db := testutil.NewDB(t,
		&userdomain.User{},
		&domain.LedgerEntry{},
		&domain.Redemption{},
		&domain.Product{},
	)
	users := usermysql.NewUserRepository(db)
	ledger := rewardmysql.NewLedgerRepository(db)
	redemptions := rewardmysql.NewRedemptionRepository(db)
	products := rewardmysql.NewProductRepository(db)
	cache := &fakeProductCache{}
	svc := NewRewardService(users, ledger, redemptions, products, cache, slog.Default())
	return &rewardFixture{
		svc:         svc,
		users:       users,
		ledger:      ledger,
		redemptions: redemptions,
		products:    products,
		cache:       cache,
	}
}

func (f *rewardFixture) seedUser(t *testing.T, userID string, balance int64) {
	t.Helper()
	user, err := userdomain.NewUser(userID, "User "+userID, userID+"@example.com", "")
	if err != nil {
		t.Fatal(err)
	}
	user.RewardsBalance = balance
	if err := f.users.Save(context.Background(), user); err != nil {
		t.Fatal(err)
	}
	if balance > 0 {
		// 余额必须可由账本推导，预置对应的账本条目
		entry := &domain.LedgerEntry{
			EntryID: "RWD-seed-" + userID,
			UserID:  userID,
			Points:  balance,
			Reason:  "seed",
		}
		if err := f.ledger.Append(context.Background(), entry); err != nil {
			t.Fatal(err)
		}
	}
}

func (f *rewardFixture) seedProduct(t *testing.T, productID string, price int64, active bool) {
	t.Helper()
	p := &domain.Product{
		ProductID:   productID,
		Partner:     "Corner Cafe",
		Name:        "Free Coffee",
		PricePoints: price,
		CashValue:   decimal.NewFromInt(price),
		Active:      active,
	}
	if err := f.products.Save(context.Background(), p); err != nil {
		t.Fatal(err)
	}
}

func TestGrantRequiresTransaction(t *testing.T) {
	f := newRewardFixture(t)
	f.seedUser(t, "USR-1", 0)
	err := f.svc.Grant(context.Background(), "USR-1", 100, "test grant", "CLM-1")
	if !errs.IsKind(err, errs.KindInternal) {
		t.Errorf("err = %v, want internal", err)
	}
}

func TestGrantInsideTransaction(t *testing.T) {
	f := newRewardFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-1", 0)

	err := f.redemptions.WithTx(ctx, func(txCtx context.Context) error {
		return f.svc.Grant(txCtx, "USR-1", 100, "found item returned", "CLM-1")
	})
	if err != nil {
		t.Fatalf("Grant: %v", err)
	}

	user, err := f.users.Get(ctx, "USR-1")
	if err != nil {
		t.Fatal(err)
	}
	if user.RewardsBalance != 100 {
		t.Errorf("balance = %d, want 100", user.RewardsBalance)
	}
	entries, err := f.ledger.ListByUser(ctx, "USR-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Points != 100 {
		t.Errorf("ledger = %+v", entries)
	}
	if entries[0].SourceID != "CLM-1" {
		t.Errorf("SourceID = %q, want CLM-1", entries[0].SourceID)
	}
}

func TestGrantRejectsNonPositivePoints(t *testing.T) {
	f := newRewardFixture(t)
	if err := f.svc.Grant(context.Background(), "USR-1", 0, "nothing", ""); !errs.IsKind(err, errs.KindValidation) {
		t.Errorf("err = %v, want validation", err)
	}
}

func TestRedeemCash(t *testing.T) {
	f := newRewardFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-1", 150)

	redemption, err := f.svc.RedeemCash(ctx, "USR-1", 100)
	if err != nil {
		t.Fatalf("RedeemCash: %v", err)
	}
	if redemption.Kind != domain.RedemptionCash {
		t.Errorf("Kind = %s", redemption.Kind)
	}
	if !redemption.CashValue.Equal(decimal.NewFromInt(100)) {
		t.Errorf("CashValue = %s, want 100", redemption.CashValue)
	}

	user, err := f.users.Get(ctx, "USR-1")
	if err != nil {
		t.Fatal(err)
	}
	if user.RewardsBalance != 50 {
		t.Errorf("balance = %d, want 50", user.RewardsBalance)
	}
}

func TestRedeemCashInsufficientBalance(t *testing.T) {
	f := newRewardFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-1", 30)

	_, err := f.svc.RedeemCash(ctx, "USR-1", 100)
	if !errs.IsKind(err, errs.KindConflict) {
		t.Fatalf("err = %v, want conflict", err)
	}

	// 失败的兑换不能留下任何痕迹
	user, err := f.users.Get(ctx, "USR-1")
	if err != nil {
		t.Fatal(err)
	}
	if user.RewardsBalance != 30 {
		t.Errorf("balance = %d, want 30", user.RewardsBalance)
	}
	redemptions, err := f.redemptions.ListByUser(ctx, "USR-1")
	if err != nil {
		t.Fatal(err)
	}
	if len(redemptions) != 0 {
		t.Errorf("redemptions = %d, want 0", len(redemptions))
	}
}

func TestRedeemProduct(t *testing.T) {
	f := newRewardFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-1", 200)
	f.seedProduct(t, "PRD-1", 80, true)

	redemption, err := f.svc.RedeemProduct(ctx, "USR-1", "PRD-1")
	if err != nil {
		t.Fatalf("RedeemProduct: %v", err)
	}
	if redemption.PointsSpent != 80 {
		t.Errorf("PointsSpent = %d, want 80", redemption.PointsSpent)
	}
	if redemption.ProductName != "Free Coffee" {
		t.Errorf("ProductName = %q", redemption.ProductName)
	}

	user, err := f.users.Get(ctx, "USR-1")
	if err != nil {
		t.Fatal(err)
	}
	if user.RewardsBalance != 120 {
		t.Errorf("balance = %d, want 120", user.RewardsBalance)
	}
}

func TestRedeemProductInactive(t *testing.T) {
	f := newRewardFixture(t)
	f.seedUser(t, "USR-1", 200)
	f.seedProduct(t, "PRD-1", 80, false)

	_, err := f.svc.RedeemProduct(context.Background(), "USR-1", "PRD-1")
	if !errs.IsKind(err, errs.KindNotFound) {
		t.Errorf("err = %v, want not found", err)
	}
}

func TestReconcile(t *testing.T) {
	f := newRewardFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-1", 150)

	if _, err := f.svc.RedeemCash(ctx, "USR-1", 40); err != nil {
		t.Fatal(err)
	}

	derived, ok, err := f.svc.Reconcile(ctx, "USR-1")
	if err != nil {
		t.Fatalf("Reconcile: %v", err)
	}
	if !ok {
		t.Error("ledger and balance should reconcile")
	}
	if derived != 110 {
		t.Errorf("derived = %d, want 110", derived)
	}
}

func TestSummary(t *testing.T) {
	f := newRewardFixture(t)
	ctx := context.Background()
	f.seedUser(t, "USR-1", 150)
	if _, err := f.svc.RedeemCash(ctx, "USR-1", 40); err != nil {
		t.Fatal(err)
	}

	summary, err := f.svc.Summary(ctx, "USR-1")
	if err != nil {
		t.Fatalf("Summary: %v", err)
	}
	if summary.Balance != 110 {
		t.Errorf("Balance = %d, want 110", summary.Balance)
	}
	if len(summary.Ledger) != 1 {
		t.Errorf("Ledger entries = %d, want 1", len(summary.Ledger))
	}
	if len(summary.Redemptions) != 1 {
		t.Errorf("Redemptions = %d, want 1", len(summary.Redemptions))
	}
}

func TestListProductsFillsCache(t *testing.T) {
	f := newRewardFixture(t)
	ctx := context.Background()
	f.seedProduct(t, "PRD-1", 80, true)
	f.seedProduct(t, "PRD-2", 60, false)

	products, err := f.svc.ListProducts(ctx)
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(products) != 1 {
		t.Fatalf("products = %d, want 1 active", len(products))
	}
	if f.cache.setCalls != 1 {
		t.Errorf("cache writes = %d, want 1", f.cache.setCalls)
	}

	// 第二次读直接命中缓存
	again, err := f.svc.ListProducts(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(again) != 1 || f.cache.setCalls != 1 {
		t.Errorf("cache should serve the second read, writes = %d", f.cache.setCalls)
	}
}

func TestListProductsDegradesOnCacheFailure(t *testing.T) {
	f := newRewardFixture(t)
	f.cache.getErr = errors.New("redis down")
	f.seedProduct(t, "PRD-1", 80, true)

	products, err := f.svc.ListProducts(context.Background())
	if err != nil {
		t.Fatalf("ListProducts: %v", err)
	}
	if len(products) != 1 {
		t.Errorf("products = %d, want 1", len(products))
	}
}
