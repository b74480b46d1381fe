package application

import (
	"bytes"
	"context"
	"encoding/csv"
	"log/slog"
	"testing"

	"github.com/retreivo/retreivo/internal/claim/domain"
	claimmysql "github.com/retreivo/retreivo/internal/claim/infrastructure/persistence/mysql"
	fraudapp "github.com/retreivo/retreivo/internal/fraud/application"
	frauddomain "github.com/retreivo/retreivo/internal/fraud/domain"
	itemdomain "github.com/retreivo/retreivo/internal/item/domain"
	itemmysql "github.com/retreivo/retreivo/internal/item/infrastructure/persistence/mysql"
	"github.com/retreivo/retreivo/internal/testutil"
	userdomain "github.com/retreivo/retreivo/internal/user/domain"
	usermysql "github.com/retreivo/retreivo/internal/user/infrastructure/persistence/mysql"
)

// scriptedAssessor 按 claimant 返回固定分数
type scriptedAssessor struct {
	scores map[string]int
}

func (a *scriptedAssessor) Assess(ctx context.Context, ref fraudapp.ClaimRef) frauddomain.Assessment {
	return frauddomain.NewAssessment(a.scores[ref.ClaimantID], []string{"scripted"}, frauddomain.SourceHeuristic)
}

func newQueryFixture(t *testing.T, assessor Assessor) (*ClaimQueryService, domain.ClaimRepository) {
	t.Helper()
	db := testutil.NewDB(t,
		&userdomain.User{},
		&itemdomain.Item{},
		&domain.Claim{},
	)
	users := usermysql.NewUserRepository(db)
	items := itemmysql.NewItemRepository(db)
	claims := claimmysql.NewClaimRepository(db)
	ctx := context.Background()

	for _, u := range []struct{ id, name string }{
		{"USR-finder", "Finder"},
		{"USR-a", "Alice"},
		{"USR-b", "Bob"},
	} {
		user, err := userdomain.NewUser(u.id, u.name, u.id+"@example.com", "555-0101")
		if err != nil {
			t.Fatal(err)
		}
		if err := users.Save(ctx, user); err != nil {
			t.Fatal(err)
		}
	}

	item, err := itemdomain.NewItem("ITM-1", itemdomain.TypeFound, "USR-finder", "Black Wallet")
	if err != nil {
		t.Fatal(err)
	}
	item.Location = "Central Park"
	if err := items.Save(ctx, item); err != nil {
		t.Fatal(err)
	}

	for _, c := range []struct{ id, claimant string }{
		{"CLM-a", "USR-a"},
		{"CLM-b", "USR-b"},
	} {
		claim := domain.NewClaim(c.id, c.claimant, itemdomain.TypeFound, "ITM-1", "")
		if err := claims.Save(ctx, claim); err != nil {
			t.Fatal(err)
		}
	}

	return NewClaimQueryService(claims, assessor, slog.Default()), claims
}

func TestListClaimsWithRisk(t *testing.T) {
	assessor := &scriptedAssessor{scores: map[string]int{"USR-a": 10, "USR-b": 85}}
	svc, _ := newQueryFixture(t, assessor)

	claims, err := svc.ListClaims(context.Background(), ListClaimsQuery{MaxScore: 100})
	if err != nil {
		t.Fatalf("ListClaims: %v", err)
	}
	if len(claims) != 2 {
		t.Fatalf("claims = %d, want 2", len(claims))
	}
	byClaimant := map[string]*ClaimWithRisk{}
	for _, c := range claims {
		byClaimant[c.ClaimantID] = c
		if c.ItemName != "Black Wallet" {
			t.Errorf("ItemName = %q", c.ItemName)
		}
	}
	if byClaimant["USR-a"].RiskLevel != frauddomain.RiskLow {
		t.Errorf("USR-a level = %s, want %s", byClaimant["USR-a"].RiskLevel, frauddomain.RiskLow)
	}
	if byClaimant["USR-b"].RiskLevel != frauddomain.RiskCritical {
		t.Errorf("USR-b level = %s, want %s", byClaimant["USR-b"].RiskLevel, frauddomain.RiskCritical)
	}
}

func TestListClaimsFiltersByScoreRange(t *testing.T) {
	assessor := &scriptedAssessor{scores: map[string]int{"USR-a": 10, "USR-b": 85}}
	svc, _ := newQueryFixture(t, assessor)

	claims, err := svc.ListClaims(context.Background(), ListClaimsQuery{MinScore: 50, MaxScore: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(claims) != 1 || claims[0].ClaimantID != "USR-b" {
		t.Errorf("claims = %+v", claims)
	}

	claims, err = svc.ListClaims(context.Background(), ListClaimsQuery{MaxScore: 49})
	if err != nil {
		t.Fatal(err)
	}
	if len(claims) != 1 || claims[0].ClaimantID != "USR-a" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestListClaimsMaxScoreZero(t *testing.T) {
	assessor := &scriptedAssessor{scores: map[string]int{"USR-a": 0, "USR-b": 85}}
	svc, _ := newQueryFixture(t, assessor)

	// 上限为零是合法过滤条件，只命中零分认领
	claims, err := svc.ListClaims(context.Background(), ListClaimsQuery{MaxScore: 0})
	if err != nil {
		t.Fatal(err)
	}
	if len(claims) != 1 || claims[0].ClaimantID != "USR-a" {
		t.Errorf("claims = %+v", claims)
	}
}

func TestListClaimsFiltersByStatus(t *testing.T) {
	assessor := &scriptedAssessor{scores: map[string]int{}}
	svc, claims := newQueryFixture(t, assessor)
	ctx := context.Background()

	claim, err := claims.Get(ctx, "CLM-a")
	if err != nil {
		t.Fatal(err)
	}
	if err := claim.Reject(""); err != nil {
		t.Fatal(err)
	}
	if err := claims.Save(ctx, claim); err != nil {
		t.Fatal(err)
	}

	pending, err := svc.ListClaims(ctx, ListClaimsQuery{Status: domain.StatusPending, MaxScore: 100})
	if err != nil {
		t.Fatal(err)
	}
	if len(pending) != 1 || pending[0].ClaimID != "CLM-b" {
		t.Errorf("pending = %+v", pending)
	}
}

func TestExportClaimsCSV(t *testing.T) {
	assessor := &scriptedAssessor{scores: map[string]int{"USR-a": 10, "USR-b": 85}}
	svc, _ := newQueryFixture(t, assessor)

	var buf bytes.Buffer
	if err := svc.ExportClaims(context.Background(), &buf, ListClaimsQuery{MaxScore: 100}); err != nil {
		t.Fatalf("ExportClaims: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	if len(records) != 3 {
		t.Fatalf("csv rows = %d, want header + 2", len(records))
	}
	header := records[0]
	if header[0] != "claim_id" || header[9] != "fraud_score" || header[10] != "risk_level" {
		t.Errorf("header = %v", header)
	}
	for _, row := range records[1:] {
		if len(row) != len(header) {
			t.Errorf("row width = %d, want %d", len(row), len(header))
		}
		if row[4] != "Black Wallet" {
			t.Errorf("item_name = %q", row[4])
		}
	}
}

func TestHistory(t *testing.T) {
	assessor := &scriptedAssessor{scores: map[string]int{}}
	svc, _ := newQueryFixture(t, assessor)

	history, err := svc.History(context.Background(), "USR-a")
	if err != nil {
		t.Fatalf("History: %v", err)
	}
	if len(history) != 1 || history[0].ClaimID != "CLM-a" {
		t.Errorf("history = %+v", history)
	}
}
