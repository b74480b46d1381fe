package application

import (
	"context"
	"log/slog"
	"testing"

	"github.com/wyfcoding/pkg/security"

	"github.com/retreivo/retreivo/internal/testutil"
	"github.com/retreivo/retreivo/internal/user/domain"
	usermysql "github.com/retreivo/retreivo/internal/user/infrastructure/persistence/mysql"
)

func newUserFixture(t *testing.T) (*UserService, domain.UserRepository) {
	t.Helper()
	db := testutil.NewDB(t, &domain.User{})
	repo := usermysql.NewUserRepository(db)
	return NewUserService(repo, slog.Default()), repo
}

func TestRegisterHashesPassword(t *testing.T) {
	svc, repo := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterUserCommand{
		Name: "Alice", Email: "alice@example.com", Password: "hunter2",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}

	stored, err := repo.Get(ctx, user.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.PasswordHash == "" {
		t.Fatal("PasswordHash should be set")
	}
	if stored.PasswordHash == "hunter2" {
		t.Error("password stored in plaintext")
	}
	if !security.CheckPassword("hunter2", stored.PasswordHash) {
		t.Error("stored hash does not verify against the original password")
	}
}

func TestRegisterWithoutPassword(t *testing.T) {
	svc, repo := newUserFixture(t)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterUserCommand{
		Name: "Bob", Email: "bob@example.com",
	})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	stored, err := repo.Get(ctx, user.UserID)
	if err != nil {
		t.Fatal(err)
	}
	if stored.PasswordHash != "" {
		t.Errorf("PasswordHash = %q, want empty", stored.PasswordHash)
	}
}
