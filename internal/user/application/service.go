// Package application 用户上下文的应用服务
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/wyfcoding/pkg/idgen"
	"github.com/wyfcoding/pkg/security"

	"github.com/retreivo/retreivo/internal/user/domain"
)

// RegisterUserCommand 用户档案创建命令
type RegisterUserCommand struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
}

// UpdateProfileCommand 档案更新命令
type UpdateProfileCommand struct {
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// UserService 用户应用服务
type UserService struct {
	repo   domain.UserRepository
	logger *slog.Logger
}

func NewUserService(repo domain.UserRepository, logger *slog.Logger) *UserService {
	return &UserService{
		repo:   repo,
		logger: logger.With("module", "user_service"),
	}
}

// Register 创建用户档案。登录校验由外部身份服务负责，
// 口令散列只随档案保存，供身份服务迁移历史账户时比对。
func (s *UserService) Register(ctx context.Context, cmd RegisterUserCommand) (*domain.User, error) {
	userID := fmt.Sprintf("USR-%d", idgen.GenID())
	user, err := domain.NewUser(userID, cmd.Name, cmd.Email, cmd.Phone)
	if err != nil {
		return nil, err
	}
	if cmd.Password != "" {
		hash, err := security.HashPassword(cmd.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "user registered", "user_id", user.UserID, "email", user.Email)
	return user, nil
}

// GetProfile 查询用户档案
func (s *UserService) GetProfile(ctx context.Context, userID string) (*domain.User, error) {
	return s.repo.Get(ctx, userID)
}

// UpdateProfile 更新档案中的可变字段
func (s *UserService) UpdateProfile(ctx context.Context, userID string, cmd UpdateProfileCommand) (*domain.User, error) {
	user, err := s.repo.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(cmd.Name); name != "" {
		user.Name = name
	}
	if cmd.Phone != "" {
		user.Phone = cmd.Phone
	}
	if err := s.repo.Save(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}
