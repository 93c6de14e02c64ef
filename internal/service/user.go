package service

import (
	"fmt"
	"time"

	"github.com/eminbuyuk/lxmon/db"
	dbinit "github.com/eminbuyuk/lxmon/db/init"
	"github.com/eminbuyuk/lxmon/pkg/logger"

	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

// UserService 用户服务
type UserService struct {
	db *db.Manager
}

// NewUserService 创建用户服务
func NewUserService(dbManager *db.Manager) *UserService {
	return &UserService{db: dbManager}
}

// Register 注册新用户
func (s *UserService) Register(username, email, password, tenantID string) (*dbinit.User, error) {
	existing, err := s.db.DB.SQLite.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}
	if existing != nil {
		return nil, fmt.Errorf("username already taken")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &dbinit.User{
		Username:     username,
		Email:        email,
		PasswordHash: string(hash),
		IsActive:     true,
		TenantID:     tenantID,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.db.DB.SQLite.CreateUser(user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	logger.Info("新用户注册", zap.String("username", username), zap.String("tenantID", tenantID))
	return user, nil
}

// Authenticate 校验用户名密码，成功返回用户
func (s *UserService) Authenticate(username, password string) (*dbinit.User, error) {
	user, err := s.db.DB.SQLite.GetUserByUsername(username)
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil || !user.IsActive {
		return nil, fmt.Errorf("invalid username or password")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, fmt.Errorf("invalid username or password")
	}

	return user, nil
}

// ChangePassword 修改密码
func (s *UserService) ChangePassword(userID int64, oldPassword, newPassword string) error {
	user, err := s.db.DB.SQLite.GetUser(userID)
	if err != nil {
		return fmt.Errorf("failed to get user: %w", err)
	}
	if user == nil {
		return fmt.Errorf("user not found")
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(oldPassword)); err != nil {
		return fmt.Errorf("old password incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(newPassword), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	return s.db.DB.SQLite.UpdateUserPassword(userID, string(hash))
}
