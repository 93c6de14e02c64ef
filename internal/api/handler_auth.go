package api

import (
	"time"

	"github.com/eminbuyuk/lxmon/internal/api/middleware"
	"github.com/eminbuyuk/lxmon/internal/api/response"
	"github.com/eminbuyuk/lxmon/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	app *App
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(app *App) *AuthHandler {
	return &AuthHandler{app: app}
}

// RegisterUserRequest 用户注册请求
type RegisterUserRequest struct {
	Username string `json:"username" binding:"required,min=3,max=32"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

// Register 注册控制面板用户
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterUserRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request", err)
		return
	}

	user, err := h.app.Users.Register(req.Username, req.Email, req.Password, h.app.Config.Auth.DefaultTenant)
	if err != nil {
		response.BadRequest(c, "Registration failed", err)
		return
	}

	response.Created(c, user)
}

// LoginRequest 登录请求
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
}

// LoginResponse 登录响应
type LoginResponse struct {
	Token     string `json:"token"`
	UserID    int64  `json:"user_id"`
	Username  string `json:"username"`
	TenantID  string `json:"tenant_id"`
	ExpiresAt int64  `json:"expires_at"`
}

// Login 用户登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request", err)
		return
	}

	user, err := h.app.Users.Authenticate(req.Username, req.Password)
	if err != nil {
		response.Unauthorized(c, "Invalid username or password")
		return
	}

	token, err := middleware.GenerateJWT(
		user.ID,
		user.Username,
		user.TenantID,
		h.app.Config.Auth.JWTSecret,
		h.app.Config.Auth.JWTExpiration,
	)
	if err != nil {
		response.InternalError(c, "Failed to generate token", err)
		return
	}

	logger.Info("用户登录", zap.String("username", user.Username))
	response.Success(c, LoginResponse{
		Token:     token,
		UserID:    user.ID,
		Username:  user.Username,
		TenantID:  user.TenantID,
		ExpiresAt: time.Now().Add(time.Duration(h.app.Config.Auth.JWTExpiration) * time.Hour).Unix(),
	})
}

// Profile 获取当前用户信息
func (h *AuthHandler) Profile(c *gin.Context) {
	userID := c.GetInt64("user_id")

	user, err := h.app.DB.DB.SQLite.GetUser(userID)
	if err != nil {
		response.InternalError(c, "Database error", err)
		return
	}
	if user == nil {
		response.NotFound(c, "User not found")
		return
	}

	response.Success(c, user)
}

// ChangePasswordRequest 修改密码请求
type ChangePasswordRequest struct {
	OldPassword string `json:"old_password" binding:"required"`
	NewPassword string `json:"new_password" binding:"required,min=8"`
}

// ChangePassword 修改当前用户密码
func (h *AuthHandler) ChangePassword(c *gin.Context) {
	var req ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request", err)
		return
	}

	if err := h.app.Users.ChangePassword(c.GetInt64("user_id"), req.OldPassword, req.NewPassword); err != nil {
		response.BadRequest(c, "Failed to change password", err)
		return
	}

	response.SuccessWithMessage(c, "Password updated", nil)
}
