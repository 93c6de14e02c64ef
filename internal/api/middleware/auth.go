package middleware

import (
	"strings"
	"time"

	"github.com/eminbuyuk/lxmon/db"
	dbinit "github.com/eminbuyuk/lxmon/db/init"
	"github.com/eminbuyuk/lxmon/internal/api/response"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims JWT声明
type JWTClaims struct {
	UserID   int64  `json:"user_id"`
	Username string `json:"username"`
	TenantID string `json:"tenant_id"`
	jwt.RegisteredClaims
}

// JWTAuth JWT认证中间件
func JWTAuth(secret string) gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			response.Unauthorized(c, "Authorization header required")
			c.Abort()
			return
		}

		// 解析Bearer token
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || parts[0] != "Bearer" {
			response.Unauthorized(c, "Invalid authorization header format")
			c.Abort()
			return
		}

		token, err := jwt.ParseWithClaims(parts[1], &JWTClaims{}, func(token *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		})
		if err != nil || !token.Valid {
			response.Unauthorized(c, "Invalid or expired token")
			c.Abort()
			return
		}

		claims, ok := token.Claims.(*JWTClaims)
		if !ok {
			response.Unauthorized(c, "Invalid token claims")
			c.Abort()
			return
		}

		c.Set("user_id", claims.UserID)
		c.Set("username", claims.Username)
		c.Set("tenant_id", claims.TenantID)

		c.Next()
	}
}

// GenerateJWT 生成JWT token
func GenerateJWT(userID int64, username, tenantID, secret string, expirationHours int) (string, error) {
	claims := JWTClaims{
		UserID:   userID,
		Username: username,
		TenantID: tenantID,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Duration(expirationHours) * time.Hour)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			NotBefore: jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(secret))
}

// AgentAuth Agent认证中间件
// 通过X-API-Key识别服务器，命中后写入上下文供处理器使用
func AgentAuth(dbManager *db.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		apiKey := c.GetHeader("X-API-Key")
		if apiKey == "" {
			response.Unauthorized(c, "X-API-Key header required")
			c.Abort()
			return
		}

		server, err := dbManager.DB.SQLite.GetServerByAPIKey(apiKey)
		if err != nil {
			response.InternalError(c, "Database error", err)
			c.Abort()
			return
		}
		if server == nil {
			response.Unauthorized(c, "Invalid API key")
			c.Abort()
			return
		}

		c.Set("server", server)
		c.Next()
	}
}

// ServerFromContext 取出AgentAuth写入的服务器
func ServerFromContext(c *gin.Context) *dbinit.Server {
	v, exists := c.Get("server")
	if !exists {
		return nil
	}
	server, ok := v.(*dbinit.Server)
	if !ok {
		return nil
	}
	return server
}
