package middleware

import (
	"fmt"
	"time"

	"github.com/eminbuyuk/lxmon/db"
	"github.com/eminbuyuk/lxmon/internal/api/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RateLimit 基于Redis的固定窗口限流中间件
// Redis不可用时直接放行
func RateLimit(dbManager *db.Manager, limit int64, window time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !dbManager.HasCache() {
			c.Next()
			return
		}

		key := fmt.Sprintf("ratelimit:%s:%s", c.ClientIP(), c.FullPath())
		count, err := dbManager.Cache.Redis.Incr(key, window)
		if err != nil {
			// 限流器故障不应拦截正常流量
			zap.L().Warn("限流计数失败", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		if count > limit {
			response.Error(c, 429, "Too many requests")
			c.Abort()
			return
		}

		c.Next()
	}
}
