package api

import (
	"time"

	"github.com/eminbuyuk/lxmon/internal/api/middleware"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// SetupRouter 设置路由
func SetupRouter(app *App) *gin.Engine {
	if app.Config.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// 全局中间件
	router.Use(middleware.Recovery())
	router.Use(middleware.Logger())
	router.Use(middleware.CORS())

	// 健康检查
	router.GET("/health", func(c *gin.Context) {
		status := "ok"
		if err := app.DB.DB.SQLite.Ping(); err != nil {
			status = "degraded"
		}
		c.JSON(200, gin.H{
			"status": status,
			"cache":  app.DB.HasCache(),
			"engine": app.Orchestrator.Running(),
		})
	})

	// Prometheus 监控指标
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// API v1
	v1 := router.Group("/api/v1")
	{
		// Agent上报接口（X-API-Key认证）
		agentHandler := NewAgentHandler(app)
		agent := v1.Group("/agent")
		{
			agent.POST("/register",
				middleware.RateLimit(app.DB, 10, time.Minute),
				agentHandler.Register)

			reporting := agent.Group("")
			reporting.Use(middleware.AgentAuth(app.DB))
			{
				reporting.POST("/heartbeat", agentHandler.Heartbeat)
				reporting.POST("/metrics", agentHandler.PushMetrics)
				reporting.GET("/commands", agentHandler.PollCommands)
				reporting.POST("/commands/result", agentHandler.ReportCommandResult)
			}
		}

		// 认证路由（无需JWT）
		auth := v1.Group("/auth")
		{
			authHandler := NewAuthHandler(app)
			auth.POST("/register",
				middleware.RateLimit(app.DB, 5, time.Minute),
				authHandler.Register)
			auth.POST("/login",
				middleware.RateLimit(app.DB, 20, time.Minute),
				authHandler.Login)
		}

		// 需要JWT认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth(app.Config.Auth.JWTSecret))
		{
			authHandler := NewAuthHandler(app)
			users := authorized.Group("/users")
			{
				users.GET("/profile", authHandler.Profile)
				users.PUT("/password", authHandler.ChangePassword)
			}

			// 服务器管理
			serverHandler := NewServerHandler(app)
			servers := authorized.Group("/servers")
			{
				servers.GET("", serverHandler.List)
				servers.GET("/:id", serverHandler.Get)
				servers.PUT("/:id", serverHandler.Update)
				servers.DELETE("/:id", serverHandler.Delete)
				servers.GET("/:id/latest-metrics", serverHandler.LatestMetrics)
				servers.GET("/:id/metrics", serverHandler.MetricsHistory)
				servers.POST("/:id/commands", serverHandler.EnqueueCommand)
				servers.GET("/:id/commands", serverHandler.ListCommands)
				servers.GET("/:id/commands/:cmdID", serverHandler.GetCommand)
			}

			// 告警规则与告警
			alertHandler := NewAlertHandler(app)
			rules := authorized.Group("/alert-rules")
			{
				rules.POST("", alertHandler.CreateRule)
				rules.GET("", alertHandler.ListRules)
				rules.PUT("/:id", alertHandler.UpdateRule)
				rules.DELETE("/:id", alertHandler.DeleteRule)
			}
			alerts := authorized.Group("/alerts")
			{
				alerts.GET("", alertHandler.ListAlerts)
				alerts.GET("/summary", alertHandler.AlertSummary)
				alerts.PUT("/:id/acknowledge", alertHandler.Acknowledge)
				alerts.PUT("/:id/resolve", alertHandler.Resolve)
			}
		}
	}

	return router
}
