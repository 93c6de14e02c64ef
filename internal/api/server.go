package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/eminbuyuk/lxmon/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server API服务器
type Server struct {
	httpServer *http.Server
}

// NewServer 创建API服务器
func NewServer(app *App, router *gin.Engine) *Server {
	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf("%s:%d", app.Config.Server.Host, app.Config.Server.Port),
			Handler:      router,
			ReadTimeout:  time.Duration(app.Config.Server.ReadTimeout) * time.Second,
			WriteTimeout: time.Duration(app.Config.Server.WriteTimeout) * time.Second,
			IdleTimeout:  120 * time.Second,
		},
	}
}

// Start 启动HTTP服务，阻塞直到服务退出
func (s *Server) Start() error {
	logger.Info("HTTP服务启动", zap.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server error: %w", err)
	}
	return nil
}

// Shutdown 优雅关闭
func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}
