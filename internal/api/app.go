package api

import (
	"github.com/eminbuyuk/lxmon/db"
	"github.com/eminbuyuk/lxmon/internal/config"
	"github.com/eminbuyuk/lxmon/internal/service"
)

// App 应用实例
type App struct {
	Config       *config.Config
	DB           *db.Manager
	Orchestrator *service.Orchestrator
	Commands     *service.CommandQueueService
	Users        *service.UserService
}

// NewApp 创建新的应用实例
func NewApp(cfg *config.Config, dbManager *db.Manager, orchestrator *service.Orchestrator) *App {
	return &App{
		Config:       cfg,
		DB:           dbManager,
		Orchestrator: orchestrator,
		Commands:     service.NewCommandQueueService(dbManager),
		Users:        service.NewUserService(dbManager),
	}
}
