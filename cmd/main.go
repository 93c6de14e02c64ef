package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/eminbuyuk/lxmon/db"
	"github.com/eminbuyuk/lxmon/internal/api"
	"github.com/eminbuyuk/lxmon/internal/config"
	"github.com/eminbuyuk/lxmon/internal/service"
	"github.com/eminbuyuk/lxmon/pkg/logger"

	"go.uber.org/zap"
)

var (
	configPath = flag.String("config", "./config.yaml", "Path to config file")
	port       = flag.Int("port", 0, "Override server port")
)

func main() {
	flag.Parse()

	if err := logger.Init(&logger.Config{
		Level:  "info",
		Format: "console",
	}); err != nil {
		log.Fatalf("初始化日志系统失败: %v", err)
	}
	defer logger.Sync()

	printBanner()

	cfg := config.LoadConfigOrDefault(*configPath)
	if *port > 0 {
		cfg.Server.Port = *port
	}

	// 重新初始化日志系统（使用配置）
	if err := logger.Init(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		OutputPath: cfg.Log.OutputPath,
		MaxSize:    cfg.Log.MaxSize,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAge:     cfg.Log.MaxAge,
		Compress:   cfg.Log.Compress,
	}); err != nil {
		logger.Fatal("重新初始化日志系统失败", zap.Error(err))
	}

	dbManager, err := db.NewManager(&db.Config{
		SQLitePath:    cfg.Database.SQLitePath,
		RedisAddr:     cfg.Database.RedisAddr,
		RedisPassword: cfg.Database.RedisPassword,
		RedisDB:       cfg.Database.RedisDB,
	})
	if err != nil {
		logger.Fatal("初始化数据库失败", zap.Error(err))
	}
	defer dbManager.Close()

	logger.Info("✓ 数据库初始化成功")

	// 启动后台引擎
	orchestrator := service.NewOrchestrator(dbManager, &cfg.Engine)
	orchestrator.Start()
	defer orchestrator.Stop()

	// 创建应用与HTTP服务
	app := api.NewApp(cfg, dbManager, orchestrator)
	router := api.SetupRouter(app)
	server := api.NewServer(app, router)

	go func() {
		if err := server.Start(); err != nil {
			logger.Fatal("HTTP服务异常退出", zap.Error(err))
		}
	}()

	// 等待退出信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("收到退出信号，开始关闭")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("HTTP服务关闭失败", zap.Error(err))
	}

	logger.Info("服务已退出")
}

func printBanner() {
	fmt.Println("")
	fmt.Println("  lxmon - server monitoring control plane")
	fmt.Println("")
}
