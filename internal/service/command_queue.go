package service

import (
	"fmt"
	"time"

	"github.com/eminbuyuk/lxmon/db"
	dbinit "github.com/eminbuyuk/lxmon/db/init"
	"github.com/eminbuyuk/lxmon/internal/metrics"
	"github.com/eminbuyuk/lxmon/pkg/logger"

	"go.uber.org/zap"
)

// CommandQueueService 命令分发队列
// SQLite行是命令的事实记录，Redis列表只做FIFO投递，命令ID是两者之间唯一的关联键
type CommandQueueService struct {
	db *db.Manager
}

// NewCommandQueueService 创建命令分发服务
func NewCommandQueueService(dbManager *db.Manager) *CommandQueueService {
	return &CommandQueueService{db: dbManager}
}

// Enqueue 创建命令记录并投递到服务器队列尾部
// 先写SQLite再写Redis，两步之间不保证事务：投递失败时pending行会残留
func (s *CommandQueueService) Enqueue(serverID int64, command string) (*dbinit.Command, error) {
	if !s.db.HasCache() {
		return nil, fmt.Errorf("command queue unavailable: redis not connected")
	}

	server, err := s.db.DB.SQLite.GetServer(serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to get server: %w", err)
	}
	if server == nil {
		return nil, fmt.Errorf("server not found")
	}

	cmd := &dbinit.Command{
		ServerID:  serverID,
		Command:   command,
		Status:    "pending",
		CreatedAt: time.Now().UTC(),
	}
	if err := s.db.DB.SQLite.CreateCommand(cmd); err != nil {
		return nil, fmt.Errorf("failed to create command: %w", err)
	}

	queued := &dbinit.QueuedCommand{
		CommandID: cmd.ID,
		Command:   cmd.Command,
	}
	if err := s.db.Cache.Redis.PushCommand(serverID, queued); err != nil {
		return nil, fmt.Errorf("failed to push command %d to queue: %w", cmd.ID, err)
	}

	metrics.CommandsEnqueued.Inc()
	logger.Info("命令已入队",
		zap.Int64("commandID", cmd.ID),
		zap.Int64("serverID", serverID))
	return cmd, nil
}

// Dequeue 从服务器队列头部取出一条命令，没有命令时返回nil
func (s *CommandQueueService) Dequeue(serverID int64) (*dbinit.QueuedCommand, error) {
	if !s.db.HasCache() {
		return nil, nil
	}

	queued, err := s.db.Cache.Redis.PopCommand(serverID)
	if err != nil {
		return nil, fmt.Errorf("failed to pop command: %w", err)
	}
	if queued == nil {
		return nil, nil
	}

	// 命令已出队，状态更新失败不应阻止投递
	if err := s.db.DB.SQLite.MarkCommandRunning(queued.CommandID, serverID, time.Now().UTC()); err != nil {
		logger.Warn("更新命令状态失败",
			zap.Int64("commandID", queued.CommandID),
			zap.Int64("serverID", serverID),
			zap.Error(err))
	}

	return queued, nil
}

// ReportResult 记录命令执行结果，退出码0记为completed，否则failed
func (s *CommandQueueService) ReportResult(serverID, commandID int64, exitCode int, stdout, stderr string) error {
	status := "completed"
	if exitCode != 0 {
		status = "failed"
	}

	if err := s.db.DB.SQLite.CompleteCommand(commandID, serverID, status, exitCode, stdout, stderr, time.Now().UTC()); err != nil {
		return err
	}

	metrics.CommandsCompleted.WithLabelValues(status).Inc()
	logger.Info("命令执行结果已记录",
		zap.Int64("commandID", commandID),
		zap.Int64("serverID", serverID),
		zap.String("status", status),
		zap.Int("exitCode", exitCode))
	return nil
}

// QueueLength 返回服务器待投递命令数量
func (s *CommandQueueService) QueueLength(serverID int64) (int64, error) {
	if !s.db.HasCache() {
		return 0, nil
	}
	return s.db.Cache.Redis.CommandQueueLength(serverID)
}
