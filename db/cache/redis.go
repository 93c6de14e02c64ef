package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	dbinit "github.com/eminbuyuk/lxmon/db/init"

	"github.com/redis/go-redis/v9"
)

// RedisCache Redis缓存客户端
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// NewRedisCache 创建新的Redis缓存客户端
func NewRedisCache(addr, password string, db int) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         addr,
		Password:     password,
		DB:           db,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolSize:     10,
		MinIdleConns: 5,
	})

	ctx := context.Background()

	// 测试连接
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{
		client: client,
		ctx:    ctx,
	}, nil
}

// Close 关闭Redis连接
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Ping 检查Redis连接
func (r *RedisCache) Ping() error {
	return r.client.Ping(r.ctx).Err()
}

// === 指标快照缓存 ===

// latestMetricsKey 服务器最新指标的缓存键
func latestMetricsKey(serverID int64) string {
	return fmt.Sprintf("server:%d:latest_metrics", serverID)
}

// SetLatestMetrics 缓存服务器的最新指标快照
// TTL比聚合周期长，单次聚合失败不会立即清空面板数据
func (r *RedisCache) SetLatestMetrics(serverID int64, snapshot map[string]*dbinit.MetricSnapshot, ttl time.Duration) error {
	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("failed to marshal metric snapshot: %w", err)
	}

	return r.client.Set(r.ctx, latestMetricsKey(serverID), data, ttl).Err()
}

// GetLatestMetrics 获取服务器的最新指标快照
func (r *RedisCache) GetLatestMetrics(serverID int64) (map[string]*dbinit.MetricSnapshot, error) {
	data, err := r.client.Get(r.ctx, latestMetricsKey(serverID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	snapshot := map[string]*dbinit.MetricSnapshot{}
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal metric snapshot: %w", err)
	}

	return snapshot, nil
}

// === 命令队列操作 ===

// commandQueueKey 服务器命令队列键（按服务器数字ID划分命名空间）
func commandQueueKey(serverID int64) string {
	return fmt.Sprintf("commands:%d", serverID)
}

// PushCommand 将命令压入服务器的FIFO队列（队尾插入）
func (r *RedisCache) PushCommand(serverID int64, cmd *dbinit.QueuedCommand) error {
	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("failed to marshal queued command: %w", err)
	}

	return r.client.RPush(r.ctx, commandQueueKey(serverID), data).Err()
}

// PopCommand 从服务器的FIFO队列弹出命令（队头移除），队列为空时返回nil
func (r *RedisCache) PopCommand(serverID int64) (*dbinit.QueuedCommand, error) {
	data, err := r.client.LPop(r.ctx, commandQueueKey(serverID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	cmd := &dbinit.QueuedCommand{}
	if err := json.Unmarshal(data, cmd); err != nil {
		return nil, fmt.Errorf("failed to unmarshal queued command: %w", err)
	}

	return cmd, nil
}

// CommandQueueLength 获取服务器队列中待处理命令数量
func (r *RedisCache) CommandQueueLength(serverID int64) (int64, error) {
	return r.client.LLen(r.ctx, commandQueueKey(serverID)).Result()
}

// PurgeServer 清除服务器的全部缓存数据（指标快照和命令队列）
func (r *RedisCache) PurgeServer(serverID int64) error {
	return r.client.Del(r.ctx, latestMetricsKey(serverID), commandQueueKey(serverID)).Err()
}

// Incr 自增计数器并在首次创建时设置过期时间（用于限流）
func (r *RedisCache) Incr(key string, ttl time.Duration) (int64, error) {
	pipe := r.client.Pipeline()
	incr := pipe.Incr(r.ctx, key)
	pipe.ExpireNX(r.ctx, key, ttl)

	if _, err := pipe.Exec(r.ctx); err != nil {
		return 0, err
	}

	return incr.Val(), nil
}
