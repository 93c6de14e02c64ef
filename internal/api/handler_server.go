package api

import (
	"fmt"
	"strconv"
	"time"

	dbinit "github.com/eminbuyuk/lxmon/db/init"
	"github.com/eminbuyuk/lxmon/internal/api/response"
	"github.com/eminbuyuk/lxmon/internal/service"
	"github.com/eminbuyuk/lxmon/pkg/logger"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ServerHandler 服务器管理处理器
type ServerHandler struct {
	app *App
}

// NewServerHandler 创建服务器处理器
func NewServerHandler(app *App) *ServerHandler {
	return &ServerHandler{app: app}
}

// atoiPositive 解析正整数
func atoiPositive(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n <= 0 {
		return 0, fmt.Errorf("value must be positive")
	}
	return n, nil
}

// tenantFromContext 取出JWT中间件写入的租户
func tenantFromContext(c *gin.Context) string {
	return c.GetString("tenant_id")
}

// getTenantServer 按ID取服务器并校验租户归属，不属于当前租户时按不存在处理
func (h *ServerHandler) getTenantServer(c *gin.Context) *dbinit.Server {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid server ID")
		return nil
	}

	server, err := h.app.DB.DB.SQLite.GetServer(id)
	if err != nil {
		response.InternalError(c, "Database error", err)
		return nil
	}
	if server == nil || server.TenantID != tenantFromContext(c) {
		response.NotFound(c, "Server not found")
		return nil
	}
	return server
}

// List 列出当前租户的服务器
func (h *ServerHandler) List(c *gin.Context) {
	limit := 50
	offset := 0
	if v := c.Query("limit"); v != "" {
		if n, err := atoiPositive(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	servers, err := h.app.DB.DB.SQLite.ListServers(tenantFromContext(c), c.Query("status"), limit, offset)
	if err != nil {
		response.InternalError(c, "Failed to list servers", err)
		return
	}

	response.Success(c, gin.H{"servers": servers, "count": len(servers)})
}

// Get 获取服务器详情
func (h *ServerHandler) Get(c *gin.Context) {
	server := h.getTenantServer(c)
	if server == nil {
		return
	}
	response.Success(c, server)
}

// UpdateServerRequest 服务器更新请求
type UpdateServerRequest struct {
	Name      string `json:"name"`
	IPAddress string `json:"ip_address"`
}

// Update 更新服务器信息
func (h *ServerHandler) Update(c *gin.Context) {
	server := h.getTenantServer(c)
	if server == nil {
		return
	}

	var req UpdateServerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request", err)
		return
	}

	if req.Name != "" {
		server.Name = req.Name
	}
	if req.IPAddress != "" {
		server.IPAddress = req.IPAddress
	}

	if err := h.app.DB.DB.SQLite.UpdateServer(server); err != nil {
		response.InternalError(c, "Failed to update server", err)
		return
	}
	response.Success(c, server)
}

// Delete 删除服务器
func (h *ServerHandler) Delete(c *gin.Context) {
	server := h.getTenantServer(c)
	if server == nil {
		return
	}

	if err := h.app.DB.DB.SQLite.DeleteServer(server.ID); err != nil {
		response.InternalError(c, "Failed to delete server", err)
		return
	}

	// 清掉残留的快照和未投递命令
	if h.app.DB.HasCache() {
		if err := h.app.DB.Cache.Redis.PurgeServer(server.ID); err != nil {
			logger.Warn("清除服务器缓存失败",
				zap.Int64("serverID", server.ID),
				zap.Error(err))
		}
	}

	logger.Info("服务器已删除",
		zap.Int64("serverID", server.ID),
		zap.String("hostname", server.Hostname))
	response.Success(c, gin.H{"deleted": server.ID})
}

// LatestMetrics 获取服务器最新指标快照
// 优先读取Redis缓存，缓存缺失时回退到SQLite现算
func (h *ServerHandler) LatestMetrics(c *gin.Context) {
	server := h.getTenantServer(c)
	if server == nil {
		return
	}

	if h.app.DB.HasCache() {
		snapshot, err := h.app.DB.Cache.Redis.GetLatestMetrics(server.ID)
		if err != nil {
			logger.Warn("读取指标缓存失败",
				zap.Int64("serverID", server.ID),
				zap.Error(err))
		} else if snapshot != nil {
			response.Success(c, gin.H{"server_id": server.ID, "metrics": snapshot, "source": "cache"})
			return
		}
	}

	window := h.app.Config.Engine.AggregationWindowDuration()
	rows, err := h.app.DB.DB.SQLite.ListServerMetrics(server.ID, "",
		time.Now().UTC().Add(-window), time.Now().UTC().Add(time.Minute), h.app.Config.Engine.AggregationBatch)
	if err != nil {
		response.InternalError(c, "Failed to load metrics", err)
		return
	}

	grouped := service.GroupLatestSnapshots(rows)
	snapshot := grouped[server.ID]
	if snapshot == nil {
		snapshot = map[string]*dbinit.MetricSnapshot{}
	}
	response.Success(c, gin.H{"server_id": server.ID, "metrics": snapshot, "source": "store"})
}

// MetricsHistory 查询服务器历史指标
func (h *ServerHandler) MetricsHistory(c *gin.Context) {
	server := h.getTenantServer(c)
	if server == nil {
		return
	}

	now := time.Now().UTC()
	from := now.Add(-time.Hour)
	to := now
	if v := c.Query("from"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "Invalid from timestamp", err)
			return
		}
		from = t.UTC()
	}
	if v := c.Query("to"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			response.BadRequest(c, "Invalid to timestamp", err)
			return
		}
		to = t.UTC()
	}

	limit := 500
	if v := c.Query("limit"); v != "" {
		if n, err := atoiPositive(v); err == nil {
			limit = n
		}
	}

	rows, err := h.app.DB.DB.SQLite.ListServerMetrics(server.ID, c.Query("metric_type"), from, to, limit)
	if err != nil {
		response.InternalError(c, "Failed to load metrics", err)
		return
	}

	response.Success(c, gin.H{"server_id": server.ID, "metrics": rows, "count": len(rows)})
}

// EnqueueCommandRequest 命令下发请求
type EnqueueCommandRequest struct {
	Command string `json:"command" binding:"required"`
}

// EnqueueCommand 向服务器下发命令
func (h *ServerHandler) EnqueueCommand(c *gin.Context) {
	server := h.getTenantServer(c)
	if server == nil {
		return
	}

	var req EnqueueCommandRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request", err)
		return
	}

	cmd, err := h.app.Commands.Enqueue(server.ID, req.Command)
	if err != nil {
		response.InternalError(c, "Failed to enqueue command", err)
		return
	}

	response.Created(c, cmd)
}

// ListCommands 查询服务器命令历史
func (h *ServerHandler) ListCommands(c *gin.Context) {
	server := h.getTenantServer(c)
	if server == nil {
		return
	}

	limit := 50
	offset := 0
	if v := c.Query("limit"); v != "" {
		if n, err := atoiPositive(v); err == nil {
			limit = n
		}
	}
	if v := c.Query("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n >= 0 {
			offset = n
		}
	}

	commands, err := h.app.DB.DB.SQLite.ListCommands(server.ID, c.Query("status"), limit, offset)
	if err != nil {
		response.InternalError(c, "Failed to list commands", err)
		return
	}

	response.Success(c, gin.H{"commands": commands, "count": len(commands)})
}

// GetCommand 查询单条命令状态
func (h *ServerHandler) GetCommand(c *gin.Context) {
	server := h.getTenantServer(c)
	if server == nil {
		return
	}

	commandID, err := strconv.ParseInt(c.Param("cmdID"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid command ID")
		return
	}

	cmd, err := h.app.DB.DB.SQLite.GetCommand(commandID, server.ID)
	if err != nil {
		response.InternalError(c, "Database error", err)
		return
	}
	if cmd == nil {
		response.NotFound(c, "Command not found")
		return
	}
	response.Success(c, cmd)
}
