package api

import (
	"time"

	dbinit "github.com/eminbuyuk/lxmon/db/init"
	"github.com/eminbuyuk/lxmon/internal/api/middleware"
	"github.com/eminbuyuk/lxmon/internal/api/response"
	"github.com/eminbuyuk/lxmon/internal/metrics"
	"github.com/eminbuyuk/lxmon/pkg/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// AgentHandler Agent上报接口处理器
type AgentHandler struct {
	app *App
}

// NewAgentHandler 创建Agent处理器
func NewAgentHandler(app *App) *AgentHandler {
	return &AgentHandler{app: app}
}

// RegisterRequest Agent注册请求
type RegisterRequest struct {
	Name      string `json:"name"`
	Hostname  string `json:"hostname" binding:"required"`
	IPAddress string `json:"ip_address"`
}

// RegisterResponse Agent注册响应
type RegisterResponse struct {
	ServerID int64  `json:"server_id"`
	APIKey   string `json:"api_key"`
}

// Register Agent注册
// 主机名已存在时复用原有记录，API密钥保持不变
func (h *AgentHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request", err)
		return
	}
	if req.Name == "" {
		req.Name = req.Hostname
	}

	existing, err := h.app.DB.DB.SQLite.GetServerByHostname(req.Hostname)
	if err != nil {
		response.InternalError(c, "Database error", err)
		return
	}

	now := time.Now().UTC()

	if existing != nil {
		existing.Name = req.Name
		if req.IPAddress != "" {
			existing.IPAddress = req.IPAddress
		}
		if err := h.app.DB.DB.SQLite.UpdateServer(existing); err != nil {
			response.InternalError(c, "Failed to update server", err)
			return
		}
		// 注册即视为一次心跳
		if err := h.app.DB.DB.SQLite.TouchHeartbeat(existing.ID, "online", now); err != nil {
			response.InternalError(c, "Failed to record heartbeat", err)
			return
		}
		response.Success(c, RegisterResponse{ServerID: existing.ID, APIKey: existing.AgentAPIKey})
		return
	}

	server := &dbinit.Server{
		Name:        req.Name,
		Hostname:    req.Hostname,
		IPAddress:   req.IPAddress,
		AgentAPIKey: uuid.New().String(),
		TenantID:    h.app.Config.Auth.DefaultTenant,
		Status:      "online",
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := h.app.DB.DB.SQLite.CreateServer(server); err != nil {
		response.InternalError(c, "Failed to create server", err)
		return
	}
	if err := h.app.DB.DB.SQLite.TouchHeartbeat(server.ID, "online", now); err != nil {
		response.InternalError(c, "Failed to record heartbeat", err)
		return
	}

	logger.Info("新服务器注册",
		zap.Int64("serverID", server.ID),
		zap.String("hostname", server.Hostname))
	response.Created(c, RegisterResponse{ServerID: server.ID, APIKey: server.AgentAPIKey})
}

// Heartbeat 心跳上报，刷新心跳时间并把服务器置为在线
func (h *AgentHandler) Heartbeat(c *gin.Context) {
	server := middleware.ServerFromContext(c)
	if server == nil {
		response.Unauthorized(c, "Server not found in context")
		return
	}

	if err := h.app.DB.DB.SQLite.TouchHeartbeat(server.ID, "online", time.Now().UTC()); err != nil {
		response.InternalError(c, "Failed to record heartbeat", err)
		return
	}

	response.Success(c, gin.H{"server_id": server.ID, "status": "online"})
}

// MetricPayload 单条上报指标
type MetricPayload struct {
	MetricType  string     `json:"metric_type" binding:"required"`
	MetricName  string     `json:"metric_name" binding:"required"`
	Value       float64    `json:"value"`
	Unit        string     `json:"unit"`
	Metadata    string     `json:"metadata"`
	CollectedAt *time.Time `json:"collected_at"`
}

// PushMetricsRequest 指标批量上报请求
type PushMetricsRequest struct {
	Metrics []MetricPayload `json:"metrics" binding:"required,min=1"`
}

// PushMetrics 指标批量上报
func (h *AgentHandler) PushMetrics(c *gin.Context) {
	server := middleware.ServerFromContext(c)
	if server == nil {
		response.Unauthorized(c, "Server not found in context")
		return
	}

	var req PushMetricsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request", err)
		return
	}

	now := time.Now().UTC()
	rows := make([]*dbinit.Metric, 0, len(req.Metrics))
	for _, p := range req.Metrics {
		collectedAt := now
		if p.CollectedAt != nil {
			collectedAt = p.CollectedAt.UTC()
		}
		rows = append(rows, &dbinit.Metric{
			ServerID:    server.ID,
			MetricType:  p.MetricType,
			MetricName:  p.MetricName,
			Value:       p.Value,
			Unit:        p.Unit,
			Metadata:    p.Metadata,
			CollectedAt: collectedAt,
		})
	}

	if err := h.app.DB.DB.SQLite.CreateMetrics(rows); err != nil {
		response.InternalError(c, "Failed to store metrics", err)
		return
	}

	metrics.MetricsIngested.Add(float64(len(rows)))
	response.Success(c, gin.H{"accepted": len(rows)})
}

// PollCommands 拉取待执行命令，按入队顺序最多返回limit条
func (h *AgentHandler) PollCommands(c *gin.Context) {
	server := middleware.ServerFromContext(c)
	if server == nil {
		response.Unauthorized(c, "Server not found in context")
		return
	}

	limit := 10
	if v := c.Query("limit"); v != "" {
		if n, err := atoiPositive(v); err == nil {
			limit = n
		}
	}

	commands := []*dbinit.QueuedCommand{}
	for len(commands) < limit {
		queued, err := h.app.Commands.Dequeue(server.ID)
		if err != nil {
			response.InternalError(c, "Failed to dequeue command", err)
			return
		}
		if queued == nil {
			break
		}
		commands = append(commands, queued)
	}

	response.Success(c, gin.H{"commands": commands})
}

// CommandResultRequest 命令执行结果上报
type CommandResultRequest struct {
	CommandID int64  `json:"command_id" binding:"required"`
	ExitCode  int    `json:"exit_code"`
	Stdout    string `json:"stdout"`
	Stderr    string `json:"stderr"`
}

// ReportCommandResult 命令执行结果上报
func (h *AgentHandler) ReportCommandResult(c *gin.Context) {
	server := middleware.ServerFromContext(c)
	if server == nil {
		response.Unauthorized(c, "Server not found in context")
		return
	}

	var req CommandResultRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request", err)
		return
	}

	if err := h.app.Commands.ReportResult(server.ID, req.CommandID, req.ExitCode, req.Stdout, req.Stderr); err != nil {
		response.NotFound(c, "Command not found", err)
		return
	}

	response.Success(c, gin.H{"command_id": req.CommandID})
}
