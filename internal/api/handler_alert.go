package api

import (
	"strconv"
	"time"

	dbinit "github.com/eminbuyuk/lxmon/db/init"
	"github.com/eminbuyuk/lxmon/internal/api/response"

	"github.com/gin-gonic/gin"
)

// AlertHandler 告警与规则管理处理器
type AlertHandler struct {
	app *App
}

// NewAlertHandler 创建告警处理器
func NewAlertHandler(app *App) *AlertHandler {
	return &AlertHandler{app: app}
}

// AlertRuleRequest 告警规则创建/更新请求
type AlertRuleRequest struct {
	Name        string  `json:"name" binding:"required"`
	Description string  `json:"description"`
	MetricType  string  `json:"metric_type" binding:"required"`
	MetricName  string  `json:"metric_name" binding:"required"`
	Condition   string  `json:"condition" binding:"required,oneof=gt lt eq ne"`
	Threshold   float64 `json:"threshold"`
	Severity    string  `json:"severity" binding:"required,oneof=info warning error critical"`
	Enabled     *bool   `json:"enabled"`
}

// CreateRule 创建告警规则
func (h *AlertHandler) CreateRule(c *gin.Context) {
	var req AlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request", err)
		return
	}

	enabled := true
	if req.Enabled != nil {
		enabled = *req.Enabled
	}

	rule := &dbinit.AlertRule{
		Name:        req.Name,
		Description: req.Description,
		MetricType:  req.MetricType,
		MetricName:  req.MetricName,
		Condition:   req.Condition,
		Threshold:   req.Threshold,
		Severity:    req.Severity,
		Enabled:     enabled,
		TenantID:    tenantFromContext(c),
		CreatedAt:   time.Now().UTC(),
	}
	if err := h.app.DB.DB.SQLite.CreateAlertRule(rule); err != nil {
		response.InternalError(c, "Failed to create alert rule", err)
		return
	}

	response.Created(c, rule)
}

// ListRules 列出当前租户的告警规则
func (h *AlertHandler) ListRules(c *gin.Context) {
	var enabled *bool
	if v := c.Query("enabled"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			response.BadRequest(c, "Invalid enabled filter", err)
			return
		}
		enabled = &b
	}

	rules, err := h.app.DB.DB.SQLite.ListAlertRules(tenantFromContext(c), enabled)
	if err != nil {
		response.InternalError(c, "Failed to list alert rules", err)
		return
	}

	response.Success(c, gin.H{"rules": rules, "count": len(rules)})
}

// getTenantRule 按ID取规则并校验租户归属
func (h *AlertHandler) getTenantRule(c *gin.Context) *dbinit.AlertRule {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid rule ID")
		return nil
	}

	rule, err := h.app.DB.DB.SQLite.GetAlertRule(id)
	if err != nil {
		response.InternalError(c, "Database error", err)
		return nil
	}
	if rule == nil || rule.TenantID != tenantFromContext(c) {
		response.NotFound(c, "Alert rule not found")
		return nil
	}
	return rule
}

// UpdateRule 更新告警规则
func (h *AlertHandler) UpdateRule(c *gin.Context) {
	rule := h.getTenantRule(c)
	if rule == nil {
		return
	}

	var req AlertRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request", err)
		return
	}

	rule.Name = req.Name
	rule.Description = req.Description
	rule.MetricType = req.MetricType
	rule.MetricName = req.MetricName
	rule.Condition = req.Condition
	rule.Threshold = req.Threshold
	rule.Severity = req.Severity
	if req.Enabled != nil {
		rule.Enabled = *req.Enabled
	}

	if err := h.app.DB.DB.SQLite.UpdateAlertRule(rule); err != nil {
		response.InternalError(c, "Failed to update alert rule", err)
		return
	}
	response.Success(c, rule)
}

// DeleteRule 删除告警规则
func (h *AlertHandler) DeleteRule(c *gin.Context) {
	rule := h.getTenantRule(c)
	if rule == nil {
		return
	}

	if err := h.app.DB.DB.SQLite.DeleteAlertRule(rule.ID); err != nil {
		response.InternalError(c, "Failed to delete alert rule", err)
		return
	}
	response.Success(c, gin.H{"deleted": rule.ID})
}

// ListAlerts 列出告警
func (h *AlertHandler) ListAlerts(c *gin.Context) {
	var serverID int64
	if v := c.Query("server_id"); v != "" {
		id, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			response.BadRequest(c, "Invalid server_id", err)
			return
		}
		serverID = id
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

	alerts, err := h.app.DB.DB.SQLite.ListAlerts(tenantFromContext(c), serverID, c.Query("status"), limit, offset)
	if err != nil {
		response.InternalError(c, "Failed to list alerts", err)
		return
	}

	response.Success(c, gin.H{"alerts": alerts, "count": len(alerts)})
}

// AlertSummary 按状态统计告警数量
func (h *AlertHandler) AlertSummary(c *gin.Context) {
	summary := gin.H{}
	for _, status := range []string{"active", "acknowledged", "resolved"} {
		count, err := h.app.DB.DB.SQLite.CountAlerts(tenantFromContext(c), status)
		if err != nil {
			response.InternalError(c, "Failed to count alerts", err)
			return
		}
		summary[status] = count
	}
	response.Success(c, summary)
}

// setAlertStatus 更新告警状态
func (h *AlertHandler) setAlertStatus(c *gin.Context, status string) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid alert ID")
		return
	}

	// 跨租户的告警按不存在处理
	alert, err := h.app.DB.DB.SQLite.GetAlert(id, tenantFromContext(c))
	if err != nil {
		response.InternalError(c, "Database error", err)
		return
	}
	if alert == nil {
		response.NotFound(c, "Alert not found")
		return
	}

	var resolvedAt *time.Time
	if status == "resolved" {
		now := time.Now().UTC()
		resolvedAt = &now
	}

	if err := h.app.DB.DB.SQLite.UpdateAlertStatus(id, status, resolvedAt); err != nil {
		response.InternalError(c, "Failed to update alert", err)
		return
	}

	response.Success(c, gin.H{"alert_id": id, "status": status})
}

// Acknowledge 确认告警
func (h *AlertHandler) Acknowledge(c *gin.Context) {
	h.setAlertStatus(c, "acknowledged")
}

// Resolve 解决告警
func (h *AlertHandler) Resolve(c *gin.Context) {
	h.setAlertStatus(c, "resolved")
}
