package init

import (
	"database/sql"
	"time"
)

// Server 被监控的服务器
type Server struct {
	ID            int64        `json:"id" db:"id"`                         // 服务器ID
	Name          string       `json:"name" db:"name"`                     // 显示名称
	Hostname      string       `json:"hostname" db:"hostname"`             // 主机名（唯一）
	IPAddress     string       `json:"ip_address" db:"ip_address"`         // IP地址
	AgentAPIKey   string       `json:"-" db:"agent_api_key"`               // Agent API密钥
	TenantID      string       `json:"tenant_id" db:"tenant_id"`           // 所属租户
	Status        string       `json:"status" db:"status"`                 // 状态: online/offline/unknown
	LastHeartbeat sql.NullTime `json:"last_heartbeat" db:"last_heartbeat"` // 最后心跳时间（可为空）
	CreatedAt     time.Time    `json:"created_at" db:"created_at"`         // 创建时间
	UpdatedAt     time.Time    `json:"updated_at" db:"updated_at"`         // 更新时间
}

// Metric 服务器上报的监控指标
type Metric struct {
	ID          int64     `json:"id" db:"id"`                     // 指标ID
	ServerID    int64     `json:"server_id" db:"server_id"`       // 所属服务器ID
	MetricType  string    `json:"metric_type" db:"metric_type"`   // 类型: cpu/memory/disk/network
	MetricName  string    `json:"metric_name" db:"metric_name"`   // 指标名称
	Value       float64   `json:"value" db:"value"`               // 数值
	Unit        string    `json:"unit" db:"unit"`                 // 单位
	Metadata    string    `json:"metadata" db:"metadata"`         // 附加数据（JSON）
	CollectedAt time.Time `json:"collected_at" db:"collected_at"` // 采集时间
}

// AlertRule 告警规则
type AlertRule struct {
	ID          int64     `json:"id" db:"id"`                   // 规则ID
	Name        string    `json:"name" db:"name"`               // 规则名称
	Description string    `json:"description" db:"description"` // 描述
	MetricType  string    `json:"metric_type" db:"metric_type"` // 监控的指标类型
	MetricName  string    `json:"metric_name" db:"metric_name"` // 监控的指标名称
	Condition   string    `json:"condition" db:"condition"`     // 比较条件: gt/lt/eq/ne
	Threshold   float64   `json:"threshold" db:"threshold"`     // 阈值
	Severity    string    `json:"severity" db:"severity"`       // 级别: info/warning/error/critical
	Enabled     bool      `json:"enabled" db:"enabled"`         // 是否启用
	TenantID    string    `json:"tenant_id" db:"tenant_id"`     // 所属租户
	CreatedAt   time.Time `json:"created_at" db:"created_at"`   // 创建时间
}

// Alert 已触发的告警
type Alert struct {
	ID          int64        `json:"id" db:"id"`                       // 告警ID
	AlertRuleID int64        `json:"alert_rule_id" db:"alert_rule_id"` // 触发的规则ID
	ServerID    int64        `json:"server_id" db:"server_id"`         // 关联服务器ID
	Message     string       `json:"message" db:"message"`             // 告警消息
	Severity    string       `json:"severity" db:"severity"`           // 级别
	Status      string       `json:"status" db:"status"`               // 状态: active/resolved/acknowledged
	TriggeredAt time.Time    `json:"triggered_at" db:"triggered_at"`   // 触发时间
	ResolvedAt  sql.NullTime `json:"resolved_at" db:"resolved_at"`     // 解决时间（可为空）
}

// Command 下发给服务器的命令
type Command struct {
	ID          int64         `json:"id" db:"id"`                     // 命令ID
	ServerID    int64         `json:"server_id" db:"server_id"`       // 目标服务器ID
	Command     string        `json:"command" db:"command"`           // 命令内容
	Status      string        `json:"status" db:"status"`             // 状态: pending/running/completed/failed/timeout
	ExitCode    sql.NullInt64 `json:"exit_code" db:"exit_code"`       // 退出码（可为空）
	Stdout      string        `json:"stdout" db:"stdout"`             // 标准输出
	Stderr      string        `json:"stderr" db:"stderr"`             // 标准错误
	ExecutedAt  sql.NullTime  `json:"executed_at" db:"executed_at"`   // 开始执行时间
	CompletedAt sql.NullTime  `json:"completed_at" db:"completed_at"` // 完成时间
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`     // 创建时间
}

// User 控制面板用户
type User struct {
	ID           int64     `json:"id" db:"id"`                 // 用户ID
	Username     string    `json:"username" db:"username"`     // 用户名
	Email        string    `json:"email" db:"email"`           // 邮箱
	PasswordHash string    `json:"-" db:"password_hash"`       // 密码哈希
	IsActive     bool      `json:"is_active" db:"is_active"`   // 是否启用
	TenantID     string    `json:"tenant_id" db:"tenant_id"`   // 所属租户
	CreatedAt    time.Time `json:"created_at" db:"created_at"` // 创建时间
}

// MetricSnapshot 单个指标类型的最新值（存储在Redis）
type MetricSnapshot struct {
	Value     float64   `json:"value"`     // 数值
	Unit      string    `json:"unit"`      // 单位
	Timestamp time.Time `json:"timestamp"` // 采集时间
}

// QueuedCommand 命令队列条目（存储在Redis）
// 命令ID是队列条目与数据库行之间唯一的关联键，条目本身不携带任何独立状态
type QueuedCommand struct {
	CommandID int64  `json:"command_id"` // 命令ID
	Command   string `json:"command"`    // 命令内容
}
