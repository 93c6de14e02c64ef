package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// 服务器指标
	ServersOnline = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "lxmon_servers_online",
			Help: "在线服务器数量",
		},
		[]string{"tenant_id"},
	)

	// 引擎循环执行指标
	EnginePasses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lxmon_engine_passes_total",
			Help: "引擎循环执行总数",
		},
		[]string{"loop"},
	)

	// 引擎循环错误指标
	EngineErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lxmon_engine_errors_total",
			Help: "引擎循环错误总数",
		},
		[]string{"loop"},
	)

	// 指标摄入
	MetricsIngested = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lxmon_metrics_ingested_total",
			Help: "摄入的指标总数",
		},
	)

	// 指标清理
	MetricsPruned = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lxmon_metrics_pruned_total",
			Help: "清理的历史指标总数",
		},
	)

	// 告警触发指标
	AlertsTriggered = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lxmon_alerts_triggered_total",
			Help: "触发的告警总数",
		},
		[]string{"severity"},
	)

	// 命令队列指标
	CommandsEnqueued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "lxmon_commands_enqueued_total",
			Help: "入队的命令总数",
		},
	)

	CommandsCompleted = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lxmon_commands_completed_total",
			Help: "完成的命令总数",
		},
		[]string{"status"},
	)

	// API请求指标
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "lxmon_http_requests_total",
			Help: "HTTP请求总数",
		},
		[]string{"method", "endpoint", "status"},
	)

	// API延迟指标
	HTTPDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "lxmon_http_duration_seconds",
			Help:    "HTTP请求延迟（秒）",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "endpoint"},
	)
)
