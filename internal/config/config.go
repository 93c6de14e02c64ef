package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 全局配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Auth     AuthConfig     `yaml:"auth"`
	Engine   EngineConfig   `yaml:"engine"`
	Log      LogConfig      `yaml:"log"`
}

// ServerConfig 服务器配置
type ServerConfig struct {
	Host         string `yaml:"host"`
	Port         int    `yaml:"port"`
	Mode         string `yaml:"mode"` // debug, release
	ReadTimeout  int    `yaml:"read_timeout"`
	WriteTimeout int    `yaml:"write_timeout"`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	SQLitePath    string `yaml:"sqlite_path"`
	RedisAddr     string `yaml:"redis_addr"`
	RedisPassword string `yaml:"redis_password"`
	RedisDB       int    `yaml:"redis_db"`
}

// AuthConfig 认证配置
type AuthConfig struct {
	JWTSecret     string `yaml:"jwt_secret"`
	JWTExpiration int    `yaml:"jwt_expiration"` // 单位：小时
	DefaultTenant string `yaml:"default_tenant"` // 新注册服务器的默认租户
}

// EngineConfig 后台引擎配置
type EngineConfig struct {
	AggregatorInterval int `yaml:"aggregator_interval"` // 指标汇聚周期（秒）
	EvaluatorInterval  int `yaml:"evaluator_interval"`  // 告警评估周期（秒）
	LivenessInterval   int `yaml:"liveness_interval"`   // 存活检测周期（秒）
	RetentionInterval  int `yaml:"retention_interval"`  // 数据清理周期（秒）

	AggregationWindow int `yaml:"aggregation_window"` // 汇聚窗口（秒）
	AggregationBatch  int `yaml:"aggregation_batch"`  // 单次汇聚最大指标行数
	CacheTTL          int `yaml:"cache_ttl"`          // 最新指标缓存 TTL（秒）
	EvaluatorLookback int `yaml:"evaluator_lookback"` // 评估回看窗口（秒）
	StalenessWindow   int `yaml:"staleness_window"`   // 心跳过期阈值（秒）
	RetentionDays     int `yaml:"retention_days"`     // 历史指标保留天数
}

// LogConfig 日志配置
type LogConfig struct {
	Level      string `yaml:"level"`       // debug, info, warn, error
	Format     string `yaml:"format"`      // json, console
	OutputPath string `yaml:"output_path"` // 日志文件路径
	MaxSize    int    `yaml:"max_size"`    // 单个日志文件大小(MB)
	MaxBackups int    `yaml:"max_backups"` // 保留的旧日志文件数量
	MaxAge     int    `yaml:"max_age"`     // 保留天数
	Compress   bool   `yaml:"compress"`    // 是否压缩
}

// LoadConfig 从文件加载配置
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := &Config{}
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	config.applyDefaults()
	return config, nil
}

// LoadConfigOrDefault 加载配置或使用默认值
func LoadConfigOrDefault(path string) *Config {
	if path == "" {
		return DefaultConfig()
	}

	config, err := LoadConfig(path)
	if err != nil {
		fmt.Printf("Failed to load config: %v, using defaults\n", err)
		return DefaultConfig()
	}

	return config
}

// DefaultConfig 默认配置
func DefaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:         "0.0.0.0",
			Port:         8080,
			Mode:         "debug",
			ReadTimeout:  30,
			WriteTimeout: 30,
		},
		Database: DatabaseConfig{
			SQLitePath:    "./data/lxmon.db",
			RedisAddr:     "localhost:6379",
			RedisPassword: "",
			RedisDB:       0,
		},
		Auth: AuthConfig{
			JWTSecret:     "change-me-in-production",
			JWTExpiration: 24,
			DefaultTenant: "default",
		},
		Engine: EngineConfig{
			AggregatorInterval: 60,
			EvaluatorInterval:  30,
			LivenessInterval:   60,
			RetentionInterval:  3600,
			AggregationWindow:  300,
			AggregationBatch:   1000,
			CacheTTL:           300,
			EvaluatorLookback:  600,
			StalenessWindow:    300,
			RetentionDays:      30,
		},
		Log: LogConfig{
			Level:      "info",
			Format:     "console",
			OutputPath: "./logs/lxmon.log",
			MaxSize:    100,
			MaxBackups: 10,
			MaxAge:     30,
			Compress:   true,
		},
	}
}

// applyDefaults 给缺省的引擎参数补默认值
func (c *Config) applyDefaults() {
	def := DefaultConfig().Engine
	e := &c.Engine
	if e.AggregatorInterval <= 0 {
		e.AggregatorInterval = def.AggregatorInterval
	}
	if e.EvaluatorInterval <= 0 {
		e.EvaluatorInterval = def.EvaluatorInterval
	}
	if e.LivenessInterval <= 0 {
		e.LivenessInterval = def.LivenessInterval
	}
	if e.RetentionInterval <= 0 {
		e.RetentionInterval = def.RetentionInterval
	}
	if e.AggregationWindow <= 0 {
		e.AggregationWindow = def.AggregationWindow
	}
	if e.AggregationBatch <= 0 {
		e.AggregationBatch = def.AggregationBatch
	}
	if e.CacheTTL <= 0 {
		e.CacheTTL = def.CacheTTL
	}
	if e.EvaluatorLookback <= 0 {
		e.EvaluatorLookback = def.EvaluatorLookback
	}
	if e.StalenessWindow <= 0 {
		e.StalenessWindow = def.StalenessWindow
	}
	if e.RetentionDays <= 0 {
		e.RetentionDays = def.RetentionDays
	}
	if c.Auth.JWTExpiration <= 0 {
		c.Auth.JWTExpiration = 24
	}
	if c.Auth.DefaultTenant == "" {
		c.Auth.DefaultTenant = "default"
	}
}

// AggregationWindowDuration 汇聚窗口时长
func (e *EngineConfig) AggregationWindowDuration() time.Duration {
	return time.Duration(e.AggregationWindow) * time.Second
}

// CacheTTLDuration 缓存 TTL 时长
func (e *EngineConfig) CacheTTLDuration() time.Duration {
	return time.Duration(e.CacheTTL) * time.Second
}

// EvaluatorLookbackDuration 评估回看时长
func (e *EngineConfig) EvaluatorLookbackDuration() time.Duration {
	return time.Duration(e.EvaluatorLookback) * time.Second
}

// StalenessWindowDuration 心跳过期阈值时长
func (e *EngineConfig) StalenessWindowDuration() time.Duration {
	return time.Duration(e.StalenessWindow) * time.Second
}

// RetentionDuration 历史指标保留时长
func (e *EngineConfig) RetentionDuration() time.Duration {
	return time.Duration(e.RetentionDays) * 24 * time.Hour
}
