package config

import (
	"fmt"
	"os"
	"strconv"
)

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// GetDSN 获取数据库连接字符串
func (c *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode)
}

// RedisConfig Redis 配置
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// MQTTConfig MQTT 配置（车载设备接入）
type MQTTConfig struct {
	Enabled  bool
	Broker   string
	ClientID string
	Username string
	Password string
	Topic    string // 订阅主题，如 "ews/vitals/+"
	QoS      byte
}

// EngineConfig 风险决策引擎配置
type EngineConfig struct {
	TemporalBufferSize      int     // 时序确认窗口数，默认 3
	MinConfidence           float64 // 非危急报警的最低模型置信度，默认 0.7
	MinAbnormalSignals      int     // 报警所需的最少异常体征数，默认 2
	MotionThreshold         float64 // 运动伪影抑制的 motion_std 阈值，默认 0.5
	CriticalOverrideEnabled bool    // 危急状态直接报警（绕过时序确认），默认 true
	SessionIdleTTLSec       int     // 空闲会话驱逐阈值（秒），默认 1800
	SessionSweepIntervalSec int     // 会话清扫间隔（秒），默认 60
}

// Validate 校验引擎参数（构造期致命错误，不可逐窗口恢复）
func (c *EngineConfig) Validate() error {
	if c.TemporalBufferSize <= 0 {
		return fmt.Errorf("temporal buffer size must be positive, got %d", c.TemporalBufferSize)
	}
	if c.MinConfidence < 0 || c.MinConfidence > 1 {
		return fmt.Errorf("min confidence must be in [0,1], got %v", c.MinConfidence)
	}
	if c.MinAbnormalSignals < 0 {
		return fmt.Errorf("min abnormal signals must be non-negative, got %d", c.MinAbnormalSignals)
	}
	if c.MotionThreshold <= 0 {
		return fmt.Errorf("motion threshold must be positive, got %v", c.MotionThreshold)
	}
	if c.SessionIdleTTLSec <= 0 {
		return fmt.Errorf("session idle TTL must be positive, got %d", c.SessionIdleTTLSec)
	}
	if c.SessionSweepIntervalSec <= 0 {
		return fmt.Errorf("session sweep interval must be positive, got %d", c.SessionSweepIntervalSec)
	}
	return nil
}

// Config 预警服务配置
type Config struct {
	Database DatabaseConfig
	Redis    RedisConfig
	MQTT     MQTTConfig
	Engine   EngineConfig

	HTTP struct {
		Addr string // 监听地址，默认 ":8080"
	}

	// 流式管道配置
	Stream struct {
		Input         string // 输入流（vitals 批次），默认 "ews:vitals:in"
		AlertOutput   string // 已确认报警输出流，默认 "ews:alerts:out"
		ConsumerGroup string
		ConsumerName  string
		BatchSize     int64
		DecisionTTL   int // 最新决策缓存 TTL（秒），默认 60
	}

	// 远程异常评分模型（可选；未配置时使用内置基线评分器）
	Scorer struct {
		RemoteURL     string
		TimeoutSec    int
		RetryCount    int
	}

	Log struct {
		Level  string
		Format string
	}
}

// Load 加载配置（环境变量 + 默认值）
func Load() (*Config, error) {
	cfg := &Config{}

	cfg.Database.Host = getEnv("DB_HOST", "localhost")
	cfg.Database.Port = getEnvInt("DB_PORT", 5432)
	cfg.Database.User = getEnv("DB_USER", "postgres")
	cfg.Database.Password = getEnv("DB_PASSWORD", "postgres")
	cfg.Database.Database = getEnv("DB_NAME", "ambulance_ews")
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", "disable")

	cfg.Redis.Addr = getEnv("REDIS_ADDR", "localhost:6379")
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", "")
	cfg.Redis.DB = getEnvInt("REDIS_DB", 0)

	cfg.MQTT.Enabled = getEnv("MQTT_ENABLED", "false") == "true"
	cfg.MQTT.Broker = getEnv("MQTT_BROKER", "tcp://localhost:1883")
	cfg.MQTT.ClientID = getEnv("MQTT_CLIENT_ID", "ambulance-ews")
	cfg.MQTT.Username = getEnv("MQTT_USERNAME", "")
	cfg.MQTT.Password = getEnv("MQTT_PASSWORD", "")
	cfg.MQTT.Topic = getEnv("MQTT_TOPIC", "ews/vitals/+")
	cfg.MQTT.QoS = 1

	cfg.Engine.TemporalBufferSize = getEnvInt("ENGINE_TEMPORAL_BUFFER_SIZE", 3)
	cfg.Engine.MinConfidence = getEnvFloat("ENGINE_MIN_CONFIDENCE", 0.7)
	cfg.Engine.MinAbnormalSignals = getEnvInt("ENGINE_MIN_ABNORMAL_SIGNALS", 2)
	cfg.Engine.MotionThreshold = getEnvFloat("ENGINE_MOTION_THRESHOLD", 0.5)
	cfg.Engine.CriticalOverrideEnabled = getEnv("ENGINE_CRITICAL_OVERRIDE", "true") == "true"
	cfg.Engine.SessionIdleTTLSec = getEnvInt("ENGINE_SESSION_IDLE_TTL", 1800)
	cfg.Engine.SessionSweepIntervalSec = getEnvInt("ENGINE_SESSION_SWEEP_INTERVAL", 60)

	cfg.HTTP.Addr = getEnv("HTTP_ADDR", ":8080")

	cfg.Stream.Input = getEnv("STREAM_INPUT", "ews:vitals:in")
	cfg.Stream.AlertOutput = getEnv("STREAM_ALERT_OUTPUT", "ews:alerts:out")
	cfg.Stream.ConsumerGroup = getEnv("STREAM_CONSUMER_GROUP", "ews-engine")
	cfg.Stream.ConsumerName = getEnv("STREAM_CONSUMER_NAME", "ews-engine-1")
	cfg.Stream.BatchSize = int64(getEnvInt("STREAM_BATCH_SIZE", 10))
	cfg.Stream.DecisionTTL = getEnvInt("STREAM_DECISION_TTL", 60)

	cfg.Scorer.RemoteURL = getEnv("SCORER_REMOTE_URL", "")
	cfg.Scorer.TimeoutSec = getEnvInt("SCORER_TIMEOUT", 10)
	cfg.Scorer.RetryCount = getEnvInt("SCORER_RETRY_COUNT", 3)

	cfg.Log.Level = getEnv("LOG_LEVEL", "info")
	cfg.Log.Format = getEnv("LOG_FORMAT", "json")

	if err := cfg.Engine.Validate(); err != nil {
		return nil, fmt.Errorf("invalid engine config: %w", err)
	}

	return cfg, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}
