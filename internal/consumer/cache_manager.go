package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"ambulance-ews/internal/config"
	"ambulance-ews/internal/models"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// CachedDecision Redis 缓存中的最新决策（供前端/看板轮询）
type CachedDecision struct {
	PatientID      string               `json:"patient_id"`
	Decision       models.AlertDecision `json:"decision"`
	SafetyOverride bool                 `json:"safety_override"`
	Confidence     float64              `json:"confidence"`
	UpdatedAt      int64                `json:"updated_at"` // Unix 时间戳
}

// CacheManager Redis 缓存管理器
// 缓存每个病人的最新决策（带 TTL），并把已确认的报警发布到输出流
type CacheManager struct {
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewCacheManager 创建缓存管理器
func NewCacheManager(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) *CacheManager {
	return &CacheManager{
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}
}

// decisionKey 构建最新决策缓存键
func (c *CacheManager) decisionKey(patientID string) string {
	return fmt.Sprintf("ews:patient:%s:decision", patientID)
}

// UpdateDecision 更新病人的最新决策缓存
func (c *CacheManager) UpdateDecision(ctx context.Context, patientID string, cached CachedDecision) error {
	jsonData, err := json.Marshal(cached)
	if err != nil {
		return fmt.Errorf("failed to marshal decision: %w", err)
	}

	ttl := time.Duration(c.config.Stream.DecisionTTL) * time.Second
	if err := c.redisClient.Set(ctx, c.decisionKey(patientID), jsonData, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set decision cache: %w", err)
	}

	c.logger.Debug("Updated decision cache",
		zap.String("patient_id", patientID),
		zap.String("stage", string(cached.Decision.Stage)),
	)

	return nil
}

// GetDecision 读取病人的最新决策缓存
func (c *CacheManager) GetDecision(ctx context.Context, patientID string) (*CachedDecision, error) {
	val, err := c.redisClient.Get(ctx, c.decisionKey(patientID)).Result()
	if err != nil {
		if err == redis.Nil {
			return nil, fmt.Errorf("decision not found for patient: %s", patientID)
		}
		return nil, fmt.Errorf("failed to get decision cache: %w", err)
	}

	var cached CachedDecision
	if err := json.Unmarshal([]byte(val), &cached); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached decision: %w", err)
	}

	return &cached, nil
}

// PublishAlert 把报警决策发布到输出流（报警接收方消费）
func (c *CacheManager) PublishAlert(ctx context.Context, patientID string, cached CachedDecision) error {
	_, err := PublishJSONToStream(ctx, c.redisClient, c.config.Stream.AlertOutput, cached)
	if err != nil {
		return fmt.Errorf("failed to publish alert: %w", err)
	}

	c.logger.Info("Alert published",
		zap.String("patient_id", patientID),
		zap.String("stage", string(cached.Decision.Stage)),
		zap.Float64("risk_score", cached.Decision.RiskScore),
	)

	return nil
}
