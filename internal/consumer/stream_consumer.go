package consumer

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"ambulance-ews/internal/config"
	"ambulance-ews/internal/engine"
	"ambulance-ews/internal/models"
	"ambulance-ews/internal/repository"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// Metrics 消费者监控指标
type Metrics struct {
	mu sync.RWMutex

	MessagesProcessed int64 // 处理的消息总数
	MessagesSucceeded int64 // 成功处理的消息数
	MessagesFailed    int64 // 处理失败的消息数

	// 错误分类统计
	ErrorsParse    int64 // 解析错误
	ErrorsPipeline int64 // 管道处理失败
	ErrorsPersist  int64 // 持久化失败
	ErrorsCache    int64 // 缓存更新失败

	TotalProcessingTime time.Duration
	LastProcessTime     time.Time
	StartTime           time.Time
}

// GetSnapshot 获取指标快照（线程安全）
func (m *Metrics) GetSnapshot() Metrics {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return Metrics{
		MessagesProcessed:   m.MessagesProcessed,
		MessagesSucceeded:   m.MessagesSucceeded,
		MessagesFailed:      m.MessagesFailed,
		ErrorsParse:         m.ErrorsParse,
		ErrorsPipeline:      m.ErrorsPipeline,
		ErrorsPersist:       m.ErrorsPersist,
		ErrorsCache:         m.ErrorsCache,
		TotalProcessingTime: m.TotalProcessingTime,
		LastProcessTime:     m.LastProcessTime,
		StartTime:           m.StartTime,
	}
}

// IncrementProcessed 增加处理计数
func (m *Metrics) IncrementProcessed() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesProcessed++
}

// IncrementSucceeded 增加成功计数
func (m *Metrics) IncrementSucceeded(duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesSucceeded++
	m.TotalProcessingTime += duration
	m.LastProcessTime = time.Now()
}

// IncrementFailed 增加失败计数
func (m *Metrics) IncrementFailed(errorType string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.MessagesFailed++
	switch errorType {
	case "parse":
		m.ErrorsParse++
	case "pipeline":
		m.ErrorsPipeline++
	case "persist":
		m.ErrorsPersist++
	case "cache":
		m.ErrorsCache++
	}
}

// StreamConsumer Redis Streams 消费者
// 消费输入流上的 vitals 批次，走与 /predict 相同的处理管道，
// 持久化决策、更新缓存，报警决策发布到输出流
type StreamConsumer struct {
	config      *config.Config
	redisClient *redis.Client
	pipeline    *engine.Pipeline
	eventsRepo  *repository.AlertEventsRepository
	cache       *CacheManager
	logger      *zap.Logger
	metrics     *Metrics
}

// NewStreamConsumer 创建 Streams 消费者
func NewStreamConsumer(
	cfg *config.Config,
	redisClient *redis.Client,
	pipeline *engine.Pipeline,
	eventsRepo *repository.AlertEventsRepository,
	cache *CacheManager,
	logger *zap.Logger,
) *StreamConsumer {
	return &StreamConsumer{
		config:      cfg,
		redisClient: redisClient,
		pipeline:    pipeline,
		eventsRepo:  eventsRepo,
		cache:       cache,
		logger:      logger,
		metrics: &Metrics{
			StartTime: time.Now(),
		},
	}
}

// Start 启动消费者
func (c *StreamConsumer) Start(ctx context.Context) error {
	stream := c.config.Stream.Input
	if err := CreateConsumerGroup(ctx, c.redisClient, stream, c.config.Stream.ConsumerGroup); err != nil {
		return fmt.Errorf("failed to create consumer group for %s: %w", stream, err)
	}

	c.logger.Info("Stream consumer started",
		zap.String("stream", stream),
		zap.String("consumer_group", c.config.Stream.ConsumerGroup),
		zap.String("consumer_name", c.config.Stream.ConsumerName),
	)

	// 指标报告协程
	metricsCtx, metricsCancel := context.WithCancel(ctx)
	defer metricsCancel()
	go c.reportMetrics(metricsCtx)

	// 消费循环（失败时指数退避）
	backoffDuration := time.Second
	maxBackoff := 30 * time.Second

	for {
		select {
		case <-ctx.Done():
			c.logger.Info("Stream consumer stopped")
			return nil
		default:
			if err := c.consumeStream(ctx, stream); err != nil {
				c.logger.Error("Failed to consume stream",
					zap.Error(err),
					zap.Duration("backoff", backoffDuration),
				)

				select {
				case <-ctx.Done():
					return nil
				case <-time.After(backoffDuration):
					backoffDuration *= 2
					if backoffDuration > maxBackoff {
						backoffDuration = maxBackoff
					}
				}
			} else {
				backoffDuration = time.Second
			}
		}
	}
}

// consumeStream 读取并处理一批消息
func (c *StreamConsumer) consumeStream(ctx context.Context, stream string) error {
	messages, err := ReadFromStream(
		ctx,
		c.redisClient,
		stream,
		c.config.Stream.ConsumerGroup,
		c.config.Stream.ConsumerName,
		c.config.Stream.BatchSize,
	)
	if err != nil {
		return fmt.Errorf("failed to read from stream: %w", err)
	}

	for _, msg := range messages {
		c.metrics.IncrementProcessed()
		if err := c.processMessage(ctx, msg); err != nil {
			c.logger.Error("Failed to process message",
				zap.String("stream_id", msg.ID),
				zap.Error(err),
			)
			// 继续处理下一条消息，不中断
		}
		// 无论成败都 ACK：vitals 流是持续覆盖型数据，重放旧批次会污染时序缓冲
		c.redisClient.XAck(ctx, stream, c.config.Stream.ConsumerGroup, msg.ID)
	}

	return nil
}

// processMessage 处理单条 vitals 批次消息
func (c *StreamConsumer) processMessage(ctx context.Context, msg StreamMessage) error {
	startTime := time.Now()

	dataStr, ok := msg.Values["data"].(string)
	if !ok {
		c.metrics.IncrementFailed("parse")
		return fmt.Errorf("missing or invalid data field in message")
	}

	var batch models.VitalsBatch
	if err := json.Unmarshal([]byte(dataStr), &batch); err != nil {
		c.metrics.IncrementFailed("parse")
		return fmt.Errorf("failed to unmarshal vitals batch: %w", err)
	}

	result, err := c.pipeline.Process(ctx, &batch)
	if err != nil {
		c.metrics.IncrementFailed("pipeline")
		return fmt.Errorf("failed to process vitals batch: %w", err)
	}

	// 持久化决策（失败记日志，不阻断缓存和报警发布）
	if _, err := c.eventsRepo.CreateFromDecision(ctx, batch.PatientID, result.Decision, result.SafetyOverride, time.Now()); err != nil {
		c.metrics.IncrementFailed("persist")
		c.logger.Error("Failed to persist alert event",
			zap.String("patient_id", batch.PatientID),
			zap.Error(err),
		)
	}

	cached := CachedDecision{
		PatientID:      batch.PatientID,
		Decision:       result.Decision,
		SafetyOverride: result.SafetyOverride,
		Confidence:     result.Confidence,
		UpdatedAt:      time.Now().Unix(),
	}

	if err := c.cache.UpdateDecision(ctx, batch.PatientID, cached); err != nil {
		c.metrics.IncrementFailed("cache")
		c.logger.Error("Failed to update decision cache",
			zap.String("patient_id", batch.PatientID),
			zap.Error(err),
		)
	}

	if result.Decision.Alert {
		if err := c.cache.PublishAlert(ctx, batch.PatientID, cached); err != nil {
			c.metrics.IncrementFailed("cache")
			c.logger.Error("Failed to publish alert",
				zap.String("patient_id", batch.PatientID),
				zap.Error(err),
			)
		}
	}

	c.metrics.IncrementSucceeded(time.Since(startTime))

	c.logger.Info("Processed vitals batch",
		zap.String("patient_id", batch.PatientID),
		zap.Int("samples", batch.Len()),
		zap.Int("windows", result.WindowCount),
		zap.String("stage", string(result.Decision.Stage)),
		zap.Bool("alert", result.Decision.Alert),
		zap.Duration("processing_time", time.Since(startTime)),
	)

	return nil
}

// reportMetrics 定期报告指标（每60秒）
func (c *StreamConsumer) reportMetrics(ctx context.Context) {
	ticker := time.NewTicker(60 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			snapshot := c.metrics.GetSnapshot()
			uptime := time.Since(snapshot.StartTime)

			var avgProcessingTime time.Duration
			if snapshot.MessagesSucceeded > 0 {
				avgProcessingTime = snapshot.TotalProcessingTime / time.Duration(snapshot.MessagesSucceeded)
			}

			c.logger.Info("Metrics report",
				zap.Int64("messages_processed", snapshot.MessagesProcessed),
				zap.Int64("messages_succeeded", snapshot.MessagesSucceeded),
				zap.Int64("messages_failed", snapshot.MessagesFailed),
				zap.Int64("errors_parse", snapshot.ErrorsParse),
				zap.Int64("errors_pipeline", snapshot.ErrorsPipeline),
				zap.Int64("errors_persist", snapshot.ErrorsPersist),
				zap.Int64("errors_cache", snapshot.ErrorsCache),
				zap.Duration("avg_processing_time", avgProcessingTime),
				zap.Duration("uptime", uptime),
			)
		}
	}
}
