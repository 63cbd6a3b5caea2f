package service

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"time"

	"ambulance-ews/internal/config"
	"ambulance-ews/internal/consumer"
	"ambulance-ews/internal/engine"
	"ambulance-ews/internal/features"
	"ambulance-ews/internal/httpapi"
	"ambulance-ews/internal/ingest"
	"ambulance-ews/internal/repository"
	"ambulance-ews/internal/scorer"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"
	"go.uber.org/zap"
)

// EWSService 预警服务（整合各层）
type EWSService struct {
	config      *config.Config
	db          *sql.DB
	redisClient *redis.Client
	logger      *zap.Logger

	// 各层组件
	eventsRepo     *repository.AlertEventsRepository
	cacheManager   *consumer.CacheManager
	pipeline       *engine.Pipeline
	streamConsumer *consumer.StreamConsumer
	mqttIngest     *ingest.MQTTIngest
	httpServer     *http.Server
}

// NewEWSService 创建预警服务
func NewEWSService(cfg *config.Config, logger *zap.Logger) (*EWSService, error) {
	// 1. 连接数据库
	db, err := sql.Open("postgres", cfg.Database.GetDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// 2. 连接 Redis
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		return nil, fmt.Errorf("failed to ping redis: %w", err)
	}

	// 3. Repository 层
	eventsRepo := repository.NewAlertEventsRepository(db, logger)

	// 4. 决策引擎与处理管道
	eng, err := engine.NewEngine(cfg.Engine, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create engine: %w", err)
	}

	// 配置了远程模型时用远程评分器，否则落到内置基线评分器
	var sc scorer.Scorer
	if cfg.Scorer.RemoteURL != "" {
		sc = scorer.NewRemoteScorer(
			cfg.Scorer.RemoteURL,
			time.Duration(cfg.Scorer.TimeoutSec)*time.Second,
			cfg.Scorer.RetryCount,
			logger,
		)
		logger.Info("Using remote anomaly scorer",
			zap.String("url", cfg.Scorer.RemoteURL),
		)
	} else {
		sc = scorer.NewBaselineScorer()
		logger.Info("Using baseline anomaly scorer")
	}

	pipeline := engine.NewPipeline(
		engine.NewSafetyGate(logger),
		eng,
		features.NewExtractor(),
		sc,
		logger,
	)

	// 5. Consumer 层
	cacheManager := consumer.NewCacheManager(cfg, redisClient, logger)
	streamConsumer := consumer.NewStreamConsumer(cfg, redisClient, pipeline, eventsRepo, cacheManager, logger)

	// 6. HTTP 层
	router := httpapi.NewRouter(logger)
	router.RegisterRoutes(
		httpapi.NewPredictHandler(pipeline, eventsRepo, cacheManager, logger),
		httpapi.NewAlertEventsHandler(eventsRepo, logger),
	)
	httpServer := &http.Server{
		Addr:              cfg.HTTP.Addr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	s := &EWSService{
		config:         cfg,
		db:             db,
		redisClient:    redisClient,
		logger:         logger,
		eventsRepo:     eventsRepo,
		cacheManager:   cacheManager,
		pipeline:       pipeline,
		streamConsumer: streamConsumer,
		httpServer:     httpServer,
	}

	// 7. MQTT 接入（可选）
	if cfg.MQTT.Enabled {
		mqttIngest, err := ingest.NewMQTTIngest(cfg, redisClient, logger)
		if err != nil {
			return nil, fmt.Errorf("failed to create MQTT ingest: %w", err)
		}
		s.mqttIngest = mqttIngest
	}

	return s, nil
}

// Start 启动服务（阻塞直到 ctx 取消或出错）
func (s *EWSService) Start(ctx context.Context) error {
	s.logger.Info("Starting EWS service",
		zap.String("http_addr", s.config.HTTP.Addr),
		zap.Bool("mqtt_enabled", s.config.MQTT.Enabled),
	)

	// 空闲会话清扫
	s.pipeline.Engine().Sessions().StartJanitor(ctx,
		time.Duration(s.config.Engine.SessionSweepIntervalSec)*time.Second)

	// 流式消费者
	consumerErrChan := make(chan error, 1)
	go func() {
		if err := s.streamConsumer.Start(ctx); err != nil {
			consumerErrChan <- err
		}
	}()

	// MQTT 接入
	if s.mqttIngest != nil {
		if err := s.mqttIngest.Start(ctx); err != nil {
			return fmt.Errorf("failed to start MQTT ingest: %w", err)
		}
	}

	// HTTP 服务
	httpErrChan := make(chan error, 1)
	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			httpErrChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		return nil
	case err := <-consumerErrChan:
		return fmt.Errorf("stream consumer failed: %w", err)
	case err := <-httpErrChan:
		return fmt.Errorf("http server failed: %w", err)
	}
}

// Stop 停止服务
func (s *EWSService) Stop() error {
	s.logger.Info("Stopping EWS service")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
		s.logger.Error("Failed to shutdown HTTP server",
			zap.Error(err),
		)
	}

	if s.mqttIngest != nil {
		s.mqttIngest.Stop()
	}

	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close database",
			zap.Error(err),
		)
	}

	if err := s.redisClient.Close(); err != nil {
		s.logger.Error("Failed to close redis",
			zap.Error(err),
		)
	}

	return nil
}
