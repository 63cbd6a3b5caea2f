package ingest

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"ambulance-ews/internal/config"
	"ambulance-ews/internal/consumer"
	"ambulance-ews/internal/models"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"
)

// MQTTIngest 车载设备接入
// 订阅设备 vitals 主题（如 "ews/vitals/+"，末段为 patient_id），
// 校验批次后转发到 Redis 输入流，由流式消费者统一处理。
// 接入层只做搬运，不做任何决策
type MQTTIngest struct {
	client      mqtt.Client
	config      *config.Config
	redisClient *redis.Client
	logger      *zap.Logger
}

// NewMQTTIngest 创建 MQTT 接入器并连接 broker
func NewMQTTIngest(cfg *config.Config, redisClient *redis.Client, logger *zap.Logger) (*MQTTIngest, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	opts.SetClientID(cfg.MQTT.ClientID)

	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
	}
	if cfg.MQTT.Password != "" {
		opts.SetPassword(cfg.MQTT.Password)
	}

	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	client := mqtt.NewClient(opts)
	if token := client.Connect(); token.Wait() && token.Error() != nil {
		return nil, fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	return &MQTTIngest{
		client:      client,
		config:      cfg,
		redisClient: redisClient,
		logger:      logger,
	}, nil
}

// Start 订阅设备主题
func (i *MQTTIngest) Start(ctx context.Context) error {
	topic := i.config.MQTT.Topic
	token := i.client.Subscribe(topic, i.config.MQTT.QoS, func(_ mqtt.Client, msg mqtt.Message) {
		if err := i.handleMessage(ctx, msg.Topic(), msg.Payload()); err != nil {
			i.logger.Error("Failed to handle MQTT message",
				zap.String("topic", msg.Topic()),
				zap.Error(err),
			)
			// 记录错误，但不中断订阅
		}
	})
	if token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", topic, token.Error())
	}

	i.logger.Info("MQTT ingest started",
		zap.String("broker", i.config.MQTT.Broker),
		zap.String("topic", topic),
	)

	return nil
}

// handleMessage 处理单条设备消息：解析、补 patient_id、转发到输入流
func (i *MQTTIngest) handleMessage(ctx context.Context, topic string, payload []byte) error {
	var batch models.VitalsBatch
	if err := json.Unmarshal(payload, &batch); err != nil {
		return fmt.Errorf("failed to unmarshal vitals payload: %w", err)
	}

	// 消息体没带 patient_id 时从主题末段提取（ews/vitals/<patient_id>）
	if batch.PatientID == "" {
		parts := strings.Split(topic, "/")
		batch.PatientID = parts[len(parts)-1]
	}

	if err := batch.Validate(); err != nil {
		return fmt.Errorf("invalid vitals batch from %s: %w", topic, err)
	}

	if _, err := consumer.PublishJSONToStream(ctx, i.redisClient, i.config.Stream.Input, &batch); err != nil {
		return fmt.Errorf("failed to forward batch to stream: %w", err)
	}

	i.logger.Debug("Forwarded vitals batch",
		zap.String("topic", topic),
		zap.String("patient_id", batch.PatientID),
		zap.Int("samples", batch.Len()),
	)

	return nil
}

// Stop 断开 MQTT 连接
func (i *MQTTIngest) Stop() {
	i.client.Disconnect(250)
}
