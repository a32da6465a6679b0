package mqttin

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tissuewatch/internal/config"
	"tissuewatch/internal/repository"
	"tissuewatch/internal/service"
)

// Ingester 读数处理面（service.IngestService 实现）
type Ingester interface {
	Ingest(ctx context.Context, in service.ReadingInput) (*service.IngestResult, error)
}

// Consumer 订阅遥测主题，把 MQTT 载荷送进和 HTTP 完全相同的接入路径。
// Payload shape matches the HTTP ingestion body byte for byte.
type Consumer struct {
	client mqtt.Client
	cfg    *config.Config
	ingest Ingester
	logger *zap.Logger
}

func NewConsumer(cfg *config.Config, ingest Ingester, logger *zap.Logger) *Consumer {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(cfg.MQTT.Broker)
	// 同一镜像多副本部署时 client id 必须唯一
	opts.SetClientID(fmt.Sprintf("%s-%s", cfg.MQTT.ClientID, uuid.NewString()[:8]))
	if cfg.MQTT.Username != "" {
		opts.SetUsername(cfg.MQTT.Username)
	}
	if cfg.MQTT.Password != "" {
		opts.SetPassword(cfg.MQTT.Password)
	}
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	return &Consumer{
		client: mqtt.NewClient(opts),
		cfg:    cfg,
		ingest: ingest,
		logger: logger,
	}
}

// Start 连接 broker 并订阅遥测主题
func (c *Consumer) Start() error {
	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %w", token.Error())
	}

	if token := c.client.Subscribe(c.cfg.MQTT.Topic, c.cfg.MQTT.QoS, c.handleMessage); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to subscribe to topic %s: %w", c.cfg.MQTT.Topic, token.Error())
	}

	c.logger.Info("MQTT ingestion started",
		zap.String("broker", c.cfg.MQTT.Broker),
		zap.String("topic", c.cfg.MQTT.Topic),
	)
	return nil
}

func (c *Consumer) handleMessage(_ mqtt.Client, msg mqtt.Message) {
	var in service.ReadingInput
	if err := json.Unmarshal(msg.Payload(), &in); err != nil {
		c.logger.Warn("Dropping malformed MQTT payload",
			zap.String("topic", msg.Topic()),
			zap.Error(err),
		)
		return
	}

	if _, err := c.ingest.Ingest(context.Background(), in); err != nil {
		// 未知设备照常丢弃；无会话可回错误
		if errors.Is(err, repository.ErrNotFound) {
			c.logger.Warn("Dropping reading for unknown device",
				zap.String("topic", msg.Topic()),
				zap.Int64("device_id", in.DeviceID),
			)
			return
		}
		c.logger.Error("Failed to ingest MQTT reading",
			zap.String("topic", msg.Topic()),
			zap.Int64("device_id", in.DeviceID),
			zap.Error(err),
		)
	}
}

// Stop 退订并断开
func (c *Consumer) Stop() {
	if token := c.client.Unsubscribe(c.cfg.MQTT.Topic); token.Wait() && token.Error() != nil {
		c.logger.Warn("Failed to unsubscribe", zap.Error(token.Error()))
	}
	c.client.Disconnect(250)
	c.logger.Info("MQTT ingestion stopped")
}
