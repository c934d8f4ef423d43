// Package mqtt 提供 MQTT 客户端封装，用于发布房态和预订事件
package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"go.uber.org/zap"
)

// Config MQTT 配置
type Config struct {
	Broker         string
	ClientID       string
	Username       string
	Password       string
	KeepAlive      int
	AutoReconnect  bool
	ConnectTimeout int
	QoS            byte
}

// Publisher 消息发布接口
type Publisher interface {
	Publish(ctx context.Context, topic string, payload interface{}, retained bool) error
}

// Client MQTT 客户端
type Client struct {
	config *Config
	client mqtt.Client
	log    *zap.Logger
}

// NewClient 创建 MQTT 客户端
func NewClient(config *Config, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		config: config,
		log:    log.Named("mqtt"),
	}
}

// Connect 连接 MQTT Broker
func (c *Client) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(c.config.Broker)
	opts.SetClientID(c.config.ClientID)
	opts.SetUsername(c.config.Username)
	opts.SetPassword(c.config.Password)
	opts.SetCleanSession(true)
	opts.SetKeepAlive(time.Duration(c.config.KeepAlive) * time.Second)
	opts.SetAutoReconnect(c.config.AutoReconnect)
	if c.config.ConnectTimeout > 0 {
		opts.SetConnectTimeout(time.Duration(c.config.ConnectTimeout) * time.Second)
	}
	opts.SetOnConnectHandler(func(mqtt.Client) {
		c.log.Info("已连接 MQTT Broker", zap.String("broker", c.config.Broker))
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		c.log.Warn("MQTT 连接断开", zap.Error(err))
	})
	opts.SetReconnectingHandler(func(mqtt.Client, *mqtt.ClientOptions) {
		c.log.Info("MQTT 重连中")
	})

	c.client = mqtt.NewClient(opts)

	if token := c.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("mqtt connect error: %w", token.Error())
	}
	return nil
}

// Disconnect 断开连接
func (c *Client) Disconnect() {
	if c.client != nil && c.client.IsConnected() {
		c.client.Disconnect(250)
		c.log.Info("已断开 MQTT Broker")
	}
}

// IsConnected 检查是否已连接
func (c *Client) IsConnected() bool {
	return c.client != nil && c.client.IsConnected()
}

// Publish 发布消息，ctx 到期前未收到确认则返回 ctx 错误
func (c *Client) Publish(ctx context.Context, topic string, payload interface{}, retained bool) error {
	if !c.IsConnected() {
		return fmt.Errorf("mqtt not connected")
	}

	data, err := encode(payload)
	if err != nil {
		return err
	}

	token := c.client.Publish(topic, c.config.QoS, retained, data)
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-token.Done():
		if token.Error() != nil {
			return fmt.Errorf("mqtt publish error: %w", token.Error())
		}
		return nil
	}
}

func encode(payload interface{}) ([]byte, error) {
	switch v := payload.(type) {
	case []byte:
		return v, nil
	case string:
		return []byte(v), nil
	default:
		data, err := json.Marshal(payload)
		if err != nil {
			return nil, fmt.Errorf("mqtt marshal payload error: %w", err)
		}
		return data, nil
	}
}

// PublishedMessage 模拟发布器记录的消息
type PublishedMessage struct {
	Topic    string
	Payload  []byte
	Retained bool
}

// MockPublisher 模拟发布器（用于开发测试）
type MockPublisher struct {
	mu       sync.Mutex
	Messages []PublishedMessage
	Err      error
}

// NewMockPublisher 创建模拟发布器
func NewMockPublisher() *MockPublisher {
	return &MockPublisher{}
}

// Publish 记录消息
func (p *MockPublisher) Publish(_ context.Context, topic string, payload interface{}, retained bool) error {
	if p.Err != nil {
		return p.Err
	}
	data, err := encode(payload)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Messages = append(p.Messages, PublishedMessage{Topic: topic, Payload: data, Retained: retained})
	return nil
}

// Topics 已发布的主题
func (p *MockPublisher) Topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	topics := make([]string, 0, len(p.Messages))
	for _, m := range p.Messages {
		topics = append(topics, m.Topic)
	}
	return topics
}
