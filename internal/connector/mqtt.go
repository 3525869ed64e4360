package connector

import (
	"context"
	"fmt"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"ndmgate/internal/pkg"
)

// MQTTClient 定义一个接口, 包含需要的 MQTT 客户端方法, 便于测试替身
type MQTTClient interface {
	Connect() mqtt.Token
	Disconnect(quiesce uint)
	SubscribeMultiple(filters map[string]byte, callback mqtt.MessageHandler) mqtt.Token
	IsConnected() bool
}

// MqttConnector 订阅 MQTT 主题, 每条消息的负载是一条完整的 KVN 报文
type MqttConnector struct {
	ctx    context.Context
	config *pkg.MqttConfig
	Client MQTTClient
	Sink   *pkg.MessageDataSource
}

func init() {
	Register("mqtt", NewMqttConnector)
}

// NewMqttConnector 构造 MQTT 连接器
func NewMqttConnector(ctx context.Context) (Template, error) {
	config := pkg.ConfigFromContext(ctx)

	// timeout 字段从字符串解析为 time.Duration
	if intervalStr, ok := config.Connector.Para["maxreconnectinterval"].(string); ok {
		duration, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("解析重连间隔失败: %w", err)
		}
		config.Connector.Para["maxreconnectinterval"] = duration
	}

	var mqttConfig pkg.MqttConfig
	if err := mapstructure.Decode(config.Connector.Para, &mqttConfig); err != nil {
		return nil, fmt.Errorf("mqtt 连接器配置解析失败: %w", err)
	}

	mqttConnector := &MqttConnector{
		ctx:    ctx,
		config: &mqttConfig,
	}

	opts := mqtt.NewClientOptions()
	opts.AddBroker(mqttConfig.Broker)
	opts.SetClientID(mqttConfig.ClientID)
	opts.SetUsername(mqttConfig.Username)
	opts.SetPassword(mqttConfig.Password)

	// Paho 自动重连, 不需要手动处理
	opts.SetAutoReconnect(true)
	opts.SetMaxReconnectInterval(mqttConfig.MaxReconnectInterval)

	opts.OnConnect = mqttConnector.connectHandler
	opts.OnConnectionLost = mqttConnector.connectLostHandler

	mqttConnector.Client = mqtt.NewClient(opts)
	return mqttConnector, nil
}

func (m *MqttConnector) GetType() string {
	return "message"
}

func (m *MqttConnector) Start(sourceChan chan pkg.DataSource) error {
	logger := pkg.LoggerFromContext(m.ctx)
	metrics := pkg.GetPerformanceMetrics()

	source := pkg.NewMessageDataSource()
	source.MetaData["broker"] = m.config.Broker
	m.Sink = source
	sourceChan <- source

	if token := m.Client.Connect(); token.Wait() && token.Error() != nil {
		metrics.IncErrorCount()
		metrics.IncMsgErrors("mqtt_connect")
		err := fmt.Errorf("MQTT连接失败: %w", token.Error())
		m.reportError(err)
		// 未连接的客户端上订阅没有意义
		return err
	}

	token := m.Client.SubscribeMultiple(m.config.Topics, m.messagePubHandler)
	token.Wait()
	if err := token.Error(); err != nil {
		metrics.IncErrorCount()
		metrics.IncMsgErrors("mqtt_subscribe")
		wrapped := fmt.Errorf("MQTT订阅失败: %w", err)
		m.reportError(wrapped)
		return wrapped
	}

	logger.Info("MQTT订阅成功, 正在监听报文")
	return nil
}

// reportError 把错误推给全局错误通道, 通道未挂载时只记日志,
// 向 nil 通道发送会永久阻塞
func (m *MqttConnector) reportError(err error) {
	if errChan := pkg.ErrChanFromContext(m.ctx); errChan != nil {
		errChan <- err
		return
	}
	pkg.LoggerFromContext(m.ctx).Error("MQTT连接器错误", zap.Error(err))
}

func (m *MqttConnector) Close() error {
	logger := pkg.LoggerFromContext(m.ctx)

	if m.Client != nil && m.Client.IsConnected() {
		m.Client.Disconnect(250)
		logger.Info("MQTT连接已断开")
		if m.Sink != nil {
			close(m.Sink.DataChan)
		}
		return nil
	}
	return fmt.Errorf("MQTT客户端未连接")
}

func (m *MqttConnector) messagePubHandler(_ mqtt.Client, msg mqtt.Message) {
	logger := pkg.LoggerFromContext(m.ctx)
	metrics := pkg.GetPerformanceMetrics()

	metrics.IncMsgReceived("mqtt")
	logger.Debug("收到报文",
		zap.String("topic", msg.Topic()),
		zap.Int("bytes", len(msg.Payload())))

	if err := m.Sink.WriteOne(msg.Payload()); err != nil {
		metrics.IncErrorCount()
		metrics.IncMsgErrors("mqtt")
		logger.Error("投递报文失败", zap.Error(err))
	}
}

// 连接成功回调
func (m *MqttConnector) connectHandler(client mqtt.Client) {
	_ = client
	pkg.LoggerFromContext(m.ctx).Info("成功连接至MQTT broker")
}

// 连接丢失回调
func (m *MqttConnector) connectLostHandler(client mqtt.Client, err error) {
	_ = client
	pkg.GetPerformanceMetrics().IncMsgErrors("mqtt_connection_lost")
	pkg.LoggerFromContext(m.ctx).Error("MQTT连接丢失", zap.Error(err))
}
