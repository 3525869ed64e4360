package pkg

import (
	"context"
	"fmt"
	"io/fs"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// ConnectorConfig 连接器相关配置
type ConnectorConfig struct {
	Type string         `mapstructure:"type"`   // 连接器类型 file|tcpserver|mqtt
	Para map[string]any `mapstructure:"config"` // 连接器自定义配置项
}

// ParserConfig 解析器相关配置
type ParserConfig struct {
	Type      string         `mapstructure:"type"`       // 解析器类型, 目前仅 kvn
	SchemaDir string         `mapstructure:"schema_dir"` // 额外消息模式定义文件目录, 可为空
	Para      map[string]any `mapstructure:"config"`
}

// SinkConfig 下游发送端配置, 可以有多个
type SinkConfig struct {
	Type   string         `mapstructure:"type"`   // 发送端类型
	Enable bool           `mapstructure:"enable"` // 是否启用
	Filter []string       `mapstructure:"filter"` // expr 过滤表达式, 多个之间按 && 组合
	Para   map[string]any `mapstructure:"config"` // 自定义配置项
}

// AdminConfig admin api 相关配置
type AdminConfig struct {
	Port     string `mapstructure:"port"`
	MongoURI string `mapstructure:"mongo_uri"`
	MongoDB  string `mapstructure:"mongo_db"`
}

// Config 全局配置
type Config struct {
	Version   string          `mapstructure:"version"`
	Log       LogConfig       `mapstructure:"log"`
	Connector ConnectorConfig `mapstructure:"connector"`
	Parser    ParserConfig    `mapstructure:"parser"`
	Sink      []SinkConfig    `mapstructure:"sink"`
	Admin     AdminConfig     `mapstructure:"admin"`
	Others    map[string]any  `mapstructure:",remain"`
}

// MqttConfig 包含 MQTT 配置信息, 连接器与发送端共用
type MqttConfig struct {
	Broker               string          `mapstructure:"broker"`
	ClientID             string          `mapstructure:"clientID"`
	Username             string          `mapstructure:"username"`
	Password             string          `mapstructure:"password"`
	MaxReconnectInterval time.Duration   `mapstructure:"maxReconnectInterval"`
	Topics               map[string]byte `mapstructure:"topics"` // 主题和 QoS 的 map
}

// InitCommon 用于初始化全局配置, 合并配置目录及其子目录下的所有 yaml 文件
func InitCommon(configDir string) (*Config, error) {
	v := viper.NewWithOptions(viper.KeyDelimiter("::")) // 设置 key 分隔符为 ::，因为默认的 . 会和 IP 地址冲突
	v.AddConfigPath(configDir)
	v.AutomaticEnv() // 读取环境变量
	// 遍历配置目录及其子目录中的所有文件
	_ = filepath.WalkDir(configDir, func(filePath string, d fs.DirEntry, err error) error {
		if err != nil {
			return fmt.Errorf("访问路径 %s 失败: %w", filePath, err)
		}

		// 如果是目录则跳过，继续遍历
		if d.IsDir() {
			return nil
		}

		// 只处理 .yaml 或 .yml 文件
		ext := filepath.Ext(filePath)
		if ext == ".yaml" || ext == ".yml" {
			baseName := filepath.Base(filePath)
			configName := baseName[0 : len(baseName)-len(ext)]
			v.SetConfigName(configName)
			v.SetConfigFile(filePath)

			// 读取并合并配置文件 (会覆盖之前的配置)
			if err := v.MergeInConfig(); err != nil {
				return fmt.Errorf("读取配置文件失败 %s: %w", filePath, err)
			}
		}

		return nil
	})
	var common Config
	// 反序列化到结构体
	if err := v.Unmarshal(&common); err != nil {
		return nil, fmt.Errorf("反序列化配置失败: %w", err)
	}
	return &common, nil
}

// 定义一个不导出的 key 类型，避免 context key 冲突
type configKey struct{}

// WithConfig 将全局配置指针存入 context 中
func WithConfig(ctx context.Context, config *Config) context.Context {
	return context.WithValue(ctx, configKey{}, config)
}

// ConfigFromContext 从 context 中提取配置指针, 不存在时返回空配置
func ConfigFromContext(ctx context.Context) *Config {
	if config, ok := ctx.Value(configKey{}).(*Config); ok {
		return config
	}
	return &Config{}
}
