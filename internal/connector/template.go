package connector

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"ndmgate/internal/pkg"
)

// Template 是所有连接器的通用接口, 连接器负责把外部来源的原始
// KVN 报文写入数据源, 供解析器消费
type Template interface {
	// Start 启动连接器并把数据源发往 sourceChan
	Start(sourceChan chan pkg.DataSource) error
	// GetType 返回连接器产生的数据源类型
	GetType() string
	Close() error
}

// FactoryFunc 代表一个连接器的工厂函数
type FactoryFunc func(ctx context.Context) (Template, error)

// Factories 全局工厂映射, 用于注册不同类型连接器的构造函数
var Factories = make(map[string]FactoryFunc)

// Register 注册一个连接器类型
func Register(connType string, factory FactoryFunc) {
	Factories[connType] = factory
}

// New 按配置的连接器类型构造连接器实例
var New = func(ctx context.Context) (Template, error) {
	config := pkg.ConfigFromContext(ctx)

	factoryTypes := make([]string, 0, len(Factories))
	for key := range Factories {
		factoryTypes = append(factoryTypes, key)
	}
	pkg.LoggerFromContext(ctx).Debug("连接器工厂", zap.Strings("factories", factoryTypes))
	pkg.LoggerFromContext(ctx).Info(fmt.Sprintf("===正在启动连接器: %s===", config.Connector.Type))

	factory, ok := Factories[config.Connector.Type]
	if !ok {
		return nil, fmt.Errorf("未找到连接器类型: %s", config.Connector.Type)
	}
	conn, err := factory(ctx)
	if err != nil {
		return nil, fmt.Errorf("初始化连接器失败: %w", err)
	}
	return conn, nil
}
