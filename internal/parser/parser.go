package parser

import (
	"context"
	"fmt"

	"ndmgate/internal/pkg"
)

// Parser 定义一个通用的接口, 从数据源持续消费原始报文并向下游发出记录包
type Parser interface {
	Start() // 启动解析器
}

// FactoryFunc 代表一个解析器的工厂函数
type FactoryFunc func(dataSource pkg.DataSource, outChan pkg.Parser2DispatcherChan, ctx context.Context) (Parser, error)

// Factories 全局工厂映射, 用于注册不同类型解析器的构造函数
var Factories = make(map[string]FactoryFunc)

// Register 注册一个解析器类型
func Register(parserType string, factory FactoryFunc) {
	Factories[parserType] = factory
}

// New 按配置的解析器类型构造解析器实例
func New(ctx context.Context, dataSource pkg.DataSource, outChan pkg.Parser2DispatcherChan) (Parser, error) {
	config := pkg.ConfigFromContext(ctx)
	factory, ok := Factories[config.Parser.Type]
	if !ok {
		return nil, fmt.Errorf("未找到解析器类型: %s", config.Parser.Type)
	}

	parser, err := factory(dataSource, outChan, ctx)
	if err != nil {
		return nil, fmt.Errorf("初始化解析器失败: %w", err)
	}
	return parser, nil
}
