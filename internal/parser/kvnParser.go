package parser

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"ndmgate/internal/kvn"
	"ndmgate/internal/ndm"
	"ndmgate/internal/pkg"
)

// KvnParser 消费消息型数据源中的 KVN 报文, 识别消息类型后
// 按注册的模式反序列化并向下游发出记录包
type KvnParser struct {
	ctx        context.Context
	dataSource *pkg.MessageDataSource
	outChan    pkg.Parser2DispatcherChan
}

func init() {
	Register("kvn", NewKvnParser)
}

// NewKvnParser 构造 KVN 解析器, 配置了 schema_dir 时先加载目录下的模式定义
func NewKvnParser(dataSource pkg.DataSource, outChan pkg.Parser2DispatcherChan, ctx context.Context) (Parser, error) {
	msgSource, ok := dataSource.(*pkg.MessageDataSource)
	if !ok {
		return nil, fmt.Errorf("kvn 解析器只支持消息型数据源, 实际类型: %s", dataSource.Type())
	}

	config := pkg.ConfigFromContext(ctx)
	if dir := config.Parser.SchemaDir; dir != "" {
		count, err := ndm.LoadSchemaDir(dir)
		if err != nil {
			return nil, fmt.Errorf("加载模式定义目录失败: %w", err)
		}
		pkg.LoggerFromContext(ctx).Info("已加载模式定义",
			zap.String("dir", dir),
			zap.Int("count", count),
			zap.Strings("types", ndm.Types()))
	}

	return &KvnParser{
		ctx:        ctx,
		dataSource: msgSource,
		outChan:    outChan,
	}, nil
}

// Start 启动消费循环, 数据源关闭后退出
func (p *KvnParser) Start() {
	logger := pkg.LoggerFromContext(p.ctx)
	metrics := pkg.GetPerformanceMetrics()

	go func() {
		for {
			select {
			case <-p.ctx.Done():
				logger.Info("解析器退出")
				return
			default:
			}

			data, err := p.dataSource.ReadOne()
			if err != nil {
				// 数据源已关闭
				logger.Info("数据源关闭, 解析器退出")
				return
			}

			rp, err := ParseMessage(p.ctx, data)
			if err != nil {
				metrics.IncErrorCount()
				logger.Error("报文解析失败",
					zap.Error(err),
					zap.String("payload", string(data)))
				continue
			}

			select {
			case p.outChan <- rp:
			default:
				// 通道堵塞时丢弃并告警, 避免拖垮上游
				logger.Warn("下游通道堵塞, 丢弃记录包", zap.String("frame_id", rp.FrameId.String()))
			}
		}
	}()
}

// ParseMessage 解析一条完整的 KVN 报文, 产出带帧 id 的记录包
func ParseMessage(ctx context.Context, payload []byte) (*pkg.RecordPackage, error) {
	logger := pkg.LoggerFromContext(ctx)
	metrics := pkg.GetPerformanceMetrics()
	timer := metrics.NewTimer("kvn_parse")

	lines := SplitLines(payload)
	message, err := ndm.Detect(lines)
	if err != nil {
		timer.Stop()
		return nil, err
	}

	metrics.IncMsgReceived(message.Type)
	metrics.IncMessageCount()

	result, derr := kvn.Deserialize(message.Schema, kvn.NewLines(lines))
	if derr != nil {
		metrics.IncMsgErrors(message.Type)
		timer.Stop()
		return nil, fmt.Errorf("%s 消息反序列化失败: %w", message.Type, derr)
	}

	now := time.Now()
	record := &pkg.Record{
		Id:          uuid.New(),
		MessageType: message.Type,
		Fields:      result.Fields,
		Comments:    result.Comments,
		Ts:          now,
	}

	metrics.IncMsgParsed(message.Type)
	timer.StopAndLog(logger)

	return &pkg.RecordPackage{
		FrameId: uuid.New(),
		Records: []*pkg.Record{record},
		Ts:      now,
	}, nil
}

// SplitLines 把原始报文切分成行并丢弃空行.
// 编码与切行是调用方的职责, kvn 核心只接收切分好的行序列
func SplitLines(payload []byte) []string {
	raw := strings.Split(strings.ReplaceAll(string(payload), "\r\n", "\n"), "\n")
	lines := make([]string, 0, len(raw))
	for _, line := range raw {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
