package connector

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mitchellh/mapstructure"
	"go.uber.org/zap"

	"ndmgate/internal/pkg"
)

// FileConfig 文件连接器配置
type FileConfig struct {
	Dir      string        `mapstructure:"dir"`      // 监视的目录
	Pattern  string        `mapstructure:"pattern"`  // 文件名通配, 默认 *.kvn
	Interval time.Duration `mapstructure:"interval"` // 扫描间隔, 默认 5s
}

// FileConnector 周期扫描目录, 每个匹配的文件作为一条完整报文投递,
// 处理过的文件追加 .done 后缀避免重复消费
type FileConnector struct {
	ctx     context.Context
	config  *FileConfig
	Sink    *pkg.MessageDataSource
	done    chan struct{}
	stopped chan struct{}
}

func init() {
	Register("file", NewFileConnector)
}

// NewFileConnector 构造文件连接器
func NewFileConnector(ctx context.Context) (Template, error) {
	config := pkg.ConfigFromContext(ctx)

	if intervalStr, ok := config.Connector.Para["interval"].(string); ok {
		duration, err := time.ParseDuration(intervalStr)
		if err != nil {
			return nil, fmt.Errorf("解析扫描间隔失败: %w", err)
		}
		config.Connector.Para["interval"] = duration
	}

	var fileConfig FileConfig
	if err := mapstructure.Decode(config.Connector.Para, &fileConfig); err != nil {
		return nil, fmt.Errorf("文件连接器配置解析失败: %w", err)
	}
	if fileConfig.Dir == "" {
		return nil, fmt.Errorf("文件连接器缺少 dir 配置")
	}
	if fileConfig.Pattern == "" {
		fileConfig.Pattern = "*.kvn"
	}
	if fileConfig.Interval <= 0 {
		fileConfig.Interval = 5 * time.Second
	}

	return &FileConnector{
		ctx:     ctx,
		config:  &fileConfig,
		done:    make(chan struct{}),
		stopped: make(chan struct{}),
	}, nil
}

func (f *FileConnector) GetType() string {
	return "message"
}

func (f *FileConnector) Start(sourceChan chan pkg.DataSource) error {
	logger := pkg.LoggerFromContext(f.ctx)

	source := pkg.NewMessageDataSource()
	source.MetaData["dir"] = f.config.Dir
	f.Sink = source
	sourceChan <- source

	logger.Info("文件连接器已启动",
		zap.String("dir", f.config.Dir),
		zap.String("pattern", f.config.Pattern),
		zap.Duration("interval", f.config.Interval))

	go f.scanLoop()
	return nil
}

func (f *FileConnector) scanLoop() {
	defer close(f.stopped)
	ticker := time.NewTicker(f.config.Interval)
	defer ticker.Stop()

	// 启动时先扫一次
	f.scanOnce()
	for {
		select {
		case <-f.ctx.Done():
			return
		case <-f.done:
			return
		case <-ticker.C:
			f.scanOnce()
		}
	}
}

func (f *FileConnector) scanOnce() {
	logger := pkg.LoggerFromContext(f.ctx)
	metrics := pkg.GetPerformanceMetrics()

	matches, err := filepath.Glob(filepath.Join(f.config.Dir, f.config.Pattern))
	if err != nil {
		metrics.IncErrorCount()
		logger.Error("目录扫描失败", zap.Error(err))
		return
	}

	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			metrics.IncErrorCount()
			logger.Error("读取报文文件失败", zap.String("path", path), zap.Error(err))
			continue
		}

		metrics.IncMsgReceived("file")
		// 下游堵塞时关闭信号要能解除投递等待, 否则 Close 无法收敛
		select {
		case f.Sink.DataChan <- data:
		case <-f.done:
			return
		case <-f.ctx.Done():
			return
		}

		// 标记为已处理
		if err := os.Rename(path, path+".done"); err != nil {
			logger.Warn("标记已处理文件失败", zap.String("path", path), zap.Error(err))
		}
		logger.Debug("报文文件已投递", zap.String("path", path), zap.Int("bytes", len(data)))
	}
}

// Close 先让扫描协程退出, 再关闭数据通道, 避免关闭时还有投递在途
func (f *FileConnector) Close() error {
	close(f.done)
	if f.Sink != nil {
		<-f.stopped
		close(f.Sink.DataChan)
	}
	pkg.LoggerFromContext(f.ctx).Info("文件连接器已关闭")
	return nil
}
