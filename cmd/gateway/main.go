package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ndmgate/internal/pipeline"
	"ndmgate/internal/pkg"
)

// syncLog 安全地同步日志, Windows 下同步标准输出会报 handle is invalid,
// 这是 zap 的已知问题, 可以忽略
func syncLog(log *zap.Logger) {
	err := log.Sync()
	if err != nil && !strings.Contains(err.Error(), "The handle is invalid") {
		log.Error("程序退出时同步日志失败", zap.Error(err))
	}
}

func main() {
	// 1. 初始化配置
	config, err := pkg.InitCommon("yaml")
	if err != nil {
		fmt.Printf("[main] 加载配置失败: %s\n", err)
		return
	}

	// 2. 初始化日志
	log := pkg.NewLogger(&config.Log)
	log.Info("程序启动", zap.String("version", config.Version))
	log.Info("==== 初始化流程开始 ====")

	// 3. 创建上下文, 挂载全局错误通道/配置/日志
	ctx, cancel := context.WithCancel(context.Background())
	errChan := make(chan error, 10)
	ctx = pkg.WithErrChan(ctx, errChan)
	ctx = pkg.WithConfig(ctx, config)
	ctx = pkg.WithLogger(ctx, log)

	// 4. 启动数据流
	p, err := pipeline.Start(ctx)
	if err != nil {
		log.Error("启动数据流失败", zap.Error(err))
		cancel()
		syncLog(log)
		os.Exit(1)
	}
	printStartupLogo()

	// 5. 周期输出性能指标
	metrics := pkg.GetPerformanceMetrics()
	metricsTicker := time.NewTicker(time.Minute)
	defer metricsTicker.Stop()

	// 6. 主线程监听终止信号与全局错误
	si := make(chan os.Signal, 1)
	signal.Notify(si, os.Interrupt, syscall.SIGTERM)
	for {
		select {
		case <-metricsTicker.C:
			metrics.LogMetrics(log)
		case <-si:
			log.Info("收到退出信号, 正在关闭网关...")
			cancel()
			_ = p.Close()
			time.Sleep(1 * time.Second)
			syncLog(log)
			os.Exit(0)
		case bad := <-errChan:
			log.Error("发生不可恢复错误", zap.Error(bad))
			cancel()
			_ = p.Close()
			go func() {
				for err := range errChan {
					log.Error("关闭前的遗留错误", zap.Error(err))
				}
			}()
			time.Sleep(1 * time.Second)
			syncLog(log)
			os.Exit(1)
		}
	}
}

func printStartupLogo() {
	logo := `
		 ________   ________  _____ ______   ________  ________  _________  _______
		|\   ___  \|\   ___ \|\   _ \  _   \|\   ____\|\   __  \|\___   ___\\  ___ \
		\ \  \\ \  \ \  \_|\ \ \  \\\__\ \  \ \  \___|\ \  \|\  \|___ \  \_\ \   __/|
		 \ \  \\ \  \ \  \ \\ \ \  \\|__| \  \ \  \  __\ \   __  \   \ \  \ \ \  \_|/__
		  \ \  \\ \  \ \  \_\\ \ \  \    \ \  \ \  \|\  \ \  \ \  \   \ \  \ \ \  \_|\ \
		   \ \__\\ \__\ \_______\ \__\    \ \__\ \_______\ \__\ \__\   \ \__\ \ \_______\
			\|__| \|__|\|_______|\|__|     \|__|\|_______|\|__|\|__|    \|__|  \|_______|

`
	fmt.Print(logo)
}
