package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"ndmgate/internal/admin/db"
	"ndmgate/internal/admin/router"
	"ndmgate/internal/ndm"
	"ndmgate/internal/pkg"
)

func main() {
	// 1. 初始化配置与日志
	config, err := pkg.InitCommon("yaml")
	if err != nil {
		fmt.Printf("[admin] 加载配置失败: %s\n", err)
		return
	}
	log := pkg.NewLogger(&config.Log)
	defer func() { _ = log.Sync() }()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = pkg.WithConfig(ctx, config)
	ctx = pkg.WithLogger(ctx, log)

	// 2. 加载网关侧的 yaml 模式定义, 试运行接口与网关看到同一套消息目录
	if config.Parser.SchemaDir != "" {
		count, err := ndm.LoadSchemaDir(config.Parser.SchemaDir)
		if err != nil {
			log.Warn("加载模式定义目录失败", zap.Error(err))
		} else {
			log.Info("模式定义目录已加载", zap.Int("count", count))
		}
	}

	// 3. 连接 MongoDB, 失败时降级为只读模式(仅试运行接口)
	var store *db.SchemaStore
	if config.Admin.MongoURI != "" {
		mongoDB, err := db.NewMongoDB(config.Admin.MongoURI, config.Admin.MongoDB)
		if err != nil {
			log.Warn("MongoDB不可用, 模式管理接口关闭", zap.Error(err))
		} else {
			defer func() { _ = mongoDB.Close() }()
			store, err = db.NewSchemaStore(mongoDB)
			if err != nil {
				log.Warn("初始化模式存储失败, 模式管理接口关闭", zap.Error(err))
				store = nil
			}
		}
	}

	// 4. 启动 http 服务
	r := router.Setup(ctx, store)
	srv := &http.Server{
		Addr:    ":" + config.Admin.Port,
		Handler: r,
	}
	go func() {
		log.Info("管理后台已启动", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("管理后台异常退出", zap.Error(err))
			os.Exit(1)
		}
	}()

	// 5. 等待中断信号, 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("正在关闭管理后台...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("管理后台关闭失败", zap.Error(err))
	}
	log.Info("管理后台已退出")
}
