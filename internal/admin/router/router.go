// Package router 组装 admin 的 http 路由
package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"ndmgate/internal/admin/api"
	"ndmgate/internal/admin/db"
	"ndmgate/internal/ndm"
	"ndmgate/internal/pkg"
)

// Setup 构造路由. store 为 nil 时模式管理接口不挂载, 只保留试运行与健康检查
func Setup(ctx context.Context, store *db.SchemaStore) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}))

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":           "ok",
			"registered_types": ndm.Types(),
		})
	})
	r.GET("/metrics/report", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"report": pkg.GetPerformanceMetrics().GetMetricsReport()})
	})

	v1 := r.Group("/api/v1")

	testHandler := api.NewMessageTestHandler(ctx)
	v1.POST("/test/message", testHandler.Test)

	if store != nil {
		schemaHandler := api.NewSchemaHandler(ctx, store)
		schemas := v1.Group("/schemas")
		schemas.POST("", schemaHandler.Create)
		schemas.GET("", schemaHandler.List)
		schemas.GET("/:id", schemaHandler.Get)
		schemas.PUT("/:id", schemaHandler.Update)
		schemas.DELETE("/:id", schemaHandler.Delete)
		schemas.GET("/:id/yaml", schemaHandler.ExportYAML)
	}

	return r
}
