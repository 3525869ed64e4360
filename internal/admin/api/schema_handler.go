// Package api 实现 admin 的 REST 处理器
package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"ndmgate/internal/admin/db"
	"ndmgate/internal/admin/model"
	"ndmgate/internal/ndm"
	"ndmgate/internal/pkg"
)

// SchemaHandler 提供模式定义的 CRUD 与导出.
// 写操作同时热注册到运行期消息目录, 不需要重启网关
type SchemaHandler struct {
	store  *db.SchemaStore
	logger *zap.Logger
}

// NewSchemaHandler 构造处理器
func NewSchemaHandler(ctx context.Context, store *db.SchemaStore) *SchemaHandler {
	return &SchemaHandler{
		store:  store,
		logger: pkg.LoggerFromContext(ctx).With(zap.String("module", "admin")),
	}
}

// Create POST /api/v1/schemas
func (h *SchemaHandler) Create(c *gin.Context) {
	var def model.SchemaDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: fmt.Sprintf("请求体解析失败: %v", err)})
		return
	}
	if def.Name == "" {
		def.Name = def.Definition.Type
	}

	message, err := def.Definition.Message()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	id, err := h.store.Insert(c.Request.Context(), &def)
	if err != nil {
		h.logger.Error("插入模式定义失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}

	ndm.Register(message)
	h.logger.Info("模式定义已创建并注册",
		zap.String("name", def.Name),
		zap.String("id", id.Hex()))
	c.JSON(http.StatusCreated, def)
}

// List GET /api/v1/schemas
func (h *SchemaHandler) List(c *gin.Context) {
	defs, err := h.store.List(c.Request.Context())
	if err != nil {
		h.logger.Error("查询模式定义失败", zap.Error(err))
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"schemas": defs, "registered_types": ndm.Types()})
}

// Get GET /api/v1/schemas/:id
func (h *SchemaHandler) Get(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "非法的 id"})
		return
	}

	def, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, def)
}

// Update PUT /api/v1/schemas/:id
func (h *SchemaHandler) Update(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "非法的 id"})
		return
	}

	var def model.SchemaDefinition
	if err := c.ShouldBindJSON(&def); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: fmt.Sprintf("请求体解析失败: %v", err)})
		return
	}

	message, err := def.Definition.Message()
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
		return
	}

	if err := h.store.Update(c.Request.Context(), id, &def); err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
		return
	}

	ndm.Register(message)
	h.logger.Info("模式定义已更新并重新注册", zap.String("id", id.Hex()))
	c.JSON(http.StatusOK, def)
}

// Delete DELETE /api/v1/schemas/:id
// 只删除存储, 已注册到运行期目录的类型保留到网关重启
func (h *SchemaHandler) Delete(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "非法的 id"})
		return
	}

	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": id.Hex()})
}

// ExportYAML GET /api/v1/schemas/:id/yaml
// 导出为可直接放进 schema_dir 的 yaml 模式定义文件
func (h *SchemaHandler) ExportYAML(c *gin.Context) {
	id, err := primitive.ObjectIDFromHex(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: "非法的 id"})
		return
	}

	def, err := h.store.Get(c.Request.Context(), id)
	if err != nil {
		c.JSON(http.StatusNotFound, model.ErrorResponse{Error: err.Error()})
		return
	}

	data, err := yaml.Marshal(&def.Definition)
	if err != nil {
		c.JSON(http.StatusInternalServerError, model.ErrorResponse{Error: fmt.Sprintf("序列化失败: %v", err)})
		return
	}

	header := fmt.Sprintf("# %s\n# exported %s\n", def.Name, time.Now().Format(time.RFC3339))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s.yaml", def.Name))
	c.Data(http.StatusOK, "application/x-yaml", append([]byte(header), data...))
}
