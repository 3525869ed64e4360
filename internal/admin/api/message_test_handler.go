package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ndmgate/internal/admin/model"
	"ndmgate/internal/kvn"
	"ndmgate/internal/ndm"
	"ndmgate/internal/parser"
	"ndmgate/internal/pkg"
)

// MessageTestHandler 提供解析试运行: 提交原始 KVN 文本,
// 返回解析出的字段、注释、逐步轨迹和耗时, 供调试模式定义
type MessageTestHandler struct {
	logger *zap.Logger
}

// NewMessageTestHandler 构造处理器
func NewMessageTestHandler(ctx context.Context) *MessageTestHandler {
	return &MessageTestHandler{
		logger: pkg.LoggerFromContext(ctx).With(zap.String("module", "admin")),
	}
}

// Test POST /api/v1/test/message
// 带内联模式时用内联模式解析, 否则按版本关键字识别已注册的消息类型
func (h *MessageTestHandler) Test(c *gin.Context) {
	var req model.TestMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: fmt.Sprintf("请求体解析失败: %v", err)})
		return
	}

	lines := parser.SplitLines([]byte(req.Payload))

	var schema *kvn.Schema
	var msgType string
	if req.Schema != nil {
		built, err := req.Schema.BuildSchema()
		if err != nil {
			c.JSON(http.StatusBadRequest, model.ErrorResponse{Error: err.Error()})
			return
		}
		schema = built
		msgType = req.Schema.Type
	} else {
		message, err := ndm.Detect(lines)
		if err != nil {
			c.JSON(http.StatusUnprocessableEntity, model.ErrorResponse{Error: err.Error()})
			return
		}
		schema = message.Schema
		msgType = message.Type
	}

	var steps []model.StepView
	start := time.Now()
	result, derr := kvn.DeserializeWithTrace(schema, kvn.NewLines(lines), func(s kvn.Step) {
		steps = append(steps, model.StepView{
			Field:   s.Field,
			Keyword: s.Keyword,
			Line:    s.Line,
			Action:  s.Action,
		})
	})
	elapsed := time.Since(start)

	if derr != nil {
		h.logger.Debug("试运行解析失败",
			zap.String("type", msgType),
			zap.String("code", derr.Code.String()))
		c.JSON(http.StatusUnprocessableEntity, model.ErrorResponse{
			Error:    derr.Error(),
			Code:     derr.Code.String(),
			Input:    derr.Input,
			Expected: derr.Expected,
		})
		return
	}

	c.JSON(http.StatusOK, model.TestMessageResponse{
		Type:       msgType,
		Fields:     result.Fields,
		Comments:   result.Comments,
		Steps:      steps,
		DurationUs: elapsed.Microseconds(),
	})
}
