package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"ndmgate/internal/admin/model"
	"ndmgate/internal/ndm"
)

const sampleOpmPayload = "CCSDS_OPM_VERS = 3.0\n" +
	"COMMENT Generated by GSOC, R. Kiehling\n" +
	"CREATION_DATE = 2021-06-03T05:33:00.123\n" +
	"ORIGINATOR = GSOC\n" +
	"OBJECT_NAME = EUTELSAT W4\n" +
	"OBJECT_ID = 2021-028A\n" +
	"CENTER_NAME = EARTH\n" +
	"REF_FRAME = TOD\n" +
	"TIME_SYSTEM = UTC\n" +
	"EPOCH = 2021-06-03T00:00:00.000\n" +
	"X = 6655.9942 [km]\n" +
	"Y = -40218.5751 [km]\n" +
	"Z = -82.9177 [km]\n" +
	"X_DOT = 3.11548208 [km/s]\n" +
	"Y_DOT = 0.47042605 [km/s]\n" +
	"Z_DOT = -0.00101495 [km/s]\n"

func testRouter() *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewMessageTestHandler(context.Background())
	r.POST("/api/v1/test/message", h.Test)
	return r
}

func postTestMessage(t *testing.T, r *gin.Engine, req model.TestMessageRequest) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	assert.NoError(t, err)
	w := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/api/v1/test/message", bytes.NewReader(body))
	httpReq.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, httpReq)
	return w
}

func TestMessageTestHandlerDetect(t *testing.T) {
	r := testRouter()
	w := postTestMessage(t, r, model.TestMessageRequest{Payload: sampleOpmPayload})
	assert.Equal(t, http.StatusOK, w.Code, "合法报文应返回200")

	var resp model.TestMessageResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "OPM", resp.Type, "应识别为OPM")
	assert.Equal(t, "GSOC", resp.Fields["originator"], "应解析出字段")
	assert.Contains(t, resp.Comments, "Generated by GSOC, R. Kiehling", "应收集注释")
	assert.NotEmpty(t, resp.Steps, "应产生逐步轨迹")
	assert.Equal(t, "matched", resp.Steps[0].Action, "版本行应首先命中")
	assert.Equal(t, "comment", resp.Steps[1].Action, "注释行应出现在轨迹里")
}

func TestMessageTestHandlerParseError(t *testing.T) {
	r := testRouter()
	payload := "CCSDS_OPM_VERS = 3.0\n" +
		"CREATION_DATE = 2021,06,03Q05!33!00-123\n"
	w := postTestMessage(t, r, model.TestMessageRequest{Payload: payload})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "日期格式错误应返回422")

	var resp model.ErrorResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "InvalidDateTimeFormat", resp.Code, "错误码应为InvalidDateTimeFormat")
	assert.Equal(t, "CREATION_DATE = 2021,06,03Q05!33!00-123", resp.Input, "出错行原文应保留")
}

func TestMessageTestHandlerUnknownType(t *testing.T) {
	r := testRouter()
	w := postTestMessage(t, r, model.TestMessageRequest{Payload: "FOO_VERS = 1.0\n"})
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code, "未注册类型应返回422")
}

func TestMessageTestHandlerInlineSchema(t *testing.T) {
	r := testRouter()
	req := model.TestMessageRequest{
		Payload: "DEMO_VERS = 1.0\nRANGE = 28800.123 [km]\n",
		Schema: &ndm.SchemaFile{
			Type:           "demo",
			VersionKeyword: "DEMO_VERS",
			Fields: []ndm.FieldDef{
				{Name: "version", Keywords: []string{"DEMO_VERS"}, Kind: "string", Required: true},
				{
					Name:     "range",
					Keywords: []string{"RANGE"},
					Kind:     "float",
					WithUnit: true,
					Required: true,
					Pair:     &ndm.PairDef{ValueName: "base", UnitName: "units"},
				},
			},
		},
	}
	w := postTestMessage(t, r, req)
	assert.Equal(t, http.StatusOK, w.Code, "内联模式应返回200")

	var resp model.TestMessageResponse
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "demo", resp.Type, "类型应取自内联模式")
	rangeField, ok := resp.Fields["range"].(map[string]any)
	assert.True(t, ok, "复合字段应为对象")
	assert.InDelta(t, 28800.123, rangeField["base"], 1e-9, "数值应解析")
	assert.Equal(t, "km", rangeField["units"], "单位应解析")
}

func TestMessageTestHandlerBadRequest(t *testing.T) {
	r := testRouter()
	w := httptest.NewRecorder()
	httpReq := httptest.NewRequest(http.MethodPost, "/api/v1/test/message", bytes.NewReader([]byte(`{}`)))
	httpReq.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, httpReq)
	assert.Equal(t, http.StatusBadRequest, w.Code, "缺少payload应返回400")
}
