package utils

import (
	"github.com/gin-gonic/gin"

	"dc-purchase-api/internal/constant"
)

// 统一响应格式（支持中英文提示）
type Response struct {
	Code    int         `json:"code"`
	Msg     string      `json:"msg"`
	MsgEN   string      `json:"msg_en,omitempty"`
	Data    interface{} `json:"data,omitempty"`
	TraceID string      `json:"trace_id,omitempty"`
}

// 成功响应
func Success(data interface{}) Response {
	return Response{
		Code:  constant.CodeSuccess,
		Msg:   "成功",
		MsgEN: "Success",
		Data:  data,
	}
}

// 错误响应（自动从 constant 中获取中英文描述）
func Error(code int) Response {
	if info, exists := constant.GetErrorInfo(code); exists {
		return Response{
			Code:  code,
			Msg:   info.CN,
			MsgEN: info.EN,
		}
	}
	return Response{
		Code:  code,
		Msg:   "未知错误",
		MsgEN: "Unknown error",
	}
}

// 自定义错误响应，msg 覆盖英文描述
func CustomError(code int, message string) Response {
	resp := Error(code)
	if message != "" {
		resp.MsgEN = message
	}
	return resp
}

// Fail 按错误码写出对应 HTTP 状态和响应体，并中止后续 handler
func Fail(c *gin.Context, code int, message string) {
	resp := CustomError(code, message)
	resp.TraceID = c.GetString("trace_id")
	c.AbortWithStatusJSON(constant.HTTPStatus(code), resp)
}

// OK 写出成功响应
func OK(c *gin.Context, data interface{}) {
	resp := Success(data)
	resp.TraceID = c.GetString("trace_id")
	c.JSON(200, resp)
}
