package constant

import (
	"fmt"
	"net/http"
)

// Error 错误接口
type Error interface {
	error
	Code() int
	Message() string
	WithData(data interface{}) Error
}

// CustomError 自定义错误实现
type CustomError struct {
	code    int
	message string
	data    interface{}
}

func (e *CustomError) Error() string {
	return fmt.Sprintf("code: %d, message: %s", e.code, e.message)
}

func (e *CustomError) Code() int {
	return e.code
}

func (e *CustomError) Message() string {
	return e.message
}

func (e *CustomError) Data() interface{} {
	return e.data
}

func (e *CustomError) WithData(data interface{}) Error {
	e.data = data
	return e
}

// NewError 创建错误
func NewError(code int) Error {
	if info, exists := ErrorMessages[code]; exists {
		return &CustomError{code: code, message: info.EN}
	}
	return &CustomError{code: code, message: "unknown error"}
}

// GetErrorInfo 获取错误信息
func GetErrorInfo(code int) (ErrorInfo, bool) {
	info, exists := ErrorMessages[code]
	return info, exists
}

// HTTPStatus maps an API error code to the HTTP status returned with it.
func HTTPStatus(code int) int {
	switch code {
	case CodeSuccess:
		return http.StatusOK
	case CodeInvalidParams, CodeMissingParams, CodeBeneficiaryInvalid, CodeOrderAmountInvalid,
		CodeNotifyFormatError, CodeNotifyRefMissing, CodeBeneficiaryLocked:
		return http.StatusBadRequest
	case CodeUnauthorized, CodeTokenInvalid, CodeSignatureError, CodeNotifySignError, CodeNotifyExpired:
		return http.StatusUnauthorized
	case CodeBeneficiaryNotFound, CodeOrderNotFound:
		return http.StatusNotFound
	case CodeOrderAlreadyExist, CodeOrderStale, CodeOrderBusy, CodeOrderStatusInvalid:
		return http.StatusConflict
	case CodeServiceUnavailable:
		return http.StatusServiceUnavailable
	case CodeUpstreamError, CodeUpstreamTimeout, CodeChainRPCError, CodeSwapQuoteFailed, CodeOnrampSessionFailed:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
