package handler

import (
	"context"
	"errors"
	"log"

	"github.com/gin-gonic/gin"

	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/service"
	"dc-purchase-api/internal/utils"
)

// writeError 业务错误映射到错误码，未知错误统一返回系统错误
func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrOrderNotFound):
		utils.Fail(c, constant.CodeOrderNotFound, "")
	case errors.Is(err, service.ErrBeneficiaryNotFound):
		utils.Fail(c, constant.CodeBeneficiaryNotFound, "")
	case errors.Is(err, service.ErrBeneficiaryLocked):
		utils.Fail(c, constant.CodeBeneficiaryLocked, "")
	case errors.Is(err, service.ErrInvalidAmount):
		utils.Fail(c, constant.CodeOrderAmountInvalid, err.Error())
	case errors.Is(err, service.ErrStatusRegression), errors.Is(err, service.ErrStatusSkip):
		utils.Fail(c, constant.CodeOrderStatusInvalid, err.Error())
	case errors.Is(err, service.ErrStaleStatus):
		utils.Fail(c, constant.CodeOrderStale, "")
	case errors.Is(err, service.ErrOrderBusy):
		utils.Fail(c, constant.CodeOrderBusy, "")
	case errors.Is(err, service.ErrWebhookPayload):
		utils.Fail(c, constant.CodeNotifyFormatError, "")
	case errors.Is(err, service.ErrWebhookRefMissing):
		utils.Fail(c, constant.CodeNotifyRefMissing, "")
	case errors.Is(err, context.DeadlineExceeded):
		utils.Fail(c, constant.CodeTimeout, "")
	default:
		log.Printf("[Handler] %s %s trace_id=%s: %v", c.Request.Method, c.FullPath(), c.GetString("trace_id"), err)
		_ = c.Error(err)
		utils.Fail(c, constant.CodeSystemError, "")
	}
}
