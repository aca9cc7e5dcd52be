package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/middleware"
	"dc-purchase-api/internal/service"
	"dc-purchase-api/internal/utils"
)

type WebhookHandler struct{ svc *service.WebhookService }

func NewWebhookHandler(svc *service.WebhookService) *WebhookHandler {
	return &WebhookHandler{svc: svc}
}

// Onramp 入金回调，签名由 middleware.WebhookAuth 校验；状态推进异步进行
func (h *WebhookHandler) Onramp(c *gin.Context) {
	raw, ok := c.Get(middleware.RawBodyKey)
	body, _ := raw.([]byte)
	if !ok {
		b, err := io.ReadAll(c.Request.Body)
		if err != nil {
			utils.Fail(c, constant.CodeNotifyFormatError, "")
			return
		}
		body = b
	}
	res, err := h.svc.HandleOnramp(c.Request.Context(), body)
	if err != nil {
		writeError(c, err)
		return
	}
	utils.OK(c, res)
}
