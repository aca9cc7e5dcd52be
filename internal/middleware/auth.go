package middleware

import (
	"bytes"
	"io"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/metrics"
	"dc-purchase-api/internal/utils"
)

const (
	WebhookTimestampHeader = "X-Webhook-Timestamp"
	WebhookSignatureHeader = "X-Webhook-Signature"

	// RawBodyKey 已验签的原始请求体
	RawBodyKey = "raw_body"

	maxWebhookBody = 1 << 20
)

// SignatureVerifier 由 onramp.Gateway 实现
type SignatureVerifier interface {
	VerifyInboundSignature(timestamp string, body []byte, signature string) bool
}

// WebhookAuth 校验 hex(HMAC-SHA256(secret, timestamp + "." + body)) 与时间窗口
func WebhookAuth(v SignatureVerifier, tolerance time.Duration) gin.HandlerFunc {
	return func(c *gin.Context) {
		ts := c.GetHeader(WebhookTimestampHeader)
		sig := c.GetHeader(WebhookSignatureHeader)
		if ts == "" || sig == "" {
			reject(c, constant.CodeNotifySignError, "missing signature headers")
			return
		}
		sec, err := strconv.ParseInt(ts, 10, 64)
		if err != nil {
			reject(c, constant.CodeNotifySignError, "bad timestamp")
			return
		}
		if !utils.IsTimestampValid(time.Unix(sec, 0), tolerance) {
			reject(c, constant.CodeNotifyExpired, "")
			return
		}

		body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxWebhookBody))
		if err != nil {
			reject(c, constant.CodeNotifyFormatError, "read body failed")
			return
		}
		c.Request.Body = io.NopCloser(bytes.NewReader(body))

		if !v.VerifyInboundSignature(ts, body, sig) {
			reject(c, constant.CodeNotifySignError, "")
			return
		}
		c.Set(RawBodyKey, body)
		c.Next()
	}
}

func reject(c *gin.Context, code int, msg string) {
	metrics.Default.WebhookRequestsTotal.WithLabelValues("rejected").Inc()
	utils.Fail(c, code, msg)
}
