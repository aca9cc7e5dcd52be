package middleware

import (
	"crypto/subtle"
	"strings"

	"github.com/gin-gonic/gin"

	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/utils"
)

// AdminAuth Bearer 管理令牌；未配置令牌时拒绝所有请求
func AdminAuth(token string) gin.HandlerFunc {
	return func(c *gin.Context) {
		got := strings.TrimSpace(strings.TrimPrefix(c.GetHeader("Authorization"), "Bearer "))
		if token == "" || got == "" {
			utils.Fail(c, constant.CodeUnauthorized, "")
			return
		}
		if subtle.ConstantTimeCompare([]byte(got), []byte(token)) != 1 {
			utils.Fail(c, constant.CodeTokenInvalid, "")
			return
		}
		c.Next()
	}
}
