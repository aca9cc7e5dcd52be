package middleware

import (
	"runtime/debug"

	"github.com/gin-gonic/gin"

	"dc-purchase-api/internal/constant"
	"dc-purchase-api/internal/logger"
	"dc-purchase-api/internal/utils"
)

func Recover() gin.HandlerFunc {
	errorLog := logger.NewLogger("error")
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				errorLog.WithFields(map[string]interface{}{
					"path":     c.Request.URL.Path,
					"trace_id": c.GetString("trace_id"),
				}).Errorf("panic: %v\n%s", r, debug.Stack())
				utils.Fail(c, constant.CodeSystemError, "")
			}
		}()
		c.Next()
	}
}
