package utils

import (
	"net"
	"strings"

	"github.com/gin-gonic/gin"
)

// 单值代理头，按优先级排列；X-Forwarded-For 交给 gin 按可信代理解析
var singleIPHeaders = []string{"CF-Connecting-IP", "X-Real-IP"}

// GetClientIP 买家真实 IP，传给支付会话做风控；无法识别时返回空串
func GetClientIP(c *gin.Context) string {
	for _, h := range singleIPHeaders {
		if ip := normalizeIP(c.GetHeader(h)); ip != "" {
			return ip
		}
	}
	return normalizeIP(c.ClientIP())
}

func normalizeIP(s string) string {
	ip := net.ParseIP(strings.TrimSpace(s))
	if ip == nil || ip.IsUnspecified() {
		return ""
	}
	return ip.String()
}
