package utils

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"strings"
)

// SignWebhook 生成 webhook 签名：hex(HMAC-SHA256(secret, timestamp + "." + rawBody))
func SignWebhook(secret, timestamp string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(timestamp))
	mac.Write([]byte("."))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

// VerifyWebhookSign 常量时间比较签名
func VerifyWebhookSign(secret, timestamp string, body []byte, received string) bool {
	received = strings.TrimSpace(received)
	if received == "" || secret == "" {
		return false
	}
	expected := SignWebhook(secret, timestamp, body)
	return hmac.Equal([]byte(strings.ToLower(received)), []byte(expected))
}
