package utils

import (
	"time"
)

// IsTimestampValid 请求时间与当前时间的差在窗口内（单位秒），两个方向都校验，防重放
func IsTimestampValid(ts time.Time, window time.Duration) bool {
	return IsTimestampValidAt(ts, time.Now(), window)
}

func IsTimestampValidAt(ts, now time.Time, window time.Duration) bool {
	diff := now.Sub(ts)
	if diff < 0 {
		diff = -diff
	}
	return diff <= window
}
