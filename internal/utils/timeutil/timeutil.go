package timeutil

import (
	"time"
)

// NowUTC 返回当前 UTC 时间，精确到毫秒（与数据库精度一致）
func NowUTC() time.Time {
	return time.Now().UTC().Truncate(time.Millisecond)
}

// FormatISO8601 格式化为 RFC3339 (2025-10-03T06:45:21.123Z)
func FormatISO8601(t time.Time) string {
	return t.UTC().Format("2006-01-02T15:04:05.000Z07:00")
}

// ParseUnixSeconds 解析秒级时间戳字符串
func ParseUnixSeconds(s string) (time.Time, bool) {
	var sec int64
	if s == "" {
		return time.Time{}, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return time.Time{}, false
		}
		sec = sec*10 + int64(r-'0')
		if sec > 1<<40 {
			return time.Time{}, false
		}
	}
	return time.Unix(sec, 0), true
}
