package logger

import (
	"strings"

	"github.com/sirupsen/logrus"
)

var (
	baseDir = "./logs"
	level   = logrus.InfoLevel
)

// Init 设置日志目录与级别，必须在第一次 NewLogger 之前调用
func Init(dir, lvl string) {
	mu.Lock()
	defer mu.Unlock()
	if strings.TrimSpace(dir) != "" {
		baseDir = dir
	}
	if parsed, err := logrus.ParseLevel(lvl); err == nil {
		level = parsed
	}
	for _, l := range loggers {
		l.SetLevel(level)
	}
}
