package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"sync"
	"time"

	rotatelogs "github.com/lestrrat-go/file-rotatelogs"
	"github.com/sirupsen/logrus"
)

var (
	mu      sync.Mutex
	loggers = map[string]*logrus.Logger{}
)

// NewLogger 返回按名称缓存的 logger，按天切割写入 <dir>/<logType>/<logType>.log 并同时输出到 stdout
func NewLogger(logType string) *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if l, ok := loggers[logType]; ok {
		return l
	}

	log := logrus.New()
	logPath := filepath.Join(baseDir, logType)
	var out io.Writer = os.Stdout
	if err := os.MkdirAll(logPath, 0755); err == nil {
		writer, err := rotatelogs.New(
			logPath+"/"+logType+".log.%Y-%m-%d",
			rotatelogs.WithLinkName(logPath+"/"+logType+".log"),
			rotatelogs.WithRotationTime(24*time.Hour),
			rotatelogs.WithMaxAge(7*24*time.Hour),
		)
		if err == nil {
			out = io.MultiWriter(os.Stdout, writer)
		}
	}

	log.SetOutput(out)
	log.SetFormatter(&logrus.TextFormatter{
		TimestampFormat: "2006-01-02 15:04:05",
		FullTimestamp:   true,
		CallerPrettyfier: func(f *runtime.Frame) (string, string) {
			return f.Function, fmt.Sprintf("%s:%d", f.File, f.Line)
		},
	})
	log.SetLevel(level)

	loggers[logType] = log
	return log
}

// NewNop 丢弃所有输出，测试使用
func NewNop() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}
