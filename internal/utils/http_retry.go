package utils

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"
)

type permanentError struct{ err error }

func (p *permanentError) Error() string { return p.err.Error() }
func (p *permanentError) Unwrap() error { return p.err }

// Permanent 标记不需要重试的错误，DoWithRetry 原样返回其内部错误
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

// DoWithRetry 执行带重试逻辑的函数，fn 收到从 1 开始的尝试序号
func DoWithRetry(ctx context.Context, maxRetries int, interval time.Duration, fn func(attempt int) error) error {
	if maxRetries <= 0 {
		maxRetries = 1
	}
	var err error
	for attempt := 1; attempt <= maxRetries; attempt++ {
		err = fn(attempt)
		if err == nil {
			return nil
		}
		var perm *permanentError
		if errors.As(err, &perm) {
			return perm.err
		}

		log.Printf("[RETRY] attempt %d/%d failed: %v", attempt, maxRetries, err)

		if attempt == maxRetries {
			break
		}

		select {
		case <-ctx.Done():
			return fmt.Errorf("context done before retry: %w", ctx.Err())
		case <-time.After(interval):
		}
	}
	return err
}
