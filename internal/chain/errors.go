package chain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

var (
	// ErrSubmissionFailed 在重试次数耗尽或遇到不可重试的发送错误时返回
	ErrSubmissionFailed = errors.New("chain: transaction submission failed")
	// ErrConfirmationTimeout 轮询超时仍未确认
	ErrConfirmationTimeout = errors.New("chain: confirmation timeout")
)

// TxError 交易已上链但执行失败，Err 为节点返回的原始错误
type TxError struct {
	Signature solana.Signature
	Err       interface{}
}

func (e *TxError) Error() string {
	return fmt.Sprintf("transaction failed: %v", e.Err)
}

// 只有这几类错误可以换 blockhash 重发，其余直接抛出
var retryableMarkers = []string{
	"block height exceeded",
	"blockhash not found",
	"timeout",
}

func isRetryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConfirmationTimeout) {
		return true
	}
	msg := strings.ToLower(err.Error())
	for _, m := range retryableMarkers {
		if strings.Contains(msg, m) {
			return true
		}
	}
	return false
}

func isAccountMissing(err error) bool {
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "could not find account")
}
