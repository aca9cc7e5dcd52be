package chain

import (
	"encoding/base64"
	"errors"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"
)

// Treasury 金库热钱包。所有 mint/delegate/swap 调用显式传入，便于测试替换。
type Treasury struct {
	key solana.PrivateKey
}

func NewTreasury(key solana.PrivateKey) *Treasury {
	return &Treasury{key: key}
}

// LoadTreasury 依次尝试 base64(64 字节)、base58 私钥，最后是 solana-keygen 文件
func LoadTreasury(privateKey, keypairPath string) (*Treasury, error) {
	privateKey = strings.TrimSpace(privateKey)
	if privateKey != "" {
		if raw, err := base64.StdEncoding.DecodeString(privateKey); err == nil && len(raw) == 64 {
			return NewTreasury(solana.PrivateKey(raw)), nil
		}
		key, err := solana.PrivateKeyFromBase58(privateKey)
		if err != nil {
			return nil, fmt.Errorf("parse treasury key: %w", err)
		}
		if len(key) != 64 {
			return nil, fmt.Errorf("parse treasury key: unexpected length %d", len(key))
		}
		return NewTreasury(key), nil
	}
	if keypairPath != "" {
		key, err := solana.PrivateKeyFromSolanaKeygenFile(keypairPath)
		if err != nil {
			return nil, fmt.Errorf("read treasury keypair %s: %w", keypairPath, err)
		}
		return NewTreasury(key), nil
	}
	return nil, errors.New("treasury key not configured")
}

func (t *Treasury) PublicKey() solana.PublicKey {
	return t.key.PublicKey()
}

// Signer 返回签名回调可用的私钥
func (t *Treasury) Signer() solana.PrivateKey {
	return t.key
}
