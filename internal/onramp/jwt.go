package onramp

import (
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const jwtTTL = 120 * time.Second

type cdpClaims struct {
	jwt.RegisteredClaims
	URIs []string `json:"uris"`
}

// BuildCDPToken 生成 Coinbase CDP API 鉴权 JWT。
// secret 支持两种格式：base64 编码的 64 字节 Ed25519 密钥 (EdDSA)，或 PEM EC 私钥 (ES256)。
func BuildCDPToken(keyID, secret, method, host, path string, now time.Time) (string, error) {
	if keyID == "" || secret == "" {
		return "", errors.New("cdp credentials missing")
	}
	claims := cdpClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   keyID,
			Issuer:    "cdp",
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(jwtTTL)),
		},
		URIs: []string{strings.ToUpper(method) + " " + host + path},
	}

	var (
		alg jwt.SigningMethod
		key interface{}
	)
	switch {
	case strings.Contains(secret, "-----BEGIN") && strings.Contains(secret, "PRIVATE KEY"):
		pemKey := strings.ReplaceAll(secret, `\n`, "\n")
		ecKey, err := jwt.ParseECPrivateKeyFromPEM([]byte(pemKey))
		if err != nil {
			return "", fmt.Errorf("parse ec key: %w", err)
		}
		alg, key = jwt.SigningMethodES256, ecKey
	default:
		raw, err := decodeBase64Loose(secret)
		if err != nil || len(raw) != ed25519.PrivateKeySize {
			return "", errors.New("invalid key format: need base64 Ed25519 (64 bytes) or PEM EC key")
		}
		alg, key = jwt.SigningMethodEdDSA, ed25519.NewKeyFromSeed(raw[:ed25519.SeedSize])
	}

	token := jwt.NewWithClaims(alg, claims)
	token.Header["kid"] = keyID
	token.Header["nonce"] = nonce()
	return token.SignedString(key)
}

// 兼容 url-safe 与缺少 padding 的写法
func decodeBase64Loose(s string) ([]byte, error) {
	s = strings.NewReplacer("-", "+", "_", "/").Replace(strings.TrimSpace(s))
	for len(s)%4 != 0 {
		s += "="
	}
	return base64.StdEncoding.DecodeString(s)
}

func nonce() string {
	b := make([]byte, 16)
	_, _ = rand.Read(b)
	return hex.EncodeToString(b)
}
