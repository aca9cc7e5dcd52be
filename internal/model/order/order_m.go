package ordermodel

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
)

// SignatureList 交易签名列表，以 JSON 数组文本存储（mint 可能产生多笔交易）
type SignatureList []string

func (s *SignatureList) Scan(value interface{}) error {
	var raw []byte
	switch v := value.(type) {
	case nil:
		*s = nil
		return nil
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("SignatureList scan failed: %v", value)
	}
	if len(raw) == 0 {
		*s = nil
		return nil
	}
	return json.Unmarshal(raw, s)
}

func (s SignatureList) Value() (driver.Value, error) {
	if s == nil {
		return nil, nil
	}
	b, err := json.Marshal([]string(s))
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// Append returns a copy of s with sig added unless it is already present.
func (s SignatureList) Append(sigs ...string) SignatureList {
	out := make(SignatureList, 0, len(s)+len(sigs))
	out = append(out, s...)
	for _, sig := range sigs {
		dup := false
		for _, existing := range out {
			if existing == sig {
				dup = true
				break
			}
		}
		if !dup && sig != "" {
			out = append(out, sig)
		}
	}
	return out
}
