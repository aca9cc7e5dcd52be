package utils

import (
	"encoding/json"
	"fmt"
	"math/big"

	"github.com/shopspring/decimal"
)

// InRange 金额是否在 [min, max] 闭区间
func InRange(amount, min, max decimal.Decimal) bool {
	return amount.Cmp(min) >= 0 && amount.Cmp(max) <= 0
}

// ToBaseUnits 将可读金额按精度转换为链上最小单位（向下取整）
func ToBaseUnits(amount decimal.Decimal, decimals int32) (uint64, error) {
	if amount.IsNegative() {
		return 0, fmt.Errorf("negative amount %s", amount)
	}
	units := amount.Shift(decimals).Floor()
	bi := units.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("amount %s overflows u64", amount)
	}
	return bi.Uint64(), nil
}

// FromBaseUnits 链上最小单位转可读金额
func FromBaseUnits(units uint64, decimals int32) decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(units), -decimals)
}

// MapToJSON map转出为json
func MapToJSON(v any) string {
	b, _ := json.Marshal(v)
	return string(b)
}
