package utils

import "github.com/shopspring/decimal"

// 金额统一保留两位小数，舍入方式为四舍五入（HALF_UP）

// RoundMoney 金额保留两位小数
func RoundMoney(v float64) float64 {
	f, _ := decimal.NewFromFloat(v).Round(2).Float64()
	return f
}

// AddMoney 金额相加
func AddMoney(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Add(decimal.NewFromFloat(b)).Round(2).Float64()
	return f
}

// SubMoney 金额相减
func SubMoney(a, b float64) float64 {
	f, _ := decimal.NewFromFloat(a).Sub(decimal.NewFromFloat(b)).Round(2).Float64()
	return f
}

// MulMoney 金额乘以系数（如天数、退款比例）
func MulMoney(amount, factor float64) float64 {
	f, _ := decimal.NewFromFloat(amount).Mul(decimal.NewFromFloat(factor)).Round(2).Float64()
	return f
}

// SumMoney 金额求和
func SumMoney(values ...float64) float64 {
	sum := decimal.Zero
	for _, v := range values {
		sum = sum.Add(decimal.NewFromFloat(v))
	}
	f, _ := sum.Round(2).Float64()
	return f
}
