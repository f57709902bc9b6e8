package compounding

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// Round2 保留两位小数（四舍五入，远离零）
// 基于浮点数的最短十进制表示进行舍入，因此 2.355 -> 2.36、1.005 -> 1.01 是确定的
// 非有限值（NaN / ±Inf）返回 0
func Round2(x float64) float64 {
	if !isFinite(x) {
		return 0
	}
	return decimal.NewFromFloat(x).Round(2).InexactFloat64()
}

// sumRounded 精确求和（已舍入的数值），避免 0.1+0.2 之类的浮点误差
func sumRounded(values []float64) float64 {
	total := decimal.Zero
	for _, v := range values {
		if !isFinite(v) {
			continue
		}
		total = total.Add(decimal.NewFromFloat(v))
	}
	return total.InexactFloat64()
}

func isFinite(x float64) bool {
	return !math.IsNaN(x) && !math.IsInf(x, 0)
}

// ParsePositive 解析表单原始文本为严格正数
// 空字符串、非数字、小数逗号（"10,5"）、NaN/Inf、零和负数都返回 false
func ParsePositive(raw string) (float64, bool) {
	v, ok := parseNumber(raw)
	if !ok || v <= 0 {
		return 0, false
	}
	return v, true
}

// parseNumber 解析有限数值（允许首尾空白）
func parseNumber(raw string) (float64, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return 0, false
	}
	// ParseFloat 接受 "Inf"/"NaN"/"infinity"，这里统一拒绝
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || !isFinite(v) {
		return 0, false
	}
	return v, true
}
