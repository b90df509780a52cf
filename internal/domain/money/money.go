package money

import (
	"errors"

	"github.com/shopspring/decimal"
)

// 通貨の補助単位の桁数（kobo / cents）
const MinorUnitScale int32 = 2

var (
	ErrNegativeAmount = errors.New("amount must not be negative")

	// 補助単位より細かい端数がある
	ErrSubMinorPrecision = errors.New("amount is more precise than the currency minor unit")
)

// 数量（1以上）
type Quantity int64

func (q Quantity) Valid() bool {
	return q > 0
}

// 単価×数量
func LineTotal(unitPrice decimal.Decimal, qty Quantity) decimal.Decimal {
	return unitPrice.Mul(decimal.NewFromInt(int64(qty)))
}

// 合計（丸めなし）
func Sum(amounts ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, a := range amounts {
		total = total.Add(a)
	}
	return total
}

// ToMinorUnits converts a major-unit amount (e.g. 25.00) into the gateway's
// minor units (2500). The conversion is an exact shift; amounts that do not
// fit the currency precision are rejected instead of rounded.
func ToMinorUnits(amount decimal.Decimal) (int64, error) {
	if amount.IsNegative() {
		return 0, ErrNegativeAmount
	}
	minor := amount.Shift(MinorUnitScale)
	if !minor.IsInteger() {
		return 0, ErrSubMinorPrecision
	}
	return minor.IntPart(), nil
}

// 補助単位 -> 主単位
func FromMinorUnits(minor int64) decimal.Decimal {
	return decimal.New(minor, -MinorUnitScale)
}

// 台帳の amount 列（主単位の整数）。端数は切り捨て
func MajorUnits(amount decimal.Decimal) int64 {
	return amount.Truncate(0).IntPart()
}

// 表示用（25.00）
func Format(amount decimal.Decimal) string {
	return amount.StringFixed(MinorUnitScale)
}
