package model

import "github.com/shopspring/decimal"

type DiscountType string

const (
	DiscountPercent DiscountType = "percent"
	DiscountAmount  DiscountType = "amount"
)

// クーポン（このサービスでは参照のみ）
type Coupon struct {
	ID            int64           `gorm:"primaryKey;autoIncrement" json:"id"`
	Code          string          `gorm:"type:varchar(20);not null;uniqueIndex" json:"code"`
	DiscountType  DiscountType    `gorm:"type:varchar(10);not null" json:"discount_type"`
	DiscountValue decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"discount_value"`
	IsActive      bool            `gorm:"not null;default:true" json:"is_active"`
	Used          bool            `gorm:"not null;default:false" json:"used"`
}

func (c Coupon) Redeemable() bool {
	return c.IsActive && !c.Used
}
