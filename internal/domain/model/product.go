package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// カタログの商品。このサービスからは読むだけ。
type Product struct {
	ID            string              `gorm:"type:uuid;primaryKey" json:"id"`
	Title         string              `gorm:"type:varchar(255);not null" json:"title"`
	Price         decimal.Decimal     `gorm:"type:decimal(10,2);not null" json:"price"`
	DiscountPrice decimal.NullDecimal `gorm:"type:decimal(10,2)" json:"discount_price"`
	Stock         int64               `gorm:"not null;default:0" json:"stock"`
	NotAvailable  bool                `gorm:"not null;default:false" json:"not_available"`
	CreatedAt     time.Time           `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt     time.Time           `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

// 注文時の販売価格。割引価格が無ければ通常価格
func (p Product) SellingPrice() decimal.Decimal {
	if p.DiscountPrice.Valid {
		return p.DiscountPrice.Decimal
	}
	return p.Price
}
