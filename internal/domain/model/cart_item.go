package model

import "time"

// カートの明細（顧客ごと）。注文確定時に全削除する。
type CartItem struct {
	ID         int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	CustomerID int64     `gorm:"not null;uniqueIndex:idx_cart_customer_product" json:"customer_id"`
	ProductID  string    `gorm:"type:uuid;not null;uniqueIndex:idx_cart_customer_product" json:"product_id"`
	Quantity   int64     `gorm:"not null;default:1" json:"quantity"`
	CreatedAt  time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}
