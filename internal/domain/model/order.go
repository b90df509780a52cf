package model

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending   OrderStatus = "pending"
	OrderStatusPaid      OrderStatus = "paid"
	OrderStatusDelivered OrderStatus = "delivered"
	OrderStatusCancelled OrderStatus = "cancelled"
)

type OrderType string

const (
	OrderTypeDelivery OrderType = "delivery"
	OrderTypePickup   OrderType = "pickup"
)

func ParseOrderType(s string) (OrderType, bool) {
	switch OrderType(s) {
	case "", OrderTypeDelivery:
		return OrderTypeDelivery, true
	case OrderTypePickup:
		return OrderTypePickup, true
	}
	return "", false
}

// 注文。住所・連絡先は注文時点のスナップショット（プロフィール変更の影響を受けない）
// total_amount は作成時に明細から一度だけ計算し、以後再計算しない。
type Order struct {
	ID          string          `gorm:"type:uuid;primaryKey" json:"id"`
	OrderCode   string          `gorm:"column:order_code;type:varchar(50);not null;uniqueIndex" json:"order_code"`
	CustomerID  int64           `gorm:"not null;index" json:"customer_id"`
	Status      OrderStatus     `gorm:"type:varchar(20);not null;default:'pending';index" json:"status"`
	OrderType   OrderType       `gorm:"type:varchar(20);not null;default:'delivery'" json:"order_type"`
	TotalAmount decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`

	CouponID *int64  `gorm:"index" json:"coupon_id"`
	Coupon   *Coupon `gorm:"foreignKey:CouponID;constraint:OnDelete:SET NULL" json:"-"`

	// 現在の決済トランザクション（Order -> Transaction の片方向）
	PaymentID *int64              `gorm:"index" json:"payment_id"`
	Payment   *PaymentTransaction `gorm:"foreignKey:PaymentID;constraint:OnDelete:SET NULL" json:"payment,omitempty"`

	FirstName       string `gorm:"type:text" json:"first_name"`
	LastName        string `gorm:"type:text" json:"last_name"`
	Email           string `gorm:"type:text" json:"email"`
	Region          string `gorm:"type:text" json:"region"`
	City            string `gorm:"type:text" json:"city"`
	PhoneNumber     string `gorm:"type:text" json:"phone_number"`
	ShippingAddress string `gorm:"type:text" json:"shipping_address"`

	// 再決済で差し替わる
	Reference string `gorm:"type:varchar(100);uniqueIndex" json:"reference"`

	Items []OrderItem `gorm:"foreignKey:OrderID;constraint:OnDelete:CASCADE" json:"items"`

	CreatedAt time.Time `gorm:"not null;autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"not null;autoUpdateTime" json:"updated_at"`
}

func (o Order) AwaitingPayment() bool {
	return o.Status == OrderStatusPending
}
