package model

import "time"

type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "pending"
	PaymentStatusSuccess PaymentStatus = "success"
	PaymentStatusFailed  PaymentStatus = "failed"
)

// 決済ゲートウェイのトランザクション台帳。
// Order を知らない。突き合わせは reference 文字列で行う。
// 再決済では同じ行の reference を付け替える（IDは維持）。
type PaymentTransaction struct {
	ID        int64  `gorm:"primaryKey;autoIncrement" json:"id"`
	Reference string `gorm:"type:varchar(100);not null;uniqueIndex" json:"reference"`

	// 主単位の整数
	Amount int64 `gorm:"not null;check:amount >= 0" json:"amount"`

	// ゲートウェイが確認した金額（補助単位）。検証前は NULL
	GatewayAmount *int64 `gorm:"column:gateway_amount" json:"gateway_amount"`

	Status          PaymentStatus `gorm:"type:varchar(10);not null;default:'pending';index" json:"status"`
	GatewayResponse string        `gorm:"type:text" json:"-"`
	PaidAt          *time.Time    `json:"paid_at"`
	CreatedAt       time.Time     `gorm:"not null;autoCreateTime" json:"created_at"`
}
