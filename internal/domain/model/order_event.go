package model

import "time"

type OrderEventType string

const (
	OrderEventPlaced OrderEventType = "order.placed"
	OrderEventPaid   OrderEventType = "order.paid"
)

// 通知サービス向けのイベント（メール/SMS送信は外部）
type OrderEvent struct {
	Type       OrderEventType `json:"type"`
	OrderID    string         `json:"order_id"`
	OrderCode  string         `json:"order_code"`
	CustomerID int64          `json:"customer_id"`
	Email      string         `json:"email,omitempty"`
	Reference  string         `json:"reference"`
	Total      string         `json:"total_amount"`
	OccurredAt time.Time      `json:"occurred_at"`
}
