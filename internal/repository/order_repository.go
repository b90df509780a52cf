package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

type AdminOrderListFilter struct {
	Page       int
	Limit      int
	Status     string
	CustomerID *int64
	From       *time.Time
	To         *time.Time
}

type OrderRepository interface {
	// order_code はここで採番する（WithinTx の中で呼ぶ）
	Create(ctx context.Context, order *model.Order) error

	FindByID(ctx context.Context, orderID string) (model.Order, error)
	FindByReference(ctx context.Context, reference string) (model.Order, error)

	// 新しい順。明細と決済を含む
	ListByCustomerID(ctx context.Context, customerID int64) ([]model.Order, error)

	//管理者用の注文一覧
	ListAdmin(ctx context.Context, f AdminOrderListFilter) ([]model.Order, int64, error)

	// oldRef のときだけ差し替える。0件なら ErrNotFound
	UpdateReference(ctx context.Context, orderID string, oldRef string, newRef string) error

	AttachPayment(ctx context.Context, orderID string, paymentID int64) error
	UpdateStatus(ctx context.Context, orderID string, status model.OrderStatus) error
	MarkPaid(ctx context.Context, orderID string, paymentID int64) error
}
