package repository

import (
	"context"
	"time"

	"storefront/internal/domain/model"
)

// 決済台帳。行は削除しない
type PaymentTransactionRepository interface {
	Create(ctx context.Context, txn *model.PaymentTransaction) error
	FindByReference(ctx context.Context, reference string) (model.PaymentTransaction, error)

	// paid_at が既にあれば維持する
	MarkSuccess(ctx context.Context, id int64, gatewayAmount int64, paidAt time.Time, raw string) error
	MarkPending(ctx context.Context, id int64, raw string) error

	// 再決済。IDはそのまま reference だけ付け替える
	ReassignReference(ctx context.Context, id int64, newRef string, raw string) error
}
