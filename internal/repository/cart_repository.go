package repository

import "context"

type CartRepository interface {
	// 注文確定時に全削除。削除件数を返す
	ClearByCustomerID(ctx context.Context, customerID int64) (int64, error)
}
