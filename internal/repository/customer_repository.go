package repository

import (
	"context"

	"storefront/internal/domain/model"
)

type CustomerRepository interface {
	// JWT の sub から顧客アカウントを引く
	FindByUserID(ctx context.Context, userID int64) (model.CustomerAccount, error)
}
