package repository

import (
	"context"

	"storefront/internal/domain/model"
)

// カタログは読むだけ
type ProductRepository interface {
	FindByID(ctx context.Context, id string) (model.Product, error)
}
