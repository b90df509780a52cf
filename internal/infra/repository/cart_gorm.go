package repository

import (
	"context"

	"storefront/internal/domain/model"

	"gorm.io/gorm"
)

type CartGormRepository struct {
	db *gorm.DB
}

// DI
func NewCartGormRepository(db *gorm.DB) *CartGormRepository {
	return &CartGormRepository{db: db}
}

// 顧客のカート明細を全削除
func (r *CartGormRepository) ClearByCustomerID(ctx context.Context, customerID int64) (int64, error) {
	res := r.db.WithContext(ctx).
		Where("customer_id = ?", customerID).
		Delete(&model.CartItem{})
	if res.Error != nil {
		return 0, res.Error
	}
	return res.RowsAffected, nil
}
