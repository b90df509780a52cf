package repository

import (
	"context"
	"errors"

	"storefront/internal/domain/model"
	domainrepo "storefront/internal/repository"

	"gorm.io/gorm"
)

type customerGormRepository struct {
	db *gorm.DB
}

// DI
// main.goでこれをnewしてusecaseに注入します。
func NewCustomerGormRepository(db *gorm.DB) domainrepo.CustomerRepository {
	return &customerGormRepository{db: db}
}

// 認証ユーザーIDで顧客アカウントを1件取得
func (r *customerGormRepository) FindByUserID(ctx context.Context, userID int64) (model.CustomerAccount, error) {
	var c model.CustomerAccount

	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		First(&c).Error

	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.CustomerAccount{}, domainrepo.ErrNotFound
	}
	if err != nil {
		return model.CustomerAccount{}, err
	}
	return c, nil
}
