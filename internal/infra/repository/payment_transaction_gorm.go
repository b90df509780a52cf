package repository

import (
	"context"
	"errors"
	"time"

	"storefront/internal/domain/model"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type PaymentTransactionGormRepository struct {
	db *gorm.DB
}

func NewPaymentTransactionGormRepository(db *gorm.DB) *PaymentTransactionGormRepository {
	return &PaymentTransactionGormRepository{db: db}
}

func (r *PaymentTransactionGormRepository) Create(ctx context.Context, txn *model.PaymentTransaction) error {
	if txn.Status == "" {
		txn.Status = model.PaymentStatusPending
	}
	if err := r.db.WithContext(ctx).Create(txn).Error; err != nil {
		if isUniqueViolation(err, "reference") {
			return repo.ErrConflict
		}
		return err
	}
	return nil
}

func (r *PaymentTransactionGormRepository) FindByReference(ctx context.Context, reference string) (model.PaymentTransaction, error) {
	var t model.PaymentTransaction
	err := r.db.WithContext(ctx).Where("reference = ?", reference).First(&t).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.PaymentTransaction{}, repo.ErrNotFound
	}
	if err != nil {
		return model.PaymentTransaction{}, err
	}
	return t, nil
}

// 同じ成功を何度書いても結果は同じ（paid_at は最初の値を残す）
func (r *PaymentTransactionGormRepository) MarkSuccess(ctx context.Context, id int64, gatewayAmount int64, paidAt time.Time, raw string) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":           model.PaymentStatusSuccess,
		"gateway_amount":   gatewayAmount,
		"gateway_response": raw,
		"paid_at":          gorm.Expr("COALESCE(paid_at, ?)", paidAt),
	})
}

func (r *PaymentTransactionGormRepository) MarkPending(ctx context.Context, id int64, raw string) error {
	return r.update(ctx, id, map[string]interface{}{
		"status":           model.PaymentStatusPending,
		"gateway_response": raw,
	})
}

func (r *PaymentTransactionGormRepository) ReassignReference(ctx context.Context, id int64, newRef string, raw string) error {
	err := r.update(ctx, id, map[string]interface{}{
		"reference":        newRef,
		"status":           model.PaymentStatusPending,
		"gateway_response": raw,
	})
	if err != nil && isUniqueViolation(err, "reference") {
		return repo.ErrConflict
	}
	return err
}

func (r *PaymentTransactionGormRepository) update(ctx context.Context, id int64, values map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&model.PaymentTransaction{}).
		Where("id = ?", id).
		Updates(values)

	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return repo.ErrNotFound
	}
	return nil
}
