package repository

import (
	"context"

	"storefront/internal/domain/ordercode"
	repo "storefront/internal/repository"

	"gorm.io/gorm"
)

type txReposGorm struct {
	orders     repo.OrderRepository
	orderItems repo.OrderItemRepository
	payments   repo.PaymentTransactionRepository
	products   repo.ProductRepository
	carts      repo.CartRepository
	coupons    repo.CouponRepository
}

func (r *txReposGorm) Orders() repo.OrderRepository                { return r.orders }
func (r *txReposGorm) OrderItems() repo.OrderItemRepository        { return r.orderItems }
func (r *txReposGorm) Payments() repo.PaymentTransactionRepository { return r.payments }
func (r *txReposGorm) Products() repo.ProductRepository            { return r.products }
func (r *txReposGorm) Carts() repo.CartRepository                  { return r.carts }
func (r *txReposGorm) Coupons() repo.CouponRepository              { return r.coupons }

type TxManagerGorm struct {
	db    *gorm.DB
	codes *ordercode.Generator
}

func NewTxManagerGorm(db *gorm.DB, codes *ordercode.Generator) *TxManagerGorm {
	return &TxManagerGorm{db: db, codes: codes}
}

func (tm *TxManagerGorm) WithinTx(ctx context.Context, fn func(r repo.TxRepos) error) error {
	return tm.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		//repoはtxを持ったDBで作り直す
		r := &txReposGorm{
			orders:     NewOrderGormRepository(tx, tm.codes),
			orderItems: NewOrderItemGormRepository(tx),
			payments:   NewPaymentTransactionGormRepository(tx),
			products:   NewProductGormRepository(tx),
			carts:      NewCartGormRepository(tx),
			coupons:    NewCouponGormRepository(tx),
		}
		return fn(r)
	})
}
